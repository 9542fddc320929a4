package containers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecairns22/harbormaster/internal/runner"
)

const (
	psAll     = "docker ps -a --format {{.Names}},{{.Status}}"
	psRunning = "docker ps --format {{.Names}},{{.Status}}"
)

func inspectCmd(name string) string {
	return "docker inspect -f {{json .Config.Labels}} " + name
}

func TestListAllPreservesListingOrder(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse(psAll, runner.Response{Stdout: "web,Up 2 hours\n\n   \ndb,Exited (0) 3 days ago\ncache,Up 5 minutes\n"})
	fake.SetResponse(inspectCmd("web"), runner.Response{Stdout: `{"com.docker.compose.project":"shop","com.docker.compose.service":"web"}` + "\n"})
	fake.SetResponse(inspectCmd("db"), runner.Response{Stdout: "{}\n"})
	fake.SetResponse(inspectCmd("cache"), runner.Response{Stdout: "null\n"})

	records, err := New(fake, "docker", "").ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "web", records[0].Name)
	assert.Equal(t, "Up 2 hours", records[0].Status)
	require.NotNil(t, records[0].Compose)
	assert.Equal(t, "shop", records[0].Compose.Project)
	assert.Equal(t, "web", records[0].Compose.Service)

	assert.Equal(t, "db", records[1].Name)
	assert.Equal(t, "Exited (0) 3 days ago", records[1].Status)
	assert.Nil(t, records[1].Compose)

	assert.Equal(t, "cache", records[2].Name)
	assert.Nil(t, records[2].Compose, "null labels must not produce compose info")
}

func TestListAllComposeRecordShape(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse(psAll, runner.Response{Stdout: "c,Up\n"})
	fake.SetResponse(inspectCmd("c"), runner.Response{Stdout: `{
		"com.docker.compose.project": "p",
		"com.docker.compose.service": "s",
		"com.docker.compose.project.config_files": "f",
		"com.docker.compose.project.working_dir": "w"
	}`})

	records, err := New(fake, "docker", "").ListAll(context.Background())
	require.NoError(t, err)

	want := []Record{{
		Name:   "c",
		Status: "Up",
		Compose: &ComposeInfo{
			Service:     "s",
			Project:     "p",
			ConfigFiles: "f",
			WorkingDir:  "w",
		},
	}}
	assert.Equal(t, want, records)
}

func TestRecordJSONOmitsAbsentCompose(t *testing.T) {
	data, err := json.Marshal(Record{Name: "db", Status: "Up"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"db","status":"Up"}`, string(data))
}

func TestListAllEmptyProjectLabel(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse(psAll, runner.Response{Stdout: "solo,Up\n"})
	fake.SetResponse(inspectCmd("solo"), runner.Response{Stdout: `{"com.docker.compose.project":"","com.docker.compose.service":"x"}`})

	records, err := New(fake, "docker", "").ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Compose)
}

func TestListAllCustomPrefix(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse("podman ps -a --format {{.Names}},{{.Status}}", runner.Response{Stdout: "app,Up\n"})
	fake.SetResponse("podman inspect -f {{json .Config.Labels}} app", runner.Response{Stdout: `{"io.podman.compose.project":"proj"}`})

	records, err := New(fake, "podman", "io.podman.compose").ListAll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, records[0].Compose)
	assert.Equal(t, "proj", records[0].Compose.Project)
}

func TestListAllStatusKeepsExtraDelimiters(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse(psAll, runner.Response{Stdout: "web,Up 2 hours (healthy), restarting\n"})
	fake.SetResponse(inspectCmd("web"), runner.Response{Stdout: "null"})

	records, err := New(fake, "docker", "").ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Up 2 hours (healthy), restarting", records[0].Status)
}

func TestListAllListingFailure(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse(psAll, runner.Response{
		Stderr: "Cannot connect to the Docker daemon\n",
		Err:    runner.StatusError(1),
	})

	records, err := New(fake, "docker", "").ListAll(context.Background())
	require.Error(t, err)
	assert.Nil(t, records)
	assert.True(t, runner.IsKind(err, runner.KindExit))
	assert.Contains(t, err.Error(), "Cannot connect to the Docker daemon")
	assert.Zero(t, fake.CallCount("docker inspect"))
}

func TestListAllInspectFailurePropagates(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse(psAll, runner.Response{Stdout: "web,Up\ngone,Exited (1) 1 second ago\n"})
	fake.SetResponse(inspectCmd("web"), runner.Response{Stdout: "{}"})
	fake.SetResponse(inspectCmd("gone"), runner.Response{Stderr: "Error: No such object: gone", Err: runner.StatusError(1)})

	_, err := New(fake, "docker", "").ListAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inspecting gone")
	assert.Contains(t, err.Error(), "No such object")
}

func TestListAllIsolatedInspectFailure(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse(psAll, runner.Response{Stdout: "web,Up\ngone,Exited (1) 1 second ago\n"})
	fake.SetResponse(inspectCmd("web"), runner.Response{Stdout: `{"com.docker.compose.project":"shop"}`})
	fake.SetResponse(inspectCmd("gone"), runner.Response{Err: runner.StatusError(1)})

	l := New(fake, "docker", "")
	l.Isolate = true
	records, err := l.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.NotNil(t, records[0].Compose)
	assert.Nil(t, records[1].Compose)
	assert.Equal(t, "gone", records[1].Name)
}

func TestListAllHungInspectIsCanceled(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse(psAll, runner.Response{Stdout: "web,Up\nstuck,Up\n"})
	fake.SetResponse(inspectCmd("web"), runner.Response{Stdout: "null"})
	fake.Block(inspectCmd("stuck"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := New(fake, "docker", "").ListAll(ctx)
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	case <-time.After(5 * time.Second):
		t.Fatal("listing did not return after its context expired")
	}
}

func TestListAllMalformedLine(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse(psAll, runner.Response{Stdout: "web,Up\nno-delimiter-here\n"})

	_, err := New(fake, "docker", "").ListAll(context.Background())
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "no-delimiter-here", pe.Line)
}

func TestListAllMalformedLabels(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse(psAll, runner.Response{Stdout: "web,Up\n"})
	fake.SetResponse(inspectCmd("web"), runner.Response{Stdout: "map[foo:bar]"})

	_, err := New(fake, "docker", "").ListAll(context.Background())
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "inspect web", pe.Source)
}

func TestListAllEmpty(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse(psAll, runner.Response{Stdout: ""})

	records, err := New(fake, "docker", "").ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRunningCount(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   int
	}{
		{"empty", "", 0},
		{"blank lines only", "\n  \n\n", 0},
		{"three", "a,Up\nb,Up 1 hour\n\nc,Up (Paused)\n", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := runner.NewFakeRunner()
			fake.SetResponse(psRunning, runner.Response{Stdout: tt.stdout})

			n, err := New(fake, "docker", "").RunningCount(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
			assert.Zero(t, fake.CallCount("docker inspect"), "count must not inspect")
		})
	}
}

func TestRunningCountFailure(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse(psRunning, runner.Response{Err: fmt.Errorf("exec: \"docker\": executable file not found in $PATH")})

	_, err := New(fake, "docker", "").RunningCount(context.Background())
	require.Error(t, err)
	assert.True(t, runner.IsKind(err, runner.KindSpawn))
}

func TestGroupByProject(t *testing.T) {
	records := []Record{
		{Name: "solo", Status: "Up"},
		{Name: "shop-web", Status: "Up", Compose: &ComposeInfo{Project: "shop"}},
		{Name: "blog-db", Status: "Up", Compose: &ComposeInfo{Project: "blog"}},
		{Name: "shop-db", Status: "Up", Compose: &ComposeInfo{Project: "shop"}},
	}

	groups := GroupByProject(records)
	require.Len(t, groups, 3)
	assert.Equal(t, "shop", groups[0].Project)
	assert.Len(t, groups[0].Records, 2)
	assert.Equal(t, "blog", groups[1].Project)
	assert.Equal(t, "", groups[2].Project)
	assert.Equal(t, "solo", groups[2].Records[0].Name)
}
