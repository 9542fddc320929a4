package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecairns22/harbormaster/internal/runner"
)

func lookPathIn(present ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, p := range present {
			if p == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
}

func TestSnapshotAutoPrefersDocker(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse("id -Gn", runner.Response{Stdout: "alice wheel docker\n"})

	p := New(fake, Options{Runtime: Auto, Group: "docker"})
	p.LookPath = lookPathIn("docker", "podman")

	s := p.Snapshot(context.Background())
	assert.Equal(t, "docker", s.Runtime)
	assert.True(t, s.HasRuntime())
	assert.True(t, s.Binaries["podman"])
	assert.True(t, s.Authorized)
}

func TestSnapshotAutoFallsBackToPodman(t *testing.T) {
	p := New(runner.NewFakeRunner(), Options{})
	p.LookPath = lookPathIn("podman")

	s := p.Snapshot(context.Background())
	assert.Equal(t, "podman", s.Runtime)
	assert.False(t, s.Binaries["docker"])
	assert.True(t, s.Authorized, "no group requirement means authorized")
}

func TestSnapshotAutoPodmanNeedsNoGroup(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse("id -Gn", runner.Response{Stdout: "alice wheel\n"})

	p := New(fake, Options{Runtime: Auto})
	p.LookPath = lookPathIn("podman")

	s := p.Snapshot(context.Background())
	assert.Equal(t, "podman", s.Runtime)
	assert.True(t, s.Authorized)
	assert.Zero(t, fake.CallCount("id"))
}

func TestSnapshotAutoDockerNeedsDockerGroup(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse("id -Gn", runner.Response{Stdout: "alice wheel\n"})

	p := New(fake, Options{Runtime: Auto})
	p.LookPath = lookPathIn("docker", "podman")

	s := p.Snapshot(context.Background())
	assert.Equal(t, "docker", s.Runtime)
	assert.False(t, s.Authorized)
}

func TestSnapshotExplicitGroupOverridesDefault(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse("id -Gn", runner.Response{Stdout: "alice containers\n"})

	p := New(fake, Options{Runtime: Auto, Group: "containers"})
	p.LookPath = lookPathIn("podman")

	assert.True(t, p.Snapshot(context.Background()).Authorized)
	assert.Equal(t, 1, fake.CallCount("id -Gn"))
}

func TestSnapshotNoRuntime(t *testing.T) {
	p := New(runner.NewFakeRunner(), Options{Runtime: Auto})
	p.LookPath = lookPathIn()

	s := p.Snapshot(context.Background())
	assert.Empty(t, s.Runtime)
	assert.False(t, s.HasRuntime())
}

func TestSnapshotExplicitRuntimeMissing(t *testing.T) {
	p := New(runner.NewFakeRunner(), Options{Runtime: "podman"})
	p.LookPath = lookPathIn("docker")

	s := p.Snapshot(context.Background())
	assert.Equal(t, "podman", s.Runtime)
	assert.False(t, s.HasRuntime())
}

func TestRefreshSeesNewBinary(t *testing.T) {
	p := New(runner.NewFakeRunner(), Options{})
	p.LookPath = lookPathIn()
	require.False(t, p.Snapshot(context.Background()).HasRuntime())

	p.LookPath = lookPathIn("docker")
	assert.True(t, p.Refresh(context.Background()).HasRuntime())
}

func TestIsUserAuthorizedWholeToken(t *testing.T) {
	tests := []struct {
		name   string
		groups string
		err    error
		want   bool
	}{
		{"member", "alice docker wheel\n", nil, true},
		{"prefix only", "alice dockerroot\n", nil, false},
		{"suffix only", "alice mydocker\n", nil, false},
		{"id fails", "", runner.StatusError(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := runner.NewFakeRunner()
			fake.SetResponse("id -Gn", runner.Response{Stdout: tt.groups, Err: tt.err})
			p := New(fake, Options{Group: "docker"})
			assert.Equal(t, tt.want, p.IsUserAuthorized(context.Background()))
		})
	}
}

const psOutput = `    PID TTY      STAT   TIME COMMAND
      1 ?        Ss     0:03 systemd
    812 ?        Ssl    1:10 containerd
    977 ?        Ssl    2:41 dockerd
   1200 pts/0    Ss     0:00 bash
`

func TestDaemonRunning(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse("ps cax", runner.Response{Stdout: psOutput})

	p := New(fake, Options{Runtime: "docker", DaemonProcess: "dockerd"})
	running, err := p.DaemonRunning(context.Background())
	require.NoError(t, err)
	assert.True(t, running)
}

func TestDaemonNotRunning(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse("ps cax", runner.Response{Stdout: psOutput})

	p := New(fake, Options{Runtime: "docker", DaemonProcess: "containerd-shim"})
	running, err := p.DaemonRunning(context.Background())
	require.NoError(t, err)
	assert.False(t, running)
}

func TestDaemonRunningRecheckedEachCall(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse("ps cax", runner.Response{Stdout: psOutput})
	p := New(fake, Options{Runtime: "docker", DaemonProcess: "dockerd"})

	_, _ = p.DaemonRunning(context.Background())
	_, _ = p.DaemonRunning(context.Background())
	assert.Equal(t, 2, fake.CallCount("ps cax"))
}

func TestDaemonlessRuntime(t *testing.T) {
	fake := runner.NewFakeRunner()
	p := New(fake, Options{Runtime: "podman", DaemonProcess: DefaultDaemon("podman")})

	running, err := p.DaemonRunning(context.Background())
	require.NoError(t, err)
	assert.True(t, running)
	assert.Zero(t, fake.CallCount("ps"))
}

func TestDaemonRunningPsFails(t *testing.T) {
	fake := runner.NewFakeRunner()
	fake.SetResponse("ps cax", runner.Response{Err: runner.StatusError(1)})
	p := New(fake, Options{Runtime: "docker", DaemonProcess: "dockerd"})

	_, err := p.DaemonRunning(context.Background())
	assert.Error(t, err)
}

func TestDaemonRunningWithoutRuntime(t *testing.T) {
	fake := runner.NewFakeRunner()
	p := New(fake, Options{Runtime: Auto})
	p.LookPath = lookPathIn()
	require.False(t, p.Snapshot(context.Background()).HasRuntime())

	running, err := p.DaemonRunning(context.Background())
	require.NoError(t, err)
	assert.False(t, running)
	assert.Zero(t, fake.CallCount("ps"))
}
