package containers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/ecairns22/harbormaster/internal/runner"
)

// DefaultLabelPrefix is the label namespace compose applies to containers.
const DefaultLabelPrefix = "com.docker.compose"

const (
	listFormat    = "{{.Names}},{{.Status}}"
	labelsFormat  = "{{json .Config.Labels}}"
	listDelimiter = ","
)

// Record is a snapshot of one container as reported by the runtime.
type Record struct {
	Name    string       `json:"name"`
	Status  string       `json:"status"`
	Compose *ComposeInfo `json:"compose,omitempty"`
}

// ComposeInfo holds the compose labels of a container.
type ComposeInfo struct {
	Service     string `json:"service"`
	Project     string `json:"project"`
	ConfigFiles string `json:"configFiles"`
	WorkingDir  string `json:"workingDir"`
}

// Lister lists containers through a runtime CLI.
type Lister struct {
	runner      runner.CommandRunner
	runtime     string
	labelPrefix string

	// Isolate keeps a record without compose info when its inspect call
	// fails, instead of failing the whole listing.
	Isolate bool
}

// New creates a lister for the given runtime binary (docker or podman).
func New(r runner.CommandRunner, runtime, labelPrefix string) *Lister {
	if labelPrefix == "" {
		labelPrefix = DefaultLabelPrefix
	}
	return &Lister{runner: r, runtime: runtime, labelPrefix: labelPrefix}
}

// ListAll returns every container, stopped ones included, in the order the
// runtime listed them.
func (l *Lister) ListAll(ctx context.Context) ([]Record, error) {
	out, err := runner.Capture(ctx, l.runner, l.runtime, "ps", "-a", "--format", listFormat)
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}
	records, err := parseListing(out)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range records {
		i := i
		g.Go(func() error {
			compose, err := l.inspect(gctx, records[i].Name)
			if err != nil {
				if l.Isolate {
					log.Warn("inspect failed, listing without compose info", "container", records[i].Name, "err", err)
					return nil
				}
				return err
			}
			records[i].Compose = compose
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// RunningCount returns the number of running containers without inspecting them.
func (l *Lister) RunningCount(ctx context.Context) (int, error) {
	out, err := runner.Capture(ctx, l.runner, l.runtime, "ps", "--format", listFormat)
	if err != nil {
		return 0, fmt.Errorf("listing running containers: %w", err)
	}
	n := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n, nil
}

func (l *Lister) inspect(ctx context.Context, name string) (*ComposeInfo, error) {
	out, err := runner.Capture(ctx, l.runner, l.runtime, "inspect", "-f", labelsFormat, name)
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", name, err)
	}
	labels, err := parseLabels(name, out)
	if err != nil {
		return nil, err
	}
	return composeFromLabels(labels, l.labelPrefix), nil
}

// ParseError reports runtime output that does not have the expected shape.
type ParseError struct {
	Source string
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s output %q: %s", e.Source, e.Line, e.Reason)
}

// parseListing turns "name,status" lines into records. The split happens on
// the first delimiter only; container names cannot contain commas.
func parseListing(out string) ([]Record, error) {
	var records []Record
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		line = strings.TrimRight(line, "\r")
		name, status, ok := strings.Cut(line, listDelimiter)
		if !ok {
			return nil, &ParseError{Source: "ps", Line: line, Reason: "missing delimiter"}
		}
		if name == "" {
			return nil, &ParseError{Source: "ps", Line: line, Reason: "empty container name"}
		}
		records = append(records, Record{Name: name, Status: status})
	}
	return records, nil
}

// parseLabels decodes the label map printed by inspect. The runtime prints
// null for a container without labels.
func parseLabels(name, out string) (map[string]string, error) {
	var labels map[string]string
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &labels); err != nil {
		return nil, &ParseError{Source: "inspect " + name, Line: strings.TrimSpace(out), Reason: err.Error()}
	}
	return labels, nil
}

func composeFromLabels(labels map[string]string, prefix string) *ComposeInfo {
	project := labels[prefix+".project"]
	if project == "" {
		return nil
	}
	return &ComposeInfo{
		Service:     labels[prefix+".service"],
		Project:     project,
		ConfigFiles: labels[prefix+".project.config_files"],
		WorkingDir:  labels[prefix+".project.working_dir"],
	}
}

// Group is a set of records that share a compose project.
type Group struct {
	Project string
	Records []Record
}

// GroupByProject groups records by compose project in first-seen order, with
// standalone containers collected in a trailing group with an empty Project.
func GroupByProject(records []Record) []Group {
	var groups []Group
	index := make(map[string]int)
	var standalone []Record
	for _, rec := range records {
		if rec.Compose == nil {
			standalone = append(standalone, rec)
			continue
		}
		i, ok := index[rec.Compose.Project]
		if !ok {
			i = len(groups)
			index[rec.Compose.Project] = i
			groups = append(groups, Group{Project: rec.Compose.Project})
		}
		groups[i].Records = append(groups[i].Records, rec)
	}
	if len(standalone) > 0 {
		groups = append(groups, Group{Records: standalone})
	}
	return groups
}
