package commands

import (
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed)
)

// newTable creates a table with standard styling writing to w.
func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

// colorStatus colors a runtime status string by its leading word.
func colorStatus(status string) string {
	switch {
	case strings.HasPrefix(status, "Up") && strings.Contains(status, "(Paused)"):
		return warnColor.Sprint(status)
	case strings.HasPrefix(status, "Up"):
		return okColor.Sprint(status)
	case strings.HasPrefix(status, "Exited"), strings.HasPrefix(status, "Dead"):
		return failColor.Sprint(status)
	default:
		return warnColor.Sprint(status)
	}
}

func yesNo(b bool) string {
	if b {
		return okColor.Sprint("yes")
	}
	return failColor.Sprint("no")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
