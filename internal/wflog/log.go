// Package wflog defines the evaluator's structured log events (spec §6)
// and a colored console renderer for them, in the spirit of the teacher
// sibling CLI's NO_COLOR-aware Colorize helper, but built on the
// third-party github.com/fatih/color package rather than hand-rolled ANSI
// codes.
package wflog

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/wf-lang/wf/internal/wferrors"
)

// EventKind is one of the five observable event kinds the evaluator emits.
type EventKind string

const (
	EventExec    EventKind = "Exec"
	EventSet     EventKind = "Set"
	EventDepends EventKind = "Depends"
	EventParam   EventKind = "Param"
	EventError   EventKind = "Error"
)

// Event is one structured log record emitted by the evaluator.
type Event struct {
	Kind EventKind

	// Exec
	Text string
	// Set / Param
	Name  string
	Value string
	// Depends
	Dependency string
	// Error
	ErrKind wferrors.Kind
	Detail  string
	Warning bool // true for a non-fatal note (extra args, unbound variable, ...)
}

// Logger receives evaluator events as they happen.
type Logger interface {
	Log(Event)
}

// Recording is a test double that keeps every event it receives, in
// order, for the property tests in spec §8.
type Recording struct {
	Events []Event
}

func NewRecording() *Recording {
	return &Recording{}
}

func (r *Recording) Log(e Event) {
	r.Events = append(r.Events, e)
}

// ExecCount returns the number of Exec events recorded.
func (r *Recording) ExecCount() int {
	n := 0
	for _, e := range r.Events {
		if e.Kind == EventExec {
			n++
		}
	}
	return n
}

// Console renders events as colored, human-readable lines to an io.Writer
// (normally os.Stderr, so `exec` output on stdout stays clean for
// piping).
type Console struct {
	Out      io.Writer
	NoColor  bool
	// Debug enables the Set/Param lines, which trace every local binding
	// and parameter assignment; noisy enough that they're off by default.
	Debug    bool
	exec     *color.Color
	set      *color.Color
	depends  *color.Color
	param    *color.Color
	errColor *color.Color
}

// NewConsole creates a Console logger. useColor mirrors the teacher's
// ShouldUseColor: honor an explicit --no-color flag and the NO_COLOR
// convention before falling back to isatty. debug wires the CLI's
// --debug flag to the Set/Param trace lines.
func NewConsole(out io.Writer, useColor, debug bool) *Console {
	c := &Console{Out: out, NoColor: !useColor, Debug: debug}
	c.exec = color.New(color.FgCyan)
	c.set = color.New(color.FgGreen)
	c.depends = color.New(color.FgYellow)
	c.param = color.New(color.FgBlue)
	c.errColor = color.New(color.FgRed, color.Bold)
	for _, col := range []*color.Color{c.exec, c.set, c.depends, c.param, c.errColor} {
		col.EnableColor()
		if c.NoColor {
			col.DisableColor()
		}
	}
	return c
}

// ShouldUseColor mirrors the teacher CLI's color-detection policy:
// an explicit flag wins, then NO_COLOR, then whether stderr is a terminal.
func ShouldUseColor(noColorFlag bool) bool {
	if noColorFlag {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func (c *Console) Log(e Event) {
	switch e.Kind {
	case EventExec:
		c.exec.Fprintf(c.Out, "exec: %s\n", e.Text)
	case EventSet:
		if c.Debug {
			c.set.Fprintf(c.Out, "set: %s = %q\n", e.Name, e.Value)
		}
	case EventDepends:
		c.depends.Fprintf(c.Out, "depends: %s\n", e.Dependency)
	case EventParam:
		if c.Debug {
			c.param.Fprintf(c.Out, "param: %s = %q\n", e.Name, e.Value)
		}
	case EventError:
		if e.Warning {
			c.depends.Fprintf(c.Out, "warning: %s\n", e.Detail)
			break
		}
		c.errColor.Fprintf(c.Out, "error [%s]: %s\n", e.ErrKind, e.Detail)
	default:
		fmt.Fprintf(c.Out, "%s\n", e.Kind)
	}
}

// Multi fans out every event to more than one Logger, used to record
// events for assertions while also rendering them to the console.
type Multi struct {
	Loggers []Logger
}

func (m Multi) Log(e Event) {
	for _, l := range m.Loggers {
		l.Log(e)
	}
}
