package evaluator_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wf-lang/wf/internal/evaluator"
	"github.com/wf-lang/wf/internal/parser"
	"github.com/wf-lang/wf/internal/registry"
	"github.com/wf-lang/wf/internal/sink"
	"github.com/wf-lang/wf/internal/wferrors"
	"github.com/wf-lang/wf/internal/wflog"
)

func build(t *testing.T, src string) *registry.Registry {
	t.Helper()
	script, err := parser.Parse(src)
	require.NoError(t, err)
	reg, err := registry.Build(script)
	require.NoError(t, err)
	return reg
}

func execTexts(events []wflog.Event) []string {
	var out []string
	for _, e := range events {
		if e.Kind == wflog.EventExec {
			out = append(out, e.Text)
		}
	}
	return out
}

func TestDependencyRunsBeforeDependent(t *testing.T) {
	src := `
a {
    depends(b);
    exec(echo A);
}
b {
    exec(echo B);
}
`
	reg := build(t, src)
	rec := sink.NewRecording()
	log := wflog.NewRecording()
	ev := evaluator.New(reg, rec, log, nil)

	summary := ev.Run([]string{"a"}, nil)
	require.NoError(t, summary.TerminalError)
	require.Equal(t, []string{"echo B", "echo A"}, rec.Submissions)
	require.Equal(t, []string{"echo B", "echo A"}, execTexts(log.Events))
	require.Equal(t, 2, summary.ExecCount)
	require.Equal(t, 0, summary.NonZeroCount)
}

func TestDependencyCycleIsDetectedWithExactPath(t *testing.T) {
	src := `
a {
    depends(b);
}
b {
    depends(a);
}
`
	reg := build(t, src)
	rec := sink.NewRecording()
	log := wflog.NewRecording()
	ev := evaluator.New(reg, rec, log, nil)

	summary := ev.Run([]string{"a"}, nil)
	require.Error(t, summary.TerminalError)
	werr, ok := summary.TerminalError.(*wferrors.Error)
	require.True(t, ok)
	require.Equal(t, wferrors.KindDependencyCycle, werr.Kind)
	require.Equal(t, []string{"a", "b", "a"}, werr.Context["path"])
	require.Empty(t, rec.Submissions, "no Exec should run once a cycle is detected")
	require.Equal(t, 0, log.ExecCount())
}

func TestConditionalWithInterpolation(t *testing.T) {
	src := `
deploy(env) {
    if $env == "prod" {
        exec(echo deploying to $env);
    } else {
        exec(echo skipping $env);
    }
}
`
	reg := build(t, src)

	rec := sink.NewRecording()
	log := wflog.NewRecording()
	ev := evaluator.New(reg, rec, log, nil)
	summary := ev.Run([]string{"deploy"}, []string{"prod"})
	require.NoError(t, summary.TerminalError)
	require.Equal(t, []string{"echo deploying to prod"}, rec.Submissions)

	rec2 := sink.NewRecording()
	log2 := wflog.NewRecording()
	ev2 := evaluator.New(reg, rec2, log2, nil)
	summary2 := ev2.Run([]string{"deploy"}, []string{"staging"})
	require.NoError(t, summary2.TerminalError)
	require.Equal(t, []string{"echo skipping staging"}, rec2.Submissions)
}

func TestForLoopPreservesOrder(t *testing.T) {
	src := `
build {
    for item in ["a", "b", "c"] {
        exec(echo $item);
    }
}
`
	reg := build(t, src)
	rec := sink.NewRecording()
	log := wflog.NewRecording()
	ev := evaluator.New(reg, rec, log, nil)

	summary := ev.Run([]string{"build"}, nil)
	require.NoError(t, summary.TerminalError)
	require.Equal(t, []string{"echo a", "echo b", "echo c"}, rec.Submissions)
	require.Equal(t, 3, summary.ExecCount)
}

func TestNestedSubcommandResolvesByDottedPath(t *testing.T) {
	src := `
docker {
    build {
        exec(docker build .);
    }
    run {
        depends(build);
        exec(docker run x);
    }
}
`
	reg := build(t, src)
	rec := sink.NewRecording()
	log := wflog.NewRecording()
	ev := evaluator.New(reg, rec, log, nil)

	summary := ev.Run([]string{"docker", "run"}, nil)
	require.NoError(t, summary.TerminalError)
	require.Equal(t, []string{"docker build .", "docker run x"}, rec.Submissions)
}

func TestExecFailureIsNonFatal(t *testing.T) {
	src := `
build {
    exec(false);
    exec(echo still runs);
}
`
	reg := build(t, src)
	rec := sink.NewRecording()
	rec.ExitCodes["false"] = 1
	log := wflog.NewRecording()
	ev := evaluator.New(reg, rec, log, nil)

	summary := ev.Run([]string{"build"}, nil)
	require.NoError(t, summary.TerminalError, "a non-zero exit must not be a terminal error")
	require.Equal(t, []string{"false", "echo still runs"}, rec.Submissions)
	require.Equal(t, 2, summary.ExecCount)
	require.Equal(t, 1, summary.NonZeroCount)
}

func TestUnknownCommandIsTerminal(t *testing.T) {
	reg := build(t, `a { exec(echo hi); }`)
	rec := sink.NewRecording()
	log := wflog.NewRecording()
	ev := evaluator.New(reg, rec, log, nil)

	summary := ev.Run([]string{"missing"}, nil)
	require.Error(t, summary.TerminalError)
	werr, ok := summary.TerminalError.(*wferrors.Error)
	require.True(t, ok)
	require.Equal(t, wferrors.KindUnknownCommand, werr.Kind)
	require.Empty(t, rec.Submissions)
}

func TestScopePushAndPopStayBalancedAcrossANestedInvocation(t *testing.T) {
	// The environment is created fresh per Run and is not exposed after
	// the call, so we assert balance indirectly: a script with a
	// dependency, a loop and a let must run to completion without
	// panicking on an unbalanced PopScope, and locals set in one branch
	// must not leak into a sibling command's later run.
	src := `
a {
    depends(b);
    let x = "fromA";
    for i in ["1", "2"] {
        exec(echo $x-$i);
    }
}
b {
    let x = "fromB";
    exec(echo b-$x);
}
`
	reg := build(t, src)
	rec := sink.NewRecording()
	log := wflog.NewRecording()
	ev := evaluator.New(reg, rec, log, nil)

	summary := ev.Run([]string{"a"}, nil)
	require.NoError(t, summary.TerminalError)
	require.Equal(t, []string{"echo b-fromB", "echo fromA-1", "echo fromA-2"}, rec.Submissions)
}

func TestExtraArgumentsWarnButDoNotAbort(t *testing.T) {
	reg := build(t, `greet(name) { exec(echo hello $name); }`)
	rec := sink.NewRecording()
	log := wflog.NewRecording()
	ev := evaluator.New(reg, rec, log, nil)

	summary := ev.Run([]string{"greet"}, []string{"world", "extra"})
	require.NoError(t, summary.TerminalError)
	require.Equal(t, []string{"echo hello world"}, rec.Submissions)

	var sawWarning bool
	for _, e := range log.Events {
		if e.Kind == wflog.EventError && e.Warning {
			sawWarning = true
		}
	}
	require.True(t, sawWarning, "extra positional arguments should log a warning, not fail")
}

func TestUnboundVariableInterpolatesEmptyAndWarns(t *testing.T) {
	reg := build(t, `a { exec(echo [$missing]); }`)
	rec := sink.NewRecording()
	log := wflog.NewRecording()
	ev := evaluator.New(reg, rec, log, nil)

	summary := ev.Run([]string{"a"}, nil)
	require.NoError(t, summary.TerminalError)
	require.Equal(t, []string{"echo []"}, rec.Submissions)

	var sawWarning bool
	for _, e := range log.Events {
		if e.Kind == wflog.EventError && e.ErrKind == wferrors.KindUnboundVariable {
			sawWarning = true
			require.True(t, e.Warning)
		}
	}
	require.True(t, sawWarning)
}
