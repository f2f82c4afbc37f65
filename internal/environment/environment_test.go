package environment_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wf-lang/wf/internal/environment"
)

func TestLookupSearchesInnermostFirst(t *testing.T) {
	env := environment.New(map[string]string{"x": "outer"})
	env.PushScope(environment.CommandKind)
	env.Bind("x", "inner")

	v, ok := env.Lookup("x")
	require.True(t, ok)
	require.Equal(t, "inner", v)

	env.PopScope()
	v, ok = env.Lookup("x")
	require.True(t, ok)
	require.Equal(t, "outer", v)
}

func TestLoopScopeShadowsAndIsTransparentToBind(t *testing.T) {
	env := environment.New(nil)
	env.PushScope(environment.CommandKind)
	env.Bind("x", "cmd")

	env.PushScope(environment.LoopKind)
	env.BindLoopVar("x", "loop")
	v, _ := env.Lookup("x")
	require.Equal(t, "loop", v)

	// Let inside the loop body must not write into the loop scope.
	env.Bind("y", "from-let")
	env.PopScope()

	v, ok := env.Lookup("x")
	require.True(t, ok, "the command-scope x is visible again once the loop scope pops")
	require.Equal(t, "cmd", v, "loop var must not survive its scope")

	v, ok = env.Lookup("y")
	require.True(t, ok, "let binding inside a loop body must land in the enclosing command scope")
	require.Equal(t, "from-let", v)
}

func TestInterpolateSubstitutesAndLeavesLiteralDollar(t *testing.T) {
	env := environment.New(nil)
	env.PushScope(environment.CommandKind)
	env.Bind("name", "world")

	got := env.Interpolate("hello $name, cost is $5 not $", nil)
	require.Equal(t, "hello world, cost is $5 not $", got)
}

func TestInterpolateIdempotentWithoutDollar(t *testing.T) {
	env := environment.New(nil)
	got := env.Interpolate("no variables here", nil)
	require.Equal(t, "no variables here", got)
}

func TestInterpolateUnboundCallsHandlerAndSubstitutesEmpty(t *testing.T) {
	env := environment.New(nil)
	var unbound []string
	got := env.Interpolate("value=$missing.", func(name string) { unbound = append(unbound, name) })
	require.Equal(t, "value=.", got)
	require.Equal(t, []string{"missing"}, unbound)
}

func TestInterpolateDoesNotRescan(t *testing.T) {
	env := environment.New(nil)
	env.PushScope(environment.CommandKind)
	env.Bind("a", "$b")
	env.Bind("b", "final")

	got := env.Interpolate("$a", nil)
	require.Equal(t, "$b", got, "the substituted value must not be re-scanned for further variables")
}

func TestPopScopeOnEmptyPanics(t *testing.T) {
	env := environment.New(nil)
	require.Panics(t, func() { env.PopScope() })
}
