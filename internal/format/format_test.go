package format_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/wf-lang/wf/internal/format"
	"github.com/wf-lang/wf/internal/parser"
	"github.com/wf-lang/wf/internal/token"
)

func TestFormatParseRoundTripPreservesStructure(t *testing.T) {
	src := `
/// deploys the service to an environment
deploy(env) {
    depends(build);
    let target = $env;
    if $target == "prod" {
        exec(echo deploying to $target);
    } else {
        exec(echo skipping $target);
    }
    for item in ["a", "b"] {
        exec(echo $item);
    }
}

build {
    exec(go build ./...);
}
`
	original, err := parser.Parse(src)
	require.NoError(t, err)

	formatted := format.Script(original)
	require.NotEmpty(t, formatted)

	reparsed, err := parser.Parse(formatted)
	require.NoError(t, err, "formatted output must itself be valid wf source:\n%s", formatted)

	diff := cmp.Diff(original, reparsed, cmpopts.IgnoreTypes(token.Position{}))
	require.Empty(t, diff, "format-then-parse must reproduce the same AST modulo source positions")

	// A second format pass over the reparsed tree must be byte-identical
	// to the first: the printer is idempotent.
	require.Equal(t, formatted, format.Script(reparsed))
}

func TestFormatCommandRendersDocAndParams(t *testing.T) {
	src := `/// greets someone by name
greet(name) {
    exec(echo hello $name);
}
`
	script, err := parser.Parse(src)
	require.NoError(t, err)
	require.Len(t, script.Commands, 1)

	out := format.Command(script.Commands[0])
	require.Contains(t, out, "/// greets someone by name")
	require.Contains(t, out, "greet(name) {")
	require.Contains(t, out, `exec(echo hello $name);`)
}

func TestFormatNestedCommandIndents(t *testing.T) {
	src := `
docker {
    run {
        exec(echo running);
    }
}
`
	script, err := parser.Parse(src)
	require.NoError(t, err)

	out := format.Script(script)
	require.Contains(t, out, "docker {\n")
	require.Contains(t, out, "    run {\n")
	require.Contains(t, out, "        exec(echo running);\n")
}
