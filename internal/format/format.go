// Package format renders a Script back to canonical wf source text: the
// counterpart to internal/parser that satisfies the parse-format-parse
// round-trip property (spec §8) and backs the `wf fmt` subcommand.
//
// The teacher's own text-rendering package (pkgs/generator) builds output
// from a flat, fixed set of text/template strings keyed by command shape -
// a good fit for generating a switch statement over a known handful of
// command kinds. A source formatter instead walks an arbitrarily deep,
// recursively nested tree (if/for bodies containing further if/for
// bodies) where the only thing that changes between levels is indent
// depth, which text/template range/if actions express awkwardly. This
// prints directly with a strings.Builder and an explicit indent counter,
// the same shape as the teacher's own indentation bookkeeping in its
// generated-code templates, minus the template layer that doesn't fit a
// recursive grammar.
package format

import (
	"fmt"
	"strings"

	"github.com/wf-lang/wf/internal/ast"
)

const indentUnit = "    "

// Script renders an entire script: each top-level command, blank-line
// separated, in declaration order.
func Script(script *ast.Script) string {
	var b strings.Builder
	for i, cmd := range script.Commands {
		if i > 0 {
			b.WriteByte('\n')
		}
		writeCommand(&b, cmd, 0)
	}
	return b.String()
}

// Command renders a single command and its body at zero indentation.
func Command(cmd *ast.Command) string {
	var b strings.Builder
	writeCommand(&b, cmd, 0)
	return b.String()
}

func writeCommand(b *strings.Builder, cmd *ast.Command, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	if cmd.Doc != "" {
		fmt.Fprintf(b, "%s/// %s\n", indent, cmd.Doc)
	}
	fmt.Fprintf(b, "%s%s", indent, cmd.Name)
	if len(cmd.Params) > 0 {
		fmt.Fprintf(b, "(%s)", strings.Join(cmd.Params, ", "))
	}
	b.WriteString(" {\n")
	writeBody(b, cmd.Body, depth+1)
	fmt.Fprintf(b, "%s}\n", indent)
}

func writeBody(b *strings.Builder, body ast.Body, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	for _, stmt := range body.Statements {
		writeStatement(b, stmt, depth, indent)
	}
}

func writeStatement(b *strings.Builder, stmt ast.Statement, depth int, indent string) {
	switch s := stmt.(type) {
	case *ast.Let:
		fmt.Fprintf(b, "%slet %s = %s;\n", indent, s.Name, writeExpr(s.Value))

	case *ast.Exec:
		fmt.Fprintf(b, "%sexec(%s);\n", indent, s.RawText)

	case *ast.Depends:
		fmt.Fprintf(b, "%sdepends(%s);\n", indent, strings.Join(s.Names, ", "))

	case *ast.If:
		fmt.Fprintf(b, "%sif %s {\n", indent, writeCondition(s.Cond))
		writeBody(b, s.Then, depth+1)
		if s.Else != nil {
			fmt.Fprintf(b, "%s} else {\n", indent)
			writeBody(b, *s.Else, depth+1)
		}
		fmt.Fprintf(b, "%s}\n", indent)

	case *ast.For:
		items := make([]string, len(s.Items))
		for i, item := range s.Items {
			items[i] = writeExpr(item)
		}
		fmt.Fprintf(b, "%sfor %s in [%s] {\n", indent, s.Var, strings.Join(items, ", "))
		writeBody(b, s.Body, depth+1)
		fmt.Fprintf(b, "%s}\n", indent)

	case *ast.NestedCommand:
		writeCommand(b, s.Command, depth)

	default:
		fmt.Fprintf(b, "%s/* unrenderable statement %T */\n", indent, stmt)
	}
}

func writeExpr(expr ast.Expression) string {
	switch e := expr.(type) {
	case *ast.String:
		// Only the four escapes the lexer's readString resolves (\n, \t,
		// \", \\) are written back as escapes; every other rune is written
		// as-is, which readString reads back verbatim.
		esc := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)
		return `"` + esc.Replace(e.Value) + `"`
	case *ast.Variable:
		return "$" + e.Name
	default:
		return ""
	}
}

func writeCondition(c ast.Condition) string {
	return fmt.Sprintf("%s %s %s", writeExpr(c.Left), c.Op, writeExpr(c.Right))
}
