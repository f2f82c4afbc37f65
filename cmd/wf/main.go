// Command wf runs, checks, formats and documents workflow files. It is
// the thin cobra front end over the language core in internal/, built the
// way the teacher's own cli/main.go is built: persistent flags shared by
// every subcommand, one RunE per subcommand, errors reported to stderr
// with a non-zero exit.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wf-lang/wf/internal/ast"
	"github.com/wf-lang/wf/internal/config"
	"github.com/wf-lang/wf/internal/evaluator"
	"github.com/wf-lang/wf/internal/format"
	"github.com/wf-lang/wf/internal/parser"
	"github.com/wf-lang/wf/internal/registry"
	"github.com/wf-lang/wf/internal/sink"
	"github.com/wf-lang/wf/internal/wferrors"
	"github.com/wf-lang/wf/internal/wflog"
)

func main() {
	cfg := config.Default()

	root := &cobra.Command{
		Use:   "wf",
		Short: "Run and inspect wf workflow files",
	}
	root.PersistentFlags().StringVarP(&cfg.File, "file", "f", cfg.File, "Path to a workflow file, or - for stdin")
	root.PersistentFlags().BoolVar(&cfg.DryRun, "dry-run", false, "Record commands instead of executing them")
	root.PersistentFlags().BoolVar(&cfg.Debug, "debug", false, "Enable verbose diagnostic logging")
	root.PersistentFlags().BoolVar(&cfg.NoColor, "no-color", false, "Disable colored console output")

	root.AddCommand(runCmd(&cfg), checkCmd(&cfg), fmtCmd(&cfg), docCmd(&cfg))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "run <path...> [-- args...]",
		Short: "Evaluate a command by path, forwarding trailing arguments as parameters",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, params := splitPathAndArgs(args, cmd.ArgsLenAtDash())

			reg, err := loadRegistry(cfg.File)
			if err != nil {
				return err
			}

			var execSink sink.Sink
			if cfg.DryRun {
				execSink = sink.NewDryRun()
			} else {
				execSink = sink.NewShell("")
			}

			logger := wflog.NewConsole(os.Stderr, wflog.ShouldUseColor(cfg.NoColor), cfg.Debug)
			ev := evaluator.New(reg, execSink, logger, envAsMap(os.Environ()))
			ev.Ctx = context.Background()

			summary := ev.Run(path, params)
			if !summary.Ok() {
				if werr, ok := summary.TerminalError.(*wferrors.Error); ok && werr.Kind == wferrors.KindUnknownCommand {
					if suggestion := reg.Suggest(strings.Join(path, ".")); suggestion != "" {
						fmt.Fprintf(os.Stderr, "did you mean %q?\n", suggestion)
					}
				}
				return summary.TerminalError
			}
			if summary.NonZeroCount > 0 {
				os.Exit(1)
			}
			return nil
		},
	}
}

func checkCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Parse and index the workflow file without running anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := loadScript(cfg.File)
			if err != nil {
				return err
			}
			reg, err := registry.Build(script)
			if err != nil {
				return err
			}
			var bad []string
			for _, path := range reg.Paths() {
				c, err := reg.Resolve(path)
				if err != nil {
					continue
				}
				parentPath := path[:len(path)-1]
				for _, name := range dependencyNames(c.Body) {
					if _, err := reg.ResolveSibling(parentPath, name); err != nil {
						bad = append(bad, fmt.Sprintf("%s -> %s", strings.Join(path, "."), name))
					}
				}
			}
			if len(bad) > 0 {
				return fmt.Errorf("dangling dependencies: %s", strings.Join(bad, ", "))
			}
			fmt.Fprintf(os.Stdout, "ok: %d command(s)\n", len(reg.Paths()))
			return nil
		},
	}
}

func fmtCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "fmt",
		Short: "Print the canonical formatting of the workflow file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := loadScript(cfg.File)
			if err != nil {
				return err
			}
			fmt.Fprint(os.Stdout, format.Script(script))
			return nil
		},
	}
}

func docCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "doc",
		Short: "Print every command path with its doc comment and parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := loadScript(cfg.File)
			if err != nil {
				return err
			}
			reg, err := registry.Build(script)
			if err != nil {
				return err
			}
			for _, path := range reg.Paths() {
				c, err := reg.Resolve(path)
				if err != nil {
					return err
				}
				line := strings.Join(path, ".")
				if len(c.Params) > 0 {
					line += "(" + strings.Join(c.Params, ", ") + ")"
				}
				fmt.Fprintln(os.Stdout, line)
				if c.Doc != "" {
					fmt.Fprintf(os.Stdout, "    %s\n", c.Doc)
				}
			}
			return nil
		},
	}
}

// dependencyNames collects every Depends reference reachable from body,
// descending into if/for branches but not into a NestedCommand's own
// body, since that command is checked independently as its own registry
// entry.
func dependencyNames(body ast.Body) []string {
	var names []string
	for _, stmt := range body.Statements {
		switch s := stmt.(type) {
		case *ast.Depends:
			names = append(names, s.Names...)
		case *ast.If:
			names = append(names, dependencyNames(s.Then)...)
			if s.Else != nil {
				names = append(names, dependencyNames(*s.Else)...)
			}
		case *ast.For:
			names = append(names, dependencyNames(s.Body)...)
		}
	}
	return names
}

func loadScript(file string) (*ast.Script, error) {
	src, err := readSource(file)
	if err != nil {
		return nil, err
	}
	return parser.Parse(src)
}

func loadRegistry(file string) (*registry.Registry, error) {
	script, err := loadScript(file)
	if err != nil {
		return nil, err
	}
	return registry.Build(script)
}

func readSource(file string) (string, error) {
	if file == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", file, err)
	}
	return string(b), nil
}

// splitPathAndArgs separates the leading dot-or-space-separated command
// path from the trailing positional arguments after a literal "--", per
// the CLI's external-interface contract. pflag strips the "--" token
// itself out of args before RunE ever sees them, so the split point has
// to come from cmd.ArgsLenAtDash() (the index "--" stood at, or -1 if the
// invocation had none) rather than by scanning args for a literal "--".
// Each trailing argument has one leading "--" stripped, so the core sees
// raw values ("--prod" binds as "prod").
func splitPathAndArgs(args []string, dashAt int) (path []string, params []string) {
	pathArgs := args
	if dashAt >= 0 {
		pathArgs = args[:dashAt]
		for _, a := range args[dashAt:] {
			params = append(params, strings.TrimPrefix(a, "--"))
		}
	}
	for _, a := range pathArgs {
		path = append(path, strings.Split(a, ".")...)
	}
	return path, params
}

func envAsMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			out[kv[:i]] = kv[i+1:]
		}
	}
	return out
}
