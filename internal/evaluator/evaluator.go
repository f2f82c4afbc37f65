// Package evaluator walks the AST for one command invocation: it binds
// parameters, runs declared dependencies ahead of the body, interpolates
// and executes shell text, and dispatches control flow. It is the single
// place in this repository where the language actually does something
// observable, mirroring the teacher's Engine.ExecuteCommand as the seam
// between the static tree and the Execution Sink.
package evaluator

import (
	"context"
	"fmt"
	"strings"

	"github.com/wf-lang/wf/internal/ast"
	"github.com/wf-lang/wf/internal/environment"
	"github.com/wf-lang/wf/internal/registry"
	"github.com/wf-lang/wf/internal/sink"
	"github.com/wf-lang/wf/internal/wferrors"
	"github.com/wf-lang/wf/internal/wflog"
)

// ExitSummary is what Run returns: counts for the two exec-related
// properties spec §8 tests for, plus the terminal error, if any.
type ExitSummary struct {
	ExecCount     int
	NonZeroCount  int
	TerminalError error
}

// Ok reports whether the run completed without a fatal (terminal) error.
func (s ExitSummary) Ok() bool {
	return s.TerminalError == nil
}

// Evaluator ties together a Registry, an Execution Sink and a Logger to
// run one command path per Run call.
type Evaluator struct {
	Registry   *registry.Registry
	Sink       sink.Sink
	Logger     wflog.Logger
	ProcessEnv map[string]string
	Ctx        context.Context
}

// New creates an Evaluator. A nil logger discards all events; a nil
// context defaults to context.Background() at Run time.
func New(reg *registry.Registry, sk sink.Sink, logger wflog.Logger, processEnv map[string]string) *Evaluator {
	if logger == nil {
		logger = discard{}
	}
	return &Evaluator{Registry: reg, Sink: sk, Logger: logger, ProcessEnv: processEnv}
}

type discard struct{}

func (discard) Log(wflog.Event) {}

// Run resolves path in the registry and evaluates it with args bound
// positionally to its declared parameters.
func (e *Evaluator) Run(path []string, args []string) ExitSummary {
	ctx := e.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	r := &run{eval: e, ctx: ctx, running: map[string]bool{}}

	cmd, err := e.Registry.Resolve(path)
	if err != nil {
		r.logError(err)
		return ExitSummary{TerminalError: err}
	}

	env := environment.New(e.ProcessEnv)
	parentPath := path[:len(path)-1]
	pathKey := joinPath(path)
	if err := r.execCommand(cmd, args, env, pathKey, []string{pathKey}, parentPath); err != nil {
		r.logError(err)
		r.summary.TerminalError = err
	}
	return r.summary
}

// joinPath renders a command path the same way spec §4.C names commands in
// diagnostics: dot-separated segments, "" for the (never resolvable) root.
func joinPath(segs []string) string {
	return strings.Join(segs, ".")
}

// run carries the mutable state of a single top-level Run call: the
// activation stack for cycle detection and the running tally that becomes
// the ExitSummary.
type run struct {
	eval    *Evaluator
	ctx     context.Context
	running map[string]bool
	summary ExitSummary
}

func (r *run) logError(err error) {
	if werr, ok := err.(*wferrors.Error); ok {
		r.eval.Logger.Log(wflog.Event{Kind: wflog.EventError, ErrKind: werr.Kind, Detail: werr.Error()})
		return
	}
	r.eval.Logger.Log(wflog.Event{Kind: wflog.EventError, ErrKind: wferrors.KindExecFailed, Detail: err.Error()})
}

func (r *run) warn(detail string) {
	r.eval.Logger.Log(wflog.Event{Kind: wflog.EventError, Detail: detail, Warning: true})
}

// execCommand implements the evaluator procedure from spec §4.E: cycle
// check, scope push, parameter binding, dependencies before the body,
// body walk, scope pop guaranteed on every exit path. parentPath is the
// path to the namespace cmd itself lives in (empty for a top-level
// command); it is what a Depends inside cmd's body resolves names against.
func (r *run) execCommand(cmd *ast.Command, args []string, env *environment.Env, pathKey string, activation []string, parentPath []string) error {
	if r.running[pathKey] {
		return wferrors.DependencyCycle(activation)
	}
	r.running[pathKey] = true
	defer delete(r.running, pathKey)

	env.PushScope(environment.CommandKind)
	defer env.PopScope()

	r.bindParams(cmd, args, env)

	// hoisted marks the Depends statements sitting directly in cmd's own
	// body: those run here, ahead of the body walk, per spec §4.E step 3.
	// A Depends nested inside an if/for branch is a different node and is
	// executed normally when the body walk reaches it.
	hoisted := map[*ast.Depends]bool{}
	for _, stmt := range cmd.Body.Statements {
		dep, ok := stmt.(*ast.Depends)
		if !ok {
			continue
		}
		hoisted[dep] = true
		if err := r.runDependencies(dep, activation, parentPath); err != nil {
			return err
		}
	}

	return r.execBody(cmd.Body, env, hoisted, activation, parentPath)
}

// runDependencies resolves each name in dep against parentPath - the
// namespace enclosing the command that declared the Depends - not the
// global registry root, so a nested command can depend on a sibling
// defined alongside it (spec §4.E step 3, §8 scenario 5).
func (r *run) runDependencies(dep *ast.Depends, activation []string, parentPath []string) error {
	for _, name := range dep.Names {
		r.eval.Logger.Log(wflog.Event{Kind: wflog.EventDepends, Dependency: name})
		depCmd, err := r.eval.Registry.ResolveSibling(parentPath, name)
		if err != nil {
			return err
		}
		// Dependencies run under a fresh top-level environment derived
		// from the outermost (process-env) scope, not the caller's
		// scope: they are not parameterized and do not see local
		// bindings.
		depEnv := environment.New(r.eval.ProcessEnv)
		childPathKey := joinPath(append(append([]string{}, parentPath...), name))
		childActivation := append(append([]string{}, activation...), childPathKey)
		if err := r.execCommand(depCmd, nil, depEnv, childPathKey, childActivation, parentPath); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) bindParams(cmd *ast.Command, args []string, env *environment.Env) {
	for i, name := range cmd.Params {
		val := ""
		if i < len(args) {
			val = args[i]
		}
		env.Bind(name, val)
		r.eval.Logger.Log(wflog.Event{Kind: wflog.EventParam, Name: name, Value: val})
	}
	if len(args) > len(cmd.Params) {
		r.warn(fmt.Sprintf("command %q takes %d parameter(s), got %d extra argument(s) ignored",
			cmd.Name, len(cmd.Params), len(args)-len(cmd.Params)))
	}
}

func (r *run) execBody(body ast.Body, env *environment.Env, hoisted map[*ast.Depends]bool, activation []string, parentPath []string) error {
	for _, stmt := range body.Statements {
		if err := r.execStatement(stmt, env, hoisted, activation, parentPath); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) execStatement(stmt ast.Statement, env *environment.Env, hoisted map[*ast.Depends]bool, activation []string, parentPath []string) error {
	switch s := stmt.(type) {
	case *ast.Let:
		val := r.evalExpr(s.Value, env)
		env.Bind(s.Name, val)
		r.eval.Logger.Log(wflog.Event{Kind: wflog.EventSet, Name: s.Name, Value: val})
		return nil

	case *ast.Exec:
		return r.execExec(s, env)

	case *ast.Depends:
		if hoisted[s] {
			return nil // already run ahead of the body per spec §4.E
		}
		return r.runDependencies(s, activation, parentPath)

	case *ast.If:
		if r.evalCondition(s.Cond, env) {
			return r.execBody(s.Then, env, hoisted, activation, parentPath)
		}
		if s.Else != nil {
			return r.execBody(*s.Else, env, hoisted, activation, parentPath)
		}
		return nil

	case *ast.For:
		for _, item := range s.Items {
			val := r.evalExpr(item, env)
			env.PushScope(environment.LoopKind)
			env.BindLoopVar(s.Var, val)
			err := r.execBody(s.Body, env, hoisted, activation, parentPath)
			env.PopScope()
			if err != nil {
				return err
			}
		}
		return nil

	case *ast.NestedCommand:
		return nil // definition, not an action - already indexed by the registry

	default:
		return wferrors.Newf(wferrors.KindParseError, "unhandled statement type %T", stmt)
	}
}

func (r *run) execExec(s *ast.Exec, env *environment.Env) error {
	text := env.Interpolate(s.RawText, r.unboundHandler())
	r.eval.Logger.Log(wflog.Event{Kind: wflog.EventExec, Text: text})
	r.summary.ExecCount++

	result, err := r.eval.Sink.Submit(r.ctx, text)
	if err != nil {
		// The sink itself failed to run (couldn't spawn a shell at all).
		// Still non-fatal to the evaluator per spec §7: exec failures
		// never abort the enclosing run.
		r.summary.NonZeroCount++
		r.logError(wferrors.Wrap(wferrors.KindExecFailed, "exec failed to run", err).With("text", text))
		return nil
	}
	if result.ExitCode != 0 {
		r.summary.NonZeroCount++
		r.logError(wferrors.Newf(wferrors.KindExecFailed, "exit code %d", result.ExitCode).
			With("text", text).With("exit_code", result.ExitCode))
	}
	return nil
}

func (r *run) unboundHandler() environment.UnboundHandler {
	return func(name string) {
		r.eval.Logger.Log(wflog.Event{
			Kind: wflog.EventError, ErrKind: wferrors.KindUnboundVariable,
			Detail: "unbound variable $" + name, Warning: true,
		})
	}
}

func (r *run) evalExpr(expr ast.Expression, env *environment.Env) string {
	switch e := expr.(type) {
	case *ast.String:
		return env.Interpolate(e.Value, r.unboundHandler())
	case *ast.Variable:
		v, ok := env.Lookup(e.Name)
		if !ok {
			r.unboundHandler()(e.Name)
		}
		return v
	default:
		return ""
	}
}

func (r *run) evalCondition(c ast.Condition, env *environment.Env) bool {
	left := r.evalExpr(c.Left, env)
	right := r.evalExpr(c.Right, env)
	switch c.Op {
	case ast.OpEq:
		return left == right
	case ast.OpNe:
		return left != right
	case ast.OpLt:
		return left < right
	case ast.OpGt:
		return left > right
	default:
		return false
	}
}
