// Package ast defines the tagged abstract syntax tree produced by the
// parser: a Script of top-level Commands, each with a Body of Statements.
//
// Statements form a closed variant set (Let, Exec, Depends, If, For,
// NestedCommand) dispatched by a type switch rather than by virtual
// method calls on a class hierarchy - new statement kinds are meant to
// require a coordinated grammar and evaluator change.
package ast

import "github.com/wf-lang/wf/internal/token"

// Script is the root of the tree: an ordered sequence of top-level Commands.
type Script struct {
	Commands []*Command
}

// Command is a named, parameterizable, body-bearing declaration.
type Command struct {
	Name   string
	Params []string
	Doc    string // attached doc comment, empty if none
	Body   Body
	Pos    token.Position
}

// Body is the ordered statement list of a Command or control-flow branch.
type Body struct {
	Statements []Statement
}

// Statement is the closed set of statement kinds a Body may contain.
// Implementations are Let, Exec, Depends, If, For and NestedCommand.
type Statement interface {
	statementNode()
	Position() token.Position
}

// Let binds the result of evaluating Value to Name in the current scope.
type Let struct {
	Name  string
	Value Expression
	Pos   token.Position
}

func (*Let) statementNode()               {}
func (s *Let) Position() token.Position   { return s.Pos }

// Exec submits raw shell text (with embedded $name references) to the
// execution sink. Interpolation happens at evaluation time.
type Exec struct {
	RawText string
	Pos     token.Position
}

func (*Exec) statementNode()             {}
func (s *Exec) Position() token.Position { return s.Pos }

// Depends names commands to evaluate, in order, before the rest of the
// enclosing Body. Each runs under a fresh scope derived from the outermost
// environment, not the caller's local bindings.
type Depends struct {
	Names []string
	Pos   token.Position
}

func (*Depends) statementNode()             {}
func (s *Depends) Position() token.Position { return s.Pos }

// If evaluates Cond and executes Then or Else. Both branches share the
// enclosing scope - no new scope is pushed for the branch itself.
type If struct {
	Cond Condition
	Then Body
	Else *Body // nil if there was no else clause
	Pos  token.Position
}

func (*If) statementNode()             {}
func (s *If) Position() token.Position { return s.Pos }

// For binds Var to each Items element in turn, in a fresh scope, and
// executes Body once per iteration.
type For struct {
	Var   string
	Items []Expression
	Body  Body
	Pos   token.Position
}

func (*For) statementNode()             {}
func (s *For) Position() token.Position { return s.Pos }

// NestedCommand is a Command definition lexically inside another Body. It
// is a declaration, not an action: the evaluator skips it, since it was
// already indexed into the registry when the tree was built.
type NestedCommand struct {
	Command *Command
}

func (*NestedCommand) statementNode()             {}
func (s *NestedCommand) Position() token.Position { return s.Command.Pos }

// Expression is a String literal or a Variable reference, resolved to a
// string value at evaluation time.
type Expression interface {
	expressionNode()
	Position() token.Position
}

// String is a literal string expression, escapes already resolved by the
// lexer but interpolation splice points ($name) still live and resolved
// against the environment at evaluation time.
type String struct {
	Value string
	Pos   token.Position
}

func (*String) expressionNode()           {}
func (e *String) Position() token.Position { return e.Pos }

// Variable is an identifier resolved against the environment at the
// moment of use.
type Variable struct {
	Name string
	Pos  token.Position
}

func (*Variable) expressionNode()            {}
func (e *Variable) Position() token.Position { return e.Pos }

// CompareOp is one of the four supported comparison operators.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNe
	OpLt
	OpGt
)

func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	default:
		return "?"
	}
}

// Condition is a binary comparison between two string-valued Expressions.
type Condition struct {
	Left  Expression
	Op    CompareOp
	Right Expression
}
