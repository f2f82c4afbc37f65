// Package parser implements a hand-written recursive-descent parser that
// lowers wf source text directly into the tagged ast.Script defined in
// package ast. There is no separate generic parse-tree stage: each
// production builds its ast node directly, in the manner of a small
// LL(1) descent over a single buffered token, the same shape used by this
// toolchain's lexer (readChar/peekChar over one buffered rune).
package parser

import (
	"fmt"
	"strings"

	"github.com/wf-lang/wf/internal/ast"
	"github.com/wf-lang/wf/internal/lexer"
	"github.com/wf-lang/wf/internal/token"
	"github.com/wf-lang/wf/internal/wferrors"
)

type parser struct {
	lex *lexer.Lexer
	cur token.Token
	err error // first lexical error encountered by advance, if any
}

// Parse parses source text into a Script, or returns a *wferrors.Error of
// kind ParseError (lexical or grammar), MalformedCondition (unsupported
// comparison operator) or DuplicateSibling (semantic) on the first problem
// encountered.
func Parse(src string) (*ast.Script, error) {
	p := &parser{lex: lexer.New(src)}
	p.advance()
	if p.err != nil {
		return nil, p.err
	}

	script := &ast.Script{}
	seen := map[string]bool{}
	for p.cur.Type != token.EOF {
		doc := p.consumeDoc()
		if p.cur.Type == token.SEMI {
			p.advance()
			continue
		}
		cmd, err := p.parseCommand(doc)
		if err != nil {
			return nil, err
		}
		if seen[cmd.Name] {
			return nil, dupSibling(cmd.Name, cmd.Pos)
		}
		seen[cmd.Name] = true
		script.Commands = append(script.Commands, cmd)
	}
	return script, nil
}

func dupSibling(name string, pos token.Position) *wferrors.Error {
	return wferrors.Newf(wferrors.KindDuplicateSibling, "duplicate command %q at %s", name, pos).
		With("name", name)
}

func (p *parser) advance() {
	if p.err != nil {
		return
	}
	tok, err := p.lex.NextToken()
	if err != nil {
		p.err = toParseError(err)
		return
	}
	p.cur = tok
}

func toParseError(err error) *wferrors.Error {
	if lexErr, ok := err.(*lexer.Error); ok {
		return wferrors.Wrap(wferrors.KindParseError, lexErr.Error(), err).
			With("line", lexErr.Pos.Line).
			With("column", lexErr.Pos.Column)
	}
	return wferrors.Wrap(wferrors.KindParseError, err.Error(), err)
}

func (p *parser) fail(format string, args ...any) *wferrors.Error {
	msg := fmt.Sprintf(format, args...)
	return wferrors.Newf(wferrors.KindParseError, "%s at %s (found %s)", msg, p.cur.Start, p.cur).
		With("line", p.cur.Start.Line).
		With("column", p.cur.Start.Column)
}

func (p *parser) expect(t token.Type) (token.Token, error) {
	if p.err != nil {
		return token.Token{}, p.err
	}
	if p.cur.Type != t {
		return token.Token{}, p.fail("expected %s", t)
	}
	tok := p.cur
	p.advance()
	return tok, p.err
}

// consumeDoc consumes a leading DOC token, if present, and returns its text.
func (p *parser) consumeDoc() string {
	if p.cur.Type != token.DOC {
		return ""
	}
	text := p.cur.Value
	p.advance()
	return text
}

// command := doc? ident params? '{' stmt* '}'
func (p *parser) parseCommand(doc string) (*ast.Command, error) {
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	cmd := &ast.Command{Name: nameTok.Value, Doc: doc, Pos: nameTok.Start}

	if p.cur.Type == token.LPAREN {
		params, err := p.parseParams()
		if err != nil {
			return nil, err
		}
		cmd.Params = params
	}

	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	body, err := p.parseStatements(token.RBRACE)
	if err != nil {
		return nil, err
	}
	cmd.Body = body
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return cmd, nil
}

// params := '(' ident (',' ident)* ')'
func (p *parser) parseParams() ([]string, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var names []string
	if p.cur.Type != token.RPAREN {
		for {
			tok, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			names = append(names, tok.Value)
			if p.cur.Type != token.COMMA {
				break
			}
			p.advance()
			if p.err != nil {
				return nil, p.err
			}
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return names, nil
}

// parseStatements parses stmt* until it sees `until` or EOF, enforcing
// sibling-name uniqueness among the NestedCommand statements it collects.
func (p *parser) parseStatements(until token.Type) (ast.Body, error) {
	var body ast.Body
	seen := map[string]bool{}
	for p.cur.Type != until && p.cur.Type != token.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return ast.Body{}, err
		}
		if stmt == nil {
			continue // bare ';'
		}
		if nc, ok := stmt.(*ast.NestedCommand); ok {
			if seen[nc.Command.Name] {
				return ast.Body{}, dupSibling(nc.Command.Name, nc.Command.Pos)
			}
			seen[nc.Command.Name] = true
		}
		body.Statements = append(body.Statements, stmt)
	}
	if p.cur.Type == token.EOF && until != token.EOF {
		return ast.Body{}, p.fail("unexpected end of input, expected %s", until)
	}
	return body, nil
}

// stmt := let | exec | depends | if | for | command | ';'
func (p *parser) parseStatement() (ast.Statement, error) {
	switch p.cur.Type {
	case token.SEMI:
		p.advance()
		return nil, p.err
	case token.LET:
		return p.parseLet()
	case token.EXEC:
		return p.parseExec()
	case token.DEPENDS:
		return p.parseDepends()
	case token.IF:
		return p.parseIf()
	case token.FOR:
		return p.parseFor()
	case token.DOC:
		doc := p.consumeDoc()
		cmd, err := p.parseCommand(doc)
		if err != nil {
			return nil, err
		}
		return ast.Nested(cmd), nil
	case token.IDENT:
		cmd, err := p.parseCommand("")
		if err != nil {
			return nil, err
		}
		return ast.Nested(cmd), nil
	default:
		return nil, p.fail("expected a statement")
	}
}

// let := 'let' ident '=' expr ';'
func (p *parser) parseLet() (ast.Statement, error) {
	pos := p.cur.Start
	p.advance()
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	return &ast.Let{Name: nameTok.Value, Value: value, Pos: pos}, nil
}

// exec := 'exec' '(' raw_shell ')' ';'?
func (p *parser) parseExec() (ast.Statement, error) {
	pos := p.cur.Start
	p.advance() // consume 'exec', cur is now whatever follows - expected '('
	if p.err != nil {
		return nil, p.err
	}
	if p.cur.Type != token.LPAREN {
		return nil, p.fail("expected ( after exec")
	}
	raw, err := p.lex.ScanRawShell()
	if err != nil {
		return nil, toParseError(err)
	}
	p.advance() // consume the ')' the lexer is now sitting on
	if p.err != nil {
		return nil, p.err
	}
	if p.cur.Type != token.RPAREN {
		return nil, p.fail("expected ) to close exec")
	}
	p.advance()
	if p.err != nil {
		return nil, p.err
	}
	if p.cur.Type == token.SEMI {
		p.advance()
		if p.err != nil {
			return nil, p.err
		}
	}
	return &ast.Exec{RawText: raw, Pos: pos}, nil
}

// depends := 'depends' '(' ident (',' ident)* ')' ';'?
func (p *parser) parseDepends() (ast.Statement, error) {
	pos := p.cur.Start
	p.advance()
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var names []string
	for {
		tok, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		names = append(names, tok.Value)
		if p.cur.Type != token.COMMA {
			break
		}
		p.advance()
		if p.err != nil {
			return nil, p.err
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if p.cur.Type == token.SEMI {
		p.advance()
		if p.err != nil {
			return nil, p.err
		}
	}
	return &ast.Depends{Names: names, Pos: pos}, nil
}

// if := 'if' cond '{' stmt* '}' ('else' '{' stmt* '}')?
func (p *parser) parseIf() (ast.Statement, error) {
	pos := p.cur.Start
	p.advance()
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	thenBody, err := p.parseStatements(token.RBRACE)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}

	stmt := &ast.If{Cond: cond, Then: thenBody, Pos: pos}
	if p.cur.Type == token.ELSE {
		p.advance()
		if p.err != nil {
			return nil, p.err
		}
		if _, err := p.expect(token.LBRACE); err != nil {
			return nil, err
		}
		elseBody, err := p.parseStatements(token.RBRACE)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBRACE); err != nil {
			return nil, err
		}
		stmt.Else = &elseBody
	}
	return stmt, nil
}

// for := 'for' ident 'in' '[' expr (',' expr)* ']' '{' stmt* '}'
func (p *parser) parseFor() (ast.Statement, error) {
	pos := p.cur.Start
	p.advance()
	varTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.IN); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBRACKET); err != nil {
		return nil, err
	}
	var items []ast.Expression
	if p.cur.Type != token.RBRACKET {
		for {
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			items = append(items, expr)
			if p.cur.Type != token.COMMA {
				break
			}
			p.advance()
			if p.err != nil {
				return nil, p.err
			}
		}
	}
	if _, err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	body, err := p.parseStatements(token.RBRACE)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return &ast.For{Var: varTok.Value, Items: items, Body: body, Pos: pos}, nil
}

// cond := expr cmp_op expr
func (p *parser) parseCondition() (ast.Condition, error) {
	left, err := p.parseExpr()
	if err != nil {
		return ast.Condition{}, err
	}
	op, err := p.parseCompareOp()
	if err != nil {
		return ast.Condition{}, err
	}
	right, err := p.parseExpr()
	if err != nil {
		return ast.Condition{}, err
	}
	return ast.Condition{Left: left, Op: op, Right: right}, nil
}

func (p *parser) parseCompareOp() (ast.CompareOp, error) {
	switch p.cur.Type {
	case token.EQ:
		p.advance()
		return ast.OpEq, p.err
	case token.NE:
		p.advance()
		return ast.OpNe, p.err
	case token.LT:
		p.advance()
		return ast.OpLt, p.err
	case token.GT:
		p.advance()
		return ast.OpGt, p.err
	default:
		return 0, wferrors.Newf(wferrors.KindMalformedCondition,
			"unsupported comparison operator %q at %s", p.cur.Raw, p.cur.Start)
	}
}

// expr := string | var
func (p *parser) parseExpr() (ast.Expression, error) {
	switch p.cur.Type {
	case token.STRING:
		e := &ast.String{Value: p.cur.Value, Pos: p.cur.Start}
		p.advance()
		return e, p.err
	case token.VARREF:
		e := &ast.Variable{Name: p.cur.Value, Pos: p.cur.Start}
		p.advance()
		return e, p.err
	default:
		return nil, p.fail("expected a string literal or $variable")
	}
}

// FormatPath renders a dotted command path for diagnostics.
func FormatPath(path []string) string {
	return strings.Join(path, ".")
}
