// Package parser implements a Pratt (top-down operator precedence) parser
// for L's textual surface (spec.md §6).
package parser

import (
	"fmt"
	"strconv"

	"github.com/wordscript/lword/internal/ast"
	"github.com/wordscript/lword/internal/diag"
	"github.com/wordscript/lword/internal/lexer"
	"github.com/wordscript/lword/internal/token"
)

// Operator precedence levels, lowest to highest.
const (
	_ int = iota
	LOWEST
	ELSE_PREC // "else" fallback on an option-producing expression
	LOGIC     // and or xor
	EQUALS    // == !=
	COMPARE   // > < >= <=
	SUM       // + -
	PRODUCT   // * / %
	POWER     // ^
	PREFIX    // not, $ (unary)
	POSTFIX   // ? !
)

var precedences = map[token.Kind]int{
	token.ELSE:     ELSE_PREC,
	token.AND:      LOGIC,
	token.OR:       LOGIC,
	token.XOR:      LOGIC,
	token.EQ:       EQUALS,
	token.NEQ:      EQUALS,
	token.LT:       COMPARE,
	token.GT:       COMPARE,
	token.LTE:      COMPARE,
	token.GTE:      COMPARE,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.STAR:     PRODUCT,
	token.SLASH:    PRODUCT,
	token.PERCENT:  PRODUCT,
	token.CARET:    POWER,
	token.QUESTION: POSTFIX,
	token.BANG:     POSTFIX,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser is a hand-rolled recursive-descent/Pratt parser over a Lexer's
// token stream. It collects diagnostics rather than stopping at the first
// malformed production, matching the REPL's need to report every error on
// a line at once.
type Parser struct {
	l      *lexer.Lexer
	source string
	file   string

	curToken  token.Token
	peekToken token.Token

	errors diag.List

	prefixParseFns map[token.Kind]prefixParseFn
	infixParseFns  map[token.Kind]infixParseFn
}

// New creates a Parser reading from l. source and file are carried through
// to diagnostics for source-line rendering.
func New(l *lexer.Lexer, source, file string) *Parser {
	p := &Parser{l: l, source: source, file: file}

	p.prefixParseFns = map[token.Kind]prefixParseFn{
		token.IDENT:    p.parseIdentifier,
		token.INT:      p.parseIntLiteral,
		token.FLOAT:    p.parseFloatLiteral,
		token.STRING:   p.parseStrLiteral,
		token.CHAR:     p.parseCharLiteral,
		token.TRUE:     p.parseBoolLiteral,
		token.FALSE:    p.parseBoolLiteral,
		token.NO:       p.parseNoLiteral,
		token.LPAREN:   p.parseGrouping,
		token.LBRACE:   p.parseScope,
		token.LBRACKET: p.parseTableLiteral,
		token.IF:       p.parseIf,
		token.NOT:      p.parsePrefix,
		token.DOLLAR:   p.parsePrint,
		token.UNDERSCORE: p.parseDefaultKey,
	}

	p.infixParseFns = map[token.Kind]infixParseFn{
		token.PLUS:     p.parseBinary,
		token.MINUS:    p.parseBinary,
		token.STAR:     p.parseBinary,
		token.SLASH:    p.parseBinary,
		token.PERCENT:  p.parseBinary,
		token.CARET:    p.parseBinary,
		token.AND:      p.parseBinary,
		token.OR:       p.parseBinary,
		token.XOR:      p.parseBinary,
		token.EQ:       p.parseBinary,
		token.NEQ:      p.parseBinary,
		token.LT:       p.parseBinary,
		token.GT:       p.parseBinary,
		token.LTE:      p.parseBinary,
		token.GTE:      p.parseBinary,
		token.QUESTION: p.parseOptionWrap,
		token.BANG:     p.parseOptionUnwrap,
		token.ELSE:     p.parseElse,
	}

	p.next()
	p.next()
	return p
}

// Errors returns every diagnostic collected during parsing.
func (p *Parser) Errors() diag.List { return p.errors }

func (p *Parser) next() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curIs(k token.Kind) bool  { return p.curToken.Kind == k }
func (p *Parser) peekIs(k token.Kind) bool { return p.peekToken.Kind == k }

func (p *Parser) expectPeek(k token.Kind) bool {
	if p.peekIs(k) {
		p.next()
		return true
	}
	p.errorf(p.peekToken.Pos, "expected next token to be %s, got %s instead", k, p.peekToken.Kind)
	return false
}

func (p *Parser) errorf(pos token.Position, format string, args ...interface{}) {
	p.errors = append(p.errors, diag.NewAt(diag.Parse, pos, p.source, p.file, fmt.Sprintf(format, args...)))
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Kind]; ok {
		return pr
	}
	return LOWEST
}

// ParseProgram parses `statements ::= { statement ";" }` to EOF. A final
// statement with no trailing ";" (as the REPL's line-buffered input often
// has) is accepted as the program's trailing result, the same way a Scope
// accepts a trailing expression.
func (p *Parser) ParseProgram() *ast.Program {
	stmts, result := p.parseStatementList(token.EOF)
	prog := &ast.Program{Statements: stmts}
	if result != nil {
		prog.Statements = append(prog.Statements, &ast.ExpressionStatement{Expression: result})
	}
	return prog
}

// parseStatementList parses `{ statement ";" } [ expression ]` up to (but
// not consuming) terminator. It returns the semicolon-terminated statements
// and, if the list ends in a bare expression with no trailing ";", that
// expression as the list's result.
//
// cur ends up positioned at terminator (or at EOF on a malformed list).
func (p *Parser) parseStatementList(terminator token.Kind) ([]ast.Statement, ast.Expression) {
	var stmts []ast.Statement
	for !p.curIs(terminator) && !p.curIs(token.EOF) {
		switch {
		case p.curIs(token.VAR):
			tok := p.curToken
			stmt := p.parseVarDeclBody(tok)
			if stmt == nil {
				p.next()
				continue
			}
			if !p.expectPeek(token.SEMICOLON) {
				return stmts, nil
			}
			p.next()
			stmts = append(stmts, stmt)
		case p.curIs(token.IDENT) && p.peekIs(token.ASSIGN):
			stmt := p.parseAssignment()
			if stmt == nil {
				p.next()
				continue
			}
			if !p.expectPeek(token.SEMICOLON) {
				return stmts, nil
			}
			p.next()
			stmts = append(stmts, stmt)
		default:
			tok := p.curToken
			expr := p.parseExpression(LOWEST)
			if expr == nil {
				p.next()
				continue
			}
			if p.peekIs(token.SEMICOLON) {
				p.next() // cur = ";"
				p.next() // cur = token after ";"
				stmts = append(stmts, &ast.ExpressionStatement{Token: tok, Expression: expr})
				continue
			}
			p.next() // advance past the trailing expression's last token
			return stmts, expr
		}
	}
	return stmts, nil
}

// parseVarDeclBody parses `"var" ident [":" type] "=" expression`; tok is
// the already-consumed "var" token.
func (p *Parser) parseVarDeclBody(tok token.Token) ast.Statement {
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	var typeName string
	if p.peekIs(token.COLON) {
		p.next()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		typeName = p.curToken.Literal
	}

	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.next()
	value := p.parseExpression(LOWEST)
	if value == nil {
		return nil
	}
	return &ast.VarDecl{Token: tok, Name: name, Type: typeName, Value: value}
}

// parseAssignment parses the supplement `ident "=" expression`.
func (p *Parser) parseAssignment() ast.Statement {
	name := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	tok := p.curToken
	p.next() // consume ident, cur is now ASSIGN
	p.next() // consume =, cur is now first token of value
	value := p.parseExpression(LOWEST)
	if value == nil {
		return nil
	}
	return &ast.Assignment{Token: tok, Name: name, Value: value}
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix, ok := p.prefixParseFns[p.curToken.Kind]
	if !ok {
		p.errorf(p.curToken.Pos, "no prefix parse function for %s", p.curToken.Kind)
		return nil
	}
	left := prefix()

	for !p.peekIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix, ok := p.infixParseFns[p.peekToken.Kind]
		if !ok {
			return left
		}
		p.next()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseIntLiteral() ast.Expression {
	tok := p.curToken
	v, err := strconv.ParseInt(tok.Literal, 10, 32)
	if err != nil {
		p.errorf(tok.Pos, "invalid integer literal %q", tok.Literal)
		return nil
	}
	return &ast.IntLiteral{Token: tok, Value: int32(v)}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	tok := p.curToken
	v, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil {
		p.errorf(tok.Pos, "invalid float literal %q", tok.Literal)
		return nil
	}
	return &ast.FloatLiteral{Token: tok, Value: v}
}

func (p *Parser) parseStrLiteral() ast.Expression {
	return &ast.StrLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseCharLiteral() ast.Expression {
	lit := p.curToken.Literal
	var r rune
	for _, c := range lit {
		r = c
		break
	}
	return &ast.CharLiteral{Token: p.curToken, Value: r}
}

func (p *Parser) parseBoolLiteral() ast.Expression {
	return &ast.BoolLiteral{Token: p.curToken, Value: p.curIs(token.TRUE)}
}

func (p *Parser) parseNoLiteral() ast.Expression {
	return &ast.NoLiteral{Token: p.curToken}
}

func (p *Parser) parseDefaultKey() ast.Expression {
	return &ast.DefaultKey{Token: p.curToken}
}

func (p *Parser) parseGrouping() ast.Expression {
	tok := p.curToken
	p.next()
	inner := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return &ast.Grouping{Token: tok, Inner: inner}
}

// parseScope parses `"{" { statement ";" } [ expression ] "}"`.
func (p *Parser) parseScope() ast.Expression {
	tok := p.curToken
	p.next()

	stmts, result := p.parseStatementList(token.RBRACE)
	if !p.curIs(token.RBRACE) {
		p.errorf(p.curToken.Pos, "expected %s to close scope, got %s", token.RBRACE, p.curToken.Kind)
	}
	return &ast.Scope{Token: tok, Statements: stmts, Result: result}
}

// parseIf parses `"if" expression expression ["else" expression]`. The
// branch is parsed at ELSE_PREC so that a trailing "else" is left for this
// function to consume directly, rather than being swallowed by the
// standalone `optionExpr "else" fallback` infix production (parseElse)
// that every other option-producing expression uses. A trailing else is
// desugared into an Else node wrapping this If, so the emitter has one
// implementation of the fallback jump pattern instead of two (ast.If doc
// comment).
func (p *Parser) parseIf() ast.Expression {
	tok := p.curToken
	p.next()
	cond := p.parseExpression(LOWEST)
	p.next()
	branch := p.parseExpression(ELSE_PREC)

	node := ast.Expression(&ast.If{Token: tok, Condition: cond, Branch: branch})
	if p.peekIs(token.ELSE) {
		elseTok := p.peekToken
		p.next()
		p.next()
		fallback := p.parseExpression(LOWEST)
		node = &ast.Else{Token: elseTok, Option: node, Fallback: fallback}
	}
	return node
}

// parseElse parses the standalone `optionExpr "else" fallback` production
// (spec.md §4.3's "Else" node kind), used by any option-producing
// expression — not only an `if` — e.g. `no else {3};` or `2? else {3};`.
func (p *Parser) parseElse(left ast.Expression) ast.Expression {
	tok := p.curToken
	p.next()
	fallback := p.parseExpression(ELSE_PREC)
	return &ast.Else{Token: tok, Option: left, Fallback: fallback}
}

func (p *Parser) parsePrefix() ast.Expression {
	tok := p.curToken
	p.next()
	operand := p.parseExpression(PREFIX)
	return &ast.UnaryExpr{Token: tok, Operator: tok.Literal, Operand: operand}
}

func (p *Parser) parsePrint() ast.Expression {
	tok := p.curToken
	p.next()
	inner := p.parseExpression(PREFIX)
	return &ast.Print{Token: tok, Inner: inner}
}

func (p *Parser) parseBinary(left ast.Expression) ast.Expression {
	tok := p.curToken
	precedence := p.peekPrecedenceOfCurrent()
	p.next()
	right := p.parseExpression(precedence)
	return &ast.BinaryExpr{Token: tok, Left: left, Operator: tok.Literal, Right: right}
}

func (p *Parser) peekPrecedenceOfCurrent() int {
	if pr, ok := precedences[p.curToken.Kind]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) parseOptionWrap(left ast.Expression) ast.Expression {
	return &ast.OptionWrap{Token: p.curToken, Inner: left}
}

func (p *Parser) parseOptionUnwrap(left ast.Expression) ast.Expression {
	return &ast.OptionUnwrap{Token: p.curToken, Inner: left}
}

// parseTableLiteral parses `"[" [ tablepair {"," tablepair} ] "]"`.
func (p *Parser) parseTableLiteral() ast.Expression {
	tok := p.curToken
	lit := &ast.TableLiteral{Token: tok}

	if p.peekIs(token.RBRACKET) {
		p.next()
		return lit
	}

	p.next()
	pair, ok := p.parseTablePair()
	if !ok {
		return lit
	}
	lit.Pairs = append(lit.Pairs, pair)

	for p.peekIs(token.COMMA) {
		p.next()
		p.next()
		pair, ok := p.parseTablePair()
		if !ok {
			break
		}
		lit.Pairs = append(lit.Pairs, pair)
	}

	if !p.expectPeek(token.RBRACKET) {
		return lit
	}
	return lit
}

func (p *Parser) parseTablePair() (ast.TablePair, bool) {
	var key ast.Expression
	if p.curIs(token.UNDERSCORE) {
		key = &ast.DefaultKey{Token: p.curToken}
	} else {
		key = p.parseExpression(LOWEST)
	}
	if !p.expectPeek(token.COLON) {
		return ast.TablePair{}, false
	}
	p.next()
	value := p.parseExpression(LOWEST)
	return ast.TablePair{Key: key, Value: value}, true
}
