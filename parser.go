// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import "fmt"

// parser is a recursive-descent parser over the token stream produced
// by lexer. Recoverable errors go to an ErrorCollector; parsing
// resumes by skipping the offending statement (spec §4.2, §5, §7).
type parser struct {
	file  string
	lex   *lexer
	tok   token
	queue []token // buffered lookahead tokens, strictly after tok
	errs  *ErrorCollector
}

// ParseModule parses one source file into a Module. Parser errors are
// recorded into errs and parsing continues past them; the caller
// decides whether to treat a non-empty collector as fatal.
func ParseModule(file, src string, errs *ErrorCollector) *Module {
	p := &parser{file: file, lex: newLexer(file, src), errs: errs}
	p.advance()
	return p.parseModule()
}

func (p *parser) advance() {
	if len(p.queue) > 0 {
		p.tok = p.queue[0]
		p.queue = p.queue[1:]
		return
	}
	p.tok = p.lex.next()
}

// peek returns the token n positions after the current one without
// consuming anything (peek(1) is the token advance() would produce).
func (p *parser) peek(n int) token {
	for len(p.queue) < n {
		p.queue = append(p.queue, p.lex.next())
	}
	return p.queue[n-1]
}

func (p *parser) peekNext() token {
	return p.peek(1)
}

func (p *parser) errorf(kind ErrorKind, pos Pos, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	p.errs.Add(NewCompileError(kind, pos.File, pos.Line, pos.Column, msg))
}

func (p *parser) isKeyword(text string) bool {
	return p.tok.kind == tokKeyword && p.tok.text == text
}

func (p *parser) expect(kind tokenKind, text string) bool {
	if p.tok.kind == kind && (text == "" || p.tok.text == text) {
		p.advance()
		return true
	}
	p.errorf(UnsupportedSyntax, p.tok.pos, "expected %q, got %q", text, p.tok.text)
	return false
}

// skipStatement consumes tokens until it passes a statement terminator
// or a block boundary, so parsing can resume after a malformed
// statement (spec §4.2 recovery contract).
func (p *parser) skipStatement() {
	depth := 0
	for p.tok.kind != tokEOF {
		switch p.tok.kind {
		case tokLBrace:
			depth++
		case tokRBrace:
			if depth == 0 {
				return
			}
			depth--
		case tokSemi:
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

func (p *parser) parseModule() *Module {
	m := &Module{File: p.file}
	for p.tok.kind != tokEOF {
		switch {
		case p.isKeyword("const"):
			if c := p.parseTopLevelConst(); c != nil {
				m.Consts = append(m.Consts, c)
			}
		case p.tok.kind == tokAt || p.isKeyword("class"):
			if c := p.parseClass(); c != nil {
				m.Classes = append(m.Classes, c)
			}
		default:
			p.errorf(UnsupportedSyntax, p.tok.pos, "unexpected top-level token %q", p.tok.text)
			p.skipStatement()
		}
	}
	return m
}

func (p *parser) parseTopLevelConst() *TopLevelConst {
	pos := p.tok.pos
	p.advance() // "const"
	typeName := p.parseTypeName()
	name := p.tok.text
	if !p.expect(tokIdent, "") {
		p.skipStatement()
		return nil
	}
	var value Expr
	if p.tok.kind == tokAssign {
		p.advance()
		value = p.parseExpr()
	}
	p.expect(tokSemi, ";")
	return &TopLevelConst{Pos: pos, Name: name, TypeName: typeName, Value: value}
}

func (p *parser) parseTypeName() string {
	name := p.tok.text
	if p.tok.kind != tokIdent && p.tok.kind != tokKeyword {
		p.errorf(UnsupportedSyntax, p.tok.pos, "expected a type name, got %q", p.tok.text)
		return "object"
	}
	p.advance()
	for p.tok.kind == tokLBracket {
		p.advance()
		p.expect(tokRBracket, "]")
		name += "[]"
	}
	return name
}

func (p *parser) parseDecorators() []Decorator {
	var decs []Decorator
	for p.tok.kind == tokAt {
		pos := p.tok.pos
		p.advance()
		text := p.tok.text
		p.advance()
		decs = append(decs, Decorator{Name: pos, Text: text})
	}
	return decs
}

func (p *parser) parseClass() *ClassDecl {
	decs := p.parseDecorators()
	if !p.isKeyword("class") {
		p.errorf(UnsupportedSyntax, p.tok.pos, "expected 'class', got %q", p.tok.text)
		p.skipStatement()
		return nil
	}
	pos := p.tok.pos
	p.advance()
	name := p.tok.text
	p.expect(tokIdent, "")

	class := &ClassDecl{Pos: pos, Name: name, File: p.file, Decorators: decs}

	if p.isKeyword("extends") {
		p.advance()
		class.BaseClass = p.tok.text
		p.expect(tokIdent, "")
	}
	if p.isKeyword("implements") {
		p.advance()
		class.Interfaces = append(class.Interfaces, p.tok.text)
		p.expect(tokIdent, "")
		for p.tok.kind == tokComma {
			p.advance()
			class.Interfaces = append(class.Interfaces, p.tok.text)
			p.expect(tokIdent, "")
		}
	}

	if !p.expect(tokLBrace, "{") {
		return class
	}
	for p.tok.kind != tokRBrace && p.tok.kind != tokEOF {
		p.parseClassMember(class)
	}
	p.expect(tokRBrace, "}")
	return class
}

func (p *parser) consumeModifiers() (isStatic bool) {
	for p.isKeyword("public") || p.isKeyword("private") || p.isKeyword("static") {
		if p.tok.text == "static" {
			isStatic = true
		}
		p.advance()
	}
	return
}

func (p *parser) parseClassMember(class *ClassDecl) {
	startPos := p.tok.pos
	isStatic := p.consumeModifiers()

	// Constructor: identifier matching the class name, followed by "(".
	if p.tok.kind == tokIdent && p.tok.text == class.Name && p.peekNext().kind == tokLParen {
		p.advance()
		params := p.parseParams()
		body := p.parseBlock()
		class.Ctor = &ConstructorDecl{Pos: startPos, Params: params, Body: body}
		return
	}

	typeName := p.parseTypeName()
	name := p.tok.text
	if !p.expect(tokIdent, "") {
		p.skipStatement()
		return
	}

	if p.tok.kind == tokLParen {
		params := p.parseParams()
		body := p.parseBlock()
		class.Methods = append(class.Methods, MethodDecl{
			Pos: startPos, Name: name, Params: params,
			ReturnType: typeName, IsStatic: isStatic, Body: body,
		})
		return
	}

	class.Properties = append(class.Properties, PropertyDecl{
		Pos: startPos, Name: name, TypeName: typeName, Exported: true,
	})
	p.expect(tokSemi, ";")
}

func (p *parser) parseParams() []Param {
	p.expect(tokLParen, "(")
	var params []Param
	for p.tok.kind != tokRParen && p.tok.kind != tokEOF {
		t := p.parseTypeName()
		n := p.tok.text
		p.expect(tokIdent, "")
		params = append(params, Param{Name: n, TypeName: t})
		if p.tok.kind == tokComma {
			p.advance()
		}
	}
	p.expect(tokRParen, ")")
	return params
}

func (p *parser) parseBlock() []Stmt {
	if !p.expect(tokLBrace, "{") {
		return nil
	}
	var stmts []Stmt
	for p.tok.kind != tokRBrace && p.tok.kind != tokEOF {
		if s := p.parseStmt(); s != nil {
			stmts = append(stmts, s)
		}
	}
	p.expect(tokRBrace, "}")
	return stmts
}

func (p *parser) parseStmt() Stmt {
	pos := p.tok.pos
	switch {
	case p.isKeyword("var"):
		p.advance()
		typeName := ""
		// `var x = expr;` (type inferred) or `var T x = expr;`
		name := p.tok.text
		if p.peekNext().kind == tokIdent {
			typeName = p.parseTypeName()
			name = p.tok.text
		}
		if !p.expect(tokIdent, "") {
			p.skipStatement()
			return nil
		}
		var init Expr
		if p.tok.kind == tokAssign {
			p.advance()
			init = p.parseExpr()
		}
		p.expect(tokSemi, ";")
		return &VarDeclStmt{Pos: pos, Name: name, TypeName: typeName, Init: init}

	case p.isKeyword("if"):
		return p.parseIf()

	case p.isKeyword("while"):
		p.advance()
		p.expect(tokLParen, "(")
		cond := p.parseExpr()
		p.expect(tokRParen, ")")
		body := p.parseBlock()
		return &WhileStmt{Pos: pos, Cond: cond, Body: body}

	case p.isKeyword("for"):
		p.advance()
		p.expect(tokLParen, "(")
		var init Stmt
		if p.tok.kind != tokSemi {
			init = p.parseSimpleStmt()
		}
		p.expect(tokSemi, ";")
		var cond Expr
		if p.tok.kind != tokSemi {
			cond = p.parseExpr()
		}
		p.expect(tokSemi, ";")
		var post Stmt
		if p.tok.kind != tokRParen {
			post = p.parseSimpleStmt()
		}
		p.expect(tokRParen, ")")
		body := p.parseBlock()
		return &ForStmt{Pos: pos, Init: init, Cond: cond, Post: post, Body: body}

	case p.isKeyword("return"):
		p.advance()
		var val Expr
		if p.tok.kind != tokSemi {
			val = p.parseExpr()
		}
		p.expect(tokSemi, ";")
		return &ReturnStmt{Pos: pos, Value: val}

	case p.tok.kind == tokRBrace || p.tok.kind == tokEOF:
		return nil

	default:
		s := p.parseSimpleStmt()
		p.expect(tokSemi, ";")
		return s
	}
}

func (p *parser) parseIf() Stmt {
	pos := p.tok.pos
	p.advance()
	p.expect(tokLParen, "(")
	cond := p.parseExpr()
	p.expect(tokRParen, ")")
	then := p.parseBlock()
	var els []Stmt
	if p.isKeyword("else") {
		p.advance()
		if p.isKeyword("if") {
			els = []Stmt{p.parseIf()}
		} else {
			els = p.parseBlock()
		}
	}
	return &IfStmt{Pos: pos, Cond: cond, Then: then, Else: els}
}

// parseSimpleStmt parses an assignment or a bare expression statement,
// the two forms legal in a for-loop's init/post clauses.
func (p *parser) parseSimpleStmt() Stmt {
	pos := p.tok.pos
	x := p.parseExpr()
	if p.tok.kind == tokAssign {
		p.advance()
		value := p.parseExpr()
		return &AssignStmt{Pos: pos, Target: x, Value: value}
	}
	return &ExprStmt{Pos: pos, X: x}
}

// ---- Expressions: precedence-climbing ----

var binPrec = map[string]int{
	"||": 1, "&&": 2,
	"==": 3, "!=": 3, "<": 3, "<=": 3, ">": 3, ">=": 3,
	"+": 4, "-": 4,
	"*": 5, "/": 5, "%": 5,
}

func (p *parser) parseExpr() Expr {
	return p.parseBinary(1)
}

func (p *parser) parseBinary(minPrec int) Expr {
	left := p.parseUnary()
	for p.tok.kind == tokOp {
		prec, ok := binPrec[p.tok.text]
		if !ok || prec < minPrec {
			break
		}
		op := p.tok.text
		pos := p.tok.pos
		p.advance()
		right := p.parseBinary(prec + 1)
		left = &BinaryExpr{Pos: pos, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseUnary() Expr {
	if p.tok.kind == tokOp && (p.tok.text == "-" || p.tok.text == "!") {
		pos := p.tok.pos
		op := p.tok.text
		p.advance()
		return &UnaryExpr{Pos: pos, Op: op, Operand: p.parseUnary()}
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *parser) parsePostfix(x Expr) Expr {
	for {
		switch p.tok.kind {
		case tokDot:
			pos := p.tok.pos
			p.advance()
			name := p.tok.text
			p.expect(tokIdent, "")
			if p.tok.kind == tokLParen {
				args := p.parseArgs()
				x = &MethodCallExpr{Pos: pos, Object: x, Method: name, Args: args}
			} else {
				x = &PropertyAccessExpr{Pos: pos, Object: x, Property: name}
			}
		case tokLBracket:
			pos := p.tok.pos
			p.advance()
			idx := p.parseExpr()
			p.expect(tokRBracket, "]")
			x = &IndexExpr{Pos: pos, Array: x, Index: idx}
		default:
			return x
		}
	}
}

func (p *parser) parseArgs() []Expr {
	p.expect(tokLParen, "(")
	var args []Expr
	for p.tok.kind != tokRParen && p.tok.kind != tokEOF {
		args = append(args, p.parseExpr())
		if p.tok.kind == tokComma {
			p.advance()
		}
	}
	p.expect(tokRParen, ")")
	return args
}

func (p *parser) parsePrimary() Expr {
	pos := p.tok.pos
	switch p.tok.kind {
	case tokInt:
		v := parseIntLiteral(p.tok.text)
		p.advance()
		return &Literal{Pos: pos, Value: v, TypeName: "int"}
	case tokFloat:
		v := parseFloatLiteral(p.tok.text)
		p.advance()
		return &Literal{Pos: pos, Value: v, TypeName: "float"}
	case tokString:
		v := p.tok.text
		p.advance()
		return &Literal{Pos: pos, Value: v, TypeName: "string"}
	case tokKeyword:
		switch p.tok.text {
		case "true":
			p.advance()
			return &Literal{Pos: pos, Value: true, TypeName: "bool"}
		case "false":
			p.advance()
			return &Literal{Pos: pos, Value: false, TypeName: "bool"}
		case "new":
			p.advance()
			typeName := p.parseTypeName()
			args := p.parseArgs()
			return &CallExpr{Pos: pos, Owner: typeName, Func: "ctor", Args: args}
		}
		p.errorf(UnsupportedSyntax, pos, "unexpected keyword %q in expression", p.tok.text)
		p.advance()
		return &Literal{Pos: pos, Value: int64(0), TypeName: "int"}
	case tokIdent:
		name := p.tok.text
		p.advance()
		if p.tok.kind == tokLParen {
			args := p.parseArgs()
			return &CallExpr{Pos: pos, Owner: "", Func: name, Args: args}
		}
		if p.tok.kind == tokDot && isKnownStaticOwner(name) &&
			p.peek(1).kind == tokIdent && p.peek(2).kind == tokLParen {
			// Owner.Member(args) static call, e.g. Mathf.Abs(x). The
			// two-token lookahead confirms this before any of it is
			// consumed, so there is nothing to undo either way.
			p.advance() // consume "."
			member := p.tok.text
			p.advance() // consume member ident
			args := p.parseArgs()
			return &CallExpr{Pos: pos, Owner: name, Func: member, Args: args}
		}
		return &Ident{Pos: pos, Name: name}
	case tokLParen:
		p.advance()
		// "(Type) expr" is a cast when the parenthesized identifier is
		// immediately followed by ")" and then by something that can
		// only start a new expression; otherwise it's a grouped
		// expression. Both branches are resolved by lookahead alone, so
		// nothing needs to be undone.
		if p.tok.kind == tokIdent && p.peek(1).kind == tokRParen && isExprStartToken(p.peek(2)) {
			typeName := p.tok.text
			p.advance()        // consume the type ident
			p.advance()        // consume ")"
			x := p.parseUnary()
			return &CastExpr{Pos: pos, X: x, TypeName: typeName}
		}
		x := p.parseExpr()
		p.expect(tokRParen, ")")
		return x
	case tokLBracket:
		p.advance()
		var elems []Expr
		for p.tok.kind != tokRBracket && p.tok.kind != tokEOF {
			elems = append(elems, p.parseExpr())
			if p.tok.kind == tokComma {
				p.advance()
			}
		}
		p.expect(tokRBracket, "]")
		return &Literal{Pos: pos, Value: elems, TypeName: "vector"}
	default:
		p.errorf(UnsupportedSyntax, pos, "unexpected token %q in expression", p.tok.text)
		p.advance()
		return &Literal{Pos: pos, Value: int64(0), TypeName: "int"}
	}
}

// knownStaticOwners lets the parser disambiguate "Mathf.Abs(x)" (a
// static call) from "obj.Field.Prop" (chained property access) without
// full type information at parse time.
var knownStaticOwners = map[string]bool{
	"Mathf": true, "Debug": true, "Vector3": true, "Color": true,
}

func isKnownStaticOwner(name string) bool {
	return knownStaticOwners[name]
}

// isExprStartToken reports whether t can begin a new expression, used
// to disambiguate a cast "(Type) expr" from a parenthesized identifier.
func isExprStartToken(t token) bool {
	switch t.kind {
	case tokIdent, tokInt, tokFloat, tokString, tokLParen, tokLBracket:
		return true
	case tokKeyword:
		return t.text == "true" || t.text == "false" || t.text == "new"
	case tokOp:
		return t.text == "-" || t.text == "!"
	default:
		return false
	}
}
