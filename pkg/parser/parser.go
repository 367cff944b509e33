// Package parser implements the recursive-descent, operator-precedence
// parser that turns a token.Kind stream (as produced by pkg/lexer) into
// the tagged-variant AST of pkg/ast, while populating the shared
// parse-time symbol table for declaration/use validation.
package parser

import (
	"strconv"

	"github.com/emlang/emc/pkg/ast"
	"github.com/emlang/emc/pkg/diag"
	"github.com/emlang/emc/pkg/lexer"
	"github.com/emlang/emc/pkg/token"
)

// Precedence levels for the binary-operator table (spec.md §4.2). The
// ladder names MIN, ASSIGNMENT, OR, AND, EQUALITY, COMPARISON,
// ADDITIVE, MULTIPLICATIVE are spec.md's own; bitwise AND/XOR/OR and
// the shift operators are not named in that ladder, so their slots are
// interpolated here in the conventional C-family order (shift just
// below additive, bitwise between equality and the logical operators)
// — see DESIGN.md for the rationale.
const (
	levelMin            = 0
	levelAssignment     = 10 // right-associative
	levelLogicalOr      = 20
	levelLogicalAnd     = 30
	levelBitOr          = 35
	levelBitXor         = 40
	levelBitAnd         = 45
	levelEquality       = 50
	levelComparison     = 60
	levelShift          = 70
	levelAdditive       = 80
	levelMultiplicative = 90
)

func binaryPrecedence(k token.Kind) (int, bool) {
	switch {
	case k.IsAssignOp():
		return levelAssignment, true
	}
	switch k {
	case token.OrOr:
		return levelLogicalOr, true
	case token.AndAnd:
		return levelLogicalAnd, true
	case token.Pipe:
		return levelBitOr, true
	case token.Caret:
		return levelBitXor, true
	case token.Amp:
		return levelBitAnd, true
	case token.EqEq, token.Neq:
		return levelEquality, true
	case token.Lt, token.Gt, token.Lte, token.Gte:
		return levelComparison, true
	case token.Shl, token.Shr:
		return levelShift, true
	case token.Plus, token.Minus:
		return levelAdditive, true
	case token.Star, token.Slash, token.Rem:
		return levelMultiplicative, true
	}
	return 0, false
}

// Parser consumes the token cursor exposed by a *lexer.Lexer.
type Parser struct {
	lex *lexer.Lexer
	st  *lexer.SymbolTable
}

// New wraps a fully-lexed file (imports already expanded) for parsing.
func New(lex *lexer.Lexer) *Parser {
	return &Parser{lex: lex, st: lex.Symbols}
}

// Parse recognises the top-level program (spec.md §4.2) and returns its
// ordered list of top-level AST nodes, or the first diagnostic raised.
func (p *Parser) Parse() ([]*ast.Node, error) {
	var roots []*ast.Node
	for p.cur().Kind != token.EOF {
		node, err := p.parseTopLevel()
		if err != nil {
			return nil, err
		}
		roots = append(roots, node)
	}
	return roots, nil
}

// --- token-stream helpers ---

func (p *Parser) cur() token.Token  { return p.lex.Peek(0) }
func (p *Parser) peek(k int) token.Token { return p.lex.Peek(k) }
func (p *Parser) advance() token.Token { return p.lex.GetNext() }

func (p *Parser) check(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) match(k token.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(k token.Kind, msg string) (token.Token, error) {
	if p.check(k) {
		return p.advance(), nil
	}
	return token.Token{}, diag.Errorf(p.cur().Pos, "%s (got %s)", msg, p.cur())
}

// isLValue reports whether n may stand on the left of an assignment.
// A bare Identifier is the usual case; a Declaration is also accepted
// so that a local "type IDENT = expr;" statement — parsed as
// Binary{Op:Assign, Left:Declaration} because parseBinary sees the '='
// immediately after parsePrimary's Declaration-producing branch — is
// not rejected. emit.lvalueAddr already handles both Kinds.
func isLValue(n *ast.Node) bool {
	return n != nil && (n.Kind == ast.Identifier || n.Kind == ast.Declaration)
}

// --- top level ---

func (p *Parser) parseTopLevel() (*ast.Node, error) {
	tok := p.cur()
	dt, ok := ast.DataTypeFromToken(tok.Kind)
	if !ok {
		return nil, diag.Errorf(tok.Pos, "expected a top-level function or variable definition, got %s", tok)
	}
	p.advance()

	nameTok, err := p.expect(token.Ident, "expected a name after the type")
	if err != nil {
		return nil, err
	}
	name := nameTok.Lexeme

	if p.check(token.LParen) {
		return p.parseFunction(tok, dt, name)
	}

	if p.match(token.Assign) {
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Semi, "expected ';' after a global initialiser"); err != nil {
			return nil, err
		}
		if _, dup := p.st.GlobalVariables[name]; dup {
			return nil, diag.Errorf(nameTok.Pos, "redeclaration of global variable %q", name)
		}
		decl := ast.NewDeclaration(nameTok, dt, name)
		p.st.GlobalVariables[name] = &lexer.Symbol{Name: name, Kind: lexer.SymVariable, IsDeclaration: true, DataType: dt}
		return ast.NewBinary(tok, token.Assign, decl, value), nil
	}

	if _, err := p.expect(token.Semi, "expected ';' after a global declaration"); err != nil {
		return nil, err
	}
	if _, dup := p.st.GlobalVariables[name]; dup {
		return nil, diag.Errorf(nameTok.Pos, "redeclaration of global variable %q", name)
	}
	p.st.GlobalVariables[name] = &lexer.Symbol{Name: name, Kind: lexer.SymVariable, IsDeclaration: true, DataType: dt}
	return ast.NewDeclaration(nameTok, dt, name), nil
}

func (p *Parser) parseFunction(tok token.Token, ret ast.DataType, name string) (*ast.Node, error) {
	if _, err := p.expect(token.LParen, "expected '(' after the function name"); err != nil {
		return nil, err
	}
	var params []ast.Param
	if !p.check(token.RParen) {
		for {
			pt := p.cur()
			dt, ok := ast.DataTypeFromToken(pt.Kind)
			if !ok {
				return nil, diag.Errorf(pt.Pos, "expected a parameter type, got %s", pt)
			}
			p.advance()
			pn, err := p.expect(token.Ident, "expected a parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, ast.Param{Name: pn.Lexeme, Type: dt})
			if !p.match(token.Comma) {
				break
			}
		}
	}
	if _, err := p.expect(token.RParen, "expected ')' after the parameter list"); err != nil {
		return nil, err
	}

	paramTypes := make([]ast.DataType, len(params))
	for i, pr := range params {
		paramTypes[i] = pr.Type
	}

	if existing, ok := p.st.Functions[name]; ok {
		if !signaturesAgree(existing, ret, paramTypes) {
			return nil, diag.Errorf(tok.Pos, "definition of %q disagrees with its earlier declaration", name)
		}
	}
	if existing, ok := p.st.FunctionPrototypes[name]; ok {
		if !signaturesAgree(existing, ret, paramTypes) {
			return nil, diag.Errorf(tok.Pos, "definition of %q disagrees with its prototype", name)
		}
	}

	if p.match(token.Semi) {
		sym := &lexer.Symbol{Name: name, Kind: lexer.SymFunction, DataType: ret, ParamTypes: paramTypes}
		p.st.FunctionPrototypes[name] = sym
		return ast.NewFunctionDefinition(tok, ret, name, params, true, nil), nil
	}

	sym := &lexer.Symbol{Name: name, Kind: lexer.SymFunction, IsDeclaration: true, DataType: ret, ParamTypes: paramTypes}
	p.st.Functions[name] = sym
	if name == "main" {
		p.lex.EntryPointFound = true
	}

	p.st.PushScope()
	for _, pr := range params {
		p.st.DeclareLocal(&lexer.Symbol{Name: pr.Name, Kind: lexer.SymVariable, IsDeclaration: true, DataType: pr.Type})
	}
	body, err := p.parseStmtList(token.RBrace)
	p.st.PopScope()
	if err != nil {
		return nil, err
	}
	return ast.NewFunctionDefinition(tok, ret, name, params, false, body), nil
}

func signaturesAgree(sym *lexer.Symbol, ret ast.DataType, params []ast.DataType) bool {
	if sym.DataType != ret || len(sym.ParamTypes) != len(params) {
		return false
	}
	for i := range params {
		if sym.ParamTypes[i] != params[i] {
			return false
		}
	}
	return true
}

// parseStmtList consumes '{' stmt* '}' and returns the statement list,
// used for function bodies which are not wrapped in a Block node
// (spec.md §3: FunctionDefinition.body is a plain ordered list).
func (p *Parser) parseStmtList(closer token.Kind) ([]*ast.Node, error) {
	if _, err := p.expect(token.LBrace, "expected '{'"); err != nil {
		return nil, err
	}
	var stmts []*ast.Node
	for !p.check(closer) && !p.check(token.EOF) {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if _, err := p.expect(closer, "expected '}'"); err != nil {
		return nil, err
	}
	return stmts, nil
}

// --- statements ---

func (p *Parser) parseStmt() (*ast.Node, error) {
	tok := p.cur()
	switch tok.Kind {
	case token.If:
		return p.parseIf()
	case token.For:
		return p.parseFor()
	case token.While:
		return p.parseWhile()
	case token.Return:
		return p.parseReturn()
	case token.Break:
		p.advance()
		if !p.st.InLoop() {
			return nil, diag.Errorf(tok.Pos, "'break' outside of a loop")
		}
		if _, err := p.expect(token.Semi, "expected ';' after 'break'"); err != nil {
			return nil, err
		}
		return ast.NewJump(tok, ast.JumpBreak), nil
	case token.Continue:
		p.advance()
		if !p.st.InLoop() {
			return nil, diag.Errorf(tok.Pos, "'continue' outside of a loop")
		}
		if _, err := p.expect(token.Semi, "expected ';' after 'continue'"); err != nil {
			return nil, err
		}
		return ast.NewJump(tok, ast.JumpContinue), nil
	case token.LBrace:
		return p.parseBlock()
	default:
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Semi, "expected ';' after an expression statement"); err != nil {
			return nil, err
		}
		return expr, nil
	}
}

func (p *Parser) parseBlock() (*ast.Node, error) {
	tok := p.cur()
	p.st.PushScope()
	stmts, err := p.parseStmtList(token.RBrace)
	p.st.PopScope()
	if err != nil {
		return nil, err
	}
	return ast.NewBlock(tok, stmts), nil
}

// body parses either a braced block or a single statement, the "body"
// production of spec.md §4.2.
func (p *Parser) body() (*ast.Node, error) {
	if p.check(token.LBrace) {
		return p.parseBlock()
	}
	return p.parseStmt()
}

func (p *Parser) parseIf() (*ast.Node, error) {
	tok := p.advance()
	if _, err := p.expect(token.LParen, "expected '(' after 'if'"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen, "expected ')' after the if condition"); err != nil {
		return nil, err
	}
	then, err := p.body()
	if err != nil {
		return nil, err
	}
	var els *ast.Node
	if p.match(token.Else) {
		els, err = p.body()
		if err != nil {
			return nil, err
		}
	}
	return ast.NewIf(tok, cond, then, els), nil
}

func (p *Parser) parseFor() (*ast.Node, error) {
	tok := p.advance()
	if _, err := p.expect(token.LParen, "expected '(' after 'for'"); err != nil {
		return nil, err
	}

	p.st.PushScope()
	defer p.st.PopScope()

	var initN, condN, incN *ast.Node
	var err error
	if !p.check(token.Semi) {
		if initN, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if _, err = p.expect(token.Semi, "expected ';' after the for-loop initialiser"); err != nil {
		return nil, err
	}
	if !p.check(token.Semi) {
		if condN, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if _, err = p.expect(token.Semi, "expected ';' after the for-loop condition"); err != nil {
		return nil, err
	}
	if !p.check(token.RParen) {
		if incN, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if _, err = p.expect(token.RParen, "expected ')' after the for-loop header"); err != nil {
		return nil, err
	}

	p.st.EnterLoop()
	bodyN, err := p.body()
	p.st.ExitLoop()
	if err != nil {
		return nil, err
	}
	return ast.NewFor(tok, initN, condN, incN, bodyN), nil
}

func (p *Parser) parseWhile() (*ast.Node, error) {
	tok := p.advance()
	if _, err := p.expect(token.LParen, "expected '(' after 'while'"); err != nil {
		return nil, err
	}
	p.st.PushScope()
	defer p.st.PopScope()

	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen, "expected ')' after the while condition"); err != nil {
		return nil, err
	}
	p.st.EnterLoop()
	bodyN, err := p.body()
	p.st.ExitLoop()
	if err != nil {
		return nil, err
	}
	return ast.NewWhile(tok, cond, bodyN), nil
}

func (p *Parser) parseReturn() (*ast.Node, error) {
	tok := p.advance()
	var value *ast.Node
	if !p.check(token.Semi) {
		var err error
		if value, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.Semi, "expected ';' after 'return'"); err != nil {
		return nil, err
	}
	return ast.NewReturn(tok, value), nil
}

// --- expressions ---

func (p *Parser) parseExpr() (*ast.Node, error) { return p.parseBinary(levelMin) }

func (p *Parser) parseBinary(minPrec int) (*ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.cur().Kind
		prec, ok := binaryPrecedence(op)
		if !ok || prec < minPrec {
			return left, nil
		}
		opTok := p.cur()

		if op.IsAssignOp() {
			if !isLValue(left) {
				return nil, diag.Errorf(opTok.Pos, "invalid assignment target")
			}
		}

		p.advance()
		nextMin := prec + 1
		if op.IsAssignOp() {
			nextMin = prec // assignment is right-associative
		}
		right, err := p.parseBinary(nextMin)
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(opTok, op, left, right)
	}
}

func (p *Parser) parseUnary() (*ast.Node, error) {
	tok := p.cur()
	switch tok.Kind {
	case token.Not, token.Complement, token.Inc, token.Dec:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if (tok.Kind == token.Inc || tok.Kind == token.Dec) && !isLValue(operand) {
			return nil, diag.Errorf(tok.Pos, "prefix '%s' requires a variable operand", tok.Kind)
		}
		return ast.NewUnary(tok, tok.Kind, false, operand), nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (*ast.Node, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.cur()
		if tok.Kind == token.Inc || tok.Kind == token.Dec {
			if !isLValue(expr) {
				return nil, diag.Errorf(tok.Pos, "postfix '%s' requires a variable operand", tok.Kind)
			}
			p.advance()
			expr = ast.NewUnary(tok, tok.Kind, true, expr)
			continue
		}
		break
	}
	return expr, nil
}

func (p *Parser) parsePrimary() (*ast.Node, error) {
	tok := p.cur()

	if dt, ok := ast.DataTypeFromToken(tok.Kind); ok {
		p.advance()
		nameTok, err := p.expect(token.Ident, "expected a name after the type")
		if err != nil {
			return nil, err
		}
		decl := ast.NewDeclaration(nameTok, dt, nameTok.Lexeme)
		if !p.st.DeclareLocal(&lexer.Symbol{Name: nameTok.Lexeme, Kind: lexer.SymVariable, IsDeclaration: true, DataType: dt}) {
			return nil, diag.Errorf(nameTok.Pos, "redeclaration of %q in this scope", nameTok.Lexeme)
		}
		return decl, nil
	}

	switch tok.Kind {
	case token.NumberLit:
		p.advance()
		v, _ := strconv.ParseInt(tok.Lexeme, 10, 64)
		return ast.NewIntLiteral(tok, v), nil
	case token.FloatLit:
		p.advance()
		v, _ := strconv.ParseFloat(tok.Lexeme, 64)
		return ast.NewFloatLiteral(tok, v), nil
	case token.CharLit:
		p.advance()
		return ast.NewCharLiteral(tok, tok.Lexeme[0]), nil
	case token.StringLit:
		p.advance()
		return ast.NewStringLiteral(tok, tok.Lexeme), nil
	case token.BoolLit:
		p.advance()
		return ast.NewBoolLiteral(tok, tok.Lexeme == "true"), nil
	case token.Ident:
		p.advance()
		if p.check(token.LParen) {
			return p.parseCallArgs(tok)
		}
		if _, known := p.st.Lookup(tok.Lexeme); !known {
			return nil, diag.Errorf(tok.Pos, "use of undeclared identifier %q", tok.Lexeme)
		}
		return ast.NewIdentifier(tok, tok.Lexeme), nil
	case token.LParen:
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen, "expected ')' after the parenthesised expression"); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, diag.Errorf(tok.Pos, "expected an expression, got %s", tok)
}

func (p *Parser) parseCallArgs(nameTok token.Token) (*ast.Node, error) {
	p.advance() // '('
	var args []*ast.Node
	if !p.check(token.RParen) {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(token.Comma) {
				break
			}
		}
	}
	if _, err := p.expect(token.RParen, "expected ')' after the call arguments"); err != nil {
		return nil, err
	}
	if _, known := p.st.Functions[nameTok.Lexeme]; !known {
		if _, proto := p.st.FunctionPrototypes[nameTok.Lexeme]; !proto {
			return nil, diag.Errorf(nameTok.Pos, "call to undeclared function %q", nameTok.Lexeme)
		}
	}
	return ast.NewFunctionCall(nameTok, nameTok.Lexeme, args), nil
}
