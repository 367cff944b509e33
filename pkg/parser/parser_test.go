package parser

import (
	"testing"

	"github.com/emlang/emc/pkg/ast"
	"github.com/emlang/emc/pkg/lexer"
	"github.com/emlang/emc/pkg/token"
)

func parseSource(t *testing.T, src string) []*ast.Node {
	t.Helper()
	l := lexer.New(func(path string) (string, error) { return src, nil })
	if err := l.LexFile("main.em"); err != nil {
		t.Fatalf("LexFile: %v", err)
	}
	p := New(l)
	roots, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return roots
}

func parseSourceExpectError(t *testing.T, src string) error {
	t.Helper()
	l := lexer.New(func(path string) (string, error) { return src, nil })
	if err := l.LexFile("main.em"); err != nil {
		t.Fatalf("LexFile: %v", err)
	}
	p := New(l)
	_, err := p.Parse()
	if err == nil {
		t.Fatal("expected a parse error, got nil")
	}
	return err
}

func TestPrecedenceMultiplicationBindsTighterThanAddition(t *testing.T) {
	roots := parseSource(t, `int f() { return 1 + 2 * 3; }`)
	fn := roots[0].Data.(ast.FunctionDefinitionData)
	ret := fn.Body[0].Data.(ast.ReturnData)
	top := ret.Value.Data.(ast.BinaryData)
	if top.Op != token.Plus {
		t.Fatalf("top-level op = %s, want +", top.Op)
	}
	rhs, ok := top.Right.Data.(ast.BinaryData)
	if !ok || rhs.Op != token.Star {
		t.Fatalf("right operand should be a '*' node, got %#v", top.Right.Data)
	}
}

func TestPrecedenceComparisonBindsLooserThanAdditive(t *testing.T) {
	roots := parseSource(t, `int f() { return 1 + 2 < 3 * 4; }`)
	fn := roots[0].Data.(ast.FunctionDefinitionData)
	ret := fn.Body[0].Data.(ast.ReturnData)
	top := ret.Value.Data.(ast.BinaryData)
	if top.Op != token.Lt {
		t.Fatalf("top-level op = %s, want <", top.Op)
	}
}

func TestPrecedenceShiftBelowAdditiveAboveComparison(t *testing.T) {
	// `1 + 2 << 3 > 0` should parse as `((1 + 2) << 3) > 0`: additive
	// binds tighter than shift, and shift binds tighter than comparison.
	roots := parseSource(t, `int f() { return 1 + 2 << 3 > 0; }`)
	fn := roots[0].Data.(ast.FunctionDefinitionData)
	ret := fn.Body[0].Data.(ast.ReturnData)
	top := ret.Value.Data.(ast.BinaryData)
	if top.Op != token.Gt {
		t.Fatalf("top-level op = %s, want >", top.Op)
	}
	shiftNode, ok := top.Left.Data.(ast.BinaryData)
	if !ok || shiftNode.Op != token.Shl {
		t.Fatalf("left of > should be a '<<' node, got %#v", top.Left.Data)
	}
	addNode, ok := shiftNode.Left.Data.(ast.BinaryData)
	if !ok || addNode.Op != token.Plus {
		t.Fatalf("left of << should be a '+' node, got %#v", shiftNode.Left.Data)
	}
}

func TestAssignmentIsRightAssociative(t *testing.T) {
	roots := parseSource(t, `int f() { int a; int b; int c; a = b = c; return a; }`)
	fn := roots[0].Data.(ast.FunctionDefinitionData)
	assign := fn.Body[3].Data.(ast.BinaryData)
	if assign.Op != token.Assign {
		t.Fatalf("op = %s, want =", assign.Op)
	}
	inner, ok := assign.Right.Data.(ast.BinaryData)
	if !ok || inner.Op != token.Assign {
		t.Fatalf("right operand of outer '=' should itself be '=', got %#v", assign.Right.Data)
	}
}

func TestBitwiseOperatorsInterpolatedBetweenComparisonAndLogical(t *testing.T) {
	// `a | b && c` should parse as `(a | b) && c`: bitwise-or binds
	// tighter than logical-and.
	roots := parseSource(t, `int f() { bool a; bool b; bool c; return a | b && c; }`)
	fn := roots[0].Data.(ast.FunctionDefinitionData)
	ret := fn.Body[3].Data.(ast.ReturnData)
	top := ret.Value.Data.(ast.BinaryData)
	if top.Op != token.AndAnd {
		t.Fatalf("top-level op = %s, want &&", top.Op)
	}
	left, ok := top.Left.Data.(ast.BinaryData)
	if !ok || left.Op != token.Pipe {
		t.Fatalf("left of && should be a '|' node, got %#v", top.Left.Data)
	}
}

func TestStarAndAmpAreAlwaysBinary(t *testing.T) {
	// There is no pointer/dereference/address-of production in this
	// grammar: `*a` and `&a` are rejected as expressions since Star/Amp
	// never appear as unary/prefix operators.
	parseSourceExpectError(t, `int f() { int a; return *a; }`)
	parseSourceExpectError(t, `int f() { int a; return &a; }`)
}

func TestDuplicateDeclarationInSameScopeIsRejected(t *testing.T) {
	parseSourceExpectError(t, `int f() { int a; int a; return a; }`)
}

func TestShadowingInNestedScopeIsAllowed(t *testing.T) {
	parseSource(t, `int f() { int a; { int a; a = 1; } return a; }`)
}

func TestUseOfUndeclaredIdentifierIsRejected(t *testing.T) {
	parseSourceExpectError(t, `int f() { return a; }`)
}

func TestBreakOutsideLoopIsRejected(t *testing.T) {
	parseSourceExpectError(t, `void f() { break; }`)
}

func TestBreakInsideLoopIsAccepted(t *testing.T) {
	parseSource(t, `void f() { while (1) { break; } }`)
}

func TestAssignmentToNonLValueIsRejected(t *testing.T) {
	parseSourceExpectError(t, `int f() { 1 = 2; return 0; }`)
}

func TestPrefixIncRequiresLValue(t *testing.T) {
	parseSourceExpectError(t, `int f() { return ++1; }`)
}

func TestFunctionPrototypeThenDefinitionMustAgree(t *testing.T) {
	parseSourceExpectError(t, `
		int f(int a);
		float f(int a) { return 1.0; }
	`)
}

func TestFunctionPrototypeThenDefinitionAgreeing(t *testing.T) {
	roots := parseSource(t, `
		int f(int a);
		int f(int a) { return a; }
	`)
	if len(roots) != 2 {
		t.Fatalf("got %d roots, want 2", len(roots))
	}
	proto := roots[0].Data.(ast.FunctionDefinitionData)
	if !proto.IsPrototype {
		t.Error("first root should be a prototype")
	}
	def := roots[1].Data.(ast.FunctionDefinitionData)
	if def.IsPrototype {
		t.Error("second root should be a definition")
	}
}

func TestGlobalDeclarationAndInitialiser(t *testing.T) {
	roots := parseSource(t, `int counter = 0; void f() { counter = 1; }`)
	if len(roots) != 2 {
		t.Fatalf("got %d roots, want 2", len(roots))
	}
	if roots[0].Kind != ast.Binary {
		t.Fatalf("global initialiser root should be a Binary(=) node, got %v", roots[0].Kind)
	}
}

func TestMainRegistersEntryPoint(t *testing.T) {
	l := lexer.New(func(path string) (string, error) { return `int main() { return 0; }`, nil })
	if err := l.LexFile("main.em"); err != nil {
		t.Fatalf("LexFile: %v", err)
	}
	p := New(l)
	if _, err := p.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !l.EntryPointFound {
		t.Error("EntryPointFound should be true after parsing a function named main")
	}
}

func TestCallToUndeclaredFunctionIsRejected(t *testing.T) {
	parseSourceExpectError(t, `int f() { return g(); }`)
}

func TestLocalDeclarationWithInitialiser(t *testing.T) {
	// spec.md §8 S3/S4: a local "type IDENT = expr;" statement must
	// parse as a Binary(=) node with a Declaration on the left, the
	// same shape emit.lvalueAddr already handles.
	roots := parseSource(t, `
		int f() {
			int i = 0;
			while (i < 10) {
				i = i + 1;
			}
			for (i = 0; i < 10; i++) {}
			return i;
		}
	`)
	fn := roots[0].Data.(ast.FunctionDefinitionData)
	assign := fn.Body[0].Data.(ast.BinaryData)
	if assign.Op != token.Assign {
		t.Fatalf("op = %s, want =", assign.Op)
	}
	if assign.Left.Kind != ast.Declaration {
		t.Fatalf("left of local 'int i = 0' should be a Declaration node, got %v", assign.Left.Kind)
	}
	decl := assign.Left.Data.(ast.DeclarationData)
	if decl.Name != "i" || decl.DataType != ast.TypeInt {
		t.Fatalf("declaration = %+v, want name i, type Int", decl)
	}
}
