package emit

import (
	"testing"

	"github.com/emlang/emc/pkg/ir"
	"github.com/emlang/emc/pkg/lexer"
	"github.com/emlang/emc/pkg/parser"
)

func emitSource(t *testing.T, src string) *ir.Module {
	t.Helper()
	l := lexer.New(func(path string) (string, error) { return src, nil })
	if err := l.LexFile("main.em"); err != nil {
		t.Fatalf("LexFile: %v", err)
	}
	p := parser.New(l)
	roots, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	mod := ir.NewModule()
	ctx := NewContext(mod)
	if err := ctx.EmitFile(roots); err != nil {
		t.Fatalf("EmitFile: %v", err)
	}
	return mod
}

func countBlocksWithLabelPrefix(fn *ir.Function, prefix string) int {
	n := 0
	for _, b := range fn.Blocks {
		if len(b.Label) >= len(prefix) && b.Label[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func TestIfWithoutElseStillSynthesizesElseBlock(t *testing.T) {
	mod := emitSource(t, `int f() { if (1) { return 1; } return 0; }`)
	fn := mod.Funcs[0]
	if countBlocksWithLabelPrefix(fn, "if.else") != 1 {
		t.Error("if without an else-clause should still synthesize an empty if.else block")
	}
	if err := ir.VerifyFunction(fn); err != nil {
		t.Fatalf("VerifyFunction: %v", err)
	}
}

func TestForLoopContinueTargetsConditionBlock(t *testing.T) {
	mod := emitSource(t, `
		int f() {
			int i;
			for (i = 0; i < 10; i = i + 1) {
				if (i == 5) { continue; }
			}
			return i;
		}
	`)
	fn := mod.Funcs[0]
	var condBlk *ir.BasicBlock
	for _, b := range fn.Blocks {
		if len(b.Label) >= 8 && b.Label[:8] == "for.cond" {
			condBlk = b
		}
	}
	if condBlk == nil {
		t.Fatal("no for.cond block found")
	}
	found := false
	for _, b := range fn.Blocks {
		for _, in := range b.Instructions {
			if in.Op == ir.OpBr {
				if lbl, ok := in.Args[0].(ir.Label); ok && lbl.Name == condBlk.Label {
					found = true
				}
			}
		}
	}
	if !found {
		t.Error("expected at least one branch (continue's) targeting the for.cond block")
	}
	if err := ir.VerifyFunction(fn); err != nil {
		t.Fatalf("VerifyFunction: %v", err)
	}
}

// A for-statement's own scope must be popped once the loop is left, so
// a same-named declaration in its init clause shadows an outer binding
// of the same name only for the duration of the loop, never clobbering
// it permanently.
func TestForLoopInitDeclarationShadowsOuterBindingThenRestoresIt(t *testing.T) {
	mod := emitSource(t, `
		int f() {
			int i = 0;
			i = 5;
			for (int i = 0; i < 3; i = i + 1) {}
			return i;
		}
	`)
	fn := mod.Funcs[0]

	var allocas []ir.Value
	for _, b := range fn.Blocks {
		for _, in := range b.Instructions {
			if in.Op == ir.OpAlloca {
				allocas = append(allocas, in.Result)
			}
		}
	}
	if len(allocas) != 2 {
		t.Fatalf("expected 2 allocas (outer i, the for-loop's own i), got %d", len(allocas))
	}
	outerAddr := allocas[0]

	var retLoadAddr ir.Value
	for _, b := range fn.Blocks {
		for i, in := range b.Instructions {
			if in.Op != ir.OpRet {
				continue
			}
			for j := i - 1; j >= 0; j-- {
				if b.Instructions[j].Op == ir.OpLoad {
					retLoadAddr = b.Instructions[j].Args[0]
					break
				}
			}
		}
	}
	if retLoadAddr != outerAddr {
		t.Errorf("return loaded from %v, want the outer i's address %v: the for-loop's own i leaked past its scope", retLoadAddr, outerAddr)
	}
}

// An if/else whose every arm already returns is exhaustive: emitIf
// must not force the insertion point onto an unreached, empty merge
// block afterwards, or emitFunction's "does not return on every path"
// check would reject this legal, always-returning function.
func TestIfElseBothReturningAsFinalStatementNeedsNoSyntheticMergeBlock(t *testing.T) {
	mod := emitSource(t, `
		int f(int x) {
			if (x > 0) {
				return 1;
			} else {
				return 0;
			}
		}
	`)
	fn := mod.Funcs[0]
	if err := ir.VerifyFunction(fn); err != nil {
		t.Fatalf("VerifyFunction: %v", err)
	}
	for _, b := range fn.Blocks {
		if len(b.Instructions) == 0 {
			t.Errorf("block %q is empty: an unreachable merge block should never have been created", b.Label)
		}
	}
}

func TestBreakEmitsDeadJumpendBlock(t *testing.T) {
	mod := emitSource(t, `
		void f() {
			while (1) {
				break;
			}
		}
	`)
	fn := mod.Funcs[0]
	if countBlocksWithLabelPrefix(fn, "jumpend") != 1 {
		t.Error("break should synthesize a dead jumpend block")
	}
	if err := ir.VerifyFunction(fn); err != nil {
		t.Fatalf("VerifyFunction: %v", err)
	}
}

func TestShortCircuitAndLowersViaPhiNotBitwiseAnd(t *testing.T) {
	mod := emitSource(t, `
		bool g();
		bool f() {
			bool a;
			return a && g();
		}
	`)
	fn := mod.Funcs[len(mod.Funcs)-1]
	sawPhi, sawCondBr := false, 0
	for _, b := range fn.Blocks {
		for _, in := range b.Instructions {
			if in.Op == ir.OpPhi {
				sawPhi = true
			}
			if in.Op == ir.OpCondBr {
				sawCondBr++
			}
		}
	}
	if !sawPhi {
		t.Error("short-circuit && should lower to a phi merge")
	}
	if sawCondBr == 0 {
		t.Error("short-circuit && should branch rather than unconditionally evaluate both sides")
	}
}

func TestAllocaForLocalDeclarationPlacedInEntryBlock(t *testing.T) {
	mod := emitSource(t, `
		int f() {
			if (1) {
				int late;
				late = 1;
			}
			return 0;
		}
	`)
	fn := mod.Funcs[0]
	entry := fn.Blocks[0]
	allocaCount := 0
	for _, in := range entry.Instructions {
		if in.Op == ir.OpAlloca {
			allocaCount++
		}
	}
	if allocaCount == 0 {
		t.Error("the late-declared local's alloca should have been hoisted into the entry block")
	}
}

func TestIntFloatPromotionInMixedBinaryExpression(t *testing.T) {
	mod := emitSource(t, `
		float f() {
			int i;
			float x;
			return i + x;
		}
	`)
	fn := mod.Funcs[0]
	sawCast := false
	for _, b := range fn.Blocks {
		for _, in := range b.Instructions {
			if in.Op == ir.OpSiToFp {
				sawCast = true
			}
		}
	}
	if !sawCast {
		t.Error("mixed int/float addition should cast the int operand up to float")
	}
}

func TestReturnCoercesIntToDeclaredFloatReturnType(t *testing.T) {
	mod := emitSource(t, `
		float f() {
			int i;
			return i;
		}
	`)
	fn := mod.Funcs[0]
	sawCast := false
	for _, b := range fn.Blocks {
		for _, in := range b.Instructions {
			if in.Op == ir.OpSiToFp {
				sawCast = true
			}
		}
	}
	if !sawCast {
		t.Error("returning an int from a float-returning function should emit a sitofp")
	}
}

func TestVoidFunctionGetsImplicitReturn(t *testing.T) {
	mod := emitSource(t, `void f() { int x; x = 1; }`)
	fn := mod.Funcs[0]
	last := fn.Blocks[len(fn.Blocks)-1]
	lastInstr := last.Instructions[len(last.Instructions)-1]
	if lastInstr.Op != ir.OpRetVoid {
		t.Errorf("last instruction = %v, want OpRetVoid", lastInstr.Op)
	}
}

func TestGlobalInitialiserCoercesIntLiteralToFloat(t *testing.T) {
	mod := emitSource(t, `float pi = 3;`)
	if len(mod.Globals) != 1 {
		t.Fatalf("got %d globals, want 1", len(mod.Globals))
	}
	g := mod.Globals[0]
	if g.Typ != ir.F32 {
		t.Errorf("global type = %s, want f32", g.Typ)
	}
	if _, ok := g.Init.(ir.FloatConst); !ok {
		t.Errorf("global init = %#v, want a FloatConst", g.Init)
	}
}

func TestLocalDeclarationWithInitialiserEmitsStoreThenLoop(t *testing.T) {
	// spec.md §8 S3: "int i = 0; while (i < 10) { ... }" must emit an
	// alloca+store for the combined declaration/initialiser, not fail
	// to parse as an invalid assignment target.
	mod := emitSource(t, `
		int f() {
			int i = 0;
			while (i < 10) {
				i = i + 1;
			}
			return i;
		}
	`)
	fn := mod.Funcs[0]
	entry := fn.Blocks[0]
	sawAlloca, sawStore := false, false
	for _, in := range entry.Instructions {
		if in.Op == ir.OpAlloca {
			sawAlloca = true
		}
		if in.Op == ir.OpStore {
			sawStore = true
		}
	}
	if !sawAlloca {
		t.Error("local 'int i = 0' should hoist an alloca into the entry block")
	}
	if !sawStore {
		t.Error("local 'int i = 0' should store its initialiser into the alloca")
	}
	if err := ir.VerifyFunction(fn); err != nil {
		t.Fatalf("VerifyFunction: %v", err)
	}
}

func TestCompoundAssignmentLoadsMutatesAndStores(t *testing.T) {
	mod := emitSource(t, `
		int f() {
			int x;
			x += 1;
			return x;
		}
	`)
	fn := mod.Funcs[0]
	var loads, adds, stores int
	for _, b := range fn.Blocks {
		for _, in := range b.Instructions {
			switch in.Op {
			case ir.OpLoad:
				loads++
			case ir.OpAdd:
				adds++
			case ir.OpStore:
				stores++
			}
		}
	}
	if loads == 0 || adds == 0 || stores == 0 {
		t.Errorf("compound assignment should load the old value, add, and store the result: loads=%d adds=%d stores=%d", loads, adds, stores)
	}
}
