package ir

import (
	"testing"
)

func buildSimpleAddFunction() *Module {
	mod := NewModule()
	b := NewBuilder(mod)
	fn := b.DeclareFunc("add", []Param{{Name: "a", Typ: I32}, {Name: "b", Typ: I32}}, I32, true)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)
	sum := b.Add(I32, Global{Name: "%arg.a"}, Global{Name: "%arg.b"})
	b.Ret(sum)
	_ = fn
	return mod
}

func TestVerifyFunctionRejectsUnterminatedBlock(t *testing.T) {
	mod := NewModule()
	b := NewBuilder(mod)
	fn := b.DeclareFunc("f", nil, Void, true)
	blk := b.CreateBlock("entry")
	b.SetInsertPoint(blk)
	b.Alloca(I32) // no terminator follows
	if err := VerifyFunction(fn); err == nil {
		t.Fatal("expected an error for an unterminated block")
	}
}

func TestVerifyFunctionAcceptsWellFormedFunction(t *testing.T) {
	mod := buildSimpleAddFunction()
	if err := VerifyFunction(mod.Funcs[0]); err != nil {
		t.Fatalf("VerifyFunction: %v", err)
	}
}

func TestVerifyFunctionSkipsPrototypes(t *testing.T) {
	mod := NewModule()
	b := NewBuilder(mod)
	fn := b.DeclareFunc("extern_fn", nil, Void, false)
	if err := VerifyFunction(fn); err != nil {
		t.Fatalf("VerifyFunction on a body-less prototype should pass, got: %v", err)
	}
}

func TestVerifyModuleCatchesCallToUndefinedFunction(t *testing.T) {
	mod := NewModule()
	b := NewBuilder(mod)
	b.DeclareFunc("f", nil, Void, true)
	blk := b.CreateBlock("entry")
	b.SetInsertPoint(blk)
	b.Call("missing", Void, nil)
	b.RetVoid()
	if err := VerifyModule(mod); err == nil {
		t.Fatal("expected an error for a call to an undefined function")
	}
}

func TestVerifyModuleCatchesBranchToUndefinedBlock(t *testing.T) {
	mod := NewModule()
	fn := &Function{Name: "f", ReturnType: Void, HasBody: true}
	mod.Funcs = append(mod.Funcs, fn)
	blk := &BasicBlock{Label: "entry"}
	blk.append(&Instruction{Op: OpBr, Args: []Value{Label{Name: "nowhere"}}})
	fn.Blocks = append(fn.Blocks, blk)
	if err := VerifyModule(mod); err == nil {
		t.Fatal("expected an error for a branch to an undefined block")
	}
}

func TestPrintParseRoundTrip(t *testing.T) {
	mod := buildSimpleAddFunction()
	mod.InternString("hello")
	mod.Globals = append(mod.Globals, &GlobalVar{Name: "g", Typ: I32, Init: Const{Typ: I32, Val: 7}})

	text := Print(mod)
	reloaded, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(reloaded.Funcs) != 1 || reloaded.Funcs[0].Name != "add" {
		t.Fatalf("reloaded funcs = %+v", reloaded.Funcs)
	}
	if len(reloaded.Strings) != 1 || reloaded.Strings[0].Val != "hello" {
		t.Fatalf("reloaded strings = %+v", reloaded.Strings)
	}
	if len(reloaded.Globals) != 1 || reloaded.Globals[0].Name != "g" {
		t.Fatalf("reloaded globals = %+v", reloaded.Globals)
	}
	if err := VerifyFunction(reloaded.Funcs[0]); err != nil {
		t.Fatalf("reloaded function fails verification: %v", err)
	}

	// The round trip must be textually stable: printing the reloaded
	// module again should produce byte-identical output.
	again := Print(reloaded)
	if again != text {
		t.Errorf("round-trip text differs:\nfirst:\n%s\nsecond:\n%s", text, again)
	}
}

// A string constant containing two or more consecutive spaces must
// survive Print/Parse intact: Parse must not tokenize the quoted
// payload with strings.Fields, which would collapse the run down to
// a single space.
func TestPrintParseRoundTripPreservesEmbeddedSpacesInStringLiterals(t *testing.T) {
	mod := buildSimpleAddFunction()
	mod.InternString("a  b   c")

	reloaded, err := Parse(Print(mod))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(reloaded.Strings) != 1 || reloaded.Strings[0].Val != "a  b   c" {
		t.Fatalf("reloaded strings = %+v, want a single %q", reloaded.Strings, "a  b   c")
	}
}

func TestPrintParsePhiRoundTrip(t *testing.T) {
	mod := NewModule()
	b := NewBuilder(mod)
	b.DeclareFunc("f", nil, I1, true)
	entry := b.CreateBlock("entry")
	rhs := b.CreateBlock("rhs")
	merge := b.CreateBlock("merge")

	b.SetInsertPoint(entry)
	b.CondBr(Const{Typ: I1, Val: 1}, rhs, merge)
	b.SetInsertPoint(rhs)
	b.Br(merge)
	b.SetInsertPoint(merge)
	phi := b.Phi(I1, []string{entry.Label, rhs.Label}, []Value{Const{Typ: I1, Val: 0}, Const{Typ: I1, Val: 1}})
	b.Ret(phi)

	text := Print(mod)
	reloaded, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fn := reloaded.Funcs[0]
	mergeBlk := fn.Block(merge.Label)
	if mergeBlk == nil {
		t.Fatalf("reloaded function is missing block %q", merge.Label)
	}
	found := false
	for _, in := range mergeBlk.Instructions {
		if in.Op == OpPhi {
			found = true
			if len(in.PhiBlocks) != 2 || len(in.Args) != 2 {
				t.Errorf("phi operand count = %d/%d, want 2/2", len(in.PhiBlocks), len(in.Args))
			}
		}
	}
	if !found {
		t.Error("reloaded merge block has no phi instruction")
	}
}

func TestInternStringDeduplicates(t *testing.T) {
	mod := NewModule()
	a := mod.InternString("same")
	b := mod.InternString("same")
	c := mod.InternString("different")
	if a != b {
		t.Errorf("InternString should return the same label for identical values: %q != %q", a, b)
	}
	if a == c {
		t.Errorf("InternString should return distinct labels for distinct values")
	}
	if len(mod.Strings) != 2 {
		t.Errorf("Strings has %d entries, want 2", len(mod.Strings))
	}
}

func TestBuilderCallReturnsNilForVoid(t *testing.T) {
	mod := NewModule()
	b := NewBuilder(mod)
	b.DeclareFunc("f", nil, Void, true)
	blk := b.CreateBlock("entry")
	b.SetInsertPoint(blk)
	if v := b.Call("g", Void, nil); v != nil {
		t.Errorf("Call with a void return should yield nil, got %v", v)
	}
}
