// Package ir defines this compiler's own architecture-independent
// intermediate representation: Module/Function/BasicBlock/Value, built
// through a small Builder, and lowered to QBE text by pkg/codegen
// (spec.md §6.3 "IR-builder collaborator"). Only pkg/codegen is allowed
// to know QBE exists; everything upstream of this package only ever
// talks in terms of the types defined here.
package ir

import "fmt"

// Type is the closed set of value types the IR moves around, mapped
// 1:1 from ast.DataType by spec.md §4.3 ("void→void, bool→i1, int→i32,
// float→f32, char→i8, string→i8*").
type Type int

const (
	Void Type = iota
	I1
	I8
	I32
	F32
	Ptr // i8* — the string/opaque-pointer type
)

func (t Type) String() string {
	switch t {
	case Void:
		return "void"
	case I1:
		return "i1"
	case I8:
		return "i8"
	case I32:
		return "i32"
	case F32:
		return "f32"
	case Ptr:
		return "i8*"
	default:
		return "?"
	}
}

// Op enumerates every instruction opcode the emitter can produce.
type Op int

const (
	OpAlloca Op = iota
	OpLoad
	OpStore
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpNeg
	OpNot
	OpCmpEq
	OpCmpNe
	OpCmpLt
	OpCmpGt
	OpCmpLe
	OpCmpGe
	OpSiToFp
	OpFpToSi
	OpCall
	OpBr
	OpCondBr
	OpPhi
	OpRet
	OpRetVoid
)

// Value is anything an instruction can take as an operand: a compile
// time constant, a reference to a prior instruction's result, a
// function parameter, a global, or a basic block label (for branch
// targets and phi sources).
type Value interface{ String() string }

// Const is a compile-time integer or boolean constant.
type Const struct {
	Typ Type
	Val int64
}

func (c Const) String() string { return fmt.Sprintf("%d", c.Val) }

// FloatConst is a compile-time floating-point constant.
type FloatConst struct{ Val float64 }

func (c FloatConst) String() string { return fmt.Sprintf("%g", c.Val) }

// Global names a module-level symbol: a string constant or a global
// variable.
type Global struct{ Name string }

func (g Global) String() string { return "@" + g.Name }

// Temp is an SSA-style reference to a prior instruction's result.
type Temp struct{ ID int }

func (t Temp) String() string { return fmt.Sprintf("%%t%d", t.ID) }

// Label names a basic block, used as a branch target or phi source.
type Label struct{ Name string }

func (l Label) String() string { return "@" + l.Name }

// Instruction is one IR operation. Result is the zero Value (nil) for
// operations that produce no value (Store, Br, CondBr, Ret, RetVoid).
type Instruction struct {
	Op     Op
	Typ    Type   // result type, meaningful when Result != nil
	Result Value  // always a Temp when non-nil
	Args   []Value
	// ArgTypes pairs 1:1 with Args for OpStore (the stored value's
	// type, Args[1]) and OpCall (each argument's type) — the value
	// kind alone (Const vs. Temp vs. Global) doesn't carry enough
	// information to recover a char/bool/string width from a general
	// Value, so the emitter that already knows the em-level type
	// records it here instead of having the lowering stage guess it.
	ArgTypes []Type
	// PhiBlocks pairs 1:1 with Args for OpPhi: PhiBlocks[i] is the
	// predecessor block that contributes Args[i].
	PhiBlocks []string
	// Callee names the function for OpCall.
	Callee string
}

// BasicBlock is a straight-line instruction sequence ending in a
// terminator (Br, CondBr, Ret, or RetVoid).
type BasicBlock struct {
	Label        string
	Instructions []*Instruction
}

func (b *BasicBlock) append(in *Instruction) *Instruction {
	b.Instructions = append(b.Instructions, in)
	return in
}

func (b *BasicBlock) terminated() bool {
	if len(b.Instructions) == 0 {
		return false
	}
	switch b.Instructions[len(b.Instructions)-1].Op {
	case OpBr, OpCondBr, OpRet, OpRetVoid:
		return true
	}
	return false
}

// Param is one function parameter.
type Param struct {
	Name string
	Typ  Type
}

// Function owns an ordered list of basic blocks. The first block is
// always its entry block.
type Function struct {
	Name       string
	Params     []Param
	ReturnType Type
	Blocks     []*BasicBlock
	HasBody    bool // false for an extern (prototype-only) function
}

func (f *Function) Block(label string) *BasicBlock {
	for _, b := range f.Blocks {
		if b.Label == label {
			return b
		}
	}
	return nil
}

// GlobalVar is a module-level variable: a zero-initialised reservation
// when Init is nil, or a scalar constant initialiser otherwise.
type GlobalVar struct {
	Name string
	Typ  Type
	Init Value // nil, Const, FloatConst, or a Global naming an interned string
}

// StringConst is a deduplicated module-level string literal.
type StringConst struct {
	Name string
	Val  string
}

// Module is the top-level IR unit: one per source file during parallel
// compilation, merged into a single shared Module by the driver before
// the single codegen invocation (spec.md §5).
type Module struct {
	Funcs   []*Function
	Globals []*GlobalVar
	Strings []*StringConst

	tempSeq   int
	blockSeq  int
	strSeq    int
	strByVal  map[string]string
}

// NewModule returns an empty Module ready for a Builder.
func NewModule() *Module {
	return &Module{strByVal: make(map[string]string)}
}

// FindFunc looks up a function by name across this module only.
func (m *Module) FindFunc(name string) *Function {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// InternString returns the deduplicated label for a string literal,
// creating a new module-level StringConst the first time val is seen.
func (m *Module) InternString(val string) string {
	if name, ok := m.strByVal[val]; ok {
		return name
	}
	name := fmt.Sprintf("str%d", m.strSeq)
	m.strSeq++
	m.Strings = append(m.Strings, &StringConst{Name: name, Val: val})
	m.strByVal[val] = name
	return name
}
