package ir

import "fmt"

// Builder is a cursor-style instruction inserter over one Module,
// mirroring the "Module/Context/Builder" collaborator surface named in
// spec.md §6.3: create blocks, position the insertion point, and
// append instructions that always land in the block currently pointed
// at.
type Builder struct {
	mod  *Module
	fn   *Function
	cur  *BasicBlock
}

// NewBuilder returns a Builder over mod with no current function.
func NewBuilder(mod *Module) *Builder { return &Builder{mod: mod} }

// DeclareFunc registers fn (with no blocks yet) in the module and
// makes it the builder's current function. hasBody distinguishes a
// definition from a prototype-only extern.
func (b *Builder) DeclareFunc(name string, params []Param, ret Type, hasBody bool) *Function {
	fn := &Function{Name: name, Params: params, ReturnType: ret, HasBody: hasBody}
	b.mod.Funcs = append(b.mod.Funcs, fn)
	b.fn = fn
	return fn
}

// CreateBlock appends a new, uniquely-labelled block to the current
// function without repositioning the insertion point.
func (b *Builder) CreateBlock(hint string) *BasicBlock {
	b.mod.blockSeq++
	blk := &BasicBlock{Label: fmt.Sprintf("%s.%d", hint, b.mod.blockSeq)}
	b.fn.Blocks = append(b.fn.Blocks, blk)
	return blk
}

// SetInsertPoint moves the insertion point to blk; every subsequent
// instruction is appended there until the next SetInsertPoint call.
func (b *Builder) SetInsertPoint(blk *BasicBlock) { b.cur = blk }

// InsertBlock returns the block instructions are currently appended to.
func (b *Builder) InsertBlock() *BasicBlock { return b.cur }

// Terminated reports whether the current insertion block already ends
// in a terminator, so callers can avoid emitting unreachable code (the
// dead jumpend block after Break/Continue, spec.md §4.3).
func (b *Builder) Terminated() bool { return b.cur != nil && b.cur.terminated() }

func (b *Builder) newTemp(typ Type, op Op, args ...Value) Value {
	b.mod.tempSeq++
	res := Temp{ID: b.mod.tempSeq}
	b.cur.append(&Instruction{Op: op, Typ: typ, Result: res, Args: args})
	return res
}

// Alloca reserves stack storage of typ in the current (always entry)
// block and returns the pointer-valued Temp naming it.
func (b *Builder) Alloca(typ Type) Value { return b.newTemp(Ptr, OpAlloca, Const{Typ: I32, Val: int64(typ)}) }

// Load reads typ from addr.
func (b *Builder) Load(typ Type, addr Value) Value { return b.newTemp(typ, OpLoad, addr) }

// Store writes val, of type typ, to addr; it produces no value. typ is
// recorded on the instruction (rather than re-derived from val's Go
// kind during lowering) so codegen can pick the correctly-sized QBE
// store suffix for every em type, not just the ones a Const/FloatConst
// happens to disambiguate on its own.
func (b *Builder) Store(addr, val Value, typ Type) {
	b.cur.append(&Instruction{Op: OpStore, Args: []Value{addr, val}, ArgTypes: []Type{0, typ}})
}

func (b *Builder) bin(op Op, typ Type, l, r Value) Value { return b.newTemp(typ, op, l, r) }

func (b *Builder) Add(typ Type, l, r Value) Value { return b.bin(OpAdd, typ, l, r) }
func (b *Builder) Sub(typ Type, l, r Value) Value { return b.bin(OpSub, typ, l, r) }
func (b *Builder) Mul(typ Type, l, r Value) Value { return b.bin(OpMul, typ, l, r) }
func (b *Builder) Div(typ Type, l, r Value) Value { return b.bin(OpDiv, typ, l, r) }
func (b *Builder) Rem(typ Type, l, r Value) Value { return b.bin(OpRem, typ, l, r) }
func (b *Builder) And(typ Type, l, r Value) Value { return b.bin(OpAnd, typ, l, r) }
func (b *Builder) Or(typ Type, l, r Value) Value  { return b.bin(OpOr, typ, l, r) }
func (b *Builder) Xor(typ Type, l, r Value) Value { return b.bin(OpXor, typ, l, r) }
func (b *Builder) Shl(typ Type, l, r Value) Value { return b.bin(OpShl, typ, l, r) }
func (b *Builder) Shr(typ Type, l, r Value) Value { return b.bin(OpShr, typ, l, r) }

func (b *Builder) Neg(typ Type, v Value) Value { return b.newTemp(typ, OpNeg, v) }
func (b *Builder) Not(typ Type, v Value) Value { return b.newTemp(typ, OpNot, v) }

func (b *Builder) cmp(op Op, l, r Value) Value { return b.newTemp(I1, op, l, r) }

func (b *Builder) CmpEq(l, r Value) Value { return b.cmp(OpCmpEq, l, r) }
func (b *Builder) CmpNe(l, r Value) Value { return b.cmp(OpCmpNe, l, r) }
func (b *Builder) CmpLt(l, r Value) Value { return b.cmp(OpCmpLt, l, r) }
func (b *Builder) CmpGt(l, r Value) Value { return b.cmp(OpCmpGt, l, r) }
func (b *Builder) CmpLe(l, r Value) Value { return b.cmp(OpCmpLe, l, r) }
func (b *Builder) CmpGe(l, r Value) Value { return b.cmp(OpCmpGe, l, r) }

// SiToFp/FpToSi implement the signed int <-> float casts the Return
// and mixed-arithmetic rules of spec.md §4.3 need ("CastValue").
func (b *Builder) SiToFp(v Value) Value { return b.newTemp(F32, OpSiToFp, v) }
func (b *Builder) FpToSi(v Value) Value { return b.newTemp(I32, OpFpToSi, v) }

// Call emits a call to callee and returns its result Temp, or nil for
// a void callee. argTypes pairs 1:1 with args so codegen can pick each
// argument's correctly-sized QBE type instead of guessing from its Go
// value kind; it may be shorter than args (or nil) for calls lowered
// before argument types were tracked, in which case codegen treats an
// untyped FloatConst argument as F32 and any other untyped one as I32.
func (b *Builder) Call(callee string, ret Type, argTypes []Type, args ...Value) Value {
	if ret == Void {
		b.cur.append(&Instruction{Op: OpCall, Typ: Void, Callee: callee, Args: args, ArgTypes: argTypes})
		return nil
	}
	b.mod.tempSeq++
	res := Temp{ID: b.mod.tempSeq}
	b.cur.append(&Instruction{Op: OpCall, Typ: ret, Result: res, Callee: callee, Args: args, ArgTypes: argTypes})
	return res
}

// Br unconditionally terminates the current block by branching to target.
func (b *Builder) Br(target *BasicBlock) {
	b.cur.append(&Instruction{Op: OpBr, Args: []Value{Label{Name: target.Label}}})
}

// CondBr terminates the current block with a two-way branch.
func (b *Builder) CondBr(cond Value, then, els *BasicBlock) {
	b.cur.append(&Instruction{Op: OpCondBr, Args: []Value{cond, Label{Name: then.Label}, Label{Name: els.Label}}})
}

// Phi merges values from predecessor blocks, used for short-circuit
// boolean evaluation (spec.md §4.3 Binary: "&&/|| lower via phi-merge
// of the short-circuit paths").
func (b *Builder) Phi(typ Type, blocks []string, vals []Value) Value {
	b.mod.tempSeq++
	res := Temp{ID: b.mod.tempSeq}
	b.cur.append(&Instruction{Op: OpPhi, Typ: typ, Result: res, Args: vals, PhiBlocks: blocks})
	return res
}

// Ret terminates the current block returning val.
func (b *Builder) Ret(val Value) {
	b.cur.append(&Instruction{Op: OpRet, Args: []Value{val}})
}

// RetVoid terminates the current block with a bare return.
func (b *Builder) RetVoid() {
	b.cur.append(&Instruction{Op: OpRetVoid})
}

// GlobalZero declares a zero-initialised module-level variable.
func (b *Builder) GlobalZero(name string, typ Type) Value {
	b.mod.Globals = append(b.mod.Globals, &GlobalVar{Name: name, Typ: typ})
	return Global{Name: name}
}

// GlobalInit declares a module-level variable with a constant initialiser.
func (b *Builder) GlobalInit(name string, typ Type, init Value) Value {
	b.mod.Globals = append(b.mod.Globals, &GlobalVar{Name: name, Typ: typ, Init: init})
	return Global{Name: name}
}

// StringLiteral interns val as a deduplicated global string constant
// and returns its address.
func (b *Builder) StringLiteral(val string) Value {
	return Global{Name: b.mod.InternString(val)}
}
