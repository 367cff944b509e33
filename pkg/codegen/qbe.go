// Package codegen lowers this compiler's own ir.Module into QBE's
// textual SSA IR and invokes modernc.org/libqbe to produce target
// assembly. Only this package is allowed to know QBE exists — every
// package upstream of it (lexer, parser, ast, emit) only ever deals in
// pkg/ir's own types (spec.md §6.3).
package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"modernc.org/libqbe"

	"github.com/emlang/emc/pkg/config"
	"github.com/emlang/emc/pkg/ir"
)

func qbeType(t ir.Type) string {
	switch t {
	case ir.I1, ir.I8:
		return "b"
	case ir.I32:
		return "w"
	case ir.F32:
		return "s"
	case ir.Ptr:
		return "l"
	case ir.Void:
		return ""
	}
	return "w"
}

// Generate lowers mod to QBE text, then runs it through libqbe.Main
// for cfg.TargetTriple and returns the resulting assembly.
func Generate(mod *ir.Module, cfg *config.Config) (*bytes.Buffer, error) {
	qbeIR := lower(mod)
	var asm bytes.Buffer
	if err := libqbe.Main(cfg.TargetTriple, "module.ssa", strings.NewReader(qbeIR), &asm, nil); err != nil {
		return nil, fmt.Errorf("qbe backend: %w", err)
	}
	return &asm, nil
}

// TextualIR returns the intermediate QBE text itself, for the -ll
// dump flag (spec.md §6.1).
func TextualIR(mod *ir.Module) string { return lower(mod) }

func lower(mod *ir.Module) string {
	var b strings.Builder
	for _, s := range mod.Strings {
		fmt.Fprintf(&b, "data $%s = { b %s, b 0 }\n", s.Name, qbeByteList(s.Val))
	}
	for _, g := range mod.Globals {
		if g.Init == nil {
			fmt.Fprintf(&b, "data $%s = { %s 0 }\n", g.Name, qbeType(g.Typ))
		} else {
			fmt.Fprintf(&b, "data $%s = { %s %s }\n", g.Name, qbeType(g.Typ), qbeConst(g.Init))
		}
	}
	for _, fn := range mod.Funcs {
		if !fn.HasBody {
			continue
		}
		lowerFunc(&b, fn)
	}
	return b.String()
}

func qbeByteList(s string) string {
	parts := make([]string, len(s))
	for i := 0; i < len(s); i++ {
		parts[i] = fmt.Sprintf("%d", s[i])
	}
	return strings.Join(parts, ", b ")
}

func qbeConst(v ir.Value) string {
	switch x := v.(type) {
	case ir.Const:
		return fmt.Sprintf("%d", x.Val)
	case ir.FloatConst:
		return fmt.Sprintf("%g", x.Val)
	}
	return "0"
}

func lowerFunc(b *strings.Builder, fn *ir.Function) {
	exported := "export "
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = fmt.Sprintf("%s %%arg.%s", qbeType(p.Typ), p.Name)
	}
	ret := qbeType(fn.ReturnType)
	if ret == "" {
		fmt.Fprintf(b, "%sfunction $%s(%s) {\n", exported, fn.Name, strings.Join(params, ", "))
	} else {
		fmt.Fprintf(b, "%sfunction %s $%s(%s) {\n", exported, ret, fn.Name, strings.Join(params, ", "))
	}
	for _, blk := range fn.Blocks {
		fmt.Fprintf(b, "@%s\n", blk.Label)
		for _, in := range blk.Instructions {
			lowerInstruction(b, in)
		}
	}
	b.WriteString("}\n")
}

func operand(v ir.Value) string {
	switch x := v.(type) {
	case ir.Const:
		return fmt.Sprintf("%d", x.Val)
	case ir.FloatConst:
		return fmt.Sprintf("%g", x.Val)
	case ir.Global:
		if strings.HasPrefix(x.Name, "%arg.") {
			return "%" + strings.TrimPrefix(x.Name, "%")
		}
		return "$" + x.Name
	case ir.Temp:
		return fmt.Sprintf("%%t%d", x.ID)
	case ir.Label:
		return "@" + x.Name
	}
	return "0"
}

func lowerInstruction(b *strings.Builder, in *ir.Instruction) {
	res := ""
	if in.Result != nil {
		res = operand(in.Result) + " =" + qbeType(in.Typ) + " "
	}
	switch in.Op {
	case ir.OpAlloca:
		allocated := ir.Type(in.Args[0].(ir.Const).Val)
		fmt.Fprintf(b, "  %salloc%d %d\n", res, allocaAlign(allocated), typeSize(allocated))
	case ir.OpLoad:
		fmt.Fprintf(b, "  %sload%s %s\n", res, qbeLoadSuffix(in.Typ), operand(in.Args[0]))
	case ir.OpStore:
		fmt.Fprintf(b, "  store%s %s, %s\n", qbeType(argType(in, 1)), operand(in.Args[1]), operand(in.Args[0]))
	case ir.OpAdd:
		fmt.Fprintf(b, "  %sadd %s, %s\n", res, operand(in.Args[0]), operand(in.Args[1]))
	case ir.OpSub:
		fmt.Fprintf(b, "  %ssub %s, %s\n", res, operand(in.Args[0]), operand(in.Args[1]))
	case ir.OpMul:
		fmt.Fprintf(b, "  %smul %s, %s\n", res, operand(in.Args[0]), operand(in.Args[1]))
	case ir.OpDiv:
		fmt.Fprintf(b, "  %sdiv %s, %s\n", res, operand(in.Args[0]), operand(in.Args[1]))
	case ir.OpRem:
		fmt.Fprintf(b, "  %srem %s, %s\n", res, operand(in.Args[0]), operand(in.Args[1]))
	case ir.OpAnd:
		fmt.Fprintf(b, "  %sand %s, %s\n", res, operand(in.Args[0]), operand(in.Args[1]))
	case ir.OpOr:
		fmt.Fprintf(b, "  %sor %s, %s\n", res, operand(in.Args[0]), operand(in.Args[1]))
	case ir.OpXor:
		fmt.Fprintf(b, "  %sxor %s, %s\n", res, operand(in.Args[0]), operand(in.Args[1]))
	case ir.OpShl:
		fmt.Fprintf(b, "  %sshl %s, %s\n", res, operand(in.Args[0]), operand(in.Args[1]))
	case ir.OpShr:
		fmt.Fprintf(b, "  %sshr %s, %s\n", res, operand(in.Args[0]), operand(in.Args[1]))
	case ir.OpNeg:
		fmt.Fprintf(b, "  %sneg %s\n", res, operand(in.Args[0]))
	case ir.OpNot:
		fmt.Fprintf(b, "  %sxor %s, -1\n", res, operand(in.Args[0]))
	case ir.OpCmpEq:
		fmt.Fprintf(b, "  %sceqw %s, %s\n", res, operand(in.Args[0]), operand(in.Args[1]))
	case ir.OpCmpNe:
		fmt.Fprintf(b, "  %scnew %s, %s\n", res, operand(in.Args[0]), operand(in.Args[1]))
	case ir.OpCmpLt:
		fmt.Fprintf(b, "  %scsltw %s, %s\n", res, operand(in.Args[0]), operand(in.Args[1]))
	case ir.OpCmpGt:
		fmt.Fprintf(b, "  %scsgtw %s, %s\n", res, operand(in.Args[0]), operand(in.Args[1]))
	case ir.OpCmpLe:
		fmt.Fprintf(b, "  %scslew %s, %s\n", res, operand(in.Args[0]), operand(in.Args[1]))
	case ir.OpCmpGe:
		fmt.Fprintf(b, "  %scsgew %s, %s\n", res, operand(in.Args[0]), operand(in.Args[1]))
	case ir.OpSiToFp:
		fmt.Fprintf(b, "  %sswtof %s\n", res, operand(in.Args[0]))
	case ir.OpFpToSi:
		fmt.Fprintf(b, "  %sstosi %s\n", res, operand(in.Args[0]))
	case ir.OpCall:
		args := make([]string, len(in.Args))
		for i, a := range in.Args {
			args[i] = fmt.Sprintf("%s %s", qbeType(argType(in, i)), operand(a))
		}
		fmt.Fprintf(b, "  %scall $%s(%s)\n", res, in.Callee, strings.Join(args, ", "))
	case ir.OpBr:
		fmt.Fprintf(b, "  jmp %s\n", operand(in.Args[0]))
	case ir.OpCondBr:
		fmt.Fprintf(b, "  jnz %s, %s, %s\n", operand(in.Args[0]), operand(in.Args[1]), operand(in.Args[2]))
	case ir.OpPhi:
		parts := make([]string, len(in.Args))
		for i, a := range in.Args {
			parts[i] = fmt.Sprintf("@%s %s", in.PhiBlocks[i], operand(a))
		}
		fmt.Fprintf(b, "  %sphi %s\n", res, strings.Join(parts, ", "))
	case ir.OpRet:
		fmt.Fprintf(b, "  ret %s\n", operand(in.Args[0]))
	case ir.OpRetVoid:
		b.WriteString("  ret\n")
	}
}

func allocaAlign(t ir.Type) int {
	switch t {
	case ir.I8, ir.I1:
		return 4
	case ir.F32, ir.I32:
		return 4
	default:
		return 8
	}
}

func typeSize(t ir.Type) int {
	switch t {
	case ir.I1, ir.I8:
		return 1
	case ir.I32, ir.F32:
		return 4
	case ir.Ptr:
		return 8
	}
	return 4
}

func qbeLoadSuffix(t ir.Type) string {
	switch t {
	case ir.I1, ir.I8:
		return "ub"
	case ir.I32:
		return "w"
	case ir.F32:
		return "s"
	case ir.Ptr:
		return "l"
	}
	return "w"
}

// argType returns the em-level type the emitter recorded for
// in.Args[i] (Store's stored value, or a Call argument). Instructions
// lowered before argument-type tracking existed (none in this
// package, but ir_test.go builds some by hand) fall back to F32 for a
// FloatConst and to I32 for any other value.
func argType(in *ir.Instruction, i int) ir.Type {
	if i < len(in.ArgTypes) && in.ArgTypes[i] != 0 {
		return in.ArgTypes[i]
	}
	if _, ok := in.Args[i].(ir.FloatConst); ok {
		return ir.F32
	}
	return ir.I32
}
