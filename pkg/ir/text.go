package ir

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// Print renders m as this compiler's own textual IR. It is the
// "textual-IR print" half of the "print / re-parse round trip" that
// stands in for a bitcode round trip (spec.md §6.3): QBE's native
// interchange form is text, so relocating a Module built in one
// worker goroutine's context into the driver's shared context goes
// through this format rather than a binary encoding.
func Print(m *Module) string {
	var b strings.Builder
	b.WriteString("module\n")
	for _, s := range m.Strings {
		fmt.Fprintf(&b, "string %s %s\n", s.Name, quote(s.Val))
	}
	for _, g := range m.Globals {
		if g.Init == nil {
			fmt.Fprintf(&b, "global %s %s\n", g.Name, g.Typ)
		} else {
			fmt.Fprintf(&b, "global %s %s %s\n", g.Name, g.Typ, encodeValue(g.Init))
		}
	}
	for _, fn := range m.Funcs {
		kind := "proto"
		if fn.HasBody {
			kind = "body"
		}
		fmt.Fprintf(&b, "func %s %s %s\n", fn.Name, fn.ReturnType, kind)
		for _, p := range fn.Params {
			fmt.Fprintf(&b, "  param %s %s\n", p.Name, p.Typ)
		}
		for _, blk := range fn.Blocks {
			fmt.Fprintf(&b, "  block %s\n", blk.Label)
			for _, in := range blk.Instructions {
				printInstruction(&b, in)
			}
		}
		b.WriteString("endfunc\n")
	}
	b.WriteString("endmodule\n")
	return b.String()
}

func printInstruction(b *strings.Builder, in *Instruction) {
	result := "_"
	if in.Result != nil {
		result = encodeValue(in.Result)
	}
	fmt.Fprintf(b, "    %s = %s %s", result, opName[in.Op], in.Typ)
	if in.Callee != "" {
		fmt.Fprintf(b, " callee=%s", in.Callee)
	}
	if len(in.ArgTypes) > 0 {
		types := make([]string, len(in.ArgTypes))
		for i, t := range in.ArgTypes {
			types[i] = t.String()
		}
		fmt.Fprintf(b, " argtypes=%s", strings.Join(types, ","))
	}
	if in.Op == OpPhi {
		for i, a := range in.Args {
			fmt.Fprintf(b, " %s=%s", in.PhiBlocks[i], encodeValue(a))
		}
	} else {
		for _, a := range in.Args {
			fmt.Fprintf(b, " %s", encodeValue(a))
		}
	}
	b.WriteString("\n")
}

func encodeValue(v Value) string {
	switch x := v.(type) {
	case Const:
		return fmt.Sprintf("c:%s:%d", x.Typ, x.Val)
	case FloatConst:
		return fmt.Sprintf("f:%g", x.Val)
	case Global:
		return "g:" + x.Name
	case Temp:
		return fmt.Sprintf("t:%d", x.ID)
	case Label:
		return "l:" + x.Name
	default:
		return "?"
	}
}

func decodeValue(s string) (Value, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed value %q", s)
	}
	switch parts[0] {
	case "c":
		tv := strings.SplitN(parts[1], ":", 2)
		if len(tv) != 2 {
			return nil, fmt.Errorf("malformed const %q", s)
		}
		typ, err := typeFromString(tv[0])
		if err != nil {
			return nil, err
		}
		val, err := strconv.ParseInt(tv[1], 10, 64)
		if err != nil {
			return nil, err
		}
		return Const{Typ: typ, Val: val}, nil
	case "f":
		val, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, err
		}
		return FloatConst{Val: val}, nil
	case "g":
		return Global{Name: parts[1]}, nil
	case "t":
		id, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, err
		}
		return Temp{ID: id}, nil
	case "l":
		return Label{Name: parts[1]}, nil
	}
	return nil, fmt.Errorf("unknown value tag in %q", s)
}

var opName = map[Op]string{
	OpAlloca: "alloca", OpLoad: "load", OpStore: "store",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpRem: "rem",
	OpAnd: "and", OpOr: "or", OpXor: "xor", OpShl: "shl", OpShr: "shr",
	OpNeg: "neg", OpNot: "not",
	OpCmpEq: "cmpeq", OpCmpNe: "cmpne", OpCmpLt: "cmplt", OpCmpGt: "cmpgt", OpCmpLe: "cmple", OpCmpGe: "cmpge",
	OpSiToFp: "sitofp", OpFpToSi: "fptosi",
	OpCall: "call", OpBr: "br", OpCondBr: "condbr", OpPhi: "phi",
	OpRet: "ret", OpRetVoid: "retvoid",
}

var opByName = func() map[string]Op {
	m := make(map[string]Op, len(opName))
	for k, v := range opName {
		m[v] = k
	}
	return m
}()

func typeFromString(s string) (Type, error) {
	switch s {
	case "void":
		return Void, nil
	case "i1":
		return I1, nil
	case "i8":
		return I8, nil
	case "i32":
		return I32, nil
	case "f32":
		return F32, nil
	case "i8*":
		return Ptr, nil
	}
	return Void, fmt.Errorf("unknown type %q", s)
}

func quote(s string) string {
	return strconv.Quote(s)
}

// Parse reads back the output of Print into a fresh Module — the
// other half of the round trip. It is deliberately only required to
// round-trip text this package itself produced.
func Parse(text string) (*Module, error) {
	m := NewModule()
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var fn *Function
	var blk *BasicBlock

	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "module" || trimmed == "endmodule" {
			continue
		}
		// "string" is handled before field-splitting: strings.Fields
		// collapses runs of whitespace, which would corrupt a literal
		// containing two or more consecutive spaces on this round
		// trip. The quoted payload is always the rest of the line
		// after "string <name> ", so it is sliced out verbatim and
		// unquoted directly instead of being rejoined from fields.
		if rest, ok := strings.CutPrefix(trimmed, "string "); ok {
			sp := strings.IndexByte(rest, ' ')
			if sp < 0 {
				return nil, fmt.Errorf("malformed string constant line %q", line)
			}
			name, quoted := rest[:sp], rest[sp+1:]
			val, err := strconv.Unquote(quoted)
			if err != nil {
				return nil, fmt.Errorf("malformed string constant: %w", err)
			}
			m.Strings = append(m.Strings, &StringConst{Name: name, Val: val})
			m.strByVal[val] = name
			continue
		}

		fields := strings.Fields(trimmed)
		switch fields[0] {
		case "global":
			typ, err := typeFromString(fields[2])
			if err != nil {
				return nil, err
			}
			gv := &GlobalVar{Name: fields[1], Typ: typ}
			if len(fields) > 3 {
				v, err := decodeValue(fields[3])
				if err != nil {
					return nil, err
				}
				gv.Init = v
			}
			m.Globals = append(m.Globals, gv)
		case "func":
			ret, err := typeFromString(fields[2])
			if err != nil {
				return nil, err
			}
			fn = &Function{Name: fields[1], ReturnType: ret, HasBody: fields[3] == "body"}
			m.Funcs = append(m.Funcs, fn)
		case "param":
			typ, err := typeFromString(fields[2])
			if err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, Param{Name: fields[1], Typ: typ})
		case "block":
			blk = &BasicBlock{Label: fields[1]}
			fn.Blocks = append(fn.Blocks, blk)
		case "endfunc":
			fn = nil
			blk = nil
		default:
			if err := parseInstruction(blk, fields); err != nil {
				return nil, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// parseInstruction handles one "result = op type [callee=x] args..." line.
func parseInstruction(blk *BasicBlock, fields []string) error {
	if len(fields) < 3 || fields[1] != "=" {
		return fmt.Errorf("malformed instruction line %q", strings.Join(fields, " "))
	}
	op, ok := opByName[fields[2]]
	if !ok {
		return fmt.Errorf("unknown opcode %q", fields[2])
	}
	typ, err := typeFromString(fields[3])
	if err != nil {
		return err
	}
	in := &Instruction{Op: op, Typ: typ}
	if fields[0] != "_" {
		v, err := decodeValue(fields[0])
		if err != nil {
			return err
		}
		in.Result = v
	}
	rest := fields[4:]
	if len(rest) > 0 && strings.HasPrefix(rest[0], "callee=") {
		in.Callee = strings.TrimPrefix(rest[0], "callee=")
		rest = rest[1:]
	}
	if len(rest) > 0 && strings.HasPrefix(rest[0], "argtypes=") {
		for _, s := range strings.Split(strings.TrimPrefix(rest[0], "argtypes="), ",") {
			t, err := typeFromString(s)
			if err != nil {
				return err
			}
			in.ArgTypes = append(in.ArgTypes, t)
		}
		rest = rest[1:]
	}
	if op == OpPhi {
		for _, r := range rest {
			parts := strings.SplitN(r, "=", 2)
			if len(parts) != 2 {
				return fmt.Errorf("malformed phi operand %q", r)
			}
			v, err := decodeValue(parts[1])
			if err != nil {
				return err
			}
			in.PhiBlocks = append(in.PhiBlocks, parts[0])
			in.Args = append(in.Args, v)
		}
	} else {
		for _, r := range rest {
			v, err := decodeValue(r)
			if err != nil {
				return err
			}
			in.Args = append(in.Args, v)
		}
	}
	blk.Instructions = append(blk.Instructions, in)
	return nil
}
