package ir

import "fmt"

// VerifyFunction checks the one invariant the emitter must never
// violate: every block of the function is non-empty and its last
// instruction is a terminator. Mirrors the
// "VerifyFunction/VerifyModule" collaborator calls of spec.md §6.3,
// run once per function right after emission and once per module
// after the driver's post-barrier relocation.
func VerifyFunction(fn *Function) error {
	if !fn.HasBody {
		return nil
	}
	if len(fn.Blocks) == 0 {
		return fmt.Errorf("function %q has a body but no basic blocks", fn.Name)
	}
	for _, b := range fn.Blocks {
		if len(b.Instructions) == 0 {
			return fmt.Errorf("function %q: block %q is empty", fn.Name, b.Label)
		}
		if !b.terminated() {
			return fmt.Errorf("function %q: block %q does not end in a terminator", fn.Name, b.Label)
		}
	}
	return nil
}

// VerifyModule verifies every function and checks that every OpCall
// target and every branch target resolves within the module.
func VerifyModule(m *Module) error {
	for _, fn := range m.Funcs {
		if err := VerifyFunction(fn); err != nil {
			return err
		}
		for _, b := range fn.Blocks {
			for _, in := range b.Instructions {
				if in.Op == OpCall {
					if m.FindFunc(in.Callee) == nil {
						return fmt.Errorf("function %q: call to undefined function %q", fn.Name, in.Callee)
					}
				}
				if in.Op == OpBr || in.Op == OpCondBr {
					for _, arg := range in.Args {
						if lbl, ok := arg.(Label); ok {
							if fn.Block(lbl.Name) == nil {
								return fmt.Errorf("function %q: branch to undefined block %q", fn.Name, lbl.Name)
							}
						}
					}
				}
			}
		}
	}
	return nil
}
