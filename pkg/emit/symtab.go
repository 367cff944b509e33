package emit

import (
	"github.com/emlang/emc/pkg/ast"
	"github.com/emlang/emc/pkg/ir"
)

// binding is what a declared name resolves to during emission: the
// storage address backing it (an alloca pointer for a local, a Global
// for a module-level variable) plus its declared type, used for the
// int/float coercion rules of spec.md §4.3.
type binding struct {
	addr ir.Value
	typ  ast.DataType
}

type scope struct {
	names  map[string]binding
	parent *scope
}

// SymbolTable is the IR-emission pass's own name table (spec.md §3):
// distinct from lexer.SymbolTable, it maps a declared name straight to
// the storage address the emitter allocated for it rather than to
// parse-time metadata. It is rebuilt fresh per file and still nests
// scopes on block entry/exit so that a name shadowed in an inner block
// resolves to the right storage once emission reaches it — the same
// visibility rule the parser already enforced, just carried forward
// so code generation doesn't have to re-derive it.
type SymbolTable struct {
	top       *scope
	globals   map[string]binding
	loopStack []loopTargets
}

// loopTargets is one entry of the loop-terminals stack spec.md §3
// requires: the basic blocks Break and Continue branch to for the
// innermost enclosing loop.
type loopTargets struct {
	breakTarget    *ir.BasicBlock
	continueTarget *ir.BasicBlock
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		globals: make(map[string]binding),
		top:     &scope{names: make(map[string]binding)},
	}
}

func (st *SymbolTable) PushScope() { st.top = &scope{names: make(map[string]binding), parent: st.top} }

func (st *SymbolTable) PopScope() {
	if st.top.parent != nil {
		st.top = st.top.parent
	}
}

func (st *SymbolTable) DeclareLocal(name string, b binding) { st.top.names[name] = b }

func (st *SymbolTable) DeclareGlobal(name string, b binding) { st.globals[name] = b }

func (st *SymbolTable) Lookup(name string) (binding, bool) {
	for s := st.top; s != nil; s = s.parent {
		if b, ok := s.names[name]; ok {
			return b, true
		}
	}
	if b, ok := st.globals[name]; ok {
		return b, true
	}
	return binding{}, false
}

func (st *SymbolTable) PushLoop(t loopTargets) { st.loopStack = append(st.loopStack, t) }
func (st *SymbolTable) PopLoop()               { st.loopStack = st.loopStack[:len(st.loopStack)-1] }
func (st *SymbolTable) CurrentLoop() loopTargets {
	return st.loopStack[len(st.loopStack)-1]
}
