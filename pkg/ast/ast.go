// Package ast defines the tagged-variant AST produced by the parser.
package ast

import "github.com/emlang/emc/pkg/token"

// DataType is the closed set of primitive types in the em grammar.
// Pointer/array/struct types are reserved for future work and are not
// represented here (spec.md §1 Non-goals).
type DataType int

const (
	TypeVoid DataType = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeChar
	TypeString
)

func (d DataType) String() string {
	switch d {
	case TypeVoid:
		return "void"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeChar:
		return "char"
	case TypeString:
		return "string"
	default:
		return "?"
	}
}

// DataTypeFromToken maps a data-type keyword token to a DataType.
func DataTypeFromToken(k token.Kind) (DataType, bool) {
	switch k {
	case token.Void:
		return TypeVoid, true
	case token.Bool:
		return TypeBool, true
	case token.Int:
		return TypeInt, true
	case token.Float:
		return TypeFloat, true
	case token.Char:
		return TypeChar, true
	case token.String:
		return TypeString, true
	}
	return TypeVoid, false
}

// Kind discriminates the variant held by a Node.
type Kind int

const (
	Identifier Kind = iota
	Literal
	Declaration
	Unary
	Binary
	FunctionCall
	FunctionDefinition
	If
	For
	While
	Return
	Jump
	Block
)

// JumpKind distinguishes break from continue (spec.md §3, Jump node).
type JumpKind int

const (
	JumpBreak JumpKind = iota
	JumpContinue
)

func (j JumpKind) String() string {
	if j == JumpBreak {
		return "break"
	}
	return "continue"
}

// Node is the single envelope type for every AST variant. Data holds
// one of the *Data structs below depending on Kind; callers switch on
// Kind and type-assert, matching the tagged-variant dispatch style
// spec.md §9 calls for ("Visitors take &AST and match on the tag").
type Node struct {
	Kind Kind
	Tok  token.Token
	Data any
}

// IdentifierData is the payload for Kind == Identifier.
type IdentifierData struct {
	Name string
}

// LiteralData is the payload for Kind == Literal.
type LiteralData struct {
	Type DataType
	// Exactly one of the following is meaningful, selected by Type.
	Bool   bool
	Int    int64
	Float  float64
	Char   byte
	String string
}

// DeclarationData is the payload for Kind == Declaration.
type DeclarationData struct {
	DataType DataType
	Name     string
}

// UnaryData is the payload for Kind == Unary.
type UnaryData struct {
	Op         token.Kind
	IsPostfix  bool
	Operand    *Node
}

// BinaryData is the payload for Kind == Binary.
type BinaryData struct {
	Op    token.Kind
	Left  *Node
	Right *Node
}

// FunctionCallData is the payload for Kind == FunctionCall.
type FunctionCallData struct {
	FunctionName string
	Args         []*Node
}

// Param is one formal parameter of a function definition/prototype.
type Param struct {
	Name string
	Type DataType
}

// FunctionDefinitionData is the payload for Kind == FunctionDefinition.
type FunctionDefinitionData struct {
	ReturnType   DataType
	FunctionName string
	Params       []Param
	IsPrototype  bool
	Body         []*Node // nil when IsPrototype
}

// IfData is the payload for Kind == If.
type IfData struct {
	Condition *Node
	Then      *Node
	Else      *Node // nil when there is no else-clause
}

// ForData is the payload for Kind == For.
type ForData struct {
	Init      *Node // nil if omitted
	Condition *Node // nil if omitted (treated as always-true)
	Increment *Node // nil if omitted
	Body      *Node
}

// WhileData is the payload for Kind == While.
type WhileData struct {
	Condition *Node
	Body      *Node
}

// ReturnData is the payload for Kind == Return.
type ReturnData struct {
	Value *Node // nil for bare `return;`
}

// JumpData is the payload for Kind == Jump.
type JumpData struct {
	Kind JumpKind
}

// BlockData is the payload for Kind == Block: a free-standing scoped
// block, distinct from the bodies owned directly by If/For/While nodes.
type BlockData struct {
	Stmts []*Node
}

// --- Constructors ---

func NewIdentifier(tok token.Token, name string) *Node {
	return &Node{Kind: Identifier, Tok: tok, Data: IdentifierData{Name: name}}
}

func NewBoolLiteral(tok token.Token, v bool) *Node {
	return &Node{Kind: Literal, Tok: tok, Data: LiteralData{Type: TypeBool, Bool: v}}
}

func NewIntLiteral(tok token.Token, v int64) *Node {
	return &Node{Kind: Literal, Tok: tok, Data: LiteralData{Type: TypeInt, Int: v}}
}

func NewFloatLiteral(tok token.Token, v float64) *Node {
	return &Node{Kind: Literal, Tok: tok, Data: LiteralData{Type: TypeFloat, Float: v}}
}

func NewCharLiteral(tok token.Token, v byte) *Node {
	return &Node{Kind: Literal, Tok: tok, Data: LiteralData{Type: TypeChar, Char: v}}
}

func NewStringLiteral(tok token.Token, v string) *Node {
	return &Node{Kind: Literal, Tok: tok, Data: LiteralData{Type: TypeString, String: v}}
}

func NewDeclaration(tok token.Token, dt DataType, name string) *Node {
	return &Node{Kind: Declaration, Tok: tok, Data: DeclarationData{DataType: dt, Name: name}}
}

func NewUnary(tok token.Token, op token.Kind, isPostfix bool, operand *Node) *Node {
	return &Node{Kind: Unary, Tok: tok, Data: UnaryData{Op: op, IsPostfix: isPostfix, Operand: operand}}
}

func NewBinary(tok token.Token, op token.Kind, left, right *Node) *Node {
	return &Node{Kind: Binary, Tok: tok, Data: BinaryData{Op: op, Left: left, Right: right}}
}

func NewFunctionCall(tok token.Token, name string, args []*Node) *Node {
	return &Node{Kind: FunctionCall, Tok: tok, Data: FunctionCallData{FunctionName: name, Args: args}}
}

func NewFunctionDefinition(tok token.Token, ret DataType, name string, params []Param, isProto bool, body []*Node) *Node {
	return &Node{Kind: FunctionDefinition, Tok: tok, Data: FunctionDefinitionData{
		ReturnType: ret, FunctionName: name, Params: params, IsPrototype: isProto, Body: body,
	}}
}

func NewIf(tok token.Token, cond, then, els *Node) *Node {
	return &Node{Kind: If, Tok: tok, Data: IfData{Condition: cond, Then: then, Else: els}}
}

func NewFor(tok token.Token, init, cond, inc, body *Node) *Node {
	return &Node{Kind: For, Tok: tok, Data: ForData{Init: init, Condition: cond, Increment: inc, Body: body}}
}

func NewWhile(tok token.Token, cond, body *Node) *Node {
	return &Node{Kind: While, Tok: tok, Data: WhileData{Condition: cond, Body: body}}
}

func NewReturn(tok token.Token, value *Node) *Node {
	return &Node{Kind: Return, Tok: tok, Data: ReturnData{Value: value}}
}

func NewJump(tok token.Token, kind JumpKind) *Node {
	return &Node{Kind: Jump, Tok: tok, Data: JumpData{Kind: kind}}
}

func NewBlock(tok token.Token, stmts []*Node) *Node {
	return &Node{Kind: Block, Tok: tok, Data: BlockData{Stmts: stmts}}
}

// Walk calls visit for every non-structural token-bearing node in
// source order, depth-first, matching spec.md §8's "walking yields
// every token in source order" testable property: a binary operator is
// visited between its left and right operands, a postfix unary
// operator after its operand, and every other node before its
// children. Structural container nodes (Block, FunctionDefinition's
// Body list) are traversed but not themselves re-visited beyond their
// own Tok.
func Walk(n *Node, visit func(*Node)) {
	if n == nil {
		return
	}
	switch d := n.Data.(type) {
	case BinaryData:
		Walk(d.Left, visit)
		visit(n)
		Walk(d.Right, visit)
		return
	case UnaryData:
		if d.IsPostfix {
			Walk(d.Operand, visit)
			visit(n)
			return
		}
	}
	visit(n)
	switch d := n.Data.(type) {
	case UnaryData:
		Walk(d.Operand, visit)
	case FunctionCallData:
		for _, a := range d.Args {
			Walk(a, visit)
		}
	case FunctionDefinitionData:
		for _, s := range d.Body {
			Walk(s, visit)
		}
	case IfData:
		Walk(d.Condition, visit)
		Walk(d.Then, visit)
		Walk(d.Else, visit)
	case ForData:
		Walk(d.Init, visit)
		Walk(d.Condition, visit)
		Walk(d.Increment, visit)
		Walk(d.Body, visit)
	case WhileData:
		Walk(d.Condition, visit)
		Walk(d.Body, visit)
	case ReturnData:
		Walk(d.Value, visit)
	case BlockData:
		for _, s := range d.Stmts {
			Walk(s, visit)
		}
	}
}
