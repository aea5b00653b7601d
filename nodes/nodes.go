package nodes

import (
	"fmt"
	"strings"
)

// Position represents source code position information
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// NewPosition creates a new Position
func NewPosition(line, column int) Position {
	return Position{
		Line:   line,
		Column: column,
	}
}

// Node represents the base interface for all AST nodes
type Node interface {
	// GetPosition returns the position information for this node
	GetPosition() Position

	// SetPosition sets the position information for this node
	SetPosition(pos Position)

	// GetChildren returns all child nodes
	GetChildren() []Node

	// Accept implements the visitor pattern
	Accept(visitor Visitor) interface{}

	// String returns a string representation of the node
	String() string

	// Type returns the node type for identification
	Type() string
}

// BaseNode provides common functionality for all nodes
type BaseNode struct {
	Pos Position `json:"pos"`
}

// GetPosition returns the position information
func (n *BaseNode) GetPosition() Position {
	return n.Pos
}

// SetPosition sets the position information
func (n *BaseNode) SetPosition(pos Position) {
	n.Pos = pos
}

// GetChildren returns the base implementation (empty slice)
func (n *BaseNode) GetChildren() []Node {
	return []Node{}
}

// Type returns the node type name
func (n *BaseNode) Type() string {
	return "BaseNode"
}

// Visitor implements the visitor pattern for AST traversal
type Visitor interface {
	Visit(node Node) interface{}
}

// NodeVisitorFunc is a function adapter for Visitor interface
type NodeVisitorFunc func(node Node) interface{}

func (f NodeVisitorFunc) Visit(node Node) interface{} {
	return f(node)
}

// Walk traverses the AST using the visitor pattern
func Walk(visitor Visitor, node Node) {
	if node == nil {
		return
	}

	result := visitor.Visit(node)
	if result != nil {
		// If visitor returns non-nil, stop traversal
		return
	}

	for _, child := range node.GetChildren() {
		Walk(visitor, child)
	}
}

// Stmt represents statement nodes
type Stmt interface {
	Node
	isStmt()
}

func (n *BaseStmt) isStmt() {}

// BaseStmt provides common functionality for statement nodes
type BaseStmt struct {
	BaseNode
}

func (n *BaseStmt) Type() string {
	return "Stmt"
}

// Expr represents expression nodes
type Expr interface {
	Node
	isExpr()

	// CanAssign checks if the expression can be assigned to
	CanAssign() bool
}

func (n *BaseExpr) isExpr() {}

// BaseExpr provides common functionality for expression nodes
type BaseExpr struct {
	BaseNode
}

func (n *BaseExpr) Type() string {
	return "Expr"
}

func (n *BaseExpr) CanAssign() bool {
	return false
}

// Declaration kinds
const (
	DeclConst = "const"
	DeclLet   = "let"
	DeclVar   = "var"
)

// Program is the root node of a parsed script or expression
type Program struct {
	BaseNode
	Body []Stmt `json:"body"`
}

func (p *Program) Accept(visitor Visitor) interface{} {
	return visitor.Visit(p)
}

func (p *Program) GetChildren() []Node {
	children := make([]Node, len(p.Body))
	for i, stmt := range p.Body {
		children[i] = stmt
	}
	return children
}

func (p *Program) String() string {
	return fmt.Sprintf("Program(body=%v)", p.Body)
}

func (p *Program) Type() string {
	return "Program"
}

// VarDecl represents `const|let|var name = value`
type VarDecl struct {
	BaseStmt
	Kind  string `json:"kind"`
	Name  string `json:"name"`
	Value Expr   `json:"value"`
}

func (v *VarDecl) Accept(visitor Visitor) interface{} {
	return visitor.Visit(v)
}

func (v *VarDecl) GetChildren() []Node {
	if v.Value != nil {
		return []Node{v.Value}
	}
	return []Node{}
}

func (v *VarDecl) String() string {
	return fmt.Sprintf("VarDecl(kind=%s, name=%s, value=%v)", v.Kind, v.Name, v.Value)
}

func (v *VarDecl) Type() string {
	return "VarDecl"
}

// ExprStmt represents an expression evaluated for its side effects
type ExprStmt struct {
	BaseStmt
	Node Expr `json:"node"`
}

func (e *ExprStmt) Accept(visitor Visitor) interface{} {
	return visitor.Visit(e)
}

func (e *ExprStmt) GetChildren() []Node {
	if e.Node != nil {
		return []Node{e.Node}
	}
	return []Node{}
}

func (e *ExprStmt) String() string {
	return fmt.Sprintf("ExprStmt(node=%v)", e.Node)
}

func (e *ExprStmt) Type() string {
	return "ExprStmt"
}

// Assign represents `target = value`, `target += value` and `target -= value`
type Assign struct {
	BaseStmt
	Target   Expr   `json:"target"`
	Value    Expr   `json:"value"`
	Operator string `json:"operator"`
}

func (a *Assign) Accept(visitor Visitor) interface{} {
	return visitor.Visit(a)
}

func (a *Assign) GetChildren() []Node {
	var children []Node
	if a.Target != nil {
		children = append(children, a.Target)
	}
	if a.Value != nil {
		children = append(children, a.Value)
	}
	return children
}

func (a *Assign) String() string {
	return fmt.Sprintf("Assign(target=%v, operator=%s, value=%v)", a.Target, a.Operator, a.Value)
}

func (a *Assign) Type() string {
	return "Assign"
}

// Return ends the enclosing function or script
type Return struct {
	BaseStmt
	Value Expr `json:"value"`
}

func (r *Return) Accept(visitor Visitor) interface{} {
	return visitor.Visit(r)
}

func (r *Return) GetChildren() []Node {
	if r.Value != nil {
		return []Node{r.Value}
	}
	return []Node{}
}

func (r *Return) String() string {
	return fmt.Sprintf("Return(value=%v)", r.Value)
}

func (r *Return) Type() string {
	return "Return"
}

// If represents an if statement
type If struct {
	BaseStmt
	Test Expr   `json:"test"`
	Body []Stmt `json:"body"`
	Else []Stmt `json:"else"`
}

func (i *If) Accept(visitor Visitor) interface{} {
	return visitor.Visit(i)
}

func (i *If) GetChildren() []Node {
	var children []Node
	if i.Test != nil {
		children = append(children, i.Test)
	}
	for _, stmt := range i.Body {
		children = append(children, stmt)
	}
	for _, stmt := range i.Else {
		children = append(children, stmt)
	}
	return children
}

func (i *If) String() string {
	return fmt.Sprintf("If(test=%v, body=%v, else=%v)", i.Test, i.Body, i.Else)
}

func (i *If) Type() string {
	return "If"
}

// Block represents a braced statement list with its own scope
type Block struct {
	BaseStmt
	Body []Stmt `json:"body"`
}

func (b *Block) Accept(visitor Visitor) interface{} {
	return visitor.Visit(b)
}

func (b *Block) GetChildren() []Node {
	children := make([]Node, len(b.Body))
	for i, stmt := range b.Body {
		children[i] = stmt
	}
	return children
}

func (b *Block) String() string {
	return fmt.Sprintf("Block(body=%v)", b.Body)
}

func (b *Block) Type() string {
	return "Block"
}

// Name represents a name lookup
type Name struct {
	BaseExpr
	Name string `json:"name"`
}

func (n *Name) Accept(visitor Visitor) interface{} {
	return visitor.Visit(n)
}

func (n *Name) GetChildren() []Node {
	return []Node{}
}

func (n *Name) String() string {
	return fmt.Sprintf("Name(name=%s)", n.Name)
}

func (n *Name) Type() string {
	return "Name"
}

func (n *Name) CanAssign() bool {
	switch n.Name {
	case "undefined", "NaN", "Infinity":
		return false
	}
	return true
}

// Const represents a literal number, string, boolean or null
type Const struct {
	BaseExpr
	Value interface{} `json:"value"`
}

func (c *Const) Accept(visitor Visitor) interface{} {
	return visitor.Visit(c)
}

func (c *Const) GetChildren() []Node {
	return []Node{}
}

func (c *Const) String() string {
	return fmt.Sprintf("Const(value=%v)", c.Value)
}

func (c *Const) Type() string {
	return "Const"
}

// TemplateLiteral represents a backtick string. Quasis always has one more
// element than Exprs.
type TemplateLiteral struct {
	BaseExpr
	Quasis []string `json:"quasis"`
	Exprs  []Expr   `json:"exprs"`
}

func (t *TemplateLiteral) Accept(visitor Visitor) interface{} {
	return visitor.Visit(t)
}

func (t *TemplateLiteral) GetChildren() []Node {
	children := make([]Node, len(t.Exprs))
	for i, expr := range t.Exprs {
		children[i] = expr
	}
	return children
}

func (t *TemplateLiteral) String() string {
	return fmt.Sprintf("TemplateLiteral(quasis=%q, exprs=%v)", t.Quasis, t.Exprs)
}

func (t *TemplateLiteral) Type() string {
	return "TemplateLiteral"
}

// Array represents an array literal
type Array struct {
	BaseExpr
	Items []Expr `json:"items"`
}

func (a *Array) Accept(visitor Visitor) interface{} {
	return visitor.Visit(a)
}

func (a *Array) GetChildren() []Node {
	children := make([]Node, len(a.Items))
	for i, item := range a.Items {
		children[i] = item
	}
	return children
}

func (a *Array) String() string {
	return fmt.Sprintf("Array(items=%v)", a.Items)
}

func (a *Array) Type() string {
	return "Array"
}

// Property is one entry of an object literal. Computed keys use KeyExpr,
// spread entries use Spread with a nil Value.
type Property struct {
	BaseNode
	Key     string `json:"key"`
	KeyExpr Expr   `json:"key_expr"`
	Value   Expr   `json:"value"`
	Spread  Expr   `json:"spread"`
}

func (p *Property) Accept(visitor Visitor) interface{} {
	return visitor.Visit(p)
}

func (p *Property) GetChildren() []Node {
	var children []Node
	if p.KeyExpr != nil {
		children = append(children, p.KeyExpr)
	}
	if p.Value != nil {
		children = append(children, p.Value)
	}
	if p.Spread != nil {
		children = append(children, p.Spread)
	}
	return children
}

func (p *Property) String() string {
	if p.Spread != nil {
		return fmt.Sprintf("Property(spread=%v)", p.Spread)
	}
	return fmt.Sprintf("Property(key=%s, value=%v)", p.Key, p.Value)
}

func (p *Property) Type() string {
	return "Property"
}

// Object represents an object literal
type Object struct {
	BaseExpr
	Props []*Property `json:"props"`
}

func (o *Object) Accept(visitor Visitor) interface{} {
	return visitor.Visit(o)
}

func (o *Object) GetChildren() []Node {
	children := make([]Node, len(o.Props))
	for i, prop := range o.Props {
		children[i] = prop
	}
	return children
}

func (o *Object) String() string {
	return fmt.Sprintf("Object(props=%v)", o.Props)
}

func (o *Object) Type() string {
	return "Object"
}

// Spread represents `...node` inside array literals and call arguments
type Spread struct {
	BaseExpr
	Node Expr `json:"node"`
}

func (s *Spread) Accept(visitor Visitor) interface{} {
	return visitor.Visit(s)
}

func (s *Spread) GetChildren() []Node {
	if s.Node != nil {
		return []Node{s.Node}
	}
	return []Node{}
}

func (s *Spread) String() string {
	return fmt.Sprintf("Spread(node=%v)", s.Node)
}

func (s *Spread) Type() string {
	return "Spread"
}

// Getattr represents attribute access (obj.attr, obj?.attr)
type Getattr struct {
	BaseExpr
	Node     Expr   `json:"node"`
	Attr     string `json:"attr"`
	Optional bool   `json:"optional"`
}

func (g *Getattr) Accept(visitor Visitor) interface{} {
	return visitor.Visit(g)
}

func (g *Getattr) GetChildren() []Node {
	if g.Node != nil {
		return []Node{g.Node}
	}
	return []Node{}
}

func (g *Getattr) String() string {
	return fmt.Sprintf("Getattr(node=%v, attr=%s, optional=%t)", g.Node, g.Attr, g.Optional)
}

func (g *Getattr) Type() string {
	return "Getattr"
}

func (g *Getattr) CanAssign() bool {
	return !g.Optional
}

// Getitem represents item access (obj[key], obj?.[key])
type Getitem struct {
	BaseExpr
	Node     Expr `json:"node"`
	Arg      Expr `json:"arg"`
	Optional bool `json:"optional"`
}

func (g *Getitem) Accept(visitor Visitor) interface{} {
	return visitor.Visit(g)
}

func (g *Getitem) GetChildren() []Node {
	var children []Node
	if g.Node != nil {
		children = append(children, g.Node)
	}
	if g.Arg != nil {
		children = append(children, g.Arg)
	}
	return children
}

func (g *Getitem) String() string {
	return fmt.Sprintf("Getitem(node=%v, arg=%v, optional=%t)", g.Node, g.Arg, g.Optional)
}

func (g *Getitem) Type() string {
	return "Getitem"
}

func (g *Getitem) CanAssign() bool {
	return !g.Optional
}

// Call represents a function call
type Call struct {
	BaseExpr
	Node     Expr   `json:"node"`
	Args     []Expr `json:"args"`
	Optional bool   `json:"optional"`
}

func (c *Call) Accept(visitor Visitor) interface{} {
	return visitor.Visit(c)
}

func (c *Call) GetChildren() []Node {
	var children []Node
	if c.Node != nil {
		children = append(children, c.Node)
	}
	for _, arg := range c.Args {
		children = append(children, arg)
	}
	return children
}

func (c *Call) String() string {
	return fmt.Sprintf("Call(node=%v, args=%v)", c.Node, c.Args)
}

func (c *Call) Type() string {
	return "Call"
}

// New represents `new Node(args)`
type New struct {
	BaseExpr
	Node Expr   `json:"node"`
	Args []Expr `json:"args"`
}

func (n *New) Accept(visitor Visitor) interface{} {
	return visitor.Visit(n)
}

func (n *New) GetChildren() []Node {
	var children []Node
	if n.Node != nil {
		children = append(children, n.Node)
	}
	for _, arg := range n.Args {
		children = append(children, arg)
	}
	return children
}

func (n *New) String() string {
	return fmt.Sprintf("New(node=%v, args=%v)", n.Node, n.Args)
}

func (n *New) Type() string {
	return "New"
}

// Arrow represents an arrow function. Exactly one of Expr and Body is set.
type Arrow struct {
	BaseExpr
	Params []string `json:"params"`
	Expr   Expr     `json:"expr"`
	Body   []Stmt   `json:"body"`
}

func (a *Arrow) Accept(visitor Visitor) interface{} {
	return visitor.Visit(a)
}

func (a *Arrow) GetChildren() []Node {
	if a.Expr != nil {
		return []Node{a.Expr}
	}
	children := make([]Node, len(a.Body))
	for i, stmt := range a.Body {
		children[i] = stmt
	}
	return children
}

func (a *Arrow) String() string {
	if a.Expr != nil {
		return fmt.Sprintf("Arrow(params=%v, expr=%v)", a.Params, a.Expr)
	}
	return fmt.Sprintf("Arrow(params=%v, body=%v)", a.Params, a.Body)
}

func (a *Arrow) Type() string {
	return "Arrow"
}

// UnaryExpr represents unary expressions (!, -, +, typeof)
type UnaryExpr struct {
	BaseExpr
	Node     Expr   `json:"node"`
	Operator string `json:"operator"`
}

func (u *UnaryExpr) Accept(visitor Visitor) interface{} {
	return visitor.Visit(u)
}

func (u *UnaryExpr) GetChildren() []Node {
	if u.Node != nil {
		return []Node{u.Node}
	}
	return []Node{}
}

func (u *UnaryExpr) String() string {
	return fmt.Sprintf("UnaryExpr(node=%v, operator=%s)", u.Node, u.Operator)
}

func (u *UnaryExpr) Type() string {
	return "UnaryExpr"
}

// BinExpr represents binary expressions, including the short-circuit
// operators &&, || and ??
type BinExpr struct {
	BaseExpr
	Left     Expr   `json:"left"`
	Right    Expr   `json:"right"`
	Operator string `json:"operator"`
}

func (b *BinExpr) Accept(visitor Visitor) interface{} {
	return visitor.Visit(b)
}

func (b *BinExpr) GetChildren() []Node {
	var children []Node
	if b.Left != nil {
		children = append(children, b.Left)
	}
	if b.Right != nil {
		children = append(children, b.Right)
	}
	return children
}

func (b *BinExpr) String() string {
	return fmt.Sprintf("BinExpr(left=%v, right=%v, operator=%s)",
		b.Left, b.Right, b.Operator)
}

func (b *BinExpr) Type() string {
	return "BinExpr"
}

// CondExpr represents `test ? expr1 : expr2`
type CondExpr struct {
	BaseExpr
	Test  Expr `json:"test"`
	Expr1 Expr `json:"expr1"`
	Expr2 Expr `json:"expr2"`
}

func (c *CondExpr) Accept(visitor Visitor) interface{} {
	return visitor.Visit(c)
}

func (c *CondExpr) GetChildren() []Node {
	var children []Node
	if c.Test != nil {
		children = append(children, c.Test)
	}
	if c.Expr1 != nil {
		children = append(children, c.Expr1)
	}
	if c.Expr2 != nil {
		children = append(children, c.Expr2)
	}
	return children
}

func (c *CondExpr) String() string {
	return fmt.Sprintf("CondExpr(test=%v, expr1=%v, expr2=%v)", c.Test, c.Expr1, c.Expr2)
}

func (c *CondExpr) Type() string {
	return "CondExpr"
}

// NewConst creates a positioned constant
func NewConst(value interface{}, line, column int) *Const {
	node := &Const{Value: value}
	node.SetPosition(NewPosition(line, column))
	return node
}

// NewName creates a positioned name lookup
func NewName(name string, line, column int) *Name {
	node := &Name{Name: name}
	node.SetPosition(NewPosition(line, column))
	return node
}

// NewBinExpr creates a binary expression positioned at its left operand
func NewBinExpr(operator string, left, right Expr) *BinExpr {
	node := &BinExpr{Left: left, Right: right, Operator: operator}
	if left != nil {
		node.SetPosition(left.GetPosition())
	}
	return node
}

// Dump returns an indented tree representation of a node, one node per line.
func Dump(node Node) string {
	if node == nil {
		return "nil"
	}

	var buf strings.Builder
	dumpNode(&buf, node, 0)
	return buf.String()
}

// dumpNode recursively dumps a node
func dumpNode(buf *strings.Builder, node Node, indent int) {
	buf.WriteString(strings.Repeat("  ", indent))
	buf.WriteString(node.Type())

	switch n := node.(type) {
	case *Const:
		buf.WriteString(fmt.Sprintf("(%#v)", n.Value))
	case *Name:
		buf.WriteString("(" + n.Name + ")")
	case *Getattr:
		buf.WriteString("(." + n.Attr + ")")
	case *VarDecl:
		buf.WriteString("(" + n.Kind + " " + n.Name + ")")
	case *BinExpr:
		buf.WriteString("(" + n.Operator + ")")
	case *UnaryExpr:
		buf.WriteString("(" + n.Operator + ")")
	case *Assign:
		buf.WriteString("(" + n.Operator + ")")
	case *Arrow:
		buf.WriteString("(" + strings.Join(n.Params, ", ") + ")")
	case *Property:
		if n.Spread == nil && n.KeyExpr == nil {
			buf.WriteString("(" + n.Key + ")")
		}
	}
	buf.WriteString("\n")

	for _, child := range node.GetChildren() {
		dumpNode(buf, child, indent+1)
	}
}
