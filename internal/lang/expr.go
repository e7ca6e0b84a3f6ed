// Package lang defines the decomposition engine's view of the expression
// grammar: a closed tagged-variant AST, concrete values, environments, and a
// tree-walking evaluator. The full grammar lives in the embedding search
// procedure; the engine only ever needs the shapes below plus an opaque
// rebuild-with-hole continuation carried by the guide.
package lang

import (
	"fmt"
	"strings"
)

// Expr is the closed set of expression shapes the engine can see.
type Expr interface {
	isExpr()
	String() string
}

// UnaryOp identifies a unary operator.
type UnaryOp string

const (
	OpNot UnaryOp = "not"
	OpNeg UnaryOp = "neg"
)

// BinaryOp identifies a binary operator.
type BinaryOp string

const (
	OpAnd BinaryOp = "and"
	OpOr  BinaryOp = "or"
	OpEq  BinaryOp = "eq"
	OpNe  BinaryOp = "ne"
	OpLt  BinaryOp = "lt"
	OpLe  BinaryOp = "le"
	OpGt  BinaryOp = "gt"
	OpGe  BinaryOp = "ge"
	OpAdd BinaryOp = "add"
	OpSub BinaryOp = "sub"
	OpMul BinaryOp = "mul"
)

// Var references a bound variable by name.
type Var struct {
	Name string
}

// Lit wraps a concrete value as an expression.
type Lit struct {
	Val Value
}

// Unary applies a unary operator.
type Unary struct {
	Op      UnaryOp
	Operand Expr
}

// Binary applies a binary operator. And/Or short-circuit.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// If is a two-armed conditional.
type If struct {
	Cond Expr
	Then Expr
	Else Expr
}

// Let binds Name to Value inside Body.
type Let struct {
	Name  string
	Value Expr
	Body  Expr
}

// Case is one arm of a Match. A Wildcard case matches any scrutinee and
// binds nothing; otherwise the case matches Data values with the given
// constructor, binding Binders to the constructor's fields in order.
type Case struct {
	Ctor     string
	Binders  []string
	Wildcard bool
	Body     Expr
}

// Match scrutinizes a value against an ordered list of cases.
type Match struct {
	Scrutinee Expr
	Cases     []Case
}

// Con applies a data constructor to argument expressions.
type Con struct {
	Ctor string
	Args []Expr
}

// Test is true iff the scrutinee is a Data value with the given constructor.
type Test struct {
	Scrutinee Expr
	Ctor      string
}

// Sel extracts field Index of a Data value with the given constructor.
// Evaluation fails on any other value.
type Sel struct {
	Scrutinee Expr
	Ctor      string
	Index     int
}

// Choice is the designated free boolean occurrence used by angelic
// evaluation. The plain evaluator refuses it.
type Choice struct{}

// Placeholder marks the slot of a rebuild template that a solved term is
// substituted into. It never evaluates.
type Placeholder struct{}

func (Var) isExpr()         {}
func (Lit) isExpr()         {}
func (Unary) isExpr()       {}
func (Binary) isExpr()      {}
func (If) isExpr()          {}
func (Let) isExpr()         {}
func (Match) isExpr()       {}
func (Con) isExpr()         {}
func (Test) isExpr()        {}
func (Sel) isExpr()         {}
func (Choice) isExpr()      {}
func (Placeholder) isExpr() {}

func (e Var) String() string { return e.Name }
func (e Lit) String() string { return e.Val.String() }

func (e Unary) String() string {
	if e.Op == OpNot {
		return fmt.Sprintf("not(%s)", e.Operand)
	}
	return fmt.Sprintf("-(%s)", e.Operand)
}

var binarySyms = map[BinaryOp]string{
	OpAnd: "&&", OpOr: "||",
	OpEq: "==", OpNe: "!=",
	OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAdd: "+", OpSub: "-", OpMul: "*",
}

func (e Binary) String() string {
	sym, ok := binarySyms[e.Op]
	if !ok {
		sym = string(e.Op)
	}
	return fmt.Sprintf("(%s %s %s)", e.Left, sym, e.Right)
}

func (e If) String() string {
	return fmt.Sprintf("if %s then %s else %s", e.Cond, e.Then, e.Else)
}

func (e Let) String() string {
	return fmt.Sprintf("let %s = %s in %s", e.Name, e.Value, e.Body)
}

func (c Case) String() string {
	if c.Wildcard {
		return fmt.Sprintf("_ => %s", c.Body)
	}
	if len(c.Binders) == 0 {
		return fmt.Sprintf("%s => %s", c.Ctor, c.Body)
	}
	return fmt.Sprintf("%s(%s) => %s", c.Ctor, strings.Join(c.Binders, ", "), c.Body)
}

func (e Match) String() string {
	arms := make([]string, len(e.Cases))
	for i, c := range e.Cases {
		arms[i] = c.String()
	}
	return fmt.Sprintf("match %s { %s }", e.Scrutinee, strings.Join(arms, " | "))
}

func (e Con) String() string {
	if len(e.Args) == 0 {
		return e.Ctor
	}
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", e.Ctor, strings.Join(args, ", "))
}

func (e Test) String() string {
	return fmt.Sprintf("is%s(%s)", e.Ctor, e.Scrutinee)
}

func (e Sel) String() string {
	return fmt.Sprintf("%s.%s#%d", e.Scrutinee, e.Ctor, e.Index)
}

func (Choice) String() string      { return "?choice" }
func (Placeholder) String() string { return "?hole" }

// Shape is the top-level classification of a guide expression.
type Shape int

const (
	ShapeOpaque Shape = iota
	ShapeConditional
	ShapePatternMatch
	ShapeBinding
)

func (s Shape) String() string {
	switch s {
	case ShapeConditional:
		return "conditional"
	case ShapePatternMatch:
		return "pattern-match"
	case ShapeBinding:
		return "binding"
	default:
		return "opaque"
	}
}

// ShapeOf reports the top-level shape of an expression.
func ShapeOf(e Expr) Shape {
	switch e.(type) {
	case If:
		return ShapeConditional
	case Match:
		return ShapePatternMatch
	case Let:
		return ShapeBinding
	default:
		return ShapeOpaque
	}
}

// Convenience constructors used throughout the engine.

// True returns the boolean literal true.
func True() Expr { return Lit{Val: Bool(true)} }

// False returns the boolean literal false.
func False() Expr { return Lit{Val: Bool(false)} }

// Not negates e, collapsing double negation and boolean literals.
func Not(e Expr) Expr {
	switch v := e.(type) {
	case Unary:
		if v.Op == OpNot {
			return v.Operand
		}
	case Lit:
		if b, ok := v.Val.(Bool); ok {
			return Lit{Val: Bool(!b)}
		}
	}
	return Unary{Op: OpNot, Operand: e}
}

// And conjoins two expressions, absorbing literal true.
func And(a, b Expr) Expr {
	if IsTrue(a) {
		return b
	}
	if IsTrue(b) {
		return a
	}
	return Binary{Op: OpAnd, Left: a, Right: b}
}

// Or disjoins two expressions, absorbing literal false.
func Or(a, b Expr) Expr {
	if IsFalse(a) {
		return b
	}
	if IsFalse(b) {
		return a
	}
	return Binary{Op: OpOr, Left: a, Right: b}
}

// IsTrue reports whether e is the literal true.
func IsTrue(e Expr) bool {
	l, ok := e.(Lit)
	if !ok {
		return false
	}
	b, ok := l.Val.(Bool)
	return ok && bool(b)
}

// IsFalse reports whether e is the literal false.
func IsFalse(e Expr) bool {
	l, ok := e.(Lit)
	if !ok {
		return false
	}
	b, ok := l.Val.(Bool)
	return ok && !bool(b)
}

// Int64 returns an integer literal.
func Int64(n int64) Expr { return Lit{Val: Int(n)} }
