// Package hole defines the synthesis sub-goal model: problems, path
// conditions, example banks, guides and solutions. Everything here is an
// immutable value; decomposition steps derive new problems instead of
// mutating old ones, so the engine is safe to run concurrently on distinct
// problems.
package hole

import (
	"strings"

	"subgoal/internal/lang"
)

// PathElem is one element of a path condition: a binding or a boolean clause.
type PathElem interface {
	isPathElem()
}

// Bind records a let-style binding accumulated along the path.
type Bind struct {
	Name  string
	Value lang.Expr
}

// Cond records a boolean assumption accumulated along the path.
type Cond struct {
	Expr lang.Expr
}

func (Bind) isPathElem() {}
func (Cond) isPathElem() {}

// Path is an ordered conjunction of bindings and boolean clauses. The zero
// value is the empty (trivially true) path. All operations are pure; the
// receiver's backing slice is never shared with the result's.
type Path struct {
	elems []PathElem
}

// NewPath builds a path from elements in order.
func NewPath(elems ...PathElem) Path {
	return Path{elems: append([]PathElem(nil), elems...)}
}

// Elems returns a copy of the path's elements in order.
func (p Path) Elems() []PathElem {
	return append([]PathElem(nil), p.elems...)
}

// Len reports the number of elements.
func (p Path) Len() int { return len(p.elems) }

// Merge appends q's elements after p's. Conjunction is preserved regardless
// of the order of independent clauses.
func (p Path) Merge(q Path) Path {
	out := make([]PathElem, 0, len(p.elems)+len(q.elems))
	out = append(out, p.elems...)
	out = append(out, q.elems...)
	return Path{elems: out}
}

// WithCond returns p extended with one boolean clause.
func (p Path) WithCond(e lang.Expr) Path {
	return p.Merge(Path{elems: []PathElem{Cond{Expr: e}}})
}

// WithBindings returns p extended with bindings in order.
func (p Path) WithBindings(binds ...Bind) Path {
	elems := make([]PathElem, len(binds))
	for i, b := range binds {
		elems[i] = b
	}
	return p.Merge(Path{elems: elems})
}

// ToClause folds the path into a single boolean expression: clauses are
// conjoined and bindings scope over everything that follows them.
func (p Path) ToClause() lang.Expr {
	clause := lang.True()
	for i := len(p.elems) - 1; i >= 0; i-- {
		switch el := p.elems[i].(type) {
		case Cond:
			clause = lang.And(el.Expr, clause)
		case Bind:
			if lang.IsTrue(clause) {
				continue
			}
			clause = lang.Let{Name: el.Name, Value: el.Value, Body: clause}
		}
	}
	return clause
}

// Negate returns the negation of the path's clause.
func (p Path) Negate() lang.Expr {
	return lang.Not(p.ToClause())
}

// String renders the path for logs and traces.
func (p Path) String() string {
	if len(p.elems) == 0 {
		return "true"
	}
	parts := make([]string, len(p.elems))
	for i, el := range p.elems {
		switch e := el.(type) {
		case Bind:
			parts[i] = e.Name + " := " + e.Value.String()
		case Cond:
			parts[i] = e.Expr.String()
		}
	}
	return strings.Join(parts, " ∧ ")
}
