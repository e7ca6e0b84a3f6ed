package hole

import (
	"github.com/google/uuid"

	"subgoal/internal/lang"
)

// ResultVar is the fresh variable the oracle binds the enclosing function's
// body to before applying the postcondition.
const ResultVar = "_res"

// Witness is a side-condition carried by a problem. It is either a Guide
// marking the suspected repair site or a plain boolean side condition.
type Witness interface {
	isWitness()
}

// SideCond is a boolean side-condition reattached unchanged to sub-problems.
type SideCond struct {
	Expr lang.Expr
}

// Guide marks exactly one sub-expression of the enclosing function's body as
// the suspected repair site. Rebuild is the opaque rebuild-with-hole
// continuation: given a replacement for the guided occurrence it returns the
// whole body with that occurrence swapped. A nil Rebuild stands for a guide
// covering the whole body.
type Guide struct {
	Expr    lang.Expr
	Rebuild func(lang.Expr) lang.Expr
}

func (SideCond) isWitness() {}
func (Guide) isWitness()    {}

// RebuildWith applies the rebuild continuation, treating nil as identity.
func (g Guide) RebuildWith(replacement lang.Expr) lang.Expr {
	if g.Rebuild == nil {
		return replacement
	}
	return g.Rebuild(replacement)
}

// Function describes the enclosing function of a hole: its parameters, its
// concrete body, and an optional postcondition over ResultVar and the
// parameters. A nil Post means no postcondition was declared.
type Function struct {
	Params []string
	Body   lang.Expr
	Post   lang.Expr
}

// Oracle is the deterministic correctness oracle: the body bound to
// ResultVar with the postcondition applied, or literal truth if no
// postcondition exists.
func (f Function) Oracle() lang.Expr {
	return f.OracleWith(f.Body)
}

// OracleWith builds the oracle around an alternative body, used when probing
// a modification at the guided occurrence.
func (f Function) OracleWith(body lang.Expr) lang.Expr {
	if f.Post == nil {
		return lang.True()
	}
	return lang.Let{Name: ResultVar, Value: body, Body: f.Post}
}

// Problem is one synthesis sub-goal. Problems are immutable; every
// decomposition step derives new problems.
type Problem struct {
	ID        string
	Inputs    []string
	Path      Path
	Witnesses []Witness
	Fn        Function
	Spec      lang.Expr
	Outputs   []string
	Examples  ExampleBank
}

// NewProblem assigns a fresh identity to a problem value.
func NewProblem(p Problem) Problem {
	p.ID = uuid.NewString()
	return p
}

// Derive returns a child of p with a fresh identity and the given overrides
// already applied by the caller. Slices of the parent are copied so the child
// never aliases them.
func (p Problem) Derive() Problem {
	child := p
	child.ID = uuid.NewString()
	child.Inputs = append([]string(nil), p.Inputs...)
	child.Outputs = append([]string(nil), p.Outputs...)
	child.Witnesses = append([]Witness(nil), p.Witnesses...)
	return child
}

// RowEnv builds the evaluation environment for one example row: inputs bound
// positionally, then path bindings evaluated in order. A binding whose value
// fails to evaluate is left unbound, which surfaces later as an evaluation
// failure on anything that references it.
func (p Problem) RowEnv(ev lang.Evaluator, row Row) lang.Env {
	env := make(lang.Env, len(p.Inputs)+p.Path.Len())
	for i, name := range p.Inputs {
		if i < len(row) {
			env[name] = row[i]
		}
	}
	for _, el := range p.Path.Elems() {
		b, ok := el.(Bind)
		if !ok {
			continue
		}
		v, err := ev.Eval(b.Value, env)
		if err != nil {
			continue
		}
		env[b.Name] = v
	}
	return env
}

// Guides returns the guides and the remaining witnesses separately, in
// declaration order.
func (p Problem) Guides() ([]Guide, []Witness) {
	var guides []Guide
	var rest []Witness
	for _, w := range p.Witnesses {
		if g, ok := w.(Guide); ok {
			guides = append(guides, g)
			continue
		}
		rest = append(rest, w)
	}
	return guides, rest
}

// Def is an auxiliary definition attached to a solution.
type Def struct {
	Name   string
	Params []string
	Body   lang.Expr
}

// Solution is a candidate replacement term for a hole, valid where Pre holds.
type Solution struct {
	Pre  lang.Expr
	Defs []Def
	Term lang.Expr
}

// TrivialPre reports whether the solution's precondition is literally true.
func (s Solution) TrivialPre() bool {
	return s.Pre == nil || lang.IsTrue(s.Pre)
}

// EffectivePre returns the precondition, defaulting a nil one to true.
func (s Solution) EffectivePre() lang.Expr {
	if s.Pre == nil {
		return lang.True()
	}
	return s.Pre
}
