// Package facts exports decomposition activity as Mangle datalog facts so
// search state can be inspected and queried. Facts recorded:
//
//	decomposition(ProblemID, Label, ChildCount).
//	subhole(ProblemID, Index, ChildID).
//	classified(ProblemID, Cond, Outcome).
package facts

import (
	"fmt"
	"sync"

	"github.com/google/mangle/ast"
	"github.com/google/mangle/factstore"

	"subgoal/internal/classify"
	"subgoal/internal/decompose"
	"subgoal/internal/hole"
)

// Fact is one predicate application with concrete arguments. Supported
// argument types: string, int, int64, bool.
type Fact struct {
	Predicate string
	Args      []interface{}
}

// Atom converts the fact to a Mangle AST atom.
func (f Fact) Atom() (ast.Atom, error) {
	terms := make([]ast.BaseTerm, 0, len(f.Args))
	for _, arg := range f.Args {
		switch v := arg.(type) {
		case string:
			terms = append(terms, ast.String(v))
		case int:
			terms = append(terms, ast.Number(int64(v)))
		case int64:
			terms = append(terms, ast.Number(v))
		case bool:
			if v {
				terms = append(terms, ast.TrueConstant)
			} else {
				terms = append(terms, ast.FalseConstant)
			}
		default:
			return ast.Atom{}, fmt.Errorf("unsupported fact argument %T", arg)
		}
	}
	return ast.NewAtom(f.Predicate, terms...), nil
}

// Recorder accumulates facts in an in-memory Mangle fact store.
type Recorder struct {
	mu    sync.Mutex
	store factstore.FactStore
}

// NewRecorder builds an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{store: factstore.NewSimpleInMemoryStore()}
}

// RecordDecomposition records one instantiation and its sub-holes.
func (r *Recorder) RecordDecomposition(parent hole.Problem, inst decompose.RuleInstantiation) error {
	facts := []Fact{{
		Predicate: "decomposition",
		Args:      []interface{}{parent.ID, inst.Label, len(inst.Children)},
	}}
	for i, child := range inst.Children {
		facts = append(facts, Fact{
			Predicate: "subhole",
			Args:      []interface{}{parent.ID, i, child.ID},
		})
	}
	return r.add(facts...)
}

// RecordClassification records a classifier outcome for a condition.
func (r *Recorder) RecordClassification(problemID, cond string, outcome classify.Outcome) error {
	return r.add(Fact{
		Predicate: "classified",
		Args:      []interface{}{problemID, cond, outcome.String()},
	})
}

func (r *Recorder) add(facts ...Fact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range facts {
		atom, err := f.Atom()
		if err != nil {
			return fmt.Errorf("fact %s: %w", f.Predicate, err)
		}
		r.store.Add(atom)
	}
	return nil
}

// Facts returns all recorded facts for a predicate with the given arity.
func (r *Recorder) Facts(predicate string, arity int) ([]Fact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sym := ast.PredicateSym{Symbol: predicate, Arity: arity}
	var out []Fact
	err := r.store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		f := Fact{Predicate: predicate}
		for _, term := range atom.Args {
			c, ok := term.(ast.Constant)
			if !ok {
				f.Args = append(f.Args, term.String())
				continue
			}
			switch c.Type {
			case ast.NumberType:
				f.Args = append(f.Args, c.NumValue)
			case ast.StringType, ast.NameType:
				f.Args = append(f.Args, c.Symbol)
			default:
				f.Args = append(f.Args, c.String())
			}
		}
		out = append(out, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query %s/%d: %w", predicate, arity, err)
	}
	return out, nil
}
