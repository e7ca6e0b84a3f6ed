package solve

import (
	"context"
	"errors"
	"fmt"

	"subgoal/internal/hole"
	"subgoal/internal/lang"
)

// ErrNoCandidate is returned when the enumerator exhausts its candidates.
var ErrNoCandidate = errors.New("no candidate satisfies the specification")

// Enumerator is a deliberately small baseline leaf synthesizer: it tries
// boolean and integer literals, the input variables, and integer constants
// harvested from the example rows, accepting the first candidate for which
// the problem's specification holds on every example row with the output
// bound to the candidate's value. It exists so scenarios can run end to end;
// real leaf synthesis is the embedding search procedure's job.
type Enumerator struct {
	ev lang.Evaluator
}

// NewEnumerator builds the baseline synthesizer around an evaluator.
func NewEnumerator(ev lang.Evaluator) *Enumerator {
	return &Enumerator{ev: ev}
}

// Synthesize tries each candidate in order.
func (en *Enumerator) Synthesize(ctx context.Context, p hole.Problem) (hole.Solution, error) {
	if len(p.Outputs) != 1 || p.Spec == nil {
		return hole.Solution{}, fmt.Errorf("%w: enumerator needs one output and a specification", ErrNoCandidate)
	}
	out := p.Outputs[0]

	for _, cand := range en.candidates(p) {
		if err := ctx.Err(); err != nil {
			return hole.Solution{}, err
		}
		if en.accepts(p, out, cand) {
			return hole.Solution{Pre: lang.True(), Term: cand}, nil
		}
	}
	return hole.Solution{}, ErrNoCandidate
}

func (en *Enumerator) candidates(p hole.Problem) []lang.Expr {
	cands := []lang.Expr{
		lang.True(), lang.False(),
		lang.Int64(0), lang.Int64(1),
	}
	for _, name := range p.Inputs {
		cands = append(cands, lang.Var{Name: name})
	}
	seen := map[lang.Int]bool{0: true, 1: true}
	for _, row := range append(append([]hole.Row{}, p.Examples.Valid...), p.Examples.Invalid...) {
		for _, v := range row {
			if i, ok := v.(lang.Int); ok && !seen[i] {
				seen[i] = true
				cands = append(cands, lang.Int64(int64(i)))
			}
		}
	}
	return cands
}

// accepts checks the candidate against every example row: binding the output
// to the candidate's value must make the specification hold. Any evaluation
// failure rejects the candidate.
func (en *Enumerator) accepts(p hole.Problem, out string, cand lang.Expr) bool {
	rows := append(append([]hole.Row{}, p.Examples.Valid...), p.Examples.Invalid...)
	if len(rows) == 0 {
		return false
	}
	for _, row := range rows {
		env := p.RowEnv(en.ev, row)
		v, err := en.ev.Eval(cand, env)
		if err != nil {
			return false
		}
		ok, err := lang.EvalBool(en.ev, p.Spec, env.Bind(out, v))
		if err != nil || !ok {
			return false
		}
	}
	return true
}
