package decompose

import (
	"go.uber.org/zap"

	"subgoal/internal/hole"
	"subgoal/internal/lang"
)

// caseStep is one output of the case fold: the case as it will appear in the
// recomposed match, the sub-problem it yields (nil when the case is passed
// through unchanged), and the condition under which execution reaches it.
type caseStep struct {
	cs    lang.Case
	child *hole.Problem
	reach lang.Expr
}

// patternMatch decomposes a match guide. Cases are processed in declared
// order by a left fold threading the running else-path (the conjunction of
// "no earlier case matched"). A case yields a sub-problem iff some failing
// example reaches it and fails the oracle there. If the final else-path is
// still reached by a failing example, a wildcard case with an empty body is
// synthesized and appended.
func (e *Engine) patternMatch(p hole.Problem, rest []hole.Witness, g hole.Guide, n lang.Match) []RuleInstantiation {
	steps, elsePath := e.foldCases(p, rest, g, n)

	cases := make([]lang.Case, 0, len(steps)+1)
	var children []hole.Problem
	var holeCases []int
	for i, st := range steps {
		cases = append(cases, st.cs)
		if st.child == nil {
			continue
		}
		children = append(children, *st.child)
		holeCases = append(holeCases, i)
	}

	if e.reachedByFailing(p, elsePath) {
		wild := lang.Case{Wildcard: true, Body: lang.Placeholder{}}
		child := p.Derive()
		child.Path = p.Path.WithCond(elsePath)
		child.Examples = e.filterByCond(p, elsePath, true)
		child.Witnesses = append([]hole.Witness(nil), rest...)
		children = append(children, child)
		holeCases = append(holeCases, len(cases))
		cases = append(cases, wild)
		e.log.Debug("synthesized wildcard case",
			zap.String("problem", p.ID),
			zap.String("else_path", elsePath.String()))
	}

	if len(children) == 0 {
		return nil
	}
	return []RuleInstantiation{{
		Label:    LabelMatch,
		Children: children,
		Recompose: Recomposer{
			Kind:      WrapMatch,
			Scrutinee: n.Scrutinee,
			Cases:     cases,
			HoleCases: holeCases,
		},
	}}
}

// foldCases runs the left fold over the declared cases, returning the steps
// in order and the final else-path.
func (e *Engine) foldCases(p hole.Problem, rest []hole.Witness, g hole.Guide, n lang.Match) ([]caseStep, lang.Expr) {
	elsePath := lang.True()
	steps := make([]caseStep, 0, len(n.Cases))
	for i, cs := range n.Cases {
		matchCond := lang.True()
		if !cs.Wildcard {
			matchCond = lang.Test{Scrutinee: n.Scrutinee, Ctor: cs.Ctor}
		}
		reach := lang.And(elsePath, matchCond)

		step := caseStep{cs: cs, reach: reach}
		if e.caseYields(p, reach) {
			child := e.caseChild(p, rest, g, n, i, reach)
			step.child = &child
		}
		steps = append(steps, step)
		elsePath = lang.And(elsePath, lang.Not(matchCond))
	}
	return steps, elsePath
}

// caseYields reports whether some failing example reaches the case's
// condition and fails the oracle there.
func (e *Engine) caseYields(p hole.Problem, reach lang.Expr) bool {
	for _, row := range p.Examples.Invalid {
		env := p.RowEnv(e.ev, row)
		b, err := lang.EvalBool(e.ev, reach, env)
		if err != nil || !b {
			continue
		}
		if !e.cls.OracleHolds(p, env) {
			return true
		}
	}
	return false
}

// reachedByFailing reports whether any failing example satisfies cond.
func (e *Engine) reachedByFailing(p hole.Problem, cond lang.Expr) bool {
	for _, row := range p.Examples.Invalid {
		b, err := lang.EvalBool(e.ev, cond, p.RowEnv(e.ev, row))
		if err == nil && b {
			return true
		}
	}
	return false
}

// caseChild derives the sub-problem for case i: path extended with the bound
// pattern variables and the reachable condition, bank restricted to rows
// reaching the case and extended with one column per binder (rows whose
// extraction fails are dropped), and the guide narrowed onto the case body.
func (e *Engine) caseChild(p hole.Problem, rest []hole.Witness, g hole.Guide, n lang.Match, i int, reach lang.Expr) hole.Problem {
	cs := n.Cases[i]

	binds := make([]hole.Bind, len(cs.Binders))
	extractors := make([]lang.Expr, len(cs.Binders))
	for j, b := range cs.Binders {
		sel := lang.Sel{Scrutinee: n.Scrutinee, Ctor: cs.Ctor, Index: j}
		binds[j] = hole.Bind{Name: b, Value: sel}
		extractors[j] = sel
	}

	child := p.Derive()
	child.Path = p.Path.WithBindings(binds...).WithCond(reach)
	child.Inputs = append(child.Inputs, cs.Binders...)

	bank := e.filterByCond(p, reach, true)
	if len(extractors) > 0 {
		bank = bank.MapIns(func(r hole.Row) []hole.Row {
			env := p.RowEnv(e.ev, r)
			ext := r.Clone()
			for _, sel := range extractors {
				v, err := e.ev.Eval(sel, env)
				if err != nil {
					return nil
				}
				ext = append(ext, v)
			}
			return []hole.Row{ext}
		})
	}
	child.Examples = bank

	childGuide := hole.Guide{
		Expr: cs.Body,
		Rebuild: func(x lang.Expr) lang.Expr {
			cases := append([]lang.Case(nil), n.Cases...)
			cases[i].Body = x
			return g.RebuildWith(lang.Match{Scrutinee: n.Scrutinee, Cases: cases})
		},
	}
	child.Witnesses = append(append([]hole.Witness(nil), rest...), childGuide)
	return child
}
