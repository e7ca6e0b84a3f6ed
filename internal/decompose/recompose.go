package decompose

import (
	"subgoal/internal/hole"
	"subgoal/internal/lang"
)

// RecomposeKind is the closed set of recomposition strategies. A Recomposer
// carries only the data needed to rebuild the parent term, so instantiations
// stay inspectable instead of hiding behind opaque closures.
type RecomposeKind int

const (
	// WrapTermHole substitutes the single child's term into Template at its
	// Placeholder.
	WrapTermHole RecomposeKind = iota
	// WrapConditionalBoth rebuilds `if Cond then t1 else t2` from two child
	// solutions, with precondition pre1 OR pre2.
	WrapConditionalBoth
	// WrapConditionalBranch reinserts the single child's term as one branch
	// of the conditional, the Other branch untouched.
	WrapConditionalBranch
	// WrapMatch substitutes solved case bodies at HoleCases, leaving other
	// cases verbatim.
	WrapMatch
	// WrapLet reinserts the single child's term under the same binding.
	WrapLet
)

func (k RecomposeKind) String() string {
	switch k {
	case WrapTermHole:
		return "wrap-term-hole"
	case WrapConditionalBoth:
		return "wrap-conditional-both"
	case WrapConditionalBranch:
		return "wrap-conditional-branch"
	case WrapMatch:
		return "wrap-match"
	case WrapLet:
		return "wrap-let"
	}
	return "unknown"
}

// Side selects a conditional branch.
type Side int

const (
	SideThen Side = iota
	SideElse
)

func (s Side) String() string {
	if s == SideThen {
		return "then"
	}
	return "else"
}

// Recomposer rebuilds a parent solution from child solutions. Only the
// fields relevant to Kind are set.
type Recomposer struct {
	Kind RecomposeKind

	// Conditional kinds.
	Cond  lang.Expr
	Side  Side
	Other lang.Expr

	// WrapMatch.
	Scrutinee lang.Expr
	Cases     []lang.Case
	HoleCases []int

	// WrapLet.
	BindName  string
	BindValue lang.Expr

	// WrapTermHole.
	Template lang.Expr
}

// Apply rebuilds the parent solution. The false return is the Option-None of
// the interface contract: the child solutions do not fit this decomposition
// (wrong count, shape mismatch) and the scheduler must treat the
// decomposition as failed, not fatal.
func (r Recomposer) Apply(sols []hole.Solution) (hole.Solution, bool) {
	switch r.Kind {
	case WrapTermHole:
		if len(sols) != 1 || r.Template == nil {
			return hole.Solution{}, false
		}
		return hole.Solution{
			Pre:  sols[0].EffectivePre(),
			Defs: sols[0].Defs,
			Term: lang.FillPlaceholder(r.Template, sols[0].Term),
		}, true

	case WrapConditionalBoth:
		if len(sols) != 2 || r.Cond == nil {
			return hole.Solution{}, false
		}
		return hole.Solution{
			Pre:  lang.Or(sols[0].EffectivePre(), sols[1].EffectivePre()),
			Defs: append(append([]hole.Def(nil), sols[0].Defs...), sols[1].Defs...),
			Term: lang.If{Cond: r.Cond, Then: sols[0].Term, Else: sols[1].Term},
		}, true

	case WrapConditionalBranch:
		if len(sols) != 1 || r.Cond == nil || r.Other == nil {
			return hole.Solution{}, false
		}
		term := lang.If{Cond: r.Cond, Then: sols[0].Term, Else: r.Other}
		if r.Side == SideElse {
			term = lang.If{Cond: r.Cond, Then: r.Other, Else: sols[0].Term}
		}
		return hole.Solution{
			Pre:  sols[0].EffectivePre(),
			Defs: sols[0].Defs,
			Term: term,
		}, true

	case WrapMatch:
		if len(sols) != len(r.HoleCases) || r.Scrutinee == nil {
			return hole.Solution{}, false
		}
		cases := append([]lang.Case(nil), r.Cases...)
		var defs []hole.Def
		pre := lang.Expr(nil)
		for k, idx := range r.HoleCases {
			if idx < 0 || idx >= len(cases) {
				return hole.Solution{}, false
			}
			cases[idx].Body = sols[k].Term
			defs = append(defs, sols[k].Defs...)
			// A solved case whose precondition is literally true contributes
			// no disjunct-narrowing.
			if sols[k].TrivialPre() {
				continue
			}
			if pre == nil {
				pre = sols[k].Pre
			} else {
				pre = lang.Or(pre, sols[k].Pre)
			}
		}
		if pre == nil {
			pre = lang.True()
		}
		return hole.Solution{
			Pre:  pre,
			Defs: defs,
			Term: lang.Match{Scrutinee: r.Scrutinee, Cases: cases},
		}, true

	case WrapLet:
		if len(sols) != 1 || r.BindValue == nil || r.BindName == "" {
			return hole.Solution{}, false
		}
		pre := sols[0].EffectivePre()
		if !lang.IsTrue(pre) {
			// The child precondition may reference the bound name; keep it
			// in scope.
			pre = lang.Let{Name: r.BindName, Value: r.BindValue, Body: pre}
		}
		return hole.Solution{
			Pre:  pre,
			Defs: sols[0].Defs,
			Term: lang.Let{Name: r.BindName, Value: r.BindValue, Body: sols[0].Term},
		}, true
	}
	return hole.Solution{}, false
}
