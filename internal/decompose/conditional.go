package decompose

import (
	"go.uber.org/zap"

	"subgoal/internal/classify"
	"subgoal/internal/hole"
	"subgoal/internal/lang"
)

// conditional decomposes an `if cond then A else B` guide in two stages:
// first the condition-fix probe, then direct classification of cond. The
// probe-first ordering is a heuristic, not a completeness claim.
func (e *Engine) conditional(p hole.Problem, rest []hole.Witness, g hole.Guide, n lang.If) []RuleInstantiation {
	rebuildAtCond := func(c lang.Expr) lang.Expr {
		return g.RebuildWith(lang.If{Cond: c, Then: n.Then, Else: n.Else})
	}

	// Stage 1: would an unconstrained boolean at the condition's occurrence
	// reconcile every failing example with the oracle, under one uniform
	// choice? Then the condition itself is the repair site.
	probe := p.Fn.OracleWith(rebuildAtCond(lang.Choice{}))
	if lang.AngelicUniform(e.ev, probe, e.failingEnvs(p), true) {
		e.log.Debug("condition-fix probe succeeded",
			zap.String("problem", p.ID),
			zap.String("cond", n.Cond.String()))

		child := p.Derive()
		child.Witnesses = append([]hole.Witness(nil), rest...)
		child.Outputs = []string{condVar}
		child.Spec = p.Fn.OracleWith(rebuildAtCond(lang.Var{Name: condVar}))

		return []RuleInstantiation{{
			Label:    LabelConditionFix,
			Children: []hole.Problem{child},
			Recompose: Recomposer{
				Kind:     WrapTermHole,
				Template: lang.If{Cond: lang.Placeholder{}, Then: n.Then, Else: n.Else},
			},
		}}
	}

	// Stage 2: classify cond itself over the failing examples.
	outcome := e.cls.Classify(n.Cond, p)
	e.log.Debug("condition classified",
		zap.String("problem", p.ID),
		zap.String("cond", n.Cond.String()),
		zap.Stringer("outcome", outcome))
	if e.observe != nil {
		e.observe(p, n.Cond, outcome)
	}

	switch outcome {
	case classify.AlwaysTrue:
		child := e.branchChild(p, rest, g, n, SideThen)
		return []RuleInstantiation{{
			Label:    LabelFocusThen,
			Children: []hole.Problem{child},
			Recompose: Recomposer{
				Kind:  WrapConditionalBranch,
				Cond:  n.Cond,
				Side:  SideThen,
				Other: n.Else,
			},
		}}

	case classify.AlwaysFalse:
		child := e.branchChild(p, rest, g, n, SideElse)
		return []RuleInstantiation{{
			Label:    LabelFocusElse,
			Children: []hole.Problem{child},
			Recompose: Recomposer{
				Kind:  WrapConditionalBranch,
				Cond:  n.Cond,
				Side:  SideElse,
				Other: n.Then,
			},
		}}

	default:
		// Failing examples disagree or evaluation was inconclusive: split
		// into both branches, each narrowed by its branch condition.
		thenChild := e.branchChild(p, rest, g, n, SideThen)
		elseChild := e.branchChild(p, rest, g, n, SideElse)
		return []RuleInstantiation{{
			Label:    LabelSplit,
			Children: []hole.Problem{thenChild, elseChild},
			Recompose: Recomposer{
				Kind: WrapConditionalBoth,
				Cond: n.Cond,
			},
		}}
	}
}

// branchChild derives the sub-problem focused on one branch of a
// conditional: path extended with the branch condition, examples filtered to
// the rows taking that branch, and the guide narrowed onto the branch body
// with a rebuild continuation that re-wraps it in the conditional.
func (e *Engine) branchChild(p hole.Problem, rest []hole.Witness, g hole.Guide, n lang.If, side Side) hole.Problem {
	var branch, other lang.Expr
	var branchCond lang.Expr
	want := side == SideThen
	if want {
		branch, other = n.Then, n.Else
		branchCond = n.Cond
	} else {
		branch, other = n.Else, n.Then
		branchCond = lang.Not(n.Cond)
	}

	child := p.Derive()
	child.Path = p.Path.WithCond(branchCond)
	child.Examples = e.filterByCond(p, n.Cond, want)
	childGuide := hole.Guide{
		Expr: branch,
		Rebuild: func(x lang.Expr) lang.Expr {
			if want {
				return g.RebuildWith(lang.If{Cond: n.Cond, Then: x, Else: other})
			}
			return g.RebuildWith(lang.If{Cond: n.Cond, Then: other, Else: x})
		},
	}
	child.Witnesses = append(append([]hole.Witness(nil), rest...), childGuide)
	return child
}
