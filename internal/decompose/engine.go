// Package decompose implements counterexample-guided problem decomposition:
// given a problem and a guide marking a suspected repair site, it splits the
// problem into sub-problems whose solutions recompose mechanically into a
// solution for the original. Strategy choice is driven by three-valued
// classification of conditions over the failing examples; when uncertain the
// engine always prefers the conservative split over a single-branch focus.
package decompose

import (
	"strings"

	"go.uber.org/zap"

	"subgoal/internal/classify"
	"subgoal/internal/hole"
	"subgoal/internal/lang"
)

// LabelPrefix prefixes every rule label this engine emits. The reentry guard
// recognizes its own steps by it.
const LabelPrefix = "decompose/"

// Rule labels, one per strategy.
const (
	LabelConditionFix = LabelPrefix + "condition-fix"
	LabelFocusThen    = LabelPrefix + "focus-then"
	LabelFocusElse    = LabelPrefix + "focus-else"
	LabelSplit        = LabelPrefix + "split"
	LabelMatch        = LabelPrefix + "match"
	LabelLet          = LabelPrefix + "let"
)

// condVar is the fresh boolean output variable standing in for a condition
// judged to be the repair site.
const condVar = "_cnd"

// SearchNode is the engine's read-only view of the search graph. A node's
// parent is the step (AND-node) that produced it; RuleLabel names the rule
// behind that step. The engine reads nodes, never mutates them.
type SearchNode interface {
	Parent() SearchNode
	RuleLabel() string
}

// RuleInstantiation is one candidate decomposition: an ordered list of
// sub-problems and the recomposition that rebuilds the parent solution from
// theirs. All children must be solved (AND-relation).
type RuleInstantiation struct {
	Label     string
	Children  []hole.Problem
	Recompose Recomposer
}

// Engine decomposes problems. It holds no mutable state across calls and is
// safe to invoke concurrently on distinct problems.
type Engine struct {
	ev      lang.Evaluator
	cls     *classify.Classifier
	log     *zap.Logger
	observe ClassificationObserver
}

// ClassificationObserver receives every condition classification the engine
// performs while building instantiations.
type ClassificationObserver func(p hole.Problem, cond lang.Expr, outcome classify.Outcome)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a logger; the default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClassificationObserver attaches an observer. Observers must be safe for
// concurrent calls when the engine is applied from multiple goroutines.
func WithClassificationObserver(obs ClassificationObserver) Option {
	return func(e *Engine) { e.observe = obs }
}

// New builds an engine around an evaluator.
func New(ev lang.Evaluator, opts ...Option) *Engine {
	e := &Engine{ev: ev, log: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	e.cls = classify.New(ev, classify.WithLogger(e.log))
	return e
}

// Apply produces the candidate decompositions for p at node. A nil node is a
// root-level focus. Unknown guide shapes and guard violations yield nil; no
// condition here is an error.
func (e *Engine) Apply(node SearchNode, p hole.Problem) []RuleInstantiation {
	if !e.mayReenter(node) {
		e.log.Debug("reentry guard refused focus",
			zap.String("problem", p.ID))
		return nil
	}
	guides, rest := p.Guides()
	if len(guides) == 0 {
		return nil
	}
	var insts []RuleInstantiation
	for _, g := range guides {
		switch n := g.Expr.(type) {
		case lang.If:
			insts = append(insts, e.conditional(p, rest, g, n)...)
		case lang.Match:
			insts = append(insts, e.patternMatch(p, rest, g, n)...)
		case lang.Let:
			insts = append(insts, e.binding(p, rest, g, n)...)
		default:
			e.log.Debug("guide shape not handled",
				zap.String("problem", p.ID),
				zap.Stringer("shape", lang.ShapeOf(g.Expr)))
		}
	}
	return insts
}

// mayReenter implements the reentry guard: proceed at the root or while
// continuing an unbroken chain of this engine's own steps; stop as soon as a
// different rule has taken a step.
func (e *Engine) mayReenter(node SearchNode) bool {
	if node == nil {
		return true
	}
	parent := node.Parent()
	if parent == nil {
		return true
	}
	return strings.HasPrefix(parent.RuleLabel(), LabelPrefix)
}

// failingEnvs builds evaluation environments for every failing row.
func (e *Engine) failingEnvs(p hole.Problem) []lang.Env {
	envs := make([]lang.Env, 0, len(p.Examples.Invalid))
	for _, row := range p.Examples.Invalid {
		envs = append(envs, p.RowEnv(e.ev, row))
	}
	return envs
}

// filterByCond restricts a bank to the rows on which cond evaluates to want.
// Rows whose evaluation fails satisfy neither branch condition.
func (e *Engine) filterByCond(p hole.Problem, cond lang.Expr, want bool) hole.ExampleBank {
	return p.Examples.FilterIns(func(r hole.Row) bool {
		b, err := lang.EvalBool(e.ev, cond, p.RowEnv(e.ev, r))
		return err == nil && b == want
	})
}
