// Package classify reduces the behavior of a boolean expression over a
// problem's failing examples to a three-valued outcome. Anything short of
// unanimous boolean agreement — disagreement between rows, an evaluation
// failure, a non-boolean result, or an empty failing set — is Indeterminate,
// which always routes the engine to its more conservative strategy.
package classify

import (
	"go.uber.org/zap"

	"subgoal/internal/hole"
	"subgoal/internal/lang"
)

// Outcome is the three-valued classification result.
type Outcome int

const (
	Indeterminate Outcome = iota
	AlwaysTrue
	AlwaysFalse
)

func (o Outcome) String() string {
	switch o {
	case AlwaysTrue:
		return "always-true"
	case AlwaysFalse:
		return "always-false"
	default:
		return "indeterminate"
	}
}

// Classifier evaluates conditions against failing examples with an injected
// evaluator. The evaluator is treated as a synchronous black box; a failure
// degrades the outcome rather than propagating.
type Classifier struct {
	ev  lang.Evaluator
	log *zap.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger attaches a logger; the default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Classifier) { c.log = log }
}

// New builds a classifier around an evaluator.
func New(ev lang.Evaluator, opts ...Option) *Classifier {
	c := &Classifier{ev: ev, log: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify evaluates cond on every failing row of p.
func (c *Classifier) Classify(cond lang.Expr, p hole.Problem) Outcome {
	rows := p.Examples.Invalid
	if len(rows) == 0 {
		return Indeterminate
	}
	var sawTrue, sawFalse bool
	for _, row := range rows {
		b, err := lang.EvalBool(c.ev, cond, p.RowEnv(c.ev, row))
		if err != nil {
			c.log.Debug("classification degraded to indeterminate",
				zap.String("cond", cond.String()),
				zap.Error(err))
			return Indeterminate
		}
		if b {
			sawTrue = true
		} else {
			sawFalse = true
		}
		if sawTrue && sawFalse {
			return Indeterminate
		}
	}
	if sawTrue {
		return AlwaysTrue
	}
	return AlwaysFalse
}

// OracleHolds reports whether the problem's oracle evaluates to true under
// env. False and evaluation failure both count as a failing oracle; the
// distinction never matters to the engine.
func (c *Classifier) OracleHolds(p hole.Problem, env lang.Env) bool {
	ok, err := lang.EvalBool(c.ev, p.Fn.Oracle(), env)
	return err == nil && ok
}
