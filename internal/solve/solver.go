// Package solve drives the decomposition engine recursively: it expands a
// problem into candidate decompositions, solves children (concurrently, with
// bounded parallelism), recomposes, and delegates leaf problems to a
// pluggable Synthesizer. Rule arbitration beyond applying this one engine is
// out of scope; the driver exists so scenarios can be run end to end.
package solve

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"subgoal/internal/decompose"
	"subgoal/internal/hole"
)

// ErrUnsolved is returned when neither decomposition nor leaf synthesis
// produced a solution.
var ErrUnsolved = errors.New("problem not solved")

// Synthesizer solves a leaf problem directly.
type Synthesizer interface {
	Synthesize(ctx context.Context, p hole.Problem) (hole.Solution, error)
}

// SynthesizerFunc adapts a function to the Synthesizer interface.
type SynthesizerFunc func(ctx context.Context, p hole.Problem) (hole.Solution, error)

// Synthesize calls f.
func (f SynthesizerFunc) Synthesize(ctx context.Context, p hole.Problem) (hole.Solution, error) {
	return f(ctx, p)
}

// Options configure a Solver.
type Options struct {
	// MaxDepth bounds the focusing chain; 0 means the default.
	MaxDepth int
	// Parallelism bounds concurrent child solving; 0 means the default.
	Parallelism int
	Logger      *zap.Logger
}

const (
	defaultMaxDepth    = 16
	defaultParallelism = 4
)

// Solver expands and solves problems.
type Solver struct {
	eng *decompose.Engine
	syn Synthesizer
	log *zap.Logger

	maxDepth    int
	parallelism int

	mu    sync.Mutex
	steps []Step
}

// Step records one decomposition the solver committed to, for tracing.
type Step struct {
	NodeID    string
	ProblemID string
	Label     string
	Children  []string
}

// New builds a solver.
func New(eng *decompose.Engine, syn Synthesizer, opts Options) *Solver {
	s := &Solver{
		eng:         eng,
		syn:         syn,
		log:         opts.Logger,
		maxDepth:    opts.MaxDepth,
		parallelism: opts.Parallelism,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.maxDepth <= 0 {
		s.maxDepth = defaultMaxDepth
	}
	if s.parallelism <= 0 {
		s.parallelism = defaultParallelism
	}
	return s
}

// Steps returns the decomposition steps committed so far, in commit order.
func (s *Solver) Steps() []Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Step(nil), s.steps...)
}

// node implements decompose.SearchNode. Problem nodes carry no label of
// their own; the AND-node between a problem and its children carries the
// label of the rule that produced them.
type node struct {
	id     string
	parent *node
	label  string
}

func (n *node) Parent() decompose.SearchNode {
	if n == nil || n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *node) RuleLabel() string {
	if n == nil {
		return ""
	}
	return n.label
}

// Solve solves p, trying decompositions first and falling back to leaf
// synthesis.
func (s *Solver) Solve(ctx context.Context, p hole.Problem) (hole.Solution, error) {
	root := &node{id: uuid.NewString()}
	return s.solve(ctx, root, p, 0)
}

func (s *Solver) solve(ctx context.Context, n *node, p hole.Problem, depth int) (hole.Solution, error) {
	if err := ctx.Err(); err != nil {
		return hole.Solution{}, err
	}
	if depth < s.maxDepth {
		if sol, ok := s.tryDecompositions(ctx, n, p, depth); ok {
			return sol, nil
		}
	}
	sol, err := s.syn.Synthesize(ctx, p)
	if err != nil {
		return hole.Solution{}, fmt.Errorf("%w: %s: %v", ErrUnsolved, p.ID, err)
	}
	s.log.Debug("leaf synthesized",
		zap.String("problem", p.ID),
		zap.String("term", sol.Term.String()))
	return sol, nil
}

func (s *Solver) tryDecompositions(ctx context.Context, n *node, p hole.Problem, depth int) (hole.Solution, bool) {
	for _, inst := range s.eng.Apply(n, p) {
		and := &node{id: uuid.NewString(), parent: n, label: inst.Label}

		sols := make([]hole.Solution, len(inst.Children))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.parallelism)
		for i, child := range inst.Children {
			i, child := i, child
			g.Go(func() error {
				childNode := &node{id: uuid.NewString(), parent: and}
				sol, err := s.solve(gctx, childNode, child, depth+1)
				if err != nil {
					return err
				}
				sols[i] = sol
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			s.log.Debug("decomposition abandoned",
				zap.String("problem", p.ID),
				zap.String("label", inst.Label),
				zap.Error(err))
			continue
		}

		sol, ok := inst.Recompose.Apply(sols)
		if !ok {
			// Shape mismatch: this decomposition failed, not the run.
			s.log.Warn("recomposition mismatch",
				zap.String("problem", p.ID),
				zap.String("label", inst.Label))
			continue
		}

		s.record(and, p, inst)
		return sol, true
	}
	return hole.Solution{}, false
}

func (s *Solver) record(and *node, p hole.Problem, inst decompose.RuleInstantiation) {
	ids := make([]string, len(inst.Children))
	for i, c := range inst.Children {
		ids[i] = c.ID
	}
	s.mu.Lock()
	s.steps = append(s.steps, Step{
		NodeID:    and.id,
		ProblemID: p.ID,
		Label:     inst.Label,
		Children:  ids,
	})
	s.mu.Unlock()
}
