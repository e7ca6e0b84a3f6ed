package decompose

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgoal/internal/classify"
	"subgoal/internal/hole"
	"subgoal/internal/lang"
)

func xVar() lang.Expr { return lang.Var{Name: "x"} }

func gtZeroX() lang.Expr {
	return lang.Binary{Op: lang.OpGt, Left: xVar(), Right: lang.Int64(0)}
}

func eqRes(e lang.Expr) lang.Expr {
	return lang.Binary{Op: lang.OpEq, Left: lang.Var{Name: hole.ResultVar}, Right: e}
}

func intRow(vals ...int64) hole.Row {
	r := make(hole.Row, len(vals))
	for i, v := range vals {
		r[i] = lang.Int(v)
	}
	return r
}

func consOf(vals ...int64) lang.Value {
	list := lang.Value(lang.Data{Ctor: "Nil"})
	for i := len(vals) - 1; i >= 0; i-- {
		list = lang.Data{Ctor: "Cons", Args: []lang.Value{lang.Int(vals[i]), list}}
	}
	return list
}

// conditionalProblem builds a hole around `if x > 0 then 0 else -1` with
// postcondition `_res == x`, which no uniform condition flip can repair.
func conditionalProblem(invalid ...hole.Row) (hole.Problem, lang.If) {
	body := lang.If{Cond: gtZeroX(), Then: lang.Int64(0), Else: lang.Int64(-1)}
	p := hole.NewProblem(hole.Problem{
		Inputs:  []string{"x"},
		Outputs: []string{"y"},
		Fn: hole.Function{
			Params: []string{"x"},
			Body:   body,
			Post:   eqRes(xVar()),
		},
		Witnesses: []hole.Witness{hole.Guide{Expr: body}},
		Examples:  hole.NewBank([]hole.Row{intRow(3)}, invalid),
	})
	return p, body
}

// Scenario A: every failing example has x > 0, so classification is
// always-true and the engine focuses on the then-branch only.
func TestConditional_AlwaysTrueFocusesThen(t *testing.T) {
	eng := New(lang.NewTreeEvaluator())
	p, body := conditionalProblem(intRow(1), intRow(2))

	insts := eng.Apply(nil, p)
	require.Len(t, insts, 1)
	inst := insts[0]
	assert.Equal(t, LabelFocusThen, inst.Label)
	require.Len(t, inst.Children, 1)

	child := inst.Children[0]
	// Examples filtered to x > 0: both failing rows and the valid row.
	assert.Len(t, child.Examples.Invalid, 2)
	assert.Len(t, child.Examples.Valid, 1)

	// The guide narrowed onto the then-branch, continuing the chain.
	guides, _ := child.Guides()
	require.Len(t, guides, 1)
	if diff := cmp.Diff(body.Then, guides[0].Expr); diff != "" {
		t.Fatalf("guide mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, WrapConditionalBranch, inst.Recompose.Kind)
	assert.Equal(t, SideThen, inst.Recompose.Side)
}

func TestConditional_AlwaysFalseFocusesElse(t *testing.T) {
	eng := New(lang.NewTreeEvaluator())
	p, body := conditionalProblem(intRow(-1), intRow(-2))

	insts := eng.Apply(nil, p)
	require.Len(t, insts, 1)
	inst := insts[0]
	assert.Equal(t, LabelFocusElse, inst.Label)
	require.Len(t, inst.Children, 1)

	child := inst.Children[0]
	assert.Len(t, child.Examples.Invalid, 2)
	// The valid row has x = 3 and does not reach the else-branch.
	assert.Empty(t, child.Examples.Valid)

	guides, _ := child.Guides()
	require.Len(t, guides, 1)
	if diff := cmp.Diff(body.Else, guides[0].Expr); diff != "" {
		t.Fatalf("guide mismatch (-want +got):\n%s", diff)
	}
}

// Scenario B: failing examples disagree on the condition, so the engine
// splits into both branches; both sub-holes must be solved.
func TestConditional_IndeterminateSplits(t *testing.T) {
	eng := New(lang.NewTreeEvaluator())
	p, _ := conditionalProblem(intRow(1), intRow(-1))

	insts := eng.Apply(nil, p)
	require.Len(t, insts, 1)
	inst := insts[0]
	assert.Equal(t, LabelSplit, inst.Label)
	require.Len(t, inst.Children, 2)

	thenChild, elseChild := inst.Children[0], inst.Children[1]
	assert.Equal(t, []hole.Row{intRow(1)}, thenChild.Examples.Invalid)
	assert.Equal(t, []hole.Row{intRow(-1)}, elseChild.Examples.Invalid)
	assert.Equal(t, WrapConditionalBoth, inst.Recompose.Kind)
}

// The condition-fix probe: flipping the condition uniformly reconciles every
// failing example with the oracle, so the condition itself is the repair
// site and exactly one boolean sub-hole is emitted.
func TestConditional_ConditionFixProbe(t *testing.T) {
	// abs with an inverted condition: if x < 0 then x else -x.
	cond := lang.Binary{Op: lang.OpLt, Left: xVar(), Right: lang.Int64(0)}
	body := lang.If{Cond: cond, Then: xVar(), Else: lang.Unary{Op: lang.OpNeg, Operand: xVar()}}
	post := lang.And(
		lang.Binary{Op: lang.OpGe, Left: lang.Var{Name: hole.ResultVar}, Right: lang.Int64(0)},
		lang.Or(eqRes(xVar()), eqRes(lang.Unary{Op: lang.OpNeg, Operand: xVar()})),
	)
	p := hole.NewProblem(hole.Problem{
		Inputs:    []string{"x"},
		Outputs:   []string{"y"},
		Fn:        hole.Function{Params: []string{"x"}, Body: body, Post: post},
		Witnesses: []hole.Witness{hole.Guide{Expr: body}},
		Examples:  hole.NewBank(nil, []hole.Row{intRow(5), intRow(7)}),
	})

	eng := New(lang.NewTreeEvaluator())
	insts := eng.Apply(nil, p)
	require.Len(t, insts, 1)
	inst := insts[0]
	assert.Equal(t, LabelConditionFix, inst.Label)
	require.Len(t, inst.Children, 1)

	child := inst.Children[0]
	assert.Equal(t, []string{condVar}, child.Outputs)
	require.NotNil(t, child.Spec)
	guides, _ := child.Guides()
	assert.Empty(t, guides)

	// Recomposition substitutes the synthesized condition back in place.
	sol, ok := inst.Recompose.Apply([]hole.Solution{{Pre: lang.True(), Term: gtZeroX()}})
	require.True(t, ok)
	want := lang.Expr(lang.If{Cond: gtZeroX(), Then: body.Then, Else: body.Else})
	if diff := cmp.Diff(want, sol.Term); diff != "" {
		t.Fatalf("recomposed term mismatch (-want +got):\n%s", diff)
	}
}

// Scenario C: all failing examples are Cons values, so only the Cons case
// yields a sub-hole; Nil is passed through unchanged and no wildcard is
// added.
func TestMatch_OnlyExercisedCaseYields(t *testing.T) {
	body := lang.Match{
		Scrutinee: lang.Var{Name: "l"},
		Cases: []lang.Case{
			{Ctor: "Nil", Body: lang.Int64(0)},
			{Ctor: "Cons", Binders: []string{"h", "t"}, Body: lang.Var{Name: "h"}},
		},
	}
	p := hole.NewProblem(hole.Problem{
		Inputs:  []string{"l"},
		Outputs: []string{"y"},
		Fn: hole.Function{
			Params: []string{"l"},
			Body:   body,
			Post:   eqRes(lang.Int64(99)),
		},
		Witnesses: []hole.Witness{hole.Guide{Expr: body}},
		Examples: hole.NewBank(nil, []hole.Row{
			{consOf(1)},
			{consOf(2, 3)},
		}),
	})

	eng := New(lang.NewTreeEvaluator())
	insts := eng.Apply(nil, p)
	require.Len(t, insts, 1)
	inst := insts[0]
	assert.Equal(t, LabelMatch, inst.Label)
	require.Len(t, inst.Children, 1)
	assert.Equal(t, []int{1}, inst.Recompose.HoleCases)
	require.Len(t, inst.Recompose.Cases, 2)
	assert.Equal(t, "Nil", inst.Recompose.Cases[0].Ctor)
	assert.False(t, inst.Recompose.Cases[len(inst.Recompose.Cases)-1].Wildcard)

	// The sub-hole gains the binders as inputs and one column per binder.
	child := inst.Children[0]
	assert.Equal(t, []string{"l", "h", "t"}, child.Inputs)
	require.Len(t, child.Examples.Invalid, 2)
	first := child.Examples.Invalid[0]
	require.Len(t, first, 3)
	assert.Equal(t, lang.Int(1), first[1])
	assert.Equal(t, lang.Data{Ctor: "Nil"}, first[2])
}

// Scenario D: a failing example matches no explicit case, so a wildcard
// sub-hole is appended.
func TestMatch_SynthesizesWildcard(t *testing.T) {
	body := lang.Match{
		Scrutinee: lang.Var{Name: "l"},
		Cases: []lang.Case{
			{Ctor: "Nil", Body: lang.Int64(0)},
		},
	}
	p := hole.NewProblem(hole.Problem{
		Inputs:  []string{"l"},
		Outputs: []string{"y"},
		Fn: hole.Function{
			Params: []string{"l"},
			Body:   body,
			Post:   eqRes(lang.Int64(0)),
		},
		Witnesses: []hole.Witness{hole.Guide{Expr: body}},
		Examples:  hole.NewBank(nil, []hole.Row{{consOf(1)}}),
	})

	eng := New(lang.NewTreeEvaluator())
	insts := eng.Apply(nil, p)
	require.Len(t, insts, 1)
	inst := insts[0]
	require.Len(t, inst.Children, 1)
	require.Len(t, inst.Recompose.Cases, 2)
	assert.True(t, inst.Recompose.Cases[1].Wildcard)
	assert.Equal(t, []int{1}, inst.Recompose.HoleCases)

	// The wildcard body is a pure hole: no guide to continue focusing on.
	guides, _ := inst.Children[0].Guides()
	assert.Empty(t, guides)
}

// A match none of whose cases is exercised by a failing example produces
// nothing at all.
func TestMatch_NoExercisedCasesProducesNothing(t *testing.T) {
	body := lang.Match{
		Scrutinee: lang.Var{Name: "l"},
		Cases: []lang.Case{
			{Ctor: "Nil", Body: lang.Int64(0)},
		},
	}
	p := hole.NewProblem(hole.Problem{
		Inputs:  []string{"l"},
		Outputs: []string{"y"},
		Fn: hole.Function{
			Params: []string{"l"},
			Body:   body,
			Post:   eqRes(lang.Int64(0)),
		},
		Witnesses: []hole.Witness{hole.Guide{Expr: body}},
		// The only failing example is Nil, and Nil's body satisfies the
		// oracle there, so nothing yields.
		Examples: hole.NewBank(nil, []hole.Row{{lang.Data{Ctor: "Nil"}}}),
	})

	eng := New(lang.NewTreeEvaluator())
	assert.Empty(t, eng.Apply(nil, p))
}

func TestLet_AlwaysOneSubHole(t *testing.T) {
	inner := lang.Binary{Op: lang.OpGt, Left: lang.Var{Name: "n"}, Right: lang.Int64(0)}
	body := lang.Let{
		Name:  "n",
		Value: lang.Binary{Op: lang.OpAdd, Left: xVar(), Right: lang.Int64(1)},
		Body:  inner,
	}
	p := hole.NewProblem(hole.Problem{
		Inputs:    []string{"x"},
		Outputs:   []string{"y"},
		Fn:        hole.Function{Params: []string{"x"}, Body: body, Post: eqRes(xVar())},
		Witnesses: []hole.Witness{hole.Guide{Expr: body}},
		Examples:  hole.NewBank([]hole.Row{intRow(1)}, []hole.Row{intRow(2)}),
	})

	eng := New(lang.NewTreeEvaluator())
	insts := eng.Apply(nil, p)
	require.Len(t, insts, 1)
	inst := insts[0]
	assert.Equal(t, LabelLet, inst.Label)
	require.Len(t, inst.Children, 1)

	// Let transparency: each row extended with exactly the evaluated value.
	child := inst.Children[0]
	assert.Equal(t, []string{"x", "n"}, child.Inputs)
	assert.Equal(t, []hole.Row{intRow(1, 2)}, child.Examples.Valid)
	assert.Equal(t, []hole.Row{intRow(2, 3)}, child.Examples.Invalid)

	guides, _ := child.Guides()
	require.Len(t, guides, 1)
	if diff := cmp.Diff(lang.Expr(inner), guides[0].Expr); diff != "" {
		t.Fatalf("guide mismatch (-want +got):\n%s", diff)
	}
}

func TestLet_DropsRowsWhereEvaluationFails(t *testing.T) {
	body := lang.Let{
		Name:  "n",
		Value: lang.Binary{Op: lang.OpAdd, Left: xVar(), Right: lang.Int64(1)},
		Body:  lang.Var{Name: "n"},
	}
	p := hole.NewProblem(hole.Problem{
		Inputs:    []string{"x"},
		Outputs:   []string{"y"},
		Fn:        hole.Function{Params: []string{"x"}, Body: body},
		Witnesses: []hole.Witness{hole.Guide{Expr: body}},
		// The string row cannot be added to 1 and must be dropped.
		Examples: hole.NewBank(nil, []hole.Row{intRow(4), {lang.Str("oops")}}),
	})

	eng := New(lang.NewTreeEvaluator())
	insts := eng.Apply(nil, p)
	require.Len(t, insts, 1)
	assert.Equal(t, []hole.Row{intRow(4, 5)}, insts[0].Children[0].Examples.Invalid)
}

func TestOpaqueGuideProducesNothing(t *testing.T) {
	p := hole.NewProblem(hole.Problem{
		Inputs:    []string{"x"},
		Fn:        hole.Function{Params: []string{"x"}, Body: xVar()},
		Witnesses: []hole.Witness{hole.Guide{Expr: xVar()}},
		Examples:  hole.NewBank(nil, []hole.Row{intRow(1)}),
	})
	eng := New(lang.NewTreeEvaluator())
	assert.Empty(t, eng.Apply(nil, p))
}

func TestNoGuideProducesNothing(t *testing.T) {
	p, _ := conditionalProblem(intRow(1))
	p.Witnesses = []hole.Witness{hole.SideCond{Expr: gtZeroX()}}
	eng := New(lang.NewTreeEvaluator())
	assert.Empty(t, eng.Apply(nil, p))
}

type fakeNode struct {
	parent SearchNode
	label  string
}

func (n *fakeNode) Parent() SearchNode { return n.parent }
func (n *fakeNode) RuleLabel() string  { return n.label }

func TestReentryGuard(t *testing.T) {
	eng := New(lang.NewTreeEvaluator())
	p, _ := conditionalProblem(intRow(1), intRow(2))

	// Root-level focus proceeds.
	assert.NotEmpty(t, eng.Apply(nil, p))
	assert.NotEmpty(t, eng.Apply(&fakeNode{}, p))

	// Continuing this engine's own chain proceeds.
	chain := &fakeNode{parent: &fakeNode{label: LabelSplit}}
	assert.NotEmpty(t, eng.Apply(chain, p))

	// A step taken by any other rule stops refocusing.
	other := &fakeNode{parent: &fakeNode{label: "cegis/unfold"}}
	assert.Empty(t, eng.Apply(other, p))
}

// Every stage-2 classification is reported to the attached observer, so
// callers can export classified conditions alongside the decompositions.
func TestClassificationObserver(t *testing.T) {
	type seen struct {
		problemID string
		cond      string
		outcome   classify.Outcome
	}
	var got []seen
	eng := New(lang.NewTreeEvaluator(),
		WithClassificationObserver(func(p hole.Problem, cond lang.Expr, outcome classify.Outcome) {
			got = append(got, seen{p.ID, cond.String(), outcome})
		}))

	p, _ := conditionalProblem(intRow(1), intRow(-1))
	require.NotEmpty(t, eng.Apply(nil, p))
	require.Len(t, got, 1)
	assert.Equal(t, p.ID, got[0].problemID)
	assert.Equal(t, gtZeroX().String(), got[0].cond)
	assert.Equal(t, classify.Indeterminate, got[0].outcome)

	got = nil
	p, _ = conditionalProblem(intRow(1), intRow(2))
	require.NotEmpty(t, eng.Apply(nil, p))
	require.Len(t, got, 1)
	assert.Equal(t, classify.AlwaysTrue, got[0].outcome)
}

func TestRecompose_ConditionalBothAlgebra(t *testing.T) {
	p1 := gtZeroX()
	p2 := lang.Binary{Op: lang.OpLt, Left: xVar(), Right: lang.Int64(10)}
	r := Recomposer{Kind: WrapConditionalBoth, Cond: gtZeroX()}

	sol, ok := r.Apply([]hole.Solution{
		{Pre: p1, Term: lang.Int64(1)},
		{Pre: p2, Term: lang.Int64(2)},
	})
	require.True(t, ok)

	wantTerm := lang.Expr(lang.If{Cond: gtZeroX(), Then: lang.Int64(1), Else: lang.Int64(2)})
	if diff := cmp.Diff(wantTerm, sol.Term); diff != "" {
		t.Fatalf("term mismatch (-want +got):\n%s", diff)
	}
	wantPre := lang.Or(p1, p2)
	if diff := cmp.Diff(wantPre, sol.Pre); diff != "" {
		t.Fatalf("pre mismatch (-want +got):\n%s", diff)
	}
}

func TestRecompose_MismatchIsNone(t *testing.T) {
	r := Recomposer{Kind: WrapConditionalBoth, Cond: gtZeroX()}
	_, ok := r.Apply([]hole.Solution{{Term: lang.Int64(1)}})
	assert.False(t, ok)

	_, ok = Recomposer{Kind: WrapLet}.Apply([]hole.Solution{{Term: lang.Int64(1)}})
	assert.False(t, ok)

	_, ok = Recomposer{Kind: WrapMatch, Scrutinee: xVar(), HoleCases: []int{0, 1}}.
		Apply([]hole.Solution{{Term: lang.Int64(1)}})
	assert.False(t, ok)
}

func TestRecompose_MatchPreconditions(t *testing.T) {
	r := Recomposer{
		Kind:      WrapMatch,
		Scrutinee: lang.Var{Name: "l"},
		Cases: []lang.Case{
			{Ctor: "Nil", Body: lang.Int64(0)},
			{Ctor: "Cons", Binders: []string{"h", "t"}, Body: lang.Placeholder{}},
		},
		HoleCases: []int{1},
	}

	// Trivial precondition contributes no disjunct: overall pre stays true.
	sol, ok := r.Apply([]hole.Solution{{Pre: lang.True(), Term: lang.Var{Name: "h"}}})
	require.True(t, ok)
	assert.True(t, lang.IsTrue(sol.Pre))

	m, isMatch := sol.Term.(lang.Match)
	require.True(t, isMatch)
	assert.Equal(t, lang.Expr(lang.Var{Name: "h"}), m.Cases[1].Body)
	assert.Equal(t, lang.Expr(lang.Int64(0)), m.Cases[0].Body)

	// Non-trivial precondition survives.
	sol, ok = r.Apply([]hole.Solution{{Pre: gtZeroX(), Term: lang.Var{Name: "h"}}})
	require.True(t, ok)
	if diff := cmp.Diff(lang.Expr(gtZeroX()), sol.Pre); diff != "" {
		t.Fatalf("pre mismatch (-want +got):\n%s", diff)
	}
}

func TestRecompose_LetKeepsBindingInScope(t *testing.T) {
	r := Recomposer{
		Kind:      WrapLet,
		BindName:  "n",
		BindValue: lang.Int64(2),
	}
	pre := lang.Binary{Op: lang.OpGt, Left: lang.Var{Name: "n"}, Right: lang.Int64(0)}
	sol, ok := r.Apply([]hole.Solution{{Pre: pre, Term: lang.Var{Name: "n"}}})
	require.True(t, ok)

	// The precondition references the binding, so it is wrapped.
	got, err := lang.EvalBool(lang.NewTreeEvaluator(), sol.Pre, lang.Env{})
	require.NoError(t, err)
	assert.True(t, got)
}

// Chained focusing: the child of a split carries a guide whose rebuild
// continuation rewraps the branch, so a second engine application descends
// further and its recomposition nests correctly.
func TestChainedFocusing(t *testing.T) {
	// if x > 0 then (if x > 5 then 0 else -1) else 99, post _res == x.
	innerCond := lang.Binary{Op: lang.OpGt, Left: xVar(), Right: lang.Int64(5)}
	inner := lang.If{Cond: innerCond, Then: lang.Int64(0), Else: lang.Int64(-1)}
	body := lang.If{Cond: gtZeroX(), Then: inner, Else: lang.Int64(99)}

	p := hole.NewProblem(hole.Problem{
		Inputs:    []string{"x"},
		Outputs:   []string{"y"},
		Fn:        hole.Function{Params: []string{"x"}, Body: body, Post: eqRes(xVar())},
		Witnesses: []hole.Witness{hole.Guide{Expr: body}},
		Examples:  hole.NewBank(nil, []hole.Row{intRow(7), intRow(8)}),
	})

	eng := New(lang.NewTreeEvaluator())
	insts := eng.Apply(nil, p)
	require.Len(t, insts, 1)
	require.Equal(t, LabelFocusThen, insts[0].Label)

	child := insts[0].Children[0]
	node := &fakeNode{parent: &fakeNode{label: insts[0].Label}}
	inner2 := eng.Apply(node, child)
	require.Len(t, inner2, 1)
	assert.Equal(t, LabelFocusThen, inner2[0].Label)

	// Solve the innermost hole and recompose outward.
	leaf := hole.Solution{Pre: lang.True(), Term: xVar()}
	mid, ok := inner2[0].Recompose.Apply([]hole.Solution{leaf})
	require.True(t, ok)
	full, ok := insts[0].Recompose.Apply([]hole.Solution{mid})
	require.True(t, ok)

	want := lang.Expr(lang.If{
		Cond: gtZeroX(),
		Then: lang.If{Cond: innerCond, Then: xVar(), Else: lang.Int64(-1)},
		Else: lang.Int64(99),
	})
	if diff := cmp.Diff(want, full.Term); diff != "" {
		t.Fatalf("recomposed term mismatch (-want +got):\n%s", diff)
	}
}
