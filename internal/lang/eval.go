package lang

import (
	"errors"
	"fmt"
)

// Evaluation errors. Callers usually only care that evaluation failed — the
// classifier maps any failure to an indeterminate outcome — but sentinel
// errors let tests pin down the failure mode.
var (
	ErrUnbound    = errors.New("unbound variable")
	ErrType       = errors.New("type mismatch")
	ErrNoMatch    = errors.New("no case matched")
	ErrChoice     = errors.New("free choice reached by deterministic evaluator")
	ErrIncomplete = errors.New("placeholder reached during evaluation")
)

// Evaluator evaluates an expression under an environment. Implementations
// must be safe for concurrent use on distinct calls and must report failure
// as an error, never a panic.
type Evaluator interface {
	Eval(e Expr, env Env) (Value, error)
}

// TreeEvaluator is the plain deterministic tree-walking evaluator.
type TreeEvaluator struct{}

// NewTreeEvaluator returns the stateless default evaluator.
func NewTreeEvaluator() TreeEvaluator { return TreeEvaluator{} }

// Eval evaluates e under env.
func (t TreeEvaluator) Eval(e Expr, env Env) (Value, error) {
	switch n := e.(type) {
	case Var:
		v, ok := env[n.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnbound, n.Name)
		}
		return v, nil

	case Lit:
		return n.Val, nil

	case Unary:
		v, err := t.Eval(n.Operand, env)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case OpNot:
			b, ok := v.(Bool)
			if !ok {
				return nil, fmt.Errorf("%w: not applied to %s", ErrType, v)
			}
			return Bool(!b), nil
		case OpNeg:
			i, ok := v.(Int)
			if !ok {
				return nil, fmt.Errorf("%w: neg applied to %s", ErrType, v)
			}
			return Int(-i), nil
		}
		return nil, fmt.Errorf("%w: unknown unary op %q", ErrType, n.Op)

	case Binary:
		return t.evalBinary(n, env)

	case If:
		c, err := t.Eval(n.Cond, env)
		if err != nil {
			return nil, err
		}
		b, ok := c.(Bool)
		if !ok {
			return nil, fmt.Errorf("%w: condition evaluated to %s", ErrType, c)
		}
		if bool(b) {
			return t.Eval(n.Then, env)
		}
		return t.Eval(n.Else, env)

	case Let:
		v, err := t.Eval(n.Value, env)
		if err != nil {
			return nil, err
		}
		return t.Eval(n.Body, env.Bind(n.Name, v))

	case Match:
		return t.evalMatch(n, env)

	case Con:
		args := make([]Value, len(n.Args))
		for i, a := range n.Args {
			v, err := t.Eval(a, env)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return Data{Ctor: n.Ctor, Args: args}, nil

	case Test:
		v, err := t.Eval(n.Scrutinee, env)
		if err != nil {
			return nil, err
		}
		d, ok := v.(Data)
		if !ok {
			return nil, fmt.Errorf("%w: constructor test on %s", ErrType, v)
		}
		return Bool(d.Ctor == n.Ctor), nil

	case Sel:
		v, err := t.Eval(n.Scrutinee, env)
		if err != nil {
			return nil, err
		}
		d, ok := v.(Data)
		if !ok {
			return nil, fmt.Errorf("%w: selector on %s", ErrType, v)
		}
		if d.Ctor != n.Ctor {
			return nil, fmt.Errorf("%w: selector expects %s, got %s", ErrType, n.Ctor, d.Ctor)
		}
		if n.Index < 0 || n.Index >= len(d.Args) {
			return nil, fmt.Errorf("%w: selector index %d out of range for %s/%d", ErrType, n.Index, d.Ctor, len(d.Args))
		}
		return d.Args[n.Index], nil

	case Choice:
		return nil, ErrChoice

	case Placeholder:
		return nil, ErrIncomplete
	}
	return nil, fmt.Errorf("%w: unknown expression %T", ErrType, e)
}

func (t TreeEvaluator) evalBinary(n Binary, env Env) (Value, error) {
	// And/Or short-circuit; everything else evaluates both sides.
	if n.Op == OpAnd || n.Op == OpOr {
		l, err := t.Eval(n.Left, env)
		if err != nil {
			return nil, err
		}
		lb, ok := l.(Bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s operand %s", ErrType, n.Op, l)
		}
		if n.Op == OpAnd && !bool(lb) {
			return Bool(false), nil
		}
		if n.Op == OpOr && bool(lb) {
			return Bool(true), nil
		}
		r, err := t.Eval(n.Right, env)
		if err != nil {
			return nil, err
		}
		rb, ok := r.(Bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s operand %s", ErrType, n.Op, r)
		}
		return rb, nil
	}

	l, err := t.Eval(n.Left, env)
	if err != nil {
		return nil, err
	}
	r, err := t.Eval(n.Right, env)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case OpEq:
		return Bool(ValuesEqual(l, r)), nil
	case OpNe:
		return Bool(!ValuesEqual(l, r)), nil
	}

	li, lok := l.(Int)
	ri, rok := r.(Int)
	if !lok || !rok {
		return nil, fmt.Errorf("%w: %s applied to %s and %s", ErrType, n.Op, l, r)
	}
	switch n.Op {
	case OpLt:
		return Bool(li < ri), nil
	case OpLe:
		return Bool(li <= ri), nil
	case OpGt:
		return Bool(li > ri), nil
	case OpGe:
		return Bool(li >= ri), nil
	case OpAdd:
		return Int(li + ri), nil
	case OpSub:
		return Int(li - ri), nil
	case OpMul:
		return Int(li * ri), nil
	}
	return nil, fmt.Errorf("%w: unknown binary op %q", ErrType, n.Op)
}

func (t TreeEvaluator) evalMatch(n Match, env Env) (Value, error) {
	v, err := t.Eval(n.Scrutinee, env)
	if err != nil {
		return nil, err
	}
	for _, c := range n.Cases {
		if c.Wildcard {
			return t.Eval(c.Body, env)
		}
		d, ok := v.(Data)
		if !ok {
			return nil, fmt.Errorf("%w: match scrutinee %s", ErrType, v)
		}
		if d.Ctor != c.Ctor {
			continue
		}
		if len(c.Binders) != len(d.Args) {
			return nil, fmt.Errorf("%w: case %s binds %d of %d fields", ErrType, c.Ctor, len(c.Binders), len(d.Args))
		}
		inner := env
		if len(c.Binders) > 0 {
			inner = env.Clone()
			for i, b := range c.Binders {
				inner[b] = d.Args[i]
			}
		}
		return t.Eval(c.Body, inner)
	}
	return nil, fmt.Errorf("%w: %s", ErrNoMatch, v)
}

// EvalBool evaluates e and asserts a boolean result.
func EvalBool(ev Evaluator, e Expr, env Env) (bool, error) {
	v, err := ev.Eval(e, env)
	if err != nil {
		return false, err
	}
	b, ok := v.(Bool)
	if !ok {
		return false, fmt.Errorf("%w: expected boolean, got %s", ErrType, v)
	}
	return bool(b), nil
}
