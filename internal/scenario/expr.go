package scenario

import (
	"fmt"
	"strconv"
	"strings"

	"subgoal/internal/lang"
)

// ExprSpec is the YAML representation of one expression node. Kind selects
// the variant; only the matching fields are read.
type ExprSpec struct {
	Kind string `yaml:"kind"`

	Name string  `yaml:"name,omitempty"` // var, let
	Int  *int64  `yaml:"int,omitempty"`  // int literal
	Bool *bool   `yaml:"bool,omitempty"` // bool literal
	Str  *string `yaml:"str,omitempty"`  // string literal

	Op      string    `yaml:"op,omitempty"` // bin, not/neg use Kind directly
	Left    *ExprSpec `yaml:"left,omitempty"`
	Right   *ExprSpec `yaml:"right,omitempty"`
	Operand *ExprSpec `yaml:"operand,omitempty"`

	Cond *ExprSpec `yaml:"cond,omitempty"`
	Then *ExprSpec `yaml:"then,omitempty"`
	Else *ExprSpec `yaml:"else,omitempty"`

	Value *ExprSpec `yaml:"value,omitempty"`
	Body  *ExprSpec `yaml:"body,omitempty"`

	Scrutinee *ExprSpec  `yaml:"scrutinee,omitempty"`
	Cases     []CaseSpec `yaml:"cases,omitempty"`

	Ctor  string     `yaml:"ctor,omitempty"`
	Args  []ExprSpec `yaml:"args,omitempty"`
	Index *int       `yaml:"index,omitempty"`
}

// CaseSpec is one match arm.
type CaseSpec struct {
	Ctor     string    `yaml:"ctor,omitempty"`
	Binders  []string  `yaml:"binders,omitempty"`
	Wildcard bool      `yaml:"wildcard,omitempty"`
	Body     *ExprSpec `yaml:"body"`
}

var specBinaryOps = map[string]lang.BinaryOp{
	"and": lang.OpAnd, "or": lang.OpOr,
	"eq": lang.OpEq, "ne": lang.OpNe,
	"lt": lang.OpLt, "le": lang.OpLe, "gt": lang.OpGt, "ge": lang.OpGe,
	"add": lang.OpAdd, "sub": lang.OpSub, "mul": lang.OpMul,
}

func (s *ExprSpec) decode(path string) (lang.Expr, error) {
	if s == nil {
		return nil, newPathError(path, "required")
	}
	sub := func(child *ExprSpec, field string) (lang.Expr, error) {
		return child.decode(path + "." + field)
	}

	switch s.Kind {
	case "var":
		if s.Name == "" {
			return nil, newPathError(path+".name", "required")
		}
		return lang.Var{Name: s.Name}, nil

	case "int":
		if s.Int == nil {
			return nil, newPathError(path+".int", "required")
		}
		return lang.Int64(*s.Int), nil

	case "bool":
		if s.Bool == nil {
			return nil, newPathError(path+".bool", "required")
		}
		return lang.Lit{Val: lang.Bool(*s.Bool)}, nil

	case "str":
		if s.Str == nil {
			return nil, newPathError(path+".str", "required")
		}
		return lang.Lit{Val: lang.Str(*s.Str)}, nil

	case "not", "neg":
		op, err := sub(s.Operand, "operand")
		if err != nil {
			return nil, err
		}
		if s.Kind == "not" {
			return lang.Unary{Op: lang.OpNot, Operand: op}, nil
		}
		return lang.Unary{Op: lang.OpNeg, Operand: op}, nil

	case "bin":
		bop, ok := specBinaryOps[s.Op]
		if !ok {
			return nil, newPathError(path+".op", fmt.Sprintf("unknown operator %q", s.Op))
		}
		l, err := sub(s.Left, "left")
		if err != nil {
			return nil, err
		}
		r, err := sub(s.Right, "right")
		if err != nil {
			return nil, err
		}
		return lang.Binary{Op: bop, Left: l, Right: r}, nil

	case "if":
		c, err := sub(s.Cond, "cond")
		if err != nil {
			return nil, err
		}
		t, err := sub(s.Then, "then")
		if err != nil {
			return nil, err
		}
		e, err := sub(s.Else, "else")
		if err != nil {
			return nil, err
		}
		return lang.If{Cond: c, Then: t, Else: e}, nil

	case "let":
		if s.Name == "" {
			return nil, newPathError(path+".name", "required")
		}
		v, err := sub(s.Value, "value")
		if err != nil {
			return nil, err
		}
		b, err := sub(s.Body, "body")
		if err != nil {
			return nil, err
		}
		return lang.Let{Name: s.Name, Value: v, Body: b}, nil

	case "match":
		scr, err := sub(s.Scrutinee, "scrutinee")
		if err != nil {
			return nil, err
		}
		cases := make([]lang.Case, len(s.Cases))
		for i, cs := range s.Cases {
			body, err := cs.Body.decode(fmt.Sprintf("%s.cases[%d].body", path, i))
			if err != nil {
				return nil, err
			}
			if !cs.Wildcard && cs.Ctor == "" {
				return nil, newPathError(fmt.Sprintf("%s.cases[%d].ctor", path, i), "required")
			}
			cases[i] = lang.Case{
				Ctor:     cs.Ctor,
				Binders:  append([]string(nil), cs.Binders...),
				Wildcard: cs.Wildcard,
				Body:     body,
			}
		}
		return lang.Match{Scrutinee: scr, Cases: cases}, nil

	case "con":
		if s.Ctor == "" {
			return nil, newPathError(path+".ctor", "required")
		}
		args := make([]lang.Expr, len(s.Args))
		for i := range s.Args {
			a, err := s.Args[i].decode(fmt.Sprintf("%s.args[%d]", path, i))
			if err != nil {
				return nil, err
			}
			args[i] = a
		}
		return lang.Con{Ctor: s.Ctor, Args: args}, nil

	case "test":
		if s.Ctor == "" {
			return nil, newPathError(path+".ctor", "required")
		}
		scr, err := sub(s.Scrutinee, "scrutinee")
		if err != nil {
			return nil, err
		}
		return lang.Test{Scrutinee: scr, Ctor: s.Ctor}, nil

	case "sel":
		if s.Ctor == "" {
			return nil, newPathError(path+".ctor", "required")
		}
		if s.Index == nil {
			return nil, newPathError(path+".index", "required")
		}
		scr, err := sub(s.Scrutinee, "scrutinee")
		if err != nil {
			return nil, err
		}
		return lang.Sel{Scrutinee: scr, Ctor: s.Ctor, Index: *s.Index}, nil
	}
	return nil, newPathError(path+".kind", fmt.Sprintf("unknown kind %q", s.Kind))
}

// locate walks a locator path from the body down to the guided
// sub-expression, returning it together with the rebuild-with-hole
// continuation that swaps a replacement into its place.
func locate(body lang.Expr, steps []string, path string) (lang.Expr, func(lang.Expr) lang.Expr, error) {
	if len(steps) == 0 {
		return body, func(x lang.Expr) lang.Expr { return x }, nil
	}
	step := steps[0]
	rest := steps[1:]

	descend := func(child lang.Expr, wrap func(lang.Expr) lang.Expr) (lang.Expr, func(lang.Expr) lang.Expr, error) {
		expr, rebuild, err := locate(child, rest, path)
		if err != nil {
			return nil, nil, err
		}
		return expr, func(x lang.Expr) lang.Expr { return wrap(rebuild(x)) }, nil
	}

	fail := func() (lang.Expr, func(lang.Expr) lang.Expr, error) {
		return nil, nil, newPathError(path, fmt.Sprintf("step %q does not apply to %s", step, body))
	}

	switch n := body.(type) {
	case lang.If:
		switch step {
		case "cond":
			return descend(n.Cond, func(x lang.Expr) lang.Expr { return lang.If{Cond: x, Then: n.Then, Else: n.Else} })
		case "then":
			return descend(n.Then, func(x lang.Expr) lang.Expr { return lang.If{Cond: n.Cond, Then: x, Else: n.Else} })
		case "else":
			return descend(n.Else, func(x lang.Expr) lang.Expr { return lang.If{Cond: n.Cond, Then: n.Then, Else: x} })
		}
		return fail()

	case lang.Let:
		switch step {
		case "value":
			return descend(n.Value, func(x lang.Expr) lang.Expr { return lang.Let{Name: n.Name, Value: x, Body: n.Body} })
		case "body":
			return descend(n.Body, func(x lang.Expr) lang.Expr { return lang.Let{Name: n.Name, Value: n.Value, Body: x} })
		}
		return fail()

	case lang.Match:
		if step == "scrutinee" {
			return descend(n.Scrutinee, func(x lang.Expr) lang.Expr { return lang.Match{Scrutinee: x, Cases: n.Cases} })
		}
		if idx, ok := stepIndex(step, "case"); ok && idx >= 0 && idx < len(n.Cases) {
			return descend(n.Cases[idx].Body, func(x lang.Expr) lang.Expr {
				cases := append([]lang.Case(nil), n.Cases...)
				cases[idx].Body = x
				return lang.Match{Scrutinee: n.Scrutinee, Cases: cases}
			})
		}
		return fail()

	case lang.Unary:
		if step == "operand" {
			return descend(n.Operand, func(x lang.Expr) lang.Expr { return lang.Unary{Op: n.Op, Operand: x} })
		}
		return fail()

	case lang.Binary:
		switch step {
		case "left":
			return descend(n.Left, func(x lang.Expr) lang.Expr { return lang.Binary{Op: n.Op, Left: x, Right: n.Right} })
		case "right":
			return descend(n.Right, func(x lang.Expr) lang.Expr { return lang.Binary{Op: n.Op, Left: n.Left, Right: x} })
		}
		return fail()

	case lang.Con:
		if idx, ok := stepIndex(step, "arg"); ok && idx >= 0 && idx < len(n.Args) {
			return descend(n.Args[idx], func(x lang.Expr) lang.Expr {
				args := append([]lang.Expr(nil), n.Args...)
				args[idx] = x
				return lang.Con{Ctor: n.Ctor, Args: args}
			})
		}
		return fail()
	}
	return fail()
}

func stepIndex(step, prefix string) (int, bool) {
	if !strings.HasPrefix(step, prefix+":") {
		return 0, false
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(step, prefix+":"))
	if err != nil {
		return 0, false
	}
	return idx, true
}
