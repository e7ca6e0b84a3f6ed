// Package goeval provides an alternative Evaluator backed by yaegi: scalar
// expressions are rendered to Go source and evaluated in an embedded
// interpreter. Data-typed expressions (constructors, match, selectors) are
// not renderable and return an error, which the classifier degrades to an
// indeterminate outcome — slower search, never unsound.
package goeval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/traefik/yaegi/interp"

	"subgoal/internal/lang"
)

// ErrUnsupported marks expressions outside the renderable scalar subset.
var ErrUnsupported = errors.New("expression not renderable as Go")

// Evaluator renders and evaluates scalar expressions via yaegi. A fresh
// interpreter is created per call; yaegi interpreters are not safe for
// concurrent reuse.
type Evaluator struct{}

// New builds a yaegi-backed evaluator.
func New() Evaluator { return Evaluator{} }

// Eval implements lang.Evaluator.
func (Evaluator) Eval(e lang.Expr, env lang.Env) (lang.Value, error) {
	src, err := render(e, env)
	if err != nil {
		return nil, err
	}
	i := interp.New(interp.Options{})
	v, err := i.Eval(src)
	if err != nil {
		return nil, fmt.Errorf("yaegi eval: %w", err)
	}
	res := v.Interface()
	switch r := res.(type) {
	case bool:
		return lang.Bool(r), nil
	case int64:
		return lang.Int(r), nil
	case int:
		return lang.Int(int64(r)), nil
	case string:
		return lang.Str(r), nil
	}
	return nil, fmt.Errorf("%w: result %T", ErrUnsupported, res)
}

// render produces a self-contained Go expression: used environment variables
// become declarations inside an immediately invoked function literal.
func render(e lang.Expr, env lang.Env) (string, error) {
	body, err := renderExpr(e)
	if err != nil {
		return "", err
	}

	var decls strings.Builder
	free := lang.FreeVars(e)
	for name := range free {
		v, ok := env[name]
		if !ok {
			return "", fmt.Errorf("%w: unbound variable %s", ErrUnsupported, name)
		}
		lit, err := renderValue(v)
		if err != nil {
			return "", err
		}
		if !validIdent(name) {
			return "", fmt.Errorf("%w: variable %q is not a Go identifier", ErrUnsupported, name)
		}
		fmt.Fprintf(&decls, "%s := %s\n_ = %s\n", name, lit, name)
	}

	return fmt.Sprintf("func() interface{} {\n%sreturn %s\n}()", decls.String(), body), nil
}

func renderValue(v lang.Value) (string, error) {
	switch val := v.(type) {
	case lang.Int:
		return fmt.Sprintf("int64(%d)", int64(val)), nil
	case lang.Bool:
		return strconv.FormatBool(bool(val)), nil
	case lang.Str:
		return strconv.Quote(string(val)), nil
	}
	return "", fmt.Errorf("%w: value %s", ErrUnsupported, v)
}

var goBinaryOps = map[lang.BinaryOp]string{
	lang.OpAnd: "&&", lang.OpOr: "||",
	lang.OpEq: "==", lang.OpNe: "!=",
	lang.OpLt: "<", lang.OpLe: "<=", lang.OpGt: ">", lang.OpGe: ">=",
	lang.OpAdd: "+", lang.OpSub: "-", lang.OpMul: "*",
}

func renderExpr(e lang.Expr) (string, error) {
	switch n := e.(type) {
	case lang.Var:
		if !validIdent(n.Name) {
			return "", fmt.Errorf("%w: variable %q", ErrUnsupported, n.Name)
		}
		return n.Name, nil
	case lang.Lit:
		return renderValue(n.Val)
	case lang.Unary:
		op, err := renderExpr(n.Operand)
		if err != nil {
			return "", err
		}
		switch n.Op {
		case lang.OpNot:
			return fmt.Sprintf("!(%s)", op), nil
		case lang.OpNeg:
			return fmt.Sprintf("-(%s)", op), nil
		}
		return "", fmt.Errorf("%w: unary %q", ErrUnsupported, n.Op)
	case lang.Binary:
		sym, ok := goBinaryOps[n.Op]
		if !ok {
			return "", fmt.Errorf("%w: binary %q", ErrUnsupported, n.Op)
		}
		l, err := renderExpr(n.Left)
		if err != nil {
			return "", err
		}
		r, err := renderExpr(n.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", l, sym, r), nil
	case lang.If:
		c, err := renderExpr(n.Cond)
		if err != nil {
			return "", err
		}
		t, err := renderExpr(n.Then)
		if err != nil {
			return "", err
		}
		f, err := renderExpr(n.Else)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("func() interface{} { if %s { return %s }; return %s }()", c, t, f), nil
	case lang.Let:
		if !validIdent(n.Name) {
			return "", fmt.Errorf("%w: binding %q", ErrUnsupported, n.Name)
		}
		v, err := renderExpr(n.Value)
		if err != nil {
			return "", err
		}
		b, err := renderExpr(n.Body)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("func() interface{} { %s := %s; _ = %s; return %s }()", n.Name, v, n.Name, b), nil
	}
	return "", fmt.Errorf("%w: %T", ErrUnsupported, e)
}

func validIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
