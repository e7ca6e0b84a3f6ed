package lang

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a concrete runtime value.
type Value interface {
	isValue()
	String() string
}

// Int is a 64-bit integer value.
type Int int64

// Bool is a boolean value.
type Bool bool

// Str is a string value.
type Str string

// Data is an algebraic data value: a constructor applied to field values.
type Data struct {
	Ctor string
	Args []Value
}

func (Int) isValue()  {}
func (Bool) isValue() {}
func (Str) isValue()  {}
func (Data) isValue() {}

func (v Int) String() string  { return strconv.FormatInt(int64(v), 10) }
func (v Bool) String() string { return strconv.FormatBool(bool(v)) }
func (v Str) String() string  { return strconv.Quote(string(v)) }

func (v Data) String() string {
	if len(v.Args) == 0 {
		return v.Ctor
	}
	args := make([]string, len(v.Args))
	for i, a := range v.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", v.Ctor, strings.Join(args, ", "))
}

// ValuesEqual reports deep structural equality of two values.
func ValuesEqual(a, b Value) bool {
	switch x := a.(type) {
	case Int:
		y, ok := b.(Int)
		return ok && x == y
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Str:
		y, ok := b.(Str)
		return ok && x == y
	case Data:
		y, ok := b.(Data)
		if !ok || x.Ctor != y.Ctor || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !ValuesEqual(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Env maps variable names to values. Envs handed to the evaluator are never
// mutated by it; callers that extend an env should Clone first.
type Env map[string]Value

// Clone returns a shallow copy of the environment.
func (e Env) Clone() Env {
	out := make(Env, len(e)+2)
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Bind returns a copy of the environment with name bound to v.
func (e Env) Bind(name string, v Value) Env {
	out := e.Clone()
	out[name] = v
	return out
}
