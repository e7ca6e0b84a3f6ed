// Package scenario loads decomposition problems from YAML files: input and
// output variables, the enclosing function (body and optional postcondition),
// a guide locator, a specification, and concrete example rows. Scenarios make
// problems serializable for the CLI and for tests.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"subgoal/internal/hole"
	"subgoal/internal/lang"
)

// File is the top-level scenario document.
type File struct {
	Name     string       `yaml:"name"`
	Inputs   []string     `yaml:"inputs"`
	Outputs  []string     `yaml:"outputs"`
	Function FunctionSpec `yaml:"function"`
	Spec     *ExprSpec    `yaml:"spec"`
	// Guide is a locator path from the function body down to the guided
	// sub-expression: steps like cond, then, else, value, body, scrutinee,
	// case:N, arg:N. An empty locator guides the whole body.
	Guide    []string     `yaml:"guide"`
	Examples ExamplesSpec `yaml:"examples"`
}

// FunctionSpec mirrors hole.Function.
type FunctionSpec struct {
	Params []string  `yaml:"params"`
	Body   *ExprSpec `yaml:"body"`
	Post   *ExprSpec `yaml:"post"`
}

// ExamplesSpec carries raw example rows; scalars are YAML scalars, data
// values are {ctor: ..., args: [...]} maps.
type ExamplesSpec struct {
	Valid   [][]interface{} `yaml:"valid"`
	Invalid [][]interface{} `yaml:"invalid"`
}

// Load reads and parses a scenario file.
func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(raw)
}

// Parse parses scenario YAML.
func Parse(raw []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("parse scenario: %w", err)
	}
	return f, nil
}

// Problem converts the scenario into a hole.Problem with a fresh identity.
func (f File) Problem() (hole.Problem, error) {
	if f.Function.Body == nil {
		return hole.Problem{}, newPathError("function.body", "required")
	}
	body, err := f.Function.Body.decode("function.body")
	if err != nil {
		return hole.Problem{}, err
	}

	var post lang.Expr
	if f.Function.Post != nil {
		post, err = f.Function.Post.decode("function.post")
		if err != nil {
			return hole.Problem{}, err
		}
	}

	var spec lang.Expr
	if f.Spec != nil {
		spec, err = f.Spec.decode("spec")
		if err != nil {
			return hole.Problem{}, err
		}
	}

	guideExpr, rebuild, err := locate(body, f.Guide, "guide")
	if err != nil {
		return hole.Problem{}, err
	}

	valid, err := decodeRows(f.Examples.Valid, "examples.valid")
	if err != nil {
		return hole.Problem{}, err
	}
	invalid, err := decodeRows(f.Examples.Invalid, "examples.invalid")
	if err != nil {
		return hole.Problem{}, err
	}

	return hole.NewProblem(hole.Problem{
		Inputs:    append([]string(nil), f.Inputs...),
		Outputs:   append([]string(nil), f.Outputs...),
		Witnesses: []hole.Witness{hole.Guide{Expr: guideExpr, Rebuild: rebuild}},
		Fn: hole.Function{
			Params: append([]string(nil), f.Function.Params...),
			Body:   body,
			Post:   post,
		},
		Spec:     spec,
		Examples: hole.NewBank(valid, invalid),
	}), nil
}

func decodeRows(raw [][]interface{}, path string) ([]hole.Row, error) {
	var rows []hole.Row
	for i, r := range raw {
		row := make(hole.Row, len(r))
		for j, cell := range r {
			v, err := decodeValue(cell, fmt.Sprintf("%s[%d][%d]", path, i, j))
			if err != nil {
				return nil, err
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeValue(raw interface{}, path string) (lang.Value, error) {
	switch v := raw.(type) {
	case int:
		return lang.Int(int64(v)), nil
	case int64:
		return lang.Int(v), nil
	case bool:
		return lang.Bool(v), nil
	case string:
		return lang.Str(v), nil
	case map[string]interface{}:
		ctor, ok := v["ctor"].(string)
		if !ok {
			return nil, newPathError(path, "data value needs a ctor string")
		}
		var args []lang.Value
		if rawArgs, ok := v["args"].([]interface{}); ok {
			for i, a := range rawArgs {
				av, err := decodeValue(a, fmt.Sprintf("%s.args[%d]", path, i))
				if err != nil {
					return nil, err
				}
				args = append(args, av)
			}
		}
		return lang.Data{Ctor: ctor, Args: args}, nil
	}
	return nil, newPathError(path, fmt.Sprintf("unsupported value %T", raw))
}

// PathError reports a scenario problem with the YAML path that caused it.
type PathError struct {
	Path    string
	Message string
}

func (e PathError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

func newPathError(path, message string) PathError {
	return PathError{Path: path, Message: message}
}
