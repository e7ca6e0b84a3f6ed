package decompose

import (
	"subgoal/internal/hole"
	"subgoal/internal/lang"
)

// binding decomposes a `let id = value in body` guide: always exactly one
// sub-problem focused on the body, with the binding added to the path and one
// extra example column holding value evaluated on each row. Rows where that
// evaluation fails are dropped.
func (e *Engine) binding(p hole.Problem, rest []hole.Witness, g hole.Guide, n lang.Let) []RuleInstantiation {
	child := p.Derive()
	child.Path = p.Path.WithBindings(hole.Bind{Name: n.Name, Value: n.Value})
	child.Inputs = append(child.Inputs, n.Name)
	child.Examples = p.Examples.MapIns(func(r hole.Row) []hole.Row {
		v, err := e.ev.Eval(n.Value, p.RowEnv(e.ev, r))
		if err != nil {
			return nil
		}
		return []hole.Row{append(r.Clone(), v)}
	})

	childGuide := hole.Guide{
		Expr: n.Body,
		Rebuild: func(x lang.Expr) lang.Expr {
			return g.RebuildWith(lang.Let{Name: n.Name, Value: n.Value, Body: x})
		},
	}
	child.Witnesses = append(append([]hole.Witness(nil), rest...), childGuide)

	return []RuleInstantiation{{
		Label:    LabelLet,
		Children: []hole.Problem{child},
		Recompose: Recomposer{
			Kind:      WrapLet,
			BindName:  n.Name,
			BindValue: n.Value,
		},
	}}
}
