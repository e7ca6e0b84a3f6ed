package lang

// Rewrite applies f to every node bottom-up, rebuilding the tree. f receives
// a node whose children have already been rewritten and returns its
// replacement. All variants are value types, so the input tree is never
// mutated.
func Rewrite(e Expr, f func(Expr) Expr) Expr {
	switch n := e.(type) {
	case Unary:
		n.Operand = Rewrite(n.Operand, f)
		return f(n)
	case Binary:
		n.Left = Rewrite(n.Left, f)
		n.Right = Rewrite(n.Right, f)
		return f(n)
	case If:
		n.Cond = Rewrite(n.Cond, f)
		n.Then = Rewrite(n.Then, f)
		n.Else = Rewrite(n.Else, f)
		return f(n)
	case Let:
		n.Value = Rewrite(n.Value, f)
		n.Body = Rewrite(n.Body, f)
		return f(n)
	case Match:
		n.Scrutinee = Rewrite(n.Scrutinee, f)
		cases := make([]Case, len(n.Cases))
		for i, c := range n.Cases {
			c.Body = Rewrite(c.Body, f)
			cases[i] = c
		}
		n.Cases = cases
		return f(n)
	case Con:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = Rewrite(a, f)
		}
		n.Args = args
		return f(n)
	case Test:
		n.Scrutinee = Rewrite(n.Scrutinee, f)
		return f(n)
	case Sel:
		n.Scrutinee = Rewrite(n.Scrutinee, f)
		return f(n)
	default:
		// Var, Lit, Choice, Placeholder: leaves.
		return f(e)
	}
}

// FillPlaceholder substitutes term for every Placeholder in template.
func FillPlaceholder(template, term Expr) Expr {
	return Rewrite(template, func(e Expr) Expr {
		if _, ok := e.(Placeholder); ok {
			return term
		}
		return e
	})
}

// FillChoice substitutes the boolean literal b for every Choice in e.
func FillChoice(e Expr, b bool) Expr {
	return Rewrite(e, func(n Expr) Expr {
		if _, ok := n.(Choice); ok {
			return Lit{Val: Bool(b)}
		}
		return n
	})
}

// ContainsPlaceholder reports whether e has an unfilled Placeholder.
func ContainsPlaceholder(e Expr) bool {
	found := false
	Rewrite(e, func(n Expr) Expr {
		if _, ok := n.(Placeholder); ok {
			found = true
		}
		return n
	})
	return found
}

// FreeVars collects the free variable names of e in no particular order.
// Let bindings and match binders shadow as expected.
func FreeVars(e Expr) map[string]bool {
	free := make(map[string]bool)
	collectFree(e, map[string]int{}, free)
	return free
}

func collectFree(e Expr, bound map[string]int, free map[string]bool) {
	switch n := e.(type) {
	case Var:
		if bound[n.Name] == 0 {
			free[n.Name] = true
		}
	case Unary:
		collectFree(n.Operand, bound, free)
	case Binary:
		collectFree(n.Left, bound, free)
		collectFree(n.Right, bound, free)
	case If:
		collectFree(n.Cond, bound, free)
		collectFree(n.Then, bound, free)
		collectFree(n.Else, bound, free)
	case Let:
		collectFree(n.Value, bound, free)
		bound[n.Name]++
		collectFree(n.Body, bound, free)
		bound[n.Name]--
	case Match:
		collectFree(n.Scrutinee, bound, free)
		for _, c := range n.Cases {
			for _, b := range c.Binders {
				bound[b]++
			}
			collectFree(c.Body, bound, free)
			for _, b := range c.Binders {
				bound[b]--
			}
		}
	case Con:
		for _, a := range n.Args {
			collectFree(a, bound, free)
		}
	case Test:
		collectFree(n.Scrutinee, bound, free)
	case Sel:
		collectFree(n.Scrutinee, bound, free)
	}
}
