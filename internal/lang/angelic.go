package lang

// AngelicUniform reports whether a single boolean choice, uniform across all
// environments, makes e evaluate to want on every one of them. e contains the
// designated free occurrence as a Choice node; since the choice is boolean,
// uniformity reduces to trying both substitutions. Evaluation failure under a
// substitution disqualifies that choice, never the whole probe.
func AngelicUniform(ev Evaluator, e Expr, envs []Env, want bool) bool {
	if len(envs) == 0 {
		return false
	}
	for _, choice := range []bool{true, false} {
		sub := FillChoice(e, choice)
		ok := true
		for _, env := range envs {
			got, err := EvalBool(ev, sub, env)
			if err != nil || got != want {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
