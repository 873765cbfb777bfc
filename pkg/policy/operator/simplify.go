package operator

import "polaris-hq/polaris/pkg/policy/residual"

// bound is a numeric lower or upper bound with strictness.
type bound struct {
	value  float64
	strict bool // true for < and >, false for <= and >=
}

// simplifyComparable merges same-path equality/ordering constraints into
// the tightest equivalent set, or detects that they contradict each other.
// Constraints whose operands resist numeric interpretation are left
// untouched: runtime evaluation remains the source of truth, compile-time
// merging only ever tightens what it can prove.
func simplifyComparable(cs []residual.Constraint) ([]residual.Constraint, bool) {
	var (
		equalities    []residual.Constraint
		disequalities []residual.Constraint
		lower         *bound
		upper         *bound
		passthrough   []residual.Constraint
	)

	for _, c := range cs {
		switch c.Op {
		case OpEqual:
			equalities = append(equalities, c)
		case OpNotEqual:
			disequalities = append(disequalities, c)
		case OpLessThan, OpLessEqual, OpGreaterThan, OpGreaterEqual:
			num, err := convertToFloat64(c.Value)
			if err != nil {
				// Not provably orderable at compile time.
				passthrough = append(passthrough, c)
				continue
			}
			strict := c.Op == OpLessThan || c.Op == OpGreaterThan
			if c.Op == OpLessThan || c.Op == OpLessEqual {
				upper = tightenUpper(upper, bound{value: num, strict: strict})
			} else {
				lower = tightenLower(lower, bound{value: num, strict: strict})
			}
		default:
			passthrough = append(passthrough, c)
		}
	}

	// Conflicting equalities contradict regardless of anything else.
	for i := 1; i < len(equalities); i++ {
		equal, err := evalEqual(equalities[0].Value, equalities[i].Value)
		if err != nil || !equal {
			return nil, true
		}
	}

	// An equality subsumes every consistent bound and disequality.
	if len(equalities) > 0 {
		eq := equalities[0]
		for _, neq := range disequalities {
			equal, err := evalEqual(eq.Value, neq.Value)
			if err == nil && equal {
				return nil, true
			}
		}
		if lower != nil || upper != nil {
			num, err := convertToFloat64(eq.Value)
			if err != nil {
				// Equality to a non-number alongside numeric bounds:
				// the bounds can never hold against this value.
				return nil, true
			}
			if !withinLower(num, lower) || !withinUpper(num, upper) {
				return nil, true
			}
		}
		return append([]residual.Constraint{eq}, passthrough...), false
	}

	// Bounds crossing each other contradict.
	if lower != nil && upper != nil {
		if lower.value > upper.value {
			return nil, true
		}
		if lower.value == upper.value && (lower.strict || upper.strict) {
			return nil, true
		}
	}

	var simplified []residual.Constraint
	if lower != nil {
		simplified = append(simplified, residual.Constraint{Op: lowerOp(lower.strict), Value: lower.value})
	}
	if upper != nil {
		simplified = append(simplified, residual.Constraint{Op: upperOp(upper.strict), Value: upper.value})
	}
	for _, neq := range disequalities {
		// A disequality excluding the only admissible point contradicts.
		if lower != nil && upper != nil && !lower.strict && !upper.strict && lower.value == upper.value {
			equal, err := evalEqual(neq.Value, lower.value)
			if err == nil && equal {
				return nil, true
			}
		}
		// Disequalities already implied by the bounds are dropped.
		if num, err := convertToFloat64(neq.Value); err == nil {
			if !withinLower(num, lower) || !withinUpper(num, upper) {
				continue
			}
		}
		simplified = append(simplified, neq)
	}
	simplified = append(simplified, passthrough...)

	return simplified, false
}

// subsumesComparable reports whether constraint a implies constraint b.
func subsumesComparable(a, b residual.Constraint) bool {
	if a.Op == OpEqual {
		def, ok := map[string]EvalFunc{
			OpEqual:        evalEqual,
			OpNotEqual:     evalNotEqual,
			OpLessThan:     evalLessThan,
			OpLessEqual:    evalLessEqual,
			OpGreaterThan:  evalGreaterThan,
			OpGreaterEqual: evalGreaterEqual,
		}[b.Op]
		if !ok {
			return false
		}
		holds, err := def(a.Value, b.Value)
		return err == nil && holds
	}

	av, aerr := convertToFloat64(a.Value)
	bv, berr := convertToFloat64(b.Value)
	if aerr != nil || berr != nil {
		return false
	}

	switch {
	case isLowerOp(a.Op) && isLowerOp(b.Op):
		if av == bv {
			return a.Op == b.Op || a.Op == OpGreaterThan
		}
		return av > bv
	case isUpperOp(a.Op) && isUpperOp(b.Op):
		if av == bv {
			return a.Op == b.Op || a.Op == OpLessThan
		}
		return av < bv
	}
	return false
}

func isLowerOp(op string) bool { return op == OpGreaterThan || op == OpGreaterEqual }
func isUpperOp(op string) bool { return op == OpLessThan || op == OpLessEqual }

func lowerOp(strict bool) string {
	if strict {
		return OpGreaterThan
	}
	return OpGreaterEqual
}

func upperOp(strict bool) string {
	if strict {
		return OpLessThan
	}
	return OpLessEqual
}

// tightenLower keeps the stronger of two lower bounds.
func tightenLower(current *bound, candidate bound) *bound {
	if current == nil {
		return &candidate
	}
	if candidate.value > current.value {
		return &candidate
	}
	if candidate.value == current.value && candidate.strict && !current.strict {
		return &candidate
	}
	return current
}

// tightenUpper keeps the stronger of two upper bounds.
func tightenUpper(current *bound, candidate bound) *bound {
	if current == nil {
		return &candidate
	}
	if candidate.value < current.value {
		return &candidate
	}
	if candidate.value == current.value && candidate.strict && !current.strict {
		return &candidate
	}
	return current
}

// withinLower reports whether a value satisfies a lower bound.
func withinLower(v float64, lo *bound) bool {
	if lo == nil {
		return true
	}
	if lo.strict {
		return v > lo.value
	}
	return v >= lo.value
}

// withinUpper reports whether a value satisfies an upper bound.
func withinUpper(v float64, hi *bound) bool {
	if hi == nil {
		return true
	}
	if hi.strict {
		return v < hi.value
	}
	return v <= hi.value
}
