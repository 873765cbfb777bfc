package engine

import (
	"errors"
	"testing"
)

// TestForall tests universal quantification over document sequences
func TestForall(t *testing.T) {
	e := newTestEvaluator(t)
	policy := mustParse(t, []interface{}{
		"forall", "doc.users",
		[]interface{}{"=", "doc.active", true},
	})

	tests := []struct {
		name string
		doc  map[string]interface{}
		want string
	}{
		{
			name: "all elements satisfy",
			doc: map[string]interface{}{
				"users": []interface{}{
					map[string]interface{}{"active": true},
					map[string]interface{}{"active": true},
				},
			},
			want: "satisfied",
		},
		{
			name: "one failing element contradicts",
			doc: map[string]interface{}{
				"users": []interface{}{
					map[string]interface{}{"active": true},
					map[string]interface{}{"active": false},
				},
			},
			want: "contradiction",
		},
		{
			name: "empty sequence is vacuously satisfied",
			doc:  map[string]interface{}{"users": []interface{}{}},
			want: "satisfied",
		},
		{
			name: "incomplete element is residual",
			doc: map[string]interface{}{
				"users": []interface{}{
					map[string]interface{}{"active": true},
					map[string]interface{}{"name": "bob"},
				},
			},
			want: "residual",
		},
		{
			name: "missing sequence is residual",
			doc:  map[string]interface{}{},
			want: "residual",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := e.Evaluate(policy, tt.doc)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got := classify(result); got != tt.want {
				t.Errorf("Evaluate() = %s, want %s", result, tt.want)
			}
		})
	}
}

// TestForallResidualIdentifiesElement tests that the residual names the
// incomplete element's position
func TestForallResidualIdentifiesElement(t *testing.T) {
	e := newTestEvaluator(t)
	policy := mustParse(t, []interface{}{
		"forall", "doc.users",
		[]interface{}{"=", "doc.active", true},
	})

	result, err := e.Evaluate(policy, map[string]interface{}{
		"users": []interface{}{
			map[string]interface{}{"active": true},
			map[string]interface{}{"name": "bob"},
		},
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	cs := result.At("users[1].active")
	if len(cs) != 1 || cs[0].Op != "=" {
		t.Errorf("Evaluate() = %s, want constraint keyed by element position", result)
	}
}

// TestExists tests existential quantification
func TestExists(t *testing.T) {
	e := newTestEvaluator(t)
	policy := mustParse(t, []interface{}{
		"exists", "doc.users",
		[]interface{}{"=", "doc.role", "admin"},
	})

	tests := []struct {
		name string
		doc  map[string]interface{}
		want string
	}{
		{
			name: "one matching element satisfies",
			doc: map[string]interface{}{
				"users": []interface{}{
					map[string]interface{}{"role": "guest"},
					map[string]interface{}{"role": "admin"},
				},
			},
			want: "satisfied",
		},
		{
			name: "no matching element contradicts",
			doc: map[string]interface{}{
				"users": []interface{}{
					map[string]interface{}{"role": "guest"},
				},
			},
			want: "contradiction",
		},
		{
			name: "empty sequence contradicts",
			doc:  map[string]interface{}{"users": []interface{}{}},
			want: "contradiction",
		},
		{
			name: "no match but incomplete element is residual",
			doc: map[string]interface{}{
				"users": []interface{}{
					map[string]interface{}{"role": "guest"},
					map[string]interface{}{"name": "bob"},
				},
			},
			want: "residual",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := e.Evaluate(policy, tt.doc)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got := classify(result); got != tt.want {
				t.Errorf("Evaluate() = %s, want %s", result, tt.want)
			}
		})
	}
}

// TestNestedQuantifiers tests forall over a path whose body is an exists
func TestNestedQuantifiers(t *testing.T) {
	e := newTestEvaluator(t)
	policy := mustParse(t, []interface{}{
		"forall", "doc.teams",
		[]interface{}{
			"exists", "doc.members",
			[]interface{}{"=", "doc.lead", true},
		},
	})

	t.Run("every team has a lead", func(t *testing.T) {
		result, err := e.Evaluate(policy, map[string]interface{}{
			"teams": []interface{}{
				map[string]interface{}{"members": []interface{}{
					map[string]interface{}{"lead": true},
				}},
				map[string]interface{}{"members": []interface{}{
					map[string]interface{}{"lead": false},
					map[string]interface{}{"lead": true},
				}},
			},
		})
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if !result.IsSatisfied() {
			t.Errorf("Evaluate() = %s, want satisfied", result)
		}
	})

	t.Run("one team without a lead contradicts", func(t *testing.T) {
		result, err := e.Evaluate(policy, map[string]interface{}{
			"teams": []interface{}{
				map[string]interface{}{"members": []interface{}{
					map[string]interface{}{"lead": false},
				}},
			},
		})
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if !result.IsContradiction() {
			t.Errorf("Evaluate() = %s, want contradiction", result)
		}
	})
}

// TestQuantifierTypeErrors tests sequence and element type validation
func TestQuantifierTypeErrors(t *testing.T) {
	e := newTestEvaluator(t)
	policy := mustParse(t, []interface{}{
		"forall", "doc.users",
		[]interface{}{"=", "doc.active", true},
	})

	t.Run("scalar at sequence path", func(t *testing.T) {
		_, err := e.Evaluate(policy, map[string]interface{}{"users": "nope"})
		var te *TypeError
		if !errors.As(err, &te) {
			t.Fatalf("Evaluate() error = %v, want TypeError", err)
		}
	})

	t.Run("scalar element", func(t *testing.T) {
		_, err := e.Evaluate(policy, map[string]interface{}{
			"users": []interface{}{"nope"},
		})
		var te *TypeError
		if !errors.As(err, &te) {
			t.Fatalf("Evaluate() error = %v, want TypeError", err)
		}
	})
}
