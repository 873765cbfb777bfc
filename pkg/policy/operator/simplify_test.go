package operator

import (
	"testing"

	"polaris-hq/polaris/pkg/policy/residual"
)

// TestSimplifyComparable tests compile-time constraint merging
func TestSimplifyComparable(t *testing.T) {
	tests := []struct {
		name           string
		constraints    []residual.Constraint
		want           []residual.Constraint
		wantContradict bool
	}{
		{
			name: "lower bounds tighten to the max",
			constraints: []residual.Constraint{
				{Op: OpGreaterThan, Value: 3},
				{Op: OpGreaterThan, Value: 5},
			},
			want: []residual.Constraint{{Op: OpGreaterThan, Value: float64(5)}},
		},
		{
			name: "upper bounds tighten to the min",
			constraints: []residual.Constraint{
				{Op: OpLessThan, Value: 10},
				{Op: OpLessEqual, Value: 7},
			},
			want: []residual.Constraint{{Op: OpLessEqual, Value: float64(7)}},
		},
		{
			name: "strict beats inclusive at the same value",
			constraints: []residual.Constraint{
				{Op: OpGreaterEqual, Value: 5},
				{Op: OpGreaterThan, Value: 5},
			},
			want: []residual.Constraint{{Op: OpGreaterThan, Value: float64(5)}},
		},
		{
			name: "window survives",
			constraints: []residual.Constraint{
				{Op: OpGreaterThan, Value: 3},
				{Op: OpGreaterThan, Value: 5},
				{Op: OpLessThan, Value: 10},
			},
			want: []residual.Constraint{
				{Op: OpGreaterThan, Value: float64(5)},
				{Op: OpLessThan, Value: float64(10)},
			},
		},
		{
			name: "crossed bounds contradict",
			constraints: []residual.Constraint{
				{Op: OpGreaterThan, Value: 10},
				{Op: OpLessThan, Value: 5},
			},
			wantContradict: true,
		},
		{
			name: "touching strict bounds contradict",
			constraints: []residual.Constraint{
				{Op: OpGreaterThan, Value: 5},
				{Op: OpLessEqual, Value: 5},
			},
			wantContradict: true,
		},
		{
			name: "touching inclusive bounds survive",
			constraints: []residual.Constraint{
				{Op: OpGreaterEqual, Value: 5},
				{Op: OpLessEqual, Value: 5},
			},
			want: []residual.Constraint{
				{Op: OpGreaterEqual, Value: float64(5)},
				{Op: OpLessEqual, Value: float64(5)},
			},
		},
		{
			name: "conflicting equalities contradict",
			constraints: []residual.Constraint{
				{Op: OpEqual, Value: "admin"},
				{Op: OpEqual, Value: "guest"},
			},
			wantContradict: true,
		},
		{
			name: "agreeing equalities collapse to one",
			constraints: []residual.Constraint{
				{Op: OpEqual, Value: 7},
				{Op: OpEqual, Value: float64(7)},
			},
			want: []residual.Constraint{{Op: OpEqual, Value: 7}},
		},
		{
			name: "equality inside bounds subsumes them",
			constraints: []residual.Constraint{
				{Op: OpEqual, Value: 7},
				{Op: OpGreaterThan, Value: 5},
				{Op: OpLessThan, Value: 10},
			},
			want: []residual.Constraint{{Op: OpEqual, Value: 7}},
		},
		{
			name: "equality outside bounds contradicts",
			constraints: []residual.Constraint{
				{Op: OpEqual, Value: 3},
				{Op: OpGreaterThan, Value: 5},
			},
			wantContradict: true,
		},
		{
			name: "equality conflicting with disequality contradicts",
			constraints: []residual.Constraint{
				{Op: OpEqual, Value: "admin"},
				{Op: OpNotEqual, Value: "admin"},
			},
			wantContradict: true,
		},
		{
			name: "disequality implied by bounds is dropped",
			constraints: []residual.Constraint{
				{Op: OpGreaterThan, Value: 5},
				{Op: OpNotEqual, Value: 3},
			},
			want: []residual.Constraint{{Op: OpGreaterThan, Value: float64(5)}},
		},
		{
			name: "disequality excluding the only point contradicts",
			constraints: []residual.Constraint{
				{Op: OpGreaterEqual, Value: 5},
				{Op: OpLessEqual, Value: 5},
				{Op: OpNotEqual, Value: 5},
			},
			wantContradict: true,
		},
		{
			name: "non-numeric ordering operand passes through",
			constraints: []residual.Constraint{
				{Op: OpGreaterThan, Value: "high"},
			},
			want: []residual.Constraint{{Op: OpGreaterThan, Value: "high"}},
		},
		{
			name: "non-numeric equality with bounds contradicts",
			constraints: []residual.Constraint{
				{Op: OpEqual, Value: "admin"},
				{Op: OpGreaterThan, Value: 5},
			},
			wantContradict: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, contradicted := simplifyComparable(tt.constraints)
			if contradicted != tt.wantContradict {
				t.Fatalf("simplifyComparable() contradicted = %v, want %v (got %v)", contradicted, tt.wantContradict, got)
			}
			if tt.wantContradict {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("simplifyComparable() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i].Op != tt.want[i].Op {
					t.Errorf("constraint[%d].Op = %q, want %q", i, got[i].Op, tt.want[i].Op)
				}
				equal, err := evalEqual(got[i].Value, tt.want[i].Value)
				if err != nil || !equal {
					t.Errorf("constraint[%d].Value = %v, want %v", i, got[i].Value, tt.want[i].Value)
				}
			}
		})
	}
}

// TestSubsumesComparable tests constraint implication
func TestSubsumesComparable(t *testing.T) {
	tests := []struct {
		name string
		a    residual.Constraint
		b    residual.Constraint
		want bool
	}{
		{
			name: "tighter lower bound subsumes looser",
			a:    residual.Constraint{Op: OpGreaterThan, Value: 5},
			b:    residual.Constraint{Op: OpGreaterThan, Value: 3},
			want: true,
		},
		{
			name: "looser lower bound does not subsume tighter",
			a:    residual.Constraint{Op: OpGreaterThan, Value: 3},
			b:    residual.Constraint{Op: OpGreaterThan, Value: 5},
			want: false,
		},
		{
			name: "strict subsumes inclusive at same value",
			a:    residual.Constraint{Op: OpGreaterThan, Value: 5},
			b:    residual.Constraint{Op: OpGreaterEqual, Value: 5},
			want: true,
		},
		{
			name: "inclusive does not subsume strict at same value",
			a:    residual.Constraint{Op: OpGreaterEqual, Value: 5},
			b:    residual.Constraint{Op: OpGreaterThan, Value: 5},
			want: false,
		},
		{
			name: "tighter upper bound subsumes looser",
			a:    residual.Constraint{Op: OpLessThan, Value: 5},
			b:    residual.Constraint{Op: OpLessEqual, Value: 10},
			want: true,
		},
		{
			name: "equality subsumes satisfied bound",
			a:    residual.Constraint{Op: OpEqual, Value: 7},
			b:    residual.Constraint{Op: OpGreaterThan, Value: 5},
			want: true,
		},
		{
			name: "equality does not subsume violated bound",
			a:    residual.Constraint{Op: OpEqual, Value: 3},
			b:    residual.Constraint{Op: OpGreaterThan, Value: 5},
			want: false,
		},
		{
			name: "lower and upper bounds are incomparable",
			a:    residual.Constraint{Op: OpGreaterThan, Value: 5},
			b:    residual.Constraint{Op: OpLessThan, Value: 10},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := subsumesComparable(tt.a, tt.b); got != tt.want {
				t.Errorf("subsumesComparable(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
