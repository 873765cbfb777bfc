package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"polaris-hq/polaris/pkg/policy/residual"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(&Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 2,
		MaxIdleConns: 1,
		WALMode:      true,
		BusyTimeout:  time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SaveAndGetPolicy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	record := &PolicyRecord{
		ID:      "access-control",
		Name:    "Access control",
		Version: "1.0.0",
		Source:  "id: access-control\nrules: []\n",
	}
	if err := s.SavePolicy(ctx, record); err != nil {
		t.Fatalf("SavePolicy() error = %v", err)
	}

	got, err := s.GetPolicy(ctx, "access-control")
	if err != nil {
		t.Fatalf("GetPolicy() error = %v", err)
	}
	if got.Name != record.Name || got.Version != record.Version || got.Source != record.Source {
		t.Errorf("GetPolicy() = %+v, want %+v", got, record)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("GetPolicy() UpdatedAt is zero")
	}
}

func TestStore_SavePolicyUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	record := &PolicyRecord{ID: "p", Version: "1.0.0", Source: "v1"}
	if err := s.SavePolicy(ctx, record); err != nil {
		t.Fatalf("SavePolicy() error = %v", err)
	}
	record.Version = "2.0.0"
	record.Source = "v2"
	if err := s.SavePolicy(ctx, record); err != nil {
		t.Fatalf("SavePolicy() upsert error = %v", err)
	}

	got, err := s.GetPolicy(ctx, "p")
	if err != nil {
		t.Fatalf("GetPolicy() error = %v", err)
	}
	if got.Version != "2.0.0" || got.Source != "v2" {
		t.Errorf("GetPolicy() = %+v, want upserted record", got)
	}

	policies, err := s.ListPolicies(ctx)
	if err != nil {
		t.Fatalf("ListPolicies() error = %v", err)
	}
	if len(policies) != 1 {
		t.Errorf("ListPolicies() = %d records, want 1", len(policies))
	}
}

func TestStore_GetPolicyNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetPolicy(context.Background(), "missing")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("GetPolicy() error = %v, want *NotFoundError", err)
	}
}

func TestStore_DeletePolicy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SavePolicy(ctx, &PolicyRecord{ID: "p", Source: "x"}); err != nil {
		t.Fatalf("SavePolicy() error = %v", err)
	}
	if err := s.DeletePolicy(ctx, "p"); err != nil {
		t.Fatalf("DeletePolicy() error = %v", err)
	}

	var notFound *NotFoundError
	if err := s.DeletePolicy(ctx, "p"); !errors.As(err, &notFound) {
		t.Errorf("DeletePolicy(missing) error = %v, want *NotFoundError", err)
	}
}

func TestStore_RecordAndListDecisions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	decisions := []*Decision{
		{PolicyID: "p", Outcome: "satisfied", EvaluatedAt: time.Now().Add(-2 * time.Minute)},
		{PolicyID: "p", Outcome: "contradiction", EvaluatedAt: time.Now().Add(-time.Minute)},
		{
			PolicyID: "p",
			Outcome:  "residual",
			Constraints: []residual.PathConstraint{
				{Path: "age", Op: ">", Value: float64(18)},
			},
			TraceID:     "trace-1",
			EvaluatedAt: time.Now(),
		},
		{PolicyID: "other", Outcome: "satisfied"},
	}
	for _, d := range decisions {
		if err := s.RecordDecision(ctx, d); err != nil {
			t.Fatalf("RecordDecision() error = %v", err)
		}
		if d.ID == "" {
			t.Fatal("RecordDecision() did not assign an ID")
		}
	}

	got, err := s.ListDecisions(ctx, "p", 10)
	if err != nil {
		t.Fatalf("ListDecisions() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListDecisions() = %d decisions, want 3", len(got))
	}

	// Newest first: the residual decision with its constraints.
	if got[0].Outcome != "residual" {
		t.Errorf("ListDecisions()[0].Outcome = %q, want residual", got[0].Outcome)
	}
	wantConstraints := []residual.PathConstraint{
		{Path: "age", Op: ">", Value: float64(18)},
	}
	if diff := cmp.Diff(wantConstraints, got[0].Constraints); diff != "" {
		t.Errorf("ListDecisions()[0].Constraints mismatch (-want +got):\n%s", diff)
	}
	if got[0].TraceID != "trace-1" {
		t.Errorf("ListDecisions()[0].TraceID = %q, want trace-1", got[0].TraceID)
	}
}

func TestStore_ListDecisionsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := s.RecordDecision(ctx, &Decision{PolicyID: "p", Outcome: "satisfied"})
		if err != nil {
			t.Fatalf("RecordDecision() error = %v", err)
		}
	}

	got, err := s.ListDecisions(ctx, "p", 3)
	if err != nil {
		t.Fatalf("ListDecisions() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("ListDecisions(limit=3) = %d decisions, want 3", len(got))
	}
}

func TestStore_CountDecisions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	outcomes := []string{"satisfied", "satisfied", "contradiction", "residual"}
	for _, outcome := range outcomes {
		if err := s.RecordDecision(ctx, &Decision{PolicyID: "p", Outcome: outcome}); err != nil {
			t.Fatalf("RecordDecision() error = %v", err)
		}
	}

	counts, err := s.CountDecisions(ctx, "p")
	if err != nil {
		t.Fatalf("CountDecisions() error = %v", err)
	}
	if counts["satisfied"] != 2 || counts["contradiction"] != 1 || counts["residual"] != 1 {
		t.Errorf("CountDecisions() = %v, want 2/1/1", counts)
	}
}

func TestStore_RecordDecisionRequiresPolicyID(t *testing.T) {
	s := newTestStore(t)

	err := s.RecordDecision(context.Background(), &Decision{Outcome: "satisfied"})
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("RecordDecision() error = %v, want *StorageError", err)
	}
}
