package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"polaris-hq/polaris/pkg/config"
	"polaris-hq/polaris/pkg/policy/compile"
	"polaris-hq/polaris/pkg/policy/manager"
	"polaris-hq/polaris/pkg/policy/operator"
	"polaris-hq/polaris/pkg/policy/store"
)

const testPolicy = `
id: access-control
name: Access control
version: "1.0.0"
rules:
  - id: admins-only
    expr: ["=", "doc.role", "admin"]
  - id: adults-only
    expr: [">", "doc.age", 18]
`

func newTestServer(t *testing.T, recorder DecisionRecorder) *Server {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(path, []byte(testPolicy), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	mgr, err := manager.NewManager(&manager.Config{Path: path}, nil)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	if err := mgr.LoadPolicies(); err != nil {
		t.Fatalf("LoadPolicies() error = %v", err)
	}

	return NewServer(config.DefaultConfig(), mgr, nil, recorder, nil)
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeCheckResponse(t *testing.T, rec *httptest.ResponseRecorder) CheckResponse {
	t.Helper()
	var resp CheckResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return resp
}

func TestServer_CheckSatisfied(t *testing.T) {
	s := newTestServer(t, nil)
	handler := s.Handler()

	rec := postJSON(t, handler, "/v1/check", CheckRequest{
		Document: map[string]interface{}{"role": "admin", "age": 30},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	resp := decodeCheckResponse(t, rec)
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	if resp.Results[0].Outcome != "satisfied" {
		t.Errorf("outcome = %q, want satisfied", resp.Results[0].Outcome)
	}
	if resp.PolicyVersion == "" {
		t.Error("policy_version is empty")
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("response has no request ID header")
	}
}

func TestServer_CheckResidual(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postJSON(t, s.Handler(), "/v1/check", CheckRequest{
		Policy:   "access-control",
		Document: map[string]interface{}{"role": "admin"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	resp := decodeCheckResponse(t, rec)
	result := resp.Results[0]
	if result.Outcome != "residual" {
		t.Fatalf("outcome = %q, want residual", result.Outcome)
	}
	if len(result.Constraints) != 1 || result.Constraints[0].Path != "age" {
		t.Errorf("constraints = %+v, want one constraint on age", result.Constraints)
	}
}

func TestServer_CheckUnknownPolicy(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postJSON(t, s.Handler(), "/v1/check", CheckRequest{
		Policy:   "missing",
		Document: map[string]interface{}{},
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestServer_CheckRequiresDocument(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postJSON(t, s.Handler(), "/v1/check", CheckRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/check", nil)
	getRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(getRec, req)
	if getRec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", getRec.Code)
	}
}

func TestServer_Explain(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postJSON(t, s.Handler(), "/v1/explain", ExplainRequest{
		Policy: "access-control",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	resp := decodeCheckResponse(t, rec)
	result := resp.Results[0]
	if result.Outcome != "residual" {
		t.Fatalf("outcome = %q, want residual", result.Outcome)
	}
	if len(result.Constraints) != 2 {
		t.Errorf("constraints = %d, want 2", len(result.Constraints))
	}
}

func TestServer_ExplainNegated(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postJSON(t, s.Handler(), "/v1/explain", ExplainRequest{
		Policy:   "access-control",
		Negated:  true,
		Document: map[string]interface{}{"role": "admin", "age": 30},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	// The document satisfies the policy, so its negation is contradicted.
	resp := decodeCheckResponse(t, rec)
	if resp.Results[0].Outcome != "contradiction" {
		t.Errorf("outcome = %q, want contradiction", resp.Results[0].Outcome)
	}
}

// TestServer_ExplainCustomOperator tests that explain resolves operators
// through the same options the policies were compiled with
func TestServer_ExplainCustomOperator(t *testing.T) {
	const policy = `
id: quota
rules:
  - id: even-shards
    expr: ["divisible-by", "doc.shards", 2]
`
	toInt := func(v interface{}) (int64, bool) {
		switch n := v.(type) {
		case int:
			return int64(n), true
		case float64:
			return int64(n), true
		}
		return 0, false
	}
	builder := operator.DefaultBuilder()
	builder.MustRegister(operator.Definition{
		ID: "divisible-by",
		Eval: func(actual, expected interface{}) (bool, error) {
			a, aok := toInt(actual)
			b, bok := toInt(expected)
			if !aok || !bok || b == 0 {
				return false, nil
			}
			return a%b == 0, nil
		},
	})
	compileOpts := &compile.Options{Registry: builder.Build(), Strict: true}

	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(path, []byte(policy), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	mgr, err := manager.NewManager(&manager.Config{Path: path, Compile: compileOpts}, nil)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	if err := mgr.LoadPolicies(); err != nil {
		t.Fatalf("LoadPolicies() error = %v", err)
	}

	s := NewServer(config.DefaultConfig(), mgr, compileOpts, nil, nil)
	rec := postJSON(t, s.Handler(), "/v1/explain", ExplainRequest{Policy: "quota"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	resp := decodeCheckResponse(t, rec)
	result := resp.Results[0]
	if result.Outcome != "residual" {
		t.Fatalf("outcome = %q, want residual", result.Outcome)
	}
	if len(result.Constraints) != 1 || result.Constraints[0].Op != "divisible-by" {
		t.Errorf("constraints = %+v, want one divisible-by constraint", result.Constraints)
	}
}

func TestServer_Policies(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/policies", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp PoliciesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(resp.Policies) != 1 {
		t.Fatalf("policies = %d, want 1", len(resp.Policies))
	}
	if resp.Policies[0].ID != "access-control" || resp.Policies[0].Rules != 2 {
		t.Errorf("policies[0] = %+v, want access-control with 2 rules", resp.Policies[0])
	}
}

func TestServer_HealthAndReady(t *testing.T) {
	s := newTestServer(t, nil)
	handler := s.Handler()

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	handler := s.Handler()

	// Drive one evaluation so the counters exist.
	rec := postJSON(t, handler, "/v1/check", CheckRequest{
		Document: map[string]interface{}{"role": "admin", "age": 30},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("check status = %d, want 200", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsRec := httptest.NewRecorder()
	handler.ServeHTTP(metricsRec, req)
	if metricsRec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", metricsRec.Code)
	}

	body, _ := io.ReadAll(metricsRec.Body)
	if !bytes.Contains(body, []byte("polaris_policy_evaluations_total")) {
		t.Errorf("metrics output missing evaluation counter:\n%s", body)
	}
}

func TestServer_RecordsDecisions(t *testing.T) {
	storeCfg := store.DefaultConfig()
	storeCfg.Path = filepath.Join(t.TempDir(), "decisions.db")
	dbStore, err := store.NewStore(storeCfg, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { _ = dbStore.Close() })

	s := newTestServer(t, dbStore)

	rec := postJSON(t, s.Handler(), "/v1/check", CheckRequest{
		Document: map[string]interface{}{"role": "viewer", "age": 30},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	decisions, err := dbStore.ListDecisions(context.Background(), "access-control", 10)
	if err != nil {
		t.Fatalf("ListDecisions() error = %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("decisions = %d, want 1", len(decisions))
	}
	if decisions[0].Outcome != "contradiction" {
		t.Errorf("outcome = %q, want contradiction", decisions[0].Outcome)
	}
	if decisions[0].TraceID == "" {
		t.Error("decision has no trace ID")
	}
}
