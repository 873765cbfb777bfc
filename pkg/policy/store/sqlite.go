package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"polaris-hq/polaris/pkg/policy/residual"
)

// Config contains configuration for the SQLite store.
type Config struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() *Config {
	return &Config{
		Path:         "data/polaris.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// PolicyRecord is a persisted policy.
type PolicyRecord struct {
	// ID is the policy identifier.
	ID string

	// Name is the human-readable policy name.
	Name string

	// Version is the declared policy version.
	Version string

	// Source is the raw policy document as loaded from disk.
	Source string

	// UpdatedAt is when the record was last written.
	UpdatedAt time.Time
}

// Decision is one entry of the append-only evaluation log.
type Decision struct {
	// ID is a generated unique identifier.
	ID string

	// PolicyID names the evaluated policy.
	PolicyID string

	// PolicyVersion is the policy set version at evaluation time.
	PolicyVersion string

	// Outcome is "satisfied", "contradiction", or "residual".
	Outcome string

	// Constraints holds the flattened outstanding constraints when the
	// outcome was a residual.
	Constraints []residual.PathConstraint

	// TraceID links the decision to an evaluation trace, if tracing was
	// enabled.
	TraceID string

	// EvaluatedAt is when the evaluation happened.
	EvaluatedAt time.Time
}

// Store is a SQLite-backed policy and decision store.
type Store struct {
	db     *sql.DB
	config *Config
	logger *slog.Logger
}

// NewStore opens the database, applies the schema, and verifies the
// schema version.
func NewStore(config *Config, logger *slog.Logger) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "policy.store")

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, &StorageError{Operation: "open", Cause: err}
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &Store{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

// initialize sets up the schema and pragmas.
func (s *Store) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return &StorageError{Operation: "enable_wal", Cause: err}
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return &StorageError{Operation: "set_busy_timeout", Cause: err}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return &StorageError{Operation: "create_schema", Cause: err}
	}

	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return &StorageError{Operation: "insert_schema_version", Cause: err}
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return &StorageError{Operation: "get_schema_version", Cause: err}
	}
	if version != SchemaVersion {
		return &StorageError{
			Operation: "schema_version_mismatch",
			Cause:     fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version),
		}
	}

	return nil
}

// SavePolicy inserts or replaces a policy record.
func (s *Store) SavePolicy(ctx context.Context, record *PolicyRecord) error {
	if record.ID == "" {
		return &StorageError{Operation: "save_policy", Cause: fmt.Errorf("policy id is required")}
	}

	query := `
		INSERT INTO policies (id, name, version, source, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			version = excluded.version,
			source = excluded.source,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.Name, record.Version, record.Source, time.Now().UTC(),
	)
	if err != nil {
		return &StorageError{Operation: "save_policy", Cause: err}
	}
	return nil
}

// GetPolicy retrieves a policy record by ID.
func (s *Store) GetPolicy(ctx context.Context, id string) (*PolicyRecord, error) {
	query := `SELECT id, name, version, source, updated_at FROM policies WHERE id = ?`

	var record PolicyRecord
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID, &record.Name, &record.Version, &record.Source, &record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "policy", ID: id}
	}
	if err != nil {
		return nil, &StorageError{Operation: "get_policy", Cause: err}
	}
	return &record, nil
}

// ListPolicies retrieves all policy records ordered by ID.
func (s *Store) ListPolicies(ctx context.Context) ([]*PolicyRecord, error) {
	query := `SELECT id, name, version, source, updated_at FROM policies ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &StorageError{Operation: "list_policies", Cause: err}
	}
	defer rows.Close()

	var records []*PolicyRecord
	for rows.Next() {
		var record PolicyRecord
		if err := rows.Scan(&record.ID, &record.Name, &record.Version, &record.Source, &record.UpdatedAt); err != nil {
			return nil, &StorageError{Operation: "list_policies", Cause: err}
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Operation: "list_policies", Cause: err}
	}
	return records, nil
}

// DeletePolicy removes a policy record by ID.
func (s *Store) DeletePolicy(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM policies WHERE id = ?`, id)
	if err != nil {
		return &StorageError{Operation: "delete_policy", Cause: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return &StorageError{Operation: "delete_policy", Cause: err}
	}
	if affected == 0 {
		return &NotFoundError{Kind: "policy", ID: id}
	}
	return nil
}

// RecordDecision appends an evaluation decision to the log. A missing ID
// or timestamp is filled in.
func (s *Store) RecordDecision(ctx context.Context, decision *Decision) error {
	if decision.PolicyID == "" {
		return &StorageError{Operation: "record_decision", Cause: fmt.Errorf("policy id is required")}
	}
	if decision.ID == "" {
		decision.ID = uuid.NewString()
	}
	if decision.EvaluatedAt.IsZero() {
		decision.EvaluatedAt = time.Now().UTC()
	}

	var constraints interface{}
	if len(decision.Constraints) > 0 {
		data, err := json.Marshal(decision.Constraints)
		if err != nil {
			return &StorageError{Operation: "record_decision", Cause: err}
		}
		constraints = string(data)
	}

	query := `
		INSERT INTO decisions (id, policy_id, policy_version, outcome, constraints, trace_id, evaluated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		decision.ID, decision.PolicyID, decision.PolicyVersion,
		decision.Outcome, constraints, decision.TraceID, decision.EvaluatedAt,
	)
	if err != nil {
		return &StorageError{Operation: "record_decision", Cause: err}
	}
	return nil
}

// ListDecisions retrieves the most recent decisions for a policy, newest
// first. A non-positive limit defaults to 100.
func (s *Store) ListDecisions(ctx context.Context, policyID string, limit int) ([]*Decision, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, policy_id, policy_version, outcome, constraints, trace_id, evaluated_at
		FROM decisions
		WHERE policy_id = ?
		ORDER BY evaluated_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, policyID, limit)
	if err != nil {
		return nil, &StorageError{Operation: "list_decisions", Cause: err}
	}
	defer rows.Close()

	var decisions []*Decision
	for rows.Next() {
		var (
			decision    Decision
			constraints sql.NullString
			traceID     sql.NullString
		)
		err := rows.Scan(
			&decision.ID, &decision.PolicyID, &decision.PolicyVersion,
			&decision.Outcome, &constraints, &traceID, &decision.EvaluatedAt,
		)
		if err != nil {
			return nil, &StorageError{Operation: "list_decisions", Cause: err}
		}
		if constraints.Valid {
			if err := json.Unmarshal([]byte(constraints.String), &decision.Constraints); err != nil {
				return nil, &StorageError{Operation: "list_decisions", Cause: err}
			}
		}
		decision.TraceID = traceID.String
		decisions = append(decisions, &decision)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Operation: "list_decisions", Cause: err}
	}
	return decisions, nil
}

// CountDecisions returns per-outcome decision counts for a policy.
func (s *Store) CountDecisions(ctx context.Context, policyID string) (map[string]int, error) {
	query := `SELECT outcome, COUNT(*) FROM decisions WHERE policy_id = ? GROUP BY outcome`

	rows, err := s.db.QueryContext(ctx, query, policyID)
	if err != nil {
		return nil, &StorageError{Operation: "count_decisions", Cause: err}
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, &StorageError{Operation: "count_decisions", Cause: err}
		}
		counts[outcome] = count
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Operation: "count_decisions", Cause: err}
	}
	return counts, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return &StorageError{Operation: "close", Cause: err}
	}
	return nil
}
