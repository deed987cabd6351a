// Package history keeps a postgres ledger of applied and rolled-back
// optimizations, backing the savings history endpoint.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

const (
	ActionApplied    = "applied"
	ActionRolledBack = "rolled_back"
)

const schema = `
CREATE TABLE IF NOT EXISTS optimization_history (
	id UUID PRIMARY KEY,
	namespace TEXT NOT NULL,
	workload_name TEXT NOT NULL,
	workload_kind TEXT NOT NULL,
	optimization_type TEXT NOT NULL,
	action TEXT NOT NULL,
	monthly_savings_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
	confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	risk_level TEXT NOT NULL DEFAULT '',
	recorded_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_optimization_history_recorded_at
	ON optimization_history (recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_optimization_history_workload
	ON optimization_history (namespace, workload_name);
`

// Record is one ledger entry.
type Record struct {
	ID               string    `json:"id"`
	Namespace        string    `json:"namespace"`
	WorkloadName     string    `json:"workload_name"`
	WorkloadKind     string    `json:"workload_kind"`
	OptimizationType string    `json:"optimization_type"`
	Action           string    `json:"action"`
	MonthlySavings   float64   `json:"monthly_savings_usd"`
	ConfidenceScore  float64   `json:"confidence_score"`
	RiskLevel        string    `json:"risk_level"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// Summary aggregates the ledger over a time window.
type Summary struct {
	TotalApplied        int     `json:"total_applied"`
	TotalRollbacks      int     `json:"total_rollbacks"`
	TotalMonthlySavings float64 `json:"total_monthly_savings_usd"`
}

// Ledger wraps the postgres connection pool.
type Ledger struct {
	db *sql.DB
}

// NewLedger opens the pool, verifies connectivity and ensures the schema.
func NewLedger(dsn string) (*Ledger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// NewLedgerFromDB wraps an existing pool, used in tests.
func NewLedgerFromDB(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record inserts a ledger entry, filling in ID and timestamp when the
// caller left them zero.
func (l *Ledger) Record(ctx context.Context, rec *Record) error {
	normalize(rec)

	query := `
		INSERT INTO optimization_history (
			id, namespace, workload_name, workload_kind,
			optimization_type, action, monthly_savings_usd,
			confidence_score, risk_level, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := l.db.ExecContext(ctx, query,
		rec.ID, rec.Namespace, rec.WorkloadName, rec.WorkloadKind,
		rec.OptimizationType, rec.Action, rec.MonthlySavings,
		rec.ConfidenceScore, rec.RiskLevel, rec.RecordedAt,
	)
	return err
}

// RecordApplied logs a successfully applied optimization.
func (l *Ledger) RecordApplied(ctx context.Context, rec *Record) error {
	rec.Action = ActionApplied
	return l.Record(ctx, rec)
}

// RecordRollback logs a rollback of a previously applied optimization.
func (l *Ledger) RecordRollback(ctx context.Context, namespace, kind, name string) error {
	return l.Record(ctx, &Record{
		Namespace:    namespace,
		WorkloadName: name,
		WorkloadKind: kind,
		Action:       ActionRolledBack,
	})
}

// History returns the most recent entries, newest first.
func (l *Ledger) History(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, namespace, workload_name, workload_kind,
			optimization_type, action, monthly_savings_usd,
			confidence_score, risk_level, recorded_at
		FROM optimization_history
		ORDER BY recorded_at DESC
		LIMIT $1
	`

	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.Namespace, &rec.WorkloadName, &rec.WorkloadKind,
			&rec.OptimizationType, &rec.Action, &rec.MonthlySavings,
			&rec.ConfidenceScore, &rec.RiskLevel, &rec.RecordedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Summarize computes realized totals over the last N days. Savings from
// rolled-back optimizations no longer count as realized.
func (l *Ledger) Summarize(ctx context.Context, days int) (*Summary, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	query := `
		SELECT
			COUNT(*) FILTER (WHERE action = $1),
			COUNT(*) FILTER (WHERE action = $2),
			COALESCE(SUM(monthly_savings_usd) FILTER (WHERE action = $1), 0)
		FROM optimization_history
		WHERE recorded_at >= $3
	`

	summary := &Summary{}
	err := l.db.QueryRowContext(ctx, query, ActionApplied, ActionRolledBack, since).Scan(
		&summary.TotalApplied, &summary.TotalRollbacks, &summary.TotalMonthlySavings,
	)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func normalize(rec *Record) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
}
