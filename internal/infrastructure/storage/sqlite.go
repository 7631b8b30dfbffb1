package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for reconciliation runs.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveRun persists a run with its matches and diagnostics in one transaction
func (s *Storage) SaveRun(run *ReconRun, matches []MatchRow, diags []DiagnosticRow) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
	INSERT OR REPLACE INTO recon_runs
	(id, started_at, completed_at, order_count, transaction_count,
	 exact_count, split_count, refund_count, unmatched_count, diagnostic_count,
	 min_lag_days, max_lag_days, enable_split, split_max_k)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.StartedAt,
		run.CompletedAt,
		run.OrderCount,
		run.TransactionCount,
		run.ExactCount,
		run.SplitCount,
		run.RefundCount,
		run.UnmatchedCount,
		run.DiagnosticCount,
		run.MinLagDays,
		run.MaxLagDays,
		run.EnableSplit,
		run.SplitMaxK,
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i := range matches {
		m := &matches[i]
		txnsJSON, _ := json.Marshal(m.Transactions)
		_, err = tx.Exec(`
		INSERT INTO match_results (run_id, order_id, kind, lag_days, transactions_json)
		VALUES (?, ?, ?, ?, ?)
		`, run.ID, m.OrderID, m.Kind, m.LagDays, string(txnsJSON))
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert match for order %s: %w", m.OrderID, err)
		}
	}

	for _, d := range diags {
		_, err = tx.Exec(`
		INSERT INTO run_diagnostics (run_id, record_kind, record_id, reason)
		VALUES (?, ?, ?, ?)
		`, run.ID, d.RecordKind, d.RecordID, d.Reason)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert diagnostic: %w", err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run by ID. Returns nil when not found.
func (s *Storage) GetRun(id string) (*ReconRun, error) {
	run := &ReconRun{}
	err := s.db.QueryRow(`
	SELECT id, started_at, completed_at, order_count, transaction_count,
	       exact_count, split_count, refund_count, unmatched_count, diagnostic_count,
	       min_lag_days, max_lag_days, enable_split, split_max_k
	FROM recon_runs WHERE id = ?
	`, id).Scan(
		&run.ID,
		&run.StartedAt,
		&run.CompletedAt,
		&run.OrderCount,
		&run.TransactionCount,
		&run.ExactCount,
		&run.SplitCount,
		&run.RefundCount,
		&run.UnmatchedCount,
		&run.DiagnosticCount,
		&run.MinLagDays,
		&run.MaxLagDays,
		&run.EnableSplit,
		&run.SplitMaxK,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetRunMatches returns the stored matches of a run
func (s *Storage) GetRunMatches(runID string) ([]MatchRow, error) {
	rows, err := s.db.Query(`
	SELECT id, run_id, order_id, kind, lag_days, transactions_json
	FROM match_results WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var matches []MatchRow
	for rows.Next() {
		var m MatchRow
		var txnsJSON sql.NullString
		if err := rows.Scan(&m.ID, &m.RunID, &m.OrderID, &m.Kind, &m.LagDays, &txnsJSON); err != nil {
			return nil, err
		}
		if txnsJSON.Valid && txnsJSON.String != "" {
			if err := json.Unmarshal([]byte(txnsJSON.String), &m.Transactions); err != nil {
				return nil, fmt.Errorf("failed to decode transactions for order %s: %w", m.OrderID, err)
			}
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

// GetRunDiagnostics returns the stored diagnostics of a run
func (s *Storage) GetRunDiagnostics(runID string) ([]DiagnosticRow, error) {
	rows, err := s.db.Query(`
	SELECT run_id, record_kind, record_id, reason
	FROM run_diagnostics WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var diags []DiagnosticRow
	for rows.Next() {
		var d DiagnosticRow
		if err := rows.Scan(&d.RunID, &d.RecordKind, &d.RecordID, &d.Reason); err != nil {
			return nil, err
		}
		diags = append(diags, d)
	}

	return diags, rows.Err()
}

// ListRuns returns the most recent runs, newest first
func (s *Storage) ListRuns(limit int) ([]ReconRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
	SELECT id, started_at, completed_at, order_count, transaction_count,
	       exact_count, split_count, refund_count, unmatched_count, diagnostic_count,
	       min_lag_days, max_lag_days, enable_split, split_max_k
	FROM recon_runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []ReconRun
	for rows.Next() {
		var run ReconRun
		if err := rows.Scan(
			&run.ID,
			&run.StartedAt,
			&run.CompletedAt,
			&run.OrderCount,
			&run.TransactionCount,
			&run.ExactCount,
			&run.SplitCount,
			&run.RefundCount,
			&run.UnmatchedCount,
			&run.DiagnosticCount,
			&run.MinLagDays,
			&run.MaxLagDays,
			&run.EnableSplit,
			&run.SplitMaxK,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetStats returns aggregate statistics across all runs
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{}
	err := s.db.QueryRow(`
	SELECT COUNT(*),
	       COALESCE(SUM(order_count), 0),
	       COALESCE(SUM(exact_count), 0),
	       COALESCE(SUM(split_count), 0),
	       COALESCE(SUM(refund_count), 0),
	       COALESCE(SUM(unmatched_count), 0)
	FROM recon_runs
	`).Scan(
		&stats.TotalRuns,
		&stats.TotalOrders,
		&stats.TotalExact,
		&stats.TotalSplit,
		&stats.TotalRefund,
		&stats.TotalUnmatched,
	)
	if err != nil {
		return nil, err
	}

	matched := stats.TotalExact + stats.TotalSplit + stats.TotalRefund
	if stats.TotalOrders > 0 {
		stats.MatchRate = float64(matched) / float64(stats.TotalOrders)
	}

	return stats, nil
}
