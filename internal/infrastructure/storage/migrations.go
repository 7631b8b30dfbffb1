package storage

import (
	"database/sql"
	"fmt"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up:      migration001InitialSchema,
	},
	{
		Version: 2,
		Name:    "add_diagnostics_table",
		Up:      migration002AddDiagnosticsTable,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue // Already applied
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		_, err = tx.Exec(`
			INSERT INTO schema_migrations (version, name) VALUES (?, ?)
		`, migration.Version, migration.Name)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// ensureMigrationsTable creates the schema_migrations table
func (s *Storage) ensureMigrationsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := s.db.Exec(query)
	return err
}

// getAppliedMigrations returns a set of applied migration versions
func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// migration001InitialSchema creates the run and match tables
func migration001InitialSchema(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS recon_runs (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMP,
			completed_at TIMESTAMP,
			order_count INTEGER,
			transaction_count INTEGER,
			exact_count INTEGER,
			split_count INTEGER,
			refund_count INTEGER,
			unmatched_count INTEGER,
			diagnostic_count INTEGER,
			min_lag_days INTEGER,
			max_lag_days INTEGER,
			enable_split BOOLEAN DEFAULT 1,
			split_max_k INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS match_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES recon_runs(id),
			order_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			lag_days INTEGER,
			transactions_json TEXT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_match_results_run_id
		 ON match_results(run_id)`,

		`CREATE INDEX IF NOT EXISTS idx_match_results_order_id
		 ON match_results(order_id)`,

		`CREATE INDEX IF NOT EXISTS idx_recon_runs_started_at
		 ON recon_runs(started_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

// migration002AddDiagnosticsTable stores per-record validation diagnostics
func migration002AddDiagnosticsTable(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS run_diagnostics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES recon_runs(id),
			record_kind TEXT NOT NULL,
			record_id TEXT,
			reason TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_run_diagnostics_run_id
		 ON run_diagnostics(run_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}
