package storage

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	// SaveRun persists a run together with its matches and diagnostics.
	// A run with an empty ID is assigned one.
	SaveRun(run *ReconRun, matches []MatchRow, diags []DiagnosticRow) error

	// GetRun retrieves a run by ID. Returns nil when not found.
	GetRun(id string) (*ReconRun, error)

	// GetRunMatches returns the stored matches of a run.
	GetRunMatches(runID string) ([]MatchRow, error)

	// GetRunDiagnostics returns the stored diagnostics of a run.
	GetRunDiagnostics(runID string) ([]DiagnosticRow, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]ReconRun, error)

	// GetStats returns aggregate statistics across all runs.
	GetStats() (*Stats, error)

	Close() error
}
