package storage

import (
	"time"
)

// ReconRun is one persisted reconciliation run.
type ReconRun struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	OrderCount       int `json:"order_count"`
	TransactionCount int `json:"transaction_count"`

	ExactCount      int `json:"exact_count"`
	SplitCount      int `json:"split_count"`
	RefundCount     int `json:"refund_count"`
	UnmatchedCount  int `json:"unmatched_count"`
	DiagnosticCount int `json:"diagnostic_count"`

	// Config snapshot, so a stored run is reproducible.
	MinLagDays  int  `json:"min_lag_days"`
	MaxLagDays  int  `json:"max_lag_days"`
	EnableSplit bool `json:"enable_split"`
	SplitMaxK   int  `json:"split_max_k"`
}

// MatchRow is one persisted match result within a run.
type MatchRow struct {
	ID      int64  `json:"id"`
	RunID   string `json:"run_id"`
	OrderID string `json:"order_id"`
	Kind    string `json:"kind"`
	LagDays int    `json:"lag_days"`

	// Claimed transactions, stored as JSON
	Transactions []MatchedTxRow `json:"transactions"`
}

// MatchedTxRow is one claimed transaction inside a stored match.
type MatchedTxRow struct {
	TransactionID string `json:"transaction_id"`
	AmountCents   int64  `json:"amount_cents"`
	LagDays       int    `json:"lag_days"`
}

// DiagnosticRow is one persisted validation diagnostic.
type DiagnosticRow struct {
	RunID      string `json:"run_id"`
	RecordKind string `json:"record_kind"`
	RecordID   string `json:"record_id"`
	Reason     string `json:"reason"`
}

// Stats summarizes everything stored so far.
type Stats struct {
	TotalRuns      int     `json:"total_runs"`
	TotalOrders    int     `json:"total_orders"`
	TotalExact     int     `json:"total_exact"`
	TotalSplit     int     `json:"total_split"`
	TotalRefund    int     `json:"total_refund"`
	TotalUnmatched int     `json:"total_unmatched"`
	MatchRate      float64 `json:"match_rate"`
}
