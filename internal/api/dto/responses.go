package dto

import "time"

// ReconcileResponse is the result of POST /api/reconcile.
type ReconcileResponse struct {
	RunID       string               `json:"run_id,omitempty"`
	Summary     SummaryResponse      `json:"summary"`
	Matches     []MatchResponse      `json:"matches"`
	Diagnostics []DiagnosticResponse `json:"diagnostics,omitempty"`
}

// SummaryResponse tallies a run by match kind.
type SummaryResponse struct {
	Orders       int `json:"orders"`
	Transactions int `json:"transactions"`
	Exact        int `json:"exact"`
	Split        int `json:"split"`
	Refund       int `json:"refund"`
	Unmatched    int `json:"unmatched"`
	Diagnostics  int `json:"diagnostics"`
}

// MatchResponse is the outcome for one order.
type MatchResponse struct {
	OrderID      string              `json:"order_id"`
	Kind         string              `json:"kind"`
	LagDays      int                 `json:"lag_days"`
	Transactions []MatchedTxResponse `json:"transactions,omitempty"`
}

// MatchedTxResponse is one claimed transaction inside a match.
type MatchedTxResponse struct {
	TransactionID string `json:"transaction_id"`
	AmountCents   int64  `json:"amount_cents"`
	LagDays       int    `json:"lag_days"`
}

// DiagnosticResponse reports one dropped record.
type DiagnosticResponse struct {
	RecordKind string `json:"record_kind"`
	RecordID   string `json:"record_id"`
	Reason     string `json:"reason"`
}

// RunResponse is one stored reconciliation run.
type RunResponse struct {
	ID               string    `json:"id"`
	StartedAt        time.Time `json:"started_at"`
	CompletedAt      time.Time `json:"completed_at"`
	OrderCount       int       `json:"order_count"`
	TransactionCount int       `json:"transaction_count"`
	ExactCount       int       `json:"exact_count"`
	SplitCount       int       `json:"split_count"`
	RefundCount      int       `json:"refund_count"`
	UnmatchedCount   int       `json:"unmatched_count"`
	DiagnosticCount  int       `json:"diagnostic_count"`
	MinLagDays       int       `json:"min_lag_days"`
	MaxLagDays       int       `json:"max_lag_days"`
	EnableSplit      bool      `json:"enable_split"`
	SplitMaxK        int       `json:"split_max_k"`
}

// RunDetailResponse is a stored run with its matches and diagnostics.
type RunDetailResponse struct {
	RunResponse
	Matches     []MatchResponse      `json:"matches"`
	Diagnostics []DiagnosticResponse `json:"diagnostics,omitempty"`
}

// RunListResponse is a page of stored runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// StatsResponse aggregates all stored runs.
type StatsResponse struct {
	TotalRuns      int     `json:"total_runs"`
	TotalOrders    int     `json:"total_orders"`
	TotalExact     int     `json:"total_exact"`
	TotalSplit     int     `json:"total_split"`
	TotalRefund    int     `json:"total_refund"`
	TotalUnmatched int     `json:"total_unmatched"`
	MatchRate      float64 `json:"match_rate"`
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status string `json:"status"`
}
