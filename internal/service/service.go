// Package service orchestrates reconciliation runs: it executes the core
// matcher, applies return signals, and optionally persists the outcome.
package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/eshaffer321/ledgermatch/internal/domain/recon"
	"github.com/eshaffer321/ledgermatch/internal/infrastructure/storage"
)

// ReconService runs reconciliations and records them.
type ReconService struct {
	repo   storage.Repository // nil disables persistence
	logger *slog.Logger
}

// NewReconService creates a service. repo may be nil for ephemeral runs.
func NewReconService(repo storage.Repository, logger *slog.Logger) *ReconService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconService{repo: repo, logger: logger}
}

// RunRequest describes one reconciliation run.
type RunRequest struct {
	Orders       []recon.OrderRecord
	Transactions []recon.TransactionRecord
	Config       recon.Config
	Returns      []recon.ReturnSignal

	// Persist stores the run when a repository is configured.
	Persist bool
}

// RunOutcome is the result of a run plus its stored identity (if any).
type RunOutcome struct {
	RunID  string
	Result *recon.Result
	Run    *storage.ReconRun
}

// Reconcile executes a full run. A configuration error fails fast with no
// partial output; per-record problems surface as diagnostics on the result.
func (s *ReconService) Reconcile(req RunRequest) (*RunOutcome, error) {
	reconciler, err := recon.New(req.Config)
	if err != nil {
		return nil, err
	}

	started := time.Now().UTC()
	result := reconciler.Run(req.Orders, req.Transactions)
	if len(req.Returns) > 0 {
		reconciler.ResolveRefunds(result, req.Returns)
	}
	completed := time.Now().UTC()

	counts := result.CountByKind()
	run := &storage.ReconRun{
		StartedAt:        started,
		CompletedAt:      completed,
		OrderCount:       len(result.Matches),
		TransactionCount: len(req.Transactions),
		ExactCount:       counts[recon.KindExact],
		SplitCount:       counts[recon.KindSplit],
		RefundCount:      counts[recon.KindRefund],
		UnmatchedCount:   counts[recon.KindUnmatched],
		DiagnosticCount:  len(result.Diagnostics),
		MinLagDays:       req.Config.MinLagDays,
		MaxLagDays:       req.Config.MaxLagDays,
		EnableSplit:      req.Config.EnableSplit,
		SplitMaxK:        req.Config.SplitMaxK,
	}

	outcome := &RunOutcome{Result: result, Run: run}

	if req.Persist && s.repo != nil {
		if err := s.repo.SaveRun(run, toMatchRows(run.ID, result), toDiagnosticRows(run.ID, result)); err != nil {
			return nil, fmt.Errorf("failed to persist run: %w", err)
		}
		outcome.RunID = run.ID
	}

	s.logger.Info("reconciliation run complete",
		"orders", run.OrderCount,
		"transactions", run.TransactionCount,
		"exact", run.ExactCount,
		"split", run.SplitCount,
		"refund", run.RefundCount,
		"unmatched", run.UnmatchedCount,
		"diagnostics", run.DiagnosticCount,
		"duration", completed.Sub(started),
	)

	return outcome, nil
}

func toMatchRows(runID string, result *recon.Result) []storage.MatchRow {
	rows := make([]storage.MatchRow, 0, len(result.Matches))
	for _, m := range result.Matches {
		row := storage.MatchRow{
			RunID:   runID,
			OrderID: m.OrderID,
			Kind:    string(m.Kind),
			LagDays: m.LagDays,
		}
		for _, mt := range m.Transactions {
			row.Transactions = append(row.Transactions, storage.MatchedTxRow{
				TransactionID: mt.TransactionID,
				AmountCents:   mt.AmountCents,
				LagDays:       mt.LagDays,
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func toDiagnosticRows(runID string, result *recon.Result) []storage.DiagnosticRow {
	rows := make([]storage.DiagnosticRow, 0, len(result.Diagnostics))
	for _, d := range result.Diagnostics {
		rows = append(rows, storage.DiagnosticRow{
			RunID:      runID,
			RecordKind: d.RecordKind,
			RecordID:   d.RecordID,
			Reason:     d.Reason,
		})
	}
	return rows
}
