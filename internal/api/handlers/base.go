package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/eshaffer321/ledgermatch/internal/api/dto"
	"github.com/eshaffer321/ledgermatch/internal/infrastructure/storage"
)

// Base provides shared functionality for all handlers.
type Base struct {
	repo storage.Repository
}

// NewBase creates a new base handler with the given repository.
func NewBase(repo storage.Repository) *Base {
	return &Base{repo: repo}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// toMatchResponse converts a stored match row to its API shape.
func toMatchResponse(m storage.MatchRow) dto.MatchResponse {
	resp := dto.MatchResponse{
		OrderID: m.OrderID,
		Kind:    m.Kind,
		LagDays: m.LagDays,
	}
	for _, tx := range m.Transactions {
		resp.Transactions = append(resp.Transactions, dto.MatchedTxResponse{
			TransactionID: tx.TransactionID,
			AmountCents:   tx.AmountCents,
			LagDays:       tx.LagDays,
		})
	}
	return resp
}

// toRunResponse converts a stored run to its API shape.
func toRunResponse(run storage.ReconRun) dto.RunResponse {
	return dto.RunResponse{
		ID:               run.ID,
		StartedAt:        run.StartedAt,
		CompletedAt:      run.CompletedAt,
		OrderCount:       run.OrderCount,
		TransactionCount: run.TransactionCount,
		ExactCount:       run.ExactCount,
		SplitCount:       run.SplitCount,
		RefundCount:      run.RefundCount,
		UnmatchedCount:   run.UnmatchedCount,
		DiagnosticCount:  run.DiagnosticCount,
		MinLagDays:       run.MinLagDays,
		MaxLagDays:       run.MaxLagDays,
		EnableSplit:      run.EnableSplit,
		SplitMaxK:        run.SplitMaxK,
	}
}
