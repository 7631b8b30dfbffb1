package handlers

import (
	"net/http"

	"github.com/eshaffer321/ledgermatch/internal/api/dto"
	"github.com/eshaffer321/ledgermatch/internal/infrastructure/storage"
)

// StatsHandler serves aggregate statistics.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(repo storage.Repository) *StatsHandler {
	return &StatsHandler{
		Base: NewBase(repo),
	}
}

// Get handles GET /api/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, _ *http.Request) {
	stats, err := h.repo.GetStats()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.StatsResponse{
		TotalRuns:      stats.TotalRuns,
		TotalOrders:    stats.TotalOrders,
		TotalExact:     stats.TotalExact,
		TotalSplit:     stats.TotalSplit,
		TotalRefund:    stats.TotalRefund,
		TotalUnmatched: stats.TotalUnmatched,
		MatchRate:      stats.MatchRate,
	})
}
