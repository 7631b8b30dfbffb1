package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/ledgermatch/internal/api/dto"
	"github.com/eshaffer321/ledgermatch/internal/infrastructure/storage"
)

// RunsHandler handles stored reconciliation run requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/runs - returns recent reconciliation runs.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 20)

	runs, err := h.repo.ListRuns(limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.RunListResponse{
		Runs:  make([]dto.RunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/runs/{id} - returns a run with matches and diagnostics.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return
	}

	run, err := h.repo.GetRun(id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if run == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("run"))
		return
	}

	matches, err := h.repo.GetRunMatches(id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	diags, err := h.repo.GetRunDiagnostics(id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.RunDetailResponse{
		RunResponse: toRunResponse(*run),
		Matches:     make([]dto.MatchResponse, 0, len(matches)),
	}
	for _, m := range matches {
		response.Matches = append(response.Matches, toMatchResponse(m))
	}
	for _, d := range diags {
		response.Diagnostics = append(response.Diagnostics, dto.DiagnosticResponse{
			RecordKind: d.RecordKind,
			RecordID:   d.RecordID,
			Reason:     d.Reason,
		})
	}

	h.WriteJSON(w, http.StatusOK, response)
}
