package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/eshaffer321/ledgermatch/internal/api/dto"
	"github.com/eshaffer321/ledgermatch/internal/domain/recon"
	"github.com/eshaffer321/ledgermatch/internal/service"
)

const dateLayout = "2006-01-02"

// ReconcileHandler runs reconciliations over request-supplied ledgers.
type ReconcileHandler struct {
	*Base
	svc      *service.ReconService
	defaults recon.Config
}

// NewReconcileHandler creates a reconcile handler. defaults supplies the
// matching config when a request omits its own.
func NewReconcileHandler(base *Base, svc *service.ReconService, defaults recon.Config) *ReconcileHandler {
	return &ReconcileHandler{Base: base, svc: svc, defaults: defaults}
}

// Reconcile handles POST /api/reconcile.
func (h *ReconcileHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req dto.ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid JSON body"))
		return
	}
	if len(req.Orders) == 0 {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("at least one order is required"))
		return
	}

	runReq, err := h.toRunRequest(&req)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	outcome, err := h.svc.Reconcile(*runReq)
	if err != nil {
		var cfgErr *recon.ConfigError
		if errors.As(err, &cfgErr) {
			h.WriteError(w, http.StatusBadRequest, dto.ValidationError(cfgErr.Reason))
			return
		}
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, toReconcileResponse(outcome))
}

// toRunRequest converts wire payloads into domain records, rejecting
// unparseable dates up front.
func (h *ReconcileHandler) toRunRequest(req *dto.ReconcileRequest) (*service.RunRequest, error) {
	out := &service.RunRequest{
		Config:  h.defaults,
		Persist: req.Persist,
	}

	if c := req.Config; c != nil {
		if c.MinLagDays != nil {
			out.Config.MinLagDays = *c.MinLagDays
		}
		if c.MaxLagDays != nil {
			out.Config.MaxLagDays = *c.MaxLagDays
		}
		if c.EnableSplit != nil {
			out.Config.EnableSplit = *c.EnableSplit
		}
		if c.SplitMaxK != nil {
			out.Config.SplitMaxK = *c.SplitMaxK
		}
	}

	for _, o := range req.Orders {
		date, err := time.Parse(dateLayout, o.OrderDate)
		if err != nil {
			return nil, fmt.Errorf("order %s: invalid order_date %q", o.OrderID, o.OrderDate)
		}
		out.Orders = append(out.Orders, recon.OrderRecord{
			OrderID:       o.OrderID,
			OrderDate:     date,
			TotalCents:    o.TotalCents,
			TaxCents:      o.TaxCents,
			ShippingCents: o.ShippingCents,
		})
	}

	for _, t := range req.Transactions {
		posted, err := time.Parse(dateLayout, t.PostedAt)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: invalid posted_at %q", t.TransactionID, t.PostedAt)
		}
		out.Transactions = append(out.Transactions, recon.TransactionRecord{
			TransactionID:      t.TransactionID,
			PostedAt:           posted,
			AmountCents:        t.AmountCents,
			MerchantDescriptor: t.MerchantDescriptor,
			ExternalID:         t.ExternalID,
			AccountID:          t.AccountID,
		})
	}

	for _, ret := range req.Returns {
		date, err := time.Parse(dateLayout, ret.ReturnDate)
		if err != nil {
			return nil, fmt.Errorf("return %s: invalid return_date %q", ret.OrderID, ret.ReturnDate)
		}
		out.Returns = append(out.Returns, recon.ReturnSignal{
			OrderID:     ret.OrderID,
			ReturnDate:  date,
			RefundCents: ret.RefundCents,
			WindowDays:  ret.WindowDays,
		})
	}

	return out, nil
}

func toReconcileResponse(outcome *service.RunOutcome) dto.ReconcileResponse {
	resp := dto.ReconcileResponse{
		RunID: outcome.RunID,
		Summary: dto.SummaryResponse{
			Orders:       outcome.Run.OrderCount,
			Transactions: outcome.Run.TransactionCount,
			Exact:        outcome.Run.ExactCount,
			Split:        outcome.Run.SplitCount,
			Refund:       outcome.Run.RefundCount,
			Unmatched:    outcome.Run.UnmatchedCount,
			Diagnostics:  outcome.Run.DiagnosticCount,
		},
		Matches: make([]dto.MatchResponse, 0, len(outcome.Result.Matches)),
	}

	for _, m := range outcome.Result.Matches {
		mr := dto.MatchResponse{
			OrderID: m.OrderID,
			Kind:    string(m.Kind),
			LagDays: m.LagDays,
		}
		for _, tx := range m.Transactions {
			mr.Transactions = append(mr.Transactions, dto.MatchedTxResponse{
				TransactionID: tx.TransactionID,
				AmountCents:   tx.AmountCents,
				LagDays:       tx.LagDays,
			})
		}
		resp.Matches = append(resp.Matches, mr)
	}

	for _, d := range outcome.Result.Diagnostics {
		resp.Diagnostics = append(resp.Diagnostics, dto.DiagnosticResponse{
			RecordKind: d.RecordKind,
			RecordID:   d.RecordID,
			Reason:     d.Reason,
		})
	}

	return resp
}
