package dto

// ReconcileRequest is the payload for POST /api/reconcile.
// Dates use the YYYY-MM-DD layout; amounts are integer cents.
type ReconcileRequest struct {
	Orders       []OrderPayload       `json:"orders"`
	Transactions []TransactionPayload `json:"transactions"`
	Config       *MatchConfigPayload  `json:"config,omitempty"`
	Returns      []ReturnPayload      `json:"returns,omitempty"`

	// Persist stores the run so it shows up under /api/runs.
	Persist bool `json:"persist"`
}

// OrderPayload is one merchant order in a reconcile request.
type OrderPayload struct {
	OrderID       string `json:"order_id"`
	OrderDate     string `json:"order_date"`
	TotalCents    int64  `json:"total_cents"`
	TaxCents      int64  `json:"tax_cents,omitempty"`
	ShippingCents int64  `json:"shipping_cents,omitempty"`
}

// TransactionPayload is one bank/card line item in a reconcile request.
type TransactionPayload struct {
	TransactionID      string `json:"transaction_id"`
	PostedAt           string `json:"posted_at"`
	AmountCents        int64  `json:"amount_cents"`
	MerchantDescriptor string `json:"merchant_descriptor,omitempty"`
	ExternalID         string `json:"external_id,omitempty"`
	AccountID          string `json:"account_id,omitempty"`
}

// MatchConfigPayload overrides the server's matching defaults per request.
type MatchConfigPayload struct {
	MinLagDays  *int  `json:"min_lag_days,omitempty"`
	MaxLagDays  *int  `json:"max_lag_days,omitempty"`
	EnableSplit *bool `json:"enable_split,omitempty"`
	SplitMaxK   *int  `json:"split_max_k,omitempty"`
}

// ReturnPayload signals a known return for the refund pass.
type ReturnPayload struct {
	OrderID     string `json:"order_id"`
	ReturnDate  string `json:"return_date"`
	RefundCents int64  `json:"refund_cents,omitempty"`
	WindowDays  int    `json:"window_days"`
}
