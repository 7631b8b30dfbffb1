package recon

import (
	"fmt"
	"time"
)

// OrderRecord is one merchant order as supplied by the caller.
// Tax and shipping are informational only and never influence matching.
type OrderRecord struct {
	OrderID       string
	OrderDate     time.Time
	TotalCents    int64
	TaxCents      int64
	ShippingCents int64
}

// TransactionRecord is one bank/card line item.
// Descriptor, external id and account id are metadata only; they are
// deliberately excluded from matching decisions (unreliable signals).
type TransactionRecord struct {
	TransactionID      string
	PostedAt           time.Time
	AmountCents        int64
	MerchantDescriptor string
	ExternalID         string
	AccountID          string
}

// MatchKind describes how (or whether) an order was matched.
type MatchKind string

const (
	KindExact     MatchKind = "EXACT"
	KindSplit     MatchKind = "SPLIT"
	KindRefund    MatchKind = "REFUND"
	KindUnmatched MatchKind = "UNMATCHED"
)

// MatchedTransaction is one claimed transaction inside a match.
type MatchedTransaction struct {
	TransactionID string
	AmountCents   int64
	LagDays       int
}

// Match is the outcome for a single order.
//
// Transactions is empty for UNMATCHED, holds exactly one entry for EXACT,
// and up to Config.SplitMaxK entries for SPLIT. For REFUND the refunding
// transaction is appended after the original charge. LagDays is the single
// lag for EXACT and the largest member lag for SPLIT.
type Match struct {
	OrderID      string
	Kind         MatchKind
	Transactions []MatchedTransaction
	LagDays      int
}

// Diagnostic reports a per-record validation problem. The offending record
// is dropped and the run continues; diagnostics are returned alongside the
// results so the caller can decide whether to fix and re-run.
type Diagnostic struct {
	RecordKind string // "order", "transaction" or "return"
	RecordID   string
	Reason     string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s: %s", d.RecordKind, d.RecordID, d.Reason)
}

// Config controls a reconciliation run.
type Config struct {
	// MinLagDays and MaxLagDays bound the allowed posting lag
	// (posted_at - order_date, in whole days) for a candidate.
	MinLagDays int
	MaxLagDays int

	// EnableSplit turns on the split-shipment pass over residuals.
	EnableSplit bool

	// SplitMaxK caps the number of transactions a split match may combine.
	SplitMaxK int
}

// DefaultConfig returns sensible defaults: charges usually post within a
// few days of the order, and split shipments rarely exceed three charges.
func DefaultConfig() Config {
	return Config{
		MinLagDays:  0,
		MaxLagDays:  4,
		EnableSplit: true,
		SplitMaxK:   3,
	}
}

// ConfigError is a fatal configuration problem. Unlike per-record
// diagnostics it aborts the run before any matching begins.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "recon: invalid config: " + e.Reason
}

// Validate checks the configuration. It fails fast so a run never produces
// partial output under a nonsensical window.
func (c Config) Validate() error {
	if c.MinLagDays < 0 {
		return &ConfigError{Reason: fmt.Sprintf("min_lag_days must be >= 0, got %d", c.MinLagDays)}
	}
	if c.MinLagDays > c.MaxLagDays {
		return &ConfigError{Reason: fmt.Sprintf("min_lag_days (%d) exceeds max_lag_days (%d)", c.MinLagDays, c.MaxLagDays)}
	}
	if c.EnableSplit && c.SplitMaxK < 1 {
		return &ConfigError{Reason: fmt.Sprintf("split_max_k must be >= 1, got %d", c.SplitMaxK)}
	}
	return nil
}

// ReturnSignal tells the refund pass that an order is known to have been
// returned. The caller supplies this; the resolver never infers a return
// from transaction sign alone.
type ReturnSignal struct {
	OrderID string

	// ReturnDate anchors the refund search window (not the order date).
	ReturnDate time.Time

	// RefundCents is the expected refund as a positive amount. Zero means
	// a full refund of the order total.
	RefundCents int64

	// WindowDays is how many days after ReturnDate the refund may post.
	WindowDays int
}

// lagDays returns whole calendar days from the order date to the posting
// date, ignoring any time-of-day component on either side.
func lagDays(orderDate, postedAt time.Time) int {
	o := time.Date(orderDate.Year(), orderDate.Month(), orderDate.Day(), 0, 0, 0, 0, time.UTC)
	p := time.Date(postedAt.Year(), postedAt.Month(), postedAt.Day(), 0, 0, 0, 0, time.UTC)
	return int(p.Sub(o).Hours() / 24)
}
