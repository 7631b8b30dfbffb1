package recon

import (
	"sort"
)

// Index groups transactions by exact amount into date-sorted buckets.
// Building it is a pure function of its input; the consumed state lives
// with the matching run, not here.
type Index struct {
	buckets map[int64][]TransactionRecord
}

// BuildIndex validates the transaction ledger and groups it into buckets
// keyed by AmountCents, each sorted ascending by PostedAt with ties broken
// by TransactionID so a run is fully deterministic.
//
// A duplicate TransactionID is a validation problem: the later duplicate is
// dropped and reported, the rest of the ledger is indexed normally.
func BuildIndex(txns []TransactionRecord) (*Index, []Diagnostic) {
	var diags []Diagnostic

	seen := make(map[string]struct{}, len(txns))
	buckets := make(map[int64][]TransactionRecord)

	for _, tx := range txns {
		if tx.TransactionID == "" {
			diags = append(diags, Diagnostic{
				RecordKind: "transaction",
				RecordID:   tx.TransactionID,
				Reason:     "missing transaction_id",
			})
			continue
		}
		if tx.PostedAt.IsZero() {
			diags = append(diags, Diagnostic{
				RecordKind: "transaction",
				RecordID:   tx.TransactionID,
				Reason:     "missing posted_at date",
			})
			continue
		}
		if _, dup := seen[tx.TransactionID]; dup {
			diags = append(diags, Diagnostic{
				RecordKind: "transaction",
				RecordID:   tx.TransactionID,
				Reason:     "duplicate transaction_id",
			})
			continue
		}
		seen[tx.TransactionID] = struct{}{}
		buckets[tx.AmountCents] = append(buckets[tx.AmountCents], tx)
	}

	for amount := range buckets {
		b := buckets[amount]
		sort.Slice(b, func(i, j int) bool {
			if !b[i].PostedAt.Equal(b[j].PostedAt) {
				return b[i].PostedAt.Before(b[j].PostedAt)
			}
			return b[i].TransactionID < b[j].TransactionID
		})
	}

	return &Index{buckets: buckets}, diags
}

// Bucket returns the date-sorted transactions for one exact amount.
// A missing amount yields a nil slice.
func (ix *Index) Bucket(amountCents int64) []TransactionRecord {
	return ix.buckets[amountCents]
}

// Amounts returns the distinct amounts present in the index.
func (ix *Index) Amounts() []int64 {
	amounts := make([]int64, 0, len(ix.buckets))
	for a := range ix.buckets {
		amounts = append(amounts, a)
	}
	sort.Slice(amounts, func(i, j int) bool { return amounts[i] < amounts[j] })
	return amounts
}

// searchWindow returns the index of the first bucket entry whose lag from
// orderDate is at least minLag. Buckets are sorted by PostedAt, so the scan
// that follows only has to walk until the lag exceeds the window.
func searchWindow(bucket []TransactionRecord, order OrderRecord, minLag int) int {
	return sort.Search(len(bucket), func(i int) bool {
		return lagDays(order.OrderDate, bucket[i].PostedAt) >= minLag
	})
}
