// Package recon matches merchant order records against bank transaction
// records that describe the same purchases but share no common identifier.
//
// Matching is greedy and deterministic: amounts must be equal to the cent,
// the posting lag must fall inside a configured window, and when several
// orders compete for the same transactions the earlier order (by date, then
// id) wins. A transaction is never claimed twice. Leftovers can optionally
// go through a bounded split-shipment pass and a caller-driven refund pass.
//
// The greedy nearest-date choice is a first-come-first-served heuristic,
// not a globally optimal assignment: an early order's claim can block a
// better pairing for a later one. That trade-off is intentional; the
// matcher never backtracks.
//
// Example usage:
//
//	r, err := recon.New(recon.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	result := r.Run(orders, transactions)
//	for _, m := range result.Matches {
//		// m.Kind is EXACT, SPLIT or UNMATCHED
//	}
package recon

import (
	"sort"
	"sync"
)

// Reconciler runs matching passes under a fixed configuration.
// It holds no per-run state; concurrent runs are independent.
type Reconciler struct {
	cfg Config
}

// New creates a Reconciler, failing fast on an invalid configuration.
func New(cfg Config) (*Reconciler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Reconciler{cfg: cfg}, nil
}

// Config returns the configuration the reconciler was built with.
func (r *Reconciler) Config() Config {
	return r.cfg
}

// Result is the output of one reconciliation run.
//
// Matches holds one entry per valid input order, in the order the orders
// were supplied (not the internal processing order). Records dropped by
// validation appear only in Diagnostics.
type Result struct {
	Matches     []Match
	Diagnostics []Diagnostic

	// consumed and residual carry run state forward so the refund pass can
	// operate on the same consumption set. They are scoped to this run and
	// discarded with it.
	consumed map[string]struct{}
	residual []TransactionRecord
	byOrder  map[string]*Match
}

// Unconsumed returns the transactions no match has claimed, sorted by
// posting date then id.
func (res *Result) Unconsumed() []TransactionRecord {
	out := make([]TransactionRecord, len(res.residual))
	copy(out, res.residual)
	return out
}

// CountByKind tallies matches per kind.
func (res *Result) CountByKind() map[MatchKind]int {
	counts := make(map[MatchKind]int, 4)
	for i := range res.Matches {
		counts[res.Matches[i].Kind]++
	}
	return counts
}

// Run executes the primary greedy pass and, when enabled, the
// split-shipment pass over the leftovers.
//
// Orders and transactions may arrive in any order; the run re-sorts
// internally, so any permutation of the same input yields the same result.
func (r *Reconciler) Run(orders []OrderRecord, txns []TransactionRecord) *Result {
	res := &Result{
		consumed: make(map[string]struct{}),
		byOrder:  make(map[string]*Match),
	}

	valid := r.validateOrders(orders, res)

	index, txDiags := BuildIndex(txns)
	res.Diagnostics = append(res.Diagnostics, txDiags...)

	res.Matches = make([]Match, len(valid))

	// Chronological processing order decides who wins when orders compete
	// for the same candidates. Sorting by (date, id) makes the race
	// deterministic regardless of input order.
	processing := make([]int, len(valid))
	for i := range valid {
		processing[i] = i
	}
	sort.Slice(processing, func(a, b int) bool {
		oa, ob := valid[processing[a]], valid[processing[b]]
		if !oa.OrderDate.Equal(ob.OrderDate) {
			return oa.OrderDate.Before(ob.OrderDate)
		}
		return oa.OrderID < ob.OrderID
	})

	// Buckets are independent: orders for different amounts never compete.
	// Dispatch one worker per distinct amount; each worker owns its bucket
	// and its slice of the consumption set, so no locking is needed.
	groups := make(map[int64][]int)
	for _, pos := range processing {
		amount := valid[pos].TotalCents
		groups[amount] = append(groups[amount], pos)
	}

	consumedPerAmount := make(map[int64][]string, len(groups))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for amount, positions := range groups {
		wg.Add(1)
		go func(amount int64, positions []int) {
			defer wg.Done()
			claimed := r.matchBucket(valid, positions, index.Bucket(amount), res.Matches)
			mu.Lock()
			consumedPerAmount[amount] = claimed
			mu.Unlock()
		}(amount, positions)
	}
	wg.Wait()

	for _, claimed := range consumedPerAmount {
		for _, id := range claimed {
			res.consumed[id] = struct{}{}
		}
	}

	res.residual = residualTransactions(index, res.consumed)

	if r.cfg.EnableSplit {
		r.resolveSplits(valid, processing, res)
	}

	for i := range res.Matches {
		res.byOrder[res.Matches[i].OrderID] = &res.Matches[i]
	}

	return res
}

// matchBucket runs the greedy window scan for every order sharing one
// amount. Positions arrive in processing order; results land at each
// order's original input position. Returns the claimed transaction ids.
func (r *Reconciler) matchBucket(orders []OrderRecord, positions []int, bucket []TransactionRecord, out []Match) []string {
	consumed := make(map[string]struct{})
	var claimed []string

	for _, pos := range positions {
		order := orders[pos]
		match := Match{OrderID: order.OrderID, Kind: KindUnmatched}

		// The bucket is sorted by (posted_at, id), so the first eligible
		// candidate is already the smallest lag with the smallest id.
		start := searchWindow(bucket, order, r.cfg.MinLagDays)
		for i := start; i < len(bucket); i++ {
			lag := lagDays(order.OrderDate, bucket[i].PostedAt)
			if lag > r.cfg.MaxLagDays {
				break
			}
			if _, used := consumed[bucket[i].TransactionID]; used {
				continue
			}
			consumed[bucket[i].TransactionID] = struct{}{}
			claimed = append(claimed, bucket[i].TransactionID)
			match.Kind = KindExact
			match.LagDays = lag
			match.Transactions = []MatchedTransaction{{
				TransactionID: bucket[i].TransactionID,
				AmountCents:   bucket[i].AmountCents,
				LagDays:       lag,
			}}
			break
		}

		out[pos] = match
	}

	return claimed
}

// validateOrders drops malformed or duplicate orders with a diagnostic and
// returns the survivors in input order.
func (r *Reconciler) validateOrders(orders []OrderRecord, res *Result) []OrderRecord {
	valid := make([]OrderRecord, 0, len(orders))
	seen := make(map[string]struct{}, len(orders))

	for _, o := range orders {
		switch {
		case o.OrderID == "":
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				RecordKind: "order", RecordID: o.OrderID, Reason: "missing order_id",
			})
		case o.OrderDate.IsZero():
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				RecordKind: "order", RecordID: o.OrderID, Reason: "missing order_date",
			})
		case o.TotalCents < 0:
			// A purchase order needs a non-negative total. Zero totals are
			// unusual but valid; they simply participate in amount matching.
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				RecordKind: "order", RecordID: o.OrderID, Reason: "negative order total",
			})
		default:
			if _, dup := seen[o.OrderID]; dup {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{
					RecordKind: "order", RecordID: o.OrderID, Reason: "duplicate order_id",
				})
				continue
			}
			seen[o.OrderID] = struct{}{}
			valid = append(valid, o)
		}
	}

	return valid
}

// residualTransactions lists every indexed transaction left unclaimed,
// sorted by (posted_at, id) so later passes are deterministic.
func residualTransactions(index *Index, consumed map[string]struct{}) []TransactionRecord {
	var residual []TransactionRecord
	for _, amount := range index.Amounts() {
		for _, tx := range index.Bucket(amount) {
			if _, used := consumed[tx.TransactionID]; !used {
				residual = append(residual, tx)
			}
		}
	}
	sort.Slice(residual, func(i, j int) bool {
		if !residual[i].PostedAt.Equal(residual[j].PostedAt) {
			return residual[i].PostedAt.Before(residual[j].PostedAt)
		}
		return residual[i].TransactionID < residual[j].TransactionID
	})
	return residual
}
