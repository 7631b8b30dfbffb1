package recon

import (
	"sort"
)

// resolveSplits attempts bounded multi-transaction sum matches for the
// orders the greedy pass left unmatched. Residual orders are visited in
// the same chronological processing order as the primary pass.
//
// The combination search is combinatorial, bounded by SplitMaxK and by the
// size of the per-order candidate window. Residual sets are small in
// practice because the greedy pass resolves the overwhelming majority;
// callers with pathological residuals can disable the pass instead.
func (r *Reconciler) resolveSplits(orders []OrderRecord, processing []int, res *Result) {
	for _, pos := range processing {
		if res.Matches[pos].Kind != KindUnmatched {
			continue
		}
		order := orders[pos]

		// Candidates: unconsumed transactions posting inside the order's
		// lag window, already sorted by (posted_at, id).
		var candidates []TransactionRecord
		for _, tx := range res.residual {
			if _, used := res.consumed[tx.TransactionID]; used {
				continue
			}
			lag := lagDays(order.OrderDate, tx.PostedAt)
			if lag < r.cfg.MinLagDays || lag > r.cfg.MaxLagDays {
				continue
			}
			candidates = append(candidates, tx)
		}
		if len(candidates) < 2 {
			continue
		}

		best := findBestCombination(candidates, order, r.cfg.SplitMaxK)
		if best == nil {
			continue
		}

		match := &res.Matches[pos]
		match.Kind = KindSplit
		match.Transactions = make([]MatchedTransaction, 0, len(best.members))
		maxLag := 0
		for _, tx := range best.members {
			lag := lagDays(order.OrderDate, tx.PostedAt)
			if lag > maxLag {
				maxLag = lag
			}
			match.Transactions = append(match.Transactions, MatchedTransaction{
				TransactionID: tx.TransactionID,
				AmountCents:   tx.AmountCents,
				LagDays:       lag,
			})
			res.consumed[tx.TransactionID] = struct{}{}
		}
		match.LagDays = maxLag
	}

	res.residual = pruneConsumed(res.residual, res.consumed)
}

// combination is one qualifying set of transactions summing to the order
// total, with the fields the tie-break needs.
type combination struct {
	members []TransactionRecord
	lagSum  int
	ids     []string // member ids sorted ascending, for the final tie-break
}

// better reports whether c beats other under the selection policy:
// smallest total lag, then fewest members, then lexicographically smallest
// id sequence.
func (c *combination) better(other *combination) bool {
	if other == nil {
		return true
	}
	if c.lagSum != other.lagSum {
		return c.lagSum < other.lagSum
	}
	if len(c.members) != len(other.members) {
		return len(c.members) < len(other.members)
	}
	for i := range c.ids {
		if c.ids[i] != other.ids[i] {
			return c.ids[i] < other.ids[i]
		}
	}
	return false
}

// findBestCombination searches all subsets of the candidates of size 2..k
// whose amounts sum exactly to the order total. Candidates are pre-filtered
// to the lag window, so members only need the sum check here.
func findBestCombination(candidates []TransactionRecord, order OrderRecord, k int) *combination {
	var (
		best    *combination
		current []TransactionRecord
	)

	var walk func(start int, sum int64, lagSum int)
	walk = func(start int, sum int64, lagSum int) {
		if len(current) >= 2 && sum == order.TotalCents {
			c := &combination{
				members: append([]TransactionRecord(nil), current...),
				lagSum:  lagSum,
			}
			c.ids = make([]string, len(c.members))
			for i, tx := range c.members {
				c.ids[i] = tx.TransactionID
			}
			sort.Strings(c.ids)
			if c.better(best) {
				best = c
			}
			// A superset can never sum to the total again unless amounts
			// cancel out; keep searching rather than assume they don't.
		}
		if len(current) == k {
			return
		}
		for i := start; i < len(candidates); i++ {
			current = append(current, candidates[i])
			walk(i+1, sum+candidates[i].AmountCents, lagSum+lagDays(order.OrderDate, candidates[i].PostedAt))
			current = current[:len(current)-1]
		}
	}
	walk(0, 0, 0)

	return best
}

// ResolveRefunds applies caller-supplied return signals to a completed run.
//
// Only orders the run matched EXACT are eligible; the refund search window
// is anchored at the signal's return date, not the order date. A signal
// that names an unknown or ineligible order produces a diagnostic. A signal
// with no qualifying refund transaction is a normal outcome: the match
// simply stays EXACT.
func (r *Reconciler) ResolveRefunds(res *Result, signals []ReturnSignal) {
	for _, sig := range signals {
		match, ok := res.byOrder[sig.OrderID]
		if !ok {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				RecordKind: "return", RecordID: sig.OrderID, Reason: "unknown order_id",
			})
			continue
		}
		if match.Kind != KindExact {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				RecordKind: "return", RecordID: sig.OrderID,
				Reason: "order is " + string(match.Kind) + ", refunds apply to EXACT matches only",
			})
			continue
		}
		if sig.ReturnDate.IsZero() || sig.WindowDays < 0 {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				RecordKind: "return", RecordID: sig.OrderID, Reason: "invalid return date or window",
			})
			continue
		}

		expected := sig.RefundCents
		if expected == 0 {
			// Full refund of the charged amount.
			expected = match.Transactions[0].AmountCents
		}

		for _, tx := range res.residual {
			if _, used := res.consumed[tx.TransactionID]; used {
				continue
			}
			if tx.AmountCents != -expected {
				continue
			}
			lag := lagDays(sig.ReturnDate, tx.PostedAt)
			if lag < 0 || lag > sig.WindowDays {
				continue
			}
			res.consumed[tx.TransactionID] = struct{}{}
			match.Kind = KindRefund
			match.Transactions = append(match.Transactions, MatchedTransaction{
				TransactionID: tx.TransactionID,
				AmountCents:   tx.AmountCents,
				LagDays:       lag,
			})
			break
		}
	}

	res.residual = pruneConsumed(res.residual, res.consumed)
}

func pruneConsumed(txns []TransactionRecord, consumed map[string]struct{}) []TransactionRecord {
	kept := txns[:0]
	for _, tx := range txns {
		if _, used := consumed[tx.TransactionID]; !used {
			kept = append(kept, tx)
		}
	}
	return kept
}
