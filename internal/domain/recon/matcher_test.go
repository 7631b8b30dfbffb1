package recon

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func order(id string, date time.Time, cents int64) OrderRecord {
	return OrderRecord{OrderID: id, OrderDate: date, TotalCents: cents}
}

func newReconciler(t *testing.T, cfg Config) *Reconciler {
	t.Helper()
	r, err := New(cfg)
	require.NoError(t, err)
	return r
}

func TestReconciler_ExactMatchNextDay(t *testing.T) {
	r := newReconciler(t, DefaultConfig())

	orders := []OrderRecord{order("O1", day(2025, 1, 1), 5000)}
	txns := []TransactionRecord{txn("T1", day(2025, 1, 2), 5000)}

	res := r.Run(orders, txns)

	require.Len(t, res.Matches, 1)
	m := res.Matches[0]
	assert.Equal(t, "O1", m.OrderID)
	assert.Equal(t, KindExact, m.Kind)
	assert.Equal(t, 1, m.LagDays)
	require.Len(t, m.Transactions, 1)
	assert.Equal(t, "T1", m.Transactions[0].TransactionID)
	assert.Equal(t, int64(5000), m.Transactions[0].AmountCents)
}

func TestReconciler_CompetingOrdersClaimInChronologicalOrder(t *testing.T) {
	r := newReconciler(t, DefaultConfig())

	// Two orders share the amount. O1 is earlier, so it claims T1 (lag 2)
	// even though T1 would also be a lag-1 candidate for O2.
	orders := []OrderRecord{
		order("O2", day(2025, 3, 2), 3000),
		order("O1", day(2025, 3, 1), 3000),
	}
	txns := []TransactionRecord{
		txn("T2", day(2025, 3, 4), 3000),
		txn("T1", day(2025, 3, 3), 3000),
	}

	res := r.Run(orders, txns)

	require.Len(t, res.Matches, 2)

	// Output follows input order, not processing order.
	o2, o1 := res.Matches[0], res.Matches[1]
	assert.Equal(t, "O2", o2.OrderID)
	assert.Equal(t, "O1", o1.OrderID)

	assert.Equal(t, KindExact, o1.Kind)
	assert.Equal(t, "T1", o1.Transactions[0].TransactionID)
	assert.Equal(t, 2, o1.LagDays)

	assert.Equal(t, KindExact, o2.Kind)
	assert.Equal(t, "T2", o2.Transactions[0].TransactionID)
	assert.Equal(t, 2, o2.LagDays)
}

func TestReconciler_NoCandidateIsUnmatched(t *testing.T) {
	r := newReconciler(t, DefaultConfig())

	orders := []OrderRecord{order("O3", day(2025, 5, 10), 1200)}
	txns := []TransactionRecord{
		txn("T1", day(2025, 5, 11), 1300),  // wrong amount
		txn("T2", day(2025, 5, 20), 1200),  // right amount, lag 10
		txn("T3", day(2025, 5, 9), 1200),   // right amount, lag -1
	}

	res := r.Run(orders, txns)

	require.Len(t, res.Matches, 1)
	assert.Equal(t, KindUnmatched, res.Matches[0].Kind)
	assert.Empty(t, res.Matches[0].Transactions)
	assert.Empty(t, res.Diagnostics, "an unmatched order is not an error")
}

func TestReconciler_LagWindowBounds(t *testing.T) {
	tests := []struct {
		name    string
		posted  time.Time
		matched bool
	}{
		{"same day is lag zero", day(2025, 4, 1), true},
		{"max lag inclusive", day(2025, 4, 5), true},
		{"one past max lag", day(2025, 4, 6), false},
		{"posted before order", day(2025, 3, 31), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newReconciler(t, DefaultConfig())
			res := r.Run(
				[]OrderRecord{order("O1", day(2025, 4, 1), 2500)},
				[]TransactionRecord{txn("T1", tt.posted, 2500)},
			)
			require.Len(t, res.Matches, 1)
			if tt.matched {
				assert.Equal(t, KindExact, res.Matches[0].Kind)
			} else {
				assert.Equal(t, KindUnmatched, res.Matches[0].Kind)
			}
		})
	}
}

func TestReconciler_TieBreakOnSamePostingDate(t *testing.T) {
	r := newReconciler(t, DefaultConfig())

	// Both candidates post the same day; the smaller id wins.
	res := r.Run(
		[]OrderRecord{order("O1", day(2025, 7, 1), 4200)},
		[]TransactionRecord{
			txn("Tb", day(2025, 7, 2), 4200),
			txn("Ta", day(2025, 7, 2), 4200),
		},
	)

	require.Equal(t, KindExact, res.Matches[0].Kind)
	assert.Equal(t, "Ta", res.Matches[0].Transactions[0].TransactionID)
}

func TestReconciler_NoDoubleConsumption(t *testing.T) {
	r := newReconciler(t, DefaultConfig())

	// Five orders compete for three transactions of the same amount.
	var orders []OrderRecord
	for _, id := range []string{"O1", "O2", "O3", "O4", "O5"} {
		orders = append(orders, order(id, day(2025, 8, 1), 999))
	}
	txns := []TransactionRecord{
		txn("T1", day(2025, 8, 1), 999),
		txn("T2", day(2025, 8, 2), 999),
		txn("T3", day(2025, 8, 3), 999),
	}

	res := r.Run(orders, txns)

	claimed := make(map[string]string)
	matched := 0
	for _, m := range res.Matches {
		for _, mt := range m.Transactions {
			prev, dup := claimed[mt.TransactionID]
			require.False(t, dup, "transaction %s claimed by both %s and %s", mt.TransactionID, prev, m.OrderID)
			claimed[mt.TransactionID] = m.OrderID
		}
		if m.Kind != KindUnmatched {
			matched++
		}
	}
	assert.Equal(t, 3, matched)
	assert.Len(t, res.Unconsumed(), 0)
}

func TestReconciler_DeterministicUnderPermutation(t *testing.T) {
	r := newReconciler(t, DefaultConfig())

	rng := rand.New(rand.NewSource(42))

	var orders []OrderRecord
	var txns []TransactionRecord
	amounts := []int64{1000, 2500, 2500, 7300, 7300, 7300, 50}
	for i, amount := range amounts {
		orders = append(orders, order(
			string(rune('A'+i)),
			day(2025, 9, 1+rng.Intn(5)),
			amount,
		))
		txns = append(txns, txn(
			string(rune('a'+i)),
			day(2025, 9, 2+rng.Intn(5)),
			amount,
		))
	}

	baseline := r.Run(orders, txns)

	for trial := 0; trial < 10; trial++ {
		shuffledOrders := append([]OrderRecord(nil), orders...)
		shuffledTxns := append([]TransactionRecord(nil), txns...)
		rng.Shuffle(len(shuffledOrders), func(i, j int) {
			shuffledOrders[i], shuffledOrders[j] = shuffledOrders[j], shuffledOrders[i]
		})
		rng.Shuffle(len(shuffledTxns), func(i, j int) {
			shuffledTxns[i], shuffledTxns[j] = shuffledTxns[j], shuffledTxns[i]
		})

		res := r.Run(shuffledOrders, shuffledTxns)

		// Compare per order id: output order tracks the (shuffled) input.
		byID := make(map[string]Match)
		for _, m := range res.Matches {
			byID[m.OrderID] = m
		}
		for _, want := range baseline.Matches {
			got, ok := byID[want.OrderID]
			require.True(t, ok)
			assert.Equal(t, want.Kind, got.Kind, "order %s", want.OrderID)
			assert.Equal(t, want.Transactions, got.Transactions, "order %s", want.OrderID)
		}
	}
}

func TestReconciler_EveryOrderAppearsExactlyOnce(t *testing.T) {
	r := newReconciler(t, DefaultConfig())

	orders := []OrderRecord{
		order("O1", day(2025, 1, 3), 100),
		order("O2", day(2025, 1, 1), 200),
		order("O3", day(2025, 1, 2), 300),
	}

	res := r.Run(orders, nil)

	require.Len(t, res.Matches, len(orders))
	for i, o := range orders {
		assert.Equal(t, o.OrderID, res.Matches[i].OrderID, "output must follow input order")
		assert.Equal(t, KindUnmatched, res.Matches[i].Kind)
	}
}

func TestReconciler_ExactAmountLaw(t *testing.T) {
	r := newReconciler(t, DefaultConfig())

	// A one-cent difference is not a match.
	res := r.Run(
		[]OrderRecord{order("O1", day(2025, 2, 1), 5000)},
		[]TransactionRecord{txn("T1", day(2025, 2, 1), 5001)},
	)
	assert.Equal(t, KindUnmatched, res.Matches[0].Kind)

	res = r.Run(
		[]OrderRecord{order("O1", day(2025, 2, 1), 5000)},
		[]TransactionRecord{txn("T1", day(2025, 2, 1), 5000)},
	)
	require.Equal(t, KindExact, res.Matches[0].Kind)
	assert.Equal(t, res.Matches[0].Transactions[0].AmountCents, int64(5000))
}

func TestReconciler_ZeroTotalParticipates(t *testing.T) {
	r := newReconciler(t, DefaultConfig())

	res := r.Run(
		[]OrderRecord{order("O1", day(2025, 2, 1), 0)},
		[]TransactionRecord{txn("T1", day(2025, 2, 2), 0)},
	)

	require.Empty(t, res.Diagnostics)
	assert.Equal(t, KindExact, res.Matches[0].Kind)
}

func TestReconciler_OrderValidation(t *testing.T) {
	r := newReconciler(t, DefaultConfig())

	orders := []OrderRecord{
		order("O1", day(2025, 3, 1), 1000),
		order("O1", day(2025, 3, 2), 2000), // duplicate id
		order("O2", day(2025, 3, 1), -500), // negative total
		order("", day(2025, 3, 1), 300),    // missing id
		order("O3", time.Time{}, 300),      // missing date
	}

	res := r.Run(orders, []TransactionRecord{txn("T1", day(2025, 3, 2), 1000)})

	// Only the first valid order survives; the rest are reported.
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "O1", res.Matches[0].OrderID)
	assert.Equal(t, KindExact, res.Matches[0].Kind)

	require.Len(t, res.Diagnostics, 4)
	reasons := make([]string, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		assert.Equal(t, "order", d.RecordKind)
		reasons = append(reasons, d.Reason)
	}
	assert.Contains(t, reasons, "duplicate order_id")
	assert.Contains(t, reasons, "negative order total")
	assert.Contains(t, reasons, "missing order_id")
	assert.Contains(t, reasons, "missing order_date")
}

func TestReconciler_DuplicateTransactionProceedsWithRest(t *testing.T) {
	r := newReconciler(t, DefaultConfig())

	res := r.Run(
		[]OrderRecord{order("O1", day(2025, 4, 1), 3000)},
		[]TransactionRecord{
			txn("T9", day(2025, 4, 2), 3000),
			txn("T9", day(2025, 4, 3), 3000),
		},
	)

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "T9", res.Diagnostics[0].RecordID)

	// The surviving copy still matches.
	require.Equal(t, KindExact, res.Matches[0].Kind)
	assert.Equal(t, 1, res.Matches[0].LagDays)
}

func TestReconciler_CustomWindow(t *testing.T) {
	r := newReconciler(t, Config{MinLagDays: 2, MaxLagDays: 6})

	orders := []OrderRecord{order("O1", day(2025, 5, 1), 8000)}
	txns := []TransactionRecord{
		txn("T1", day(2025, 5, 2), 8000), // lag 1, below min
		txn("T2", day(2025, 5, 4), 8000), // lag 3, eligible
	}

	res := r.Run(orders, txns)

	require.Equal(t, KindExact, res.Matches[0].Kind)
	assert.Equal(t, "T2", res.Matches[0].Transactions[0].TransactionID)
	assert.Equal(t, 3, res.Matches[0].LagDays)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"min above max", Config{MinLagDays: 5, MaxLagDays: 4}},
		{"negative min", Config{MinLagDays: -1, MaxLagDays: 4}},
		{"split k below one", Config{MaxLagDays: 4, EnableSplit: true, SplitMaxK: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.Error(t, err)
			var cfgErr *ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestResult_CountByKind(t *testing.T) {
	r := newReconciler(t, DefaultConfig())

	res := r.Run(
		[]OrderRecord{
			order("O1", day(2025, 6, 1), 100),
			order("O2", day(2025, 6, 1), 200),
		},
		[]TransactionRecord{txn("T1", day(2025, 6, 1), 100)},
	)

	counts := res.CountByKind()
	assert.Equal(t, 1, counts[KindExact])
	assert.Equal(t, 1, counts[KindUnmatched])
}
