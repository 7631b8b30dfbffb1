// Package loader parses source ledgers into typed records for the matcher.
//
// The loader mirrors the core's partial-failure semantics: a malformed row
// produces a diagnostic and is skipped, the rest of the file is parsed
// normally. Only a structurally unreadable file is an error.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/ledgermatch/internal/domain/recon"
)

const dateLayout = "2006-01-02"

// Expected headers. Column order is fixed; trailing metadata columns on
// transactions are optional.
var (
	orderColumns = []string{"order_id", "order_date", "total", "tax", "shipping"}
	txnColumns   = []string{"transaction_id", "posted_at", "amount", "descriptor", "external_id", "account_id"}
)

// ParseOrders reads the merchant order ledger from CSV.
// Columns: order_id, order_date, total, tax, shipping.
func ParseOrders(r io.Reader) ([]recon.OrderRecord, []recon.Diagnostic, error) {
	rows, err := readRows(r, orderColumns)
	if err != nil {
		return nil, nil, err
	}

	var (
		orders []recon.OrderRecord
		diags  []recon.Diagnostic
	)
	for _, row := range rows {
		if len(row) < 3 {
			diags = append(diags, orderDiag(row, "too few columns"))
			continue
		}

		date, err := time.Parse(dateLayout, strings.TrimSpace(row[1]))
		if err != nil {
			diags = append(diags, orderDiag(row, fmt.Sprintf("unparseable order_date %q", row[1])))
			continue
		}

		total, err := parseAmountCents(row[2])
		if err != nil {
			diags = append(diags, orderDiag(row, fmt.Sprintf("unparseable total %q", row[2])))
			continue
		}

		order := recon.OrderRecord{
			OrderID:    strings.TrimSpace(row[0]),
			OrderDate:  date,
			TotalCents: total,
		}
		// Tax and shipping are informational; a bad value does not drop
		// the order.
		if len(row) > 3 {
			order.TaxCents, _ = parseAmountCentsLenient(row[3])
		}
		if len(row) > 4 {
			order.ShippingCents, _ = parseAmountCentsLenient(row[4])
		}

		orders = append(orders, order)
	}

	return orders, diags, nil
}

// ParseTransactions reads the bank/card ledger from CSV.
// Columns: transaction_id, posted_at, amount, descriptor, external_id, account_id.
func ParseTransactions(r io.Reader) ([]recon.TransactionRecord, []recon.Diagnostic, error) {
	rows, err := readRows(r, txnColumns)
	if err != nil {
		return nil, nil, err
	}

	var (
		txns  []recon.TransactionRecord
		diags []recon.Diagnostic
	)
	for _, row := range rows {
		if len(row) < 3 {
			diags = append(diags, txnDiag(row, "too few columns"))
			continue
		}

		posted, err := time.Parse(dateLayout, strings.TrimSpace(row[1]))
		if err != nil {
			diags = append(diags, txnDiag(row, fmt.Sprintf("unparseable posted_at %q", row[1])))
			continue
		}

		amount, err := parseAmountCents(row[2])
		if err != nil {
			diags = append(diags, txnDiag(row, fmt.Sprintf("unparseable amount %q", row[2])))
			continue
		}

		tx := recon.TransactionRecord{
			TransactionID: strings.TrimSpace(row[0]),
			PostedAt:      posted,
			AmountCents:   amount,
		}
		if len(row) > 3 {
			tx.MerchantDescriptor = strings.TrimSpace(row[3])
		}
		if len(row) > 4 {
			tx.ExternalID = strings.TrimSpace(row[4])
		}
		if len(row) > 5 {
			tx.AccountID = strings.TrimSpace(row[5])
		}

		txns = append(txns, tx)
	}

	return txns, diags, nil
}

// readRows reads all data rows, skipping the header when present.
func readRows(r io.Reader, columns []string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// A header row is identified by its first column name.
	if strings.EqualFold(strings.TrimSpace(records[0][0]), columns[0]) {
		records = records[1:]
	}

	return records, nil
}

// parseAmountCents converts a decimal dollar string ("58.74", "-12.00")
// into integer cents without going through floating point.
func parseAmountCents(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

func parseAmountCentsLenient(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return parseAmountCents(s)
}

func orderDiag(row []string, reason string) recon.Diagnostic {
	return recon.Diagnostic{RecordKind: "order", RecordID: firstField(row), Reason: reason}
}

func txnDiag(row []string, reason string) recon.Diagnostic {
	return recon.Diagnostic{RecordKind: "transaction", RecordID: firstField(row), Reason: reason}
}

func firstField(row []string) string {
	if len(row) == 0 {
		return ""
	}
	return strings.TrimSpace(row[0])
}
