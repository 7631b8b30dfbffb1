// Command reconcile runs a one-shot reconciliation over two CSV ledgers
// and writes the match table as JSON.
//
// Usage:
//
//	reconcile -orders orders.csv -transactions transactions.csv [-out results.json] [-persist]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/eshaffer321/ledgermatch/internal/domain/recon"
	"github.com/eshaffer321/ledgermatch/internal/infrastructure/config"
	"github.com/eshaffer321/ledgermatch/internal/infrastructure/logging"
	"github.com/eshaffer321/ledgermatch/internal/infrastructure/storage"
	"github.com/eshaffer321/ledgermatch/internal/loader"
	"github.com/eshaffer321/ledgermatch/internal/service"
)

func main() {
	var (
		ordersPath   = flag.String("orders", "", "path to the orders CSV (required)")
		txnsPath     = flag.String("transactions", "", "path to the transactions CSV (required)")
		configPath   = flag.String("config", "config.yaml", "path to the config file")
		outPath      = flag.String("out", "", "write results JSON to this file (default stdout)")
		persist      = flag.Bool("persist", false, "store the run in the configured database")
		disableSplit = flag.Bool("no-split", false, "disable the split-shipment pass")
	)
	flag.Parse()

	if *ordersPath == "" || *txnsPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.LoadOrEnvWithPath(*configPath)
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "reconcile")

	matching := recon.Config{
		MinLagDays:  cfg.Matching.MinLagDays,
		MaxLagDays:  cfg.Matching.MaxLagDays,
		EnableSplit: cfg.Matching.EnableSplit && !*disableSplit,
		SplitMaxK:   cfg.Matching.SplitMaxK,
	}

	orders, orderDiags, err := readOrders(*ordersPath)
	if err != nil {
		logger.Error("failed to read orders", "error", err, "path", *ordersPath)
		os.Exit(1)
	}
	txns, txnDiags, err := readTransactions(*txnsPath)
	if err != nil {
		logger.Error("failed to read transactions", "error", err, "path", *txnsPath)
		os.Exit(1)
	}

	for _, d := range append(orderDiags, txnDiags...) {
		logger.Warn("skipped record", "kind", d.RecordKind, "id", d.RecordID, "reason", d.Reason)
	}

	var repo storage.Repository
	if *persist {
		store, err := storage.NewStorage(cfg.Storage.DatabasePath)
		if err != nil {
			logger.Error("failed to open database", "error", err, "path", cfg.Storage.DatabasePath)
			os.Exit(1)
		}
		defer store.Close()
		repo = store
	}

	svc := service.NewReconService(repo, logger)
	outcome, err := svc.Reconcile(service.RunRequest{
		Orders:       orders,
		Transactions: txns,
		Config:       matching,
		Persist:      *persist,
	})
	if err != nil {
		logger.Error("reconciliation failed", "error", err)
		os.Exit(1)
	}

	if outcome.RunID != "" {
		logger.Info("run stored", "run_id", outcome.RunID)
	}

	if err := writeResults(*outPath, outcome); err != nil {
		logger.Error("failed to write results", "error", err)
		os.Exit(1)
	}
}

func readOrders(path string) ([]recon.OrderRecord, []recon.Diagnostic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return loader.ParseOrders(f)
}

func readTransactions(path string) ([]recon.TransactionRecord, []recon.Diagnostic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return loader.ParseTransactions(f)
}

func writeResults(path string, outcome *service.RunOutcome) error {
	payload := struct {
		RunID       string             `json:"run_id,omitempty"`
		Matches     []recon.Match      `json:"matches"`
		Diagnostics []recon.Diagnostic `json:"diagnostics,omitempty"`
	}{
		RunID:       outcome.RunID,
		Matches:     outcome.Result.Matches,
		Diagnostics: outcome.Result.Diagnostics,
	}

	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}
