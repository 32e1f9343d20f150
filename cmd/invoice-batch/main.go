package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-ingest/constants"
	"github.com/joseph-ayodele/invoice-ingest/internal/bulk"
	"github.com/joseph-ayodele/invoice-ingest/internal/common"
	"github.com/joseph-ayodele/invoice-ingest/internal/export"
	"github.com/joseph-ayodele/invoice-ingest/internal/llm/gemini"
	"github.com/joseph-ayodele/invoice-ingest/internal/repository"
	"github.com/joseph-ayodele/invoice-ingest/internal/storage"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		dir      = flag.String("dir", "", "directory containing invoice PDFs (required)")
		planName = flag.String("plan", "Local Batch", "reimbursement plan name to create")
		payerID  = flag.String("payer", "", "payer identifier attached to each invoice")
		out      = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "invoices.xlsx")
	}

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	pool, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		printError("Error: open database: %v\n", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	txManager := repository.NewTxManager(pool)
	planRepo := repository.NewPlanRepository(pool, logger)
	invoiceRepo := repository.NewInvoiceRepository(pool, txManager, logger)
	store := storage.NewLocalStorage(cfg.Storage.Root, logger)

	extractor, err := gemini.NewClient(gemini.Config{
		APIKey:               cfg.Gemini.APIKey,
		BaseURL:              cfg.Gemini.BaseURL,
		Model:                cfg.Gemini.Model,
		Timeout:              cfg.Gemini.Timeout,
		BasicsThinkingBudget: cfg.Gemini.BasicsThinkingBudget,
		ItemsThinkingBudget:  cfg.Gemini.ItemsThinkingBudget,
	}, nil, logger)
	if err != nil {
		printError("Error: gemini client: %v\n", err)
		os.Exit(1)
	}

	plan, err := planRepo.Create(ctx, *planName, nil)
	if err != nil {
		printError("Error: create plan: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Plan %q created (%s)\n", plan.Name, plan.ID)

	files, err := collectPDFs(*dir)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		printError("Error: no PDF files found in %s\n", *dir)
		os.Exit(1)
	}

	// Print every progress event as it happens
	var added, failed int
	sink := bulk.ProgressFunc(func(event bulk.ProgressEvent) {
		fmt.Printf("[%s] %s: %s\n", event.Status, event.FileName, event.Message)
		switch event.Status {
		case constants.StatusAdded:
			added++
		case constants.StatusFailed:
			failed++
		}
	})

	processor := bulk.NewProcessor(logger, store, extractor, invoiceRepo)

	start := time.Now()
	submissions := readFiles(files, processor, sink)
	if err := processor.ProcessBatch(ctx, submissions, *payerID, plan.ID, sink); err != nil {
		printError("Error: batch aborted: %v\n", err)
		os.Exit(1)
	}

	exporter := export.NewService(invoiceRepo, logger)
	xlsxBytes, err := exporter.ExportInvoicesXLSX(ctx, plan.ID)
	if err != nil {
		printError("Error: export: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0644); err != nil {
		printError("Error: write output file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Batch complete in %s\n", time.Since(start).Round(time.Second))
	fmt.Printf("- Invoices added: %d\n", added)
	fmt.Printf("- Failures: %d\n", failed)
	fmt.Printf("- Output: %s\n", *out)
}

func collectPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func readFiles(paths []string, processor *bulk.Processor, sink bulk.ProgressSink) []bulk.FileSubmission {
	inputs := make([]bulk.UploadInput, 0, len(paths))
	var handles []*os.File
	defer func() {
		for _, f := range handles {
			_ = f.Close()
		}
	}()

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			sink.Publish(bulk.ProgressEvent{
				FileName: filepath.Base(path),
				Status:   constants.StatusFailed,
				Message:  fmt.Sprintf("Failed to read file: %s", err),
			})
			continue
		}
		handles = append(handles, f)
		inputs = append(inputs, bulk.UploadInput{FileName: filepath.Base(path), Reader: f})
	}

	return processor.ReadSubmissions(inputs, sink)
}
