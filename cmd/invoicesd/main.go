package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-ingest/internal/bulk"
	"github.com/joseph-ayodele/invoice-ingest/internal/common"
	"github.com/joseph-ayodele/invoice-ingest/internal/export"
	"github.com/joseph-ayodele/invoice-ingest/internal/ingest"
	"github.com/joseph-ayodele/invoice-ingest/internal/llm/gemini"
	"github.com/joseph-ayodele/invoice-ingest/internal/repository"
	"github.com/joseph-ayodele/invoice-ingest/internal/server"
	"github.com/joseph-ayodele/invoice-ingest/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("invoicesd stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
		return fmt.Errorf("open database: %w", err)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, 3*time.Second, logger); err != nil {
		return fmt.Errorf("database health: %w", err)
	}

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
		return fmt.Errorf("gemini client: %w", err)
	}

	processor := bulk.NewProcessor(logger, store, extractor, invoiceRepo)
	exporter := export.NewService(invoiceRepo, logger)

	srv := server.NewServer(cfg.Server, planRepo, invoiceRepo, store, processor, exporter, logger)

	erg, ctx := errgroup.WithContext(ctx)

	if cfg.Watch.Dir != "" {
		watchPlanID, err := uuid.Parse(cfg.Watch.PlanID)
		if err != nil {
			return fmt.Errorf("WATCH_PLAN_ID must be a UUID: %w", err)
		}
		hotFolder := ingest.NewHotFolder(processor, watchPlanID, cfg.Watch.PayerID, ingest.WatchConfig{
			Root:        cfg.Watch.Dir,
			InitialScan: true,
			Debounce:    cfg.Watch.Debounce,
		}, logger)
		erg.Go(func() error {
			if err := hotFolder.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("hot folder: %w", err)
			}
			return nil
		})
	}

	erg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	erg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := erg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("invoicesd stopped gracefully")
	return nil
}
