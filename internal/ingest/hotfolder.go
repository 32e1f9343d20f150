package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-ingest/internal/bulk"
)

// HotFolder feeds PDFs dropped into a watched directory through the bulk
// pipeline, one file per batch, into a fixed plan. Progress events go to the
// log since there is no client to stream them to.
type HotFolder struct {
	processor *bulk.Processor
	planID    uuid.UUID
	payerID   string
	cfg       WatchConfig
	logger    *slog.Logger
}

func NewHotFolder(processor *bulk.Processor, planID uuid.UUID, payerID string, cfg WatchConfig, logger *slog.Logger) *HotFolder {
	if logger == nil {
		logger = slog.Default()
	}
	return &HotFolder{
		processor: processor,
		planID:    planID,
		payerID:   payerID,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run blocks until the context is cancelled or the watcher dies.
func (h *HotFolder) Run(ctx context.Context) error {
	events, errs, err := StartWatcher(ctx, h.cfg, h.logger)
	if err != nil {
		return err
	}

	h.logger.Info("ingest.hotfolder.start", "root", h.cfg.Root, "plan_id", h.planID)

	// a path can fire again after processing (the file stays in place), so
	// remember what we already handled
	seen := map[string]time.Time{}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if ok && err != nil {
				h.logger.Error("ingest.hotfolder.watch.error", "error", err)
			}
		case path, ok := <-events:
			if !ok {
				return nil
			}
			if _, done := seen[path]; done {
				continue
			}
			seen[path] = time.Now()
			h.ingestOne(ctx, path)
		}
	}
}

func (h *HotFolder) ingestOne(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		h.logger.Error("ingest.hotfolder.open.failed", "path", path, "error", err)
		return
	}
	defer func() { _ = f.Close() }()

	sink := bulk.ProgressFunc(func(event bulk.ProgressEvent) {
		h.logger.Info("ingest.hotfolder.progress",
			"file_name", event.FileName,
			"status", event.Status,
			"message", event.Message,
		)
	})

	inputs := []bulk.UploadInput{{FileName: filepath.Base(path), Reader: f}}
	files := h.processor.ReadSubmissions(inputs, sink)
	if err := h.processor.ProcessBatch(ctx, files, h.payerID, h.planID, sink); err != nil {
		h.logger.Warn("ingest.hotfolder.aborted", "path", path, "error", err)
	}
}
