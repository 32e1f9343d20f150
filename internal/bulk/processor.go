package bulk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-ingest/constants"
	"github.com/joseph-ayodele/invoice-ingest/internal/llm"
	"github.com/joseph-ayodele/invoice-ingest/internal/repository"
	"github.com/joseph-ayodele/invoice-ingest/internal/storage"
)

// FileSubmission is one captured upload: name plus the full file contents.
// It is read into memory once, before any processing starts, and never
// mutated afterwards.
type FileSubmission struct {
	FileName string
	Data     []byte
}

// UploadInput is a pending upload stream, not yet captured.
type UploadInput struct {
	FileName string
	Reader   io.Reader
}

// Processor drives the bulk ingestion pipeline: for each file, store the
// PDF, extract, validate and persist, emitting progress at each transition.
// Files are processed strictly one at a time in input order, and one file's
// failure never aborts the batch.
type Processor struct {
	logger    *slog.Logger
	storage   storage.InvoiceStorage
	extractor llm.DataExtractor
	invoices  repository.InvoiceRepository
}

func NewProcessor(
	logger *slog.Logger,
	store storage.InvoiceStorage,
	extractor llm.DataExtractor,
	invoices repository.InvoiceRepository,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:    logger,
		storage:   store,
		extractor: extractor,
		invoices:  invoices,
	}
}

// ReadSubmissions captures every input stream fully into memory before any
// processing begins, so later stages never depend on a transient upload
// handle's lifetime. A file that cannot be read gets a terminal FAILED event
// here and is excluded from the returned batch; the rest proceed.
func (p *Processor) ReadSubmissions(inputs []UploadInput, sink ProgressSink) []FileSubmission {
	submissions := make([]FileSubmission, 0, len(inputs))

	for _, in := range inputs {
		sink.Publish(ProgressEvent{
			FileName: in.FileName,
			Status:   constants.StatusUploading,
			Message:  "Reading file...",
		})

		data, err := readCapped(in.Reader, constants.MaxUploadBytes)
		if err != nil {
			sink.Publish(ProgressEvent{
				FileName: in.FileName,
				Status:   constants.StatusFailed,
				Message:  fmt.Sprintf("Failed to read file: %s", err),
			})
			p.logger.Error("bulk.read.failed", "file_name", in.FileName, "error", err)
			continue
		}

		submissions = append(submissions, FileSubmission{FileName: in.FileName, Data: data})
	}

	return submissions
}

// ProcessBatch processes each submission to a terminal status before
// starting the next. It returns early only when the context is cancelled;
// per-file errors are contained and reported through the sink.
func (p *Processor) ProcessBatch(
	ctx context.Context,
	files []FileSubmission,
	payerID string,
	planID uuid.UUID,
	sink ProgressSink,
) error {
	batchID := uuid.New().String()
	start := time.Now()

	p.logger.Info("bulk.process.start",
		"batch_id", batchID,
		"files", len(files),
		"plan_id", planID,
	)

	var added, failed int
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("bulk.process.cancelled", "batch_id", batchID, "file_name", file.FileName)
			return err
		}

		if p.processFile(ctx, file, payerID, planID, sink) {
			added++
		} else {
			failed++
		}
	}

	p.logger.Info("bulk.process.done",
		"batch_id", batchID,
		"added", added,
		"failed", failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// processFile runs one file through store → extract → validate → persist and
// reports whether it reached ADDED. Every failure path emits exactly one
// terminal FAILED event and removes the stored blob if one exists.
func (p *Processor) processFile(
	ctx context.Context,
	file FileSubmission,
	payerID string,
	planID uuid.UUID,
	sink ProgressSink,
) bool {
	sink.Publish(ProgressEvent{
		FileName: file.FileName,
		Status:   constants.StatusUploading,
		Message:  "Uploading PDF...",
	})

	pdfPath, err := p.storage.Store(ctx, bytes.NewReader(file.Data), file.FileName)
	if err != nil {
		// nothing was stored, so there is nothing to clean up
		p.fail(file.FileName, sink, fmt.Sprintf("Error: %s", err))
		return false
	}

	sink.Publish(ProgressEvent{
		FileName: file.FileName,
		Status:   constants.StatusExtracting,
		Message:  "Extracting invoice data...",
	})

	extracted, err := p.extractor.ExtractInvoiceData(ctx, file.Data, file.FileName)
	if err != nil {
		p.failAndCleanup(ctx, file.FileName, pdfPath, sink, fmt.Sprintf("Error: %s", err))
		return false
	}
	if extracted == nil {
		p.failAndCleanup(ctx, file.FileName, pdfPath, sink, "Failed to extract invoice data")
		return false
	}

	invoiceType := constants.ParseInvoiceType(extracted.Type)

	if invoiceType.HasItems() {
		result := CheckItemsTotal(extracted.Items, extracted.Amount)
		if !result.OK {
			msg := fmt.Sprintf("Validation failed: Items total (%.2f) does not match invoice amount (%.2f)",
				result.ItemsTotal, result.DeclaredAmount)
			p.failAndCleanup(ctx, file.FileName, pdfPath, sink, msg)
			return false
		}
	}

	req := &repository.CreateInvoiceRequest{
		PlanID:      planID,
		Serial:      extracted.Serial,
		Amount:      extracted.Amount,
		Date:        parseInvoiceDate(extracted.Date),
		Type:        invoiceType,
		PDFFilePath: pdfPath,
	}
	if payerID != "" {
		req.PayerID = &payerID
	}
	for _, it := range extracted.Items {
		req.Items = append(req.Items, repository.CreateInvoiceItemRequest{
			Name:          it.Name,
			Specification: it.Specification,
			Unit:          it.Unit,
			Amount:        it.Quantity,
			Pretax:        it.Pretax,
			Tax:           it.Tax,
		})
	}

	if _, err := p.invoices.CreateWithItems(ctx, req); err != nil {
		p.failAndCleanup(ctx, file.FileName, pdfPath, sink, fmt.Sprintf("Error: %s", err))
		return false
	}

	sink.Publish(ProgressEvent{
		FileName: file.FileName,
		Status:   constants.StatusAdded,
		Message:  fmt.Sprintf("Successfully added (Type: %s, Amount: %.2f)", invoiceType, extracted.Amount),
	})

	p.logger.Info("bulk.file.added",
		"file_name", file.FileName,
		"plan_id", planID,
		"type", invoiceType,
		"amount", extracted.Amount,
	)
	return true
}

func (p *Processor) fail(fileName string, sink ProgressSink, message string) {
	sink.Publish(ProgressEvent{
		FileName: fileName,
		Status:   constants.StatusFailed,
		Message:  message,
	})
	p.logger.Error("bulk.file.failed", "file_name", fileName, "message", message)
}

// failAndCleanup reports the failure and deletes the stored blob so no
// orphaned PDFs survive a failed file.
func (p *Processor) failAndCleanup(ctx context.Context, fileName, pdfPath string, sink ProgressSink, message string) {
	p.fail(fileName, sink, message)
	if err := p.storage.Delete(ctx, pdfPath); err != nil {
		p.logger.Error("bulk.cleanup.failed", "file_name", fileName, "path", pdfPath, "error", err)
	}
}

func parseInvoiceDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02", *s, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}

func readCapped(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file exceeds %d byte limit", limit)
	}
	return data, nil
}
