package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-ingest/constants"
	"github.com/joseph-ayodele/invoice-ingest/internal/bulk"
	"github.com/joseph-ayodele/invoice-ingest/internal/common"
	"github.com/joseph-ayodele/invoice-ingest/internal/repository"
)

// multipartMemoryLimit is how much of the multipart body stays in memory
// before net/http spills parts to temp files.
const multipartMemoryLimit = 32 << 20

type BulkHandler struct {
	plans     repository.PlanRepository
	processor *bulk.Processor
	logger    *slog.Logger
}

func NewBulkHandler(plans repository.PlanRepository, processor *bulk.Processor, logger *slog.Logger) *BulkHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BulkHandler{plans: plans, processor: processor, logger: logger}
}

// BulkUpload ingests every PDF in the multipart body and streams progress
// back as NDJSON, one event per line, flushed as it happens. The response
// status is always 200 once streaming starts; per-file failures are carried
// in the events themselves.
func (h *BulkHandler) BulkUpload(w http.ResponseWriter, r *http.Request) {
	planID, err := uuid.Parse(chi.URLParam(r, "plan_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "plan_id must be a UUID")
		return
	}

	exists, err := h.plans.Exists(r.Context(), planID)
	if err != nil {
		h.logger.Error("server.bulk.plan.lookup.failed", "req_id", common.RequestIDFromContext(r.Context()), "plan_id", planID, "error", err)
		writeRepoError(w, err)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, repository.ErrPlanNotFound.Error())
		return
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		writeError(w, http.StatusBadRequest, "no files submitted")
		return
	}
	payerID := r.FormValue("payer_id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	sink := bulk.NewChannelSink(len(fileHeaders) * 4)

	go func() {
		defer sink.Close()

		var inputs []bulk.UploadInput
		var open []interface{ Close() error }
		defer func() {
			for _, f := range open {
				_ = f.Close()
			}
		}()

		for _, fh := range fileHeaders {
			if !constants.IsAllowedExt(filepath.Ext(fh.Filename)) {
				sink.Publish(bulk.ProgressEvent{
					FileName: fh.Filename,
					Status:   constants.StatusFailed,
					Message:  "Only PDF files are accepted",
				})
				continue
			}
			f, err := fh.Open()
			if err != nil {
				sink.Publish(bulk.ProgressEvent{
					FileName: fh.Filename,
					Status:   constants.StatusFailed,
					Message:  fmt.Sprintf("Failed to read file: %s", err),
				})
				continue
			}
			open = append(open, f)
			inputs = append(inputs, bulk.UploadInput{FileName: fh.Filename, Reader: f})
		}

		files := h.processor.ReadSubmissions(inputs, sink)
		if err := h.processor.ProcessBatch(r.Context(), files, payerID, planID, sink); err != nil {
			h.logger.Warn("server.bulk.aborted", "req_id", common.RequestIDFromContext(r.Context()), "plan_id", planID, "error", err)
		}
	}()

	for event := range sink.Events() {
		if err := enc.Encode(event); err != nil {
			// client went away; keep draining so the producer can finish
			h.logger.Warn("server.bulk.stream.write.failed", "req_id", common.RequestIDFromContext(r.Context()), "error", err)
			continue
		}
		flusher.Flush()
	}
}
