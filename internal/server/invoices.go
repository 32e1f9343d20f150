package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-ingest/constants"
	"github.com/joseph-ayodele/invoice-ingest/internal/common"
	"github.com/joseph-ayodele/invoice-ingest/internal/entity"
	"github.com/joseph-ayodele/invoice-ingest/internal/export"
	"github.com/joseph-ayodele/invoice-ingest/internal/repository"
	"github.com/joseph-ayodele/invoice-ingest/internal/storage"
)

type InvoiceHandler struct {
	invoices repository.InvoiceRepository
	store    storage.InvoiceStorage
	exporter *export.Service
	logger   *slog.Logger
}

func NewInvoiceHandler(
	invoices repository.InvoiceRepository,
	store storage.InvoiceStorage,
	exporter *export.Service,
	logger *slog.Logger,
) *InvoiceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceHandler{invoices: invoices, store: store, exporter: exporter, logger: logger}
}

func (h *InvoiceHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	planID, err := uuid.Parse(chi.URLParam(r, "plan_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "plan_id must be a UUID")
		return
	}

	invoices, err := h.invoices.ListByPlan(r.Context(), planID)
	if err != nil {
		h.logger.Error("server.invoice.list.failed", "req_id", common.RequestIDFromContext(r.Context()), "plan_id", planID, "error", err)
		writeRepoError(w, err)
		return
	}
	if invoices == nil {
		invoices = []*entity.Invoice{}
	}
	writeJSON(w, http.StatusOK, invoices)
}

func (h *InvoiceHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := uuid.Parse(chi.URLParam(r, "invoice_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invoice_id must be a UUID")
		return
	}

	inv, err := h.invoices.GetByID(r.Context(), invoiceID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// GetInvoicePDF streams the stored PDF back to the caller.
func (h *InvoiceHandler) GetInvoicePDF(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := uuid.Parse(chi.URLParam(r, "invoice_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invoice_id must be a UUID")
		return
	}

	inv, err := h.invoices.GetByID(r.Context(), invoiceID)
	if err != nil {
		writeRepoError(w, err)
		return
	}

	rc, err := h.store.Open(r.Context(), inv.PDFFilePath)
	if err != nil {
		h.logger.Error("server.invoice.pdf.missing", "req_id", common.RequestIDFromContext(r.Context()), "invoice_id", invoiceID, "path", inv.PDFFilePath, "error", err)
		writeError(w, http.StatusNotFound, "stored PDF not found")
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", constants.PDFMimeType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("inline; filename=%q", filepath.Base(inv.PDFFilePath)))
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("server.invoice.pdf.stream.failed", "req_id", common.RequestIDFromContext(r.Context()), "invoice_id", invoiceID, "error", err)
	}
}

// DeleteInvoice removes the database record first, then the blob. A blob
// that cannot be removed is logged and left for manual cleanup; the record
// is already gone and the call still succeeds.
func (h *InvoiceHandler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := uuid.Parse(chi.URLParam(r, "invoice_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invoice_id must be a UUID")
		return
	}

	pdfPath, err := h.invoices.Delete(r.Context(), invoiceID)
	if err != nil {
		writeRepoError(w, err)
		return
	}

	if err := h.store.Delete(r.Context(), pdfPath); err != nil {
		h.logger.Error("server.invoice.blob.delete.failed", "req_id", common.RequestIDFromContext(r.Context()), "invoice_id", invoiceID, "path", pdfPath, "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *InvoiceHandler) ExportInvoices(w http.ResponseWriter, r *http.Request) {
	planID, err := uuid.Parse(chi.URLParam(r, "plan_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "plan_id must be a UUID")
		return
	}

	data, err := h.exporter.ExportInvoicesXLSX(r.Context(), planID)
	if err != nil {
		h.logger.Error("server.invoice.export.failed", "req_id", common.RequestIDFromContext(r.Context()), "plan_id", planID, "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "invoices-"+planID.String()+".xlsx"))
	_, _ = w.Write(data)
}
