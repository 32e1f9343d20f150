package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/invoice-ingest/internal/bulk"
	"github.com/joseph-ayodele/invoice-ingest/internal/common"
	"github.com/joseph-ayodele/invoice-ingest/internal/export"
	"github.com/joseph-ayodele/invoice-ingest/internal/repository"
	"github.com/joseph-ayodele/invoice-ingest/internal/storage"
)

// Server wraps the HTTP server plus every handler's dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

func NewServer(
	cfg common.ServerConfig,
	plans repository.PlanRepository,
	invoices repository.InvoiceRepository,
	store storage.InvoiceStorage,
	processor *bulk.Processor,
	exporter *export.Service,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestIDIntoContext)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	planHandler := NewPlanHandler(plans, logger)
	invoiceHandler := NewInvoiceHandler(invoices, store, exporter, logger)
	bulkHandler := NewBulkHandler(plans, processor, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/plans", planHandler.CreatePlan)
		r.Get("/plans", planHandler.ListPlans)
		r.Get("/plans/{plan_id}", planHandler.GetPlan)

		r.Post("/plans/{plan_id}/invoices/bulk", bulkHandler.BulkUpload)
		r.Get("/plans/{plan_id}/invoices", invoiceHandler.ListInvoices)
		r.Get("/plans/{plan_id}/invoices/export", invoiceHandler.ExportInvoices)

		r.Get("/invoices/{invoice_id}", invoiceHandler.GetInvoice)
		r.Get("/invoices/{invoice_id}/pdf", invoiceHandler.GetInvoicePDF)
		r.Delete("/invoices/{invoice_id}", invoiceHandler.DeleteInvoice)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:        cfg.Addr,
			ReadTimeout: cfg.ReadTimeout,
			Handler:     r,
		},
		logger: logger,
	}
}

// requestIDIntoContext republishes chi's request ID under our own context
// key so handlers and anything below them can tag log lines without
// importing the middleware package.
func requestIDIntoContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := common.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("server.listen", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
