package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-ingest/internal/repository"
)

// Service is a tiny façade over repositories that produces XLSX bytes for exports.
type Service struct {
	invoices repository.InvoiceRepository
	logger   *slog.Logger
}

func NewService(invoices repository.InvoiceRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{invoices: invoices, logger: logger}
}

// ExportInvoicesXLSX returns an XLSX workbook (as bytes) listing every invoice
// in the plan, with one detail row per line item underneath its invoice.
func (s *Service) ExportInvoicesXLSX(ctx context.Context, planID uuid.UUID) ([]byte, error) {
	start := time.Now()

	invoices, err := s.invoices.ListByPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Invoices"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Invoice Date",
		"Serial",
		"Type",
		"Amount",
		"Payer",
		"Item",
		"Specification",
		"Quantity",
		"Pretax",
		"Tax",
		"PDF Path",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, inv := range invoices {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		if inv.Date != nil {
			write(1, inv.Date.Format("2006-01-02"))
		} else {
			write(1, "")
		}
		write(2, strOrEmpty(inv.Serial))
		write(3, string(inv.Type))
		write(4, inv.Amount)
		write(5, strOrEmpty(inv.PayerID))
		write(11, inv.PDFFilePath)
		row++

		// line items indented below the invoice row
		for _, it := range inv.Items {
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, row)
				_ = f.SetCellValue(sheet, cell, v)
			}
			write(6, it.Name)
			write(7, strOrEmpty(it.Specification))
			if it.Amount != nil {
				write(8, *it.Amount)
			}
			write(9, it.Pretax)
			write(10, it.Tax)
			row++
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 14) // date
	_ = f.SetColWidth(sheet, "B", "B", 24) // serial
	_ = f.SetColWidth(sheet, "C", "C", 12) // type
	_ = f.SetColWidth(sheet, "D", "D", 14) // amount
	_ = f.SetColWidth(sheet, "F", "F", 28) // item
	_ = f.SetColWidth(sheet, "K", "K", 60) // path

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"plan_id", planID.String(),
		"invoices", len(invoices),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
