package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-ingest/constants"
)

// Invoice represents a persisted invoice for data transfer between layers.
// Items are owned children: they are written in the same transaction as the
// parent and removed with it.
type Invoice struct {
	ID          uuid.UUID             `json:"id"`
	PlanID      uuid.UUID             `json:"plan_id"`
	PayerID     *string               `json:"payer_id,omitempty"`
	Serial      *string               `json:"serial,omitempty"`
	Amount      float64               `json:"amount"`
	Date        *time.Time            `json:"date,omitempty"`
	Type        constants.InvoiceType `json:"type"`
	PDFFilePath string                `json:"pdf_file_path"`
	Items       []*InvoiceItem        `json:"items,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// InvoiceItem is one itemized line of a Material invoice.
type InvoiceItem struct {
	ID            uuid.UUID `json:"id"`
	InvoiceID     uuid.UUID `json:"invoice_id"`
	Name          string    `json:"name"`
	Specification *string   `json:"specification,omitempty"`
	Unit          *string   `json:"unit,omitempty"`
	Amount        *float64  `json:"amount,omitempty"` // quantity column of the printed invoice
	Pretax        float64   `json:"pretax"`
	Tax           float64   `json:"tax"`
}
