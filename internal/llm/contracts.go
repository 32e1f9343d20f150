package llm

import "context"

// ExtractedInvoice is the normalized shape we want from the model's basics
// stage, plus the items filled in by the items stage for Material invoices.
type ExtractedInvoice struct {
	Serial *string                `json:"serial"`
	Date   *string                `json:"date"` // YYYY-MM-DD
	Amount float64                `json:"amount"`
	Type   string                 `json:"type"` // "Material" | "Travel" | free text
	Items  []ExtractedInvoiceItem `json:"items,omitempty"`
}

type ExtractedInvoiceItem struct {
	Name          string   `json:"name"`
	Specification *string  `json:"specification"`
	Unit          *string  `json:"unit"`
	Quantity      *float64 `json:"quantity"`
	Pretax        float64  `json:"pretax"`
	Tax           float64  `json:"tax"`
}

// DataExtractor is what the bulk pipeline consumes: upload the raw PDF, then
// run the staged extraction against the returned handle. A nil invoice with
// a nil error means the model response could not be decoded; the caller
// treats it as "no data" for that file.
type DataExtractor interface {
	ExtractInvoiceData(ctx context.Context, data []byte, displayName string) (*ExtractedInvoice, error)
}
