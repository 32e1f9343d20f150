package constants

import "strings"

// InvoiceType classifies an extracted invoice.
type InvoiceType string

const (
	Material InvoiceType = "Material"
	Travel   InvoiceType = "Travel"
	Others   InvoiceType = "Others"
)

// ParseInvoiceType maps the model's textual type field to an InvoiceType.
// Matching is case-insensitive; anything unrecognized (including empty)
// resolves to Others.
func ParseInvoiceType(input string) InvoiceType {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "material":
		return Material
	case "travel":
		return Travel
	default:
		return Others
	}
}

// HasItems reports whether invoices of this type carry itemized lines.
// Only Material invoices do; for every other type the items stage is skipped.
func (t InvoiceType) HasItems() bool {
	return t == Material
}
