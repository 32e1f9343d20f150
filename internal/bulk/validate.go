package bulk

import (
	"math"

	"github.com/joseph-ayodele/invoice-ingest/internal/llm"
)

// ItemsTotalTolerance is the maximum absolute difference allowed between the
// summed line items and the declared invoice amount. Printed invoices round
// per line, so totals can drift a cent.
const ItemsTotalTolerance = 0.01

// ValidationResult carries the verdict plus both totals for diagnostics.
type ValidationResult struct {
	ItemsTotal     float64
	DeclaredAmount float64
	OK             bool
}

// ItemsTotal sums pretax+tax over all line items.
func ItemsTotal(items []llm.ExtractedInvoiceItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Pretax + it.Tax
	}
	return total
}

// CheckItemsTotal reconciles the itemized lines against the declared amount.
// Pure; validation of non-itemized invoice types is the caller's concern.
func CheckItemsTotal(items []llm.ExtractedInvoiceItem, declaredAmount float64) ValidationResult {
	total := ItemsTotal(items)
	return ValidationResult{
		ItemsTotal:     total,
		DeclaredAmount: declaredAmount,
		OK:             math.Abs(total-declaredAmount) <= ItemsTotalTolerance,
	}
}
