package bulk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/invoice-ingest/internal/bulk"
	"github.com/joseph-ayodele/invoice-ingest/internal/llm"
)

func item(pretax, tax float64) llm.ExtractedInvoiceItem {
	return llm.ExtractedInvoiceItem{Name: "item", Pretax: pretax, Tax: tax}
}

func TestCheckItemsTotal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		items    []llm.ExtractedInvoiceItem
		declared float64
		wantOK   bool
		wantSum  float64
	}{
		{
			name:     "exact match",
			items:    []llm.ExtractedInvoiceItem{item(100, 13), item(50, 6.5)},
			declared: 169.5,
			wantOK:   true,
			wantSum:  169.5,
		},
		{
			name:     "within tolerance below",
			items:    []llm.ExtractedInvoiceItem{item(99.99, 0)},
			declared: 100.00,
			wantOK:   true,
			wantSum:  99.99,
		},
		{
			name:     "within tolerance above",
			items:    []llm.ExtractedInvoiceItem{item(100.01, 0)},
			declared: 100.00,
			wantOK:   true,
			wantSum:  100.01,
		},
		{
			name:     "beyond tolerance",
			items:    []llm.ExtractedInvoiceItem{item(98, 0)},
			declared: 100.00,
			wantOK:   false,
			wantSum:  98,
		},
		{
			name:     "empty items against nonzero amount",
			items:    nil,
			declared: 42,
			wantOK:   false,
			wantSum:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := bulk.CheckItemsTotal(tt.items, tt.declared)
			assert.Equal(t, tt.wantOK, got.OK)
			assert.InDelta(t, tt.wantSum, got.ItemsTotal, 1e-9)
			assert.Equal(t, tt.declared, got.DeclaredAmount)
		})
	}
}

func TestItemsTotal_SumsPretaxAndTax(t *testing.T) {
	t.Parallel()

	items := []llm.ExtractedInvoiceItem{item(10, 1.3), item(20, 2.6), item(0.1, 0)}
	assert.InDelta(t, 34.0, bulk.ItemsTotal(items), 1e-9)
}
