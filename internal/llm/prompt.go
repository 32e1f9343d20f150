package llm

import "strings"

// BuildBasicsPrompt composes the first-stage instruction: coarse invoice
// fields only, returned as a single JSON object.
func BuildBasicsPrompt() string {
	parts := []string{
		"You are an invoice parser. Read the attached PDF invoice and return ONLY a JSON object, no prose and no markdown.",
		"The object must have exactly these fields:",
		`"serial": the invoice serial number as a string, or null if not printed.`,
		`"date": the invoice date normalized to YYYY-MM-DD, or null if not printed.`,
		`"amount": the invoice total amount (tax included) as a number.`,
		`"type": one of "Material" or "Travel". Choose the best fit:`,
		"use \"Material\" for itemized purchases of goods (parts, supplies, equipment) and \"Travel\" for transport, lodging or fares.",
		"Use ISO-8601 dates (YYYY-MM-DD). Do not invent values that are not on the invoice.",
	}
	return strings.Join(parts, " ")
}

// BuildItemsPrompt composes the second-stage instruction: the itemized line
// table as a JSON array. The merge rules mirror how Chinese VAT invoices wrap
// long item names onto continuation rows and record corrections as negative
// rows; both must be folded into the preceding row before the list is usable.
func BuildItemsPrompt() string {
	parts := []string{
		"You are an invoice parser. Read the attached PDF invoice and return ONLY a JSON array of its line items, no prose and no markdown.",
		"Each element must have exactly these fields:",
		`"name": item name as a string.`,
		`"specification": the specification/model column, or null.`,
		`"unit": the unit column, or null.`,
		`"quantity": the quantity as a number, or null.`,
		`"pretax": the pre-tax amount as a number.`,
		`"tax": the tax amount as a number.`,
		"Apply these reconciliation rules, in order, before emitting the array:",
		"1. A row whose amount column is empty is an overflow row: its name and specification continue the previous row. Merge it into the previous row. This applies even when the overflow row is on the next page.",
		"2. A row whose name matches the previous row's name and whose amount is negative is a correction to the previous row. Merge it into the previous row by adding the amounts together. This also applies across page boundaries.",
		"Emit one element per merged row. Do not include subtotal or total rows.",
	}
	return strings.Join(parts, " ")
}
