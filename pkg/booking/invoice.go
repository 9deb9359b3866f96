package booking

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

const moneyScale = 2

var (
	hundred = decimal.NewFromInt(100)

	invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
		InvoiceDraft:          {InvoiceIssued, InvoiceCancelled},
		InvoiceIssued:         {InvoicePaymentPending, InvoicePaid, InvoiceCancelled},
		InvoicePaymentPending: {InvoicePaid, InvoiceIssued, InvoiceCancelled},
	}

	initialInvoiceStatuses = []InvoiceStatus{InvoiceDraft, InvoiceIssued, InvoicePaymentPending, InvoicePaid}
)

// InvoiceTotals is the computed money side of an invoice.
type InvoiceTotals struct {
	Subtotal  decimal.Decimal
	VATRate   decimal.Decimal
	VATAmount decimal.Decimal
	Total     decimal.Decimal
}

// NormalizeInvoiceItems trims descriptions, defaults a zero quantity to one and
// drops lines without a description, without a non-negative price, or with a
// negative quantity.
func NormalizeInvoiceItems(inputs []InvoiceItemInput) []InvoiceItem {
	items := make([]InvoiceItem, 0, len(inputs))
	for _, input := range inputs {
		description := strings.TrimSpace(input.Description)
		if description == "" || !input.UnitPrice.Valid || input.UnitPrice.Decimal.IsNegative() {
			continue
		}
		quantity := input.Quantity
		if quantity == 0 {
			quantity = 1
		}
		if quantity < 0 {
			continue
		}
		items = append(items, InvoiceItem{
			Description: description,
			UnitPrice:   input.UnitPrice.Decimal,
			Quantity:    quantity,
			LineTotal:   input.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(quantity))),
		})
	}
	return items
}

// CalculateInvoiceTotals sums items and applies vatRate percent. With no items the
// total falls back to quotedPrice and no VAT is charged, so the rate is zero too.
func CalculateInvoiceTotals(items []InvoiceItem, vatRate decimal.Decimal, quotedPrice decimal.Decimal) InvoiceTotals {
	if len(items) == 0 {
		return InvoiceTotals{
			Subtotal:  quotedPrice,
			VATRate:   decimal.Zero,
			VATAmount: decimal.Zero,
			Total:     quotedPrice,
		}
	}
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal)
	}
	vatAmount := subtotal.Mul(vatRate).Div(hundred).Round(moneyScale)
	return InvoiceTotals{
		Subtotal:  subtotal,
		VATRate:   vatRate,
		VATAmount: vatAmount,
		Total:     subtotal.Add(vatAmount),
	}
}

// CanTransitionInvoice checks an invoice status change against the invoice lifecycle.
func CanTransitionInvoice(from InvoiceStatus, to InvoiceStatus) error {
	switch from {
	case InvoicePaid:
		return fmt.Errorf("%w: cannot move to %s", ErrInvoiceAlreadyPaid, to)
	case InvoiceCancelled:
		return fmt.Errorf("%w: invoice %s to %s", ErrInvalidTransition, from, to)
	}
	if !slices.Contains(invoiceTransitions[from], to) {
		return fmt.Errorf("%w: invoice %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func validateVATRate(vatRate decimal.Decimal) error {
	if vatRate.IsNegative() || !isCentPrecise(vatRate) {
		return fmt.Errorf("%w: %s", ErrInvalidVATRate, vatRate)
	}
	return nil
}

// validatePrice rejects negative amounts and amounts finer than one cent.
func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() || !isCentPrecise(price) {
		return fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	return nil
}

// validateItemPrices rejects any submitted unit price finer than one cent.
// Lines dropped by NormalizeInvoiceItems for other reasons are not checked.
func validateItemPrices(inputs []InvoiceItemInput) error {
	for _, input := range inputs {
		if input.UnitPrice.Valid && !isCentPrecise(input.UnitPrice.Decimal) {
			return fmt.Errorf("%w: unit price %s", ErrInvalidPrice, input.UnitPrice.Decimal)
		}
	}
	return nil
}

func isCentPrecise(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(moneyScale))
}

func requiresPositiveTotal(status InvoiceStatus) bool {
	switch status {
	case InvoiceIssued, InvoicePaymentPending, InvoicePaid:
		return true
	default:
		return false
	}
}

func applyTotals(invoice Invoice, totals InvoiceTotals) Invoice {
	invoice.Subtotal = totals.Subtotal
	invoice.VATRate = totals.VATRate
	invoice.VATAmount = totals.VATAmount
	invoice.Total = totals.Total
	return invoice
}
