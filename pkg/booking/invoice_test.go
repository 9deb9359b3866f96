package booking

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculateInvoiceTotalsAppliesVAT(test *testing.T) {
	test.Parallel()
	items := NormalizeInvoiceItems([]InvoiceItemInput{
		priceInput(test, "Chain replacement", "100", 2),
		priceInput(test, "Labour", "50", 1),
	})
	totals := CalculateInvoiceTotals(items, mustDecimal(test, "13"), decimal.Zero)
	assertDecimal(test, "subtotal", totals.Subtotal, "250")
	assertDecimal(test, "vat amount", totals.VATAmount, "32.5")
	assertDecimal(test, "total", totals.Total, "282.5")
}

func TestCalculateInvoiceTotalsFallsBackToQuotedPrice(test *testing.T) {
	test.Parallel()
	totals := CalculateInvoiceTotals(nil, mustDecimal(test, "13"), mustDecimal(test, "1800"))
	assertDecimal(test, "subtotal", totals.Subtotal, "1800")
	assertDecimal(test, "vat rate", totals.VATRate, "0")
	assertDecimal(test, "vat amount", totals.VATAmount, "0")
	assertDecimal(test, "total", totals.Total, "1800")
}

func TestCalculateInvoiceTotalsRoundsVATToCents(test *testing.T) {
	test.Parallel()
	items := NormalizeInvoiceItems([]InvoiceItemInput{priceInput(test, "Brake pads", "33.33", 1)})
	totals := CalculateInvoiceTotals(items, mustDecimal(test, "13"), decimal.Zero)
	assertDecimal(test, "vat amount", totals.VATAmount, "4.33")
	assertDecimal(test, "total", totals.Total, "37.66")
}

func TestNormalizeInvoiceItemsDropsInvalidLines(test *testing.T) {
	test.Parallel()
	items := NormalizeInvoiceItems([]InvoiceItemInput{
		priceInput(test, "  Oil change  ", "450", 0),
		priceInput(test, "   ", "10", 1),
		priceInput(test, "Refund", "-5", 1),
		{Description: "No price", Quantity: 1},
		priceInput(test, "Negative quantity", "10", -2),
		priceInput(test, "Spark plug", "120.50", 3),
	})
	if len(items) != 2 {
		test.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}
	if items[0].Description != "Oil change" || items[0].Quantity != 1 {
		test.Fatalf("unexpected first item %+v", items[0])
	}
	assertDecimal(test, "line total", items[1].LineTotal, "361.5")
}

func TestCanTransitionInvoice(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		from    InvoiceStatus
		to      InvoiceStatus
		wantErr error
	}{
		{from: InvoiceDraft, to: InvoiceIssued},
		{from: InvoiceDraft, to: InvoiceCancelled},
		{from: InvoiceIssued, to: InvoicePaymentPending},
		{from: InvoiceIssued, to: InvoicePaid},
		{from: InvoicePaymentPending, to: InvoicePaid},
		{from: InvoicePaymentPending, to: InvoiceIssued},
		{from: InvoicePaymentPending, to: InvoiceCancelled},
		{from: InvoiceDraft, to: InvoicePaid, wantErr: ErrInvalidTransition},
		{from: InvoiceDraft, to: InvoicePaymentPending, wantErr: ErrInvalidTransition},
		{from: InvoicePaid, to: InvoiceCancelled, wantErr: ErrInvoiceAlreadyPaid},
		{from: InvoicePaid, to: InvoiceIssued, wantErr: ErrInvoiceAlreadyPaid},
		{from: InvoiceCancelled, to: InvoicePaid, wantErr: ErrInvalidTransition},
		{from: InvoiceCancelled, to: InvoiceDraft, wantErr: ErrInvalidTransition},
	}
	for _, testCase := range testCases {
		err := CanTransitionInvoice(testCase.from, testCase.to)
		if testCase.wantErr == nil {
			if err != nil {
				test.Fatalf("%s->%s: expected allowed, got %v", testCase.from, testCase.to, err)
			}
			continue
		}
		if !errors.Is(err, testCase.wantErr) {
			test.Fatalf("%s->%s: expected %v, got %v", testCase.from, testCase.to, testCase.wantErr, err)
		}
	}
}
