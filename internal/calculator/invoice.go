package calculator

import "github.com/ledgerline/billing-core/internal/store"

// InvoiceResult is the composed outcome of the full pipeline on one
// (possibly already prorated) subtotal: discounts applied to the subtotal,
// tax applied to the discounted remainder, never the other way around.
type InvoiceResult struct {
	SubtotalCents int64
	Discount      DiscountResult
	Tax           TaxResult
	TotalCents    int64
}

// ComputeInvoice runs the contractual discount → tax ordering over a
// subtotal. Proration happens upstream — its net output is the subtotal
// passed here. Pure, like everything else in this package.
func ComputeInvoice(subtotalCents int64, coupons []*store.Coupon, dctx DiscountContext, rates []*store.TaxRate, customerMetadata map[string]any) InvoiceResult {
	discount := ApplyDiscounts(subtotalCents, coupons, dctx)
	tax := CalculateTax(discount.RemainingCents, rates, customerMetadata)
	return InvoiceResult{
		SubtotalCents: subtotalCents,
		Discount:      discount,
		Tax:           tax,
		TotalCents:    discount.RemainingCents + tax.TotalTaxCents,
	}
}
