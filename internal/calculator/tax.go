package calculator

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/billing-core/internal/store"
)

// TaxContext carries the jurisdiction-resolution inputs: explicit override,
// else customer metadata jurisdiction_code, else customer metadata state.
type TaxContext struct {
	OverrideJurisdiction string
	CustomerMetadata     map[string]any
}

// ResolveJurisdiction applies the override → jurisdiction_code → state
// resolution order.
func ResolveJurisdiction(ctx TaxContext) string {
	if ctx.OverrideJurisdiction != "" {
		return ctx.OverrideJurisdiction
	}
	if v, ok := ctx.CustomerMetadata["jurisdiction_code"].(string); ok && v != "" {
		return v
	}
	if v, ok := ctx.CustomerMetadata["state"].(string); ok && v != "" {
		return v
	}
	return ""
}

// IsExempt reports whether the customer carries an exemption record for
// taxType in its metadata.
func IsExempt(customerMetadata map[string]any, taxType string) bool {
	raw, ok := customerMetadata["tax_exemptions"]
	if !ok {
		return false
	}
	list, ok := raw.([]any)
	if !ok {
		return false
	}
	for _, item := range list {
		if s, ok := item.(string); ok && strings.EqualFold(s, taxType) {
			return true
		}
	}
	return false
}

// TaxOutcome reports one jurisdiction rate's contribution.
type TaxOutcome struct {
	TaxRateID    string
	TaxType      string
	Rate         decimal.Decimal
	TaxableCents int64
	TaxCents     int64
}

// TaxResult is the sum of every applicable rate's tax on the given taxable
// amount.
type TaxResult struct {
	TotalTaxCents int64
	Outcomes      []TaxOutcome
}

// CalculateTax sums each applicable rate's tax on the taxable amount. rates
// is assumed to already be filtered to the active window by the store layer
// (TaxRateStore.ListActiveForJurisdiction); exemption is checked here and,
// if it matches a rate's tax type, zeroes that rate's contribution.
func CalculateTax(taxableCents int64, rates []*store.TaxRate, customerMetadata map[string]any) TaxResult {
	result := TaxResult{Outcomes: make([]TaxOutcome, 0, len(rates))}

	for _, r := range rates {
		if IsExempt(customerMetadata, r.TaxType) {
			result.Outcomes = append(result.Outcomes, TaxOutcome{
				TaxRateID: r.ID.String(), TaxType: r.TaxType, Rate: r.Rate,
				TaxableCents: taxableCents, TaxCents: 0,
			})
			continue
		}
		tax := decimal.NewFromInt(taxableCents).Mul(r.Rate).Round(0).IntPart()
		result.TotalTaxCents += tax
		result.Outcomes = append(result.Outcomes, TaxOutcome{
			TaxRateID: r.ID.String(), TaxType: r.TaxType, Rate: r.Rate,
			TaxableCents: taxableCents, TaxCents: tax,
		})
	}

	return result
}
