package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// TaxRateStore provides the active-rate lookup the tax calculator needs,
// grounded on libs/go/services/tax_service.go's GetTaxRatesForJurisdiction.
type TaxRateStore struct{}

func (s TaxRateStore) ListActiveForJurisdiction(ctx context.Context, db DBTX, appID, jurisdictionCode string) ([]*TaxRate, error) {
	rows, err := db.Query(ctx, `
		SELECT id, app_id, jurisdiction_code, tax_type, rate, effective_date, expiration_date, description
		FROM tax_rates
		WHERE app_id = $1 AND jurisdiction_code = $2
		  AND effective_date <= now()
		  AND (expiration_date IS NULL OR now() < expiration_date)`, appID, jurisdictionCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*TaxRate
	for rows.Next() {
		var t TaxRate
		var rate pgtype.Numeric
		if err := rows.Scan(&t.ID, &t.AppID, &t.JurisdictionCode, &t.TaxType, &rate,
			&t.EffectiveDate, &t.ExpirationDate, &t.Description); err != nil {
			return nil, err
		}
		t.Rate = numericToDecimal(rate)
		out = append(out, &t)
	}
	return out, rows.Err()
}

// numericToDecimal converts the column's numeric value into the exact decimal
// the calculator multiplies with; the rate never passes through a float.
func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
