package fixedassets

import (
	"time"

	"github.com/shopspring/decimal"
)

var monthsPerYear = decimal.NewFromInt(12)

// MonthlyDepreciation derives one month of depreciation for an asset.
// StraightLine spreads cost minus salvage evenly over the useful life;
// DecliningBalance applies the category's annual rate to acquisition cost,
// divided by twelve. Either way the result is capped so book value never
// drops below salvage.
func MonthlyDepreciation(asset FixedAsset, category AssetCategory) decimal.Decimal {
	var monthly decimal.Decimal
	switch asset.Method {
	case MethodDecliningBalance:
		monthly = asset.AcquisitionCost.Mul(category.DecliningAnnualRate).Div(monthsPerYear)
	default:
		if asset.UsefulLifeMonths <= 0 {
			return decimal.Zero
		}
		monthly = asset.AcquisitionCost.Sub(asset.SalvageValue).Div(decimal.NewFromInt(int64(asset.UsefulLifeMonths)))
	}
	monthly = monthly.Round(2)
	remaining := asset.BookValue.Sub(asset.SalvageValue)
	if monthly.GreaterThan(remaining) {
		return remaining
	}
	return monthly
}

// ApplyDepreciation returns the asset state after expensing the amount:
// accumulated depreciation grows, book value shrinks, and hitting the
// salvage floor exactly flips the status to FullyDepreciated.
func ApplyDepreciation(asset FixedAsset, amount decimal.Decimal) FixedAsset {
	remaining := asset.BookValue.Sub(asset.SalvageValue)
	if amount.GreaterThan(remaining) {
		amount = remaining
	}
	asset.AccumulatedDepr = asset.AccumulatedDepr.Add(amount)
	asset.BookValue = asset.BookValue.Sub(amount)
	if asset.BookValue.Equal(asset.SalvageValue) {
		asset.Status = AssetFullyDepreciated
	}
	return asset
}

// DisposalOutcome summarizes a disposal: the book value given up, the
// proceeds received, and the signed gain or loss between them.
type DisposalOutcome struct {
	BookValueAtDisposal decimal.Decimal
	DisposalValue       decimal.Decimal
	GainLoss            decimal.Decimal
	IsGain              bool
	At                  time.Time
}

// ComputeDisposal derives the gain or loss of disposing an asset at the
// given value. A positive difference is a gain, negative a loss; zero
// counts as neither but reports IsGain false.
func ComputeDisposal(asset FixedAsset, disposalValue decimal.Decimal, at time.Time) DisposalOutcome {
	gainLoss := disposalValue.Sub(asset.BookValue)
	return DisposalOutcome{
		BookValueAtDisposal: asset.BookValue,
		DisposalValue:       disposalValue,
		GainLoss:            gainLoss,
		IsGain:              gainLoss.GreaterThan(decimal.Zero),
		At:                  at,
	}
}
