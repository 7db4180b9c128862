// Package tax computes state and county sales tax for a vehicle purchase.
//
// State tax applies to the sale price net of the trade-in credit plus dealer
// fees and customer add-ons. County surtax applies only to the first portion
// of the sale price up to the statutory cap, regardless of fees or trade.
package tax

import (
	"github.com/dealcraft/dealcalc/pkg/constants"
	"github.com/dealcraft/dealcalc/pkg/mathutil"
)

// Result holds the derived tax figures for one deal. It is recomputed from
// scratch whenever any input changes and is never stored apart from the
// inputs that produced it.
type Result struct {
	TaxableBase     float64 `json:"taxableBase"`
	StateTaxAmount  float64 `json:"stateTaxAmount"`
	CountyTaxAmount float64 `json:"countyTaxAmount"`
	TotalTaxes      float64 `json:"totalTaxes"`
}

// Compute derives the tax figures for a deal. Rates are percentages
// (6.0 means 6%), not decimal fractions. All monetary inputs coerce to 0
// when non-finite; the function is total over its domain.
func Compute(salePrice, dealerFees, customerAddons, tradeCredit, stateRatePct, countyRatePct float64) Result {
	salePrice = mathutil.Sanitize(salePrice)
	dealerFees = mathutil.Sanitize(dealerFees)
	customerAddons = mathutil.Sanitize(customerAddons)
	tradeCredit = mathutil.Sanitize(tradeCredit)
	stateRatePct = mathutil.Sanitize(stateRatePct)
	countyRatePct = mathutil.Sanitize(countyRatePct)

	taxableBase := mathutil.Max(salePrice-tradeCredit, 0) + dealerFees + customerAddons

	// The county surtax base is the capped sale price. A non-positive sale
	// price falls back to the capped taxable base so fee-only transactions
	// still accrue surtax.
	countyBase := mathutil.Min(mathutil.Max(salePrice, 0), constants.CountyTaxCap)
	if salePrice <= 0 {
		countyBase = mathutil.Min(taxableBase, constants.CountyTaxCap)
	}

	stateTax := mathutil.ApplyPercentage(taxableBase, stateRatePct)
	countyTax := mathutil.ApplyPercentage(countyBase, countyRatePct)

	return Result{
		TaxableBase:     taxableBase,
		StateTaxAmount:  stateTax,
		CountyTaxAmount: countyTax,
		TotalTaxes:      stateTax + countyTax,
	}
}
