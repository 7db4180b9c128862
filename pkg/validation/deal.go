// Package validation checks deal inputs before computation. Hard limits
// reject a deal outright; warnings flag suspicious but computable inputs.
package validation

import (
	"fmt"

	"github.com/dealcraft/dealcalc/internal/review"
	"github.com/dealcraft/dealcalc/pkg/constants"
)

// ValidateDeal enforces hard limits on a deal. Anything past these is a bad
// request, not a quirky input worth a best-effort estimate.
func ValidateDeal(financing review.FinancingInput, fees review.FeeSet) error {
	if financing.SalePrice < 0 {
		return fmt.Errorf("sale price must not be negative")
	}
	if financing.SalePrice > constants.MaxSalePrice {
		return fmt.Errorf("sale price exceeds maximum of %.2f", constants.MaxSalePrice)
	}
	if financing.TermMonths != 0 &&
		(financing.TermMonths < constants.MinTermMonths || financing.TermMonths > constants.MaxTermMonths) {
		return fmt.Errorf("term must be between %d and %d months", constants.MinTermMonths, constants.MaxTermMonths)
	}
	if fees.StateTaxRatePct < 0 || fees.StateTaxRatePct > constants.MaxTaxRatePct {
		return fmt.Errorf("state tax rate must be between 0 and %.1f percent", constants.MaxTaxRatePct)
	}
	if fees.CountyTaxRatePct < 0 || fees.CountyTaxRatePct > constants.MaxTaxRatePct {
		return fmt.Errorf("county tax rate must be between 0 and %.1f percent", constants.MaxTaxRatePct)
	}
	for name, fee := range map[string]float64{
		"dealer fees":     fees.DealerFees,
		"customer addons": fees.CustomerAddons,
		"government fees": fees.GovtFees,
	} {
		if fee < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
		if fee > constants.MaxFeeAmount {
			return fmt.Errorf("%s exceed maximum of %.2f", name, constants.MaxFeeAmount)
		}
	}
	return nil
}

// ValidateRateSelection checks a manual APR override.
func ValidateRateSelection(sel review.RateSelection) error {
	if sel.ManualAPR == nil {
		return nil
	}
	aprPct := *sel.ManualAPR * constants.PercentageMultiplier
	if aprPct < 0 {
		return fmt.Errorf("manual APR must not be negative")
	}
	if aprPct > constants.MaxAPRPercent {
		return fmt.Errorf("manual APR exceeds maximum of %.0f percent", constants.MaxAPRPercent)
	}
	return nil
}

// DealWarnings reports suspicious but computable inputs. The deal still
// prices; the caller decides whether to surface these to the buyer.
func DealWarnings(financing review.FinancingInput, tradeIn review.TradeInInput, fees review.FeeSet) []string {
	var warnings []string

	if !tradeIn.HasTradeIn && tradeIn.TradePayoff > 0 {
		warnings = append(warnings, "trade payoff supplied without a trade-in; it will be ignored")
	}
	if tradeIn.HasTradeIn && tradeIn.TradePayoff > tradeIn.TradeAllowance {
		warnings = append(warnings, fmt.Sprintf(
			"negative equity of %.2f will be rolled into the loan",
			tradeIn.TradePayoff-tradeIn.TradeAllowance))
	}
	if fees.UserTaxOverride && fees.StateTaxRatePct == 0 && fees.CountyTaxRatePct == 0 {
		warnings = append(warnings, "tax override is set with zero rates; no sales tax will be applied")
	}
	if financing.CashDown > financing.SalePrice && financing.SalePrice > 0 {
		warnings = append(warnings, "cash down exceeds the sale price")
	}
	if financing.CreditScore != 0 && (financing.CreditScore < 300 || financing.CreditScore > 850) {
		warnings = append(warnings, fmt.Sprintf(
			"credit score %d is outside the usual 300-850 range", financing.CreditScore))
	}

	return warnings
}
