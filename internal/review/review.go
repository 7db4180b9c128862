// Package review assembles the full Truth-in-Lending disclosure figure set
// for a vehicle deal: taxes, amount financed, monthly payment, finance
// charge, total of payments, and total sale price.
//
// Compute is a pure recomputation: every call derives the complete result
// from the current inputs, so callers can invoke it on every input change
// without diffing. The only cross-call state is the rate cache, which holds
// static reference data under a short TTL.
package review

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dealcraft/dealcalc/internal/ratecache"
	"github.com/dealcraft/dealcalc/internal/store"
	"github.com/dealcraft/dealcalc/pkg/loans"
	"github.com/dealcraft/dealcalc/pkg/mathutil"
	"github.com/dealcraft/dealcalc/pkg/rates"
	"github.com/dealcraft/dealcalc/pkg/tax"
)

// ErrNoApplicableRate means no lender rate source could supply an APR for
// the requested term, condition, and credit tuple and no cached fallback
// exists. The aggregator never substitutes 0% or a guessed rate; callers
// must surface this instead of showing a misleading payment.
var ErrNoApplicableRate = errors.New("no applicable lender rate")

// FinancingInput holds the buyer's financing parameters.
type FinancingInput struct {
	SalePrice   float64 `json:"salePrice" yaml:"salePrice"`
	CashDown    float64 `json:"cashDown" yaml:"cashDown"`
	TermMonths  int     `json:"termMonths" yaml:"termMonths"`
	CreditScore int     `json:"creditScore,omitempty" yaml:"creditScore,omitempty"`
	CreditTier  string  `json:"creditTier,omitempty" yaml:"creditTier,omitempty"`
}

// TradeInInput holds the trade-in parameters. NetTrade may be negative when
// the payoff exceeds the allowance (negative equity rolled into the loan).
type TradeInInput struct {
	HasTradeIn     bool    `json:"hasTradeIn" yaml:"hasTradeIn"`
	TradeAllowance float64 `json:"tradeAllowance" yaml:"tradeAllowance"`
	TradePayoff    float64 `json:"tradePayoff" yaml:"tradePayoff"`
}

// FeeSet holds dealer, customer, and government fees plus the locale tax
// rates. When UserTaxOverride is set the caller has pinned the rates and
// locale lookups must not replace them.
type FeeSet struct {
	DealerFees       float64 `json:"dealerFees" yaml:"dealerFees"`
	CustomerAddons   float64 `json:"customerAddons" yaml:"customerAddons"`
	GovtFees         float64 `json:"govtFees" yaml:"govtFees"`
	StateTaxRatePct  float64 `json:"stateTaxRatePct" yaml:"stateTaxRatePct"`
	CountyTaxRatePct float64 `json:"countyTaxRatePct" yaml:"countyTaxRatePct"`
	UserTaxOverride  bool    `json:"userTaxOverride,omitempty" yaml:"userTaxOverride,omitempty"`
}

// RateSelection controls how the APR is resolved. A non-nil ManualAPR
// (decimal fraction) bypasses the rate tables entirely.
type RateSelection struct {
	ManualAPR        *float64 `json:"manualApr,omitempty" yaml:"manualApr,omitempty"`
	VehicleCondition string   `json:"vehicleCondition" yaml:"vehicleCondition"`
}

// Result is the display-ready disclosure figure set.
type Result struct {
	SalePrice      float64 `json:"salePrice"`
	CashDown       float64 `json:"cashDown"`
	TradeAllowance float64 `json:"tradeAllowance"`
	TradePayoff    float64 `json:"tradePayoff"`
	NetTrade       float64 `json:"netTrade"`
	PositiveEquity float64 `json:"positiveEquity"`
	NegativeEquity float64 `json:"negativeEquity"`

	DealerFees     float64 `json:"dealerFees"`
	CustomerAddons float64 `json:"customerAddons"`
	GovtFees       float64 `json:"govtFees"`
	TotalFees      float64 `json:"totalFees"`

	Taxes tax.Result `json:"taxes"`

	UnpaidBalance  float64 `json:"unpaidBalance"`
	AmountFinanced float64 `json:"amountFinanced"`
	APR            float64 `json:"apr"` // decimal fraction
	MonthlyPayment float64 `json:"monthlyPayment"`
	FinanceCharge  float64 `json:"financeCharge"`
	TotalPayments  float64 `json:"totalPayments"`
	TotalSalePrice float64 `json:"totalSalePrice"`
	CashDue        float64 `json:"cashDue"`

	// CashToBuyer is reserved for deals where positive equity exceeds the
	// buyer's obligations. The disbursement rules are not settled, so it is
	// always 0 unless a caller computes it out of band.
	CashToBuyer float64 `json:"cashToBuyer"`

	LenderID   string `json:"lenderId,omitempty"`
	LenderName string `json:"lenderName,omitempty"`
}

type resolvedRate struct {
	apr        float64
	lenderID   string
	lenderName string
}

// Aggregator resolves lender rates and composes disclosure results.
type Aggregator struct {
	logger *zap.Logger
	store  store.RateStore
	cache  ratecache.Cache

	mu       sync.Mutex
	metadata map[string]resolvedRate // lender identity for cached APRs
	defaults map[string]resolvedRate // last successful resolution per condition
}

// NewAggregator creates an Aggregator over the given rate store and cache.
func NewAggregator(logger *zap.Logger, rateStore store.RateStore, cache ratecache.Cache) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = ratecache.NewMemoryCache(0)
	}
	return &Aggregator{
		logger:   logger,
		store:    rateStore,
		cache:    cache,
		metadata: make(map[string]resolvedRate),
		defaults: make(map[string]resolvedRate),
	}
}

// Compute derives the full disclosure figure set for one deal. It returns
// ErrNoApplicableRate when no APR can be resolved; all other paths are pure
// arithmetic and cannot fail.
func (a *Aggregator) Compute(ctx context.Context, financing FinancingInput, tradeIn TradeInInput, fees FeeSet, sel RateSelection) (*Result, error) {
	salePrice := mathutil.Sanitize(financing.SalePrice)
	cashDown := mathutil.Max(mathutil.Sanitize(financing.CashDown), 0)

	var allowance, payoff float64
	if tradeIn.HasTradeIn {
		allowance = mathutil.Max(mathutil.Sanitize(tradeIn.TradeAllowance), 0)
		payoff = mathutil.Max(mathutil.Sanitize(tradeIn.TradePayoff), 0)
	}
	netTrade := allowance - payoff
	positiveEquity := mathutil.Max(netTrade, 0)
	negativeEquity := mathutil.Max(-netTrade, 0)

	// Not clamped: equity or cash beyond the price surfaces as a negative
	// balance and washes out of the financed amount below.
	unpaidBalance := salePrice - cashDown - netTrade

	dealerFees := mathutil.Max(mathutil.Sanitize(fees.DealerFees), 0)
	customerAddons := mathutil.Max(mathutil.Sanitize(fees.CustomerAddons), 0)
	govtFees := mathutil.Max(mathutil.Sanitize(fees.GovtFees), 0)
	totalFees := dealerFees + customerAddons + govtFees

	// Tax law credits the full trade allowance against the taxable price,
	// not the net of payoff.
	taxes := tax.Compute(salePrice, dealerFees, customerAddons, allowance,
		fees.StateTaxRatePct, fees.CountyTaxRatePct)

	amountFinanced := mathutil.Max(unpaidBalance+totalFees+taxes.TotalTaxes, 0)

	rate, err := a.resolveRate(ctx, financing, sel)
	if err != nil {
		return nil, err
	}

	monthlyPayment := loans.MonthlyPayment(amountFinanced, rate.apr, financing.TermMonths)
	totalPayments := mathutil.Round(monthlyPayment * float64(financing.TermMonths))
	financeCharge := mathutil.Round(totalPayments - amountFinanced)
	totalSalePrice := mathutil.Round(totalPayments + cashDown + netTrade)

	return &Result{
		SalePrice:      salePrice,
		CashDown:       cashDown,
		TradeAllowance: allowance,
		TradePayoff:    payoff,
		NetTrade:       netTrade,
		PositiveEquity: positiveEquity,
		NegativeEquity: negativeEquity,
		DealerFees:     dealerFees,
		CustomerAddons: customerAddons,
		GovtFees:       govtFees,
		TotalFees:      totalFees,
		Taxes:          taxes,
		UnpaidBalance:  unpaidBalance,
		AmountFinanced: amountFinanced,
		APR:            rate.apr,
		MonthlyPayment: monthlyPayment,
		FinanceCharge:  financeCharge,
		TotalPayments:  totalPayments,
		TotalSalePrice: totalSalePrice,
		CashDue:        cashDown,
		CashToBuyer:    0,
		LenderID:       rate.lenderID,
		LenderName:     rate.lenderName,
	}, nil
}

// resolveRate resolves the APR in priority order: manual override, cached
// best rate, rate-table scan across all lenders, then the last successful
// resolution for the vehicle condition.
func (a *Aggregator) resolveRate(ctx context.Context, financing FinancingInput, sel RateSelection) (resolvedRate, error) {
	if sel.ManualAPR != nil {
		return resolvedRate{apr: mathutil.Sanitize(*sel.ManualAPR)}, nil
	}

	condition := rates.NormalizeLoanCondition(sel.VehicleCondition)
	creditScore := financing.CreditScore
	if creditScore == 0 {
		creditScore = rates.ScoreForTier(financing.CreditTier)
	}

	key := fmt.Sprintf("best|%s|%d|%d", condition, financing.TermMonths, creditScore)
	if apr, ok := a.cache.Get(ctx, key); ok {
		a.mu.Lock()
		meta := a.metadata[key]
		a.mu.Unlock()
		return resolvedRate{apr: apr, lenderID: meta.lenderID, lenderName: meta.lenderName}, nil
	}

	if best := a.scanLenders(ctx, financing.TermMonths, condition, creditScore); best != nil {
		resolved := resolvedRate{
			apr:        best.APRDecimal,
			lenderID:   best.Entry.LenderID,
			lenderName: best.Entry.LenderName,
		}
		if err := a.cache.Set(ctx, key, resolved.apr); err != nil {
			a.logger.Warn("failed to cache resolved rate", zap.String("key", key), zap.Error(err))
		}
		a.mu.Lock()
		a.metadata[key] = resolved
		a.defaults[condition] = resolved
		a.mu.Unlock()
		return resolved, nil
	}

	a.mu.Lock()
	fallback, ok := a.defaults[condition]
	a.mu.Unlock()
	if ok {
		a.logger.Debug("no rate matched, using condition default",
			zap.String("op", "review.resolveRate"),
			zap.String("condition", condition),
			zap.Float64("apr", fallback.apr),
		)
		return fallback, nil
	}

	return resolvedRate{}, fmt.Errorf("%w: term %d months, condition %q",
		ErrNoApplicableRate, financing.TermMonths, condition)
}

// BestRate resolves the lowest APR across all lenders for a term, condition,
// and credit score, returning nil when nothing matches. Unlike Compute it
// does not consult condition defaults; it reports exactly what the rate
// tables offer.
func (a *Aggregator) BestRate(ctx context.Context, termMonths int, vehicleCondition string, creditScore int) *rates.Match {
	return a.scanLenders(ctx, termMonths, rates.NormalizeLoanCondition(vehicleCondition), creditScore)
}

// scanLenders runs the rate matcher once per lender and keeps the global
// minimum APR across all lender results.
func (a *Aggregator) scanLenders(ctx context.Context, termMonths int, condition string, creditScore int) *rates.Match {
	if a.store == nil {
		return nil
	}

	lenders, err := a.store.Lenders(ctx)
	if err != nil {
		a.logger.Warn("failed to list lenders", zap.Error(err))
		return nil
	}

	var best *rates.Match
	for _, lenderID := range lenders {
		table, err := a.store.RateTable(ctx, lenderID)
		if err != nil {
			a.logger.Warn("failed to load rate table",
				zap.String("lender", lenderID), zap.Error(err))
			continue
		}
		match := rates.SelectBestRate(table, termMonths, condition, creditScore)
		if match == nil {
			continue
		}
		if best == nil || match.Entry.APRPercent < best.Entry.APRPercent {
			best = match
		}
	}
	return best
}
