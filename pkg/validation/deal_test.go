package validation

import (
	"strings"
	"testing"

	"github.com/dealcraft/dealcalc/internal/review"
)

func TestValidateDeal(t *testing.T) {
	tests := []struct {
		name      string
		financing review.FinancingInput
		fees      review.FeeSet
		wantErr   string
	}{
		{
			name:      "Valid deal",
			financing: review.FinancingInput{SalePrice: 30000, TermMonths: 60},
			fees:      review.FeeSet{StateTaxRatePct: 6, CountyTaxRatePct: 1},
		},
		{
			name:      "Zero term allowed for cash deals",
			financing: review.FinancingInput{SalePrice: 30000},
		},
		{
			name:      "Negative sale price",
			financing: review.FinancingInput{SalePrice: -1},
			wantErr:   "sale price",
		},
		{
			name:      "Sale price over maximum",
			financing: review.FinancingInput{SalePrice: 20_000_000},
			wantErr:   "sale price",
		},
		{
			name:      "Term over maximum",
			financing: review.FinancingInput{SalePrice: 30000, TermMonths: 240},
			wantErr:   "term",
		},
		{
			name:      "Negative term",
			financing: review.FinancingInput{SalePrice: 30000, TermMonths: -12},
			wantErr:   "term",
		},
		{
			name:      "State tax rate over maximum",
			financing: review.FinancingInput{SalePrice: 30000, TermMonths: 60},
			fees:      review.FeeSet{StateTaxRatePct: 30},
			wantErr:   "state tax rate",
		},
		{
			name:      "Negative dealer fees",
			financing: review.FinancingInput{SalePrice: 30000, TermMonths: 60},
			fees:      review.FeeSet{DealerFees: -1},
			wantErr:   "dealer fees",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDeal(tt.financing, tt.fees)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRateSelection(t *testing.T) {
	valid := 0.0549
	negative := -0.01
	tooHigh := 1.5

	if err := ValidateRateSelection(review.RateSelection{}); err != nil {
		t.Errorf("nil manual APR should pass: %v", err)
	}
	if err := ValidateRateSelection(review.RateSelection{ManualAPR: &valid}); err != nil {
		t.Errorf("valid manual APR should pass: %v", err)
	}
	if err := ValidateRateSelection(review.RateSelection{ManualAPR: &negative}); err == nil {
		t.Error("negative manual APR should fail")
	}
	if err := ValidateRateSelection(review.RateSelection{ManualAPR: &tooHigh}); err == nil {
		t.Error("manual APR over 100% should fail")
	}
}

func TestDealWarnings(t *testing.T) {
	tests := []struct {
		name      string
		financing review.FinancingInput
		tradeIn   review.TradeInInput
		fees      review.FeeSet
		want      []string
	}{
		{
			name:      "Clean deal has no warnings",
			financing: review.FinancingInput{SalePrice: 30000, CashDown: 3000, CreditScore: 720},
			fees:      review.FeeSet{StateTaxRatePct: 6},
		},
		{
			name:    "Payoff without trade-in",
			tradeIn: review.TradeInInput{TradePayoff: 5000},
			want:    []string{"without a trade-in"},
		},
		{
			name:    "Negative equity",
			tradeIn: review.TradeInInput{HasTradeIn: true, TradeAllowance: 8000, TradePayoff: 11000},
			want:    []string{"negative equity of 3000.00"},
		},
		{
			name: "Tax override with zero rates",
			fees: review.FeeSet{UserTaxOverride: true},
			want: []string{"tax override"},
		},
		{
			name:      "Cash down above price",
			financing: review.FinancingInput{SalePrice: 10000, CashDown: 12000},
			want:      []string{"cash down exceeds"},
		},
		{
			name:      "Out of range credit score",
			financing: review.FinancingInput{SalePrice: 30000, CreditScore: 900},
			want:      []string{"credit score 900"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := DealWarnings(tt.financing, tt.tradeIn, tt.fees)
			if len(tt.want) == 0 {
				if len(warnings) != 0 {
					t.Errorf("expected no warnings, got %v", warnings)
				}
				return
			}
			for _, fragment := range tt.want {
				found := false
				for _, w := range warnings {
					if strings.Contains(w, fragment) {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("no warning mentions %q in %v", fragment, warnings)
				}
			}
		})
	}
}
