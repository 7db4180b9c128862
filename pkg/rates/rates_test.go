package rates

import (
	"math"
	"testing"
)

func entry(lender, condition string, termMin, termMax, scoreMin, scoreMax int, apr float64) Entry {
	return Entry{
		LenderID:         lender,
		LenderName:       lender,
		VehicleCondition: condition,
		TermMin:          termMin,
		TermMax:          termMax,
		CreditScoreMin:   scoreMin,
		CreditScoreMax:   scoreMax,
		APRPercent:       apr,
	}
}

func TestNormalizeLoanCondition(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"New passes through", "new", "new"},
		{"Used passes through", "used", "used"},
		{"Uppercase normalized", "NEW", "new"},
		{"CPO maps to used", "cpo", "used"},
		{"Certified maps to used", "certified", "used"},
		{"Certified pre-owned maps to used", "certified pre-owned", "used"},
		{"Unrecognized passes through", "salvage", "salvage"},
		{"Empty stays empty", "", ""},
		{"Whitespace only stays empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeLoanCondition(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeLoanCondition(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSelectBestRate(t *testing.T) {
	table := []Entry{
		entry("credit-union", "new", 24, 72, 700, 850, 5.49),
		entry("credit-union", "new", 24, 72, 600, 699, 7.99),
		entry("big-bank", "new", 36, 84, 650, 850, 6.25),
		entry("big-bank", "used", 24, 72, 650, 850, 7.49),
		entry("subprime-co", "used", 24, 60, 300, 649, 14.99),
	}

	tests := []struct {
		name        string
		term        int
		condition   string
		creditScore int
		wantLender  string
		wantAPR     float64
		wantNil     bool
	}{
		{
			name:        "Lowest APR among eligible bands",
			term:        60,
			condition:   "new",
			creditScore: 720,
			wantLender:  "credit-union",
			wantAPR:     5.49,
		},
		{
			name:        "Score lands in higher-rate band",
			term:        60,
			condition:   "new",
			creditScore: 650,
			wantLender:  "big-bank",
			wantAPR:     6.25,
		},
		{
			name:        "No band contains score falls back to term filter",
			term:        60,
			condition:   "new",
			creditScore: 400,
			wantLender:  "credit-union",
			wantAPR:     5.49,
		},
		{
			name:        "Zero score disables band filtering",
			term:        60,
			condition:   "new",
			creditScore: 0,
			wantLender:  "credit-union",
			wantAPR:     5.49,
		},
		{
			name:        "CPO prices as used",
			term:        48,
			condition:   "cpo",
			creditScore: 700,
			wantLender:  "big-bank",
			wantAPR:     7.49,
		},
		{
			name:        "Condition is case-insensitive",
			term:        48,
			condition:   "USED",
			creditScore: 700,
			wantLender:  "big-bank",
			wantAPR:     7.49,
		},
		{
			name:        "Term outside all ranges",
			term:        96,
			condition:   "new",
			creditScore: 720,
			wantNil:     true,
		},
		{
			name:      "Unknown condition",
			term:      60,
			condition: "salvage",
			wantNil:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := SelectBestRate(table, tt.term, tt.condition, tt.creditScore)
			if tt.wantNil {
				if match != nil {
					t.Fatalf("expected nil match, got %+v", match)
				}
				return
			}
			if match == nil {
				t.Fatal("expected a match, got nil")
			}
			if match.Entry.LenderID != tt.wantLender {
				t.Errorf("lender = %q, expected %q", match.Entry.LenderID, tt.wantLender)
			}
			if match.Entry.APRPercent != tt.wantAPR {
				t.Errorf("APRPercent = %v, expected %v", match.Entry.APRPercent, tt.wantAPR)
			}
			if math.Abs(match.APRDecimal-tt.wantAPR/100) > 1e-12 {
				t.Errorf("APRDecimal = %v, expected %v", match.APRDecimal, tt.wantAPR/100)
			}
		})
	}
}

func TestSelectBestRateEmptyTable(t *testing.T) {
	if match := SelectBestRate(nil, 72, "new", 720); match != nil {
		t.Errorf("expected nil for empty table, got %+v", match)
	}
}

func TestSelectBestRateTieKeepsFirst(t *testing.T) {
	table := []Entry{
		entry("first", "new", 24, 72, 600, 850, 5.99),
		entry("second", "new", 24, 72, 600, 850, 5.99),
	}
	match := SelectBestRate(table, 60, "new", 700)
	if match == nil {
		t.Fatal("expected a match, got nil")
	}
	if match.Entry.LenderID != "first" {
		t.Errorf("tie-break kept %q, expected first entry", match.Entry.LenderID)
	}
}

func TestScoreForTier(t *testing.T) {
	tests := []struct {
		tier     string
		expected int
	}{
		{"excellent", 780},
		{"good", 700},
		{"fair", 620},
		{"poor", 550},
		{"Excellent", 780},
		{" good ", 700},
		{"unknown", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := ScoreForTier(tt.tier); got != tt.expected {
			t.Errorf("ScoreForTier(%q) = %d, expected %d", tt.tier, got, tt.expected)
		}
	}
}
