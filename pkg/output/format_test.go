package output

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/dealcraft/dealcalc/internal/review"
	"github.com/dealcraft/dealcalc/pkg/loans"
	"github.com/dealcraft/dealcalc/pkg/smartoffer"
	"github.com/dealcraft/dealcalc/pkg/tax"
)

func sampleReport() Report {
	return Report{
		Review: &review.Result{
			SalePrice:      30000,
			CashDown:       3000,
			TotalFees:      1299,
			Taxes:          tax.Result{StateTaxAmount: 1853.94, CountyTaxAmount: 50, TotalTaxes: 1903.94},
			AmountFinanced: 30202.94,
			APR:            0.0549,
			MonthlyPayment: 576.77,
			FinanceCharge:  4403.26,
			TotalPayments:  34606.20,
			TotalSalePrice: 37606.20,
			CashDue:        3000,
			LenderName:     "Coastal Credit Union",
		},
		Warnings: []string{"cash down exceeds the sale price"},
		SmartOffer: &smartoffer.Result{
			Offer:        23000,
			Average:      24500,
			Median:       25000,
			Min:          22000,
			Max:          27000,
			Count:        6,
			MatchQuality: smartoffer.MatchExact,
			Confidence:   smartoffer.ConfidenceMedium,
		},
		Schedule: []loans.Payment{
			{Month: 1, Payment: 576.77, Principal: 438.59, Interest: 138.18, RemainingPrincipal: 29764.35},
		},
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func TestPrettyFormat(t *testing.T) {
	out := captureStdout(t, func() { PrettyFormat(sampleReport()) })

	for _, fragment := range []string{
		"--- Deal Review ---",
		"$30,202.94",
		"5.49%",
		"Coastal Credit Union",
		"$576.77",
		"warning: cash down exceeds the sale price",
		"--- Smart Offer ---",
		"$23,000.00",
		"medium confidence, 6 comparables",
		"--- Amortization Schedule ---",
	} {
		if !strings.Contains(out, fragment) {
			t.Errorf("pretty output missing %q", fragment)
		}
	}
}

func TestPrettyFormatInsufficientData(t *testing.T) {
	report := NewReport(nil, nil, nil, &smartoffer.InsufficientDataError{Count: 2}, nil)
	out := captureStdout(t, func() { PrettyFormat(report) })

	if !strings.Contains(out, "insufficient comparable listings: found 2") {
		t.Errorf("pretty output missing insufficient-data note, got %q", out)
	}
}

func TestCsvFormat(t *testing.T) {
	out := captureStdout(t, func() { CsvFormat(sampleReport()) })

	for _, fragment := range []string{
		`"field","value"`,
		`"amountFinanced","30202.9400"`,
		`"monthlyPayment","576.7700"`,
		`"month","payment","principal","interest","balance"`,
		`"1","576.77","438.59","138.18","29764.35"`,
	} {
		if !strings.Contains(out, fragment) {
			t.Errorf("csv output missing %q", fragment)
		}
	}
}

func TestJSONFormat(t *testing.T) {
	out := captureStdout(t, func() { JSONFormat(sampleReport()) })

	var decoded Report
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("JSON output does not parse: %v", err)
	}
	if decoded.Review == nil || decoded.Review.AmountFinanced != 30202.94 {
		t.Errorf("decoded review = %+v", decoded.Review)
	}
	if decoded.SmartOffer == nil || decoded.SmartOffer.Offer != 23000 {
		t.Errorf("decoded smart offer = %+v", decoded.SmartOffer)
	}
}
