// Package output provides utilities for formatting and displaying deal
// computation results.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dealcraft/dealcalc/internal/review"
	"github.com/dealcraft/dealcalc/pkg/format"
	"github.com/dealcraft/dealcalc/pkg/loans"
	"github.com/dealcraft/dealcalc/pkg/smartoffer"
)

// Report bundles everything a single dealcalc run produced.
type Report struct {
	Review     *review.Result     `json:"review,omitempty"`
	Warnings   []string           `json:"warnings,omitempty"`
	SmartOffer *smartoffer.Result `json:"smartOffer,omitempty"`
	// SmartOfferNote explains why no smart offer was produced.
	SmartOfferNote string          `json:"smartOfferNote,omitempty"`
	Schedule       []loans.Payment `json:"schedule,omitempty"`
}

// NewReport assembles a Report, folding an insufficient-data outcome from
// the smart-offer engine into a display note.
func NewReport(result *review.Result, warnings []string, offer *smartoffer.Result, offerErr error, schedule []loans.Payment) Report {
	report := Report{
		Review:     result,
		Warnings:   warnings,
		SmartOffer: offer,
		Schedule:   schedule,
	}
	var insufficient *smartoffer.InsufficientDataError
	if errors.As(offerErr, &insufficient) {
		report.SmartOfferNote = insufficient.Error()
	}
	return report
}

// PrettyFormat outputs a human-readable disclosure summary.
func PrettyFormat(report Report) {
	if report.Review != nil {
		r := report.Review
		fmt.Printf("--- Deal Review ---\n")
		printLine("Sale price", r.SalePrice)
		printLine("Cash down", r.CashDown)
		if r.TradeAllowance != 0 || r.TradePayoff != 0 {
			printLine("Trade allowance", r.TradeAllowance)
			printLine("Trade payoff", r.TradePayoff)
			printLine("Net trade", r.NetTrade)
		}
		printLine("Total fees", r.TotalFees)
		printLine("State tax", r.Taxes.StateTaxAmount)
		printLine("County tax", r.Taxes.CountyTaxAmount)
		fmt.Printf("\n")
		printLine("Amount financed", r.AmountFinanced)
		fmt.Printf("%-20s| %s", "APR", format.Percent(r.APR))
		if r.LenderName != "" {
			fmt.Printf(" (%s)", r.LenderName)
		}
		fmt.Printf("\n")
		printLine("Monthly payment", r.MonthlyPayment)
		printLine("Finance charge", r.FinanceCharge)
		printLine("Total of payments", r.TotalPayments)
		printLine("Total sale price", r.TotalSalePrice)
		printLine("Cash due", r.CashDue)
	}

	for _, warning := range report.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}

	if report.SmartOffer != nil {
		o := report.SmartOffer
		fmt.Printf("\n--- Smart Offer ---\n")
		printLine("Recommended offer", o.Offer)
		fmt.Printf("%-20s| %s (%s confidence, %d comparables)\n",
			"Match quality", o.MatchQuality, o.Confidence, o.Count)
		printLine("Market average", o.Average)
		printLine("Market median", o.Median)
		fmt.Printf("%-20s| %s - %s\n", "Market range",
			format.Currency(o.Min), format.Currency(o.Max))
		if ma := o.MileageAnalysis; ma != nil && ma.Applied {
			printLine("Mileage adjustment", ma.Adjustment)
		}
	} else if report.SmartOfferNote != "" {
		fmt.Printf("\n--- Smart Offer ---\nno offer: %s\n", report.SmartOfferNote)
	}

	if len(report.Schedule) > 0 {
		p := message.NewPrinter(language.English)
		fmt.Printf("\n--- Amortization Schedule ---\n")
		fmt.Printf("Month | Payment   | Principal | Interest | Balance\n")
		fmt.Printf("_____ | _______   | _________ | ________ | _______\n")
		for _, payment := range report.Schedule {
			_, _ = p.Printf("%5d | $%.2f | $%.2f | $%.2f | $%.2f\n",
				payment.Month, payment.Payment, payment.Principal,
				payment.Interest, payment.RemainingPrincipal)
		}
	}
}

func printLine(label string, amount float64) {
	fmt.Printf("%-20s| %s\n", label, format.Currency(amount))
}

// CsvFormat outputs in comma-separated value format: disclosure fields as
// name/value pairs followed by the schedule rows.
func CsvFormat(report Report) {
	if report.Review != nil {
		r := report.Review
		fmt.Printf("\"field\",\"value\"\n")
		fields := []struct {
			name  string
			value float64
		}{
			{"salePrice", r.SalePrice},
			{"cashDown", r.CashDown},
			{"netTrade", r.NetTrade},
			{"totalFees", r.TotalFees},
			{"stateTax", r.Taxes.StateTaxAmount},
			{"countyTax", r.Taxes.CountyTaxAmount},
			{"amountFinanced", r.AmountFinanced},
			{"apr", r.APR},
			{"monthlyPayment", r.MonthlyPayment},
			{"financeCharge", r.FinanceCharge},
			{"totalPayments", r.TotalPayments},
			{"totalSalePrice", r.TotalSalePrice},
			{"cashDue", r.CashDue},
		}
		for _, field := range fields {
			fmt.Printf("\"%s\",\"%.4f\"\n", field.name, field.value)
		}
	}

	if len(report.Schedule) > 0 {
		fmt.Printf("\"month\",\"payment\",\"principal\",\"interest\",\"balance\"\n")
		for _, payment := range report.Schedule {
			fmt.Printf("\"%d\",\"%.2f\",\"%.2f\",\"%.2f\",\"%.2f\"\n",
				payment.Month, payment.Payment, payment.Principal,
				payment.Interest, payment.RemainingPrincipal)
		}
	}
}

// JSONFormat outputs the full report as indented JSON.
func JSONFormat(report Report) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		fmt.Printf("{\"error\": %q}\n", strings.ReplaceAll(err.Error(), `"`, `'`))
	}
}
