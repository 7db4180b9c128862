// Package format provides display formatting helpers for monetary values.
package format

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	formatted := printer.Sprintf("%.2f", math.Abs(amount))
	if amount < 0 {
		return "-$" + formatted
	}
	return "$" + formatted
}

// Percent renders a decimal-fraction rate as a display percentage (e.g., 0.0549 -> "5.49%").
func Percent(rate float64) string {
	return fmt.Sprintf("%.2f%%", rate*100)
}
