// Package loans provides fixed-rate loan payment and amortization utilities.
package loans

import (
	"fmt"
	"math"

	"github.com/dealcraft/dealcalc/pkg/constants"
	"github.com/dealcraft/dealcalc/pkg/mathutil"
	"go.uber.org/zap"
)

// Payment holds the values for a given payment in an amortization schedule.
type Payment struct {
	Month              int     `json:"month"`
	Payment            float64 `json:"payment"`
	Principal          float64 `json:"principal"`
	Interest           float64 `json:"interest"`
	RemainingPrincipal float64 `json:"remainingPrincipal"`
}

// MonthlyPayment calculates the fixed monthly payment for a loan using the
// standard annuity formula, rounded to cents. The APR is a decimal fraction
// (0.0549, not 5.49).
//
// Degenerate inputs do not error: a non-positive principal or term returns 0,
// and an effectively zero rate amortizes by straight division.
func MonthlyPayment(principal, aprDecimal float64, termMonths int) float64 {
	principal = mathutil.Sanitize(principal)
	aprDecimal = mathutil.Sanitize(aprDecimal)
	if principal <= 0 || termMonths <= 0 {
		return 0
	}

	monthlyRate := aprDecimal / constants.MonthsPerYear
	if math.Abs(monthlyRate) < constants.ZeroRateEpsilon {
		return mathutil.Round(principal / float64(termMonths))
	}

	power := math.Pow(1.0+monthlyRate, float64(termMonths))
	payment := principal * (monthlyRate * power) / (power - 1.0)
	return mathutil.Round(payment)
}

// InterestPortion calculates the interest component of one month's payment
// on the given remaining balance.
func InterestPortion(remainingPrincipal, aprDecimal float64) float64 {
	return remainingPrincipal * aprDecimal / constants.MonthsPerYear
}

// ScheduleGenerator produces month-by-month amortization schedules.
type ScheduleGenerator struct {
	logger *zap.Logger
}

// NewScheduleGenerator creates a new generator instance.
func NewScheduleGenerator(logger *zap.Logger) *ScheduleGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleGenerator{logger: logger}
}

// Generate creates a complete amortization schedule for a loan. The final
// payment absorbs rounding drift so the balance lands exactly on zero.
func (g *ScheduleGenerator) Generate(principal, aprDecimal float64, termMonths int) []Payment {
	monthly := MonthlyPayment(principal, aprDecimal, termMonths)
	if monthly == 0 {
		return nil
	}

	g.logger.Debug(fmt.Sprintf("amortizing %.2f over %d months at payment %.2f", principal, termMonths, monthly),
		zap.String("op", "loans.Generate"),
	)

	schedule := make([]Payment, 0, termMonths)
	balance := principal
	for month := 1; month <= termMonths; month++ {
		interest := mathutil.Round(InterestPortion(balance, aprDecimal))
		principalPortion := mathutil.Round(monthly - interest)
		payment := monthly

		if month == termMonths || mathutil.Round(balance-principalPortion) <= 0 {
			// Final payment clears the remaining balance exactly.
			principalPortion = mathutil.Round(balance)
			payment = mathutil.Round(principalPortion + interest)
			balance = 0
		} else {
			balance = mathutil.Round(balance - principalPortion)
		}

		schedule = append(schedule, Payment{
			Month:              month,
			Payment:            payment,
			Principal:          principalPortion,
			Interest:           interest,
			RemainingPrincipal: balance,
		})

		if balance == 0 {
			break
		}
	}

	return schedule
}
