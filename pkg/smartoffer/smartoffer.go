// Package smartoffer derives a recommended purchase offer for a vehicle from
// comparable market listings.
//
// Comparables are tiered by how well their trim matches the subject, summary
// statistics are computed over the selected tier, and when the data supports
// it an ordinary-least-squares mileage regression adjusts the offer for the
// subject's mileage relative to the market.
package smartoffer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dealcraft/dealcalc/pkg/constants"
	"github.com/dealcraft/dealcalc/pkg/mathutil"
)

// MatchQuality describes how closely the comparable pool matches the
// subject vehicle's trim.
type MatchQuality string

const (
	MatchExact   MatchQuality = "exact"
	MatchSimilar MatchQuality = "similar"
	MatchBroad   MatchQuality = "broad"
	MatchNoTrim  MatchQuality = "no-trim"
)

// Confidence labels the reliability of a recommended offer.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Correlation classifies the strength of the mileage regression fit.
type Correlation string

const (
	CorrelationWeak     Correlation = "weak"
	CorrelationModerate Correlation = "moderate"
	CorrelationStrong   Correlation = "strong"
)

// Listing is one market listing. The subject vehicle and its comparables
// share this shape.
type Listing struct {
	Year        int     `json:"year" yaml:"year"`
	Make        string  `json:"make" yaml:"make"`
	Model       string  `json:"model" yaml:"model"`
	Trim        string  `json:"trim" yaml:"trim"`
	AskingPrice float64 `json:"askingPrice" yaml:"askingPrice"`
	Mileage     float64 `json:"mileage" yaml:"mileage"`
}

// MileageAnalysis reports the mileage depreciation regression over the
// comparable pool and any resulting offer adjustment.
type MileageAnalysis struct {
	DepreciationPer1kMiles float64     `json:"depreciationPer1kMiles"`
	RSquared               float64     `json:"rSquared"`
	Correlation            Correlation `json:"correlation"`
	MeanMileage            float64     `json:"meanMileage"`
	Adjustment             float64     `json:"adjustment"`
	Applied                bool        `json:"applied"`
}

// Result is the full smart-offer report for one subject vehicle.
type Result struct {
	Offer           float64          `json:"offer"`
	Average         float64          `json:"average"`
	Median          float64          `json:"median"`
	Min             float64          `json:"min"`
	Max             float64          `json:"max"`
	StdDev          float64          `json:"stdDev"`
	Count           int              `json:"count"`
	MatchQuality    MatchQuality     `json:"matchQuality"`
	Confidence      Confidence       `json:"confidence"`
	MileageAnalysis *MileageAnalysis `json:"mileageAnalysis,omitempty"`
}

// InsufficientDataError reports that too few priced comparables were
// available to produce an offer. It is a result, not a fault; callers should
// explain the shortfall rather than fail.
type InsufficientDataError struct {
	Count int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient comparable listings: found %d", e.Count)
}

// Compute produces a smart-offer report for the subject against the given
// comparables. It returns *InsufficientDataError when the subject has no
// positive asking price or fewer than the minimum priced comparables match.
func Compute(subject Listing, comparables []Listing) (*Result, error) {
	if mathutil.Sanitize(subject.AskingPrice) <= 0 {
		return nil, &InsufficientDataError{Count: 0}
	}

	pool, quality := selectPool(subject, comparables)
	if len(pool) < constants.MinComparables {
		return nil, &InsufficientDataError{Count: len(pool)}
	}

	prices := make([]float64, len(pool))
	for i, c := range pool {
		prices[i] = c.AskingPrice
	}
	sort.Float64s(prices)

	average := mean(prices)
	// Median keeps the upper-middle element for even counts; downstream
	// figures depend on this exact indexing.
	median := prices[len(prices)/2]
	stdDev := populationStdDev(prices, average)

	analysis := analyzeMileage(subject, pool, quality, average)

	basePrice := median
	if quality != MatchExact {
		basePrice = (median + average) / 2
	}

	discount := constants.BroadMatchDiscount
	switch quality {
	case MatchExact:
		discount = constants.ExactMatchDiscount
	case MatchSimilar:
		discount = constants.SimilarMatchDiscount
	}

	offer := mathutil.RoundToStep(basePrice*(1-discount), constants.OfferRoundingStep)
	if analysis != nil && analysis.Applied {
		offer = mathutil.RoundToStep(offer+analysis.Adjustment, constants.OfferRoundingStep)
	}

	// Never undercut the cheapest comparable by more than the rounding step.
	floor := prices[0] + constants.OfferRoundingStep
	offer = mathutil.Max(offer, floor)

	return &Result{
		Offer:           offer,
		Average:         average,
		Median:          median,
		Min:             prices[0],
		Max:             prices[len(prices)-1],
		StdDev:          stdDev,
		Count:           len(prices),
		MatchQuality:    quality,
		Confidence:      scoreConfidence(quality, len(prices), stdDev, average),
		MileageAnalysis: analysis,
	}, nil
}

// selectPool tiers the comparables by trim match and returns the first tier
// that clears its minimum count, together with its quality label.
func selectPool(subject Listing, comparables []Listing) ([]Listing, MatchQuality) {
	var priced []Listing
	for _, c := range comparables {
		if mathutil.Sanitize(c.AskingPrice) > 0 {
			priced = append(priced, c)
		}
	}

	subjectTrim := strings.TrimSpace(subject.Trim)
	if subjectTrim != "" {
		var exact []Listing
		for _, c := range priced {
			if strings.EqualFold(strings.TrimSpace(c.Trim), subjectTrim) {
				exact = append(exact, c)
			}
		}
		if len(exact) >= constants.MinExactComparables {
			return exact, MatchExact
		}

		tokens := trimTokens(subjectTrim)
		if len(tokens) > 0 {
			var similar []Listing
			for _, c := range priced {
				compTrim := strings.ToLower(c.Trim)
				for _, token := range tokens {
					if strings.Contains(compTrim, token) {
						similar = append(similar, c)
						break
					}
				}
			}
			if len(similar) >= constants.MinComparables {
				return similar, MatchSimilar
			}
		}

		return priced, MatchBroad
	}

	return priced, MatchNoTrim
}

// trimTokens splits a trim string into lowercase keyword tokens, dropping
// short fragments that would match everything.
func trimTokens(trim string) []string {
	var tokens []string
	for _, field := range strings.Fields(strings.ToLower(trim)) {
		if len(field) > 2 {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

// analyzeMileage runs the price-on-mileage regression when the pool supports
// it. The regression only runs for exact trim matches with enough mileage
// data; a weak fit is reported but not applied.
func analyzeMileage(subject Listing, pool []Listing, quality MatchQuality, meanPrice float64) *MileageAnalysis {
	if quality != MatchExact || mathutil.Sanitize(subject.Mileage) <= 0 {
		return nil
	}

	var xs, ys []float64
	for _, c := range pool {
		if mathutil.Sanitize(c.Mileage) > 0 {
			xs = append(xs, c.Mileage)
			ys = append(ys, c.AskingPrice)
		}
	}
	if len(xs) < constants.MinMileagePoints {
		return nil
	}

	slope, intercept := leastSquares(xs, ys)
	fit := rSquared(xs, ys, slope, intercept)

	correlation := CorrelationWeak
	switch {
	case fit >= 0.6:
		correlation = CorrelationStrong
	case fit >= 0.3:
		correlation = CorrelationModerate
	}

	analysis := &MileageAnalysis{
		DepreciationPer1kMiles: math.Round(slope * 1000),
		RSquared:               fit,
		Correlation:            correlation,
		MeanMileage:            mean(xs),
	}

	if correlation == CorrelationWeak {
		return analysis
	}

	adjustment := math.Round(-1 * (subject.Mileage - analysis.MeanMileage) / 1000 * analysis.DepreciationPer1kMiles)
	limit := meanPrice * constants.MileageAdjustmentCapRatio
	adjustment = mathutil.Max(mathutil.Min(adjustment, limit), -limit)

	analysis.Adjustment = adjustment
	analysis.Applied = true
	return analysis
}

// scoreConfidence evaluates the confidence rule cascade in order; the first
// matching rule wins.
func scoreConfidence(quality MatchQuality, count int, stdDev, average float64) Confidence {
	coefficientOfVariation := math.Inf(1)
	if average > 0 {
		coefficientOfVariation = stdDev / average
	}

	switch {
	case quality == MatchExact && count >= 10 && coefficientOfVariation < 0.15:
		return ConfidenceHigh
	case quality == MatchSimilar && count >= 5:
		return ConfidenceMedium
	case quality == MatchExact && count >= 5:
		return ConfidenceMedium
	case count >= 15 && coefficientOfVariation < 0.2:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func populationStdDev(values []float64, avg float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumSquares float64
	for _, v := range values {
		diff := v - avg
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}

// leastSquares fits y = slope*x + intercept by ordinary least squares.
func leastSquares(xs, ys []float64) (slope, intercept float64) {
	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, mean(ys)
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// rSquared computes the coefficient of determination for the fit, clamped
// to [0,1].
func rSquared(xs, ys []float64, slope, intercept float64) float64 {
	avgY := mean(ys)
	var ssTotal, ssResidual float64
	for i := range xs {
		predicted := slope*xs[i] + intercept
		ssResidual += (ys[i] - predicted) * (ys[i] - predicted)
		ssTotal += (ys[i] - avgY) * (ys[i] - avgY)
	}
	if ssTotal == 0 {
		return 0
	}
	r2 := 1 - ssResidual/ssTotal
	return mathutil.Max(0, mathutil.Min(1, r2))
}
