// Package rates models lender rate tables and selects the best available
// APR for a loan's term, vehicle condition, and credit score.
package rates

import (
	"strings"

	"cloud.google.com/go/civil"
)

// Vehicle conditions recognized by lender rate sheets.
const (
	ConditionNew  = "new"
	ConditionUsed = "used"
)

// Credit tiers used when a caller supplies a named range instead of a score.
const (
	TierExcellent = "excellent"
	TierGood      = "good"
	TierFair      = "fair"
	TierPoor      = "poor"
)

// Entry is a single row of a lender's rate sheet. One lender typically
// publishes many entries covering different term ranges and credit bands.
type Entry struct {
	LenderID         string     `json:"lenderId" yaml:"lenderId"`
	LenderName       string     `json:"lenderName" yaml:"lenderName"`
	VehicleCondition string     `json:"vehicleCondition" yaml:"vehicleCondition"`
	TermMin          int        `json:"termMin" yaml:"termMin"`
	TermMax          int        `json:"termMax" yaml:"termMax"`
	CreditScoreMin   int        `json:"creditScoreMin" yaml:"creditScoreMin"`
	CreditScoreMax   int        `json:"creditScoreMax" yaml:"creditScoreMax"`
	APRPercent       float64    `json:"aprPercent" yaml:"aprPercent"`
	Note             string     `json:"note,omitempty" yaml:"note,omitempty"`
	EffectiveDate    civil.Date `json:"effectiveDate" yaml:"effectiveDate"`
}

// Match is the outcome of a rate-sheet lookup.
type Match struct {
	Entry      Entry
	APRDecimal float64 // APRPercent / 100, the internal representation
}

// NormalizeLoanCondition maps rate-sheet condition spellings onto the two
// conditions lenders actually price. Certified pre-owned programs price as
// used. Unrecognized values pass through unchanged so a caller can surface
// them instead of silently mispricing.
func NormalizeLoanCondition(condition string) string {
	c := strings.ToLower(strings.TrimSpace(condition))
	if c == "" {
		return ""
	}
	if c == "cpo" || strings.HasPrefix(c, "certified") {
		return ConditionUsed
	}
	return c
}

// SelectBestRate returns the lowest-APR entry eligible for the given term,
// vehicle condition, and credit score, or nil when no entry covers the
// term/condition at all.
//
// When creditScore > 0 the candidate set narrows to entries whose credit band
// contains the score; if that narrowing empties the set, selection falls back
// to the term/condition candidates so a lookup never fails solely because no
// published band contains the score. Ties on APR keep the first entry
// encountered (table order is implementation-defined).
func SelectBestRate(table []Entry, termMonths int, vehicleCondition string, creditScore int) *Match {
	condition := NormalizeLoanCondition(vehicleCondition)

	var eligible []Entry
	for _, entry := range table {
		if !strings.EqualFold(NormalizeLoanCondition(entry.VehicleCondition), condition) {
			continue
		}
		if termMonths < entry.TermMin || termMonths > entry.TermMax {
			continue
		}
		eligible = append(eligible, entry)
	}
	if len(eligible) == 0 {
		return nil
	}

	candidates := eligible
	if creditScore > 0 {
		var banded []Entry
		for _, entry := range eligible {
			if creditScore >= entry.CreditScoreMin && creditScore <= entry.CreditScoreMax {
				banded = append(banded, entry)
			}
		}
		if len(banded) > 0 {
			candidates = banded
		}
	}

	best := candidates[0]
	for _, entry := range candidates[1:] {
		if entry.APRPercent < best.APRPercent {
			best = entry
		}
	}

	return &Match{Entry: best, APRDecimal: best.APRPercent / 100}
}

// ScoreForTier converts a named credit tier to a representative score for
// band matching. Unknown tiers return 0, which disables band filtering.
func ScoreForTier(tier string) int {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case TierExcellent:
		return 780
	case TierGood:
		return 700
	case TierFair:
		return 620
	case TierPoor:
		return 550
	default:
		return 0
	}
}
