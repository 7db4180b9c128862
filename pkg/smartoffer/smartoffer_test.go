package smartoffer

import (
	"errors"
	"math"
	"testing"
)

func comp(price, mileage float64, trim string) Listing {
	return Listing{
		Year:        2021,
		Make:        "Honda",
		Model:       "Civic",
		Trim:        trim,
		AskingPrice: price,
		Mileage:     mileage,
	}
}

func TestComputeSubjectWithoutPrice(t *testing.T) {
	comps := []Listing{
		comp(22000, 30000, "LX"),
		comp(23000, 31000, "LX"),
		comp(24000, 29000, "LX"),
	}
	_, err := Compute(Listing{Trim: "LX"}, comps)
	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
}

func TestComputeInsufficientComparables(t *testing.T) {
	subject := comp(25000, 30000, "LX")

	tests := []struct {
		name      string
		comps     []Listing
		wantCount int
		wantErr   bool
	}{
		{
			name:      "Two priced comparables is below the minimum",
			comps:     []Listing{comp(22000, 0, "LX"), comp(23000, 0, "LX")},
			wantCount: 2,
			wantErr:   true,
		},
		{
			name: "Unpriced comparables do not count",
			comps: []Listing{
				comp(22000, 0, "LX"), comp(23000, 0, "LX"), comp(0, 40000, "LX"),
			},
			wantCount: 2,
			wantErr:   true,
		},
		{
			name:    "Exactly three priced comparables produces a result",
			comps:   []Listing{comp(22000, 0, "EX"), comp(23000, 0, "EX"), comp(24000, 0, "Touring")},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Compute(subject, tt.comps)
			if tt.wantErr {
				var insufficient *InsufficientDataError
				if !errors.As(err, &insufficient) {
					t.Fatalf("expected InsufficientDataError, got %v", err)
				}
				if insufficient.Count != tt.wantCount {
					t.Errorf("count = %d, expected %d", insufficient.Count, tt.wantCount)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Count != 3 {
				t.Errorf("count = %d, expected 3", result.Count)
			}
		})
	}
}

func TestComputeExactMatchWithStrongMileageCorrelation(t *testing.T) {
	subject := comp(25000, 30000, "LX")
	// Prices fall exactly $100 per 1,000 miles, so the regression fit is
	// perfect and the adjustment applies.
	comps := []Listing{
		comp(22000, 60000, "LX"),
		comp(23000, 50000, "LX"),
		comp(24000, 40000, "LX"),
		comp(25000, 30000, "LX"),
		comp(26000, 20000, "LX"),
		comp(27000, 10000, "LX"),
	}

	result, err := Compute(subject, comps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.MatchQuality != MatchExact {
		t.Errorf("matchQuality = %q, expected exact", result.MatchQuality)
	}
	if result.Count != 6 {
		t.Errorf("count = %d, expected 6", result.Count)
	}
	// Upper-middle median for an even-length pool.
	if result.Median != 25000 {
		t.Errorf("median = %v, expected 25000", result.Median)
	}
	if result.Min != 22000 || result.Max != 27000 {
		t.Errorf("min/max = %v/%v, expected 22000/27000", result.Min, result.Max)
	}
	if math.Abs(result.Average-24500) > 0.001 {
		t.Errorf("average = %v, expected 24500", result.Average)
	}

	if result.MileageAnalysis == nil {
		t.Fatal("expected mileage analysis")
	}
	ma := result.MileageAnalysis
	if ma.Correlation != CorrelationStrong {
		t.Errorf("correlation = %q, expected strong", ma.Correlation)
	}
	if ma.RSquared < 0.999 {
		t.Errorf("rSquared = %v, expected ~1", ma.RSquared)
	}
	if ma.DepreciationPer1kMiles != -100 {
		t.Errorf("depreciationPer1kMiles = %v, expected -100", ma.DepreciationPer1kMiles)
	}
	if !ma.Applied {
		t.Error("expected adjustment to be applied")
	}
	if ma.Adjustment != -500 {
		t.Errorf("adjustment = %v, expected -500", ma.Adjustment)
	}

	// median 25000 * 0.94 = 23500, plus the -500 adjustment = 23000,
	// above the 22500 floor.
	if result.Offer != 23000 {
		t.Errorf("offer = %v, expected 23000", result.Offer)
	}
	if result.Confidence != ConfidenceMedium {
		t.Errorf("confidence = %q, expected medium (exact with 6 comps)", result.Confidence)
	}
}

func TestComputeWeakCorrelationNotApplied(t *testing.T) {
	subject := comp(25000, 30000, "LX")
	comps := []Listing{
		comp(22000, 30000, "LX"),
		comp(23000, 31000, "LX"),
		comp(24000, 29000, "LX"),
		comp(25000, 30500, "LX"),
		comp(26000, 29500, "LX"),
		comp(27000, 30200, "LX"),
	}

	result, err := Compute(subject, comps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.MileageAnalysis == nil {
		t.Fatal("expected mileage analysis to be reported even when weak")
	}
	if result.MileageAnalysis.Correlation != CorrelationWeak {
		t.Errorf("correlation = %q, expected weak", result.MileageAnalysis.Correlation)
	}
	if result.MileageAnalysis.Applied {
		t.Error("weak correlation must not adjust the offer")
	}
	// median 25000 * 0.94 = 23500, no adjustment.
	if result.Offer != 23500 {
		t.Errorf("offer = %v, expected 23500", result.Offer)
	}
}

func TestComputeSimilarTier(t *testing.T) {
	subject := comp(21000, 25000, "Sport Touring")
	comps := []Listing{
		comp(20000, 0, "Sport"),
		comp(21000, 0, "Touring"),
		comp(22500, 0, "Sport Premium"),
		comp(35000, 0, "Type R"), // no token overlap, excluded
	}

	result, err := Compute(subject, comps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.MatchQuality != MatchSimilar {
		t.Errorf("matchQuality = %q, expected similar", result.MatchQuality)
	}
	if result.Count != 3 {
		t.Errorf("count = %d, expected 3", result.Count)
	}
	// base (21000+21166.67)/2 discounted 5% rounds to 20000, lifted to the
	// 20500 floor (min 20000 + 500).
	if result.Offer != 20500 {
		t.Errorf("offer = %v, expected 20500 (floor)", result.Offer)
	}
}

func TestComputeOfferFloor(t *testing.T) {
	subject := comp(10000, 0, "")
	comps := []Listing{
		comp(10000, 0, "LX"),
		comp(10000, 0, "EX"),
		comp(10000, 0, "Sport"),
	}

	result, err := Compute(subject, comps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MatchQuality != MatchNoTrim {
		t.Errorf("matchQuality = %q, expected no-trim", result.MatchQuality)
	}
	// 4% broad discount would give 9500; the floor lifts it to min+500.
	if result.Offer != 10500 {
		t.Errorf("offer = %v, expected 10500", result.Offer)
	}
}

func TestComputeFloorInvariant(t *testing.T) {
	subject := comp(25000, 30000, "LX")
	sets := [][]Listing{
		{comp(8000, 0, "LX"), comp(9000, 0, "LX"), comp(30000, 0, "LX"), comp(31000, 0, "LX"), comp(32000, 0, "LX")},
		{comp(15000, 0, "EX"), comp(16000, 0, "EX"), comp(17000, 0, "EX")},
		{comp(5000, 0, ""), comp(50000, 0, ""), comp(51000, 0, ""), comp(52000, 0, "")},
	}

	for i, comps := range sets {
		result, err := Compute(subject, comps)
		if err != nil {
			t.Fatalf("set %d: unexpected error: %v", i, err)
		}
		if result.Offer < result.Min+500 {
			t.Errorf("set %d: offer %v below floor %v", i, result.Offer, result.Min+500)
		}
	}
}

func TestComputeBroadTierWhenTrimTokensTooShort(t *testing.T) {
	// "LX" yields no keyword tokens (all fragments are two characters), so a
	// failed exact match drops straight to the broad pool.
	subject := comp(25000, 0, "LX")
	comps := []Listing{
		comp(22000, 0, "EX"),
		comp(23000, 0, "Touring"),
		comp(24000, 0, "Si"),
	}

	result, err := Compute(subject, comps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MatchQuality != MatchBroad {
		t.Errorf("matchQuality = %q, expected broad", result.MatchQuality)
	}
}

func TestComputeHighConfidence(t *testing.T) {
	subject := comp(25000, 0, "LX")
	var comps []Listing
	// Ten tightly clustered exact matches: CoV well under 0.15.
	for i := 0; i < 10; i++ {
		comps = append(comps, comp(24500+float64(i)*100, 0, "LX"))
	}

	result, err := Compute(subject, comps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MatchQuality != MatchExact {
		t.Errorf("matchQuality = %q, expected exact", result.MatchQuality)
	}
	if result.Confidence != ConfidenceHigh {
		t.Errorf("confidence = %q, expected high", result.Confidence)
	}
}

func TestComputeIdempotence(t *testing.T) {
	subject := comp(25000, 30000, "LX")
	comps := []Listing{
		comp(22000, 60000, "LX"),
		comp(23000, 50000, "LX"),
		comp(24000, 40000, "LX"),
		comp(25000, 30000, "LX"),
		comp(26000, 20000, "LX"),
		comp(27000, 10000, "LX"),
	}

	first, err := Compute(subject, comps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Compute(subject, comps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *first.MileageAnalysis != *second.MileageAnalysis {
		t.Error("mileage analysis differs between identical calls")
	}
	f, s := *first, *second
	f.MileageAnalysis, s.MileageAnalysis = nil, nil
	if f != s {
		t.Errorf("results differ between identical calls: %+v vs %+v", f, s)
	}
}
