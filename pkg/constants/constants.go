// Package constants provides shared constants for the dealcalc application.
package constants

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01

	// ZeroRateEpsilon is the monthly-rate threshold below which a loan is
	// treated as zero-interest and amortized by straight division.
	ZeroRateEpsilon = 1e-9
)

// Tax constants
const (
	// CountyTaxCap is the maximum sale-price base subject to county surtax.
	CountyTaxCap = 5000.0
)

// Smart Offer constants
const (
	// OfferRoundingStep is the increment recommended offers are rounded to.
	OfferRoundingStep = 500.0

	// MinExactComparables is the comparable count required for an exact trim match.
	MinExactComparables = 5

	// MinComparables is the comparable count required for similar and broad tiers.
	MinComparables = 3

	// MinMileagePoints is the comparable count with valid mileage required
	// before the mileage regression runs.
	MinMileagePoints = 5

	// MileageAdjustmentCapRatio caps the mileage adjustment at this fraction
	// of the mean comparable price.
	MileageAdjustmentCapRatio = 0.20

	// Discount percentages applied to the base price by match quality.
	ExactMatchDiscount   = 0.06
	SimilarMatchDiscount = 0.05
	BroadMatchDiscount   = 0.04
)

// Validation limits; deals beyond these are rejected rather than warned about.
const (
	MaxSalePrice  = 10_000_000.0
	MaxAPRPercent = 100.0
	MaxTermMonths = 120
	MinTermMonths = 1
	MaxTaxRatePct = 25.0
	MaxFeeAmount  = 100_000.0
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the machine-readable JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default deal configuration file name
	DefaultConfigFile = "deal.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the quote API
	DefaultServerAddress = ":8080"

	// DefaultMaxRequestBytes is the default maximum request body size (256 KB)
	DefaultMaxRequestBytes int64 = 256 * 1024
)

// Cache defaults
const (
	// DefaultRateCacheTTLSeconds is how long resolved lender rates stay cached.
	DefaultRateCacheTTLSeconds = 30
)
