// Package config defines the data structures related to configuration and
// includes functions for loading and resolving the deal config file.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dealcraft/dealcalc/internal/review"
	"github.com/dealcraft/dealcalc/pkg/constants"
	"github.com/dealcraft/dealcalc/pkg/rates"
	"github.com/dealcraft/dealcalc/pkg/smartoffer"
)

// Configuration holds all configuration for dealcalc.
type Configuration struct {
	Deal            DealConfig
	Locale          LocaleConfig
	TaxRates        map[string]StateTaxRates
	RateTable       []rates.Entry
	Comparables     []smartoffer.Listing
	ComparablesFile string
	Logging         LoggingConfig `yaml:"logging,omitempty"`
	Output          OutputConfig  `yaml:"output,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json
}

// VehicleConfig identifies the subject vehicle.
type VehicleConfig struct {
	Year      int
	Make      string
	Model     string
	Trim      string
	Mileage   float64
	Condition string // new, used, cpo
}

// DealConfig holds the buyer-supplied deal parameters.
type DealConfig struct {
	Vehicle   VehicleConfig
	Financing review.FinancingInput
	TradeIn   review.TradeInInput
	Fees      review.FeeSet

	// ManualAPRPercent pins the APR (as a percentage) instead of consulting
	// lender rate tables.
	ManualAPRPercent *float64
}

// LocaleConfig selects which tax-rate table entry applies to the deal.
type LocaleConfig struct {
	State  string
	County string
}

// StateTaxRates is one state's entry in the locale tax table.
type StateTaxRates struct {
	StateRate float64
	Counties  map[string]float64
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	var configuration Configuration
	err := v.Unmarshal(&configuration, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		civilDateHook,
	)))
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	return &configuration, nil
}

// civilDateHook decodes YAML date values into civil.Date fields. Dates may
// arrive as strings or, depending on the YAML parser, as time.Time.
func civilDateHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(civil.Date{}) {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return civil.ParseDate(v)
	case time.Time:
		return civil.DateOf(v), nil
	default:
		return data, nil
	}
}

// ApplyLocaleTaxRates fills the deal's tax rates from the locale tax table.
// Rates pinned by the user (UserTaxOverride) are left untouched. Lookups are
// case-insensitive; a missing state or county leaves the configured rates in
// place and logs at debug.
func (conf *Configuration) ApplyLocaleTaxRates(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if conf.Deal.Fees.UserTaxOverride {
		return
	}

	stateRates, ok := lookupFold(conf.TaxRates, conf.Locale.State)
	if !ok {
		logger.Debug("no tax table entry for state",
			zap.String("op", "config.ApplyLocaleTaxRates"),
			zap.String("state", conf.Locale.State),
		)
		return
	}

	conf.Deal.Fees.StateTaxRatePct = stateRates.StateRate
	if countyRate, ok := lookupFold(stateRates.Counties, conf.Locale.County); ok {
		conf.Deal.Fees.CountyTaxRatePct = countyRate
	} else if conf.Locale.County != "" {
		logger.Debug("no tax table entry for county",
			zap.String("op", "config.ApplyLocaleTaxRates"),
			zap.String("county", conf.Locale.County),
		)
	}
}

func lookupFold[V any](m map[string]V, key string) (V, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	var zero V
	return zero, false
}

// RateSelection builds the aggregator's rate selection from the deal config,
// converting the manual percentage to the internal decimal fraction.
func (conf *Configuration) RateSelection() review.RateSelection {
	sel := review.RateSelection{
		VehicleCondition: conf.Deal.Vehicle.Condition,
	}
	if conf.Deal.ManualAPRPercent != nil {
		apr := *conf.Deal.ManualAPRPercent / constants.PercentageMultiplier
		sel.ManualAPR = &apr
	}
	return sel
}

// SubjectListing derives the smart-offer subject from the configured vehicle
// and its sale price.
func (conf *Configuration) SubjectListing() smartoffer.Listing {
	return smartoffer.Listing{
		Year:        conf.Deal.Vehicle.Year,
		Make:        conf.Deal.Vehicle.Make,
		Model:       conf.Deal.Vehicle.Model,
		Trim:        conf.Deal.Vehicle.Trim,
		AskingPrice: conf.Deal.Financing.SalePrice,
		Mileage:     conf.Deal.Vehicle.Mileage,
	}
}
