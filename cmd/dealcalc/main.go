package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dealcraft/dealcalc/internal/config"
	"github.com/dealcraft/dealcalc/internal/listings"
	"github.com/dealcraft/dealcalc/internal/ratecache"
	"github.com/dealcraft/dealcalc/internal/review"
	"github.com/dealcraft/dealcalc/internal/server"
	"github.com/dealcraft/dealcalc/internal/store"
	"github.com/dealcraft/dealcalc/pkg/constants"
	"github.com/dealcraft/dealcalc/pkg/loans"
	"github.com/dealcraft/dealcalc/pkg/output"
	"github.com/dealcraft/dealcalc/pkg/smartoffer"
	"github.com/dealcraft/dealcalc/pkg/validation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zapConfig zap.Config
	switch format {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	case "json":
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		// Fail now rather than on the first log write
		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to deal configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	serve := flag.Bool("serve", false, "run the quote API server instead of reviewing a single deal")
	serverConfigLocation := flag.String("server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	flag.Parse()

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if *serve {
		runServer(logger, conf, *serverConfigLocation)
		return
	}

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}

	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	// Resolve state and county tax rates from the locale table.
	conf.ApplyLocaleTaxRates(logger)

	deal := conf.Deal
	if err := validation.ValidateDeal(deal.Financing, deal.Fees); err != nil {
		logger.Fatal("deal failed validation",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	sel := conf.RateSelection()
	if err := validation.ValidateRateSelection(sel); err != nil {
		logger.Fatal("rate selection failed validation",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	warnings := validation.DealWarnings(deal.Financing, deal.TradeIn, deal.Fees)
	for _, warning := range warnings {
		logger.Warn("Deal warning: "+warning,
			zap.String("op", "main"),
		)
	}

	rateStore := store.NewMemoryStore(conf.RateTable)
	aggregator := review.NewAggregator(logger, rateStore, ratecache.NewMemoryCache(0))

	ctx := context.Background()
	result, err := aggregator.Compute(ctx, deal.Financing, deal.TradeIn, deal.Fees, sel)
	if err != nil {
		logger.Fatal("failed to compute deal review",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	var schedule []loans.Payment
	if deal.Financing.TermMonths > 0 && result.AmountFinanced > 0 {
		schedule = loans.NewScheduleGenerator(logger).Generate(result.AmountFinanced, result.APR, deal.Financing.TermMonths)
	}

	comparables := conf.Comparables
	if conf.ComparablesFile != "" {
		parsed, err := listings.NewParser(logger).ParseFile(conf.ComparablesFile)
		if err != nil {
			logger.Fatal(fmt.Sprintf("failed to parse comparable listings at %s", conf.ComparablesFile),
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		comparables = append(comparables, parsed...)
	}

	var offer *smartoffer.Result
	var offerErr error
	if len(comparables) > 0 {
		offer, offerErr = smartoffer.Compute(conf.SubjectListing(), comparables)
	}

	report := output.NewReport(result, warnings, offer, offerErr, schedule)
	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(report)
	case constants.OutputFormatCSV:
		output.CsvFormat(report)
	case constants.OutputFormatJSON:
		output.JSONFormat(report)
	}
}

// runServer starts the quote API, sourcing rates from Postgres when
// configured and falling back to the rate table in the deal config.
func runServer(logger *zap.Logger, conf *config.Configuration, serverConfigLocation string) {
	cfg, err := server.LoadConfig(serverConfigLocation)
	if err != nil {
		logger.Fatal(fmt.Sprintf("failed to load server configuration at %s", serverConfigLocation),
			zap.String("op", "main.runServer"),
			zap.Error(err),
		)
	}

	ctx := context.Background()

	var rateStore store.RateStore
	if cfg.PostgresURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.PostgresURL, logger)
		if err != nil {
			logger.Fatal("failed to connect to rate database",
				zap.String("op", "main.runServer"),
				zap.Error(err),
			)
		}
		defer pgStore.Close()
		rateStore = pgStore
	} else {
		rateStore = store.NewMemoryStore(conf.RateTable)
	}

	var cache ratecache.Cache
	if cfg.RedisAddr != "" {
		cache = ratecache.NewRedisCache(cfg.RedisAddr, ratecache.DefaultTTL)
	} else {
		cache = ratecache.NewMemoryCache(0)
	}

	aggregator := review.NewAggregator(logger, rateStore, cache)

	limiter := server.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, time.Minute)
	defer limiter.Stop()

	handler := server.NewHandler(logger, aggregator, cfg.RequestSizeBytes(), version, limiter)

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("quote API listening",
			zap.String("op", "main.runServer"),
			zap.String("address", cfg.Address),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Fatal("server failed",
			zap.String("op", "main.runServer"),
			zap.Error(err),
		)
	case <-quit:
		logger.Info("shutting down",
			zap.String("op", "main.runServer"),
		)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during server shutdown",
			zap.String("op", "main.runServer"),
			zap.Error(err),
		)
	}
}
