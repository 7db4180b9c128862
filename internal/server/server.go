// Package server exposes the deal calculators over an HTTP JSON API.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dealcraft/dealcalc/internal/review"
	"github.com/dealcraft/dealcalc/pkg/constants"
	"github.com/dealcraft/dealcalc/pkg/loans"
	"github.com/dealcraft/dealcalc/pkg/smartoffer"
	"github.com/dealcraft/dealcalc/pkg/validation"
)

type handler struct {
	logger          *zap.Logger
	aggregator      *review.Aggregator
	schedules       *loans.ScheduleGenerator
	maxRequestBytes int64
	version         string
}

// NewHandler constructs the HTTP handler serving the quote API. A nil
// limiter disables rate limiting.
func NewHandler(logger *zap.Logger, aggregator *review.Aggregator, maxRequestBytes int64, version string, limiter *RateLimiter) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRequestBytes <= 0 {
		maxRequestBytes = constants.DefaultMaxRequestBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:          logger,
		aggregator:      aggregator,
		schedules:       loans.NewScheduleGenerator(logger),
		maxRequestBytes: maxRequestBytes,
		version:         trimmedVersion,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/quote", h.handleQuote)
	mux.HandleFunc("/api/smartoffer", h.handleSmartOffer)
	mux.HandleFunc("/api/schedule", h.handleSchedule)
	mux.HandleFunc("/api/rates/best", h.handleBestRate)
	mux.HandleFunc("/api/export", h.handleExport)
	mux.HandleFunc("/api/version", h.handleVersion)

	if limiter == nil {
		return mux
	}
	return RateLimitMiddleware(limiter, mux)
}

type quoteRequest struct {
	Financing       review.FinancingInput `json:"financing"`
	TradeIn         review.TradeInInput   `json:"tradeIn"`
	Fees            review.FeeSet         `json:"fees"`
	Rate            review.RateSelection  `json:"rate"`
	IncludeSchedule bool                  `json:"includeSchedule"`
}

type quoteResponse struct {
	Review   *review.Result  `json:"review"`
	Warnings []string        `json:"warnings,omitempty"`
	Schedule []loans.Payment `json:"schedule,omitempty"`
}

func (h *handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req quoteRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := validation.ValidateDeal(req.Financing, req.Fees); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateRateSelection(req.Rate); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.aggregator.Compute(r.Context(), req.Financing, req.TradeIn, req.Fees, req.Rate)
	if err != nil {
		if errors.Is(err, review.ErrNoApplicableRate) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		h.logger.Error("quote computation failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := quoteResponse{
		Review:   result,
		Warnings: validation.DealWarnings(req.Financing, req.TradeIn, req.Fees),
	}
	if req.IncludeSchedule {
		resp.Schedule = h.schedules.Generate(result.AmountFinanced, result.APR, req.Financing.TermMonths)
	}

	h.respond(w, resp)
}

type smartOfferRequest struct {
	Subject     smartoffer.Listing   `json:"subject"`
	Comparables []smartoffer.Listing `json:"comparables"`
}

type smartOfferFailure struct {
	Error string `json:"error"`
	Count int    `json:"count"`
}

func (h *handler) handleSmartOffer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req smartOfferRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := smartoffer.Compute(req.Subject, req.Comparables)
	if err != nil {
		var insufficient *smartoffer.InsufficientDataError
		if errors.As(err, &insufficient) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(smartOfferFailure{
				Error: insufficient.Error(),
				Count: insufficient.Count,
			})
			return
		}
		h.logger.Error("smart offer computation failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.respond(w, result)
}

type scheduleRequest struct {
	Principal  float64 `json:"principal"`
	APR        float64 `json:"apr"` // decimal fraction
	TermMonths int     `json:"termMonths"`
}

func (h *handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req scheduleRequest
	if !h.decode(w, r, &req) {
		return
	}

	schedule := h.schedules.Generate(req.Principal, req.APR, req.TermMonths)
	if schedule == nil {
		http.Error(w, "principal and term must be positive", http.StatusBadRequest)
		return
	}

	h.respond(w, schedule)
}

func (h *handler) handleBestRate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	term, err := strconv.Atoi(query.Get("term"))
	if err != nil || term <= 0 {
		http.Error(w, "term must be a positive integer", http.StatusBadRequest)
		return
	}
	condition := query.Get("condition")
	if condition == "" {
		http.Error(w, "condition is required", http.StatusBadRequest)
		return
	}
	creditScore := 0
	if raw := query.Get("creditScore"); raw != "" {
		creditScore, err = strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "creditScore must be an integer", http.StatusBadRequest)
			return
		}
	}

	match := h.aggregator.BestRate(r.Context(), term, condition, creditScore)
	if match == nil {
		http.Error(w, "no applicable lender rate", http.StatusNotFound)
		return
	}

	h.respond(w, match)
}

type exportDocument struct {
	Financing review.FinancingInput `yaml:"financing"`
	TradeIn   review.TradeInInput   `yaml:"tradeIn"`
	Fees      review.FeeSet         `yaml:"fees"`
	Rate      review.RateSelection  `yaml:"rate"`
}

// handleExport converts a quote request into a YAML deal document so API
// callers can save it and rerun the same deal through the CLI.
func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req quoteRequest
	if !h.decode(w, r, &req) {
		return
	}

	doc, err := yaml.Marshal(exportDocument{
		Financing: req.Financing,
		TradeIn:   req.TradeIn,
		Fees:      req.Fees,
		Rate:      req.Rate,
	})
	if err != nil {
		h.logger.Error("failed to marshal deal export", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	if _, err := w.Write(doc); err != nil {
		h.logger.Error("failed to write deal export", zap.Error(err))
	}
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.respond(w, map[string]string{"version": h.version})
}

// decode reads a size-limited JSON body into dst, writing the HTTP error
// itself on failure.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *handler) respond(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
