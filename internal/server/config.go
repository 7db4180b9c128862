package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/dealcraft/dealcalc/internal/config"
	"github.com/dealcraft/dealcalc/pkg/constants"
)

// Config defines runtime parameters for the HTTP quote server.
type Config struct {
	Address        string               `yaml:"address"`
	MaxRequestSize string               `yaml:"maxRequestSize"`
	RedisAddr      string               `yaml:"redisAddr,omitempty"`
	PostgresURL    string               `yaml:"postgresUrl,omitempty"`
	RateLimit      RateLimitConfig      `yaml:"rateLimit"`
	Logging        config.LoggingConfig `yaml:"logging"`

	requestSizeBytes int64
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
}

// LoadConfig loads the server configuration from YAML. If the file does not
// exist, defaults are returned without error.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Address:          constants.DefaultServerAddress,
		MaxRequestSize:   fmt.Sprintf("%d", constants.DefaultMaxRequestBytes),
		RateLimit:        RateLimitConfig{RequestsPerMinute: 60},
		requestSizeBytes: constants.DefaultMaxRequestBytes,
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RequestSizeBytes returns the configured maximum request body size.
func (c *Config) RequestSizeBytes() int64 {
	return c.requestSizeBytes
}

// normalize validates the config and resolves the human-readable request
// size ("256KB", "1MB") into bytes.
func (c *Config) normalize() error {
	if strings.TrimSpace(c.Address) == "" {
		c.Address = constants.DefaultServerAddress
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		c.RateLimit.RequestsPerMinute = 60
	}

	size, err := parseByteSize(c.MaxRequestSize)
	if err != nil {
		return fmt.Errorf("invalid maxRequestSize: %w", err)
	}
	if size <= 0 {
		size = constants.DefaultMaxRequestBytes
	}
	c.requestSizeBytes = size
	return nil
}

func parseByteSize(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return constants.DefaultMaxRequestBytes, nil
	}

	split := len(s)
	for i, r := range s {
		if !unicode.IsDigit(r) {
			split = i
			break
		}
	}
	digits, unit := s[:split], strings.ToUpper(strings.TrimSpace(s[split:]))
	if digits == "" {
		return 0, fmt.Errorf("no numeric value in %q", raw)
	}

	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, err
	}

	switch unit {
	case "", "B":
		return value, nil
	case "KB":
		return value * 1024, nil
	case "MB":
		return value * 1024 * 1024, nil
	default:
		return 0, fmt.Errorf("unknown unit %q", unit)
	}
}
