// Package config gathers the run settings: which ephemeris provider to open,
// how the scanner steps and decides, and how the live surfaces refresh.
// Defaults come from Default, environment variables (UMBRA_*) override them
// and command-line flags override both.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full set of run settings.
type Config struct {
	Provider string // approx | meeus | jpl
	Kernel   string // JPL DE binary file, required for the jpl provider

	Step      time.Duration // scan and trajectory step
	Criterion string        // umbral | contact
	Policy    string        // first | last
	Refine    time.Duration // 0 disables onset refinement

	LiveInterval time.Duration
	ListenAddr   string
	ScanRate     float64       // simulation runs per second accepted by the web surface; 0 disables limiting
	MaxWindow    time.Duration // longest window a web simulation request may ask for

	LogLevel  string
	LogFormat string

	TracingEnabled bool
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Provider:     "meeus",
		Step:         time.Hour,
		Criterion:    "umbral",
		Policy:       "first",
		LiveInterval: time.Second,
		ListenAddr:   ":8080",
		ScanRate:     1,
		MaxWindow:    10 * 366 * 24 * time.Hour,
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// FromEnv returns Default overridden by UMBRA_* environment variables.
// Malformed numeric or duration values are reported, not ignored.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}

	str("UMBRA_PROVIDER", &cfg.Provider)
	str("UMBRA_KERNEL", &cfg.Kernel)
	dur("UMBRA_STEP", &cfg.Step)
	str("UMBRA_CRITERION", &cfg.Criterion)
	str("UMBRA_POLICY", &cfg.Policy)
	dur("UMBRA_REFINE", &cfg.Refine)
	dur("UMBRA_LIVE_INTERVAL", &cfg.LiveInterval)
	str("UMBRA_LISTEN_ADDR", &cfg.ListenAddr)
	dur("UMBRA_MAX_WINDOW", &cfg.MaxWindow)
	str("UMBRA_LOG_LEVEL", &cfg.LogLevel)
	str("UMBRA_LOG_FORMAT", &cfg.LogFormat)

	if v, ok := lookup("UMBRA_SCAN_RATE"); ok && strings.TrimSpace(v) != "" {
		r, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("UMBRA_SCAN_RATE: %w", err))
		} else {
			cfg.ScanRate = r
		}
	}
	if v, ok := lookup("UMBRA_TRACING_ENABLED"); ok {
		cfg.TracingEnabled = strings.EqualFold(strings.TrimSpace(v), "true")
	}

	return cfg, errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Provider) {
	case "approx", "meeus":
	case "jpl":
		if c.Kernel == "" {
			errs = append(errs, errors.New("provider jpl requires a kernel file"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q (use approx, meeus or jpl)", c.Provider))
	}

	if c.Step <= 0 {
		errs = append(errs, fmt.Errorf("step must be positive, got %v", c.Step))
	}
	switch strings.ToLower(c.Criterion) {
	case "umbral", "contact":
	default:
		errs = append(errs, fmt.Errorf("unknown criterion %q (use umbral or contact)", c.Criterion))
	}
	switch strings.ToLower(c.Policy) {
	case "first", "last":
	default:
		errs = append(errs, fmt.Errorf("unknown policy %q (use first or last)", c.Policy))
	}
	if c.Refine < 0 {
		errs = append(errs, fmt.Errorf("refine tolerance must not be negative, got %v", c.Refine))
	}
	if c.LiveInterval <= 0 {
		errs = append(errs, fmt.Errorf("live interval must be positive, got %v", c.LiveInterval))
	}
	if c.ScanRate < 0 {
		errs = append(errs, fmt.Errorf("scan rate must not be negative, got %v", c.ScanRate))
	}
	if c.MaxWindow <= 0 {
		errs = append(errs, fmt.Errorf("max window must be positive, got %v", c.MaxWindow))
	}

	return errors.Join(errs...)
}
