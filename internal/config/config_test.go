package config

import (
	"strings"
	"testing"
	"time"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestFromLookupOverrides(t *testing.T) {
	cfg, err := fromLookup(lookupFrom(map[string]string{
		"UMBRA_PROVIDER":        "jpl",
		"UMBRA_KERNEL":          "/data/de430.bin",
		"UMBRA_STEP":            "30m",
		"UMBRA_POLICY":          "last",
		"UMBRA_SCAN_RATE":       "0.5",
		"UMBRA_TRACING_ENABLED": "TRUE",
	}))
	if err != nil {
		t.Fatalf("fromLookup error: %v", err)
	}
	if cfg.Provider != "jpl" || cfg.Kernel != "/data/de430.bin" {
		t.Errorf("provider/kernel = %q/%q", cfg.Provider, cfg.Kernel)
	}
	if cfg.Step != 30*time.Minute {
		t.Errorf("Step = %v", cfg.Step)
	}
	if cfg.Policy != "last" {
		t.Errorf("Policy = %q", cfg.Policy)
	}
	if cfg.ScanRate != 0.5 {
		t.Errorf("ScanRate = %v", cfg.ScanRate)
	}
	if !cfg.TracingEnabled {
		t.Error("TracingEnabled = false")
	}
	if cfg.Criterion != "umbral" {
		t.Errorf("unset Criterion = %q, want default", cfg.Criterion)
	}
}

func TestFromLookupReportsBadValues(t *testing.T) {
	_, err := fromLookup(lookupFrom(map[string]string{
		"UMBRA_STEP":      "hourly",
		"UMBRA_SCAN_RATE": "fast",
	}))
	if err == nil {
		t.Fatal("expected an error for malformed values")
	}
	for _, key := range []string{"UMBRA_STEP", "UMBRA_SCAN_RATE"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}

func TestZeroScanRateDisablesLimiting(t *testing.T) {
	cfg := Default()
	cfg.ScanRate = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() with scan rate 0 = %v", err)
	}
}

func TestMaxWindowFromEnv(t *testing.T) {
	cfg, err := fromLookup(lookupFrom(map[string]string{"UMBRA_MAX_WINDOW": "720h"}))
	if err != nil {
		t.Fatalf("fromLookup error: %v", err)
	}
	if cfg.MaxWindow != 720*time.Hour {
		t.Errorf("MaxWindow = %v, want 720h", cfg.MaxWindow)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"jpl without kernel", func(c *Config) { c.Provider = "jpl" }, "kernel"},
		{"unknown provider", func(c *Config) { c.Provider = "spice" }, "unknown provider"},
		{"zero step", func(c *Config) { c.Step = 0 }, "step"},
		{"bad criterion", func(c *Config) { c.Criterion = "penumbral" }, "criterion"},
		{"bad policy", func(c *Config) { c.Policy = "middle" }, "policy"},
		{"negative refine", func(c *Config) { c.Refine = -time.Second }, "refine"},
		{"zero live interval", func(c *Config) { c.LiveInterval = 0 }, "live interval"},
		{"negative scan rate", func(c *Config) { c.ScanRate = -1 }, "scan rate"},
		{"zero max window", func(c *Config) { c.MaxWindow = 0 }, "max window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
