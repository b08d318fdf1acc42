// Package config loads blink-detection tuning parameters from JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/blink.report/internal/blink"
)

// Tuning holds the detection tuning parameters. Fields omitted from the
// JSON file retain their defaults, so partial configs are safe.
type Tuning struct {
	// EARThreshold is the openness cutoff below which an eye counts as
	// closed.
	EARThreshold *float64 `json:"ear_threshold,omitempty"`

	// MinRun is the minimum number of consecutive closed frames required
	// to confirm a blink.
	MinRun *int `json:"min_run,omitempty"`
}

// Load reads a Tuning from a JSON file.
func Load(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Tuning{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (t *Tuning) Validate() error {
	if t.EARThreshold != nil {
		if *t.EARThreshold <= 0 || *t.EARThreshold >= 1 {
			return fmt.Errorf("ear_threshold must be in (0, 1), got %f", *t.EARThreshold)
		}
	}
	if t.MinRun != nil {
		if *t.MinRun < 1 {
			return fmt.Errorf("min_run must be at least 1, got %d", *t.MinRun)
		}
	}
	return nil
}

// GetEARThreshold returns the ear_threshold value or the default.
func (t *Tuning) GetEARThreshold() float64 {
	if t.EARThreshold == nil {
		return blink.DefaultEARThreshold
	}
	return *t.EARThreshold
}

// GetMinRun returns the min_run value or the default.
func (t *Tuning) GetMinRun() int {
	if t.MinRun == nil {
		return blink.DefaultMinRun
	}
	return *t.MinRun
}

// DetectorConfig assembles the blink.Config from the tuning values.
func (t *Tuning) DetectorConfig() blink.Config {
	return blink.Config{
		EARThreshold: t.GetEARThreshold(),
		MinRun:       t.GetMinRun(),
	}
}
