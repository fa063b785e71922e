package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/sawpanic/baccarun/internal/combine"
)

// WeightsConfig represents the mode weights configuration
type WeightsConfig struct {
	Modes      map[string]map[string]float64 `yaml:"modes"`
	Validation ValidationConfig              `yaml:"validation"`
}

// ValidationConfig defines validation parameters
type ValidationConfig struct {
	MaxWeight float64 `yaml:"max_weight"`
}

const defaultMaxWeight = 5.0

// WeightsLoader handles loading and validation of mode weight tables
type WeightsLoader struct {
	config *WeightsConfig
}

// NewWeightsLoader creates a new weights loader
func NewWeightsLoader() *WeightsLoader {
	return &WeightsLoader{}
}

// LoadFromFile loads mode weights from a YAML configuration file
func (wl *WeightsLoader) LoadFromFile(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	return wl.LoadFromBytes(data)
}

// LoadFromBytes parses and validates a YAML document
func (wl *WeightsLoader) LoadFromBytes(data []byte) error {
	var config WeightsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if config.Validation.MaxWeight == 0 {
		config.Validation.MaxWeight = defaultMaxWeight
	}

	if err := wl.validateConfig(&config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	wl.config = &config
	return nil
}

// LoadDefault loads the built-in tables
func (wl *WeightsLoader) LoadDefault() error {
	wm := combine.NewWeightManager()
	config := &WeightsConfig{
		Modes:      make(map[string]map[string]float64),
		Validation: ValidationConfig{MaxWeight: defaultMaxWeight},
	}
	for _, mode := range combine.FixedModes {
		table, err := wm.GetWeightsForMode(mode)
		if err != nil {
			return err
		}
		config.Modes[string(mode)] = table
	}

	if err := wl.validateConfig(config); err != nil {
		return fmt.Errorf("default config validation failed: %w", err)
	}
	wl.config = config
	return nil
}

// GetWeights returns the table for a fixed mode
func (wl *WeightsLoader) GetWeights(mode combine.Mode) (combine.WeightTable, error) {
	if wl.config == nil {
		return nil, fmt.Errorf("weights not loaded - call LoadFromFile or LoadDefault first")
	}
	table, exists := wl.config.Modes[string(mode)]
	if !exists {
		return nil, fmt.Errorf("no weights for mode %q: %w", mode, combine.ErrUnknownMode)
	}
	return combine.WeightTable(table).Clone(), nil
}

// Apply installs every loaded table into wm. Names outside known are rejected
// when known is non-empty.
func (wl *WeightsLoader) Apply(wm *combine.WeightManager, known []string) error {
	if wl.config == nil {
		return fmt.Errorf("weights not loaded - call LoadFromFile or LoadDefault first")
	}
	names := make(map[string]bool, len(known))
	for _, n := range known {
		names[n] = true
	}

	for _, mode := range combine.FixedModes {
		table := wl.config.Modes[string(mode)]
		if len(names) > 0 {
			for analyzer := range table {
				if !names[analyzer] {
					return fmt.Errorf("mode %s weights unknown analyzer %q", mode, analyzer)
				}
			}
		}
		if err := wm.SetWeights(mode, table); err != nil {
			return err
		}
	}
	return nil
}

// GetWeightsSummary returns a formatted summary of all mode weights
func (wl *WeightsLoader) GetWeightsSummary() (string, error) {
	if wl.config == nil {
		return "", fmt.Errorf("config not loaded")
	}

	var b strings.Builder
	b.WriteString("Mode Weight Configuration:\n\n")
	for _, mode := range combine.FixedModes {
		table := wl.config.Modes[string(mode)]
		fmt.Fprintf(&b, "%s mode:\n", mode)
		names := make([]string, 0, len(table))
		for name := range table {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "  %-13s %.2f\n", name, table[name])
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// validateConfig validates the entire weights configuration
func (wl *WeightsLoader) validateConfig(config *WeightsConfig) error {
	for _, mode := range combine.FixedModes {
		if _, exists := config.Modes[string(mode)]; !exists {
			return fmt.Errorf("missing required mode: %s", mode)
		}
	}

	for mode, table := range config.Modes {
		m, err := combine.ParseMode(mode)
		if err != nil || m == combine.Adaptive {
			return fmt.Errorf("unsupported mode %q in weights", mode)
		}
		for name, value := range table {
			if !(value > 0) {
				return fmt.Errorf("mode %s has non-positive weight for %s: %.3f", mode, name, value)
			}
			if value > config.Validation.MaxWeight {
				return fmt.Errorf("mode %s weight for %s (%.3f) above maximum (%.3f)",
					mode, name, value, config.Validation.MaxWeight)
			}
		}
	}
	return nil
}

// GetDefaultWeightsPath returns the default weights file path
func GetDefaultWeightsPath() string {
	return filepath.Join("config", "mode_weights.yaml")
}
