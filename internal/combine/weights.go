package combine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sawpanic/baccarun/internal/analyzers"
)

// defaultWeight applies to analyzers missing from a table
const defaultWeight = 1.0

// WeightTable maps analyzer name to a positive weight
type WeightTable map[string]float64

// Weight returns the analyzer's weight, 1.0 when unlisted
func (t WeightTable) Weight(analyzer string) float64 {
	if w, ok := t[analyzer]; ok {
		return w
	}
	return defaultWeight
}

// Clone copies the table
func (t WeightTable) Clone() WeightTable {
	out := make(WeightTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// WeightPreset is the analyzer weighting for one mode
type WeightPreset struct {
	Mode        Mode        `json:"mode" yaml:"mode"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Weights     WeightTable `json:"weights" yaml:"weights"`
}

// WeightManager holds the per-mode presets
type WeightManager struct {
	mu      sync.RWMutex
	presets map[Mode]*WeightPreset
}

// NewWeightManager creates a weight manager with the built-in presets
func NewWeightManager() *WeightManager {
	wm := &WeightManager{presets: make(map[Mode]*WeightPreset)}
	wm.initializeDefaultPresets()
	return wm
}

func (wm *WeightManager) initializeDefaultPresets() {
	// Conservative: lean on streak breaks and statistics, damp the pattern chasers
	wm.presets[Conservative] = &WeightPreset{
		Mode:        Conservative,
		Name:        "Conservative",
		Description: "Statistical and streak signals first, capped confidence",
		Weights: WeightTable{
			analyzers.NameStreak:       1.8,
			analyzers.NamePattern:      1.0,
			analyzers.NameTrend:        0.8,
			analyzers.NameMathematical: 1.5,
			analyzers.NameRoadmap:      1.2,
			analyzers.NameCyclical:     0.6,
			analyzers.NameMomentum:     0.7,
			analyzers.NameCounting:     1.0,
			analyzers.NameBehavioral:   0.8,
			analyzers.NameHotCold:      0.9,
			analyzers.NameBridge:       1.0,
		},
	}

	wm.presets[Balanced] = &WeightPreset{
		Mode:        Balanced,
		Name:        "Balanced",
		Description: "Near-uniform weighting without confidence shaping",
		Weights: WeightTable{
			analyzers.NameStreak:       1.2,
			analyzers.NamePattern:      1.2,
			analyzers.NameTrend:        1.0,
			analyzers.NameMathematical: 1.0,
			analyzers.NameRoadmap:      1.0,
			analyzers.NameCyclical:     1.0,
			analyzers.NameMomentum:     1.0,
			analyzers.NameCounting:     1.0,
			analyzers.NameBehavioral:   1.0,
			analyzers.NameHotCold:      1.0,
			analyzers.NameBridge:       1.0,
		},
	}

	// Aggressive: follow patterns and momentum, boost the leading side
	wm.presets[Aggressive] = &WeightPreset{
		Mode:        Aggressive,
		Name:        "Aggressive",
		Description: "Pattern and momentum signals first, leading side boosted",
		Weights: WeightTable{
			analyzers.NameStreak:       1.0,
			analyzers.NamePattern:      1.8,
			analyzers.NameTrend:        1.5,
			analyzers.NameMathematical: 0.8,
			analyzers.NameRoadmap:      1.0,
			analyzers.NameCyclical:     1.4,
			analyzers.NameMomentum:     1.6,
			analyzers.NameCounting:     1.2,
			analyzers.NameBehavioral:   1.3,
			analyzers.NameHotCold:      1.1,
			analyzers.NameBridge:       1.0,
		},
	}
}

// GetWeightsForMode returns the table for a fixed mode
func (wm *WeightManager) GetWeightsForMode(mode Mode) (WeightTable, error) {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	if preset, exists := wm.presets[mode]; exists {
		return preset.Weights.Clone(), nil
	}
	return nil, fmt.Errorf("no weight table for mode %q: %w", mode, ErrUnknownMode)
}

// GetPreset returns a copy of the preset for mode
func (wm *WeightManager) GetPreset(mode Mode) (WeightPreset, bool) {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	preset, exists := wm.presets[mode]
	if !exists {
		return WeightPreset{}, false
	}
	out := *preset
	out.Weights = preset.Weights.Clone()
	return out, true
}

// SetWeights replaces the table for a fixed mode. Weights must be positive.
func (wm *WeightManager) SetWeights(mode Mode, table WeightTable) error {
	if mode == Adaptive || !mode.Valid() {
		return fmt.Errorf("set weights for %q: %w", mode, ErrUnknownMode)
	}
	for name, w := range table {
		if !(w > 0) {
			return fmt.Errorf("weight for %s in mode %s must be positive, got %v", name, mode, w)
		}
	}

	wm.mu.Lock()
	defer wm.mu.Unlock()

	preset, exists := wm.presets[mode]
	if !exists {
		preset = &WeightPreset{Mode: mode, Name: string(mode)}
		wm.presets[mode] = preset
	}
	preset.Weights = table.Clone()
	return nil
}

// Modes lists the modes with a preset, sorted
func (wm *WeightManager) Modes() []Mode {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	modes := make([]Mode, 0, len(wm.presets))
	for m := range wm.presets {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}
