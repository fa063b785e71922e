package main

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/baccarun/internal/analyzers"
	"github.com/sawpanic/baccarun/internal/combine"
	"github.com/sawpanic/baccarun/internal/config"
)

// buildEngine assembles the analyzer registry and installs the weight tables of weightsFile, if any
func buildEngine(engineCfg config.EngineConfig) (*combine.Engine, error) {
	registry := analyzers.DefaultRegistry(analyzers.Options{PatternHalfLife: engineCfg.PatternHalfLife})
	wm := combine.NewWeightManager()

	if engineCfg.WeightsFile != "" {
		loader := config.NewWeightsLoader()
		if err := loader.LoadFromFile(engineCfg.WeightsFile); err != nil {
			return nil, fmt.Errorf("load weights: %w", err)
		}
		if err := loader.Apply(wm, registry.Names()); err != nil {
			return nil, fmt.Errorf("apply weights: %w", err)
		}
		log.Debug().Str("file", engineCfg.WeightsFile).Msg("Mode weights loaded")
	}
	return combine.NewEngine(registry, wm), nil
}
