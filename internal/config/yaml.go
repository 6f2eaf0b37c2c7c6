package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/theoddden/terradev-broker/pkg/model"
)

// brokerFile is the on-disk shape of a broker config file. Only the
// engine settings are recognized here; anything else is an error.
type brokerFile struct {
	ParallelQueries   *int                                           `yaml:"parallel_queries"`
	ParallelProvision *int                                           `yaml:"parallel_provision"`
	MaxPriceThreshold *float64                                       `yaml:"max_price_threshold"`
	PreferredRegions  []string                                       `yaml:"preferred_regions"`
	Optimization      *OptimizationSettings                          `yaml:"optimization_settings"`
	Analytics         *AnalyticsSettings                             `yaml:"analytics_settings"`
	Providers         map[model.ProviderID]model.ProviderDescriptor `yaml:"providers"`
}

// loadEngineYAML overlays a YAML config file onto an EngineConfig
// already populated with env-derived defaults. Unknown top-level keys
// are rejected by the strict decoder rather than silently ignored.
func loadEngineYAML(path string, eng *EngineConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var raw brokerFile
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("parsing broker config: %w", err)
	}

	if raw.ParallelQueries != nil {
		eng.ParallelQueries = *raw.ParallelQueries
	}
	if raw.ParallelProvision != nil {
		eng.ParallelProvision = *raw.ParallelProvision
	}
	if raw.MaxPriceThreshold != nil {
		eng.MaxPriceThreshold = *raw.MaxPriceThreshold
	}
	if len(raw.PreferredRegions) > 0 {
		eng.PreferredRegions = raw.PreferredRegions
	}
	if raw.Optimization != nil {
		eng.Optimization = *raw.Optimization
	}
	if raw.Analytics != nil {
		eng.Analytics = *raw.Analytics
	}
	for id, descriptor := range raw.Providers {
		if eng.Providers == nil {
			eng.Providers = make(map[model.ProviderID]model.ProviderDescriptor, len(raw.Providers))
		}
		if descriptor.ID == "" {
			descriptor.ID = id
		}
		eng.Providers[id] = descriptor
	}

	return nil
}
