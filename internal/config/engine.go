package config

import (
	"fmt"

	"github.com/theoddden/terradev-broker/pkg/model"
)

// EngineConfig carries the settings recognized from a broker config
// file, layered over the matching env-var values in Load(). The key names
// mirror the ones a caller writes in YAML: parallel_queries,
// max_price_threshold, preferred_regions, optimization_settings.*,
// analytics_settings.retention_days, providers.*.
type EngineConfig struct {
	ParallelQueries   int                                           `yaml:"parallel_queries"`
	ParallelProvision int                                           `yaml:"parallel_provision"`
	MaxPriceThreshold float64                                       `yaml:"max_price_threshold"`
	PreferredRegions  []string                                      `yaml:"preferred_regions"`
	Optimization      OptimizationSettings                          `yaml:"optimization_settings"`
	Analytics         AnalyticsSettings                             `yaml:"analytics_settings"`
	Providers         map[model.ProviderID]model.ProviderDescriptor `yaml:"providers"`
}

// DefaultProviderDescriptors seeds EngineConfig.Providers with a
// reliability prior for every provider this broker ships an adapter
// for. A config file's `providers:` block overrides these per id; any
// provider absent from both falls back to Aggregator's own default.
func DefaultProviderDescriptors() map[model.ProviderID]model.ProviderDescriptor {
	priors := map[model.ProviderID]float64{
		model.ProviderAWS:          0.98,
		model.ProviderGCP:          0.98,
		model.ProviderAzure:        0.98,
		model.ProviderOracle:       0.95,
		model.ProviderCoreWeave:    0.95,
		model.ProviderLambdaLabs:   0.95,
		model.ProviderRunpod:       0.90,
		model.ProviderTensorDock:   0.90,
		model.ProviderCrusoe:       0.90,
		model.ProviderHyperstack:   0.90,
		model.ProviderDigitalOcean: 0.90,
		model.ProviderVastAI:       0.85,
		model.ProviderHuggingFace:  0.90,
		model.ProviderBaseten:      0.90,
		model.ProviderDemo:         1.0,
	}
	out := make(map[model.ProviderID]model.ProviderDescriptor, len(priors))
	for id, reliability := range priors {
		out[id] = model.ProviderDescriptor{ID: id, Reliability: reliability}
	}
	return out
}

// OptimizationSettings weights the four quote-scoring dimensions. They
// must sum to 1.0.
type OptimizationSettings struct {
	PriceWeight        float64 `yaml:"price_weight"`
	AvailabilityWeight float64 `yaml:"availability_weight"`
	LatencyWeight      float64 `yaml:"latency_weight"`
	ReliabilityWeight  float64 `yaml:"reliability_weight"`
}

func (o OptimizationSettings) Validate() error {
	const epsilon = 0.001
	sum := o.PriceWeight + o.AvailabilityWeight + o.LatencyWeight + o.ReliabilityWeight
	if sum < 1.0-epsilon || sum > 1.0+epsilon {
		return fmt.Errorf("weights must sum to 1.0, got %f", sum)
	}
	return nil
}

type AnalyticsSettings struct {
	RetentionDays int `yaml:"retention_days"`
}
