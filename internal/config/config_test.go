package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizationSettingsValidate_AcceptsWeightsSummingToOne(t *testing.T) {
	o := OptimizationSettings{PriceWeight: 0.4, AvailabilityWeight: 0.3, LatencyWeight: 0.2, ReliabilityWeight: 0.1}
	assert.NoError(t, o.Validate())
}

func TestOptimizationSettingsValidate_RejectsWeightsNotSummingToOne(t *testing.T) {
	o := OptimizationSettings{PriceWeight: 0.5, AvailabilityWeight: 0.5, LatencyWeight: 0.5, ReliabilityWeight: 0.5}
	assert.Error(t, o.Validate())
}

func TestOptimizationSettingsValidate_ToleratesFloatingPointEpsilon(t *testing.T) {
	o := OptimizationSettings{PriceWeight: 0.4000001, AvailabilityWeight: 0.3, LatencyWeight: 0.2, ReliabilityWeight: 0.1}
	assert.NoError(t, o.Validate())
}

func TestGovernorConfigLimit_ReturnsTunedProfileWhenPresent(t *testing.T) {
	cfg := defaultGovernorConfig()
	l := cfg.Limit("aws")
	assert.Equal(t, 20.0, l.RequestsPerSecond)
}

func TestGovernorConfigLimit_FallsBackToDefaultForUntunedProvider(t *testing.T) {
	cfg := defaultGovernorConfig()
	l := cfg.Limit("some-brand-new-marketplace")
	assert.Equal(t, DefaultProviderLimit, l)
}

func TestConfigValidate_RejectsNonPositiveParallelQueries(t *testing.T) {
	cfg := &Config{
		Engine: EngineConfig{
			ParallelQueries:   0,
			MaxPriceThreshold: 5.0,
			Optimization:      OptimizationSettings{PriceWeight: 0.4, AvailabilityWeight: 0.3, LatencyWeight: 0.2, ReliabilityWeight: 0.1},
		},
	}
	assert.Error(t, cfg.Validate())
}

func TestConfigValidate_RejectsNonPositiveMaxPriceThreshold(t *testing.T) {
	cfg := &Config{
		Engine: EngineConfig{
			ParallelQueries:   6,
			MaxPriceThreshold: 0,
			Optimization:      OptimizationSettings{PriceWeight: 0.4, AvailabilityWeight: 0.3, LatencyWeight: 0.2, ReliabilityWeight: 0.1},
		},
	}
	assert.Error(t, cfg.Validate())
}

func TestConfigValidate_AcceptsAWellFormedConfig(t *testing.T) {
	cfg := &Config{
		Engine: EngineConfig{
			ParallelQueries:   6,
			MaxPriceThreshold: 5.0,
			Optimization:      OptimizationSettings{PriceWeight: 0.4, AvailabilityWeight: 0.3, LatencyWeight: 0.2, ReliabilityWeight: 0.1},
		},
	}
	require.NoError(t, cfg.Validate())
}

func TestSplitCSV_TrimsWhitespaceAndDropsEmptyEntries(t *testing.T) {
	assert.Equal(t, []string{"aws", "gcp", "vastai"}, splitCSV("aws, gcp,  vastai"))
	assert.Nil(t, splitCSV(""))
	assert.Equal(t, []string{"aws"}, splitCSV(",aws,,"))
}

func TestTrimSpace_StripsLeadingAndTrailingSpacesAndTabs(t *testing.T) {
	assert.Equal(t, "aws", trimSpace("  aws\t"))
	assert.Equal(t, "", trimSpace("   "))
}
