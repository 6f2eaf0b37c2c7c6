package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoddden/terradev-broker/internal/config"
	"github.com/theoddden/terradev-broker/internal/engine"
	"github.com/theoddden/terradev-broker/pkg/model"
)

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		ParallelQueries: 4,
		Optimization: config.OptimizationSettings{
			PriceWeight: 0.4, AvailabilityWeight: 0.3, LatencyWeight: 0.2, ReliabilityWeight: 0.1,
		},
	}
}

func testGovernorConfig() config.GovernorConfig {
	return config.GovernorConfig{
		GlobalRequestsPerMinute: 6000,
		ProviderLimits: map[string]config.ProviderRateLimit{
			"demo": {RequestsPerSecond: 1000, RequestsPerMinute: 60000, BurstLimit: 1000, Timeout: 5 * time.Second},
		},
	}
}

func TestBuildRegistry_NoCredentialsRegistersDemoAdapterOnly(t *testing.T) {
	registry := buildRegistry(context.Background(), config.ProviderCredentials{})
	ids := registry.IDs()
	require.Len(t, ids, 1)
	assert.Equal(t, model.ProviderDemo, ids[0])
}

func TestBuildRegistry_KeyOnlyProvidersRegisterWithoutNetworkCalls(t *testing.T) {
	creds := config.ProviderCredentials{
		VastAIAPIKey:     "vast-key",
		RunpodAPIKey:     "runpod-key",
		LambdaLabsAPIKey: "lambda-key",
		CoreWeaveAPIKey:  "coreweave-key",
		HuggingFaceToken: "hf-token",
		BasetenAPIKey:    "baseten-key",
		CrusoeAPIKey:     "crusoe-key",
		DigitalOceanPAT:  "do-pat",
		HyperstackAPIKey: "hyperstack-key",
	}
	registry := buildRegistry(context.Background(), creds)
	ids := registry.IDs()

	assert.Len(t, ids, 9, "one adapter registered per configured key-only provider, no demo fallback")
	assert.NotContains(t, ids, model.ProviderDemo)
}

func TestBuildRegistry_PartialCloudCredentialsSkipThatProviderOnly(t *testing.T) {
	creds := config.ProviderCredentials{
		AWSAccessKeyID: "only-the-id-no-secret",
		VastAIAPIKey:   "vast-key",
	}
	registry := buildRegistry(context.Background(), creds)
	ids := registry.IDs()

	assert.Len(t, ids, 1, "AWS requires both access key and secret; vast.ai needs only its key")
	assert.Contains(t, ids, model.ProviderID("vastai"))
}

func TestBuildRegistry_TensorDockRequiresBothKeyAndToken(t *testing.T) {
	registry := buildRegistry(context.Background(), config.ProviderCredentials{TensorDockKey: "key-only"})
	assert.NotContains(t, registry.IDs(), model.ProviderID("tensordock"), "a bare key without the paired token must not register tensordock")

	registry = buildRegistry(context.Background(), config.ProviderCredentials{TensorDockKey: "key", TensorDockToken: "token"})
	assert.Contains(t, registry.IDs(), model.ProviderID("tensordock"))
}

func TestBuild_WiresACompleteEngineEvenWithZeroCredentials(t *testing.T) {
	cfg := &config.Config{
		Engine:    testEngineConfig(),
		Governor:  testGovernorConfig(),
		Staging:   config.StagingConfig{LocalStagingDir: t.TempDir(), ChunkSizeBytes: 1024 * 1024},
		Providers: config.ProviderCredentials{},
	}

	e, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, e)

	quotes, err := e.GetQuotes(context.Background(), engine.GetQuotesRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, quotes, "the offline demo catalog should surface end to end")
	assert.Equal(t, model.ProviderDemo, quotes[0].Provider)
}
