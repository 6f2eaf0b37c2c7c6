package governor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoddden/terradev-broker/internal/config"
)

func fastConfig() config.GovernorConfig {
	return config.GovernorConfig{
		GlobalRequestsPerMinute: 6000,
		ProviderLimits: map[string]config.ProviderRateLimit{
			"aws": {RequestsPerSecond: 1000, RequestsPerMinute: 60000, BurstLimit: 1000, RetryAttempts: 0, BackoffFactor: 1, Timeout: 2 * time.Second},
		},
	}
}

func TestExecute_SuccessRecordsMetrics(t *testing.T) {
	g := New(fastConfig())
	err := g.Execute(context.Background(), "aws", "get_quotes", func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	m := g.Metrics("aws")
	assert.Equal(t, int64(1), m.TotalRequests)
	assert.Equal(t, int64(1), m.Successes)
	assert.Equal(t, int64(0), m.Failures)
}

func TestExecute_FailurePropagatesAndIsRecorded(t *testing.T) {
	g := New(fastConfig())
	wantErr := errors.New("provider exploded")
	err := g.Execute(context.Background(), "aws", "get_quotes", func(ctx context.Context) error { return wantErr })
	require.Error(t, err)

	m := g.Metrics("aws")
	assert.Equal(t, int64(1), m.TotalRequests)
	assert.Equal(t, int64(0), m.Successes)
	assert.Equal(t, int64(1), m.Failures)
}

func TestMetrics_UnknownProviderReturnsZeroValueNotPanic(t *testing.T) {
	g := New(fastConfig())
	m := g.Metrics("never-called")
	assert.Equal(t, "never-called", m.Provider)
	assert.Zero(t, m.TotalRequests)
}

func TestMetrics_SumOfOutcomesEqualsTotalRequests(t *testing.T) {
	g := New(fastConfig())
	_ = g.Execute(context.Background(), "aws", "op", func(ctx context.Context) error { return nil })
	_ = g.Execute(context.Background(), "aws", "op", func(ctx context.Context) error { return errors.New("boom") })
	_ = g.Execute(context.Background(), "aws", "op", func(ctx context.Context) error { return nil })

	m := g.Metrics("aws")
	assert.Equal(t, m.Successes+m.RateLimited+m.Failures, m.TotalRequests)
	assert.Equal(t, int64(3), m.TotalRequests)
}

func TestResetMetrics_ClearsSingleProvider(t *testing.T) {
	g := New(fastConfig())
	_ = g.Execute(context.Background(), "aws", "op", func(ctx context.Context) error { return nil })
	require.Equal(t, int64(1), g.Metrics("aws").TotalRequests)

	g.ResetMetrics("aws")
	assert.Zero(t, g.Metrics("aws").TotalRequests)
}

func TestResetMetrics_EmptyProviderClearsEveryone(t *testing.T) {
	g := New(fastConfig())
	_ = g.Execute(context.Background(), "aws", "op", func(ctx context.Context) error { return nil })

	g.ResetMetrics("")
	assert.Zero(t, g.Metrics("aws").TotalRequests)
}

func TestAllMetrics_IncludesEveryCalledProvider(t *testing.T) {
	cfg := fastConfig()
	cfg.ProviderLimits["gcp"] = config.ProviderRateLimit{RequestsPerSecond: 1000, RequestsPerMinute: 60000, BurstLimit: 1000, Timeout: 2 * time.Second}
	g := New(cfg)

	_ = g.Execute(context.Background(), "aws", "op", func(ctx context.Context) error { return nil })
	_ = g.Execute(context.Background(), "gcp", "op", func(ctx context.Context) error { return nil })

	all := g.AllMetrics()
	assert.Contains(t, all, "aws")
	assert.Contains(t, all, "gcp")
}
