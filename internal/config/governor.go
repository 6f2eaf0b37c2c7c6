package config

import "time"

// ProviderRateLimit is one provider's Governor configuration: request
// pacing, retry behavior, and the per-call timeout.
type ProviderRateLimit struct {
	RequestsPerSecond float64
	RequestsPerMinute int
	BurstLimit        int
	RetryAttempts     int
	BackoffFactor     float64
	Timeout           time.Duration
}

// GovernorConfig holds the global pacing limit plus every provider's
// defaults. Providers not present here fall back to DefaultProviderLimit.
type GovernorConfig struct {
	GlobalRequestsPerMinute int
	ProviderLimits          map[string]ProviderRateLimit
}

// DefaultProviderLimit is used for any provider absent from
// GovernorConfig.ProviderLimits (the smaller or newer marketplaces that
// don't warrant a tuned profile yet).
var DefaultProviderLimit = ProviderRateLimit{
	RequestsPerSecond: 2.0,
	RequestsPerMinute: 100,
	BurstLimit:        5,
	RetryAttempts:     3,
	BackoffFactor:     2.0,
	Timeout:           20 * time.Second,
}

func defaultGovernorConfig() GovernorConfig {
	return GovernorConfig{
		GlobalRequestsPerMinute: 50,
		ProviderLimits: map[string]ProviderRateLimit{
			"aws": {
				RequestsPerSecond: 20.0,
				RequestsPerMinute: 1000,
				BurstLimit:        50,
				RetryAttempts:     3,
				BackoffFactor:     1.5,
				Timeout:           30 * time.Second,
			},
			"gcp": {
				RequestsPerSecond: 15.0,
				RequestsPerMinute: 900,
				BurstLimit:        30,
				RetryAttempts:     3,
				BackoffFactor:     2.0,
				Timeout:           25 * time.Second,
			},
			"azure": {
				RequestsPerSecond: 10.0,
				RequestsPerMinute: 600,
				BurstLimit:        25,
				RetryAttempts:     3,
				BackoffFactor:     2.0,
				Timeout:           35 * time.Second,
			},
			"runpod": {
				RequestsPerSecond: 5.0,
				RequestsPerMinute: 300,
				BurstLimit:        15,
				RetryAttempts:     5,
				BackoffFactor:     1.5,
				Timeout:           20 * time.Second,
			},
			"vastai": {
				RequestsPerSecond: 3.0,
				RequestsPerMinute: 180,
				BurstLimit:        10,
				RetryAttempts:     4,
				BackoffFactor:     2.0,
				Timeout:           25 * time.Second,
			},
			"lambda_labs": {
				RequestsPerSecond: 4.0,
				RequestsPerMinute: 240,
				BurstLimit:        12,
				RetryAttempts:     3,
				BackoffFactor:     1.8,
				Timeout:           30 * time.Second,
			},
			"coreweave": {
				RequestsPerSecond: 8.0,
				RequestsPerMinute: 480,
				BurstLimit:        20,
				RetryAttempts:     3,
				BackoffFactor:     1.5,
				Timeout:           25 * time.Second,
			},
			"tensordock": {
				RequestsPerSecond: 2.0,
				RequestsPerMinute: 120,
				BurstLimit:        8,
				RetryAttempts:     5,
				BackoffFactor:     2.5,
				Timeout:           20 * time.Second,
			},
		},
	}
}

// Limit returns the configured rate limit for provider, or
// DefaultProviderLimit if it has no tuned profile.
func (g GovernorConfig) Limit(provider string) ProviderRateLimit {
	if l, ok := g.ProviderLimits[provider]; ok {
		return l
	}
	return DefaultProviderLimit
}
