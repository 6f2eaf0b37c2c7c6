package model

import "time"

// RateLimitMetrics accumulates cumulative, process-scoped totals for
// one provider's Governor traffic.
type RateLimitMetrics struct {
	Provider              string    `json:"provider"`
	TotalRequests         int64     `json:"total_requests"`
	Successes             int64     `json:"successes"`
	RateLimited           int64     `json:"rate_limited"`
	Failures              int64     `json:"failures"`
	AverageResponseTimeMS float64   `json:"average_response_time_ms"`
	LastRequestAt         time.Time `json:"last_request_at,omitempty"`
	CurrentRate           float64   `json:"current_rate"`
}
