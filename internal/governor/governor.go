// Package governor paces and protects outbound calls to cloud GPU
// providers: per-provider and global request rate limits, retry with
// exponential backoff, a circuit breaker per provider, and an adaptive
// pacing delay that grows as a provider's observed rate approaches its
// configured ceiling.
package governor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/theoddden/terradev-broker/internal/config"
	"github.com/theoddden/terradev-broker/internal/logging"
	"github.com/theoddden/terradev-broker/internal/metrics"
	"github.com/theoddden/terradev-broker/internal/resilience"
	"github.com/theoddden/terradev-broker/pkg/model"
)

// ErrRateLimitExhausted is returned when a provider's limiter could not
// grant a permit before the operation's context expired.
var ErrRateLimitExhausted = errors.New("governor: rate limit exhausted")

type providerState struct {
	limiter *rate.Limiter
	metrics model.RateLimitMetrics
	mu      sync.Mutex
}

// Governor owns pacing and fault isolation for every provider the
// broker talks to. One Governor is shared process-wide.
type Governor struct {
	cfg      config.GovernorConfig
	global   *rate.Limiter
	breakers *resilience.CircuitBreaker
	retry    resilience.RetryConfig

	mu    sync.RWMutex
	state map[string]*providerState
}

// New builds a Governor from the loaded process config.
func New(cfg config.GovernorConfig) *Governor {
	globalRPS := float64(cfg.GlobalRequestsPerMinute) / 60.0
	return &Governor{
		cfg:      cfg,
		global:   rate.NewLimiter(rate.Limit(globalRPS), maxInt(1, cfg.GlobalRequestsPerMinute/10)),
		breakers: resilience.NewCircuitBreaker(resilience.DefaultSettings),
		retry:    resilience.DefaultRetryConfig,
		state:    make(map[string]*providerState),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (g *Governor) stateFor(provider string) *providerState {
	g.mu.RLock()
	st, ok := g.state[provider]
	g.mu.RUnlock()
	if ok {
		return st
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.state[provider]; ok {
		return st
	}

	limit := g.cfg.Limit(provider)
	st = &providerState{
		limiter: rate.NewLimiter(rate.Limit(limit.RequestsPerSecond), maxInt(1, limit.BurstLimit)),
		metrics: model.RateLimitMetrics{Provider: provider},
	}
	g.state[provider] = st
	return st
}

// Op is a single call against a provider's API.
type Op func(ctx context.Context) error

// Execute runs op under the provider's rate limit, circuit breaker, and
// retry policy. Retries use the provider's configured backoff factor
// and attempt count, grounded on the original rate limiter's
// execute_with_rate_limit. operation names the call for metrics/logs
// (e.g. "get_quotes", "provision").
func (g *Governor) Execute(ctx context.Context, provider, operation string, op Op) error {
	st := g.stateFor(provider)
	limit := g.cfg.Limit(provider)

	retryCfg := resilience.RetryConfig{
		MaxRetries:     limit.RetryAttempts,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     60 * time.Second,
		Multiplier:     limit.BackoffFactor,
		JitterFactor:   0.3,
	}

	start := time.Now()
	metrics.ProviderRequestsTotal.WithLabelValues(provider, operation).Inc()
	_, err := resilience.RetryWithResult(ctx, retryCfg, func() (struct{}, error) {
		if err := g.acquire(ctx, provider, st); err != nil {
			return struct{}{}, err
		}

		opCtx, cancel := context.WithTimeout(ctx, limit.Timeout)
		defer cancel()

		_, err := g.breakers.ExecuteContext(opCtx, provider, func() (interface{}, error) {
			return nil, op(opCtx)
		})
		return struct{}{}, err
	})

	elapsed := time.Since(start)
	g.recordOutcome(st, elapsed, err)
	metrics.ProviderRequestDuration.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
	metrics.ObserveCircuitState(provider, g.CircuitState(provider))
	if err != nil {
		metrics.ProviderFailuresTotal.WithLabelValues(provider, operation).Inc()
	}
	logging.LogTask("governor", provider, "", float64(elapsed.Milliseconds()), err)

	return err
}

func (g *Governor) acquire(ctx context.Context, provider string, st *providerState) error {
	if err := g.global.Wait(ctx); err != nil {
		return fmt.Errorf("%w: global limiter: %v", ErrRateLimitExhausted, err)
	}
	if err := st.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s limiter: %v", ErrRateLimitExhausted, provider, err)
	}

	if delay := g.adaptiveDelay(provider, st); delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// adaptiveDelay grows as the provider's recent request rate approaches
// its configured ceiling, mirroring get_adaptive_delay's sleep ladder.
func (g *Governor) adaptiveDelay(provider string, st *providerState) time.Duration {
	limit := g.cfg.Limit(provider)

	st.mu.Lock()
	currentRate := st.metrics.CurrentRate
	st.mu.Unlock()

	if limit.RequestsPerSecond <= 0 {
		return 0
	}
	ratio := currentRate / limit.RequestsPerSecond

	switch {
	case ratio < 0.5:
		return 0
	case ratio < 0.8:
		return 100 * time.Millisecond
	case ratio < 0.95:
		return 500 * time.Millisecond
	default:
		return time.Second
	}
}

func (g *Governor) recordOutcome(st *providerState, elapsed time.Duration, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.metrics.TotalRequests++
	now := time.Now()
	// CurrentRate is requests per second over roughly the last second:
	// the previous estimate decays linearly with the gap since the last
	// request, so a steady 1/gap cadence settles at 1/gap.
	if gap := now.Sub(st.metrics.LastRequestAt).Seconds(); st.metrics.LastRequestAt.IsZero() || gap >= 1.0 {
		st.metrics.CurrentRate = 1.0
	} else {
		st.metrics.CurrentRate = st.metrics.CurrentRate*(1.0-gap) + 1.0
	}
	st.metrics.LastRequestAt = now

	switch {
	case err == nil:
		st.metrics.Successes++
		n := float64(st.metrics.Successes)
		st.metrics.AverageResponseTimeMS = (st.metrics.AverageResponseTimeMS*(n-1) + float64(elapsed.Milliseconds())) / n
	case errors.Is(err, ErrRateLimitExhausted):
		st.metrics.RateLimited++
	default:
		st.metrics.Failures++
	}
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Metrics returns a snapshot of one provider's cumulative Governor
// traffic. Returns the zero value (TotalRequests == 0) for a provider
// that has never been called.
func (g *Governor) Metrics(provider string) model.RateLimitMetrics {
	g.mu.RLock()
	st, ok := g.state[provider]
	g.mu.RUnlock()
	if !ok {
		return model.RateLimitMetrics{Provider: provider}
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.metrics
}

// AllMetrics returns a snapshot for every provider the Governor has
// seen traffic for.
func (g *Governor) AllMetrics() map[string]model.RateLimitMetrics {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[string]model.RateLimitMetrics, len(g.state))
	for provider, st := range g.state {
		st.mu.Lock()
		out[provider] = st.metrics
		st.mu.Unlock()
	}
	return out
}

// ResetMetrics clears accumulated metrics for one provider, or every
// provider when provider is empty. Used by test harnesses between runs.
func (g *Governor) ResetMetrics(provider string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if provider == "" {
		for p, st := range g.state {
			st.mu.Lock()
			st.metrics = model.RateLimitMetrics{Provider: p}
			st.mu.Unlock()
		}
		return
	}
	if st, ok := g.state[provider]; ok {
		st.mu.Lock()
		st.metrics = model.RateLimitMetrics{Provider: provider}
		st.mu.Unlock()
	}
}

// CircuitState reports the current breaker state for a provider, for
// diagnostics and the engine's health surface.
func (g *Governor) CircuitState(provider string) string {
	return g.breakers.GetState(provider).String()
}
