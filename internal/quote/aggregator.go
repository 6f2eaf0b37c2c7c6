// Package quote fans a quote request out across every registered
// provider adapter and scores the results. Grounded on
// helpers/manager/csp_manager.go's ListAll/ListBudgetCSPs/ListMajorCSPs
// multi-provider fan-out, generalized from that file's sequential loop
// to a bounded worker pool so provider latency doesn't serialize.
package quote

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/theoddden/terradev-broker/internal/adapter"
	"github.com/theoddden/terradev-broker/internal/config"
	"github.com/theoddden/terradev-broker/internal/governor"
	"github.com/theoddden/terradev-broker/internal/logging"
	"github.com/theoddden/terradev-broker/internal/metrics"
	"github.com/theoddden/terradev-broker/pkg/model"
)

// unratedProviderReliability is used for any provider absent from the
// Aggregator's descriptor map — one not yet given a configured
// reliability prior.
const unratedProviderReliability = 0.88

// Aggregator queries every registered adapter concurrently, bounded by
// P in-flight calls, and returns a price/availability/latency/reliability
// scored list.
type Aggregator struct {
	registry  *adapter.Registry
	governor  *governor.Governor
	parallel  int
	weights   config.OptimizationSettings
	providers map[model.ProviderID]model.ProviderDescriptor
}

// New builds an Aggregator. providers supplies each provider's
// Data-Model-level ProviderDescriptor (notably its reliability score);
// a provider absent from the map scores unratedProviderReliability.
func New(registry *adapter.Registry, gov *governor.Governor, parallelQueries int, weights config.OptimizationSettings, providers map[model.ProviderID]model.ProviderDescriptor) *Aggregator {
	if parallelQueries <= 0 {
		parallelQueries = 6
	}
	return &Aggregator{
		registry:  registry,
		governor:  gov,
		parallel:  parallelQueries,
		weights:   weights,
		providers: providers,
	}
}

func (g *Aggregator) reliabilityOf(id model.ProviderID) float64 {
	if d, ok := g.providers[id]; ok {
		return d.Reliability
	}
	return unratedProviderReliability
}

type quoteTask struct {
	provider model.ProviderID
	a        adapter.Adapter
}

func toSet(ids []model.ProviderID) map[model.ProviderID]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[model.ProviderID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// GetQuotes queries every registered provider concurrently (bounded by
// Aggregator.parallel in-flight calls via a counting semaphore, not
// unbounded goroutines) and returns every successful quote, scored and
// sorted best-first. A provider that errors or times out is logged at
// DEBUG and simply contributes no quotes — one bad provider never
// fails the whole call.
func (g *Aggregator) GetQuotes(ctx context.Context, req adapter.QuoteRequest) ([]model.Quote, error) {
	adapters := g.registry.All()
	allowed := toSet(req.Providers)

	tasks := make([]quoteTask, 0, len(adapters))
	for _, a := range adapters {
		if allowed != nil && !allowed[a.ID()] {
			continue
		}
		tasks = append(tasks, quoteTask{provider: a.ID(), a: a})
	}

	sem := semaphore.NewWeighted(int64(g.parallel))
	resultsCh := make(chan []model.Quote, len(tasks))

	for _, t := range tasks {
		t := t
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		go func() {
			defer sem.Release(1)

			start := time.Now()
			var quotes []model.Quote
			err := g.governor.Execute(ctx, string(t.provider), "get_quotes", func(ctx context.Context) error {
				var innerErr error
				quotes, innerErr = t.a.GetQuotes(ctx, req)
				return innerErr
			})
			elapsed := time.Since(start)

			if err != nil {
				logging.Debug("quote provider failed", map[string]interface{}{
					"provider": string(t.provider),
					"error":    err,
					"duration": elapsed,
				})
				resultsCh <- nil
				return
			}
			metrics.QuotesReturnedTotal.WithLabelValues(string(t.provider)).Add(float64(len(quotes)))
			resultsCh <- quotes
		}()
	}

	// Wait for all in-flight tasks to finish by acquiring the full weight.
	if err := sem.Acquire(ctx, int64(g.parallel)); err != nil {
		return nil, err
	}
	sem.Release(int64(g.parallel))
	close(resultsCh)

	var all []model.Quote
	for qs := range resultsCh {
		all = append(all, qs...)
	}

	g.score(all)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].OptimizationScore > all[j].OptimizationScore
	})

	return all, nil
}

// priceAnchorUSDPerHour and latencyAnchorMS fix the scale price and
// latency scores fade against, so a quote's score depends only on its
// own fields — never on what else happened to be queried in the same
// batch.
const (
	priceAnchorUSDPerHour = 10.0
	latencyAnchorMS       = 1000.0
)

// score fills in OptimizationScore for each quote using the weighted
// price/availability/latency/reliability formula. Price and latency
// fade linearly to zero at their fixed anchors; availability is the
// quote's own Available flag, not its spot/on-demand kind; reliability
// comes from the provider's configured descriptor.
func (g *Aggregator) score(quotes []model.Quote) {
	for i := range quotes {
		q := &quotes[i]

		priceScore := 1.0 - q.PricePerHour/priceAnchorUSDPerHour
		if priceScore < 0 {
			priceScore = 0
		}

		availScore := 0.0
		if q.Available {
			availScore = 1.0
		}

		latencyScore := 1.0 - float64(q.LatencyMS)/latencyAnchorMS
		if latencyScore < 0 {
			latencyScore = 0
		}

		reliabilityScore := g.reliabilityOf(q.Provider)

		q.OptimizationScore = g.weights.PriceWeight*priceScore +
			g.weights.AvailabilityWeight*availScore +
			g.weights.LatencyWeight*latencyScore +
			g.weights.ReliabilityWeight*reliabilityScore
	}
}
