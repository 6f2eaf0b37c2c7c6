// Package provision issues a batch of provision calls in parallel,
// bounded by a counting semaphore, and rolls the results up into a
// cost analysis. Grounded on
// original_source/terradev_cli/core/parallel_provisioner.py's
// provision_parallel/_provision_one and terradev_engine.py's
// _analyze_costs.
package provision

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/theoddden/terradev-broker/internal/adapter"
	"github.com/theoddden/terradev-broker/internal/governor"
	"github.com/theoddden/terradev-broker/internal/logging"
	"github.com/theoddden/terradev-broker/internal/metrics"
	"github.com/theoddden/terradev-broker/pkg/model"
)

// DefaultBaselinePricePerHour is the conservative "typical single-cloud
// on-demand" reference price used in the cost-savings comparison absent
// a richer baseline source.
const DefaultBaselinePricePerHour = 2.00

// Provisioner issues N provision calls concurrently, bounded by K
// in-flight calls, each wrapped by the Governor.
type Provisioner struct {
	registry *adapter.Registry
	governor *governor.Governor
	baseline float64
}

func New(registry *adapter.Registry, gov *governor.Governor) *Provisioner {
	return &Provisioner{registry: registry, governor: gov, baseline: DefaultBaselinePricePerHour}
}

// task pairs an allocation entry with its position in the allocation.
// Results complete out of order and are collected in completion order.
type task struct {
	index int
	entry model.AllocationEntry
}

// Provision brings up every entry in alloc concurrently, bounded by k
// in-flight calls (k<=0 defaults to 6), and returns the aggregate
// result. No single entry's failure aborts the others; a failed entry
// simply reports status=failed with its error captured inline.
func (p *Provisioner) Provision(ctx context.Context, alloc model.Allocation, k int) (model.ProvisionResult, error) {
	if k <= 0 {
		k = 6
	}
	groupID, err := newGroupID()
	if err != nil {
		return model.ProvisionResult{}, err
	}

	start := time.Now()

	tasks := make([]task, len(alloc))
	for i, e := range alloc {
		tasks[i] = task{index: i, entry: e}
	}

	sem := semaphore.NewWeighted(int64(k))
	resultsCh := make(chan model.ProvisionOutcome, len(tasks))

	for _, t := range tasks {
		t := t
		if err := sem.Acquire(ctx, 1); err != nil {
			resultsCh <- model.ProvisionOutcome{
				Provider:     t.entry.Provider,
				Region:       t.entry.Region,
				GPUFamily:    t.entry.GPUFamily,
				PricePerHour: t.entry.PricePerHour,
				Spot:         t.entry.Availability == model.Spot,
				Status:       model.StatusFailed,
				Error:        err.Error(),
			}
			continue
		}
		go func() {
			defer sem.Release(1)
			resultsCh <- p.provisionOne(ctx, groupID, t.entry)
		}()
	}

	if err := sem.Acquire(ctx, int64(k)); err != nil {
		return model.ProvisionResult{}, err
	}
	sem.Release(int64(k))
	close(resultsCh)

	instances := make([]model.ProvisionOutcome, 0, len(tasks))
	var errs []string
	for out := range resultsCh {
		instances = append(instances, out)
		metrics.ProvisionOutcomesTotal.WithLabelValues(string(out.Provider), string(out.Status)).Inc()
		if out.Status == model.StatusFailed {
			errs = append(errs, fmt.Sprintf("%s: %s", out.Provider, out.Error))
		}
	}

	cost := p.analyzeCosts(instances)
	metrics.ProvisionBatchCostPerHour.Set(cost.TotalCostPerHour)

	result := model.ProvisionResult{
		GroupID:          groupID,
		Success:          len(instances) > 0 && len(errs) < len(instances),
		Instances:        instances,
		Cost:             cost,
		TotalTimeSeconds: time.Since(start).Seconds(),
		Errors:           errs,
	}
	return result, nil
}

// provisionOne never returns an error; any failure is captured inline
// on the returned outcome so one bad instance can't abort the batch.
func (p *Provisioner) provisionOne(ctx context.Context, groupID string, e model.AllocationEntry) model.ProvisionOutcome {
	start := time.Now()

	a, err := p.registry.Get(e.Provider)
	if err != nil {
		return model.ProvisionOutcome{
			Provider:     e.Provider,
			Region:       e.Region,
			GPUFamily:    e.GPUFamily,
			PricePerHour: e.PricePerHour,
			Spot:         e.Availability == model.Spot,
			Status:       model.StatusFailed,
			Error:        err.Error(),
			ElapsedMS:    float64(time.Since(start).Milliseconds()),
		}
	}

	req := adapter.ProvisionRequest{
		InstanceType: e.InstanceType,
		Region:       e.Region,
		GPUFamily:    e.GPUFamily,
		GPUCount:     1,
		Availability: e.Availability,
	}

	var inst adapter.ProvisionedInstance
	provErr := p.governor.Execute(ctx, string(e.Provider), "provision", func(ctx context.Context) error {
		var innerErr error
		inst, innerErr = a.Provision(ctx, req)
		return innerErr
	})

	elapsed := time.Since(start)
	logging.LogTask("provision", string(e.Provider), groupID, float64(elapsed.Milliseconds()), provErr)

	if provErr != nil {
		return model.ProvisionOutcome{
			Provider:     e.Provider,
			Region:       e.Region,
			GPUFamily:    e.GPUFamily,
			PricePerHour: e.PricePerHour,
			Spot:         e.Availability == model.Spot,
			Status:       model.StatusFailed,
			Error:        provErr.Error(),
			ElapsedMS:    float64(elapsed.Milliseconds()),
		}
	}

	price := inst.PricePerHour
	if price == 0 {
		price = e.PricePerHour
	}
	return model.ProvisionOutcome{
		Provider:     e.Provider,
		Region:       e.Region,
		InstanceID:   inst.InstanceID,
		GPUFamily:    e.GPUFamily,
		PricePerHour: price,
		Spot:         e.Availability == model.Spot,
		Status:       model.StatusActive,
		ElapsedMS:    float64(elapsed.Milliseconds()),
	}
}

// analyzeCosts rolls up active instances' hourly price against the
// fixed per-instance baseline, exactly per terradev_engine.py's
// _analyze_costs.
func (p *Provisioner) analyzeCosts(instances []model.ProvisionOutcome) model.CostAnalysis {
	var total float64
	active := 0
	for _, inst := range instances {
		if inst.Status == model.StatusActive {
			total += inst.PricePerHour
			active++
		}
	}

	baseline := p.baseline * float64(len(instances))
	savings := baseline - total
	if savings < 0 {
		savings = 0
	}
	savingsPercent := 0.0
	if baseline > 0 {
		savingsPercent = (savings / baseline) * 100
	}

	return model.CostAnalysis{
		TotalCostPerHour:        total,
		BaselinePerHour:         baseline,
		EstimatedSavings:        savings,
		EstimatedSavingsPercent: savingsPercent,
		MonthlySavings:          savings * 24 * 30,
	}
}

func newGroupID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "pg_" + hex.EncodeToString(buf), nil
}
