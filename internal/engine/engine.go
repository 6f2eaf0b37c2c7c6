// Package engine composes quote aggregation, allocation, provisioning
// and dataset staging into the broker's five public operations.
// Grounded on cmd/server/main.go's wiring and
// helpers/manager/csp_manager.go's instance-prefix dispatch.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/theoddden/terradev-broker/internal/adapter"
	"github.com/theoddden/terradev-broker/internal/allocate"
	"github.com/theoddden/terradev-broker/internal/metrics"
	"github.com/theoddden/terradev-broker/internal/provision"
	"github.com/theoddden/terradev-broker/internal/quote"
	"github.com/theoddden/terradev-broker/internal/stage"
	"github.com/theoddden/terradev-broker/pkg/model"
)

// ErrUnsupportedProvider is returned by ManageInstance/ExecuteCommand
// when an instance id's prefix doesn't match any registered provider.
var ErrUnsupportedProvider = errors.New("engine: instance id prefix matches no registered provider")

// Action is one of the lifecycle verbs ManageInstance dispatches.
type Action string

const (
	ActionStatus    Action = "status"
	ActionStop      Action = "stop"
	ActionStart     Action = "start"
	ActionTerminate Action = "terminate"
)

// Engine is the thin composition root the broker's external
// interfaces (CLI, REST) drive.
type Engine struct {
	registry    *adapter.Registry
	aggregator  *quote.Aggregator
	allocator   *allocate.Allocator
	provisioner *provision.Provisioner
	stager      *stage.Stager

	sshUser, sshKeyPath, sshKnownHostsPath string
}

// Option configures optional Engine behavior.
type Option func(*Engine)

// WithSSHFallback supplies the credentials ExecuteCommand uses when an
// Adapter has no native run-command facility.
func WithSSHFallback(user, keyPath, knownHostsPath string) Option {
	return func(e *Engine) {
		e.sshUser = user
		e.sshKeyPath = keyPath
		e.sshKnownHostsPath = knownHostsPath
	}
}

func New(registry *adapter.Registry, aggregator *quote.Aggregator, allocator *allocate.Allocator, provisioner *provision.Provisioner, stager *stage.Stager, opts ...Option) *Engine {
	e := &Engine{
		registry:    registry,
		aggregator:  aggregator,
		allocator:   allocator,
		provisioner: provisioner,
		stager:      stager,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetQuotesRequest mirrors §6's get_quotes inputs.
type GetQuotesRequest struct {
	GPUFamily     model.GPUFamily
	Region        string
	Providers     []model.ProviderID
	Availability  model.AvailabilityKind
	MaxPricePerHr float64
}

// GetQuotes is a direct pass-through to the Aggregator.
func (e *Engine) GetQuotes(ctx context.Context, req GetQuotesRequest) ([]model.Quote, error) {
	qreq := adapter.QuoteRequest{
		GPUFamily:     req.GPUFamily,
		Regions:       regionsOf(req.Region),
		Availability:  req.Availability,
		MaxPricePerHr: req.MaxPricePerHr,
		Providers:     req.Providers,
	}
	return e.aggregator.GetQuotes(ctx, qreq)
}

func regionsOf(region string) []string {
	if region == "" {
		return nil
	}
	return []string{region}
}

// ProvisionRequest mirrors §6's provision inputs.
type ProvisionRequest struct {
	GPUFamily       model.GPUFamily
	Count           int
	MaxPricePerHour float64
	Region          string
	Providers       []model.ProviderID
	Concurrency     int
	DryRun          bool
}

// Provision runs the full quote → allocate → provision pipeline. When
// DryRun is set, quotes are still fetched from the adapters but no
// Adapter's Provision is called: synthetic active outcomes are derived
// directly from the allocation with instance ids prefixed
// mock_<provider>_<hex>.
func (e *Engine) Provision(ctx context.Context, req ProvisionRequest) (model.ProvisionResult, error) {
	start := time.Now()

	if req.Count < 1 {
		return model.ProvisionResult{
			Success:          false,
			TotalTimeSeconds: time.Since(start).Seconds(),
			Errors:           []string{"No suitable instances found"},
		}, nil
	}

	quotes, err := e.GetQuotes(ctx, GetQuotesRequest{
		GPUFamily:     req.GPUFamily,
		Region:        req.Region,
		Providers:     req.Providers,
		MaxPricePerHr: req.MaxPricePerHour,
	})
	if err != nil {
		return model.ProvisionResult{
			Success:          false,
			TotalTimeSeconds: time.Since(start).Seconds(),
			Errors:           []string{err.Error()},
		}, nil
	}

	alloc, relaxed, err := e.allocator.Allocate(quotes, req.Count, req.MaxPricePerHour)
	if err != nil {
		return model.ProvisionResult{
			Success:          false,
			TotalTimeSeconds: time.Since(start).Seconds(),
			Errors:           []string{err.Error()},
		}, nil
	}
	if relaxed {
		metrics.AllocationRelaxedTotal.Inc()
	}
	if len(alloc) == 0 {
		return model.ProvisionResult{
			Success:          false,
			TotalTimeSeconds: time.Since(start).Seconds(),
			Errors:           []string{"No suitable instances found"},
		}, nil
	}

	if req.DryRun {
		return e.dryRunProvision(alloc, start), nil
	}

	result, err := e.provisioner.Provision(ctx, alloc, req.Concurrency)
	if err != nil {
		return model.ProvisionResult{}, err
	}
	return result, nil
}

func (e *Engine) dryRunProvision(alloc model.Allocation, start time.Time) model.ProvisionResult {
	instances := make([]model.ProvisionOutcome, len(alloc))
	var total float64
	for i, entry := range alloc {
		instances[i] = model.ProvisionOutcome{
			Provider:     entry.Provider,
			Region:       entry.Region,
			InstanceID:   fmt.Sprintf("mock_%s_%s", entry.Provider, uuid.NewString()[:8]),
			GPUFamily:    entry.GPUFamily,
			PricePerHour: entry.PricePerHour,
			Spot:         entry.Availability == model.Spot,
			Status:       model.StatusActive,
		}
		total += entry.PricePerHour
	}

	baseline := provision.DefaultBaselinePricePerHour * float64(len(instances))
	savings := baseline - total
	if savings < 0 {
		savings = 0
	}
	savingsPercent := 0.0
	if baseline > 0 {
		savingsPercent = (savings / baseline) * 100
	}

	return model.ProvisionResult{
		Success:   true,
		Instances: instances,
		Cost: model.CostAnalysis{
			TotalCostPerHour:        total,
			BaselinePerHour:         baseline,
			EstimatedSavings:        savings,
			EstimatedSavingsPercent: savingsPercent,
			MonthlySavings:          savings * 24 * 30,
		},
		TotalTimeSeconds: time.Since(start).Seconds(),
	}
}

// StageDataset is a direct pass-through to the Stager.
func (e *Engine) StageDataset(ctx context.Context, datasetRef string, regions []string, codec model.CompressionCodec) (model.StagingResult, error) {
	return e.stager.Stage(ctx, datasetRef, regions, codec)
}

// ManageInstance dispatches status/stop/start/terminate to the Adapter
// inferred from instanceID's provider prefix.
func (e *Engine) ManageInstance(ctx context.Context, instanceID string, action Action) (adapter.InstanceInfo, error) {
	a, err := e.adapterFor(instanceID)
	if err != nil {
		return adapter.InstanceInfo{}, err
	}

	switch action {
	case ActionStatus:
		return a.Status(ctx, instanceID)
	case ActionStop:
		if err := a.Stop(ctx, instanceID); err != nil {
			return adapter.InstanceInfo{}, err
		}
	case ActionStart:
		if err := a.Start(ctx, instanceID); err != nil {
			return adapter.InstanceInfo{}, err
		}
	case ActionTerminate:
		if err := a.Terminate(ctx, instanceID); err != nil {
			return adapter.InstanceInfo{}, err
		}
	default:
		return adapter.InstanceInfo{}, fmt.Errorf("engine: unknown action %q", action)
	}
	return a.Status(ctx, instanceID)
}

// ExecuteCommand dispatches to the Adapter inferred from instanceID's
// provider prefix, falling back to SSH when the Adapter reports it has
// no native run-command facility.
func (e *Engine) ExecuteCommand(ctx context.Context, instanceID, command string) (adapter.CommandResult, error) {
	a, err := e.adapterFor(instanceID)
	if err != nil {
		return adapter.CommandResult{}, err
	}

	result, err := a.ExecuteCommand(ctx, instanceID, command)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, adapter.ErrExecuteCommandNotWired) {
		return adapter.CommandResult{}, err
	}
	return e.sshFallback(ctx, a, instanceID, command)
}

// adapterFor resolves an instance id's provider by its "<provider>_"
// prefix against every registered adapter id, matching the Python
// original's prefix dispatch.
func (e *Engine) adapterFor(instanceID string) (adapter.Adapter, error) {
	for _, id := range e.registry.IDs() {
		if strings.HasPrefix(instanceID, string(id)+"_") {
			return e.registry.Get(id)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, instanceID)
}
