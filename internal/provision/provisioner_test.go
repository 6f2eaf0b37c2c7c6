package provision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoddden/terradev-broker/internal/adapter"
	"github.com/theoddden/terradev-broker/internal/config"
	"github.com/theoddden/terradev-broker/internal/governor"
	"github.com/theoddden/terradev-broker/pkg/model"
)

// fakeAdapter provisions instantly, succeeding unless failProvision is set.
type fakeAdapter struct {
	id            model.ProviderID
	failProvision bool
	price         float64
}

func (f *fakeAdapter) ID() model.ProviderID { return f.id }
func (f *fakeAdapter) GetQuotes(ctx context.Context, req adapter.QuoteRequest) ([]model.Quote, error) {
	return nil, nil
}
func (f *fakeAdapter) Provision(ctx context.Context, req adapter.ProvisionRequest) (adapter.ProvisionedInstance, error) {
	if f.failProvision {
		return adapter.ProvisionedInstance{}, errors.New("capacity exhausted")
	}
	return adapter.ProvisionedInstance{InstanceID: "inst-" + string(f.id), Status: model.StatusActive, PricePerHour: f.price}, nil
}
func (f *fakeAdapter) Status(ctx context.Context, instanceID string) (adapter.InstanceInfo, error) {
	return adapter.InstanceInfo{}, nil
}
func (f *fakeAdapter) Stop(ctx context.Context, instanceID string) error      { return nil }
func (f *fakeAdapter) Start(ctx context.Context, instanceID string) error     { return nil }
func (f *fakeAdapter) Terminate(ctx context.Context, instanceID string) error { return nil }
func (f *fakeAdapter) ListInstances(ctx context.Context) ([]adapter.InstanceInfo, error) {
	return nil, nil
}
func (f *fakeAdapter) ExecuteCommand(ctx context.Context, instanceID, command string) (adapter.CommandResult, error) {
	return adapter.CommandResult{}, adapter.ErrExecuteCommandNotWired
}

func testGovernor() *governor.Governor {
	return governor.New(config.GovernorConfig{
		GlobalRequestsPerMinute: 6000,
		ProviderLimits: map[string]config.ProviderRateLimit{
			"aws": {RequestsPerSecond: 1000, RequestsPerMinute: 60000, BurstLimit: 1000, RetryAttempts: 0, BackoffFactor: 1, Timeout: 5 * time.Second},
			"gcp": {RequestsPerSecond: 1000, RequestsPerMinute: 60000, BurstLimit: 1000, RetryAttempts: 0, BackoffFactor: 1, Timeout: 5 * time.Second},
		},
	})
}

func TestProvision_AllSucceed(t *testing.T) {
	reg := adapter.NewRegistry()
	reg.Register(&fakeAdapter{id: "aws", price: 1.0})
	reg.Register(&fakeAdapter{id: "gcp", price: 1.5})

	p := New(reg, testGovernor())
	alloc := model.Allocation{
		{Provider: "aws", InstanceType: "a", Region: "us-east-1", PricePerHour: 1.0},
		{Provider: "gcp", InstanceType: "b", Region: "us-east-1", PricePerHour: 1.5},
	}

	result, err := p.Provision(context.Background(), alloc, 2)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, result.Instances, 2)
	assert.Equal(t, 2, result.ActiveCount())
	assert.Empty(t, result.Errors)
	assert.NotEmpty(t, result.GroupID)
}

func TestProvision_PartialFailureDoesNotAbortBatch(t *testing.T) {
	reg := adapter.NewRegistry()
	reg.Register(&fakeAdapter{id: "aws", price: 1.0})
	reg.Register(&fakeAdapter{id: "gcp", failProvision: true})

	p := New(reg, testGovernor())
	alloc := model.Allocation{
		{Provider: "aws", InstanceType: "a", Region: "us-east-1", PricePerHour: 1.0},
		{Provider: "gcp", InstanceType: "b", Region: "us-east-1", PricePerHour: 1.5},
	}

	result, err := p.Provision(context.Background(), alloc, 2)
	require.NoError(t, err)
	assert.Len(t, result.Instances, 2)
	assert.Equal(t, 1, result.ActiveCount())
	assert.Len(t, result.Errors, 1)
	assert.True(t, result.Success, "one active instance out of two is still a partial success")
}

func TestProvision_UnsupportedProviderFailsThatEntryOnly(t *testing.T) {
	reg := adapter.NewRegistry()
	reg.Register(&fakeAdapter{id: "aws", price: 1.0})

	p := New(reg, testGovernor())
	alloc := model.Allocation{
		{Provider: "aws", InstanceType: "a", Region: "us-east-1", PricePerHour: 1.0},
		{Provider: "not-registered", InstanceType: "b", Region: "us-east-1", PricePerHour: 1.5},
	}

	result, err := p.Provision(context.Background(), alloc, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ActiveCount())
	assert.Len(t, result.Errors, 1)
}

func TestProvision_DefaultsConcurrencyWhenNonPositive(t *testing.T) {
	reg := adapter.NewRegistry()
	reg.Register(&fakeAdapter{id: "aws", price: 1.0})

	p := New(reg, testGovernor())
	alloc := model.Allocation{{Provider: "aws", InstanceType: "a", Region: "us-east-1", PricePerHour: 1.0}}

	result, err := p.Provision(context.Background(), alloc, 0)
	require.NoError(t, err)
	assert.Len(t, result.Instances, 1)
}

func TestProvision_CostAnalysisAgainstBaseline(t *testing.T) {
	reg := adapter.NewRegistry()
	reg.Register(&fakeAdapter{id: "aws", price: 1.0})
	reg.Register(&fakeAdapter{id: "gcp", price: 1.0})

	p := New(reg, testGovernor())
	alloc := model.Allocation{
		{Provider: "aws", InstanceType: "a", Region: "us-east-1", PricePerHour: 1.0},
		{Provider: "gcp", InstanceType: "b", Region: "us-east-1", PricePerHour: 1.0},
	}

	result, err := p.Provision(context.Background(), alloc, 2)
	require.NoError(t, err)

	wantBaseline := DefaultBaselinePricePerHour * 2
	assert.InDelta(t, wantBaseline, result.Cost.BaselinePerHour, 1e-9)
	assert.InDelta(t, 2.0, result.Cost.TotalCostPerHour, 1e-9)
	assert.InDelta(t, wantBaseline-2.0, result.Cost.EstimatedSavings, 1e-9)
	assert.InDelta(t, result.Cost.EstimatedSavings*24*30, result.Cost.MonthlySavings, 1e-6)
}

func TestProvision_EmptyAllocationYieldsZeroCostNoDivideByZero(t *testing.T) {
	reg := adapter.NewRegistry()
	p := New(reg, testGovernor())

	result, err := p.Provision(context.Background(), nil, 2)
	require.NoError(t, err)
	assert.Empty(t, result.Instances)
	assert.False(t, result.Success)
	assert.Zero(t, result.Cost.BaselinePerHour)
	assert.Zero(t, result.Cost.EstimatedSavingsPercent)
}
