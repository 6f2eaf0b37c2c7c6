// Package demo provides a synthetic, offline adapter used for local
// development without real credentials. Dry-run provisioning does not
// go through it; the engine builds dry-run outcomes itself.
package demo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/theoddden/terradev-broker/internal/adapter"
	"github.com/theoddden/terradev-broker/pkg/model"
)

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

func (a *Adapter) ID() model.ProviderID { return model.ProviderDemo }

var catalog = []model.Quote{
	{InstanceType: "demo.a100.1x", GPUFamily: model.GPUA100, PricePerHour: 1.89, Region: "us-east-1", GPUCount: 1, VCPU: 8, MemoryGB: 64},
	{InstanceType: "demo.h100.1x", GPUFamily: model.GPUH100, PricePerHour: 3.49, Region: "us-west-1", GPUCount: 1, VCPU: 16, MemoryGB: 128},
	{InstanceType: "demo.t4.1x", GPUFamily: model.GPUT4, PricePerHour: 0.35, Region: "eu-west-1", GPUCount: 1, VCPU: 4, MemoryGB: 16},
}

func (a *Adapter) GetQuotes(ctx context.Context, req adapter.QuoteRequest) ([]model.Quote, error) {
	out := make([]model.Quote, 0, len(catalog))
	for _, q := range catalog {
		if req.GPUFamily != "" && q.GPUFamily != req.GPUFamily {
			continue
		}
		if req.MaxPricePerHr > 0 && q.PricePerHour > req.MaxPricePerHr {
			continue
		}
		q.Provider = model.ProviderDemo
		q.Available = true
		q.Availability = model.OnDemand
		q.DemoMode = true
		out = append(out, q)
	}
	return out, nil
}

func (a *Adapter) Provision(ctx context.Context, req adapter.ProvisionRequest) (adapter.ProvisionedInstance, error) {
	return adapter.ProvisionedInstance{
		InstanceID: fmt.Sprintf("mock_demo_%s", uuid.NewString()[:8]),
		Status:     model.StatusActive,
	}, nil
}

func (a *Adapter) Status(ctx context.Context, instanceID string) (adapter.InstanceInfo, error) {
	return adapter.InstanceInfo{InstanceID: instanceID, Status: "active"}, nil
}

func (a *Adapter) Stop(ctx context.Context, instanceID string) error      { return nil }
func (a *Adapter) Start(ctx context.Context, instanceID string) error     { return nil }
func (a *Adapter) Terminate(ctx context.Context, instanceID string) error { return nil }

func (a *Adapter) ListInstances(ctx context.Context) ([]adapter.InstanceInfo, error) {
	return nil, nil
}

func (a *Adapter) ExecuteCommand(ctx context.Context, instanceID, command string) (adapter.CommandResult, error) {
	return adapter.CommandResult{ExitCode: 0, Stdout: "demo mode: command not actually executed"}, nil
}
