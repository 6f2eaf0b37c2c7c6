// Package gcp adapts Google Compute Engine to adapter.Adapter, using a
// service-account JSON key for OAuth2 via golang.org/x/oauth2/google
// and the generated google.golang.org/api/compute/v1 client.
package gcp

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/option"

	"github.com/theoddden/terradev-broker/internal/adapter"
	"github.com/theoddden/terradev-broker/pkg/model"
)

type Adapter struct {
	compute   *compute.Service
	projectID string
	zone      string
}

func New(ctx context.Context, serviceAccountJSON []byte, projectID, zone string) (*Adapter, error) {
	creds, err := google.CredentialsFromJSON(ctx, serviceAccountJSON, compute.ComputeScope)
	if err != nil {
		return nil, fmt.Errorf("gcp: parse service account: %w", err)
	}

	svc, err := compute.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("gcp: build compute service: %w", err)
	}

	return &Adapter{compute: svc, projectID: projectID, zone: zone}, nil
}

func (a *Adapter) ID() model.ProviderID { return model.ProviderGCP }

type machineEntry struct {
	MachineType string
	GPUType     string
	GPUFamily   model.GPUFamily
	GPUCount    int
	OnDemand    float64
}

var gpuMachines = []machineEntry{
	{"a2-highgpu-1g", "nvidia-tesla-a100", model.GPUA100, 1, 3.67},
	{"a2-ultragpu-1g", "nvidia-tesla-a100", model.GPUA100_80, 1, 5.06},
	{"a3-highgpu-8g", "nvidia-h100-80gb", model.GPUH100, 8, 88.46},
	{"n1-standard-4-t4", "nvidia-tesla-t4", model.GPUT4, 1, 0.35},
}

func (a *Adapter) GetQuotes(ctx context.Context, req adapter.QuoteRequest) ([]model.Quote, error) {
	out := make([]model.Quote, 0, len(gpuMachines))
	for _, m := range gpuMachines {
		if req.GPUFamily != "" && m.GPUFamily != req.GPUFamily {
			continue
		}
		price := m.OnDemand
		avail := model.OnDemand
		if req.Availability == model.Spot {
			price = m.OnDemand * 0.4
			avail = model.Spot
		}
		if req.MaxPricePerHr > 0 && price > req.MaxPricePerHr {
			continue
		}
		out = append(out, model.Quote{
			Provider:     model.ProviderGCP,
			InstanceType: m.MachineType,
			GPUFamily:    m.GPUFamily,
			PricePerHour: price,
			Region:       a.zone,
			Available:    true,
			Availability: avail,
			GPUCount:     m.GPUCount,
		})
	}
	return out, nil
}

// instanceNamePrefix is the prefix Provision gives every instance it
// creates; ListInstances filters on it so a project's unrelated GCE
// fleet never shows up as broker-managed.
const instanceNamePrefix = "terradev-"

func (a *Adapter) Provision(ctx context.Context, req adapter.ProvisionRequest) (adapter.ProvisionedInstance, error) {
	name := fmt.Sprintf("%s%s", instanceNamePrefix, req.Labels["group_id"])
	inst := &compute.Instance{
		Name:        name,
		MachineType: fmt.Sprintf("zones/%s/machineTypes/%s", a.zone, req.InstanceType),
		Disks: []*compute.AttachedDisk{{
			Boot:       true,
			AutoDelete: true,
			InitializeParams: &compute.AttachedDiskInitializeParams{
				SourceImage: req.Image,
			},
		}},
		NetworkInterfaces: []*compute.NetworkInterface{{Network: "global/networks/default"}},
	}
	if req.Availability == model.Spot {
		inst.Scheduling = &compute.Scheduling{Preemptible: true}
	}

	op, err := a.compute.Instances.Insert(a.projectID, a.zone, inst).Context(ctx).Do()
	if err != nil {
		return adapter.ProvisionedInstance{}, fmt.Errorf("gcp: insert instance: %w", err)
	}
	_ = op

	return adapter.ProvisionedInstance{InstanceID: name, Status: model.StatusActive}, nil
}

func (a *Adapter) Status(ctx context.Context, instanceID string) (adapter.InstanceInfo, error) {
	inst, err := a.compute.Instances.Get(a.projectID, a.zone, instanceID).Context(ctx).Do()
	if err != nil {
		return adapter.InstanceInfo{}, fmt.Errorf("gcp: get instance: %w", err)
	}
	return adapter.InstanceInfo{InstanceID: instanceID, Status: inst.Status, Region: a.zone}, nil
}

func (a *Adapter) Stop(ctx context.Context, instanceID string) error {
	_, err := a.compute.Instances.Stop(a.projectID, a.zone, instanceID).Context(ctx).Do()
	return err
}

func (a *Adapter) Start(ctx context.Context, instanceID string) error {
	_, err := a.compute.Instances.Start(a.projectID, a.zone, instanceID).Context(ctx).Do()
	return err
}

func (a *Adapter) Terminate(ctx context.Context, instanceID string) error {
	_, err := a.compute.Instances.Delete(a.projectID, a.zone, instanceID).Context(ctx).Do()
	return err
}

func (a *Adapter) ListInstances(ctx context.Context) ([]adapter.InstanceInfo, error) {
	list, err := a.compute.Instances.List(a.projectID, a.zone).
		Filter(fmt.Sprintf("name eq '^%s.*'", instanceNamePrefix)).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gcp: list instances: %w", err)
	}
	out := make([]adapter.InstanceInfo, 0, len(list.Items))
	for _, inst := range list.Items {
		out = append(out, adapter.InstanceInfo{InstanceID: inst.Name, Status: inst.Status, Region: a.zone})
	}
	return out, nil
}

// ExecuteCommand would route through OS Login + IAP TCP forwarding or
// the guest agent's RunCommand equivalent; not wired here, same
// rationale as the AWS SSM and Oracle Instance Agent adapters.
func (a *Adapter) ExecuteCommand(ctx context.Context, instanceID, command string) (adapter.CommandResult, error) {
	return adapter.CommandResult{}, fmt.Errorf("gcp: execute_command requires OS Login/IAP: %w", adapter.ErrExecuteCommandNotWired)
}
