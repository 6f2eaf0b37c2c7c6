// Package azure adapts Azure Compute to adapter.Adapter using
// azidentity client-credential auth and the armcompute management SDK.
package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"

	"github.com/theoddden/terradev-broker/internal/adapter"
	"github.com/theoddden/terradev-broker/pkg/model"
)

type Adapter struct {
	vms               *armcompute.VirtualMachinesClient
	resourceGroup     string
	region            string
	subscriptionID    string
}

func New(tenantID, clientID, clientSecret, subscriptionID, resourceGroup, region string) (*Adapter, error) {
	cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("azure: client secret credential: %w", err)
	}

	vmClient, err := armcompute.NewVirtualMachinesClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure: build vm client: %w", err)
	}

	return &Adapter{
		vms:            vmClient,
		resourceGroup:  resourceGroup,
		region:         region,
		subscriptionID: subscriptionID,
	}, nil
}

func (a *Adapter) ID() model.ProviderID { return model.ProviderAzure }

type skuEntry struct {
	SKU       string
	GPUFamily model.GPUFamily
	GPUCount  int
	OnDemand  float64
}

var gpuSKUs = []skuEntry{
	{"Standard_NC24ads_A100_v4", model.GPUA100_80, 1, 3.67},
	{"Standard_ND96amsr_A100_v4", model.GPUA100, 8, 32.77},
	{"Standard_ND96isr_H100_v5", model.GPUH100, 8, 98.32},
	{"Standard_NC4as_T4_v3", model.GPUT4, 1, 0.526},
}

func (a *Adapter) GetQuotes(ctx context.Context, req adapter.QuoteRequest) ([]model.Quote, error) {
	out := make([]model.Quote, 0, len(gpuSKUs))
	for _, s := range gpuSKUs {
		if req.GPUFamily != "" && s.GPUFamily != req.GPUFamily {
			continue
		}
		price := s.OnDemand
		avail := model.OnDemand
		if req.Availability == model.Spot {
			price = s.OnDemand * 0.2
			avail = model.Spot
		}
		if req.MaxPricePerHr > 0 && price > req.MaxPricePerHr {
			continue
		}
		out = append(out, model.Quote{
			Provider:     model.ProviderAzure,
			InstanceType: s.SKU,
			GPUFamily:    s.GPUFamily,
			PricePerHour: price,
			Region:       a.region,
			Available:    true,
			Availability: avail,
			GPUCount:     s.GPUCount,
		})
	}
	return out, nil
}

// instanceNamePrefix is the prefix Provision gives every VM it creates;
// ListInstances filters on it so a shared resource group's unrelated
// VMs never show up as broker-managed.
const instanceNamePrefix = "terradev-"

func (a *Adapter) Provision(ctx context.Context, req adapter.ProvisionRequest) (adapter.ProvisionedInstance, error) {
	name := fmt.Sprintf("%s%s", instanceNamePrefix, req.Labels["group_id"])

	priority := armcompute.VirtualMachinePriorityTypesRegular
	if req.Availability == model.Spot {
		priority = armcompute.VirtualMachinePriorityTypesSpot
	}

	poller, err := a.vms.BeginCreateOrUpdate(ctx, a.resourceGroup, name, armcompute.VirtualMachine{
		Location: to.Ptr(a.region),
		Properties: &armcompute.VirtualMachineProperties{
			HardwareProfile: &armcompute.HardwareProfile{
				VMSize: to.Ptr(armcompute.VirtualMachineSizeTypes(req.InstanceType)),
			},
			Priority: to.Ptr(priority),
			StorageProfile: &armcompute.StorageProfile{
				ImageReference: &armcompute.ImageReference{ID: to.Ptr(req.Image)},
			},
		},
	}, nil)
	if err != nil {
		return adapter.ProvisionedInstance{}, fmt.Errorf("azure: begin create vm: %w", err)
	}
	_ = poller

	return adapter.ProvisionedInstance{InstanceID: name, Status: model.StatusActive}, nil
}

func (a *Adapter) Status(ctx context.Context, instanceID string) (adapter.InstanceInfo, error) {
	resp, err := a.vms.Get(ctx, a.resourceGroup, instanceID, nil)
	if err != nil {
		return adapter.InstanceInfo{}, fmt.Errorf("azure: get vm: %w", err)
	}
	status := "unknown"
	if resp.Properties != nil && resp.Properties.ProvisioningState != nil {
		status = *resp.Properties.ProvisioningState
	}
	return adapter.InstanceInfo{InstanceID: instanceID, Status: status, Region: a.region}, nil
}

func (a *Adapter) Stop(ctx context.Context, instanceID string) error {
	poller, err := a.vms.BeginDeallocate(ctx, a.resourceGroup, instanceID, nil)
	if err != nil {
		return fmt.Errorf("azure: begin deallocate: %w", err)
	}
	_ = poller
	return nil
}

func (a *Adapter) Start(ctx context.Context, instanceID string) error {
	poller, err := a.vms.BeginStart(ctx, a.resourceGroup, instanceID, nil)
	if err != nil {
		return fmt.Errorf("azure: begin start: %w", err)
	}
	_ = poller
	return nil
}

func (a *Adapter) Terminate(ctx context.Context, instanceID string) error {
	poller, err := a.vms.BeginDelete(ctx, a.resourceGroup, instanceID, nil)
	if err != nil {
		return fmt.Errorf("azure: begin delete: %w", err)
	}
	_ = poller
	return nil
}

func (a *Adapter) ListInstances(ctx context.Context) ([]adapter.InstanceInfo, error) {
	var out []adapter.InstanceInfo
	pager := a.vms.NewListPager(a.resourceGroup, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("azure: list vms: %w", err)
		}
		for _, vm := range page.Value {
			if vm.Name == nil || !strings.HasPrefix(*vm.Name, instanceNamePrefix) {
				continue
			}
			status := "unknown"
			if vm.Properties != nil && vm.Properties.ProvisioningState != nil {
				status = *vm.Properties.ProvisioningState
			}
			out = append(out, adapter.InstanceInfo{InstanceID: *vm.Name, Status: status, Region: a.region})
		}
	}
	return out, nil
}

// ExecuteCommand would route through RunCommand (VirtualMachinesClient.
// BeginRunCommand); not wired since it needs a run-command-enabled
// image and is not exercised by the end-to-end scenarios this broker
// targets.
func (a *Adapter) ExecuteCommand(ctx context.Context, instanceID, command string) (adapter.CommandResult, error) {
	return adapter.CommandResult{}, fmt.Errorf("azure: execute_command requires VirtualMachinesClient.BeginRunCommand: %w", adapter.ErrExecuteCommandNotWired)
}
