// Package vastai adapts the Vast.ai marketplace API to adapter.Adapter.
// Grounded directly on helpers/vastai/client.go: the bundles/asks
// request shapes and bearer-token auth are kept, generalized from a
// single List/Reserve/Status/Release surface to the full lifecycle.
package vastai

import (
	"context"
	"fmt"
	"strconv"

	"github.com/theoddden/terradev-broker/internal/adapter"
	"github.com/theoddden/terradev-broker/internal/adapter/restgpu"
	"github.com/theoddden/terradev-broker/pkg/model"
)

const defaultBaseURL = "https://console.vast.ai/api/v0"

type Adapter struct {
	client *restgpu.Client
}

func New(apiKey string) *Adapter {
	return &Adapter{
		client: restgpu.NewClient(defaultBaseURL, "Authorization", "Bearer "+apiKey),
	}
}

func (a *Adapter) ID() model.ProviderID { return model.ProviderVastAI }

type bundle struct {
	ID           int     `json:"id"`
	GPUName      string  `json:"gpu_name"`
	NumGPUs      int     `json:"num_gpus"`
	GPURAMTotal  int     `json:"gpu_ram"`
	DPHBase      float64 `json:"dph_base"`
	Geolocation  string  `json:"geolocation"`
	PublicIPAddr string  `json:"public_ipaddr"`
	Rentable     bool    `json:"rentable"`
}

func (a *Adapter) GetQuotes(ctx context.Context, req adapter.QuoteRequest) ([]model.Quote, error) {
	var bundles []bundle
	if err := a.client.DoJSON(ctx, "GET", "/bundles", nil, &bundles); err != nil {
		return nil, fmt.Errorf("vastai: list bundles: %w", err)
	}

	quotes := make([]model.Quote, 0, len(bundles))
	for _, b := range bundles {
		if !b.Rentable {
			continue
		}
		if req.MaxPricePerHr > 0 && b.DPHBase > req.MaxPricePerHr {
			continue
		}
		quotes = append(quotes, model.Quote{
			Provider:     model.ProviderVastAI,
			InstanceType: strconv.Itoa(b.ID),
			GPUFamily:    normalizeGPU(b.GPUName),
			PricePerHour: b.DPHBase,
			Region:       b.Geolocation,
			Available:    true,
			Availability: model.Spot,
			GPUCount:     b.NumGPUs,
			MemoryGB:     b.GPURAMTotal / 1024,
		})
	}
	return quotes, nil
}

func normalizeGPU(name string) model.GPUFamily {
	switch {
	case contains(name, "A100-80"), contains(name, "A100 80"):
		return model.GPUA100_80
	case contains(name, "A100"):
		return model.GPUA100
	case contains(name, "H100"):
		return model.GPUH100
	case contains(name, "V100"):
		return model.GPUV100
	case contains(name, "T4"):
		return model.GPUT4
	case contains(name, "L40"):
		return model.GPUL40
	case contains(name, "A10G"):
		return model.GPUA10G
	case contains(name, "4090"):
		return model.GPURTX4090
	case contains(name, "3090"):
		return model.GPURTX3090
	default:
		return model.GPUUnknown
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

type provisionResponse struct {
	Success     bool `json:"success"`
	NewContract int  `json:"new_contract"`
}

func (a *Adapter) Provision(ctx context.Context, req adapter.ProvisionRequest) (adapter.ProvisionedInstance, error) {
	body := map[string]interface{}{
		"client_id": "me",
		"image":     req.Image,
		"runtype":   "ssh",
		"label":     req.Labels["name"],
	}

	var result provisionResponse
	path := fmt.Sprintf("/asks/%s/", req.InstanceType)
	if err := a.client.DoJSON(ctx, "PUT", path, body, &result); err != nil {
		return adapter.ProvisionedInstance{}, fmt.Errorf("vastai: reserve: %w", err)
	}
	if !result.Success {
		return adapter.ProvisionedInstance{}, fmt.Errorf("vastai: reservation rejected")
	}

	return adapter.ProvisionedInstance{
		InstanceID: strconv.Itoa(result.NewContract),
		Status:     model.StatusActive,
	}, nil
}

type instanceStatus struct {
	Instances []struct {
		ID            int    `json:"id"`
		ActualStatus  string `json:"actual_status"`
		PublicIPAddr  string `json:"public_ipaddr"`
	} `json:"instances"`
}

func (a *Adapter) Status(ctx context.Context, instanceID string) (adapter.InstanceInfo, error) {
	var resp instanceStatus
	if err := a.client.DoJSON(ctx, "GET", "/instances", nil, &resp); err != nil {
		return adapter.InstanceInfo{}, fmt.Errorf("vastai: status: %w", err)
	}
	for _, inst := range resp.Instances {
		if strconv.Itoa(inst.ID) == instanceID {
			return adapter.InstanceInfo{
				InstanceID: instanceID,
				Status:     inst.ActualStatus,
				PublicIP:   inst.PublicIPAddr,
			}, nil
		}
	}
	return adapter.InstanceInfo{}, fmt.Errorf("vastai: instance %s not found", instanceID)
}

func (a *Adapter) Stop(ctx context.Context, instanceID string) error {
	return a.client.DoJSON(ctx, "PUT", fmt.Sprintf("/instances/%s/", instanceID), map[string]string{"state": "stopped"}, nil)
}

func (a *Adapter) Start(ctx context.Context, instanceID string) error {
	return a.client.DoJSON(ctx, "PUT", fmt.Sprintf("/instances/%s/", instanceID), map[string]string{"state": "running"}, nil)
}

func (a *Adapter) Terminate(ctx context.Context, instanceID string) error {
	return a.client.DoJSON(ctx, "DELETE", fmt.Sprintf("/instances/%s/", instanceID), nil, nil)
}

func (a *Adapter) ListInstances(ctx context.Context) ([]adapter.InstanceInfo, error) {
	var resp instanceStatus
	if err := a.client.DoJSON(ctx, "GET", "/instances", nil, &resp); err != nil {
		return nil, fmt.Errorf("vastai: list instances: %w", err)
	}
	out := make([]adapter.InstanceInfo, 0, len(resp.Instances))
	for _, inst := range resp.Instances {
		out = append(out, adapter.InstanceInfo{
			InstanceID: strconv.Itoa(inst.ID),
			Status:     inst.ActualStatus,
		})
	}
	return out, nil
}

// ExecuteCommand has no native RunCommand-style API on Vast.ai; the
// broker falls back to SSH against the instance's public IP for this
// provider (handled at the engine layer via sshfallback).
func (a *Adapter) ExecuteCommand(ctx context.Context, instanceID, command string) (adapter.CommandResult, error) {
	return adapter.CommandResult{}, fmt.Errorf("vastai: execute_command has no native API: %w", adapter.ErrExecuteCommandNotWired)
}
