package digitalocean

import (
	"github.com/theoddden/terradev-broker/internal/adapter/generic"
	"github.com/theoddden/terradev-broker/pkg/model"
)

// New builds the DigitalOcean GPU Droplets adapter, authenticated with
// a personal access token (PAT).
func New(pat string) *generic.Adapter {
	return generic.New(generic.Config{
		ID:         model.ProviderDigitalOcean,
		BaseURL:    "https://api.digitalocean.com/v2",
		AuthHeader: "Authorization",
		AuthValue:  "Bearer " + pat,
		Catalog: []generic.StaticOffer{
			{InstanceType: "gpu-h100x1-80gb", GPUFamily: model.GPUH100, GPUCount: 1, PricePerHour: 3.39, Region: "nyc2"},
			{InstanceType: "gpu-h100x8-640gb", GPUFamily: model.GPUH100, GPUCount: 8, PricePerHour: 23.92, Region: "atl1"},
		},
	})
}
