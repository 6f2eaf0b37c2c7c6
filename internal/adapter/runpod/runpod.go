package runpod

import (
	"github.com/theoddden/terradev-broker/internal/adapter/generic"
	"github.com/theoddden/terradev-broker/pkg/model"
)

func New(apiKey string) *generic.Adapter {
	return generic.New(generic.Config{
		ID:         model.ProviderRunpod,
		BaseURL:    "https://api.runpod.io/v2",
		AuthHeader: "Authorization",
		AuthValue:  "Bearer " + apiKey,
		Catalog: []generic.StaticOffer{
			{InstanceType: "NVIDIA A100 80GB PCIe", GPUFamily: model.GPUA100_80, GPUCount: 1, PricePerHour: 1.89, Region: "US-CA"},
			{InstanceType: "NVIDIA H100 80GB SXM5", GPUFamily: model.GPUH100, GPUCount: 1, PricePerHour: 4.18, Region: "US-CA"},
			{InstanceType: "NVIDIA RTX 4090", GPUFamily: model.GPURTX4090, GPUCount: 1, PricePerHour: 0.74, Region: "EU-NL", Spot: true},
		},
	})
}
