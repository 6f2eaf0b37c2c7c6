package crusoe

import (
	"github.com/theoddden/terradev-broker/internal/adapter/generic"
	"github.com/theoddden/terradev-broker/pkg/model"
)

func New(apiKey string) *generic.Adapter {
	return generic.New(generic.Config{
		ID:         model.ProviderCrusoe,
		BaseURL:    "https://api.crusoecloud.com/v1alpha5",
		AuthHeader: "Authorization",
		AuthValue:  "Bearer " + apiKey,
		Catalog: []generic.StaticOffer{
			{InstanceType: "a100-80gb.8x", GPUFamily: model.GPUA100_80, GPUCount: 8, PricePerHour: 18.40, Region: "us-east1-a"},
			{InstanceType: "l40s-48gb.1x", GPUFamily: model.GPUL40, GPUCount: 1, PricePerHour: 1.25, Region: "us-east1-a"},
		},
	})
}
