package baseten

import (
	"github.com/theoddden/terradev-broker/internal/adapter/generic"
	"github.com/theoddden/terradev-broker/pkg/model"
)

func New(apiKey string) *generic.Adapter {
	return generic.New(generic.Config{
		ID:         model.ProviderBaseten,
		BaseURL:    "https://api.baseten.co/v1",
		AuthHeader: "Authorization",
		AuthValue:  "Api-Key " + apiKey,
		Catalog: []generic.StaticOffer{
			{InstanceType: "a10g-medium", GPUFamily: model.GPUA10G, GPUCount: 1, PricePerHour: 1.15, Region: "us-central-1"},
			{InstanceType: "h100-large", GPUFamily: model.GPUH100, GPUCount: 1, PricePerHour: 5.50, Region: "us-central-1"},
		},
	})
}
