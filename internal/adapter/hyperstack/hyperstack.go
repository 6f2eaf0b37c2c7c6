package hyperstack

import (
	"github.com/theoddden/terradev-broker/internal/adapter/generic"
	"github.com/theoddden/terradev-broker/pkg/model"
)

func New(apiKey string) *generic.Adapter {
	return generic.New(generic.Config{
		ID:         model.ProviderHyperstack,
		BaseURL:    "https://infrahub-api.nexgencloud.com/v1",
		AuthHeader: "api_key",
		AuthValue:  apiKey,
		Catalog: []generic.StaticOffer{
			{InstanceType: "n3-A100x1", GPUFamily: model.GPUA100, GPUCount: 1, PricePerHour: 1.50, Region: "CANADA-1"},
			{InstanceType: "n3-H100x1", GPUFamily: model.GPUH100, GPUCount: 1, PricePerHour: 2.40, Region: "CANADA-1"},
			{InstanceType: "n3-RTX-A6000x1", GPUFamily: model.GPUUnknown, GPUCount: 1, PricePerHour: 0.80, Region: "CANADA-1"},
		},
	})
}
