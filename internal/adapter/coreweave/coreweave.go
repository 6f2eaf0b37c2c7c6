package coreweave

import (
	"github.com/theoddden/terradev-broker/internal/adapter/generic"
	"github.com/theoddden/terradev-broker/pkg/model"
)

func New(apiKey string) *generic.Adapter {
	return generic.New(generic.Config{
		ID:         model.ProviderCoreWeave,
		BaseURL:    "https://api.coreweave.com/v1",
		AuthHeader: "Authorization",
		AuthValue:  "Bearer " + apiKey,
		Catalog: []generic.StaticOffer{
			{InstanceType: "gd-a100x1-sxm4", GPUFamily: model.GPUA100, GPUCount: 1, PricePerHour: 2.21, Region: "ORD1"},
			{InstanceType: "gd-h100x1-sxm5", GPUFamily: model.GPUH100, GPUCount: 1, PricePerHour: 4.76, Region: "LAS1"},
			{InstanceType: "gd-l40x1", GPUFamily: model.GPUL40, GPUCount: 1, PricePerHour: 1.25, Region: "ORD1"},
		},
	})
}
