package lambdalabs

import (
	"github.com/theoddden/terradev-broker/internal/adapter/generic"
	"github.com/theoddden/terradev-broker/pkg/model"
)

func New(apiKey string) *generic.Adapter {
	return generic.New(generic.Config{
		ID:         model.ProviderLambdaLabs,
		BaseURL:    "https://cloud.lambdalabs.com/api/v1",
		AuthHeader: "Authorization",
		AuthValue:  "Bearer " + apiKey,
		Catalog: []generic.StaticOffer{
			{InstanceType: "gpu_1x_a100", GPUFamily: model.GPUA100, GPUCount: 1, PricePerHour: 1.29, Region: "us-east-1"},
			{InstanceType: "gpu_8x_a100_80gb", GPUFamily: model.GPUA100_80, GPUCount: 8, PricePerHour: 14.32, Region: "us-west-2"},
			{InstanceType: "gpu_1x_h100_pcie", GPUFamily: model.GPUH100, GPUCount: 1, PricePerHour: 2.49, Region: "us-east-1"},
		},
	})
}
