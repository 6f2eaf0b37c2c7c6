package tensordock

import (
	"github.com/theoddden/terradev-broker/internal/adapter/generic"
	"github.com/theoddden/terradev-broker/pkg/model"
)

// New builds the TensorDock adapter. TensorDock's auth is a key+token
// pair rather than a single bearer token; both are sent in a single
// composite header the way TensorDock's REST API expects.
func New(apiKey, apiToken string) *generic.Adapter {
	return generic.New(generic.Config{
		ID:         model.ProviderTensorDock,
		BaseURL:    "https://marketplace.tensordock.com/api/v0",
		AuthHeader: "Authorization",
		AuthValue:  "Bearer " + apiKey + ":" + apiToken,
		Catalog: []generic.StaticOffer{
			{InstanceType: "a100-pcie-80gb", GPUFamily: model.GPUA100_80, GPUCount: 1, PricePerHour: 1.10, Region: "us-il"},
			{InstanceType: "rtx4090-pcie-24gb", GPUFamily: model.GPURTX4090, GPUCount: 1, PricePerHour: 0.35, Region: "us-ca", Spot: true},
			{InstanceType: "v100-sxm2-16gb", GPUFamily: model.GPUV100, GPUCount: 1, PricePerHour: 0.45, Region: "eu-de"},
		},
	})
}
