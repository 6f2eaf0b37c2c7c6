package huggingface

import (
	"github.com/theoddden/terradev-broker/internal/adapter/generic"
	"github.com/theoddden/terradev-broker/pkg/model"
)

// New builds the Hugging Face Inference Endpoints adapter, authenticated
// with a user access token.
func New(token string) *generic.Adapter {
	return generic.New(generic.Config{
		ID:         model.ProviderHuggingFace,
		BaseURL:    "https://api.endpoints.huggingface.cloud/v2",
		AuthHeader: "Authorization",
		AuthValue:  "Bearer " + token,
		Catalog: []generic.StaticOffer{
			{InstanceType: "nvidia-a100", GPUFamily: model.GPUA100, GPUCount: 1, PricePerHour: 4.00, Region: "us-east-1"},
			{InstanceType: "nvidia-t4", GPUFamily: model.GPUT4, GPUCount: 1, PricePerHour: 0.60, Region: "us-east-1"},
		},
	})
}
