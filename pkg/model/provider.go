// Package model holds the wire types shared by every core subsystem:
// quotes, allocations, provision outcomes, and staging plans/results.
package model

// ProviderID is the stable identifier for a cloud or GPU marketplace.
type ProviderID string

const (
	ProviderAWS          ProviderID = "aws"
	ProviderGCP          ProviderID = "gcp"
	ProviderRunpod       ProviderID = "runpod"
	ProviderVastAI       ProviderID = "vastai"
	ProviderLambdaLabs   ProviderID = "lambda_labs"
	ProviderCoreWeave    ProviderID = "coreweave"
	ProviderTensorDock   ProviderID = "tensordock"
	ProviderHuggingFace  ProviderID = "huggingface"
	ProviderBaseten      ProviderID = "baseten"
	ProviderOracle       ProviderID = "oracle"
	ProviderCrusoe       ProviderID = "crusoe"
	ProviderDigitalOcean ProviderID = "digitalocean"
	ProviderHyperstack   ProviderID = "hyperstack"
	ProviderAzure        ProviderID = "azure"
	ProviderDemo         ProviderID = "demo"
)

// GPUFamily is the normalized GPU class name, independent of the
// provider-native SKU string.
type GPUFamily string

const (
	GPUA100      GPUFamily = "A100"
	GPUA100_80   GPUFamily = "A100-80"
	GPUH100      GPUFamily = "H100"
	GPUV100      GPUFamily = "V100"
	GPUT4        GPUFamily = "T4"
	GPUL40       GPUFamily = "L40"
	GPUA10G      GPUFamily = "A10G"
	GPURTX4090   GPUFamily = "RTX4090"
	GPURTX3090   GPUFamily = "RTX3090"
	GPUUnknown   GPUFamily = ""
)

// Credentials is an opaque per-provider bag of key/value strings. The
// core never inspects its contents except through the Adapter that
// understands its provider's schema.
type Credentials map[string]string

// ProviderDescriptor is the stable, configuration-time record for one
// provider binding. It is immutable after configuration load.
type ProviderDescriptor struct {
	ID              ProviderID `json:"id" yaml:"id"`
	Reliability     float64    `json:"reliability" yaml:"reliability"`
	DefaultPriority int        `json:"default_priority" yaml:"default_priority"`
}
