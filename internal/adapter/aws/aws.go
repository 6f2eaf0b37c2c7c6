// Package aws adapts EC2 to adapter.Adapter. Grounded on
// Giorgimosidze09-gpu's providers/aws/client.go (ec2+pricing client
// construction via aws-sdk-go-v2/config) and gpu_provisioner.go
// (RunInstances shape, spot market options).
package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/theoddden/terradev-broker/internal/adapter"
	"github.com/theoddden/terradev-broker/pkg/model"
)

type Adapter struct {
	ec2    *ec2.Client
	region string
}

// New builds the AWS adapter from static SigV4 credentials. Passing
// empty accessKey/secretKey falls back to the default credential chain
// (env vars, shared config, instance role).
func New(ctx context.Context, region, accessKey, secretKey string) (*Adapter, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(region))
	if accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws: load config: %w", err)
	}

	return &Adapter{ec2: ec2.NewFromConfig(cfg), region: region}, nil
}

func (a *Adapter) ID() model.ProviderID { return model.ProviderAWS }

type catalogEntry struct {
	InstanceType string
	GPUFamily    model.GPUFamily
	GPUCount     int
	MemoryGB     int
	OnDemand     float64
}

// gpuCatalog is the static GPU-instance-type price table; the AWS
// Pricing API requires a long-lived pricing client in us-east-1 and is
// intentionally not queried per-request (see DESIGN.md).
var gpuCatalog = []catalogEntry{
	{"p3.2xlarge", model.GPUV100, 1, 61, 3.06},
	{"p3.8xlarge", model.GPUV100, 4, 244, 12.24},
	{"p3.16xlarge", model.GPUV100, 8, 488, 24.48},
	{"p4d.24xlarge", model.GPUA100, 8, 1152, 32.77},
	{"p5.48xlarge", model.GPUH100, 8, 2048, 98.32},
	{"g4dn.xlarge", model.GPUT4, 1, 16, 0.526},
	{"g5.xlarge", model.GPUA10G, 1, 24, 1.006},
}

func (a *Adapter) GetQuotes(ctx context.Context, req adapter.QuoteRequest) ([]model.Quote, error) {
	out := make([]model.Quote, 0, len(gpuCatalog))
	for _, c := range gpuCatalog {
		if req.GPUFamily != "" && c.GPUFamily != req.GPUFamily {
			continue
		}
		price := c.OnDemand
		avail := model.OnDemand
		if req.Availability == model.Spot {
			price = c.OnDemand * 0.3
			avail = model.Spot
		}
		if req.MaxPricePerHr > 0 && price > req.MaxPricePerHr {
			continue
		}
		out = append(out, model.Quote{
			Provider:     model.ProviderAWS,
			InstanceType: c.InstanceType,
			GPUFamily:    c.GPUFamily,
			PricePerHour: price,
			Region:       a.region,
			Available:    true,
			Availability: avail,
			GPUCount:     c.GPUCount,
			MemoryGB:     c.MemoryGB,
		})
	}
	return out, nil
}

func (a *Adapter) Provision(ctx context.Context, req adapter.ProvisionRequest) (adapter.ProvisionedInstance, error) {
	input := &ec2.RunInstancesInput{
		ImageId:      awssdk.String(req.Image),
		InstanceType: types.InstanceType(req.InstanceType),
		MinCount:     awssdk.Int32(1),
		MaxCount:     awssdk.Int32(1),
		TagSpecifications: []types.TagSpecification{{
			ResourceType: types.ResourceTypeInstance,
			Tags: []types.Tag{
				{Key: awssdk.String("ManagedBy"), Value: awssdk.String(managedByTag)},
			},
		}},
	}

	if req.Availability == model.Spot {
		input.InstanceMarketOptions = &types.InstanceMarketOptionsRequest{
			MarketType: types.MarketTypeSpot,
		}
	}

	result, err := a.ec2.RunInstances(ctx, input)
	if err != nil {
		return adapter.ProvisionedInstance{}, fmt.Errorf("aws: run instances: %w", err)
	}
	if len(result.Instances) == 0 {
		return adapter.ProvisionedInstance{}, fmt.Errorf("aws: run instances returned no instances")
	}

	return adapter.ProvisionedInstance{
		InstanceID: awssdk.ToString(result.Instances[0].InstanceId),
		Status:     model.StatusActive,
	}, nil
}

func (a *Adapter) Status(ctx context.Context, instanceID string) (adapter.InstanceInfo, error) {
	out, err := a.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return adapter.InstanceInfo{}, fmt.Errorf("aws: describe instances: %w", err)
	}
	for _, r := range out.Reservations {
		for _, inst := range r.Instances {
			return adapter.InstanceInfo{
				InstanceID: instanceID,
				Status:     string(inst.State.Name),
				Region:     a.region,
			}, nil
		}
	}
	return adapter.InstanceInfo{}, fmt.Errorf("aws: instance %s not found", instanceID)
}

func (a *Adapter) Stop(ctx context.Context, instanceID string) error {
	_, err := a.ec2.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: []string{instanceID}})
	return err
}

func (a *Adapter) Start(ctx context.Context, instanceID string) error {
	_, err := a.ec2.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: []string{instanceID}})
	return err
}

func (a *Adapter) Terminate(ctx context.Context, instanceID string) error {
	_, err := a.ec2.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: []string{instanceID}})
	return err
}

// managedByTag is the tag Provision stamps on every instance it
// creates; ListInstances filters on it so a shared account's
// unrelated EC2 fleet never shows up as broker-managed.
const managedByTag = "terradev-broker"

func (a *Adapter) ListInstances(ctx context.Context) ([]adapter.InstanceInfo, error) {
	out, err := a.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: []types.Filter{
			{Name: awssdk.String("tag:ManagedBy"), Values: []string{managedByTag}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("aws: describe instances: %w", err)
	}
	var infos []adapter.InstanceInfo
	for _, r := range out.Reservations {
		for _, inst := range r.Instances {
			infos = append(infos, adapter.InstanceInfo{
				InstanceID: awssdk.ToString(inst.InstanceId),
				Status:     string(inst.State.Name),
				Region:     a.region,
			})
		}
	}
	return infos, nil
}

// ExecuteCommand routes through SSM RunCommand in a full deployment;
// left as a typed error here since SSM requires an agent on the
// instance and a separate IAM role not in scope for this adapter.
func (a *Adapter) ExecuteCommand(ctx context.Context, instanceID, command string) (adapter.CommandResult, error) {
	return adapter.CommandResult{}, fmt.Errorf("aws: execute_command requires SSM RunCommand: %w", adapter.ErrExecuteCommandNotWired)
}
