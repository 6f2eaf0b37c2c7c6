// Package broker is the composition root: it turns a loaded Config
// into a fully wired Engine, registering every provider adapter and
// every staging storage backend that has usable credentials. Grounded
// on cmd/server/main.go's "construct every service, then construct
// every handler" sequencing.
package broker

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/theoddden/terradev-broker/internal/adapter"
	"github.com/theoddden/terradev-broker/internal/adapter/aws"
	"github.com/theoddden/terradev-broker/internal/adapter/azure"
	"github.com/theoddden/terradev-broker/internal/adapter/baseten"
	"github.com/theoddden/terradev-broker/internal/adapter/coreweave"
	"github.com/theoddden/terradev-broker/internal/adapter/crusoe"
	"github.com/theoddden/terradev-broker/internal/adapter/demo"
	"github.com/theoddden/terradev-broker/internal/adapter/digitalocean"
	"github.com/theoddden/terradev-broker/internal/adapter/gcp"
	"github.com/theoddden/terradev-broker/internal/adapter/huggingface"
	"github.com/theoddden/terradev-broker/internal/adapter/hyperstack"
	"github.com/theoddden/terradev-broker/internal/adapter/lambdalabs"
	"github.com/theoddden/terradev-broker/internal/adapter/oracle"
	"github.com/theoddden/terradev-broker/internal/adapter/runpod"
	"github.com/theoddden/terradev-broker/internal/adapter/tensordock"
	"github.com/theoddden/terradev-broker/internal/adapter/vastai"
	"github.com/theoddden/terradev-broker/internal/allocate"
	"github.com/theoddden/terradev-broker/internal/config"
	"github.com/theoddden/terradev-broker/internal/engine"
	"github.com/theoddden/terradev-broker/internal/governor"
	"github.com/theoddden/terradev-broker/internal/logging"
	"github.com/theoddden/terradev-broker/internal/provision"
	"github.com/theoddden/terradev-broker/internal/quote"
	"github.com/theoddden/terradev-broker/internal/stage"
	"github.com/theoddden/terradev-broker/internal/stage/storage"
)

// Build wires a complete Engine from cfg. Adapters and staging backends
// whose credentials are absent are silently skipped rather than
// treated as fatal — a broker with three of six providers configured
// is still useful.
func Build(ctx context.Context, cfg *config.Config) (*engine.Engine, error) {
	registry := buildRegistry(ctx, cfg.Providers)
	gov := governor.New(cfg.Governor)

	aggregator := quote.New(registry, gov, cfg.Engine.ParallelQueries, cfg.Engine.Optimization, cfg.Engine.Providers)
	allocator := allocate.New()
	provisioner := provision.New(registry, gov)
	stager := buildStager(ctx, cfg.Staging, cfg.Providers)

	opts := []engine.Option{}
	if cfg.Staging.SCPHost != "" {
		opts = append(opts, engine.WithSSHFallback(cfg.Staging.SCPUser, cfg.Staging.SCPKeyPath, cfg.Staging.SCPKnownHostsPath))
	}

	return engine.New(registry, aggregator, allocator, provisioner, stager, opts...), nil
}

func buildRegistry(ctx context.Context, creds config.ProviderCredentials) *adapter.Registry {
	registry := adapter.NewRegistry()

	if creds.AWSAccessKeyID != "" && creds.AWSSecretAccessKey != "" {
		if a, err := aws.New(ctx, creds.AWSRegion, creds.AWSAccessKeyID, creds.AWSSecretAccessKey); err == nil {
			registry.Register(a)
		} else {
			logging.Warn("aws adapter disabled", map[string]interface{}{"error": err.Error()})
		}
	}
	if creds.AzureTenantID != "" && creds.AzureClientID != "" {
		if a, err := azure.New(creds.AzureTenantID, creds.AzureClientID, creds.AzureClientSecret, creds.AzureSubscription, "", "eastus"); err == nil {
			registry.Register(a)
		} else {
			logging.Warn("azure adapter disabled", map[string]interface{}{"error": err.Error()})
		}
	}
	if creds.GCPServiceAccountJSON != "" && creds.GCPProjectID != "" {
		if a, err := gcp.New(ctx, []byte(creds.GCPServiceAccountJSON), creds.GCPProjectID, "us-central1-a"); err == nil {
			registry.Register(a)
		} else {
			logging.Warn("gcp adapter disabled", map[string]interface{}{"error": err.Error()})
		}
	}
	if creds.OracleUserOCID != "" && creds.OracleTenancyOCID != "" {
		if a, err := oracle.New(creds.OracleTenancyOCID, creds.OracleUserOCID, creds.OracleFingerprint, creds.OraclePrivateKeyPath, creds.OracleRegion, ""); err == nil {
			registry.Register(a)
		} else {
			logging.Warn("oracle adapter disabled", map[string]interface{}{"error": err.Error()})
		}
	}
	if creds.VastAIAPIKey != "" {
		registry.Register(vastai.New(creds.VastAIAPIKey))
	}
	if creds.RunpodAPIKey != "" {
		registry.Register(runpod.New(creds.RunpodAPIKey))
	}
	if creds.LambdaLabsAPIKey != "" {
		registry.Register(lambdalabs.New(creds.LambdaLabsAPIKey))
	}
	if creds.CoreWeaveAPIKey != "" {
		registry.Register(coreweave.New(creds.CoreWeaveAPIKey))
	}
	if creds.TensorDockKey != "" && creds.TensorDockToken != "" {
		registry.Register(tensordock.New(creds.TensorDockKey, creds.TensorDockToken))
	}
	if creds.HuggingFaceToken != "" {
		registry.Register(huggingface.New(creds.HuggingFaceToken))
	}
	if creds.BasetenAPIKey != "" {
		registry.Register(baseten.New(creds.BasetenAPIKey))
	}
	if creds.CrusoeAPIKey != "" {
		registry.Register(crusoe.New(creds.CrusoeAPIKey))
	}
	if creds.DigitalOceanPAT != "" {
		registry.Register(digitalocean.New(creds.DigitalOceanPAT))
	}
	if creds.HyperstackAPIKey != "" {
		registry.Register(hyperstack.New(creds.HyperstackAPIKey))
	}

	if len(registry.IDs()) == 0 {
		logging.Warn("no provider credentials configured; registering offline demo adapter", nil)
		registry.Register(demo.New())
	}

	return registry
}

// buildStager attaches a storage backend per scheme the process has
// credentials for. Region routing precedence (S3 -> GCS -> Azure -> SCP
// -> local) is enforced by storage.Select, not by this constructor.
func buildStager(ctx context.Context, cfg config.StagingConfig, creds config.ProviderCredentials) *stage.Stager {
	var opts []stage.Option

	if creds.AWSAccessKeyID != "" && creds.AWSSecretAccessKey != "" {
		if awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(creds.AWSRegion)); err == nil {
			opts = append(opts, stage.WithS3Backend(storage.NewS3Backend(s3.NewFromConfig(awsCfg), cfg.S3BucketPrefix)))
		} else {
			logging.Warn("s3 staging backend disabled", map[string]interface{}{"error": err.Error()})
		}
	}

	if creds.GCPServiceAccountJSON != "" {
		if gcsClient, err := gcstorage.NewClient(ctx, option.WithCredentialsJSON([]byte(creds.GCPServiceAccountJSON))); err == nil {
			opts = append(opts, stage.WithGCSBackend(storage.NewGCSBackend(gcsClient, creds.GCPProjectID, cfg.GCSBucketPrefix)))
		} else {
			logging.Warn("gcs staging backend disabled", map[string]interface{}{"error": err.Error()})
		}
	}

	if cfg.AzureConnString != "" {
		if b, err := storage.NewAzureBackend(cfg.AzureConnString); err == nil {
			opts = append(opts, stage.WithAzureBackend(b))
		} else {
			logging.Warn("azure staging backend disabled", map[string]interface{}{"error": err.Error()})
		}
	}

	if cfg.SCPHost != "" {
		if b, err := storage.NewSCPBackend(cfg.SCPHost, cfg.SCPUser, cfg.SCPKeyPath, cfg.SCPKnownHostsPath, "/staging"); err == nil {
			opts = append(opts, stage.WithSCPBackend(b))
		} else {
			logging.Warn("scp staging backend disabled", map[string]interface{}{"error": err.Error()})
		}
	}

	return stage.New(cfg.ChunkSizeBytes, cfg.LocalStagingDir, opts...)
}
