package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process-wide configuration tree for the broker.
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Auth      AuthConfig
	Governor  GovernorConfig
	Engine    EngineConfig
	Staging   StagingConfig
	Metrics   MetricsConfig
	Providers ProviderCredentials
}

type ServerConfig struct {
	Host         string
	Port         int
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LoggingConfig struct {
	SyslogEnabled  bool
	SyslogNetwork  string
	SyslogAddress  string
	SyslogTag      string
	SyslogFacility string
	LogFile        string
	Level          string
}

// AuthConfig controls the optional JWT bearer-auth middleware on the
// REST surface. Left disabled when JWTSecret is empty.
type AuthConfig struct {
	JWTSecret     string
	JWTExpiration time.Duration
}

// MetricsConfig controls the /metrics Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// StagingConfig carries the defaults the dataset stager falls back to
// when a StagingPlan does not override them.
type StagingConfig struct {
	ChunkSizeBytes    int64
	DefaultCodec      string
	SCPHost           string
	SCPUser           string
	SCPKeyPath        string
	SCPKnownHostsPath string
	S3BucketPrefix    string
	GCSBucketPrefix   string
	AzureContainer    string
	AzureConnString   string
	LocalStagingDir   string
}

// ProviderCredentials holds the process-default credential bag used
// when a request does not supply per-call credentials. Per §4.1 each
// provider has its own auth shape.
type ProviderCredentials struct {
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string

	GCPServiceAccountJSON string
	GCPProjectID          string

	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
	AzureSubscription string

	OracleUserOCID       string
	OracleTenancyOCID    string
	OracleFingerprint    string
	OraclePrivateKeyPath string
	OracleRegion         string

	VastAIAPIKey     string
	RunpodAPIKey     string
	LambdaLabsAPIKey string
	CoreWeaveAPIKey  string
	TensorDockKey    string
	TensorDockToken  string
	HuggingFaceToken string
	BasetenAPIKey    string
	CrusoeAPIKey     string
	DigitalOceanPAT  string
	HyperstackAPIKey string
}

func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
		},
		Logging: LoggingConfig{
			SyslogEnabled:  getEnvAsBool("SYSLOG_ENABLED", false),
			SyslogNetwork:  getEnv("SYSLOG_NETWORK", ""),
			SyslogAddress:  getEnv("SYSLOG_ADDRESS", ""),
			SyslogTag:      getEnv("SYSLOG_TAG", "terradev-broker"),
			SyslogFacility: getEnv("SYSLOG_FACILITY", "LOG_LOCAL0"),
			LogFile:        getEnv("LOG_FILE", ""),
			Level:          getEnv("LOG_LEVEL", "INFO"),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			JWTExpiration: getEnvAsDuration("JWT_EXPIRATION", 24*time.Hour),
		},
		Governor: defaultGovernorConfig(),
		Engine: EngineConfig{
			ParallelQueries:   getEnvAsInt("PARALLEL_QUERIES", 6),
			ParallelProvision: getEnvAsInt("PARALLEL_PROVISION", 6),
			MaxPriceThreshold: getEnvAsFloat("MAX_PRICE_THRESHOLD", 10.0),
			PreferredRegions:  splitCSV(getEnv("PREFERRED_REGIONS", "")),
			Optimization: OptimizationSettings{
				PriceWeight:        0.4,
				AvailabilityWeight: 0.3,
				LatencyWeight:      0.2,
				ReliabilityWeight:  0.1,
			},
			Analytics: AnalyticsSettings{
				RetentionDays: getEnvAsInt("ANALYTICS_RETENTION_DAYS", 90),
			},
			Providers: DefaultProviderDescriptors(),
		},
		Staging: StagingConfig{
			ChunkSizeBytes:    getEnvAsInt64("STAGING_CHUNK_SIZE_BYTES", 512*1024*1024),
			DefaultCodec:      getEnv("STAGING_DEFAULT_CODEC", "auto"),
			SCPHost:           getEnv("STAGING_SCP_HOST", ""),
			SCPUser:           getEnv("STAGING_SCP_USER", ""),
			SCPKeyPath:        getEnv("STAGING_SCP_KEY_PATH", ""),
			SCPKnownHostsPath: getEnv("STAGING_SCP_KNOWN_HOSTS", ""),
			S3BucketPrefix:    getEnv("STAGING_S3_BUCKET_PREFIX", "terradev-staging"),
			GCSBucketPrefix:   getEnv("STAGING_GCS_BUCKET_PREFIX", "terradev-staging"),
			AzureContainer:    getEnv("STAGING_AZURE_CONTAINER", "terradev-staging"),
			AzureConnString:   getEnv("STAGING_AZURE_CONNECTION_STRING", ""),
			LocalStagingDir:   getEnv("STAGING_LOCAL_DIR", "/tmp/terradev-staging"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Providers: ProviderCredentials{
			AWSAccessKeyID:        getEnv("AWS_ACCESS_KEY_ID", ""),
			AWSSecretAccessKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
			AWSRegion:             getEnv("AWS_REGION", "us-east-1"),
			GCPServiceAccountJSON: getEnv("GCP_SERVICE_ACCOUNT_JSON", ""),
			GCPProjectID:          getEnv("GCP_PROJECT_ID", ""),
			AzureTenantID:         getEnv("AZURE_TENANT_ID", ""),
			AzureClientID:         getEnv("AZURE_CLIENT_ID", ""),
			AzureClientSecret:     getEnv("AZURE_CLIENT_SECRET", ""),
			AzureSubscription:     getEnv("AZURE_SUBSCRIPTION_ID", ""),
			OracleUserOCID:        getEnv("OCI_USER_OCID", ""),
			OracleTenancyOCID:     getEnv("OCI_TENANCY_OCID", ""),
			OracleFingerprint:     getEnv("OCI_FINGERPRINT", ""),
			OraclePrivateKeyPath:  getEnv("OCI_PRIVATE_KEY_PATH", ""),
			OracleRegion:          getEnv("OCI_REGION", "us-ashburn-1"),
			VastAIAPIKey:          getEnv("VASTAI_API_KEY", ""),
			RunpodAPIKey:          getEnv("RUNPOD_API_KEY", ""),
			LambdaLabsAPIKey:      getEnv("LAMBDA_LABS_API_KEY", ""),
			CoreWeaveAPIKey:       getEnv("COREWEAVE_API_KEY", ""),
			TensorDockKey:         getEnv("TENSORDOCK_API_KEY", ""),
			TensorDockToken:       getEnv("TENSORDOCK_API_TOKEN", ""),
			HuggingFaceToken:      getEnv("HUGGINGFACE_TOKEN", ""),
			BasetenAPIKey:         getEnv("BASETEN_API_KEY", ""),
			CrusoeAPIKey:          getEnv("CRUSOE_API_KEY", ""),
			DigitalOceanPAT:       getEnv("DIGITALOCEAN_TOKEN", ""),
			HyperstackAPIKey:      getEnv("HYPERSTACK_API_KEY", ""),
		},
	}

	if path := getEnv("BROKER_CONFIG_FILE", ""); path != "" {
		if err := loadEngineYAML(path, &cfg.Engine); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" && c.Server.Environment == "production" {
		// bearer auth disabled in production is allowed but worth flagging
		// only at the call site that wires the middleware, not here.
		_ = c.Auth.JWTSecret
	}

	if err := c.Engine.Optimization.Validate(); err != nil {
		return fmt.Errorf("optimization_settings: %w", err)
	}

	if c.Engine.ParallelQueries <= 0 {
		return fmt.Errorf("parallel_queries must be positive, got %d", c.Engine.ParallelQueries)
	}
	if c.Engine.MaxPriceThreshold <= 0 {
		return fmt.Errorf("max_price_threshold must be positive, got %f", c.Engine.MaxPriceThreshold)
	}

	return nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, trimSpace(s[start:i]))
			}
			start = i + 1
		}
	}
	return out
}

func trimSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var value int
	if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return valueStr == "true" || valueStr == "1"
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var value float64
	if _, err := fmt.Sscanf(valueStr, "%f", &value); err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var value int64
	if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
		return defaultValue
	}
	return value
}
