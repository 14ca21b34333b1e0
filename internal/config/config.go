package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "SHIELD"

// minSessionSecretBytes guards HS256 keys against trivially short secrets.
const minSessionSecretBytes = 32

// FederatedMode selects the backend used to verify federated identity tokens.
type FederatedMode string

const (
	FederatedModeFirebase FederatedMode = "firebase"
	FederatedModeOIDC     FederatedMode = "oidc"
)

// Config holds the server configuration.
type Config struct {
	DatabaseURL      string
	ServerAddr       string
	ServerURL        string
	MaxDBConnections int
	Debug            bool

	Log           LogConfig
	Session       SessionConfig
	Providers     ProvidersConfig
	Federated     *FederatedConfig
	Platform      *PlatformConfig
	Alerts        AlertsConfig
	Observability ObservabilityConfig
	CORS          CORSConfig
}

// LogConfig controls logrus output.
type LogConfig struct {
	// Format is "json" or "text".
	Format string
}

// SessionConfig configures the locally minted bearer tokens. The same secret
// verifies legacy local tokens.
type SessionConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// ProvidersConfig holds settings shared by every verifier in the chain.
type ProvidersConfig struct {
	// Timeout bounds a single verifier call.
	Timeout time.Duration
}

// FederatedConfig configures the first-priority provider: asymmetrically
// signed identity tokens checked against the issuer's published keys.
// Nil when the provider is disabled.
type FederatedConfig struct {
	Mode     FederatedMode
	Issuer   string
	Audience string

	// Firebase mode only.
	FirebaseProjectID       string
	FirebaseCredentialsFile string
}

// PlatformConfig configures the opaque session token provider, validated by
// token introspection against the auth platform. Nil when disabled.
type PlatformConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	// TokenPrefix, when set, is required on every platform token.
	TokenPrefix string
	CacheTTL    time.Duration
	CacheSize   int
}

// AlertsConfig selects the real-time channels emergency alerts fan out to.
// Every channel is optional; with none configured alerts are stored only.
type AlertsConfig struct {
	RedisURL           string
	RedisChannel       string
	AMQPURL            string
	AMQPQueue          string
	FCMTopic           string
	FCMCredentialsFile string
	FCMProjectID       string
}

// ObservabilityConfig configures OpenTelemetry export.
type ObservabilityConfig struct {
	OTLPEndpoint   string
	OTLPInsecure   bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	// SampleRatio is the fraction of root traces kept, in [0, 1].
	SampleRatio float64
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from the environment (SHIELD_ prefix) and any
// config file already loaded into viper. Environment variables take
// precedence over file values.
func Load() (*Config, error) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Nested keys are read one by one: AutomaticEnv does not populate
	// nested structs through Unmarshal.
	cfg := &Config{
		DatabaseURL:      viper.GetString("database_url"),
		ServerAddr:       viper.GetString("server_addr"),
		ServerURL:        viper.GetString("server_url"),
		MaxDBConnections: viper.GetInt("max_db_connections"),
		Debug:            viper.GetBool("debug"),
		Log: LogConfig{
			Format: viper.GetString("log.format"),
		},
		Session: SessionConfig{
			Secret: viper.GetString("session.secret"),
			Issuer: viper.GetString("session.issuer"),
			TTL:    viper.GetDuration("session.ttl"),
		},
		Providers: ProvidersConfig{
			Timeout: viper.GetDuration("providers.timeout"),
		},
		Alerts: AlertsConfig{
			RedisURL:           viper.GetString("alerts.redis_url"),
			RedisChannel:       viper.GetString("alerts.redis_channel"),
			AMQPURL:            viper.GetString("alerts.amqp_url"),
			AMQPQueue:          viper.GetString("alerts.amqp_queue"),
			FCMTopic:           viper.GetString("alerts.fcm_topic"),
			FCMCredentialsFile: viper.GetString("alerts.fcm_credentials_file"),
			FCMProjectID:       viper.GetString("alerts.fcm_project_id"),
		},
		Observability: ObservabilityConfig{
			OTLPEndpoint:   viper.GetString("observability.otlp_endpoint"),
			OTLPInsecure:   viper.GetBool("observability.otlp_insecure"),
			ServiceName:    viper.GetString("observability.service_name"),
			ServiceVersion: viper.GetString("observability.service_version"),
			Environment:    viper.GetString("observability.environment"),
			SampleRatio:    viper.GetFloat64("observability.sample_ratio"),
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("cors.allowed_origins"),
		},
	}

	if mode := viper.GetString("federated.mode"); mode != "" {
		cfg.Federated = &FederatedConfig{
			Mode:                    FederatedMode(strings.ToLower(mode)),
			Issuer:                  viper.GetString("federated.issuer"),
			Audience:                viper.GetString("federated.audience"),
			FirebaseProjectID:       viper.GetString("federated.firebase_project_id"),
			FirebaseCredentialsFile: viper.GetString("federated.firebase_credentials_file"),
		}
	}

	if issuer := viper.GetString("platform.issuer"); issuer != "" {
		cfg.Platform = &PlatformConfig{
			Issuer:       issuer,
			ClientID:     viper.GetString("platform.client_id"),
			ClientSecret: viper.GetString("platform.client_secret"),
			TokenPrefix:  viper.GetString("platform.token_prefix"),
			CacheTTL:     viper.GetDuration("platform.cache_ttl"),
			CacheSize:    viper.GetInt("platform.cache_size"),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("server_addr", "localhost:8080")
	viper.SetDefault("max_db_connections", 25)
	viper.SetDefault("log.format", "json")
	viper.SetDefault("session.issuer", "shieldhire")
	viper.SetDefault("session.ttl", 7*24*time.Hour)
	viper.SetDefault("providers.timeout", 5*time.Second)
	viper.SetDefault("platform.cache_ttl", 30*time.Second)
	viper.SetDefault("platform.cache_size", 1024)
	viper.SetDefault("alerts.redis_channel", "shieldhire.alerts")
	viper.SetDefault("alerts.amqp_queue", "shieldhire.alerts")
	viper.SetDefault("alerts.fcm_topic", "emergency-alerts")
	viper.SetDefault("observability.service_name", "shieldapi")
	viper.SetDefault("observability.environment", "development")
	viper.SetDefault("observability.sample_ratio", 1.0)
}

// Validate checks required fields and cross-field constraints.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required")
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("session.secret is required")
	}
	if len(c.Session.Secret) < minSessionSecretBytes {
		return fmt.Errorf("session.secret must be at least %d bytes", minSessionSecretBytes)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if c.Providers.Timeout <= 0 {
		return fmt.Errorf("providers.timeout must be positive")
	}
	if r := c.Observability.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("observability.sample_ratio must be between 0 and 1")
	}
	if c.Federated != nil {
		if err := c.Federated.validate(); err != nil {
			return err
		}
	}
	if c.Platform != nil {
		if c.Platform.ClientID == "" {
			return fmt.Errorf("%s_PLATFORM_CLIENT_ID is required", EnvPrefix)
		}
		if c.Platform.ClientSecret == "" {
			return fmt.Errorf("%s_PLATFORM_CLIENT_SECRET is required", EnvPrefix)
		}
		if c.Platform.CacheTTL < 0 {
			return fmt.Errorf("platform.cache_ttl must not be negative")
		}
	}
	return nil
}

func (f *FederatedConfig) validate() error {
	switch f.Mode {
	case FederatedModeFirebase:
		if f.FirebaseProjectID == "" {
			return fmt.Errorf("%s_FEDERATED_FIREBASE_PROJECT_ID is required", EnvPrefix)
		}
		if f.Issuer == "" {
			f.Issuer = FirebaseIssuer(f.FirebaseProjectID)
		}
	case FederatedModeOIDC:
		if f.Issuer == "" {
			return fmt.Errorf("%s_FEDERATED_ISSUER is required", EnvPrefix)
		}
		if f.Audience == "" {
			return fmt.Errorf("%s_FEDERATED_AUDIENCE is required", EnvPrefix)
		}
	default:
		return fmt.Errorf("unsupported federated mode %q (expected firebase or oidc)", f.Mode)
	}
	return nil
}

// FirebaseIssuer returns the issuer Firebase stamps on ID tokens for a project.
func FirebaseIssuer(projectID string) string {
	return "https://securetoken.google.com/" + projectID
}
