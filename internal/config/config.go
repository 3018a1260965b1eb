package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	ProjectName string   `mapstructure:"PROJECT_NAME"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL    string   `mapstructure:"REDIS_URL"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`
	// TrustedProxies lists CIDR ranges of reverse proxies whose
	// X-Forwarded-For header is believed. Empty means the peer address.
	TrustedProxies []string `mapstructure:"TRUSTED_PROXIES"`

	AuthServiceURL string `mapstructure:"AUTH_SERVICE_URL"`

	VapiAPIKey          string `mapstructure:"VAPI_API_KEY"`
	VapiBaseURL         string `mapstructure:"VAPI_BASE_URL"`
	AssistantID         string `mapstructure:"ASSISTANT_ID"`
	PhoneNumberID       string `mapstructure:"PHONE_NUMBER_ID"`
	AppointmentToolName string `mapstructure:"APPOINTMENT_TOOL_NAME"`
	ProviderCostType    string `mapstructure:"PROVIDER_COST_TYPE"`

	RegistryBaseURL string `mapstructure:"REGISTRY_BASE_URL"`
	RegistryAPIKey  string `mapstructure:"REGISTRY_API_KEY"`

	SendGridAPIKey string `mapstructure:"SENDGRID_API_KEY"`
	SenderEmail    string `mapstructure:"SENDER_EMAIL"`

	UpstreamTimeout time.Duration `mapstructure:"UPSTREAM_TIMEOUT"`

	OTLPEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("PROJECT_NAME", "WA Health")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("AUTH_SERVICE_URL", "http://localhost:8001")
	v.SetDefault("VAPI_BASE_URL", "https://api.vapi.ai")
	v.SetDefault("APPOINTMENT_TOOL_NAME", "sendAppointmentEmail")
	v.SetDefault("PROVIDER_COST_TYPE", "vapi")
	v.SetDefault("UPSTREAM_TIMEOUT", "30s")
	v.SetDefault("OTEL_SERVICE_NAME", "recall-server")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("PROJECT_NAME")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REDIS_URL")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("TRUSTED_PROXIES")
	v.BindEnv("AUTH_SERVICE_URL")
	v.BindEnv("VAPI_API_KEY")
	v.BindEnv("VAPI_BASE_URL")
	v.BindEnv("ASSISTANT_ID")
	v.BindEnv("PHONE_NUMBER_ID")
	v.BindEnv("APPOINTMENT_TOOL_NAME")
	v.BindEnv("PROVIDER_COST_TYPE")
	// The registry used to be reached through a Postman mock; keep the old names working.
	v.BindEnv("REGISTRY_BASE_URL", "REGISTRY_BASE_URL", "POSTMAN_BASE_URL")
	v.BindEnv("REGISTRY_API_KEY", "REGISTRY_API_KEY", "POSTMAN_API_KEY")
	v.BindEnv("SENDGRID_API_KEY")
	v.BindEnv("SENDER_EMAIL")
	v.BindEnv("UPSTREAM_TIMEOUT")
	v.BindEnv("OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("OTEL_SERVICE_NAME")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if proxies := v.GetString("TRUSTED_PROXIES"); proxies != "" {
		cfg.TrustedProxies = nil
		for _, p := range strings.Split(proxies, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.TrustedProxies = append(cfg.TrustedProxies, p)
			}
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the keys needed to reach the calling provider and the
// mail service are present. Development mode only warns through the caller.
func (c *Config) Validate() error {
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout)
	}
	if !c.IsProduction() {
		return nil
	}

	required := map[string]string{
		"VAPI_API_KEY":      c.VapiAPIKey,
		"ASSISTANT_ID":      c.AssistantID,
		"PHONE_NUMBER_ID":   c.PhoneNumberID,
		"SENDGRID_API_KEY":  c.SendGridAPIKey,
		"SENDER_EMAIL":      c.SenderEmail,
		"REGISTRY_BASE_URL": c.RegistryBaseURL,
	}
	var missing []string
	for _, key := range []string{"VAPI_API_KEY", "ASSISTANT_ID", "PHONE_NUMBER_ID", "SENDGRID_API_KEY", "SENDER_EMAIL", "REGISTRY_BASE_URL"} {
		if required[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration in production: %s", strings.Join(missing, ", "))
	}
	return nil
}
