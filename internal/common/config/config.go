// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Dispatch DispatchConfig          `mapstructure:"dispatch"`
	Push     PushConfig              `mapstructure:"push"`
	Logging  LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Specific Configuration Sections ---

// DispatchConfig holds settings for the urgent-gig dispatch pass.
type DispatchConfig struct {
	// ProfileCacheTTL is how long enriched candidate profiles stay in
	// Redis, in seconds.
	ProfileCacheTTL int `mapstructure:"profile_cache_ttl"`
	// LocationFreshness bounds how old a live location update may be, in
	// hours, before the candidate falls back to their general area.
	LocationFreshness int `mapstructure:"location_freshness"`
	// GuardTTL is the lifetime of the already-dispatched guard key, in
	// hours.
	GuardTTL int `mapstructure:"guard_ttl"`
	// DeepLinkBaseURL prefixes the gig deep link placed in push payloads.
	DeepLinkBaseURL string `mapstructure:"deep_link_base_url"`
}

// PushConfig selects and configures the push gateway implementation.
type PushConfig struct {
	// Provider is "http" or "sns".
	Provider string `mapstructure:"provider"`

	HTTP HTTPPushConfig `mapstructure:"http"`
	SNS  SNSPushConfig  `mapstructure:"sns"`
}

type HTTPPushConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	AuthToken string `mapstructure:"auth_token"`
	Timeout   int    `mapstructure:"timeout"` // milliseconds
}

type SNSPushConfig struct {
	Region   string `mapstructure:"region"`
	TopicARN string `mapstructure:"topic_arn"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
