package config

import (
	"time"
)

type Config struct {
	Server          ServerConfig
	Database        DatabaseConfig
	Broker          BrokerConfig
	Logging         LoggingConfig
	Index           IndexConfig
	QualityProfile  QualityProfileConfig   `mapstructure:"quality_profile"`
	Auth            AuthConfig
	Management      ManagementConfig
	CircuitBreaker  CircuitBreakerConfig   `mapstructure:"circuit_breaker"`
	Tracing         TracingConfig
	Rules           []RuleDefinitionConfig `mapstructure:"rules"`
	BuiltInProfiles []BuiltInProfileConfig `mapstructure:"builtin_profiles"`
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	// Driver selects the system of record: "postgres" (default) or "memory".
	Driver        string `mapstructure:"driver"`
	Postgres      PostgresConfig
	Redis         RedisConfig
	MongoDB       MongoDBConfig
	RunMigrations bool `mapstructure:"run_migrations"`
}

type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	ChangeTopic string   `mapstructure:"change_topic"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// IndexConfig controls propagation of change sets to the search index.
type IndexConfig struct {
	Collection string      `mapstructure:"collection"`
	Retry      RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type QualityProfileConfig struct {
	BulkConcurrency     int    `mapstructure:"bulk_concurrency"`
	DefaultOrganization string `mapstructure:"default_organization"`
}

type AuthConfig struct {
	Tokens []TokenConfig `mapstructure:"tokens"`
}

// TokenConfig maps a bearer token to a login and its capabilities.
type TokenConfig struct {
	Token        string   `mapstructure:"token"`
	Login        string   `mapstructure:"login"`
	Capabilities []string `mapstructure:"capabilities"`
}

// RuleDefinitionConfig is one entry of the rule catalog.
type RuleDefinitionConfig struct {
	Key      string            `mapstructure:"key"`
	Name     string            `mapstructure:"name"`
	Language string            `mapstructure:"language"`
	Severity string            `mapstructure:"severity"`
	Status   string            `mapstructure:"status"`
	Tags     []string          `mapstructure:"tags"`
	Params   []RuleParamConfig `mapstructure:"params"`
}

type RuleParamConfig struct {
	Name        string `mapstructure:"name"`
	Type        string `mapstructure:"type"`
	Default     string `mapstructure:"default"`
	Description string `mapstructure:"description"`
}

// BuiltInProfileConfig describes a profile shipped with the installation.
type BuiltInProfileConfig struct {
	Name     string                    `mapstructure:"name"`
	Language string                    `mapstructure:"language"`
	Default  bool                      `mapstructure:"default"`
	Rules    []BuiltInActivationConfig `mapstructure:"rules"`
}

type BuiltInActivationConfig struct {
	RuleKey  string            `mapstructure:"rule_key"`
	Severity string            `mapstructure:"severity"`
	Params   map[string]string `mapstructure:"params"`
}

type ManagementConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
