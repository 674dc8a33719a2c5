package config

import (
	"fmt"
	"strings"

	"qprofile/internal/constants"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateDatabase(cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validateIndex(cfg.Index); err != nil {
		errors = append(errors, err)
	}

	if err := validateAuth(cfg.Auth); err != nil {
		errors = append(errors, err)
	}

	if err := validateRules(cfg.Rules); err != nil {
		errors = append(errors, err)
	}

	if err := validateBuiltInProfiles(cfg.BuiltInProfiles); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

// The broker is optional; change notifications are disabled without it.
func validateBroker(cfg BrokerConfig) error {
	switch cfg.Type {
	case "":
		return nil
	case "kafka":
		return validateKafka(cfg.Kafka)
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka)", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.ChangeTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.change_topic",
			Message: "change topic is required when kafka is enabled",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	switch cfg.Driver {
	case constants.DriverPostgres, "":
		if err := validatePostgres(cfg.Postgres); err != nil {
			return err
		}
	case constants.DriverMemory:
	default:
		return &ValidationError{
			Field:   "database.driver",
			Message: fmt.Sprintf("unknown driver: %s (supported: postgres, memory)", cfg.Driver),
		}
	}

	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	if cfg.MongoDB.URI != "" {
		if err := validateMongoDB(cfg.MongoDB); err != nil {
			return err
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "PostgreSQL host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{
			Field:   "database.postgres.user",
			Message: "PostgreSQL user is required",
		}
	}

	if cfg.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres.dbname",
			Message: "PostgreSQL database name is required",
		}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.TTLSeconds < 0 {
		return &ValidationError{
			Field:   "database.redis.ttl_seconds",
			Message: "ttl must be non-negative",
		}
	}

	return nil
}

func validateMongoDB(cfg MongoDBConfig) error {
	if !strings.HasPrefix(cfg.URI, "mongodb://") && !strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "URI must start with mongodb:// or mongodb+srv://",
		}
	}
	return nil
}

func validateIndex(cfg IndexConfig) error {
	if cfg.Retry.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "index.retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "index.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Retry.Multiplier < 0 {
		return &ValidationError{
			Field:   "index.retry.multiplier",
			Message: "multiplier must be non-negative",
		}
	}

	return nil
}

func validateAuth(cfg AuthConfig) error {
	seen := make(map[string]bool, len(cfg.Tokens))
	for i, tok := range cfg.Tokens {
		if tok.Token == "" || tok.Login == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("auth.tokens[%d]", i),
				Message: "token and login are required",
			}
		}
		if seen[tok.Token] {
			return &ValidationError{
				Field:   fmt.Sprintf("auth.tokens[%d].token", i),
				Message: "duplicate token",
			}
		}
		seen[tok.Token] = true
	}
	return nil
}

// validateRules checks the shape of the rule catalog. Severities and param
// types are checked when the catalog is converted to domain rules.
func validateRules(rules []RuleDefinitionConfig) error {
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if r.Key == "" || r.Language == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("rules[%d]", i),
				Message: "key and language are required",
			}
		}
		if seen[r.Key] {
			return &ValidationError{
				Field:   fmt.Sprintf("rules[%d].key", i),
				Message: fmt.Sprintf("duplicate rule key %s", r.Key),
			}
		}
		seen[r.Key] = true
		for j, p := range r.Params {
			if p.Name == "" {
				return &ValidationError{
					Field:   fmt.Sprintf("rules[%d].params[%d].name", i, j),
					Message: "param name is required",
				}
			}
		}
	}
	return nil
}

func validateBuiltInProfiles(profiles []BuiltInProfileConfig) error {
	defaults := make(map[string]string)
	for i, p := range profiles {
		if p.Name == "" || p.Language == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("builtin_profiles[%d]", i),
				Message: "name and language are required",
			}
		}
		if p.Default {
			if other, ok := defaults[p.Language]; ok {
				return &ValidationError{
					Field:   fmt.Sprintf("builtin_profiles[%d].default", i),
					Message: fmt.Sprintf("language %s already has default built-in profile %q", p.Language, other),
				}
			}
			defaults[p.Language] = p.Name
		}
		for j, r := range p.Rules {
			if r.RuleKey == "" {
				return &ValidationError{
					Field:   fmt.Sprintf("builtin_profiles[%d].rules[%d].rule_key", i, j),
					Message: "rule_key is required",
				}
			}
		}
	}
	return nil
}
