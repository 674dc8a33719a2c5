package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const memoryConfig = `
database:
  driver: memory
`

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, memoryConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeoutSeconds)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "active_rules", cfg.Index.Collection)
	assert.Equal(t, 3, cfg.Index.Retry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Index.Retry.InitialInterval)
	assert.Equal(t, 4, cfg.QualityProfile.BulkConcurrency)
	assert.Equal(t, "default-organization", cfg.QualityProfile.DefaultOrganization)
	assert.Equal(t, 300, cfg.Database.Redis.TTLSeconds)
}

func TestLoadConfig_SampleFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Broker.Kafka.Brokers)
	assert.Equal(t, 5*time.Second, cfg.Index.Retry.MaxInterval)
	require.Len(t, cfg.Auth.Tokens, 2)
	assert.Equal(t, []string{"profileadmin"}, cfg.Auth.Tokens[0].Capabilities)

	require.NotEmpty(t, cfg.Rules)
	assert.Equal(t, "java:S1234", cfg.Rules[0].Key)
	require.Len(t, cfg.Rules[0].Params, 1)
	assert.Equal(t, "20", cfg.Rules[0].Params[0].Default)

	require.Len(t, cfg.BuiltInProfiles, 2)
	assert.True(t, cfg.BuiltInProfiles[0].Default)
	assert.Equal(t, "BLOCKER", cfg.BuiltInProfiles[0].Rules[2].Severity)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("BROKER_KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := LoadConfig(writeConfig(t, memoryConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Broker.Kafka.Brokers)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateStatic(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080, ReadTimeoutSeconds: time.Second, WriteTimeoutSeconds: time.Second},
			Database: DatabaseConfig{Driver: "memory"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "sqlite" }, wantErr: "database.driver"},
		{name: "postgres without host", mutate: func(c *Config) { c.Database.Driver = "postgres" }, wantErr: "database.postgres.host"},
		{name: "bad mongo uri", mutate: func(c *Config) { c.Database.MongoDB.URI = "http://mongo" }, wantErr: "database.mongodb.uri"},
		{name: "kafka without topic", mutate: func(c *Config) {
			c.Broker = BrokerConfig{Type: "kafka", Kafka: KafkaConfig{Brokers: []string{"k:9092"}}}
		}, wantErr: "broker.kafka.change_topic"},
		{name: "duplicate token", mutate: func(c *Config) {
			c.Auth.Tokens = []TokenConfig{{Token: "t", Login: "a"}, {Token: "t", Login: "b"}}
		}, wantErr: "duplicate token"},
		{name: "duplicate rule", mutate: func(c *Config) {
			c.Rules = []RuleDefinitionConfig{{Key: "java:S1", Language: "java"}, {Key: "java:S1", Language: "java"}}
		}, wantErr: "duplicate rule key"},
		{name: "rule param without name", mutate: func(c *Config) {
			c.Rules = []RuleDefinitionConfig{{Key: "java:S1", Language: "java", Params: []RuleParamConfig{{Type: "INTEGER"}}}}
		}, wantErr: "rules[0].params[0].name"},
		{name: "two built-in defaults", mutate: func(c *Config) {
			c.BuiltInProfiles = []BuiltInProfileConfig{
				{Name: "A", Language: "java", Default: true},
				{Name: "B", Language: "java", Default: true},
			}
		}, wantErr: "already has default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := ValidateStatic(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
