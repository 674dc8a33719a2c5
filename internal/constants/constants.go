package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

const (
	DefaultMongoDBName        = "qprofile"
	ActiveRuleIndexCollection = "active_rules"
)

const (
	CacheKeyPrefixDefaultProfile           = "qprofile:default:"
	CacheKeyPrefixDefaultProfileGeneration = "qprofile:default-gen:"
	DefaultProfileCacheTTLSeconds          = 300
)

const (
	ShutdownTimeout = 5 * time.Second
	IndexTimeout    = 30 * time.Second
)

const (
	DefaultBulkConcurrency = 4
	DefaultOrganization    = "default-organization"
	MaxProfileNameLength   = 100
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	ServiceName = "qprofile-service"
)
