package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"qprofile/internal/config"
	"qprofile/internal/constants"
	"qprofile/internal/logger"
	"qprofile/internal/qualityprofile"
	"qprofile/pkg/bootstrap"
	"qprofile/pkg/cel"
	"qprofile/pkg/circuitbreaker"
	"qprofile/pkg/migrations"
	"qprofile/pkg/retry"
)

type activeRuleIndex interface {
	qualityprofile.ProfileIndex
	qualityprofile.ActiveRuleSearcher
}

// components is the wiring shared by the serve and reindex commands.
type components struct {
	config      *config.Config
	logger      logger.Logger
	base        *bootstrap.Base
	dbConnector *bootstrap.DatabaseConnector

	db          *sql.DB
	mongoClient *mongo.Client
	redisClient *redis.Client

	store      qualityprofile.Store
	index      activeRuleIndex
	breaker    *circuitbreaker.Wrapper
	cache      qualityprofile.DefaultProfileCache
	propagator *qualityprofile.Propagator
}

func newComponents(cfg *config.Config, log logger.Logger) *components {
	return &components{
		config:      cfg,
		logger:      log,
		base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (c *components) init(ctx context.Context) error {
	if err := c.initStore(ctx); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if err := c.initIndex(ctx); err != nil {
		return fmt.Errorf("failed to initialize index: %w", err)
	}
	c.initCache(ctx)

	if err := c.base.InitBroker(); err != nil {
		c.logger.WarnwCtx(ctx, "Failed to create change event producer, notifications will be disabled", "error", err)
	}

	var notifier qualityprofile.ChangeNotifier
	if c.base.Producer != nil {
		notifier = qualityprofile.NewChangeEventProducer(c.base.Producer, c.config.Broker.Kafka.ChangeTopic)
	}

	c.breaker = circuitbreaker.NewWrapper(circuitbreaker.FromConfig("active_rule_index", c.config.CircuitBreaker))
	writer := qualityprofile.NewResilientIndexWriter(c.index, c.breaker, retryPolicy(c.config.Index.Retry), c.logger.Named("index"))
	c.propagator = qualityprofile.NewPropagator(writer, notifier, c.logger)
	return nil
}

func (c *components) initStore(ctx context.Context) error {
	if c.config.Database.Driver == constants.DriverMemory {
		c.logger.WarnwCtx(ctx, "Using in-memory store, profiles are lost on restart")
		c.store = qualityprofile.NewMemoryStore()
		return nil
	}

	db, err := c.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	c.db = db

	if c.config.Database.RunMigrations {
		if err := migrations.PostgresUp(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		c.logger.InfowCtx(ctx, "Database migrations applied")
	}

	c.store = qualityprofile.NewPostgresStore(db)
	return nil
}

func (c *components) initIndex(ctx context.Context) error {
	mongoClient, err := c.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return err
	}
	if mongoClient == nil {
		c.logger.WarnwCtx(ctx, "No MongoDB configured, using in-memory active rule index")
		c.index = qualityprofile.NewMemoryActiveRuleIndex()
		return nil
	}
	c.mongoClient = mongoClient

	dbName := c.config.Database.MongoDB.Database
	if dbName == "" {
		dbName = constants.DefaultMongoDBName
	}
	collection := c.config.Index.Collection
	if collection == "" {
		collection = constants.ActiveRuleIndexCollection
	}

	db := mongoClient.Database(dbName)
	if err := migrations.EnsureActiveRuleIndex(ctx, db, collection); err != nil {
		return err
	}
	c.index = qualityprofile.NewMongoActiveRuleIndex(db, collection)
	return nil
}

// initCache falls back to no caching when Redis is unreachable; the default
// profile is then always read from the store.
func (c *components) initCache(ctx context.Context) {
	c.cache = qualityprofile.NoopDefaultCache()

	client, err := c.dbConnector.InitRedis(ctx)
	if err != nil {
		c.logger.WarnwCtx(ctx, "Redis connection failed, continuing without default profile cache", "error", err)
		return
	}
	if client == nil {
		return
	}
	c.redisClient = client

	ttl := c.config.Database.Redis.TTLSeconds
	if ttl <= 0 {
		ttl = constants.DefaultProfileCacheTTLSeconds
	}
	c.cache = qualityprofile.NewRedisDefaultCache(client, time.Duration(ttl)*time.Second, c.logger)
}

func (c *components) reindexer() *qualityprofile.Reindexer {
	return qualityprofile.NewReindexer(c.store, c.index, c.logger)
}

func (c *components) organization() string {
	if org := c.config.QualityProfile.DefaultOrganization; org != "" {
		return org
	}
	return constants.DefaultOrganization
}

// services builds the quality profile service and registers the configured
// rule catalog and built-in profiles.
func (c *components) services(ctx context.Context) (qualityprofile.Service, error) {
	rules, err := qualityprofile.RulesFromConfig(c.config.Rules)
	if err != nil {
		return nil, err
	}
	if err := qualityprofile.NewRuleRegistrar(c.store, c.logger).Register(ctx, rules); err != nil {
		return nil, fmt.Errorf("failed to register rules: %w", err)
	}

	builtIns, err := qualityprofile.BuiltInProfilesFromConfig(c.config.BuiltInProfiles)
	if err != nil {
		return nil, err
	}

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, err
	}

	bulkConcurrency := c.config.QualityProfile.BulkConcurrency
	if bulkConcurrency <= 0 {
		bulkConcurrency = constants.DefaultBulkConcurrency
	}

	factory := qualityprofile.NewFactory(c.store, c.cache, c.logger)
	activator := qualityprofile.NewActivator(c.store, qualityprofile.NewRuleSelector(evaluator), c.propagator, c.logger,
		qualityprofile.WithBulkConcurrency(bulkConcurrency),
	)
	backuper := qualityprofile.NewBackuper(c.store, activator, factory, c.organization(), c.logger)
	reset := qualityprofile.NewReset(builtIns, activator, factory, c.organization(), c.logger)

	res, err := reset.RegisterMissing(ctx, c.store, c.propagator)
	if err != nil {
		return nil, fmt.Errorf("failed to register built-in profiles: %w", err)
	}
	if res.IndexStale {
		c.logger.WarnwCtx(ctx, "Built-in profiles registered but index is stale", "error", res.IndexError)
	}

	return qualityprofile.NewService(c.store, activator, factory, c.propagator, c.logger,
		qualityprofile.WithBackuper(backuper),
		qualityprofile.WithResetter(reset),
		qualityprofile.WithSearcher(c.index),
	), nil
}

func (c *components) shutdown(ctx context.Context) []error {
	errs := c.base.ShutdownBroker()
	return append(errs, c.dbConnector.ShutdownDatabases(ctx, c.redisClient, c.db, c.mongoClient)...)
}

func retryPolicy(cfg config.RetryConfig) retry.Policy {
	policy := retry.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialInterval > 0 {
		policy.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		policy.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier > 0 {
		policy.Multiplier = cfg.Multiplier
	}
	if cfg.MaxElapsedTime > 0 {
		policy.MaxElapsedTime = cfg.MaxElapsedTime
	}
	return policy
}
