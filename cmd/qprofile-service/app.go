package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"qprofile/internal/auth"
	"qprofile/internal/config"
	"qprofile/internal/constants"
	"qprofile/internal/logger"
	"qprofile/internal/qualityprofile"
	"qprofile/pkg/health"
	"qprofile/pkg/metrics"
	"qprofile/pkg/middleware"
	"qprofile/pkg/ratelimit"
	"qprofile/pkg/tracing"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type App struct {
	config         *config.Config
	logger         logger.Logger
	components     *components
	service        qualityprofile.Service
	server         *http.Server
	router         *gin.Engine
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		config:     cfg,
		logger:     log,
		components: newComponents(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.config.Tracing, constants.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	if err := a.components.init(ctx); err != nil {
		return err
	}

	svc, err := a.components.services(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize quality profile service: %w", err)
	}
	a.service = svc

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	if err := a.initServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	return nil
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(constants.ServiceName))
		router.Use(tracing.TraceIDMiddleware())
	}

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(auth.Middleware(auth.NewTokenResolver(a.config.Auth)))

	if a.config.Management.RateLimit.Enabled {
		rateLimitConfig := ratelimit.FromConfig(a.config.Management.RateLimit)
		router.Use(ratelimit.RateLimitMiddleware(rateLimitConfig))
		a.logger.InfowCtx(context.Background(), "Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	qualityprofile.NewHandler(a.service, a.logger).RegisterRoutes(router)

	metrics.RegisterProfileMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterCircuitBreakerMetrics()
	metrics.RegisterHTTPMetrics()

	healthRegistry := health.NewCheckerRegistry()
	if a.components.db != nil {
		healthRegistry.Register(health.NewPostgreSQLChecker(a.components.db))
	}
	if a.components.mongoClient != nil {
		healthRegistry.RegisterOptional(health.NewMongoDBChecker(a.components.mongoClient))
	}
	if a.components.redisClient != nil {
		healthRegistry.RegisterOptional(health.NewRedisChecker(a.components.redisClient))
	}
	healthRegistry.RegisterOptional(health.NewBreakerChecker(a.components.breaker.Name(), a.components.breaker.IsOpen))

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.router = router
	return nil
}

func (a *App) initServer() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.config.Server.WriteTimeoutSeconds,
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		a.logger.InfowCtx(ctx, "Server listening", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return a.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	return a.components.base.Shutdown(shutdownCtx, func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		return append(errs, a.components.dbConnector.ShutdownDatabases(ctx, a.components.redisClient, a.components.db, a.components.mongoClient)...)
	})
}
