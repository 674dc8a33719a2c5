package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "qprofile/cmd/qprofile-service/docs"

	"qprofile/internal/config"
	"qprofile/internal/constants"
	"qprofile/internal/logger"
	"qprofile/pkg/logging"
	"qprofile/pkg/migrations"
)

var (
	configFile string
)

// @title           Quality Profile Service API
// @version         1.0
// @description     REST API for activating rules in quality profiles, backing profiles up and restoring them
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.example.com/support
// @contact.email  support@example.com

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @schemes   http https

func main() {
	rootCmd := &cobra.Command{
		Use:   "qprofile-service",
		Short: "Quality profile service",
		Long:  "Quality profile service manages rule activations and keeps the active rule index in sync",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (required)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reindexCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, logger.Logger, error) {
	earlyLog := logging.NewEarlyLog()

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
		if configFile == "" {
			earlyLog.Error("Config file is required. Use --config flag or CONFIG_FILE environment variable")
			return nil, nil, fmt.Errorf("config file is required")
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return nil, nil, err
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		earlyLog.Error("Failed to init logger: %v", err)
		return nil, nil, err
	}
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quality profile service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting Quality Profile Service")

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.Fatalf("Failed to initialize application: %v", err)
			}

			if err := app.Run(ctx); err != nil {
				log.ErrorwCtx(ctx, "Application error", "error", err)
				return err
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back PostgreSQL schema migrations",
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			if cfg.Database.Driver == constants.DriverMemory {
				return fmt.Errorf("migrations require the %s driver", constants.DriverPostgres)
			}

			ctx := cmd.Context()
			c := newComponents(cfg, log)
			db, err := c.dbConnector.InitPostgreSQL(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			switch args[0] {
			case "up":
				err = migrations.PostgresUp(db)
			case "down":
				err = migrations.PostgresDown(db, steps)
			}
			if err != nil {
				log.ErrorwCtx(ctx, "Migration failed", "direction", args[0], "error", err)
				return err
			}
			log.InfowCtx(ctx, "Migration complete", "direction", args[0])
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	return cmd
}

func reindexCmd() *cobra.Command {
	var profileKeys []string

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the active rule index of profiles from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(profileKeys) == 0 {
				return fmt.Errorf("at least one --profile is required")
			}

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			c := newComponents(cfg, log)
			if err := c.init(ctx); err != nil {
				return err
			}
			defer c.shutdown(context.Background())

			reindexer := c.reindexer()
			for _, key := range profileKeys {
				n, err := reindexer.ReindexProfile(ctx, key)
				if err != nil {
					log.ErrorwCtx(ctx, "Reindex failed", "profile_key", key, "error", err)
					return err
				}
				log.InfowCtx(ctx, "Profile reindexed", "profile_key", key, "active_rules", n)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&profileKeys, "profile", nil, "Profile key to reindex (repeatable)")
	return cmd
}
