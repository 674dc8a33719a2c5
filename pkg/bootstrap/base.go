package bootstrap

import (
	"context"
	"fmt"

	"qprofile/internal/broker"
	"qprofile/internal/config"
	"qprofile/internal/logger"
)

// Base holds what every command of the service needs: configuration, the
// logger and the optional change event producer.
type Base struct {
	Config   *config.Config
	Logger   logger.Logger
	Producer broker.Producer
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

// InitBroker creates the change event producer. It leaves Producer nil when
// no broker is configured.
func (b *Base) InitBroker() error {
	producer, err := broker.NewProducer(b.Config.Broker, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}
	if producer == nil {
		b.Logger.Info("No broker configured, change notifications disabled")
		return nil
	}

	b.Producer = producer
	b.Logger.Infow("Change event producer ready",
		"brokers", b.Config.Broker.Kafka.Brokers,
		"topic", b.Config.Broker.Kafka.ChangeTopic,
	)
	return nil
}

func (b *Base) ShutdownBroker() []error {
	var errs []error

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	return errs
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down quality profile service...")

	var errs []error

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	// Pending notifications are flushed after the HTTP server stops accepting
	// mutations.
	errs = append(errs, b.ShutdownBroker()...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("Quality profile service exited successfully")
	return nil
}
