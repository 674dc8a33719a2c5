package broker

import (
	"fmt"

	"qprofile/internal/config"
	"qprofile/internal/logger"
)

// NewProducer returns nil when no broker is configured.
func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "kafka":
		return NewKafkaProducer(cfg.Kafka, log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}
