package messaging

import (
	"log/slog"

	"tutor-service/internal/config"
)

// New connects the configured driver. An unreachable broker is not fatal:
// the service keeps running and drops events, as it does with driver "none".
func New(cfg config.EventsConfig, logger *slog.Logger) Publisher {
	var (
		p   Publisher
		err error
	)

	switch cfg.Driver {
	case config.EventsDriverNATS:
		p, err = NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject, logger)
	case config.EventsDriverKafka:
		p, err = NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	case config.EventsDriverAMQP:
		p, err = NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.RoutingKey, logger)
	default:
		return Noop{}
	}

	if err != nil {
		logger.Warn("failed to initialize event publisher, events are disabled", "driver", cfg.Driver, "error", err)
		return Noop{}
	}
	return p
}
