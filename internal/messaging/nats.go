package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

func NewNATSPublisher(url, subject string, logger *slog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("tutor-service"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	logger.Info("NATS publisher initialized", "url", url, "subject", subject)

	return &NATSPublisher{
		conn:    nc,
		subject: subject,
		logger:  logger,
	}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Header.Set("Event-Type", string(event.Type))
	msg.Data = body

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish to nats: %w", err)
	}

	p.logger.DebugContext(ctx, "event sent to NATS", "subject", p.subject, "type", event.Type)
	return nil
}

func (p *NATSPublisher) Driver() string { return "nats" }

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
