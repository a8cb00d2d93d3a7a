package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes events to NATS subjects named after their topic.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to url with automatic reconnection.
func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	defaults := []nats.Option{
		nats.Name("payout-vault"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, event Envelope) error {
	data, err := event.Encode()
	if err != nil {
		return err
	}
	if err := p.conn.Publish(event.Topic, data); err != nil {
		return fmt.Errorf("publishing %s: %w", event.Topic, err)
	}
	return nil
}

// Ping reports whether the connection is usable. The health endpoint uses it.
func (p *NATSPublisher) Ping() error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats status %s", p.conn.Status())
	}
	return p.conn.FlushTimeout(2 * time.Second)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}
