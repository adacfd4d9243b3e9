package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	Token         string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "slotwatch.notify",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// publisher is the part of *nats.Conn the sender needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSender publishes each event as JSON to "<prefix>.<recipient>".
type NATSSender struct {
	conn   publisher
	prefix string
}

// ConnectNATS dials the server and returns a sender together with the
// connection, which the caller drains on shutdown.
func ConnectNATS(cfg NATSConfig, logger zerolog.Logger) (*NATSSender, *nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("slotwatch"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return NewNATSSender(nc, cfg.SubjectPrefix), nc, nil
}

func NewNATSSender(conn publisher, prefix string) *NATSSender {
	return &NATSSender{conn: conn, prefix: prefix}
}

func (s *NATSSender) Send(ctx context.Context, recipient string, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	subject := s.prefix + "." + recipient
	if err := s.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
