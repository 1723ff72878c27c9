// Package messaging announces account lifecycle events on NATS.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

type NATSPublisher struct {
	conn   natsConn
	logger logrus.FieldLogger
}

func NewNATSPublisher(url string, appName string, logger logrus.FieldLogger) (*NATSPublisher, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	opts := []nats.Option{
		nats.Name(appName + " publisher"),
		nats.Timeout(10 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.WithError(err).Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("nats connection closed")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	logger.WithField("url", conn.ConnectedUrl()).Info("nats connected")

	return &NATSPublisher{conn: conn, logger: logger}, nil
}

// Publish encodes payload as JSON and sends it on subject.
func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	p.logger.WithField("subject", subject).Debug("event published")
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
