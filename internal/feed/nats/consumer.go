// Package nats consumes change events from a NATS JetStream stream and
// applies them through the incremental sync driver.
//
// The CMS-side relay publishes one message per change to
// catalog.events.{kind}; this consumer is the durable subscriber that
// turns those messages into index updates.
package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"grimdex/internal/catalog"
	"grimdex/internal/feed"
	"grimdex/internal/syncer"
)

// Config holds the JetStream consumer configuration.
type Config struct {
	// URL is the NATS server address.
	URL string `yaml:"url"`

	// Stream is the JetStream stream carrying change events.
	Stream string `yaml:"stream"`

	// Consumer is the durable consumer name.
	Consumer string `yaml:"consumer"`

	// NakDelay is the redelivery delay after a transient failure.
	NakDelay time.Duration `yaml:"nak_delay"`
}

// ApplyDefaults fills unset fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = nats.DefaultURL
	}
	if c.Stream == "" {
		c.Stream = "CATALOG_EVENTS"
	}
	if c.Consumer == "" {
		c.Consumer = "grimdex-sync"
	}
	if c.NakDelay == 0 {
		c.NakDelay = 5 * time.Second
	}
}

// Consumer is the durable change-feed subscriber.
type Consumer struct {
	cfg    Config
	nc     *nats.Conn
	js     jetstream.JetStream
	sync   *syncer.Syncer
	logger *slog.Logger
}

// NewConsumer connects to NATS and prepares the JetStream context.
func NewConsumer(cfg Config, sync *syncer.Syncer, logger *slog.Logger) (*Consumer, error) {
	cfg.ApplyDefaults()

	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Consumer{
		cfg:    cfg,
		nc:     nc,
		js:     js,
		sync:   sync,
		logger: logger.With("component", "feed"),
	}, nil
}

// Run consumes change events until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     c.cfg.Stream,
		Subjects: []string{"catalog.events.>"},
	})
	if err != nil {
		return fmt.Errorf("ensure stream: %w", err)
	}

	consumer, err := c.js.CreateOrUpdateConsumer(ctx, c.cfg.Stream, jetstream.ConsumerConfig{
		Durable:   c.cfg.Consumer,
		AckPolicy: jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		c.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	c.logger.Info("change feed subscribed",
		"stream", c.cfg.Stream, "consumer", c.cfg.Consumer)

	<-ctx.Done()
	cc.Stop()
	return nil
}

// handle applies one message. Malformed payloads are terminated (no
// redelivery can fix them); transient failures are nak'd for redelivery.
func (c *Consumer) handle(ctx context.Context, msg jetstream.Msg) {
	env, err := feed.Decode(msg.Data())
	if err != nil {
		c.logger.Error("terminating malformed event", "subject", msg.Subject(), "error", err)
		_ = msg.Term()
		return
	}

	sum, err := c.sync.Apply(ctx, env)
	if err != nil {
		if errors.Is(err, catalog.ErrUpstream) {
			c.logger.Warn("transient sync failure, requesting redelivery",
				"subject", msg.Subject(), "error", err)
			_ = msg.NakWithDelay(c.cfg.NakDelay)
			return
		}
		c.logger.Error("terminating unprocessable event",
			"subject", msg.Subject(), "error", err)
		_ = msg.Term()
		return
	}

	c.logger.Info("event applied", "subject", msg.Subject(), "summary", sum.String())
	_ = msg.Ack()
}

// Close drains the NATS connection.
func (c *Consumer) Close() {
	c.nc.Close()
}
