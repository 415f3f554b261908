// Package service wires the configured components into runnable
// services and owns their lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"grimdex/internal/assets"
	mongostore "grimdex/internal/catalog/mongo"
	"grimdex/internal/config"
	natsfeed "grimdex/internal/feed/nats"
	algolia "grimdex/internal/searchindex/algolia"
	"grimdex/internal/syncer"
	"grimdex/internal/webhook"
)

// Options selects which services the process runs.
type Options struct {
	RunWebhook bool
	RunFeed    bool
}

// Manager builds the shared components and starts and stops the
// selected services.
type Manager struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	store    *mongostore.Store
	index    *algolia.Client
	sync     *syncer.Syncer
	server   *http.Server
	consumer *natsfeed.Consumer
	wg       sync.WaitGroup
}

func NewManager(cfg *config.Config, opts Options, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		opts:   opts,
		logger: logger,
	}
}

// Syncer exposes the shared syncer, available after Init.
func (m *Manager) Syncer() *syncer.Syncer {
	return m.sync
}

// Init connects the backing stores and builds the selected services.
func (m *Manager) Init(ctx context.Context) error {
	store, err := mongostore.NewStore(ctx, m.cfg.Catalog.MongoURI, m.cfg.Catalog.Database)
	if err != nil {
		return fmt.Errorf("connect catalog: %w", err)
	}
	m.store = store

	m.index = algolia.New(m.cfg.Search.AppID, m.cfg.Search.APIKey, m.logger)

	builder := assets.NewBuilder(m.cfg.Assets.ProjectID, m.cfg.Assets.Dataset)
	if m.cfg.Assets.BaseURL != "" {
		builder = builder.WithBaseURL(m.cfg.Assets.BaseURL)
	}

	m.sync = syncer.New(m.cfg.Sync, m.store, m.index, builder, m.logger)

	if m.opts.RunWebhook {
		if m.cfg.Webhook.Secret == "" {
			return errors.New("webhook.secret is required to run the webhook service")
		}
		mux := http.NewServeMux()
		handler := webhook.NewHandler(m.sync, m.cfg.Webhook.Secret, m.logger)
		handler.RegisterRoutes(mux)
		m.server = &http.Server{
			Addr:              m.cfg.Webhook.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	if m.opts.RunFeed {
		consumer, err := natsfeed.NewConsumer(m.cfg.Feed, m.sync, m.logger)
		if err != nil {
			return fmt.Errorf("connect feed: %w", err)
		}
		m.consumer = consumer
	}

	return nil
}

// Start launches the selected services. It does not block.
func (m *Manager) Start(ctx context.Context) {
	if m.server != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.logger.Info("webhook service listening", "addr", m.server.Addr)
			if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				m.logger.Error("webhook service failed", "error", err)
			}
		}()
	}

	if m.consumer != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.logger.Info("feed service consuming", "stream", m.cfg.Feed.Stream)
			if err := m.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Error("feed service failed", "error", err)
			}
		}()
	}
}

// Shutdown stops the services and disconnects the backing stores.
func (m *Manager) Shutdown(ctx context.Context) {
	if m.server != nil {
		if err := m.server.Shutdown(ctx); err != nil {
			m.logger.Error("webhook shutdown failed", "error", err)
		}
	}
	if m.consumer != nil {
		m.consumer.Close()
	}

	m.wg.Wait()

	if m.store != nil {
		if err := m.store.Close(ctx); err != nil {
			m.logger.Error("catalog disconnect failed", "error", err)
		}
	}
}
