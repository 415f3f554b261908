// Package syncer drives search-index synchronization: full-corpus batch
// rebuilds and per-event incremental updates, both producing records
// through the same aggregation path.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"grimdex/internal/assets"
	"grimdex/internal/catalog"
	"grimdex/internal/searchindex"
)

// Config holds sync driver configuration.
type Config struct {
	// IndexPrefix namespaces the engine-side index names,
	// e.g. "grimdex" yields grimdex_books.
	IndexPrefix string `yaml:"index_prefix"`

	// ThrottleRPS caps the upsert rate against the engine. Zero
	// disables throttling.
	ThrottleRPS float64 `yaml:"throttle_rps"`

	// MaxAttempts bounds retries of rate-limited writes.
	MaxAttempts int `yaml:"max_attempts"`

	// RetryBase is the initial backoff delay between attempts.
	RetryBase time.Duration `yaml:"retry_base"`
}

// ApplyDefaults fills unset fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.IndexPrefix == "" {
		c.IndexPrefix = "grimdex"
	}
	if c.ThrottleRPS == 0 {
		c.ThrottleRPS = 10
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = searchindex.DefaultMaxAttempts
	}
	if c.RetryBase == 0 {
		c.RetryBase = searchindex.DefaultRetryBase
	}
}

// Summary reports the outcome of one sync invocation.
type Summary struct {
	Processed int `json:"processed"`
	Synced    int `json:"synced"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Partial reports whether some targets failed while others succeeded.
func (s Summary) Partial() bool {
	return s.Failed > 0 && s.Synced > 0
}

func (s Summary) String() string {
	return fmt.Sprintf("processed=%d synced=%d skipped=%d failed=%d",
		s.Processed, s.Synced, s.Skipped, s.Failed)
}

// merge folds another summary into this one.
func (s *Summary) merge(other Summary) {
	s.Processed += other.Processed
	s.Synced += other.Synced
	s.Skipped += other.Skipped
	s.Failed += other.Failed
}

// Syncer owns both sync modes for all three indexes.
type Syncer struct {
	cfg     Config
	store   catalog.Store
	index   searchindex.Client
	assets  assets.Builder
	logger  *slog.Logger
	limiter *rate.Limiter
}

// New creates a Syncer.
func New(cfg Config, store catalog.Store, index searchindex.Client, builder assets.Builder, logger *slog.Logger) *Syncer {
	cfg.ApplyDefaults()

	var limiter *rate.Limiter
	if cfg.ThrottleRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.ThrottleRPS), 1)
	}

	return &Syncer{
		cfg:     cfg,
		store:   store,
		index:   index,
		assets:  builder,
		logger:  logger.With("component", "syncer"),
		limiter: limiter,
	}
}

// indexFor maps a leaf kind to its engine-side index name.
func (s *Syncer) indexFor(kind catalog.Kind) string {
	switch kind {
	case catalog.KindBook:
		return s.cfg.IndexPrefix + "_books"
	case catalog.KindAuthor:
		return s.cfg.IndexPrefix + "_authors"
	case catalog.KindSeries:
		return s.cfg.IndexPrefix + "_series"
	default:
		return ""
	}
}

// throttle waits for write-rate headroom.
func (s *Syncer) throttle(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

// Configure pushes relevance settings for the given indexes. Map keys
// are leaf kinds ("book", "author", "series"); the engine-side index
// name is derived from the configured prefix.
func (s *Syncer) Configure(ctx context.Context, settings map[catalog.Kind]searchindex.Settings) error {
	for kind, st := range settings {
		name := s.indexFor(kind)
		if name == "" {
			return fmt.Errorf("no index for kind %q", kind)
		}
		if err := s.index.Configure(ctx, name, st); err != nil {
			return fmt.Errorf("configure %s: %w", name, err)
		}
		s.logger.Info("index settings pushed", "index", name,
			"replicas", len(st.Replicas))
	}
	return nil
}
