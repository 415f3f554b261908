package syncer

import (
	"context"
	"errors"
	"fmt"

	"grimdex/internal/aggregate"
	"grimdex/internal/catalog"
	"grimdex/internal/fanout"
	"grimdex/internal/feed"
	"grimdex/internal/searchindex"
)

// Incremental mode applies one change event with minimal blast radius.
// Each target in the fan-out set is processed independently: one bad
// record never blocks its siblings, because every upsert is a full
// idempotent recompute and targets commute.

// invocation is the per-invocation state of one incremental sync: the
// read cache shared across the fan-out set and the fingerprints of
// records already pushed, so overlapping fan-outs within a batched
// delivery collapse into one write. Discarded when the invocation ends.
type invocation struct {
	cache    *aggregate.Cache
	agg      *aggregate.Aggregator
	resolver *fanout.Resolver
	pushed   map[string]string // objectID -> fingerprint
}

func (s *Syncer) newInvocation() *invocation {
	cache := aggregate.NewCache(s.store)
	return &invocation{
		cache:    cache,
		agg:      aggregate.New(cache, s.assets, s.logger),
		resolver: fanout.New(cache, s.logger),
		pushed:   make(map[string]string),
	}
}

// Apply expands an envelope (single event or batched IDs) and applies
// every event within one invocation. Per-target failures are counted,
// not fatal; a resolver failure aborts the invocation.
func (s *Syncer) Apply(ctx context.Context, env feed.Envelope) (Summary, error) {
	events, err := env.Events()
	if err != nil {
		return Summary{}, err
	}

	inv := s.newInvocation()
	var sum Summary
	for _, evt := range events {
		evtSum, err := s.applyEvent(ctx, inv, evt)
		sum.merge(evtSum)
		if err != nil {
			return sum, err
		}
	}

	if sum.Partial() {
		s.logger.Warn("partial fan-out failure", "summary", sum.String())
	}
	return sum, nil
}

// ApplyEvent applies a single change event in its own invocation.
func (s *Syncer) ApplyEvent(ctx context.Context, evt feed.Event) (Summary, error) {
	return s.applyEventInvocation(ctx, s.newInvocation(), evt)
}

func (s *Syncer) applyEventInvocation(ctx context.Context, inv *invocation, evt feed.Event) (Summary, error) {
	sum, err := s.applyEvent(ctx, inv, evt)
	if err != nil {
		return sum, err
	}
	if sum.Partial() {
		s.logger.Warn("partial fan-out failure", "summary", sum.String())
	}
	return sum, nil
}

func (s *Syncer) applyEvent(ctx context.Context, inv *invocation, evt feed.Event) (Summary, error) {
	if err := evt.Validate(); err != nil {
		return Summary{}, err
	}

	targets, err := inv.resolver.Resolve(ctx, evt)
	if err != nil {
		return Summary{}, fmt.Errorf("resolve fan-out for %s/%s: %w", evt.Kind, evt.ID, err)
	}

	s.logger.Info("change event",
		"kind", evt.Kind,
		"id", evt.ID,
		"operation", evt.Operation,
		"targets", len(targets))

	var sum Summary
	for _, target := range targets {
		sum.Processed++
		switch s.processTarget(ctx, inv, target) {
		case outcomeSynced:
			sum.Synced++
		case outcomeSkipped:
			sum.Skipped++
		case outcomeFailed:
			sum.Failed++
		}
	}
	return sum, nil
}

type outcome int

const (
	outcomeSynced outcome = iota
	outcomeSkipped
	outcomeFailed
)

// processTarget recomputes or deletes one derived record. Every failure
// is logged with kind, ID and error before being counted.
func (s *Syncer) processTarget(ctx context.Context, inv *invocation, target fanout.Target) outcome {
	name := s.indexFor(target.Kind)

	if target.Delete {
		if err := s.deleteRecord(ctx, name, target.ID); err != nil {
			s.logger.Error("delete failed",
				"kind", target.Kind, "id", target.ID, "error", err)
			return outcomeFailed
		}
		return outcomeSynced
	}

	rec, err := s.aggregateTarget(ctx, inv, target)
	if errors.Is(err, catalog.ErrNotFound) {
		// No published version: the record must not stay in the index.
		if err := s.deleteRecord(ctx, name, target.ID); err != nil {
			s.logger.Error("delete failed",
				"kind", target.Kind, "id", target.ID, "error", err)
			return outcomeFailed
		}
		return outcomeSynced
	}
	if err != nil {
		s.logger.Error("aggregation failed",
			"kind", target.Kind, "id", target.ID, "error", err)
		return outcomeFailed
	}

	if fp := rec.Fingerprint(); fp != "" && inv.pushed[rec.Key()] == fp {
		return outcomeSkipped
	}

	if err := s.upsertRecord(ctx, name, rec); err != nil {
		s.logger.Error("upsert failed",
			"kind", target.Kind, "id", target.ID, "error", err)
		return outcomeFailed
	}
	inv.pushed[rec.Key()] = rec.Fingerprint()
	return outcomeSynced
}

func (s *Syncer) aggregateTarget(ctx context.Context, inv *invocation, target fanout.Target) (aggregate.Record, error) {
	switch target.Kind {
	case catalog.KindBook:
		return inv.agg.Book(ctx, target.ID)
	case catalog.KindAuthor:
		return inv.agg.Author(ctx, target.ID)
	case catalog.KindSeries:
		return inv.agg.Series(ctx, target.ID)
	default:
		return nil, fmt.Errorf("no aggregation for kind %q", target.Kind)
	}
}

func (s *Syncer) upsertRecord(ctx context.Context, index string, rec aggregate.Record) error {
	if err := s.throttle(ctx); err != nil {
		return err
	}
	return searchindex.WithRetry(ctx, s.cfg.MaxAttempts, s.cfg.RetryBase, func() error {
		return s.index.Upsert(ctx, index, rec)
	})
}

func (s *Syncer) deleteRecord(ctx context.Context, index, objectID string) error {
	if err := s.throttle(ctx); err != nil {
		return err
	}
	return searchindex.WithRetry(ctx, s.cfg.MaxAttempts, s.cfg.RetryBase, func() error {
		return s.index.Delete(ctx, index, objectID)
	})
}
