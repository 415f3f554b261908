package syncer

import (
	"context"
	"errors"
	"fmt"

	"grimdex/internal/aggregate"
	"grimdex/internal/catalog"
	"grimdex/internal/searchindex"
)

// Batch mode rebuilds one index from scratch: enumerate, aggregate
// everything, then a single atomic replace-all. Aggregation failures
// abort before any write reaches the engine, so a rebuild either lands
// whole or leaves the index untouched. A stale index beats an
// inconsistent one.

// RebuildBooks rebuilds the book index.
func (s *Syncer) RebuildBooks(ctx context.Context) (Summary, error) {
	cache := aggregate.NewCache(s.store)
	agg := aggregate.New(cache, s.assets, s.logger)

	books, err := cache.ListBooks(ctx)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	records := make([]searchindex.Record, 0, len(books))
	for _, book := range books {
		sum.Processed++
		rec, err := agg.Book(ctx, book.ID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				// Unpublished between enumeration and aggregation.
				sum.Skipped++
				continue
			}
			return sum, fmt.Errorf("aggregate book %s: %w", book.ID, err)
		}
		records = append(records, rec)
	}

	return s.submit(ctx, catalog.KindBook, records, sum)
}

// RebuildAuthors rebuilds the author index.
func (s *Syncer) RebuildAuthors(ctx context.Context) (Summary, error) {
	cache := aggregate.NewCache(s.store)
	agg := aggregate.New(cache, s.assets, s.logger)

	authors, err := cache.ListAuthors(ctx)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	records := make([]searchindex.Record, 0, len(authors))
	for _, author := range authors {
		sum.Processed++
		rec, err := agg.Author(ctx, author.ID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				sum.Skipped++
				continue
			}
			return sum, fmt.Errorf("aggregate author %s: %w", author.ID, err)
		}
		records = append(records, rec)
	}

	return s.submit(ctx, catalog.KindAuthor, records, sum)
}

// RebuildSeries rebuilds the series index.
func (s *Syncer) RebuildSeries(ctx context.Context) (Summary, error) {
	cache := aggregate.NewCache(s.store)
	agg := aggregate.New(cache, s.assets, s.logger)

	series, err := cache.ListSeries(ctx)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	records := make([]searchindex.Record, 0, len(series))
	for _, sr := range series {
		sum.Processed++
		rec, err := agg.Series(ctx, sr.ID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				sum.Skipped++
				continue
			}
			return sum, fmt.Errorf("aggregate series %s: %w", sr.ID, err)
		}
		records = append(records, rec)
	}

	return s.submit(ctx, catalog.KindSeries, records, sum)
}

// RebuildAll rebuilds every index, keyed by leaf kind in the result.
// The first failing index aborts the rest.
func (s *Syncer) RebuildAll(ctx context.Context) (map[catalog.Kind]Summary, error) {
	out := make(map[catalog.Kind]Summary, 3)

	sum, err := s.RebuildBooks(ctx)
	out[catalog.KindBook] = sum
	if err != nil {
		return out, err
	}

	sum, err = s.RebuildAuthors(ctx)
	out[catalog.KindAuthor] = sum
	if err != nil {
		return out, err
	}

	sum, err = s.RebuildSeries(ctx)
	out[catalog.KindSeries] = sum
	if err != nil {
		return out, err
	}

	return out, nil
}

// submit performs the replace-all once every record aggregated cleanly.
func (s *Syncer) submit(ctx context.Context, kind catalog.Kind, records []searchindex.Record, sum Summary) (Summary, error) {
	name := s.indexFor(kind)
	err := searchindex.WithRetry(ctx, s.cfg.MaxAttempts, s.cfg.RetryBase, func() error {
		return s.index.ReplaceAll(ctx, name, records)
	})
	if err != nil {
		sum.Failed = len(records)
		return sum, fmt.Errorf("replace all on %s: %w", name, err)
	}

	sum.Synced = len(records)
	s.logger.Info("index rebuilt", "index", name, "summary", sum.String())
	return sum, nil
}
