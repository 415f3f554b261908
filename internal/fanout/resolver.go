// Package fanout computes which derived search records must be
// recomputed in response to a change event.
//
// The book, author and series indexes each denormalize data from the
// other kinds, so a single change can ripple outward: an author rename
// touches every book record crediting them, and every series record
// whose membership includes one of those books. The resolver walks those
// reference edges through reverse queries and returns a deduplicated
// target set.
package fanout

import (
	"context"
	"log/slog"

	"grimdex/internal/catalog"
	"grimdex/internal/feed"
)

// Target identifies one derived record to recompute or delete.
type Target struct {
	Kind   catalog.Kind
	ID     string
	Delete bool
}

// Resolver expands change events into target sets.
type Resolver struct {
	store  catalog.Store
	logger *slog.Logger
}

// New creates a Resolver over the given read capability.
func New(store catalog.Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger.With("component", "fanout"),
	}
}

// leafKinds are the kinds that own a search index of their own.
var leafKinds = map[catalog.Kind]bool{
	catalog.KindBook:   true,
	catalog.KindAuthor: true,
	catalog.KindSeries: true,
}

// Resolve computes the complete, deduplicated set of records affected by
// one change event.
//
// Removal of a leaf entity yields a single delete target and nothing
// else: records that still reference the removed document keep stale
// data until their own next update. Removal of a non-leaf entity yields
// no targets at all, for the same reason. Both are an accepted
// eventual-consistency gap.
//
// A mutation whose subject has no published version is a draft edit and
// resolves to nothing.
func (r *Resolver) Resolve(ctx context.Context, evt feed.Event) ([]Target, error) {
	if evt.Operation.Removes() {
		if leafKinds[evt.Kind] {
			return []Target{{Kind: evt.Kind, ID: evt.ID, Delete: true}}, nil
		}
		r.logger.Debug("removed entity is not a leaf kind, no fan-out",
			"kind", evt.Kind, "id", evt.ID)
		return nil, nil
	}

	published, err := r.store.IsPublished(ctx, evt.Kind, evt.ID)
	if err != nil {
		return nil, err
	}
	if !published {
		r.logger.Debug("draft-only mutation ignored", "kind", evt.Kind, "id", evt.ID)
		return nil, nil
	}

	set := newTargetSet()
	switch evt.Kind {
	case catalog.KindBook:
		err = r.fromBook(ctx, evt.ID, set)
	case catalog.KindAuthor:
		err = r.fromAuthor(ctx, evt.ID, set)
	case catalog.KindSeries:
		err = r.fromSeries(ctx, evt.ID, set)
	case catalog.KindFaction:
		err = r.fromBooks(ctx, set, func(ctx context.Context) ([]catalog.Book, error) {
			return r.store.BooksByFaction(ctx, evt.ID)
		})
	case catalog.KindEra:
		err = r.fromBooks(ctx, set, func(ctx context.Context) ([]catalog.Book, error) {
			return r.store.BooksByEra(ctx, evt.ID)
		})
	case catalog.KindFactionGroup:
		// Group fields are not denormalized into any record.
	}
	if err != nil {
		return nil, err
	}
	return set.targets, nil
}

// fromBook expands a book change: the book's own record, the records of
// every author crediting it, and every series containing it.
func (r *Resolver) fromBook(ctx context.Context, id string, set *targetSet) error {
	set.add(catalog.KindBook, id)

	book, err := r.store.GetBook(ctx, id)
	if err != nil {
		return err
	}
	for _, authorID := range book.AuthorIDs {
		set.add(catalog.KindAuthor, authorID)
	}

	series, err := r.store.SeriesForBook(ctx, id)
	if err != nil {
		return err
	}
	for _, sr := range series {
		set.add(catalog.KindSeries, sr.ID)
	}
	return nil
}

// fromAuthor expands an author change: the author's own record, every
// book crediting them, and every series those books belong to.
func (r *Resolver) fromAuthor(ctx context.Context, id string, set *targetSet) error {
	set.add(catalog.KindAuthor, id)

	books, err := r.store.BooksByAuthor(ctx, id)
	if err != nil {
		return err
	}
	for _, book := range books {
		set.add(catalog.KindBook, book.ID)
		series, err := r.store.SeriesForBook(ctx, book.ID)
		if err != nil {
			return err
		}
		for _, sr := range series {
			set.add(catalog.KindSeries, sr.ID)
		}
	}
	return nil
}

// fromSeries expands a series change: the series' own record, its member
// books, and the authors of those books.
func (r *Resolver) fromSeries(ctx context.Context, id string, set *targetSet) error {
	set.add(catalog.KindSeries, id)

	series, err := r.store.GetSeries(ctx, id)
	if err != nil {
		return err
	}
	books, err := r.store.BooksByIDs(ctx, series.BookIDs())
	if err != nil {
		return err
	}
	for _, book := range books {
		set.add(catalog.KindBook, book.ID)
		for _, authorID := range book.AuthorIDs {
			set.add(catalog.KindAuthor, authorID)
		}
	}
	return nil
}

// fromBooks expands a change to a referenced kind (faction, era) by
// re-aggregating every book carrying the reference, plus the author and
// series records that embed those books' facets.
func (r *Resolver) fromBooks(ctx context.Context, set *targetSet, query func(context.Context) ([]catalog.Book, error)) error {
	books, err := query(ctx)
	if err != nil {
		return err
	}
	return r.expandBooks(ctx, books, set)
}

func (r *Resolver) expandBooks(ctx context.Context, books []catalog.Book, set *targetSet) error {
	for _, book := range books {
		set.add(catalog.KindBook, book.ID)
		for _, authorID := range book.AuthorIDs {
			set.add(catalog.KindAuthor, authorID)
		}
		series, err := r.store.SeriesForBook(ctx, book.ID)
		if err != nil {
			return err
		}
		for _, sr := range series {
			set.add(catalog.KindSeries, sr.ID)
		}
	}
	return nil
}

// targetSet deduplicates targets while preserving insertion order.
type targetSet struct {
	seen    map[string]bool
	targets []Target
}

func newTargetSet() *targetSet {
	return &targetSet{seen: make(map[string]bool)}
}

func (s *targetSet) add(kind catalog.Kind, id string) {
	key := string(kind) + "|" + id
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.targets = append(s.targets, Target{Kind: kind, ID: id})
}
