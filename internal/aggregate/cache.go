package aggregate

import (
	"context"
	"sync"

	"grimdex/internal/catalog"
)

// Cache memoizes content store reads for the lifetime of one sync
// invocation. It is built when the invocation starts and discarded when
// it ends; nothing here survives across invocations.
//
// A fan-out over an author's books hits the same series and book
// documents repeatedly; memoizing keeps that to one read each. Negative
// results (ErrNotFound) are cached too, so a deleted document is not
// re-fetched per dependent record.
type Cache struct {
	catalog.Store

	mu            sync.Mutex
	books         map[string]result[*catalog.Book]
	authors       map[string]result[*catalog.Author]
	series        map[string]result[*catalog.Series]
	seriesForBook map[string]result[[]catalog.Series]
	booksByAuthor map[string]result[[]catalog.Book]
}

type result[T any] struct {
	val T
	err error
}

// NewCache wraps a store with per-invocation memoization.
func NewCache(store catalog.Store) *Cache {
	return &Cache{
		Store:         store,
		books:         make(map[string]result[*catalog.Book]),
		authors:       make(map[string]result[*catalog.Author]),
		series:        make(map[string]result[*catalog.Series]),
		seriesForBook: make(map[string]result[[]catalog.Series]),
		booksByAuthor: make(map[string]result[[]catalog.Book]),
	}
}

func memoize[T any](c *Cache, m map[string]result[T], key string, fetch func() (T, error)) (T, error) {
	c.mu.Lock()
	if r, ok := m[key]; ok {
		c.mu.Unlock()
		return r.val, r.err
	}
	c.mu.Unlock()

	val, err := fetch()

	c.mu.Lock()
	m[key] = result[T]{val: val, err: err}
	c.mu.Unlock()
	return val, err
}

func (c *Cache) GetBook(ctx context.Context, id string) (*catalog.Book, error) {
	return memoize(c, c.books, id, func() (*catalog.Book, error) {
		return c.Store.GetBook(ctx, id)
	})
}

func (c *Cache) GetAuthor(ctx context.Context, id string) (*catalog.Author, error) {
	return memoize(c, c.authors, id, func() (*catalog.Author, error) {
		return c.Store.GetAuthor(ctx, id)
	})
}

func (c *Cache) GetSeries(ctx context.Context, id string) (*catalog.Series, error) {
	return memoize(c, c.series, id, func() (*catalog.Series, error) {
		return c.Store.GetSeries(ctx, id)
	})
}

func (c *Cache) SeriesForBook(ctx context.Context, bookID string) ([]catalog.Series, error) {
	return memoize(c, c.seriesForBook, bookID, func() ([]catalog.Series, error) {
		return c.Store.SeriesForBook(ctx, bookID)
	})
}

func (c *Cache) BooksByAuthor(ctx context.Context, authorID string) ([]catalog.Book, error) {
	return memoize(c, c.booksByAuthor, authorID, func() ([]catalog.Book, error) {
		return c.Store.BooksByAuthor(ctx, authorID)
	})
}
