// Package mongo implements catalog.Store on MongoDB.
//
// Each entity kind lives in its own collection. Draft documents carry a
// draft flag and are excluded from every query; the published perspective
// is the only one this package serves.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"grimdex/internal/catalog"
)

// Collection names per entity kind.
const (
	collBooks         = "books"
	collAuthors       = "authors"
	collFactions      = "factions"
	collFactionGroups = "factionGroups"
	collEras          = "eras"
	collSeries        = "series"
)

const (
	defaultMaxAttempts = 3
	retryBaseDelay     = 200 * time.Millisecond
)

// Store is a MongoDB-backed catalog.Store.
type Store struct {
	client      *mongo.Client
	db          *mongo.Database
	maxAttempts int
}

// NewStore connects to MongoDB and verifies the connection.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	return &Store{
		client:      client,
		db:          client.Database(dbName),
		maxAttempts: defaultMaxAttempts,
	}, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func collectionFor(kind catalog.Kind) string {
	switch kind {
	case catalog.KindBook:
		return collBooks
	case catalog.KindAuthor:
		return collAuthors
	case catalog.KindFaction:
		return collFactions
	case catalog.KindFactionGroup:
		return collFactionGroups
	case catalog.KindEra:
		return collEras
	case catalog.KindSeries:
		return collSeries
	default:
		return ""
	}
}

// published constrains a filter to the published perspective.
func published(filter bson.M) bson.M {
	filter["draft"] = bson.M{"$ne": true}
	return filter
}

// withRetry runs op with bounded retries. ErrNotFound is terminal; any
// other failure after the last attempt is reported as ErrUpstream.
func (s *Store) withRetry(ctx context.Context, op func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", catalog.ErrUpstream, ctx.Err())
			case <-time.After(retryBaseDelay << (attempt - 1)):
			}
		}

		err = op(ctx)
		if err == nil || errors.Is(err, catalog.ErrNotFound) {
			return err
		}
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("%w: %v", catalog.ErrUpstream, err)
}

func (s *Store) GetBook(ctx context.Context, id string) (*catalog.Book, error) {
	var book *catalog.Book
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var b catalog.Book
		err := s.db.Collection(collBooks).
			FindOne(ctx, published(bson.M{"_id": id})).
			Decode(&b)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return catalog.ErrNotFound
			}
			return err
		}

		books := []catalog.Book{b}
		if err := s.resolveBooks(ctx, books); err != nil {
			return err
		}
		book = &books[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

func (s *Store) GetAuthor(ctx context.Context, id string) (*catalog.Author, error) {
	var author catalog.Author
	err := s.withRetry(ctx, func(ctx context.Context) error {
		err := s.db.Collection(collAuthors).
			FindOne(ctx, published(bson.M{"_id": id})).
			Decode(&author)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return catalog.ErrNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &author, nil
}

func (s *Store) GetSeries(ctx context.Context, id string) (*catalog.Series, error) {
	var series catalog.Series
	err := s.withRetry(ctx, func(ctx context.Context) error {
		err := s.db.Collection(collSeries).
			FindOne(ctx, published(bson.M{"_id": id})).
			Decode(&series)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return catalog.ErrNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &series, nil
}

func (s *Store) ListBooks(ctx context.Context) ([]catalog.Book, error) {
	return s.findBooks(ctx, bson.M{})
}

func (s *Store) ListAuthors(ctx context.Context) ([]catalog.Author, error) {
	var authors []catalog.Author
	err := s.withRetry(ctx, func(ctx context.Context) error {
		cur, err := s.db.Collection(collAuthors).Find(ctx, published(bson.M{}))
		if err != nil {
			return err
		}
		authors = nil
		return cur.All(ctx, &authors)
	})
	if err != nil {
		return nil, err
	}
	return authors, nil
}

func (s *Store) ListSeries(ctx context.Context) ([]catalog.Series, error) {
	var series []catalog.Series
	err := s.withRetry(ctx, func(ctx context.Context) error {
		cur, err := s.db.Collection(collSeries).Find(ctx, published(bson.M{}))
		if err != nil {
			return err
		}
		series = nil
		return cur.All(ctx, &series)
	})
	if err != nil {
		return nil, err
	}
	return series, nil
}

func (s *Store) BooksByAuthor(ctx context.Context, authorID string) ([]catalog.Book, error) {
	return s.findBooks(ctx, bson.M{"authorIds": authorID})
}

func (s *Store) BooksByFaction(ctx context.Context, factionID string) ([]catalog.Book, error) {
	return s.findBooks(ctx, bson.M{"factionIds": factionID})
}

func (s *Store) BooksByEra(ctx context.Context, eraID string) ([]catalog.Book, error) {
	return s.findBooks(ctx, bson.M{"eraId": eraID})
}

func (s *Store) BooksByIDs(ctx context.Context, ids []string) ([]catalog.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.findBooks(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *Store) SeriesForBook(ctx context.Context, bookID string) ([]catalog.Series, error) {
	var series []catalog.Series
	err := s.withRetry(ctx, func(ctx context.Context) error {
		cur, err := s.db.Collection(collSeries).
			Find(ctx, published(bson.M{"items.bookId": bookID}))
		if err != nil {
			return err
		}
		series = nil
		return cur.All(ctx, &series)
	})
	if err != nil {
		return nil, err
	}
	return series, nil
}

func (s *Store) IsPublished(ctx context.Context, kind catalog.Kind, id string) (bool, error) {
	coll := collectionFor(kind)
	if coll == "" {
		return false, nil
	}

	var count int64
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		count, err = s.db.Collection(coll).
			CountDocuments(ctx, published(bson.M{"_id": id}))
		return err
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// findBooks runs a published-perspective book query and resolves the
// author/era/faction references of the whole result set in three batched
// lookups rather than per book.
func (s *Store) findBooks(ctx context.Context, filter bson.M) ([]catalog.Book, error) {
	var books []catalog.Book
	err := s.withRetry(ctx, func(ctx context.Context) error {
		cur, err := s.db.Collection(collBooks).Find(ctx, published(filter))
		if err != nil {
			return err
		}
		books = nil
		if err := cur.All(ctx, &books); err != nil {
			return err
		}
		return s.resolveBooks(ctx, books)
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}
