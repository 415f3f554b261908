package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimdex/internal/catalog"
)

func seedStore() *Store {
	s := New()
	s.PutAuthor(catalog.Author{ID: "a1", Name: "Dan Abnett", Slug: "dan-abnett"})
	s.PutEra(catalog.Era{ID: "e1", Title: "Horus Heresy", Slug: "horus-heresy"})
	s.PutFaction(catalog.Faction{ID: "f1", Title: "Ultramarines", Slug: "ultramarines"})
	s.PutBook(catalog.Book{
		ID: "b1", Title: "Horus Rising", Slug: "horus-rising",
		AuthorIDs: []string{"a1"}, EraID: "e1", FactionIDs: []string{"f1"},
	})
	s.PutBook(catalog.Book{ID: "b2", Title: "Know No Fear", AuthorIDs: []string{"a1"}})
	s.PutSeries(catalog.Series{
		ID: "s1", Title: "The Horus Heresy", Slug: "the-horus-heresy",
		Items: []catalog.SeriesItem{{BookID: "b1", Ordinal: "1"}},
	})
	return s
}

func TestGetBookResolvesReferences(t *testing.T) {
	s := seedStore()

	book, err := s.GetBook(context.Background(), "b1")
	require.NoError(t, err)

	assert.Equal(t, []catalog.Ref{{Name: "Dan Abnett", Slug: "dan-abnett"}}, book.Authors)
	require.NotNil(t, book.Era)
	assert.Equal(t, "Horus Heresy", book.Era.Name)
	assert.Equal(t, []catalog.Ref{{Name: "Ultramarines", Slug: "ultramarines"}}, book.Factions)
}

func TestDraftsAreInvisible(t *testing.T) {
	s := seedStore()
	s.PutDraftBook(catalog.Book{ID: "b3", Title: "Draft", AuthorIDs: []string{"a1"}})
	ctx := context.Background()

	_, err := s.GetBook(ctx, "b3")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	books, err := s.ListBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 2)

	byAuthor, err := s.BooksByAuthor(ctx, "a1")
	require.NoError(t, err)
	assert.Len(t, byAuthor, 2)

	published, err := s.IsPublished(ctx, catalog.KindBook, "b3")
	require.NoError(t, err)
	assert.False(t, published)
}

func TestPublishingADraftMakesItVisible(t *testing.T) {
	s := seedStore()
	s.PutDraftBook(catalog.Book{ID: "b3", Title: "Draft"})
	s.PutBook(catalog.Book{ID: "b3", Title: "Published"})

	book, err := s.GetBook(context.Background(), "b3")
	require.NoError(t, err)
	assert.Equal(t, "Published", book.Title)
}

func TestSeriesForBook(t *testing.T) {
	s := seedStore()
	ctx := context.Background()

	series, err := s.SeriesForBook(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "s1", series[0].ID)

	series, err = s.SeriesForBook(ctx, "b2")
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestBooksByIDsPreservesOrderAndSkipsMissing(t *testing.T) {
	s := seedStore()

	books, err := s.BooksByIDs(context.Background(), []string{"b2", "missing", "b1"})
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "b2", books[0].ID)
	assert.Equal(t, "b1", books[1].ID)
}

func TestDeleteRemovesDocument(t *testing.T) {
	s := seedStore()
	s.Delete("b1")
	ctx := context.Background()

	_, err := s.GetBook(ctx, "b1")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	published, err := s.IsPublished(ctx, catalog.KindBook, "b1")
	require.NoError(t, err)
	assert.False(t, published)
}

func TestFailWith(t *testing.T) {
	s := seedStore()
	boom := errors.New("boom")
	s.FailWith(boom)
	ctx := context.Background()

	_, err := s.GetBook(ctx, "b1")
	assert.ErrorIs(t, err, boom)
	_, err = s.ListBooks(ctx)
	assert.ErrorIs(t, err, boom)

	s.FailWith(nil)
	_, err = s.GetBook(ctx, "b1")
	assert.NoError(t, err)
}
