package aggregate

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimdex/internal/assets"
	"grimdex/internal/catalog"
	"grimdex/internal/catalog/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testBuilder() assets.Builder {
	return assets.NewBuilder("testproj", "production")
}

// abnettCatalog builds a small catalog around one author with three
// published books, two of which belong to a series, plus one draft book
// that must never influence any record.
func abnettCatalog() *memory.Store {
	s := memory.New()

	s.PutAuthor(catalog.Author{
		ID:   "auth-abnett",
		Name: "Dan Abnett",
		Slug: "dan-abnett",
		Bio: catalog.RichText{
			{Type: "block", Children: []catalog.Span{{Text: "Dan Abnett is a novelist."}}},
		},
		PortraitRef: "image-portrait1-400x400-jpg",
	})

	s.PutFaction(catalog.Faction{ID: "fac-ultra", Title: "Ultramarines", Slug: "ultramarines"})
	s.PutFaction(catalog.Faction{ID: "fac-inq", Title: "Inquisition", Slug: "inquisition"})
	s.PutEra(catalog.Era{ID: "era-hh", Title: "Horus Heresy", Slug: "horus-heresy"})

	s.PutBook(catalog.Book{
		ID:              "book-horus-rising",
		Title:           "Horus Rising",
		Slug:            "horus-rising",
		Format:          "novel",
		PublicationDate: "2006-04-25",
		Description:     "The seeds of heresy are sown.",
		Story:           "The Great Crusade reaches its zenith.",
		CoverRef:        "image-cover1-800x1200-jpg",
		AuthorIDs:       []string{"auth-abnett"},
		EraID:           "era-hh",
		FactionIDs:      []string{"fac-ultra"},
		UpdatedAt:       1700000000000,
	})
	s.PutBook(catalog.Book{
		ID:         "book-know-no-fear",
		Title:      "Know No Fear",
		Slug:       "know-no-fear",
		Format:     "novel",
		AuthorIDs:  []string{"auth-abnett"},
		EraID:      "era-hh",
		FactionIDs: []string{"fac-ultra"},
	})
	s.PutBook(catalog.Book{
		ID:         "book-thorn-wishes",
		Title:      "Thorn Wishes Talon",
		Slug:       "thorn-wishes-talon",
		Format:     "short_story",
		AuthorIDs:  []string{"auth-abnett"},
		FactionIDs: []string{"fac-inq"},
	})
	s.PutDraftBook(catalog.Book{
		ID:        "book-draft",
		Title:     "Unpublished Draft",
		Slug:      "unpublished-draft",
		Format:    "novel",
		AuthorIDs: []string{"auth-abnett"},
	})

	s.PutSeries(catalog.Series{
		ID:    "ser-hh",
		Title: "The Horus Heresy",
		Slug:  "the-horus-heresy",
		Items: []catalog.SeriesItem{
			{BookID: "book-horus-rising", Ordinal: "1"},
			{BookID: "book-know-no-fear", Ordinal: "19"},
		},
	})

	return s
}

func newTestAggregator(store catalog.Store) *Aggregator {
	return New(store, testBuilder(), testLogger())
}

func TestBookRecord(t *testing.T) {
	agg := newTestAggregator(abnettCatalog())

	rec, err := agg.Book(context.Background(), "book-horus-rising")
	require.NoError(t, err)

	assert.Equal(t, "book-horus-rising", rec.ObjectID)
	assert.Equal(t, "Horus Rising", rec.Title)
	assert.Equal(t, "novel", rec.Format)
	assert.Equal(t, "Novel", rec.FormatLabel)
	assert.Equal(t, "2006-04-25", rec.PublicationDate)
	assert.Equal(t, []string{"Dan Abnett"}, rec.AuthorNames)
	assert.Equal(t, []string{"dan-abnett"}, rec.AuthorSlugs)
	assert.Equal(t, "Horus Heresy", rec.EraName)
	assert.Equal(t, "horus-heresy", rec.EraSlug)
	assert.Equal(t, []string{"Ultramarines"}, rec.FactionNames)
	assert.Equal(t, "The Horus Heresy", rec.SeriesName)
	assert.Equal(t, "the-horus-heresy", rec.SeriesSlug)
	assert.Equal(t, []string{"The Horus Heresy"}, rec.SeriesNames)
	assert.Equal(t, "https://cdn.sanity.io/images/testproj/production/cover1-800x1200.jpg", rec.CoverURL)
	assert.Equal(t, int64(1700000000000), rec.UpdatedAt)
}

func TestBookRecordNotFound(t *testing.T) {
	agg := newTestAggregator(abnettCatalog())

	_, err := agg.Book(context.Background(), "book-missing")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	// Draft-only books behave exactly like missing ones.
	_, err = agg.Book(context.Background(), "book-draft")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestBookRecordPrimarySeriesIsFirstMatch(t *testing.T) {
	store := abnettCatalog()
	// A second series also containing the book. The first series in
	// store order stays primary; both appear in the full list.
	store.PutSeries(catalog.Series{
		ID:    "ser-omnibus",
		Title: "Heresy Omnibus",
		Slug:  "heresy-omnibus",
		Items: []catalog.SeriesItem{{BookID: "book-horus-rising", Ordinal: "1"}},
	})
	agg := newTestAggregator(store)

	rec, err := agg.Book(context.Background(), "book-horus-rising")
	require.NoError(t, err)

	assert.Equal(t, "The Horus Heresy", rec.SeriesName)
	assert.Equal(t, []string{"The Horus Heresy", "Heresy Omnibus"}, rec.SeriesNames)
	assert.Equal(t, []string{"the-horus-heresy", "heresy-omnibus"}, rec.SeriesSlugs)
}

func TestAuthorRecordAggregation(t *testing.T) {
	agg := newTestAggregator(abnettCatalog())

	rec, err := agg.Author(context.Background(), "auth-abnett")
	require.NoError(t, err)

	assert.Equal(t, "Dan Abnett", rec.Name)
	assert.Equal(t, "Abnett", rec.LastName)
	assert.Equal(t, "Dan Abnett is a novelist.", rec.Bio)
	assert.Equal(t, "https://cdn.sanity.io/images/testproj/production/portrait1-400x400.jpg", rec.PortraitURL)

	// The draft book must not count.
	assert.Equal(t, 3, rec.BookCount)
	assert.Equal(t, []string{"Novel", "Short Story"}, rec.BookFormats)
	assert.Equal(t, []string{"Ultramarines", "Inquisition"}, rec.FactionNames)
	assert.Equal(t, []string{"The Horus Heresy"}, rec.SeriesNames)
	assert.Equal(t, []string{"Horus Heresy"}, rec.EraNames)
}

func TestAuthorRecordEmptySets(t *testing.T) {
	store := memory.New()
	store.PutAuthor(catalog.Author{ID: "auth-lone", Name: "Cher", Slug: "cher"})
	agg := newTestAggregator(store)

	rec, err := agg.Author(context.Background(), "auth-lone")
	require.NoError(t, err)

	assert.Equal(t, "Cher", rec.LastName)
	assert.Equal(t, 0, rec.BookCount)

	// Aggregated facets are always present, never null.
	assert.NotNil(t, rec.BookFormats)
	assert.Empty(t, rec.BookFormats)
	assert.NotNil(t, rec.SeriesNames)
	assert.NotNil(t, rec.FactionNames)
	assert.NotNil(t, rec.EraNames)
}

func TestSeriesRecordAggregation(t *testing.T) {
	agg := newTestAggregator(abnettCatalog())

	rec, err := agg.Series(context.Background(), "ser-hh")
	require.NoError(t, err)

	assert.Equal(t, "The Horus Heresy", rec.Title)
	assert.Equal(t, 2, rec.BookCount)
	assert.Equal(t, []string{"Novel"}, rec.BookFormats)
	assert.Equal(t, []string{"Dan Abnett"}, rec.AuthorNames)
	assert.Equal(t, []string{"dan-abnett"}, rec.AuthorSlugs)
	assert.Equal(t, []string{"Ultramarines"}, rec.FactionNames)
	assert.Equal(t, []string{"Horus Heresy"}, rec.EraNames)
}

func TestSeriesRecordSkipsUnpublishedMembers(t *testing.T) {
	store := abnettCatalog()
	store.PutSeries(catalog.Series{
		ID:    "ser-mixed",
		Title: "Mixed Series",
		Slug:  "mixed-series",
		Items: []catalog.SeriesItem{
			{BookID: "book-horus-rising", Ordinal: "1"},
			{BookID: "book-draft", Ordinal: "2"},
			{BookID: "book-gone", Ordinal: "3"},
		},
	})
	agg := newTestAggregator(store)

	rec, err := agg.Series(context.Background(), "ser-mixed")
	require.NoError(t, err)

	// Only the published member contributes.
	assert.Equal(t, 1, rec.BookCount)
	assert.Equal(t, []string{"Dan Abnett"}, rec.AuthorNames)
}

func TestAggregationIsIdempotent(t *testing.T) {
	agg := newTestAggregator(abnettCatalog())
	ctx := context.Background()

	first, err := agg.Book(ctx, "book-horus-rising")
	require.NoError(t, err)
	second, err := agg.Book(ctx, "book-horus-rising")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
}

func TestFingerprintIgnoresTimestamp(t *testing.T) {
	store := abnettCatalog()
	agg := newTestAggregator(store)
	ctx := context.Background()

	before, err := agg.Book(ctx, "book-horus-rising")
	require.NoError(t, err)

	// A timestamp-only change must not alter the fingerprint.
	first, err := store.GetBook(ctx, "book-horus-rising")
	require.NoError(t, err)
	book := *first
	book.UpdatedAt = 1800000000000
	store.PutBook(book)

	after, err := agg.Book(ctx, "book-horus-rising")
	require.NoError(t, err)

	assert.NotEqual(t, before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, before.Fingerprint(), after.Fingerprint())
}

func TestFingerprintChangesWithContent(t *testing.T) {
	store := abnettCatalog()
	agg := newTestAggregator(store)
	ctx := context.Background()

	before, err := agg.Book(ctx, "book-horus-rising")
	require.NoError(t, err)

	orig, err := store.GetBook(ctx, "book-horus-rising")
	require.NoError(t, err)
	changed := *orig
	changed.Title = "Horus Rising (Anniversary Edition)"
	store.PutBook(changed)

	after, err := agg.Book(ctx, "book-horus-rising")
	require.NoError(t, err)

	assert.NotEqual(t, before.Fingerprint(), after.Fingerprint())
}

func TestTruncationBounds(t *testing.T) {
	store := memory.New()
	store.PutBook(catalog.Book{
		ID:          "book-long",
		Title:       strings.Repeat("T", 700),
		Slug:        "long",
		Description: strings.Repeat("d", 7000),
		Story:       strings.Repeat("s", 3000),
	})
	agg := newTestAggregator(store)

	rec, err := agg.Book(context.Background(), "book-long")
	require.NoError(t, err)

	assert.Len(t, []rune(rec.Title), MaxTitleLen)
	assert.Len(t, []rune(rec.Description), MaxDescriptionLen)
	assert.Len(t, []rune(rec.Story), MaxStoryLen)
}

func TestTruncationCountsRunes(t *testing.T) {
	store := memory.New()
	store.PutBook(catalog.Book{
		ID:    "book-runes",
		Title: strings.Repeat("é", 600), // 2 bytes per rune
		Slug:  "runes",
	})
	agg := newTestAggregator(store)

	rec, err := agg.Book(context.Background(), "book-runes")
	require.NoError(t, err)

	assert.Len(t, []rune(rec.Title), MaxTitleLen)
}

func TestLastName(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Dan Abnett", "Abnett"},
		{"Aaron Dembski-Bowden", "Dembski-Bowden"},
		{"Cher", "Cher"},
		{"  Sandy  Mitchell  ", "Mitchell"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, lastName(tc.name), "name %q", tc.name)
	}
}

func TestEstimateSize(t *testing.T) {
	rec := &BookRecord{ObjectID: "b1", Title: "x"}
	size := EstimateSize(rec)
	assert.Greater(t, size, 0)
	assert.Less(t, size, SoftSizeLimit)
}
