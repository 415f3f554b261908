package fanout

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimdex/internal/catalog"
	"grimdex/internal/catalog/memory"
	"grimdex/internal/feed"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fanoutCatalog: one author with three published books and one draft,
// two of those books in a series, one carrying a faction and an era.
func fanoutCatalog() *memory.Store {
	s := memory.New()
	s.PutAuthor(catalog.Author{ID: "a1", Name: "Dan Abnett", Slug: "dan-abnett"})
	s.PutAuthor(catalog.Author{ID: "a2", Name: "Graham McNeill", Slug: "graham-mcneill"})
	s.PutFaction(catalog.Faction{ID: "f1", Title: "Ultramarines", Slug: "ultramarines"})
	s.PutEra(catalog.Era{ID: "e1", Title: "Horus Heresy", Slug: "horus-heresy"})
	s.PutBook(catalog.Book{ID: "b1", Title: "One", AuthorIDs: []string{"a1"}, FactionIDs: []string{"f1"}, EraID: "e1"})
	s.PutBook(catalog.Book{ID: "b2", Title: "Two", AuthorIDs: []string{"a1"}})
	s.PutBook(catalog.Book{ID: "b3", Title: "Three", AuthorIDs: []string{"a1", "a2"}})
	s.PutDraftBook(catalog.Book{ID: "b4", Title: "Draft", AuthorIDs: []string{"a1"}})
	s.PutSeries(catalog.Series{ID: "s1", Title: "Series One", Items: []catalog.SeriesItem{
		{BookID: "b1", Ordinal: "1"},
		{BookID: "b2", Ordinal: "2"},
	}})
	return s
}

func idsOfKind(targets []Target, kind catalog.Kind) []string {
	var ids []string
	for _, tg := range targets {
		if tg.Kind == kind && !tg.Delete {
			ids = append(ids, tg.ID)
		}
	}
	return ids
}

func TestResolveAuthorUpdate(t *testing.T) {
	r := New(fanoutCatalog(), testLogger())

	targets, err := r.Resolve(context.Background(), feed.NewEvent(catalog.KindAuthor, "a1", feed.OpUpdate))
	require.NoError(t, err)

	// Every published book crediting the author, the draft excluded.
	assert.ElementsMatch(t, []string{"b1", "b2", "b3"}, idsOfKind(targets, catalog.KindBook))
	assert.ElementsMatch(t, []string{"a1"}, idsOfKind(targets, catalog.KindAuthor))
	// Series whose membership includes an affected book.
	assert.ElementsMatch(t, []string{"s1"}, idsOfKind(targets, catalog.KindSeries))
}

func TestResolveBookUpdate(t *testing.T) {
	r := New(fanoutCatalog(), testLogger())

	targets, err := r.Resolve(context.Background(), feed.NewEvent(catalog.KindBook, "b1", feed.OpUpdate))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"b1"}, idsOfKind(targets, catalog.KindBook))
	assert.ElementsMatch(t, []string{"a1"}, idsOfKind(targets, catalog.KindAuthor))
	assert.ElementsMatch(t, []string{"s1"}, idsOfKind(targets, catalog.KindSeries))
}

func TestResolveSeriesUpdate(t *testing.T) {
	r := New(fanoutCatalog(), testLogger())

	targets, err := r.Resolve(context.Background(), feed.NewEvent(catalog.KindSeries, "s1", feed.OpUpdate))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"s1"}, idsOfKind(targets, catalog.KindSeries))
	assert.ElementsMatch(t, []string{"b1", "b2"}, idsOfKind(targets, catalog.KindBook))
	assert.ElementsMatch(t, []string{"a1"}, idsOfKind(targets, catalog.KindAuthor))
}

func TestResolveFactionUpdate(t *testing.T) {
	r := New(fanoutCatalog(), testLogger())

	targets, err := r.Resolve(context.Background(), feed.NewEvent(catalog.KindFaction, "f1", feed.OpUpdate))
	require.NoError(t, err)

	// b1 carries the faction; its author and series records embed the
	// faction facet too.
	assert.ElementsMatch(t, []string{"b1"}, idsOfKind(targets, catalog.KindBook))
	assert.ElementsMatch(t, []string{"a1"}, idsOfKind(targets, catalog.KindAuthor))
	assert.ElementsMatch(t, []string{"s1"}, idsOfKind(targets, catalog.KindSeries))
}

func TestResolveEraUpdate(t *testing.T) {
	r := New(fanoutCatalog(), testLogger())

	targets, err := r.Resolve(context.Background(), feed.NewEvent(catalog.KindEra, "e1", feed.OpUpdate))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"b1"}, idsOfKind(targets, catalog.KindBook))
}

func TestResolveFactionGroupUpdate(t *testing.T) {
	store := fanoutCatalog()
	store.PutFactionGroup(catalog.FactionGroup{ID: "g1", Title: "Imperium"})
	r := New(store, testLogger())

	targets, err := r.Resolve(context.Background(), feed.NewEvent(catalog.KindFactionGroup, "g1", feed.OpUpdate))
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestResolveLeafDelete(t *testing.T) {
	r := New(fanoutCatalog(), testLogger())

	targets, err := r.Resolve(context.Background(), feed.NewEvent(catalog.KindBook, "b1", feed.OpDelete))
	require.NoError(t, err)

	// Exactly one delete target, no recompute of dependents.
	require.Len(t, targets, 1)
	assert.Equal(t, Target{Kind: catalog.KindBook, ID: "b1", Delete: true}, targets[0])
}

func TestResolveUnpublishBehavesLikeDelete(t *testing.T) {
	r := New(fanoutCatalog(), testLogger())

	targets, err := r.Resolve(context.Background(), feed.NewEvent(catalog.KindAuthor, "a1", feed.OpUnpublish))
	require.NoError(t, err)

	require.Len(t, targets, 1)
	assert.True(t, targets[0].Delete)
}

func TestResolveNonLeafDelete(t *testing.T) {
	r := New(fanoutCatalog(), testLogger())

	targets, err := r.Resolve(context.Background(), feed.NewEvent(catalog.KindFaction, "f1", feed.OpDelete))
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestResolveDraftMutationIsIgnored(t *testing.T) {
	r := New(fanoutCatalog(), testLogger())

	targets, err := r.Resolve(context.Background(), feed.NewEvent(catalog.KindBook, "b4", feed.OpUpdate))
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestResolveDeduplicatesTargets(t *testing.T) {
	store := fanoutCatalog()
	// A second series containing the same books: the author target is
	// reachable through both, but appears once.
	store.PutSeries(catalog.Series{ID: "s2", Title: "Series Two", Items: []catalog.SeriesItem{
		{BookID: "b1", Ordinal: "1"},
	}})
	r := New(store, testLogger())

	targets, err := r.Resolve(context.Background(), feed.NewEvent(catalog.KindAuthor, "a1", feed.OpUpdate))
	require.NoError(t, err)

	seen := make(map[Target]int)
	for _, tg := range targets {
		seen[tg]++
	}
	for tg, n := range seen {
		assert.Equal(t, 1, n, "target %+v", tg)
	}
	assert.ElementsMatch(t, []string{"s1", "s2"}, idsOfKind(targets, catalog.KindSeries))
}

func TestResolveStoreFailure(t *testing.T) {
	store := fanoutCatalog()
	boom := errors.New("boom")
	store.FailWith(boom)
	r := New(store, testLogger())

	_, err := r.Resolve(context.Background(), feed.NewEvent(catalog.KindAuthor, "a1", feed.OpUpdate))
	assert.ErrorIs(t, err, boom)
}
