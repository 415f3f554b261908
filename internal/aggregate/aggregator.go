// Package aggregate computes denormalized search records from catalog
// entities.
//
// Every record is a pure function of its source entity plus the current
// state of everything it references, directly or reversely. There is no
// persisted intermediate state: recomputation from scratch is always
// possible and always idempotent. That purity is what makes concurrent,
// unordered upserts safe downstream.
package aggregate

import (
	"context"
	"log/slog"
	"strings"

	"grimdex/internal/assets"
	"grimdex/internal/catalog"
)

// Aggregator builds derived search records. It only reads; all writes
// happen in the sync drivers.
//
// The store handed in is typically a per-invocation Cache wrapping the
// real backend. Build one per sync invocation and let it go with it.
type Aggregator struct {
	store  catalog.Store
	assets assets.Builder
	logger *slog.Logger
}

// New creates an Aggregator over the given read capability.
func New(store catalog.Store, builder assets.Builder, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		store:  store,
		assets: builder,
		logger: logger.With("component", "aggregate"),
	}
}

// Book computes the search record for one book. Returns
// catalog.ErrNotFound when no published version exists, which callers
// translate into a delete.
func (a *Aggregator) Book(ctx context.Context, id string) (*BookRecord, error) {
	book, err := a.store.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}

	// Membership lives on the series documents, so this is a reverse
	// lookup, not a field read.
	series, err := a.store.SeriesForBook(ctx, id)
	if err != nil {
		return nil, err
	}

	rec := &BookRecord{
		ObjectID:        book.ID,
		Title:           truncate(book.Title, MaxTitleLen),
		Slug:            book.Slug,
		Format:          book.Format,
		FormatLabel:     FormatLabel(book.Format),
		PublicationDate: book.PublicationDate,
		Description:     truncate(book.Description, MaxDescriptionLen),
		Story:           truncate(book.Story, MaxStoryLen),
		CoverURL:        a.assets.ImageURL(book.CoverRef),
		UpdatedAt:       book.UpdatedAt,
	}

	authorNames := make([]string, 0, len(book.Authors))
	authorSlugs := make([]string, 0, len(book.Authors))
	for _, ref := range book.Authors {
		authorNames = append(authorNames, ref.Name)
		authorSlugs = append(authorSlugs, ref.Slug)
	}
	rec.AuthorNames = authorNames
	rec.AuthorSlugs = authorSlugs

	if book.Era != nil {
		rec.EraName = book.Era.Name
		rec.EraSlug = book.Era.Slug
	}

	factionNames := make([]string, 0, len(book.Factions))
	factionSlugs := make([]string, 0, len(book.Factions))
	for _, ref := range book.Factions {
		factionNames = append(factionNames, ref.Name)
		factionSlugs = append(factionSlugs, ref.Slug)
	}
	rec.FactionNames = factionNames
	rec.FactionSlugs = factionSlugs

	// The primary series is the first match in store document order.
	// When a book belongs to several series the choice is arbitrary;
	// the full list is carried alongside so nothing is lost.
	rec.SeriesNames = []string{}
	rec.SeriesSlugs = []string{}
	for i, sr := range series {
		label := catalog.DisplayLabel(sr.Title, "")
		if i == 0 {
			rec.SeriesName = label
			rec.SeriesSlug = sr.Slug
		}
		rec.SeriesNames = append(rec.SeriesNames, label)
		rec.SeriesSlugs = append(rec.SeriesSlugs, sr.Slug)
	}

	a.warnIfLarge(catalog.KindBook, rec)
	return rec, nil
}

// Author computes the aggregated search record for one author by folding
// over every published book crediting them.
func (a *Aggregator) Author(ctx context.Context, id string) (*AuthorRecord, error) {
	author, err := a.store.GetAuthor(ctx, id)
	if err != nil {
		return nil, err
	}

	books, err := a.store.BooksByAuthor(ctx, id)
	if err != nil {
		return nil, err
	}

	formats := newStringSet()
	seriesSet := newRefSet()
	factions := newRefSet()
	eras := newRefSet()

	for _, book := range books {
		formats.add(FormatLabel(book.Format))
		for _, ref := range book.Factions {
			factions.add(ref)
		}
		if book.Era != nil {
			eras.add(*book.Era)
		}

		series, err := a.store.SeriesForBook(ctx, book.ID)
		if err != nil {
			return nil, err
		}
		for _, sr := range series {
			seriesSet.add(catalog.Ref{
				Name: catalog.DisplayLabel(sr.Title, ""),
				Slug: sr.Slug,
			})
		}
	}

	rec := &AuthorRecord{
		ObjectID:     author.ID,
		Name:         author.Name,
		Slug:         author.Slug,
		LastName:     lastName(author.Name),
		Bio:          truncate(author.Bio.Plain(), MaxBioLen),
		PortraitURL:  a.assets.ImageURL(author.PortraitRef),
		BookCount:    len(books),
		BookFormats:  formats.Values(),
		SeriesNames:  seriesSet.Names(),
		SeriesSlugs:  seriesSet.Slugs(),
		FactionNames: factions.Names(),
		FactionSlugs: factions.Slugs(),
		EraNames:     eras.Names(),
		EraSlugs:     eras.Slugs(),
		UpdatedAt:    author.UpdatedAt,
	}

	a.warnIfLarge(catalog.KindAuthor, rec)
	return rec, nil
}

// Series computes the aggregated search record for one series by folding
// over its member books. Membership is a forward reference here, so no
// reverse lookup is needed.
func (a *Aggregator) Series(ctx context.Context, id string) (*SeriesRecord, error) {
	series, err := a.store.GetSeries(ctx, id)
	if err != nil {
		return nil, err
	}

	books, err := a.store.BooksByIDs(ctx, series.BookIDs())
	if err != nil {
		return nil, err
	}

	formats := newStringSet()
	authors := newRefSet()
	factions := newRefSet()
	eras := newRefSet()

	for _, book := range books {
		formats.add(FormatLabel(book.Format))
		for _, ref := range book.Authors {
			authors.add(ref)
		}
		for _, ref := range book.Factions {
			factions.add(ref)
		}
		if book.Era != nil {
			eras.add(*book.Era)
		}
	}

	rec := &SeriesRecord{
		ObjectID:     series.ID,
		Title:        truncate(catalog.DisplayLabel(series.Title, ""), MaxTitleLen),
		Slug:         series.Slug,
		Subtitle:     series.Subtitle,
		CoverURL:     a.assets.ImageURL(series.CoverRef),
		BookCount:    len(books),
		BookFormats:  formats.Values(),
		AuthorNames:  authors.Names(),
		AuthorSlugs:  authors.Slugs(),
		FactionNames: factions.Names(),
		FactionSlugs: factions.Slugs(),
		EraNames:     eras.Names(),
		EraSlugs:     eras.Slugs(),
		UpdatedAt:    series.UpdatedAt,
	}

	a.warnIfLarge(catalog.KindSeries, rec)
	return rec, nil
}

func (a *Aggregator) warnIfLarge(kind catalog.Kind, rec Record) {
	if size := EstimateSize(rec); size > SoftSizeLimit {
		a.logger.Warn("record size above soft limit",
			"kind", kind,
			"objectID", rec.Key(),
			"bytes", size)
	}
}

// lastName returns the last whitespace-delimited token of a full name.
func lastName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
