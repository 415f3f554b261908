// Package memory provides an in-memory catalog.Store for tests and dry
// runs. Reference resolution follows the same display-label rule as the
// real backend, and draft documents are filtered out of every read.
package memory

import (
	"context"
	"slices"
	"sync"

	"grimdex/internal/catalog"
)

// Store is an in-memory implementation of catalog.Store.
type Store struct {
	mu sync.RWMutex

	books   map[string]catalog.Book
	authors map[string]catalog.Author
	facts   map[string]catalog.Faction
	groups  map[string]catalog.FactionGroup
	eras    map[string]catalog.Era
	series  map[string]catalog.Series

	// Insertion order per kind, so enumeration and reverse lookups are
	// deterministic in tests.
	bookOrder   []string
	authorOrder []string
	seriesOrder []string

	// IDs that only exist as drafts. They are stored but never served.
	drafts map[string]bool

	// When set, every read fails with this error.
	failErr error
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		books:   make(map[string]catalog.Book),
		authors: make(map[string]catalog.Author),
		facts:   make(map[string]catalog.Faction),
		groups:  make(map[string]catalog.FactionGroup),
		eras:    make(map[string]catalog.Era),
		series:  make(map[string]catalog.Series),
		drafts:  make(map[string]bool),
	}
}

// FailWith makes every subsequent read return err. Pass nil to recover.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// PutBook stores a published book.
func (s *Store) PutBook(b catalog.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[b.ID]; !ok {
		s.bookOrder = append(s.bookOrder, b.ID)
	}
	s.books[b.ID] = b
	delete(s.drafts, b.ID)
}

// PutDraftBook stores a book that only exists as a draft.
func (s *Store) PutDraftBook(b catalog.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[b.ID]; !ok {
		s.bookOrder = append(s.bookOrder, b.ID)
	}
	s.books[b.ID] = b
	s.drafts[b.ID] = true
}

// PutAuthor stores a published author.
func (s *Store) PutAuthor(a catalog.Author) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authors[a.ID]; !ok {
		s.authorOrder = append(s.authorOrder, a.ID)
	}
	s.authors[a.ID] = a
	delete(s.drafts, a.ID)
}

// PutDraftAuthor stores an author that only exists as a draft.
func (s *Store) PutDraftAuthor(a catalog.Author) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authors[a.ID]; !ok {
		s.authorOrder = append(s.authorOrder, a.ID)
	}
	s.authors[a.ID] = a
	s.drafts[a.ID] = true
}

// PutFaction stores a published faction.
func (s *Store) PutFaction(f catalog.Faction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts[f.ID] = f
}

// PutFactionGroup stores a published faction group.
func (s *Store) PutFactionGroup(g catalog.FactionGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g
}

// PutEra stores a published era.
func (s *Store) PutEra(e catalog.Era) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eras[e.ID] = e
}

// PutSeries stores a published series.
func (s *Store) PutSeries(sr catalog.Series) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.series[sr.ID]; !ok {
		s.seriesOrder = append(s.seriesOrder, sr.ID)
	}
	s.series[sr.ID] = sr
	delete(s.drafts, sr.ID)
}

// PutDraftSeries stores a series that only exists as a draft.
func (s *Store) PutDraftSeries(sr catalog.Series) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.series[sr.ID]; !ok {
		s.seriesOrder = append(s.seriesOrder, sr.ID)
	}
	s.series[sr.ID] = sr
	s.drafts[sr.ID] = true
}

// Delete removes a document entirely.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.books, id)
	delete(s.authors, id)
	delete(s.facts, id)
	delete(s.groups, id)
	delete(s.eras, id)
	delete(s.series, id)
	delete(s.drafts, id)
}

// resolve fills the denormalized Ref fields of a book from the current
// author/era/faction tables. Caller holds at least a read lock.
func (s *Store) resolve(b catalog.Book) catalog.Book {
	b.Authors = nil
	for _, id := range b.AuthorIDs {
		if a, ok := s.authors[id]; ok && !s.drafts[id] {
			b.Authors = append(b.Authors, catalog.Ref{
				Name: catalog.DisplayLabel("", a.Name),
				Slug: a.Slug,
			})
		}
	}
	b.Era = nil
	if e, ok := s.eras[b.EraID]; ok {
		b.Era = &catalog.Ref{Name: catalog.DisplayLabel(e.Title, ""), Slug: e.Slug}
	}
	b.Factions = nil
	for _, id := range b.FactionIDs {
		if f, ok := s.facts[id]; ok {
			b.Factions = append(b.Factions, catalog.Ref{
				Name: catalog.DisplayLabel(f.Title, ""),
				Slug: f.Slug,
			})
		}
	}
	return b
}

func (s *Store) GetBook(_ context.Context, id string) (*catalog.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	b, ok := s.books[id]
	if !ok || s.drafts[id] {
		return nil, catalog.ErrNotFound
	}
	resolved := s.resolve(b)
	return &resolved, nil
}

func (s *Store) GetAuthor(_ context.Context, id string) (*catalog.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	a, ok := s.authors[id]
	if !ok || s.drafts[id] {
		return nil, catalog.ErrNotFound
	}
	return &a, nil
}

func (s *Store) GetSeries(_ context.Context, id string) (*catalog.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	sr, ok := s.series[id]
	if !ok || s.drafts[id] {
		return nil, catalog.ErrNotFound
	}
	return &sr, nil
}

func (s *Store) ListBooks(_ context.Context) ([]catalog.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	var out []catalog.Book
	for _, id := range s.bookOrder {
		if b, ok := s.books[id]; ok && !s.drafts[id] {
			out = append(out, s.resolve(b))
		}
	}
	return out, nil
}

func (s *Store) ListAuthors(_ context.Context) ([]catalog.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	var out []catalog.Author
	for _, id := range s.authorOrder {
		if a, ok := s.authors[id]; ok && !s.drafts[id] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) ListSeries(_ context.Context) ([]catalog.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	var out []catalog.Series
	for _, id := range s.seriesOrder {
		if sr, ok := s.series[id]; ok && !s.drafts[id] {
			out = append(out, sr)
		}
	}
	return out, nil
}

func (s *Store) booksWhere(match func(catalog.Book) bool) []catalog.Book {
	var out []catalog.Book
	for _, id := range s.bookOrder {
		b, ok := s.books[id]
		if !ok || s.drafts[id] {
			continue
		}
		if match(b) {
			out = append(out, s.resolve(b))
		}
	}
	return out
}

func (s *Store) BooksByAuthor(_ context.Context, authorID string) ([]catalog.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	return s.booksWhere(func(b catalog.Book) bool {
		return slices.Contains(b.AuthorIDs, authorID)
	}), nil
}

func (s *Store) BooksByFaction(_ context.Context, factionID string) ([]catalog.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	return s.booksWhere(func(b catalog.Book) bool {
		return slices.Contains(b.FactionIDs, factionID)
	}), nil
}

func (s *Store) BooksByEra(_ context.Context, eraID string) ([]catalog.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	return s.booksWhere(func(b catalog.Book) bool {
		return b.EraID == eraID
	}), nil
}

func (s *Store) BooksByIDs(_ context.Context, ids []string) ([]catalog.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	var out []catalog.Book
	for _, id := range ids {
		if b, ok := s.books[id]; ok && !s.drafts[id] {
			out = append(out, s.resolve(b))
		}
	}
	return out, nil
}

func (s *Store) SeriesForBook(_ context.Context, bookID string) ([]catalog.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	var out []catalog.Series
	for _, id := range s.seriesOrder {
		sr, ok := s.series[id]
		if !ok || s.drafts[id] {
			continue
		}
		if slices.Contains(sr.BookIDs(), bookID) {
			out = append(out, sr)
		}
	}
	return out, nil
}

func (s *Store) IsPublished(_ context.Context, kind catalog.Kind, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return false, s.failErr
	}
	if s.drafts[id] {
		return false, nil
	}
	switch kind {
	case catalog.KindBook:
		_, ok := s.books[id]
		return ok, nil
	case catalog.KindAuthor:
		_, ok := s.authors[id]
		return ok, nil
	case catalog.KindFaction:
		_, ok := s.facts[id]
		return ok, nil
	case catalog.KindFactionGroup:
		_, ok := s.groups[id]
		return ok, nil
	case catalog.KindEra:
		_, ok := s.eras[id]
		return ok, nil
	case catalog.KindSeries:
		_, ok := s.series[id]
		return ok, nil
	default:
		return false, nil
	}
}
