package catalog

import "context"

// Store is the read capability against the content store, scoped to the
// published perspective. Implementations must never surface drafts.
//
// Point reads resolve forward references (author, era, faction) to Ref
// pairs so callers get display-ready data in one round trip. Reverse
// queries exist because series membership and author attribution are the
// fan-out edges of the sync pipeline.
type Store interface {
	// GetBook retrieves a published book with references resolved.
	GetBook(ctx context.Context, id string) (*Book, error)

	// GetAuthor retrieves a published author.
	GetAuthor(ctx context.Context, id string) (*Author, error)

	// GetSeries retrieves a published series.
	GetSeries(ctx context.Context, id string) (*Series, error)

	// ListBooks enumerates all published books with references resolved.
	ListBooks(ctx context.Context) ([]Book, error)

	// ListAuthors enumerates all published authors.
	ListAuthors(ctx context.Context) ([]Author, error)

	// ListSeries enumerates all published series.
	ListSeries(ctx context.Context) ([]Series, error)

	// BooksByAuthor returns all published books crediting the author.
	BooksByAuthor(ctx context.Context, authorID string) ([]Book, error)

	// BooksByFaction returns all published books tagged with the faction.
	BooksByFaction(ctx context.Context, factionID string) ([]Book, error)

	// BooksByEra returns all published books set in the era.
	BooksByEra(ctx context.Context, eraID string) ([]Book, error)

	// BooksByIDs returns the published subset of the given book IDs.
	// Missing or draft-only IDs are silently omitted, not an error.
	BooksByIDs(ctx context.Context, ids []string) ([]Book, error)

	// SeriesForBook is the reverse membership lookup: every published
	// series whose items list references the book. Order follows the
	// store's document order and carries no contract.
	SeriesForBook(ctx context.Context, bookID string) ([]Series, error)

	// IsPublished reports whether a published version of the document
	// exists. Used to distinguish draft-only mutations from real ones.
	IsPublished(ctx context.Context, kind Kind, id string) (bool, error)
}
