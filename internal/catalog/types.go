// Package catalog defines the source content entities and the read-only
// query capability the sync pipeline uses against the content store.
//
// All reads operate on the published perspective: draft documents are
// invisible to every method in this package. A draft-only document behaves
// exactly like a missing one and surfaces as ErrNotFound.
package catalog

import "errors"

var (
	// ErrNotFound is returned when no published version of a document exists.
	// Callers treat this as a signal (delete the derived record), not a fault.
	ErrNotFound = errors.New("document not found")

	// ErrUpstream is returned when the content store could not be reached
	// after exhausting retries. It aborts the current unit of work.
	ErrUpstream = errors.New("content store unavailable")
)

// Kind identifies a source entity kind.
type Kind string

const (
	KindBook         Kind = "book"
	KindAuthor       Kind = "author"
	KindFaction      Kind = "faction"
	KindFactionGroup Kind = "factionGroup"
	KindEra          Kind = "era"
	KindSeries       Kind = "series"
)

// IsValid checks if the kind is a known entity kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindBook, KindAuthor, KindFaction, KindFactionGroup, KindEra, KindSeries:
		return true
	default:
		return false
	}
}

// Ref is a resolved reference: the display label and slug of a referenced
// entity, denormalized at read time so consumers never chase references.
type Ref struct {
	Name string `json:"name" bson:"name"`
	Slug string `json:"slug" bson:"slug"`
}

// DisplayLabel resolves the display label for an entity whose schema may
// carry either a title or a name field. Title wins when both are set.
func DisplayLabel(title, name string) string {
	if title != "" {
		return title
	}
	return name
}

// Book is a published book document with its forward references resolved.
// Series membership is NOT stored here; it lives on the Series documents
// and is discovered through Store.SeriesForBook.
type Book struct {
	ID              string   `json:"id" bson:"_id"`
	Title           string   `json:"title" bson:"title"`
	Slug            string   `json:"slug" bson:"slug"`
	Format          string   `json:"format" bson:"format"`
	PublicationDate string   `json:"publicationDate" bson:"publicationDate"`
	Description     string   `json:"description" bson:"description"`
	Story           string   `json:"story" bson:"story"`
	CoverRef        string   `json:"coverRef" bson:"coverRef"`
	AuthorIDs       []string `json:"authorIds" bson:"authorIds"`
	Authors         []Ref    `json:"authors" bson:"authors"`
	EraID           string   `json:"eraId" bson:"eraId"`
	Era             *Ref     `json:"era,omitempty" bson:"era,omitempty"`
	FactionIDs      []string `json:"factionIds" bson:"factionIds"`
	Factions        []Ref    `json:"factions" bson:"factions"`
	UpdatedAt       int64    `json:"updatedAt" bson:"updatedAt"`
}

// Author is a published author document.
type Author struct {
	ID          string   `json:"id" bson:"_id"`
	Name        string   `json:"name" bson:"name"`
	Slug        string   `json:"slug" bson:"slug"`
	PortraitRef string   `json:"portraitRef" bson:"portraitRef"`
	Bio         RichText `json:"bio" bson:"bio"`
	UpdatedAt   int64    `json:"updatedAt" bson:"updatedAt"`
}

// Faction is a published faction document.
type Faction struct {
	ID        string `json:"id" bson:"_id"`
	Title     string `json:"title" bson:"title"`
	Slug      string `json:"slug" bson:"slug"`
	Icon      string `json:"icon" bson:"icon"`
	GroupID   string `json:"groupId" bson:"groupId"`
	UpdatedAt int64  `json:"updatedAt" bson:"updatedAt"`
}

// FactionGroup is a published faction group document.
type FactionGroup struct {
	ID        string `json:"id" bson:"_id"`
	Title     string `json:"title" bson:"title"`
	Slug      string `json:"slug" bson:"slug"`
	Icon      string `json:"icon" bson:"icon"`
	UpdatedAt int64  `json:"updatedAt" bson:"updatedAt"`
}

// Era is a published era document.
type Era struct {
	ID        string `json:"id" bson:"_id"`
	Title     string `json:"title" bson:"title"`
	Slug      string `json:"slug" bson:"slug"`
	Period    string `json:"period" bson:"period"`
	UpdatedAt int64  `json:"updatedAt" bson:"updatedAt"`
}

// SeriesItem is one entry in a series' ordered membership list.
// Ordinal is an editorial sequence number or label ("1", "2.5", "Prologue").
type SeriesItem struct {
	BookID  string `json:"bookId" bson:"bookId"`
	Ordinal string `json:"ordinal" bson:"ordinal"`
}

// Series is a published series document. Membership is owned here: the
// Items list is the single source of truth for which books belong to the
// series and in what editorial order.
type Series struct {
	ID        string       `json:"id" bson:"_id"`
	Title     string       `json:"title" bson:"title"`
	Slug      string       `json:"slug" bson:"slug"`
	Subtitle  string       `json:"subtitle" bson:"subtitle"`
	CoverRef  string       `json:"coverRef" bson:"coverRef"`
	Items     []SeriesItem `json:"items" bson:"items"`
	UpdatedAt int64        `json:"updatedAt" bson:"updatedAt"`
}

// BookIDs returns the member book IDs in editorial order.
func (s *Series) BookIDs() []string {
	ids := make([]string, 0, len(s.Items))
	for _, it := range s.Items {
		if it.BookID != "" {
			ids = append(ids, it.BookID)
		}
	}
	return ids
}
