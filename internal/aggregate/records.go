package aggregate

import (
	"encoding/hex"
	"encoding/json"

	"github.com/zeebo/blake3"
)

// Field length bounds applied to free text before a record is emitted.
// They keep records comfortably under the search engine's per-record
// size ceiling.
const (
	MaxTitleLen       = 500
	MaxDescriptionLen = 6000
	MaxStoryLen       = 2000
	MaxBioLen         = 6000
)

// SoftSizeLimit is the marshalled record size above which a warning is
// logged. The hard ceiling is enforced by the index client.
const SoftSizeLimit = 9000

// Record is a derived search record ready for upsert.
type Record interface {
	// Key returns the record's objectID.
	Key() string

	// Fingerprint returns a stable digest of the record content,
	// excluding timestamp passthrough fields.
	Fingerprint() string
}

// BookRecord is the denormalized search record for one book.
type BookRecord struct {
	ObjectID        string   `json:"objectID"`
	Title           string   `json:"title"`
	Slug            string   `json:"slug"`
	Format          string   `json:"format"`
	FormatLabel     string   `json:"formatLabel"`
	PublicationDate string   `json:"publicationDate,omitempty"`
	Description     string   `json:"description,omitempty"`
	Story           string   `json:"story,omitempty"`
	CoverURL        string   `json:"coverUrl,omitempty"`
	AuthorNames     []string `json:"authorNames"`
	AuthorSlugs     []string `json:"authorSlugs"`
	EraName         string   `json:"eraName,omitempty"`
	EraSlug         string   `json:"eraSlug,omitempty"`
	FactionNames    []string `json:"factionNames"`
	FactionSlugs    []string `json:"factionSlugs"`
	SeriesName      string   `json:"seriesName,omitempty"`
	SeriesSlug      string   `json:"seriesSlug,omitempty"`
	SeriesNames     []string `json:"seriesNames"`
	SeriesSlugs     []string `json:"seriesSlugs"`
	UpdatedAt       int64    `json:"_updatedAt,omitempty"`
}

func (r *BookRecord) Key() string { return r.ObjectID }

func (r *BookRecord) Fingerprint() string {
	c := *r
	c.UpdatedAt = 0
	return fingerprint(&c)
}

// AuthorRecord is the aggregated search record for one author.
type AuthorRecord struct {
	ObjectID     string   `json:"objectID"`
	Name         string   `json:"name"`
	Slug         string   `json:"slug"`
	LastName     string   `json:"lastName"`
	Bio          string   `json:"bio,omitempty"`
	PortraitURL  string   `json:"portraitUrl,omitempty"`
	BookCount    int      `json:"bookCount"`
	BookFormats  []string `json:"bookFormats"`
	SeriesNames  []string `json:"seriesNames"`
	SeriesSlugs  []string `json:"seriesSlugs"`
	FactionNames []string `json:"factionNames"`
	FactionSlugs []string `json:"factionSlugs"`
	EraNames     []string `json:"eraNames"`
	EraSlugs     []string `json:"eraSlugs"`
	UpdatedAt    int64    `json:"_updatedAt,omitempty"`
}

func (r *AuthorRecord) Key() string { return r.ObjectID }

func (r *AuthorRecord) Fingerprint() string {
	c := *r
	c.UpdatedAt = 0
	return fingerprint(&c)
}

// SeriesRecord is the aggregated search record for one series.
type SeriesRecord struct {
	ObjectID     string   `json:"objectID"`
	Title        string   `json:"title"`
	Slug         string   `json:"slug"`
	Subtitle     string   `json:"subtitle,omitempty"`
	CoverURL     string   `json:"coverUrl,omitempty"`
	BookCount    int      `json:"bookCount"`
	BookFormats  []string `json:"bookFormats"`
	AuthorNames  []string `json:"authorNames"`
	AuthorSlugs  []string `json:"authorSlugs"`
	FactionNames []string `json:"factionNames"`
	FactionSlugs []string `json:"factionSlugs"`
	EraNames     []string `json:"eraNames"`
	EraSlugs     []string `json:"eraSlugs"`
	UpdatedAt    int64    `json:"_updatedAt,omitempty"`
}

func (r *SeriesRecord) Key() string { return r.ObjectID }

func (r *SeriesRecord) Fingerprint() string {
	c := *r
	c.UpdatedAt = 0
	return fingerprint(&c)
}

// fingerprint digests the JSON form of a record. 128 bits hex, matching
// the content store's ID width.
func fingerprint(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

// EstimateSize returns the marshalled size of a record in bytes.
func EstimateSize(r Record) int {
	data, err := json.Marshal(r)
	if err != nil {
		return 0
	}
	return len(data)
}

// truncate bounds s to at most n characters.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
