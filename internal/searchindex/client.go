// Package searchindex adapts the hosted search engine's object-store
// protocol: upsert and delete by objectID, atomic replace-all, and
// per-index relevance settings.
package searchindex

import (
	"context"
	"errors"
)

var (
	// ErrRateLimited is returned when the engine throttles a write.
	// Retriable with backoff.
	ErrRateLimited = errors.New("search index write rate limited")

	// ErrRejected is returned for malformed or oversized records.
	// Never retried; logged and skipped.
	ErrRejected = errors.New("record rejected by search index")
)

// HardSizeLimit is the engine's per-record size ceiling in bytes.
// Records above it fail with ErrRejected before any network call.
const HardSizeLimit = 10240

// Record is anything addressable by objectID that marshals to JSON.
type Record interface {
	Key() string
}

// Replica is a secondary index sharing the primary's records under a
// different ranking rule.
type Replica struct {
	Name    string   `yaml:"name"`
	Ranking []string `yaml:"ranking"`
}

// Settings is the relevance configuration for one index.
type Settings struct {
	SearchableAttributes  []string  `yaml:"searchable_attributes"`
	AttributesForFaceting []string  `yaml:"attributes_for_faceting"`
	Ranking               []string  `yaml:"ranking"`
	Replicas              []Replica `yaml:"replicas"`
}

// ReplicaNames returns the names of all configured replicas.
func (s Settings) ReplicaNames() []string {
	names := make([]string, 0, len(s.Replicas))
	for _, r := range s.Replicas {
		names = append(names, r.Name)
	}
	return names
}

// Client is the adapter over the hosted search engine.
//
// Upserts replace the whole record, never patch it, so concurrent
// writers are safe without ordering: whichever full-record write lands
// last is a valid snapshot. ReplaceAll is atomic from the reader's
// perspective.
type Client interface {
	// Upsert creates or fully replaces one record.
	Upsert(ctx context.Context, index string, rec Record) error

	// Delete removes one record by objectID. Deleting a missing record
	// is not an error.
	Delete(ctx context.Context, index string, objectID string) error

	// ReplaceAll atomically replaces the entire index contents.
	ReplaceAll(ctx context.Context, index string, records []Record) error

	// Configure pushes relevance settings, including replica ranking.
	Configure(ctx context.Context, index string, settings Settings) error
}
