// Package feed defines the canonical change-event schema delivered to
// the sync pipeline, by webhook or through the event stream. All
// consumers use these types.
package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"grimdex/internal/catalog"
)

// Operation is the type of change that occurred in the content store.
type Operation string

const (
	OpCreate    Operation = "create"
	OpUpdate    Operation = "update"
	OpDelete    Operation = "delete"
	OpUnpublish Operation = "unpublish"
)

// IsValid checks if the operation is a known valid type.
func (o Operation) IsValid() bool {
	switch o {
	case OpCreate, OpUpdate, OpDelete, OpUnpublish:
		return true
	default:
		return false
	}
}

// Removes reports whether the operation removes the document from the
// published perspective.
func (o Operation) Removes() bool {
	return o == OpDelete || o == OpUnpublish
}

// Event is a single change event.
type Event struct {
	EventID   string       `json:"eventId"`
	Kind      catalog.Kind `json:"entityKind"`
	ID        string       `json:"entityId"`
	Operation Operation    `json:"operation"`
	Timestamp int64        `json:"timestamp,omitempty"` // Unix milliseconds
}

// NewEvent creates an Event with a fresh ID and the current timestamp.
func NewEvent(kind catalog.Kind, id string, op Operation) Event {
	return Event{
		EventID:   uuid.NewString(),
		Kind:      kind,
		ID:        id,
		Operation: op,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Validate checks the event is well formed.
func (e Event) Validate() error {
	if !e.Kind.IsValid() {
		return fmt.Errorf("unknown entity kind %q", e.Kind)
	}
	if e.ID == "" {
		return fmt.Errorf("entity id is required")
	}
	if !e.Operation.IsValid() {
		return fmt.Errorf("unknown operation %q", e.Operation)
	}
	return nil
}

// BatchedIDs is the feed-style delivery shape: IDs grouped by what
// happened to them, all of one entity kind.
type BatchedIDs struct {
	Created []string `json:"created"`
	Updated []string `json:"updated"`
	Deleted []string `json:"deleted"`
}

// Envelope carries either a single event or a batch of IDs. Exactly one
// of the two shapes is set.
type Envelope struct {
	Event *Event       `json:"event,omitempty"`
	Kind  catalog.Kind `json:"entityKind,omitempty"`
	IDs   *BatchedIDs  `json:"ids,omitempty"`
}

// Events expands the envelope into individual events, one per batched ID.
func (env Envelope) Events() ([]Event, error) {
	if env.Event != nil {
		if err := env.Event.Validate(); err != nil {
			return nil, err
		}
		return []Event{*env.Event}, nil
	}

	if env.IDs == nil {
		return nil, fmt.Errorf("envelope carries neither an event nor batched ids")
	}
	if !env.Kind.IsValid() {
		return nil, fmt.Errorf("unknown entity kind %q", env.Kind)
	}

	var events []Event
	for _, id := range env.IDs.Created {
		events = append(events, NewEvent(env.Kind, id, OpCreate))
	}
	for _, id := range env.IDs.Updated {
		events = append(events, NewEvent(env.Kind, id, OpUpdate))
	}
	for _, id := range env.IDs.Deleted {
		events = append(events, NewEvent(env.Kind, id, OpDelete))
	}
	return events, nil
}

// Decode parses an envelope from JSON, accepting both the single-event
// and batched-ids shapes. A bare event object (no envelope wrapper) is
// accepted as well.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed event payload: %w", err)
	}

	if env.Event == nil && env.IDs == nil {
		// Bare event shape: {"entityKind": ..., "entityId": ..., "operation": ...}
		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			return Envelope{}, fmt.Errorf("malformed event payload: %w", err)
		}
		if evt.ID == "" {
			return Envelope{}, fmt.Errorf("event payload missing entity id")
		}
		if evt.EventID == "" {
			evt.EventID = uuid.NewString()
		}
		env = Envelope{Event: &evt}
	}
	return env, nil
}
