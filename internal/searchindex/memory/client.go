// Package memory provides an in-memory searchindex.Client for tests and
// dry runs. It enforces the same record size ceiling as the hosted
// engine and records every call for assertions.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"grimdex/internal/searchindex"
)

// Call is one recorded client operation.
type Call struct {
	Op       string // "upsert", "delete", "replaceAll", "configure"
	Index    string
	ObjectID string
	Count    int // record count for replaceAll
}

// Client is an in-memory implementation of searchindex.Client.
type Client struct {
	mu       sync.Mutex
	indexes  map[string]map[string]json.RawMessage
	settings map[string]searchindex.Settings
	calls    []Call

	// When set, every write fails with this error.
	failErr error

	// Per-operation error injected once, then cleared.
	failOnce error
}

// New creates an empty in-memory client.
func New() *Client {
	return &Client{
		indexes:  make(map[string]map[string]json.RawMessage),
		settings: make(map[string]searchindex.Settings),
	}
}

// FailWith makes every subsequent write fail with err. Pass nil to recover.
func (c *Client) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failErr = err
}

// FailNext makes only the next write fail with err.
func (c *Client) FailNext(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failOnce = err
}

func (c *Client) takeErr() error {
	if c.failErr != nil {
		return c.failErr
	}
	if c.failOnce != nil {
		err := c.failOnce
		c.failOnce = nil
		return err
	}
	return nil
}

func marshalChecked(rec searchindex.Record) (json.RawMessage, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", searchindex.ErrRejected, err)
	}
	if len(data) > searchindex.HardSizeLimit {
		return nil, fmt.Errorf("%w: record %s is %d bytes",
			searchindex.ErrRejected, rec.Key(), len(data))
	}
	return data, nil
}

func (c *Client) Upsert(_ context.Context, index string, rec searchindex.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeErr(); err != nil {
		return err
	}

	data, err := marshalChecked(rec)
	if err != nil {
		return err
	}

	if c.indexes[index] == nil {
		c.indexes[index] = make(map[string]json.RawMessage)
	}
	c.indexes[index][rec.Key()] = data
	c.calls = append(c.calls, Call{Op: "upsert", Index: index, ObjectID: rec.Key()})
	return nil
}

func (c *Client) Delete(_ context.Context, index string, objectID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeErr(); err != nil {
		return err
	}

	delete(c.indexes[index], objectID)
	c.calls = append(c.calls, Call{Op: "delete", Index: index, ObjectID: objectID})
	return nil
}

func (c *Client) ReplaceAll(_ context.Context, index string, records []searchindex.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeErr(); err != nil {
		return err
	}

	// Validate everything before touching the index, so a rejected
	// record leaves the previous contents intact.
	next := make(map[string]json.RawMessage, len(records))
	for _, rec := range records {
		data, err := marshalChecked(rec)
		if err != nil {
			return err
		}
		next[rec.Key()] = data
	}

	c.indexes[index] = next
	c.calls = append(c.calls, Call{Op: "replaceAll", Index: index, Count: len(records)})
	return nil
}

func (c *Client) Configure(_ context.Context, index string, settings searchindex.Settings) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeErr(); err != nil {
		return err
	}

	c.settings[index] = settings
	c.calls = append(c.calls, Call{Op: "configure", Index: index})
	return nil
}

// Get returns the stored record for an objectID, or nil.
func (c *Client) Get(index, objectID string) json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexes[index][objectID]
}

// Len returns the number of records in an index.
func (c *Client) Len(index string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.indexes[index])
}

// Settings returns the last configured settings for an index.
func (c *Client) Settings(index string) searchindex.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings[index]
}

// Calls returns all recorded operations in order.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallsFor returns recorded operations of one op type.
func (c *Client) CallsFor(op string) []Call {
	var out []Call
	for _, call := range c.Calls() {
		if call.Op == op {
			out = append(out, call)
		}
	}
	return out
}
