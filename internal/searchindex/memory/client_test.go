package memory

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimdex/internal/searchindex"
)

type testRecord struct {
	ObjectID string `json:"objectID"`
	Title    string `json:"title"`
}

func (r testRecord) Key() string { return r.ObjectID }

func TestUpsertAndDelete(t *testing.T) {
	c := New()
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, "idx", testRecord{ObjectID: "r1", Title: "one"}))
	assert.Equal(t, 1, c.Len("idx"))

	var stored testRecord
	require.NoError(t, json.Unmarshal(c.Get("idx", "r1"), &stored))
	assert.Equal(t, "one", stored.Title)

	require.NoError(t, c.Delete(ctx, "idx", "r1"))
	assert.Equal(t, 0, c.Len("idx"))
	assert.Nil(t, c.Get("idx", "r1"))
}

func TestUpsertRejectsOversizedRecord(t *testing.T) {
	c := New()

	big := testRecord{ObjectID: "r1", Title: strings.Repeat("x", searchindex.HardSizeLimit)}
	err := c.Upsert(context.Background(), "idx", big)
	assert.ErrorIs(t, err, searchindex.ErrRejected)
	assert.Equal(t, 0, c.Len("idx"))
}

func TestReplaceAllSwapsContents(t *testing.T) {
	c := New()
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, "idx", testRecord{ObjectID: "old"}))
	require.NoError(t, c.ReplaceAll(ctx, "idx", []searchindex.Record{
		testRecord{ObjectID: "r1"},
		testRecord{ObjectID: "r2"},
	}))

	assert.Equal(t, 2, c.Len("idx"))
	assert.Nil(t, c.Get("idx", "old"))
}

func TestReplaceAllIsAllOrNothing(t *testing.T) {
	c := New()
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, "idx", testRecord{ObjectID: "old"}))

	err := c.ReplaceAll(ctx, "idx", []searchindex.Record{
		testRecord{ObjectID: "r1"},
		testRecord{ObjectID: "r2", Title: strings.Repeat("x", searchindex.HardSizeLimit)},
	})
	assert.ErrorIs(t, err, searchindex.ErrRejected)

	// A rejected batch leaves the previous contents intact.
	assert.Equal(t, 1, c.Len("idx"))
	assert.NotNil(t, c.Get("idx", "old"))
}

func TestFailureInjection(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.FailNext(searchindex.ErrRateLimited)
	err := c.Upsert(ctx, "idx", testRecord{ObjectID: "r1"})
	assert.ErrorIs(t, err, searchindex.ErrRateLimited)

	// The once-error is consumed.
	assert.NoError(t, c.Upsert(ctx, "idx", testRecord{ObjectID: "r1"}))

	c.FailWith(searchindex.ErrRateLimited)
	assert.Error(t, c.Upsert(ctx, "idx", testRecord{ObjectID: "r2"}))
	assert.Error(t, c.Upsert(ctx, "idx", testRecord{ObjectID: "r2"}))
	c.FailWith(nil)
	assert.NoError(t, c.Upsert(ctx, "idx", testRecord{ObjectID: "r2"}))
}

func TestCallRecording(t *testing.T) {
	c := New()
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, "idx", testRecord{ObjectID: "r1"}))
	require.NoError(t, c.Delete(ctx, "idx", "r1"))
	require.NoError(t, c.Configure(ctx, "idx", searchindex.Settings{Ranking: []string{"typo"}}))

	calls := c.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "upsert", calls[0].Op)
	assert.Equal(t, "delete", calls[1].Op)
	assert.Equal(t, "configure", calls[2].Op)

	assert.Len(t, c.CallsFor("upsert"), 1)
	assert.Equal(t, []string{"typo"}, c.Settings("idx").Ranking)
}
