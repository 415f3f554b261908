package webhook

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimdex/internal/assets"
	"grimdex/internal/catalog"
	catmem "grimdex/internal/catalog/memory"
	idxmem "grimdex/internal/searchindex/memory"
	"grimdex/internal/syncer"
)

const testSecret = "test-secret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(t *testing.T) (*httptest.Server, *idxmem.Client) {
	t.Helper()

	store := catmem.New()
	store.PutAuthor(catalog.Author{ID: "a1", Name: "Dan Abnett", Slug: "dan-abnett"})
	store.PutBook(catalog.Book{ID: "b1", Title: "One", Slug: "one", AuthorIDs: []string{"a1"}})

	index := idxmem.New()
	sync := syncer.New(
		syncer.Config{IndexPrefix: "test", ThrottleRPS: -1, RetryBase: time.Millisecond},
		store, index, assets.NewBuilder("testproj", "production"), testLogger())

	mux := http.NewServeMux()
	NewHandler(sync, testSecret, testLogger()).RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, index
}

func postSigned(t *testing.T, url string, body []byte) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Grimdex-Signature", Sign(body, testSecret, time.Now().Unix()))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestHandleEvent(t *testing.T) {
	srv, index := newTestServer(t)

	body := []byte(`{"entityKind":"book","entityId":"b1","operation":"update"}`)
	resp := postSigned(t, srv.URL+"/hooks/catalog", body)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sum syncer.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sum))
	assert.Equal(t, 2, sum.Synced) // b1 and its author
	assert.NotNil(t, index.Get("test_books", "b1"))
}

func TestHandleEventRejectsMissingSignature(t *testing.T) {
	srv, index := newTestServer(t)

	body := []byte(`{"entityKind":"book","entityId":"b1","operation":"update"}`)
	resp, err := http.Post(srv.URL+"/hooks/catalog", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, index.Calls())
}

func TestHandleEventRejectsBadSignature(t *testing.T) {
	srv, index := newTestServer(t)

	body := []byte(`{"entityKind":"book","entityId":"b1","operation":"update"}`)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/hooks/catalog", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Grimdex-Signature", Sign([]byte("other"), testSecret, time.Now().Unix()))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var apiErr APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Equal(t, ErrCodeUnauthorized, apiErr.Code)
	assert.Empty(t, index.Calls())
}

func TestHandleEventRejectsMalformedPayload(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postSigned(t, srv.URL+"/hooks/catalog", []byte(`not json`))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleEventBatched(t *testing.T) {
	srv, index := newTestServer(t)

	body := []byte(`{"entityKind":"book","ids":{"deleted":["b9"]}}`)
	resp := postSigned(t, srv.URL+"/hooks/catalog", body)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, index.CallsFor("delete"), 1)
}

func TestHandleReindex(t *testing.T) {
	srv, index := newTestServer(t)

	resp, err := http.Post(srv.URL+"/admin/reindex?index=books", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summaries map[string]syncer.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summaries))
	assert.Equal(t, 1, summaries["books"].Synced)
	assert.Equal(t, 1, index.Len("test_books"))
}

func TestHandleReindexAll(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/admin/reindex", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summaries map[string]syncer.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summaries))
	assert.Len(t, summaries, 3)
}

func TestHandleReindexUnknownIndex(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/admin/reindex?index=chapters", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
