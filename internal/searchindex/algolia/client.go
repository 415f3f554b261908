// Package algolia implements searchindex.Client on the hosted Algolia
// engine.
package algolia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/errs"
	"github.com/algolia/algoliasearch-client-go/v3/algolia/opt"
	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"

	"grimdex/internal/searchindex"
)

// Client is an Algolia-backed searchindex.Client.
type Client struct {
	client *search.Client
	logger *slog.Logger
}

// New creates a Client for the given Algolia application.
func New(appID, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		client: search.NewClient(appID, apiKey),
		logger: logger.With("component", "algolia"),
	}
}

// checkSize rejects a record above the hard ceiling before any network
// call, so oversize failures are deterministic and local.
func checkSize(rec searchindex.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", searchindex.ErrRejected, err)
	}
	if len(data) > searchindex.HardSizeLimit {
		return fmt.Errorf("%w: record %s is %d bytes",
			searchindex.ErrRejected, rec.Key(), len(data))
	}
	return nil
}

// mapErr translates Algolia transport errors into the client taxonomy.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var aerr *errs.AlgoliaErr
	if errors.As(err, &aerr) {
		switch aerr.Status {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", searchindex.ErrRateLimited, err)
		case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
			return fmt.Errorf("%w: %v", searchindex.ErrRejected, err)
		}
	}
	return err
}

func (c *Client) Upsert(ctx context.Context, index string, rec searchindex.Record) error {
	if err := checkSize(rec); err != nil {
		return err
	}
	_, err := c.client.InitIndex(index).SaveObject(rec, ctx)
	return mapErr(err)
}

func (c *Client) Delete(ctx context.Context, index string, objectID string) error {
	_, err := c.client.InitIndex(index).DeleteObject(objectID, ctx)
	return mapErr(err)
}

func (c *Client) ReplaceAll(ctx context.Context, index string, records []searchindex.Record) error {
	objects := make([]interface{}, 0, len(records))
	for _, rec := range records {
		if err := checkSize(rec); err != nil {
			return err
		}
		objects = append(objects, rec)
	}

	// Safe mode rebuilds into a temporary index and moves it over the
	// live one, which is what makes replace-all atomic for readers.
	_, err := c.client.InitIndex(index).ReplaceAllObjects(objects, ctx, opt.Safe(true))
	return mapErr(err)
}

func (c *Client) Configure(ctx context.Context, index string, settings searchindex.Settings) error {
	primary := search.Settings{
		SearchableAttributes:  opt.SearchableAttributes(settings.SearchableAttributes...),
		AttributesForFaceting: opt.AttributesForFaceting(settings.AttributesForFaceting...),
	}
	if len(settings.Ranking) > 0 {
		primary.Ranking = opt.Ranking(settings.Ranking...)
	}
	if len(settings.Replicas) > 0 {
		primary.Replicas = opt.Replicas(settings.ReplicaNames()...)
	}

	if _, err := c.client.InitIndex(index).SetSettings(primary, ctx); err != nil {
		return mapErr(err)
	}

	// Replicas share records but rank differently; each gets its own
	// settings push.
	for _, replica := range settings.Replicas {
		rs := search.Settings{}
		if len(replica.Ranking) > 0 {
			rs.Ranking = opt.Ranking(replica.Ranking...)
		}
		if _, err := c.client.InitIndex(replica.Name).SetSettings(rs, ctx); err != nil {
			return mapErr(err)
		}
		c.logger.Info("configured replica index", "index", index, "replica", replica.Name)
	}
	return nil
}
