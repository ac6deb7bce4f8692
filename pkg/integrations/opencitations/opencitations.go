// Package opencitations provides access to the OpenCitations citation-count
// API. The pipeline queries it once per distinct DOI to record how often each
// tool's publications have been cited.
package opencitations

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sctools-db/dbconvert/pkg/cache"
	"github.com/sctools-db/dbconvert/pkg/integrations"
)

// Client provides access to the OpenCitations index API.
// It handles HTTP requests with caching and automatic retries.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates an OpenCitations client with the given cache backend.
func NewClient(backend cache.Cache, ttl time.Duration) *Client {
	return &Client{
		Client:  integrations.NewClient(backend, "citations:", ttl, nil),
		baseURL: "https://opencitations.net/index/api/v1",
	}
}

// SetBaseURL overrides the API endpoint. Used by tests to point the client
// at a local server.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// FetchCount retrieves the citation count for a DOI.
//
// Returns:
//   - The count on success (0 is a valid count)
//   - [integrations.ErrNotFound] if the DOI is unknown to the index
//   - [integrations.ErrNetwork] for HTTP failures after the retry budget
func (c *Client) FetchCount(ctx context.Context, doi string, refresh bool) (int, error) {
	doi = strings.TrimSpace(doi)

	var count int
	err := c.Cached(ctx, doi, refresh, &count, func() error {
		return c.fetch(ctx, doi, &count)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (c *Client) fetch(ctx context.Context, doi string, count *int) error {
	var data []countEntry
	url := fmt.Sprintf("%s/citation-count/%s", c.baseURL, integrations.URLEncode(doi))
	if err := c.Get(ctx, url, &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: citation count for %s", err, doi)
		}
		return err
	}

	// The API returns a one-element array; an empty array means the DOI is
	// not in the index, which the pipeline records as zero citations.
	*count = 0
	if len(data) > 0 {
		n, err := strconv.Atoi(data[0].Count)
		if err != nil {
			return fmt.Errorf("malformed citation count %q for %s", data[0].Count, doi)
		}
		*count = n
	}
	return nil
}

type countEntry struct {
	Count string `json:"count"`
}
