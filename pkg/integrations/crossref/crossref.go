// Package crossref provides access to the Crossref scholarly metadata API.
//
// The conversion pipeline uses it to resolve each registered (non-arXiv) DOI
// to a publication title and date. See https://api.crossref.org for the API
// contract; only the works endpoint is consumed.
package crossref

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sctools-db/dbconvert/pkg/cache"
	"github.com/sctools-db/dbconvert/pkg/integrations"
)

// Work holds the metadata fields the pipeline needs for one DOI.
//
// Zero values: empty Title and Published mean the work resolved but the
// service returned no usable metadata. An unresolvable DOI never produces a
// Work at all; callers get an error instead.
type Work struct {
	DOI       string // The DOI as queried (never empty in a valid Work)
	Title     string // First title string (may be empty)
	Published string // Publication date, YYYY-MM-DD (may be empty)
}

// Client provides access to the Crossref works API.
// It handles HTTP requests with caching and automatic retries.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a Crossref client with the given cache backend.
//
// The mailto address is included in the User-Agent per Crossref's "polite
// pool" etiquette; pass an empty string to omit it.
func NewClient(backend cache.Cache, ttl time.Duration, mailto string) *Client {
	agent := "dbconvert/1.0"
	if mailto != "" {
		agent = fmt.Sprintf("dbconvert/1.0 (mailto:%s)", mailto)
	}
	return &Client{
		Client:  integrations.NewClient(backend, "crossref:", ttl, map[string]string{"User-Agent": agent}),
		baseURL: "https://api.crossref.org",
	}
}

// SetBaseURL overrides the API endpoint. Used by tests to point the client
// at a local server.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// FetchWork retrieves title and publication date for a DOI.
//
// If refresh is true, the cache is bypassed and a fresh API call is made.
//
// Returns:
//   - Work populated with metadata on success
//   - [integrations.ErrNotFound] if the DOI is not registered with Crossref
//   - [integrations.ErrNetwork] for HTTP failures after the retry budget
//
// The returned Work pointer is never nil if err is nil.
func (c *Client) FetchWork(ctx context.Context, doi string, refresh bool) (*Work, error) {
	doi = strings.TrimSpace(doi)

	var work Work
	err := c.Cached(ctx, doi, refresh, &work, func() error {
		return c.fetch(ctx, doi, &work)
	})
	if err != nil {
		return nil, err
	}
	return &work, nil
}

func (c *Client) fetch(ctx context.Context, doi string, work *Work) error {
	var data apiResponse
	url := fmt.Sprintf("%s/works/%s", c.baseURL, integrations.URLEncode(doi))
	if err := c.Get(ctx, url, &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: crossref work %s", err, doi)
		}
		return err
	}

	*work = Work{
		DOI:       doi,
		Title:     firstTitle(data.Message.Title),
		Published: formatDateParts(data.Message.Issued.DateParts),
	}
	if work.Published == "" && data.Message.Created.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, data.Message.Created.DateTime); err == nil {
			work.Published = t.Format("2006-01-02")
		}
	}
	return nil
}

type apiResponse struct {
	Message apiWork `json:"message"`
}

type apiWork struct {
	Title  []string `json:"title"`
	Issued apiDate  `json:"issued"`
	Created struct {
		DateTime string `json:"date-time"`
	} `json:"created"`
}

type apiDate struct {
	DateParts [][]int `json:"date-parts"`
}

func firstTitle(titles []string) string {
	if len(titles) == 0 {
		return ""
	}
	return strings.TrimSpace(titles[0])
}

// formatDateParts renders a Crossref date-parts array as YYYY-MM-DD.
// Crossref dates may be partial (year only, or year and month); missing
// parts default to 01 so the column stays sortable.
func formatDateParts(parts [][]int) string {
	if len(parts) == 0 || len(parts[0]) == 0 {
		return ""
	}
	p := parts[0]
	year, month, day := p[0], 1, 1
	if len(p) > 1 {
		month = p[1]
	}
	if len(p) > 2 {
		day = p[2]
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}
