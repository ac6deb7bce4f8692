// Package arxiv provides access to the arXiv Atom API for preprint metadata.
//
// arXiv identifiers in the tools database appear as pseudo-DOIs of the form
// "arxiv/1802.03426"; the pipeline strips the prefix and any version suffix
// and resolves the remaining identifiers in a single batched query against
// http://export.arxiv.org/api/query.
package arxiv

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sctools-db/dbconvert/pkg/cache"
	"github.com/sctools-db/dbconvert/pkg/integrations"
)

// versionRE matches a trailing version suffix on an arXiv identifier
// (e.g., the "v3" in "1802.03426v3").
var versionRE = regexp.MustCompile(`v\d+$`)

// absPrefixRE strips the URL prefix arXiv uses in Atom entry IDs.
var absPrefixRE = regexp.MustCompile(`^https?://arxiv\.org/abs/`)

// Preprint holds the metadata fields the pipeline needs for one identifier.
type Preprint struct {
	ID        string // Canonical identifier without version (e.g., "1802.03426")
	Title     string // Entry title (may be empty)
	Published string // First announcement date, YYYY-MM-DD (may be empty)
}

// Client provides access to the arXiv query API.
// It handles HTTP requests with caching and automatic retries.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates an arXiv client with the given cache backend.
func NewClient(backend cache.Cache, ttl time.Duration) *Client {
	return &Client{
		Client:  integrations.NewClient(backend, "arxiv:", ttl, nil),
		baseURL: "https://export.arxiv.org/api",
	}
}

// SetBaseURL overrides the API endpoint. Used by tests to point the client
// at a local server.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// CanonicalID converts an arXiv pseudo-DOI or raw identifier to its
// canonical form: the "arxiv/" prefix and any "vN" version suffix removed.
func CanonicalID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "arxiv/")
	return versionRE.ReplaceAllString(id, "")
}

// FetchBatch resolves a set of arXiv identifiers in one query.
//
// The ids may be raw identifiers or "arxiv/" pseudo-DOIs; each is
// canonicalized before the request. The result maps canonical identifier to
// metadata; identifiers the API did not return are simply absent from the
// map, which callers treat as unresolved.
//
// An empty ids slice returns an empty map without touching the network.
func (c *Client) FetchBatch(ctx context.Context, ids []string, refresh bool) (map[string]Preprint, error) {
	if len(ids) == 0 {
		return map[string]Preprint{}, nil
	}

	canonical := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		cid := CanonicalID(id)
		if cid == "" || seen[cid] {
			continue
		}
		seen[cid] = true
		canonical = append(canonical, cid)
	}

	key := cache.Hash([]byte(strings.Join(canonical, ",")))

	var preprints []Preprint
	err := c.Cached(ctx, key, refresh, &preprints, func() error {
		return c.fetch(ctx, canonical, &preprints)
	})
	if err != nil {
		return nil, err
	}

	result := make(map[string]Preprint, len(preprints))
	for _, p := range preprints {
		result[p.ID] = p
	}
	return result, nil
}

func (c *Client) fetch(ctx context.Context, ids []string, preprints *[]Preprint) error {
	var feed atomFeed
	url := fmt.Sprintf("%s/query?id_list=%s&max_results=%d", c.baseURL, strings.Join(ids, ","), len(ids))
	if err := c.GetXML(ctx, url, &feed); err != nil {
		return err
	}

	out := make([]Preprint, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		id := CanonicalID(absPrefixRE.ReplaceAllString(e.ID, ""))
		if id == "" {
			continue
		}
		p := Preprint{
			ID:    id,
			Title: strings.Join(strings.Fields(e.Title), " "),
		}
		if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
			p.Published = t.Format("2006-01-02")
		}
		out = append(out, p)
	}
	*preprints = out
	return nil
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Published string `xml:"published"`
}
