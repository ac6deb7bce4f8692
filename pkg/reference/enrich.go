package reference

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sctools-db/dbconvert/pkg/cache"
	"github.com/sctools-db/dbconvert/pkg/errors"
	"github.com/sctools-db/dbconvert/pkg/integrations/arxiv"
	"github.com/sctools-db/dbconvert/pkg/integrations/crossref"
	"github.com/sctools-db/dbconvert/pkg/integrations/opencitations"
	"github.com/sctools-db/dbconvert/pkg/tools"
)

// Enricher resolves publication metadata and citation counts for the DOI
// index. All lookups are sequential; a failed lookup degrades that DOI to an
// unresolved reference and never aborts the run.
type Enricher struct {
	crossref  *crossref.Client
	arxiv     *arxiv.Client
	citations *opencitations.Client
	logger    *log.Logger
	refresh   bool
}

// Options configures an Enricher.
type Options struct {
	Cache    cache.Cache   // response cache backend (nil disables caching)
	CacheTTL time.Duration // how long cached responses stay fresh
	Attempts int           // retry budget per lookup (default 10)
	Delay    time.Duration // flat delay between attempts (default 1s)
	Mailto   string        // contact address for the Crossref polite pool
	Refresh  bool          // bypass the response cache
	Logger   *log.Logger   // progress logging (nil uses log.Default)

	// Endpoint overrides for tests; empty means the real service.
	CrossrefURL  string
	ArxivURL     string
	CitationsURL string
}

// NewEnricher creates an Enricher wired to the three lookup services.
func NewEnricher(opts Options) *Enricher {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	e := &Enricher{
		crossref:  crossref.NewClient(opts.Cache, opts.CacheTTL, opts.Mailto),
		arxiv:     arxiv.NewClient(opts.Cache, opts.CacheTTL),
		citations: opencitations.NewClient(opts.Cache, opts.CacheTTL),
		logger:    opts.Logger,
		refresh:   opts.Refresh,
	}

	if opts.CrossrefURL != "" {
		e.crossref.SetBaseURL(opts.CrossrefURL)
	}
	if opts.ArxivURL != "" {
		e.arxiv.SetBaseURL(opts.ArxivURL)
	}
	if opts.CitationsURL != "" {
		e.citations.SetBaseURL(opts.CitationsURL)
	}

	if opts.Attempts > 0 {
		e.crossref.SetRetry(opts.Attempts, opts.Delay)
		e.arxiv.SetRetry(opts.Attempts, opts.Delay)
		e.citations.SetRetry(opts.Attempts, opts.Delay)
	}

	logFail := func(attempt int, err error) {
		opts.Logger.Warnf("Lookup attempt %d failed: %v", attempt, err)
	}
	e.crossref.OnRetryFailure(logFail)
	e.arxiv.OnRetryFailure(logFail)
	e.citations.OnRetryFailure(logFail)

	return e
}

// Enrich builds the references table for the DOI index.
//
// One reference row is produced per distinct DOI, in first-seen input order.
// Non-arXiv DOIs are resolved through Crossref one by one; arXiv pseudo-DOIs
// are resolved in a single batched Atom query; every distinct DOI gets a
// citation-count lookup. Merge is by left join: a DOI whose lookups fail
// keeps empty title/date and null citations.
//
// The snapshot time stamps every row; it is passed in rather than read from
// the clock so that runs are deterministic under test.
func (e *Enricher) Enrich(ctx context.Context, idx []tools.DOI, snapshot time.Time) ([]Reference, error) {
	dois := distinct(idx)
	stamp := snapshot.Format(tools.TimestampFormat)

	// DOIs that fail syntactic validation get a row like any other, but no
	// lookup is attempted for them: they stay unresolved and never reach a
	// service URL.
	refs := make([]Reference, 0, len(dois))
	invalid := make(map[string]bool)
	var arxivIDs []string
	for _, doi := range dois {
		r := Classify(doi)
		r.Timestamp = stamp
		refs = append(refs, r)
		if err := errors.ValidateDOI(doi); err != nil {
			invalid[doi] = true
			e.logger.Warn(errors.Wrap(errors.ErrCodeUnresolved, err, "skipping lookups for %q", doi))
			continue
		}
		if r.ArXiv {
			arxivIDs = append(arxivIDs, doi)
		}
	}

	// Scholarly metadata: Crossref for registered DOIs, one batched arXiv
	// query for the rest.
	works := make(map[string]*crossref.Work, len(dois))
	for _, doi := range dois {
		if invalid[doi] || IsArXiv(doi) {
			continue
		}
		e.logger.Infof("Fetching metadata for %s", doi)
		work, err := e.crossref.FetchWork(ctx, doi, e.refresh)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Warn(errors.Wrap(errors.ErrCodeUnresolved, err, "metadata for %s", doi))
			continue
		}
		works[doi] = work
	}

	var preprints map[string]arxiv.Preprint
	if len(arxivIDs) > 0 {
		e.logger.Infof("Fetching %d arXiv preprints", len(arxivIDs))
		var err error
		preprints, err = e.arxiv.FetchBatch(ctx, arxivIDs, e.refresh)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Warn(errors.Wrap(errors.ErrCodeUnresolved, err, "arXiv batch of %d", len(arxivIDs)))
		}
	}

	// Citation counts for every distinct DOI.
	counts := make(map[string]int, len(dois))
	for _, doi := range dois {
		if invalid[doi] {
			continue
		}
		e.logger.Infof("Fetching citations for %s", doi)
		count, err := e.citations.FetchCount(ctx, doi, e.refresh)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Warn(errors.Wrap(errors.ErrCodeUnresolved, err, "citations for %s", doi))
			continue
		}
		counts[doi] = count
	}

	// Left joins by DOI, then full-row dedup (the lookup services can in
	// principle return multiple rows per identifier).
	for i := range refs {
		doi := refs[i].DOI
		if work, ok := works[doi]; ok {
			refs[i].Title = work.Title
			refs[i].Date = work.Published
		} else if p, ok := preprints[arxiv.CanonicalID(doi)]; ok && bool(refs[i].ArXiv) {
			refs[i].Title = p.Title
			refs[i].Date = p.Published
		}
		if count, ok := counts[doi]; ok {
			refs[i].Citations = SomeInt(count)
		}
	}

	return dedupe(refs), nil
}

// distinct returns the DOI strings of the index, first-seen order, without
// duplicates.
func distinct(idx []tools.DOI) []string {
	seen := make(map[string]bool, len(idx))
	var out []string
	for _, entry := range idx {
		if entry.DOI == "" || seen[entry.DOI] {
			continue
		}
		seen[entry.DOI] = true
		out = append(out, entry.DOI)
	}
	return out
}

// dedupe removes rows identical in every column, preserving order.
func dedupe(refs []Reference) []Reference {
	seen := make(map[Reference]bool, len(refs))
	out := refs[:0]
	for _, r := range refs {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
