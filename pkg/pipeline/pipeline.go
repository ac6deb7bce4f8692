// Package pipeline runs the full database conversion: load the wide tool
// CSV, reshape it into narrow tables, enrich the DOI index against the
// lookup services, snapshot the package registries, and write the result
// set.
//
// The stages are strictly sequential and each consumes the previous one's
// output. A schema error during load or any registry-scrape failure aborts
// the run with no output written; enrichment failures only degrade single
// references.
//
// Usage:
//
//	runner := pipeline.NewRunner(cache, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{Config: cfg})
package pipeline

import (
	"time"

	"github.com/sctools-db/dbconvert/pkg/config"
	"github.com/sctools-db/dbconvert/pkg/errors"
)

// Options configures a single conversion run.
type Options struct {
	// Config holds paths and network tuning. Nil uses config.Default().
	Config *config.Config

	// Snapshot is the timestamp stamped onto enriched references and
	// scraped packages. Zero means time.Now().UTC(), but tests pass a
	// frozen time for deterministic output.
	Snapshot time.Time

	// Refresh bypasses the lookup response cache.
	Refresh bool

	// Endpoint overrides for tests; empty means the real service.
	CrossrefURL  string
	ArxivURL     string
	CitationsURL string
	BiocURL      string
	CRANURL      string
	PyPIURL      string
	AnacondaURL  string
}

// ValidateAndSetDefaults fills unset options.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Config == nil {
		o.Config = config.Default()
	}
	if o.Config.Network.RetryAttempts < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "retry attempts must be at least 1")
	}
	if o.Snapshot.IsZero() {
		o.Snapshot = time.Now().UTC()
	}
	overrides := map[string]string{
		"crossref":  o.CrossrefURL,
		"arxiv":     o.ArxivURL,
		"citations": o.CitationsURL,
		"bioc":      o.BiocURL,
		"cran":      o.CRANURL,
		"pypi":      o.PyPIURL,
		"anaconda":  o.AnacondaURL,
	}
	for name, url := range overrides {
		if url == "" {
			continue
		}
		if err := errors.ValidateURL(url); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s endpoint override", name)
		}
	}
	return nil
}

// Stats records per-stage row counts and durations for one run.
type Stats struct {
	Tools        int
	Categories   int
	DOIs         int
	References   int
	Packages     int
	Repositories int
	Ignored      int

	LoadTime   time.Duration
	EnrichTime time.Duration
	ScrapeTime time.Duration
	WriteTime  time.Duration
}

// Result is the outcome of one conversion run.
type Result struct {
	RunID     string
	OutputDir string
	Stats     Stats
}
