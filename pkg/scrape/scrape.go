// Package scrape takes a snapshot of the public package-registry indexes.
//
// Four registries are scraped: Bioconductor and CRAN (R ecosystem), the PyPI
// simple index (Python), and an Anaconda channel (general purpose). Each is
// a plain HTML page; package names are extracted with per-registry goquery
// selectors and tagged with their registry type and one shared fetch
// timestamp.
//
// Unlike the enrichment lookups, scraping has no retry and no cache: a
// snapshot must be fresh and complete, so any fetch or parse failure is
// fatal to the whole run and no partial snapshot is ever produced.
package scrape

import (
	"context"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/sctools-db/dbconvert/pkg/errors"
	"github.com/sctools-db/dbconvert/pkg/integrations"
	"github.com/sctools-db/dbconvert/pkg/tools"
)

// Registry types as they appear in the Type column of the packages table.
const (
	RegistryBioc  = "Bioc"
	RegistryCRAN  = "CRAN"
	RegistryPyPI  = "PyPI"
	RegistryConda = "Conda"
)

// Default index pages for the four registries.
const (
	DefaultBiocURL     = "https://bioconductor.org/packages/release/bioc/"
	DefaultCRANURL     = "https://cran.r-project.org/web/packages/available_packages_by_name.html"
	DefaultPyPIURL     = "https://pypi.org/simple/"
	DefaultAnacondaURL = "https://anaconda.org/anaconda/repo"
)

// Package is one row of the registry-package snapshot.
// Cache is the composite key "type@name". Exact duplicates within or across
// registries pass through unchanged; the snapshot is flat and unversioned.
type Package struct {
	Cache string `csv:"Cache"`
	Name  string `csv:"Name"`
	Type  string `csv:"Type"`
	Added string `csv:"Added"`
}

// Scraper fetches the registry index pages.
type Scraper struct {
	http   *http.Client
	logger *log.Logger

	BiocURL     string
	CRANURL     string
	PyPIURL     string
	AnacondaURL string
}

// NewScraper creates a Scraper against the default registry pages.
// Pass nil to use the default logger.
func NewScraper(logger *log.Logger) *Scraper {
	if logger == nil {
		logger = log.Default()
	}
	return &Scraper{
		http:        integrations.NewHTTPClient(),
		logger:      logger,
		BiocURL:     DefaultBiocURL,
		CRANURL:     DefaultCRANURL,
		PyPIURL:     DefaultPyPIURL,
		AnacondaURL: DefaultAnacondaURL,
	}
}

// Snapshot scrapes all four registries and returns the combined package
// table, stamped with the given snapshot time. Registries are scraped in a
// fixed order (Bioc, CRAN, PyPI, Conda); the first failure aborts the whole
// snapshot.
func (s *Scraper) Snapshot(ctx context.Context, snapshot time.Time) ([]Package, error) {
	stamp := snapshot.Format(tools.TimestampFormat)

	var out []Package
	scrapers := []struct {
		registry string
		scrape   func(context.Context) ([]string, error)
	}{
		{RegistryBioc, s.scrapeBioc},
		{RegistryCRAN, s.scrapeCRAN},
		{RegistryPyPI, s.scrapePyPI},
		{RegistryConda, s.scrapeAnaconda},
	}

	for _, sc := range scrapers {
		s.logger.Infof("Scraping %s package index", sc.registry)
		names, err := sc.scrape(ctx)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeScrapeFailed, err, "scrape %s", sc.registry)
		}
		s.logger.Infof("Found %d %s packages", len(names), sc.registry)
		for _, name := range names {
			// A name the registry pattern rejects means the page markup
			// drifted under the selector, which taints the whole snapshot.
			if err := errors.ValidateRegistryPackageName(name); err != nil {
				return nil, errors.Wrap(errors.ErrCodeScrapeFailed, err, "scrape %s", sc.registry)
			}
			out = append(out, Package{
				Cache: sc.registry + "@" + name,
				Name:  name,
				Type:  sc.registry,
				Added: stamp,
			})
		}
	}
	return out, nil
}

// fetchDocument GETs a page and parses it. Non-200 responses and transport
// errors are returned as-is; the caller wraps them as fatal scrape errors.
func (s *Scraper) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrCodeScrapeFailed, "%s returned status %d", url, resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}
