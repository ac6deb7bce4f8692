package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/sctools-db/dbconvert/pkg/cache"
	"github.com/sctools-db/dbconvert/pkg/output"
	"github.com/sctools-db/dbconvert/pkg/reference"
	"github.com/sctools-db/dbconvert/pkg/repos"
	"github.com/sctools-db/dbconvert/pkg/scrape"
	"github.com/sctools-db/dbconvert/pkg/tools"
)

// Runner executes conversion runs. It is stateless apart from the lookup
// response cache and logger; the same Runner can serve multiple runs.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables response caching; a nil
// logger uses the default logger.
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Logger: logger}
}

// Execute runs the complete load → reshape → enrich → scrape → write
// conversion and returns per-stage stats.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	cfg := opts.Config

	result := &Result{RunID: uuid.NewString()}
	r.Logger.Info("Starting conversion",
		"run", result.RunID,
		"snapshot", opts.Snapshot.Format(tools.TimestampFormat))

	// Stage 1: load and reshape.
	loadStart := time.Now()
	table, err := tools.LoadFile(cfg.Paths.Tools)
	if err != nil {
		return nil, err
	}
	repoCfg, err := repos.Load(cfg.Paths.Repositories)
	if err != nil {
		return nil, err
	}

	toolRows := table.Tools()
	categoryIdx := table.CategoryIdx()
	doiIdx := table.DOIIdx()
	repositories := repos.Build(toolRows, repoCfg)
	result.Stats.Tools = len(toolRows)
	result.Stats.Categories = len(categoryIdx)
	result.Stats.DOIs = len(doiIdx)
	result.Stats.Repositories = len(repositories)
	result.Stats.Ignored = len(repoCfg.Ignored)
	result.Stats.LoadTime = time.Since(loadStart)

	r.Logger.Info("Loaded tool table",
		"tools", result.Stats.Tools,
		"categories", result.Stats.Categories,
		"dois", result.Stats.DOIs)

	// Stage 2: enrich the DOI index.
	enrichStart := time.Now()
	enricher := reference.NewEnricher(reference.Options{
		Cache:        r.Cache,
		CacheTTL:     cfg.Network.CacheTTL.Duration,
		Attempts:     cfg.Network.RetryAttempts,
		Delay:        cfg.Network.RetryDelay.Duration,
		Mailto:       cfg.Network.Mailto,
		Refresh:      opts.Refresh,
		Logger:       r.Logger,
		CrossrefURL:  opts.CrossrefURL,
		ArxivURL:     opts.ArxivURL,
		CitationsURL: opts.CitationsURL,
	})
	references, err := enricher.Enrich(ctx, doiIdx, opts.Snapshot)
	if err != nil {
		return nil, err
	}
	result.Stats.References = len(references)
	result.Stats.EnrichTime = time.Since(enrichStart)
	r.Logger.Info("Enriched references",
		"references", result.Stats.References,
		"duration", result.Stats.EnrichTime)

	// Stage 3: snapshot the package registries. Any failure here is fatal
	// and nothing is written.
	scrapeStart := time.Now()
	scraper := scrape.NewScraper(r.Logger)
	applyScrapeOverrides(scraper, opts)
	packages, err := scraper.Snapshot(ctx, opts.Snapshot)
	if err != nil {
		return nil, err
	}
	result.Stats.Packages = len(packages)
	result.Stats.ScrapeTime = time.Since(scrapeStart)
	r.Logger.Info("Scraped registries",
		"packages", result.Stats.Packages,
		"duration", result.Stats.ScrapeTime)

	// Stage 4: write the result set.
	writeStart := time.Now()
	writer, err := output.NewWriter(cfg.Paths.Output, r.Logger)
	if err != nil {
		return nil, err
	}
	result.OutputDir = writer.Dir()
	tables := []struct {
		name string
		rows any
	}{
		{output.FileTools, &toolRows},
		{output.FileCategoryIdx, &categoryIdx},
		{output.FileDOIIdx, &doiIdx},
		{output.FileReferences, &references},
		{output.FilePackages, &packages},
		{output.FileRepositories, &repositories},
		{output.FileIgnored, &repoCfg.Ignored},
	}
	for _, t := range tables {
		if err := writer.WriteTable(t.name, t.rows); err != nil {
			return nil, err
		}
	}
	if err := writer.CopyFile(cfg.Paths.Categories, output.FileCategories); err != nil {
		return nil, err
	}
	result.Stats.WriteTime = time.Since(writeStart)

	r.Logger.Info("Conversion complete",
		"run", result.RunID,
		"output", result.OutputDir)
	return result, nil
}

func applyScrapeOverrides(s *scrape.Scraper, opts Options) {
	if opts.BiocURL != "" {
		s.BiocURL = opts.BiocURL
	}
	if opts.CRANURL != "" {
		s.CRANURL = opts.CRANURL
	}
	if opts.PyPIURL != "" {
		s.PyPIURL = opts.PyPIURL
	}
	if opts.AnacondaURL != "" {
		s.AnacondaURL = opts.AnacondaURL
	}
}
