package scrape

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sctools-db/dbconvert/pkg/errors"
)

// scrapeBioc extracts package names from the Bioconductor release listing,
// a single page with one table row per package linking to its landing page.
func (s *Scraper) scrapeBioc(ctx context.Context) ([]string, error) {
	return s.scrapeTableLinks(ctx, s.BiocURL)
}

// scrapeCRAN extracts package names from the CRAN available-packages page,
// the same table-of-links shape as Bioconductor.
func (s *Scraper) scrapeCRAN(ctx context.Context) ([]string, error) {
	return s.scrapeTableLinks(ctx, s.CRANURL)
}

// scrapeTableLinks extracts the text of every link inside the page's tables.
func (s *Scraper) scrapeTableLinks(ctx context.Context, url string) ([]string, error) {
	doc, err := s.fetchDocument(ctx, url)
	if err != nil {
		return nil, err
	}

	var names []string
	doc.Find("table a").Each(func(_ int, sel *goquery.Selection) {
		if name := strings.TrimSpace(sel.Text()); name != "" {
			names = append(names, name)
		}
	})
	if len(names) == 0 {
		return nil, errors.New(errors.ErrCodeScrapeFailed, "no package links found at %s", url)
	}
	return names, nil
}

// scrapePyPI extracts package names from the PyPI simple index, a flat list
// of anchors with the package name as text.
func (s *Scraper) scrapePyPI(ctx context.Context) ([]string, error) {
	doc, err := s.fetchDocument(ctx, s.PyPIURL)
	if err != nil {
		return nil, err
	}

	var names []string
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		if name := strings.TrimSpace(sel.Text()); name != "" {
			names = append(names, name)
		}
	})
	if len(names) == 0 {
		return nil, errors.New(errors.ErrCodeScrapeFailed, "no package anchors found at %s", s.PyPIURL)
	}
	return names, nil
}

// scrapeAnaconda extracts package names from the paginated Anaconda channel
// listing. The operation is two-phase: the first page's pagination bar gives
// the page count, then every page is fetched and its package-name spans
// collected. Page counts are small, so the pages are collected eagerly.
func (s *Scraper) scrapeAnaconda(ctx context.Context) ([]string, error) {
	first, err := s.fetchDocument(ctx, s.anacondaPageURL(1))
	if err != nil {
		return nil, err
	}

	pages, err := anacondaPageCount(first)
	if err != nil {
		return nil, err
	}

	names := anacondaNames(first)
	for page := 2; page <= pages; page++ {
		doc, err := s.fetchDocument(ctx, s.anacondaPageURL(page))
		if err != nil {
			return nil, err
		}
		names = append(names, anacondaNames(doc)...)
	}
	if len(names) == 0 {
		return nil, errors.New(errors.ErrCodeScrapeFailed, "no package names found at %s", s.AnacondaURL)
	}
	return names, nil
}

func (s *Scraper) anacondaPageURL(page int) string {
	return fmt.Sprintf("%s?page=%d", s.AnacondaURL, page)
}

// anacondaPageCount reads the highest page number from the pagination bar.
func anacondaPageCount(doc *goquery.Document) (int, error) {
	pages := 0
	doc.Find("ul.pagination li a").Each(func(_ int, sel *goquery.Selection) {
		if n, err := strconv.Atoi(strings.TrimSpace(sel.Text())); err == nil && n > pages {
			pages = n
		}
	})
	if pages == 0 {
		return 0, errors.New(errors.ErrCodeScrapeFailed, "no pagination indicator found")
	}
	return pages, nil
}

func anacondaNames(doc *goquery.Document) []string {
	var names []string
	doc.Find("span.packageName").Each(func(_ int, sel *goquery.Selection) {
		if name := strings.TrimSpace(sel.Text()); name != "" {
			names = append(names, name)
		}
	})
	return names
}
