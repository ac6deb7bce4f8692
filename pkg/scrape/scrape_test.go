package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sctools-db/dbconvert/pkg/errors"
)

const tableHTML = `<html><body>
<table>
  <tr><td><a href="pkg1.html">%s</a></td><td>desc</td></tr>
  <tr><td><a href="pkg2.html">%s</a></td><td>desc</td></tr>
</table>
</body></html>`

const pypiHTML = `<html><body>
<a href="/simple/scanpy/">scanpy</a>
<a href="/simple/scvi-tools/">scvi-tools</a>
<a href="/simple/anndata/">anndata</a>
</body></html>`

func anacondaHTML(pages int, names ...string) string {
	body := `<html><body><ul class="pagination"><li class="arrow"><a href="#">&laquo;</a></li>`
	for p := 1; p <= pages; p++ {
		body += fmt.Sprintf(`<li><a href="?page=%d">%d</a></li>`, p, p)
	}
	body += `<li class="arrow"><a href="#">&raquo;</a></li></ul>`
	for _, n := range names {
		body += fmt.Sprintf(`<span class="packageName">%s</span>`, n)
	}
	return body + `</body></html>`
}

var testSnapshot = time.Date(2018, 8, 1, 12, 30, 0, 0, time.UTC)

func newTestScraper(t *testing.T, bioc, cran, pypi, anaconda string) *Scraper {
	t.Helper()
	s := NewScraper(log.New(io.Discard))
	s.BiocURL = bioc
	s.CRANURL = cran
	s.PyPIURL = pypi
	s.AnacondaURL = anaconda
	return s
}

func TestSnapshot(t *testing.T) {
	biocSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, tableHTML, "scran", "scater")
	}))
	defer biocSrv.Close()

	cranSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, tableHTML, "Seurat", "monocle")
	}))
	defer cranSrv.Close()

	pypiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pypiHTML)
	}))
	defer pypiSrv.Close()

	anacondaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, anacondaHTML(2, "scanpy", "scvelo"))
		case "2":
			fmt.Fprint(w, anacondaHTML(2, "scanpy"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer anacondaSrv.Close()

	s := newTestScraper(t, biocSrv.URL, cranSrv.URL, pypiSrv.URL, anacondaSrv.URL)

	pkgs, err := s.Snapshot(context.Background(), testSnapshot)
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}

	// 2 Bioc + 2 CRAN + 3 PyPI + 3 Conda (duplicate scanpy rows pass through)
	if len(pkgs) != 10 {
		t.Fatalf("packages = %d, want 10", len(pkgs))
	}

	first := pkgs[0]
	if first.Cache != "Bioc@scran" || first.Name != "scran" || first.Type != RegistryBioc {
		t.Errorf("pkgs[0] = %+v", first)
	}
	if first.Added != "2018-08-01 12:30:00" {
		t.Errorf("Added = %q", first.Added)
	}

	// All rows share the one snapshot timestamp.
	for i, p := range pkgs {
		if p.Added != first.Added {
			t.Errorf("pkgs[%d].Added = %q, want %q", i, p.Added, first.Added)
		}
	}

	// Conda rows come from both pages, duplicates intact.
	var conda []string
	for _, p := range pkgs {
		if p.Type == RegistryConda {
			conda = append(conda, p.Name)
		}
	}
	want := []string{"scanpy", "scvelo", "scanpy"}
	if len(conda) != len(want) {
		t.Fatalf("conda = %v, want %v", conda, want)
	}
	for i := range want {
		if conda[i] != want[i] {
			t.Errorf("conda[%d] = %q, want %q", i, conda[i], want[i])
		}
	}
}

func TestSnapshotFetchFailureIsFatal(t *testing.T) {
	biocSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer biocSrv.Close()

	cranCalled := false
	cranSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cranCalled = true
		fmt.Fprintf(w, tableHTML, "Seurat", "monocle")
	}))
	defer cranSrv.Close()

	s := newTestScraper(t, biocSrv.URL, cranSrv.URL, cranSrv.URL, cranSrv.URL)

	pkgs, err := s.Snapshot(context.Background(), testSnapshot)
	if !errors.Is(err, errors.ErrCodeScrapeFailed) {
		t.Fatalf("Snapshot() error = %v, want SCRAPE_FAILED", err)
	}
	if pkgs != nil {
		t.Error("failed snapshot must not return partial results")
	}
	if cranCalled {
		t.Error("first failure should abort before later registries are fetched")
	}
}

func TestSnapshotEmptySelectionIsFatal(t *testing.T) {
	emptySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>maintenance</p></body></html>")
	}))
	defer emptySrv.Close()

	s := newTestScraper(t, emptySrv.URL, emptySrv.URL, emptySrv.URL, emptySrv.URL)

	if _, err := s.Snapshot(context.Background(), testSnapshot); !errors.Is(err, errors.ErrCodeScrapeFailed) {
		t.Errorf("Snapshot() error = %v, want SCRAPE_FAILED", err)
	}
}

func TestSnapshotMalformedNameIsFatal(t *testing.T) {
	// Anchor text with interior whitespace means the selector matched
	// something that is not a package cell.
	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, tableHTML, "scran", "not a package")
	}))
	defer badSrv.Close()

	s := newTestScraper(t, badSrv.URL, badSrv.URL, badSrv.URL, badSrv.URL)

	pkgs, err := s.Snapshot(context.Background(), testSnapshot)
	if !errors.Is(err, errors.ErrCodeScrapeFailed) {
		t.Fatalf("Snapshot() error = %v, want SCRAPE_FAILED", err)
	}
	if pkgs != nil {
		t.Error("failed snapshot must not return partial results")
	}
}

func TestSnapshotMissingPaginationIsFatal(t *testing.T) {
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, tableHTML, "a", "b")
	}))
	defer okSrv.Close()

	// Package names present but no pagination bar: the page-count discovery
	// must fail rather than silently scraping one page.
	noPagingSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><span class="packageName">scanpy</span></body></html>`)
	}))
	defer noPagingSrv.Close()

	s := newTestScraper(t, okSrv.URL, okSrv.URL, okSrv.URL, noPagingSrv.URL)

	if _, err := s.Snapshot(context.Background(), testSnapshot); !errors.Is(err, errors.ErrCodeScrapeFailed) {
		t.Errorf("Snapshot() error = %v, want SCRAPE_FAILED", err)
	}
}
