package reference

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sctools-db/dbconvert/pkg/errors"
	"github.com/sctools-db/dbconvert/pkg/tools"
)

var testSnapshot = time.Date(2018, 8, 1, 12, 30, 0, 0, time.UTC)

func crossrefHandler(t *testing.T, titles map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doi := strings.TrimPrefix(r.URL.Path, "/works/")
		title, ok := titles[doi]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{
				"title":  []string{title},
				"issued": map[string]any{"date-parts": [][]int{{2017, 3, 27}}},
			},
		})
	}
}

func arxivHandler(feed string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feed))
	}
}

func citationsHandler(counts map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doi := strings.TrimPrefix(r.URL.Path, "/citation-count/")
		count, ok := counts[doi]
		if !ok {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[{"count": "` + count + `"}]`))
	}
}

func newTestEnricher(t *testing.T, crossrefURL, arxivURL, citationsURL string) *Enricher {
	t.Helper()
	return NewEnricher(Options{
		Attempts:     10,
		Delay:        time.Millisecond,
		Refresh:      true,
		Logger:       log.New(io.Discard),
		CrossrefURL:  crossrefURL,
		ArxivURL:     arxivURL,
		CitationsURL: citationsURL,
	})
}

func TestEnrich(t *testing.T) {
	crossrefSrv := httptest.NewServer(crossrefHandler(t, map[string]string{
		"10.1038/nmeth.4236": "SC3: consensus clustering",
	}))
	defer crossrefSrv.Close()

	arxivSrv := httptest.NewServer(arxivHandler(`<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1802.03426v3</id>
    <title>UMAP</title>
    <published>2018-02-09T18:00:30Z</published>
  </entry>
</feed>`))
	defer arxivSrv.Close()

	citationsSrv := httptest.NewServer(citationsHandler(map[string]string{
		"10.1038/nmeth.4236": "137",
		"arxiv/1802.03426":   "52",
	}))
	defer citationsSrv.Close()

	e := newTestEnricher(t, crossrefSrv.URL, arxivSrv.URL, citationsSrv.URL)

	idx := []tools.DOI{
		{Tool: "SC3", DOI: "10.1038/nmeth.4236"},
		{Tool: "umap", DOI: "arxiv/1802.03426"},
	}

	refs, err := e.Enrich(context.Background(), idx, testSnapshot)
	if err != nil {
		t.Fatalf("Enrich() error: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("refs = %d, want 2", len(refs))
	}

	sc3 := refs[0]
	if sc3.DOI != "10.1038/nmeth.4236" {
		t.Errorf("refs[0].DOI = %q (order should follow input)", sc3.DOI)
	}
	if sc3.Title != "SC3: consensus clustering" || sc3.Date != "2017-03-27" {
		t.Errorf("sc3 = %+v", sc3)
	}
	if !sc3.Citations.Valid || sc3.Citations.Value != 137 {
		t.Errorf("sc3.Citations = %+v, want 137", sc3.Citations)
	}
	if sc3.Preprint {
		t.Error("sc3 should not be a preprint")
	}
	if sc3.Timestamp != "2018-08-01 12:30:00" {
		t.Errorf("Timestamp = %q", sc3.Timestamp)
	}
	if sc3.Delay != 0 {
		t.Errorf("Delay = %d, want 0", sc3.Delay)
	}

	umap := refs[1]
	if !umap.ArXiv || !umap.Preprint {
		t.Errorf("umap flags = %+v", umap)
	}
	if umap.Title != "UMAP" || umap.Date != "2018-02-09" {
		t.Errorf("umap = %+v", umap)
	}
	if !umap.Citations.Valid || umap.Citations.Value != 52 {
		t.Errorf("umap.Citations = %+v, want 52", umap.Citations)
	}
}

func TestEnrichDeduplicatesDOIs(t *testing.T) {
	crossrefSrv := httptest.NewServer(crossrefHandler(t, map[string]string{
		"10.1038/nbt.4096": "Shared paper",
	}))
	defer crossrefSrv.Close()
	citationsSrv := httptest.NewServer(citationsHandler(nil))
	defer citationsSrv.Close()

	e := newTestEnricher(t, crossrefSrv.URL, "http://unused.invalid", citationsSrv.URL)

	// Two tools citing the same DOI yield one reference row.
	idx := []tools.DOI{
		{Tool: "ToolA", DOI: "10.1038/nbt.4096"},
		{Tool: "ToolB", DOI: "10.1038/nbt.4096"},
	}

	refs, err := e.Enrich(context.Background(), idx, testSnapshot)
	if err != nil {
		t.Fatalf("Enrich() error: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("refs = %d, want 1", len(refs))
	}
	if refs[0].Title != "Shared paper" {
		t.Errorf("refs[0] = %+v", refs[0])
	}
}

func TestEnrichRetryExhaustion(t *testing.T) {
	metadataCalls := 0
	crossrefSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metadataCalls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer crossrefSrv.Close()

	citationsSrv := httptest.NewServer(citationsHandler(map[string]string{
		"10.1000/flaky": "3",
	}))
	defer citationsSrv.Close()

	e := newTestEnricher(t, crossrefSrv.URL, "http://unused.invalid", citationsSrv.URL)

	idx := []tools.DOI{{Tool: "Flaky", DOI: "10.1000/flaky"}}

	refs, err := e.Enrich(context.Background(), idx, testSnapshot)
	if err != nil {
		t.Fatalf("Enrich() should complete despite exhausted retries, got: %v", err)
	}
	if metadataCalls != 10 {
		t.Errorf("metadata calls = %d, want exactly 10", metadataCalls)
	}
	if len(refs) != 1 {
		t.Fatalf("refs = %d, want 1", len(refs))
	}

	// Unresolved: null metadata rather than stale or partial values.
	flaky := refs[0]
	if flaky.Title != "" || flaky.Date != "" {
		t.Errorf("unresolved reference has metadata: %+v", flaky)
	}
	// The citation lookup is independent and still succeeds.
	if !flaky.Citations.Valid || flaky.Citations.Value != 3 {
		t.Errorf("Citations = %+v, want 3", flaky.Citations)
	}
}

func TestEnrichUnregisteredDOI(t *testing.T) {
	calls := 0
	crossrefSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer crossrefSrv.Close()
	citationsSrv := httptest.NewServer(citationsHandler(nil))
	defer citationsSrv.Close()

	e := newTestEnricher(t, crossrefSrv.URL, "http://unused.invalid", citationsSrv.URL)

	refs, err := e.Enrich(context.Background(), []tools.DOI{{Tool: "T", DOI: "10.1000/unknown"}}, testSnapshot)
	if err != nil {
		t.Fatalf("Enrich() error: %v", err)
	}
	// A 404 is not transient; it must not burn the whole retry budget.
	if calls != 1 {
		t.Errorf("metadata calls = %d, want 1 for an unregistered DOI", calls)
	}
	if refs[0].Title != "" {
		t.Errorf("unexpected title %q", refs[0].Title)
	}
}

func TestEnrichEmptyIndex(t *testing.T) {
	e := newTestEnricher(t, "http://unused.invalid", "http://unused.invalid", "http://unused.invalid")

	refs, err := e.Enrich(context.Background(), nil, testSnapshot)
	if err != nil {
		t.Fatalf("Enrich() error: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("refs = %d, want 0", len(refs))
	}
}

func TestEnrichMalformedDOISkipsLookups(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	var logs bytes.Buffer
	e := NewEnricher(Options{
		Attempts:     2,
		Delay:        time.Millisecond,
		Refresh:      true,
		Logger:       log.New(&logs),
		CrossrefURL:  srv.URL,
		ArxivURL:     srv.URL,
		CitationsURL: srv.URL,
	})

	idx := []tools.DOI{{Tool: "T", DOI: "10.1000/has whitespace"}}

	refs, err := e.Enrich(context.Background(), idx, testSnapshot)
	if err != nil {
		t.Fatalf("Enrich() error: %v", err)
	}
	if calls != 0 {
		t.Errorf("lookup calls = %d, a malformed DOI must never reach a service", calls)
	}
	if len(refs) != 1 {
		t.Fatalf("refs = %d, want 1", len(refs))
	}
	r := refs[0]
	if r.Title != "" || r.Date != "" || r.Citations.Valid {
		t.Errorf("malformed DOI row should stay unresolved: %+v", r)
	}
	if r.Timestamp == "" {
		t.Error("row missing snapshot timestamp")
	}
	if !strings.Contains(logs.String(), string(errors.ErrCodeUnresolved)) {
		t.Errorf("warning should carry the %s code, got:\n%s", errors.ErrCodeUnresolved, logs.String())
	}
}

func TestEnrichLogsUnresolvedOnExhaustedRetries(t *testing.T) {
	crossrefSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer crossrefSrv.Close()
	citationsSrv := httptest.NewServer(citationsHandler(nil))
	defer citationsSrv.Close()

	var logs bytes.Buffer
	e := NewEnricher(Options{
		Attempts:     2,
		Delay:        time.Millisecond,
		Refresh:      true,
		Logger:       log.New(&logs),
		CrossrefURL:  crossrefSrv.URL,
		ArxivURL:     "http://unused.invalid",
		CitationsURL: citationsSrv.URL,
	})

	_, err := e.Enrich(context.Background(), []tools.DOI{{Tool: "T", DOI: "10.1000/down"}}, testSnapshot)
	if err != nil {
		t.Fatalf("Enrich() error: %v", err)
	}
	if !strings.Contains(logs.String(), string(errors.ErrCodeUnresolved)) {
		t.Errorf("degraded lookup should log the %s code, got:\n%s", errors.ErrCodeUnresolved, logs.String())
	}
}
