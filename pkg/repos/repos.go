// Package repos builds the per-tool repository-identifier table from the
// curated registry-assignment JSON file and the tool table's code URLs.
package repos

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/sctools-db/dbconvert/pkg/errors"
	"github.com/sctools-db/dbconvert/pkg/scrape"
	"github.com/sctools-db/dbconvert/pkg/tools"
)

// githubPrefix is the host prefix a tool's Code URL must carry for a GitHub
// path to be derived from it.
const githubPrefix = "https://github.com/"

// biocAlias is the one registry-type alias the curated file is allowed to
// use; it normalizes to scrape.RegistryBioc.
const biocAlias = "Bioconductor"

// Repository is one row of the repository-identifier table: the curated
// registry identifiers joined with the GitHub path derived from the tool's
// code URL. Empty columns mean "no identifier for that registry".
type Repository struct {
	Tool   string `csv:"Tool"`
	Bioc   string `csv:"Bioc"`
	CRAN   string `csv:"CRAN"`
	PyPI   string `csv:"PyPI"`
	Conda  string `csv:"Conda"`
	GitHub string `csv:"GitHub"`
}

// Ignored is one row of the exclusion table: a registry package a tool must
// not be matched against despite sharing its name.
type Ignored struct {
	Tool string `csv:"Tool"`
	Type string `csv:"Type"`
	Name string `csv:"Name"`
}

// Config holds the parsed curated file: per-tool registry identifiers keyed
// by normalized registry type, and the flattened ignore list.
type Config struct {
	Identifiers map[string]map[string]string
	Ignored     []Ignored
}

// Load reads and parses the curated repository-assignment JSON file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read repository config %s", path)
	}
	return Parse(data)
}

// Parse parses the curated file. Each top-level key is a tool name mapping
// to an object whose keys are registry types (identifier values) plus an
// optional "Ignored" list of "type/name" strings. Unknown registry types and
// malformed ignore entries are configuration errors.
func Parse(data []byte) (*Config, error) {
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse repository config")
	}

	cfg := &Config{Identifiers: make(map[string]map[string]string, len(raw))}

	// Tool order in a JSON object is not stable; sort so ignore rows come
	// out deterministically.
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, tool := range names {
		for key, value := range raw[tool] {
			if key == "Ignored" {
				var entries []string
				if err := json.Unmarshal(value, &entries); err != nil {
					return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "tool %q: parse Ignored list", tool)
				}
				for _, entry := range entries {
					ignored, err := parseIgnored(tool, entry)
					if err != nil {
						return nil, err
					}
					cfg.Ignored = append(cfg.Ignored, ignored)
				}
				continue
			}

			registry, err := normalizeRegistry(key)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "tool %q", tool)
			}
			var id string
			if err := json.Unmarshal(value, &id); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "tool %q: %s identifier", tool, registry)
			}
			if cfg.Identifiers[tool] == nil {
				cfg.Identifiers[tool] = make(map[string]string)
			}
			cfg.Identifiers[tool][registry] = id
		}
	}

	sortIgnored(cfg.Ignored)
	return cfg, nil
}

func parseIgnored(tool, entry string) (Ignored, error) {
	typ, name, ok := strings.Cut(entry, "/")
	if !ok || typ == "" || name == "" {
		return Ignored{}, errors.New(errors.ErrCodeInvalidConfig, "tool %q: malformed ignore entry %q, want type/name", tool, entry)
	}
	registry, err := normalizeRegistry(typ)
	if err != nil {
		return Ignored{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "tool %q: ignore entry %q", tool, entry)
	}
	return Ignored{Tool: tool, Type: registry, Name: name}, nil
}

func normalizeRegistry(typ string) (string, error) {
	switch typ {
	case biocAlias:
		return scrape.RegistryBioc, nil
	case scrape.RegistryBioc, scrape.RegistryCRAN, scrape.RegistryPyPI, scrape.RegistryConda:
		return typ, nil
	}
	return "", errors.New(errors.ErrCodeInvalidConfig, "unknown registry type %q", typ)
}

func sortIgnored(rows []Ignored) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Tool != rows[j].Tool {
			return rows[i].Tool < rows[j].Tool
		}
		if rows[i].Type != rows[j].Type {
			return rows[i].Type < rows[j].Type
		}
		return rows[i].Name < rows[j].Name
	})
}

// GitHubPath derives a GitHub identifier from a tool's code URL by stripping
// the host prefix. Returns "" for URLs on any other host.
func GitHubPath(codeURL string) string {
	if !strings.HasPrefix(codeURL, githubPrefix) {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(codeURL, githubPrefix), "/")
}

// Build joins the curated identifiers with the GitHub paths derived from the
// tool table. The join is a full outer join on tool name: tools keep their
// input order, config entries for tools absent from the table follow in name
// order, and every tool appears at most once.
func Build(table []tools.Tool, cfg *Config) []Repository {
	out := make([]Repository, 0, len(table))
	seen := make(map[string]bool, len(table))

	for _, t := range table {
		seen[t.Tool] = true
		out = append(out, newRepository(t.Tool, GitHubPath(t.Code), cfg.Identifiers[t.Tool]))
	}

	extra := make([]string, 0)
	for tool := range cfg.Identifiers {
		if !seen[tool] {
			extra = append(extra, tool)
		}
	}
	sort.Strings(extra)
	for _, tool := range extra {
		out = append(out, newRepository(tool, "", cfg.Identifiers[tool]))
	}
	return out
}

func newRepository(tool, github string, ids map[string]string) Repository {
	return Repository{
		Tool:   tool,
		Bioc:   ids[scrape.RegistryBioc],
		CRAN:   ids[scrape.RegistryCRAN],
		PyPI:   ids[scrape.RegistryPyPI],
		Conda:  ids[scrape.RegistryConda],
		GitHub: github,
	}
}
