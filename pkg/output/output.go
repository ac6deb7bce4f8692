// Package output serializes the pipeline's tables as tab-delimited text
// files. Each file is written to a temp file in the output directory and
// atomically renamed into place, so a crash mid-write never leaves a
// truncated table behind.
package output

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/gocarina/gocsv"

	"github.com/sctools-db/dbconvert/pkg/errors"
)

// Output file names, fixed relative to the output directory.
const (
	FileTools        = "tools.tsv"
	FileCategoryIdx  = "categories-idx.tsv"
	FileDOIIdx       = "doi-idx.tsv"
	FileReferences   = "references.tsv"
	FilePackages     = "packages.tsv"
	FileRepositories = "repositories.tsv"
	FileIgnored      = "ignored.tsv"
	FileCategories   = "categories.json"
)

// Writer writes tables into a single output directory.
type Writer struct {
	dir    string
	logger *log.Logger
}

// NewWriter creates a Writer rooted at dir, creating the directory if
// needed. Pass nil to use the default logger.
func NewWriter(dir string, logger *log.Logger) (*Writer, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create output directory %s", dir)
	}
	return &Writer{dir: dir, logger: logger}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteTable serializes rows (a pointer to a slice of csv-tagged structs)
// as a tab-delimited file with one header row, overwriting any existing
// file of that name.
func (w *Writer) WriteTable(name string, rows any) error {
	tmp, err := os.CreateTemp(w.dir, name+".tmp-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create temp file for %s", name)
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	cw.Comma = '\t'
	cw.UseCRLF = false
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(cw)); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "serialize %s", name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", name)
	}

	path := filepath.Join(w.dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "rename %s into place", name)
	}
	w.logger.Debugf("Wrote %s", path)
	return nil
}

// CopyFile copies src byte-for-byte into the output directory under name.
// Used for auxiliary files that pass through the pipeline unmodified.
func (w *Writer) CopyFile(src, name string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", src)
	}

	tmp, err := os.CreateTemp(w.dir, name+".tmp-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create temp file for %s", name)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", name)
	}

	path := filepath.Join(w.dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "rename %s into place", name)
	}
	w.logger.Debugf("Copied %s to %s", src, path)
	return nil
}
