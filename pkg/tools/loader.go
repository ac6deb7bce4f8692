package tools

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/sctools-db/dbconvert/pkg/errors"
)

// Row is one wide input row after type coercion.
type Row struct {
	Name        string
	Platform    string
	DOIs        string
	Code        string
	Description string
	License     string
	Added       Date
	Updated     Date
	Flags       map[string]bool // category name -> membership flag
}

// Table is the loaded wide spreadsheet.
type Table struct {
	Rows       []Row
	Categories []string // category columns in input order
}

// LoadFile reads and coerces the tools spreadsheet at path.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open tools spreadsheet %s", path)
	}
	defer f.Close()
	return Load(f)
}

// Load reads and coerces the tools spreadsheet from r.
//
// The header row declares the schema: the fixed typed columns must all be
// present, and every remaining column is a boolean category flag. Any value
// that fails coercion (a malformed date, a non-boolean category cell) aborts
// the load with an INVALID_SCHEMA error naming the row and column.
func Load(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSchema, err, "malformed CSV")
	}
	if len(records) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidSchema, "spreadsheet has no header row")
	}

	header := records[0]
	index := make(map[string]int, len(header))
	var categories []string
	for i, col := range header {
		col = strings.TrimSpace(col)
		if _, dup := index[col]; dup {
			return nil, errors.New(errors.ErrCodeInvalidSchema, "duplicate column %q", col)
		}
		index[col] = i
		if !fixedColumns[col] {
			categories = append(categories, col)
		}
	}
	for col := range fixedColumns {
		if _, ok := index[col]; !ok {
			return nil, errors.New(errors.ErrCodeInvalidSchema, "missing required column %q", col)
		}
	}

	table := &Table{Categories: categories}
	for n, record := range records[1:] {
		row, err := coerceRow(record, index, categories)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidSchema, err, "row %d", n+2)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func coerceRow(record []string, index map[string]int, categories []string) (Row, error) {
	field := func(col string) string { return strings.TrimSpace(record[index[col]]) }

	row := Row{
		Name:        field("Name"),
		Platform:    field("Platform"),
		DOIs:        field("DOIs"),
		Code:        field("Code"),
		Description: field("Description"),
		License:     field("License"),
		Flags:       make(map[string]bool, len(categories)),
	}
	if row.Name == "" {
		return Row{}, errors.New(errors.ErrCodeInvalidSchema, "column Name: empty tool name")
	}

	var err error
	if row.Added, err = ParseDate(field("Added")); err != nil {
		return Row{}, errors.New(errors.ErrCodeInvalidSchema, "column Added: cannot parse %q as date", field("Added"))
	}
	if row.Updated, err = ParseDate(field("Updated")); err != nil {
		return Row{}, errors.New(errors.ErrCodeInvalidSchema, "column Updated: cannot parse %q as date", field("Updated"))
	}

	for _, cat := range categories {
		flag, err := parseBool(field(cat))
		if err != nil {
			return Row{}, errors.New(errors.ErrCodeInvalidSchema, "column %s: cannot parse %q as boolean", cat, field(cat))
		}
		row.Flags[cat] = flag
	}
	return row, nil
}

// parseBool accepts the TRUE/FALSE spelling the spreadsheet uses,
// case-insensitively. Anything else, including an empty cell, is an error.
func parseBool(s string) (bool, error) {
	switch strings.ToUpper(s) {
	case "TRUE":
		return true, nil
	case "FALSE":
		return false, nil
	}
	return false, errors.New(errors.ErrCodeInvalidSchema, "not a boolean: %q", s)
}
