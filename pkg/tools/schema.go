package tools

import (
	"strings"
	"time"
)

// DateFormat is the layout for all date columns in the database.
const DateFormat = "2006-01-02"

// TimestampFormat is the layout for the fetch/enrichment timestamp columns.
const TimestampFormat = "2006-01-02 15:04:05"

// Date is a calendar date column. It implements the gocsv marshalling
// interfaces so date columns round-trip as plain YYYY-MM-DD strings.
type Date struct {
	time.Time
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

// MarshalCSV renders the date as YYYY-MM-DD.
func (d Date) MarshalCSV() (string, error) {
	if d.IsZero() {
		return "", nil
	}
	return d.Format(DateFormat), nil
}

// UnmarshalCSV parses a YYYY-MM-DD field.
func (d *Date) UnmarshalCSV(s string) error {
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Tool is one row of the projected tool metadata table.
type Tool struct {
	Tool        string `csv:"Tool"`
	Platform    string `csv:"Platform"`
	Code        string `csv:"Code"`
	Description string `csv:"Description"`
	License     string `csv:"License"`
	Added       Date   `csv:"Added"`
	Updated     Date   `csv:"Updated"`
}

// Category is one row of the tool-to-category membership index.
type Category struct {
	Tool     string `csv:"Tool"`
	Category string `csv:"Category"`
}

// DOI is one row of the tool-to-DOI index.
type DOI struct {
	Tool string `csv:"Tool"`
	DOI  string `csv:"DOI"`
}

// fixedColumns is the set of typed, non-category columns in the input
// spreadsheet. Every column outside this set is treated as a boolean
// category flag; a non-boolean value there is a configuration error.
var fixedColumns = map[string]bool{
	"Name":        true,
	"Platform":    true,
	"DOIs":        true,
	"Code":        true,
	"Description": true,
	"License":     true,
	"Added":       true,
	"Updated":     true,
}
