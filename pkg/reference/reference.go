package reference

import "strconv"

// Flag is a boolean column rendered in the spreadsheet's TRUE/FALSE spelling.
type Flag bool

// MarshalCSV renders the flag as TRUE or FALSE.
func (f Flag) MarshalCSV() (string, error) {
	if f {
		return "TRUE", nil
	}
	return "FALSE", nil
}

// NullInt is an integer column that may be null (rendered as an empty
// field). Unlike a pointer it keeps [Reference] comparable, which the
// full-row deduplication relies on.
type NullInt struct {
	Valid bool
	Value int
}

// SomeInt builds a non-null NullInt.
func SomeInt(v int) NullInt {
	return NullInt{Valid: true, Value: v}
}

// MarshalCSV renders the value, or an empty field when null.
func (n NullInt) MarshalCSV() (string, error) {
	if !n.Valid {
		return "", nil
	}
	return strconv.Itoa(n.Value), nil
}

// Reference is one row of the references table: a distinct DOI with its
// preprint classification and enrichment results.
//
// An unresolved DOI (lookups exhausted their retry budget, or the service
// does not know the identifier) keeps empty Title/Date and a null Citations
// rather than any stale or partial value. Delay is reserved for staleness
// tracking and is always zero in this version.
type Reference struct {
	DOI       string  `csv:"DOI"`
	ArXiv     Flag    `csv:"arXiv"`
	BioRxiv   Flag    `csv:"bioRxiv"`
	PeerJ     Flag    `csv:"PeerJ"`
	Preprint  Flag    `csv:"Preprint"`
	Title     string  `csv:"Title"`
	Date      string  `csv:"Date"`
	Citations NullInt `csv:"Citations"`
	Timestamp string  `csv:"Timestamp"`
	Delay     int     `csv:"Delay"`
}
