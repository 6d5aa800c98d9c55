package normalize

import (
	"fmt"
	"strconv"
	"strings"
)

// Missing marks a value that could not be parsed.
const Missing = -999

// Row is one raw source record, field name to text.
type Row map[string]string

// MakeNumeric parses s as an integer, then as a float, and falls back to
// Missing. It never fails.
func MakeNumeric(s string) float64 {
	trimmed := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return float64(i)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return Missing
}

// IsMissing reports whether v is the missing sentinel.
func IsMissing(v float64) bool {
	return v == Missing
}

// MissingColumnError is returned when a row lacks a configured column.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("row has no column %q", e.Column)
}

func field(row Row, column string) (string, error) {
	v, ok := row[column]
	if !ok {
		return "", &MissingColumnError{Column: column}
	}
	return v, nil
}

// Stats counts rows seen by a normalizer.
type Stats struct {
	Rows    int
	Matched int
	Skipped int
	Coerced int
}

func (s Stats) String() string {
	return fmt.Sprintf("rows=%d matched=%d skipped=%d coerced=%d", s.Rows, s.Matched, s.Skipped, s.Coerced)
}
