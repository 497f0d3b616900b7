package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumn is wrapped by a ParseError when a required header is absent.
var ErrMissingColumn = errors.New("missing column")

// FetchError reports a failure to retrieve a dataset.
type FetchError struct {
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports malformed CSV, a missing column, or an unparseable cell.
type ParseError struct {
	Dataset string
	Line    int // zero when not tied to a line
	Column  string
	Err     error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse ")
	b.WriteString(e.Dataset)
	if e.Line > 0 {
		fmt.Fprintf(&b, ": line %d", e.Line)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ": column %s", e.Column)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// DataSufficiencyError reports a dataset too small to derive a view from,
// e.g. fewer than two reported dates for day-over-day deltas.
type DataSufficiencyError struct {
	Dataset string
	Dates   int
	Need    int
}

func (e *DataSufficiencyError) Error() string {
	return fmt.Sprintf("%s: need at least %d reported dates, have %d", e.Dataset, e.Need, e.Dates)
}
