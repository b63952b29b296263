package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ftahirops/killa/model"
)

// ErrUnknownColumn is returned for a search token with an unrecognised
// column prefix.
var ErrUnknownColumn = errors.New("unknown search column")

// FilterColumn is the column a search token applies to.
type FilterColumn int

const (
	FilterAny FilterColumn = iota
	FilterName
	FilterPID
	FilterCommand
)

func (c FilterColumn) String() string {
	switch c {
	case FilterName:
		return "name"
	case FilterPID:
		return "pid"
	case FilterCommand:
		return "cmd"
	}
	return "any"
}

// ParseFilterColumn maps a column prefix to a FilterColumn, case-insensitively.
func ParseFilterColumn(s string) (FilterColumn, error) {
	switch strings.ToLower(s) {
	case "any", "*":
		return FilterAny, nil
	case "name":
		return FilterName, nil
	case "pid", "id":
		return FilterPID, nil
	case "cmd", "command":
		return FilterCommand, nil
	}
	return FilterAny, fmt.Errorf("%w %q", ErrUnknownColumn, s)
}

// SearchFilter is one parsed search token.
type SearchFilter struct {
	Negate bool
	Column FilterColumn
	Err    error // column parse failure; the token then never matches
	Phrase string

	pid    int
	pidSet bool // Phrase is the canonical decimal form of pid
}

// ParseSearchFilter parses a single whitespace-free token:
// an optional leading '-', an optional "column:" prefix and the phrase.
func ParseSearchFilter(token string) SearchFilter {
	var f SearchFilter
	if strings.HasPrefix(token, "-") {
		f.Negate = true
		token = token[1:]
	}
	if col, rest, ok := strings.Cut(token, ":"); ok {
		f.Column, f.Err = ParseFilterColumn(col)
		token = rest
	}
	f.Phrase = strings.ToLower(token)

	// Pid matching is exact string equality; "01" must not match pid 1.
	if n, err := strconv.Atoi(f.Phrase); err == nil && strconv.Itoa(n) == f.Phrase {
		f.pid, f.pidSet = n, true
	}
	return f
}

// Match reports whether r satisfies the token, negation included.
func (f *SearchFilter) Match(r *model.Row) bool {
	if f.Err != nil {
		return false
	}
	if f.Phrase == "" {
		return true
	}
	return f.matchColumn(r) != f.Negate
}

func (f *SearchFilter) matchColumn(r *model.Row) bool {
	switch f.Column {
	case FilterName:
		return strings.Contains(r.NameLower, f.Phrase)
	case FilterCommand:
		return strings.Contains(r.CommandLower, f.Phrase)
	case FilterPID:
		return f.pidSet && r.PID == f.pid
	default:
		return strings.Contains(r.NameLower, f.Phrase) ||
			strings.Contains(r.CommandLower, f.Phrase) ||
			(f.pidSet && r.PID == f.pid)
	}
}

// Query is a parsed search string: every token must match.
type Query []SearchFilter

// ParseQuery splits s on whitespace and parses each token. It never fails;
// bad tokens carry their error and match nothing.
func ParseQuery(s string) Query {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	q := make(Query, len(fields))
	for i, tok := range fields {
		q[i] = ParseSearchFilter(tok)
	}
	return q
}

// Match reports whether r satisfies every token.
func (q Query) Match(r *model.Row) bool {
	for i := range q {
		if !q[i].Match(r) {
			return false
		}
	}
	return true
}

// Empty reports whether the query cannot exclude any row.
func (q Query) Empty() bool {
	for i := range q {
		if q[i].Err != nil || q[i].Phrase != "" {
			return false
		}
	}
	return true
}

// Errors returns the syntax errors of all tokens, in order.
func (q Query) Errors() []error {
	var errs []error
	for i := range q {
		if q[i].Err != nil {
			errs = append(errs, q[i].Err)
		}
	}
	return errs
}

// Apply returns the rows matching q, preserving order. The input is not
// modified; an empty query returns rows itself.
func (q Query) Apply(rows []model.Row) []model.Row {
	if q.Empty() {
		return rows
	}
	out := make([]model.Row, 0, len(rows))
	for i := range rows {
		if q.Match(&rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out
}
