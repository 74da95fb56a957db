package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Column identifies one of the named fields of the complaints worksheet.
type Column string

const (
	ColState           Column = "state"
	ColProduct         Column = "product"
	ColIssue           Column = "issue"
	ColSubIssue        Column = "sub_issue"
	ColSubmittedVia    Column = "submitted_via"
	ColCompanyResponse Column = "company_response"
	ColTimely          Column = "timely"
	ColMonthYear       Column = "month_year"
	ColCount           Column = "complaint_id_count"
)

// Columns lists every column the dashboard reads, in worksheet order.
var Columns = []Column{
	ColState, ColProduct, ColIssue, ColSubIssue, ColSubmittedVia,
	ColCompanyResponse, ColTimely, ColMonthYear, ColCount,
}

// Placeholder labels used when a categorical value is blank.
const (
	UnknownLabel    = "(unknown)"
	NoSubIssueLabel = "(no sub-issue)"
)

type (
	// Complaint is one row of the complaints dataset.
	Complaint struct {
		State           string
		Product         string
		Issue           string
		SubIssue        string
		SubmittedVia    string
		CompanyResponse string
		Timely          string
		MonthYear       string
		Count           int64 // contribution of this row; 1 in raw exports
	}

	// Snapshot is the read-only table materialized at the start of one render pass.
	Snapshot struct {
		ID       string
		Source   string
		LoadedAt time.Time
		Present  map[Column]bool
		Records  []Complaint
	}
)

var (
	ErrConfiguration = errors.New("data source configuration error")
	ErrEmptyState    = errors.New("empty state")
	ErrNegativeCount = errors.New("negative complaint count")
	ErrInvalidCount  = errors.New("invalid complaint count")

	// ErrNoData is returned by a source that has nothing to serve yet.
	ErrNoData = errors.New("no complaints data loaded")
)

// SchemaError reports columns that are required but absent from the source.
type SchemaError struct {
	Missing []Column
}

func (e *SchemaError) Error() string {
	names := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		names[i] = string(c)
	}
	return "missing columns: " + strings.Join(names, ", ")
}

// RowError ties a parsing failure to its 1-based worksheet row.
type RowError struct {
	Row    int
	Column Column
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, column %s (%q): %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

func (c Complaint) Validate() error {
	if strings.TrimSpace(c.State) == "" {
		return ErrEmptyState
	}
	if c.Count < 0 {
		return ErrNegativeCount
	}
	return nil
}

// Has reports whether the source carried the given column.
func (s *Snapshot) Has(col Column) bool {
	if s == nil {
		return false
	}
	return s.Present[col]
}

// Require returns a SchemaError naming every column in cols the snapshot lacks.
func (s *Snapshot) Require(cols ...Column) error {
	var missing []Column
	for _, c := range cols {
		if !s.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// Len returns the number of records, tolerating a nil snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// States returns the distinct states in order of first appearance.
func (s *Snapshot) States() []string {
	if s == nil {
		return nil
	}
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, r := range s.Records {
		if _, ok := seen[r.State]; ok {
			continue
		}
		seen[r.State] = struct{}{}
		out = append(out, r.State)
	}
	return out
}

// OrUnknown returns v trimmed, or UnknownLabel when v is blank.
func OrUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return UnknownLabel
	}
	return v
}
