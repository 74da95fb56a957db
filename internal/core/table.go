// Package core provides the complaint record model and the conversion of
// raw worksheet cells into a typed snapshot.
package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// headerAliases maps normalized worksheet headers to columns. Keys are
// produced by NormalizeHeader.
var headerAliases = map[string]Column{
	"state":                 ColState,
	"product":               ColProduct,
	"issue":                 ColIssue,
	"sub_issue":             ColSubIssue,
	"subissue":              ColSubIssue,
	"submitted_via":         ColSubmittedVia,
	"channel":               ColSubmittedVia,
	"company_response":      ColCompanyResponse,
	"timely":                ColTimely,
	"timely_response":       ColTimely,
	"month_year":            ColMonthYear,
	"complaint_id_count":    ColCount,
	"count_of_complaint_id": ColCount,
	"count":                 ColCount,

	// CFPB public export headers
	"company_response_to_consumer": ColCompanyResponse,
	"timely_response?":             ColTimely,
}

// NormalizeHeader lowercases h and folds runs of spaces, dashes and
// underscores into a single underscore.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	var b strings.Builder
	sep := false
	for _, r := range h {
		switch r {
		case ' ', '_', '-', '\t':
			sep = true
			continue
		}
		if sep && b.Len() > 0 {
			b.WriteByte('_')
		}
		sep = false
		b.WriteRune(r)
	}
	return b.String()
}

// ResolveColumn maps a worksheet header to a known column.
func ResolveColumn(header string) (Column, bool) {
	c, ok := headerAliases[NormalizeHeader(header)]
	return c, ok
}

// ParseCount converts a count cell into a non-negative integer. Integral
// floats ("3.0") and thousands separators ("1,204") are accepted.
func ParseCount(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, ErrInvalidCount
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, ErrNegativeCount
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, ErrInvalidCount
	}
	if f < 0 {
		return 0, ErrNegativeCount
	}
	return int64(f), nil
}

// NewSnapshot stamps records with a fresh ID and load time.
func NewSnapshot(source string, present map[Column]bool, records []Complaint) *Snapshot {
	if present == nil {
		present = map[Column]bool{}
	}
	return &Snapshot{
		ID:       uuid.NewString(),
		Source:   source,
		LoadedAt: time.Now().UTC(),
		Present:  present,
		Records:  records,
	}
}

// ParseTable builds a snapshot from a header row and data rows as read from
// a worksheet or CSV file. The state and count columns are mandatory; other
// known columns are optional and recorded in Snapshot.Present. Row failures
// are joined into one error; no partial snapshot is returned in that case.
func ParseTable(source string, header []string, rows [][]string) (*Snapshot, error) {
	index := map[Column]int{}
	present := map[Column]bool{}
	for i, h := range header {
		col, ok := ResolveColumn(h)
		if !ok {
			continue
		}
		if _, dup := index[col]; dup {
			continue
		}
		index[col] = i
		present[col] = true
	}

	var missing []Column
	for _, c := range []Column{ColState, ColCount} {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	get := func(row []string, col Column) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]Complaint, 0, len(rows))
	var errs []error
	for i, row := range rows {
		if blankRow(row) {
			continue
		}
		rowNum := i + 2 // header is row 1
		rec := Complaint{
			State:           get(row, ColState),
			Product:         get(row, ColProduct),
			Issue:           get(row, ColIssue),
			SubIssue:        get(row, ColSubIssue),
			SubmittedVia:    get(row, ColSubmittedVia),
			CompanyResponse: get(row, ColCompanyResponse),
			Timely:          get(row, ColTimely),
			MonthYear:       get(row, ColMonthYear),
		}
		if rec.State == "" {
			errs = append(errs, &RowError{Row: rowNum, Column: ColState, Err: ErrEmptyState})
			continue
		}
		raw := get(row, ColCount)
		n, err := ParseCount(raw)
		if err != nil {
			errs = append(errs, &RowError{Row: rowNum, Column: ColCount, Value: raw, Err: err})
			continue
		}
		rec.Count = n
		records = append(records, rec)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return NewSnapshot(source, present, records), nil
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
