package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"complaints/internal/core"
)

// SortOrder selects how summary buckets are ordered.
type SortOrder string

const (
	// SortByValue orders buckets by ascending value, ties by key.
	SortByValue SortOrder = "value"
	// SortByKey orders buckets by ascending key. Month labels are compared
	// chronologically when they parse as a calendar month.
	SortByKey SortOrder = "key"
)

// ParseSortOrder validates a sort order name. An empty name yields SortByValue.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return SortByValue, nil
	case SortByValue, SortByKey:
		return o, nil
	default:
		return "", fmt.Errorf("invalid sort order %q: must be value or key", s)
	}
}

// keyFuncs extracts the grouping value for each supported column.
var keyFuncs = map[core.Column]func(core.Complaint) string{
	core.ColState:           func(r core.Complaint) string { return r.State },
	core.ColProduct:         func(r core.Complaint) string { return r.Product },
	core.ColIssue:           func(r core.Complaint) string { return r.Issue },
	core.ColSubIssue:        func(r core.Complaint) string { return r.SubIssue },
	core.ColSubmittedVia:    func(r core.Complaint) string { return r.SubmittedVia },
	core.ColCompanyResponse: func(r core.Complaint) string { return r.CompanyResponse },
	core.ColTimely:          func(r core.Complaint) string { return r.Timely },
	core.ColMonthYear:       func(r core.Complaint) string { return r.MonthYear },
}

// GroupSum groups records by col and sums complaint_id_count per distinct
// value. Blank values are grouped under core.UnknownLabel.
func GroupSum(records []core.Complaint, col core.Column, order SortOrder) (core.Summary, error) {
	key, ok := keyFuncs[col]
	if !ok {
		return core.Summary{}, fmt.Errorf("cannot group by column %q", col)
	}
	sums := map[string]int64{}
	for _, r := range records {
		sums[core.OrUnknown(key(r))] += r.Count
	}
	buckets := make([]core.Bucket, 0, len(sums))
	for k, v := range sums {
		buckets = append(buckets, core.Bucket{Key: k, Value: v})
	}
	SortBuckets(buckets, order)
	return core.Summary{Column: col, Buckets: buckets}, nil
}

// SortBuckets orders buckets in place.
func SortBuckets(buckets []core.Bucket, order SortOrder) {
	switch order {
	case SortByKey:
		sort.SliceStable(buckets, func(i, j int) bool {
			return keyLess(buckets[i].Key, buckets[j].Key)
		})
	default:
		sort.SliceStable(buckets, func(i, j int) bool {
			if buckets[i].Value != buckets[j].Value {
				return buckets[i].Value < buckets[j].Value
			}
			return buckets[i].Key < buckets[j].Key
		})
	}
}

// monthLayouts are the month bucket labels seen in complaint exports.
var monthLayouts = []string{
	"Jan 2006", "January 2006", "Jan-2006", "Jan-06", "2006-01", "01/2006", "1/2006", "2006-01-02",
}

// ParseMonth interprets a month bucket label.
func ParseMonth(label string) (time.Time, bool) {
	label = strings.TrimSpace(label)
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, label); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// keyLess puts parseable months first in chronological order, then other
// keys lexically.
func keyLess(a, b string) bool {
	ta, oka := ParseMonth(a)
	tb, okb := ParseMonth(b)
	switch {
	case oka && okb:
		if !ta.Equal(tb) {
			return ta.Before(tb)
		}
		return a < b
	case oka:
		return true
	case okb:
		return false
	default:
		return a < b
	}
}
