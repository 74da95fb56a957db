// Package analytics derives the dashboard KPIs, grouped summaries and the
// hierarchical breakdown from a complaints snapshot. Every function is pure:
// it reads the snapshot it is given and never mutates it.
package analytics

import (
	"strings"

	"complaints/internal/core"
)

// Filter restricts the records an aggregate sees. An empty filter selects
// every record.
type Filter struct {
	States []string
}

// AllStates is the filter that selects every record.
var AllStates = Filter{}

// ForState returns a filter selecting a single state.
func ForState(state string) Filter {
	state = strings.TrimSpace(state)
	if state == "" {
		return AllStates
	}
	return Filter{States: []string{state}}
}

// IsAll reports whether the filter selects everything.
func (f Filter) IsAll() bool {
	return len(f.States) == 0
}

// Apply returns the records selected by the filter. The snapshot's slice is
// returned as-is when the filter selects everything.
func (f Filter) Apply(snap *core.Snapshot) []core.Complaint {
	if snap == nil {
		return nil
	}
	if f.IsAll() {
		return snap.Records
	}
	want := make(map[string]struct{}, len(f.States))
	for _, s := range f.States {
		want[strings.TrimSpace(s)] = struct{}{}
	}
	out := make([]core.Complaint, 0, len(snap.Records))
	for _, r := range snap.Records {
		if _, ok := want[r.State]; ok {
			out = append(out, r)
		}
	}
	return out
}
