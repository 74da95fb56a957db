package analytics

import (
	"errors"
	"fmt"

	"complaints/internal/core"
)

// Widget names one independently failing part of the dashboard.
type Widget string

const (
	WidgetTotal      Widget = "total"
	WidgetClosed     Widget = "closed"
	WidgetTimely     Widget = "timely"
	WidgetInProgress Widget = "in_progress"
	WidgetProduct    Widget = "product"
	WidgetTimeline   Widget = "timeline"
	WidgetChannel    Widget = "channel"
	WidgetTree       Widget = "tree"
)

// ErrNoSnapshot is returned when Build is called without data.
var ErrNoSnapshot = errors.New("no snapshot")

// Options tune the metric definitions and chart ordering.
type Options struct {
	Closed        StatusMatcher
	ProductOrder  SortOrder
	TimelineOrder SortOrder
	ChannelOrder  SortOrder
}

// DefaultOptions counts any response starting with "Closed" as closed and
// sorts every summary by value.
func DefaultOptions() Options {
	return Options{
		Closed:        StatusMatcher{Marker: "Closed", Policy: MatchPrefix},
		ProductOrder:  SortByValue,
		TimelineOrder: SortByValue,
		ChannelOrder:  SortByValue,
	}
}

// Dashboard is everything one render pass shows.
type Dashboard struct {
	SnapshotID string
	Filter     Filter
	States     []string // distinct states of the full snapshot
	Focus      string
	Records    int

	KPIs      core.KPIs
	FocusKPIs core.KPIs

	ByProduct core.Summary
	ByMonth   core.Summary
	ByChannel core.Summary
	Tree      core.TreeNode

	// Errors holds per-widget failures; the remaining widgets are valid.
	Errors map[Widget]error
}

// Failed reports whether widget w could not be computed.
func (d *Dashboard) Failed(w Widget) bool {
	return d.Errors[w] != nil
}

// Engine computes dashboards from snapshots.
type Engine struct {
	opts Options
}

func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if opts.Closed.Marker == "" {
		opts.Closed = def.Closed
	}
	if opts.ProductOrder == "" {
		opts.ProductOrder = def.ProductOrder
	}
	if opts.TimelineOrder == "" {
		opts.TimelineOrder = def.TimelineOrder
	}
	if opts.ChannelOrder == "" {
		opts.ChannelOrder = def.ChannelOrder
	}
	return &Engine{opts: opts}
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// Build computes the dashboard for the records of snap selected by filter.
// focus, when not empty, selects the state for the secondary KPI row. A
// snapshot lacking state or complaint_id_count fails the whole build; any
// other missing column only fails the widgets that read it.
func (e *Engine) Build(snap *core.Snapshot, filter Filter, focus string) (*Dashboard, error) {
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	if err := snap.Require(core.ColState, core.ColCount); err != nil {
		return nil, fmt.Errorf("build dashboard: %w", err)
	}

	records := filter.Apply(snap)
	d := &Dashboard{
		SnapshotID: snap.ID,
		Filter:     filter,
		States:     snap.States(),
		Focus:      focus,
		Records:    len(records),
		Errors:     map[Widget]error{},
	}

	d.KPIs = e.kpis(snap, records, d.Errors)
	if focus != "" {
		d.FocusKPIs = e.kpis(snap, ForState(focus).Apply(snap), map[Widget]error{})
	}

	d.ByProduct = e.summary(snap, records, core.ColProduct, e.opts.ProductOrder, WidgetProduct, d.Errors)
	d.ByMonth = e.summary(snap, records, core.ColMonthYear, e.opts.TimelineOrder, WidgetTimeline, d.Errors)
	d.ByChannel = e.summary(snap, records, core.ColSubmittedVia, e.opts.ChannelOrder, WidgetChannel, d.Errors)

	if err := snap.Require(core.ColIssue, core.ColSubIssue); err != nil {
		d.Errors[WidgetTree] = err
	} else {
		d.Tree = BuildTree(records)
	}
	return d, nil
}

func (e *Engine) kpis(snap *core.Snapshot, records []core.Complaint, errs map[Widget]error) core.KPIs {
	k := core.KPIs{Total: TotalCount(records)}
	if err := snap.Require(core.ColCompanyResponse); err != nil {
		errs[WidgetClosed] = err
		errs[WidgetInProgress] = err
	} else {
		k.Closed = ClosedCount(records, e.opts.Closed)
		k.InProgress = InProgressCount(records)
	}
	if err := snap.Require(core.ColTimely); err != nil {
		errs[WidgetTimely] = err
	} else {
		k.Timely = TimelyPercentage(records)
	}
	return k
}

func (e *Engine) summary(snap *core.Snapshot, records []core.Complaint, col core.Column, order SortOrder, w Widget, errs map[Widget]error) core.Summary {
	if err := snap.Require(col); err != nil {
		errs[w] = err
		return core.Summary{Column: col}
	}
	s, err := GroupSum(records, col, order)
	if err != nil {
		errs[w] = err
	}
	return s
}
