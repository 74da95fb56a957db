package http

import (
	"complaints/internal/analytics"
	"complaints/internal/core"
)

const pageTitle = "Consumer Financial Complaints Dashboard"

// Tile is one KPI box. Error replaces Value when the metric failed.
type Tile struct {
	Label string
	Value string
	Error string
}

// StateOption is one entry of the state selectors.
type StateOption struct {
	Name     string
	Selected bool
	Focus    bool
}

// ChartFrame points at a standalone chart page.
type ChartFrame struct {
	Kind  ChartKind
	Title string
	URL   string
	Error string
}

// dashboardView is the template data for index.html and dashboard.html.
type dashboardView struct {
	Title      string
	SnapshotID string
	Query      string
	Records    string
	AllStates  bool
	Focus      string
	States     []StateOption
	Tiles      []Tile
	FocusTiles []Tile
	Charts     []ChartFrame
	CanRefresh bool
	Error      string
}

func newDashboardView(d *analytics.Dashboard, p DashboardParams, canRefresh bool) dashboardView {
	v := dashboardView{
		Title:      pageTitle,
		SnapshotID: d.SnapshotID,
		Query:      p.Query(),
		Records:    formatCount(int64(d.Records)),
		AllStates:  len(p.States) == 0,
		Focus:      p.Focus,
		CanRefresh: canRefresh,
	}
	for _, s := range d.States {
		v.States = append(v.States, StateOption{Name: s, Selected: p.Selected(s), Focus: s == p.Focus})
	}
	v.Tiles = kpiTiles(d.KPIs, d.Errors)
	if p.Focus != "" {
		v.FocusTiles = kpiTiles(d.FocusKPIs, d.Errors)
	}
	for _, k := range ChartKinds {
		frame := ChartFrame{Kind: k, Title: k.Title(), URL: "/charts/" + string(k)}
		if v.Query != "" {
			frame.URL += "?" + v.Query
		}
		if err := d.Errors[k.Widget()]; err != nil {
			frame.Error = widgetMessage(err)
		}
		v.Charts = append(v.Charts, frame)
	}
	return v
}

func kpiTiles(k core.KPIs, errs map[analytics.Widget]error) []Tile {
	tiles := []Tile{
		{Label: "Total # of Complaints", Value: formatCount(k.Total)},
		{Label: "Status: Closed", Value: formatCount(k.Closed)},
		{Label: "% of Timely Responded", Value: k.Timely.String()},
		{Label: "Status: In Progress", Value: formatCount(k.InProgress)},
	}
	widgets := []analytics.Widget{
		analytics.WidgetTotal, analytics.WidgetClosed, analytics.WidgetTimely, analytics.WidgetInProgress,
	}
	for i, w := range widgets {
		if err := errs[w]; err != nil {
			tiles[i].Value = ""
			tiles[i].Error = widgetMessage(err)
		}
	}
	return tiles
}

// kpisJSON keeps the timely percentage as text so "N/A" survives encoding.
type kpisJSON struct {
	Total      int64           `json:"total"`
	Closed     int64           `json:"closed"`
	Timely     core.Percentage `json:"timely_pct"`
	InProgress int64           `json:"in_progress"`
}

type filterJSON struct {
	States []string `json:"states"`
	Focus  string   `json:"focus,omitempty"`
}

// dashboardJSON is the body of GET /api/dashboard.
type dashboardJSON struct {
	SnapshotID string            `json:"snapshot_id"`
	Filter     filterJSON        `json:"filter"`
	States     []string          `json:"states"`
	Records    int               `json:"records"`
	KPIs       kpisJSON          `json:"kpis"`
	FocusKPIs  *kpisJSON         `json:"focus_kpis,omitempty"`
	ByProduct  core.Summary      `json:"by_product"`
	ByMonth    core.Summary      `json:"by_month"`
	ByChannel  core.Summary      `json:"by_channel"`
	Tree       core.TreeNode     `json:"tree"`
	Errors     map[string]string `json:"errors,omitempty"`
}

func newDashboardJSON(d *analytics.Dashboard) dashboardJSON {
	out := dashboardJSON{
		SnapshotID: d.SnapshotID,
		Filter:     filterJSON{States: d.Filter.States, Focus: d.Focus},
		States:     d.States,
		Records:    d.Records,
		KPIs:       toKPIsJSON(d.KPIs),
		ByProduct:  d.ByProduct,
		ByMonth:    d.ByMonth,
		ByChannel:  d.ByChannel,
		Tree:       d.Tree,
	}
	if out.Filter.States == nil {
		out.Filter.States = []string{}
	}
	if d.Focus != "" {
		k := toKPIsJSON(d.FocusKPIs)
		out.FocusKPIs = &k
	}
	for w, err := range d.Errors {
		if err == nil {
			continue
		}
		if out.Errors == nil {
			out.Errors = map[string]string{}
		}
		out.Errors[string(w)] = err.Error()
	}
	return out
}

func toKPIsJSON(k core.KPIs) kpisJSON {
	return kpisJSON{Total: k.Total, Closed: k.Closed, Timely: k.Timely, InProgress: k.InProgress}
}
