package http

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"complaints/internal/analytics"
	"complaints/internal/core"
)

// ChartKind names one of the four chart pages.
type ChartKind string

const (
	ChartProduct  ChartKind = "product"
	ChartTimeline ChartKind = "timeline"
	ChartChannel  ChartKind = "channel"
	ChartTree     ChartKind = "tree"
)

// ChartKinds lists the charts in dashboard order.
var ChartKinds = []ChartKind{ChartProduct, ChartTimeline, ChartChannel, ChartTree}

const seriesName = "Count of complaint_id"

var (
	productColor  = "#200d80"
	timelineColor = "#942390"
	channelColors = opts.Colors{"#EC6B56", "#FFC154", "#47B39C", "#FFF1C9", "#F7B7A3"}
)

// ParseChartKind validates a chart path segment.
func ParseChartKind(s string) (ChartKind, bool) {
	for _, k := range ChartKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Widget is the dashboard widget the chart displays.
func (k ChartKind) Widget() analytics.Widget {
	switch k {
	case ChartProduct:
		return analytics.WidgetProduct
	case ChartTimeline:
		return analytics.WidgetTimeline
	case ChartChannel:
		return analytics.WidgetChannel
	default:
		return analytics.WidgetTree
	}
}

// Title is the heading shown above the chart.
func (k ChartKind) Title() string {
	switch k {
	case ChartProduct:
		return "Complaints by Product"
	case ChartTimeline:
		return "Complaints over Time"
	case ChartChannel:
		return "Complaints by Channel"
	default:
		return "Complaints by State, Issue and Sub-issue"
	}
}

// chartRenderer is implemented by every go-echarts chart type.
type chartRenderer interface {
	Render(w io.Writer) error
}

// renderChart writes a standalone HTML page for kind computed from d.
func renderChart(w io.Writer, kind ChartKind, d *analytics.Dashboard) error {
	var c chartRenderer
	switch kind {
	case ChartProduct:
		c = productChart(d.ByProduct)
	case ChartTimeline:
		c = timelineChart(d.ByMonth)
	case ChartChannel:
		c = channelChart(d.ByChannel)
	case ChartTree:
		c = treeChart(d.Tree)
	default:
		return fmt.Errorf("unknown chart %q", kind)
	}
	return c.Render(w)
}

func initOpts(kind ChartKind) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle: kind.Title(),
		Theme:     types.ThemeChalk,
		Width:     "100%",
		Height:    "380px",
	})
}

func titleOpts(kind ChartKind) charts.GlobalOpts {
	return charts.WithTitleOpts(opts.Title{Title: kind.Title()})
}

func productChart(s core.Summary) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(ChartProduct),
		titleOpts(ChartProduct),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithColorsOpts(opts.Colors{productColor}),
	)
	data := make([]opts.BarData, len(s.Buckets))
	for i, b := range s.Buckets {
		data[i] = opts.BarData{Name: b.Key, Value: b.Value}
	}
	bar.SetXAxis(s.Keys()).AddSeries(seriesName, data)
	return bar
}

func timelineChart(s core.Summary) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts(ChartTimeline),
		titleOpts(ChartTimeline),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithColorsOpts(opts.Colors{timelineColor}),
	)
	data := make([]opts.LineData, len(s.Buckets))
	for i, b := range s.Buckets {
		data[i] = opts.LineData{Name: b.Key, Value: b.Value}
	}
	line.SetXAxis(s.Keys()).AddSeries(seriesName, data)
	return line
}

func channelChart(s core.Summary) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		initOpts(ChartChannel),
		titleOpts(ChartChannel),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "item"}),
		charts.WithColorsOpts(channelColors),
	)
	data := make([]opts.PieData, len(s.Buckets))
	for i, b := range s.Buckets {
		data[i] = opts.PieData{Name: b.Key, Value: b.Value}
	}
	pie.AddSeries(seriesName, data)
	return pie
}

func treeChart(root core.TreeNode) *charts.TreeMap {
	tm := charts.NewTreeMap()
	tm.SetGlobalOptions(
		initOpts(ChartTree),
		titleOpts(ChartTree),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "item"}),
	)
	tm.AddSeries(seriesName, treeMapNodes(root.Children))
	return tm
}

func treeMapNodes(nodes []core.TreeNode) []opts.TreeMapNode {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]opts.TreeMapNode, len(nodes))
	for i, n := range nodes {
		out[i] = opts.TreeMapNode{
			Name:     n.Name,
			Value:    int(n.Value),
			Children: treeMapNodes(n.Children),
		}
	}
	return out
}
