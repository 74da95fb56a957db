package analytics

import (
	"strings"

	"complaints/internal/core"
)

const (
	// TimelyYes is the timely column value counted by the timely KPI.
	TimelyYes = "Yes"
	// InProgressStatus is the company_response value counted as in progress.
	InProgressStatus = "In progress"
)

// TotalCount sums complaint_id_count over records.
func TotalCount(records []core.Complaint) int64 {
	var n int64
	for _, r := range records {
		n += r.Count
	}
	return n
}

// CountWhere sums complaint_id_count over records satisfying pred.
func CountWhere(records []core.Complaint, pred func(core.Complaint) bool) int64 {
	var n int64
	for _, r := range records {
		if pred(r) {
			n += r.Count
		}
	}
	return n
}

// ClosedCount sums the count of records whose response matches m.
func ClosedCount(records []core.Complaint, m StatusMatcher) int64 {
	return CountWhere(records, func(r core.Complaint) bool { return m.Match(r.CompanyResponse) })
}

// InProgressCount sums the count of records still in progress.
func InProgressCount(records []core.Complaint) int64 {
	return CountWhere(records, func(r core.Complaint) bool {
		return strings.TrimSpace(r.CompanyResponse) == InProgressStatus
	})
}

// TimelyPercentage is the share of the total count answered on time. It is
// undefined for an empty record set.
func TimelyPercentage(records []core.Complaint) core.Percentage {
	yes := CountWhere(records, func(r core.Complaint) bool { return strings.TrimSpace(r.Timely) == TimelyYes })
	return core.NewPercentage(yes, TotalCount(records))
}

// ComputeKPIs reduces records to the four headline metrics.
func ComputeKPIs(records []core.Complaint, closed StatusMatcher) core.KPIs {
	return core.KPIs{
		Total:      TotalCount(records),
		Closed:     ClosedCount(records, closed),
		Timely:     TimelyPercentage(records),
		InProgress: InProgressCount(records),
	}
}
