package google

import (
	"fmt"
	"strings"

	"complaints/internal/core"
)

// parseValues converts a values matrix (as returned by Sheets API) into a
// snapshot. An empty sheet has no header and therefore fails the schema.
func parseValues(source string, values [][]interface{}) (*core.Snapshot, error) {
	if len(values) == 0 {
		return nil, &core.SchemaError{Missing: []core.Column{core.ColState, core.ColCount}}
	}
	header := toStrings(values[0])
	rows := make([][]string, 0, len(values)-1)
	for _, row := range values[1:] {
		rows = append(rows, toStrings(row))
	}
	return core.ParseTable(source, header, rows)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
