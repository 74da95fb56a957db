package http

import (
	"errors"
	"strconv"
	"strings"

	"complaints/internal/analytics"
	"complaints/internal/core"
)

// formatCount renders a count with thousands separators (e.g. "12,345").
func formatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// widgetMessage is the short text shown in place of a failed widget.
func widgetMessage(err error) string {
	if cols := missingColumns(err); cols != "" {
		return "Missing column: " + cols
	}
	return "Unavailable"
}

func missingColumns(err error) string {
	var schemaErr *core.SchemaError
	if !errors.As(err, &schemaErr) {
		return ""
	}
	cols := make([]string, len(schemaErr.Missing))
	for i, c := range schemaErr.Missing {
		cols[i] = string(c)
	}
	return strings.Join(cols, ", ")
}

// loadErrorMessage describes a failure that prevents the whole page.
func loadErrorMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrConfiguration):
		return "The data source is not configured correctly or rejected the credentials."
	case missingColumns(err) != "":
		return "The worksheet is missing required columns: " + missingColumns(err) + "."
	case errors.Is(err, core.ErrNoData), errors.Is(err, analytics.ErrNoSnapshot):
		return "No data has been loaded yet."
	default:
		return "The complaints data could not be loaded."
	}
}
