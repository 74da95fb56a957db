// Package http provides HTTP server and handler implementations.
//
// This file parses the dashboard query parameters shared by the full page,
// the HTMX partial, the chart pages and the JSON endpoint.

package http

import (
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"complaints/internal/analytics"
)

const (
	paramState = "state"
	paramFocus = "focus"

	// allStatesValue selects every state, same as omitting the parameter.
	allStatesValue = "all"

	maxStates     = 64
	maxParamValue = 64
)

// DashboardParams is the parsed state selection and focus state.
type DashboardParams struct {
	States []string
	Focus  string
}

// ParseDashboardParams reads the repeatable state parameter and the focus
// parameter. Values are trimmed and sanitized, duplicates dropped and the
// selection sorted so equal selections produce equal filters. "all" or an
// empty selection means every state.
func ParseDashboardParams(query url.Values) DashboardParams {
	var p DashboardParams
	seen := map[string]bool{}
values:
	for _, raw := range query[paramState] {
		// comma separated lists are accepted too
		for _, v := range strings.Split(raw, ",") {
			v = cleanParam(v)
			if v == "" || seen[v] {
				continue
			}
			if strings.EqualFold(v, allStatesValue) {
				return DashboardParams{Focus: cleanParam(query.Get(paramFocus))}
			}
			if len(p.States) >= maxStates {
				break values
			}
			seen[v] = true
			p.States = append(p.States, v)
		}
	}
	sort.Strings(p.States)
	p.Focus = cleanParam(query.Get(paramFocus))
	return p
}

// Filter converts the selection into an analytics filter.
func (p DashboardParams) Filter() analytics.Filter {
	if len(p.States) == 0 {
		return analytics.AllStates
	}
	return analytics.Filter{States: p.States}
}

// Query encodes the parameters for links to the partial and the chart pages.
func (p DashboardParams) Query() string {
	v := url.Values{}
	for _, s := range p.States {
		v.Add(paramState, s)
	}
	if p.Focus != "" {
		v.Set(paramFocus, p.Focus)
	}
	return v.Encode()
}

// Selected reports whether state is part of the selection. An empty
// selection selects every state.
func (p DashboardParams) Selected(state string) bool {
	if len(p.States) == 0 {
		return true
	}
	for _, s := range p.States {
		if s == state {
			return true
		}
	}
	return false
}

func cleanParam(v string) string {
	v = sanitizeInput(v)
	if len(v) > maxParamValue {
		// cut on a rune boundary
		n := maxParamValue
		for n > 0 && !utf8.RuneStart(v[n]) {
			n--
		}
		v = v[:n]
	}
	return strings.TrimSpace(v)
}
