package http

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"

	"complaints/internal/analytics"
	"complaints/internal/core"
	"complaints/internal/log"
)

// Views reported to metrics.
const (
	viewPage    = "page"
	viewPartial = "partial"
	viewChart   = "chart"
	viewAPI     = "api"
)

// loadDashboard reads the snapshot and computes the dashboard for the
// request's state selection.
func (s *Server) loadDashboard(r *http.Request, view string) (*analytics.Dashboard, DashboardParams, error) {
	ctx := r.Context()
	params := ParseDashboardParams(r.URL.Query())
	logger := log.FromContext(ctx).WithComponent(log.ComponentDashboard)

	if s.reader == nil {
		err := core.ErrConfiguration
		s.metrics.ObserveDashboard(view, nil, err)
		return nil, params, err
	}

	snap, err := s.reader.ReadSnapshot(ctx)
	if err == nil {
		var d *analytics.Dashboard
		d, err = s.engine.Build(snap, params.Filter(), params.Focus)
		if err == nil {
			s.metrics.ObserveDashboard(view, d, nil)
			for w, werr := range d.Errors {
				logger.Warn("Widget unavailable", log.FieldWidget, string(w), log.FieldError, werr)
			}
			logger.Debug("Dashboard computed", log.NewFields().
				WithSnapshot(d.SnapshotID, snap.Source, d.Records).
				WithFilter(params.States, params.Focus).
				WithOperation(log.OpAggregate).
				ToSlice()...)
			return d, params, nil
		}
	}

	s.metrics.ObserveDashboard(view, nil, err)
	logger.Error("Dashboard load failed", log.NewFields().
		WithOperation(log.OpLoad).
		WithError(err).
		WithErrorType(errorType(err)).
		WithFilter(params.States, params.Focus).
		ToSlice()...)
	return nil, params, err
}

// loadErrorStatus maps a load failure to the response status.
func loadErrorStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrNoData):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func errorType(err error) string {
	var schemaErr *core.SchemaError
	var rowErr *core.RowError
	switch {
	case errors.Is(err, core.ErrConfiguration):
		return log.ErrorTypeConfiguration
	case errors.As(err, &schemaErr):
		return log.ErrorTypeSchema
	case errors.As(err, &rowErr):
		return log.ErrorTypeData
	case errors.Is(err, context.DeadlineExceeded):
		return log.ErrorTypeTimeout
	default:
		return log.ErrorTypeUpstream
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		log.FromContext(r.Context()).Error("Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	d, params, err := s.loadDashboard(r, viewPage)
	if err != nil {
		s.render(w, r, loadErrorStatus(err), "index.html", dashboardView{
			Title: pageTitle,
			Query: params.Query(),
			Error: loadErrorMessage(err),
		})
		return
	}
	s.render(w, r, http.StatusOK, "index.html", newDashboardView(d, params, s.canRefresh()))
}

// handleDashboardPartial renders the dashboard body swapped in by htmx.
func (s *Server) handleDashboardPartial(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		InternalServerError("Templates not loaded").Write(w)
		return
	}
	d, params, err := s.loadDashboard(r, viewPartial)
	if err != nil {
		s.render(w, r, loadErrorStatus(err), "dashboard.html", dashboardView{
			Title: pageTitle,
			Query: params.Query(),
			Error: loadErrorMessage(err),
		})
		return
	}
	s.render(w, r, http.StatusOK, "dashboard.html", newDashboardView(d, params, s.canRefresh()))
}

// handleChart renders one chart as a standalone page for the dashboard's
// iframes. A failed widget renders its message in place of the chart.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	kind, ok := ParseChartKind(r.PathValue("kind"))
	if !ok {
		NotFoundError("Unknown chart").Write(w)
		return
	}
	d, _, err := s.loadDashboard(r, viewChart)
	if err != nil {
		ErrorResponse(loadErrorStatus(err), loadErrorMessage(err)).Write(w)
		return
	}
	if werr := d.Errors[kind.Widget()]; werr != nil {
		NewHTMXResponse().
			BodyHTML(`<div class="widget-error">` + template.HTMLEscapeString(kind.Title()+": "+widgetMessage(werr)) + `</div>`).
			Write(w)
		return
	}

	var buf bytes.Buffer
	if err := renderChart(&buf, kind, d); err != nil {
		log.FromContext(r.Context()).Error("Chart rendering failed",
			log.FieldComponent, log.ComponentCharts,
			log.FieldWidget, string(kind.Widget()),
			log.FieldError, err)
		InternalServerError("Chart could not be rendered").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleDashboardJSON(w http.ResponseWriter, r *http.Request) {
	d, _, err := s.loadDashboard(r, viewAPI)
	if err != nil {
		writeJSON(w, loadErrorStatus(err), map[string]string{
			"error":      loadErrorMessage(err),
			"error_type": errorType(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, newDashboardJSON(d))
}

// handleRefresh drops the cached snapshot and, when messaging is configured,
// asks the worker to re-import the worksheet.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentDashboard)

	inv, invalidates := s.reader.(Invalidator)
	if !invalidates && s.refresher == nil {
		s.metrics.ObserveRefresh("unavailable")
		s.refreshResponse(w, r, http.StatusServiceUnavailable, "Refresh is not available for this backend", "")
		return
	}
	if invalidates {
		inv.Invalidate()
	}

	if s.refresher == nil {
		s.metrics.ObserveRefresh("invalidated")
		logger.Info("Snapshot cache invalidated", log.FieldOperation, log.OpRefresh)
		s.refreshResponse(w, r, http.StatusOK, "Data reloaded", "")
		return
	}

	msg, err := s.refresher.PublishRefresh(ctx, "manual")
	if err != nil {
		s.metrics.ObserveRefresh("publish_failed")
		logger.Error("Failed to publish refresh request",
			log.FieldOperation, log.OpRefresh,
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeUpstream)
		s.refreshResponse(w, r, http.StatusBadGateway, "Refresh request could not be queued", "")
		return
	}
	s.metrics.ObserveRefresh("published")
	logger.Info("Refresh request published", log.FieldOperation, log.OpRefresh, "refresh_request_id", msg.RequestID)
	s.refreshResponse(w, r, http.StatusAccepted, "Refresh requested", msg.RequestID)
}

func (s *Server) refreshResponse(w http.ResponseWriter, r *http.Request, status int, message, requestID string) {
	if !isHTMX(r) {
		body := map[string]string{"status": http.StatusText(status), "message": message}
		if requestID != "" {
			body["request_id"] = requestID
		}
		writeJSON(w, status, body)
		return
	}

	var b *HTMXResponseBuilder
	switch status {
	case http.StatusBadGateway:
		b = BadGatewayError(message).TriggerErrorNotification(message)
	case http.StatusServiceUnavailable:
		b = ServiceUnavailableError(message).TriggerNotification(NotificationWarning, message, 4000)
	default:
		b = NewHTMXResponse().
			Status(status).
			TriggerSuccessNotification(message).
			TriggerDashboardRefresh().
			BodyHTML(`<span class="refresh-status">` + template.HTMLEscapeString(message) + `</span>`)
	}
	if requestID != "" {
		b.TriggerRefreshQueued(requestID)
	}
	b.Write(w)
}

func (s *Server) canRefresh() bool {
	if s.refresher != nil {
		return true
	}
	_, ok := s.reader.(Invalidator)
	return ok
}

// render executes a template into a buffer so a failure never leaves a
// half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data dashboardView) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).Error("Template execution failed",
			log.FieldComponent, log.ComponentTemplate,
			"template", name,
			log.FieldError, err)
		InternalServerError("Error rendering dashboard").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
