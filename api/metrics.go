package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName       = "taskflow-api"
	tasksSpanName    = "tasks.list"
	tasksEventName   = "tasks.request"
	tasksEventDomain = "taskflow"
)

// taskRequestMetrics accumulates per-stage timings for a list request and
// emits one span plus one structured observability event when the request
// finishes.
type taskRequestMetrics struct {
	logger *log.Logger
	span   trace.Span
	start  time.Time

	authDuration   time.Duration
	fetchDuration  time.Duration
	filterDuration time.Duration
	encodeDuration time.Duration
	filtered       bool
	tasksReturned  int
	errorStage     string
}

func newTaskRequestMetrics(ctx context.Context, logger *log.Logger) (*taskRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, tasksSpanName)
	m := &taskRequestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
	}
	return m, spanCtx
}

func (m *taskRequestMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *taskRequestMetrics) ObserveFetch(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.fetchDuration = duration
}

func (m *taskRequestMetrics) ObserveFilter(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.filterDuration = duration
}

func (m *taskRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *taskRequestMetrics) SetFiltered(filtered bool) {
	m.filtered = filtered
}

func (m *taskRequestMetrics) SetTasksReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.tasksReturned = count
}

func (m *taskRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func severityForStatus(status int, err error) (string, int) {
	if err != nil || status >= http.StatusInternalServerError {
		return "ERROR", 17
	}
	if status >= http.StatusBadRequest {
		return "WARN", 13
	}
	return "INFO", 9
}

func (m *taskRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("http.route", "/api/tasks"),
		attribute.Int("http.status_code", status),
		attribute.Float64("taskflow.tasks.total_ms", durationToMillis(time.Since(m.start))),
		attribute.Bool("taskflow.tasks.filtered", m.filtered),
		attribute.Int("taskflow.tasks.tasks_returned", m.tasksReturned),
	}
	if m.authDuration > 0 {
		attrs = append(attrs, attribute.Float64("taskflow.tasks.auth_ms", durationToMillis(m.authDuration)))
	}
	if m.fetchDuration > 0 {
		attrs = append(attrs, attribute.Float64("taskflow.tasks.fetch_ms", durationToMillis(m.fetchDuration)))
	}
	if m.filterDuration > 0 {
		attrs = append(attrs, attribute.Float64("taskflow.tasks.filter_ms", durationToMillis(m.filterDuration)))
	}
	if m.encodeDuration > 0 {
		attrs = append(attrs, attribute.Float64("taskflow.tasks.encode_ms", durationToMillis(m.encodeDuration)))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("taskflow.tasks.error_stage", m.errorStage))
	}

	severityText, severityNumber := severityForStatus(status, err)
	eventAttrs := append([]attribute.KeyValue{
		attribute.String("event.name", tasksEventName),
		attribute.String("event.domain", tasksEventDomain),
		attribute.String("severity_text", severityText),
		attribute.Int("severity_number", severityNumber),
	}, attrs...)
	if err != nil {
		eventAttrs = append(eventAttrs, attribute.String("error.message", err.Error()))
	}

	if m.span != nil {
		m.span.SetAttributes(attrs...)
		m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))
		if err != nil || status >= http.StatusInternalServerError {
			desc := http.StatusText(status)
			if err != nil {
				desc = err.Error()
			}
			m.span.SetStatus(codes.Error, desc)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"event.name":      tasksEventName,
		"event.domain":    tasksEventDomain,
		"attributes":      attributesToFields(eventAttrs),
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	entry := m.logger.WithFields(fields)
	switch severityText {
	case "ERROR":
		entry.Error("observability.event")
	case "WARN":
		entry.Warn("observability.event")
	default:
		entry.Info("observability.event")
	}
}

func attributesToFields(attrs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
