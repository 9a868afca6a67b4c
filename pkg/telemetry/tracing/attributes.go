package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set by the API and MCP layers. The engine's own spans use
// the safety.* keys.
const (
	AttrRequestID = "aegis.request_id"
	AttrSource    = "aegis.source"
	AttrTool      = "aegis.mcp.tool"

	AttrHTTPMethod = "http.request.method"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.response.status_code"
)

// ServerSpan marks a span as handling an inbound request.
func ServerSpan() trace.SpanStartOption {
	return trace.WithSpanKind(trace.SpanKindServer)
}

// SetRequestAttributes records the request ID and receiving surface.
func SetRequestAttributes(span trace.Span, requestID, source string) {
	attrs := make([]attribute.KeyValue, 0, 2)
	if requestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, requestID))
	}
	if source != "" {
		attrs = append(attrs, attribute.String(AttrSource, source))
	}
	span.SetAttributes(attrs...)
}

// SetHTTPAttributes records the method, route and status of a request.
// 5xx responses mark the span failed.
func SetHTTPAttributes(span trace.Span, method, route string, status int) {
	span.SetAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
		attribute.Int(AttrHTTPStatus, status),
	)
	if status >= 500 {
		span.SetStatus(codes.Error, "server error")
	}
}
