package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"promptstudio/aegis/pkg/audit"
	"promptstudio/aegis/pkg/safety"
	"promptstudio/aegis/pkg/safety/patterns"
)

// Checker runs safety checks. *service.Service implements it.
type Checker interface {
	Check(ctx context.Context, content string, overrides *safety.OptionOverrides, source audit.Source) *safety.CheckResult
	Sanitize(ctx context.Context, content string, overrides *safety.OptionOverrides, source audit.Source) (string, *safety.CheckResult)
}

// Route patterns served by Handler.
const (
	RouteCheck    = "POST /v1/safety/check"
	RouteSanitize = "POST /v1/safety/sanitize"
	RoutePatterns = "GET /v1/safety/patterns"
)

// Handler serves the safety endpoints.
type Handler struct {
	checker  Checker
	registry func() *patterns.Registry
	logger   *slog.Logger
}

// NewHandler creates a handler running checks with checker and listing
// the patterns returned by registry.
func NewHandler(checker Checker, registry func() *patterns.Registry) *Handler {
	return &Handler{
		checker:  checker,
		registry: registry,
		logger:   slog.Default().With("component", "api"),
	}
}

// Register adds the safety routes to mux. wrap, when not nil, decorates
// each handler with per-route middleware.
func (h *Handler) Register(mux *http.ServeMux, wrap func(route string, next http.Handler) http.Handler) {
	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{RouteCheck, h.Check},
		{RouteSanitize, h.Sanitize},
		{RoutePatterns, h.Patterns},
	}
	for _, rt := range routes {
		var next http.Handler = rt.handler
		if wrap != nil {
			next = wrap(rt.pattern, next)
		}
		mux.Handle(rt.pattern, next)
	}
}

// request is a decoded check or sanitize body.
type request struct {
	body      map[string]any
	overrides *safety.OptionOverrides
	located   *safety.Located
}

// decode reads and validates the request body, writing the error reply
// itself when it returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*request, bool) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, r, http.StatusRequestEntityTooLarge, ErrorTypeTooLarge, CodeBodyTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", mbe.Limit))
			return nil, false
		}
		writeError(w, r, http.StatusBadRequest, ErrorTypeInvalidRequest, CodeInvalidJSON, "failed to read request body")
		return nil, false
	}

	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil || body == nil {
		writeError(w, r, http.StatusBadRequest, ErrorTypeInvalidRequest, CodeInvalidJSON, "request body must be a JSON object")
		return nil, false
	}

	req := &request{body: body}

	if raw, ok := body["options"]; ok && raw != nil {
		var envelope struct {
			Options safety.OptionOverrides `json:"options"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			writeError(w, r, http.StatusBadRequest, ErrorTypeInvalidRequest, CodeInvalidOptions,
				fmt.Sprintf("invalid options: %v", err))
			return nil, false
		}
		req.overrides = &envelope.Options
	}

	loc, ok := safety.Locate(body)
	if !ok {
		writeError(w, r, http.StatusBadRequest, ErrorTypeInvalidRequest, CodeMissingContent,
			"request must contain content, prompt, text, message or system/process/task/output")
		return nil, false
	}
	req.located = loc
	return req, true
}

// expired answers 504 when the request deadline has passed.
func expired(w http.ResponseWriter, r *http.Request) bool {
	if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
		writeError(w, r, http.StatusGatewayTimeout, ErrorTypeTimeout, CodeTimeout, "request timed out")
		return true
	}
	return false
}

// Check handles POST /v1/safety/check.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	result := h.checker.Check(r.Context(), req.located.Text, req.overrides, audit.SourceAPI)
	if expired(w, r) {
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// SanitizeResponse is the reply of POST /v1/safety/sanitize.
type SanitizeResponse struct {
	// Body is the request body with the sanitized text written back where
	// it was found.
	Body map[string]any `json:"body"`

	SanitizedContent string `json:"sanitizedContent"`

	// Changed reports whether sanitizing altered the text.
	Changed bool `json:"changed"`

	Result *safety.CheckResult `json:"result"`
}

// Sanitize handles POST /v1/safety/sanitize.
func (h *Handler) Sanitize(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	sanitized, result := h.checker.Sanitize(r.Context(), req.located.Text, req.overrides, audit.SourceAPI)
	if expired(w, r) {
		return
	}

	changed := sanitized != req.located.Text
	if changed {
		safety.Reinject(req.body, req.located, sanitized)
	}
	delete(req.body, "options")

	writeJSON(w, r, http.StatusOK, SanitizeResponse{
		Body:             req.body,
		SanitizedContent: sanitized,
		Changed:          changed,
		Result:           result,
	})
}

// PatternInfo describes one active pattern.
type PatternInfo struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Severity    patterns.Severity `json:"severity"`
	Label       string            `json:"label,omitempty"`
	Description string            `json:"description,omitempty"`
}

// PatternsResponse is the reply of GET /v1/safety/patterns.
type PatternsResponse struct {
	Total    int                                 `json:"total"`
	LoadedAt time.Time                           `json:"loadedAt"`
	Sources  []string                            `json:"sources,omitempty"`
	Patterns map[patterns.Category][]PatternInfo `json:"patterns"`
}

// Patterns handles GET /v1/safety/patterns.
func (h *Handler) Patterns(w http.ResponseWriter, r *http.Request) {
	reg := h.registry()

	resp := PatternsResponse{
		Total:    reg.Len(),
		LoadedAt: reg.LoadedAt(),
		Sources:  reg.Sources(),
		Patterns: make(map[patterns.Category][]PatternInfo),
	}
	for _, s := range reg.Summaries() {
		resp.Patterns[s.Category] = append(resp.Patterns[s.Category], PatternInfo{
			ID:          s.ID,
			Name:        s.Name,
			Severity:    s.Severity,
			Label:       s.Label,
			Description: s.Description,
		})
	}
	writeJSON(w, r, http.StatusOK, resp)
}
