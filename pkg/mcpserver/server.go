package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"promptstudio/aegis/pkg/api/middleware"
	"promptstudio/aegis/pkg/audit"
	"promptstudio/aegis/pkg/config"
	"promptstudio/aegis/pkg/safety"
	"promptstudio/aegis/pkg/service"
	"promptstudio/aegis/pkg/telemetry/logging"
	"promptstudio/aegis/pkg/telemetry/tracing"
)

// Tool names.
const (
	ToolSafetyCheck  = "safety_check"
	ToolSanitize     = "sanitize"
	ToolListPatterns = "list_patterns"
)

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// CheckInput is the argument object of safety_check and sanitize.
type CheckInput struct {
	Content string                  `json:"content" jsonschema:"the text to analyze"`
	Options *safety.OptionOverrides `json:"options,omitempty" jsonschema:"per-call overrides of the enabled checks"`
}

// SanitizeOutput is the JSON text returned by the sanitize tool.
type SanitizeOutput struct {
	SanitizedContent string              `json:"sanitizedContent"`
	Changed          bool                `json:"changed"`
	Result           *safety.CheckResult `json:"result"`
}

// ListPatternsInput is the argument object of list_patterns.
type ListPatternsInput struct {
	Category string `json:"category,omitempty" jsonschema:"only list this category"`
}

// Server serves the safety tools over MCP.
type Server struct {
	MCP     *mcp.Server
	service *service.Service
	cfg     config.MCPConfig
	logger  *slog.Logger
}

// New creates an MCP server backed by svc with every tool registered.
func New(svc *service.Service) *Server {
	logger := slog.Default().With("component", "mcpserver")
	s := &Server{
		MCP: mcp.NewServer(
			&mcp.Implementation{
				Name:    "aegis",
				Version: svc.Telemetry.Version.Version,
			},
			&mcp.ServerOptions{Logger: logger},
		),
		service: svc,
		cfg:     svc.Config.MCP,
		logger:  logger,
	}

	mcp.AddTool(s.MCP, &mcp.Tool{
		Name:        ToolSafetyCheck,
		Description: "Check text for toxicity, PII, prompt injection, bias and security issues. Returns the score, issues and whether the text is blocked.",
	}, s.safetyCheck)

	mcp.AddTool(s.MCP, &mcp.Tool{
		Name:        ToolSanitize,
		Description: "Redact PII and secrets and neutralize unsafe content. Returns the sanitized text and the check result.",
	}, s.sanitize)

	mcp.AddTool(s.MCP, &mcp.Tool{
		Name:        ToolListPatterns,
		Description: "List the active detection patterns by category.",
	}, s.listPatterns)

	return s
}

// Run serves on the configured transport until ctx is cancelled or the
// transport closes.
func (s *Server) Run(ctx context.Context) error {
	switch s.cfg.Transport {
	case TransportStdio, "":
		s.logger.Info("starting stdio transport")
		return s.MCP.Run(ctx, &mcp.StdioTransport{})
	case TransportHTTP:
		return s.runHTTP(ctx)
	default:
		return fmt.Errorf("unsupported MCP transport: %s", s.cfg.Transport)
	}
}

// Handler returns the streamable HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return s.MCP },
		&mcp.StreamableHTTPOptions{Logger: s.logger},
	)
}

func (s *Server) runHTTP(ctx context.Context) error {
	handler := s.Handler()
	if auth := s.service.Config.Server.Auth; auth.Enabled {
		handler = middleware.APIKeyAuth(middleware.NewKeySet(auth), s.service.Telemetry.Metrics)(handler)
	}
	mux := http.NewServeMux()
	mux.Handle(s.cfg.HTTPPath, handler)

	ln, err := net.Listen("tcp", s.cfg.HTTPAddress)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.HTTPAddress, err)
	}
	s.logger.Info("starting HTTP transport", "addr", ln.Addr().String(), "path", s.cfg.HTTPPath)

	srv := &http.Server{
		Handler:           tracing.Middleware(s.service.Telemetry.Tracer, mux),
		ReadHeaderTimeout: s.service.Config.Server.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP transport")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.service.Config.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// begin starts the tool span and tags ctx with a fresh request ID.
func (s *Server) begin(ctx context.Context, tool string) (context.Context, trace.Span) {
	requestID := uuid.New().String()
	ctx = logging.WithRequestID(ctx, requestID)
	ctx, span := s.service.Telemetry.Tracer.Start(ctx, "mcp.tool "+tool,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String(tracing.AttrTool, tool)),
	)
	tracing.SetRequestAttributes(span, requestID, string(audit.SourceMCP))
	return ctx, span
}

func (s *Server) safetyCheck(ctx context.Context, _ *mcp.CallToolRequest, in CheckInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, nil, errors.New("content is required")
	}
	ctx, span := s.begin(ctx, ToolSafetyCheck)
	defer span.End()

	result := s.service.Check(ctx, in.Content, in.Options, audit.SourceMCP)
	if result.Blocked {
		span.SetStatus(codes.Error, "content blocked")
	}
	return textResult(result)
}

func (s *Server) sanitize(ctx context.Context, _ *mcp.CallToolRequest, in CheckInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, nil, errors.New("content is required")
	}
	ctx, span := s.begin(ctx, ToolSanitize)
	defer span.End()

	sanitized, result := s.service.Sanitize(ctx, in.Content, in.Options, audit.SourceMCP)
	return textResult(SanitizeOutput{
		SanitizedContent: sanitized,
		Changed:          sanitized != in.Content,
		Result:           result,
	})
}

func (s *Server) listPatterns(ctx context.Context, _ *mcp.CallToolRequest, in ListPatternsInput) (*mcp.CallToolResult, any, error) {
	_, span := s.begin(ctx, ToolListPatterns)
	defer span.End()

	byCategory := map[string][]string{}
	for _, sum := range s.service.Engine.Registry().Summaries() {
		c := string(sum.Category)
		if in.Category != "" && c != in.Category {
			continue
		}
		byCategory[c] = append(byCategory[c], sum.ID)
	}
	if in.Category != "" && len(byCategory) == 0 {
		return nil, nil, fmt.Errorf("no patterns in category %q", in.Category)
	}
	return textResult(byCategory)
}

// textResult returns v as indented JSON text content.
func textResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
