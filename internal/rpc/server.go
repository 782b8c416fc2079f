package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/gutenextract/internal/config"
	"github.com/hyperifyio/gutenextract/internal/stats"
	"github.com/hyperifyio/gutenextract/internal/tools"
)

// ProtocolVersion is the MCP protocol revision announced by initialize.
const ProtocolVersion = "2024-11-05"

// ServerInfo identifies the server in the initialize result.
type ServerInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// DefaultServerInfo is announced unless overridden with WithServerInfo.
var DefaultServerInfo = ServerInfo{
	Name:        "gutenberg-extractor",
	Version:     "2.0.0",
	Description: "Extracts embedded data URI resources from Gutenberg templates into asset files",
}

// Server dispatches JSON-RPC requests to a tool registry. It is safe for
// concurrent use.
type Server struct {
	tools   *tools.Registry
	log     zerolog.Logger
	info    ServerInfo
	metrics *Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithServerInfo overrides the identity announced by initialize.
func WithServerInfo(info ServerInfo) Option {
	return func(s *Server) { s.info = info }
}

// WithMetrics records request metrics on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer returns a Server exposing reg.
func NewServer(reg *tools.Registry, log zerolog.Logger, opts ...Option) *Server {
	s := &Server{tools: reg, log: log, info: DefaultServerInfo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleMessage decodes one raw message and dispatches it. It returns nil
// when no response is due.
func (s *Server) HandleMessage(ctx context.Context, raw []byte) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		s.log.Debug().Err(err).Msg("rpc parse error")
		s.metrics.observeRequest("", "parse_error", 0)
		return newError(nil, ParseError, "Parse error")
	}
	return s.Handle(ctx, &req)
}

// Handle dispatches a decoded request. Notifications are executed and
// return nil.
func (s *Server) Handle(ctx context.Context, req *Request) *Response {
	start := time.Now()
	resp := s.dispatch(ctx, req)

	outcome := "ok"
	if resp != nil && resp.Error != nil {
		outcome = "error"
	}
	s.metrics.observeRequest(s.methodLabel(req.Method), outcome, time.Since(start))
	ev := s.log.Debug().Str("method", req.Method).Dur("elapsed", time.Since(start))
	if resp != nil && resp.Error != nil {
		ev = ev.Int("code", resp.Error.Code).Str("error", resp.Error.Message)
	}
	ev.Msg("rpc request")

	if req.IsNotification() {
		return nil
	}
	return resp
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	id := req.ID
	if req.JSONRPC != Version || req.Method == "" {
		return newError(id, InvalidRequest, "Invalid Request")
	}
	switch req.Method {
	case "initialize":
		return newResult(id, map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      s.info,
		})
	case "notifications/initialized":
		return nil
	case "ping":
		return newResult(id, map[string]any{})
	case "tools/list":
		return newResult(id, map[string]any{"tools": s.tools.Specs()})
	case "tools/call":
		var p struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &p); err != nil {
				return newError(id, InvalidParams, "Invalid params: "+err.Error())
			}
		}
		if strings.TrimSpace(p.Name) == "" {
			return newError(id, InvalidParams, "Tool name is required")
		}
		return s.callTool(ctx, id, p.Name, p.Arguments)
	}
	if _, ok := s.tools.Get(req.Method); ok {
		return s.callTool(ctx, id, req.Method, req.Params)
	}
	return newError(id, MethodNotFound, "Method not found: "+req.Method)
}

func (s *Server) callTool(ctx context.Context, id json.RawMessage, name string, args json.RawMessage) *Response {
	out, err := s.tools.Call(ctx, name, args)
	switch {
	case err == nil:
		s.metrics.observeTool(name, "ok")
		return newResult(id, json.RawMessage(out))
	case errors.Is(err, tools.ErrUnknownTool):
		s.metrics.observeTool("unknown", "not_found")
		return newError(id, MethodNotFound, "Tool not found: "+name)
	case errors.Is(err, tools.ErrInvalidArguments):
		s.metrics.observeTool(name, "invalid_params")
		return newError(id, InvalidParams, err.Error())
	default:
		s.metrics.observeTool(name, "error")
		s.log.Error().Err(err).Str("tool", name).Msg("tool call failed")
		return newError(id, InternalError, "Internal error: "+err.Error())
	}
}

// methodLabel bounds metric cardinality to known methods.
func (s *Server) methodLabel(method string) string {
	switch method {
	case "initialize", "notifications/initialized", "ping", "tools/list", "tools/call":
		return method
	}
	if _, ok := s.tools.Get(method); ok {
		return method
	}
	return "unknown"
}

// NewFromConfig builds a Server with the builtin tools, a statistics cache,
// and request metrics.
func NewFromConfig(cfg config.Config, log zerolog.Logger) (*Server, error) {
	reg, err := tools.NewDefaultRegistry(tools.Deps{
		Config: cfg,
		Logger: log,
		Stats:  stats.NewService(0),
	})
	if err != nil {
		return nil, err
	}
	return NewServer(reg, log, WithMetrics(NewMetrics())), nil
}
