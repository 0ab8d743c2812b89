// Package mcpserver exposes registered GCP operations as MCP tools.
// It wraps github.com/felixgeelhaar/mcp-go and routes every tool call
// through the dispatch envelope, so handlers always answer with a JSON
// body and never a protocol-level error.
package mcpserver

import (
	"context"
	"encoding/json"
	"time"

	mcpgo "github.com/felixgeelhaar/mcp-go"
	mcpserver "github.com/felixgeelhaar/mcp-go/server"
	"github.com/google/uuid"

	"github.com/enesbol/gcp-mcp/domain/envelope"
	"github.com/enesbol/gcp-mcp/domain/gcperr"
	"github.com/enesbol/gcp-mcp/domain/operation"
	"github.com/enesbol/gcp-mcp/infrastructure/logging"
)

// Host wraps an MCP server over an operation registry.
type Host struct {
	srv      *mcpgo.Server
	registry *operation.Registry
	defaults envelope.Defaults
	info     mcpgo.ServerInfo
}

// Config configures a Host.
type Config struct {
	// Name is the server name announced to clients.
	Name string

	// Version is the server version.
	Version string

	// Registry holds the service adapters to expose.
	Registry *operation.Registry

	// Defaults supplies project, region and timeout substitution.
	Defaults envelope.Defaults

	// Description is an optional server description.
	Description string

	// Instructions provides usage instructions for clients.
	Instructions string
}

// New creates an MCP server exposing every operation in the registry
// as a tool.
func New(cfg Config) *Host {
	info := mcpgo.ServerInfo{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Description: cfg.Description,
		Capabilities: mcpgo.Capabilities{
			Tools: true,
		},
	}

	var opts []mcpgo.Option
	if cfg.Instructions != "" {
		opts = append(opts, mcpgo.WithInstructions(cfg.Instructions))
	}

	h := &Host{
		srv:      mcpgo.NewServer(info, opts...),
		registry: cfg.Registry,
		defaults: cfg.Defaults,
		info:     info,
	}
	h.srv.Use(asServerMiddleware(mcpgo.Recover()), asServerMiddleware(mcpgo.RequestID()))

	if cfg.Registry != nil {
		h.registerOperations()
	}
	return h
}

// asServerMiddleware bridges mcpgo.Middleware to the server package's
// identically-shaped Middleware type, which the compiler treats as
// distinct.
func asServerMiddleware(m mcpgo.Middleware) mcpserver.Middleware {
	return func(next mcpserver.HandlerFunc) mcpserver.HandlerFunc {
		wrapped := m(mcpgo.MiddlewareHandlerFunc(next))
		return mcpserver.HandlerFunc(wrapped)
	}
}

// registerOperations walks the registry in deterministic order and
// registers one tool per operation.
func (h *Host) registerOperations() {
	h.registry.Walk(func(service string, op operation.Operation) {
		h.registerOperation(service, op)
	})
}

func (h *Host) registerOperation(service string, op operation.Operation) {
	handler := func(ctx context.Context, input json.RawMessage) (string, error) {
		return h.dispatch(ctx, service, op, input), nil
	}

	h.srv.Tool(op.Name).
		Description(op.Description).
		Handler(handler)
}

// dispatch runs one operation call: decode arguments, substitute
// defaults, bound the call with the effective timeout, and wrap the
// outcome in the uniform envelope. Failures are reported in-band; the
// returned string is always a well-formed envelope.
func (h *Host) dispatch(ctx context.Context, service string, op operation.Operation, input json.RawMessage) string {
	id := uuid.NewString()
	start := time.Now()

	params := envelope.Params{}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &params); err != nil {
			return h.fail(service, op.Name, id, start,
				gcperr.Wrap(gcperr.KindMissingParameter, "arguments must be a JSON object", err))
		}
	}

	resolved, err := envelope.ApplyDefaults(params, op.Fields, h.defaults)
	if err != nil {
		return h.fail(service, op.Name, id, start, err)
	}

	ctx, cancel := context.WithTimeout(ctx, resolved.Timeout(h.defaults))
	defer cancel()

	payload, err := op.Handler(ctx, resolved)
	if err != nil {
		return h.fail(service, op.Name, id, start, err)
	}

	logging.Info().
		Add(logging.ServiceName(service)).
		Add(logging.OperationName(op.Name)).
		Add(logging.InvocationID(id)).
		Add(logging.Duration(time.Since(start))).
		Msg("operation completed")
	return envelope.Success(payload)
}

func (h *Host) fail(service, opName, id string, start time.Time, err error) string {
	logging.Error().
		Add(logging.ServiceName(service)).
		Add(logging.OperationName(opName)).
		Add(logging.InvocationID(id)).
		Add(logging.ErrorKind(string(gcperr.KindOf(err)))).
		Add(logging.Duration(time.Since(start))).
		Add(logging.ErrorField(err)).
		Msg("operation failed")
	return envelope.Failure(err)
}

// Server returns the underlying mcp-go server.
func (h *Host) Server() *mcpgo.Server {
	return h.srv
}

// ServeStdio runs the server over stdin/stdout.
func (h *Host) ServeStdio(ctx context.Context, opts ...mcpgo.ServeOption) error {
	return mcpgo.ServeStdio(ctx, h.srv, opts...)
}

// ServeHTTP runs the server over HTTP with SSE.
func (h *Host) ServeHTTP(ctx context.Context, addr string, opts ...mcpgo.HTTPOption) error {
	return mcpgo.ServeHTTP(ctx, h.srv, addr, opts...)
}
