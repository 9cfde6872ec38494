// Package mcp exposes the packaging pipeline over the Model Context
// Protocol. Each public service operation becomes one MCP tool; the
// operr taxonomy maps onto tool error results so callers always see a
// message, a recovery suggestion and, for security violations, the
// matched threat descriptions.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gojsonschema "github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/macroforge/macroforge/operr"
	"github.com/macroforge/macroforge/schema"
	"github.com/macroforge/macroforge/service"
)

// Server wraps an MCP server publishing the plugin pipeline tools.
type Server struct {
	svc    *service.Service
	server *mcp.Server
	log    *logrus.Entry
}

// Option configures the server.
type Option func(*serverConfig)

type serverConfig struct {
	name    string
	version string
	log     *logrus.Entry
}

// WithImplementation overrides the advertised server name and version.
func WithImplementation(name, version string) Option {
	return func(c *serverConfig) {
		c.name = name
		c.version = version
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *logrus.Entry) Option {
	return func(c *serverConfig) { c.log = log }
}

// NewServer creates an MCP server exposing the given service's
// operations as tools.
func NewServer(svc *service.Service, opts ...Option) *Server {
	cfg := &serverConfig{
		name:    "macroforge",
		version: "0.1.0",
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Server{
		svc: svc,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.name,
			Version: cfg.version,
		}, nil),
		log: cfg.log.WithField("component", "mcp"),
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdio until the context is canceled or the
// client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("serving MCP over stdio")
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("running MCP server: %w", err)
	}
	return nil
}

// addTool registers one typed tool, generating its input schema from
// the input type's struct tags.
func addTool[In, Out any](s *Server, name, description string, handler func(context.Context, In) (Out, error)) {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema[In](),
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		out, err := handler(ctx, in)
		if err != nil {
			var zero Out
			return errorResult(err), zero, nil
		}
		return nil, out, nil
	})
}

// inputSchema bridges the invopop reflector onto the SDK's schema
// type via a JSON round-trip. The input types are static, so a
// generation failure is a programmer error: it panics at registration
// time rather than advertising a tool with no input contract.
func inputSchema[In any]() *gojsonschema.Schema {
	var zero In
	raw, err := schema.Generate[In]()
	if err != nil {
		panic(fmt.Sprintf("generating input schema for %T: %v", zero, err))
	}
	var out gojsonschema.Schema
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("decoding input schema for %T: %v", zero, err))
	}
	return &out
}

// errorResult renders a taxonomy error as a tool error result rather
// than a protocol failure, so the caller can act on it.
func errorResult(err error) *mcp.CallToolResult {
	var sb strings.Builder

	var tagged *operr.Error
	if errors.As(err, &tagged) {
		fmt.Fprintf(&sb, "[%s] %s", tagged.Kind, tagged.Message)
		if len(tagged.Threats) > 0 {
			sb.WriteString("\n\ndetected threats:")
			for _, threat := range tagged.Threats {
				sb.WriteString("\n  - " + threat)
			}
		}
		if tagged.Suggestion != "" {
			sb.WriteString("\n\nsuggestion: " + tagged.Suggestion)
		}
	} else {
		sb.WriteString(err.Error())
	}

	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: sb.String()}},
	}
}
