// Package mcp exposes the gateway to agents as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/a2agate/internal/domain/card"
	"github.com/Strob0t/a2agate/internal/domain/envelope"
	"github.com/Strob0t/a2agate/internal/domain/environment"
)

// TaskRouter routes one task call.
type TaskRouter interface {
	Route(ctx context.Context, call envelope.TaskCall) envelope.TaskResult
}

// CardReader reads the agent card registry.
type CardReader interface {
	ResolveDocument(env, role string) ([]byte, error)
	List(env string) []card.AgentCard
}

// FlagReader reads the live-routing table.
type FlagReader interface {
	IsLive(role, env string) bool
}

// EnvironmentReader reads the environment profile table.
type EnvironmentReader interface {
	Names() []string
	Lookup(name string) (environment.Profile, bool)
}

// ServerConfig holds MCP server settings.
type ServerConfig struct {
	Addr    string // own listener for Start; unused when mounted via Handler
	Name    string
	Version string
	APIKey  string
}

// ServerDeps are the read and route ports behind the tools. Any may be nil;
// the tools that need it then report an error result.
type ServerDeps struct {
	Router       TaskRouter
	Cards        CardReader
	Flags        FlagReader
	Environments EnvironmentReader
}

// Server wraps an MCP server with the gateway's tools and resources.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	httpSrv   *http.Server
}

// NewServer creates a Server and registers all tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Handler returns the streamable HTTP transport, wrapped in API key auth
// when a key is configured.
func (s *Server) Handler() http.Handler {
	h := mcpserver.NewStreamableHTTPServer(s.mcpServer, mcpserver.WithStateLess(true))
	return AuthMiddleware(s.cfg.APIKey, h)
}

// Start serves Handler on cfg.Addr in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server error", "error", err)
		}
	}()
	slog.Info("mcp server listening", "addr", ln.Addr().String())
	return nil
}

// Stop shuts down the listener started by Start.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
