package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/a2agate/internal/domain/environment"
)

const environmentsURI = "a2agate://environments"

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			environmentsURI,
			"Environment Profiles",
			mcplib.WithResourceDescription("Safety profile of every configured environment"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleEnvironmentsResource,
	)
}

func (s *Server) handleEnvironmentsResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Environments == nil {
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     `{"error":"environment table not configured"}`,
			},
		}, nil
	}
	names := s.deps.Environments.Names()
	profiles := make([]environment.Profile, 0, len(names))
	for _, n := range names {
		if p, ok := s.deps.Environments.Lookup(n); ok {
			profiles = append(profiles, p)
		}
	}
	data, err := json.Marshal(profiles)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
