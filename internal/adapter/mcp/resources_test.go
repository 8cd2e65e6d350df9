package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/a2agate/internal/domain/environment"
)

func TestEnvironmentsResource(t *testing.T) {
	s := NewServer(ServerConfig{Name: "test"}, ServerDeps{Environments: environment.Defaults()})

	req := mcplib.ReadResourceRequest{}
	req.Params.URI = environmentsURI
	contents, err := s.handleEnvironmentsResource(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text, ok := contents[0].(mcplib.TextResourceContents)
	if !ok {
		t.Fatal("expected TextResourceContents")
	}
	var profiles []environment.Profile
	if err := json.Unmarshal([]byte(text.Text), &profiles); err != nil {
		t.Fatal(err)
	}
	if len(profiles) != 3 || profiles[0].Name != environment.Dev {
		t.Errorf("unexpected profiles: %+v", profiles)
	}
	if profiles[1].Name != environment.Prod || !profiles[1].RequireManualApproval {
		t.Error("prod requires manual approval")
	}
}

func TestEnvironmentsResourceUnconfigured(t *testing.T) {
	s := NewServer(ServerConfig{Name: "test"}, ServerDeps{})
	req := mcplib.ReadResourceRequest{}
	req.Params.URI = environmentsURI
	contents, err := s.handleEnvironmentsResource(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if text := contents[0].(mcplib.TextResourceContents).Text; text == "" {
		t.Error("expected error document")
	}
}
