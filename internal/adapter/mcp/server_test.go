package mcp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	cfmcp "github.com/Strob0t/a2agate/internal/adapter/mcp"
	"github.com/Strob0t/a2agate/internal/domain/card"
	"github.com/Strob0t/a2agate/internal/domain/envelope"
	"github.com/Strob0t/a2agate/internal/registry"
	"github.com/Strob0t/a2agate/internal/resolver"
)

// --- Mocks ---

type mockRouter struct {
	calls []envelope.TaskCall
	fail  bool
}

func (m *mockRouter) Route(_ context.Context, call envelope.TaskCall) envelope.TaskResult {
	m.calls = append(m.calls, call)
	if m.fail {
		return envelope.Failed(&call, "corr", envelope.NewError(envelope.CodeTargetNotFound, "no card"))
	}
	return envelope.TaskResult{Content: "done", CorrelationID: "corr", TargetIdentity: call.TargetRole + "@agents.example.com"}
}

type mockCards struct {
	docs  map[string][]byte
	cards []card.AgentCard
}

func (m *mockCards) ResolveDocument(env, role string) ([]byte, error) {
	if d, ok := m.docs[env+"/"+role]; ok {
		return d, nil
	}
	return nil, &registry.NotFoundError{Environment: env, Role: role}
}

func (m *mockCards) List(_ string) []card.AgentCard { return m.cards }

func callTool(t *testing.T, s *cfmcp.Server, name string, args map[string]any) *mcplib.CallToolResult {
	t.Helper()
	tool, ok := s.MCPServer().ListTools()[name]
	if !ok {
		t.Fatalf("%s tool not found", name)
	}
	result, err := tool.Handler(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: name, Arguments: args},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return result
}

func resultText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	return text.Text
}

// --- Tests ---

func TestNewServer(t *testing.T) {
	s := cfmcp.NewServer(cfmcp.ServerConfig{Name: "test-server", Version: "0.1.0"}, cfmcp.ServerDeps{})
	if s == nil {
		t.Fatal("NewServer returned nil")
	}
	if s.MCPServer() == nil {
		t.Fatal("MCPServer() returned nil")
	}
}

func TestServerStartStop(t *testing.T) {
	s := cfmcp.NewServer(cfmcp.ServerConfig{Addr: "127.0.0.1:0", Name: "test-server", Version: "0.1.0"}, cfmcp.ServerDeps{})

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	s := cfmcp.NewServer(cfmcp.ServerConfig{Name: "test"}, cfmcp.ServerDeps{})
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestToolRegistration(t *testing.T) {
	s := cfmcp.NewServer(cfmcp.ServerConfig{Name: "test", Version: "0.1.0"}, cfmcp.ServerDeps{})

	tools := s.MCPServer().ListTools()
	expectedTools := map[string]bool{
		"route_task":    false,
		"resolve_agent": false,
		"list_agents":   false,
		"is_live":       false,
	}
	if len(tools) != len(expectedTools) {
		t.Fatalf("expected %d tools, got %d", len(expectedTools), len(tools))
	}
	for name := range tools {
		if _, ok := expectedTools[name]; ok {
			expectedTools[name] = true
		} else {
			t.Errorf("unexpected tool: %s", name)
		}
	}
	for name, found := range expectedTools {
		if !found {
			t.Errorf("expected tool %q not registered", name)
		}
	}
}

func TestHandleRouteTask(t *testing.T) {
	router := &mockRouter{}
	s := cfmcp.NewServer(cfmcp.ServerConfig{Name: "test"}, cfmcp.ServerDeps{Router: router})

	result := callTool(t, s, "route_task", map[string]any{
		"target_role":    "bob",
		"prompt":         "reconcile",
		"target_env":     "prod",
		"correlation_id": "c-1",
		"call_chain":     []any{"orchestrator", "alice"},
		"context":        map[string]any{"ticket": "42"},
	})
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}

	var res envelope.TaskResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &res); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if res.Content != "done" {
		t.Errorf("unexpected content %q", res.Content)
	}

	if len(router.calls) != 1 {
		t.Fatalf("expected one routed call, got %d", len(router.calls))
	}
	call := router.calls[0]
	if call.TargetEnv != "prod" || call.CorrelationID != "c-1" {
		t.Errorf("arguments not mapped: %+v", call)
	}
	if len(call.CallChain) != 2 || call.CallChain[1] != "alice" {
		t.Errorf("unexpected chain %v", call.CallChain)
	}
	if call.Context["ticket"] != "42" {
		t.Errorf("context not carried: %v", call.Context)
	}
}

func TestHandleRouteTaskFailureIsError(t *testing.T) {
	s := cfmcp.NewServer(cfmcp.ServerConfig{Name: "test"}, cfmcp.ServerDeps{Router: &mockRouter{fail: true}})

	result := callTool(t, s, "route_task", map[string]any{"target_role": "dave", "prompt": "p"})
	if !result.IsError {
		t.Fatal("expected error result for a failed route")
	}
	var res envelope.TaskResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &res); err != nil {
		t.Fatalf("failed routes still carry the task result: %v", err)
	}
	if res.Error == nil || res.Error.Code != envelope.CodeTargetNotFound {
		t.Errorf("unexpected error %+v", res.Error)
	}
}

func TestHandleRouteTaskBadArgs(t *testing.T) {
	router := &mockRouter{}
	s := cfmcp.NewServer(cfmcp.ServerConfig{Name: "test"}, cfmcp.ServerDeps{Router: router})

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing role", map[string]any{"prompt": "p"}},
		{"missing prompt", map[string]any{"target_role": "bob"}},
		{"non-string chain", map[string]any{"target_role": "bob", "prompt": "p", "call_chain": []any{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := callTool(t, s, "route_task", tt.args); !result.IsError {
				t.Fatal("expected error result")
			}
		})
	}
	if len(router.calls) != 0 {
		t.Errorf("bad arguments must not be routed, got %d calls", len(router.calls))
	}
}

func TestHandleResolveAgent(t *testing.T) {
	doc := []byte(`{"name":"bob"}`)
	s := cfmcp.NewServer(cfmcp.ServerConfig{Name: "test"}, cfmcp.ServerDeps{
		Cards: &mockCards{docs: map[string][]byte{"prod/bob": doc}},
	})

	result := callTool(t, s, "resolve_agent", map[string]any{"environment": "prod", "role": "bob"})
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}
	if got := resultText(t, result); got != string(doc) {
		t.Errorf("expected canonical document, got %s", got)
	}

	if result := callTool(t, s, "resolve_agent", map[string]any{"environment": "prod", "role": "dave"}); !result.IsError {
		t.Error("expected error for unknown role")
	}
}

func TestHandleListAgents(t *testing.T) {
	s := cfmcp.NewServer(cfmcp.ServerConfig{Name: "test"}, cfmcp.ServerDeps{
		Cards: &mockCards{cards: []card.AgentCard{{Name: "alice"}, {Name: "bob"}}},
	})

	result := callTool(t, s, "list_agents", map[string]any{"environment": "dev"})
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}
	var cards []card.AgentCard
	if err := json.Unmarshal([]byte(resultText(t, result)), &cards); err != nil {
		t.Fatal(err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
}

func TestHandleIsLive(t *testing.T) {
	s := cfmcp.NewServer(cfmcp.ServerConfig{Name: "test"}, cfmcp.ServerDeps{
		Flags: resolver.New(resolver.Table{"bob": {"prod": true}}),
	})

	result := callTool(t, s, "is_live", map[string]any{"role": "bob", "environment": "prod"})
	var got struct {
		Live bool `json:"live"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &got); err != nil {
		t.Fatal(err)
	}
	if !got.Live {
		t.Error("expected bob live in prod")
	}
}

func TestHandleNilDeps(t *testing.T) {
	s := cfmcp.NewServer(cfmcp.ServerConfig{Name: "test", Version: "0.1.0"}, cfmcp.ServerDeps{})

	for _, name := range []string{"route_task", "resolve_agent", "list_agents", "is_live"} {
		result := callTool(t, s, name, map[string]any{"target_role": "bob", "prompt": "p", "environment": "dev", "role": "bob"})
		if !result.IsError {
			t.Errorf("%s: expected error result when deps are nil", name)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := cfmcp.AuthMiddleware("secret", next)

	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"bearer", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"api key header", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"missing", nil, http.StatusUnauthorized},
		{"wrong", map[string]string{"Authorization": "Bearer nope"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", http.NoBody)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestAuthMiddlewareDisabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	rec := httptest.NewRecorder()
	cfmcp.AuthMiddleware("", next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", http.NoBody))
	if rec.Code != http.StatusTeapot {
		t.Errorf("empty key must pass through, got %d", rec.Code)
	}
}
