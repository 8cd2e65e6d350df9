package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/a2agate/internal/domain/envelope"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.routeTaskTool(),
		s.resolveAgentTool(),
		s.listAgentsTool(),
		s.isLiveTool(),
	)
}

func (s *Server) routeTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("route_task",
		mcplib.WithDescription("Route a task call to the agent serving a role"),
		mcplib.WithString("target_role",
			mcplib.Required(),
			mcplib.Description("Role of the agent that should handle the task"),
		),
		mcplib.WithString("prompt",
			mcplib.Required(),
			mcplib.Description("The request for the target agent"),
		),
		mcplib.WithString("target_env", mcplib.Description("Environment to route in; defaults to the gateway's")),
		mcplib.WithString("session_id", mcplib.Description("Session to continue")),
		mcplib.WithString("correlation_id", mcplib.Description("Correlation id to propagate")),
		mcplib.WithString("caller_identity", mcplib.Description("Identity of the calling agent")),
		mcplib.WithArray("call_chain",
			mcplib.Description("Roles already traversed, oldest first"),
			mcplib.Items(map[string]any{"type": "string"}),
		),
		mcplib.WithObject("context", mcplib.Description("Opaque caller context")),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleRouteTask,
	}
}

func (s *Server) resolveAgentTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("resolve_agent",
		mcplib.WithDescription("Get the published agent card for a role in an environment"),
		mcplib.WithString("environment",
			mcplib.Required(),
			mcplib.Description("Environment name"),
		),
		mcplib.WithString("role",
			mcplib.Required(),
			mcplib.Description("Agent role"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleResolveAgent,
	}
}

func (s *Server) listAgentsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_agents",
		mcplib.WithDescription("List the agent cards published in an environment"),
		mcplib.WithString("environment",
			mcplib.Required(),
			mcplib.Description("Environment name"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListAgents,
	}
}

func (s *Server) isLiveTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("is_live",
		mcplib.WithDescription("Report whether a role is routed live in an environment"),
		mcplib.WithString("role",
			mcplib.Required(),
			mcplib.Description("Agent role"),
		),
		mcplib.WithString("environment",
			mcplib.Required(),
			mcplib.Description("Environment name"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleIsLive,
	}
}

func (s *Server) handleRouteTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Router == nil {
		return mcplib.NewToolResultError("router not configured"), nil
	}
	args := req.GetArguments()
	call := envelope.TaskCall{
		TargetRole:     stringArg(args, "target_role"),
		Prompt:         stringArg(args, "prompt"),
		TargetEnv:      stringArg(args, "target_env"),
		SessionID:      stringArg(args, "session_id"),
		CorrelationID:  stringArg(args, "correlation_id"),
		CallerIdentity: stringArg(args, "caller_identity"),
	}
	if call.TargetRole == "" {
		return mcplib.NewToolResultError("target_role is required"), nil
	}
	if call.Prompt == "" {
		return mcplib.NewToolResultError("prompt is required"), nil
	}
	if raw, ok := args["call_chain"].([]any); ok {
		for i, v := range raw {
			role, ok := v.(string)
			if !ok {
				return mcplib.NewToolResultError(fmt.Sprintf("call_chain[%d] must be a string", i)), nil
			}
			call.CallChain = append(call.CallChain, role)
		}
	}
	if c, ok := args["context"].(map[string]any); ok {
		call.Context = c
	}

	res := s.deps.Router.Route(ctx, call)
	data, err := json.Marshal(res)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal task result", err), nil
	}
	out := toolResultJSON(string(data))
	out.IsError = res.Error != nil
	return out, nil
}

func (s *Server) handleResolveAgent(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Cards == nil {
		return mcplib.NewToolResultError("card registry not configured"), nil
	}
	args := req.GetArguments()
	env, role := stringArg(args, "environment"), stringArg(args, "role")
	if env == "" || role == "" {
		return mcplib.NewToolResultError("environment and role are required"), nil
	}
	doc, err := s.deps.Cards.ResolveDocument(env, role)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to resolve %s in %s", role, env), err,
		), nil
	}
	return toolResultJSON(string(doc)), nil
}

func (s *Server) handleListAgents(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Cards == nil {
		return mcplib.NewToolResultError("card registry not configured"), nil
	}
	env := stringArg(req.GetArguments(), "environment")
	if env == "" {
		return mcplib.NewToolResultError("environment is required"), nil
	}
	data, err := json.Marshal(s.deps.Cards.List(env))
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal agent cards", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleIsLive(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Flags == nil {
		return mcplib.NewToolResultError("feature table not configured"), nil
	}
	args := req.GetArguments()
	role, env := stringArg(args, "role"), stringArg(args, "environment")
	if role == "" || env == "" {
		return mcplib.NewToolResultError("role and environment are required"), nil
	}
	data, err := json.Marshal(map[string]any{
		"role":        role,
		"environment": env,
		"live":        s.deps.Flags.IsLive(role, env),
	})
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal flag", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func stringArg(args map[string]any, name string) string {
	v, _ := args[name].(string)
	return v
}

func toolResultJSON(text string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(text)
}
