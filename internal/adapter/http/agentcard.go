package http

import (
	"encoding/json"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/Strob0t/a2agate/internal/domain/card"
)

// GatewayCard describes the gateway itself as an agent.
func GatewayCard(baseURL, version string) card.AgentCard {
	base := strings.TrimSuffix(baseURL, "/")
	return card.AgentCard{
		Name:            "a2agate",
		Description:     "Routes task calls between agents by role and environment",
		ProtocolVersion: card.ProtocolVersion,
		AgentVersion:    version,
		Identity:        base + "/gateway",
		BaseAddress:     base,
		Skills: []card.Skill{
			{
				ID:          "gateway.route_task",
				Description: "Route a task call to the agent serving a role",
				InputShape: json.RawMessage(`{"type":"object","required":["target_role","prompt"],` +
					`"properties":{"target_role":{"type":"string"},"prompt":{"type":"string"},` +
					`"target_env":{"type":"string"},"session_id":{"type":"string"},` +
					`"correlation_id":{"type":"string"},"caller_identity":{"type":"string"},` +
					`"context":{"type":"object"},"call_chain":{"type":"array","items":{"type":"string"}}}}`),
				OutputShape: json.RawMessage(`{"type":"object","required":["content","correlation_id","is_stub"],` +
					`"properties":{"content":{"type":"string"},"session_id":{"type":"string"},` +
					`"correlation_id":{"type":"string"},"target_identity":{"type":"string"},` +
					`"is_stub":{"type":"boolean"},"error":{"type":"object"},"metadata":{"type":"object"}}}`),
				Tags: []string{"routing"},
			},
			{
				ID:          "gateway.resolve_agent",
				Description: "Get the published agent card for a role in an environment",
				InputShape: json.RawMessage(`{"type":"object","required":["environment","role"],` +
					`"properties":{"environment":{"type":"string"},"role":{"type":"string"}}}`),
				OutputShape: json.RawMessage(`{"type":"object"}`),
				Tags:        []string{"registry"},
			},
		},
		Capabilities: a2a.AgentCapabilities{},
	}
}
