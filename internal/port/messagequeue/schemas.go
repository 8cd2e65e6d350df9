package messagequeue

// RouteEventPayload is the schema for a2a.routes.* messages. One is
// published per routed call after the result is known.
type RouteEventPayload struct {
	CorrelationID  string   `json:"correlation_id"`
	CallerIdentity string   `json:"caller_identity,omitempty"`
	TargetRole     string   `json:"target_role"`
	TargetIdentity string   `json:"target_identity,omitempty"`
	Environment    string   `json:"environment"`
	State          string   `json:"state"`
	IsStub         bool     `json:"is_stub"`
	HopCount       int      `json:"hop_count"`
	CallChain      []string `json:"call_chain"`
	DurationMS     int64    `json:"duration_ms"`
	ErrorCode      string   `json:"error_code,omitempty"`
}

// RegistryEventPayload is the schema for a2a.registry.* messages.
type RegistryEventPayload struct {
	Environment  string `json:"environment"`
	Role         string `json:"role"`
	AgentVersion string `json:"agent_version,omitempty"`
}
