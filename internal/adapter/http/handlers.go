package http

import (
	"context"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/Strob0t/a2agate/internal/domain/card"
	"github.com/Strob0t/a2agate/internal/domain/envelope"
	"github.com/Strob0t/a2agate/internal/logger"
	"github.com/Strob0t/a2agate/internal/registry"
	"github.com/Strob0t/a2agate/internal/resolver"
	"github.com/Strob0t/a2agate/internal/service"
)

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// Handlers holds the services behind the HTTP surface.
type Handlers struct {
	Router   *service.Router
	Registry *registry.Registry
	Features *resolver.Resolver
	Self     card.AgentCard
	Health   map[string]HealthCheck // optional dependencies, keyed by name
}

// RouteTask handles POST /route. Every decodable call is answered 200 with
// a TaskResult; routing failures are data inside it.
func (h *Handlers) RouteTask(w http.ResponseWriter, r *http.Request) {
	var call envelope.TaskCall
	if err := decodeJSON(w, r, &call); err != nil {
		corrID := logger.CorrelationID(r.Context())
		if corrID == "" {
			corrID = uuid.NewString()
		}
		status := http.StatusBadRequest
		if isTooLarge(err) {
			status = http.StatusRequestEntityTooLarge
		}
		w.Header().Set(headerCorrelationID, corrID)
		writeJSON(w, status, envelope.TaskResult{
			CorrelationID: corrID,
			Error:         envelope.NewError(envelope.CodeInvalidEnvelope, "undecodable task call: %s", err.Error()),
		})
		return
	}

	res := h.Router.Route(r.Context(), call)
	w.Header().Set(headerCorrelationID, res.CorrelationID)
	writeJSON(w, http.StatusOK, res)
}

// ListAgents handles GET /agents/{env}.
func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	cards := h.Registry.List(urlParam(r, "env"))
	if cards == nil {
		cards = []card.AgentCard{}
	}
	writeJSON(w, http.StatusOK, cards)
}

// GetAgent handles GET /agents/{env}/{role} with the canonical card document.
func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Registry.ResolveDocument(urlParam(r, "env"), urlParam(r, "role"))
	if err != nil {
		writeDomainError(w, err, "agent card not found")
		return
	}
	writeRawJSON(w, http.StatusOK, doc)
}

// PublishAgent handles PUT /agents/{env}.
func (h *Handlers) PublishAgent(w http.ResponseWriter, r *http.Request) {
	c, ok := readJSON[card.AgentCard](w, r)
	if !ok {
		return
	}
	env := urlParam(r, "env")
	if err := h.Registry.Publish(r.Context(), env, &c); err != nil {
		writeDomainError(w, err, "agent card not found")
		return
	}
	doc, err := h.Registry.ResolveDocument(env, c.Name)
	if err != nil {
		writeDomainError(w, err, "agent card not found")
		return
	}
	writeRawJSON(w, http.StatusOK, doc)
}

// RetireAgent handles DELETE /agents/{env}/{role}.
func (h *Handlers) RetireAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.Registry.Retire(r.Context(), urlParam(r, "env"), urlParam(r, "role")); err != nil {
		writeDomainError(w, err, "agent card not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type featuresResponse struct {
	Environment string   `json:"environment"`
	Live        []string `json:"live"`
}

// ListFeatures handles GET /features/{env}: the roles routed live in env.
func (h *Handlers) ListFeatures(w http.ResponseWriter, r *http.Request) {
	env := urlParam(r, "env")
	live := h.Features.Enabled(env)
	if live == nil {
		live = []string{}
	}
	writeJSON(w, http.StatusOK, featuresResponse{Environment: env, Live: live})
}

// SelfCard handles GET /.well-known/agent.json.
func (h *Handlers) SelfCard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Self)
}

// SelfA2ACard handles GET /.well-known/agent-card.json.
func (h *Handlers) SelfA2ACard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Self.ToA2A())
}

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// Healthz handles GET /healthz. Any failing dependency degrades the status
// to 503.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	status := http.StatusOK

	names := make([]string, 0, len(h.Health))
	for name := range h.Health {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if resp.Components == nil {
			resp.Components = make(map[string]string, len(names))
		}
		if err := h.Health[name](r.Context()); err != nil {
			resp.Components[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[name] = "ok"
	}
	writeJSON(w, status, resp)
}
