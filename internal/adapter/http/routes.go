package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all gateway routes on the given chi router. A nil
// mcp handler leaves /mcp unmounted.
func MountRoutes(r chi.Router, h *Handlers, mcp http.Handler) {
	r.Get("/healthz", h.Healthz)

	// Discovery documents for the gateway itself
	r.Get("/.well-known/agent.json", h.SelfCard)
	r.Get("/.well-known/agent-card.json", h.SelfA2ACard)

	// Routing
	r.Post("/route", h.RouteTask)

	// Registry
	r.Get("/agents/{env}", h.ListAgents)
	r.Put("/agents/{env}", h.PublishAgent)
	r.Get("/agents/{env}/{role}", h.GetAgent)
	r.Delete("/agents/{env}/{role}", h.RetireAgent)

	// Feature table
	r.Get("/features/{env}", h.ListFeatures)

	if mcp != nil {
		r.Mount("/mcp", mcp)
	}
}
