// Package cardstore defines the port for durable AgentCard storage.
package cardstore

import (
	"context"

	"github.com/Strob0t/a2agate/internal/domain/card"
)

// Record is one stored card together with the environment it serves.
type Record struct {
	Environment string
	Card        card.AgentCard
}

// Store persists published cards so a restarted registry can reload them.
type Store interface {
	// SaveCard inserts or replaces the card for (env, c.Name).
	SaveCard(ctx context.Context, env string, c *card.AgentCard) error

	// DeleteCard removes the card for (env, role). Deleting a missing card is not an error.
	DeleteCard(ctx context.Context, env, role string) error

	// ListCards returns every stored card.
	ListCards(ctx context.Context) ([]Record, error)
}
