package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/a2agate/internal/domain"
	"github.com/Strob0t/a2agate/internal/domain/card"
	"github.com/Strob0t/a2agate/internal/port/cardstore"
)

const uniqueViolation = "23505"

// CardStore implements cardstore.Store on the agent_cards table.
type CardStore struct {
	pool *pgxpool.Pool
}

var _ cardstore.Store = (*CardStore)(nil)

// NewCardStore creates a CardStore on pool.
func NewCardStore(pool *pgxpool.Pool) *CardStore {
	return &CardStore{pool: pool}
}

// SaveCard upserts the card for (env, c.Name). Reusing an identity already
// held by another key yields domain.ErrConflict.
func (s *CardStore) SaveCard(ctx context.Context, env string, c *card.AgentCard) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode card: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO agent_cards (environment, role, agent_version, identity, document)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (environment, role) DO UPDATE
		SET agent_version = EXCLUDED.agent_version,
		    identity      = EXCLUDED.identity,
		    document      = EXCLUDED.document,
		    published_at  = now()`,
		env, c.Name, c.AgentVersion, c.Identity, doc)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("identity %s already in use: %w", c.Identity, domain.ErrConflict)
		}
		return fmt.Errorf("save card: %w", err)
	}
	return nil
}

// DeleteCard removes the card for (env, role).
func (s *CardStore) DeleteCard(ctx context.Context, env, role string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM agent_cards WHERE environment = $1 AND role = $2`, env, role); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return nil
}

// ListCards returns every stored card ordered by environment and role.
func (s *CardStore) ListCards(ctx context.Context) ([]cardstore.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT environment, document FROM agent_cards ORDER BY environment, role`)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var out []cardstore.Record
	for rows.Next() {
		var (
			rec cardstore.Record
			doc []byte
		)
		if err := rows.Scan(&rec.Environment, &doc); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		if err := json.Unmarshal(doc, &rec.Card); err != nil {
			return nil, fmt.Errorf("decode card %s: %w", rec.Environment, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return out, nil
}
