// Package registry resolves (environment, role) pairs to published
// AgentCards. Reads are lock-free against an immutable snapshot; publishes
// build a new snapshot and swap it in atomically.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Strob0t/a2agate/internal/domain"
	"github.com/Strob0t/a2agate/internal/domain/card"
	"github.com/Strob0t/a2agate/internal/port/cardstore"
	"github.com/Strob0t/a2agate/internal/port/messagequeue"
)

// NotFoundError is returned when no card is published for a key.
type NotFoundError struct {
	Environment string
	Role        string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no agent card for role %q in environment %q", e.Role, e.Environment)
}

// Unwrap lets callers match domain.ErrNotFound.
func (e *NotFoundError) Unwrap() error { return domain.ErrNotFound }

type key struct {
	env  string
	role string
}

// entry is never modified once it is part of a snapshot.
type entry struct {
	card card.AgentCard
	doc  []byte
}

type snapshot map[key]*entry

// Registry holds the AgentCard table for one process. Use New; the zero
// value is not usable.
type Registry struct {
	protocolVersion string
	store           cardstore.Store
	events          messagequeue.Publisher

	mu   sync.Mutex // serializes writers
	snap atomic.Pointer[snapshot]
}

// Option configures a Registry.
type Option func(*Registry)

// WithStore enables write-through persistence of published cards.
func WithStore(s cardstore.Store) Option {
	return func(r *Registry) { r.store = s }
}

// WithEvents announces publishes and retirements on a2a.registry.*.
func WithEvents(p messagequeue.Publisher) Option {
	return func(r *Registry) { r.events = p }
}

// New creates an empty registry accepting cards of protocolVersion.
func New(protocolVersion string, opts ...Option) *Registry {
	r := &Registry{protocolVersion: protocolVersion}
	for _, opt := range opts {
		opt(r)
	}
	empty := snapshot{}
	r.snap.Store(&empty)
	return r
}

// ProtocolVersion returns the card protocol version this registry accepts.
func (r *Registry) ProtocolVersion() string { return r.protocolVersion }

// Publish validates c and replaces any card for (env, c.Name). Readers see
// either the previous card or the new one, never a mix.
func (r *Registry) Publish(ctx context.Context, env string, c *card.AgentCard) error {
	if env == "" {
		return fmt.Errorf("publish %s: environment is required: %w", c.Name, domain.ErrValidation)
	}
	if err := c.Validate(r.protocolVersion); err != nil {
		return err
	}

	e, err := newEntry(c)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{env, c.Name}
	if holder, taken := r.identityHolder(c.Identity); taken && holder != k {
		return fmt.Errorf("identity %s already held by %s/%s: %w",
			c.Identity, holder.env, holder.role, domain.ErrConflict)
	}
	if r.store != nil {
		if err := r.store.SaveCard(ctx, env, &e.card); err != nil {
			return fmt.Errorf("persist card %s/%s: %w", env, c.Name, err)
		}
	}
	r.swap(func(next snapshot) { next[k] = e })

	slog.Info("agent card published",
		"environment", env,
		"role", c.Name,
		"agent_version", c.AgentVersion,
		"identity", c.Identity,
	)
	r.announce(ctx, "published", messagequeue.RegistryEventPayload{
		Environment: env, Role: c.Name, AgentVersion: c.AgentVersion,
	})
	return nil
}

// identityHolder returns the key whose current card carries identity.
// Callers hold r.mu.
func (r *Registry) identityHolder(identity string) (key, bool) {
	for k, e := range *r.snap.Load() {
		if e.card.Identity == identity {
			return k, true
		}
	}
	return key{}, false
}

// Retire discards the card for (env, role).
func (r *Registry) Retire(ctx context.Context, env, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{env, role}
	if _, ok := (*r.snap.Load())[k]; !ok {
		return &NotFoundError{Environment: env, Role: role}
	}
	if r.store != nil {
		if err := r.store.DeleteCard(ctx, env, role); err != nil {
			return fmt.Errorf("delete card %s/%s: %w", env, role, err)
		}
	}
	r.swap(func(next snapshot) { delete(next, k) })

	slog.Info("agent card retired", "environment", env, "role", role)
	r.announce(ctx, "retired", messagequeue.RegistryEventPayload{Environment: env, Role: role})
	return nil
}

// announce publishes a registry event. Failures are logged only.
func (r *Registry) announce(ctx context.Context, action string, p messagequeue.RegistryEventPayload) {
	if r.events == nil {
		return
	}
	data, err := json.Marshal(p)
	if err == nil {
		err = r.events.Publish(ctx, messagequeue.SubjectRegistry+"."+action, data)
	}
	if err != nil {
		slog.Warn("registry event not published", "action", action, "role", p.Role, "error", err)
	}
}

// Resolve returns a copy of the card published for (env, role) or a
// *NotFoundError.
func (r *Registry) Resolve(env, role string) (card.AgentCard, error) {
	e, ok := (*r.snap.Load())[key{env, role}]
	if !ok {
		return card.AgentCard{}, &NotFoundError{Environment: env, Role: role}
	}
	return e.card.Clone(), nil
}

// ResolveDocument returns the canonical JSON document of the card for
// (env, role). Repeated calls between publishes return identical bytes.
func (r *Registry) ResolveDocument(env, role string) ([]byte, error) {
	e, ok := (*r.snap.Load())[key{env, role}]
	if !ok {
		return nil, &NotFoundError{Environment: env, Role: role}
	}
	return bytes.Clone(e.doc), nil
}

// List returns copies of every card in env, ordered by role.
func (r *Registry) List(env string) []card.AgentCard {
	snap := *r.snap.Load()
	var out []card.AgentCard
	for k, e := range snap {
		if k.env == env {
			out = append(out, e.card.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Load installs every card held by the store. Invalid stored cards are
// skipped and logged. Load is a no-op without a store.
func (r *Registry) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	records, err := r.store.ListCards(ctx)
	if err != nil {
		return fmt.Errorf("load cards: %w", err)
	}

	loaded := make(map[key]*entry, len(records))
	for i := range records {
		rec := &records[i]
		if err := rec.Card.Validate(r.protocolVersion); err != nil {
			slog.Warn("skipping stored agent card", "environment", rec.Environment, "role", rec.Card.Name, "error", err)
			continue
		}
		e, err := newEntry(&rec.Card)
		if err != nil {
			return err
		}
		loaded[key{rec.Environment, rec.Card.Name}] = e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.swap(func(next snapshot) {
		for k, e := range loaded {
			next[k] = e
		}
	})
	slog.Info("agent cards loaded from store", "count", len(loaded))
	return nil
}

// swap must be called with r.mu held.
func (r *Registry) swap(mutate func(next snapshot)) {
	cur := *r.snap.Load()
	next := make(snapshot, len(cur)+1)
	for k, e := range cur {
		next[k] = e
	}
	mutate(next)
	r.snap.Store(&next)
}

func newEntry(c *card.AgentCard) (*entry, error) {
	cp := c.Clone()
	doc, err := json.Marshal(&cp)
	if err != nil {
		return nil, fmt.Errorf("encode card %s: %w", c.Name, err)
	}
	return &entry{card: cp, doc: doc}, nil
}

// IsNotFound reports whether err is a registry miss.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
