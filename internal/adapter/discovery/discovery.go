// Package discovery fetches AgentCard documents from the well-known path each
// agent serves and publishes them into the registry.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Strob0t/a2agate/internal/config"
	"github.com/Strob0t/a2agate/internal/domain/card"
	"github.com/Strob0t/a2agate/internal/port/cache"
)

// WellKnownPath is where every agent serves its card document.
const WellKnownPath = "/.well-known/agent.json"

const maxDocumentBytes = 1 << 20

// Publisher accepts discovered cards; *registry.Registry satisfies it.
type Publisher interface {
	Publish(ctx context.Context, env string, c *card.AgentCard) error
}

// Recorder counts fetch outcomes.
type Recorder interface {
	RecordDiscovery(ctx context.Context, outcome string)
}

// Target is one agent to discover.
type Target struct {
	Role        string
	Environment string
	URL         string // base address; WellKnownPath is appended
}

// Fetcher retrieves card documents. Concurrent fetches of the same URL share
// one request; successful documents are cached for the configured TTL.
type Fetcher struct {
	httpClient *http.Client
	cache      cache.Cache
	ttl        time.Duration
	recorder   Recorder
	group      singleflight.Group
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithCache stores fetched documents in c for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(f *Fetcher) { f.cache, f.ttl = c, ttl }
}

// WithRecorder counts fetch outcomes.
func WithRecorder(r Recorder) Option {
	return func(f *Fetcher) { f.recorder = r }
}

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) { f.httpClient = hc }
}

// NewFetcher creates a Fetcher whose requests time out after timeout.
func NewFetcher(timeout time.Duration, opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the card served by the agent at baseURL.
func (f *Fetcher) Fetch(ctx context.Context, baseURL string) (card.AgentCard, error) {
	url := strings.TrimRight(baseURL, "/") + WellKnownPath
	key := cache.DocumentKey(url)

	if f.cache != nil {
		if doc, ok, err := f.cache.Get(ctx, key); err == nil && ok {
			f.record(ctx, "cached")
			return decode(doc)
		}
	}

	// The shared request outlives any single caller; the client timeout bounds it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := f.group.Do(key, func() (any, error) {
		return f.get(shared, url)
	})
	if err != nil {
		f.record(ctx, "failed")
		return card.AgentCard{}, err
	}
	doc := v.([]byte)

	c, err := decode(doc)
	if err != nil {
		f.record(ctx, "failed")
		return card.AgentCard{}, fmt.Errorf("%s: %w", url, err)
	}
	if f.cache != nil {
		if err := f.cache.Set(ctx, key, doc, f.ttl); err != nil {
			slog.Warn("card document not cached", "url", url, "error", err)
		}
	}
	f.record(ctx, "fetched")
	return c, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return data, nil
}

func (f *Fetcher) record(ctx context.Context, outcome string) {
	if f.recorder != nil {
		f.recorder.RecordDiscovery(ctx, outcome)
	}
}

func decode(doc []byte) (card.AgentCard, error) {
	var c card.AgentCard
	if err := json.Unmarshal(doc, &c); err != nil {
		return card.AgentCard{}, fmt.Errorf("decode card: %w", err)
	}
	return c, nil
}

// Sync fetches every target and publishes its card, at most maxParallel at a
// time. A failing target does not stop the others; all failures are joined
// into the returned error.
func (f *Fetcher) Sync(ctx context.Context, pub Publisher, targets []Target, maxParallel int) (int, error) {
	if maxParallel < 1 {
		maxParallel = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	errs := make([]error, len(targets))
	for i, t := range targets {
		g.Go(func() error {
			c, err := f.Fetch(gctx, t.URL)
			if err == nil && c.Name != t.Role {
				err = fmt.Errorf("card name %q does not match role", c.Name)
			}
			if err == nil {
				err = pub.Publish(gctx, t.Environment, &c)
			}
			if err != nil {
				errs[i] = fmt.Errorf("discover %s/%s: %w", t.Environment, t.Role, err)
				slog.Warn("agent card discovery failed", "role", t.Role, "environment", t.Environment, "url", t.URL, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	published := 0
	for _, err := range errs {
		if err == nil {
			published++
		}
	}
	return published, errors.Join(errs...)
}

// Targets resolves the configured agents into fetch targets. Agents without
// an explicit URL get one from the address template, whose placeholders
// {project}, {location}, {role} and {env} are substituted.
func Targets(cfg config.Discovery, project, location string) ([]Target, error) {
	out := make([]Target, 0, len(cfg.Agents))
	for _, a := range cfg.Agents {
		url := a.URL
		if url == "" {
			if cfg.AddressTemplate == "" {
				return nil, fmt.Errorf("agent %s/%s: no url and no address template", a.Environment, a.Role)
			}
			url = Expand(cfg.AddressTemplate, project, location, a.Role, a.Environment)
			if (project == "" && strings.Contains(cfg.AddressTemplate, "{project}")) ||
				(location == "" && strings.Contains(cfg.AddressTemplate, "{location}")) {
				return nil, fmt.Errorf("agent %s/%s: address template needs project and location", a.Environment, a.Role)
			}
		}
		out = append(out, Target{Role: a.Role, Environment: a.Environment, URL: url})
	}
	return out, nil
}

// Expand substitutes the address template placeholders.
func Expand(tmpl, project, location, role, env string) string {
	return strings.NewReplacer(
		"{project}", project,
		"{location}", location,
		"{role}", role,
		"{env}", env,
	).Replace(tmpl)
}
