package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Strob0t/a2agate/internal/adapter/ristretto"
	"github.com/Strob0t/a2agate/internal/config"
	"github.com/Strob0t/a2agate/internal/domain/card"
)

func cardJSON(t *testing.T, name string) []byte {
	t.Helper()
	c := card.AgentCard{
		Name:            name,
		ProtocolVersion: card.ProtocolVersion,
		AgentVersion:    "1.0.0",
		Identity:        "agent://acme/finance/" + name + "/dev/1.0.0",
		BaseAddress:     "http://" + name + ".local",
		Skills: []card.Skill{{
			ID:          "finance.create_invoice",
			Description: "Create invoice",
			InputShape:  json.RawMessage(`{"type":"object"}`),
			OutputShape: json.RawMessage(`{"type":"object"}`),
		}},
	}
	data, err := json.Marshal(&c)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// agentServer serves a card for name and counts requests.
func agentServer(t *testing.T, name string, hits *atomic.Int32, delay time.Duration) *httptest.Server {
	t.Helper()
	doc := cardJSON(t, name)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != WellKnownPath {
			http.NotFound(w, r)
			return
		}
		time.Sleep(delay)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fakePublisher struct {
	mu    sync.Mutex
	cards map[string]card.AgentCard
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, env string, c *card.AgentCard) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cards == nil {
		p.cards = map[string]card.AgentCard{}
	}
	p.cards[env+"/"+c.Name] = c.Clone()
	return nil
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *countingRecorder) RecordDiscovery(_ context.Context, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[outcome]++
}

func TestFetchUsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := agentServer(t, "bob", &hits, 0)

	c, err := ristretto.New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	rec := &countingRecorder{}
	f := NewFetcher(time.Second, WithCache(c, time.Minute), WithRecorder(rec))

	for range 3 {
		got, err := f.Fetch(context.Background(), srv.URL+"/")
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if got.Name != "bob" {
			t.Fatalf("unexpected card %+v", got)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 upstream fetch, got %d", hits.Load())
	}
	if rec.outcomes["fetched"] != 1 || rec.outcomes["cached"] != 2 {
		t.Errorf("unexpected outcomes: %v", rec.outcomes)
	}
}

func TestFetchDedupesConcurrent(t *testing.T) {
	var hits atomic.Int32
	srv := agentServer(t, "bob", &hits, 100*time.Millisecond)
	f := NewFetcher(time.Second)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if n := hits.Load(); n >= 8 {
		t.Errorf("expected concurrent fetches to be shared, got %d requests", n)
	}
}

func TestFetchErrors(t *testing.T) {
	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()
	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer garbage.Close()

	f := NewFetcher(time.Second)
	if _, err := f.Fetch(context.Background(), notFound.URL); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status error, got %v", err)
	}
	if _, err := f.Fetch(context.Background(), garbage.URL); err == nil || !strings.Contains(err.Error(), "decode card") {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestSync(t *testing.T) {
	var hits atomic.Int32
	bob := agentServer(t, "bob", &hits, 0)
	carol := agentServer(t, "carol", &hits, 0)
	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()

	targets := []Target{
		{Role: "bob", Environment: "dev", URL: bob.URL},
		{Role: "carol", Environment: "prod", URL: carol.URL},
		{Role: "dave", Environment: "dev", URL: down.URL},
		{Role: "erin", Environment: "dev", URL: bob.URL}, // serves bob's card
	}
	pub := &fakePublisher{}
	n, err := NewFetcher(time.Second).Sync(context.Background(), pub, targets, 2)
	if n != 2 {
		t.Errorf("expected 2 published, got %d", n)
	}
	if err == nil || !strings.Contains(err.Error(), "dev/dave") || !strings.Contains(err.Error(), "dev/erin") {
		t.Errorf("expected joined failures for dave and erin, got %v", err)
	}
	if _, ok := pub.cards["prod/carol"]; !ok {
		t.Errorf("carol not published: %v", pub.cards)
	}
}

func TestSyncPublishFailure(t *testing.T) {
	var hits atomic.Int32
	bob := agentServer(t, "bob", &hits, 0)
	pub := &fakePublisher{err: errors.New("validation failed")}

	n, err := NewFetcher(time.Second).Sync(context.Background(), pub,
		[]Target{{Role: "bob", Environment: "dev", URL: bob.URL}}, 0)
	if n != 0 || err == nil {
		t.Fatalf("expected publish failure, got n=%d err=%v", n, err)
	}
}

func TestTargets(t *testing.T) {
	cfg := config.Discovery{
		AddressTemplate: "https://{role}-{env}.{location}.run.example/{project}",
		Agents: []config.DiscoveryAgent{
			{Role: "bob", Environment: "prod"},
			{Role: "carol", Environment: "dev", URL: "http://carol.local"},
		},
	}
	got, err := Targets(cfg, "acme-prod-7421", "europe-west1")
	if err != nil {
		t.Fatal(err)
	}
	if got[0].URL != "https://bob-prod.europe-west1.run.example/acme-prod-7421" {
		t.Errorf("unexpected templated url %q", got[0].URL)
	}
	if got[1].URL != "http://carol.local" {
		t.Errorf("explicit url must win, got %q", got[1].URL)
	}

	if _, err := Targets(cfg, "", "europe-west1"); err == nil {
		t.Error("expected error when template needs a missing project")
	}
}
