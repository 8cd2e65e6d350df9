// Package service implements the task routing pipeline: envelope checks,
// card resolution, the live/stub decision and the bounded outbound call.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	cfotel "github.com/Strob0t/a2agate/internal/adapter/otel"
	"github.com/Strob0t/a2agate/internal/config"
	"github.com/Strob0t/a2agate/internal/domain/card"
	"github.com/Strob0t/a2agate/internal/domain/envelope"
	"github.com/Strob0t/a2agate/internal/logger"
	"github.com/Strob0t/a2agate/internal/port/messagequeue"
	"github.com/Strob0t/a2agate/internal/port/runtime"
	"github.com/Strob0t/a2agate/internal/resilience"
)

// StubPrefix starts the content of every stubbed result.
const StubPrefix = "[STUB] "

// eventTimeout bounds publishing one route event.
const eventTimeout = 2 * time.Second

// Cards resolves published agent cards.
type Cards interface {
	Resolve(env, role string) (card.AgentCard, error)
}

// Flags decides live routing per role and environment.
type Flags interface {
	IsLive(role, env string) bool
}

// Router routes task calls between agents. It never retries.
type Router struct {
	cfg     config.Gateway
	cards   Cards
	flags   Flags
	runtime runtime.Runtime

	events  messagequeue.Publisher
	metrics *cfotel.Metrics
	tracer  trace.Tracer
	log     *slog.Logger
	now     func() time.Time
	newID   func() string
}

// NewRouter creates a Router over the given tables and runtime.
func NewRouter(cfg config.Gateway, cards Cards, flags Flags, rt runtime.Runtime) *Router {
	if cfg.MaxHops < 1 {
		cfg.MaxHops = envelope.DefaultMaxHops
	}
	return &Router{
		cfg:     cfg,
		cards:   cards,
		flags:   flags,
		runtime: rt,
		log:     slog.Default(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// SetEvents enables route events on the given publisher.
func (r *Router) SetEvents(p messagequeue.Publisher) { r.events = p }

// SetMetrics enables route metrics.
func (r *Router) SetMetrics(m *cfotel.Metrics) { r.metrics = m }

// SetTracer overrides the global tracer.
func (r *Router) SetTracer(t trace.Tracer) { r.tracer = t }

// SetLogger overrides slog.Default.
func (r *Router) SetLogger(l *slog.Logger) {
	if l != nil {
		r.log = l
	}
}

// DefaultEnv is the environment used when a call names none.
func (r *Router) DefaultEnv() string { return r.cfg.DefaultEnv }

// outcome is everything recorded about one routed call.
type outcome struct {
	result   envelope.TaskResult
	state    envelope.State
	env      string
	identity string
}

// Route handles one task call. Every failure is returned as data inside the
// result; Route itself never fails.
func (r *Router) Route(ctx context.Context, call envelope.TaskCall) envelope.TaskResult {
	start := r.now()

	corrID := call.CorrelationID
	if corrID == "" {
		corrID = logger.CorrelationID(ctx)
	}
	if corrID == "" {
		corrID = r.newID()
	}
	env := call.TargetEnv
	if env == "" {
		env = r.cfg.DefaultEnv
	}
	ctx = logger.WithCorrelationID(ctx, corrID)

	ctx, span := cfotel.StartRouteSpan(ctx, r.tracer, corrID, call.TargetRole, len(call.CallChain))
	out := r.route(ctx, &call, corrID, env)
	elapsed := r.now().Sub(start)

	res := out.result
	res.CorrelationID = corrID
	res.Metadata = map[string]any{
		"hop_count":   len(call.CallChain) + 1,
		"duration_ms": elapsed.Milliseconds(),
		"environment": env,
		"state":       string(out.state),
	}

	var code string
	if res.Error != nil {
		code = string(res.Error.Code)
	}
	cfotel.EndRouteSpan(span, env, string(out.state), res.IsStub, code)
	r.metrics.RecordRoute(ctx, env, string(out.state), res.IsStub, elapsed)
	r.logCompleted(ctx, &call, corrID, &out, res.IsStub, elapsed, code)
	r.publishEvent(ctx, &call, corrID, &out, res.IsStub, elapsed, code)

	return res
}

func (r *Router) route(ctx context.Context, call *envelope.TaskCall, corrID, env string) outcome {
	out := outcome{env: env}

	if err := call.Validate(); err != nil {
		out.result = envelope.Failed(call, corrID, envelope.NewError(envelope.CodeInvalidEnvelope, "%s", err.Error()))
		out.state = envelope.StateInvalid
		return out
	}

	// A full chain is rejected whatever the target.
	if len(call.CallChain) >= r.cfg.MaxHops {
		out.result = envelope.Rejected(call, corrID, envelope.CodeDepthExceeded,
			"call chain length %d reaches the limit of %d hops", len(call.CallChain), r.cfg.MaxHops)
		out.state = envelope.StateCycleRejected
		return out
	}
	if call.Visited(call.TargetRole) {
		out.result = envelope.Rejected(call, corrID, envelope.CodeCycleDetected,
			"role %q already appears in the call chain", call.TargetRole)
		out.state = envelope.StateCycleRejected
		return out
	}

	c, err := r.cards.Resolve(env, call.TargetRole)
	if err != nil {
		out.result = envelope.Failed(call, corrID, envelope.NewError(envelope.CodeTargetNotFound, "%s", err.Error()))
		out.state = envelope.StateNotFound
		return out
	}
	out.identity = c.Identity

	if !r.flags.IsLive(call.TargetRole, env) {
		out.result = envelope.TaskResult{
			Content:        stubContent(call.TargetRole, env),
			SessionID:      r.session(call.SessionID, ""),
			TargetIdentity: c.Identity,
			IsStub:         true,
		}
		out.state = envelope.StateStubbed
		return out
	}

	next := call.Forward(call.TargetRole, corrID, env)
	timeout := r.cfg.TimeoutFor(env)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reply, err := r.runtime.Invoke(callCtx, c.BaseAddress, &next)
	if err != nil {
		rerr := classify(ctx, callCtx, err, call.TargetRole, timeout)
		out.result = envelope.Failed(call, corrID, rerr)
		out.result.TargetIdentity = c.Identity
		out.state = envelope.StateFor(rerr)
		return out
	}

	out.result = envelope.TaskResult{
		Content:        reply.Content,
		SessionID:      r.session(call.SessionID, reply.SessionID),
		TargetIdentity: c.Identity,
	}
	out.state = envelope.StateSucceeded
	return out
}

// session echoes the caller's session, else takes the one the runtime
// assigned, else starts a new one.
func (r *Router) session(caller, assigned string) string {
	switch {
	case caller != "":
		return caller
	case assigned != "":
		return assigned
	default:
		return r.newID()
	}
}

// classify maps an outbound failure to a structured error. parent is the
// caller's context, callCtx the one bounded by the gateway timeout.
func classify(parent, callCtx context.Context, err error, role string, timeout time.Duration) *envelope.Error {
	if perr := parent.Err(); perr != nil {
		if errors.Is(perr, context.DeadlineExceeded) {
			return envelope.NewError(envelope.CodeTimeout, "caller deadline passed while calling %s", role)
		}
		return envelope.NewError(envelope.CodeCanceled, "caller canceled the call to %s", role)
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return envelope.NewError(envelope.CodeTimeout, "no reply from %s within %s", role, timeout)
	}

	var se *runtime.StatusError
	if errors.As(err, &se) {
		e := envelope.NewError(envelope.CodeUpstream, "%s: %s", role, se.Error())
		e.Status = se.StatusCode
		return e
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return envelope.NewError(envelope.CodeTransport, "circuit open for %s", role)
	}
	return envelope.NewError(envelope.CodeTransport, "%s: %s", role, err.Error())
}

func stubContent(role, env string) string {
	return fmt.Sprintf("%s%s is not enabled for live routing in %s; no agent was invoked.", StubPrefix, role, env)
}

func (r *Router) logCompleted(ctx context.Context, call *envelope.TaskCall, corrID string, out *outcome, stub bool, d time.Duration, code string) {
	attrs := []any{
		"correlation_id", corrID,
		"caller_identity", call.CallerIdentity,
		"target_role", call.TargetRole,
		"environment", out.env,
		"stub", stub,
		"state", string(out.state),
		"hop_count", len(call.CallChain) + 1,
		"duration_ms", d.Milliseconds(),
	}
	level := slog.LevelInfo
	if code != "" {
		attrs = append(attrs, "error_code", code)
		level = slog.LevelWarn
	}
	r.log.Log(ctx, level, "route completed", attrs...)
}

func (r *Router) publishEvent(ctx context.Context, call *envelope.TaskCall, corrID string, out *outcome, stub bool, d time.Duration, code string) {
	if r.events == nil {
		return
	}
	payload := messagequeue.RouteEventPayload{
		CorrelationID:  corrID,
		CallerIdentity: call.CallerIdentity,
		TargetRole:     call.TargetRole,
		TargetIdentity: out.identity,
		Environment:    out.env,
		State:          string(out.state),
		IsStub:         stub,
		HopCount:       len(call.CallChain) + 1,
		CallChain:      call.CallChain,
		DurationMS:     d.Milliseconds(),
		ErrorCode:      code,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
	defer cancel()
	if err := r.events.Publish(pubCtx, messagequeue.RouteSubject(string(out.state)), data); err != nil {
		r.log.DebugContext(ctx, "route event not published", "correlation_id", corrID, "error", err)
	}
}
