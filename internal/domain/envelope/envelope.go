// Package envelope defines the task call and task result shapes exchanged
// between agents across process boundaries.
package envelope

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// DefaultMaxHops bounds the length of a call chain.
const DefaultMaxHops = 5

// TaskCall is a request for work. A new envelope is built for every hop;
// an existing one is never mutated.
type TaskCall struct {
	TargetRole     string         `json:"target_role"`
	Prompt         string         `json:"prompt"`
	Context        map[string]any `json:"context,omitempty"`
	CorrelationID  string         `json:"correlation_id,omitempty"`
	SessionID      string         `json:"session_id,omitempty"`
	CallerIdentity string         `json:"caller_identity,omitempty"`
	TargetEnv      string         `json:"target_env,omitempty"`
	CallChain      []string       `json:"call_chain"`
}

// Validate checks the fields every hop must carry.
func (c *TaskCall) Validate() error {
	if c.TargetRole == "" {
		return errors.New("target_role is required")
	}
	if c.Prompt == "" {
		return errors.New("prompt is required")
	}
	for i, role := range c.CallChain {
		if role == "" {
			return fmt.Errorf("call_chain[%d] is empty", i)
		}
	}
	return nil
}

// Visited reports whether role already appears in the call chain.
func (c *TaskCall) Visited(role string) bool {
	return slices.Contains(c.CallChain, role)
}

// Forward returns the envelope for the next hop: same request with role
// appended to a fresh copy of the call chain. correlationID and env are the
// values resolved for this hop.
func (c *TaskCall) Forward(role, correlationID, env string) TaskCall {
	next := *c
	next.Context = maps.Clone(c.Context)
	next.CorrelationID = correlationID
	next.TargetEnv = env
	next.CallChain = make([]string, 0, len(c.CallChain)+1)
	next.CallChain = append(next.CallChain, c.CallChain...)
	next.CallChain = append(next.CallChain, role)
	return next
}
