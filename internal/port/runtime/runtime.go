// Package runtime defines the port to the reasoning runtime that executes
// an agent's logic for a forwarded task call.
package runtime

import (
	"context"
	"fmt"

	"github.com/Strob0t/a2agate/internal/domain/envelope"
)

// Reply is the runtime's answer. Content is opaque text.
type Reply struct {
	Content   string
	SessionID string // set when the runtime assigned a session
}

// Runtime invokes the agent served at baseAddress. It must honour ctx
// cancellation and deadline.
type Runtime interface {
	Invoke(ctx context.Context, baseAddress string, call *envelope.TaskCall) (Reply, error)
}

// StatusError reports a non-success status returned by the runtime.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("runtime returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("runtime returned status %d: %s", e.StatusCode, e.Body)
}
