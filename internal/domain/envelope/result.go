package envelope

import (
	"fmt"
	"slices"
)

// Kind is the error taxonomy class.
type Kind string

const (
	KindConfiguration Kind = "ConfigurationError"
	KindSafety        Kind = "SafetyViolation"
	KindProtocol      Kind = "ProtocolViolation"
	KindUpstream      Kind = "UpstreamError"
)

// Code identifies a specific routing failure.
type Code string

const (
	CodeInvalidEnvelope Code = "InvalidEnvelope"
	CodeCycleDetected   Code = "CycleDetected"
	CodeDepthExceeded   Code = "DepthExceeded"
	CodeTargetNotFound  Code = "TargetNotFound"
	CodeTimeout         Code = "Timeout"
	CodeTransport       Code = "TransportError"
	CodeUpstream        Code = "UpstreamError"
	CodeCanceled        Code = "Canceled"
)

// Kind returns the taxonomy class a code belongs to.
func (c Code) Kind() Kind {
	switch c {
	case CodeInvalidEnvelope, CodeCycleDetected, CodeDepthExceeded, CodeTargetNotFound:
		return KindProtocol
	default:
		return KindUpstream
	}
}

// Error is a structured failure carried as data inside a TaskResult.
type Error struct {
	Kind      Kind     `json:"kind"`
	Code      Code     `json:"code"`
	Message   string   `json:"message"`
	Status    int      `json:"status,omitempty"`
	CallChain []string `json:"call_chain,omitempty"`
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s(%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds an Error for code with a formatted message.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Kind: code.Kind(), Code: code, Message: fmt.Sprintf(format, args...)}
}

// TaskResult is the response to a TaskCall. Error and a successful Content
// are mutually exclusive.
type TaskResult struct {
	Content        string         `json:"content"`
	SessionID      string         `json:"session_id,omitempty"`
	CorrelationID  string         `json:"correlation_id"`
	TargetIdentity string         `json:"target_identity,omitempty"`
	IsStub         bool           `json:"is_stub"`
	Error          *Error         `json:"error,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Failed builds a result carrying only err and the echoed identifiers.
func Failed(call *TaskCall, correlationID string, err *Error) TaskResult {
	return TaskResult{
		SessionID:     call.SessionID,
		CorrelationID: correlationID,
		Error:         err,
	}
}

// Rejected builds a cycle or depth rejection that reports the offending chain.
func Rejected(call *TaskCall, correlationID string, code Code, format string, args ...any) TaskResult {
	err := NewError(code, format, args...)
	err.CallChain = slices.Clone(call.CallChain)
	return Failed(call, correlationID, err)
}
