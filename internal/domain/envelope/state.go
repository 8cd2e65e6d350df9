package envelope

// State is the terminal state of one routed call.
type State string

const (
	StateInvalid        State = "INVALID"
	StateCycleRejected  State = "CYCLE_REJECTED" // cycle or depth limit
	StateNotFound       State = "NOT_FOUND"
	StateStubbed        State = "STUBBED"
	StateSucceeded      State = "SUCCEEDED"
	StateTimedOut       State = "TIMED_OUT"
	StateUpstreamFailed State = "UPSTREAM_FAILED"
)

// StateFor maps a result error code to the terminal state it implies. A nil
// error yields "".
func StateFor(err *Error) State {
	if err == nil {
		return ""
	}
	switch err.Code {
	case CodeInvalidEnvelope:
		return StateInvalid
	case CodeCycleDetected, CodeDepthExceeded:
		return StateCycleRejected
	case CodeTargetNotFound:
		return StateNotFound
	case CodeTimeout:
		return StateTimedOut
	default:
		return StateUpstreamFailed
	}
}
