// Package readiness defines the outcome of a deployment readiness check.
package readiness

// Status is the overall verdict of a readiness check.
type Status string

const (
	StatusReady         Status = "READY"
	StatusMisconfigured Status = "MISCONFIGURED"
	StatusUnsafe        Status = "UNSAFE"
)

// ExitCode maps a status onto the process exit convention:
// 0 ready, 1 misconfigured, 2 unsafe.
func (s Status) ExitCode() int {
	switch s {
	case StatusReady:
		return 0
	case StatusUnsafe:
		return 2
	default:
		return 1
	}
}

// Layer names one of the four checks, in evaluation order.
type Layer string

const (
	LayerEnvVars        Layer = "env_vars"
	LayerSourcePackages Layer = "source_packages"
	LayerEntrypoint     Layer = "entrypoint"
	LayerSafetyPolicy   Layer = "safety_policy"
)

// Layers lists every layer in the order they are evaluated.
var Layers = []Layer{LayerEnvVars, LayerSourcePackages, LayerEntrypoint, LayerSafetyPolicy}

// Result is created fresh for every check and never persisted.
type Result struct {
	Status      Status   `json:"status"`
	FailedLayer Layer    `json:"failed_layer,omitempty"`
	Details     []string `json:"details"`
}

// Ready reports whether every layer passed.
func (r *Result) Ready() bool { return r.Status == StatusReady }
