package readiness

import (
	"fmt"
	"io"

	rd "github.com/Strob0t/a2agate/internal/domain/readiness"
)

const (
	ansiReset = "\033[0m"
	ansiGreen = "\033[32m"
	ansiRed   = "\033[31m"
	ansiAmber = "\033[33m"
)

// WriteReport prints a human-readable report of res. color adds ANSI
// highlighting of the verdict.
func WriteReport(w io.Writer, req *Request, res *rd.Result, color bool) error {
	verdict := string(res.Status)
	if color {
		verdict = statusColor(res.Status) + verdict + ansiReset
	}

	if _, err := fmt.Fprintf(w, "readiness check: agent=%s environment=%s\n", req.AgentName, req.Environment); err != nil {
		return err
	}
	for _, layer := range rd.Layers {
		mark := "ok"
		switch {
		case res.FailedLayer == layer:
			mark = "FAIL"
		case res.FailedLayer != "" && layerAfter(layer, res.FailedLayer):
			mark = "skipped"
		}
		if _, err := fmt.Fprintf(w, "  %-16s %s\n", layer, mark); err != nil {
			return err
		}
	}
	for _, d := range res.Details {
		if _, err := fmt.Fprintf(w, "  - %s\n", d); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "result: %s (exit %d)\n", verdict, res.Status.ExitCode())
	return err
}

func statusColor(s rd.Status) string {
	switch s {
	case rd.StatusReady:
		return ansiGreen
	case rd.StatusUnsafe:
		return ansiRed
	default:
		return ansiAmber
	}
}

// layerAfter reports whether a is evaluated after b.
func layerAfter(a, b rd.Layer) bool {
	ia, ib := -1, -1
	for i, l := range rd.Layers {
		switch l {
		case a:
			ia = i
		case b:
			ib = i
		}
	}
	return ia > ib
}
