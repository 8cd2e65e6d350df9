package readiness

import (
	"bytes"
	"strings"
	"testing"

	rd "github.com/Strob0t/a2agate/internal/domain/readiness"
)

func TestWriteReport(t *testing.T) {
	req := &Request{AgentName: "bob", Environment: "prod"}
	res := &rd.Result{
		Status:      rd.StatusUnsafe,
		FailedLayer: rd.LayerSafetyPolicy,
		Details:     []string{"safety_policy: prod requires manual approval"},
	}

	var buf bytes.Buffer
	if err := WriteReport(&buf, req, res, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"agent=bob environment=prod", "env_vars", "safety_policy", "FAIL", "manual approval", "result: UNSAFE (exit 2)"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("uncolored report must not contain escape codes")
	}
}

func TestWriteReportMarksSkippedLayers(t *testing.T) {
	res := &rd.Result{Status: rd.StatusMisconfigured, FailedLayer: rd.LayerSourcePackages}
	var buf bytes.Buffer
	if err := WriteReport(&buf, &Request{AgentName: "bob", Environment: "dev"}, res, true); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Count(out, "skipped") != 2 {
		t.Errorf("expected entrypoint and safety_policy skipped:\n%s", out)
	}
	if !strings.Contains(out, ansiAmber+"MISCONFIGURED"+ansiReset) {
		t.Errorf("expected colored verdict:\n%s", out)
	}
}
