package messagequeue

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		data    string
		wantErr string
	}{
		{"route ok", RouteSubject("ROUTED"), `{"correlation_id":"c","state":"ROUTED","target_role":"bob"}`, ""},
		{"route missing state", RouteSubject("ROUTED"), `{"correlation_id":"c"}`, "required"},
		{"route state mismatch", RouteSubject("CYCLE"), `{"correlation_id":"c","state":"ROUTED"}`, "carries state"},
		{"route wrong type", RouteSubject("ROUTED"), `{"correlation_id":1}`, "schema validation failed"},
		{"registry ok", SubjectRegistry + ".published", `{"environment":"dev","role":"bob"}`, ""},
		{"invalid json", RouteSubject("ROUTED"), `{`, "invalid JSON"},
		{"unknown subject", "other.thing", `{"x":1}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.subject, []byte(tt.data))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRouteSubject(t *testing.T) {
	if got := RouteSubject("STUB"); got != "a2a.routes.STUB" {
		t.Errorf("unexpected subject %q", got)
	}
}
