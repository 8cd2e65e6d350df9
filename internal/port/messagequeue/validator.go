package messagequeue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	switch {
	case strings.HasPrefix(subject, SubjectRoutes+"."):
		var p RouteEventPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.CorrelationID == "" || p.State == "" {
			return fmt.Errorf("schema validation failed for %s: %w", subject,
				errors.New("correlation_id and state are required"))
		}
		if want := strings.TrimPrefix(subject, SubjectRoutes+"."); p.State != want {
			return fmt.Errorf("subject %s carries state %s", subject, p.State)
		}
	case strings.HasPrefix(subject, SubjectRegistry+"."):
		var p RegistryEventPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
	}
	return nil
}
