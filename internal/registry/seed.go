package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Strob0t/a2agate/internal/domain/card"
)

type seedFile struct {
	Cards []seedEntry `yaml:"cards"`
}

type seedEntry struct {
	Environment string         `yaml:"environment"`
	Card        map[string]any `yaml:"card"`
}

// PublishFile publishes every card listed in a YAML seed file. Cards use
// the same field names as the JSON document. A missing file is not an error.
func (r *Registry) PublishFile(ctx context.Context, path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read cards file %s: %w", path, err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return 0, fmt.Errorf("parse cards file %s: %w", path, err)
	}

	for i, se := range f.Cards {
		// Round-trip through JSON so shapes land as json.RawMessage.
		raw, err := json.Marshal(se.Card)
		if err != nil {
			return i, fmt.Errorf("cards file %s: entry[%d]: %w", path, i, err)
		}
		var c card.AgentCard
		if err := json.Unmarshal(raw, &c); err != nil {
			return i, fmt.Errorf("cards file %s: entry[%d]: %w", path, i, err)
		}
		if err := r.Publish(ctx, se.Environment, &c); err != nil {
			return i, fmt.Errorf("cards file %s: entry[%d]: %w", path, i, err)
		}
	}
	return len(f.Cards), nil
}
