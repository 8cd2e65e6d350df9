package environment

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileFormat struct {
	Environments []Profile `yaml:"environments"`
}

// LoadFromFile reads profiles from a YAML file and overlays them on the
// compiled defaults. A missing file yields the defaults unchanged.
func LoadFromFile(path string) (Table, error) {
	table := Defaults()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return table, nil
		}
		return nil, fmt.Errorf("read environments file %s: %w", path, err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse environments file %s: %w", path, err)
	}

	for i := range f.Environments {
		p := f.Environments[i]
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("environments file %s: entry[%d]: %w", path, i, err)
		}
		table[p.Name] = p
	}
	return table, nil
}
