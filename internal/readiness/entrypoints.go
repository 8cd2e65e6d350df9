package readiness

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Entrypoint locates an agent's code inside the repository.
type Entrypoint struct {
	Package        string   `yaml:"package"`         // directory relative to the repository root
	Object         string   `yaml:"object"`          // top-level declaration that must exist
	Optional       []string `yaml:"optional"`        // import paths whose absence is only a warning
	SourcePackages []string `yaml:"source_packages"` // extra directories checked for this agent
}

// Entrypoints maps agent names to their entrypoint.
type Entrypoints map[string]Entrypoint

type entrypointsFile struct {
	Agents Entrypoints `yaml:"agents"`
}

// LoadEntrypoints reads a YAML document of the form
//
//	agents:
//	  bob:
//	    package: agents/bob
//	    object: NewAgent
//	    optional: [example.com/agents/internal/tracing]
//
// A missing file yields an empty table, which makes every agent unknown.
func LoadEntrypoints(path string) (Entrypoints, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Entrypoints{}, nil
		}
		return nil, fmt.Errorf("read entrypoints file %s: %w", path, err)
	}

	var f entrypointsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse entrypoints file %s: %w", path, err)
	}
	for name, ep := range f.Agents {
		if ep.Package == "" || ep.Object == "" {
			return nil, fmt.Errorf("entrypoints file %s: agent %q needs package and object", path, name)
		}
	}
	if f.Agents == nil {
		f.Agents = Entrypoints{}
	}
	return f.Agents, nil
}
