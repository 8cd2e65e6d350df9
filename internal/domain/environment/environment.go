// Package environment defines the static per-environment safety profiles
// consulted by the deployment readiness gate.
package environment

import (
	"fmt"
	"sort"
)

// Well-known environment names.
const (
	Dev     = "dev"
	Staging = "staging"
	Prod    = "prod"
)

// Profile is the read-only safety configuration of one environment.
type Profile struct {
	Name                        string `yaml:"name" json:"name"`
	AllowPlaceholderIdentifiers bool   `yaml:"allow_placeholder_identifiers" json:"allow_placeholder_identifiers"`
	RequireManualApproval       bool   `yaml:"require_manual_approval" json:"require_manual_approval"`
}

// Validate checks that a Profile is well-formed.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("environment: name is required")
	}
	return nil
}

// Table maps environment names to profiles. It is built once at startup
// and never written afterwards.
type Table map[string]Profile

// Defaults returns the compiled-in profiles: dev allows placeholders,
// staging forbids them, prod forbids them and requires manual approval.
func Defaults() Table {
	return Table{
		Dev:     {Name: Dev, AllowPlaceholderIdentifiers: true},
		Staging: {Name: Staging},
		Prod:    {Name: Prod, RequireManualApproval: true},
	}
}

// Lookup returns the profile for name.
func (t Table) Lookup(name string) (Profile, bool) {
	p, ok := t[name]
	return p, ok
}

// Names returns the configured environment names in sorted order.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for n := range t {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
