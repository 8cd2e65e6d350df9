// Package resolver decides per role and environment whether a task call is
// routed live or answered with a stub. Anything not explicitly enabled is
// disabled.
package resolver

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Table maps role -> environment -> live.
type Table map[string]map[string]bool

// Resolver is an immutable view over a Table.
type Resolver struct {
	table Table
}

// New copies table into a Resolver; later changes to table are not observed.
func New(table Table) *Resolver {
	cp := make(Table, len(table))
	for role, envs := range table {
		inner := make(map[string]bool, len(envs))
		for env, live := range envs {
			inner[env] = live
		}
		cp[role] = inner
	}
	return &Resolver{table: cp}
}

// IsLive reports whether role is enabled for live routing in env.
func (r *Resolver) IsLive(role, env string) bool {
	return r.table[role][env]
}

// Enabled returns the roles live in env, sorted.
func (r *Resolver) Enabled(env string) []string {
	var roles []string
	for role, envs := range r.table {
		if envs[env] {
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)
	return roles
}

type fileFormat struct {
	Roles Table `yaml:"roles"`
}

// LoadFromFile builds a Resolver from a YAML document of the form
//
//	roles:
//	  bob:
//	    dev: true
//	    staging: true
//
// A missing file yields a resolver with every pair disabled.
func LoadFromFile(path string) (*Resolver, error) {
	if path == "" {
		return New(nil), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(nil), nil
		}
		return nil, fmt.Errorf("read features file %s: %w", path, err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse features file %s: %w", path, err)
	}
	for role := range f.Roles {
		if role == "" {
			return nil, fmt.Errorf("features file %s: empty role name", path)
		}
	}
	return New(f.Roles), nil
}
