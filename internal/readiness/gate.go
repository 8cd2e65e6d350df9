// Package readiness implements the four-layer pre-flight check run before
// an agent may be deployed to an environment.
package readiness

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Strob0t/a2agate/internal/config"
	"github.com/Strob0t/a2agate/internal/domain/environment"
	rd "github.com/Strob0t/a2agate/internal/domain/readiness"
)

// Request is one readiness check.
type Request struct {
	AgentName      string
	Environment    string
	EnvVars        map[string]string
	SourcePackages []string // checked in addition to the configured ones
	Approved       bool
}

// Gate evaluates readiness against tables loaded once at startup. It holds
// no mutable state and is safe for concurrent use.
type Gate struct {
	repoRoot       string
	projectEnv     string
	locationEnv    string
	placeholders   []string
	sourcePackages []string
	entrypoints    Entrypoints
	environments   environment.Table
}

// NewGate creates a Gate from config and the static tables.
func NewGate(cfg config.Readiness, eps Entrypoints, envs environment.Table) *Gate {
	placeholders := make([]string, 0, len(cfg.PlaceholderPatterns))
	for _, p := range cfg.PlaceholderPatterns {
		if p = strings.TrimSpace(p); p != "" {
			placeholders = append(placeholders, strings.ToLower(p))
		}
	}
	root := cfg.RepoRoot
	if root == "" {
		root = "."
	}
	return &Gate{
		repoRoot:       root,
		projectEnv:     cfg.ProjectEnv,
		locationEnv:    cfg.LocationEnv,
		placeholders:   placeholders,
		sourcePackages: slices.Clone(cfg.SourcePackages),
		entrypoints:    eps,
		environments:   envs,
	}
}

// layerCheck returns problems (non-empty fails the layer) and notes.
type layerCheck func(req *Request) (status rd.Status, problems, notes []string)

// Check runs every layer in order and stops at the first failure.
func (g *Gate) Check(req Request) rd.Result {
	checks := map[rd.Layer]layerCheck{
		rd.LayerEnvVars:        g.checkEnvVars,
		rd.LayerSourcePackages: g.checkSourcePackages,
		rd.LayerEntrypoint:     g.checkEntrypoint,
		rd.LayerSafetyPolicy:   g.checkSafetyPolicy,
	}

	res := rd.Result{Status: rd.StatusReady, Details: []string{}}
	for _, layer := range rd.Layers {
		status, problems, notes := checks[layer](&req)
		for _, n := range notes {
			res.Details = append(res.Details, fmt.Sprintf("%s: %s", layer, n))
		}
		if len(problems) > 0 {
			for _, p := range problems {
				res.Details = append(res.Details, fmt.Sprintf("%s: %s", layer, p))
			}
			res.Status = status
			res.FailedLayer = layer
			slog.Debug("readiness layer failed", "agent", req.AgentName, "environment", req.Environment, "layer", string(layer))
			return res
		}
		slog.Debug("readiness layer passed", "agent", req.AgentName, "environment", req.Environment, "layer", string(layer))
	}
	return res
}

func (g *Gate) checkEnvVars(req *Request) (rd.Status, []string, []string) {
	var problems []string
	for _, name := range []string{g.projectEnv, g.locationEnv} {
		if strings.TrimSpace(req.EnvVars[name]) == "" {
			problems = append(problems, fmt.Sprintf("required variable %s is not set", name))
		}
	}
	return rd.StatusMisconfigured, problems, nil
}

func (g *Gate) checkSourcePackages(req *Request) (rd.Status, []string, []string) {
	paths := slices.Concat(g.sourcePackages, req.SourcePackages)
	if ep, ok := g.entrypoints[req.AgentName]; ok {
		paths = append(paths, ep.SourcePackages...)
	}

	var problems []string
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		if !filepath.IsLocal(p) {
			problems = append(problems, fmt.Sprintf("source package %s is not inside the repository", p))
			continue
		}
		if !isDir(filepath.Join(g.repoRoot, p)) {
			problems = append(problems, fmt.Sprintf("source package %s is missing or not a directory", p))
		}
	}
	return rd.StatusMisconfigured, problems, nil
}

func (g *Gate) checkEntrypoint(req *Request) (rd.Status, []string, []string) {
	fail := func(format string, args ...any) (rd.Status, []string, []string) {
		return rd.StatusMisconfigured, []string{fmt.Sprintf(format, args...)}, nil
	}

	ep, ok := g.entrypoints[req.AgentName]
	if !ok {
		known := make([]string, 0, len(g.entrypoints))
		for name := range g.entrypoints {
			known = append(known, name)
		}
		slices.Sort(known)
		return fail("unknown agent %q (known: %s)", req.AgentName, strings.Join(known, ", "))
	}
	if !filepath.IsLocal(ep.Package) {
		return fail("entrypoint package %s is not inside the repository", ep.Package)
	}
	dir := filepath.Join(g.repoRoot, ep.Package)
	if !isDir(dir) {
		return fail("entrypoint package %s does not exist", ep.Package)
	}

	info, err := inspectPackage(dir)
	if err != nil {
		return fail("import %s: %v", ep.Package, err)
	}
	module, err := modulePath(g.repoRoot)
	if err != nil {
		return fail("import %s: %v", ep.Package, err)
	}

	var notes, problems []string
	optional := make(map[string]bool, len(ep.Optional))
	for _, p := range ep.Optional {
		optional[p] = true
	}
	for _, imp := range sortedUnion(info.imports, ep.Optional) {
		d, local := localDir(g.repoRoot, module, imp)
		if !local || isDir(d) {
			continue
		}
		if optional[imp] {
			notes = append(notes, fmt.Sprintf("warning: optional dependency %s is not available", imp))
			continue
		}
		problems = append(problems, fmt.Sprintf("import %s: required dependency %s is missing", ep.Package, imp))
	}
	if len(problems) > 0 {
		return rd.StatusMisconfigured, problems, notes
	}

	if !info.decls[ep.Object] {
		return rd.StatusMisconfigured,
			[]string{fmt.Sprintf("entrypoint object %s not found in %s", ep.Object, ep.Package)}, notes
	}
	return rd.StatusMisconfigured, nil, notes
}

func (g *Gate) checkSafetyPolicy(req *Request) (rd.Status, []string, []string) {
	profile, ok := g.environments.Lookup(req.Environment)
	if !ok {
		return rd.StatusMisconfigured, []string{fmt.Sprintf("unknown environment %q (known: %s)",
			req.Environment, strings.Join(g.environments.Names(), ", "))}, nil
	}

	var problems []string
	if !profile.AllowPlaceholderIdentifiers {
		project := req.EnvVars[g.projectEnv]
		if pattern, hit := g.matchPlaceholder(project); hit {
			problems = append(problems, fmt.Sprintf("%s=%q matches placeholder pattern %q, which %s forbids",
				g.projectEnv, project, pattern, profile.Name))
		}
	}
	if profile.RequireManualApproval && !req.Approved {
		problems = append(problems, fmt.Sprintf("%s requires manual approval", profile.Name))
	}
	return rd.StatusUnsafe, problems, nil
}

func (g *Gate) matchPlaceholder(v string) (string, bool) {
	lv := strings.ToLower(v)
	for _, p := range g.placeholders {
		if strings.Contains(lv, p) {
			return p, true
		}
	}
	return "", false
}

func sortedUnion(a, b []string) []string {
	out := slices.Concat(a, b)
	slices.Sort(out)
	return slices.Compact(out)
}
