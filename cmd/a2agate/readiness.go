package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Strob0t/a2agate/internal/config"
	"github.com/Strob0t/a2agate/internal/domain/environment"
	"github.com/Strob0t/a2agate/internal/readiness"
)

// exitUsage is returned for bad flags or unloadable configuration. It is
// the same code as MISCONFIGURED.
const exitUsage = 1

// runReadiness runs the readiness gate and returns the process exit code.
func runReadiness(args []string) int {
	code, err := readinessMain(args, os.Stdout, os.Stderr, environ())
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "readiness: %v\n", err)
		}
		return exitUsage
	}
	return code
}

func readinessMain(args []string, stdout, stderr io.Writer, env map[string]string) (int, error) {
	fs := flag.NewFlagSet("readiness", flag.ContinueOnError)
	fs.SetOutput(stderr)
	agent := fs.String("agent-name", "", "agent to check (required)")
	envName := fs.String("env", "", "target environment (required)")
	approve := fs.Bool("approve", false, "record explicit manual approval")
	repoRoot := fs.String("repo-root", "", "repository root (default: config readiness.repo_root)")
	pkgs := fs.String("source-packages", "", "comma-separated extra source package directories")
	if err := fs.Parse(args); err != nil {
		return exitUsage, err
	}
	if *agent == "" || *envName == "" {
		fs.Usage()
		return exitUsage, errors.New("--agent-name and --env are required")
	}

	cfg, err := config.Load()
	if err != nil {
		return exitUsage, fmt.Errorf("load config: %w", err)
	}
	if *repoRoot != "" {
		cfg.Readiness.RepoRoot = *repoRoot
	}

	eps, err := readiness.LoadEntrypoints(cfg.Readiness.EntrypointsFile)
	if err != nil {
		return exitUsage, err
	}
	envs, err := environment.LoadFromFile(cfg.Environments.File)
	if err != nil {
		return exitUsage, err
	}

	gate := readiness.NewGate(cfg.Readiness, eps, envs)
	req := readiness.Request{
		AgentName:      *agent,
		Environment:    *envName,
		EnvVars:        env,
		SourcePackages: splitList(*pkgs),
		Approved:       *approve,
	}
	res := gate.Check(req)

	if err := readiness.WriteReport(stdout, &req, &res, isTerminal(stdout)); err != nil {
		return exitUsage, err
	}
	return res.Status.ExitCode(), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: fd fits in int
}

func environ() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
