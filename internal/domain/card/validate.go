package card

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/Strob0t/a2agate/internal/domain"
)

// skillIDPattern matches {department}.{verb}_{noun}.
var skillIDPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*\.[a-z][a-z0-9]*_[a-z0-9_]+$`)

// ValidationError lists every invariant a card violates.
type ValidationError struct {
	Card     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("agent card %q: %s", e.Card, strings.Join(e.Problems, "; "))
}

// Unwrap lets callers match domain.ErrValidation.
func (e *ValidationError) Unwrap() error { return domain.ErrValidation }

// ValidSkillID reports whether id has the {department}.{verb}_{noun} form.
func ValidSkillID(id string) bool {
	return skillIDPattern.MatchString(id)
}

// Validate checks the card against the invariants a registry running
// protocolVersion enforces. It returns nil or a *ValidationError.
func (c *AgentCard) Validate(protocolVersion string) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Name == "" {
		add("name is required")
	}
	if c.ProtocolVersion != protocolVersion {
		add("protocol_version %q is not supported (want %q)", c.ProtocolVersion, protocolVersion)
	}
	if !validSemver(c.AgentVersion) {
		add("agent_version %q is not a semantic version", c.AgentVersion)
	}
	if !validIdentity(c.Identity) {
		add("identity %q is not an absolute hierarchical URI", c.Identity)
	}
	if !validAddress(c.BaseAddress) {
		add("base_address %q is not an http(s) URL", c.BaseAddress)
	}

	if len(c.Skills) == 0 {
		add("skills must not be empty")
	}
	seen := make(map[string]bool, len(c.Skills))
	for i := range c.Skills {
		s := &c.Skills[i]
		if !ValidSkillID(s.ID) {
			add("skill[%d]: id %q must match {department}.{verb}_{noun}", i, s.ID)
		}
		if seen[s.ID] {
			add("skill[%d]: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = true
		if emptyShape(s.InputShape) {
			add("skill[%d]: input_shape is empty", i)
		}
		if emptyShape(s.OutputShape) {
			add("skill[%d]: output_shape is empty", i)
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Card: c.Name, Problems: problems}
	}
	return nil
}

func validSemver(v string) bool {
	if v == "" {
		return false
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	// semver.IsValid accepts the shorthand "v1" and "v1.2"; cards must be complete.
	core := v
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		core = v[:i]
	}
	return semver.IsValid(v) && strings.Count(core, ".") == 2
}

func validIdentity(id string) bool {
	u, err := url.Parse(id)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != "" && strings.Trim(u.Path, "/") != ""
}

func validAddress(addr string) bool {
	u, err := url.Parse(addr)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// emptyShape treats missing, null and structurally empty JSON as empty.
func emptyShape(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "{}", "[]", `""`:
		return true
	}
	return false
}
