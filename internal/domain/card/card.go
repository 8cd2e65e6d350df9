// Package card defines the AgentCard capability descriptor published by every
// agent role and the rules a card must satisfy before a registry accepts it.
package card

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"

	"github.com/a2aproject/a2a-go/a2a"
)

// ProtocolVersion is the card protocol version this build understands.
const ProtocolVersion = "0.3.0"

// jsonMode is the media type advertised for every skill's input and output.
const jsonMode = "application/json"

// AgentCard is an immutable capability descriptor. Cards are replaced
// wholesale on redeploy and never mutated in place.
type AgentCard struct {
	Name            string                `json:"name"`
	Description     string                `json:"description,omitempty"`
	ProtocolVersion string                `json:"protocol_version"`
	AgentVersion    string                `json:"agent_version"`
	Identity        string                `json:"identity"`
	BaseAddress     string                `json:"base_address"`
	Skills          []Skill               `json:"skills"`
	Capabilities    a2a.AgentCapabilities `json:"capabilities"`
}

// Skill is one advertised operation of an agent.
type Skill struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	InputShape  json.RawMessage `json:"input_shape"`
	OutputShape json.RawMessage `json:"output_shape"`
	Tags        []string        `json:"tags,omitempty"`
}

// Clone returns a deep copy so callers can never alias registry state.
func (c *AgentCard) Clone() AgentCard {
	out := *c
	out.Skills = make([]Skill, len(c.Skills))
	for i := range c.Skills {
		out.Skills[i] = c.Skills[i].clone()
	}
	if c.Capabilities.Extensions != nil {
		out.Capabilities.Extensions = make([]a2a.AgentExtension, len(c.Capabilities.Extensions))
		for i, ext := range c.Capabilities.Extensions {
			ext.Params = maps.Clone(ext.Params)
			out.Capabilities.Extensions[i] = ext
		}
	}
	return out
}

func (s *Skill) clone() Skill {
	out := *s
	out.InputShape = bytes.Clone(s.InputShape)
	out.OutputShape = bytes.Clone(s.OutputShape)
	out.Tags = slices.Clone(s.Tags)
	return out
}

// ToA2A projects the card onto the A2A protocol's agent card document.
func (c *AgentCard) ToA2A() a2a.AgentCard {
	skills := make([]a2a.AgentSkill, 0, len(c.Skills))
	for i := range c.Skills {
		s := &c.Skills[i]
		tags := slices.Clone(s.Tags)
		if tags == nil {
			tags = []string{}
		}
		skills = append(skills, a2a.AgentSkill{
			ID:          s.ID,
			Name:        s.ID,
			Description: s.Description,
			Tags:        tags,
			InputModes:  []string{jsonMode},
			OutputModes: []string{jsonMode},
		})
	}
	return a2a.AgentCard{
		Name:               c.Name,
		Description:        c.Description,
		URL:                c.BaseAddress,
		Version:            c.AgentVersion,
		ProtocolVersion:    c.ProtocolVersion,
		Capabilities:       c.Capabilities,
		Skills:             skills,
		DefaultInputModes:  []string{jsonMode},
		DefaultOutputModes: []string{jsonMode},
	}
}
