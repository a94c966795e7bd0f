// Package catalog is the registry of tools advertised to the model: each tool
// carries a JSON-schema signature and a handler that turns parsed arguments
// into a string result.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Schema is the parameter spec handed to the model verbatim:
// {type: "object", properties: {...}, required: [...]}.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes one tool parameter.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Default     any      `json:"default,omitempty"`
}

// ObjectSchema builds the standard object schema shape.
func ObjectSchema(properties map[string]Property, required ...string) Schema {
	if properties == nil {
		properties = map[string]Property{}
	}
	return Schema{Type: "object", Properties: properties, Required: required}
}

// Handler executes a tool against its raw JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// Tool pairs a signature with its handler.
type Tool struct {
	Name        string
	Description string
	Parameters  Schema
	Handler     Handler
}

// Spec is the wire shape of one tool signature.
type Spec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// Catalog is an ordered tool registry. Register everything at startup; the
// catalog is read-only afterwards and safe for concurrent dispatch.
type Catalog struct {
	tools []Tool
	index map[string]int
}

// New validates and registers the given tools. Duplicate or unnamed tools and
// non-object schemas are construction errors so that a bad registry never
// reaches the model.
func New(tools ...Tool) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(tools))}
	for _, t := range tools {
		if err := c.register(t); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool with empty name")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s has no handler", t.Name)
	}
	if t.Parameters.Type != "object" {
		return fmt.Errorf("tool %s: parameters must be an object schema", t.Name)
	}
	if _, exists := c.index[t.Name]; exists {
		return fmt.Errorf("tool %s registered twice", t.Name)
	}
	c.index[t.Name] = len(c.tools)
	c.tools = append(c.tools, t)
	return nil
}

// Specs returns the signatures to advertise, in registration order.
func (c *Catalog) Specs() []Spec {
	out := make([]Spec, len(c.tools))
	for i, t := range c.tools {
		out[i] = Spec{Name: t.Name, Description: t.Description, Parameters: t.Parameters}
	}
	return out
}

// Dispatch runs the named tool. The second return reports whether a result
// should be submitted at all: an unknown tool or malformed JSON arguments are
// skipped (logged) rather than failing the run, and skipped calls contribute
// nothing to the result batch.
func (c *Catalog) Dispatch(ctx context.Context, name string, rawArgs string) (string, bool) {
	i, ok := c.index[name]
	if !ok {
		log.Warn().Str("tool", name).Msg("model requested unknown tool, skipping")
		return "", false
	}

	args := json.RawMessage(rawArgs)
	if rawArgs == "" {
		args = json.RawMessage("{}")
	}
	if !json.Valid(args) {
		log.Warn().Str("tool", name).Str("args", rawArgs).
			Msg("malformed tool arguments, skipping call")
		return "", false
	}

	out, err := c.tools[i].Handler(ctx, args)
	if err != nil {
		// Tool-level failures flow back to the model as prose so the
		// conversation can continue.
		log.Error().Err(err).Str("tool", name).Msg("tool execution failed")
		return fmt.Sprintf("Ocurrió un error: %v", err), true
	}
	return out, true
}
