// Package tools exposes every engine operation as a named, schema-described
// callable. Handlers are thin: they build engine commands, run them through
// the session, hand raw text to the report parsers and bound the result in
// an envelope. All engine access goes through the session's execute
// contract; nothing here touches the raw channel.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/sirupsen/logrus"

	"github.com/edaforge/vivactl/internal/engine"
	"github.com/edaforge/vivactl/internal/envelope"
	"github.com/edaforge/vivactl/internal/sim"
)

var ErrUnknownTool = errors.New("unknown tool")

// Engine is the slice of the session contract the tool handlers consume.
// *engine.Session satisfies it; tests substitute a fake.
type Engine interface {
	Start() (*engine.Transaction, error)
	Stop() error
	Execute(command string) (*engine.Transaction, error)
	ExecuteTimeout(command string, timeout time.Duration) (*engine.Transaction, error)
	Interrupt() error
	Status() engine.Status
	Healthy() bool
	EnsureHealthy() (restarted bool, err error)
}

// Runtime carries the shared collaborators handlers operate on.
type Runtime struct {
	Engine   Engine
	Sim      *sim.Controller
	Reports  *envelope.Store
	MaxChars int
	Log      *logrus.Entry

	currentProject string
}

// NewRuntime wires a runtime around a session. maxChars bounds inline
// response content.
func NewRuntime(eng Engine, store *envelope.Store, maxChars int) *Runtime {
	return &Runtime{
		Engine:   eng,
		Sim:      sim.NewController(eng),
		Reports:  store,
		MaxChars: maxChars,
		Log:      logrus.WithField("component", "tools"),
	}
}

// Handler executes one tool call against the runtime.
type Handler func(rt *Runtime, args json.RawMessage) (any, error)

// Tool is one registered operation: a name, a human description, a JSON
// schema reflected from its argument struct, and the handler.
type Tool struct {
	Name        string             `json:"name"`
	Group       string             `json:"group"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"input_schema,omitempty"`

	handler Handler
}

// Registry holds the full tool surface.
type Registry struct {
	byName map[string]*Tool
}

// NewRegistry builds the registry with every tool group registered.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]*Tool)}
	registerSessionTools(r)
	registerProjectTools(r)
	registerFlowTools(r)
	registerReportTools(r)
	registerQueryTools(r)
	registerSimulationTools(r)
	registerFileTools(r)
	return r
}

// register adds one tool. argsProto is a pointer to the tool's argument
// struct, used only for schema reflection; nil means no arguments.
func (r *Registry) register(name, group, description string, argsProto any, h Handler) {
	if _, exists := r.byName[name]; exists {
		panic(fmt.Sprintf("duplicate tool %q", name))
	}
	r.byName[name] = &Tool{
		Name:        name,
		Group:       group,
		Description: description,
		InputSchema: schemaFor(argsProto),
		handler:     h,
	}
}

// Tools returns all tools sorted by group then name.
func (r *Registry) Tools() []*Tool {
	out := make([]*Tool, 0, len(r.byName))
	for _, t := range r.byName {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Dispatch runs the named tool with raw JSON arguments.
func (r *Registry) Dispatch(rt *Runtime, name string, args json.RawMessage) (any, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t.handler(rt, args)
}

// schemaFor reflects a JSON schema from an argument struct prototype.
func schemaFor(argsProto any) *jsonschema.Schema {
	if argsProto == nil {
		return nil
	}
	r := &jsonschema.Reflector{
		Anonymous:                 true,
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	return r.Reflect(argsProto)
}

// decodeArgs unmarshals raw tool arguments into the handler's struct.
// Missing or empty arguments leave the struct at its defaults.
func decodeArgs(args json.RawMessage, into any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, into); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
