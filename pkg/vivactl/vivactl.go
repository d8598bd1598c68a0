// Package vivactl is the embeddable API: a managed engine session plus the
// tool registry, for programs that want the tool surface without the CLI.
package vivactl

import (
	"encoding/json"
	"time"

	"github.com/edaforge/vivactl/config"
	"github.com/edaforge/vivactl/internal/engine"
	"github.com/edaforge/vivactl/internal/envelope"
	"github.com/edaforge/vivactl/internal/tools"
)

// Client owns one engine session and dispatches tool calls against it.
type Client struct {
	session  *engine.Session
	runtime  *tools.Runtime
	registry *tools.Registry
}

// New creates a client from a configuration. The engine process is not
// spawned until Start (or a start_session tool call).
func New(cfg config.Config) *Client {
	session := engine.NewSession(engine.Options{
		Executable:     cfg.Engine.Executable,
		Args:           cfg.Engine.Args,
		Prompt:         cfg.Engine.Prompt,
		StartupTimeout: time.Duration(cfg.Engine.StartupTimeoutSec) * time.Second,
		CommandTimeout: time.Duration(cfg.Engine.CommandTimeoutSec) * time.Second,
	})
	store := envelope.NewStore(cfg.Response.ReportsDir,
		time.Duration(cfg.Response.ReportMaxAgeHours)*time.Hour)
	return &Client{
		session:  session,
		runtime:  tools.NewRuntime(session, store, cfg.Response.MaxChars),
		registry: tools.NewRegistry(),
	}
}

// Start spawns the engine and waits for its first prompt.
func (c *Client) Start() error {
	_, err := c.session.Start()
	return err
}

// Stop shuts the engine down. Safe to call on a stopped client.
func (c *Client) Stop() error {
	return c.session.Stop()
}

// Call dispatches one tool by name with JSON arguments.
func (c *Client) Call(name string, arguments json.RawMessage) (any, error) {
	return c.registry.Dispatch(c.runtime, name, arguments)
}

// Execute runs a raw TCL command on the session, bypassing the tool layer.
func (c *Client) Execute(command string) (*engine.Transaction, error) {
	return c.session.Execute(command)
}

// Status returns the session status snapshot.
func (c *Client) Status() engine.Status {
	return c.session.Status()
}

// Tools lists the registered tools with their argument schemas.
func (c *Client) Tools() []*tools.Tool {
	return c.registry.Tools()
}
