package voxel

import (
	"log"
	"os"
)

// Config carries the startup parameters every module needs: render/unload
// distance, chunk geometry, and world bounds (§6 "Persisted state... arrives
// at startup via a ClientConfig record").
type Config struct {
	ChunkSize      int
	RenderDistance int32
	UnloadDistance int32
	WorldMinY      int
	WorldMaxY      int
	// MaxClimbHeight caps the slope an entity always steps over without
	// triggering the full auto-climb decision (§4.4 step 5).
	MaxClimbHeight float64
}

// DefaultConfig mirrors the defaults named throughout §4.
func DefaultConfig() Config {
	return Config{
		ChunkSize:      16,
		RenderDistance: 8,
		UnloadDistance: 10,
		WorldMinY:      -64,
		WorldMaxY:      320,
		MaxClimbHeight: 0.1,
	}
}

// Client is the DI container and module registry the engine is built around.
// It owns no network transport and no REST plumbing — those are external
// collaborators (§1) injected into the modules that need them; Client only
// fans inbound wire messages out to registered modules and lets modules look
// each other up by name instead of holding back-pointers (§9 Design Notes).
type Client struct {
	Config Config
	Logger *log.Logger

	modules       []Module
	modulesByName map[string]Module
	handlers      []Handler
}

// New creates a client with the given config. Register modules before
// feeding it messages.
func New(cfg Config) *Client {
	return &Client{
		Config:        cfg,
		Logger:        log.New(os.Stdout, "", log.LstdFlags),
		modulesByName: make(map[string]Module),
	}
}

// Register adds a module to the client. Panics on duplicate name — a
// programming error, not a runtime condition.
func (c *Client) Register(m Module) {
	if _, exists := c.modulesByName[m.Name()]; exists {
		panic("module already registered: " + m.Name())
	}
	c.modules = append(c.modules, m)
	c.modulesByName[m.Name()] = m
	m.Init(c)
}

// Module returns a registered module by name, or nil.
func (c *Client) Module(name string) Module {
	return c.modulesByName[name]
}

// RegisterHandler appends a lightweight message callback (escape hatch for
// callers that don't want a full Module).
func (c *Client) RegisterHandler(h Handler) {
	c.handlers = append(c.handlers, h)
}

// Dispatch feeds one inbound wire message to every registered module, in
// registration order, then to the lightweight handlers. This is the single
// point of mutation the whole engine funnels through (§5 single-actor
// invariant): modules must not call Dispatch recursively from inside
// HandleMessage.
func (c *Client) Dispatch(msg *Message) {
	for _, m := range c.modules {
		m.HandleMessage(msg)
	}
	for _, h := range c.handlers {
		h(c, msg)
	}
}

// ResetAll resets every registered module, e.g. before a reconnect.
func (c *Client) ResetAll() {
	for _, m := range c.modules {
		m.Reset()
	}
}
