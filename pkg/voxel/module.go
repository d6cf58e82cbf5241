package voxel

// Module is a pluggable engine component that receives inbound wire
// messages. chunkservice.Service and entity.Module implement it; the other
// components (registry, analyzers, resolvers, physics) are plain types the
// host constructs and calls directly.
type Module interface {
	// Name returns a unique key for this module (e.g. "chunkservice", "entity").
	Name() string
	// Init is called once when the module is registered on a client. The
	// module should store the *Client reference for later collaborator
	// lookups via Client.Module, never hold a back-pointer to another
	// module directly (§9 Design Notes: replace cyclic references with
	// handle lookups through a registry).
	Init(c *Client)
	// HandleMessage is called for every inbound wire message, in the order
	// received (§5 ordering guarantees).
	HandleMessage(msg *Message)
	// Reset clears all module state, e.g. on reconnect.
	Reset()
}

// Handler is a lightweight message callback for one-off matching, mirroring
// the teacher's packet Handler escape hatch.
type Handler func(c *Client, msg *Message)
