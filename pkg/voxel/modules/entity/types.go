// Package entity implements the Entity Service (C8): lazy REST-backed
// entity/model caches with LRU eviction, pathway-driven waypoint
// interpolation, proximity/visibility evaluation, and step-sound gating
// (§4.8). It is grounded on the teacher's entities.Module shape — a
// mutex-guarded map plus OnXxx callback slices fed by a single dispatch
// point — generalized from Minecraft's push-only entity packets to a
// cache that must itself go fetch what it doesn't have, age entries out,
// and interpolate positions between server-authored waypoints instead of
// applying a move delta directly.
package entity

import (
	"time"

	"github.com/go-mclib/voxelcore/pkg/voxel"
)

// ModuleName is this module's registry key.
const ModuleName = "entity"

// Rotation is yaw plus an optional pitch (§3 "Entity pathway": `{y, p?}`).
type Rotation struct {
	Yaw   float64
	Pitch *float64
}

// Waypoint is one ordered stop in an entity pathway (§3).
type Waypoint struct {
	Target    voxel.Vector3
	Rotation  Rotation
	Timestamp int64 // epoch milliseconds
	Pose      *int
}

// Pathway is the server-authored waypoint sequence for one entity (§3
// "Entity pathway", §6 ENTITY_PATHWAY).
type Pathway struct {
	EntityID       string
	Waypoints      []Waypoint
	IdlePose       int
	PhysicsEnabled bool
	Velocity       *voxel.Vector3
}

// EntityModel is the render-relevant model record fetched from
// GET /entitymodel/{id} (§6); the core only needs its identity to cache and
// hand to the out-of-scope rendering collaborator.
type EntityModel struct {
	ID   string
	Name string
}

// Record is the server entity record fetched from GET /entity/{id} (§6),
// the seed state for a newly-observed ClientEntity.
type Record struct {
	ID                     string
	ModelID                string
	Position               voxel.Vector3
	Rotation               Rotation
	Dimensions             voxel.Dimensions
	Solid                  bool
	NotifyOnAttentionRange *float64
}

// ClientEntity is the cached, live-updated view of one entity (§3 "Client
// entity"): identity, model, current transform, current waypoints, and the
// bookkeeping the interpolator/LRU need.
type ClientEntity struct {
	ID         string
	ModelID    string
	Position   voxel.Vector3
	Rotation   Rotation
	Pose       int
	Dimensions voxel.Dimensions
	Solid      bool

	AttentionRange *float64

	Waypoints     []Waypoint
	WaypointIndex int

	PhysicsEnabled bool
	Velocity       voxel.Vector3

	Visible bool
	inRange bool

	grounded bool

	lastStepAt   time.Time
	lastBlockPos voxel.BlockPos
	haveLastPos  bool

	physicsTick int
}

// TransformEvent is the payload of the `transform` event (§6).
type TransformEvent struct {
	EntityID string
	Position voxel.Vector3
	Rotation Rotation
	Pose     int
	Velocity voxel.Vector3
}
