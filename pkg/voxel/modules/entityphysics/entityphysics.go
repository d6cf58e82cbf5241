// Package entityphysics implements the Entity Physics Controller (C9):
// lightweight, non-authoritative motion for non-avatar entities (§4.9). It
// is grounded on the teacher's physics.Module step shape generalized the
// same way movement.Resolver is — per-entity state integrated every tick —
// but trimmed down to what a server-owned entity actually needs on the
// client: no gravity (the server is authoritative for Y), no collision
// resolver, just horizontal drag and a one-cell Y-correction probe.
package entityphysics

import (
	"math"

	"github.com/go-mclib/voxelcore/pkg/voxel"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/blocktype"
)

// Horizontal drag factors (§4.9).
const (
	GroundFriction = 0.8
	AirDrag        = 0.98
)

// BlockSource is the local block lookup the Y-correction probe reads
// through; entity.Module's own BlockSource (chunkservice.Service) satisfies
// this structurally.
type BlockSource interface {
	ModifierAt(pos voxel.BlockPos) (blocktype.Modifier, bool)
}

// State is the motion state the controller steps every tick (§4.9).
type State struct {
	Position   voxel.Vector3
	Velocity   voxel.Vector3
	Grounded   bool
	Dimensions voxel.Dimensions
}

// Controller steps physics-enabled non-avatar entities (§4.9).
type Controller struct {
	blocks BlockSource
}

// New builds an Entity Physics Controller reading world state through
// blocks.
func New(blocks BlockSource) *Controller {
	return &Controller{blocks: blocks}
}

// Step integrates one tick of horizontal drag, then corrects Y by a one-cell
// solid-block probe, and returns the new position (§4.9). Gravity is never
// integrated: the server owns Y, this only nudges it out of a solid block or
// snaps it onto one directly below.
func (c *Controller) Step(st *State, dt float64) voxel.Vector3 {
	k := AirDrag
	if st.Grounded {
		k = GroundFriction
	}
	st.Velocity.X *= k
	st.Velocity.Z *= k

	pos := st.Position
	pos.X += st.Velocity.X * dt
	pos.Z += st.Velocity.Z * dt
	pos.Y += st.Velocity.Y * dt

	pos.Y = c.correctY(pos)
	st.Position = pos
	st.Grounded = true
	return pos
}

// correctY implements the §4.9 one-cell probe: lift out of a solid block
// standing-in, else snap onto a solid block directly below, else leave the
// server-authored Y untouched.
func (c *Controller) correctY(pos voxel.Vector3) float64 {
	feet := voxel.BlockPos{X: int(math.Floor(pos.X)), Y: int(math.Floor(pos.Y)), Z: int(math.Floor(pos.Z))}
	if mod, ok := c.blocks.ModifierAt(feet); ok && mod.Physics.Solid {
		return float64(feet.Y + 1)
	}
	below := voxel.BlockPos{X: feet.X, Y: feet.Y - 1, Z: feet.Z}
	if mod, ok := c.blocks.ModifierAt(below); ok && mod.Physics.Solid {
		return float64(feet.Y)
	}
	return pos.Y
}

// Update rate tiers relative to distance from the avatar (§4.9).
const (
	nearRadius   = 20.0
	midRadius    = 40.0
	nearInterval = 1
	midInterval  = 2
	farInterval  = 6
)

// UpdateRate returns the tick interval between updates for an entity
// distance units away from the avatar: every tick when near, every other
// tick in the middle band, every sixth tick beyond that (§4.9).
func UpdateRate(distance float64) int {
	switch {
	case distance < nearRadius:
		return nearInterval
	case distance < midRadius:
		return midInterval
	default:
		return farInterval
	}
}
