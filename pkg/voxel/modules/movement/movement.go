// Package movement implements the accel/friction/gravity integrator (§4.5).
// It is grounded on the teacher's physics.Module tick loop structure (fixed
// per-entity state updated every tick) generalized from Minecraft's hardcoded
// player physics constants into the per-mode parameter table §4.5 names.
package movement

import (
	"math"
	"time"

	"github.com/go-mclib/voxelcore/pkg/voxel"
)

// Params are the per-mode physics constants (§4.5 "Modes and parameters").
type Params struct {
	Speed             float64
	GroundAcceleration float64
	AirAcceleration    float64
	GroundFriction     float64
	AirFriction        float64
	Gravity            float64
	UnderwaterGravity  float64
	JumpSpeed          float64
	VerticalWish       bool // swim/climb/fly: direct vertical wish instead of gravity integration
	NoGravity          bool // fly/free_fly/climb: gravity disabled entirely
}

// DefaultParams is the §4.5 "Modes and parameters (defaults)" table.
var DefaultParams = map[voxel.MovementMode]Params{
	voxel.ModeWalk: {
		Speed: 5, GroundAcceleration: 100, AirAcceleration: 10,
		GroundFriction: 8, AirFriction: 0.5, Gravity: -20, JumpSpeed: 8,
	},
	voxel.ModeSprint: {
		Speed: 7.5, GroundAcceleration: 100, AirAcceleration: 10,
		GroundFriction: 8, AirFriction: 0.5, Gravity: -20, JumpSpeed: 8,
	},
	voxel.ModeCrouch: {
		Speed: 2, GroundAcceleration: 100, AirAcceleration: 10,
		GroundFriction: 8, AirFriction: 0.5, Gravity: -20, JumpSpeed: 8,
	},
	voxel.ModeSwim: {
		Speed: 3, GroundAcceleration: 40, AirAcceleration: 40,
		GroundFriction: 4, AirFriction: 4, Gravity: -2, UnderwaterGravity: -2,
		VerticalWish: true, JumpSpeed: 4,
	},
	voxel.ModeClimb: {
		Speed: 2.5, GroundAcceleration: 40, AirAcceleration: 40,
		GroundFriction: 6, AirFriction: 6, VerticalWish: true, NoGravity: true,
	},
	voxel.ModeFly: {
		Speed: 8, GroundAcceleration: 60, AirAcceleration: 60,
		GroundFriction: 4, AirFriction: 4, VerticalWish: true, NoGravity: true,
	},
	voxel.ModeFreeFly: {
		Speed: 16, GroundAcceleration: 80, AirAcceleration: 80,
		GroundFriction: 4, AirFriction: 4, VerticalWish: true, NoGravity: true,
	},
}

const DefaultCoyoteTime = 120 * time.Millisecond

// State is the per-entity movement state the Resolver mutates in place
// (§4.5 "State per entity").
type State struct {
	Velocity        voxel.Vector3
	Grounded        bool
	LastGroundedAt  time.Time
	coyoteConsumed  bool
}

// Resolver integrates wishMove/jump intent into a velocity every tick.
type Resolver struct {
	CoyoteTime time.Duration
}

// New builds a Resolver with the spec default coyote time.
func New() *Resolver {
	return &Resolver{CoyoteTime: DefaultCoyoteTime}
}

// Input is one Step call's per-tick parameters.
type Input struct {
	WishMove       voxel.Vector3 // horizontal intent, not necessarily normalized
	VerticalWish   float64       // used only when Params.VerticalWish
	Jump           bool
	InWater        bool
	GroundResistance float64 // groundBlocks.resistance, applied after friction
	Now            time.Time
	DT             float64
}

// Step integrates st.Velocity in place for one tick and returns it, per the
// Integration rules of §4.5.
func (r *Resolver) Step(st *State, p Params, in Input) voxel.Vector3 {
	accel := p.AirAcceleration
	friction := p.AirFriction
	if st.Grounded {
		accel = p.GroundAcceleration
		friction = p.GroundFriction
	}

	wish := in.WishMove
	if l := wish.Length(); l > 1e-9 {
		wish = wish.Scale(1 / l)
	}
	vTarget := wish.Scale(p.Speed)

	st.Velocity.X = approach(st.Velocity.X, vTarget.X, accel*in.DT)
	st.Velocity.Z = approach(st.Velocity.Z, vTarget.Z, accel*in.DT)

	decay := math.Exp(-friction * in.DT)
	st.Velocity.X *= decay
	st.Velocity.Z *= decay

	if in.GroundResistance > 0 {
		st.Velocity.X *= 1 - in.GroundResistance
		st.Velocity.Z *= 1 - in.GroundResistance
	}

	switch {
	case p.VerticalWish:
		st.Velocity.Y = in.VerticalWish * p.Speed
	case p.NoGravity:
		// leave Y velocity as last set by caller (e.g. explicit ascend/descend)
	case in.InWater:
		st.Velocity.Y += p.UnderwaterGravity * in.DT
	default:
		st.Velocity.Y += p.Gravity * in.DT
	}

	if in.Jump && r.canJump(st, in.Now) {
		st.Velocity.Y = p.JumpSpeed
		st.coyoteConsumed = true
	}

	return st.Velocity
}

func approach(v, target, maxDelta float64) float64 {
	if v < target {
		return math.Min(v+maxDelta, target)
	}
	return math.Max(v-maxDelta, target)
}

// canJump allows a jump while grounded or within the coyote-time window
// since last grounded (§4.5 Jump).
func (r *Resolver) canJump(st *State, now time.Time) bool {
	if st.Grounded {
		return true
	}
	if st.coyoteConsumed {
		return false
	}
	return now.Sub(st.LastGroundedAt) <= r.CoyoteTime
}

// MarkGrounded updates grounded state and resets the coyote window when the
// entity touches ground (called by the Physics Service after collision
// resolution).
func MarkGrounded(st *State, grounded bool, now time.Time) {
	st.Grounded = grounded
	if grounded {
		st.LastGroundedAt = now
		st.coyoteConsumed = false
	}
}
