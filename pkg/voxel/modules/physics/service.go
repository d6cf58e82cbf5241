// Package physics implements the mode state machine and per-frame entity
// step (§4.6). It is grounded on the teacher's physics.Module tick loop
// (startTickLoop + tick()): a fixed-step goroutine that reads input, asks
// collaborators for the collision-relevant world state, and mutates a single
// entity's motion state every tick — generalized here to drive N entities
// instead of just the local player, and to delegate mode-specific behavior
// to the Movement Resolver + Collision Detector instead of inlined vanilla
// constants.
package physics

import (
	"math"
	"time"

	"github.com/go-mclib/voxelcore/pkg/voxel"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/blockcontext"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/blocktype"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/collision"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/movement"
)

// BlockSource is read directly by the fluid-push pass; collision and
// blockcontext take their own copy of the same collaborator.
type BlockSource interface {
	ModifierAt(pos voxel.BlockPos) (blocktype.Modifier, bool)
}

// ColumnSource answers the height-column query the underwater check needs
// (§4.6 step 3); chunkservice.Service implements it.
type ColumnSource interface {
	WaterLevelAt(x, z int) (level int, ok bool)
}

// EntitySource answers the entity-vs-entity query the pushback pass needs
// (§4.4 Entity-vs-entity); entity.Module implements it.
type EntitySource interface {
	GetEntitiesInRadius(center voxel.Vector3, radius float64) []collision.Other
}

// entityPushRadius bounds the entity-vs-entity pass to nearby others; larger
// than any plausible entity footprint so overlap checks never miss.
const entityPushRadius = 4.0

// Entity is the mutable state the Physics Service steps every frame (§3
// "Physics entity").
type Entity struct {
	ID           string
	Position     voxel.Vector3
	Yaw          float64
	WishMove     voxel.Vector3
	VerticalWish float64
	JumpRequest  bool
	Mode         voxel.MovementMode
	Grounded     bool
	OnSlope      bool
	InWater      bool
	LastBlockPos voxel.BlockPos
	Dimensions   map[voxel.MovementMode]voxel.Dimensions

	moveState      movement.State
	lastStepAt     time.Time
	teleportTarget *voxel.Vector3
	modeBeforeTP   voxel.MovementMode
}

// Service is the Physics Service (C6): mode state machine, per-frame step,
// underwater transitions, event emission.
type Service struct {
	blocks   BlockSource
	columns  ColumnSource
	others   EntitySource
	detector *collision.Detector
	analyzer *blockcontext.Analyzer
	resolver *movement.Resolver

	WorldMinY, WorldMaxY int

	entities map[string]*Entity

	onStepOver        []func(entityID string, block voxel.BlockPos, movementType voxel.MovementMode)
	onUnderwater      []func(entityID string, inWater bool)
	onPosition        []func(entityID string, pos voxel.Vector3)
	onCollision       []func(entityID string, blocks []voxel.BlockPos)
	onEntityCollision []func(entityID string, others []string)
}

// New builds a Physics Service wired to the given collaborators. others may
// be nil, in which case the entity-vs-entity pushback pass is skipped.
func New(blocks BlockSource, columns ColumnSource, others EntitySource, worldMinY, worldMaxY int) *Service {
	return &Service{
		blocks:    blocks,
		columns:   columns,
		others:    others,
		detector:  collision.New(blocks),
		analyzer:  blockcontext.New(blocks),
		resolver:  movement.New(),
		WorldMinY: worldMinY,
		WorldMaxY: worldMaxY,
		entities:  make(map[string]*Entity),
	}
}

func (s *Service) OnStepOver(cb func(entityID string, block voxel.BlockPos, movementType voxel.MovementMode)) {
	s.onStepOver = append(s.onStepOver, cb)
}
func (s *Service) OnUnderwaterChanged(cb func(entityID string, inWater bool)) {
	s.onUnderwater = append(s.onUnderwater, cb)
}
func (s *Service) OnPositionChanged(cb func(entityID string, pos voxel.Vector3)) {
	s.onPosition = append(s.onPosition, cb)
}
func (s *Service) OnCollision(cb func(entityID string, blocks []voxel.BlockPos)) {
	s.onCollision = append(s.onCollision, cb)
}
func (s *Service) OnEntityCollision(cb func(entityID string, others []string)) {
	s.onEntityCollision = append(s.onEntityCollision, cb)
}

// Register adds an entity to the simulation.
func (s *Service) Register(e *Entity) { s.entities[e.ID] = e }

// Unregister removes an entity from the simulation.
func (s *Service) Unregister(id string) { delete(s.entities, id) }

// Teleport sets position directly, zeroes velocity, and enters teleport mode
// until the caller confirms the target chunk is loaded via ResolveTeleport
// (§4.6 Teleport).
func (s *Service) Teleport(entityID string, pos voxel.Vector3) {
	e, ok := s.entities[entityID]
	if !ok {
		return
	}
	target := pos
	e.teleportTarget = &target
	e.modeBeforeTP = e.Mode
	e.Mode = voxel.ModeTeleport
	e.Position = pos
	e.moveState.Velocity = voxel.Vector3{}
}

// ResolveTeleport restores the entity's previous mode once the destination
// chunk reports isLoaded with height data.
func (s *Service) ResolveTeleport(entityID string, chunkLoaded bool) {
	e, ok := s.entities[entityID]
	if !ok || e.teleportTarget == nil {
		return
	}
	if !chunkLoaded {
		return
	}
	e.Mode = e.modeBeforeTP
	e.teleportTarget = nil
}

// Update runs one physics frame for every registered entity (§4.6 "Per-frame
// routine").
func (s *Service) Update(dt float64, now time.Time) {
	for _, e := range s.entities {
		if e.Mode == voxel.ModeTeleport {
			continue
		}
		s.step(e, dt, now)
	}
}

func (s *Service) step(e *Entity, dt float64, now time.Time) {
	dims := voxel.ResolveDimensions(e.Dimensions, e.Mode)
	params := movement.DefaultParams[e.Mode]
	if params.Speed == 0 {
		params = movement.DefaultParams[voxel.ModeWalk]
	}

	s.applyStuckPushUp(e, dims)

	ctx := s.analyzer.Analyze(e.ID, e.Position, e.Yaw, dims, e.Position)

	s.applyFluidPush(e, dt)

	movement.MarkGrounded(&e.moveState, e.Grounded, now)
	vel := s.resolver.Step(&e.moveState, params, movement.Input{
		WishMove:         e.WishMove,
		VerticalWish:     e.VerticalWish,
		Jump:             e.JumpRequest,
		InWater:          e.InWater,
		GroundResistance: ctx.GroundBlocks.Resistance,
		Now:              now,
		DT:               dt,
	})

	if ctx.GroundBlocks.AutoJump > 0 {
		vel.Y = math.Max(vel.Y, ctx.GroundBlocks.AutoJump)
	}
	if ctx.FootBlocks.AutoMove != (voxel.Vector3{}) {
		vel = vel.Add(ctx.FootBlocks.AutoMove)
	}
	if ctx.GroundBlocks.AutoOrientationY != 0 {
		e.Yaw = ctx.GroundBlocks.AutoOrientationY
	}

	wishPos := e.Position.Add(vel.Scale(dt))

	res := s.detector.Resolve(collision.Input{
		Position:      e.Position,
		WishPosition:  wishPos,
		Dimensions:    dims,
		AutoClimbable: true,
	})
	if res.ZeroVX {
		e.moveState.Velocity.X = 0
	}
	if res.ZeroVY {
		e.moveState.Velocity.Y = 0
	}
	if res.ZeroVZ {
		e.moveState.Velocity.Z = 0
	}
	e.Grounded = res.Grounded
	// An entity can stand still on a semi-solid surface without triggering
	// the detector's own onSlope flag (resolveVertical only sets it while
	// moving down); the block-context groundFoot corner-height sample
	// catches the idle case too (§4.3 groundFootBlocks).
	e.OnSlope = res.OnSlope || ctx.GroundFootBlocks.HasCorners

	res.Position.Y = math.Max(float64(s.WorldMinY), math.Min(float64(s.WorldMaxY), res.Position.Y))
	res.Position = s.applyEntityPushback(e, res.Position, dims)
	prevFloor := voxel.BlockPos{X: int(math.Floor(e.Position.X)), Y: int(math.Floor(e.Position.Y)), Z: int(math.Floor(e.Position.Z))}
	e.Position = res.Position
	e.WishMove = voxel.Vector3{}
	e.JumpRequest = false

	for _, cb := range s.onPosition {
		cb(e.ID, e.Position)
	}
	if len(res.CollisionHits) > 0 {
		for _, cb := range s.onCollision {
			cb(e.ID, res.CollisionHits)
		}
	}

	curFloor := voxel.BlockPos{X: int(math.Floor(e.Position.X)), Y: int(math.Floor(e.Position.Y)), Z: int(math.Floor(e.Position.Z))}
	s.updateUnderwater(e, curFloor, prevFloor)
	s.maybeEmitStepOver(e, vel, curFloor, prevFloor, now)
}

// applyEntityPushback implements the §4.4 entity-vs-entity pass: after block
// collision is resolved, nearby solid entities push the position apart by
// penetration depth in XZ.
func (s *Service) applyEntityPushback(e *Entity, pos voxel.Vector3, dims voxel.Dimensions) voxel.Vector3 {
	if s.others == nil {
		return pos
	}
	nearby := s.others.GetEntitiesInRadius(pos, entityPushRadius)
	if len(nearby) == 0 {
		return pos
	}
	adjusted, collided := collision.ResolvePushback(pos, dims, nearby)
	if len(collided) > 0 {
		for _, cb := range s.onEntityCollision {
			cb(e.ID, collided)
		}
	}
	return adjusted
}

// updateUnderwater implements §4.6 step 3.
func (s *Service) updateUnderwater(e *Entity, cur, prev voxel.BlockPos) {
	if cur == prev {
		return
	}
	level, ok := s.columns.WaterLevelAt(cur.X, cur.Z)
	was := e.InWater
	e.InWater = ok && float64(cur.Y) < float64(level)
	if e.InWater != was {
		for _, cb := range s.onUnderwater {
			cb(e.ID, e.InWater)
		}
	}
}

const stepOverThrottle = 300 * time.Millisecond

// maybeEmitStepOver implements §4.6 step 4.
func (s *Service) maybeEmitStepOver(e *Entity, vel voxel.Vector3, cur, prev voxel.BlockPos, now time.Time) {
	horizSpeed := math.Hypot(vel.X, vel.Z)
	if horizSpeed <= 0.1 || !e.Grounded {
		return
	}
	if cur.X == prev.X && cur.Z == prev.Z {
		return
	}
	if now.Sub(e.lastStepAt) <= stepOverThrottle {
		return
	}
	e.lastStepAt = now
	under := voxel.BlockPos{X: cur.X, Y: cur.Y - 1, Z: cur.Z}
	for _, cb := range s.onStepOver {
		cb(e.ID, under, e.Mode)
	}
}
