package entity

import (
	"math"
	"time"

	"github.com/go-mclib/voxelcore/pkg/voxel"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/entityphysics"
)

// stealthReduction maps the avatar's movement mode to the reduction applied
// to an entity's notifyOnAttentionRange (§4.8 "effective = range +
// stealthReduction(mode)"): crouching shortens how far away an entity
// notices the avatar, sprinting lengthens it, everything else is neutral.
// The spec names the formula but not the per-mode values; this mapping is
// this implementation's choice, recorded in DESIGN.md.
func stealthReduction(mode voxel.MovementMode) float64 {
	switch mode {
	case voxel.ModeCrouch:
		return -10
	case voxel.ModeSprint:
		return 5
	default:
		return 0
	}
}

// Update runs one Entity Service tick (§4.8 update()): physics-enabled
// entities step through the Entity Physics Controller, waypoint entities
// interpolate between timestamped waypoints, then visibility, proximity,
// and step-sound are all re-evaluated against the new position.
func (m *Module) Update(now time.Time) {
	if now.Sub(m.lastCleanup) >= DefaultCacheCleanupInterval {
		m.sweepCaches()
		m.lastCleanup = now
	}

	for el := m.entityCache.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*lruEntry[string, *ClientEntity]).value
		m.stepEntity(e, now)
	}
}

func (m *Module) sweepCaches() {
	for _, id := range m.entityCache.Sweep() {
		delete(m.pathways, id)
		for _, cb := range m.onRemoved {
			cb(id)
		}
	}
	m.modelCache.Sweep()
}

func (m *Module) stepEntity(e *ClientEntity, now time.Time) {
	prevPos := e.Position
	vel := voxel.Vector3{}

	if e.PhysicsEnabled {
		// Distance-LOD throttling (§4.9 UpdateRate): skip ticks per the
		// near/mid/far band for this entity's current distance from the
		// avatar, stretching dt to cover the skipped ticks when one lands.
		e.physicsTick++
		rate := 1
		if m.haveAvatar {
			rate = entityphysics.UpdateRate(dist3(m.avatarPos, e.Position))
		}
		if e.physicsTick%rate == 0 {
			st := entityphysics.State{
				Position:   e.Position,
				Velocity:   e.Velocity,
				Grounded:   e.grounded,
				Dimensions: e.Dimensions,
			}
			dt := m.UpdateInterval.Seconds() * float64(rate)
			m.physics.Step(&st, dt)
			e.Position = st.Position
			e.Velocity = st.Velocity
			e.grounded = st.Grounded
			vel = e.Velocity
		}
	} else if m.interpolateWaypoints(e, now) {
		vel = e.Position.Sub(prevPos).Scale(1.0 / math.Max(m.UpdateInterval.Seconds(), 1e-6))
	}

	m.emitTransform(e, vel)
	m.evaluateVisibility(e)
	m.evaluateProximity(e)
	m.maybeEmitStepSound(e, vel, now)
}

// interpolateWaypoints advances e along its waypoint list by clamped
// t = (now-from.ts)/(to.ts-from.ts), lerping position/rotation and snapping
// pose to the target at t>0.5 (§4.8 update()). Returns false when e has no
// waypoints to interpolate.
func (m *Module) interpolateWaypoints(e *ClientEntity, now time.Time) bool {
	wps := e.Waypoints
	if len(wps) == 0 {
		return false
	}
	idx := e.WaypointIndex
	if idx >= len(wps)-1 {
		last := wps[len(wps)-1]
		e.Position = last.Target
		e.Rotation = last.Rotation
		if last.Pose != nil {
			e.Pose = *last.Pose
		}
		return true
	}

	from, to := wps[idx], wps[idx+1]
	nowMs := now.UnixMilli()
	if nowMs >= to.Timestamp {
		e.WaypointIndex++
	}
	span := float64(to.Timestamp - from.Timestamp)
	t := 1.0
	if span > 0 {
		t = float64(nowMs-from.Timestamp) / span
	}
	t = math.Max(0, math.Min(1, t))

	e.Position = lerpVec3(from.Target, to.Target, t)
	e.Rotation = lerpRotation(from.Rotation, to.Rotation, t)
	if t > 0.5 && to.Pose != nil {
		e.Pose = *to.Pose
	}
	return true
}

func lerpVec3(a, b voxel.Vector3, t float64) voxel.Vector3 {
	return voxel.Vector3{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
	}
}

func lerpRotation(a, b Rotation, t float64) Rotation {
	r := Rotation{Yaw: a.Yaw + (b.Yaw-a.Yaw)*t}
	if a.Pitch != nil && b.Pitch != nil {
		p := *a.Pitch + (*b.Pitch-*a.Pitch)*t
		r.Pitch = &p
	} else if b.Pitch != nil {
		r.Pitch = b.Pitch
	}
	return r
}

func (m *Module) emitTransform(e *ClientEntity, vel voxel.Vector3) {
	for _, cb := range m.onTransform {
		cb(TransformEvent{
			EntityID: e.ID,
			Position: e.Position,
			Rotation: e.Rotation,
			Pose:     e.Pose,
			Velocity: vel,
		})
	}
}

// evaluateVisibility implements §4.8 "Evaluate visibility": Euclidean
// distance to the avatar compared against VisibilityRadius, event on
// transition only.
func (m *Module) evaluateVisibility(e *ClientEntity) {
	if !m.haveAvatar {
		return
	}
	visible := dist3(m.avatarPos, e.Position) <= m.VisibilityRadius
	if visible == e.Visible {
		return
	}
	e.Visible = visible
	for _, cb := range m.onVisibility {
		cb(e.ID, visible)
	}
}

// evaluateProximity implements §4.8 "Evaluate proximity": entities that
// declare notifyOnAttentionRange emit entityProximity to the server on
// enter only; exit updates local state silently.
func (m *Module) evaluateProximity(e *ClientEntity) {
	if e.AttentionRange == nil || !m.haveAvatar {
		return
	}
	effective := *e.AttentionRange + stealthReduction(m.avatarMode)
	if effective < 0 {
		effective = 0
	}
	inRange := dist3(m.avatarPos, e.Position) <= effective
	if inRange && !e.inRange {
		if m.sender != nil {
			m.sender.SendEntityInteraction(e.ID, m.now().UnixMilli(), ActionEntityProximity, nil)
		}
	}
	e.inRange = inRange
}

// maybeEmitStepSound implements §4.8 "Step sound emission": visible
// entities are throttled and block-move gated the same way the avatar is
// (§4.6 step 4). entityphysics.Controller always asserts Grounded for
// physics-enabled entities, and waypoint-mode entities have no independent
// ground concept of their own (the server dictates their path), so the
// ground-required/swim-exempt split collapses here to throttle + move gate
// only; see DESIGN.md.
func (m *Module) maybeEmitStepSound(e *ClientEntity, vel voxel.Vector3, now time.Time) {
	if !e.Visible {
		return
	}
	horizSpeed := math.Hypot(vel.X, vel.Z)
	if horizSpeed <= 0.1 {
		return
	}
	cur := voxel.BlockPos{X: int(math.Floor(e.Position.X)), Y: int(math.Floor(e.Position.Y)), Z: int(math.Floor(e.Position.Z))}
	if e.haveLastPos && cur.X == e.lastBlockPos.X && cur.Z == e.lastBlockPos.Z {
		return
	}
	e.lastBlockPos = cur
	e.haveLastPos = true

	if now.Sub(e.lastStepAt) <= stepThrottle {
		return
	}
	e.lastStepAt = now

	for _, cb := range m.onStepSound {
		cb(e.ID, cur)
	}
}
