package entity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/go-mclib/voxelcore/pkg/voxel"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/blocktype"
)

type mapBlocks map[voxel.BlockPos]blocktype.Modifier

func (m mapBlocks) ModifierAt(pos voxel.BlockPos) (blocktype.Modifier, bool) {
	mod, ok := m[pos]
	return mod, ok
}

type fakeModels struct {
	models map[string]*EntityModel
	calls  int
}

func (f *fakeModels) FetchModel(ctx context.Context, id string) (*EntityModel, error) {
	f.calls++
	return f.models[id], nil
}

type fakeRecords struct {
	records map[string]*Record
	calls   int
}

func (f *fakeRecords) FetchEntity(ctx context.Context, id string) (*Record, error) {
	f.calls++
	return f.records[id], nil
}

type fakeSender struct {
	sent []string
}

func (f *fakeSender) SendEntityInteraction(entityID string, tsMillis int64, action string, payload any) {
	f.sent = append(f.sent, action+":"+entityID)
}

func newTestModule(records map[string]*Record, sender *fakeSender) (*Module, *fakeRecords) {
	fr := &fakeRecords{records: records}
	m := New(&fakeModels{models: map[string]*EntityModel{}}, fr, sender, mapBlocks{})
	return m, fr
}

func TestGetModelReturnsNilOnNotFound(t *testing.T) {
	m, _ := newTestModule(nil, nil)
	model, err := m.GetModel(context.Background(), "missing")
	if err != nil || model != nil {
		t.Fatalf("expected nil, nil for missing model, got %v, %v", model, err)
	}
}

func TestGetModelCachesOnHit(t *testing.T) {
	fm := &fakeModels{models: map[string]*EntityModel{"wolf": {ID: "wolf", Name: "Wolf"}}}
	m := New(fm, &fakeRecords{}, nil, mapBlocks{})

	if _, err := m.GetModel(context.Background(), "wolf"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetModel(context.Background(), "wolf"); err != nil {
		t.Fatal(err)
	}
	if fm.calls != 1 {
		t.Fatalf("expected exactly one fetch on cache hit path, got %d", fm.calls)
	}
}

func TestGetEntitySeedsClientEntityFromRecord(t *testing.T) {
	id := uuid.New().String()
	rng := 12.0
	records := map[string]*Record{
		id: {ID: id, ModelID: "wolf", Position: voxel.Vector3{X: 1, Y: 2, Z: 3}, NotifyOnAttentionRange: &rng},
	}
	m, _ := newTestModule(records, nil)

	e, err := m.GetEntity(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if e == nil || e.ModelID != "wolf" || e.Position != (voxel.Vector3{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("entity not seeded correctly: %+v", e)
	}
	if e.AttentionRange == nil || *e.AttentionRange != 12.0 {
		t.Fatalf("expected attention range 12, got %v", e.AttentionRange)
	}
}

func TestGetEntityReturnsNilOnNotFound(t *testing.T) {
	m, fr := newTestModule(map[string]*Record{}, nil)
	e, err := m.GetEntity(context.Background(), "ghost")
	if err != nil || e != nil {
		t.Fatalf("expected nil, nil for missing record, got %v, %v", e, err)
	}
	if fr.calls != 1 {
		t.Fatalf("expected exactly one fetch attempt, got %d", fr.calls)
	}
}

func TestRemoveEntityEmitsRemoved(t *testing.T) {
	records := map[string]*Record{"e1": {ID: "e1"}}
	m, _ := newTestModule(records, nil)
	if _, err := m.GetEntity(context.Background(), "e1"); err != nil {
		t.Fatal(err)
	}

	var removed string
	m.OnRemoved(func(id string) { removed = id })
	m.RemoveEntity("e1")
	if removed != "e1" {
		t.Fatalf("expected removed callback for e1, got %q", removed)
	}
	if _, ok := m.entityCache.Peek("e1"); ok {
		t.Fatal("expected entity evicted from cache")
	}
}

func TestSetPathwayWaypointModeSnapsTransformFromFirstWaypoint(t *testing.T) {
	id := uuid.New().String()
	records := map[string]*Record{id: {ID: id}}
	m, _ := newTestModule(records, nil)

	pose := 2
	p := Pathway{
		EntityID: id,
		Waypoints: []Waypoint{
			{Target: voxel.Vector3{X: 5, Y: 0, Z: 5}, Pose: &pose},
		},
	}
	m.SetPathway(context.Background(), p)

	e, _ := m.GetEntity(context.Background(), id)
	if e.Position != (voxel.Vector3{X: 5, Y: 0, Z: 5}) {
		t.Fatalf("expected position snapped to first waypoint, got %v", e.Position)
	}
	if e.Pose != 2 {
		t.Fatalf("expected pose 2, got %d", e.Pose)
	}
}

func TestSetPathwayPhysicsModeAppliesVelocityWithoutSnappingPosition(t *testing.T) {
	records := map[string]*Record{
		"e1": {ID: "e1", Position: voxel.Vector3{X: 9, Y: 9, Z: 9}},
	}
	m, _ := newTestModule(records, nil)

	vel := voxel.Vector3{X: 1, Y: 0, Z: 0}
	p := Pathway{
		EntityID:       "e1",
		PhysicsEnabled: true,
		Velocity:       &vel,
		Waypoints: []Waypoint{
			{Target: voxel.Vector3{X: 50, Y: 50, Z: 50}},
		},
	}
	m.SetPathway(context.Background(), p)

	e, _ := m.GetEntity(context.Background(), "e1")
	if e.Position != (voxel.Vector3{X: 9, Y: 9, Z: 9}) {
		t.Fatalf("expected position untouched (non-spawn), got %v", e.Position)
	}
	if e.Velocity != vel {
		t.Fatalf("expected velocity hint applied, got %v", e.Velocity)
	}
}

func TestOnChunkUnloadedHidesEntitiesInThatChunk(t *testing.T) {
	records := map[string]*Record{
		"e1": {ID: "e1", Position: voxel.Vector3{X: 5, Y: 0, Z: 5}},
	}
	m, _ := newTestModule(records, nil)
	e, _ := m.GetEntity(context.Background(), "e1")
	e.Visible = true

	var hidden string
	var visible bool
	m.OnVisibility(func(id string, v bool) { hidden, visible = id, v })

	m.OnChunkUnloaded(0, 0, 16)
	if hidden != "e1" || visible {
		t.Fatalf("expected e1 hidden, got id=%q visible=%v", hidden, visible)
	}
}

func TestGetEntitiesInRadiusFiltersByDistance(t *testing.T) {
	records := map[string]*Record{
		"near": {ID: "near", Position: voxel.Vector3{X: 1, Y: 0, Z: 0}, Solid: true},
		"far":  {ID: "far", Position: voxel.Vector3{X: 100, Y: 0, Z: 0}, Solid: true},
	}
	m, _ := newTestModule(records, nil)
	m.GetEntity(context.Background(), "near")
	m.GetEntity(context.Background(), "far")

	out := m.GetEntitiesInRadius(voxel.Vector3{}, 10)
	if len(out) != 1 || out[0].ID != "near" {
		t.Fatalf("expected only near entity in radius, got %+v", out)
	}
}

func TestUpdateEvaluatesVisibilityTransition(t *testing.T) {
	records := map[string]*Record{
		"e1": {ID: "e1", Position: voxel.Vector3{X: 10, Y: 0, Z: 0}},
	}
	m, _ := newTestModule(records, nil)
	m.GetEntity(context.Background(), "e1")
	m.SetAvatarPosition(voxel.Vector3{})
	m.VisibilityRadius = 5

	var transitions []bool
	m.OnVisibility(func(id string, v bool) { transitions = append(transitions, v) })

	now := time.Now()
	m.Update(now) // 10 units away > radius 5: stays invisible, no transition
	if len(transitions) != 0 {
		t.Fatalf("expected no transition yet, got %v", transitions)
	}

	m.VisibilityRadius = 50
	m.Update(now.Add(time.Second))
	if len(transitions) != 1 || !transitions[0] {
		t.Fatalf("expected one visible transition, got %v", transitions)
	}
}

func TestUpdateEmitsProximityOnEnterOnly(t *testing.T) {
	rng := 5.0
	records := map[string]*Record{
		"e1": {ID: "e1", Position: voxel.Vector3{X: 3, Y: 0, Z: 0}, NotifyOnAttentionRange: &rng},
	}
	sender := &fakeSender{}
	m, _ := newTestModule(records, sender)
	m.GetEntity(context.Background(), "e1")
	m.SetAvatarPosition(voxel.Vector3{})

	now := time.Now()
	m.Update(now)
	m.Update(now.Add(time.Second))

	count := 0
	for _, s := range sender.sent {
		if s == ActionEntityProximity+":e1" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one proximity send on enter, got %d (sent=%v)", count, sender.sent)
	}
}

func TestWaypointInterpolationLerpsPositionAndSnapsPoseAtMidpoint(t *testing.T) {
	records := map[string]*Record{"e1": {ID: "e1"}}
	m, _ := newTestModule(records, nil)

	base := time.Now()
	pose := 3
	p := Pathway{
		EntityID: "e1",
		Waypoints: []Waypoint{
			{Target: voxel.Vector3{X: 0}, Timestamp: base.UnixMilli()},
			{Target: voxel.Vector3{X: 10}, Timestamp: base.Add(time.Second).UnixMilli(), Pose: &pose},
		},
	}
	m.SetPathway(context.Background(), p)
	e, _ := m.GetEntity(context.Background(), "e1")
	e.WaypointIndex = 0

	mid := base.Add(600 * time.Millisecond)
	m.stepEntity(e, mid)

	if e.Position.X <= 0 || e.Position.X >= 10 {
		t.Fatalf("expected interpolated position strictly between waypoints, got %v", e.Position.X)
	}
	if e.Pose != 3 {
		t.Fatalf("expected pose snapped to target pose past t>0.5, got %d", e.Pose)
	}
}

func TestStepSoundFiresOnPass(t *testing.T) {
	records := map[string]*Record{"e1": {ID: "e1"}}
	m, _ := newTestModule(records, nil)

	base := time.Now()
	p := Pathway{
		EntityID: "e1",
		Waypoints: []Waypoint{
			{Target: voxel.Vector3{X: 0}, Timestamp: base.UnixMilli()},
			{Target: voxel.Vector3{X: 10}, Timestamp: base.Add(time.Second).UnixMilli()},
		},
	}
	m.SetPathway(context.Background(), p)
	e, _ := m.GetEntity(context.Background(), "e1")
	e.WaypointIndex = 0
	e.Visible = true

	var calls int
	var gotID string
	m.OnStepSound(func(id string, block voxel.BlockPos) {
		calls++
		gotID = id
	})

	m.stepEntity(e, base.Add(300*time.Millisecond))

	if calls != 1 {
		t.Fatalf("expected step sound to fire once on a throttle/move-gate pass, got %d calls", calls)
	}
	if gotID != "e1" {
		t.Fatalf("expected step sound for e1, got %q", gotID)
	}
}

func TestStepSoundSuppressedWhenNotVisible(t *testing.T) {
	records := map[string]*Record{"e1": {ID: "e1"}}
	m, _ := newTestModule(records, nil)

	base := time.Now()
	p := Pathway{
		EntityID: "e1",
		Waypoints: []Waypoint{
			{Target: voxel.Vector3{X: 0}, Timestamp: base.UnixMilli()},
			{Target: voxel.Vector3{X: 10}, Timestamp: base.Add(time.Second).UnixMilli()},
		},
	}
	m.SetPathway(context.Background(), p)
	e, _ := m.GetEntity(context.Background(), "e1")
	e.WaypointIndex = 0
	e.Visible = false

	calls := 0
	m.OnStepSound(func(id string, block voxel.BlockPos) { calls++ })

	m.stepEntity(e, base.Add(300*time.Millisecond))

	if calls != 0 {
		t.Fatalf("expected no step sound for an invisible entity, got %d calls", calls)
	}
}

func TestPhysicsStepThrottlesByDistanceFromAvatar(t *testing.T) {
	records := map[string]*Record{
		"near": {ID: "near", Position: voxel.Vector3{X: 5}},
		"far":  {ID: "far", Position: voxel.Vector3{X: 100}},
	}
	m, _ := newTestModule(records, nil)
	m.SetAvatarPosition(voxel.Vector3{})

	near, _ := m.GetEntity(context.Background(), "near")
	near.PhysicsEnabled = true
	near.Velocity = voxel.Vector3{X: 10}

	far, _ := m.GetEntity(context.Background(), "far")
	far.PhysicsEnabled = true
	far.Velocity = voxel.Vector3{X: 10}

	now := time.Now()
	nearMoves, farMoves := 0, 0
	for i := 0; i < 6; i++ {
		beforeNear, beforeFar := near.Position.X, far.Position.X
		m.stepEntity(near, now)
		m.stepEntity(far, now)
		if near.Position.X != beforeNear {
			nearMoves++
		}
		if far.Position.X != beforeFar {
			farMoves++
		}
		now = now.Add(m.UpdateInterval)
	}

	if nearMoves != 6 {
		t.Fatalf("expected the near entity to physics-step every tick (rate=1), got %d/6", nearMoves)
	}
	if farMoves != 1 {
		t.Fatalf("expected the far entity to physics-step once per 6 ticks (rate=6), got %d/6", farMoves)
	}
}

func TestCacheSweepEvictsStaleEntities(t *testing.T) {
	records := map[string]*Record{"e1": {ID: "e1"}}
	now := time.Now()
	clock := now
	m, _ := newTestModule(records, nil)
	m.now = func() time.Time { return clock }
	m.entityCache = newLRU[string, *ClientEntity](DefaultMaxEntityCacheSize, DefaultCacheEvictionTimeout, m.now)

	m.GetEntity(context.Background(), "e1")

	var removed string
	m.OnRemoved(func(id string) { removed = id })

	clock = now.Add(DefaultCacheEvictionTimeout + time.Second)
	m.Update(clock.Add(DefaultCacheCleanupInterval + time.Second))

	if removed != "e1" {
		t.Fatalf("expected e1 evicted by cleanup sweep, got %q", removed)
	}
}
