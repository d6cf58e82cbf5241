package entity

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/go-mclib/voxelcore/pkg/voxel"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/blocktype"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/collision"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/entityphysics"
)

// BlockSource is the local block lookup the Entity Service hands to the
// Entity Physics Controller for Y-correction (§4.9); the step-sound gate
// and waypoint interpolation do not read blocks. chunkservice.Service
// implements it.
type BlockSource interface {
	ModifierAt(pos voxel.BlockPos) (blocktype.Modifier, bool)
}

// Default cache/tuning parameters (§4.8).
const (
	DefaultMaxEntityCacheSize   = 1000
	DefaultMaxModelCacheSize    = 100
	DefaultCacheEvictionTimeout = 300 * time.Second
	DefaultCacheCleanupInterval = 60 * time.Second
	DefaultUpdateInterval       = 100 * time.Millisecond
	DefaultVisibilityRadius     = 50.0

	stepThrottle = 300 * time.Millisecond
)

// Module is the Entity Service (C8).
type Module struct {
	client *voxel.Client

	models  ModelFetcher
	records RecordFetcher
	sender  Sender
	blocks  BlockSource
	physics *entityphysics.Controller

	modelCache  *lru[string, *EntityModel]
	entityCache *lru[string, *ClientEntity]
	pathways    map[string]*Pathway

	modelSF  singleflight.Group
	recordSF singleflight.Group

	now func() time.Time

	avatarPos  voxel.Vector3
	avatarMode voxel.MovementMode
	haveAvatar bool

	VisibilityRadius float64
	UpdateInterval   time.Duration

	lastCleanup time.Time

	onPathway    []func(Pathway)
	onTransform  []func(TransformEvent)
	onVisibility []func(entityID string, visible bool)
	onRemoved    []func(entityID string)
	onStepSound  []func(entityID string, block voxel.BlockPos)
}

// New builds an Entity Service backed by models/records fetchers and an
// outbound sender, with spec-default cache sizes and timeouts (§4.8). blocks
// (chunkservice.Service implements it) backs the Entity Physics Controller
// (C9) this module delegates physics-enabled entities to.
func New(models ModelFetcher, records RecordFetcher, sender Sender, blocks BlockSource) *Module {
	now := time.Now
	return &Module{
		models:           models,
		records:          records,
		sender:           sender,
		blocks:           blocks,
		physics:          entityphysics.New(blocks),
		modelCache:       newLRU[string, *EntityModel](DefaultMaxModelCacheSize, DefaultCacheEvictionTimeout, now),
		entityCache:      newLRU[string, *ClientEntity](DefaultMaxEntityCacheSize, DefaultCacheEvictionTimeout, now),
		pathways:         make(map[string]*Pathway),
		now:              now,
		lastCleanup:      now(),
		VisibilityRadius: DefaultVisibilityRadius,
		UpdateInterval:   DefaultUpdateInterval,
	}
}

func (m *Module) Name() string         { return ModuleName }
func (m *Module) Init(c *voxel.Client) { m.client = c }

func (m *Module) Reset() {
	m.modelCache = newLRU[string, *EntityModel](DefaultMaxModelCacheSize, DefaultCacheEvictionTimeout, m.now)
	m.entityCache = newLRU[string, *ClientEntity](DefaultMaxEntityCacheSize, DefaultCacheEvictionTimeout, m.now)
	m.pathways = make(map[string]*Pathway)
	m.haveAvatar = false
}

func (m *Module) logf(format string, args ...interface{}) {
	if m.client != nil && m.client.Logger != nil {
		m.client.Logger.Printf(format, args...)
	}
}

// HandleMessage dispatches ENTITY_PATHWAY messages (§6); all other message
// types belong to other modules.
func (m *Module) HandleMessage(msg *voxel.Message) {
	if msg.Type != voxel.MsgEntityPathway {
		return
	}
	var dto PathwayDTO
	if err := json.Unmarshal(msg.Data, &dto); err != nil {
		m.logf("malformed ENTITY_PATHWAY: %v", err)
		return
	}
	m.SetPathway(context.Background(), dto.toPathway())
}

// From retrieves the entity module from a client.
func From(c *voxel.Client) *Module {
	mod := c.Module(ModuleName)
	if mod == nil {
		return nil
	}
	return mod.(*Module)
}

// events

func (m *Module) OnPathway(cb func(Pathway))                        { m.onPathway = append(m.onPathway, cb) }
func (m *Module) OnTransform(cb func(TransformEvent))                { m.onTransform = append(m.onTransform, cb) }
func (m *Module) OnVisibility(cb func(entityID string, visible bool)) {
	m.onVisibility = append(m.onVisibility, cb)
}
func (m *Module) OnRemoved(cb func(entityID string)) { m.onRemoved = append(m.onRemoved, cb) }

// OnStepSound registers cb to fire when a visible entity passes the
// throttle/block-move gate (§4.8 "Step sound emission"), mirroring
// physics.Service.OnStepOver's event shape for the avatar.
func (m *Module) OnStepSound(cb func(entityID string, block voxel.BlockPos)) {
	m.onStepSound = append(m.onStepSound, cb)
}

// GetModel returns the model for id, fetching it on a cache miss. A nil,
// nil return means the server reports no such model (§7 NotFound); a
// non-nil error is a network failure the caller may retry.
func (m *Module) GetModel(ctx context.Context, id string) (*EntityModel, error) {
	if model, ok := m.modelCache.Get(id); ok {
		return model, nil
	}
	v, err, _ := m.modelSF.Do(id, func() (interface{}, error) {
		model, ferr := m.models.FetchModel(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		m.modelCache.Set(id, model)
		return model, nil
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(*EntityModel), nil
}

// GetEntity returns the cached entity, fetching its server record on a
// cache miss and seeding a ClientEntity from it (§4.8 get_entity).
func (m *Module) GetEntity(ctx context.Context, id string) (*ClientEntity, error) {
	if e, ok := m.entityCache.Get(id); ok {
		return e, nil
	}
	v, err, _ := m.recordSF.Do(id, func() (interface{}, error) {
		if e, ok := m.entityCache.Peek(id); ok {
			return e, nil
		}
		rec, ferr := m.records.FetchEntity(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		if rec == nil {
			return nil, nil
		}
		e := &ClientEntity{
			ID:             rec.ID,
			ModelID:        rec.ModelID,
			Position:       rec.Position,
			Rotation:       rec.Rotation,
			Dimensions:     rec.Dimensions,
			Solid:          rec.Solid,
			AttentionRange: rec.NotifyOnAttentionRange,
		}
		m.entityCache.Set(id, e)
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(*ClientEntity), nil
}

// RemoveEntity evicts id explicitly, publishing `removed` (§3 lifecycle (a)).
func (m *Module) RemoveEntity(id string) {
	if _, ok := m.entityCache.Peek(id); !ok {
		return
	}
	m.entityCache.Delete(id)
	delete(m.pathways, id)
	for _, cb := range m.onRemoved {
		cb(id)
	}
}

// SetAvatarPosition feeds the avatar's current position for visibility and
// proximity evaluation; wired from physics.Service.OnPositionChanged by the
// host for the avatar's own entity id.
func (m *Module) SetAvatarPosition(pos voxel.Vector3) {
	m.avatarPos = pos
	m.haveAvatar = true
}

// SetAvatarMode feeds the avatar's current movement mode, consulted by
// stealthReduction when evaluating proximity (§4.8 "effective = range +
// stealthReduction(mode)").
func (m *Module) SetAvatarMode(mode voxel.MovementMode) {
	m.avatarMode = mode
}

// SetPathway implements §4.8 set_pathway: lazily fetches an unknown entity,
// stores the waypoint sequence, and either applies a velocity hint
// (physics-enabled) or snaps the transform directly (waypoint mode).
func (m *Module) SetPathway(ctx context.Context, p Pathway) {
	e, err := m.GetEntity(ctx, p.EntityID)
	if err != nil {
		m.logf("fetch entity %q for pathway: %v", p.EntityID, err)
		return
	}
	if e == nil {
		// Server has no record for this id; nothing to drive.
		return
	}

	m.pathways[p.EntityID] = &p
	e.Waypoints = p.Waypoints
	e.WaypointIndex = 0
	e.PhysicsEnabled = p.PhysicsEnabled

	if len(p.Waypoints) == 0 {
		for _, cb := range m.onPathway {
			cb(p)
		}
		return
	}
	first := p.Waypoints[0]

	if p.PhysicsEnabled {
		if p.Velocity != nil {
			e.Velocity = *p.Velocity
		}
		e.Rotation = first.Rotation
		if e.Position == (voxel.Vector3{}) {
			e.Position = first.Target
		}
	} else {
		e.Position = first.Target
		e.Rotation = first.Rotation
		if first.Pose != nil {
			e.Pose = *first.Pose
		}
	}

	for _, cb := range m.onPathway {
		cb(p)
	}
}

// OnChunkUnloaded hides every entity whose floor-chunk equals (cx,cz) (§4.8
// on_chunk_unloaded).
func (m *Module) OnChunkUnloaded(cx, cz int32, chunkSize int) {
	for el := m.entityCache.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*lruEntry[string, *ClientEntity]).value
		ecx, ecz, _, _ := voxel.WorldToChunk(e.Position.X, e.Position.Z, chunkSize)
		if ecx == cx && ecz == cz && e.Visible {
			e.Visible = false
			for _, cb := range m.onVisibility {
				cb(e.ID, false)
			}
		}
	}
}

// GetEntitiesInRadius returns every cached entity within radius of center,
// shaped as collision.Other so the Collision Detector's entity-vs-entity
// pass (§4.4) can consume it directly without this package importing
// physics (§4.8 get_entities_in_radius).
func (m *Module) GetEntitiesInRadius(center voxel.Vector3, radius float64) []collision.Other {
	var out []collision.Other
	for el := m.entityCache.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*lruEntry[string, *ClientEntity]).value
		if dist3(center, e.Position) > radius {
			continue
		}
		out = append(out, collision.Other{
			ID:         e.ID,
			Position:   e.Position,
			Dimensions: e.Dimensions,
			Solid:      e.Solid,
		})
	}
	return out
}

func dist3(a, b voxel.Vector3) float64 {
	return a.Sub(b).Length()
}
