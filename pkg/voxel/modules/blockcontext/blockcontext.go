// Package blockcontext produces the eight-category neighborhood snapshot
// (§4.3) the Physics Service reads every step, feeding ground resistance,
// auto-jump/move/orientation and slope data into its movement step. It is
// grounded on the teacher's collisions.Module, which samples a handful of
// fixed offsets around an entity's AABB before testing each for solidity;
// this package generalizes that fixed-offset sampling into named categories
// with OR/MAX aggregation instead of a flat block slice.
package blockcontext

import (
	"math"
	"time"

	"github.com/go-mclib/voxelcore/pkg/voxel"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/blocktype"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/surface"
)

// BlockSource is the local collaborator interface for reading a resolved
// block's merged modifier at a position; chunkservice.Service implements it.
type BlockSource interface {
	ModifierAt(pos voxel.BlockPos) (blocktype.Modifier, bool)
}

// ResolvedBlock pairs a sampled position with the modifier found there.
type ResolvedBlock struct {
	Pos      voxel.BlockPos
	Modifier blocktype.Modifier
	Present  bool
}

// BlockGroup is one of the eight categories, pre-aggregated (§4.3
// Aggregation).
type BlockGroup struct {
	Blocks           []ResolvedBlock
	HasSolid         bool
	AllPassable      bool
	AllNonSolid      bool
	PassableFrom     voxel.Direction
	Resistance       float64
	AutoJump         float64
	AutoMove         voxel.Vector3
	AutoOrientationY float64
	// MaxHeight/CornerHeights are only meaningful for ground/foot-front
	// categories (slope math); zero value elsewhere.
	MaxHeight     float64
	CornerHeights [4]float64
	HasCorners    bool
}

// PlayerBlockContext is the full eight-category snapshot for one entity at
// one position/orientation (§4.3).
type PlayerBlockContext struct {
	CurrentBlocks    BlockGroup
	EnteringBlocks   BlockGroup
	FrontBlocks      BlockGroup
	FootBlocks       BlockGroup
	FootFrontBlocks  BlockGroup
	GroundBlocks     BlockGroup
	GroundFootBlocks BlockGroup
	HeadBlocks       BlockGroup
}

func newGroup(blocks []ResolvedBlock) BlockGroup {
	g := BlockGroup{Blocks: blocks, AllPassable: true, AllNonSolid: true}
	for _, b := range blocks {
		if !b.Present {
			continue
		}
		phys := b.Modifier.Physics
		if phys.Solid {
			g.HasSolid = true
			g.AllNonSolid = false
			if phys.PassableFrom == 0 {
				g.AllPassable = false
			}
		}
		g.PassableFrom = g.PassableFrom.With(phys.PassableFrom)
		if phys.Resistance > g.Resistance {
			g.Resistance = phys.Resistance
		}
		if phys.AutoJump > g.AutoJump {
			g.AutoJump = phys.AutoJump
		}
		g.AutoMove = maxAbsSign(g.AutoMove, phys.AutoMove)
		if phys.AutoOrientationY != 0 {
			g.AutoOrientationY = phys.AutoOrientationY
		}
	}
	if len(blocks) == 0 {
		g.AllNonSolid = true
		g.AllPassable = true
	}
	return g
}

// maxAbsSign takes the componentwise value with the larger magnitude,
// keeping its sign (§4.3 Aggregation: "componentwise max-abs-sign").
func maxAbsSign(a, b voxel.Vector3) voxel.Vector3 {
	pick := func(x, y float64) float64 {
		if math.Abs(y) > math.Abs(x) {
			return y
		}
		return x
	}
	return voxel.Vector3{X: pick(a.X, b.X), Y: pick(a.Y, b.Y), Z: pick(a.Z, b.Z)}
}

func withSlope(g BlockGroup, heights [4]float64, has bool) BlockGroup {
	if !has {
		return g
	}
	g.HasCorners = true
	g.CornerHeights = heights
	m := heights[0]
	for _, h := range heights[1:] {
		if h > m {
			m = h
		}
	}
	g.MaxHeight = m
	return g
}

// FrontDirection derives the yaw-facing cardinal by quadrant, resolving the
// diagonal case against the 45-degree bisectors (§4.3).
func FrontDirection(yawRadians float64) voxel.Direction {
	// Normalize into [0, 2pi).
	yaw := math.Mod(yawRadians, 2*math.Pi)
	if yaw < 0 {
		yaw += 2 * math.Pi
	}
	const q = math.Pi / 4
	switch {
	case yaw < q || yaw >= 7*q:
		return voxel.North
	case yaw < 3*q:
		return voxel.East
	case yaw < 5*q:
		return voxel.South
	default:
		return voxel.West
	}
}

func directionOffset(d voxel.Direction) (dx, dz int) {
	switch d {
	case voxel.North:
		return 0, -1
	case voxel.South:
		return 0, 1
	case voxel.East:
		return 1, 0
	case voxel.West:
		return -1, 0
	default:
		return 0, 0
	}
}

// footprintCells returns the deduplicated set of (x,z) block columns covered
// by an entity's footprint centered at (cx, cz) (§4.3 Footprint sampling).
func footprintCells(cx, cz, footprint float64) [][2]int {
	if footprint <= 0 {
		return [][2]int{{int(math.Floor(cx)), int(math.Floor(cz))}}
	}
	corners := [4][2]float64{
		{cx - footprint, cz - footprint},
		{cx + footprint, cz - footprint},
		{cx + footprint, cz + footprint},
		{cx - footprint, cz + footprint},
	}
	seen := map[[2]int]bool{}
	var out [][2]int
	for _, c := range corners {
		cell := [2]int{int(math.Floor(c[0])), int(math.Floor(c[1]))}
		if seen[cell] {
			continue
		}
		seen[cell] = true
		out = append(out, cell)
	}
	return out
}

type cacheKey struct {
	entityID string
	x, y, z  int
}

type cacheEntry struct {
	ctx     PlayerBlockContext
	expires time.Time
}

// Analyzer computes and caches PlayerBlockContext snapshots (§4.3 Caching).
type Analyzer struct {
	source BlockSource
	ttl    time.Duration
	now    func() time.Time

	cache map[cacheKey]cacheEntry
}

// New builds an Analyzer reading blocks through source, with the spec
// default 100ms TTL.
func New(source BlockSource) *Analyzer {
	return &Analyzer{
		source: source,
		ttl:    100 * time.Millisecond,
		now:    time.Now,
		cache:  make(map[cacheKey]cacheEntry),
	}
}

// InvalidateCell drops any cached context whose key cell matches pos,
// called when a block update touches that cell (§4.3 Caching).
func (a *Analyzer) InvalidateCell(pos voxel.BlockPos) {
	for k := range a.cache {
		if k.x == pos.X && k.y == pos.Y && k.z == pos.Z {
			delete(a.cache, k)
		}
	}
}

// Analyze computes the PlayerBlockContext for entityID at position/yaw with
// dims and lastPos (the entity's previous frame position, for enteringBlocks
// detection), serving from cache within the TTL window.
func (a *Analyzer) Analyze(entityID string, pos voxel.Vector3, yawRadians float64, dims voxel.Dimensions, lastPos voxel.Vector3) PlayerBlockContext {
	key := cacheKey{entityID, int(math.Floor(pos.X)), int(math.Floor(pos.Y)), int(math.Floor(pos.Z))}
	now := a.now()
	if e, ok := a.cache[key]; ok && now.Before(e.expires) {
		return e.ctx
	}

	ctx := a.compute(pos, yawRadians, dims, lastPos)
	a.cache[key] = cacheEntry{ctx: ctx, expires: now.Add(a.ttl)}
	return ctx
}

func (a *Analyzer) resolve(x, y, z int) ResolvedBlock {
	pos := voxel.BlockPos{X: x, Y: y, Z: z}
	mod, present := a.source.ModifierAt(pos)
	return ResolvedBlock{Pos: pos, Modifier: mod, Present: present}
}

func (a *Analyzer) columnBlocks(cells [][2]int, yFrom, yTo int) []ResolvedBlock {
	var out []ResolvedBlock
	for _, cell := range cells {
		for y := yFrom; y <= yTo; y++ {
			out = append(out, a.resolve(cell[0], y, cell[1]))
		}
	}
	return out
}

func (a *Analyzer) compute(pos voxel.Vector3, yawRadians float64, dims voxel.Dimensions, lastPos voxel.Vector3) PlayerBlockContext {
	feetY := int(math.Floor(pos.Y))
	headY := feetY + int(math.Ceil(dims.Height)) - 1
	if headY < feetY {
		headY = feetY
	}
	footprint := dims.Footprint / 2

	cells := footprintCells(pos.X, pos.Z, footprint)

	current := newGroup(a.columnBlocks(cells, feetY, headY))

	var entering []ResolvedBlock
	lastCell := [2]int{int(math.Floor(lastPos.X)), int(math.Floor(lastPos.Z))}
	curCell := [2]int{int(math.Floor(pos.X)), int(math.Floor(pos.Z))}
	if lastCell != curCell || int(math.Floor(lastPos.Y)) != feetY {
		entering = a.columnBlocks(cells, feetY, headY)
	}
	enteringGroup := newGroup(entering)

	dir := FrontDirection(yawRadians)
	dx, dz := directionOffset(dir)
	frontCells := make([][2]int, len(cells))
	for i, c := range cells {
		frontCells[i] = [2]int{c[0] + dx, c[1] + dz}
	}
	front := newGroup(a.columnBlocks(frontCells, feetY, headY))

	foot := newGroup(a.columnBlocks(cells, feetY, feetY))
	footFront := newGroup(a.columnBlocks(frontCells, feetY, feetY))

	ground := newGroup(a.columnBlocks(cells, feetY-1, feetY-1))
	groundFoot := newGroup(a.columnBlocks(cells, feetY, feetY))
	head := newGroup(a.columnBlocks(cells, headY, headY))
	footFront = attachSlope(footFront)
	ground = attachSlope(ground)
	groundFoot = attachSlope(groundFoot)

	return PlayerBlockContext{
		CurrentBlocks:    current,
		EnteringBlocks:   enteringGroup,
		FrontBlocks:      front,
		FootBlocks:       foot,
		FootFrontBlocks:  footFront,
		GroundBlocks:     ground,
		GroundFootBlocks: groundFoot,
		HeadBlocks:       head,
	}
}

// attachSlope decodes corner heights for a category's first present block
// through the surface package (§4.2 precedence: explicit CornerHeights,
// else the block model's vertex offset table, else "cube") and attaches
// them via WithSlope, used for the ground/foot-front slope categories
// (§4.3 Aggregation).
func attachSlope(g BlockGroup) BlockGroup {
	for _, b := range g.Blocks {
		if !b.Present {
			continue
		}
		phys := b.Modifier.Physics
		heights, ok := surface.CornerHeights(b.Modifier, phys.VertexOffsets, phys.UnitHeight)
		if ok {
			return WithSlope(g, heights)
		}
	}
	return g
}

// WithSlope attaches slope data (corner heights + max height) to a category
// group (§4.3: "for ground/foot-front, slope maxHeight and cornerHeights").
func WithSlope(g BlockGroup, heights [4]float64) BlockGroup {
	return withSlope(g, heights, true)
}
