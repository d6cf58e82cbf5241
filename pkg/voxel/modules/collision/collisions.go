package collision

import (
	"math"

	"github.com/go-mclib/voxelcore/pkg/voxel"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/blocktype"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/surface"
)

// BlockSource is the local collaborator the Detector reads resolved blocks
// through; chunkservice.Service implements it.
type BlockSource interface {
	ModifierAt(pos voxel.BlockPos) (blocktype.Modifier, bool)
}

// Detector resolves predictive swept-axis movement against block collisions
// (§4.4). It holds no entity state itself — resolve_collision is a pure
// function of its Input.
type Detector struct {
	blocks BlockSource
	// MaxClimbHeight is the slope cap below which a step is always taken
	// without clamping (§4.4 step 5, default 0.1).
	MaxClimbHeight float64
}

// New builds a Detector reading blocks through src, with the spec default
// MaxClimbHeight.
func New(src BlockSource) *Detector {
	return &Detector{blocks: src, MaxClimbHeight: 0.1}
}

// Input is one resolve_collision call's parameters (§4.4 contract).
type Input struct {
	Position       voxel.Vector3
	WishPosition   voxel.Vector3
	Dimensions     voxel.Dimensions
	AutoClimbable  bool // whether the entity's own state currently allows the one-block step-up; false blocks it
	InWall         bool // entity currently stands inside a WALL (solid=false, passableFrom set) block; not consulted by Resolve
}

// Result carries the resolved position plus the side-effects the contract
// allows: velocity-zeroing flags and grounded/onSlope (§4.4 Contract).
type Result struct {
	Position      voxel.Vector3
	ZeroVX        bool
	ZeroVY        bool
	ZeroVZ        bool
	Grounded      bool
	OnSlope       bool
	CollisionHits []voxel.BlockPos // blocks with collisionEvent=true touched this step
}

// Resolve implements resolve_collision: Y axis first, then XZ as a single
// predictive pass (§4.4).
func (d *Detector) Resolve(in Input) Result {
	pos := in.Position
	dims := in.Dimensions
	res := Result{Position: pos}

	dy := in.WishPosition.Y - pos.Y
	newY, zeroVY, grounded, onSlope := d.resolveVertical(pos, dims, dy)
	res.ZeroVY = zeroVY
	res.Grounded = grounded
	res.OnSlope = onSlope
	pos.Y = newY

	dx := in.WishPosition.X - in.Position.X
	dz := in.WishPosition.Z - in.Position.Z
	newX, newZ, zeroVX, zeroVZ, climb := d.resolveHorizontal(pos, dims, dx, dz, in.AutoClimbable, in.InWall)

	// Step/vault auto-climb as a secondary pass (§9 Design Notes): retry the
	// horizontal move one step higher before accepting the block.
	if climb > 0 {
		lifted := pos
		lifted.Y += climb
		if lx, lz, lzx, lzz, _ := d.resolveHorizontal(lifted, dims, dx, dz, in.AutoClimbable, in.InWall); lx != pos.X || lz != pos.Z {
			pos.Y += climb
			newX, newZ, zeroVX, zeroVZ = lx, lz, lzx, lzz
			res.Grounded = true
		}
	}

	res.ZeroVX = zeroVX
	res.ZeroVZ = zeroVZ
	pos.X = newX
	pos.Z = newZ

	res.Position = pos
	res.CollisionHits = d.collisionEvents(pos, dims)
	return res
}

func (d *Detector) modifierAt(pos voxel.BlockPos) blocktype.Modifier {
	mod, _ := d.blocks.ModifierAt(pos)
	return mod
}

// resolveVertical implements the Vertical resolution rules of §4.4.
func (d *Detector) resolveVertical(pos voxel.Vector3, dims voxel.Dimensions, dy float64) (newY float64, zeroV, grounded, onSlope bool) {
	if dy == 0 {
		// Still need to evaluate current ground state for callers that
		// only query grounded without moving vertically this step.
		return pos.Y, false, d.isGroundedAt(pos, dims), false
	}

	targetY := pos.Y + dy
	if dy > 0 {
		headY := int(math.Floor(pos.Y + dims.Height))
		for _, cell := range footprintCells(pos.X, pos.Z, dims.Footprint/2) {
			bp := voxel.BlockPos{X: cell[0], Y: headY, Z: cell[1]}
			mod := d.modifierAt(bp)
			phys := mod.Physics
			if !phys.Solid {
				continue
			}
			if phys.PassableFrom.Has(voxel.Down) {
				continue
			}
			clamped := float64(bp.Y) - dims.Height
			if clamped < targetY {
				targetY = clamped
			}
			zeroV = true
		}
		return targetY, zeroV, false, false
	}

	feetY := int(math.Floor(pos.Y + dy))
	for _, cell := range footprintCells(pos.X, pos.Z, dims.Footprint/2) {
		bp := voxel.BlockPos{X: cell[0], Y: feetY, Z: cell[1]}
		mod := d.modifierAt(bp)
		phys := mod.Physics
		if !phys.Solid {
			continue
		}
		heights, hasCorners := surface.CornerHeights(mod, phys.VertexOffsets, phys.UnitHeight)
		if !hasCorners {
			if phys.PassableFrom.Has(voxel.Up) {
				continue
			}
			floorY := float64(bp.Y + 1)
			if floorY > targetY {
				targetY = floorY
				grounded = true
				zeroV = true
			}
			continue
		}
		u := pos.X - math.Floor(pos.X)
		v := pos.Z - math.Floor(pos.Z)
		surfY := float64(bp.Y) + surface.InterpolateY(heights, u, v)
		if surfY > targetY {
			targetY = surfY
			grounded = true
			onSlope = true
			zeroV = true
		}
	}
	if !grounded {
		grounded = d.isGroundedAt(voxel.Vector3{X: pos.X, Y: targetY, Z: pos.Z}, dims)
	}
	return targetY, zeroV, grounded, onSlope
}

func (d *Detector) isGroundedAt(pos voxel.Vector3, dims voxel.Dimensions) bool {
	feetY := int(math.Floor(pos.Y - Epsilon))
	for _, cell := range footprintCells(pos.X, pos.Z, dims.Footprint/2) {
		mod := d.modifierAt(voxel.BlockPos{X: cell[0], Y: feetY, Z: cell[1]})
		if mod.Physics.Solid {
			return true
		}
	}
	return false
}

// resolveHorizontal implements the Horizontal resolution rules of §4.4 for
// the blocks at the target position. It does not check whether an entity
// that already stands inside a WALL block may leave it through the side it
// is moving toward: inWall is accepted but ignored.
func (d *Detector) resolveHorizontal(pos voxel.Vector3, dims voxel.Dimensions, dx, dz float64, autoClimbable, inWall bool) (newX, newZ float64, zeroVX, zeroVZ bool, climb float64) {
	if dx == 0 && dz == 0 {
		return pos.X, pos.Z, false, false, 0
	}

	targetX, targetZ := pos.X+dx, pos.Z+dz
	// passableFrom names the faces a block may be entered through, and a
	// block is entered through the face opposite the direction of travel
	// (moving south enters through the north face), the same convention
	// resolveVertical uses for Up/Down.
	move := movementDirections(dx, dz)
	var dirs voxel.Direction
	if move.Has(voxel.East) {
		dirs = dirs.With(voxel.West)
	}
	if move.Has(voxel.West) {
		dirs = dirs.With(voxel.East)
	}
	if move.Has(voxel.South) {
		dirs = dirs.With(voxel.North)
	}
	if move.Has(voxel.North) {
		dirs = dirs.With(voxel.South)
	}

	cells := footprintCells(targetX, targetZ, dims.Footprint/2)
	feetY := int(math.Floor(pos.Y))
	topY := feetY + int(math.Ceil(dims.Height)) - 1
	if topY < feetY {
		topY = feetY
	}

	blocked := false
	needsClimb := false
	bestClimb := 0.0

	for _, cell := range cells {
		for y := feetY; y <= topY; y++ {
			mod := d.modifierAt(voxel.BlockPos{X: cell[0], Y: y, Z: cell[1]})
			phys := mod.Physics

			switch {
			case !phys.Solid && phys.PassableFrom != 0:
				// WALL: passable iff all implied entry directions pass.
				if !phys.PassableFrom.Has(dirs) {
					blocked = true
				}
			case phys.Solid && phys.PassableFrom != 0:
				if !phys.PassableFrom.Has(dirs) {
					blocked = true
				}
			case phys.Solid:
				// Solid, no passableFrom: auto-climb policy.
				heightDiff := float64(y+1) - pos.Y
				heights, hasCorners := surface.CornerHeights(mod, phys.VertexOffsets, phys.UnitHeight)
				maxCorner := 0.0
				if hasCorners {
					maxCorner = surface.MaxHeight(heights)
				}
				switch {
				case hasCorners && maxCorner <= d.MaxClimbHeight:
					// slope-capped: always stepped over, no clamp at all.
				case heightDiff > 0 && heightDiff <= 1.0:
					if !autoClimbable || !phys.IsAutoClimbable() {
						blocked = true
					} else {
						needsClimb = true
						if heightDiff > bestClimb {
							bestClimb = heightDiff
						}
					}
				case dims.Height >= 1.5:
					needsClimb = true
					if heightDiff > bestClimb {
						bestClimb = heightDiff
					}
				default:
					blocked = true
				}
			}
		}
	}
	_ = inWall

	if blocked {
		return pos.X, pos.Z, true, true, 0
	}
	if needsClimb {
		// Signal the caller to retry this move one step higher (§9 Design
		// Notes: step-up as a secondary pass); not yet accepted.
		return pos.X, pos.Z, true, true, bestClimb
	}
	return targetX, targetZ, false, false, 0
}

// movementDirections returns the set of cardinal directions implied by the
// sign of dx/dz; a diagonal move contributes two bits (§4.4 step 2).
func movementDirections(dx, dz float64) voxel.Direction {
	var d voxel.Direction
	if dx > 0 {
		d = d.With(voxel.East)
	} else if dx < 0 {
		d = d.With(voxel.West)
	}
	if dz > 0 {
		d = d.With(voxel.South)
	} else if dz < 0 {
		d = d.With(voxel.North)
	}
	return d
}

// footprintCells returns the deduplicated footprint corner cells, matching
// blockcontext's sampling rule (§4.3 Footprint sampling).
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

// collisionEvents returns the positions of every touched block whose
// modifier has collisionEvent=true (§4.4 Vertical resolution).
func (d *Detector) collisionEvents(pos voxel.Vector3, dims voxel.Dimensions) []voxel.BlockPos {
	feetY := int(math.Floor(pos.Y))
	topY := feetY + int(math.Ceil(dims.Height)) - 1
	var hits []voxel.BlockPos
	for _, cell := range footprintCells(pos.X, pos.Z, dims.Footprint/2) {
		for y := feetY; y <= topY; y++ {
			bp := voxel.BlockPos{X: cell[0], Y: y, Z: cell[1]}
			if d.modifierAt(bp).Physics.CollisionEvent {
				hits = append(hits, bp)
			}
		}
	}
	return hits
}
