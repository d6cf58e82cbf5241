package physics

import (
	"math"

	"github.com/go-mclib/voxelcore/pkg/voxel"
)

// applyStuckPushUp implements §4.6 step 2(c): "apply push-up if stuck in
// solid with a clear head". An entity whose full footprint/height box is
// embedded in solid blocks (e.g. a world edit or teleport dropped it inside
// terrain) is nudged up one block when the cell directly above its head is
// clear, rather than left wedged for the collision pass to fight with every
// frame. Runs before the block-context sample and the grounded/collision
// pass, mirroring the teacher's collisions.Module step-up retry shape but
// applied vertically ahead of the main resolve instead of as a horizontal
// retry.
func (s *Service) applyStuckPushUp(e *Entity, dims voxel.Dimensions) {
	feetY := int(math.Floor(e.Position.Y))
	headY := feetY + int(math.Ceil(dims.Height)) - 1
	if headY < feetY {
		headY = feetY
	}
	cells := footprintCells(e.Position.X, e.Position.Z, dims.Footprint/2)

	if !s.fullyEmbedded(cells, feetY, headY) {
		return
	}
	if !s.headClear(cells, headY+1) {
		return
	}
	e.Position.Y = float64(feetY + 1)
}

func (s *Service) fullyEmbedded(cells [][2]int, feetY, headY int) bool {
	for _, cell := range cells {
		for y := feetY; y <= headY; y++ {
			mod, _ := s.blocks.ModifierAt(voxel.BlockPos{X: cell[0], Y: y, Z: cell[1]})
			if !mod.Physics.Solid {
				return false
			}
		}
	}
	return true
}

func (s *Service) headClear(cells [][2]int, y int) bool {
	for _, cell := range cells {
		mod, _ := s.blocks.ModifierAt(voxel.BlockPos{X: cell[0], Y: y, Z: cell[1]})
		if mod.Physics.Solid {
			return false
		}
	}
	return true
}

// footprintCells returns the deduplicated footprint corner cells, matching
// blockcontext's and collision's sampling rule (§4.3 Footprint sampling).
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
