package physics

import (
	"math"

	"github.com/go-mclib/voxelcore/pkg/voxel"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/blocktype"
)

// fluidPushScale mirrors the teacher's WaterFlowScale — the push is a small
// nudge, not a replacement for the swim-mode vertical wish.
const fluidPushScale = 0.08

// applyFluidPush nudges a swimming entity standing in a moving current,
// adapted from the teacher's fluid.go applyFluidPushing: derive a flow
// vector from neighboring water-shaped blocks' levels and add a scaled
// nudge to velocity (§4.6, SUPPLEMENTED FEATURES).
func (s *Service) applyFluidPush(e *Entity, dt float64) {
	if e.Mode != voxel.ModeSwim && !e.InWater {
		return
	}

	feetY := int(math.Floor(e.Position.Y))
	cx, cz := int(math.Floor(e.Position.X)), int(math.Floor(e.Position.Z))

	mod, ok := s.blocks.ModifierAt(voxel.BlockPos{X: cx, Y: feetY, Z: cz})
	if !ok || !voxel.IsWaterShape(mod.Visibility.Shape) {
		return
	}

	fx, fz := s.fluidFlow(cx, feetY, cz, mod)
	if fx == 0 && fz == 0 {
		return
	}

	e.moveState.Velocity.X += fx * fluidPushScale * dt
	e.moveState.Velocity.Z += fz * fluidPushScale * dt
}

// fluidFlow derives a flow direction from neighboring water-shape blocks'
// levels, the way the teacher's getFluidFlow reads neighboring fluid
// heights: flow points from a higher (more full) level toward a lower one.
func (s *Service) fluidFlow(x, y, z int, here blocktype.Modifier) (flowX, flowZ float64) {
	currentHeight := fluidHeight(here.Visibility.WaterLevel)

	dirs := [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for _, d := range dirs {
		neighbor, ok := s.blocks.ModifierAt(voxel.BlockPos{X: x + d[0], Y: y, Z: z + d[1]})
		if !ok || !voxel.IsWaterShape(neighbor.Visibility.Shape) {
			continue
		}
		diff := currentHeight - fluidHeight(neighbor.Visibility.WaterLevel)
		flowX += float64(d[0]) * diff
		flowZ += float64(d[1]) * diff
	}

	length := math.Hypot(flowX, flowZ)
	if length > 1e-9 {
		flowX /= length
		flowZ /= length
	}
	return flowX, flowZ
}

// fluidHeight converts a Minecraft-style level (0 = source/full, up to 7 =
// most spread) into a height fraction, the way the teacher's fluidAmount
// does.
func fluidHeight(level int) float64 {
	if level <= 0 {
		return 1
	}
	if level > 7 {
		level = 7
	}
	return float64(8-level) / 8
}
