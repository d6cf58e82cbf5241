package collision

import (
	"math"

	"github.com/go-mclib/voxelcore/pkg/voxel"
)

// Other is a candidate entity for the entity-vs-entity pass (§4.4
// Entity-vs-entity).
type Other struct {
	ID         string
	Position   voxel.Vector3
	Dimensions voxel.Dimensions
	Solid      bool
}

// ResolvePushback pushes pos away from every solid, overlapping Other in
// others, scaled by penetration depth, mirroring the teacher's
// physics.Module.applyEntityPushing (circle overlap in XZ scaled by
// 1/dist, not a fixed-step separation).
func ResolvePushback(pos voxel.Vector3, dims voxel.Dimensions, others []Other) (adjusted voxel.Vector3, collidedIDs []string) {
	adjusted = pos
	myRadius := dims.Footprint / 2
	for _, o := range others {
		if !o.Solid {
			continue
		}
		if !yOverlaps(pos.Y, dims.Height, o.Position.Y, o.Dimensions.Height) {
			continue
		}

		dx := adjusted.X - o.Position.X
		dz := adjusted.Z - o.Position.Z
		dist := math.Hypot(dx, dz)
		minDist := myRadius + o.Dimensions.Footprint/2
		if dist >= minDist || dist < 1e-9 {
			if dist < 1e-9 {
				// Exactly coincident centers: nudge along an arbitrary axis
				// so the push direction is well-defined.
				dx, dist = 1e-4, 1e-4
			} else {
				continue
			}
		}

		collidedIDs = append(collidedIDs, o.ID)
		overlap := minDist - dist
		nx, nz := dx/dist, dz/dist
		adjusted.X += nx * overlap
		adjusted.Z += nz * overlap
	}
	return adjusted, collidedIDs
}

func yOverlaps(y1, h1, y2, h2 float64) bool {
	return y1 < y2+h2 && y2 < y1+h1
}
