// Package voxel holds the core client engine: the shared types, the Module
// registry, and the event wiring that the per-concern modules under
// pkg/voxel/modules/* build on.
package voxel

import "math"

// Vector3 is a plain 3D vector used throughout the engine for positions,
// velocities and intents.
type Vector3 struct {
	X, Y, Z float64
}

func (v Vector3) Add(o Vector3) Vector3 { return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vector3) Sub(o Vector3) Vector3 { return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vector3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize returns the unit vector, or the zero vector if v is ~zero.
func (v Vector3) Normalize() Vector3 {
	l := v.Length()
	if l < 1e-9 {
		return Vector3{}
	}
	return v.Scale(1 / l)
}

// BlockPos is an integer block coordinate.
type BlockPos struct {
	X, Y, Z int
}

// ChunkPos is a signed chunk-column coordinate.
type ChunkPos struct {
	CX, CZ int32
}

// ChebyshevDistance returns max(|dcx|, |dcz|) between two chunk positions,
// used by the sliding-window unload check.
func (p ChunkPos) ChebyshevDistance(o ChunkPos) int32 {
	dx := p.CX - o.CX
	if dx < 0 {
		dx = -dx
	}
	dz := p.CZ - o.CZ
	if dz < 0 {
		dz = -dz
	}
	if dx > dz {
		return dx
	}
	return dz
}

// WorldToChunk converts a world coordinate to its containing chunk coordinate
// and the non-negative (Euclidean) local offset within that chunk.
func WorldToChunk(x, z float64, chunkSize int) (cx, cz int32, localX, localZ int) {
	size := float64(chunkSize)
	cx = int32(math.Floor(x / size))
	cz = int32(math.Floor(z / size))
	localX = euclideanMod(int(math.Floor(x)), chunkSize)
	localZ = euclideanMod(int(math.Floor(z)), chunkSize)
	return
}

func euclideanMod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

// Direction is a bitset over the six block faces, used to model
// passableFrom one-way gates (§3, §4.4).
type Direction uint8

const (
	North Direction = 1 << iota
	East
	South
	West
	Up
	Down
)

const AllDirections = North | East | South | West | Up | Down

// Has reports whether d includes every bit of other.
func (d Direction) Has(other Direction) bool { return d&other == other }

// HasAny reports whether d includes any bit of other.
func (d Direction) HasAny(other Direction) bool { return d&other != 0 }

// With returns d with other's bits set.
func (d Direction) With(other Direction) Direction { return d | other }

// Without returns d with other's bits cleared.
func (d Direction) Without(other Direction) Direction { return d &^ other }

// MovementMode tags the avatar's current locomotion mode; it selects
// dimensions and physics parameters (§3, §4.5).
type MovementMode string

const (
	ModeWalk     MovementMode = "walk"
	ModeSprint   MovementMode = "sprint"
	ModeCrouch   MovementMode = "crouch"
	ModeSwim     MovementMode = "swim"
	ModeClimb    MovementMode = "climb"
	ModeFly      MovementMode = "fly"
	ModeFreeFly  MovementMode = "free_fly"
	ModeTeleport MovementMode = "teleport"
)

// Dimensions is an entity's collision footprint for a given movement mode.
type Dimensions struct {
	Height    float64
	Width     float64
	Footprint float64
}

// DefaultDimensions is the hard fallback when no mode-specific entry exists.
var DefaultDimensions = Dimensions{Height: 1.8, Width: 0.6, Footprint: 0.6}

// dimensionFallback chains a mode to the mode whose dimensions it borrows
// when it has none of its own registered (§3).
var dimensionFallback = map[MovementMode]MovementMode{
	ModeSprint:   ModeWalk,
	ModeFreeFly:  ModeFly,
	ModeTeleport: ModeWalk,
}

// ResolveDimensions looks up dims for mode, following the fallback chain,
// then the hard default.
func ResolveDimensions(byMode map[MovementMode]Dimensions, mode MovementMode) Dimensions {
	seen := map[MovementMode]bool{}
	for m := mode; ; {
		if seen[m] {
			break
		}
		seen[m] = true
		if d, ok := byMode[m]; ok {
			return d
		}
		next, ok := dimensionFallback[m]
		if !ok {
			break
		}
		m = next
	}
	return DefaultDimensions
}

// Shape tags a block's rendered/physical silhouette; only the water-bearing
// shapes are distinguished here since that's what height-column and
// underwater derivation need (§3).
type Shape string

const (
	ShapeCube           Shape = "cube"
	ShapeOcean          Shape = "ocean"
	ShapeWater          Shape = "water"
	ShapeRiver          Shape = "river"
	ShapeOceanMaelstrom Shape = "ocean_maelstrom"
	ShapeOceanCoast     Shape = "ocean_coast"
)

// IsWaterShape reports whether shape counts toward a column's waterLevel.
func IsWaterShape(s Shape) bool {
	switch s {
	case ShapeOcean, ShapeWater, ShapeRiver, ShapeOceanMaelstrom, ShapeOceanCoast:
		return true
	default:
		return false
	}
}
