// Package surface decodes a block's four top-corner heights for slope and
// semi-solid-surface math (§4.2). It has no teacher-module analogue of its
// own — go-mclib-client's blocks are always full cubes — so the decoding
// rule is grounded directly on spec.md §4.2 and kept as a small pure
// function package, the same leaf-utility shape as the teacher's
// pkg/client/modules/collisions/aabb.go.
package surface

import "github.com/go-mclib/voxelcore/pkg/voxel/modules/blocktype"

// cornerOffsetIndices are the indices into a block model's raw vertex
// offset table that encode the Y offset of the four top corners, in
// [NW, NE, SE, SW] order (§4.2).
var cornerOffsetIndices = [4]int{19, 22, 16, 13}

// CornerHeights returns the block's four top-corner heights as fractions in
// [0,1], in [NW, NE, SE, SW] order, and whether the block has a non-cube
// surface at all. A cube (the common case) reports ok=false so callers can
// take the cheap flat-top path.
//
// Precedence (§4.2): an explicit CornerHeights on the modifier wins; else
// derive from offsets (normalized by unitHeight); else report "cube".
func CornerHeights(mod blocktype.Modifier, offsets []float64, unitHeight float64) (heights [4]float64, ok bool) {
	if mod.Physics.CornerHeights != nil {
		return *mod.Physics.CornerHeights, true
	}
	if len(offsets) == 0 || unitHeight == 0 {
		return heights, false
	}
	for i, idx := range cornerOffsetIndices {
		if idx >= len(offsets) {
			return heights, false
		}
		heights[i] = offsets[idx] / unitHeight
	}
	return heights, true
}

// InterpolateY bilinearly interpolates the surface height at a local (u, v)
// position within the block's unit square, given its four corner heights in
// [NW, NE, SE, SW] order. u runs west→east (x), v runs north→south (z),
// both in [0,1].
func InterpolateY(heights [4]float64, u, v float64) float64 {
	nw, ne, se, sw := heights[0], heights[1], heights[2], heights[3]
	north := nw + (ne-nw)*u
	south := sw + (se-sw)*u
	return north + (south-north)*v
}

// MaxHeight returns the tallest of the four corners, used for slope-cap
// auto-climb decisions (§4.4 step 5).
func MaxHeight(heights [4]float64) float64 {
	m := heights[0]
	for _, h := range heights[1:] {
		if h > m {
			m = h
		}
	}
	return m
}
