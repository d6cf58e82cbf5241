package blocktype

import "github.com/go-mclib/voxelcore/pkg/voxel"

// PhysicsFacet carries everything collision, movement and surface math need
// from a block-type modifier (§3).
type PhysicsFacet struct {
	Solid bool
	// PassableFrom is the set of faces that permit entry despite Solid
	// (one-way gates / thin walls).
	PassableFrom voxel.Direction
	// CornerHeights, if non-nil, gives the four top-corner heights
	// [NW, NE, SE, SW] as fractions in [0,1] for a semi-solid surface.
	CornerHeights *[4]float64
	// VertexOffsets is the block model's raw vertex offset table; consulted
	// by surface.CornerHeights (§4.2) to derive corner heights when
	// CornerHeights isn't set explicitly. UnitHeight normalizes it. Both are
	// empty/zero for ordinary cube block types.
	VertexOffsets []float64
	UnitHeight    float64
	Resistance    float64
	// AutoClimbable is tri-state: nil means "absent", which defaults to
	// climbable per §4.4 step 5 / scenario S5.
	AutoClimbable    *bool
	AutoMove         voxel.Vector3
	AutoOrientationY float64
	AutoJump         float64
	Climbable        float64
	CollisionEvent   bool
}

// IsAutoClimbable returns the effective auto-climbable flag, defaulting to
// true when absent (§4.4, S5).
func (p PhysicsFacet) IsAutoClimbable() bool {
	if p.AutoClimbable == nil {
		return true
	}
	return *p.AutoClimbable
}

// VisibilityFacet is mostly a rendering concern, carried through so a merged
// modifier can be handed to the out-of-scope rendering collaborator. The
// core reads only Shape (water columns, fluid push) and WaterLevel (flow
// direction).
type VisibilityFacet struct {
	Shape voxel.Shape
	// WaterLevel is a Minecraft-style fluid level (0 = source, up to 7 =
	// most spread out, +8 = falling variant), meaningful only when Shape is
	// a water shape; used to derive current flow direction for swim push.
	WaterLevel int
}

// AudioFacet and WindFacet are opaque render/audio-collaborator payloads;
// the core never reads their fields itself.
type AudioFacet struct {
	StepSound string
}

type WindFacet struct {
	SwayStrength float64
}

// Modifier bundles the four orthogonal facets selectable by status key and
// overridable per-block (§3, GLOSSARY).
type Modifier struct {
	Visibility VisibilityFacet
	Physics    PhysicsFacet
	Audio      AudioFacet
	Wind       WindFacet
}

// BlockType is the identity plus status-keyed modifier table returned by
// the registry (§3).
type BlockType struct {
	ID        string
	Modifiers map[int]Modifier
}

// ModifierFor returns the modifier for a status key, falling back to key 0
// (the type's base modifier) when the key is absent.
func (t *BlockType) ModifierFor(statusKey int) Modifier {
	if m, ok := t.Modifiers[statusKey]; ok {
		return m
	}
	return t.Modifiers[0]
}

// airType is the process-wide AIR sentinel, kept outside every group map so
// the "w" group can still be lazily fetched without shadowing it (§4.1).
var airType = &BlockType{
	ID: AirID,
	Modifiers: map[int]Modifier{
		0: {Physics: PhysicsFacet{Solid: false}},
	},
}

// errorType is the fallback for unresolved ids (§3 I1, §7 MissingType).
var errorType = &BlockType{
	ID: "w:error",
	Modifiers: map[int]Modifier{
		0: {
			Physics:    PhysicsFacet{Solid: true},
			Visibility: VisibilityFacet{Shape: voxel.ShapeCube},
		},
	},
}

// ErrorType returns the sentinel ERROR block type rendered as a solid red
// cube so rendering never dereferences a null type (§7).
func ErrorType() *BlockType { return errorType }

// AirType returns the process-wide AIR sentinel.
func AirType() *BlockType { return airType }
