package collision

import (
	"testing"

	"github.com/go-mclib/voxelcore/pkg/voxel"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/blocktype"
)

type mapBlocks map[voxel.BlockPos]blocktype.Modifier

func (m mapBlocks) ModifierAt(pos voxel.BlockPos) (blocktype.Modifier, bool) {
	mod, ok := m[pos]
	return mod, ok
}

func solid() blocktype.Modifier {
	return blocktype.Modifier{Physics: blocktype.PhysicsFacet{Solid: true}}
}

func solidPassable(dir voxel.Direction) blocktype.Modifier {
	return blocktype.Modifier{Physics: blocktype.PhysicsFacet{Solid: true, PassableFrom: dir}}
}

// (S4) one-way gate: a solid block passableFrom NORTH lets entry from the
// north but blocks entry from the south.
func TestOneWayGateAllowsConfiguredSideOnly(t *testing.T) {
	blocks := mapBlocks{
		{X: 10, Y: 64, Z: 10}: solidPassable(voxel.North),
	}
	d := New(blocks)

	// Approaching from the north (dz=+1, i.e. entering the cell moving south).
	res := d.Resolve(Input{
		Position:      voxel.Vector3{X: 10, Y: 64, Z: 9.5},
		WishPosition:  voxel.Vector3{X: 10, Y: 64, Z: 10.5},
		Dimensions:    voxel.Dimensions{Height: 1.8, Width: 0.6, Footprint: 0.0},
		AutoClimbable: true,
	})
	if res.Position.Z < 10 {
		t.Fatalf("expected entry from the north to pass, got z=%v", res.Position.Z)
	}

	// Approaching from the south (dz=-1) must be blocked.
	res2 := d.Resolve(Input{
		Position:      voxel.Vector3{X: 10, Y: 64, Z: 11.5},
		WishPosition:  voxel.Vector3{X: 10, Y: 64, Z: 10.5},
		Dimensions:    voxel.Dimensions{Height: 1.8, Width: 0.6, Footprint: 0.0},
		AutoClimbable: true,
	})
	if res2.Position.Z < 11 {
		t.Fatalf("expected entry from the south to be blocked, got z=%v", res2.Position.Z)
	}
}

// (S5) auto-climb: a single solid block one unit above the ground is
// stepped over when autoClimbable is true, blocked when false.
func TestAutoClimbStepsOverOneBlock(t *testing.T) {
	blocks := mapBlocks{
		{X: 1, Y: 64, Z: 0}: solid(), // obstacle one block ahead
		{X: 0, Y: 63, Z: 0}: solid(), // ground
		{X: 1, Y: 63, Z: 0}: solid(), // ground under the stepped-up cell
	}
	d := New(blocks)

	res := d.Resolve(Input{
		Position:      voxel.Vector3{X: 0, Y: 64, Z: 0},
		WishPosition:  voxel.Vector3{X: 1, Y: 64, Z: 0},
		Dimensions:    voxel.Dimensions{Height: 2.0, Width: 0.6, Footprint: 0.0},
		AutoClimbable: true,
	})
	if res.Position.X < 1 {
		t.Fatalf("expected entity to step up onto the block, got x=%v", res.Position.X)
	}
}

func TestAutoClimbBlockedWhenDisallowed(t *testing.T) {
	blocks := mapBlocks{
		{X: 1, Y: 64, Z: 0}: solid(),
		{X: 0, Y: 63, Z: 0}: solid(),
	}
	d := New(blocks)

	res := d.Resolve(Input{
		Position:      voxel.Vector3{X: 0, Y: 64, Z: 0},
		WishPosition:  voxel.Vector3{X: 1, Y: 64, Z: 0},
		Dimensions:    voxel.Dimensions{Height: 2.0, Width: 0.6, Footprint: 0.0},
		AutoClimbable: false,
	})
	if res.Position.X >= 1 {
		t.Fatalf("expected entity to be blocked, got x=%v", res.Position.X)
	}
}

func TestVerticalResolutionSetsGroundedOnLanding(t *testing.T) {
	blocks := mapBlocks{
		{X: 0, Y: 63, Z: 0}: solid(),
	}
	d := New(blocks)

	res := d.Resolve(Input{
		Position:      voxel.Vector3{X: 0, Y: 64.5, Z: 0},
		WishPosition:  voxel.Vector3{X: 0, Y: 63.9, Z: 0},
		Dimensions:    voxel.Dimensions{Height: 1.8, Width: 0.6, Footprint: 0.0},
		AutoClimbable: true,
	})
	if !res.Grounded {
		t.Fatal("expected grounded=true after landing on solid ground")
	}
	if res.Position.Y != 64 {
		t.Fatalf("expected clamp to y=64, got %v", res.Position.Y)
	}
}

func TestResolvePushbackSeparatesOverlappingEntities(t *testing.T) {
	pos := voxel.Vector3{X: 0, Y: 0, Z: 0}
	dims := voxel.Dimensions{Height: 1.8, Width: 0.6, Footprint: 0.6}
	others := []Other{
		{ID: "e2", Position: voxel.Vector3{X: 0.3, Y: 0, Z: 0}, Dimensions: dims, Solid: true},
	}
	adjusted, hits := ResolvePushback(pos, dims, others)
	if len(hits) != 1 || hits[0] != "e2" {
		t.Fatalf("expected collision with e2, got %v", hits)
	}
	if adjusted.X >= pos.X {
		t.Fatalf("expected push away from e2 (negative x), got %v", adjusted.X)
	}
}

func TestResolvePushbackIgnoresNonSolid(t *testing.T) {
	pos := voxel.Vector3{X: 0, Y: 0, Z: 0}
	dims := voxel.Dimensions{Height: 1.8, Width: 0.6, Footprint: 0.6}
	others := []Other{
		{ID: "e2", Position: voxel.Vector3{X: 0.1, Y: 0, Z: 0}, Dimensions: dims, Solid: false},
	}
	adjusted, hits := ResolvePushback(pos, dims, others)
	if len(hits) != 0 || adjusted != pos {
		t.Fatalf("expected no pushback from non-solid entity, got %v, %v", adjusted, hits)
	}
}
