package entityphysics

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

func solid(blocks mapBlocks, pos voxel.BlockPos) {
	blocks[pos] = blocktype.Modifier{Physics: blocktype.PhysicsFacet{Solid: true}}
}

func TestStepAppliesGroundFrictionWhenGrounded(t *testing.T) {
	c := New(mapBlocks{})
	st := &State{Position: voxel.Vector3{X: 0, Y: 10, Z: 0}, Velocity: voxel.Vector3{X: 10, Z: 0}, Grounded: true}
	c.Step(st, 1.0)
	if st.Velocity.X != 10*GroundFriction {
		t.Fatalf("expected velocity.X=%v, got %v", 10*GroundFriction, st.Velocity.X)
	}
}

func TestStepAppliesAirDragWhenAirborne(t *testing.T) {
	c := New(mapBlocks{})
	st := &State{Position: voxel.Vector3{X: 0, Y: 10, Z: 0}, Velocity: voxel.Vector3{X: 10, Z: 0}, Grounded: false}
	c.Step(st, 1.0)
	if st.Velocity.X != 10*AirDrag {
		t.Fatalf("expected velocity.X=%v, got %v", 10*AirDrag, st.Velocity.X)
	}
}

func TestStepAssertsGroundedAlways(t *testing.T) {
	c := New(mapBlocks{})
	st := &State{Position: voxel.Vector3{X: 0, Y: 10, Z: 0}, Grounded: false}
	c.Step(st, 0.1)
	if !st.Grounded {
		t.Fatal("expected Grounded always asserted after Step")
	}
}

func TestCorrectYLiftsOutOfSolidBlock(t *testing.T) {
	blocks := mapBlocks{}
	solid(blocks, voxel.BlockPos{X: 0, Y: 10, Z: 0})
	c := New(blocks)
	st := &State{Position: voxel.Vector3{X: 0, Y: 10.2, Z: 0}}
	c.Step(st, 0)
	if st.Position.Y != 11 {
		t.Fatalf("expected lift to y=11, got %v", st.Position.Y)
	}
}

func TestCorrectYSnapsDownOntoSolidBelow(t *testing.T) {
	blocks := mapBlocks{}
	solid(blocks, voxel.BlockPos{X: 0, Y: 9, Z: 0})
	c := New(blocks)
	st := &State{Position: voxel.Vector3{X: 0, Y: 10.7, Z: 0}}
	c.Step(st, 0)
	if st.Position.Y != 10 {
		t.Fatalf("expected snap to y=10, got %v", st.Position.Y)
	}
}

func TestCorrectYKeepsServerYWhenNothingSolidNearby(t *testing.T) {
	c := New(mapBlocks{})
	st := &State{Position: voxel.Vector3{X: 0, Y: 42.5, Z: 0}}
	c.Step(st, 0)
	if st.Position.Y != 42.5 {
		t.Fatalf("expected y unchanged at 42.5, got %v", st.Position.Y)
	}
}

func TestUpdateRateThresholds(t *testing.T) {
	cases := []struct {
		distance float64
		want     int
	}{
		{0, 1},
		{19.9, 1},
		{20, 2},
		{39.9, 2},
		{40, 6},
		{100, 6},
	}
	for _, c := range cases {
		if got := UpdateRate(c.distance); got != c.want {
			t.Errorf("UpdateRate(%v) = %v, want %v", c.distance, got, c.want)
		}
	}
}
