package surface

import (
	"testing"

	"github.com/go-mclib/voxelcore/pkg/voxel/modules/blocktype"
)

func TestCornerHeightsExplicitWins(t *testing.T) {
	explicit := [4]float64{0.5, 0.5, 0.5, 0.5}
	mod := blocktype.Modifier{Physics: blocktype.PhysicsFacet{CornerHeights: &explicit}}
	got, ok := CornerHeights(mod, []float64{1, 2, 3}, 1.0)
	if !ok || got != explicit {
		t.Fatalf("CornerHeights = %v, %v; want %v, true", got, ok, explicit)
	}
}

func TestCornerHeightsDerivedFromOffsets(t *testing.T) {
	offsets := make([]float64, 23)
	offsets[19], offsets[22], offsets[16], offsets[13] = 16, 16, 8, 8
	mod := blocktype.Modifier{}
	got, ok := CornerHeights(mod, offsets, 16)
	if !ok {
		t.Fatal("expected ok=true when offsets present")
	}
	want := [4]float64{1, 1, 0.5, 0.5}
	if got != want {
		t.Fatalf("CornerHeights = %v, want %v", got, want)
	}
}

func TestCornerHeightsCube(t *testing.T) {
	mod := blocktype.Modifier{}
	_, ok := CornerHeights(mod, nil, 0)
	if ok {
		t.Fatal("expected ok=false for a plain cube")
	}
}

func TestInterpolateYCorners(t *testing.T) {
	heights := [4]float64{1, 0.5, 0, 0.25}
	if got := InterpolateY(heights, 0, 0); got != heights[0] {
		t.Errorf("NW corner = %v, want %v", got, heights[0])
	}
	if got := InterpolateY(heights, 1, 0); got != heights[1] {
		t.Errorf("NE corner = %v, want %v", got, heights[1])
	}
	if got := InterpolateY(heights, 1, 1); got != heights[2] {
		t.Errorf("SE corner = %v, want %v", got, heights[2])
	}
	if got := InterpolateY(heights, 0, 1); got != heights[3] {
		t.Errorf("SW corner = %v, want %v", got, heights[3])
	}
}

func TestMaxHeight(t *testing.T) {
	if got := MaxHeight([4]float64{0.1, 0.9, 0.3, 0.05}); got != 0.9 {
		t.Fatalf("MaxHeight = %v, want 0.9", got)
	}
}
