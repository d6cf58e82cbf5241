package movement

import (
	"testing"
	"time"

	"github.com/go-mclib/voxelcore/pkg/voxel"
)

func TestStepAcceleratesTowardWish(t *testing.T) {
	r := New()
	st := &State{Grounded: true}
	p := DefaultParams[voxel.ModeWalk]
	now := time.Now()

	for i := 0; i < 50; i++ {
		r.Step(st, p, Input{WishMove: voxel.Vector3{X: 1}, Now: now, DT: 0.05})
	}
	if st.Velocity.X <= 0 {
		t.Fatalf("expected positive X velocity after sustained wish, got %v", st.Velocity.X)
	}
	if st.Velocity.X > p.Speed+1e-6 {
		t.Fatalf("velocity %v exceeds mode speed %v", st.Velocity.X, p.Speed)
	}
}

func TestStepFrictionDecaysVelocityWithNoWish(t *testing.T) {
	r := New()
	st := &State{Grounded: true, Velocity: voxel.Vector3{X: 5}}
	p := DefaultParams[voxel.ModeWalk]
	now := time.Now()

	r.Step(st, p, Input{Now: now, DT: 0.1})
	if st.Velocity.X >= 5 {
		t.Fatalf("expected friction to decay velocity, got %v", st.Velocity.X)
	}
}

func TestJumpAllowedWhileGrounded(t *testing.T) {
	r := New()
	st := &State{Grounded: true}
	p := DefaultParams[voxel.ModeWalk]
	now := time.Now()

	r.Step(st, p, Input{Jump: true, Now: now, DT: 0.016})
	if st.Velocity.Y != p.JumpSpeed {
		t.Fatalf("expected jump velocity %v, got %v", p.JumpSpeed, st.Velocity.Y)
	}
}

func TestJumpAllowedDuringCoyoteWindow(t *testing.T) {
	r := New()
	st := &State{}
	now := time.Now()
	MarkGrounded(st, true, now)
	MarkGrounded(st, false, now)

	p := DefaultParams[voxel.ModeWalk]
	later := now.Add(50 * time.Millisecond)
	r.Step(st, p, Input{Jump: true, Now: later, DT: 0.016})
	if st.Velocity.Y != p.JumpSpeed {
		t.Fatalf("expected coyote-time jump to succeed, got vy=%v", st.Velocity.Y)
	}
}

func TestJumpDeniedAfterCoyoteWindowExpires(t *testing.T) {
	r := New()
	st := &State{}
	now := time.Now()
	MarkGrounded(st, true, now)
	MarkGrounded(st, false, now)

	p := DefaultParams[voxel.ModeWalk]
	later := now.Add(500 * time.Millisecond)
	r.Step(st, p, Input{Jump: true, Now: later, DT: 0.016})
	if st.Velocity.Y == p.JumpSpeed {
		t.Fatal("expected jump to be denied after coyote window expired")
	}
}

func TestGravityAppliesWhenNotGrounded(t *testing.T) {
	r := New()
	st := &State{}
	p := DefaultParams[voxel.ModeWalk]
	r.Step(st, p, Input{Now: time.Now(), DT: 0.1})
	if st.Velocity.Y >= 0 {
		t.Fatalf("expected gravity to pull velocity negative, got %v", st.Velocity.Y)
	}
}

func TestSwimModeUsesVerticalWishDirectly(t *testing.T) {
	r := New()
	st := &State{}
	p := DefaultParams[voxel.ModeSwim]
	r.Step(st, p, Input{VerticalWish: 1, InWater: true, Now: time.Now(), DT: 0.1})
	if st.Velocity.Y != p.Speed {
		t.Fatalf("expected swim vertical wish to set vy=speed, got %v", st.Velocity.Y)
	}
}
