package entity

import "github.com/go-mclib/voxelcore/pkg/voxel"

// Vector3DTO is the wire shape of a Vector3.
type Vector3DTO struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vector3DTO) toVector3() voxel.Vector3 { return voxel.Vector3{X: v.X, Y: v.Y, Z: v.Z} }

// RotationDTO is the wire shape of a waypoint rotation (§3 "{y, p?}").
type RotationDTO struct {
	Y float64  `json:"y"`
	P *float64 `json:"p,omitempty"`
}

func (r RotationDTO) toRotation() Rotation { return Rotation{Yaw: r.Y, Pitch: r.P} }

// WaypointDTO is one wire waypoint (§3 "Entity pathway").
type WaypointDTO struct {
	Target    Vector3DTO  `json:"target"`
	Rotation  RotationDTO `json:"rotation"`
	Timestamp int64       `json:"timestamp"`
	Pose      *int        `json:"pose,omitempty"`
}

func (w WaypointDTO) toWaypoint() Waypoint {
	return Waypoint{
		Target:    w.Target.toVector3(),
		Rotation:  w.Rotation.toRotation(),
		Timestamp: w.Timestamp,
		Pose:      w.Pose,
	}
}

// PathwayDTO is the ENTITY_PATHWAY payload (§6).
type PathwayDTO struct {
	EntityID       string        `json:"entityId"`
	Waypoints      []WaypointDTO `json:"waypoints"`
	IdlePose       int           `json:"idlePose"`
	PhysicsEnabled bool          `json:"physicsEnabled"`
	Velocity       *Vector3DTO   `json:"velocity,omitempty"`
}

func (p PathwayDTO) toPathway() Pathway {
	wps := make([]Waypoint, len(p.Waypoints))
	for i, w := range p.Waypoints {
		wps[i] = w.toWaypoint()
	}
	var vel *voxel.Vector3
	if p.Velocity != nil {
		v := p.Velocity.toVector3()
		vel = &v
	}
	return Pathway{
		EntityID:       p.EntityID,
		Waypoints:      wps,
		IdlePose:       p.IdlePose,
		PhysicsEnabled: p.PhysicsEnabled,
		Velocity:       vel,
	}
}
