// Package collision implements predictive swept-axis collision resolution
// with one-way gates and auto-climb (§4.4).
package collision

// Epsilon mirrors the teacher's collision tolerance; isGroundedAt probes
// this far below the feet when testing for ground (§4.4 grounded checks).
const Epsilon = 1.0e-7
