// Package dynamo holds the shared numeric types for trajectory work:
// flat phase-space state vectors, small 3-vector helpers, and the
// System/Integrator interfaces the integrators package steps over.
//
// A State for a center-of-mass trajectory is laid out as
// [x, y, z, vx, vy, vz] with positions in kpc and velocities in kpc/Gyr.
package dynamo
