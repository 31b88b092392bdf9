// Package geometry holds the pure math shared by the tabletop pipeline.
//
// Responsibilities: polygon area, centroid and extents in a plane's local
// frame, fan triangulation for ray picking, ray casting against triangles,
// horizontal planes and boxes, yaw extraction and leveling of orientations,
// non-overlapping point sampling, and multi-sample velocity estimation.
//
// Conventions: Y is up. Plane polygons are expressed in the plane's local
// frame with points on the local XZ plane (Y ~ 0), matching the tracking
// runtime's plane space. Times are float seconds.
//
// No package in this module is imported here; everything else may depend on it.
package geometry
