// Package tracking defines the boundary with the spatial-tracking runtime.
//
// Responsibilities: the per-frame view of detected planes, pose lookups and
// active pointers (Frame), a static Snapshot implementation, a scripted
// SyntheticRuntime for demos, and JSON scenario files for replay.
//
// Any pose may be nil on any call; consumers treat nil as a transient
// tracking gap for that frame only.
package tracking
