// Package track is the multi-object tracking core: it assigns
// persistent integer identities to per-frame bounding-box detections.
//
// Responsibilities: per-track motion estimation (constant-velocity
// Kalman filter over a box parameterisation), frame-to-frame data
// association (IoU cost matrix solved by optimal bipartite matching),
// and track lifecycle (birth, confirmation, coasting, deletion).
// Key types: Tracker, BoxFilter, Detection, Track.
//
// The package performs no I/O: detection records in, track records
// out, one frame at a time, strictly online and causal. Detector,
// frame acquisition and rendering live outside this module.
package track
