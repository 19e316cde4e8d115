package track

// Metrics holds aggregate tracking quality counters for one Tracker
// instance since construction. Used by the API and the replay tool to
// evaluate parameter configurations.
type Metrics struct {
	// FramesProcessed is the number of Update calls so far.
	FramesProcessed int `json:"frames_processed"`
	// ActiveTracks is the number of live tracks after the last frame.
	ActiveTracks int `json:"active_tracks"`
	// TracksCreated counts every track ever spawned.
	TracksCreated int `json:"tracks_created"`
	// TracksConfirmed counts tracks whose hit-streak reached the
	// confirmation threshold at least once.
	TracksConfirmed int `json:"tracks_confirmed"`
	// FragmentationRatio is the fraction of created tracks that never
	// confirmed. High fragmentation means the matching threshold or
	// the detector is too noisy for stable identities. [0, 1]
	FragmentationRatio float64 `json:"fragmentation_ratio"`
	// TracksEmitted is the total number of track records returned
	// across all frames.
	TracksEmitted int `json:"tracks_emitted"`
	// CoastedEmits counts emitted records that had no matching
	// detection in their frame (grace period or missed detection).
	CoastedEmits int `json:"coasted_emits"`
	// CoastRatio is CoastedEmits over TracksEmitted. [0, 1]
	CoastRatio float64 `json:"coast_ratio"`
}

// Metrics returns a snapshot of the tracker's aggregate counters.
// Like Update, it must not race with Update on the same instance.
func (t *Tracker) Metrics() Metrics {
	m := Metrics{
		FramesProcessed: t.frameCount,
		ActiveTracks:    len(t.tracks),
		TracksCreated:   t.tracksCreated,
		TracksConfirmed: t.tracksConfirmed,
		TracksEmitted:   t.tracksEmitted,
		CoastedEmits:    t.coastedEmits,
	}
	if t.tracksCreated > 0 {
		m.FragmentationRatio = 1.0 - float64(t.tracksConfirmed)/float64(t.tracksCreated)
	}
	if t.tracksEmitted > 0 {
		m.CoastRatio = float64(t.coastedEmits) / float64(t.tracksEmitted)
	}
	return m
}
