package track

import (
	"fmt"
)

// Config holds the lifecycle parameters of a Tracker. It is fixed for
// the lifetime of the Tracker instance.
type Config struct {
	// MaxAge is the number of consecutive unmatched frames a track
	// survives before deletion.
	MaxAge int
	// MinHits is the hit-streak a track needs before it is reported,
	// and the length of the startup grace window in frames.
	MinHits int
	// IoUThreshold is the minimum overlap for a detection-to-track
	// match, in [0, 1].
	IoUThreshold float64
	// MaxHistoryLength caps the trajectory trail. Zero means the
	// default of 30 points.
	MaxHistoryLength int
}

// DefaultHistoryLength is the trail cap applied when
// Config.MaxHistoryLength is zero.
const DefaultHistoryLength = 30

func (c *Config) validate() error {
	if c.MaxAge < 0 {
		return fmt.Errorf("max age must be non-negative, got %d", c.MaxAge)
	}
	if c.MinHits < 0 {
		return fmt.Errorf("min hits must be non-negative, got %d", c.MinHits)
	}
	if c.IoUThreshold < 0 || c.IoUThreshold > 1 {
		return fmt.Errorf("iou threshold must be within [0, 1], got %f", c.IoUThreshold)
	}
	if c.MaxHistoryLength < 0 {
		return fmt.Errorf("max history length must be non-negative, got %d", c.MaxHistoryLength)
	}
	if c.MaxHistoryLength == 0 {
		c.MaxHistoryLength = DefaultHistoryLength
	}
	return nil
}

// trackedBox is one live track: its motion filter plus the lifecycle
// data the filter does not own.
type trackedBox struct {
	id        int64
	filter    *BoxFilter
	trail     []Point
	confirmed bool // counted towards the confirmed metric
}

// Tracker assigns persistent identities to per-frame detections. It
// owns every live BoxFilter and is the sole mutator of track state.
//
// A Tracker is not safe for concurrent use: Update must never be
// invoked concurrently with itself or with Metrics on the same
// instance. Hosts that parallelise pipelines must serialise calls or
// run one Tracker per stream; track identifiers are scoped to the
// instance, so independent trackers never collide.
type Tracker struct {
	cfg        Config
	tracks     []*trackedBox
	nextID     int64
	frameCount int

	tracksCreated   int
	tracksConfirmed int
	tracksEmitted   int
	coastedEmits    int
}

// NewTracker creates a Tracker with the given configuration. Invalid
// configuration is rejected here and nowhere else.
func NewTracker(cfg Config) (*Tracker, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid tracker config: %w", err)
	}
	return &Tracker{cfg: cfg}, nil
}

// Config returns the configuration the tracker was built with.
func (t *Tracker) Config() Config { return t.cfg }

// Update processes one frame of detections and returns the tracks
// confirmed for that frame. Tracks are returned in creation order.
func (t *Tracker) Update(detections []Detection) []Track {
	t.frameCount++

	// Step 1: predict every live track. Non-finite predictions mark a
	// numerically degenerate filter; those tracks are dropped before
	// association and never surface as errors.
	live := make([]*trackedBox, 0, len(t.tracks))
	predicted := make([]BBox, 0, len(t.tracks))
	for _, tb := range t.tracks {
		box := tb.filter.Predict()
		if !box.IsFinite() {
			continue
		}
		live = append(live, tb)
		predicted = append(predicted, box)
	}
	t.tracks = live

	// Step 2: associate detections with predictions.
	matches, unmatchedDets, _ := associateDetections(detections, predicted, t.cfg.IoUThreshold)

	// Step 3: correct matched filters, keeping the matched detection
	// index alongside each track so label lookup never re-derives it.
	matchedDet := make([]int, len(t.tracks))
	for i := range matchedDet {
		matchedDet[i] = -1
	}
	for _, m := range matches {
		t.tracks[m.trk].filter.Correct(detections[m.det].Box)
		matchedDet[m.trk] = m.det
	}

	// Step 4: unmatched detections spawn new tracks. Creation is not
	// a match: new tracks carry no label until their first correction.
	for _, d := range unmatchedDets {
		tb := &trackedBox{
			id:     t.nextID,
			filter: NewBoxFilter(detections[d].Box),
		}
		t.nextID++
		t.tracksCreated++
		t.tracks = append(t.tracks, tb)
		matchedDet = append(matchedDet, -1)
	}

	// Steps 5-6: prune expired tracks, then emit the survivors that
	// pass the confirmation policy. The grace window counts frames
	// processed by this manager, not track age.
	var out []Track
	kept := make([]*trackedBox, 0, len(t.tracks))
	for i, tb := range t.tracks {
		f := tb.filter
		if f.TimeSinceUpdate() > t.cfg.MaxAge {
			continue
		}
		kept = append(kept, tb)

		box := f.CurrentBox()
		cx, cy := box.Center()
		tb.trail = append(tb.trail, Point{X: cx, Y: cy})
		if len(tb.trail) > t.cfg.MaxHistoryLength {
			tb.trail = tb.trail[len(tb.trail)-t.cfg.MaxHistoryLength:]
		}

		if !tb.confirmed && f.HitStreak() >= t.cfg.MinHits {
			tb.confirmed = true
			t.tracksConfirmed++
		}

		if f.HitStreak() < t.cfg.MinHits && t.frameCount > t.cfg.MinHits {
			continue
		}

		label := "unknown"
		confidence := 0.0
		if di := matchedDet[i]; di >= 0 {
			label = detections[di].Label
			confidence = detections[di].Confidence
		} else {
			t.coastedEmits++
		}

		vx, vy := f.Velocity()
		trail := make([]Point, len(tb.trail))
		copy(trail, tb.trail)

		out = append(out, Track{
			ID:              tb.id,
			Box:             box,
			Label:           label,
			Confidence:      confidence,
			Age:             f.Age(),
			Hits:            f.Hits(),
			TimeSinceUpdate: f.TimeSinceUpdate(),
			VX:              vx,
			VY:              vy,
			Trail:           trail,
		})
		t.tracksEmitted++
	}
	t.tracks = kept

	return out
}

// FrameCount returns the number of frames processed so far.
func (t *Tracker) FrameCount() int { return t.frameCount }

// ActiveTracks returns the number of live tracks, confirmed or not.
func (t *Tracker) ActiveTracks() int { return len(t.tracks) }
