package replay

import (
	"fmt"
	"io"

	"github.com/banshee-data/boxtrack/internal/monitoring"
	"github.com/banshee-data/boxtrack/internal/track"
)

// Result summarises one replay pass.
type Result struct {
	Config  track.Config  `json:"config"`
	Metrics track.Metrics `json:"metrics"`
}

// Run replays a recording through a fresh tracker built from cfg. If
// emit is non-nil, every frame's confirmed tracks are passed to it,
// which is how the replay tool persists or prints them.
func Run(r *Reader, cfg track.Config, emit func(frame int64, tracks []track.Track) error) (*Result, error) {
	tracker, err := track.NewTracker(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracker: %w", err)
	}

	logf := monitoring.Prefixed("replay")
	frames := 0
	for {
		f, err := r.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		tracks := tracker.Update(f.Detections)
		frames++
		if emit != nil {
			if err := emit(f.Frame, tracks); err != nil {
				return nil, fmt.Errorf("emit frame %d: %w", f.Frame, err)
			}
		}
	}
	logf("replayed %d frames, %d tracks created", frames, tracker.Metrics().TracksCreated)

	return &Result{
		Config:  tracker.Config(),
		Metrics: tracker.Metrics(),
	}, nil
}
