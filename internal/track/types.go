package track

// Detection is one frame's raw observation of an object from the
// external detector. Detections are consumed within the frame they
// arrive in; the tracker never retains them.
type Detection struct {
	Box        BBox    `json:"box"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Point is a single trail position (box center) in pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Track is one frame's report of a persistent identity. The ID is
// unique and strictly increasing in creation order for the lifetime
// of the Tracker that emitted it.
type Track struct {
	ID              int64   `json:"id"`
	Box             BBox    `json:"box"`
	Label           string  `json:"label"`
	Confidence      float64 `json:"confidence"`
	Age             int     `json:"age"`
	Hits            int     `json:"hits"`
	TimeSinceUpdate int     `json:"time_since_update"`
	VX              float64 `json:"vx"`
	VY              float64 `json:"vy"`

	// Trail holds the most recent box centers, oldest first,
	// capped at the configured history length.
	Trail []Point `json:"trail"`
}
