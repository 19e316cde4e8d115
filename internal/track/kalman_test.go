package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoxFilter(t *testing.T) {
	t.Parallel()

	box := BBox{X1: 100, Y1: 100, X2: 200, Y2: 200}
	f := NewBoxFilter(box)

	assert.Equal(t, 0, f.Age())
	assert.Equal(t, 0, f.Hits())
	assert.Equal(t, 0, f.HitStreak())
	assert.Equal(t, 0, f.TimeSinceUpdate())

	vx, vy := f.Velocity()
	assert.Equal(t, 0.0, vx)
	assert.Equal(t, 0.0, vy)

	got := f.CurrentBox()
	assert.InDelta(t, box.X1, got.X1, 1e-9)
	assert.InDelta(t, box.Y2, got.Y2, 1e-9)
}

func TestBoxFilterPredictBookkeeping(t *testing.T) {
	t.Parallel()

	f := NewBoxFilter(BBox{X1: 100, Y1: 100, X2: 200, Y2: 200})

	pred := f.Predict()
	require.True(t, pred.IsFinite())
	assert.Equal(t, 1, f.Age())
	assert.Equal(t, 1, f.TimeSinceUpdate())

	// With zero initial velocity the first prediction stays put.
	assert.InDelta(t, 100.0, pred.X1, 1e-6)
	assert.InDelta(t, 200.0, pred.X2, 1e-6)
}

func TestBoxFilterCorrectResetsCounters(t *testing.T) {
	t.Parallel()

	f := NewBoxFilter(BBox{X1: 100, Y1: 100, X2: 200, Y2: 200})
	f.Predict()
	f.Correct(BBox{X1: 105, Y1: 105, X2: 205, Y2: 205})

	assert.Equal(t, 0, f.TimeSinceUpdate())
	assert.Equal(t, 1, f.Hits())
	assert.Equal(t, 1, f.HitStreak())
}

func TestBoxFilterHitStreakResetOnMiss(t *testing.T) {
	t.Parallel()

	f := NewBoxFilter(BBox{X1: 0, Y1: 0, X2: 10, Y2: 10})
	f.Predict()
	f.Correct(BBox{X1: 1, Y1: 1, X2: 11, Y2: 11})
	f.Predict()
	f.Correct(BBox{X1: 2, Y1: 2, X2: 12, Y2: 12})
	assert.Equal(t, 2, f.HitStreak())

	// One missed frame: the streak survives this predict (it had been
	// updated last frame) but resets on the one after.
	f.Predict()
	assert.Equal(t, 2, f.HitStreak())
	f.Predict()
	assert.Equal(t, 0, f.HitStreak())
	assert.Equal(t, 2, f.Hits())
}

func TestBoxFilterTracksConstantMotion(t *testing.T) {
	t.Parallel()

	// A box sliding 5 px/frame: after several correct cycles the
	// filter's prediction should land near the next true position.
	f := NewBoxFilter(BBox{X1: 0, Y1: 0, X2: 100, Y2: 100})
	for i := 1; i <= 10; i++ {
		f.Predict()
		d := float64(i * 5)
		f.Correct(BBox{X1: d, Y1: 0, X2: d + 100, Y2: 100})
	}

	pred := f.Predict()
	cx, _ := pred.Center()
	assert.InDelta(t, 105.0, cx, 3.0) // true next center is 55+5+50

	vx, vy := f.Velocity()
	assert.InDelta(t, 5.0, vx, 1.0)
	assert.InDelta(t, 0.0, vy, 0.5)
}

func TestBoxFilterNegativeAreaGuard(t *testing.T) {
	t.Parallel()

	// Shrink the box aggressively so the estimated area velocity goes
	// strongly negative, then coast. Predictions must stay finite with
	// a non-negative area.
	f := NewBoxFilter(BBox{X1: 0, Y1: 0, X2: 100, Y2: 100})
	sizes := []float64{80, 55, 30, 10, 2}
	for _, sz := range sizes {
		f.Predict()
		f.Correct(BBox{X1: 0, Y1: 0, X2: sz, Y2: sz})
	}

	for i := 0; i < 20; i++ {
		pred := f.Predict()
		require.True(t, pred.IsFinite(), "prediction %d went non-finite", i)
		assert.GreaterOrEqual(t, pred.Width(), 0.0)
	}
}
