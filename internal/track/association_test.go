package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func det(x1, y1, x2, y2 float64) Detection {
	return Detection{Box: BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}}
}

func TestAssociateDetections_NoTrackers(t *testing.T) {
	t.Parallel()

	dets := []Detection{
		det(0, 0, 10, 10),
		det(20, 20, 30, 30),
	}
	matches, unmatchedDets, unmatchedTrks := associateDetections(dets, nil, 0.3)

	assert.Empty(t, matches)
	assert.Equal(t, []int{0, 1}, unmatchedDets)
	assert.Empty(t, unmatchedTrks)
}

func TestAssociateDetections_NoDetections(t *testing.T) {
	t.Parallel()

	predicted := []BBox{
		{X1: 0, Y1: 0, X2: 10, Y2: 10},
		{X1: 20, Y1: 20, X2: 30, Y2: 30},
	}
	matches, unmatchedDets, unmatchedTrks := associateDetections(nil, predicted, 0.3)

	assert.Empty(t, matches)
	assert.Empty(t, unmatchedDets)
	assert.Equal(t, []int{0, 1}, unmatchedTrks)
}

func TestAssociateDetections_PerfectOverlap(t *testing.T) {
	t.Parallel()

	dets := []Detection{
		det(0, 0, 10, 10),
		det(100, 100, 120, 120),
	}
	predicted := []BBox{
		{X1: 100, Y1: 100, X2: 120, Y2: 120},
		{X1: 0, Y1: 0, X2: 10, Y2: 10},
	}
	matches, unmatchedDets, unmatchedTrks := associateDetections(dets, predicted, 0.3)

	require.Len(t, matches, 2)
	assert.Empty(t, unmatchedDets)
	assert.Empty(t, unmatchedTrks)

	// Detection 0 overlaps tracker 1, detection 1 overlaps tracker 0.
	byDet := map[int]int{}
	for _, m := range matches {
		byDet[m.det] = m.trk
	}
	assert.Equal(t, 1, byDet[0])
	assert.Equal(t, 0, byDet[1])
}

func TestAssociateDetections_BelowThreshold(t *testing.T) {
	t.Parallel()

	// Small overlap: det [0,0,10,10] vs track [9,9,19,19] → IoU ≈ 1/199.
	dets := []Detection{det(0, 0, 10, 10)}
	predicted := []BBox{{X1: 9, Y1: 9, X2: 19, Y2: 19}}

	matches, unmatchedDets, unmatchedTrks := associateDetections(dets, predicted, 0.3)

	assert.Empty(t, matches)
	assert.Equal(t, []int{0}, unmatchedDets)
	assert.Equal(t, []int{0}, unmatchedTrks)
}

func TestAssociateDetections_GreedyWouldLose(t *testing.T) {
	t.Parallel()

	// Two detections, two trackers arranged so a greedy best-first
	// pairing would strand one side. The optimal assignment carries
	// both pairs over the threshold.
	dets := []Detection{
		det(0, 0, 100, 100),
		det(50, 0, 150, 100),
	}
	predicted := []BBox{
		{X1: 40, Y1: 0, X2: 140, Y2: 100},
		{X1: 10, Y1: 0, X2: 110, Y2: 100},
	}
	matches, unmatchedDets, unmatchedTrks := associateDetections(dets, predicted, 0.3)

	require.Len(t, matches, 2)
	assert.Empty(t, unmatchedDets)
	assert.Empty(t, unmatchedTrks)

	byDet := map[int]int{}
	for _, m := range matches {
		byDet[m.det] = m.trk
	}
	assert.Equal(t, 1, byDet[0])
	assert.Equal(t, 0, byDet[1])
}

func TestAssociateDetections_MoreDetectionsThanTrackers(t *testing.T) {
	t.Parallel()

	dets := []Detection{
		det(0, 0, 10, 10),
		det(200, 200, 210, 210),
	}
	predicted := []BBox{{X1: 0, Y1: 0, X2: 10, Y2: 10}}

	matches, unmatchedDets, unmatchedTrks := associateDetections(dets, predicted, 0.3)

	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].det)
	assert.Equal(t, 0, matches[0].trk)
	assert.Equal(t, []int{1}, unmatchedDets)
	assert.Empty(t, unmatchedTrks)
}

func TestAssociateDetections_SetsAreDisjointAndComplete(t *testing.T) {
	t.Parallel()

	dets := []Detection{
		det(0, 0, 10, 10),
		det(30, 30, 40, 40),
		det(500, 500, 510, 510),
	}
	predicted := []BBox{
		{X1: 1, Y1: 1, X2: 11, Y2: 11},
		{X1: 700, Y1: 700, X2: 710, Y2: 710},
	}
	matches, unmatchedDets, unmatchedTrks := associateDetections(dets, predicted, 0.3)

	seenDet := map[int]bool{}
	seenTrk := map[int]bool{}
	for _, m := range matches {
		assert.False(t, seenDet[m.det], "detection %d matched twice", m.det)
		assert.False(t, seenTrk[m.trk], "tracker %d matched twice", m.trk)
		seenDet[m.det] = true
		seenTrk[m.trk] = true
	}
	for _, d := range unmatchedDets {
		assert.False(t, seenDet[d], "detection %d in both sets", d)
		seenDet[d] = true
	}
	for _, tr := range unmatchedTrks {
		assert.False(t, seenTrk[tr], "tracker %d in both sets", tr)
		seenTrk[tr] = true
	}

	assert.Len(t, seenDet, len(dets))
	assert.Len(t, seenTrk, len(predicted))
}
