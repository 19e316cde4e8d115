package track

// matchPair links a detection index to a tracker index for one frame.
type matchPair struct {
	det int
	trk int
}

// associateDetections pairs the frame's detections with the predicted
// track boxes. The pairing maximises total IoU over a one-to-one
// assignment; solver pairs whose IoU falls below iouThreshold are
// rejected and both sides reported unmatched. The three returned sets
// are disjoint: every detection and every tracker index appears in
// exactly one of them.
func associateDetections(detections []Detection, predicted []BBox, iouThreshold float64) (matches []matchPair, unmatchedDets, unmatchedTrks []int) {
	nDets := len(detections)
	nTrks := len(predicted)

	if nTrks == 0 {
		unmatchedDets = make([]int, nDets)
		for d := range unmatchedDets {
			unmatchedDets[d] = d
		}
		return nil, unmatchedDets, nil
	}

	// IoU similarity, negated into a cost matrix so the minimising
	// solver maximises total overlap.
	iou := make([][]float64, nDets)
	cost := make([][]float64, nDets)
	for d := range detections {
		iou[d] = make([]float64, nTrks)
		cost[d] = make([]float64, nTrks)
		for t := range predicted {
			iou[d][t] = IoU(detections[d].Box, predicted[t])
			cost[d][t] = -iou[d][t]
		}
	}

	assign := hungarianAssign(cost)

	matchedTrks := make([]bool, nTrks)
	for d := 0; d < nDets; d++ {
		t := -1
		if d < len(assign) {
			t = assign[d]
		}
		if t >= 0 && iou[d][t] >= iouThreshold {
			matches = append(matches, matchPair{det: d, trk: t})
			matchedTrks[t] = true
		} else {
			// Unassigned, or paired below threshold: unmatched on
			// the detection side; the tracker side falls out below.
			unmatchedDets = append(unmatchedDets, d)
		}
	}

	for t := 0; t < nTrks; t++ {
		if !matchedTrks[t] {
			unmatchedTrks = append(unmatchedTrks, t)
		}
	}

	return matches, unmatchedDets, unmatchedTrks
}
