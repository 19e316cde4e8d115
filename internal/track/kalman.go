package track

import (
	"gonum.org/v1/gonum/mat"
)

const (
	stateDim = 7 // [cx, cy, s, r, vcx, vcy, vs]
	obsDim   = 4 // [cx, cy, s, r]
)

// BoxFilter is a constant-velocity linear Kalman filter over a
// bounding-box state. Position, area and aspect ratio are observed;
// their velocities (aspect ratio excepted, which is modelled as
// constant) are estimated. One filter is owned by exactly one track
// and is never shared.
type BoxFilter struct {
	x *mat.VecDense // state estimate
	p *mat.Dense    // state covariance
	f *mat.Dense    // state transition (constant velocity)
	h *mat.Dense    // observation model
	q *mat.Dense    // process noise
	r *mat.Dense    // measurement noise

	age             int
	hits            int
	hitStreak       int
	timeSinceUpdate int
}

// NewBoxFilter seeds a filter from an initial detection box. Initial
// velocities are zero with high uncertainty; scale and aspect-ratio
// measurements carry more noise than center position.
func NewBoxFilter(box BBox) *BoxFilter {
	bf := &BoxFilter{
		x: mat.NewVecDense(stateDim, nil),
		p: mat.NewDense(stateDim, stateDim, nil),
		f: mat.NewDense(stateDim, stateDim, nil),
		h: mat.NewDense(obsDim, stateDim, nil),
		q: mat.NewDense(stateDim, stateDim, nil),
		r: mat.NewDense(obsDim, obsDim, nil),
	}

	// Transition: x' = x + vx, y' = y + vy, s' = s + vs, r' = r.
	for i := 0; i < stateDim; i++ {
		bf.f.Set(i, i, 1)
	}
	bf.f.Set(0, 4, 1)
	bf.f.Set(1, 5, 1)
	bf.f.Set(2, 6, 1)

	// Observation extracts [cx, cy, s, r].
	for i := 0; i < obsDim; i++ {
		bf.h.Set(i, i, 1)
	}

	// Measurement noise: scale and ratio are noisier than position.
	bf.r.Set(0, 0, 1)
	bf.r.Set(1, 1, 1)
	bf.r.Set(2, 2, 10)
	bf.r.Set(3, 3, 10)

	// Covariance: moderate positional uncertainty, high for the
	// unobservable initial velocities.
	for i := 0; i < obsDim; i++ {
		bf.p.Set(i, i, 10)
	}
	for i := obsDim; i < stateDim; i++ {
		bf.p.Set(i, i, 10000)
	}

	// Process noise: velocities drift slowly, area velocity slowest.
	for i := 0; i < stateDim; i++ {
		bf.q.Set(i, i, 1)
	}
	bf.q.Set(4, 4, 0.01)
	bf.q.Set(5, 5, 0.01)
	bf.q.Set(6, 6, 0.0001)

	cx, cy, s, r := boxToObservation(box)
	bf.x.SetVec(0, cx)
	bf.x.SetVec(1, cy)
	bf.x.SetVec(2, s)
	bf.x.SetVec(3, r)

	return bf
}

// Predict advances the state estimate by one frame and returns the
// predicted box. If the filter went unmatched last frame its hit
// streak is reset before time-since-update is incremented.
func (bf *BoxFilter) Predict() BBox {
	// Zero the area velocity when it would drive the predicted area
	// non-positive; a negative-area box cannot be converted back.
	if bf.x.AtVec(2)+bf.x.AtVec(6) <= 0 {
		bf.x.SetVec(6, 0)
	}

	var xp mat.VecDense
	xp.MulVec(bf.f, bf.x)
	bf.x.CopyVec(&xp)

	// P' = F P Fᵀ + Q
	var fp, fpft mat.Dense
	fp.Mul(bf.f, bf.p)
	fpft.Mul(&fp, bf.f.T())
	fpft.Add(&fpft, bf.q)
	bf.p.Copy(&fpft)

	bf.age++
	if bf.timeSinceUpdate > 0 {
		bf.hitStreak = 0
	}
	bf.timeSinceUpdate++

	return bf.CurrentBox()
}

// Correct blends an observed box into the state estimate via the
// standard Kalman update and resets the miss counter.
func (bf *BoxFilter) Correct(box BBox) {
	bf.timeSinceUpdate = 0
	bf.hits++
	bf.hitStreak++

	cx, cy, s, r := boxToObservation(box)
	z := mat.NewVecDense(obsDim, []float64{cx, cy, s, r})

	// Innovation y = z - H x
	var hx, y mat.VecDense
	hx.MulVec(bf.h, bf.x)
	y.SubVec(z, &hx)

	// Innovation covariance S = H P Hᵀ + R
	var hp, innov mat.Dense
	hp.Mul(bf.h, bf.p)
	innov.Mul(&hp, bf.h.T())
	innov.Add(&innov, bf.r)

	var sInv mat.Dense
	if err := sInv.Inverse(&innov); err != nil {
		// Singular innovation covariance: skip the state correction.
		// The next prediction either recovers or goes non-finite, in
		// which case the lifecycle manager prunes the track.
		return
	}

	// Gain K = P Hᵀ S⁻¹
	var pht, k mat.Dense
	pht.Mul(bf.p, bf.h.T())
	k.Mul(&pht, &sInv)

	// x' = x + K y
	var ky mat.VecDense
	ky.MulVec(&k, &y)
	bf.x.AddVec(bf.x, &ky)

	// P' = (I - K H) P
	var kh mat.Dense
	kh.Mul(&k, bf.h)
	ikh := identity(stateDim)
	ikh.Sub(ikh, &kh)
	var newP mat.Dense
	newP.Mul(ikh, bf.p)
	bf.p.Copy(&newP)
}

// CurrentBox returns the box derived from the current state estimate
// without side effects.
func (bf *BoxFilter) CurrentBox() BBox {
	return observationToBox(bf.x.AtVec(0), bf.x.AtVec(1), bf.x.AtVec(2), bf.x.AtVec(3))
}

// Velocity returns the estimated center velocity in pixels per frame.
func (bf *BoxFilter) Velocity() (vx, vy float64) {
	return bf.x.AtVec(4), bf.x.AtVec(5)
}

// Age returns the number of prediction steps since creation.
func (bf *BoxFilter) Age() int { return bf.age }

// Hits returns the total number of successful corrections.
func (bf *BoxFilter) Hits() int { return bf.hits }

// HitStreak returns the current run of consecutive matched frames.
func (bf *BoxFilter) HitStreak() int { return bf.hitStreak }

// TimeSinceUpdate returns the number of frames since the last
// successful correction.
func (bf *BoxFilter) TimeSinceUpdate() int { return bf.timeSinceUpdate }

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
