package coord

// Polyline is an ordered run of XY points. Order is the cut direction.
type Polyline []Point

// Dedupe removes consecutive points that are no farther than tol apart.
//
// The first point is always kept. A nil or empty polyline yields nil.
func (pl Polyline) Dedupe(tol float64) Polyline {
	if len(pl) == 0 {
		return nil
	}
	out := make(Polyline, 1, len(pl))
	out[0] = pl[0]
	for _, p := range pl[1:] {
		last := out[len(out)-1]
		if last.DistanceXY(p.X, p.Y) > tol {
			out = append(out, p)
		}
	}
	return out
}

// Bounds returns the XY bounding box of the polyline.
func (pl Polyline) Bounds() (min, max Point) {
	if len(pl) == 0 {
		return min, max
	}
	min, max = pl[0], pl[0]
	for _, p := range pl[1:] {
		min.X, max.X = minmax(min.X, max.X, p.X)
		min.Y, max.Y = minmax(min.Y, max.Y, p.Y)
	}
	min.Z, max.Z = 0, 0
	return min, max
}

func minmax(lo, hi, v float64) (float64, float64) {
	if v < lo {
		lo = v
	}
	if v > hi {
		hi = v
	}
	return lo, hi
}
