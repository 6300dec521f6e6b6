package coord

// Epsilon is how far outside its edges a point may be and still count as
// inside a triangle.
const Epsilon = 0.001

type Triangle struct{ A, B, C Point }

// weights returns the barycentric weights of (x, y) for the XY projection of
// t. ok is false for a degenerate triangle.
func (t Triangle) weights(x, y float64) (wa, wb, wc float64, ok bool) {
	det := (t.B.Y-t.C.Y)*(t.A.X-t.C.X) + (t.C.X-t.B.X)*(t.A.Y-t.C.Y)
	if det == 0 {
		return 0, 0, 0, false
	}
	wa = ((t.B.Y-t.C.Y)*(x-t.C.X) + (t.C.X-t.B.X)*(y-t.C.Y)) / det
	wb = ((t.C.Y-t.A.Y)*(x-t.C.X) + (t.A.X-t.C.X)*(y-t.C.Y)) / det
	return wa, wb, 1 - wa - wb, true
}

// ContainsXY reports if x,y lies in the XY projection of t, or within
// Epsilon of one of its edges.
func (t Triangle) ContainsXY(x, y float64) bool {
	wa, wb, wc, ok := t.weights(x, y)
	if !ok {
		return false
	}
	if wa >= 0 && wb >= 0 && wc >= 0 {
		return true
	}

	return edgeDistSq(t.A, t.B, x, y) <= Epsilon*Epsilon ||
		edgeDistSq(t.B, t.C, x, y) <= Epsilon*Epsilon ||
		edgeDistSq(t.C, t.A, x, y) <= Epsilon*Epsilon
}

// Z interpolates the height of the plane through t at x,y.
func (t Triangle) Z(x, y float64) float64 {
	wa, wb, wc, ok := t.weights(x, y)
	if !ok {
		return t.A.Z
	}
	return wa*t.A.Z + wb*t.B.Z + wc*t.C.Z
}

// edgeDistSq is the squared XY distance from x,y to the segment a-b.
func edgeDistSq(a, b Point, x, y float64) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	t := 0.0
	if lenSq > 0 {
		t = ((x-a.X)*dx + (y-a.Y)*dy) / lenSq
	}
	switch {
	case t < 0:
		t = 0
	case t > 1:
		t = 1
	}
	px, py := a.X+t*dx-x, a.Y+t*dy-y
	return px*px + py*py
}
