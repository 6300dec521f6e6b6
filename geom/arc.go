package geom

import (
	"math"

	"github.com/mastercactapus/svgrbl/coord"
)

// arc is an elliptical arc in center parameterization.
type arc struct {
	cx, cy   float64
	rx, ry   float64
	sin, cos float64 // of the x-axis rotation

	theta0, dtheta float64
}

func (a arc) eval(t float64) coord.Point {
	theta := a.theta0 + a.dtheta*t
	ex := a.rx * math.Cos(theta)
	ey := a.ry * math.Sin(theta)
	return coord.Pt(
		a.cx+a.cos*ex-a.sin*ey,
		a.cy+a.sin*ex+a.cos*ey,
	)
}

const maxArcDepth = 16

// length integrates the arc by adaptive chord refinement.
func (a arc) length(tolerance float64) float64 {
	if tolerance <= 0 {
		tolerance = 1e-9
	}
	p0, p1 := a.eval(0), a.eval(1)
	return a.chord(0, 1, p0, p1, tolerance, 0)
}

func (a arc) chord(t0, t1 float64, p0, p1 coord.Point, tol float64, depth int) float64 {
	tm := (t0 + t1) / 2
	pm := a.eval(tm)
	whole := p0.DistanceXY(p1.X, p1.Y)
	split := p0.DistanceXY(pm.X, pm.Y) + pm.DistanceXY(p1.X, p1.Y)
	if depth >= maxArcDepth || (depth >= 2 && split-whole < tol) {
		return split
	}
	return a.chord(t0, tm, p0, pm, tol/2, depth+1) + a.chord(tm, t1, pm, p1, tol/2, depth+1)
}

// endpointToCenter converts SVG endpoint arc notation to center form.
//
// ok is false when the arc must be drawn as a straight line instead: zero
// radii, non-finite radii or identical endpoints.
func endpointToCenter(p0 coord.Point, rx, ry, rot float64, large, sweep bool, p1 coord.Point) (a arc, ok bool) {
	if p0.X == p1.X && p0.Y == p1.Y {
		return a, false
	}
	rx, ry = math.Abs(rx), math.Abs(ry)
	if rx == 0 || ry == 0 || math.IsInf(rx, 0) || math.IsInf(ry, 0) {
		return a, false
	}

	sin, cos := math.Sincos(rot)
	dx, dy := (p0.X-p1.X)/2, (p0.Y-p1.Y)/2
	x1 := cos*dx + sin*dy
	y1 := -sin*dx + cos*dy

	// scale the radii up when the endpoints are too far apart
	lambda := x1*x1/(rx*rx) + y1*y1/(ry*ry)
	if lambda > 1 {
		s := math.Sqrt(lambda)
		rx *= s
		ry *= s
	}

	rx2, ry2 := rx*rx, ry*ry
	num := rx2*ry2 - rx2*y1*y1 - ry2*x1*x1
	den := rx2*y1*y1 + ry2*x1*x1
	coef := 0.0
	if den != 0 && num > 0 {
		coef = math.Sqrt(num / den)
	}
	if large == sweep {
		coef = -coef
	}
	cx1 := coef * rx * y1 / ry
	cy1 := -coef * ry * x1 / rx

	a = arc{
		cx:  cos*cx1 - sin*cy1 + (p0.X+p1.X)/2,
		cy:  sin*cx1 + cos*cy1 + (p0.Y+p1.Y)/2,
		rx:  rx,
		ry:  ry,
		sin: sin,
		cos: cos,
	}

	ux, uy := (x1-cx1)/rx, (y1-cy1)/ry
	vx, vy := (-x1-cx1)/rx, (-y1-cy1)/ry
	a.theta0 = math.Atan2(uy, ux)
	a.dtheta = math.Atan2(ux*vy-uy*vx, ux*vx+uy*vy)
	if !sweep && a.dtheta > 0 {
		a.dtheta -= 2 * math.Pi
	} else if sweep && a.dtheta < 0 {
		a.dtheta += 2 * math.Pi
	}

	return a, true
}
