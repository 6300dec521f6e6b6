package coord

import (
	"math"
)

// Point is a machine position in mm. Drawing code only uses X and Y.
type Point struct{ X, Y, Z float64 }

// Pt returns the 2D point (x, y).
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) Equal(b Point) bool {
	return p.X == b.X && p.Y == b.Y && p.Z == b.Z
}

// Scale multiplies every axis by f.
func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f, Z: p.Z * f}
}

// Lerp returns the point a fraction t of the way from p to b.
func (p Point) Lerp(b Point, t float64) Point {
	return p.Add(b.Sub(p).Scale(t))
}

// Add will add the target values to p.
func (p Point) Add(target Point) Point {
	p.X += target.X
	p.Y += target.Y
	p.Z += target.Z
	return p
}

// Sub will subtract the target values from p.
func (p Point) Sub(target Point) Point {
	p.X -= target.X
	p.Y -= target.Y
	p.Z -= target.Z
	return p
}

// DistanceXY will return the 2D distance to p from (x,y).
func (p Point) DistanceXY(x, y float64) float64 {
	return math.Hypot(x-p.X, y-p.Y)
}
