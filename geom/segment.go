// Package geom samples parametric path segments into polylines.
package geom

import (
	"fmt"

	"github.com/mastercactapus/svgrbl/coord"
	"honnef.co/go/curve"
)

// Kind identifies the shape of a Segment.
type Kind int

const (
	LineKind Kind = iota + 1
	QuadKind
	CubicKind
	ArcKind
	// CloseKind marks the end of a subpath. It draws a straight line from the
	// current point back to the start of the subpath.
	CloseKind
)

func (k Kind) String() string {
	switch k {
	case LineKind:
		return "Line"
	case QuadKind:
		return "Quad"
	case CubicKind:
		return "Cubic"
	case ArcKind:
		return "Arc"
	case CloseKind:
		return "Close"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Segment is one parametric piece of a path.
//
// Only the fields relevant to Kind are used. P0 is always the start point.
// For lines and close markers P1 is the end point, quadratics use P1 as the
// control point and P2 as the end, cubics use P1, P2 as control points and P3
// as the end. Arcs use P1 as the end point.
type Segment struct {
	Kind           Kind
	P0, P1, P2, P3 coord.Point

	arc arc
}

// Path is an ordered list of segments.
type Path []Segment

func Line(p0, p1 coord.Point) Segment {
	return Segment{Kind: LineKind, P0: p0, P1: p1}
}

func Quad(p0, c, p1 coord.Point) Segment {
	return Segment{Kind: QuadKind, P0: p0, P1: c, P2: p1}
}

func Cubic(p0, c0, c1, p1 coord.Point) Segment {
	return Segment{Kind: CubicKind, P0: p0, P1: c0, P2: c1, P3: p1}
}

// Close returns a close marker drawing from the current point back to the
// subpath start.
func Close(current, start coord.Point) Segment {
	return Segment{Kind: CloseKind, P0: current, P1: start}
}

// Arc returns an SVG style elliptical arc from p0 to p1.
//
// rot is the x-axis rotation in radians. Degenerate radii turn the arc into a
// straight line as SVG renderers do.
func Arc(p0 coord.Point, rx, ry, rot float64, large, sweep bool, p1 coord.Point) Segment {
	a, ok := endpointToCenter(p0, rx, ry, rot, large, sweep, p1)
	if !ok {
		return Line(p0, p1)
	}
	return Segment{Kind: ArcKind, P0: p0, P1: p1, arc: a}
}

// Start returns the first point of the segment.
func (s Segment) Start() coord.Point { return s.P0 }

// End returns the last point of the segment.
func (s Segment) End() coord.Point {
	switch s.Kind {
	case QuadKind:
		return s.P2
	case CubicKind:
		return s.P3
	}
	return s.P1
}

func pt(p coord.Point) curve.Point { return curve.Pt(p.X, p.Y) }

func (s Segment) bez() curve.PathSegment {
	switch s.Kind {
	case QuadKind:
		return curve.QuadBez{P0: pt(s.P0), P1: pt(s.P1), P2: pt(s.P2)}.Seg()
	case CubicKind:
		return curve.CubicBez{P0: pt(s.P0), P1: pt(s.P1), P2: pt(s.P2), P3: pt(s.P3)}.Seg()
	}
	return curve.Line{P0: pt(s.P0), P1: pt(s.P1)}.Seg()
}

// Length returns the arc length of the segment, accurate to tolerance.
func (s Segment) Length(tolerance float64) float64 {
	if s.Kind == ArcKind {
		return s.arc.length(tolerance)
	}
	return s.bez().Arclen(tolerance)
}

// Point evaluates the segment at t in [0, 1].
func (s Segment) Point(t float64) coord.Point {
	switch {
	case t <= 0:
		return s.P0
	case t >= 1:
		return s.End()
	}
	if s.Kind == ArcKind {
		return s.arc.eval(t)
	}
	p := s.bez().Eval(t)
	return coord.Pt(p.X, p.Y)
}
