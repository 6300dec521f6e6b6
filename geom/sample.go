package geom

import (
	"math"

	"github.com/mastercactapus/svgrbl/coord"
)

// LengthTolerance bounds the arc length error used by Sample.
const LengthTolerance = 1e-5

// DefaultResolution is the default sampling distance between points.
const DefaultResolution = 0.5

// MaxSamples caps the number of steps Sample takes along one segment.
const MaxSamples = 1 << 16

// Sample returns max(2, floor(length/resolution))+1 points along seg at
// uniform parameter steps, including both endpoints. The step count never
// exceeds MaxSamples.
//
// A non-positive resolution falls back to DefaultResolution.
func Sample(seg Segment, resolution float64) coord.Polyline {
	if resolution <= 0 || math.IsNaN(resolution) {
		resolution = DefaultResolution
	}
	n := 2
	if c := math.Floor(seg.Length(LengthTolerance) / resolution); c > 2 && !math.IsInf(c, 1) {
		n = int(math.Min(c, MaxSamples))
	}

	pts := make(coord.Polyline, n+1)
	for i := range pts {
		pts[i] = seg.Point(float64(i) / float64(n))
	}
	return pts
}
