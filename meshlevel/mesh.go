package meshlevel

import (
	"errors"

	"github.com/fogleman/delaunay"
	"github.com/mastercactapus/svgrbl/coord"
)

// ZOffsetter reports the surface height at x,y relative to the reference
// point. ok is false outside the surveyed area.
type ZOffsetter interface {
	OffsetZ(x, y float64) (ok bool, z float64)
}

// Flat is a ZOffsetter that knows no surface; nothing is leveled.
type Flat struct{}

func (Flat) OffsetZ(x, y float64) (bool, float64) { return false, 0 }

// Mesh interpolates heights over a Delaunay triangulation of probe points.
type Mesh struct {
	min, max  coord.Point
	triangles []coord.Triangle
}

// NewMesh triangulates points. At least 3 points that are not all on a line
// are needed.
func NewMesh(points []coord.Point) (*Mesh, error) {
	if len(points) < 3 {
		return nil, errors.New("need at least 3 points to create a mesh")
	}

	flat := make([]delaunay.Point, len(points))
	byXY := make(map[delaunay.Point]coord.Point, len(points))
	for i, p := range points {
		flat[i] = delaunay.Point{X: p.X, Y: p.Y}
		byXY[flat[i]] = p
	}

	tri, err := delaunay.Triangulate(flat)
	if err != nil {
		return nil, err
	}

	mesh := &Mesh{triangles: make([]coord.Triangle, 0, len(tri.Triangles)/3)}
	mesh.min, mesh.max = coord.Polyline(points).Bounds()
	mesh.min = mesh.min.Sub(coord.Pt(coord.Epsilon, coord.Epsilon))
	mesh.max = mesh.max.Add(coord.Pt(coord.Epsilon, coord.Epsilon))

	for i := 0; i+2 < len(tri.Triangles); i += 3 {
		mesh.triangles = append(mesh.triangles, coord.Triangle{
			A: byXY[tri.Points[tri.Triangles[i]]],
			B: byXY[tri.Points[tri.Triangles[i+1]]],
			C: byXY[tri.Points[tri.Triangles[i+2]]],
		})
	}

	return mesh, nil
}

func (m *Mesh) OffsetZ(x, y float64) (bool, float64) {
	if x < m.min.X || m.max.X < x || y < m.min.Y || m.max.Y < y {
		return false, 0
	}
	for _, t := range m.triangles {
		if t.ContainsXY(x, y) {
			return true, t.Z(x, y)
		}
	}

	return false, 0
}
