package geom

import "github.com/mastercactapus/svgrbl/coord"

// Build samples every segment of path and joins them into polylines.
//
// The first point of each sampled segment is dropped when the running
// polyline already ends there, so joins are never duplicated. A segment that
// does not start where the running polyline ends (a pen move) begins a new
// polyline. A close marker finalizes the running polyline; whatever is left
// after the last segment is finalized as well.
func Build(path Path, resolution float64) []coord.Polyline {
	var res []coord.Polyline
	var cur coord.Polyline

	for _, seg := range path {
		if len(cur) > 0 && !cur[len(cur)-1].Equal(seg.Start()) {
			res = append(res, cur)
			cur = nil
		}

		// a close marker already at the subpath start adds nothing to draw
		if seg.Kind != CloseKind || len(cur) == 0 || !seg.Start().Equal(seg.End()) {
			pts := Sample(seg, resolution)
			if len(cur) > 0 && len(pts) > 0 {
				pts = pts[1:]
			}
			cur = append(cur, pts...)
		}

		if seg.Kind == CloseKind {
			res = append(res, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		res = append(res, cur)
	}

	return res
}
