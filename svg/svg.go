// Package svg reads the drawable geometry out of an SVG document.
package svg

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/mastercactapus/svgrbl/coord"
	"github.com/mastercactapus/svgrbl/geom"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/strconv"
	"github.com/tdewolff/parse/v2/xml"
)

// ErrNotSVG is returned when the document has no <svg> root element.
var ErrNotSVG = errors.New("not an svg document")

// Element is one drawable element of the document, in document order.
type Element struct {
	Name  string
	Attrs map[string]string
	Path  geom.Path
}

// Decode reads all drawable elements from r.
//
// <path> elements are used as-is; <line>, <polyline>, <polygon>, <rect>,
// <circle> and <ellipse> are converted to paths. Elements without geometry are
// skipped. Transforms are not applied.
func Decode(r io.Reader) ([]Element, error) {
	l := xml.NewLexer(parse.NewInput(r))

	var (
		res     []Element
		isSVG   bool
		name    string
		attrs   map[string]string
		element int
	)
	for {
		tt, _ := l.Next()
		switch tt {
		case xml.ErrorToken:
			if err := l.Err(); err != io.EOF {
				return nil, fmt.Errorf("read svg: %w", err)
			}
			if !isSVG {
				return nil, ErrNotSVG
			}
			return res, nil
		case xml.StartTagToken:
			name = localName(string(l.Text()))
			if !isSVG {
				// only the document element decides
				if name != "svg" {
					return nil, ErrNotSVG
				}
				isSVG = true
			}
			attrs = make(map[string]string)
		case xml.AttributeToken:
			if attrs != nil {
				attrs[localName(string(l.Text()))] = unquote(l.AttrVal())
			}
		case xml.StartTagCloseToken, xml.StartTagCloseVoidToken:
			p, err := elementPath(name, attrs)
			if err != nil {
				return nil, fmt.Errorf("element %d <%s>: %w", element, name, err)
			}
			element++
			if len(p) > 0 {
				res = append(res, Element{Name: name, Attrs: attrs, Path: p})
			}
			name, attrs = "", nil
		}
	}
}

func localName(s string) string {
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func unquote(b []byte) string {
	if len(b) >= 2 && (b[0] == '"' || b[0] == '\'') && b[len(b)-1] == b[0] {
		b = b[1 : len(b)-1]
	}
	return string(b)
}

// length parses a numeric attribute, ignoring any unit suffix.
func length(attrs map[string]string, key string) float64 {
	v := strings.TrimSpace(attrs[key])
	if v == "" {
		return 0
	}
	f, n := strconv.ParseFloat([]byte(v))
	if n == 0 {
		return 0
	}
	return f
}

func elementPath(name string, attrs map[string]string) (geom.Path, error) {
	switch name {
	case "path":
		d, ok := attrs["d"]
		if !ok {
			return nil, nil
		}
		return ParsePathData(d)
	case "line":
		p0 := coord.Pt(length(attrs, "x1"), length(attrs, "y1"))
		p1 := coord.Pt(length(attrs, "x2"), length(attrs, "y2"))
		return geom.Path{geom.Line(p0, p1)}, nil
	case "polyline", "polygon":
		pts, err := parsePoints(attrs["points"])
		if err != nil {
			return nil, err
		}
		return polygon(pts, name == "polygon"), nil
	case "rect":
		return rect(
			length(attrs, "x"), length(attrs, "y"),
			length(attrs, "width"), length(attrs, "height"),
			length(attrs, "rx"), length(attrs, "ry"),
		), nil
	case "circle":
		r := length(attrs, "r")
		return ellipse(length(attrs, "cx"), length(attrs, "cy"), r, r), nil
	case "ellipse":
		return ellipse(length(attrs, "cx"), length(attrs, "cy"), length(attrs, "rx"), length(attrs, "ry")), nil
	}
	return nil, nil
}

func parsePoints(s string) ([]coord.Point, error) {
	sc := &scanner{b: []byte(s)}
	var pts []coord.Point
	for !sc.done() {
		var x, y float64
		if err := sc.numbers(&x, &y); err != nil {
			return nil, err
		}
		pts = append(pts, coord.Pt(x, y))
	}
	return pts, nil
}

func polygon(pts []coord.Point, closed bool) geom.Path {
	if len(pts) < 2 {
		return nil
	}
	p := make(geom.Path, 0, len(pts))
	for i := 1; i < len(pts); i++ {
		p = append(p, geom.Line(pts[i-1], pts[i]))
	}
	if closed {
		p = append(p, geom.Close(pts[len(pts)-1], pts[0]))
	}
	return p
}

func rect(x, y, w, h, rx, ry float64) geom.Path {
	if w <= 0 || h <= 0 {
		return nil
	}
	// a missing radius takes the value of the other one
	if rx <= 0 {
		rx = ry
	}
	if ry <= 0 {
		ry = rx
	}
	rx = math.Min(math.Max(rx, 0), w/2)
	ry = math.Min(math.Max(ry, 0), h/2)

	if rx == 0 || ry == 0 {
		return polygon([]coord.Point{
			coord.Pt(x, y), coord.Pt(x+w, y), coord.Pt(x+w, y+h), coord.Pt(x, y+h),
		}, true)
	}

	corner := func(from, to coord.Point) geom.Segment {
		return geom.Arc(from, rx, ry, 0, false, true, to)
	}
	var p geom.Path
	add := func(s geom.Segment) {
		if !s.Start().Equal(s.End()) {
			p = append(p, s)
		}
	}
	start := coord.Pt(x+rx, y)
	add(geom.Line(start, coord.Pt(x+w-rx, y)))
	add(corner(coord.Pt(x+w-rx, y), coord.Pt(x+w, y+ry)))
	add(geom.Line(coord.Pt(x+w, y+ry), coord.Pt(x+w, y+h-ry)))
	add(corner(coord.Pt(x+w, y+h-ry), coord.Pt(x+w-rx, y+h)))
	add(geom.Line(coord.Pt(x+w-rx, y+h), coord.Pt(x+rx, y+h)))
	add(corner(coord.Pt(x+rx, y+h), coord.Pt(x, y+h-ry)))
	add(geom.Line(coord.Pt(x, y+h-ry), coord.Pt(x, y+ry)))
	add(corner(coord.Pt(x, y+ry), start))
	p = append(p, geom.Close(start, start))
	return p
}

func ellipse(cx, cy, rx, ry float64) geom.Path {
	if rx <= 0 || ry <= 0 {
		return nil
	}
	right := coord.Pt(cx+rx, cy)
	left := coord.Pt(cx-rx, cy)
	return geom.Path{
		geom.Arc(right, rx, ry, 0, false, true, left),
		geom.Arc(left, rx, ry, 0, false, true, right),
		geom.Close(right, right),
	}
}
