package svg

import (
	"fmt"
	"math"

	"github.com/mastercactapus/svgrbl/coord"
	"github.com/mastercactapus/svgrbl/geom"
	"github.com/tdewolff/parse/v2/strconv"
)

type scanner struct {
	b []byte
	i int
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func (s *scanner) skip() {
	for s.i < len(s.b) && (isSpace(s.b[s.i]) || s.b[s.i] == ',') {
		s.i++
	}
}

func (s *scanner) done() bool {
	s.skip()
	return s.i >= len(s.b)
}

// hasNumber reports if the next token starts a number.
func (s *scanner) hasNumber() bool {
	s.skip()
	if s.i >= len(s.b) {
		return false
	}
	c := s.b[s.i]
	return c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9')
}

func (s *scanner) number() (float64, error) {
	s.skip()
	f, n := strconv.ParseFloat(s.b[s.i:])
	if n == 0 {
		return 0, s.errorf("expected number")
	}
	s.i += n
	return f, nil
}

// flag reads a single arc flag, which may be packed without separators.
func (s *scanner) flag() (bool, error) {
	s.skip()
	if s.i >= len(s.b) {
		return false, s.errorf("expected flag")
	}
	c := s.b[s.i]
	if c != '0' && c != '1' {
		return false, s.errorf("invalid flag %q", c)
	}
	s.i++
	return c == '1', nil
}

func (s *scanner) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("path data offset %d: %s", s.i, fmt.Sprintf(format, args...))
}

func (s *scanner) numbers(dst ...*float64) error {
	for _, d := range dst {
		v, err := s.number()
		if err != nil {
			return err
		}
		*d = v
	}
	return nil
}

// ParsePathData converts SVG path data ("d" attribute) into segments.
//
// Supported commands are M L H V C S Q T A Z in absolute and relative form.
// A pen move without drawing produces no segment.
func ParsePathData(d string) (geom.Path, error) {
	s := &scanner{b: []byte(d)}
	var (
		path       geom.Path
		cur, start coord.Point
		ctrl       coord.Point // last control point, for S and T
		prev       byte
		cmd        byte
	)

	for !s.done() {
		if c := s.b[s.i]; (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
			cmd = c
			s.i++
		} else if cmd == 0 {
			return nil, s.errorf("path must start with a command")
		} else if !s.hasNumber() || cmd == 'Z' || cmd == 'z' {
			return nil, s.errorf("unexpected %q", c)
		}

		rel := cmd >= 'a'
		abs := func(x, y float64) coord.Point {
			if rel {
				return coord.Pt(cur.X+x, cur.Y+y)
			}
			return coord.Pt(x, y)
		}

		var x, y, x1, y1, x2, y2 float64
		switch cmd {
		case 'M', 'm':
			if err := s.numbers(&x, &y); err != nil {
				return nil, err
			}
			cur = abs(x, y)
			start = cur
			// further pairs are implicit line-tos
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
			prev = 'M'
			continue
		case 'L', 'l':
			if err := s.numbers(&x, &y); err != nil {
				return nil, err
			}
			p := abs(x, y)
			path = append(path, geom.Line(cur, p))
			cur = p
		case 'H', 'h':
			if err := s.numbers(&x); err != nil {
				return nil, err
			}
			p := coord.Pt(x, cur.Y)
			if rel {
				p.X += cur.X
			}
			path = append(path, geom.Line(cur, p))
			cur = p
		case 'V', 'v':
			if err := s.numbers(&y); err != nil {
				return nil, err
			}
			p := coord.Pt(cur.X, y)
			if rel {
				p.Y += cur.Y
			}
			path = append(path, geom.Line(cur, p))
			cur = p
		case 'C', 'c':
			if err := s.numbers(&x1, &y1, &x2, &y2, &x, &y); err != nil {
				return nil, err
			}
			c0, c1, p := abs(x1, y1), abs(x2, y2), abs(x, y)
			path = append(path, geom.Cubic(cur, c0, c1, p))
			cur, ctrl = p, c1
		case 'S', 's':
			if err := s.numbers(&x2, &y2, &x, &y); err != nil {
				return nil, err
			}
			c0 := cur
			if isCubic(prev) {
				c0 = reflect(ctrl, cur)
			}
			c1, p := abs(x2, y2), abs(x, y)
			path = append(path, geom.Cubic(cur, c0, c1, p))
			cur, ctrl = p, c1
		case 'Q', 'q':
			if err := s.numbers(&x1, &y1, &x, &y); err != nil {
				return nil, err
			}
			c, p := abs(x1, y1), abs(x, y)
			path = append(path, geom.Quad(cur, c, p))
			cur, ctrl = p, c
		case 'T', 't':
			if err := s.numbers(&x, &y); err != nil {
				return nil, err
			}
			c := cur
			if isQuad(prev) {
				c = reflect(ctrl, cur)
			}
			p := abs(x, y)
			path = append(path, geom.Quad(cur, c, p))
			cur, ctrl = p, c
		case 'A', 'a':
			var rx, ry, rot float64
			if err := s.numbers(&rx, &ry, &rot); err != nil {
				return nil, err
			}
			large, err := s.flag()
			if err != nil {
				return nil, err
			}
			sweep, err := s.flag()
			if err != nil {
				return nil, err
			}
			if err := s.numbers(&x, &y); err != nil {
				return nil, err
			}
			p := abs(x, y)
			path = append(path, geom.Arc(cur, rx, ry, rot*math.Pi/180, large, sweep, p))
			cur = p
		case 'Z', 'z':
			path = append(path, geom.Close(cur, start))
			cur = start
		default:
			return nil, s.errorf("unsupported command %q", cmd)
		}
		prev = cmd
	}

	return path, nil
}

func isCubic(c byte) bool {
	switch c {
	case 'C', 'c', 'S', 's':
		return true
	}
	return false
}

func isQuad(c byte) bool {
	switch c {
	case 'Q', 'q', 'T', 't':
		return true
	}
	return false
}

func reflect(ctrl, about coord.Point) coord.Point {
	return coord.Pt(2*about.X-ctrl.X, 2*about.Y-ctrl.Y)
}
