package gcode

import (
	"strings"

	"github.com/mastercactapus/svgrbl/coord"
)

// Params controls how polylines are turned into a program.
type Params struct {
	// SafeZ is the travel height between polylines.
	SafeZ float64 `toml:"safe_z"`
	// CutZ is the depth every polyline is cut at.
	CutZ float64 `toml:"cut_z"`

	PlungeFeed float64 `toml:"plunge_feed"`
	TravelFeed float64 `toml:"travel_feed"`

	// Power enables the spindle or laser at the given level. Nil leaves it off.
	Power *int `toml:"power"`
	// Dwell is the pause in seconds after powering on.
	Dwell float64 `toml:"dwell"`

	// Comment is emitted as the first line when set.
	Comment string `toml:"comment"`

	// DedupeTolerance is the minimum distance between consecutive points.
	DedupeTolerance float64 `toml:"dedupe_tolerance"`

	Header bool `toml:"header"`
	Footer bool `toml:"footer"`
}

// DefaultParams returns the parameters used when nothing else is configured.
func DefaultParams() Params {
	return Params{
		SafeZ:           5,
		CutZ:            -1,
		PlungeFeed:      200,
		TravelFeed:      1000,
		Dwell:           0.1,
		DedupeTolerance: 1e-6,
		Header:          true,
		Footer:          true,
	}
}

// Power is a helper for setting Params.Power from a literal.
func Power(level int) *int { return &level }

func g(n float64) Word         { return Word{W: 'G', Arg: n} }
func m(n float64) Word         { return Word{W: 'M', Arg: n} }
func w(c byte, v float64) Word { return Word{W: c, Arg: v} }

// EncodeBlocks is like Encode but returns the program as blocks. Comments are
// not representable as blocks and are left out.
func EncodeBlocks(polylines []coord.Polyline, p Params) []Block {
	var res []Block
	if p.Header {
		res = append(res,
			Block{g(21)},
			Block{g(90)},
			Block{g(0), w('Z', p.SafeZ)},
		)
		if p.Power != nil {
			res = append(res,
				Block{m(3), w('S', float64(*p.Power))},
				Block{g(4), w('P', p.Dwell)},
			)
		}
	}

	for _, pl := range polylines {
		pl = pl.Dedupe(p.DedupeTolerance)
		if len(pl) == 0 {
			continue
		}
		res = append(res,
			Block{g(0), w('X', pl[0].X), w('Y', pl[0].Y), w('F', p.TravelFeed)},
			Block{g(1), w('Z', p.CutZ), w('F', p.PlungeFeed)},
		)
		for _, pt := range pl[1:] {
			res = append(res, Block{g(1), w('X', pt.X), w('Y', pt.Y), w('F', p.PlungeFeed)})
		}
		res = append(res, Block{g(0), w('Z', p.SafeZ), w('F', p.TravelFeed)})
	}

	if p.Footer {
		if p.Power != nil {
			res = append(res, Block{m(5)})
		}
		res = append(res,
			Block{g(0), w('X', 0), w('Y', 0)},
			Block{m(2)},
		)
	}
	return res
}

// Encode turns polylines into program lines. The output depends only on the
// arguments: the same input always produces the same lines.
func Encode(polylines []coord.Polyline, p Params) []string {
	blocks := EncodeBlocks(polylines, p)
	res := make([]string, 0, len(blocks)+1)
	if p.Header && p.Comment != "" {
		res = append(res, "("+commentText(p.Comment)+")")
	}
	for _, b := range blocks {
		res = append(res, b.Format())
	}
	return res
}

// commentText keeps a comment on a single line with balanced parentheses.
func commentText(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '(' || r == ')':
			return -1
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case r > 0x7e || r < 0x20:
			return '?'
		}
		return r
	}, s)
}
