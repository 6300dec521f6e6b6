package gcode

import (
	"io"
	"math"
	"strings"
	"time"

	"github.com/mastercactapus/svgrbl/coord"
)

// Summary describes a program without running it on a machine.
type Summary struct {
	// Lines is the number of blocks, comments and blank lines excluded.
	Lines int
	// Moves is the number of blocks that changed the position.
	Moves int

	// Min and Max bound every position the program visits, in mm.
	Min, Max coord.Point

	// Travel is the XY distance covered by all moves, in mm.
	Travel float64

	// CutTime estimates the time spent in feed moves and dwells. Rapids are
	// not counted since their speed is a machine setting.
	CutTime time.Duration
}

func dwell(b Block) (time.Duration, bool) {
	for _, w := range b {
		if w == (Word{W: 'G', Arg: 4}) {
			_, p := b.Arg('P')
			return time.Duration(p * float64(time.Second)), true
		}
	}
	return 0, false
}

// Measure runs lines through a VM and reports the program extents.
func Measure(lines []string) (*Summary, error) {
	p := NewParser(strings.NewReader(strings.Join(lines, "\n")))
	vm := NewVM()

	var s Summary
	for {
		b, err := p.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		s.Lines++
		if d, ok := dwell(b); ok {
			s.CutTime += d
		}

		old := vm.WPos()
		err = vm.Run(b)
		if err != nil {
			return nil, err
		}
		pos := vm.WPos()
		if pos.Equal(old) {
			continue
		}
		if s.Moves == 0 {
			s.Min, s.Max = pos, pos
		}
		s.Moves++
		s.Travel += old.DistanceXY(pos.X, pos.Y)
		if vm.Motion() == 1 && vm.Feed() > 0 {
			d := pos.Sub(old)
			mm := math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
			s.CutTime += time.Duration(mm / vm.Feed() * float64(time.Minute))
		}
		s.Min = coord.Point{X: math.Min(s.Min.X, pos.X), Y: math.Min(s.Min.Y, pos.Y), Z: math.Min(s.Min.Z, pos.Z)}
		s.Max = coord.Point{X: math.Max(s.Max.X, pos.X), Y: math.Max(s.Max.Y, pos.Y), Z: math.Max(s.Max.Z, pos.Z)}
	}

	return &s, nil
}
