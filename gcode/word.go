package gcode

import (
	"math"
	"strconv"
	"strings"
)

type Word struct {
	W   byte
	Arg float64
}

func (w Word) IsAxis() bool {
	switch w.W {
	case 'X', 'Y', 'Z': // maybe someday 'A', 'B', 'C', 'U', 'V', 'W':
		return true
	}
	return false
}

func (w Word) IsValid() bool {
	return w.W >= 'A' && w.W <= 'Z'
}

func formatFloat(f float64, prec int) string {
	s := strconv.FormatFloat(f, 'f', prec, 64)
	if strings.ContainsRune(s, '.') {
		s = strings.TrimRight(s, "0")
	}
	return strings.TrimRight(s, ".")
}

func (w Word) String() string {
	return string(w.W) + formatFloat(w.Arg, 3)
}

// Fixed formats the word for emitted programs. Coordinates, feeds and dwell
// times always carry three decimals, spindle levels are integers and command
// words (G, M) keep their short form.
func (w Word) Fixed() string {
	switch w.W {
	case 'G', 'M':
		return w.String()
	case 'S':
		return "S" + strconv.FormatInt(int64(math.Round(w.Arg)), 10)
	}
	v := math.Round(w.Arg*1000) / 1000
	if v == 0 {
		// no "-0.000"
		v = 0
	}
	return string(w.W) + strconv.FormatFloat(v, 'f', 3, 64)
}
