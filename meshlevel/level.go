package meshlevel

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/mastercactapus/svgrbl/coord"
	"github.com/mastercactapus/svgrbl/gcode"
)

// Probe is one recorded height sample, as written by a probing run.
type Probe struct {
	coord.Point
	Valid bool
}

// LoadGrid reads a JSON list of probes and returns the valid points with Z
// made relative to the first valid probe.
func LoadGrid(r io.Reader) ([]coord.Point, error) {
	var probes []Probe
	err := json.NewDecoder(r).Decode(&probes)
	if err != nil {
		return nil, err
	}

	points := make([]coord.Point, 0, len(probes))
	for _, p := range probes {
		if !p.Valid {
			continue
		}
		points = append(points, p.Point)
	}
	if len(points) == 0 {
		return nil, errors.New("no valid probe points")
	}

	ref := points[0].Z
	for i := range points {
		points[i].Z -= ref
	}
	return points, nil
}

// Level rewrites program lines so Z follows the surface described by z.
// Moves longer than granularity are split first. Comments are not kept and
// the output uses fixed-precision formatting.
func Level(lines []string, z ZOffsetter, granularity float64) ([]string, error) {
	if granularity <= 0 {
		return nil, errors.New("granularity must be positive")
	}
	l := New(Config{
		ZOffsetter:  z,
		Granularity: granularity,
		Reader:      gcode.NewParser(strings.NewReader(strings.Join(lines, "\n"))),
	})
	buf := gcode.NewBuffer(l)
	buf.Fixed = true

	res := make([]string, 0, len(lines))
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		res = append(res, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
