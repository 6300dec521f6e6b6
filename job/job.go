// Package job builds streamable programs from SVG drawings.
package job

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mastercactapus/svgrbl/coord"
	"github.com/mastercactapus/svgrbl/gcode"
	"github.com/mastercactapus/svgrbl/geom"
	"github.com/mastercactapus/svgrbl/meshlevel"
	"github.com/mastercactapus/svgrbl/svg"
	"github.com/mitchellh/go-homedir"
)

// Polylines samples every element of the drawing in document order.
func Polylines(elements []svg.Element, resolution float64) []coord.Polyline {
	var res []coord.Polyline
	for _, e := range elements {
		res = append(res, geom.Build(e.Path, resolution)...)
	}
	return res
}

// FromSVG reads a drawing and encodes it with the machining parameters of cfg.
// When cfg.Level.Grid is set the result is leveled against that height map.
func FromSVG(r io.Reader, cfg Config) ([]string, error) {
	if cfg.Resolution <= 0 {
		return nil, fmt.Errorf("invalid resolution %g", cfg.Resolution)
	}
	elements, err := svg.Decode(r)
	if err != nil {
		return nil, err
	}

	lines := gcode.Encode(Polylines(elements, cfg.Resolution), cfg.Machining)
	if cfg.Level.Grid == "" {
		return lines, nil
	}

	return level(lines, cfg.Level)
}

func level(lines []string, cfg LevelConfig) ([]string, error) {
	name, err := homedir.Expand(cfg.Grid)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	points, err := meshlevel.LoadGrid(f)
	if err != nil {
		return nil, fmt.Errorf("load grid '%s': %w", name, err)
	}
	mesh, err := meshlevel.NewMesh(points)
	if err != nil {
		return nil, fmt.Errorf("load grid '%s': %w", name, err)
	}

	return meshlevel.Level(lines, mesh, cfg.Granularity)
}

// Write writes one line per instruction, each newline terminated.
func Write(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		_, err := bw.WriteString(l + "\n")
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes lines to the named file, creating parent directories.
func WriteFile(name string, lines []string) error {
	name, err := homedir.Expand(name)
	if err != nil {
		return err
	}
	err = os.MkdirAll(filepath.Dir(name), 0755)
	if err != nil {
		return err
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	err = Write(f, lines)
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile reads a program written by WriteFile, or any text file with one
// instruction per line.
func ReadFile(name string) ([]string, error) {
	name, err := homedir.Expand(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(f)
}

// Read splits r into lines without their terminators.
func Read(r io.Reader) ([]string, error) {
	var lines []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		lines = append(lines, s.Text())
	}
	return lines, s.Err()
}
