package grbl

import (
	"errors"
	"strconv"
	"strings"

	"github.com/mastercactapus/svgrbl/coord"
)

// Status is a decoded real-time status report such as
// <Idle|MPos:0.000,0.000,0.000|FS:0,0|WCO:0.000,0.000,0.000>.
type Status struct {
	State string
	MPos  coord.Point
	WPos  coord.Point
	WCO   coord.Point

	Feed, Speed float64
}

func parseCoords(data string) (p coord.Point, err error) {
	parts := strings.Split(data, ",")
	if len(parts) < 3 {
		return p, errors.New("invalid number of elements")
	}
	p.X, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return p, err
	}
	p.Y, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return p, err
	}
	p.Z, err = strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return p, err
	}
	return p, nil
}

// isStatus reports if data looks like a status report.
func isStatus(data string) bool {
	return strings.HasPrefix(data, "<") && strings.HasSuffix(data, ">")
}

// parseStatus decodes a status report on top of the last one. Controllers only
// send WCO every few reports, so it carries over.
func parseStatus(stat Status, data string) (*Status, error) {
	if !isStatus(data) {
		return nil, errors.New("not a status report: " + data)
	}
	data = strings.TrimSuffix(strings.TrimPrefix(data, "<"), ">")
	parts := strings.Split(data, "|")
	stat.State = parts[0]

	var err error
	var hasMPos, hasWPos bool
	for _, s := range parts[1:] {
		sParts := strings.SplitN(s, ":", 2)
		if len(sParts) != 2 {
			continue
		}
		switch sParts[0] {
		case "MPos":
			stat.MPos, err = parseCoords(sParts[1])
			hasMPos = true
		case "WPos":
			stat.WPos, err = parseCoords(sParts[1])
			hasWPos = true
		case "WCO":
			stat.WCO, err = parseCoords(sParts[1])
		case "F":
			stat.Feed, err = strconv.ParseFloat(sParts[1], 64)
		case "FS":
			fs := strings.Split(sParts[1], ",")
			stat.Feed, err = strconv.ParseFloat(fs[0], 64)
			if err == nil && len(fs) > 1 {
				stat.Speed, err = strconv.ParseFloat(fs[1], 64)
			}
		}
		if err != nil {
			return nil, err
		}
	}

	switch {
	case hasMPos:
		stat.WPos = stat.MPos.Sub(stat.WCO)
	case hasWPos:
		stat.MPos = stat.WPos.Add(stat.WCO)
	}
	return &stat, nil
}
