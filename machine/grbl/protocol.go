// Package grbl streams programs to Grbl style controllers, one line at a time
// under ok/error flow control.
package grbl

import "strings"

// Realtime bytes are acted on by the controller as soon as they arrive,
// outside the line queue.
const (
	CmdPause  byte = '!'
	CmdResume byte = '~'
	CmdCancel byte = 0x18
)

type ResponseKind int

const (
	// Info is anything that is not an acknowledgment.
	Info ResponseKind = iota
	Ack
	Reject
)

// Response is a classified line received from the controller.
type Response struct {
	Kind ResponseKind
	// Code is the text after "error:" for Reject responses.
	Code string
	Raw  string
}

// ParseResponse classifies a line received from the controller. "ok" must
// match exactly, "error:" is a prefix; both are case-insensitive.
func ParseResponse(line string) Response {
	r := Response{Raw: line}
	switch {
	case strings.EqualFold(line, "ok"):
		r.Kind = Ack
	case len(line) >= 6 && strings.EqualFold(line[:6], "error:"):
		r.Kind = Reject
		r.Code = strings.TrimSpace(line[6:])
	}
	return r
}
