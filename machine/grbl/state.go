package grbl

import (
	"errors"
	"fmt"
	"strconv"
)

// State is the streamer lifecycle state.
type State int

const (
	Idle State = iota
	Sending
	Paused
	Error
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Sending:
		return "Sending"
	case Paused:
		return "Paused"
	case Error:
		return "Error"
	case Done:
		return "Done"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(data []byte) error {
	for st := Idle; st <= Done; st++ {
		if st.String() == string(data) {
			*s = st
			return nil
		}
	}
	return errors.New("unknown state: " + string(data))
}

// Active reports if a session is running in this state.
func (s State) Active() bool { return s == Sending || s == Paused }

var (
	ErrBusy       = errors.New("streamer busy")
	ErrNotSending = errors.New("streamer not sending")
	ErrNotPaused  = errors.New("streamer not paused")
)

type ErrorKind int

const (
	// ConnectionError means the port failed to open, read or write.
	ConnectionError ErrorKind = iota + 1
	// ControllerError means the controller rejected a line.
	ControllerError
)

func (k ErrorKind) String() string {
	switch k {
	case ConnectionError:
		return "connection"
	case ControllerError:
		return "controller"
	}
	return "ErrorKind(" + strconv.Itoa(int(k)) + ")"
}

func (k ErrorKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// StreamError records why a session ended in the Error state.
type StreamError struct {
	Kind ErrorKind `json:"kind"`
	// LineIndex is the cursor at the time of the error, or -1 for connection
	// errors.
	LineIndex int    `json:"lineIndex"`
	Line      string `json:"line"`
	Code      string `json:"code"`
	Raw       string `json:"raw"`

	Err error `json:"-"`
}

func (e *StreamError) Error() string {
	if e.Kind == ConnectionError {
		return fmt.Sprintf("connection error: %v", e.Err)
	}
	return fmt.Sprintf("line %d '%s': error %s", e.LineIndex+1, e.Line, e.Code)
}

func (e *StreamError) Unwrap() error { return e.Err }
