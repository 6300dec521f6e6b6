// Package machine opens the byte streams used to talk to a controller.
package machine

import (
	"errors"
	"io"
	"time"
)

// ErrReadTimeout is returned by Port.Read when no data arrived within the
// port's read timeout. The port stays usable.
var ErrReadTimeout = errors.New("read timeout")

// A Port is a full-duplex, byte-oriented connection to a controller.
type Port interface {
	io.ReadWriteCloser
}

// PortConfig identifies a port and how to open it.
type PortConfig struct {
	Name string
	Baud int

	// ReadTimeout bounds every Read. Zero blocks until data arrives.
	ReadTimeout time.Duration
}

// An Opener opens a Port.
type Opener func(PortConfig) (Port, error)
