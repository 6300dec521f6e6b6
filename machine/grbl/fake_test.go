package grbl

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mastercactapus/svgrbl/machine"
)

// fakePort plays a controller. Every line written is recorded and answered
// with whatever respond returns.
type fakePort struct {
	respond func(line string) []string

	mx       sync.Mutex
	lines    []string
	realtime []byte
	closes   int
	readErr  error

	rx      chan []byte
	pending []byte
	closeCh chan struct{}
}

func newFakePort(respond func(string) []string) *fakePort {
	return &fakePort{
		respond: respond,
		rx:      make(chan []byte, 1000),
		closeCh: make(chan struct{}),
	}
}

func alwaysOK(string) []string { return []string{"ok"} }

func (p *fakePort) opener() machine.Opener {
	return func(machine.PortConfig) (machine.Port, error) { return p, nil }
}

// send queues controller output.
func (p *fakePort) send(lines ...string) {
	for _, l := range lines {
		p.rx <- []byte(l + "\r\n")
	}
}

func (p *fakePort) failReads(err error) {
	p.mx.Lock()
	p.readErr = err
	p.mx.Unlock()
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mx.Lock()
	err := p.readErr
	p.mx.Unlock()
	if err != nil {
		return 0, err
	}

	if len(p.pending) == 0 {
		select {
		case <-p.closeCh:
			return 0, io.ErrClosedPipe
		case p.pending = <-p.rx:
		case <-time.After(10 * time.Millisecond):
			return 0, machine.ErrReadTimeout
		}
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mx.Lock()
	select {
	case <-p.closeCh:
		p.mx.Unlock()
		return 0, io.ErrClosedPipe
	default:
	}

	if len(b) == 1 && b[0] != '\n' {
		p.realtime = append(p.realtime, b[0])
		p.mx.Unlock()
		return 1, nil
	}

	line := strings.TrimSuffix(string(b), "\n")
	p.lines = append(p.lines, line)
	p.mx.Unlock()

	if p.respond != nil {
		p.send(p.respond(line)...)
	}
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.closes++
	if p.closes == 1 {
		close(p.closeCh)
	}
	return nil
}

func (p *fakePort) Written() []string {
	p.mx.Lock()
	defer p.mx.Unlock()
	return append([]string(nil), p.lines...)
}

func (p *fakePort) Realtime() []byte {
	p.mx.Lock()
	defer p.mx.Unlock()
	return append([]byte(nil), p.realtime...)
}

func (p *fakePort) Closes() int {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.closes
}
