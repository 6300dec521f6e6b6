package grbl

import (
	"strconv"
	"sync"
	"time"
)

// An Observer is notified of everything a Streamer does. Calls are made from
// a single goroutine in the order things happened, never while the streamer
// holds its lock, so observers may call Pause, Resume or Abort. They must not
// call Wait.
type Observer interface {
	StateChanged(State)
	LineSent(index int, line string)
	LineReceived(line string)
	Progress(acked, total int)
	Error(*StreamError)
}

// ObserverFuncs adapts plain functions to an Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnState    func(State)
	OnSent     func(index int, line string)
	OnReceived func(line string)
	OnProgress func(acked, total int)
	OnError    func(*StreamError)
}

func (o ObserverFuncs) StateChanged(s State) {
	if o.OnState != nil {
		o.OnState(s)
	}
}
func (o ObserverFuncs) LineSent(index int, line string) {
	if o.OnSent != nil {
		o.OnSent(index, line)
	}
}
func (o ObserverFuncs) LineReceived(line string) {
	if o.OnReceived != nil {
		o.OnReceived(line)
	}
}
func (o ObserverFuncs) Progress(acked, total int) {
	if o.OnProgress != nil {
		o.OnProgress(acked, total)
	}
}
func (o ObserverFuncs) Error(err *StreamError) {
	if o.OnError != nil {
		o.OnError(err)
	}
}

type EventType int

const (
	StateEvent EventType = iota + 1
	SentEvent
	ReceivedEvent
	ProgressEvent
	ErrorEvent
)

func (t EventType) String() string {
	switch t {
	case StateEvent:
		return "state"
	case SentEvent:
		return "sent"
	case ReceivedEvent:
		return "received"
	case ProgressEvent:
		return "progress"
	case ErrorEvent:
		return "error"
	}
	return "EventType(" + strconv.Itoa(int(t)) + ")"
}

func (t EventType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Event is a single observer notification as a value.
type Event struct {
	Type EventType `json:"type"`

	State State `json:"state"`

	// Index is the line index for SentEvent.
	Index int    `json:"index"`
	Line  string `json:"line,omitempty"`

	Acked int `json:"acked"`
	Total int `json:"total"`

	Err *StreamError `json:"error,omitempty"`
}

// EventChan is an Observer that delivers every notification as an Event.
// Sends block, so the channel must be drained for the streamer's events to
// keep flowing.
type EventChan chan Event

func (c EventChan) StateChanged(s State) { c <- Event{Type: StateEvent, State: s} }
func (c EventChan) LineSent(index int, line string) {
	c <- Event{Type: SentEvent, Index: index, Line: line}
}
func (c EventChan) LineReceived(line string)  { c <- Event{Type: ReceivedEvent, Line: line} }
func (c EventChan) Progress(acked, total int) { c <- Event{Type: ProgressEvent, Acked: acked, Total: total} }
func (c EventChan) Error(err *StreamError)    { c <- Event{Type: ErrorEvent, Err: err} }

// dispatcher delivers notifications in order on its own goroutine. The
// goroutine only runs while there is something queued.
type dispatcher struct {
	obs []Observer

	mx      sync.Mutex
	idle    *sync.Cond
	queue   []func(Observer)
	running bool
}

func newDispatcher(obs []Observer) *dispatcher {
	d := &dispatcher{obs: obs}
	d.idle = sync.NewCond(&d.mx)
	return d
}

func (d *dispatcher) push(fn func(Observer)) {
	if len(d.obs) == 0 {
		return
	}
	d.mx.Lock()
	d.queue = append(d.queue, fn)
	if !d.running {
		d.running = true
		go d.run()
	}
	d.mx.Unlock()
}

func (d *dispatcher) run() {
	for {
		d.mx.Lock()
		if len(d.queue) == 0 {
			d.running = false
			d.idle.Broadcast()
			d.mx.Unlock()
			return
		}
		fn := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mx.Unlock()

		for _, o := range d.obs {
			fn(o)
		}
	}
}

// flush blocks until everything queued so far has been delivered or expired
// fires. A nil expired never fires. It reports false on expiry.
func (d *dispatcher) flush(expired <-chan time.Time) bool {
	done := make(chan struct{})
	go func() {
		d.mx.Lock()
		for d.running {
			d.idle.Wait()
		}
		d.mx.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-expired:
		return false
	}
}
