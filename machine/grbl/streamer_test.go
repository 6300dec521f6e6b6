package grbl

import (
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/mastercactapus/svgrbl/coord"
	"github.com/mastercactapus/svgrbl/machine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 5 * time.Second

func testConfig(p *fakePort, obs ...Observer) Config {
	return Config{
		Port:        "fake",
		ReadTimeout: 10 * time.Millisecond,
		Opener:      p.opener(),
		Observers:   obs,
	}
}

// recorder keeps every event for later inspection.
type recorder struct {
	mx     sync.Mutex
	events []Event
}

func (r *recorder) add(e Event) {
	r.mx.Lock()
	r.events = append(r.events, e)
	r.mx.Unlock()
}
func (r *recorder) StateChanged(s State) { r.add(Event{Type: StateEvent, State: s}) }
func (r *recorder) LineSent(i int, l string) {
	r.add(Event{Type: SentEvent, Index: i, Line: l})
}
func (r *recorder) LineReceived(l string) {
	r.add(Event{Type: ReceivedEvent, Line: l})
}
func (r *recorder) Progress(acked, total int) {
	r.add(Event{Type: ProgressEvent, Acked: acked, Total: total})
}
func (r *recorder) Error(err *StreamError) {
	r.add(Event{Type: ErrorEvent, Err: err})
}

func (r *recorder) of(t EventType) []Event {
	r.mx.Lock()
	defer r.mx.Unlock()
	var res []Event
	for _, e := range r.events {
		if e.Type == t {
			res = append(res, e)
		}
	}
	return res
}

func (r *recorder) states() []State {
	var res []State
	for _, e := range r.of(StateEvent) {
		res = append(res, e.State)
	}
	return res
}

func TestStreamer_EmptyJob(t *testing.T) {
	rec := &recorder{}
	cfg := Config{
		Opener: func(machine.PortConfig) (machine.Port, error) {
			t.Error("port opened for an empty job")
			return nil, errors.New("unexpected")
		},
		Observers: []Observer{rec},
	}
	s := NewStreamer([]string{"", "   ", "; comment", "(only a comment)"}, cfg)

	require.NoError(t, s.Start())
	assert.True(t, s.Wait(waitTimeout))
	assert.Equal(t, Done, s.State())
	assert.Equal(t, 0, s.Cursor())
	assert.Equal(t, []State{Done}, rec.states())
	assert.Empty(t, rec.of(SentEvent))
}

func TestStreamer_AllAcknowledged(t *testing.T) {
	p := newFakePort(alwaysOK)
	rec := &recorder{}
	s := NewStreamer([]string{"G21", "G90 ; absolute"}, testConfig(p, rec))

	require.NoError(t, s.Start())
	assert.True(t, s.Wait(waitTimeout))

	assert.Equal(t, Done, s.State())
	assert.Equal(t, 2, s.Cursor())
	assert.Nil(t, s.LastError())
	assert.Equal(t, []string{"G21", "G90"}, p.Written())
	assert.Equal(t, 1, p.Closes())

	assert.Equal(t, []Event{
		{Type: ProgressEvent, Acked: 1, Total: 2},
		{Type: ProgressEvent, Acked: 2, Total: 2},
	}, rec.of(ProgressEvent))
	assert.Equal(t, []Event{
		{Type: SentEvent, Index: 0, Line: "G21"},
		{Type: SentEvent, Index: 1, Line: "G90"},
	}, rec.of(SentEvent))
	assert.Equal(t, []State{Sending, Done}, rec.states())
}

func TestStreamer_ControllerError(t *testing.T) {
	n := 0
	p := newFakePort(func(string) []string {
		n++
		if n == 2 {
			return []string{"[MSG:bad]", "error:9"}
		}
		return []string{"ok"}
	})
	rec := &recorder{}
	s := NewStreamer([]string{"G0 X1", "G0 Y1", "G0 Z1"}, testConfig(p, rec))

	require.NoError(t, s.Start())
	assert.True(t, s.Wait(waitTimeout))

	assert.Equal(t, Error, s.State())
	assert.Equal(t, []string{"G0 X1", "G0 Y1"}, p.Written())
	assert.Equal(t, 1, p.Closes())

	want := &StreamError{Kind: ControllerError, LineIndex: 1, Line: "G0 Y1", Code: "9", Raw: "error:9"}
	assert.Equal(t, want, s.LastError())
	errs := rec.of(ErrorEvent)
	require.Len(t, errs, 1)
	assert.Equal(t, want, errs[0].Err)
	assert.Equal(t, []State{Sending, Error}, rec.states())
}

func TestStreamer_CaseInsensitive(t *testing.T) {
	n := 0
	p := newFakePort(func(string) []string {
		n++
		if n == 1 {
			return []string{"OK"}
		}
		return []string{"ERROR: 22 "}
	})
	s := NewStreamer([]string{"G1", "G2"}, testConfig(p))

	require.NoError(t, s.Start())
	assert.True(t, s.Wait(waitTimeout))
	require.NotNil(t, s.LastError())
	assert.Equal(t, "22", s.LastError().Code)
	assert.Equal(t, 1, s.LastError().LineIndex)
}

func TestStreamer_OpenFailure(t *testing.T) {
	openErr := errors.New("no such port")
	rec := &recorder{}
	s := NewStreamer([]string{"G21"}, Config{
		Opener:    func(machine.PortConfig) (machine.Port, error) { return nil, openErr },
		Observers: []Observer{rec},
	})

	err := s.Start()
	require.Error(t, err)
	assert.True(t, errors.Is(err, openErr))

	var se *StreamError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, ConnectionError, se.Kind)
	assert.Equal(t, -1, se.LineIndex)
	assert.Equal(t, "PORT", se.Code)

	assert.True(t, s.Wait(waitTimeout))
	assert.Equal(t, Error, s.State())
	assert.Equal(t, se, s.LastError())
	assert.Empty(t, rec.of(SentEvent))
	assert.Equal(t, []State{Error}, rec.states())
}

func TestStreamer_PauseResume(t *testing.T) {
	p := newFakePort(nil)
	rec := &recorder{}
	s := NewStreamer([]string{"G1 X1", "G1 X2"}, testConfig(p, rec))

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return len(p.Written()) == 1 }, waitTimeout, time.Millisecond)

	require.NoError(t, s.Pause())
	assert.Equal(t, Paused, s.State())
	assert.Equal(t, []byte{CmdPause}, p.Realtime())
	assert.Equal(t, ErrNotSending, s.Pause())

	// acknowledgments are ignored while paused
	p.send("ok")
	require.Eventually(t, func() bool { return len(rec.of(ReceivedEvent)) == 1 }, waitTimeout, time.Millisecond)
	assert.Equal(t, 0, s.Cursor())
	assert.Equal(t, Paused, s.State())

	require.NoError(t, s.Resume())
	assert.Equal(t, Sending, s.State())
	assert.Equal(t, []byte{CmdPause, CmdResume}, p.Realtime())
	assert.Equal(t, []string{"G1 X1", "G1 X1"}, p.Written())
	assert.Equal(t, ErrNotPaused, s.Resume())

	p.send("ok")
	require.Eventually(t, func() bool { return len(p.Written()) == 3 }, waitTimeout, time.Millisecond)
	assert.Equal(t, "G1 X2", p.Written()[2])

	p.send("ok")
	assert.True(t, s.Wait(waitTimeout))
	assert.Equal(t, Done, s.State())
	assert.Equal(t, []State{Sending, Paused, Sending, Done}, rec.states())
}

func TestStreamer_OkAfterError(t *testing.T) {
	p := newFakePort(func(l string) []string {
		if l == "G1" {
			return []string{"error:9", "ok"}
		}
		return []string{"ok"}
	})
	rec := &recorder{}
	s := NewStreamer([]string{"G1", "G2"}, testConfig(p, rec))

	require.NoError(t, s.Start())
	assert.True(t, s.Wait(waitTimeout))

	assert.Equal(t, Error, s.State())
	assert.Equal(t, 0, s.Cursor())
	assert.Equal(t, []string{"G1"}, p.Written())
	assert.Empty(t, rec.of(ProgressEvent))
	assert.Equal(t, []State{Sending, Error}, rec.states())
}

func TestStreamer_Abort(t *testing.T) {
	p := newFakePort(nil)
	rec := &recorder{}
	s := NewStreamer([]string{"G1 X1", "G1 X2"}, testConfig(p, rec))

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return len(p.Written()) == 1 }, waitTimeout, time.Millisecond)

	require.NoError(t, s.Abort())
	assert.Equal(t, Idle, s.State())
	assert.True(t, s.Wait(waitTimeout))
	assert.Equal(t, []byte{CmdCancel}, p.Realtime())
	assert.Equal(t, 1, p.Closes())

	// nothing left to cancel
	require.NoError(t, s.Abort())
	assert.Equal(t, []byte{CmdCancel}, p.Realtime())
	assert.Equal(t, 1, p.Closes())

	assert.Equal(t, []string{"G1 X1"}, p.Written())
	assert.Nil(t, s.LastError())
	assert.Equal(t, []State{Sending, Idle}, rec.states())
}

func TestStreamer_AbortFromObserver(t *testing.T) {
	p := newFakePort(alwaysOK)
	var s *Streamer
	s = NewStreamer([]string{"G1", "G2", "G3"}, testConfig(p, ObserverFuncs{
		OnProgress: func(acked, total int) {
			if acked == 1 {
				s.Abort()
			}
		},
	}))

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return s.State() == Idle }, waitTimeout, time.Millisecond)
	assert.True(t, s.Wait(waitTimeout))
	assert.LessOrEqual(t, len(p.Written()), 3)
	assert.Equal(t, 1, p.Closes())
}

func TestStreamer_StartupNoise(t *testing.T) {
	p := newFakePort(alwaysOK)
	p.send("", "Grbl 1.1f ['$' for help]", "ok", "error:1")

	rec := &recorder{}
	cfg := testConfig(p, rec)
	cfg.StartupDrain = 100 * time.Millisecond
	s := NewStreamer([]string{"G21", "G90"}, cfg)

	require.NoError(t, s.Start())
	assert.True(t, s.Wait(waitTimeout))

	assert.Equal(t, Done, s.State())
	assert.Nil(t, s.LastError())
	assert.Equal(t, []string{"G21", "G90"}, p.Written())
	assert.Len(t, rec.of(ProgressEvent), 2)

	received := rec.of(ReceivedEvent)
	require.True(t, len(received) >= 3)
	assert.Equal(t, "Grbl 1.1f ['$' for help]", received[0].Line)
}

func TestStreamer_ReadFailure(t *testing.T) {
	readErr := errors.New("device unplugged")
	p := newFakePort(nil)
	s := NewStreamer([]string{"G1"}, testConfig(p))

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return len(p.Written()) == 1 }, waitTimeout, time.Millisecond)
	p.failReads(readErr)

	assert.True(t, s.Wait(waitTimeout))
	assert.Equal(t, Error, s.State())
	require.NotNil(t, s.LastError())
	assert.Equal(t, ConnectionError, s.LastError().Kind)
	assert.Equal(t, -1, s.LastError().LineIndex)
	assert.True(t, errors.Is(s.LastError(), readErr))
	assert.Equal(t, 1, p.Closes())
}

func TestStreamer_Busy(t *testing.T) {
	p := newFakePort(nil)
	s := NewStreamer([]string{"G1"}, testConfig(p))

	assert.Equal(t, ErrNotSending, s.Pause())
	assert.Equal(t, ErrNotPaused, s.Resume())

	require.NoError(t, s.Start())
	assert.Equal(t, ErrBusy, s.Start())
	assert.Equal(t, ErrBusy, s.Load([]string{"G2"}))

	require.NoError(t, s.Abort())
	assert.True(t, s.Wait(waitTimeout))
	require.NoError(t, s.Load([]string{"G2", "G3"}))
	assert.Equal(t, []string{"G2", "G3"}, s.Lines())
}

func TestStreamer_Restart(t *testing.T) {
	p1 := newFakePort(func(string) []string { return []string{"error:20"} })
	p2 := newFakePort(alwaysOK)
	ports := []*fakePort{p1, p2}
	cfg := testConfig(p1)
	cfg.Opener = func(machine.PortConfig) (machine.Port, error) {
		p := ports[0]
		ports = ports[1:]
		return p, nil
	}
	s := NewStreamer([]string{"G1", "G2"}, cfg)

	require.NoError(t, s.Start())
	assert.True(t, s.Wait(waitTimeout))
	assert.Equal(t, Error, s.State())

	require.NoError(t, s.Start())
	assert.True(t, s.Wait(waitTimeout))
	assert.Equal(t, Done, s.State())
	assert.Nil(t, s.LastError())
	assert.Equal(t, []string{"G1", "G2"}, p2.Written())
}

func TestStreamer_Order(t *testing.T) {
	var lines []string
	for i := 0; i < 200; i++ {
		lines = append(lines, "G1 X"+strconv.Itoa(i))
	}

	p := newFakePort(alwaysOK)
	cursorOK := true
	var s *Streamer
	s = NewStreamer(lines, testConfig(p, ObserverFuncs{
		OnProgress: func(acked, total int) {
			if acked > total || s.Cursor() > len(lines) {
				cursorOK = false
			}
		},
	}))

	require.NoError(t, s.Start())
	assert.True(t, s.Wait(waitTimeout))
	assert.Equal(t, Done, s.State())
	assert.Equal(t, lines, p.Written())
	assert.Equal(t, len(lines), s.Cursor())
	assert.True(t, cursorOK)
}

func TestStreamer_Status(t *testing.T) {
	p := newFakePort(func(string) []string {
		return []string{"<Run|MPos:1.000,2.000,3.000|FS:500,0|WCO:1.000,0.000,0.000>"}
	})
	s := NewStreamer([]string{"G1"}, testConfig(p))

	_, ok := s.Status()
	assert.False(t, ok)

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { _, ok := s.Status(); return ok }, waitTimeout, time.Millisecond)

	st, _ := s.Status()
	assert.Equal(t, "Run", st.State)
	assert.Equal(t, coord.Point{X: 0, Y: 2, Z: 3}, st.WPos)
	assert.Equal(t, 500.0, st.Feed)
	assert.Equal(t, Sending, s.State())

	require.NoError(t, s.Abort())
	assert.True(t, s.Wait(waitTimeout))
}

func TestEventChan(t *testing.T) {
	p := newFakePort(alwaysOK)
	ch := make(EventChan, 100)
	s := NewStreamer([]string{"G1"}, testConfig(p, ch))

	require.NoError(t, s.Start())
	assert.True(t, s.Wait(waitTimeout))
	close(ch)

	var types []EventType
	for e := range ch {
		types = append(types, e.Type)
	}
	assert.Equal(t, []EventType{StateEvent, SentEvent, ReceivedEvent, ProgressEvent, StateEvent}, types)
}

func TestWait_Timeout(t *testing.T) {
	p := newFakePort(nil)
	s := NewStreamer([]string{"G1"}, testConfig(p))
	require.NoError(t, s.Start())

	assert.False(t, s.Wait(20*time.Millisecond))

	require.NoError(t, s.Abort())
	assert.True(t, s.Wait(0))
}

func TestWait_BlockedObserver(t *testing.T) {
	p := newFakePort(alwaysOK)
	ch := make(EventChan)
	s := NewStreamer([]string{"G1"}, testConfig(p, ch))
	require.NoError(t, s.Start())

	res := make(chan bool, 1)
	go func() { res <- s.Wait(100 * time.Millisecond) }()
	select {
	case ok := <-res:
		assert.False(t, ok)
	case <-time.After(waitTimeout):
		t.Fatal("Wait ignored its timeout")
	}

	go func() {
		for range ch {
		}
	}()
	assert.True(t, s.Wait(waitTimeout))
	assert.Equal(t, Done, s.State())
	close(ch)
}
