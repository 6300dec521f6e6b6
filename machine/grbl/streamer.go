package grbl

import (
	"bytes"
	"io"
	"io/ioutil"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mastercactapus/svgrbl/machine"
)

// Config configures a Streamer.
type Config struct {
	Port string
	// Baud defaults to 115200.
	Baud int
	// ReadTimeout bounds each read from the port, defaults to 1s.
	ReadTimeout time.Duration
	// StartupDrain is how long to discard controller output after opening
	// the port, before the first line is sent. Zero sends immediately.
	StartupDrain time.Duration

	// Opener defaults to machine.OpenSerial.
	Opener machine.Opener
	// Logger defaults to discarding everything.
	Logger *log.Logger

	Observers []Observer
}

// DefaultConfig returns a config for a local serial port.
func DefaultConfig(port string) Config {
	return Config{
		Port:         port,
		Baud:         115200,
		ReadTimeout:  time.Second,
		StartupDrain: time.Second,
		Opener:       machine.OpenSerial,
	}
}

// A Streamer sends program lines to a controller one at a time, waiting for
// each to be acknowledged before sending the next.
type Streamer struct {
	cfg    Config
	log    *log.Logger
	events *dispatcher

	mx      sync.Mutex
	state   State
	lines   []string
	cursor  int
	lastErr *StreamError
	status  *Status
	sess    *session
}

// session is one open port and the goroutine reading from it.
type session struct {
	port machine.Port

	stop   atomic.Bool
	closed atomic.Bool
	// started is set once the startup drain is over and the first line may
	// be sent. Guarded by Streamer.mx.
	started bool

	done      chan struct{}
	closeOnce sync.Once
}

func (sess *session) close(l *log.Logger) {
	sess.closeOnce.Do(func() {
		sess.closed.Store(true)
		l.Println("Closing serial port.")
		err := sess.port.Close()
		if err != nil {
			l.Println("ERROR: close port:", err)
		}
	})
}

// NewStreamer creates an idle streamer for lines. Lines are cleaned with
// CleanLines.
func NewStreamer(lines []string, cfg Config) *Streamer {
	if cfg.Baud == 0 {
		cfg.Baud = 115200
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = time.Second
	}
	if cfg.Opener == nil {
		cfg.Opener = machine.OpenSerial
	}
	l := cfg.Logger
	if l == nil {
		l = log.New(ioutil.Discard, "", 0)
	}

	return &Streamer{
		cfg:    cfg,
		log:    l,
		events: newDispatcher(cfg.Observers),
		lines:  CleanLines(lines),
	}
}

// Load replaces the job. It fails with ErrBusy while a session is active.
func (s *Streamer) Load(lines []string) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.state.Active() {
		return ErrBusy
	}
	s.lines = CleanLines(lines)
	s.cursor = 0
	return nil
}

// Lines returns the cleaned lines the cursor indexes into.
func (s *Streamer) Lines() []string {
	s.mx.Lock()
	defer s.mx.Unlock()
	return append([]string(nil), s.lines...)
}

func (s *Streamer) State() State {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.state
}

// Cursor returns the index of the line waiting for acknowledgment, which is
// also the number of lines acknowledged so far.
func (s *Streamer) Cursor() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.cursor
}

// LastError returns the error that ended the last session, if any.
func (s *Streamer) LastError() *StreamError {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.lastErr
}

// Status returns the last status report received from the controller.
func (s *Streamer) Status() (Status, bool) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.status == nil {
		return Status{}, false
	}
	return *s.status, true
}

// Start opens the port and begins sending from the first line. A job with no
// lines goes straight to Done without touching the port. If the port cannot
// be opened the streamer enters Error and the returned error is a
// *StreamError.
func (s *Streamer) Start() error {
	s.mx.Lock()
	defer s.mx.Unlock()

	if s.state.Active() {
		return ErrBusy
	}
	s.cursor = 0
	s.lastErr = nil

	if len(s.lines) == 0 {
		s.log.Println("No lines to send.")
		s.setState(Done)
		return nil
	}

	s.log.Printf("Opening serial port %s @ %d...", s.cfg.Port, s.cfg.Baud)
	port, err := s.cfg.Opener(machine.PortConfig{
		Name:        s.cfg.Port,
		Baud:        s.cfg.Baud,
		ReadTimeout: s.cfg.ReadTimeout,
	})
	if err != nil {
		s.log.Printf("ERROR: open port %s: %v", s.cfg.Port, err)
		return s.fail(&StreamError{Kind: ConnectionError, LineIndex: -1, Code: "PORT", Err: err})
	}

	sess := &session{port: port, done: make(chan struct{})}
	s.sess = sess
	s.setState(Sending)
	go s.run(sess)

	return nil
}

// Pause sends a feed hold. The line in flight is resent on Resume.
func (s *Streamer) Pause() error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.state != Sending {
		return ErrNotSending
	}
	err := s.realtime(CmdPause)
	if err != nil {
		return err
	}
	s.setState(Paused)
	return nil
}

// Resume releases a feed hold and resends the current line.
func (s *Streamer) Resume() error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.state != Paused {
		return ErrNotPaused
	}
	err := s.realtime(CmdResume)
	if err != nil {
		return err
	}
	s.setState(Sending)
	if s.sess.started && s.cursor < len(s.lines) {
		return s.sendCurrent()
	}
	return nil
}

// Abort sends a soft reset, ends the session and closes the port. It works in
// any state and always leaves the streamer Idle.
func (s *Streamer) Abort() error {
	s.mx.Lock()
	sess := s.sess
	var err error
	if sess != nil && !sess.closed.Load() {
		_, err = sess.port.Write([]byte{CmdCancel})
		if err != nil {
			s.log.Println("ERROR: write cancel:", err)
		}
	}
	if sess != nil {
		sess.stop.Store(true)
	}
	s.setState(Idle)
	s.mx.Unlock()

	if sess != nil {
		sess.close(s.log)
	}
	return err
}

// Wait blocks until the session goroutine has exited and every event has been
// delivered. A timeout <= 0 waits forever. It reports false if the timeout
// elapsed first.
func (s *Streamer) Wait(timeout time.Duration) bool {
	s.mx.Lock()
	sess := s.sess
	s.mx.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	if sess != nil {
		select {
		case <-sess.done:
		case <-expired:
			return false
		}
	}

	return s.events.flush(expired)
}

// setState must be called with s.mx held.
func (s *Streamer) setState(st State) {
	if s.state == st {
		return
	}
	s.state = st
	s.events.push(func(o Observer) { o.StateChanged(st) })
}

// fail records err, enters Error and stops the current session. It must be
// called with s.mx held.
func (s *Streamer) fail(err *StreamError) error {
	s.lastErr = err
	s.setState(Error)
	if s.sess != nil {
		s.sess.stop.Store(true)
	}
	s.events.push(func(o Observer) { o.Error(err) })
	return err
}

func (s *Streamer) connErr(err error) error {
	return s.fail(&StreamError{Kind: ConnectionError, LineIndex: -1, Code: "PORT", Err: err})
}

// realtime must be called with s.mx held.
func (s *Streamer) realtime(b byte) error {
	_, err := s.sess.port.Write([]byte{b})
	if err != nil {
		s.log.Println("ERROR: write:", err)
		return s.connErr(err)
	}
	return nil
}

// sendCurrent writes the line under the cursor. It must be called with s.mx
// held.
func (s *Streamer) sendCurrent() error {
	idx := s.cursor
	line := s.lines[idx]
	s.log.Printf("SEND[%d/%d]: %s", idx+1, len(s.lines), line)
	_, err := s.sess.port.Write([]byte(asciiLine(line) + "\n"))
	if err != nil {
		s.log.Println("ERROR: write:", err)
		return s.connErr(err)
	}
	s.events.push(func(o Observer) { o.LineSent(idx, line) })
	return nil
}

func (s *Streamer) run(sess *session) {
	defer close(sess.done)
	defer sess.close(s.log)

	s.log.Println("I/O loop started.")
	defer s.log.Println("I/O loop terminated.")

	lr := &lineReader{r: sess.port}

	deadline := time.Now().Add(s.cfg.StartupDrain)
	for time.Now().Before(deadline) && !sess.stop.Load() {
		line, err := lr.readLine()
		if err == machine.ErrReadTimeout {
			continue
		}
		if err != nil {
			s.readErr(sess, err)
			return
		}
		if line == "" {
			continue
		}
		s.log.Println("STARTUP:", line)
		s.events.push(func(o Observer) { o.LineReceived(line) })
	}

	s.mx.Lock()
	if s.sess != sess || sess.stop.Load() {
		s.mx.Unlock()
		return
	}
	sess.started = true
	if s.state == Sending {
		s.sendCurrent()
	}
	s.mx.Unlock()

	for !sess.stop.Load() {
		line, err := lr.readLine()
		if err == machine.ErrReadTimeout {
			continue
		}
		if err != nil {
			s.readErr(sess, err)
			return
		}
		if line == "" {
			continue
		}
		s.handle(sess, line)
	}
}

func (s *Streamer) readErr(sess *session, err error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.sess != sess || sess.stop.Load() {
		// closed by Abort
		return
	}
	s.log.Println("ERROR: read:", err)
	s.connErr(err)
}

func (s *Streamer) handle(sess *session, line string) {
	s.log.Println("RECV:", line)
	resp := ParseResponse(line)

	s.mx.Lock()
	defer s.mx.Unlock()
	// queued under the lock so observers see the line before anything else
	// can change state
	s.events.push(func(o Observer) { o.LineReceived(line) })
	if s.sess != sess || sess.stop.Load() {
		return
	}

	switch resp.Kind {
	case Ack:
		if s.state != Sending {
			return
		}
		s.cursor++
		acked, total := s.cursor, len(s.lines)
		s.events.push(func(o Observer) { o.Progress(acked, total) })
		if s.cursor >= len(s.lines) {
			s.log.Println("All lines acknowledged. Job DONE.")
			s.setState(Done)
			sess.stop.Store(true)
			return
		}
		s.sendCurrent()
	case Reject:
		s.log.Println("Controller reported error:", resp.Code)
		e := &StreamError{Kind: ControllerError, LineIndex: s.cursor, Code: resp.Code, Raw: resp.Raw}
		if s.cursor >= 0 && s.cursor < len(s.lines) {
			e.Line = s.lines[s.cursor]
		}
		s.fail(e)
	default:
		if !isStatus(line) {
			return
		}
		var last Status
		if s.status != nil {
			last = *s.status
		}
		stat, err := parseStatus(last, line)
		if err != nil {
			s.log.Println("ERROR: parse status:", err)
			return
		}
		s.status = stat
	}
}

// lineReader splits port input into lines. Partial lines survive read
// timeouts.
type lineReader struct {
	r     io.Reader
	buf   []byte
	chunk [256]byte
}

func (lr *lineReader) readLine() (string, error) {
	for {
		if i := bytes.IndexByte(lr.buf, '\n'); i >= 0 {
			line := strings.Trim(string(lr.buf[:i]), "\r")
			lr.buf = lr.buf[i+1:]
			return line, nil
		}
		n, err := lr.r.Read(lr.chunk[:])
		lr.buf = append(lr.buf, lr.chunk[:n]...)
		if err != nil {
			return "", err
		}
		if n == 0 {
			return "", machine.ErrReadTimeout
		}
	}
}
