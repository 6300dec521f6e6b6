package machine

import (
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/mastercactapus/svgrbl/spjs"
)

type spjsPort struct {
	sp      *spjs.SPJS
	name    string
	timeout time.Duration

	data chan []byte
	buf  []byte

	closeCh   chan struct{}
	closeOnce sync.Once
}

// SPJSOpener returns an Opener that tunnels ports through a
// serial-port-json-server. Only one port should be open per client at a time
// since the port consumes all of the client's messages.
func SPJSOpener(sp *spjs.SPJS) Opener {
	return func(cfg PortConfig) (Port, error) {
		err := sp.WriteString("open " + cfg.Name + " " + strconv.Itoa(cfg.Baud) + " default")
		if err != nil {
			return nil, err
		}
		p := &spjsPort{
			sp:      sp,
			name:    cfg.Name,
			timeout: cfg.ReadTimeout,
			data:    make(chan []byte, 100),
			closeCh: make(chan struct{}),
		}
		go p.pump()
		return p, nil
	}
}

func (p *spjsPort) pump() {
	for {
		select {
		case <-p.closeCh:
			return
		case msg := <-p.sp.Messages():
			df, ok := msg.(*spjs.DataFrame)
			if !ok || df.Port != p.name {
				continue
			}
			select {
			case p.data <- []byte(df.Data):
			case <-p.closeCh:
				return
			}
		}
	}
}

func (p *spjsPort) Read(b []byte) (int, error) {
	if len(p.buf) == 0 {
		var timeout <-chan time.Time
		if p.timeout > 0 {
			t := time.NewTimer(p.timeout)
			defer t.Stop()
			timeout = t.C
		}
		select {
		case <-p.closeCh:
			return 0, io.ErrClosedPipe
		case <-timeout:
			return 0, ErrReadTimeout
		case p.buf = <-p.data:
		}
	}

	n := copy(b, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

func (p *spjsPort) Write(b []byte) (int, error) {
	select {
	case <-p.closeCh:
		return 0, io.ErrClosedPipe
	default:
	}

	var err error
	if len(b) == 1 {
		// realtime bytes skip the server side queue
		err = p.sp.WriteString("sendnobuf " + p.name + " " + string(b))
	} else {
		err = p.sp.SendJSON(spjs.JSON{
			Port: p.name,
			Data: []spjs.Data{{Data: string(b), ID: spjs.NextID()}},
		})
	}
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

func (p *spjsPort) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closeCh)
		err = p.sp.WriteString("close " + p.name)
	})
	return err
}
