package machine

import (
	"io"
	"time"

	"github.com/tarm/serial"
)

// settle is how long a freshly opened port is left alone. Many boards reset
// when the port opens.
const settle = 100 * time.Millisecond

type serialPort struct {
	*serial.Port
}

// OpenSerial opens a local serial device.
func OpenSerial(cfg PortConfig) (Port, error) {
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Name,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	time.Sleep(settle)
	return &serialPort{Port: p}, nil
}

func (p *serialPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && err == io.EOF {
		// tarm/serial reports an elapsed read timeout as EOF
		return 0, ErrReadTimeout
	}
	return n, err
}
