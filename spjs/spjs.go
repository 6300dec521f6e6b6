// Package spjs is a client for serial-port-json-server, a websocket bridge to
// serial ports on another host.
package spjs

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/ioutil"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned when sending on a closed client.
var ErrClosed = errors.New("spjs: client closed")

type SPJS struct {
	url string
	log *log.Logger

	mx          sync.RWMutex
	serialPorts []SerialPort

	outgoing chan message
	incoming chan interface{}

	closeCh   chan struct{}
	closeOnce sync.Once
}

type message struct {
	done    chan struct{}
	payload []byte
}

type DataFrame struct {
	Port string `json:"P"`
	Data string `json:"D"`
}
type CmdStatus struct {
	Cmd        string
	QueueCount int    `json:"QCnt"`
	Port       string `json:"P"`
	ID         string `json:"Id"`
}

type ErrorMessage struct {
	Error string
}
type SerialPortList struct {
	SerialPorts []SerialPort
}
type SerialPort struct {
	Name                      string
	Friendly                  string
	SerialNumber              string
	DeviceClass               string
	IsOpen                    bool
	IsPrimary                 bool
	RelatedNames              []string
	Baud                      int
	BufferAlgorithm           string
	AvailableBufferAlgorithms []string
	Ver                       float64
	USBVID                    string
	USBPID                    string
	FeedRateOverride          float64
}

// NewSPJS starts a client for the server at url. It connects in the
// background and reconnects until closed. A nil logger discards output.
func NewSPJS(url string, logger *log.Logger) *SPJS {
	if logger == nil {
		logger = log.New(ioutil.Discard, "", 0)
	}
	sp := &SPJS{
		url:      url,
		log:      logger,
		outgoing: make(chan message, 1000),
		incoming: make(chan interface{}, 1000),
		closeCh:  make(chan struct{}),
	}

	go sp.loop()

	return sp
}

// Messages returns decoded server messages: *DataFrame, *CmdStatus,
// *SerialPortList or *ErrorMessage.
func (sp *SPJS) Messages() <-chan interface{} {
	return sp.incoming
}

// Ports returns the most recent serial port list sent by the server.
func (sp *SPJS) Ports() []SerialPort {
	sp.mx.RLock()
	defer sp.mx.RUnlock()
	return sp.serialPorts
}

// Close disconnects and stops reconnecting.
func (sp *SPJS) Close() error {
	sp.closeOnce.Do(func() { close(sp.closeCh) })
	return nil
}

func parseSPJSMessage(data []byte, msg map[string]json.RawMessage) (val interface{}, err error) {
	check := func(fieldName string, v interface{}) bool {
		if msg[fieldName] == nil {
			return false
		}
		val = v
		err = json.Unmarshal(data, val)
		return true
	}
	if check("Error", &ErrorMessage{}) {
		return
	}
	if check("SerialPorts", &SerialPortList{}) {
		return
	}
	if check("Cmd", &CmdStatus{}) {
		return
	}
	if check("D", &DataFrame{}) {
		return
	}

	return nil, errors.New("unknown message: " + string(data))
}

func (sp *SPJS) readLoop(ws *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			sp.log.Println("ERROR: read:", err)
			return
		}
		if !bytes.HasPrefix(data, []byte("{")) {
			// ignore echo messages
			continue
		}
		var msg map[string]json.RawMessage
		err = json.Unmarshal(data, &msg)
		if err != nil {
			sp.log.Println("ERROR: read:", err)
			continue
		}
		val, err := parseSPJSMessage(data, msg)
		if err != nil {
			sp.log.Println("ERROR: parse:", err)
			continue
		}
		if list, ok := val.(*SerialPortList); ok {
			sp.mx.Lock()
			sp.serialPorts = list.SerialPorts
			sp.mx.Unlock()
		}
		select {
		case sp.incoming <- val:
		case <-sp.closeCh:
			return
		}
	}
}

func (sp *SPJS) loop() {
	var nextUp message

reconnect:
	for {
		select {
		case <-sp.closeCh:
			return
		default:
		}

		sp.log.Println("Connecting to", sp.url)
		ws, _, err := websocket.DefaultDialer.Dial(sp.url, nil)
		if err != nil {
			sp.log.Println("ERROR: connect:", err)
			select {
			case <-time.After(3 * time.Second):
			case <-sp.closeCh:
				return
			}
			continue
		}
		sp.log.Println("Connected.")
		ch := make(chan struct{})
		go sp.readLoop(ws, ch)
		go sp.WriteString("list") // refresh list on reconnect

		for {
			if nextUp.done != nil {
				err = ws.WriteMessage(websocket.TextMessage, nextUp.payload)
				if err != nil {
					sp.log.Println("ERROR: send:", err)
					ws.Close()
					continue reconnect
				}
				close(nextUp.done)
				nextUp.done = nil
			}

			select {
			case <-ch:
				ws.Close()
				continue reconnect
			case <-sp.closeCh:
				ws.Close()
				return
			case nextUp = <-sp.outgoing:
			}
		}
	}
}

type JSON struct {
	Port string `json:"P"`
	Data []Data
}
type Data struct {
	Data string `json:"D"`
	ID   string `json:"Id"`
}

var lastID int64

// NextID returns a unique command id for Data.ID.
func NextID() string {
	id := atomic.AddInt64(&lastID, 1)
	return "cmd_" + strconv.FormatInt(id, 36)
}

func (sp *SPJS) SendJSON(v JSON) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return sp.send(append([]byte("sendjson "), data...))
}

// WriteString sends a raw server command such as "list" or "open ...".
func (sp *SPJS) WriteString(data string) error {
	return sp.send([]byte(data))
}

func (sp *SPJS) send(payload []byte) error {
	ch := make(chan struct{})
	select {
	case sp.outgoing <- message{done: ch, payload: payload}:
	case <-sp.closeCh:
		return ErrClosed
	}
	select {
	case <-ch:
		return nil
	case <-sp.closeCh:
		return ErrClosed
	}
}
