package machine

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mastercactapus/svgrbl/spjs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spjsServer(t *testing.T, received chan<- string) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ws, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			msg := string(data)
			if msg == "list" {
				continue
			}
			received <- msg
			if strings.HasPrefix(msg, "open ") {
				ws.WriteMessage(websocket.TextMessage, []byte(`{"P":"other","D":"ignored\n"}`))
				ws.WriteMessage(websocket.TextMessage, []byte(`{"P":"ttyS0","D":"Grbl 1.1f\r\n"}`))
			}
		}
	}))
}

func next(t *testing.T, ch <-chan string) string {
	select {
	case s := <-ch:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for server")
	}
	return ""
}

func TestSPJSOpener(t *testing.T) {
	received := make(chan string, 10)
	srv := spjsServer(t, received)
	defer srv.Close()

	sp := spjs.NewSPJS("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	defer sp.Close()

	p, err := SPJSOpener(sp)(PortConfig{Name: "ttyS0", Baud: 115200, ReadTimeout: 2 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "open ttyS0 115200 default", next(t, received))

	buf := make([]byte, 4)
	n, err := p.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "Grbl", string(buf[:n]))
	n, err = p.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, " 1.1", string(buf[:n]))
	n, err = p.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "f\r\n", string(buf[:n]))

	_, err = p.Write([]byte("G0 X1\n"))
	require.NoError(t, err)
	assert.Contains(t, next(t, received), `"D":"G0 X1\n"`)

	_, err = p.Write([]byte{'!'})
	require.NoError(t, err)
	assert.Equal(t, "sendnobuf ttyS0 !", next(t, received))

	require.NoError(t, p.Close())
	assert.Equal(t, "close ttyS0", next(t, received))
	require.NoError(t, p.Close())

	_, err = p.Read(buf)
	assert.Equal(t, io.ErrClosedPipe, err)
	_, err = p.Write([]byte("G0\n"))
	assert.Equal(t, io.ErrClosedPipe, err)
}

func TestSPJSOpener_ReadTimeout(t *testing.T) {
	received := make(chan string, 10)
	srv := spjsServer(t, received)
	defer srv.Close()

	sp := spjs.NewSPJS("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	defer sp.Close()

	p, err := SPJSOpener(sp)(PortConfig{Name: "ttyS1", Baud: 9600, ReadTimeout: 50 * time.Millisecond})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Read(make([]byte, 10))
	assert.Equal(t, ErrReadTimeout, err)
}

func TestOpenSerial_Missing(t *testing.T) {
	_, err := OpenSerial(PortConfig{Name: "/dev/svgrbl-does-not-exist", Baud: 115200})
	assert.Error(t, err)
}
