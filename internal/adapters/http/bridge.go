package http

import (
	"net"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	dialTimeout  = 5 * time.Second
	writeTimeout = 5 * time.Second
	bufferSize   = 32 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  bufferSize,
	WriteBufferSize: bufferSize,
	CheckOrigin:     func(r *nethttp.Request) bool { return true },
}

// Bridge forwards bytes between a WebSocket and a fresh TCP connection to
// Target. It knows nothing about the command protocol.
type Bridge struct {
	Target string
	dialer net.Dialer
}

func NewBridge(target string) *Bridge {
	return &Bridge{Target: target, dialer: net.Dialer{Timeout: dialTimeout}}
}

func (b *Bridge) Handle(c *gin.Context) {
	token := c.GetString(clientTokenKey)
	ws, err := upgrader.Upgrade(c.Writer, c.Request, c.Writer.Header())
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.bridge").Str("client", token).Msg("ws upgrade")
		return
	}

	tcp, err := b.dialer.DialContext(c.Request.Context(), "tcp", b.Target)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.bridge").Str("client", token).Msg("dial tcp")
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "upstream unavailable")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
		_ = ws.Close()
		return
	}
	log.Info().Str("module", "adapters.bridge").Str("client", token).Str("remote", c.ClientIP()).Msg("bridge opened")

	var once sync.Once
	closeBoth := func() {
		once.Do(func() {
			_ = tcp.Close()
			_ = ws.Close()
		})
	}

	go func() {
		defer closeBoth()
		upstream(ws, tcp)
	}()
	downstream(tcp, ws)
	closeBoth()
	log.Info().Str("module", "adapters.bridge").Str("client", token).Msg("bridge closed")
}

// downstream copies TCP bytes into binary WebSocket messages.
func downstream(tcp net.Conn, ws *websocket.Conn) {
	buf := make([]byte, bufferSize)
	for {
		n, err := tcp.Read(buf)
		if n > 0 {
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if werr := ws.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
			return
		}
	}
}

// upstream copies every WebSocket message, text or binary, to TCP.
func upstream(ws *websocket.Conn, tcp net.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if _, err := tcp.Write(data); err != nil {
			return
		}
	}
}
