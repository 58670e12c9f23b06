package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"fraud-monitor/internal/session"
)

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 10
	clientQueue    = 64
)

// Message types sent to websocket clients.
const (
	MessageInitial = "INITIAL"
	MessageUpdate  = "UPDATE"
)

// Message is the websocket payload: the full frame, tagged with how it was sent.
type Message struct {
	Type  string        `json:"type"`
	Frame session.Frame `json:"frame"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	server *Server
	conn   *websocket.Conn
	send   chan Message

	// lastSeq is the newest frame sequence already sent; owned by the hub goroutine.
	lastSeq uint64
}

// runHub owns the client set. Slow clients are dropped rather than blocking the fan-out.
// A client never receives a frame older than one it has already seen: queued
// broadcasts that predate its INITIAL frame are skipped.
func (s *Server) runHub(ctx context.Context) {
	defer close(s.hubDone)
	for {
		select {
		case <-ctx.Done():
			for c := range s.clients {
				delete(s.clients, c)
				close(c.send)
			}
			return

		case c := <-s.register:
			s.clients[c] = struct{}{}
			if frame, ok := s.latest.Frame(); ok {
				c.lastSeq = frame.Seq
				c.send <- Message{Type: MessageInitial, Frame: frame}
			}
			s.logger.Debug().Int("clients", len(s.clients)).Msg("websocket client registered")

		case c := <-s.unregister:
			if _, ok := s.clients[c]; ok {
				delete(s.clients, c)
				close(c.send)
			}

		case frame := <-s.broadcast:
			msg := Message{Type: MessageUpdate, Frame: frame}
			for c := range s.clients {
				if frame.Seq <= c.lastSeq {
					continue
				}
				select {
				case c.send <- msg:
					c.lastSeq = frame.Seq
				default:
					delete(s.clients, c)
					close(c.send)
					s.logger.Warn().Msg("websocket client too slow; disconnected")
				}
			}
		}
	}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	cl := &client{
		server: s,
		conn:   conn,
		send:   make(chan Message, clientQueue),
	}

	select {
	case s.register <- cl:
	case <-s.hubDone:
		_ = conn.Close()
		return
	}

	go cl.writePump()
	go cl.readPump()
}

// readPump only watches the connection; clients never send commands.
func (c *client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.hubDone:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.server.logger.Debug().Err(err).Msg("websocket write error")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
