package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"idle-lite/apps/server/internal/codec"
	"idle-lite/apps/server/internal/game"
)

const (
	sendBuffer   = 64
	readLimit    = 4096
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StateSource is satisfied by *game.Service. fn runs under the same lock
// that orders publishes.
type StateSource interface {
	ObserveState(ctx context.Context, fn func(*game.GameState)) error
}

type frame struct {
	messageType int
	data        []byte
}

// Connection represents one feed subscriber.
type Connection struct {
	ID     string
	Conn   *websocket.Conn
	Format codec.Format
	Send   chan frame
	Feed   *Feed
}

// Feed pushes every new game state to all connected clients.
type Feed struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	nextConnID  uint64
	seq         atomic.Uint64
	source      StateSource
}

func New() *Feed {
	return &Feed{connections: make(map[string]*Connection)}
}

// SetSource wires the state provider. The game service needs the feed's
// Publish at construction, so the two are connected after the fact.
func (f *Feed) SetSource(src StateSource) {
	f.mu.Lock()
	f.source = src
	f.mu.Unlock()
}

// Count reports the number of live connections.
func (f *Feed) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.connections)
}

// HandleWebSocket upgrades the request and sends the current state first.
func (f *Feed) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	f.mu.RLock()
	src := f.source
	f.mu.RUnlock()
	if src == nil {
		http.Error(w, "state feed not ready", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade error: %v", err)
		return
	}

	c := &Connection{
		Conn:   conn,
		Format: codec.ParseFormat(r.URL.Query().Get("format")),
		Send:   make(chan frame, sendBuffer),
		Feed:   f,
	}
	err = src.ObserveState(r.Context(), func(state *game.GameState) {
		f.mu.Lock()
		f.nextConnID++
		c.ID = fmt.Sprintf("conn_%d", f.nextConnID)
		f.connections[c.ID] = c
		f.mu.Unlock()
		c.enqueue(codec.TypeState, state)
	})
	if err != nil {
		log.Printf("[Gateway] Initial state failed: %v", err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "state unavailable"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	log.Printf("[Gateway] Client connected: %s (format=%s), total: %d", c.ID, c.Format, f.Count())

	go c.readPump(src)
	go c.writePump()
}

// Publish broadcasts state to every connection without blocking. A client
// whose buffer is full is disconnected.
func (f *Feed) Publish(state *game.GameState) {
	seq := f.seq.Add(1)
	env := codec.WrapServerEnvelope(codec.TypeState, seq, state)
	encoded := make(map[codec.Format][]byte, 2)

	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, c := range f.connections {
		data, ok := encoded[c.Format]
		if !ok {
			var err error
			data, err = codec.Marshal(c.Format, env)
			if err != nil {
				log.Printf("[Gateway] Encode %s state failed: %v", c.Format, err)
				continue
			}
			encoded[c.Format] = data
		}
		select {
		case c.Send <- frame{messageType: messageType(c.Format), data: data}:
		default:
			log.Printf("[Gateway] Dropping slow client %s", c.ID)
			c.Conn.Close()
		}
	}
}

func messageType(format codec.Format) int {
	if format == codec.FormatProto {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// enqueue encodes one frame for this connection; it never blocks.
func (c *Connection) enqueue(kind string, payload any) {
	env := codec.WrapServerEnvelope(kind, c.Feed.seq.Add(1), payload)
	c.send(env)
}

func (c *Connection) sendError(code int32, msg string) {
	c.send(codec.ErrorEnvelope(c.Feed.seq.Add(1), code, msg))
}

func (c *Connection) send(env codec.Envelope) {
	data, err := codec.Marshal(c.Format, env)
	if err != nil {
		log.Printf("[Gateway] Encode frame for %s failed: %v", c.ID, err)
		return
	}
	select {
	case c.Send <- frame{messageType: messageType(c.Format), data: data}:
	default:
		log.Printf("[Gateway] Send buffer full for %s", c.ID)
	}
}

func (c *Connection) readPump(src StateSource) {
	defer func() {
		c.Feed.removeConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(readLimit)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] Read error: %v", err)
			}
			return
		}
		c.handleMessage(src, message)
	}
}

func (c *Connection) handleMessage(src StateSource, data []byte) {
	msg, err := codec.UnmarshalClient(c.Format, data)
	if err != nil {
		c.sendError(1, "invalid message format")
		return
	}
	switch msg.Type {
	case codec.TypeRefresh:
		err := src.ObserveState(context.Background(), func(state *game.GameState) {
			c.enqueue(codec.TypeState, state)
		})
		if err != nil {
			log.Printf("[Gateway] Refresh for %s failed: %v", c.ID, err)
			c.sendError(2, "state unavailable")
		}
	default:
		c.sendError(3, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(msg.messageType, msg.data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// removeConnection closes Send under the write lock; Publish only sends
// under the read lock, so it never sends on a closed channel.
func (f *Feed) removeConnection(c *Connection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.connections[c.ID]; !ok {
		return
	}
	delete(f.connections, c.ID)
	close(c.Send)
	log.Printf("[Gateway] Client disconnected: %s, total: %d", c.ID, len(f.connections))
}
