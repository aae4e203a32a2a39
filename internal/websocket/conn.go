package websocket

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// The API is served with permissive CORS, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Conn is a server-side WebSocket connection. Writes are serialized, a ping
// is sent every pingInterval, and Close is safe to call multiple times.
type Conn struct {
	conn         *websocket.Conn
	pingInterval time.Duration
	log          *slog.Logger

	mu        sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// Upgrade upgrades an HTTP request to a WebSocket connection and starts the
// keepalive loop. A zero pingInterval disables pings.
func Upgrade(w http.ResponseWriter, r *http.Request, pingInterval time.Duration, log *slog.Logger) (*Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		conn:         ws,
		pingInterval: pingInterval,
		log:          log,
		done:         make(chan struct{}),
	}
	if pingInterval > 0 {
		go c.pingLoop()
	}
	return c, nil
}

// ReadMessage blocks until the next data frame arrives and returns its
// payload. Any error means the peer is gone or the connection was closed.
func (c *Conn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

// WriteText sends text as a single text frame.
func (c *Conn) WriteText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// Close sends a normal closure frame and closes the connection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		defer c.mu.Unlock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err = c.conn.Close()
	})
	return err
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				c.log.Debug("Ping failed", "error", err)
				return
			}
		}
	}
}
