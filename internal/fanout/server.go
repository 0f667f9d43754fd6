package fanout

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/charleschow/slope-limits/internal/events"
	"github.com/charleschow/slope-limits/internal/telemetry"
)

const (
	clientSendBuf = 256
	writeDeadline = 5 * time.Second
	pongWait      = 30 * time.Second
	pingInterval  = 20 * time.Second
)

// Forwarded lists the bus events sent to websocket clients.
var Forwarded = []events.EventType{
	events.EventPolicyChanged,
	events.EventLimitChanged,
	events.EventNetworkDiscovered,
	events.EventResolverBroken,
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

type watchClient struct {
	remote string
	types  map[events.EventType]bool // nil means every forwarded type
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
}

func (c *watchClient) wants(t events.EventType) bool {
	return c.types == nil || c.types[t]
}

// Server fans out bus events to connected WebSocket clients.
type Server struct {
	mu      sync.Mutex
	clients map[*watchClient]struct{}
}

func NewServer(bus *events.Bus) *Server {
	s := &Server{
		clients: make(map[*watchClient]struct{}),
	}
	bus.Subscribe(s.forward, Forwarded...)
	return s
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// forward is called on the publisher's goroutine. It serializes the event
// and enqueues it to matching clients' send channels (non-blocking).
func (s *Server) forward(evt events.Event) error {
	data, err := MarshalEvent(evt)
	if err != nil {
		telemetry.Warnf("fanout: marshal error: %v", err)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		if !c.wants(evt.Type) {
			continue
		}
		select {
		case c.send <- data:
		default:
			telemetry.Warnf("fanout: dropping %s for slow client %s", evt.Type, c.remote)
		}
	}
	return nil
}

// HandleWS is the HTTP handler for WebSocket upgrade requests.
// Clients may narrow the feed with ?types=policy_changed,limit_changed.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	types, err := parseTypes(r.URL.Query().Get("types"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		telemetry.Warnf("fanout: upgrade failed: %v", err)
		return
	}

	c := &watchClient{
		remote: r.RemoteAddr,
		types:  types,
		conn:   conn,
		send:   make(chan []byte, clientSendBuf),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	telemetry.Plainf("Fanout: Client Connected [%s]", c.remote)

	go s.writePump(c)
	go s.readPump(c)
}

type unknownTypeError string

func (e unknownTypeError) Error() string { return "unknown event type: " + string(e) }

func parseTypes(raw string) (map[events.EventType]bool, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	out := make(map[events.EventType]bool)
	for _, part := range strings.Split(raw, ",") {
		t := events.EventType(strings.TrimSpace(part))
		if t == "" {
			continue
		}
		known := false
		for _, f := range Forwarded {
			if f == t {
				known = true
				break
			}
		}
		if !known {
			return nil, unknownTypeError(t)
		}
		out[t] = true
	}
	return out, nil
}

// writePump drains the client's send channel and writes to the WS connection.
// It owns the client lifecycle: on exit it removes the client from the map
// (so forward never sends to a stale channel) and closes the connection.
func (s *Server) writePump(c *watchClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.removeClient(c)
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				telemetry.Warnf("fanout: write error client=%s: %v", c.remote, err)
				return
			}
		case <-c.done:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump keeps the connection alive by reading pongs / close frames.
// No upstream messages are expected from watchers.
// On exit it signals writePump via c.done (never closes c.send).
func (s *Server) readPump(c *watchClient) {
	defer close(c.done)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
	}
}

func (s *Server) removeClient(c *watchClient) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	telemetry.Plainf("Fanout: Client Disconnected [%s]", c.remote)
}
