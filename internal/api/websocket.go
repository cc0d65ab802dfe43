package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"hordesim/internal/config"
	"hordesim/internal/geom"
	"hordesim/internal/sim"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}
		log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// wsClient tracks a WebSocket connection with its source IP.
type wsClient struct {
	conn *websocket.Conn
	ip   string
}

// WebSocketHub fans simulation snapshots out to connected viewers and
// accepts a small command set back from them.
type WebSocketHub struct {
	engine *sim.Engine

	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	mu         sync.RWMutex

	maxTotal  int
	wsLimiter *WSConnLimiter
}

// NewWebSocketHub creates a hub with connection limits from config.
func NewWebSocketHub(engine *sim.Engine, limits config.ResourceLimits) *WebSocketHub {
	return &WebSocketHub{
		engine:     engine,
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		maxTotal:   limits.MaxWSConnections,
		wsLimiter:  NewWSConnLimiter(limits.MaxWSPerIP),
	}
}

// Run processes register, unregister and broadcast events. Call it in its
// own goroutine.
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Viewer connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			if client, ok := h.clients[conn]; ok {
				h.wsLimiter.Release(client.ip)
				delete(h.clients, conn)
				conn.Close()
			}
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Viewer disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for conn, client := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.wsLimiter.Release(client.ip)
					delete(h.clients, conn)
					conn.Close()
				}
			}
			h.mu.Unlock()
			IncrementWSMessages()
		}
	}
}

// Broadcast queues a message for all connected clients. Drops the message
// when the queue is full rather than blocking the caller.
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	jsonBytes, err := json.Marshal(map[string]interface{}{
		"event": event,
		"data":  data,
	})
	if err != nil {
		return
	}

	select {
	case h.broadcast <- jsonBytes:
	default:
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop pushes the latest snapshot to viewers at the given
// interval, skipping pushes while nobody is connected or the simulation
// has not advanced.
func (h *WebSocketHub) StartBroadcastLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		var lastTick int64 = -1
		for range ticker.C {
			if h.ClientCount() == 0 {
				continue
			}

			snap := h.engine.Snapshot()
			if snap.Tick == lastTick {
				continue
			}
			lastTick = snap.Tick

			h.Broadcast("sim:state", snap)
		}
	}()
}

// wsCommand is the envelope viewers send back over the socket.
type wsCommand struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// HandleWebSocket upgrades the connection, registers it with the hub and
// reads viewer commands until the socket closes.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	h.mu.RLock()
	total := len(h.clients)
	h.mu.RUnlock()

	if total >= h.maxTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Acquire(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	h.register <- &wsClient{conn: conn, ip: ip}

	go func() {
		defer func() {
			h.unregister <- conn
		}()

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				break
			}

			var cmd wsCommand
			if err := json.Unmarshal(message, &cmd); err != nil {
				continue
			}
			h.handleCommand(ip, cmd)
		}
	}()
}

// handleCommand applies a viewer command. The set is deliberately small:
// viewers steer the shared target, everything else goes through REST.
func (h *WebSocketHub) handleCommand(ip string, cmd wsCommand) {
	switch cmd.Event {
	case "target":
		var t struct {
			X float64 `json:"x"`
			Z float64 `json:"z"`
		}
		if err := json.Unmarshal(cmd.Data, &t); err != nil {
			return
		}
		h.engine.UpdateTarget(geom.Vec3{X: t.X, Z: t.Z})
	default:
		log.Printf("📨 Unknown WebSocket command from %s: %q", ip, cmd.Event)
	}
}
