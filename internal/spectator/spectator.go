// Package spectator serves the live game to browsers: every tick's frame
// over a WebSocket, plus JSON metrics and a health check.
package spectator

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tomz197/spacewars/internal/logging"
	"github.com/tomz197/spacewars/internal/loop/server"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	viewerQueue  = 16
)

// Source is what the hub reads the game from.
type Source interface {
	Snapshot() *server.Snapshot
	Metrics() *server.Metrics
}

// Hub fans frames out to every connected viewer.
type Hub struct {
	src      Source
	log      *zap.SugaredLogger
	interval time.Duration
	upgrader websocket.Upgrader

	mu      sync.Mutex
	viewers map[*viewer]struct{}
}

// New creates a hub that polls src every interval.
func New(src Source, interval time.Duration, log *zap.SugaredLogger) *Hub {
	return &Hub{
		src:      src,
		log:      logging.OrNop(log),
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		viewers: make(map[*viewer]struct{}),
	}
}

// Handler routes /ws, /metrics, /healthz and the viewer page.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	mux.HandleFunc("/metrics", h.handleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexHTML))
	})
	return mux
}

// Viewers returns the number of connected viewers.
func (h *Hub) Viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}

// Run broadcasts each new snapshot until ctx is cancelled, then
// disconnects every viewer.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last uint
	sent := false
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
		}
		snap := h.src.Snapshot()
		if snap == nil || (sent && snap.Tick == last) {
			continue
		}
		last, sent = snap.Tick, true
		h.broadcast([]byte(snap.Frame))
	}
}

func (h *Hub) broadcast(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for v := range h.viewers {
		v.enqueue(frame)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	viewers := h.viewers
	h.viewers = make(map[*viewer]struct{})
	h.mu.Unlock()
	for v := range viewers {
		v.close()
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	v := &viewer{conn: conn, send: make(chan []byte, viewerQueue), done: make(chan struct{})}

	h.mu.Lock()
	h.viewers[v] = struct{}{}
	h.mu.Unlock()
	h.log.Infow("viewer connected", "remote", r.RemoteAddr)

	go v.writePump()
	v.readPump()

	h.mu.Lock()
	delete(h.viewers, v)
	h.mu.Unlock()
	v.close()
	h.log.Infow("viewer disconnected", "remote", r.RemoteAddr)
}

type metricsResponse struct {
	Tick        uint                   `json:"tick"`
	Connections int                    `json:"connections"`
	Ships       int                    `json:"ships"`
	Projectiles int                    `json:"projectiles"`
	Stars       int                    `json:"stars"`
	Viewers     int                    `json:"viewers"`
	TopScores   []topScore             `json:"top_scores"`
	Metrics     server.MetricsSnapshot `json:"metrics"`
}

type topScore struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func (h *Hub) handleMetrics(w http.ResponseWriter, r *http.Request) {
	resp := metricsResponse{
		Viewers:   h.Viewers(),
		TopScores: []topScore{},
		Metrics:   h.src.Metrics().Snapshot(),
	}
	if snap := h.src.Snapshot(); snap != nil {
		resp.Tick = snap.Tick
		resp.Connections = snap.Connections
		resp.Ships = len(snap.Ships)
		resp.Projectiles = snap.Projectiles
		resp.Stars = snap.Stars
		for _, e := range snap.TopScores {
			resp.TopScores = append(resp.TopScores, topScore{Name: e.Name, Score: e.Score})
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// viewer is one browser connection. Frames are dropped rather than queued
// without bound when the browser falls behind.
type viewer struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (v *viewer) enqueue(frame []byte) {
	select {
	case v.send <- frame:
	default:
	}
}

func (v *viewer) close() {
	v.closeOnce.Do(func() {
		close(v.done)
		_ = v.conn.Close()
	})
}

func (v *viewer) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-v.done:
			return
		case msg := <-v.send:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				v.close()
				return
			}
		case <-ticker.C:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				v.close()
				return
			}
		}
	}
}

// readPump discards anything the browser sends and returns when the
// connection ends.
func (v *viewer) readPump() {
	v.conn.SetReadLimit(512)
	_ = v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			return
		}
	}
}
