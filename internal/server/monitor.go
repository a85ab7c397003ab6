package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Monitor exposes the server's operational surface: a websocket feed of
// per-cycle detection summaries plus JSON status endpoints. It carries
// no detection data beyond the summaries; the real outputs go over the
// PUB socket.
type Monitor struct {
	upgrader   websocket.Upgrader
	clients    map[*websocket.Conn]*sync.Mutex
	mu         sync.Mutex
	statusFn   func() map[string]any
	snapshotFn func() any
	configFn   func() map[string]any
}

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = (pongWait * 9) / 10
)

func RunMonitor(ctx context.Context, port int, messages <-chan any, statusFn func() map[string]any, snapshotFn func() any, configFn func() map[string]any) error {
	mon := &Monitor{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:    make(map[*websocket.Conn]*sync.Mutex),
		statusFn:   statusFn,
		snapshotFn: snapshotFn,
		configFn:   configFn,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", mon.handleWS)
	mux.HandleFunc("/healthz", mon.handleHealth)
	mux.HandleFunc("/config", mon.handleConfig)
	mux.HandleFunc("/status", mon.handleStatus)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	go mon.broadcast(ctx, messages)

	return httpServer.ListenAndServe()
}

func (m *Monitor) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	m.mu.Lock()
	writeMu := &sync.Mutex{}
	m.clients[conn] = writeMu
	m.mu.Unlock()

	if m.configFn != nil {
		if cfg := m.configFn(); cfg != nil {
			_ = m.writeJSON(conn, writeMu, cfg)
		}
	}

	go func() {
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(pingEvery)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := m.writeMessage(conn, writeMu, websocket.PingMessage, nil); err != nil {
						_ = conn.Close()
						return
					}
				}
			}
		}()
		defer close(done)
		defer m.removeClient(conn)
		for {
			messageType, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			var request map[string]any
			if err := json.Unmarshal(payload, &request); err != nil {
				continue
			}
			if request["type"] == "snapshot_request" {
				if m.snapshotFn == nil {
					continue
				}
				snapshot := m.snapshotFn()
				if snapshot == nil {
					continue
				}
				_ = m.writeJSON(conn, writeMu, snapshot)
			}
		}
	}()
}

func (m *Monitor) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (m *Monitor) handleConfig(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	payload := map[string]any{}
	if m.configFn != nil {
		if cfg := m.configFn(); cfg != nil {
			payload = cfg
		}
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func (m *Monitor) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	payload := map[string]any{}
	if m.statusFn != nil {
		payload = m.statusFn()
	}
	if metrics, ok := payload["metrics"].(map[string]any); ok {
		metrics["ws_clients"] = m.clientCount()
	} else {
		payload["ws_clients"] = m.clientCount()
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func (m *Monitor) broadcast(ctx context.Context, messages <-chan any) {
	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-messages:
			if !ok {
				return
			}
			payload, err := json.Marshal(message)
			if err != nil {
				continue
			}
			var stale []*websocket.Conn
			m.mu.Lock()
			for conn, writeMu := range m.clients {
				if err := m.writeMessage(conn, writeMu, websocket.TextMessage, payload); err != nil {
					stale = append(stale, conn)
				}
			}
			m.mu.Unlock()
			for _, conn := range stale {
				m.removeClient(conn)
			}
		}
	}
}

func (m *Monitor) removeClient(conn *websocket.Conn) {
	m.mu.Lock()
	delete(m.clients, conn)
	m.mu.Unlock()
	conn.Close()
}

func (m *Monitor) clientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

func (m *Monitor) writeJSON(conn *websocket.Conn, writeMu *sync.Mutex, payload any) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(payload)
}

func (m *Monitor) writeMessage(conn *websocket.Conn, writeMu *sync.Mutex, messageType int, payload []byte) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, payload)
}
