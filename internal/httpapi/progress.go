package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/theoddden/terradev-broker/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ProgressHub broadcasts stage_dataset lifecycle events to every
// connected /ws/staging client, grounded on
// internal/api/websocket_handler.go's broadcast-to-all-clients shape.
type ProgressHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{clients: make(map[*websocket.Conn]bool)}
}

func (h *ProgressHub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// The stream is push-only; block until the client disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *ProgressHub) broadcast(event map[string]interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// WrapStage announces a stage_dataset call's start and completion over
// the progress hub around the wrapped handler, so a long-running
// staging request has an observable heartbeat independent of the
// eventual HTTP response.
func (h *ProgressHub) WrapStage(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		r.Body.Close()
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))

		var body stageBody
		if err := json.Unmarshal(raw, &body); err == nil {
			h.broadcast(map[string]interface{}{
				"type":        "staging_started",
				"dataset_ref": body.DatasetRef,
				"regions":     body.Regions,
			})
		}

		next(w, r)

		h.broadcast(map[string]interface{}{
			"type":        "staging_finished",
			"dataset_ref": body.DatasetRef,
		})
	}
}
