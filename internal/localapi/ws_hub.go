package localapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/EdanStarfire/claudecode-webui-sub000/internal/protocol"
)

const publishWriteTimeout = 500 * time.Millisecond

// WSHub fans reconciler updates out to every connected UI client.
type WSHub struct {
	logger  *slog.Logger
	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
	seq     atomic.Uint64
}

func NewWSHub(logger *slog.Logger) *WSHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHub{logger: logger, clients: map[*websocket.Conn]struct{}{}}
}

func (h *WSHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed", "err", err)
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("ui client connected", "clients", h.Clients())

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	// clients only listen; reads detect disconnects
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

func (h *WSHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WSHub) Publish(op, sessionID string, payload map[string]any) {
	outPayload := map[string]any{}
	if sessionID != "" {
		outPayload["session_id"] = sessionID
	}
	for k, v := range payload {
		outPayload[k] = v
	}

	evt := protocol.Message{
		ID:      fmt.Sprintf("evt_%d", h.seq.Add(1)),
		Type:    "event",
		Op:      op,
		Payload: protocol.MustRaw(outPayload),
	}
	msg, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("encode event failed", "op", op, "err", err)
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		ctx, cancel := context.WithTimeout(context.Background(), publishWriteTimeout)
		if err := c.Write(ctx, websocket.MessageText, msg); err != nil {
			h.logger.Debug("event write failed", "op", op, "err", err)
		}
		cancel()
	}
}
