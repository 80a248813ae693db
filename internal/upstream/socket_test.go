package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/EdanStarfire/claudecode-webui-sub000/internal/logging"
)

func newFrameServer(t *testing.T, frames ...string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		for _, frame := range frames {
			if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
				_ = conn.CloseNow()
				return
			}
		}
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func largeToolResultFrame(size int) string {
	body := strings.Repeat("x", size)
	return `{"session_id":"s1","data":{"type":"user","metadata":{"tool_results":[{"tool_use_id":"tu_1","content":"` + body + `"}]}}}`
}

func TestRealDialer_AcceptsFramesAboveLibraryDefault(t *testing.T) {
	url := newFrameServer(t, largeToolResultFrame(40<<10), `{"session_id":"s1","data":{"type":"assistant","content":"after"}}`)
	rec := &recordingSink{}
	c, err := NewClient(Options{URL: url, Dialer: RealDialer{}, Sink: rec.sink, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rec.got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(rec.got))
	}
	if len(rec.got[0].raw) < 40<<10 {
		t.Fatalf("large frame truncated: %d bytes", len(rec.got[0].raw))
	}
}

func TestRealDialer_ReadLimitIsConfigurable(t *testing.T) {
	url := newFrameServer(t, largeToolResultFrame(4<<10))
	c, err := NewClient(Options{URL: url, Dialer: RealDialer{ReadLimit: 1 << 10}, Sink: (&recordingSink{}).sink, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Run(ctx); err == nil {
		t.Fatal("expected read error for frame above the configured limit")
	}
}
