package upstream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/EdanStarfire/claudecode-webui-sub000/internal/logging"
)

type delivered struct {
	sessionID string
	raw       string
}

type recordingSink struct {
	mu   sync.Mutex
	got  []delivered
	fail bool
}

func (r *recordingSink) sink(_ context.Context, sessionID string, raw []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, delivered{sessionID: sessionID, raw: string(raw)})
	if r.fail {
		return errors.New("rejected")
	}
	return nil
}

func newTestClient(t *testing.T, sock Socket, sink Sink) *Client {
	t.Helper()
	c, err := NewClient(Options{URL: "ws://backend.test/stream", Dialer: StaticDialer{Socket: sock}, Sink: sink, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestClient_RunDeliversEnvelopesAndBareMessages(t *testing.T) {
	fake := NewFakeSocket()
	rec := &recordingSink{}
	c := newTestClient(t, fake, rec.sink)

	fake.EmitText(`{"session_id":"s1","data":{"type":"user","content":"hi"}}`)
	fake.EmitText(`{"type":"assistant","session_id":"s2","content":"yo"}`)
	fake.EmitText(`not json`)
	fake.EmitText(`{"type":"assistant","content":"no session"}`)
	_ = fake.Close()

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run should end cleanly on EOF: %v", err)
	}
	if len(rec.got) != 2 {
		t.Fatalf("expected 2 deliveries, got %+v", rec.got)
	}
	if rec.got[0].sessionID != "s1" || rec.got[0].raw != `{"type":"user","content":"hi"}` {
		t.Fatalf("unexpected envelope delivery: %+v", rec.got[0])
	}
	if rec.got[1].sessionID != "s2" {
		t.Fatalf("unexpected bare delivery: %+v", rec.got[1])
	}
}

func TestClient_SinkErrorsDoNotStopTheStream(t *testing.T) {
	fake := NewFakeSocket()
	rec := &recordingSink{fail: true}
	c := newTestClient(t, fake, rec.sink)
	fake.EmitText(`{"session_id":"s1","data":{"type":"user"}}`)
	fake.EmitText(`{"session_id":"s1","data":{"type":"user"}}`)
	_ = fake.Close()

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rec.got) != 2 {
		t.Fatalf("expected both frames delivered, got %d", len(rec.got))
	}
}

func TestClient_RunStopsOnCancel(t *testing.T) {
	c := newTestClient(t, NewFakeSocket(), (&recordingSink{}).sink)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancel should be a clean exit, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

type failingDialer struct{}

func (failingDialer) Dial(context.Context, string) (Socket, error) {
	return nil, errors.New("connection refused")
}

func TestClient_DialErrorIsReturned(t *testing.T) {
	c, err := NewClient(Options{URL: "ws://x", Dialer: failingDialer{}, Sink: (&recordingSink{}).sink, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.Run(context.Background()); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestNewClient_Validates(t *testing.T) {
	if _, err := NewClient(Options{Sink: (&recordingSink{}).sink}); err == nil {
		t.Fatal("expected error without url")
	}
	if _, err := NewClient(Options{URL: "ws://x"}); err == nil {
		t.Fatal("expected error without sink")
	}
}
