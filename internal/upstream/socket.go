package upstream

import (
	"context"
	"io"
	"sync"

	"github.com/coder/websocket"
)

type Socket interface {
	ReadText(ctx context.Context) (string, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

// DefaultReadLimit matches the largest message the local api accepts.
const DefaultReadLimit int64 = 8 << 20

type RealDialer struct {
	// ReadLimit caps a single frame; 0 means DefaultReadLimit.
	ReadLimit int64
}

func (d RealDialer) Dial(ctx context.Context, url string) (Socket, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	limit := d.ReadLimit
	if limit <= 0 {
		limit = DefaultReadLimit
	}
	conn.SetReadLimit(limit)
	return &realSocket{conn: conn}, nil
}

type realSocket struct {
	conn *websocket.Conn
}

func (s *realSocket) ReadText(ctx context.Context) (string, error) {
	_, data, err := s.conn.Read(ctx)
	if err != nil {
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			return "", io.EOF
		}
		return "", err
	}
	return string(data), nil
}

func (s *realSocket) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

// FakeSocket is an in-memory Socket for tests and offline tooling.
type FakeSocket struct {
	readCh    chan string
	closeOnce sync.Once
}

func NewFakeSocket() *FakeSocket {
	return &FakeSocket{readCh: make(chan string, 8)}
}

func (f *FakeSocket) EmitText(text string) {
	f.readCh <- text
}

func (f *FakeSocket) ReadText(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case text, ok := <-f.readCh:
		if !ok {
			return "", io.EOF
		}
		return text, nil
	}
}

// Close ends the stream once buffered frames have been read.
func (f *FakeSocket) Close() error {
	f.closeOnce.Do(func() { close(f.readCh) })
	return nil
}

// StaticDialer hands out the same socket on every dial.
type StaticDialer struct {
	Socket Socket
}

func (d StaticDialer) Dial(context.Context, string) (Socket, error) {
	return d.Socket, nil
}
