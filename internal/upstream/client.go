// Package upstream follows a backend's live message stream and hands each
// message to a sink.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/EdanStarfire/claudecode-webui-sub000/internal/protocol"
)

// Sink receives one backend message. raw is the message JSON without the
// session envelope.
type Sink func(ctx context.Context, sessionID string, raw []byte) error

type Options struct {
	URL    string
	Dialer Dialer
	Sink   Sink
	Logger *slog.Logger
}

type Client struct {
	url    string
	dialer Dialer
	sink   Sink
	logger *slog.Logger
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, errors.New("upstream url is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("upstream sink is required")
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = RealDialer{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:    strings.TrimSpace(opts.URL),
		dialer: dialer,
		sink:   opts.Sink,
		logger: logger.With("module", "upstream"),
	}, nil
}

// Run dials once and pumps frames until the stream ends or ctx is cancelled.
// Malformed frames and sink failures are logged and skipped.
func (c *Client) Run(ctx context.Context) error {
	sock, err := c.dialer.Dial(ctx, c.url)
	if err != nil {
		return fmt.Errorf("dial upstream %s: %w", c.url, err)
	}
	defer sock.Close()
	c.logger.Info("upstream connected", "url", c.url)

	for {
		text, err := sock.ReadText(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				c.logger.Info("upstream closed", "url", c.url)
				return nil
			}
			return fmt.Errorf("read upstream: %w", err)
		}
		c.handleFrame(ctx, []byte(text))
	}
}

func (c *Client) handleFrame(ctx context.Context, frame []byte) {
	sessionID, raw, err := splitFrame(frame)
	if err != nil {
		c.logger.Warn("upstream frame dropped", "err", err)
		return
	}
	if err := c.sink(ctx, sessionID, raw); err != nil {
		c.logger.Warn("upstream message rejected", "session_id", sessionID, "err", err)
	}
}

// splitFrame accepts either a session envelope or a bare message carrying its
// own session_id.
func splitFrame(frame []byte) (string, []byte, error) {
	sessionID, data, err := protocol.UnwrapSessionEnvelope(frame)
	if err == nil && len(data) > 0 {
		return sessionID, data, nil
	}
	if err != nil && !errors.Is(err, protocol.ErrMissingSessionID) {
		return "", nil, err
	}
	msg, decodeErr := protocol.DecodeBackendMessage(frame)
	if decodeErr != nil {
		return "", nil, decodeErr
	}
	if sid := strings.TrimSpace(msg.SessionID); sid != "" {
		return sid, frame, nil
	}
	return "", nil, protocol.ErrMissingSessionID
}
