package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/EdanStarfire/claudecode-webui-sub000/internal/command"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/config"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/protocol"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/reconcile"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/toolcall"
)

const maxBacklogLine = 16 << 20

func runReplay(_ context.Context, cfg config.Config, req command.ReplayRequest, out io.Writer, logger *slog.Logger) error {
	f, err := os.Open(req.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	msgs, err := readBacklog(f, logger)
	if err != nil {
		return fmt.Errorf("read %s: %w", req.Path, err)
	}
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	registry, err := reconcile.NewRegistry(reconcile.Options{
		Logger:           logger,
		Strategy:         cfg.Correlation,
		ModelSuggestions: settings.ModelSuggestions,
	})
	if err != nil {
		return err
	}
	describers := toolcall.NewBuiltinRegistry()
	return registry.Do(req.SessionID, func(r *reconcile.SessionReconciler) {
		r.Replay(msgs)
		writeReplayReport(out, r, describers, settings.PreviewValueMax)
	})
}

// readBacklog decodes one backend message per line. Blank lines are ignored and
// undecodable lines are logged and skipped.
func readBacklog(in io.Reader, logger *slog.Logger) ([]protocol.BackendMessage, error) {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxBacklogLine)
	msgs := []protocol.BackendMessage{}
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		msg, err := protocol.DecodeBackendMessage([]byte(text))
		if err != nil {
			logger.Warn("backlog line skipped", "line", line, "err", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, sc.Err()
}

func writeReplayReport(out io.Writer, r *reconcile.SessionReconciler, describers *toolcall.Registry, previewValueMax int) {
	calls := r.ToolCalls()
	fmt.Fprintf(out, "session %s: %d tool calls, %d displayed messages\n", r.ID(), len(calls), len(r.Messages()))
	for _, tc := range calls {
		fmt.Fprintf(out, "  %s\n", describers.Summarize(tc, previewValueMax))
	}
	if !r.HasTasks() {
		return
	}
	stats := r.TaskStats()
	fmt.Fprintf(out, "tasks: %d total, %d pending, %d in progress, %d completed\n", stats.Total, stats.Pending, stats.InProgress, stats.Completed)
	for _, t := range r.Tasks() {
		fmt.Fprintf(out, "  #%s [%s] %s\n", t.ID, t.Status, t.Subject)
	}
}
