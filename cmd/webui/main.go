package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/EdanStarfire/claudecode-webui-sub000/internal/command"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/config"
	dbmodel "github.com/EdanStarfire/claudecode-webui-sub000/internal/db"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/global"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/historydb"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/lifecycle"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/localapi"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/logging"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/reconcile"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/toolcall"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/upstream"
)

var version = "dev"

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := command.BuildApp(command.Deps{
		LoadConfig: config.LoadConfig,
		RunServe: func(ctx context.Context, cfg config.Config) error {
			return runServe(ctx, cfg, newRuntimeLogger(cfg, os.Stderr), upstream.RealDialer{ReadLimit: cfg.UpstreamReadLimit})
		},
		RunReplay: func(ctx context.Context, cfg config.Config, req command.ReplayRequest) error {
			return runReplay(ctx, cfg, req, os.Stdout, newRuntimeLogger(cfg, os.Stderr))
		},
		RunMigrateUp: runMigrateUp,
	})
	app.Version = version

	if err := app.RunContext(rootCtx, os.Args); err != nil {
		logging.NewLogger(logging.Options{Level: "error", Writer: os.Stderr}).Error("webui failed", "err", err)
		os.Exit(1)
	}
}

func newRuntimeLogger(cfg config.Config, w io.Writer) *slog.Logger {
	return logging.NewLogger(logging.Options{Level: cfg.ListenLogLevel, Format: cfg.LogFormat, Writer: w})
}

func loadSettings() (global.ReconcilerConfig, error) {
	dir, err := global.DefaultConfigDir()
	if err != nil {
		return global.ReconcilerConfig{}, err
	}
	cfg, err := global.NewConfigStore(dir).LoadOrInit()
	if err != nil {
		return global.ReconcilerConfig{}, err
	}
	return cfg.Reconciler, nil
}

func resolveDBPath(cfg config.Config) (string, error) {
	if cfg.DBPath != "" {
		return cfg.DBPath, nil
	}
	return global.DefaultDBPath()
}

func runMigrateUp(_ context.Context, cfg config.Config) error {
	path, err := resolveDBPath(cfg)
	if err != nil {
		return err
	}
	gdb, err := dbmodel.Open(path)
	if err != nil {
		return err
	}
	return dbmodel.Close(gdb)
}

func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger, dialer upstream.Dialer) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	path, err := resolveDBPath(cfg)
	if err != nil {
		return err
	}
	gdb, err := dbmodel.Open(path)
	if err != nil {
		return err
	}
	history, err := historydb.NewStore(gdb)
	if err != nil {
		_ = dbmodel.Close(gdb)
		return err
	}
	registry, err := reconcile.NewRegistry(reconcile.Options{
		Logger:           logger,
		Strategy:         cfg.Correlation,
		ModelSuggestions: settings.ModelSuggestions,
	})
	if err != nil {
		_ = dbmodel.Close(gdb)
		return err
	}
	srv := localapi.NewServer(localapi.Deps{
		Registry:           registry,
		History:            history,
		Describers:         toolcall.NewBuiltinRegistry(),
		Logger:             logger,
		PreviewValueMax:    settings.PreviewValueMax,
		HistoryReplayLimit: settings.HistoryReplayLimit,
	})

	mgr := lifecycle.NewManager(logger)
	mgr.SetShutdownTimeout(shutdownTimeout(cfg))
	httpSrv := &http.Server{
		Addr:              net.JoinHostPort(cfg.LocalHost, strconv.Itoa(cfg.LocalPort)),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	mgr.AddRun("http", func(runCtx context.Context) error {
		return serveHTTP(runCtx, httpSrv, shutdownTimeout(cfg), logger)
	})
	if cfg.BackendWSURL != "" {
		client, err := upstream.NewClient(upstream.Options{
			URL:    cfg.BackendWSURL,
			Dialer: dialer,
			Logger: logger,
			Sink: func(sinkCtx context.Context, sessionID string, raw []byte) error {
				_, err := srv.Ingest(sinkCtx, sessionID, raw)
				return err
			},
		})
		if err != nil {
			_ = dbmodel.Close(gdb)
			return err
		}
		mgr.AddRun("upstream", client.Run)
	}
	mgr.AddShutdown("close-db", func(context.Context) error {
		return dbmodel.Close(gdb)
	})

	logger.Info("webui starting", "version", version, "addr", httpSrv.Addr, "db", path, "correlation", cfg.Correlation, "upstream", cfg.BackendWSURL != "")
	return mgr.StartAndWait(ctx)
}

func shutdownTimeout(cfg config.Config) time.Duration {
	if cfg.ShutdownTimeout > 0 {
		return cfg.ShutdownTimeout
	}
	return config.DefaultShutdownTimeout
}

func serveHTTP(ctx context.Context, srv *http.Server, timeout time.Duration, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	logger.Info("local api listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
