package command

import (
	"context"
	"errors"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/EdanStarfire/claudecode-webui-sub000/internal/config"
)

type ReplayRequest struct {
	Path      string
	SessionID string
}

type Deps struct {
	LoadConfig   func() config.Config
	RunServe     func(context.Context, config.Config) error
	RunReplay    func(context.Context, config.Config, ReplayRequest) error
	RunMigrateUp func(context.Context, config.Config) error
}

func BuildApp(deps Deps) *cli.App {
	return &cli.App{
		Name:  "webui",
		Usage: "reconcile agent session streams into tool-call cards and task lists",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Usage: "override WEBUI_LOG_LEVEL"},
			&cli.StringFlag{Name: "log-format", Usage: "json or text"},
		},
		Action: func(ctx *cli.Context) error {
			return runServe(ctx.Context, deps, loadConfig(ctx, deps))
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the local api and optional upstream pump",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "host", Usage: "listen host"},
					&cli.IntFlag{Name: "port", Usage: "listen port"},
					&cli.StringFlag{Name: "backend", Usage: "backend websocket url to follow"},
					&cli.DurationFlag{Name: "shutdown-timeout", Usage: "bound for each shutdown step"},
				},
				Action: func(ctx *cli.Context) error {
					cfg := loadConfig(ctx, deps)
					if host := strings.TrimSpace(ctx.String("host")); host != "" {
						cfg.LocalHost = host
					}
					if port := ctx.Int("port"); port > 0 {
						cfg.LocalPort = port
					}
					if backend := strings.TrimSpace(ctx.String("backend")); backend != "" {
						cfg.BackendWSURL = backend
					}
					if d := ctx.Duration("shutdown-timeout"); d > 0 {
						cfg.ShutdownTimeout = d
					}
					return runServe(ctx.Context, deps, cfg)
				},
			},
			{
				Name:      "replay",
				Usage:     "replay a JSONL message backlog and print the reconstructed state",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "session", Usage: "session id to replay into", Value: "replay"},
					&cli.StringFlag{Name: "correlation", Usage: "signature or tool_use_id"},
				},
				Action: func(ctx *cli.Context) error {
					path := strings.TrimSpace(ctx.Args().First())
					if path == "" {
						return errors.New("replay needs a FILE argument")
					}
					cfg := loadConfig(ctx, deps)
					if c := strings.TrimSpace(ctx.String("correlation")); c != "" {
						cfg.Correlation = c
					}
					return runReplay(ctx.Context, deps, cfg, ReplayRequest{Path: path, SessionID: ctx.String("session")})
				},
			},
			{
				Name:  "migrate",
				Usage: "run database migration",
				Subcommands: []*cli.Command{
					{
						Name:  "up",
						Usage: "sync the message journal schema",
						Action: func(ctx *cli.Context) error {
							return runMigrateUp(ctx.Context, deps, loadConfig(ctx, deps))
						},
					},
				},
			},
		},
	}
}

func loadConfig(ctx *cli.Context, deps Deps) config.Config {
	var cfg config.Config
	if deps.LoadConfig != nil {
		cfg = deps.LoadConfig()
	} else {
		cfg = config.LoadConfig()
	}
	if level := strings.TrimSpace(ctx.String("log-level")); level != "" {
		cfg.ListenLogLevel = level
	}
	if format := strings.TrimSpace(ctx.String("log-format")); format != "" {
		cfg.LogFormat = format
	}
	return cfg
}

func runServe(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.RunServe == nil {
		return errors.New("serve runner is not configured")
	}
	return deps.RunServe(ctx, cfg)
}

func runReplay(ctx context.Context, deps Deps, cfg config.Config, req ReplayRequest) error {
	if deps.RunReplay == nil {
		return errors.New("replay runner is not configured")
	}
	return deps.RunReplay(ctx, cfg, req)
}

func runMigrateUp(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.RunMigrateUp == nil {
		return errors.New("migrate up runner is not configured")
	}
	return deps.RunMigrateUp(ctx, cfg)
}
