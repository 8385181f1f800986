package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/htmlmgr/internal/config"
	"github.com/ericfisherdev/htmlmgr/internal/domain/model"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		stop()
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	var cfg *config.Config

	// loadConfig runs before any action, after flags are parsed.
	loadConfig := func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		var err error
		cfg, err = config.Load(cmd.String("config"))
		if err != nil {
			return ctx, fmt.Errorf("load configuration: %w", err)
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
		slog.Debug("config loaded",
			"src_dir", cfg.SrcDir,
			"dist_dir", cfg.DistDir,
			"listen_addr", cfg.ListenAddr,
			"db_path", cfg.DBPath,
		)
		return ctx, nil
	}

	task := func(tasks ...model.BuildTask) cli.ActionFunc {
		return func(ctx context.Context, _ *cli.Command) error {
			return withApp(ctx, cfg, func(a *app) error {
				_, err := a.builds.Run(ctx, tasks...)
				return err
			})
		}
	}

	return &cli.Command{
		Name:            "htmlmgr",
		Usage:           "build and preview a component-based static site",
		HideHelpCommand: true,
		Before:          loadConfig,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE` (YAML)",
				Sources: cli.EnvVars(config.EnvConfigFile),
			},
		},
		// Without a command: build, then watch and serve.
		Action: func(ctx context.Context, _ *cli.Command) error {
			return withApp(ctx, cfg, func(a *app) error {
				return a.serve(ctx, true)
			})
		},
		Commands: []*cli.Command{
			{Name: string(model.TaskClean), Usage: "remove the dist directory", Action: task(model.TaskClean)},
			{Name: string(model.TaskStyles), Usage: "compile and minify stylesheets", Action: task(model.TaskStyles)},
			{Name: string(model.TaskBannerStyles), Usage: "compile the banner stylesheet", Action: task(model.TaskBannerStyles)},
			{Name: string(model.TaskPages), Usage: "render pages and compose fragments", Action: task(model.TaskPages)},
			{Name: string(model.TaskAssets), Usage: "copy static assets", Action: task(model.TaskAssets)},
			{Name: "build", Usage: "run clean, styles, banner-styles, pages and assets", Action: task(model.FullBuild...)},
			{
				Name:  "watch",
				Usage: "serve dist with live reload and rebuild on change",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "build", Usage: "run a full build before watching"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withApp(ctx, cfg, func(a *app) error {
						return a.serve(ctx, cmd.Bool("build"))
					})
				},
			},
			newComposeCommand(func() *config.Config { return cfg }),
			{
				Name:  "config",
				Usage: "print the effective configuration as YAML",
				Action: func(_ context.Context, cmd *cli.Command) error {
					data, err := yaml.Marshal(cfg)
					if err != nil {
						return fmt.Errorf("encode configuration: %w", err)
					}
					_, err = cmd.Root().Writer.Write(data)
					return err
				},
			},
		},
	}
}
