package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/cli/browser"

	"github.com/ericfisherdev/htmlmgr/internal/adapter/driven/fswatch"
	"github.com/ericfisherdev/htmlmgr/internal/adapter/driving/preview"
	"github.com/ericfisherdev/htmlmgr/internal/application"
)

// serve watches the source tree, rebuilds on change and serves the dist
// directory with live reload until ctx is canceled.
func (a *app) serve(ctx context.Context, initialBuild bool) error {
	cfg := a.cfg

	if initialBuild {
		// A failing build still starts the server so the error overlay can
		// show it; the next successful rebuild clears it.
		if _, err := a.builds.Build(ctx); err != nil {
			slog.Warn("initial build failed, watching for fixes", "error", err)
		}
	}

	watcher, err := fswatch.New(cfg.SrcDir)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil {
			slog.Error("error closing file watcher", "error", closeErr)
		}
	}()

	hub := preview.NewHub(slog.Default())
	watchSvc := application.NewWatchService(watcher, a.builds, hub, application.WatchOptions{
		SrcDir:           cfg.SrcDir,
		DataDir:          cfg.DataDir,
		StyleDirs:        cfg.StyleDirs,
		BannerStylesheet: cfg.BannerStylesheet,
		AssetsDir:        cfg.AssetsDir,
		Debounce:         cfg.Debounce,
	})
	go watchSvc.Start(ctx)

	handler := preview.NewHandler(os.DirFS(cfg.DistDir), a.store, watchSvc, hub, slog.Default())

	// No read or write timeouts: live-reload sockets stay open for the
	// lifetime of the page.
	srv := &http.Server{
		Handler:           preview.NewServeMux(handler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
	}

	go func() {
		slog.Info("preview server starting", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("preview server error", "error", err)
		}
	}()

	url := "http://" + ln.Addr().String() + "/"
	if cfg.Open {
		if err := browser.OpenURL(url); err != nil {
			slog.Warn("failed to open browser", "url", url, "error", err)
		}
	}

	slog.Info("htmlmgr watching",
		"src_dir", cfg.SrcDir,
		"dist_dir", cfg.DistDir,
		"url", url,
	)

	<-ctx.Done()
	slog.Info("shutting down")

	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("preview server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
