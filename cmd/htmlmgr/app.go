package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ericfisherdev/htmlmgr/internal/adapter/driven/dom"
	"github.com/ericfisherdev/htmlmgr/internal/adapter/driven/fetch"
	"github.com/ericfisherdev/htmlmgr/internal/adapter/driven/memory"
	"github.com/ericfisherdev/htmlmgr/internal/adapter/driven/minify"
	"github.com/ericfisherdev/htmlmgr/internal/adapter/driven/pages"
	sqliteadapter "github.com/ericfisherdev/htmlmgr/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/htmlmgr/internal/adapter/driven/styles"
	"github.com/ericfisherdev/htmlmgr/internal/application"
	"github.com/ericfisherdev/htmlmgr/internal/config"
	"github.com/ericfisherdev/htmlmgr/internal/domain/port/driven"
)

// app holds the wired adapters and services shared by every command.
type app struct {
	cfg    *config.Config
	db     *sqliteadapter.DB
	store  driven.BuildStore // nil when build history is disabled
	builds *application.BuildService
}

// withApp wires the application, runs fn and releases resources.
func withApp(ctx context.Context, cfg *config.Config, fn func(*app) error) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	// Build history is optional; an empty db_path disables it.
	if cfg.DBPath != "" {
		db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
		if err != nil {
			return nil, err
		}
		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		a.store = sqliteadapter.NewBuildRepo(db)
		slog.Debug("build history enabled", "path", cfg.DBPath)
	}

	loadPaths := []string{cfg.SrcDir}
	for _, dir := range cfg.StyleDirs {
		loadPaths = append(loadPaths, filepath.Join(cfg.SrcDir, dir))
	}

	renderer := pages.NewRenderer(os.DirFS(cfg.SrcDir), pages.Options{
		PagesDir:    cfg.PagesDir,
		SearchPaths: cfg.TemplateDirs,
		Site:        cfg.SiteData(),
		DataSources: cfg.DataSources,
	})

	a.builds = application.NewBuildService(
		application.BuildOptions{
			SrcDir:           cfg.SrcDir,
			DistDir:          cfg.DistDir,
			StyleDirs:        cfg.StyleDirs,
			BannerStylesheet: cfg.BannerStylesheet,
			AssetsDir:        cfg.AssetsDir,
			ComposeFragments: cfg.ComposeFragments,
			MinifyHTML:       cfg.MinifyHTML,
		},
		application.BuildDeps{
			Styles:    styles.NewCompiler(cfg.SassBinary, loadPaths),
			Minifier:  minify.New(),
			Pages:     renderer,
			Parser:    dom.Parser{},
			Fragments: fetch.NewFSRetriever(os.DirFS(cfg.DistDir)),
			NewCache:  func() driven.FragmentCache { return memory.NewFragmentCache() },
			Store:     a.store,
		},
	)

	return a, nil
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
