package application

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ericfisherdev/htmlmgr/internal/domain/model"
	"github.com/ericfisherdev/htmlmgr/internal/domain/port/driven"
)

// DefaultDebounce is the quiet period after the last change before a rebuild.
const DefaultDebounce = 100 * time.Millisecond

// Builder runs pipeline tasks. *BuildService satisfies it.
type Builder interface {
	Run(ctx context.Context, tasks ...model.BuildTask) (model.BuildRun, error)
}

var _ Builder = (*BuildService)(nil)

// WatchOptions describes which source paths feed which tasks. Directories are
// relative to SrcDir.
type WatchOptions struct {
	SrcDir           string
	DataDir          string
	StyleDirs        []string
	BannerStylesheet string
	AssetsDir        string
	Debounce         time.Duration
}

// rebuildRequest represents a manual full rebuild trigger.
type rebuildRequest struct {
	done chan error
}

// WatchService reruns the tasks affected by source changes and notifies the
// reloader with the result.
type WatchService struct {
	watcher   driven.FileWatcher
	builder   Builder
	reloader  driven.Reloader
	opts      WatchOptions
	rebuildCh chan rebuildRequest
}

// NewWatchService creates a new WatchService. A zero Debounce uses
// DefaultDebounce. A relative SrcDir is resolved against the working
// directory, matching the absolute paths the file watcher reports.
func NewWatchService(watcher driven.FileWatcher, builder Builder, reloader driven.Reloader, opts WatchOptions) *WatchService {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if abs, err := filepath.Abs(opts.SrcDir); err == nil {
		opts.SrcDir = abs
	} else {
		slog.Warn("failed to resolve source directory", "path", opts.SrcDir, "error", err)
	}
	return &WatchService{
		watcher:   watcher,
		builder:   builder,
		reloader:  reloader,
		opts:      opts,
		rebuildCh: make(chan rebuildRequest),
	}
}

// Start consumes watcher events until the context is canceled or the watcher
// closes its event channel. Changes are collected until no event has arrived
// for the debounce period, then every affected task runs once in pipeline
// order. Start also serves manual rebuild requests.
func (s *WatchService) Start(ctx context.Context) {
	pending := make(map[model.BuildTask]bool)
	var debounce <-chan time.Time
	events, errs := s.watcher.Events(), s.watcher.Errors()

	for {
		select {
		case <-ctx.Done():
			slog.Info("watch service stopped")
			return
		case p, ok := <-events:
			if !ok {
				slog.Info("watcher closed, watch service stopped")
				return
			}
			tasks := s.TasksFor(p)
			if len(tasks) == 0 {
				continue
			}
			slog.Debug("source changed", "path", p, "tasks", tasks)
			for _, task := range tasks {
				pending[task] = true
			}
			debounce = time.After(s.opts.Debounce)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("file watcher error", "error", err)
		case <-debounce:
			debounce = nil
			tasks := orderedTasks(pending)
			clear(pending)
			_ = s.run(ctx, tasks)
		case req := <-s.rebuildCh:
			clear(pending)
			debounce = nil
			req.done <- s.run(ctx, model.FullBuild)
		}
	}
}

// Rebuild triggers a full build from the watch loop, bypassing change
// detection. It blocks until the build completes or the context is canceled.
func (s *WatchService) Rebuild(ctx context.Context) error {
	done := make(chan error, 1)
	req := rebuildRequest{done: done}

	select {
	case s.rebuildCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *WatchService) run(ctx context.Context, tasks []model.BuildTask) error {
	run, err := s.builder.Run(ctx, tasks...)
	if err != nil {
		s.reloader.BuildFailed(err)
		return err
	}
	s.reloader.Reload(run.Outputs)
	return nil
}

// TasksFor returns the tasks a change to file p requires. An absolute p is
// matched against the source directory; a relative p is taken as already
// relative to it. Paths outside the source directory need no task.
func (s *WatchService) TasksFor(p string) []model.BuildTask {
	rel := p
	if filepath.IsAbs(p) {
		r, err := filepath.Rel(s.opts.SrcDir, p)
		if err != nil {
			return nil
		}
		rel = r
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return nil
	}

	if s.opts.AssetsDir != "" && within(rel, s.opts.AssetsDir) {
		return []model.BuildTask{model.TaskAssets}
	}

	ext := strings.ToLower(path.Ext(rel))
	switch ext {
	case ".scss", ".sass":
		if rel == filepath.ToSlash(s.opts.BannerStylesheet) {
			return []model.BuildTask{model.TaskBannerStyles}
		}
		for _, dir := range s.opts.StyleDirs {
			if within(rel, dir) {
				return []model.BuildTask{model.TaskStyles}
			}
		}
	case ".html", ".md", ".tmpl", ".gohtml":
		return []model.BuildTask{model.TaskPages}
	case ".json":
		if s.opts.DataDir != "" && within(rel, s.opts.DataDir) {
			return []model.BuildTask{model.TaskPages}
		}
	}
	return nil
}

func within(rel, dir string) bool {
	dir = strings.Trim(filepath.ToSlash(dir), "/")
	return strings.HasPrefix(rel, dir+"/")
}

// orderedTasks returns the set tasks in pipeline order.
func orderedTasks(set map[model.BuildTask]bool) []model.BuildTask {
	return slices.DeleteFunc(slices.Clone(model.FullBuild), func(t model.BuildTask) bool {
		return !set[t]
	})
}
