// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/ericfisherdev/htmlmgr/internal/domain/model"
	"github.com/ericfisherdev/htmlmgr/internal/domain/port/driven"
)

// ErrUnknownTask is returned by Run for a task name it does not know.
var ErrUnknownTask = errors.New("unknown build task")

// Media types handed to the Minifier.
const (
	mediaCSS  = "text/css"
	mediaHTML = "text/html"
)

// BuildOptions holds the filesystem layout of a build. Directories below
// SrcDir are given relative to it.
type BuildOptions struct {
	SrcDir           string
	DistDir          string
	StyleDirs        []string // Compiled by Styles, e.g. "scss", "components".
	BannerStylesheet string   // Excluded from Styles, compiled by BannerStyles.
	AssetsDir        string
	ComposeFragments bool
	MinifyHTML       bool
}

// BuildDeps holds the driven ports a BuildService uses. Store may be nil, in
// which case runs are not recorded. Fragment composition needs Parser,
// Fragments and NewCache.
type BuildDeps struct {
	Styles    driven.StyleCompiler
	Minifier  driven.Minifier
	Pages     driven.PageRenderer
	Parser    driven.DocumentParser
	Fragments driven.Retriever
	NewCache  func() driven.FragmentCache
	Store     driven.BuildStore
}

// BuildService runs the asset pipeline tasks and records each run.
type BuildService struct {
	opts BuildOptions
	deps BuildDeps
	now  func() time.Time

	mu sync.Mutex // Serializes runs; tasks share the dist directory.
}

// NewBuildService creates a new BuildService.
func NewBuildService(opts BuildOptions, deps BuildDeps) *BuildService {
	return &BuildService{
		opts: opts,
		deps: deps,
		now:  time.Now,
	}
}

// Build runs the full task series: clean, styles, banner-styles, pages,
// assets.
func (s *BuildService) Build(ctx context.Context) (model.BuildRun, error) {
	return s.Run(ctx, model.FullBuild...)
}

// Run executes tasks in order, stopping at the first failure. The run is
// recorded in the build store when it starts and when it finishes; store
// failures are logged and do not fail the run.
func (s *BuildService) Run(ctx context.Context, tasks ...model.BuildTask) (model.BuildRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := model.BuildRun{
		ID:        uuid.NewString(),
		Tasks:     tasks,
		Status:    model.BuildStatusRunning,
		StartedAt: s.now().UTC(),
	}
	s.record(ctx, run)

	start := time.Now()
	var runErr error
	for _, task := range tasks {
		outputs, err := s.runTask(ctx, task)
		run.Outputs = append(run.Outputs, outputs...)
		if err != nil {
			runErr = fmt.Errorf("task %s: %w", task, err)
			break
		}
	}

	run.OutputCount = len(run.Outputs)
	run.FinishedAt = s.now().UTC()
	if runErr != nil {
		run.Status = model.BuildStatusFailed
		run.Error = runErr.Error()
		slog.Error("build failed", "run_id", run.ID, "tasks", tasks, "error", runErr)
	} else {
		run.Status = model.BuildStatusSucceeded
		slog.Info("build complete",
			"run_id", run.ID,
			"tasks", tasks,
			"outputs", run.OutputCount,
			"duration", time.Since(start),
		)
	}

	// The run's own context may be canceled; the final state is still worth keeping.
	s.record(context.WithoutCancel(ctx), run)
	return run, runErr
}

func (s *BuildService) runTask(ctx context.Context, task model.BuildTask) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch task {
	case model.TaskClean:
		return nil, s.Clean()
	case model.TaskStyles:
		return s.Styles(ctx)
	case model.TaskBannerStyles:
		return s.BannerStyles(ctx)
	case model.TaskPages:
		return s.Pages(ctx)
	case model.TaskAssets:
		return s.Assets(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}
}

func (s *BuildService) record(ctx context.Context, run model.BuildRun) {
	if s.deps.Store == nil {
		return
	}
	if err := s.deps.Store.Record(ctx, run); err != nil {
		slog.Warn("failed to record build run", "run_id", run.ID, "error", err)
	}
}

// Clean removes the dist directory. A missing directory is not an error.
func (s *BuildService) Clean() error {
	if err := os.RemoveAll(s.opts.DistDir); err != nil {
		return fmt.Errorf("remove %s: %w", s.opts.DistDir, err)
	}
	return nil
}

// Styles compiles every stylesheet below the style directories into
// css/<relative path>.css and css/<relative path>.min.css. Partials (names
// starting with "_") and the banner stylesheet are skipped.
func (s *BuildService) Styles(ctx context.Context) ([]string, error) {
	banner := ""
	if s.opts.BannerStylesheet != "" {
		banner = filepath.Join(s.opts.SrcDir, s.opts.BannerStylesheet)
	}

	var outputs []string
	for _, dir := range s.opts.StyleDirs {
		root := filepath.Join(s.opts.SrcDir, dir)
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isStyleSource(d.Name()) || p == banner {
				return nil
			}

			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			written, err := s.compileStyle(ctx, p, path.Join("css", path.Dir(filepath.ToSlash(rel))))
			outputs = append(outputs, written...)
			return err
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return outputs, err
		}
	}
	return outputs, nil
}

// BannerStyles compiles the banner stylesheet into css/<parent dir>/.
func (s *BuildService) BannerStyles(ctx context.Context) ([]string, error) {
	if s.opts.BannerStylesheet == "" {
		return nil, nil
	}
	src := filepath.Join(s.opts.SrcDir, s.opts.BannerStylesheet)
	outDir := path.Join("css", filepath.Base(filepath.Dir(src)))
	return s.compileStyle(ctx, src, outDir)
}

// compileStyle compiles src and writes the plain and minified CSS into
// outDir, relative to the dist directory.
func (s *BuildService) compileStyle(ctx context.Context, src, outDir string) ([]string, error) {
	css, err := s.deps.Styles.Compile(ctx, src)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	plain := path.Join(outDir, name+".css")
	if err := s.writeOutput(plain, css); err != nil {
		return nil, err
	}

	minified, err := s.deps.Minifier.Minify(mediaCSS, css)
	if err != nil {
		return []string{plain}, fmt.Errorf("minify %s: %w", src, err)
	}
	mini := path.Join(outDir, name+".min.css")
	if err := s.writeOutput(mini, minified); err != nil {
		return []string{plain}, err
	}
	return []string{plain, mini}, nil
}

func isStyleSource(name string) bool {
	if strings.HasPrefix(name, "_") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".scss", ".sass":
		return true
	}
	return false
}

// Pages renders every page into the dist directory. When fragment
// composition is enabled, rendered pages are written first so that
// fragments produced by the same run can be retrieved from dist, then pages
// declaring fragments are composed and rewritten.
func (s *BuildService) Pages(ctx context.Context) ([]string, error) {
	pages, err := s.deps.Pages.Pages()
	if err != nil {
		return nil, err
	}
	rendered, err := s.deps.Pages.Render(ctx, pages)
	if err != nil {
		return nil, err
	}

	outputs := make([]string, 0, len(rendered))
	for _, page := range rendered {
		if err := s.writeOutput(page.Path, page.Content); err != nil {
			return outputs, err
		}
		outputs = append(outputs, page.Path)
	}

	if s.composeEnabled() {
		cache := s.deps.NewCache()
		for i, page := range rendered {
			content, changed, err := s.compose(ctx, cache, page)
			if err != nil {
				return outputs, err
			}
			if changed {
				rendered[i].Content = content
			}
		}
	}

	if s.opts.MinifyHTML || s.composeEnabled() {
		for _, page := range rendered {
			content := page.Content
			if s.opts.MinifyHTML {
				content, err = s.deps.Minifier.Minify(mediaHTML, content)
				if err != nil {
					return outputs, fmt.Errorf("page %s: %w", page.Path, err)
				}
			}
			if err := s.writeOutput(page.Path, content); err != nil {
				return outputs, err
			}
		}
	}

	return outputs, nil
}

func (s *BuildService) composeEnabled() bool {
	return s.opts.ComposeFragments &&
		s.deps.Parser != nil &&
		s.deps.Fragments != nil &&
		s.deps.NewCache != nil
}

// compose fills the fragment mount points of page. Fragments that cannot be
// loaded are logged and leave their mount point untouched.
func (s *BuildService) compose(ctx context.Context, cache driven.FragmentCache, page model.RenderedPage) ([]byte, bool, error) {
	doc, err := s.deps.Parser.Parse(string(page.Content))
	if err != nil {
		return nil, false, fmt.Errorf("parse page %s: %w", page.Path, err)
	}

	loader := NewFragmentLoader(doc, s.deps.Fragments, cache,
		WithLogger(slog.Default().With("page", page.Path)),
	)
	targets := loader.Targets()
	if len(targets) == 0 {
		return nil, false, nil
	}

	for _, target := range targets {
		loader.LoadAndLog(ctx, target.Locator, target.MountPointID)
	}

	out, err := doc.HTML()
	if err != nil {
		return nil, false, fmt.Errorf("render composed page %s: %w", page.Path, err)
	}
	return []byte(out), true, nil
}

// Assets copies the assets directory verbatim into dist/assets. Every file
// is attempted; copy failures are combined.
func (s *BuildService) Assets(ctx context.Context) ([]string, error) {
	root := filepath.Join(s.opts.SrcDir, s.opts.AssetsDir)

	var (
		outputs []string
		errs    error
	)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		out := path.Join("assets", filepath.ToSlash(rel))
		if err := s.copyFile(p, out); err != nil {
			errs = multierr.Append(errs, err)
			return nil
		}
		outputs = append(outputs, out)
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = multierr.Append(errs, err)
	}
	return outputs, errs
}

func (s *BuildService) copyFile(src, rel string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	defer in.Close()

	dst := filepath.Join(s.opts.DistDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	defer func() {
		err = multierr.Append(err, out.Close())
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}

// writeOutput writes data to rel, a slash separated path below dist.
func (s *BuildService) writeOutput(rel string, data []byte) error {
	dst := filepath.Join(s.opts.DistDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}
