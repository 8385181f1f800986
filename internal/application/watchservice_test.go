package application_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/htmlmgr/internal/adapter/driven/fswatch"
	"github.com/ericfisherdev/htmlmgr/internal/application"
	"github.com/ericfisherdev/htmlmgr/internal/domain/model"
)

// --- Mock implementations ---

type mockWatcher struct {
	events chan string
	errs   chan error
}

func newMockWatcher() *mockWatcher {
	return &mockWatcher{events: make(chan string), errs: make(chan error)}
}

func (m *mockWatcher) Events() <-chan string { return m.events }
func (m *mockWatcher) Errors() <-chan error { return m.errs }
func (m *mockWatcher) Close() error { return nil }

type mockBuilder struct {
	mu    sync.Mutex
	calls [][]model.BuildTask
	err   error
}

func (m *mockBuilder) Run(_ context.Context, tasks ...model.BuildTask) (model.BuildRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, tasks)
	if m.err != nil {
		return model.BuildRun{Status: model.BuildStatusFailed, Error: m.err.Error()}, m.err
	}
	return model.BuildRun{Status: model.BuildStatusSucceeded, Outputs: []string{"index.html"}}, nil
}

func (m *mockBuilder) Calls() [][]model.BuildTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]model.BuildTask(nil), m.calls...)
}

type mockReloader struct {
	mu       sync.Mutex
	reloads  [][]string
	failures []error
}

func (m *mockReloader) Reload(changed []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloads = append(m.reloads, changed)
}

func (m *mockReloader) BuildFailed(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, err)
}

func (m *mockReloader) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reloads), len(m.failures)
}

// --- Fixtures ---

const testSrcDir = "/site/src"

func testWatchOptions() application.WatchOptions {
	return application.WatchOptions{
		SrcDir:           testSrcDir,
		DataDir:          "data",
		StyleDirs:        []string{"scss", "components"},
		BannerStylesheet: "components/banner-list/banner-list.scss",
		AssetsDir:        "assets",
		Debounce:         20 * time.Millisecond,
	}
}

func startWatch(t *testing.T, builder *mockBuilder) (*application.WatchService, *mockWatcher, *mockReloader) {
	t.Helper()
	watcher := newMockWatcher()
	reloader := &mockReloader{}
	svc := application.NewWatchService(watcher, builder, reloader, testWatchOptions())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return svc, watcher, reloader
}

// --- Tests ---

func TestTasksFor(t *testing.T) {
	svc := application.NewWatchService(newMockWatcher(), &mockBuilder{}, &mockReloader{}, testWatchOptions())

	tests := []struct {
		path string
		want []model.BuildTask
	}{
		{"pages/index.html", []model.BuildTask{model.TaskPages}},
		{"templates/layout.html", []model.BuildTask{model.TaskPages}},
		{"pages/about.md", []model.BuildTask{model.TaskPages}},
		{"data/navigation.json", []model.BuildTask{model.TaskPages}},
		{"scss/main.scss", []model.BuildTask{model.TaskStyles}},
		{"scss/_vars.scss", []model.BuildTask{model.TaskStyles}},
		{"components/button/button.scss", []model.BuildTask{model.TaskStyles}},
		{"components/banner-list/banner-list.scss", []model.BuildTask{model.TaskBannerStyles}},
		{"assets/img/logo.svg", []model.BuildTask{model.TaskAssets}},
		{"assets/embed.html", []model.BuildTask{model.TaskAssets}},
		{filepath.Join(testSrcDir, "scss", "main.scss"), []model.BuildTask{model.TaskStyles}},
		{"package.json", nil},
		{"other/loose.scss", nil},
		{"js/utils/component-loader.js", nil},
		{"/elsewhere/index.html", nil},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.TasksFor(tt.path))
		})
	}
}

func TestTasksFor_RelativeSourceDir(t *testing.T) {
	t.Chdir(t.TempDir())
	cwd, err := os.Getwd()
	require.NoError(t, err)

	opts := testWatchOptions()
	opts.SrcDir = "src"
	svc := application.NewWatchService(newMockWatcher(), &mockBuilder{}, &mockReloader{}, opts)

	tests := []struct {
		path string
		want []model.BuildTask
	}{
		{"scss/main.scss", []model.BuildTask{model.TaskStyles}},
		{"components/banner-list/banner-list.scss", []model.BuildTask{model.TaskBannerStyles}},
		{"data/navigation.json", []model.BuildTask{model.TaskPages}},
		{"assets/img/logo.png", []model.BuildTask{model.TaskAssets}},
		{"assets/embed.html", []model.BuildTask{model.TaskAssets}},
		{"pages/index.html", []model.BuildTask{model.TaskPages}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			abs := filepath.Join(cwd, "src", filepath.FromSlash(tt.path))
			assert.Equal(t, tt.want, svc.TasksFor(abs))
		})
	}
}

func TestWatch_RelativeSourceDirWithFileWatcher(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Join("src", "scss"), 0o755))

	watcher, err := fswatch.New("src")
	require.NoError(t, err)
	t.Cleanup(func() { _ = watcher.Close() })

	opts := testWatchOptions()
	opts.SrcDir = "src"
	builder := &mockBuilder{}
	svc := application.NewWatchService(watcher, builder, &mockReloader{}, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.NoError(t, os.WriteFile(filepath.Join("src", "scss", "main.scss"), []byte("body {}"), 0o644))

	require.Eventually(t, func() bool { return len(builder.Calls()) > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []model.BuildTask{model.TaskStyles}, builder.Calls()[0])
}

func TestWatch_DebouncesIntoOneOrderedRun(t *testing.T) {
	builder := &mockBuilder{}
	_, watcher, reloader := startWatch(t, builder)

	watcher.events <- "data/navigation.json"
	watcher.events <- "scss/main.scss"
	watcher.events <- "pages/index.html"
	watcher.events <- "scss/_vars.scss"

	require.Eventually(t, func() bool { return len(builder.Calls()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []model.BuildTask{model.TaskStyles, model.TaskPages}, builder.Calls()[0])

	require.Eventually(t, func() bool {
		reloads, _ := reloader.counts()
		return reloads == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"index.html"}, reloader.reloads[0])
}

func TestWatch_IgnoresIrrelevantChanges(t *testing.T) {
	builder := &mockBuilder{}
	_, watcher, _ := startWatch(t, builder)

	watcher.events <- "README.md.swp"
	watcher.events <- "js/app.js"

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, builder.Calls())
}

func TestWatch_FailedBuildNotifiesReloader(t *testing.T) {
	builder := &mockBuilder{err: errors.New("sass: syntax error")}
	_, watcher, reloader := startWatch(t, builder)

	watcher.events <- "scss/main.scss"

	require.Eventually(t, func() bool {
		_, failures := reloader.counts()
		return failures == 1
	}, time.Second, 5*time.Millisecond)
	reloads, _ := reloader.counts()
	assert.Equal(t, 0, reloads)
}

func TestWatch_WatcherErrorsDoNotStopLoop(t *testing.T) {
	builder := &mockBuilder{}
	_, watcher, _ := startWatch(t, builder)

	watcher.errs <- errors.New("too many open files")
	watcher.events <- "assets/logo.svg"

	require.Eventually(t, func() bool { return len(builder.Calls()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []model.BuildTask{model.TaskAssets}, builder.Calls()[0])
}

func TestRebuild_RunsFullBuild(t *testing.T) {
	builder := &mockBuilder{}
	svc, _, reloader := startWatch(t, builder)

	err := svc.Rebuild(context.Background())

	require.NoError(t, err)
	calls := builder.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, model.FullBuild, calls[0])
	reloads, _ := reloader.counts()
	assert.Equal(t, 1, reloads)
}

func TestRebuild_ReturnsBuildError(t *testing.T) {
	builder := &mockBuilder{err: errors.New("boom")}
	svc, _, _ := startWatch(t, builder)

	err := svc.Rebuild(context.Background())

	require.EqualError(t, err, "boom")
}

func TestRebuild_ContextCanceledWithoutLoop(t *testing.T) {
	svc := application.NewWatchService(newMockWatcher(), &mockBuilder{}, &mockReloader{}, testWatchOptions())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := svc.Rebuild(ctx)

	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWatch_StopsWhenWatcherCloses(t *testing.T) {
	watcher := newMockWatcher()
	svc := application.NewWatchService(watcher, &mockBuilder{}, &mockReloader{}, testWatchOptions())

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Start(context.Background())
	}()
	close(watcher.events)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after the watcher closed")
	}
}
