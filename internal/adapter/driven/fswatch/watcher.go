// Package fswatch implements the FileWatcher port with fsnotify, watching a
// directory tree recursively.
package fswatch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/ericfisherdev/htmlmgr/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.FileWatcher = (*Watcher)(nil)

// Watcher reports changed file paths below a root directory. Directories
// created after the watcher started are watched as well; files already
// inside them when they are picked up are reported as changed.
type Watcher struct {
	fsw    *fsnotify.Watcher
	events chan string
	errs   chan error
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// New starts watching root and every directory below it. Hidden directories
// are skipped. Reported paths are absolute even when root is relative.
func New(root string) (*Watcher, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		fsw:    fsw,
		events: make(chan string),
		errs:   make(chan error),
		done:   make(chan struct{}),
	}
	if err := w.addTree(root, nil); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Events returns the channel of changed paths. It is closed by Close.
func (w *Watcher) Events() <-chan string { return w.events }

// Errors returns the channel of watch errors. It is closed by Close.
func (w *Watcher) Errors() <-chan error { return w.errs }

// Close stops watching and closes the event and error channels.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	defer close(w.events)
	defer close(w.errs)

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}

			var found []string
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name, &found); err != nil {
						slog.Warn("failed to watch new directory", "path", ev.Name, "error", err)
					}
				}
			}

			if !w.send(ev.Name) {
				return
			}
			for _, p := range found {
				if !w.send(p) {
					return
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			case <-w.done:
				return
			}
		}
	}
}

func (w *Watcher) send(p string) bool {
	select {
	case w.events <- p:
		return true
	case <-w.done:
		return false
	}
}

// addTree watches root and its subdirectories. When found is non-nil, the
// regular files encountered are appended to it.
func (w *Watcher) addTree(root string, found *[]string) error {
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if found != nil {
				*found = append(*found, p)
			}
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
