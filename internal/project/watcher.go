package project

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the project directory for changes made outside this
// process and invalidates the affected cache entries, the same shape the
// teacher's indexing file watcher uses: an fsnotify.Watcher plus a
// context-cancellable event loop (spec §4 "Project container ... owns ...
// the file-system watcher").
type Watcher struct {
	fsw     *fsnotify.Watcher
	project *Project
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewWatcher creates a watcher for p's on-disk tree without starting it.
func NewWatcher(p *Project) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{fsw: fsw, project: p}, nil
}

// Start adds a watch on every directory under the project's card root and
// .cards tree, then runs the event loop until ctx is cancelled or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	if err := w.addWatches(w.project.Root); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Stop tears down the watcher and waits for its event loop to exit.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) addWatches(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if shouldSkipDir(path) {
			return filepath.SkipDir
		}
		_ = w.fsw.Add(path)
		return nil
	})
}

// shouldSkipDir excludes the edit-session worktrees and calc scratch space,
// which churn independently of the card/resource tree and are not
// meaningful to the resource/card caches.
func shouldSkipDir(path string) bool {
	base := filepath.Base(path)
	return base == "edit-sessions" || base == ".calc" || base == ".git"
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !shouldSkipDir(event.Name) {
			_ = w.fsw.Add(event.Name)
		}
	}

	switch {
	case strings.Contains(event.Name, string(filepath.Separator)+"cardRoot"+string(filepath.Separator)) || filepath.Dir(event.Name) == filepath.Join(w.project.Root, "cardRoot"):
		w.project.handleCardFileChange(event.Name)
	default:
		w.project.Resources.HandleFileSystemChange(event.Name)
	}
}
