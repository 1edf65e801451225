// Package watch reports page files changed on disk outside the editor.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ziadkadry99/pagedit/internal/debounce"
)

// DefaultDelay collapses the burst of events a single save produces.
const DefaultDelay = 250 * time.Millisecond

// Handler is called with the site-relative path of a changed page.
type Handler func(pageID string)

// Options configures a Watcher.
type Options struct {
	Root string
	// Match selects the site-relative paths that are pages; nil matches all.
	Match func(relPath string) bool
	Delay time.Duration
	Clock debounce.Clock
}

// Watcher watches a site root recursively.
type Watcher struct {
	opts     Options
	root     string
	onChange Handler
	fw       *fsnotify.Watcher
	log      *zap.Logger

	mu      sync.Mutex
	pending map[string]*debounce.Task
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates a watcher for opts.Root and every directory below it.
func New(opts Options, onChange Handler, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Match == nil {
		opts.Match = func(string) bool { return true }
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving watch root: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		opts:     opts,
		root:     root,
		onChange: onChange,
		fw:       fw,
		log:      log.Named("watch"),
		pending:  make(map[string]*debounce.Task),
		done:     make(chan struct{}),
	}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Start begins delivering changes in the background.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Close stops the watcher and drops undelivered changes.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.fw.Close()
	w.wg.Wait()

	w.mu.Lock()
	for _, t := range w.pending {
		t.Cancel()
	}
	w.pending = nil
	w.mu.Unlock()
	return err
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fw.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.log.Debug("Cannot watch new directory", zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	rel = filepath.ToSlash(rel)
	if !w.opts.Match(rel) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return
	}
	t, ok := w.pending[rel]
	if !ok {
		t = debounce.NewTask(w.opts.Clock, w.opts.Delay)
		w.pending[rel] = t
	}
	t.Schedule(func() {
		w.log.Debug("Page changed on disk", zap.String("page", rel))
		w.onChange(rel)
	})
}
