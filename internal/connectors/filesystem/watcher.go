package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/codexai/internal/connectors"
	"github.com/custodia-labs/codexai/internal/logger"
)

// DefaultDebounce is the quiet period before a batch of changes is emitted.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports changed files under a directory tree.
type Watcher struct {
	root   string
	filter *connectors.Filter
	delay  time.Duration

	mu      sync.Mutex
	pending map[string]bool
	closed  bool
}

// NewWatcher creates a watcher for root using the same ignore rules as
// Reader. delay <= 0 selects DefaultDebounce.
func NewWatcher(root string, opts Options, delay time.Duration) *Watcher {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Watcher{
		root:    root,
		filter:  connectors.NewFilter(opts.MaxFileBytes, opts.Ignore...),
		delay:   delay,
		pending: make(map[string]bool),
	}
}

// Watch starts watching. Each value sent is the sorted set of relative
// paths changed since the previous one, emitted once no event arrived for
// the debounce delay. The channel is closed after ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context) (<-chan []string, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.addTree(fw, w.root); err != nil {
		_ = fw.Close()
		return nil, err
	}

	out := make(chan []string)
	debounced := debounce.New(w.delay)
	flush := func() { w.flush(ctx, out) }

	go func() {
		defer func() {
			_ = fw.Close()
			w.mu.Lock()
			w.closed = true
			close(out)
			w.mu.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if w.isNewDir(event) {
					if err := w.addTree(fw, event.Name); err != nil {
						logger.Warn("watch %s: %v", event.Name, err)
					}
					continue
				}
				if rel, ok := w.handleEvent(event); ok {
					w.mu.Lock()
					w.pending[rel] = true
					w.mu.Unlock()
					debounced(flush)
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				logger.Warn("watch error: %v", err)
			}
		}
	}()

	return out, nil
}

// flush sends the pending set. The lock is held while sending so the
// channel cannot be closed underneath.
func (w *Watcher) flush(ctx context.Context, out chan<- []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || len(w.pending) == 0 {
		return
	}

	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	select {
	case out <- paths:
		w.pending = make(map[string]bool)
	case <-ctx.Done():
	}
}

// handleEvent returns the relative path of a relevant file event.
func (w *Watcher) handleEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return "", false
	}

	rel, err := relative(w.root, event.Name)
	if err != nil || rel == "." || isHidden(rel) {
		return "", false
	}
	if w.filter.Ignored(rel, false) || !connectors.IsCodeFile(rel) {
		return "", false
	}
	return rel, true
}

func (w *Watcher) isNewDir(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) {
		return false
	}
	info, err := os.Stat(event.Name)
	return err == nil && info.IsDir()
}

// addTree watches dir and every non-ignored directory below it; fsnotify
// is not recursive.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := relative(w.root, p)
		if err != nil {
			return err
		}
		if rel != "." && (isHidden(rel) || w.filter.Ignored(rel, true)) {
			return filepath.SkipDir
		}
		if err := fw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", rel, err)
		}
		return nil
	})
}
