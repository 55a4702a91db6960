package config

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/logger"
)

// ChangeCallback receives the paths changed since the last call.
type ChangeCallback func(changed []string)

// Watcher watches the configuration file and input paths and reports
// changes once they settle.
type Watcher struct {
	watcher        *fsnotify.Watcher
	log            *zap.SugaredLogger
	debouncePeriod time.Duration
	ignore         func(path string) bool

	mu            sync.Mutex
	callbacks     []ChangeCallback
	pending       map[string]bool
	debounceTimer *time.Timer
}

// DefaultDebounce is the quiet period before a batch of changes fires.
const DefaultDebounce = 500 * time.Millisecond

// NewWatcher watches every path. Directories are watched recursively;
// directories created later are added as they appear.
func NewWatcher(paths []string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		watcher:        fw,
		log:            logger.ComponentLogger("watch"),
		debouncePeriod: debounce,
		pending:        map[string]bool{},
	}
	for _, p := range paths {
		if err := w.add(p); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Ignore sets a filter for paths that never trigger, such as the output
// directory when it lives under an input.
func (w *Watcher) Ignore(fn func(path string) bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ignore = fn
}

// OnChange registers a callback.
func (w *Watcher) OnChange(cb ChangeCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

func (w *Watcher) add(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return errors.Wrapf(err, "failed to watch %s", p)
	}
	if !info.IsDir() {
		return errors.Wrapf(w.watcher.Add(p), "failed to watch %s", p)
	}
	return filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != p && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return errors.Wrapf(w.watcher.Add(path), "failed to watch %s", path)
	})
}

// Run processes events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warnw("Watcher error", logger.FieldError, err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if isBackupFile(event.Name) {
		return
	}
	w.mu.Lock()
	ignore := w.ignore
	w.mu.Unlock()
	if ignore != nil && ignore(event.Name) {
		return
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.add(event.Name); err != nil {
				w.log.Warnw("Failed to watch new directory", logger.FieldPath, event.Name, logger.FieldError, err)
			}
		}
	}
	w.log.Debugw("Change detected", logger.FieldPath, event.Name, "op", event.Op.String())
	w.schedule(event.Name)
}

// schedule debounces rapid changes into one callback.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debouncePeriod, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	w.pending = map[string]bool{}
	callbacks := append([]ChangeCallback(nil), w.callbacks...)
	w.mu.Unlock()

	sort.Strings(changed)
	for _, cb := range callbacks {
		cb(changed)
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// isBackupFile reports the rotating backups Save leaves behind.
func isBackupFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".back1" || ext == ".back2" || ext == ".back3"
}
