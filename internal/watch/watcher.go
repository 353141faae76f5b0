// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs workspace checks when module sources change.
//
// Events are coalesced over a quiet period so one editor save, or a branch
// switch touching hundreds of files, yields a single re-run.
package watch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const defaultQuiet = 500 * time.Millisecond

var (
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watcher already running")

	// DefaultSources select what can change a check outcome: module sources,
	// checker configuration and workspace descriptors.
	DefaultSources = []string{
		"**/*.java",
		"**/*.kt",
		"**/*.xml",
		"**/*.cue",
		"**/*.properties",
		"**/*.toml",
	}

	// alwaysIgnored are build outputs (including the reports the gate reads)
	// and tool caches. Watching them would re-trigger on every run.
	alwaysIgnored = []string{
		"**/.git/**",
		"**/.gradle/**",
		"**/.idea/**",
		"**/build/**",
		"**/*.swp",
		"**/*~",
	}
)

type (
	// ChangeFunc receives the sorted workspace-relative paths that changed.
	ChangeFunc func(ctx context.Context, changed []string) error

	// Options configure a Watcher.
	Options struct {
		// Root is the workspace root.
		Root string
		// Sources are doublestar patterns relative to Root; empty selects
		// DefaultSources.
		Sources []string
		// Ignore extends the built-in ignore list.
		Ignore []string
		// Quiet is how long no event must arrive before OnChange fires.
		Quiet    time.Duration
		OnChange ChangeFunc
		Logger   *log.Logger
	}

	// Watcher monitors a workspace tree. Run may be called once.
	Watcher struct {
		root     string
		sources  []string
		ignore   []string
		quiet    time.Duration
		onChange ChangeFunc
		logger   *log.Logger
		fsw      *fsnotify.Watcher
		started  atomic.Bool
	}
)

// New validates the patterns and registers every non-ignored directory
// under Root.
func New(opts Options) (*Watcher, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	sources := opts.Sources
	if len(sources) == 0 {
		sources = DefaultSources
	}
	for _, p := range slices.Concat(sources, opts.Ignore) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid watch pattern %q", p)
		}
	}
	w := &Watcher{
		root:     root,
		sources:  slices.Clone(sources),
		ignore:   slices.Concat(alwaysIgnored, opts.Ignore),
		quiet:    opts.Quiet,
		onChange: opts.OnChange,
		logger:   opts.Logger,
	}
	if w.quiet <= 0 {
		w.quiet = defaultQuiet
	}
	if w.logger == nil {
		w.logger = log.Default()
	}

	w.fsw, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := w.addTree(root); err != nil {
		_ = w.fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run dispatches coalesced changes until ctx is done. Changes arriving
// while OnChange is still running are kept and delivered afterwards.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("closing file watcher", "err", err)
		}
	}()

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		busy    atomic.Bool
		timer   *time.Timer
	)
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !busy.CompareAndSwap(false, true) {
			mu.Lock()
			timer.Reset(w.quiet)
			mu.Unlock()
			return
		}
		defer busy.Store(false)

		mu.Lock()
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()
		if len(changed) == 0 || w.onChange == nil {
			return
		}
		w.logger.Info("sources changed", "files", len(changed))
		if err := w.onChange(ctx, changed); err != nil {
			w.logger.Warn("re-run failed", "err", err)
		}
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("file watcher event stream closed")
			}
			rel := w.relative(evt.Name)
			if w.ignored(rel) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
					if err := w.addTree(evt.Name); err != nil {
						w.logger.Warn("watching new directory", "dir", rel, "err", err)
					}
					continue
				}
			}
			if !w.Matches(rel) {
				continue
			}
			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.quiet, fire)
			} else {
				timer.Reset(w.quiet)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("file watcher error stream closed")
			}
			if isFatalWatchError(err) {
				return fmt.Errorf("file watcher exhausted: %w", err)
			}
			w.logger.Warn("file watcher", "err", err)
		}
	}
}

// Matches reports whether a workspace-relative path is a watched source.
func (w *Watcher) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	if w.ignored(rel) {
		return false
	}
	for _, p := range w.sources {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Debug("skipping unreadable path", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel := w.relative(path); rel != "." && (w.ignored(rel) || w.ignored(rel+"/")) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) relative(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) ignored(rel string) bool {
	for _, p := range w.ignore {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
