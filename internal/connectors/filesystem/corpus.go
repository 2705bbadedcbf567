// Package filesystem locates and watches the local document corpus.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sanad/internal/logger"
)

// DefaultDebounce is how long a file must stay quiet before it is reported.
const DefaultDebounce = 500 * time.Millisecond

// Corpus is a flat folder of documents. Subdirectories and hidden files are ignored.
type Corpus struct {
	root     string
	supports func(path string) bool
	debounce time.Duration
}

// New creates a corpus rooted at root. supports reports whether a file has a
// readable format; nil accepts every file.
func New(root string, supports func(path string) bool) *Corpus {
	if supports == nil {
		supports = func(string) bool { return true }
	}
	return &Corpus{
		root:     root,
		supports: supports,
		debounce: DefaultDebounce,
	}
}

// SetDebounce changes the watch debounce interval.
func (c *Corpus) SetDebounce(d time.Duration) {
	c.debounce = d
}

// Root returns the corpus directory.
func (c *Corpus) Root() string {
	return c.root
}

// Validate checks that the corpus directory exists.
func (c *Corpus) Validate() error {
	info, err := os.Stat(c.root)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("corpus directory does not exist: %s", c.root)
	}
	if err != nil {
		return fmt.Errorf("stat corpus directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("corpus path is not a directory: %s", c.root)
	}
	return nil
}

// List returns every supported document in the corpus directory, sorted.
func (c *Corpus) List(ctx context.Context) ([]string, error) {
	return c.listDir(ctx, c.root)
}

// Expand turns files, directories and glob patterns into a sorted,
// de-duplicated list of supported documents. An explicitly named file is
// kept even if unsupported, so that the caller can report it.
func (c *Corpus) Expand(ctx context.Context, patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}

	for _, pattern := range patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := os.Stat(pattern)
		switch {
		case err == nil && info.IsDir():
			files, err := c.listDir(ctx, pattern)
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				add(f)
			}
		case err == nil:
			add(pattern)
		default:
			matches, gerr := filepath.Glob(pattern)
			if gerr != nil {
				return nil, fmt.Errorf("bad pattern %q: %w", pattern, gerr)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no documents match %q: %w", pattern, err)
			}
			for _, m := range matches {
				if c.accept(m) {
					add(m)
				}
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (c *Corpus) listDir(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if c.accept(path) {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (c *Corpus) accept(path string) bool {
	if isHidden(filepath.Base(path)) {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return c.supports(path)
}

// Watch reports supported documents that were created or written, once
// each has been quiet for the debounce interval. The channel is closed when
// ctx is cancelled.
func (c *Corpus) Watch(ctx context.Context) (<-chan string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(c.root); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", c.root, err)
	}

	changes := make(chan string)
	go c.watchLoop(ctx, watcher, changes)
	return changes, nil
}

func (c *Corpus) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- string) {
	var (
		mu      sync.Mutex
		pending = make(map[string]*time.Timer)
		wg      sync.WaitGroup
		stop    = make(chan struct{})
	)
	defer func() {
		close(stop)
		mu.Lock()
		for _, t := range pending {
			if t.Stop() {
				wg.Done()
			}
		}
		mu.Unlock()
		wg.Wait()
		_ = watcher.Close()
		close(changes)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watch error: %v", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			path, ok := c.handleFsEvent(event)
			if !ok {
				continue
			}
			mu.Lock()
			if t, exists := pending[path]; exists && t.Stop() {
				wg.Done()
			}
			wg.Add(1)
			pending[path] = time.AfterFunc(c.debounce, func() {
				defer wg.Done()
				mu.Lock()
				delete(pending, path)
				mu.Unlock()
				select {
				case changes <- path:
				case <-stop:
				}
			})
			mu.Unlock()
		}
	}
}

// handleFsEvent returns the document path affected by event, if it should be re-ingested.
func (c *Corpus) handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if !c.accept(event.Name) {
		return "", false
	}
	return event.Name, true
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && part[0] == '.' && part != ".." {
			return true
		}
	}
	return false
}
