package source

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// excludedDirs is the lowercased basename set LocalSource.Sync skips
// when mirroring (§4.2).
var excludedDirs = map[string]bool{
	".git": true, "node_modules": true, ".ds_store": true, ".vscode": true,
	".idea": true, "dist": true, "build": true, ".next": true, ".nuxt": true,
	".cache": true, "coverage": true, ".nyc_output": true,
}

const (
	watchDebounce  = 300 * time.Millisecond
	watchPollEvery = 100 * time.Millisecond
)

// LocalSource mirrors (or direct-reads) a prompt repository that already
// exists on the local filesystem.
type LocalSource struct {
	path string
	log  *slog.Logger
}

// NewLocal constructs a LocalSource rooted at path.
func NewLocal(path string, log *slog.Logger) *LocalSource {
	if log == nil {
		log = slog.Default()
	}
	return &LocalSource{path: path, log: log}
}

func (s *LocalSource) Kind() Kind { return KindLocal }
func (s *LocalSource) URL() string { return s.path }

// Validate reports whether the configured path exists and is a
// directory.
func (s *LocalSource) Validate() bool {
	info, err := os.Stat(s.path)
	return err == nil && info.IsDir()
}

// Sync mirrors s.path into targetDir, or is a no-op when they already
// resolve to the same directory ("direct read mode", §4.2).
func (s *LocalSource) Sync(targetDir string) error {
	src, err := filepath.Abs(s.path)
	if err != nil {
		return &SyncError{URL: s.path, Err: err}
	}
	dst, err := filepath.Abs(targetDir)
	if err != nil {
		return &SyncError{URL: s.path, Err: err}
	}
	if src == dst {
		return nil
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return &SyncError{URL: s.path, Err: err}
	}
	return s.mirror(src, dst)
}

func (s *LocalSource) mirror(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			s.log.Warn("mirror walk failed", "path", path, "err", err)
			return nil
		}
		base := strings.ToLower(d.Name())
		if d.IsDir() {
			if path != src && excludedDirs[base] {
				return filepath.SkipDir
			}
			return nil
		}
		if excludedDirs[base] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			s.log.Warn("mirror stat failed", "path", path, "err", err)
			return nil
		}
		if !info.Mode().IsRegular() {
			s.log.Warn("mirror skipping non-regular file", "path", path)
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			s.log.Warn("mirror rel failed", "path", path, "err", err)
			return nil
		}
		if err := copyFile(path, filepath.Join(dst, rel)); err != nil {
			s.log.Warn("mirror copy failed", "path", path, "err", err)
		}
		return nil
	})
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src) // #nosec G304 -- src comes from a WalkDir under a caller-configured root
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst) // #nosec G304 -- dst is derived from the same caller-configured root
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// Watch subscribes to create/write/remove/rename events under watchDir,
// filtered to .yaml/.yml files, debouncing per path with a 300ms
// stability window and a 100ms poll. onChange receives the absolute
// file path. The returned stop func releases the fsnotify handle and
// waits for the internal goroutine to exit.
func (s *LocalSource) Watch(watchDir string, onChange func(path string)) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify watcher: %w", err)
	}
	if err := addRecursive(watcher, watchDir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("fsnotify add %s: %w", watchDir, err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		pending := map[string]time.Time{}
		ticker := time.NewTicker(watchPollEvery)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isYAML(ev.Name) {
					continue
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				abs, err := filepath.Abs(ev.Name)
				if err != nil {
					abs = ev.Name
				}
				pending[abs] = time.Now()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn("fsnotify error", "err", err)
			case <-ticker.C:
				now := time.Now()
				for path, seen := range pending {
					if now.Sub(seen) >= watchDebounce {
						delete(pending, path)
						onChange(path)
					}
				}
			}
		}
	}()

	stop := func() {
		close(done)
		_ = watcher.Close()
		wg.Wait()
	}
	return stop, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			base := strings.ToLower(d.Name())
			if path != root && excludedDirs[base] {
				return filepath.SkipDir
			}
			return w.Add(path)
		}
		return nil
	})
}
