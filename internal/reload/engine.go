// Package reload implements the ReloadEngine: the bulk and single-file
// reload operations at the heart of the system (§4.8).
package reload

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/singleflight"

	"github.com/kvanta-dev/promptmesh/internal/filecache"
	"github.com/kvanta-dev/promptmesh/internal/hbtemplate"
	"github.com/kvanta-dev/promptmesh/internal/partials"
	"github.com/kvanta-dev/promptmesh/internal/promptdoc"
	"github.com/kvanta-dev/promptmesh/internal/runtimestate"
	"github.com/kvanta-dev/promptmesh/internal/source"
	"github.com/kvanta-dev/promptmesh/internal/toolregistry"
)

// FileError pairs a file path with the message produced while loading
// it, for the {loaded, errors} result shape of fullReload (§4.8 step 10).
type FileError struct {
	File    string
	Message string
}

// Result is fullReload's or singleReload's outcome.
type Result struct {
	Loaded int
	Errors []FileError
}

// ToolBinder builds the mcp.Tool definition and invocation handler for
// one eligible runtime. Supplied by the composition root (internal/
// server's bindPromptTool); keeping it as a single
// function value here means the reload engine never needs to know
// anything about control's tool catalogue.
type ToolBinder func(rt promptdoc.Runtime, tpl *hbtemplate.Template, schemas []promptdoc.ArgSchema) (mcp.Tool, toolregistry.HandlerFunc)

// compiled pairs a parsed-and-classified document with its compiled
// template and argument schema, keyed internally by file path so
// ranking (which only needs Runtime/FilePath/IsSystemSource) and
// registration (which additionally needs the compiled artifacts) can
// share one pass over the filesystem.
type compiled struct {
	tpl     *hbtemplate.Template
	schemas []promptdoc.ArgSchema
}

// Engine is the ReloadEngine (§4.8). It serialises fullReload and
// singleReload through one lock, coalesces concurrent fullReload calls
// via singleflight, and owns the PartialRegistry and RuntimeState Store.
type Engine struct {
	sources  *source.Manager
	cache    *filecache.Cache
	partials *partials.Registry
	store    *runtimestate.Store
	registry toolregistry.Registry
	binder   ToolBinder
	groups   map[string]bool
	log      *slog.Logger

	mu sync.Mutex
	sf singleflight.Group
}

// New constructs an Engine. binder builds the mcp.Tool + handler pair
// for one eligible runtime.
func New(sm *source.Manager, cache *filecache.Cache, pr *partials.Registry, st *runtimestate.Store, reg toolregistry.Registry, binder ToolBinder, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{sources: sm, cache: cache, partials: pr, store: st, registry: reg, binder: binder, log: log}
}

// WithActiveGroups configures the group set used for filtering (§4.6).
// Must be called before the first reload.
func (e *Engine) WithActiveGroups(groups map[string]bool) *Engine {
	e.groups = groups
	return e
}

// FullReload implements §4.8's fullReload: sync, invalidate cache,
// rebuild partials, parse+classify+compile every eligible document,
// rank, dual-swap register/remove, and atomically replace RuntimeState.
// Concurrent callers coalesce into one in-flight call via singleflight
// (step 1's re-entrancy protection).
func (e *Engine) FullReload() (Result, error) {
	v, err, _ := e.sf.Do("full", func() (any, error) {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.fullReloadLocked()
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (e *Engine) fullReloadLocked() (Result, error) {
	active := e.sources.Active()
	if active == nil {
		return Result{}, fmt.Errorf("reload: no active source")
	}
	if err := active.Sync(e.sources.TargetDir()); err != nil {
		return Result{}, fmt.Errorf("reload: %w", err)
	}

	e.cache.Invalidate(e.sources.TargetDir())
	if e.sources.HasSystemSource() {
		e.cache.Invalidate(e.sources.SystemDir())
	}

	newPartials := e.loadPartials(e.sources.TargetDir())
	if e.sources.HasSystemSource() {
		for k, v := range e.loadPartials(e.sources.SystemDir()) {
			newPartials[k] = v
		}
	}
	e.partials.Replace(newPartials)

	var fileErrs []FileError
	byFile := map[string]compiled{}

	userItems, userErrs := e.loadEligible(e.sources.TargetDir(), false, byFile)
	fileErrs = append(fileErrs, userErrs...)

	var systemItems []promptdoc.RankItem
	if e.sources.HasSystemSource() {
		items, errs := e.loadEligible(e.sources.SystemDir(), true, byFile)
		systemItems = items
		fileErrs = append(fileErrs, errs...)
	}

	all := append(append([]promptdoc.RankItem{}, userItems...), systemItems...)
	winners := promptdoc.ResolveWinners(userItems, systemItems)
	winnerIDs := make(map[string]bool, len(winners))
	for _, w := range winners {
		winnerIDs[w.Runtime.ID] = true
	}

	newRuntimes := make(map[string]promptdoc.Runtime, len(all))
	newByFile := make(map[string]string, len(all))
	for _, it := range all {
		// Shadow entries: a runtime whose id has no tool winner is kept,
		// warning/invalid/disabled states included, so RuntimeState still
		// shows it. For an id that has a winner only the winner's entry is
		// kept; its non-winning duplicates are not recorded. The Store
		// holds one runtime per id, so among several non-winning files
		// sharing an id the last one scanned is kept.
		if winnerIDs[it.Runtime.ID] && it.Runtime.ID != "" {
			continue
		}
		newRuntimes[it.Runtime.ID] = it.Runtime
		newByFile[it.FilePath] = it.Runtime.ID
	}
	for _, w := range winners {
		newRuntimes[w.Runtime.ID] = w.Runtime
		newByFile[w.FilePath] = w.Runtime.ID
	}

	newHandles := make(map[string]toolregistry.Handle, len(winners))
	for _, w := range winners {
		if !w.Runtime.IsToolEligible() {
			continue
		}
		c, ok := byFile[w.FilePath]
		if !ok || c.tpl == nil {
			continue
		}
		c.tpl.WithPartials(e.partials)
		def, handler := e.binder(w.Runtime, c.tpl, c.schemas)
		handle := e.registry.Register(w.Runtime.ID, def, handler)
		newHandles[w.Runtime.ID] = handle
	}

	prev := e.store.Snap()
	e.store.ReplaceAll(newRuntimes, newByFile, newHandles)

	for id, oldHandle := range prev.Handles {
		if _, stillLive := newHandles[id]; !stillLive {
			oldHandle.Remove()
		}
	}

	return Result{Loaded: len(newRuntimes), Errors: fileErrs}, nil
}

// SingleReload implements §4.8's singleReload: the LocalSource per-file
// fast path. Any failure falls back to a full reload.
func (e *Engine) SingleReload(filePath string) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if handle, ok := e.store.RemoveByFile(filePath); ok && handle != nil {
			handle.Remove()
		}
		return Result{Loaded: 0}, nil
	}

	dir := e.dirForFile(filePath)
	if dir == "" {
		return e.fullReloadLocked()
	}
	isSystem := e.sources.HasSystemSource() && dir == e.sources.SystemDir()
	group := promptdoc.GroupOf(dir, filePath)
	if !promptdoc.Allowed(group, e.groups, e.sources.HasSystemSource(), isSystem) {
		return e.fullReloadLocked()
	}

	data, err := os.ReadFile(filePath) // #nosec G304 -- filePath is reported by our own fsnotify watch under a configured root
	if err != nil {
		return e.fullReloadLocked()
	}
	doc, err := promptdoc.ParseDocument(filePath, data)
	if err != nil {
		return e.fullReloadLocked()
	}

	classified := promptdoc.Classify(filePath, doc)
	classified.Runtime.Group = group
	classified.Runtime.LoadedAt = nowNanos()

	regPath := filepath.Join(dir, "registry.yaml")
	if regDoc, rerr := promptdoc.LoadRegistry(regPath); rerr == nil {
		classified.Runtime = promptdoc.Overlay(classified.Runtime, regDoc.ByID())
	} else if !os.IsNotExist(rerr) {
		return e.fullReloadLocked()
	}

	// Eligibility is only final once the registry overlay has run (§4.5);
	// compile against the post-overlay state, not the pre-overlay one.
	var tpl *hbtemplate.Template
	if classified.Runtime.IsToolEligible() {
		compiledTpl, cerr := hbtemplate.Compile(filePath, doc.Template)
		if cerr != nil {
			return e.fullReloadLocked()
		}
		tpl = compiledTpl
	}

	var handle toolregistry.Handle
	if tpl != nil {
		tpl.WithPartials(e.partials)
		def, handler := e.binder(classified.Runtime, tpl, classified.ArgSchemas)
		handle = e.registry.Register(classified.Runtime.ID, def, handler)
	}

	if prevHandle, ok := e.store.Handle(classified.Runtime.ID); ok && prevHandle != nil && handle == nil {
		prevHandle.Remove()
	}
	e.store.SetOne(filePath, classified.Runtime, handle)

	return Result{Loaded: 1}, nil
}

func (e *Engine) dirForFile(filePath string) string {
	if within(e.sources.TargetDir(), filePath) {
		return e.sources.TargetDir()
	}
	if e.sources.HasSystemSource() && within(e.sources.SystemDir(), filePath) {
		return e.sources.SystemDir()
	}
	return ""
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && !strings.HasPrefix(rel, "..")
}

// loadPartials scans dir for .hbs files and returns name (basename
// without extension) -> raw source, per §4.8 step 4.
func (e *Engine) loadPartials(dir string) map[string]string {
	out := map[string]string{}
	files, err := e.cache.List(dir, true)
	if err != nil {
		e.log.Warn("partial scan failed", "dir", dir, "err", err)
		return out
	}
	for _, f := range files {
		if strings.ToLower(filepath.Ext(f)) != ".hbs" {
			continue
		}
		data, err := os.ReadFile(f) // #nosec G304 -- f comes from a FileCache.List scan under a configured root
		if err != nil {
			e.log.Warn("partial read failed", "file", f, "err", err)
			continue
		}
		name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		out[name] = string(data)
	}
	return out
}

func (e *Engine) loadEligible(dir string, isSystem bool, byFile map[string]compiled) ([]promptdoc.RankItem, []FileError) {
	var items []promptdoc.RankItem
	var errs []FileError

	files, err := e.cache.List(dir, true)
	if err != nil {
		errs = append(errs, FileError{File: dir, Message: err.Error()})
		return nil, errs
	}

	registryPath := filepath.Join(dir, "registry.yaml")
	var regEntries map[string]promptdoc.RegistryEntry
	if doc, err := promptdoc.LoadRegistry(registryPath); err == nil {
		regEntries = doc.ByID()
	} else if !os.IsNotExist(err) {
		e.log.Warn("registry.yaml unparseable, treated as absent", "file", registryPath, "err", err)
	}

	hasSystem := e.sources.HasSystemSource()
	for _, f := range files {
		if promptdoc.ShouldSkipFile(f) {
			continue
		}
		group := promptdoc.GroupOf(dir, f)
		if !promptdoc.Allowed(group, e.groups, hasSystem, isSystem) {
			continue
		}

		data, err := os.ReadFile(f) // #nosec G304 -- f comes from a FileCache.List scan under a configured root
		if err != nil {
			errs = append(errs, FileError{File: f, Message: err.Error()})
			continue
		}
		doc, err := promptdoc.ParseDocument(f, data)
		if err != nil {
			errs = append(errs, FileError{File: f, Message: err.Error()})
			continue
		}

		classified := promptdoc.Classify(f, doc)
		classified.Runtime.Group = group
		classified.Runtime.LoadedAt = nowNanos()

		if regEntries != nil {
			classified.Runtime = promptdoc.Overlay(classified.Runtime, regEntries)
		}

		// Eligibility is only final once the registry overlay has had a
		// chance to promote a warning document to active (§4.5): compile
		// against the post-overlay state, not the pre-overlay one.
		var tpl *hbtemplate.Template
		if classified.Runtime.IsToolEligible() {
			tc, cerr := hbtemplate.Compile(f, doc.Template)
			if cerr != nil {
				errs = append(errs, FileError{File: f, Message: cerr.Error()})
				classified.Runtime.RuntimeState = promptdoc.StateInvalid
			} else {
				tpl = tc
			}
		}

		item := promptdoc.RankItem{
			Runtime:        classified.Runtime,
			FilePath:       f,
			IsSystemSource: isSystem,
		}
		items = append(items, item)
		byFile[f] = compiled{tpl: tpl, schemas: classified.ArgSchemas}
	}
	return items, errs
}

func nowNanos() int64 {
	return time.Now().UnixNano()
}
