// Package source implements the SourceStrategy variants (LocalSource,
// GitSource) and the SourceManager that owns them, per §4.2–§4.3.
package source

import "fmt"

// Kind distinguishes the two SourceStrategy variants.
type Kind string

const (
	KindGit   Kind = "git"
	KindLocal Kind = "local"
)

// Strategy is the common SourceStrategy contract (§4.2).
type Strategy interface {
	Kind() Kind
	URL() string
	Validate() bool
	Sync(targetDir string) error
}

// Watchable is implemented by strategies that can watch for changes once
// synced. LocalSource watches the filesystem and calls onChange once per
// changed file with its absolute path; GitSource polls the remote and
// calls onChange with an empty path to signal a bulk change. Both are
// stoppable via the returned stop func, which releases every OS handle
// before returning.
type Watchable interface {
	Watch(targetDir string, onChange func(path string)) (stop func(), err error)
}

// SyncError reports a failed sync after exhausting retries (§7), for
// GitSource, or a LocalSource failure to resolve or create the target
// directory; individual mirror copy failures are logged, not returned.
type SyncError struct {
	URL string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.URL, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// LoadError aggregates every user source's failure when none validated
// or synced successfully during SourceManager's initial load (§4.3).
type LoadError struct {
	Errors []error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("no source could be loaded (%d attempted)", len(e.Errors))
}
