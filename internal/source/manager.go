package source

import (
	"fmt"
	"log/slog"
)

// UserSource pairs a Strategy with its configured ascending priority
// (lower runs earlier) for SourceManager's initial-load ordering.
type UserSource struct {
	Priority int
	Strategy Strategy
}

// Manager owns the prioritised user sources, the optional system
// source, and the lifecycle of whichever watcher/poller the active
// source provides (§4.3).
type Manager struct {
	users        []UserSource
	system       Strategy
	targetDir    string
	systemDir    string
	log          *slog.Logger

	active    Strategy
	stopWatch func()
	stopSys   func()
}

// New constructs a Manager. targetDir is the directory the active user
// source syncs into; the system source (if any) syncs into a sibling
// directory, targetDir + "_system".
func New(users []UserSource, system Strategy, targetDir string, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		users:     users,
		system:    system,
		targetDir: targetDir,
		systemDir: targetDir + "_system",
		log:       log,
	}
}

// Active returns the source selected as active by Load, or nil before
// Load has run.
func (m *Manager) Active() Strategy { return m.active }

// TargetDir is the directory the active source was synced into.
func (m *Manager) TargetDir() string { return m.targetDir }

// SystemDir is the directory the system source was synced into, valid
// only when a system source is configured.
func (m *Manager) SystemDir() string { return m.systemDir }

// HasSystemSource reports whether a system source is configured.
func (m *Manager) HasSystemSource() bool { return m.system != nil }

// Load runs the initial sync algorithm from §4.3: try each user source
// in priority order, stopping at the first that validates and syncs
// successfully; then best-effort sync the system source.
func (m *Manager) Load() error {
	ordered := orderByPriority(m.users)
	var errs []error
	for _, u := range ordered {
		if !u.Strategy.Validate() {
			errs = append(errs, fmt.Errorf("%s: failed validation", u.Strategy.URL()))
			continue
		}
		if err := u.Strategy.Sync(m.targetDir); err != nil {
			errs = append(errs, err)
			continue
		}
		m.active = u.Strategy
		break
	}
	if m.active == nil {
		return &LoadError{Errors: errs}
	}

	if m.system != nil {
		if !m.system.Validate() {
			m.log.Warn("system source failed validation, proceeding without it", "url", m.system.URL())
		} else if err := m.system.Sync(m.systemDir); err != nil {
			m.log.Warn("system source sync failed, proceeding without it", "url", m.system.URL(), "err", err)
		}
	}
	return nil
}

func orderByPriority(users []UserSource) []UserSource {
	out := make([]UserSource, len(users))
	copy(out, users)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Priority < out[j-1].Priority; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// StartWatch starts the active source's (and, if configured, the system
// source's) variant-specific watch/poll, per §4.3. onChange is called
// with an absolute file path for per-file changes (LocalSource) or with
// an empty string for bulk changes (GitSource and the system source).
// A source that isn't Watchable is not watched; the system source's
// watch is still started when the active source has none.
func (m *Manager) StartWatch(onChange func(path string)) error {
	if w, ok := m.active.(Watchable); ok {
		stop, err := w.Watch(m.targetDir, onChange)
		if err != nil {
			return fmt.Errorf("watch active source: %w", err)
		}
		m.stopWatch = stop
	}
	if m.system != nil {
		if w, ok := m.system.(Watchable); ok {
			stop, err := w.Watch(m.systemDir, func(string) { onChange("") })
			if err != nil {
				m.log.Warn("watch system source failed", "err", err)
			} else {
				m.stopSys = stop
			}
		}
	}
	return nil
}

// StopWatch releases every watcher/poller started by StartWatch. Safe to
// call even if StartWatch was never called or watching wasn't
// supported.
func (m *Manager) StopWatch() {
	if m.stopWatch != nil {
		m.stopWatch()
		m.stopWatch = nil
	}
	if m.stopSys != nil {
		m.stopSys()
		m.stopSys = nil
	}
}

// SwitchActive replaces the active source and re-runs Sync against the
// existing target directory, for the `switch_source` control tool
// (§9 design notes: unify switch_source with the strategy-based path).
func (m *Manager) SwitchActive(s Strategy) error {
	if !s.Validate() {
		return fmt.Errorf("source %s failed validation", s.URL())
	}
	if err := s.Sync(m.targetDir); err != nil {
		return err
	}
	m.StopWatch()
	m.active = s
	return nil
}
