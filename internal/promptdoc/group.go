package promptdoc

import (
	"path/filepath"
	"strings"
)

// RootGroup and CommonGroup are the two distinguished group names (§4.6).
const (
	RootGroup   = "root"
	CommonGroup = "common"
)

// GroupOf returns the first path segment of path relative to root, or
// RootGroup when the file sits directly under root.
func GroupOf(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return RootGroup
	}
	rel = filepath.ToSlash(rel)
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return RootGroup
}

// Allowed implements the group-filtering predicate from §4.6. activeGroups
// is the operator-configured MCP_GROUPS set (already including "common"
// when a system source is configured, per config.Load); isSystemSource
// additionally restricts system-source documents to the common group only.
func Allowed(group string, activeGroups map[string]bool, hasSystemSource, isSystemSource bool) bool {
	if isSystemSource {
		return group == CommonGroup
	}
	if group == RootGroup {
		return true
	}
	if group == CommonGroup {
		return hasSystemSource || activeGroups[CommonGroup]
	}
	return activeGroups[group]
}
