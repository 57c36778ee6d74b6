package promptdoc

import "regexp"

// partialRefPattern matches a Handlebars partial reference, {{> name }},
// tolerating surrounding whitespace (§4.4 step 4).
var partialRefPattern = regexp.MustCompile(`\{\{\s*>\s*([A-Za-z0-9_-]+)\s*\}\}`)

// ExtractPartialRefs returns the set of partial names referenced by a
// template body, deduplicated, in first-seen order.
func ExtractPartialRefs(template string) []string {
	matches := partialRefPattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
