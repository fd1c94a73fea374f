package platform

import (
	"log/slog"
	"strings"
)

// validateToolFilters logs a warning for every tools.allow or tools.deny
// entry that names no registered tool. Glob patterns are skipped.
// This helps catch stale entries after tool renames or removals.
func (p *Platform) validateToolFilters() {
	known := make(map[string]struct{})
	for _, name := range p.toolkitRegistry.AllTools() {
		known[name] = struct{}{}
	}
	known[infoToolName] = struct{}{}
	if p.auditLogger != nil {
		known[auditToolName] = struct{}{}
	}

	warnUnknown := func(field string, names []string) {
		for _, name := range names {
			if isGlob(name) {
				continue
			}
			if _, ok := known[name]; !ok {
				slog.Warn("tool filter references unknown tool",
					"field", field,
					"tool", name,
					"hint", "verify the tool name exists or remove the stale entry",
				)
			}
		}
	}

	warnUnknown("tools.allow", p.config.Tools.Allow)
	warnUnknown("tools.deny", p.config.Tools.Deny)
}

// isGlob reports whether s contains filepath.Match metacharacters.
func isGlob(s string) bool {
	return strings.ContainsAny(s, `*?[\`)
}
