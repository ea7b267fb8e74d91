package command

import "strings"

// ResolveUsage returns the help text of the longest registered path prefix of
// the given path. Registering usage for ["a","b"] and ["a"] and resolving
// ["a","b","c"] yields the ["a","b"] text. Returns false when no registered
// prefix matches; callers print a generic "no usage available" fallback.
//
// Resolution is independent of command matching: the usage table is consulted
// on its own and never influences handler selection.
func (r *Registry) ResolveUsage(path []string) (string, bool) {
	r.usageMu.RLock()
	defer r.usageMu.RUnlock()

	for i := len(path); i > 0; i-- {
		if text, ok := r.usage[strings.Join(path[:i], " ")]; ok {
			return text, true
		}
	}
	// The empty prefix is legal: applications may register root usage text.
	if text, ok := r.usage[""]; ok {
		return text, true
	}
	return "", false
}
