package admission

import "strings"

// PathSet is an immutable set of public path patterns. A pattern ending in
// "/" matches every path starting with it; any other pattern matches only
// itself.
type PathSet struct {
	exact    map[string]struct{}
	prefixes []string
}

// NewPathSet builds a PathSet from patterns. Order is preserved for prefixes.
func NewPathSet(patterns []string) PathSet {
	ps := PathSet{exact: make(map[string]struct{}, len(patterns))}
	for _, p := range patterns {
		if strings.HasSuffix(p, "/") {
			ps.prefixes = append(ps.prefixes, p)
		} else {
			ps.exact[p] = struct{}{}
		}
	}
	return ps
}

// Match reports whether path is public.
func (ps PathSet) Match(path string) bool {
	if _, ok := ps.exact[path]; ok {
		return true
	}
	for _, p := range ps.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
