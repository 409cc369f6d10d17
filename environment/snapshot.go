package environment

import (
	"sort"
	"strings"
)

// Snapshot is an immutable copy of a process environment. It is taken once at
// startup; every environment handed to a child is derived from it.
type Snapshot struct {
	vars map[string]string
}

// NewSnapshot builds a Snapshot from KEY=VALUE pairs as returned by
// os.Environ. Later duplicates win, matching how the OS resolves them.
// Entries without '=' are ignored.
func NewSnapshot(environ []string) Snapshot {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		vars[key] = value
	}
	return Snapshot{vars: vars}
}

// Lookup returns the value of key and whether it was present.
func (s Snapshot) Lookup(key string) (string, bool) {
	value, ok := s.vars[key]
	return value, ok
}

// Get returns the value of key, or "" if it is not set.
func (s Snapshot) Get(key string) string {
	return s.vars[key]
}

// Len returns the number of variables in the snapshot.
func (s Snapshot) Len() int {
	return len(s.vars)
}

// Environ returns the snapshot as sorted KEY=VALUE pairs.
func (s Snapshot) Environ() []string {
	return s.With(nil)
}

// With returns the snapshot as sorted KEY=VALUE pairs with overrides applied
// on top. The snapshot itself is left untouched.
func (s Snapshot) With(overrides map[string]string) []string {
	merged := make(map[string]string, len(s.vars)+len(overrides))
	for key, value := range s.vars {
		merged[key] = value
	}
	for key, value := range overrides {
		merged[key] = value
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, key+"="+merged[key])
	}
	return out
}
