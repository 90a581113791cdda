// Package env composes the environment handed to spawned workers: the
// primary's own environment as the base, configured global overrides on top,
// and per-worker entries such as the role marker last.
package env

import (
	"os"
	"strings"
)

// Env accumulates overrides on top of a base environment snapshot.
type Env struct {
	base      []string
	overrides map[string]string
}

// New captures the current process environment as the base.
func New() *Env {
	return &Env{base: os.Environ(), overrides: make(map[string]string)}
}

// Set adds or replaces a global override.
func (e *Env) Set(k, v string) {
	if k == "" {
		return
	}
	e.overrides[k] = v
}

// Unset removes a global override. The base environment is untouched.
func (e *Env) Unset(k string) {
	delete(e.overrides, k)
}

// SetAll applies a list of "K=V" entries as global overrides; entries without
// a key are skipped.
func (e *Env) SetAll(kvs []string) {
	for _, kv := range kvs {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			e.overrides[k] = v
		}
	}
}

// Merge builds the final "K=V" list for one worker. Later layers win: base,
// then global overrides, then perWorker. Values may reference other variables
// as $NAME or ${NAME}; references are expanded once against the composed set,
// and unknown names expand to the empty string.
func (e *Env) Merge(perWorker []string) []string {
	m := make(map[string]string, len(e.base)+len(e.overrides)+len(perWorker))
	put := func(kv string) {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			m[k] = v
		}
	}
	for _, kv := range e.base {
		put(kv)
	}
	for k, v := range e.overrides {
		m[k] = v
	}
	for _, kv := range perWorker {
		put(kv)
	}

	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+os.Expand(v, func(name string) string { return m[name] }))
	}
	return out
}
