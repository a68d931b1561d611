package process

import (
	"strings"
)

// EnvVar is one environment override. Removed overrides delete the key from
// the inherited environment.
type EnvVar struct {
	Key     string
	Value   string
	Removed bool
}

// Env is an ordered set of overrides applied on top of a base environment.
type Env struct {
	clear bool
	vars  []EnvVar
}

// Set overrides key. Setting a key again replaces the earlier override in
// place.
func (e *Env) Set(key, value string) {
	e.put(EnvVar{Key: key, Value: value})
}

// Remove deletes key from the child's environment.
func (e *Env) Remove(key string) {
	if e.clear {
		e.drop(key)
		return
	}
	e.put(EnvVar{Key: key, Removed: true})
}

// Clear discards the inherited environment and every earlier override.
func (e *Env) Clear() {
	e.clear = true
	e.vars = nil
}

// Cleared reports whether the inherited environment is discarded.
func (e *Env) Cleared() bool { return e.clear }

// Vars returns the overrides in the order they were first set.
func (e *Env) Vars() []EnvVar {
	return append([]EnvVar(nil), e.vars...)
}

// Capture applies the overrides to base, a list of KEY=VALUE entries, and
// returns the child's environment. Inherited keys keep their position; new
// keys follow in override order.
func (e *Env) Capture(base []string) []string {
	if e.clear {
		base = nil
	}
	overrides := make(map[string]EnvVar, len(e.vars))
	for _, v := range e.vars {
		overrides[v.Key] = v
	}

	out := make([]string, 0, len(base)+len(e.vars))
	seen := make(map[string]bool, len(base))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if seen[key] {
			continue
		}
		seen[key] = true
		if v, ok := overrides[key]; ok {
			if !v.Removed {
				out = append(out, key+"="+v.Value)
			}
			continue
		}
		out = append(out, kv)
	}
	for _, v := range e.vars {
		if seen[v.Key] || v.Removed {
			continue
		}
		out = append(out, v.Key+"="+v.Value)
	}
	return out
}

func (e *Env) put(v EnvVar) {
	for i := range e.vars {
		if e.vars[i].Key == v.Key {
			e.vars[i] = v
			return
		}
	}
	e.vars = append(e.vars, v)
}

func (e *Env) drop(key string) {
	for i := range e.vars {
		if e.vars[i].Key == key {
			e.vars = append(e.vars[:i], e.vars[i+1:]...)
			return
		}
	}
}
