package registry

import (
	"hash/fnv"
	"strings"
)

// Key identifies one connector instance: a kind plus the source it talks to.
type Key struct {
	Kind string
	Name string
}

// FullName is the canonical cache key for the connector instance.
func (k Key) FullName() string {
	return strings.ToLower(strings.TrimSpace(k.Kind)) + ":" + strings.ToLower(strings.TrimSpace(k.Name))
}

// LockKey folds a connector scope into the 64-bit advisory lock key space.
func LockKey(kind, name string) int64 {
	kind = strings.ToLower(strings.TrimSpace(kind))
	name = strings.ToLower(strings.TrimSpace(name))

	h := fnv.New64a()
	_, _ = h.Write([]byte(kind))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}
