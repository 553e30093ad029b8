package types

import (
	"maps"
	"slices"
)

// Snapshot maps a file's basename to its full content.
type Snapshot map[string][]byte

// Names returns the snapshot's basenames in lexicographic order.
func (s Snapshot) Names() []string {
	return slices.Sorted(maps.Keys(s))
}

// Clone returns a deep copy, so cached snapshots are never shared.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for name, content := range s {
		out[name] = slices.Clone(content)
	}
	return out
}

// LogEntry is one line of a branch's history.
type LogEntry struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

