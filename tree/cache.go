package tree

import (
	"strings"
	"sync/atomic"

	"webide/store"
)

// snapshot is one complete, internally consistent view of the tree.
// Replaced wholesale on every rebuild, never patched in place.
type snapshot struct {
	roots   []*Node
	records map[string]*store.FileRecord
}

var empty = &snapshot{records: map[string]*store.FileRecord{}}

// Cache holds the last built tree plus a flat index for path
// resolution. Readers always see either the previous snapshot or the
// next one, never a half-rebuilt mix.
type Cache struct {
	current atomic.Pointer[snapshot]
}

func NewCache() *Cache {
	c := new(Cache)
	c.current.Store(empty)
	return c
}

// Rebuild replaces the snapshot with one built from records.
func (c *Cache) Rebuild(records []*store.FileRecord) {
	index := make(map[string]*store.FileRecord, len(records))
	for _, record := range records {
		index[record.ID] = record
	}
	c.current.Store(&snapshot{
		roots:   Build(records),
		records: index,
	})
}

// Roots returns the current tree. The returned nodes are owned by the
// cache and must not be mutated.
func (c *Cache) Roots() []*Node {
	return c.current.Load().roots
}

// Record returns the flat record for an id, or nil.
func (c *Cache) Record(id string) *store.FileRecord {
	return c.current.Load().records[id]
}

// ResolvePath joins ancestor names from the root down to id with "/".
// Returns "" when the id is unknown. The visited set stops the walk if
// the parent chain ever loops, which the store should make impossible.
func (c *Cache) ResolvePath(id string) string {
	records := c.current.Load().records

	var parts []string
	visited := make(map[string]bool)
	for current := records[id]; current != nil; {
		if visited[current.ID] {
			return ""
		}
		visited[current.ID] = true
		parts = append(parts, current.Name)

		if current.ParentID == nil {
			// 到根了, 反转拼出完整路径
			for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
				parts[i], parts[j] = parts[j], parts[i]
			}
			return strings.Join(parts, "/")
		}
		current = records[*current.ParentID]
	}
	return ""
}
