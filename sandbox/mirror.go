package sandbox

import (
	"log"
	"os"
	"strings"

	"webide/store"
	"webide/tree"
)

// Mirror propagates durable-store mutations into the runtime's
// filesystem so execution sees current content. Every method here is
// best-effort: the durable write already succeeded and is the source
// of truth, so a mirror failure is logged and the mirror simply stays
// stale until the next MountAll.
type Mirror struct {
	runtime Runtime
	cache   *tree.Cache

	*log.Logger
}

func NewMirror(runtime Runtime, cache *tree.Cache) *Mirror {
	return &Mirror{
		runtime: runtime,
		cache:   cache,
		Logger:  log.New(os.Stdout, "[mirror] ", log.LstdFlags),
	}
}

// MountAll materializes the full record set into the runtime in one
// pass, creating parent directories as needed. Used at startup and as
// the recovery path after any missed incremental sync.
func (m *Mirror) MountAll(records []*store.FileRecord) {
	if !m.runtime.Ready() {
		m.Printf("runtime not ready, skipping mount")
		return
	}

	index := make(map[string]*store.FileRecord, len(records))
	for _, record := range records {
		index[record.ID] = record
	}

	for _, record := range records {
		p := pathOf(index, record.ID)
		if p == "" {
			m.Printf("record %s has no resolvable path, skipping", record.ID)
			continue
		}
		var err error
		if record.IsDir() {
			err = m.runtime.MkdirAll(p)
		} else {
			content := ""
			if record.Content != nil {
				content = *record.Content
			}
			err = m.runtime.WriteFile(p, content)
		}
		if err != nil {
			m.Printf("mount %s: %v", p, err)
		}
	}
}

// pathOf resolves a path against a plain record index, without needing
// the tree cache to have been rebuilt yet.
func pathOf(index map[string]*store.FileRecord, id string) string {
	var parts []string
	visited := make(map[string]bool)
	for current := index[id]; current != nil; {
		if visited[current.ID] {
			return ""
		}
		visited[current.ID] = true
		parts = append([]string{current.Name}, parts...)
		if current.ParentID == nil {
			return strings.Join(parts, "/")
		}
		current = index[*current.ParentID]
	}
	return ""
}

// Write mirrors a single content save.
func (m *Mirror) Write(id string, content string) {
	if !m.runtime.Ready() {
		return
	}
	p := m.cache.ResolvePath(id)
	if p == "" {
		m.Printf("cannot resolve %s, write not mirrored", id)
		return
	}
	if err := m.runtime.WriteFile(p, content); err != nil {
		m.Printf("write %s: %v", p, err)
	}
}

// Create mirrors a single create: touch for files, mkdir for
// directories.
func (m *Mirror) Create(id string, kind string) {
	if !m.runtime.Ready() {
		return
	}
	p := m.cache.ResolvePath(id)
	if p == "" {
		m.Printf("cannot resolve %s, create not mirrored", id)
		return
	}

	var err error
	if kind == store.KindDirectory {
		err = m.runtime.MkdirAll(p)
	} else {
		err = m.runtime.WriteFile(p, "")
	}
	if err != nil {
		m.Printf("create %s: %v", p, err)
	}
}

// Remove mirrors a delete. The caller resolves the path before the
// durable delete, since afterwards the id no longer resolves.
func (m *Mirror) Remove(path string) {
	if !m.runtime.Ready() || path == "" {
		return
	}
	if err := m.runtime.Remove(path); err != nil {
		m.Printf("remove %s: %v", path, err)
	}
}

// Relocate mirrors a rename or move: oldPath is the path before the
// durable mutation, the new path is resolved from the rebuilt cache.
func (m *Mirror) Relocate(oldPath string, id string) {
	if !m.runtime.Ready() || oldPath == "" {
		return
	}
	newPath := m.cache.ResolvePath(id)
	if newPath == "" {
		m.Printf("cannot resolve %s, relocate not mirrored", id)
		return
	}
	if newPath == oldPath {
		return
	}
	if err := m.runtime.Rename(oldPath, newPath); err != nil {
		m.Printf("relocate %s -> %s: %v", oldPath, newPath, err)
	}
}
