package tree

import (
	"log"
	"sort"

	"webide/store"
)

// Node is the nested, UI-facing view of a FileRecord. Children is nil
// for files and non-nil (possibly empty) for directories.
type Node struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
	Kind     string  `json:"kind"`
	Children []*Node `json:"children,omitempty"`
}

// Build turns a flat record set into the nested tree. Two passes: one to
// wrap every record in a Node, one to attach each node to its parent.
// A record pointing at a parent that does not exist is attached to the
// root instead of being dropped, so a briefly inconsistent record set
// still renders.
func Build(records []*store.FileRecord) []*Node {
	nodes := make(map[string]*Node, len(records))
	for _, record := range records {
		node := &Node{
			ID:       record.ID,
			Name:     record.Name,
			ParentID: record.ParentID,
			Kind:     record.Kind,
		}
		if record.IsDir() {
			node.Children = make([]*Node, 0)
		}
		nodes[record.ID] = node
	}

	var roots []*Node
	for _, record := range records {
		node := nodes[record.ID]
		if record.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*record.ParentID]
		if !ok || parent.Children == nil {
			log.Printf("[tree] record %s has unusable parent %s, attaching to root", record.ID, *record.ParentID)
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	sortNodes(roots)
	for _, node := range nodes {
		if node.Children != nil {
			sortNodes(node.Children)
		}
	}
	return roots
}

// sortNodes orders siblings directories-first, then by name. The store
// already lists in this order, but the builder must not depend on it.
func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Kind != nodes[j].Kind {
			return nodes[i].Kind == store.KindDirectory
		}
		return nodes[i].Name < nodes[j].Name
	})
}
