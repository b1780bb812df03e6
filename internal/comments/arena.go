// ABOUTME: Arena-indexed view of a post's comment tree
// ABOUTME: Flat nodes with parent pointers; traversal is iterative, never recursive

package comments

import (
	"github.com/devmesh/realtime-gateway/internal/store"
)

// Arena indexes a post's comments by ID with explicit parent pointers.
// Comment trees can be arbitrarily deep, so every walk is an iterative
// loop with a visited guard rather than a recursive descent.
type Arena struct {
	nodes    map[string]*store.Comment
	children map[string][]string
	roots    []string
}

// Build indexes a flat comment list. Order of the input does not matter;
// children are kept in the order they appear.
func Build(list []*store.Comment) *Arena {
	a := &Arena{
		nodes:    make(map[string]*store.Comment, len(list)),
		children: make(map[string][]string),
	}
	for _, c := range list {
		a.nodes[c.ID] = c
	}
	for _, c := range list {
		if c.ParentID == nil || a.nodes[*c.ParentID] == nil {
			a.roots = append(a.roots, c.ID)
			continue
		}
		a.children[*c.ParentID] = append(a.children[*c.ParentID], c.ID)
	}
	return a
}

// Get returns the comment with the given ID, if indexed.
func (a *Arena) Get(id string) (*store.Comment, bool) {
	c, ok := a.nodes[id]
	return c, ok
}

// Len reports how many comments are indexed.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// Roots returns the IDs of top-level comments (no parent, or parent not
// present in the arena).
func (a *Arena) Roots() []string {
	return a.roots
}

// Ancestors walks parent pointers from the given comment to the root,
// nearest parent first. The starting comment itself is not included.
// A broken or cyclic parent chain terminates the walk instead of looping.
func (a *Arena) Ancestors(id string) []*store.Comment {
	var out []*store.Comment
	visited := map[string]bool{id: true}

	cur, ok := a.nodes[id]
	for ok && cur.ParentID != nil {
		parent, found := a.nodes[*cur.ParentID]
		if !found || visited[parent.ID] {
			break
		}
		visited[parent.ID] = true
		out = append(out, parent)
		cur = parent
	}
	return out
}

// Subtree collects the given comment and every descendant, breadth-first.
// Used to tombstone a whole thread branch in one store call.
func (a *Arena) Subtree(id string) []*store.Comment {
	root, ok := a.nodes[id]
	if !ok {
		return nil
	}

	out := []*store.Comment{root}
	queue := []string{id}
	visited := map[string]bool{id: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, childID := range a.children[cur] {
			if visited[childID] {
				continue
			}
			visited[childID] = true
			out = append(out, a.nodes[childID])
			queue = append(queue, childID)
		}
	}
	return out
}

// SubtreeIDs is Subtree restricted to IDs, in the same order.
func (a *Arena) SubtreeIDs(id string) []string {
	nodes := a.Subtree(id)
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
