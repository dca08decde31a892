// Package hierarchy derives tree views from flat, parent-id-linked item
// lists. Items are always stored flat; every tree here is recomputed on
// demand, so there is no incremental state to keep consistent.
package hierarchy

import (
	"sort"

	"github.com/campuskit/checklists/internal/model"
)

// Node is an item with its resolved children, in sort order.
type Node struct {
	Item     model.Item
	SubItems []Node
}

// Organize converts a flat item list into a forest of root nodes. Roots
// are items with a nil ParentID; children whose parent id matches no
// item in the list are treated as roots so they stay reachable.
func Organize(items []model.Item) []Node {
	byID := make(map[string]bool, len(items))
	for i := range items {
		byID[items[i].ID] = true
	}

	children := make(map[string][]model.Item)
	var roots []model.Item
	for _, it := range items {
		if it.ParentID == nil || !byID[*it.ParentID] {
			roots = append(roots, it)
			continue
		}
		children[*it.ParentID] = append(children[*it.ParentID], it)
	}

	var build func(it model.Item) Node
	build = func(it model.Item) Node {
		kids := children[it.ID]
		sort.SliceStable(kids, func(i, j int) bool {
			return kids[i].SortOrder < kids[j].SortOrder
		})
		n := Node{Item: it}
		for _, kid := range kids {
			n.SubItems = append(n.SubItems, build(kid))
		}
		return n
	}

	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].SortOrder < roots[j].SortOrder
	})
	var forest []Node
	for _, root := range roots {
		forest = append(forest, build(root))
	}
	return forest
}

// Flatten returns the forest's items in depth-first order, the order
// used for sort_order renumbering after a reorder.
func Flatten(nodes []Node) []model.Item {
	var out []model.Item
	var walk func(n Node)
	walk = func(n Node) {
		out = append(out, n.Item)
		for _, kid := range n.SubItems {
			walk(kid)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return out
}

// Descendants collects the ids of every item whose parent chain
// terminates at rootID, transitively.
func Descendants(items []model.Item, rootID string) []string {
	children := make(map[string][]string)
	for _, it := range items {
		if it.ParentID != nil {
			children[*it.ParentID] = append(children[*it.ParentID], it.ID)
		}
	}

	var out []string
	queue := append([]string(nil), children[rootID]...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, id)
		queue = append(queue, children[id]...)
	}
	return out
}

// CanReparent reports whether itemID may be moved under newParentID
// without creating a cycle. A nil newParentID (move to root) is always
// allowed. The check walks the proposed parent's chain upward; if
// itemID appears, the move would make the item its own ancestor.
func CanReparent(items []model.Item, itemID string, newParentID *string) bool {
	if newParentID == nil {
		return true
	}
	if *newParentID == itemID {
		return false
	}

	parents := make(map[string]*string, len(items))
	for _, it := range items {
		parents[it.ID] = it.ParentID
	}
	if _, ok := parents[*newParentID]; !ok {
		return false
	}

	// The chain is bounded by the item count even if the stored state
	// is already cyclic.
	cursor := newParentID
	for steps := 0; cursor != nil && steps <= len(items); steps++ {
		if *cursor == itemID {
			return false
		}
		cursor = parents[*cursor]
	}
	return true
}
