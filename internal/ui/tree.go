package ui

import (
	"sort"

	"github.com/campuskit/checklists/internal/hierarchy"
	"github.com/campuskit/checklists/internal/model"
)

// Row is one renderable line: a checklist header, or an item within an
// expanded checklist carrying its tree-drawing prefix.
type Row struct {
	Checklist model.Checklist
	Item      *model.Item
	Prefix    string
}

// buildRows flattens the visible checklists into display rows. Items of
// collapsed checklists are skipped; expanded checklists contribute
// their item forest in depth-first order with ├─/└─ prefixes.
func buildRows(checklists []model.Checklist, expanded func(id string) bool) []Row {
	var rows []Row
	for _, cl := range checklists {
		rows = append(rows, Row{Checklist: cl})
		if !expanded(cl.ID) {
			continue
		}
		forest := hierarchy.Organize(cl.Items)
		rows = append(rows, itemRows(cl, forest, nil)...)
	}
	return rows
}

// itemRows renders one level of the forest. ancestors records, per
// depth, whether a later sibling follows at that depth, which decides
// between │ continuation and blank indent.
func itemRows(cl model.Checklist, nodes []hierarchy.Node, ancestors []bool) []Row {
	var rows []Row
	for idx, n := range nodes {
		isLast := idx == len(nodes)-1

		var prefix string
		for _, hasSibling := range ancestors {
			if hasSibling {
				prefix += " │  "
			} else {
				prefix += "    "
			}
		}
		if isLast {
			prefix += " └─ "
		} else {
			prefix += " ├─ "
		}

		item := n.Item
		rows = append(rows, Row{Checklist: cl, Item: &item, Prefix: prefix})
		rows = append(rows, itemRows(cl, n.SubItems, append(ancestors, !isLast))...)
	}
	return rows
}

// moveWithinSiblings swaps an item with its previous or next sibling
// (same parent) and returns the full item list in the new depth-first
// order, ready for a wholesale reorder. Returns nil when the item has
// no sibling in that direction.
func moveWithinSiblings(items []model.Item, itemID string, delta int) []model.Item {
	var target *model.Item
	for i := range items {
		if items[i].ID == itemID {
			target = &items[i]
			break
		}
	}
	if target == nil {
		return nil
	}

	var siblings []*model.Item
	for i := range items {
		if sameParent(items[i].ParentID, target.ParentID) {
			siblings = append(siblings, &items[i])
		}
	}
	sort.SliceStable(siblings, func(i, j int) bool {
		return siblings[i].SortOrder < siblings[j].SortOrder
	})

	idx := -1
	for i, s := range siblings {
		if s.ID == itemID {
			idx = i
			break
		}
	}
	swap := idx + delta
	if idx < 0 || swap < 0 || swap >= len(siblings) {
		return nil
	}

	siblings[idx], siblings[swap] = siblings[swap], siblings[idx]
	for i, s := range siblings {
		s.SortOrder = i
	}

	return hierarchy.Flatten(hierarchy.Organize(items))
}

// previousSibling returns the sibling immediately before target in
// sort order, nil when target is the first of its group.
func previousSibling(items []model.Item, target model.Item) *model.Item {
	var siblings []model.Item
	for _, it := range items {
		if it.ID != target.ID && sameParent(it.ParentID, target.ParentID) {
			siblings = append(siblings, it)
		}
	}
	sort.SliceStable(siblings, func(i, j int) bool {
		return siblings[i].SortOrder < siblings[j].SortOrder
	})

	var prev *model.Item
	for i := range siblings {
		if siblings[i].SortOrder < target.SortOrder {
			prev = &siblings[i]
		}
	}
	return prev
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
