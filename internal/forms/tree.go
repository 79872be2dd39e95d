package forms

import (
	"sort"

	"github.com/formloom/formloom/internal/store"
)

// Node is one resolved layout node. Columns is populated only for columns
// containers: one ordered child slice per column slot.
type Node struct {
	Field   store.Field
	Layout  ContainerLayout
	Columns [][]Node
}

// ResolveTree reconstructs the hierarchical layout from the flat field
// list. Fields without a parent form the ordered top level; children are
// grouped under their container per (parent, column) scope and ordered
// within it.
//
// The function is pure and total: children referencing a missing or
// non-container parent are promoted to top-level orphans so a dangling
// reference can never break a render. The stored records stay untouched.
func ResolveTree(fields []store.Field) []Node {
	byID := make(map[string]*store.Field, len(fields))
	for i := range fields {
		byID[fields[i].ID] = &fields[i]
	}

	// Index children once per pass: (parent, column) -> fields.
	children := make(map[string]map[int][]store.Field)
	var top []store.Field

	for _, f := range fields {
		parent, ok := byID[f.ParentID]
		if f.ParentID == "" || !ok || parent.Type != store.FieldColumns {
			top = append(top, f)
			continue
		}
		layout := DecodeContainerLayout(parent.DefaultValue)
		col := f.ColumnIndex
		if col < 0 || col >= layout.Columns {
			// Column slot out of range: orphan, same leniency as a
			// dangling parent.
			top = append(top, f)
			continue
		}
		if children[f.ParentID] == nil {
			children[f.ParentID] = make(map[int][]store.Field)
		}
		children[f.ParentID][col] = append(children[f.ParentID][col], f)
	}

	// Containers citing each other as parents form a cycle reachable from
	// no top-level field. Promote everything unreached so no id is lost.
	reached := make(map[string]bool, len(fields))
	var mark func(f store.Field)
	mark = func(f store.Field) {
		if reached[f.ID] {
			return
		}
		reached[f.ID] = true
		for _, col := range children[f.ID] {
			for _, kid := range col {
				mark(kid)
			}
		}
	}
	for _, f := range top {
		mark(f)
	}
	for _, f := range fields {
		if !reached[f.ID] {
			top = append(top, f)
		}
	}

	sortFields(top)

	emitted := make(map[string]bool, len(fields))
	nodes := make([]Node, 0, len(top))
	for _, f := range top {
		if emitted[f.ID] {
			continue
		}
		nodes = append(nodes, buildNode(f, children, emitted))
	}
	return nodes
}

func buildNode(f store.Field, children map[string]map[int][]store.Field, emitted map[string]bool) Node {
	emitted[f.ID] = true
	node := Node{Field: f}
	if f.Type != store.FieldColumns {
		return node
	}

	node.Layout = DecodeContainerLayout(f.DefaultValue)
	node.Columns = make([][]Node, node.Layout.Columns)
	for col := 0; col < node.Layout.Columns; col++ {
		kids := children[f.ID][col]
		sortFields(kids)
		nodes := make([]Node, 0, len(kids))
		for _, kid := range kids {
			if emitted[kid.ID] {
				continue
			}
			// Containers nest one level deep in practice, but recursion
			// keeps the resolver total if deeper data shows up.
			nodes = append(nodes, buildNode(kid, children, emitted))
		}
		node.Columns[col] = nodes
	}
	return node
}

func sortFields(fields []store.Field) {
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].SortOrder != fields[j].SortOrder {
			return fields[i].SortOrder < fields[j].SortOrder
		}
		return fields[i].ID < fields[j].ID
	})
}

// FieldIDs collects every field id in the tree, containers included.
func FieldIDs(nodes []Node) map[string]bool {
	ids := make(map[string]bool)
	var walk func([]Node)
	walk = func(ns []Node) {
		for _, n := range ns {
			ids[n.Field.ID] = true
			for _, col := range n.Columns {
				walk(col)
			}
		}
	}
	walk(nodes)
	return ids
}
