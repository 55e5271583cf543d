// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import "github.com/bureau-foundation/tracebridge/lib/uitree"

// MatchPath walks path from root. The first predicate is checked
// against root itself; each following predicate selects a child,
// either the one at its pinned position or the first child in order
// that satisfies it. The node reached at the end of the path matches
// only if it is enabled, and the result is its identifier.
func MatchPath(root uitree.Tree, path Path) (int64, bool) {
	if len(path) == 0 || !path[0].Matches(root) {
		return 0, false
	}

	node := root
	for _, predicate := range path[1:] {
		next := selectChild(node, predicate)
		if next == nil {
			return 0, false
		}
		node = next
	}

	if enabled, _ := uitree.Bool(node, uitree.KeyEnabled); !enabled {
		return 0, false
	}
	return uitree.Int(node, uitree.KeyHash)
}

func selectChild(node uitree.Tree, predicate Predicate) uitree.Tree {
	if predicate.Position != nil {
		position := *predicate.Position
		if position >= node.NumChildren() {
			return nil
		}
		child := node.Child(position)
		if !predicate.Matches(child) {
			return nil
		}
		return child
	}
	for i := 0; i < node.NumChildren(); i++ {
		if child := node.Child(i); predicate.Matches(child) {
			return child
		}
	}
	return nil
}

// Matches checks node against the predicate's attribute equalities and
// gathered-value requirements. Position is not considered here.
func (p Predicate) Matches(node uitree.Tree) bool {
	for name, want := range p.Attrs {
		got, ok := node.Attr(name)
		if !ok || !uitree.Equal(got, want) {
			return false
		}
	}
	for name, required := range p.Gathered {
		gathered := Gather(node, name)
		for _, value := range required {
			if _, ok := gathered[uitree.Key(value)]; !ok {
				return false
			}
		}
	}
	return true
}

// Gather collects the values of attribute name on node and all of its
// descendants, keyed by uitree.Key.
func Gather(node uitree.Tree, name string) map[string]any {
	values := make(map[string]any)
	gatherInto(node, name, values)
	return values
}

func gatherInto(node uitree.Tree, name string, values map[string]any) {
	if value, ok := node.Attr(name); ok {
		values[uitree.Key(value)] = value
	}
	for i := 0; i < node.NumChildren(); i++ {
		gatherInto(node.Child(i), name, values)
	}
}

// Prune returns a view of t without children that lack a "hash"
// identifier, applied recursively. Such children are placeholders the
// controller emits for views it could not inspect. t is not modified.
func Prune(t uitree.Tree) uitree.Tree {
	view := &prunedNode{Tree: t}
	for i := 0; i < t.NumChildren(); i++ {
		child := t.Child(i)
		if _, ok := child.Attr(uitree.KeyHash); ok {
			view.children = append(view.children, Prune(child))
		}
	}
	return view
}

type prunedNode struct {
	uitree.Tree
	children []uitree.Tree
}

func (p *prunedNode) NumChildren() int { return len(p.children) }

func (p *prunedNode) Child(i int) uitree.Tree { return p.children[i] }
