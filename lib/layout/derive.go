// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/bureau-foundation/tracebridge/lib/uitree"
)

// distinguishingAttrs is the order in which attributes are tried to
// tell a node apart from its siblings. An empty entry is a checkpoint:
// the first one switches the last step to descendant-gathered values,
// any later one pins the child position.
var distinguishingAttrs = []string{"idn", "id", "class", "text", "cdesc", "", "text", ""}

// ErrNoActivity is returned by Derive for windows without an activity
// id, which a path selector cannot anchor on.
var ErrNoActivity = errors.New("window has no activity id")

// ErrNotHashable is returned by Derive when the window has no source
// node and its layout cannot be hashed.
var ErrNotHashable = errors.New("window has no source node and no layout hash")

// Derive builds a selector for a recorded window. When a node carries
// is_source, the result is a path from the window root to it that uses
// as few attributes per step as needed to rule out the siblings. The
// first step pins the window's activity. Without a source node the
// result is the window's layout hash.
//
// Derive evaluates the window with identifier-less children pruned,
// matching what Selectors.Evaluate sees at run time.
func Derive(window uitree.Tree) (Selector, error) {
	pruned := Prune(window)
	indices, found := sourcePath(pruned)
	if !found {
		return DeriveHash(window)
	}

	activity, ok := pruned.Attr(uitree.KeyActivity)
	if !ok || !uitree.Truthy(activity) {
		return Selector{}, ErrNoActivity
	}

	path := Path{{Attrs: map[string]any{uitree.KeyActivity: activity}}}
	path = append(path, buildPath(pruned, indices)...)
	return Selector{Path: path}, nil
}

// DeriveHash returns the layout hash selector of a window.
func DeriveHash(window uitree.Tree) (Selector, error) {
	hash, ok := Hash(Prune(window))
	if !ok {
		return Selector{}, ErrNotHashable
	}
	return Selector{Hash: hash}, nil
}

// sourcePath returns the child indices leading from node to the first
// node (pre-order) marked is_source.
func sourcePath(node uitree.Tree) ([]int, bool) {
	if _, ok := node.Attr(uitree.KeySource); ok {
		return nil, true
	}
	for i := 0; i < node.NumChildren(); i++ {
		if rest, ok := sourcePath(node.Child(i)); ok {
			return append([]int{i}, rest...), true
		}
	}
	return nil, false
}

func buildPath(node uitree.Tree, indices []int) Path {
	if len(indices) == 0 {
		return nil
	}
	position := indices[0]
	target := node.Child(position)
	candidates := make([]uitree.Tree, node.NumChildren())
	for i := range candidates {
		candidates[i] = node.Child(i)
	}

	step := Predicate{Attrs: make(map[string]any), Gathered: make(map[string][]any)}
	gathering := false
	for _, name := range distinguishingAttrs {
		if len(candidates) <= 1 {
			break
		}
		if name == "" {
			if len(indices) == 1 && !gathering {
				gathering = true
				continue
			}
			pinned := position
			step.Position = &pinned
			break
		}
		if gathering {
			want := sortedGather(target, name)
			step.Gathered[name] = want
			candidates = filter(candidates, func(candidate uitree.Tree) bool {
				return uitree.Equal(sortedGather(candidate, name), want)
			})
			continue
		}
		value, ok := target.Attr(name)
		if !ok {
			continue
		}
		step.Attrs[attrAlias(name, value)] = value
		candidates = filter(candidates, func(candidate uitree.Tree) bool {
			other, ok := candidate.Attr(name)
			return ok && uitree.Equal(other, value)
		})
	}

	return append(Path{step}, buildPath(target, indices[1:])...)
}

// attrAlias stores integral resource ids under "idn", the key newer
// controllers use for numeric ids.
func attrAlias(name string, value any) string {
	if name != uitree.KeyResourceID {
		return name
	}
	if number, ok := value.(json.Number); ok {
		if _, err := number.Int64(); err == nil {
			return "idn"
		}
	}
	return name
}

// sortedGather returns the distinct non-empty values of name in the
// subtree, in canonical order. It is returned as []any so that it can
// be compared with uitree.Equal and stored in a predicate.
func sortedGather(node uitree.Tree, name string) []any {
	gathered := Gather(node, name)
	keys := make([]string, 0, len(gathered))
	for key, value := range gathered {
		if uitree.Truthy(value) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	values := make([]any, len(keys))
	for i, key := range keys {
		values[i] = gathered[key]
	}
	return values
}

func filter(candidates []uitree.Tree, keep func(uitree.Tree) bool) []uitree.Tree {
	kept := candidates[:0]
	for _, candidate := range candidates {
		if keep(candidate) {
			kept = append(kept, candidate)
		}
	}
	return kept
}
