// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package uitree

import (
	"encoding/json"
	"strconv"
)

// Attribute keys of the controller's dump format.
const (
	KeyHash       = "hash"
	KeyChildren   = "ch"
	KeyBounds     = "bound"
	KeyEnabled    = "en"
	KeyFocus      = "focus"
	KeyVisibility = "vis"
	KeyActivity   = "act_id"
	KeyResourceID = "id"
	KeyClass      = "class"

	// Set by the bridge on recorded windows.
	KeySource     = "is_source"
	KeyActionType = "ua_type"
)

// Tree is a read-only view of a UI node. Attribute values are decoded
// JSON: string, json.Number, bool, nil, []any or map[string]any.
type Tree interface {
	Attr(name string) (any, bool)
	NumChildren() int
	Child(i int) Tree
}

// String returns a string attribute. Numbers are returned as their
// JSON literal, so numeric resource ids read the same as textual ones.
func String(t Tree, name string) (string, bool) {
	value, ok := t.Attr(name)
	if !ok {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	}
	return "", false
}

// Int returns an integral numeric attribute.
func Int(t Tree, name string) (int64, bool) {
	value, ok := t.Attr(name)
	if !ok {
		return 0, false
	}
	number, ok := value.(json.Number)
	if !ok {
		return 0, false
	}
	if n, err := number.Int64(); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(number.String(), 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// Bool returns a boolean attribute.
func Bool(t Tree, name string) (bool, bool) {
	value, ok := t.Attr(name)
	if !ok {
		return false, false
	}
	b, ok := value.(bool)
	return b, ok
}
