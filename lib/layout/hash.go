// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/bureau-foundation/tracebridge/lib/uitree"
)

// Rect is a screen rectangle.
type Rect struct {
	Top, Left, Height, Width int
}

// ParseBounds parses the controller's "[left,top][right,bottom]" form.
func ParseBounds(bounds string) (Rect, bool) {
	if len(bounds) < 2 || bounds[0] != '[' || bounds[len(bounds)-1] != ']' {
		return Rect{}, false
	}
	topLeft, bottomRight, ok := strings.Cut(bounds[1:len(bounds)-1], "][")
	if !ok {
		return Rect{}, false
	}
	left, top, ok := parsePair(topLeft)
	if !ok {
		return Rect{}, false
	}
	right, bottom, ok := parsePair(bottomRight)
	if !ok {
		return Rect{}, false
	}
	return Rect{Top: top, Left: left, Height: bottom - top, Width: right - left}, true
}

func parsePair(pair string) (int, int, bool) {
	first, second, ok := strings.Cut(pair, ",")
	if !ok {
		return 0, 0, false
	}
	x, err := strconv.Atoi(first)
	if err != nil {
		return 0, 0, false
	}
	y, err := strconv.Atoi(second)
	if err != nil {
		return 0, 0, false
	}
	return x, y, true
}

// Intersects reports whether the two rectangles overlap with positive
// area.
func (r Rect) Intersects(other Rect) bool {
	return other.Top < r.Top+r.Height &&
		other.Left < r.Left+r.Width &&
		r.Top < other.Top+other.Height &&
		r.Left < other.Left+other.Width
}

// Hash computes the layout hash of a window: the lowercase hex MD5 of
// the activity id followed by a bracketed pre-order serialization of
// resource ids and classes. The window itself is always included.
// Invisible descendants and descendants without bounds are skipped
// with their subtrees; when the window has a non-empty
// area, so are nodes lying entirely outside it.
//
// The window must carry bounds and an activity id. Unfocused windows
// of an "unknown" activity are not hashed.
func Hash(window uitree.Tree) (string, bool) {
	bounds, ok := uitree.String(window, uitree.KeyBounds)
	if !ok {
		return "", false
	}
	activity, ok := uitree.String(window, uitree.KeyActivity)
	if !ok {
		return "", false
	}
	if focused, _ := uitree.Bool(window, uitree.KeyFocus); activity == "unknown" && !focused {
		return "", false
	}
	root, ok := ParseBounds(bounds)
	if !ok {
		return "", false
	}

	hasher := &layoutHasher{root: root, clip: root.Height > 0 && root.Width > 0}
	hasher.tokens.WriteString(activity)
	hasher.emit(window)

	sum := md5.Sum([]byte(hasher.tokens.String()))
	return hex.EncodeToString(sum[:]), true
}

type layoutHasher struct {
	root   Rect
	clip   bool
	tokens strings.Builder
}

// visit emits a descendant unless it is invisible, unbounded, or
// outside the window.
func (h *layoutHasher) visit(node uitree.Tree) {
	if _, present := node.Attr(uitree.KeyVisibility); present {
		if visibility, ok := uitree.Int(node, uitree.KeyVisibility); !ok || visibility != 0 {
			return
		}
	}
	bounds, ok := uitree.String(node, uitree.KeyBounds)
	if !ok {
		return
	}
	if h.clip {
		rect, ok := ParseBounds(bounds)
		if !ok || !h.root.Intersects(rect) {
			return
		}
	}
	h.emit(node)
}

// emit writes node and its subtree. The root goes here directly, so its
// own visibility is never consulted.
func (h *layoutHasher) emit(node uitree.Tree) {
	id, ok := uitree.String(node, uitree.KeyResourceID)
	if !ok {
		id = "-1"
	}
	class, _ := uitree.String(node, uitree.KeyClass)

	h.tokens.WriteString("[")
	h.tokens.WriteString(id)
	h.tokens.WriteString(class)
	for i := 0; i < node.NumChildren(); i++ {
		h.visit(node.Child(i))
	}
	h.tokens.WriteString("]")
}
