// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package layout decides which views or screens to suppress during
// automated exploration.
//
// Two kinds of selector are supported:
//
//   - A path: a list of predicate sets walked from a window root down
//     through its children. Each set maps attribute names to required
//     values; a "ch_<attr>" key requires the listed values to appear
//     among <attr> values of the node and its descendants; "_pos" pins
//     the child index to descend into. A path that reaches an enabled
//     node yields that node's "hash" identifier.
//   - A layout hash: the MD5 of a window's structural shape (activity,
//     resource ids and classes of visible nodes inside the window
//     bounds). A matching hash means the whole screen is unwanted and
//     the app should be restarted.
//
// Everything here is a pure function of its inputs and works against
// [uitree.Tree]. [Derive] goes the other way: from a recorded window
// whose source node is marked, it produces the shortest selector that
// singles that node out.
package layout
