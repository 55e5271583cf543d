// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package uitree reads the UI hierarchy dumps produced by the in-app
// controller.
//
// A dump is a JSON array of windows, most recently added first. Each
// window is a node object; nested views live under the "ch" key. The
// attributes the bridge looks at are:
//
//	hash    per-run numeric view identifier (the target of "act dis")
//	id      resource id            class   view class name
//	bound   "[left,top][right,bottom]"
//	en      enabled                focus   window focus
//	vis     visibility, 0 means visible
//	act_id  activity of the window
//
// [Node] keeps every attribute as the raw bytes it arrived with, in
// arrival order, so a window written back out differs from the input
// only by the attributes the bridge sets explicitly. Matching code
// works against the [Tree] interface rather than against Node.
package uitree
