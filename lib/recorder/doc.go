// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package recorder persists recorded events as flat files.
//
// Each recorded action produces <dir>/<timestamp>.json holding the
// annotated UI window and, when a screenshot is available,
// <screenDir>/<timestamp>.jpg holding the raw capture frame. Files are
// written atomically (temporary file, fsync, rename, fsync of the
// directory) so a consumer tailing the directory never reads a partial
// event.
package recorder
