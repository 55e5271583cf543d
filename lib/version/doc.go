// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports what build of tracebridge is running.
//
// [GitCommit], [GitDirty], [BuildTime] and [Version] may be injected
// with -ldflags -X. When they are not, the VCS stamp the Go toolchain
// embeds in the binary is used instead, so plain "go build" output
// still reports its commit.
package version
