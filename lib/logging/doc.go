// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the slog loggers the tracebridge binaries
// write to stderr: human-readable text on a terminal, JSON lines
// everywhere else.
package logging
