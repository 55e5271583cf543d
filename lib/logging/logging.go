// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// New returns a logger writing to output at level. Output that is a
// terminal gets the text handler; files and pipes get JSON.
func New(output *os.File, level slog.Level) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(output.Fd())) {
		return slog.New(slog.NewTextHandler(output, options))
	}
	return slog.New(slog.NewJSONHandler(output, options))
}
