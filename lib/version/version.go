// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
)

// Set with, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/tracebridge/lib/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

type build struct {
	commit string
	dirty  bool
	time   string
}

var current = sync.OnceValue(func() build {
	b := build{commit: GitCommit, dirty: GitDirty == "true", time: BuildTime}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if b.commit == "unknown" && len(setting.Value) >= 7 {
				b.commit = setting.Value[:7]
			}
		case "vcs.modified":
			if GitDirty == "false" && setting.Value == "true" {
				b.dirty = true
			}
		case "vcs.time":
			if b.time == "unknown" {
				b.time = setting.Value
			}
		}
	}
	return b
})

// Info returns the string printed by --version, for example
// "0.1.0-dev (abc1234-dirty, 2026-02-10T12:00:00Z)".
func Info() string {
	b := current()
	dirty := ""
	if b.dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, b.commit, dirty, b.time)
}

// Full is Info plus the Go version and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Commit returns the short commit hash.
func Commit() string {
	return current().commit
}

// LogValue groups the build fields for the startup log record.
func LogValue() slog.Value {
	b := current()
	return slog.GroupValue(
		slog.String("version", Version),
		slog.String("commit", b.commit),
		slog.Bool("dirty", b.dirty),
		slog.String("built", b.time),
		slog.String("go", runtime.Version()),
	)
}
