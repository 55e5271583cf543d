// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides the bridge's startup configuration.
//
// Values are layered, lowest precedence first: [Default], an optional
// YAML file (named by --config or TRACEBRIDGE_CONFIG), the legacy
// environment variables understood by deployed exploration scripts
// (SKIP_MINICAP, MINICAP_PORT, CTRL_PORT, XPATH_BLKLST,
// RETAIN_CRASH_HANDLER, APP_RESTART_COMMAND, DEV_RESTART_COMMAND,
// WATCHDOG_INTV, DONT_KILL_AFTER), and finally command-line flags,
// which the binary applies itself.
//
// Durations in the file accept Go duration strings ("90s") or integer
// milliseconds. The environment variables are always milliseconds.
//
// A loaded [Config] is read once at startup and not modified
// afterwards.
package config
