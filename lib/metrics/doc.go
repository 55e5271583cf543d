// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics defines the bridge's Prometheus collectors and the
// HTTP endpoint that exposes them.
//
// Components hold a *Metrics and increment its fields directly. A
// Metrics built with a nil registerer works the same but is never
// exported, which is what components fall back to when none is
// configured and what most tests use.
package metrics
