// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package framecache holds the most recent screen-capture frames,
// indexed by time bucket.
//
// A bucket is a device timestamp divided by [Interval]. The capture
// client inserts at most one frame per bucket, in strictly increasing
// bucket order; the controller looks up the newest frame at or before
// the bucket of a recorded event. Once [Capacity] frames are stored,
// each insert overwrites the oldest.
//
// Cache is safe for concurrent use.
package framecache
