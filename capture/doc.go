// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package capture reads the device screen-capture stream into a frame
// cache.
//
// The capture service speaks a minimal binary protocol over TCP. On
// connect it sends a banner: one version byte, one length byte b, then
// b-2 further banner bytes. After the banner the stream is an endless
// sequence of frames, each a 12-byte little-endian header (uint32
// payload size, uint64 capture timestamp in milliseconds) followed by
// the payload.
//
// [Client] keeps one frame per [framecache.Interval] window: a frame
// whose time bucket is not newer than the last stored one is dropped.
// Lost connections are re-established indefinitely. Only two
// conditions end [Client.Run] with an error: every connect attempt of a
// round failing ([ErrConnectExhausted]) and a frame header announcing a
// payload too large to be genuine ([ErrFrameTooLarge]), which means the
// stream is corrupt.
package capture
