// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"net"
	"testing"
	"time"
)

// Listen opens a TCP listener on an ephemeral loopback port. It is
// closed when the test ends.
func Listen(t *testing.T) net.Listener {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening on loopback: %v", err)
	}
	t.Cleanup(func() { listener.Close() })
	return listener
}

// Accept waits for the next connection on listener. The connection is
// closed when the test ends.
func Accept(t *testing.T, listener net.Listener, timeout time.Duration) net.Conn {
	t.Helper()
	type result struct {
		conn net.Conn
		err  error
	}
	accepted := make(chan result, 1)
	go func() {
		conn, err := listener.Accept()
		accepted <- result{conn, err}
	}()

	r := RequireReceive(t, accepted, timeout, "accepting on %s", listener.Addr())
	if r.err != nil {
		t.Fatalf("accepting on %s: %v", listener.Addr(), r.err)
	}
	t.Cleanup(func() { r.conn.Close() })
	return r.conn
}
