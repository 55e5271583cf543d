// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"net"
	"testing"
	"time"
)

type recordingTB struct {
	failure string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Fatalf(format string, args ...any) {
	r.failure = fmt.Sprintf(format, args...)
	panic(r)
}

// capture runs f and returns the failure message it raised, if any.
func capture(f func(tb TB)) (failure string) {
	tb := &recordingTB{}
	defer func() {
		if recovered := recover(); recovered != nil {
			if recovered != tb {
				panic(recovered)
			}
			failure = tb.failure
		}
	}()
	f(tb)
	return ""
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 7
	if got := RequireReceive(t, ch, time.Second, "value"); got != 7 {
		t.Fatalf("got %d, want 7", got)
	}

	failure := capture(func(tb TB) {
		RequireReceive(tb, make(chan int), 10*time.Millisecond, "waiting for %s", "nothing")
	})
	if failure != "nothing received after 10ms: waiting for nothing" {
		t.Errorf("failure = %q", failure)
	}

	closed := make(chan int)
	close(closed)
	if failure := capture(func(tb TB) { RequireReceive(tb, closed, time.Second) }); failure != "channel closed: (no message)" {
		t.Errorf("failure = %q", failure)
	}
}

func TestRequireClosed(t *testing.T) {
	done := make(chan struct{})
	close(done)
	RequireClosed(t, done, time.Second, "closed channel")

	failure := capture(func(tb TB) {
		RequireClosed(tb, make(chan struct{}), 10*time.Millisecond, "ready")
	})
	if failure != "channel still open after 10ms: ready" {
		t.Errorf("failure = %q", failure)
	}
}

func TestListenAndAccept(t *testing.T) {
	listener := Listen(t)
	go func() {
		conn, err := net.Dial("tcp", listener.Addr().String())
		if err == nil {
			conn.Write([]byte("x"))
			conn.Close()
		}
	}()

	conn := Accept(t, listener, 5*time.Second)
	buffer := make([]byte, 1)
	if _, err := conn.Read(buffer); err != nil || buffer[0] != 'x' {
		t.Fatalf("Read = %q, %v", buffer, err)
	}
}
