// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/tracebridge/lib/clock"
)

const (
	// ActionBack is the action type recorded for back navigation.
	ActionBack = 100

	// noAction marks an absent pending view or action type.
	noAction = -1
)

// session is the state of one controller connection. Everything but
// send and the pending run is owned by the reading goroutine.
type session struct {
	writeMu sync.Mutex
	out     io.Writer

	pendingView int64
	pendingType int64

	run *pendingRun
}

// pendingRun is a scheduled "run" command.
type pendingRun struct {
	timer *clock.Timer
	fired atomic.Bool
}

func newSession(out io.Writer) *session {
	return &session{out: out, pendingView: noAction, pendingType: noAction}
}

// send writes one command line. It is safe to call from timer
// callbacks.
func (s *session) send(command string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := io.WriteString(s.out, command+"\n")
	return err
}

func (s *session) resetView() {
	s.pendingView = noAction
}

// runScheduled reports whether a scheduled run has yet to fire.
func (s *session) runScheduled() bool {
	return s.run != nil && !s.run.fired.Load()
}

// scheduleRun arranges for f to run after delay. At most one run is
// outstanding; callers check runScheduled first.
func (s *session) scheduleRun(c clock.Clock, delay time.Duration, f func()) {
	run := &pendingRun{}
	s.run = run
	run.timer = c.AfterFunc(delay, func() {
		run.fired.Store(true)
		f()
	})
}

// cancelPendingRun stops a scheduled run that has not fired.
func (s *session) cancelPendingRun() {
	if s.run != nil && s.run.timer != nil {
		s.run.timer.Stop()
	}
}
