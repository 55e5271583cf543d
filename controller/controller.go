// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/bureau-foundation/tracebridge/lib/clock"
	"github.com/bureau-foundation/tracebridge/lib/framecache"
	"github.com/bureau-foundation/tracebridge/lib/layout"
	"github.com/bureau-foundation/tracebridge/lib/metrics"
	"github.com/bureau-foundation/tracebridge/lib/netutil"
	"github.com/bureau-foundation/tracebridge/lib/recorder"
	"github.com/bureau-foundation/tracebridge/lib/watchdog"
)

const (
	// DefaultConnectAttempts is the number of connect attempts made
	// before giving up.
	DefaultConnectAttempts = 100

	// DefaultConnectSpacing is the minimum time between the starts of
	// two connect attempts. A forwarded port with nothing behind it
	// accepts and immediately closes, so failures alone do not slow
	// the loop down.
	DefaultConnectSpacing = time.Second

	// DefaultHandshakeTimeout bounds the wait for the status line.
	DefaultHandshakeTimeout = 5 * time.Second

	// EventInterval is the minimum accessibility event interval
	// requested from the controller, in milliseconds.
	EventInterval = 50
)

// ErrConnectExhausted is returned by Run when no connection could be
// made within the configured attempts.
var ErrConnectExhausted = errors.New("controller: connect attempts exhausted")

// DialFunc opens a connection to the controller.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Controller is a client of the in-app UI controller. The exported
// fields are configuration and must not change once Run is called.
type Controller struct {
	// Address is the TCP address of the controller.
	Address string

	// Selectors enables view suppression when non-nil, even if it
	// holds no selectors.
	Selectors *layout.Selectors

	// RetainCrashHandler skips the crash_expose command.
	RetainCrashHandler bool

	// StopKilling ends view suppression once StopKillingAfter has
	// passed since Started. A zero StopKillingAfter ends it at once.
	StopKilling      bool
	StopKillingAfter time.Duration

	// Started is the reference time for StopKillingAfter. Zero means
	// the time Run is called.
	Started time.Time

	// Recorder receives recorded events. Required.
	Recorder *recorder.Recorder

	// Frames is the capture frame cache. Nil disables screenshots.
	Frames *framecache.Cache

	// Heartbeat is beaten on every user action.
	Heartbeat *watchdog.Heartbeat

	// RestartApp runs when a window matches a layout hash selector.
	RestartApp watchdog.Action

	Dial             DialFunc
	ConnectAttempts  int
	ConnectSpacing   time.Duration
	HandshakeTimeout time.Duration

	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	lastAttempt time.Time
}

// Run connects, serves sessions until ctx is cancelled, and reconnects
// after every session failure. It returns nil on cancellation.
func (c *Controller) Run(ctx context.Context) error {
	if c.Recorder == nil {
		return errors.New("controller: Recorder is required")
	}
	c.setDefaults()

	for {
		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		err = c.serve(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		if netutil.IsExpectedCloseError(err) {
			c.Logger.Info("controller connection closed, reconnecting", "address", c.Address)
		} else {
			c.Logger.Warn("controller connection failed, reconnecting", "address", c.Address, "error", err)
		}
	}
}

func (c *Controller) setDefaults() {
	if c.Dial == nil {
		var dialer net.Dialer
		c.Dial = dialer.DialContext
	}
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = DefaultConnectAttempts
	}
	if c.ConnectSpacing <= 0 {
		c.ConnectSpacing = DefaultConnectSpacing
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Discard()
	}
	if c.Heartbeat == nil {
		c.Heartbeat = &watchdog.Heartbeat{}
	}
	if c.Started.IsZero() {
		c.Started = c.Clock.Now()
	}
}

// connect dials until it succeeds, keeping attempts at least
// ConnectSpacing apart measured from the start of the previous one.
// The spacing also applies across reconnects.
func (c *Controller) connect(ctx context.Context) (net.Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= c.ConnectAttempts; attempt++ {
		if !c.lastAttempt.IsZero() {
			if wait := c.ConnectSpacing - c.Clock.Now().Sub(c.lastAttempt); wait > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-c.Clock.After(wait):
				}
			}
		}

		c.lastAttempt = c.Clock.Now()
		conn, err := c.Dial(ctx, "tcp", c.Address)
		if err == nil {
			c.Logger.Info("controller connected", "address", c.Address, "attempt", attempt)
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		c.Logger.Debug("controller connect failed", "address", c.Address, "attempt", attempt, "error", err)
	}
	return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrConnectExhausted, c.Address, c.ConnectAttempts, lastErr)
}

// serve runs one session on conn until it fails or ctx is cancelled.
func (c *Controller) serve(ctx context.Context, conn net.Conn) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	s := newSession(conn)
	defer s.cancelPendingRun()

	reader := bufio.NewReader(conn)
	if err := c.handshake(conn, s, reader); err != nil {
		c.Metrics.HandshakeFailures.Inc()
		return err
	}
	c.Metrics.ControllerSessions.Inc()

	for {
		line, err := readLine(reader)
		if err != nil {
			return err
		}
		c.handle(ctx, s, line)
	}
}

// handshakeCommands returns the commands that open a session.
func (c *Controller) handshakeCommands() []string {
	commands := []string{"info"}
	if !c.RetainCrashHandler {
		commands = append(commands, "crash_expose")
	}
	commands = append(commands, fmt.Sprintf("a11y_event_min_intv %d", EventInterval))
	if c.Selectors != nil {
		commands = append(commands, "cap_on_main_thread_off", "run")
	}
	return append(commands, "trace")
}

// status is the controller's reply to the handshake.
type status struct {
	SessionStart *int64 `json:"st"`
	DeviceTime   *int64 `json:"ct"`
}

func (c *Controller) handshake(conn net.Conn, s *session, reader *bufio.Reader) error {
	for _, command := range c.handshakeCommands() {
		if err := s.send(command); err != nil {
			return fmt.Errorf("sending %q: %w", command, err)
		}
	}

	// Socket deadlines are wall-clock by nature.
	if err := conn.SetReadDeadline(time.Now().Add(c.HandshakeTimeout)); err != nil { //nolint:realclock kernel deadline
		return err
	}
	line, err := readLine(reader)
	if err != nil {
		return fmt.Errorf("reading handshake reply: %w", err)
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return err
	}

	var reply status
	if err := json.Unmarshal([]byte(line), &reply); err != nil {
		return fmt.Errorf("malformed handshake reply %q: %w", line, err)
	}
	if reply.SessionStart == nil || reply.DeviceTime == nil {
		return fmt.Errorf("handshake reply %q lacks st or ct", line)
	}

	s.resetView()
	c.Logger.Info("controller session started",
		"session_start", *reply.SessionStart,
		"clock_skew_ms", c.Clock.Now().UnixMilli()-*reply.DeviceTime,
	)
	return nil
}

// readLine returns the next line without its terminator. A final line
// without a terminator is dropped along with the error.
func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
