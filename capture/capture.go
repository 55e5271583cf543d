// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"time"

	"github.com/bureau-foundation/tracebridge/lib/clock"
	"github.com/bureau-foundation/tracebridge/lib/framecache"
	"github.com/bureau-foundation/tracebridge/lib/metrics"
	"github.com/bureau-foundation/tracebridge/lib/netutil"
)

const (
	// DefaultConnectAttempts is the number of connect attempts made
	// before giving up.
	DefaultConnectAttempts = 10

	// DefaultConnectDelay separates failed connect attempts.
	DefaultConnectDelay = time.Second

	headerSize = 12
	readBuffer = 256 << 10
)

var (
	// ErrConnectExhausted is returned by Run when no connection could
	// be made within the configured attempts.
	ErrConnectExhausted = errors.New("capture: connect attempts exhausted")

	// ErrFrameTooLarge is returned by Run when a frame header announces
	// a payload above math.MaxInt32 bytes.
	ErrFrameTooLarge = errors.New("capture: frame size exceeds limit")
)

// DialFunc opens a connection to the capture service.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Client maintains the capture stream and feeds decoded frames into
// Cache.
type Client struct {
	// Address is the TCP address of the capture service.
	Address string

	// Cache receives one frame per time bucket. Required.
	Cache *framecache.Cache

	// Dial overrides the dialer, for tests.
	Dial DialFunc

	// ConnectAttempts and ConnectDelay default to
	// DefaultConnectAttempts and DefaultConnectDelay.
	ConnectAttempts int
	ConnectDelay    time.Duration

	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Run connects and reads frames until ctx is cancelled, reconnecting
// after every stream failure. It returns nil on cancellation.
func (c *Client) Run(ctx context.Context) error {
	if c.Cache == nil {
		return errors.New("capture: Cache is required")
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

		err = c.stream(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrFrameTooLarge) {
			return err
		}

		c.Metrics.CaptureReconnects.Inc()
		if netutil.IsExpectedCloseError(err) {
			c.Logger.Info("capture stream closed, reconnecting", "address", c.Address)
		} else {
			c.Logger.Warn("capture stream failed, reconnecting", "address", c.Address, "error", err)
		}
	}
}

func (c *Client) setDefaults() {
	if c.Dial == nil {
		var dialer net.Dialer
		c.Dial = dialer.DialContext
	}
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = DefaultConnectAttempts
	}
	if c.ConnectDelay <= 0 {
		c.ConnectDelay = DefaultConnectDelay
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
}

func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= c.ConnectAttempts; attempt++ {
		conn, err := c.Dial(ctx, "tcp", c.Address)
		if err == nil {
			c.Logger.Info("capture connected", "address", c.Address, "attempt", attempt)
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		c.Logger.Debug("capture connect failed", "address", c.Address, "attempt", attempt, "error", err)

		if attempt == c.ConnectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.Clock.After(c.ConnectDelay):
		}
	}
	return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrConnectExhausted, c.Address, c.ConnectAttempts, lastErr)
}

// stream reads the banner and then frames until an error occurs.
func (c *Client) stream(ctx context.Context, conn net.Conn) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	reader := bufio.NewReaderSize(conn, readBuffer)
	version, err := readBanner(reader)
	if err != nil {
		return err
	}
	c.Logger.Debug("capture banner received", "version", version)

	var header [headerSize]byte
	for {
		if _, err := io.ReadFull(reader, header[:]); err != nil {
			return err
		}
		size := binary.LittleEndian.Uint32(header[0:4])
		if size > math.MaxInt32 {
			return fmt.Errorf("%w: header announces %d bytes", ErrFrameTooLarge, size)
		}
		timestamp := int64(binary.LittleEndian.Uint64(header[4:12]))

		payload := make([]byte, size)
		if _, err := io.ReadFull(reader, payload); err != nil {
			return err
		}
		c.store(timestamp, payload)
	}
}

func (c *Client) store(timestamp int64, payload []byte) {
	c.Metrics.FramesReceived.Inc()
	if !c.Cache.InsertIfIncreasing(framecache.Bucket(timestamp), payload) {
		c.Metrics.FramesDiscarded.Inc()
		return
	}
	c.Metrics.CachedFrames.Set(float64(c.Cache.Len()))
}

// readBanner consumes the banner and returns the protocol version.
func readBanner(reader *bufio.Reader) (byte, error) {
	version, err := reader.ReadByte()
	if err != nil {
		return 0, err
	}
	length, err := reader.ReadByte()
	if err != nil {
		return 0, err
	}
	if length < 2 {
		return 0, fmt.Errorf("capture: banner length %d is shorter than its own prefix", length)
	}
	if _, err := io.CopyN(io.Discard, reader, int64(length)-2); err != nil {
		return 0, err
	}
	return version, nil
}
