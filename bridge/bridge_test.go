// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/tracebridge/capture"
	"github.com/bureau-foundation/tracebridge/lib/clock"
	"github.com/bureau-foundation/tracebridge/lib/config"
	"github.com/bureau-foundation/tracebridge/lib/recorder"
	"github.com/bureau-foundation/tracebridge/lib/testutil"
)

const waitTimeout = 5 * time.Second

func newBridge(t *testing.T, controllerListener net.Listener) (*Bridge, string) {
	t.Helper()
	dir := t.TempDir()
	rec, err := recorder.New(dir, "")
	if err != nil {
		t.Fatalf("recorder.New: %v", err)
	}

	cfg := config.Default()
	cfg.Capture.Enabled = false
	host, port, err := net.SplitHostPort(controllerListener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	cfg.Controller.Host = host
	if cfg.Controller.Port, err = strconv.Atoi(port); err != nil {
		t.Fatal(err)
	}

	return &Bridge{Config: cfg, Recorder: rec, Registry: prometheus.NewRegistry()}, dir
}

// waitForFile polls until path exists.
func waitForFile(t *testing.T, path string) {
	t.Helper()
	deadline := time.After(waitTimeout) //nolint:realclock test hang prevention
	for {
		if _, err := os.Stat(path); err == nil {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("%s was not written", path)
		case <-time.After(10 * time.Millisecond): //nolint:realclock polling a file written by another goroutine
		}
	}
}

// startBridge runs b and returns a function that cancels it and
// returns Run's result.
func startBridge(t *testing.T, b *Bridge) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	t.Cleanup(cancel)
	return func() error {
		cancel()
		return testutil.RequireReceive(t, done, waitTimeout, "bridge shutdown")
	}
}

func TestRunRequiresConfigAndRecorder(t *testing.T) {
	if err := (&Bridge{}).Run(context.Background()); err == nil {
		t.Error("expected an error without a config")
	}
	if err := (&Bridge{Config: config.Default()}).Run(context.Background()); err == nil {
		t.Error("expected an error without a recorder")
	}
}

func TestRunRecordsEventsAndServesMetrics(t *testing.T) {
	controllerListener := testutil.Listen(t)
	b, dir := newBridge(t, controllerListener)
	metricsListener := testutil.Listen(t)
	b.MetricsListener = metricsListener

	stop := startBridge(t, b)

	conn := testutil.Accept(t, controllerListener, waitTimeout)
	reader := bufio.NewReader(conn)
	for _, want := range []string{"info", "crash_expose", "a11y_event_min_intv 50", "trace"} {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("reading handshake: %v", err)
		}
		if got := strings.TrimSpace(line); got != want {
			t.Fatalf("handshake command %q, want %q", got, want)
		}
	}
	if _, err := io.WriteString(conn, "{\"st\":1,\"ct\":2}\n[100][BK]\n[150][{\"hash\":1,\"act_id\":\"A\"}]\n"); err != nil {
		t.Fatalf("writing: %v", err)
	}

	waitForFile(t, filepath.Join(dir, "150.json"))
	data, err := os.ReadFile(filepath.Join(dir, "150.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"ua_type":100`) {
		t.Errorf("recorded window %s lacks the action type", data)
	}

	response, err := http.Get("http://" + metricsListener.Addr().String() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, err := io.ReadAll(response.Body)
	response.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"tracebridge_controller_events_recorded_total 1",
		"tracebridge_controller_sessions_total 1",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output lacks %q", want)
		}
	}

	if err := stop(); err != nil {
		t.Errorf("Run = %v, want nil after cancellation", err)
	}
}

func TestFatalCaptureErrorStopsBridge(t *testing.T) {
	controllerListener := testutil.Listen(t)
	b, _ := newBridge(t, controllerListener)
	b.Config.Capture.Enabled = true

	server, client := net.Pipe()
	b.CaptureDial = func(ctx context.Context, network, address string) (net.Conn, error) {
		return client, nil
	}
	go func() {
		stream := make([]byte, 24+12)
		stream[0], stream[1] = 1, 24
		binary.LittleEndian.PutUint32(stream[24:28], 0xFFFFFFFF)
		server.Write(stream)
	}()

	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background()) }()

	err := testutil.RequireReceive(t, done, waitTimeout, "bridge exit")
	if !errors.Is(err, capture.ErrFrameTooLarge) {
		t.Fatalf("Run = %v, want ErrFrameTooLarge", err)
	}
}

func TestWatchdogRunsAppRestart(t *testing.T) {
	controllerListener := testutil.Listen(t)
	b, dir := newBridge(t, controllerListener)
	fake := clock.Fake(time.Unix(1700000000, 0))
	b.Clock = fake

	marker := filepath.Join(dir, "restarted")
	b.Config.Recovery.AppRestartCommand = "touch " + marker
	b.Config.Recovery.WatchdogInterval = config.Duration(time.Second)

	stop := startBridge(t, b)

	fake.WaitForTimers(1)
	fake.Advance(time.Second)
	waitForFile(t, marker)

	if err := stop(); err != nil {
		t.Errorf("Run = %v, want nil after cancellation", err)
	}
}

func TestMetricsListenFailure(t *testing.T) {
	occupied := testutil.Listen(t)
	b, _ := newBridge(t, testutil.Listen(t))
	b.Config.Metrics.Listen = occupied.Addr().String()

	if err := b.Run(context.Background()); err == nil {
		t.Fatal("expected an error when the metrics address is in use")
	}
}
