// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersEveryCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.FramesReceived.Add(3)
	m.CachedFrames.Set(42)
	m.WatchdogRecoveries.WithLabelValues(ActionDevice).Inc()

	if got := testutil.ToFloat64(m.FramesReceived); got != 3 {
		t.Fatalf("frames received = %f, want 3", got)
	}
	if got := testutil.ToFloat64(m.CachedFrames); got != 42 {
		t.Fatalf("cached frames = %f, want 42", got)
	}
	if got := testutil.ToFloat64(m.WatchdogRecoveries.WithLabelValues(ActionDevice)); got != 1 {
		t.Fatalf("device recoveries = %f, want 1", got)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	// The counter vector only appears once a label value exists, which
	// it does above, so every collector is present.
	if len(families) != len(m.collectors()) {
		t.Errorf("gathered %d families, want %d", len(families), len(m.collectors()))
	}
	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), namespace+"_") {
			t.Errorf("metric %q lacks the %s namespace", family.GetName(), namespace)
		}
	}
}

func TestDiscardIsUsable(t *testing.T) {
	m := Discard()
	m.ViewsDisabled.Inc()
	if got := testutil.ToFloat64(m.ViewsDisabled); got != 1 {
		t.Fatalf("views disabled = %f, want 1", got)
	}
	// A second unregistered set must not collide with the first.
	Discard().ViewsDisabled.Inc()
}

func TestServe(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)
	m.EventsRecorded.Inc()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, listener, registry, nil) }()

	response, err := http.Get("http://" + listener.Addr().String() + "/metrics")
	if err != nil {
		cancel()
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(response.Body)
	response.Body.Close()
	if !strings.Contains(string(body), "tracebridge_controller_events_recorded_total 1") {
		t.Errorf("metrics body missing recorded events counter:\n%s", body)
	}

	response, err = http.Get("http://" + listener.Addr().String() + "/healthz")
	if err != nil {
		cancel()
		t.Fatalf("GET /healthz: %v", err)
	}
	response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", response.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("Serve did not return after cancellation")
	}
}
