// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockService is a controllable suture.Service for exercising the tree.
type mockService struct {
	name       string
	startCount atomic.Int32
	failsLeft  int32
	mu         sync.Mutex
}

func newMockService(name string) *mockService {
	return &mockService{name: name}
}

func (m *mockService) Serve(ctx context.Context) error {
	m.startCount.Add(1)

	m.mu.Lock()
	fail := m.failsLeft > 0
	if fail {
		m.failsLeft--
	}
	m.mu.Unlock()

	if fail {
		return errors.New("simulated failure")
	}

	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) setFailCount(n int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failsLeft = n
}

func (m *mockService) String() string { return m.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTreeDefaults(t *testing.T) {
	tree := NewTree("test", testLogger(), TreeConfig{})

	if tree.Root() == nil {
		t.Fatal("root supervisor is nil")
	}
	if tree.config.FailureThreshold != 5.0 {
		t.Errorf("FailureThreshold = %f, want 5.0", tree.config.FailureThreshold)
	}
	if tree.config.FailureDecay != 30.0 {
		t.Errorf("FailureDecay = %f, want 30.0", tree.config.FailureDecay)
	}
	if tree.config.FailureBackoff != 15*time.Second {
		t.Errorf("FailureBackoff = %v, want 15s", tree.config.FailureBackoff)
	}
	if tree.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", tree.config.ShutdownTimeout)
	}

	def := DefaultTreeConfig()
	if def != tree.config {
		t.Errorf("zero config did not resolve to defaults: %+v", tree.config)
	}
}

func TestTreeStartsAllLayers(t *testing.T) {
	tree := NewTree("test", testLogger(), TreeConfig{ShutdownTimeout: time.Second})

	feeds := newMockService("feeds-svc")
	msg := newMockService("messaging-svc")
	api := newMockService("api-svc")
	tree.AddFeedsService(feeds)
	tree.AddMessagingService(msg)
	tree.AddAPIService(api)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	errCh := tree.ServeBackground(ctx)

	deadline := time.After(time.Second)
	for feeds.startCount.Load() < 1 || msg.startCount.Load() < 1 || api.startCount.Load() < 1 {
		select {
		case <-deadline:
			t.Fatalf("services not all started: feeds=%d msg=%d api=%d",
				feeds.startCount.Load(), msg.startCount.Load(), api.startCount.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("unexpected terminal error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("tree did not shut down in time")
	}
}

func TestTreeRestartsFailingService(t *testing.T) {
	tree := NewTree("test", testLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	flaky := newMockService("flaky")
	flaky.setFailCount(2)
	stable := newMockService("stable")

	tree.AddFeedsService(flaky)
	tree.AddAPIService(stable)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	tree.ServeBackground(ctx)

	deadline := time.After(time.Second)
	for flaky.startCount.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("flaky service restarted %d times, want >= 3", flaky.startCount.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
	if stable.startCount.Load() < 1 {
		t.Error("stable service never started")
	}
}
