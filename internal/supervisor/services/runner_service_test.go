// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chefzaid/travelmapster/internal/websocket"
	"github.com/thejerf/suture/v4"
)

var (
	_ suture.Service = (*RunnerService)(nil)
	_ ContextRunner  = (*websocket.Hub)(nil)
)

type fakeRunner struct {
	err  error
	runs atomic.Int32
}

func (f *fakeRunner) RunWithContext(ctx context.Context) error {
	f.runs.Add(1)
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunnerService_Names(t *testing.T) {
	if got := NewWebSocketHubService(&fakeRunner{}).String(); got != "websocket-hub" {
		t.Errorf("hub service name = %q", got)
	}
	if got := NewRunnerService("geo-refresh", &fakeRunner{}).String(); got != "geo-refresh" {
		t.Errorf("runner name = %q", got)
	}
}

func TestRunnerService_Serve(t *testing.T) {
	t.Run("returns context error on deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := NewRunnerService("r", &fakeRunner{}).Serve(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() = %v, want DeadlineExceeded", err)
		}
	})

	t.Run("propagates runner errors", func(t *testing.T) {
		boom := errors.New("boom")
		err := NewRunnerService("r", &fakeRunner{err: boom}).Serve(context.Background())
		if !errors.Is(err, boom) {
			t.Errorf("Serve() = %v, want %v", err, boom)
		}
	})
}

func TestWebSocketHubService_RealHub(t *testing.T) {
	hub := websocket.NewHub()
	sup := suture.New("test", suture.Spec{Timeout: time.Second})
	sup.Add(NewWebSocketHubService(hub))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-errCh

	select {
	case <-hub.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not finish after supervisor stop")
	}
}
