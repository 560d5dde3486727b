// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package registry

import (
	"context"
	"testing"
)

func TestCollectorFlushesAtBatchSize(t *testing.T) {
	var flushed [][]string
	c := NewCollector(func(ctx context.Context, refs []string) error {
		flushed = append(flushed, append([]string(nil), refs...))
		return nil
	})

	ctx := context.Background()
	for i := 0; i < FlushBatchSize-1; i++ {
		if err := c.Mark(ctx, "widget#0"); err != nil {
			t.Fatalf("mark: %v", err)
		}
	}
	if len(flushed) != 0 {
		t.Fatalf("expected no flush before batch size, got %d", len(flushed))
	}
	if err := c.Mark(ctx, "widget#last"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if len(flushed) != 1 || len(flushed[0]) != FlushBatchSize {
		t.Fatalf("expected one flush of %d, got %v", FlushBatchSize, flushed)
	}
	if c.Pending() != 0 {
		t.Fatalf("expected pending cleared, got %d", c.Pending())
	}
}

func TestFlushNowNoopWhenEmpty(t *testing.T) {
	called := false
	c := NewCollector(func(ctx context.Context, refs []string) error {
		called = true
		return nil
	})
	if err := c.FlushNow(context.Background()); err != nil {
		t.Fatalf("flush now: %v", err)
	}
	if called {
		t.Fatal("expected flush not invoked when pending is empty")
	}
}

func TestFlushNowRetriesOnce(t *testing.T) {
	attempts := 0
	c := NewCollector(func(ctx context.Context, refs []string) error {
		attempts++
		if attempts == 1 {
			return context.DeadlineExceeded
		}
		return nil
	})
	ctx := context.Background()
	if err := c.Mark(ctx, "widget#0"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := c.FlushNow(ctx); err != nil {
		t.Fatalf("flush now: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if c.Pending() != 0 {
		t.Fatalf("expected pending cleared after retry success, got %d", c.Pending())
	}
}
