// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// FlushBatchSize is the default number of dead refs the client accumulates
// before it sends a BackendObjectsCleaner call rather than waiting for the
// session to end (spec.md §4.4, §4.5's BackendObjectsCleaner handler).
// Overridable per Collector via NewCollector's batchSize argument, wired to
// config.Options.GcBatchThreshold by callers that construct one.
const FlushBatchSize = 100

// FlushFunc sends a batch of dead refs to the server; it is typically
// transactor.Transactor.Transact against the BackendObjectsCleaner API.
type FlushFunc func(ctx context.Context, refs []string) error

// Collector accumulates client-side object refs that are no longer
// reachable and flushes them to the server in batchSize batches,
// amortizing the number of cleanup round trips (spec.md §4.4).
type Collector struct {
	mu        sync.Mutex
	pending   []string
	flush     FlushFunc
	batchSize int
	// retryLimiter paces the forced-flush retry used by FlushNow when a
	// flush attempt fails transiently, reusing discovery's pacing idiom
	// rather than a tight retry loop.
	retryLimiter *rate.Limiter
}

// NewCollector builds a Collector flushing through flush. batchSize
// optionally overrides FlushBatchSize; omit it to use the default.
func NewCollector(flush FlushFunc, batchSize ...int) *Collector {
	size := FlushBatchSize
	if len(batchSize) > 0 && batchSize[0] > 0 {
		size = batchSize[0]
	}
	return &Collector{
		flush:        flush,
		batchSize:    size,
		retryLimiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
	}
}

// Mark records ref as dead. If the pending batch reaches the configured
// batch size, Mark flushes it immediately; callers that need a guaranteed
// send (e.g. session teardown) should call FlushNow explicitly afterward.
func (c *Collector) Mark(ctx context.Context, ref string) error {
	c.mu.Lock()
	c.pending = append(c.pending, ref)
	due := len(c.pending) >= c.batchSize
	c.mu.Unlock()
	if !due {
		return nil
	}
	return c.FlushNow(ctx)
}

// FlushNow sends whatever is pending, retrying once after a short pace if
// the first attempt fails, and clears the batch only on success.
func (c *Collector) FlushNow(ctx context.Context) error {
	c.mu.Lock()
	batch := c.pending
	c.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	err := c.flush(ctx, batch)
	if err != nil {
		if waitErr := c.retryLimiter.Wait(ctx); waitErr != nil {
			return fmt.Errorf("registry: collector flush wait: %w", waitErr)
		}
		err = c.flush(ctx, batch)
	}
	if err != nil {
		return fmt.Errorf("registry: collector flush failed: %w", err)
	}

	c.mu.Lock()
	c.pending = c.pending[len(batch):]
	c.mu.Unlock()
	return nil
}

// Pending returns the number of refs awaiting flush, for tests and
// diagnostics.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
