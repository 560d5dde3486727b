// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package config loads the runtime-tunable knobs this module's
// SPEC_FULL.md ambient stack calls for: the GC batch threshold and the
// input-validation bounds of spec.md §4.5.3. It follows the
// environment-driven approach the example pack's dmitrymomot-foundation
// core/config package documents, built directly on
// github.com/caarlos0/env/v11 rather than reimplementing env parsing.
//
// The fixed timing and wire-layout constants spec.md §4.2.2/§4.3.1 and
// §6 specify (WatchDogTimeoutMs, WaitConnTimeoutMs, CharBufSize) stay
// compile-time constants in their owning packages (transport/shmring,
// discovery) rather than moving here: they size a fixed shared-memory
// layout and a handshake protocol baked into both ends of a connection,
// not a per-process preference a single side can change unilaterally.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Options holds every tunable this module exposes for override at process
// start. Fields left at their zero value fall back to the package default
// they override (registry.FlushBatchSize, apiserver's input-limit
// constants).
type Options struct {
	// GcBatchThreshold overrides registry.FlushBatchSize: how many dead
	// refs registry.Collector accumulates before flushing
	// BackendObjectsCleaner.recycle (spec.md §4.4).
	GcBatchThreshold int `env:"UITEST_GC_BATCH_THRESHOLD" envDefault:"100"`

	// LongClickHoldMinMs overrides the longClick hold-duration floor
	// (spec.md §4.5.3).
	LongClickHoldMinMs int `env:"UITEST_LONG_CLICK_HOLD_MIN_MS" envDefault:"1500"`

	// SwipeVelocityMinPps and SwipeVelocityMaxPps override the swipe
	// velocity clamp range (spec.md §4.5.3).
	SwipeVelocityMinPps int `env:"UITEST_SWIPE_VELOCITY_MIN_PPS" envDefault:"200"`
	SwipeVelocityMaxPps int `env:"UITEST_SWIPE_VELOCITY_MAX_PPS" envDefault:"40000"`
}

// Load populates an Options from the process environment, applying the
// envDefault tags for anything unset. It returns an error rather than
// exiting the process — per spec.md §1 Non-goals there is no CLI entry
// point in this module to call os.Exit on its behalf.
func Load() (Options, error) {
	var opts Options
	if err := env.Parse(&opts); err != nil {
		return Options{}, fmt.Errorf("config: parse environment: %w", err)
	}
	if opts.SwipeVelocityMinPps > opts.SwipeVelocityMaxPps {
		return Options{}, fmt.Errorf("config: swipe velocity min %d exceeds max %d", opts.SwipeVelocityMinPps, opts.SwipeVelocityMaxPps)
	}
	return opts, nil
}

// MustLoad is Load, panicking on failure; useful at process start where
// there is no sensible degraded mode.
func MustLoad() Options {
	opts, err := Load()
	if err != nil {
		panic(err)
	}
	return opts
}
