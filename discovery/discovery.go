// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package discovery implements the token-based peer rendezvous of spec.md
// §4.3.1: the server publishes its stub's address under a topic derived
// from the session token, the client subscribes and, once it has the
// server's address, publishes its own back-caller address in reply.
// Grounded on original_source/uitest/connection/ipc_transactors_impl.cpp's
// publish/wait/retry loop.
package discovery

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"go.fuchsia.dev/uitest/eventbus"
)

const (
	// WaitConnTimeoutMs is the hard discovery timeout spec.md §4.3.1 and
	// §5 specify.
	WaitConnTimeoutMs = 5000
	// PublishRetries is the number of republish attempts the server makes
	// while waiting for the client's SetBackCaller (spec.md §4.3.1).
	PublishRetries = 10
)

// PublishTopic returns the event-bus topic a server publishes its stub
// address under for the given session token (spec.md §6).
func PublishTopic(token string) string {
	return "uitest.api.caller.publish#" + token
}

// backCallerTopic is this module's channel for the client's reverse
// SetBackCaller address; spec.md leaves the wire shape of that exchange
// unspecified beyond "registering its own stub as the reverse direction",
// so a sibling topic is used here.
func backCallerTopic(token string) string {
	return PublishTopic(token) + ".backcaller"
}

// ServerPublish publishes addr (the server stub's address — a shmring
// backing-file path, a serialized zx handle, or any backend-specific
// token) and waits up to WaitConnTimeoutMs, retrying up to PublishRetries
// times, for the client to publish its own back-caller address.
func ServerPublish(ctx context.Context, bus eventbus.Bus, token string, addr []byte) (clientAddr []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, WaitConnTimeoutMs*time.Millisecond)
	defer cancel()

	sub, unsub, err := bus.Subscribe(ctx, backCallerTopic(token))
	if err != nil {
		return nil, fmt.Errorf("discovery: subscribe backcaller: %w", err)
	}
	defer unsub()

	limiter := rate.NewLimiter(rate.Every(WaitConnTimeoutMs*time.Millisecond/PublishRetries), 1)
	for attempt := 0; attempt < PublishRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("discovery: server publish timed out: %w", err)
		}
		if err := bus.Publish(ctx, PublishTopic(token), addr); err != nil {
			return nil, fmt.Errorf("discovery: publish stub: %w", err)
		}
		select {
		case clientAddr := <-sub:
			return clientAddr, nil
		case <-ctx.Done():
			return nil, fmt.Errorf("discovery: timed out waiting for peer: %w", ctx.Err())
		default:
		}
	}
	select {
	case clientAddr := <-sub:
		return clientAddr, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("discovery: timed out waiting for peer: %w", ctx.Err())
	}
}

// AnnounceOnce publishes addr under topic a single time. It is used by the
// fallback backend's handshake (spec.md §4.2.2), where the client creates
// the backing file and "hands the token (file path) to the server via the
// event bus" — a one-shot announcement rather than the two-way exchange
// ServerPublish/ClientDiscover perform for the primary backend.
func AnnounceOnce(ctx context.Context, bus eventbus.Bus, topic string, addr []byte) error {
	return bus.Publish(ctx, topic, addr)
}

// AwaitOnce subscribes to topic and returns the first payload published,
// or times out after WaitConnTimeoutMs. Used by the fallback backend's
// server side to receive the client's backing-file path.
func AwaitOnce(ctx context.Context, bus eventbus.Bus, topic string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, WaitConnTimeoutMs*time.Millisecond)
	defer cancel()
	sub, unsub, err := bus.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("discovery: subscribe %s: %w", topic, err)
	}
	defer unsub()
	select {
	case addr := <-sub:
		return addr, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("discovery: timed out awaiting %s: %w", topic, ctx.Err())
	}
}

// ClientDiscover subscribes for the server's published stub address, then
// publishes addr (the client's own back-caller address) in reply.
func ClientDiscover(ctx context.Context, bus eventbus.Bus, token string, addr []byte) (serverAddr []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, WaitConnTimeoutMs*time.Millisecond)
	defer cancel()

	sub, unsub, err := bus.Subscribe(ctx, PublishTopic(token))
	if err != nil {
		return nil, fmt.Errorf("discovery: subscribe publish: %w", err)
	}
	defer unsub()

	select {
	case serverAddr = <-sub:
	case <-ctx.Done():
		return nil, fmt.Errorf("discovery: timed out waiting for server: %w", ctx.Err())
	}

	if err := bus.Publish(ctx, backCallerTopic(token), addr); err != nil {
		return nil, fmt.Errorf("discovery: publish backcaller: %w", err)
	}
	return serverAddr, nil
}
