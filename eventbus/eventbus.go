// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package eventbus provides the "system-wide event bus" spec.md §4.3.1 and
// §6 assume as a platform fact: publish-by-topic discovery for the
// handshake, and the broadcast command channel of §4.3.3. The split
// mirrors dmitrymomot-foundation/core/event's Publisher/Transport
// separation (see its doc.go): Bus is the passive wire, callers are
// responsible for their own request/response correlation on top of it.
package eventbus

import "context"

// Bus is the minimal publish/subscribe primitive this module needs. A
// concrete Bus stands in for whatever system-wide event mechanism the
// target platform actually provides (Fuchsia's component event signaling,
// OpenHarmony's CommonEventManager, ...).
type Bus interface {
	// Publish broadcasts payload under topic. It does not wait for
	// subscribers to read it, though InProcess blocks while a subscriber's
	// buffer is full, until ctx is done.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe returns a channel of payloads published under topic after
	// the call returns, plus an unsubscribe function. The channel is
	// closed when unsubscribe is called; ctx being done does not close it.
	Subscribe(ctx context.Context, topic string) (<-chan []byte, func(), error)
}
