// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package transport defines the Transceiver abstraction shared by the two
// backends described in spec.md §4.2: a capability-IPC backend
// (transport/zxipc) and a shared-memory ring-buffer fallback
// (transport/shmring).
package transport

import "context"

// MessageKind mirrors TransactionMessage.kind (spec.md §3). Handshake,
// Ack and Exit never reach EnqueueFunc: the backends consume them, and an
// Exit makes Run return.
type MessageKind uint8

const (
	Invalid MessageKind = iota
	Call
	Reply
	Handshake
	Ack
	Exit
)

// TransactionMessage is the shared-memory wire envelope (spec.md §3). No
// backend materializes this type: transport/shmring writes the same
// id/kind/payload fields directly into its slots.
type TransactionMessage struct {
	Id      uint32
	Kind    MessageKind
	Payload []byte
}

// PollOutcome names the outcomes of a blocking wait for the next message
// (spec.md §4.2.3). Transceiver has no poll method and nothing in this
// module returns a PollOutcome; backends deliver messages through
// EnqueueFunc instead.
type PollOutcome uint8

const (
	Success PollOutcome = iota
	AbortWaitTimeout
	AbortConnectionDied
	AbortRequestExit
)

// EnqueueFunc is invoked by a Transceiver's background reader for each
// incoming Call/Reply message. Implementations must not block for long;
// the transactor's enqueue hands each incoming call to its own goroutine.
type EnqueueFunc func(kind MessageKind, payload []byte)

// Transceiver moves one serialized message across the process boundary and
// delivers incoming ones to an EnqueueFunc (spec.md §4.2). Both backends —
// zxipc and shmring — implement this interface; the Transactor is written
// against it alone.
type Transceiver interface {
	// Send transmits payload, optionally carrying an out-of-band file
	// descriptor when fd >= 0 (spec.md §4.1's handle-passing rule). It
	// returns an error if the transport does not support handle passing
	// and fd >= 0.
	Send(ctx context.Context, kind MessageKind, payload []byte, fd int) error

	// SetEnqueue installs the callback invoked for every incoming Call or
	// Reply message. Must be called before the background reader
	// starts delivering messages.
	SetEnqueue(fn EnqueueFunc)

	// LastFd returns the file descriptor attached to the most recently
	// delivered message, if any, and whether one was present. Valid only
	// immediately after the corresponding EnqueueFunc invocation.
	LastFd() (fd int, ok bool)

	// Run starts the background reader (and, for shmring, the watchdog)
	// and blocks until ctx is canceled, the peer is observed dead, or
	// RequestExit is called. It returns nil on a clean exit request and a
	// non-nil error otherwise (peer death, transport failure).
	Run(ctx context.Context) error

	// RequestExit asks Run to return promptly; analogous to the Exit
	// pseudo-message short-circuiting a timeout wait (spec.md §4.2.3).
	RequestExit()

	// Finalize releases transport resources (handles, mappings, backing
	// files). Safe to call more than once.
	Finalize() error
}
