// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package transactor

import (
	"context"
	"sync"

	"go.fuchsia.dev/uitest/transport"
)

// pipeTransceiver is an in-memory transport.Transceiver used to exercise
// Transactor without a real IPC backend, wiring two instances back to
// back the way shmring wires two mmap slots.
type pipeTransceiver struct {
	mu      sync.Mutex
	peer    *pipeTransceiver
	enqueue transport.EnqueueFunc
	lastFd  int
	fdSeen  bool
	exitCh  chan struct{}
	died    chan struct{}
}

func newPipePair() (*pipeTransceiver, *pipeTransceiver) {
	a := &pipeTransceiver{exitCh: make(chan struct{}), died: make(chan struct{})}
	b := &pipeTransceiver{exitCh: make(chan struct{}), died: make(chan struct{})}
	a.peer, b.peer = b, a
	return a, b
}

func (p *pipeTransceiver) SetEnqueue(fn transport.EnqueueFunc) { p.enqueue = fn }

func (p *pipeTransceiver) LastFd() (int, bool) { return p.lastFd, p.fdSeen }

func (p *pipeTransceiver) Send(ctx context.Context, kind transport.MessageKind, payload []byte, fd int) error {
	p.peer.lastFd = fd
	p.peer.fdSeen = fd >= 0
	if p.peer.enqueue != nil {
		go p.peer.enqueue(kind, payload)
	}
	return nil
}

func (p *pipeTransceiver) Run(ctx context.Context) error {
	select {
	case <-p.exitCh:
		return nil
	case <-p.died:
		return errConnDied
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeTransceiver) RequestExit() { close(p.exitCh) }

func (p *pipeTransceiver) Finalize() error { return nil }

// killPeer simulates an abrupt peer death observed by this side's Run.
func (p *pipeTransceiver) killPeer() { close(p.died) }

type sentinelErr string

func (e sentinelErr) Error() string { return string(e) }

const errConnDied = sentinelErr("connection with peer is dead")
