// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build fuchsia

// Package zxipc implements the primary Transceiver backend of spec.md
// §4.2.1: the host OS's capability-object IPC. It is modeled directly on
// the teacher's own FIDL stub/proxy idiom
// (garnet/examples/fidl/echo_server_go/echo_server.go,
// garnet/go/src/amber/control_server/control_server.go): a zx.Channel
// carries framed Call/Reply/Exit messages, and PEER_CLOSED on the
// channel's handle is the kernel's peer-death signal.
//
// This package only builds under the Fuchsia Go toolchain, which vendors
// syscall/zx — the same constraint the teacher's own files carry (they are
// excluded from ordinary `go build` with the `build_with_native_toolchain`
// tag). It is not reachable from a non-Fuchsia GOOS.
package zxipc

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"syscall/zx"

	"go.fuchsia.dev/uitest/transport"
)

// frameKind distinguishes the two IApiCaller methods spec.md §4.2.1 names
// from ordinary Call/Reply/Exit payloads multiplexed over the same channel.
type frameKind = transport.MessageKind

const (
	// setBackCaller is the frame kind reserved for the Go analogue of
	// IApiCaller::SetBackCaller in
	// original_source/uitest/connection/ipc_transactor.h. Nothing sends a
	// frame of this kind, and Run gives it no special handling: a received
	// one is passed to EnqueueFunc like any other non-Exit frame.
	setBackCaller frameKind = 100
)

// Transceiver wraps a zx.Channel as a transport.Transceiver. One side owns
// the stub (the channel end published to the peer); the other owns the
// proxy (the end obtained from discovery). Transact direction is
// symmetric once both ends are connected, matching ApiTransactor's mirrored
// client/server roles (spec.md §4.3.1).
type Transceiver struct {
	ch         zx.Channel
	enqueue    transport.EnqueueFunc
	nextID     uint32
	lastFd     int
	lastFdSeen bool
	onDeath    func()
	exitReq    atomic.Bool
}

// New wraps an already-connected channel end (obtained via publish/subscribe
// in package discovery) as a Transceiver.
func New(ch zx.Channel) *Transceiver {
	return &Transceiver{ch: ch, lastFd: -1}
}

// OnPeerDeath registers the callback fired when the channel's peer closes,
// the zxipc analogue of ApiCallerProxy's DeathRecipient (spec.md §4.3.1).
func (t *Transceiver) OnPeerDeath(fn func()) { t.onDeath = fn }

func (t *Transceiver) SetEnqueue(fn transport.EnqueueFunc) { t.enqueue = fn }

func (t *Transceiver) LastFd() (int, bool) { return t.lastFd, t.lastFdSeen }

// Send writes one frame to the channel. When fd >= 0, the descriptor is
// wrapped as a zx.Handle and transferred natively alongside the bytes —
// spec.md §4.2.1's "Handle passing of FDs is native."
func (t *Transceiver) Send(ctx context.Context, kind transport.MessageKind, payload []byte, fd int) error {
	id := atomic.AddUint32(&t.nextID, 1)
	header := make([]byte, 5)
	binary.LittleEndian.PutUint32(header[0:4], id)
	header[4] = byte(kind)
	frame := append(header, payload...)

	var handles []zx.Handle
	if fd >= 0 {
		h, err := zx.HandleFromFd(fd)
		if err != nil {
			return fmt.Errorf("zxipc: wrap fd as handle: %w", err)
		}
		handles = []zx.Handle{h}
	}
	if err := t.ch.Write(frame, handles, 0); err != nil {
		return fmt.Errorf("zxipc: channel write: %w", err)
	}
	return nil
}

// Run drains incoming frames until the channel's peer closes or RequestExit
// is observed, mirroring ApiTransactor's reader task.
func (t *Transceiver) Run(ctx context.Context) error {
	for {
		if t.exitReq.Load() {
			return nil
		}
		signals, err := t.ch.Handle().WaitOne(zx.SignalChannelReadable|zx.SignalChannelPeerClosed, zx.TimensecInfinite)
		if err != nil {
			return fmt.Errorf("zxipc: wait: %w", err)
		}
		if signals&zx.SignalChannelPeerClosed != 0 {
			if t.onDeath != nil {
				t.onDeath()
			}
			return fmt.Errorf("zxipc: connection with uitest_daemon is dead")
		}
		data, handles, err := t.ch.Read(0)
		if err != nil {
			return fmt.Errorf("zxipc: channel read: %w", err)
		}
		if len(data) < 5 {
			continue
		}
		kind := transport.MessageKind(data[4])
		payload := data[5:]

		t.lastFd, t.lastFdSeen = -1, false
		if len(handles) > 0 {
			fd, err := handles[0].ToFd()
			if err == nil {
				t.lastFd, t.lastFdSeen = fd, true
			}
		}

		switch kind {
		case transport.Exit:
			return nil
		default:
			if t.enqueue != nil {
				t.enqueue(kind, payload)
			}
		}
	}
}

func (t *Transceiver) RequestExit() {
	t.exitReq.Store(true)
	_ = t.Send(context.Background(), transport.Exit, nil, -1)
}

func (t *Transceiver) Finalize() error {
	return t.ch.Close()
}
