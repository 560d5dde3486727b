// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package shmring implements the fallback Transceiver backend described in
// spec.md §4.2.2: a fixed 8 KiB shared-memory mapping split into two ring
// slots (client→server, server→client), each handed off via a spinning
// ready flag, plus a watchdog task that detects peer silence and emits
// Handshake/Ack keepalives.
package shmring

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"go.fuchsia.dev/uitest/transport"
)

const (
	// TotalSize is the fixed mapping size spec.md §6 specifies.
	TotalSize = 8192
	slotSize  = TotalSize / 2
	// slotHeaderSize covers ready(4)+id(4)+kind(4)+reserved(4)+dataLen(8).
	slotHeaderSize = 24
	// CharBufSize is the per-message payload capacity of one slot.
	CharBufSize = slotSize - slotHeaderSize

	// WatchDogTimeoutMs is the hard silence window spec.md §4.2.2 defines.
	WatchDogTimeoutMs = 2000
	// watchdogPollDivisor yields the ~1/100th cadence spec.md specifies.
	watchdogPollDivisor = 100
	// handshakeThreshold is the 0.9x fraction of the timeout after which
	// an idle side proactively emits a Handshake keepalive.
	handshakeThresholdNum = 9
	handshakeThresholdDen = 10

	spinSleep = time.Millisecond
)

const (
	readyOff   = 0
	idOff      = 4
	kindOff    = 8
	dataLenOff = 16
	dataOff    = slotHeaderSize
)

// slot is a view over one 4 KiB half of the mapping.
type slot struct {
	buf []byte
}

func (s slot) readyPtr() *uint32 {
	return (*uint32)(unsafe.Pointer(&s.buf[readyOff]))
}

func (s slot) isReady() bool { return atomic.LoadUint32(s.readyPtr()) != 0 }

// publish writes id/kind/payload then sets ready last, per spec.md §5's
// "the flag write must be the last store" rule.
func (s slot) publish(id uint32, kind transport.MessageKind, payload []byte) error {
	if len(payload) > CharBufSize {
		return fmt.Errorf("shmring: payload %d bytes exceeds slot capacity %d", len(payload), CharBufSize)
	}
	putUint32(s.buf, idOff, id)
	putUint32(s.buf, kindOff, uint32(kind))
	putUint64(s.buf, dataLenOff, uint64(len(payload)))
	copy(s.buf[dataOff:], payload)
	for i := len(payload); i < CharBufSize; i++ {
		s.buf[dataOff+i] = 0
	}
	atomic.StoreUint32(s.readyPtr(), 1)
	return nil
}

// consume copies out the pending message and clears ready, the mirror half
// of publish.
func (s slot) consume() (id uint32, kind transport.MessageKind, payload []byte) {
	id = getUint32(s.buf, idOff)
	kind = transport.MessageKind(getUint32(s.buf, kindOff))
	n := getUint64(s.buf, dataLenOff)
	payload = make([]byte, n)
	copy(payload, s.buf[dataOff:dataOff+int(n)])
	atomic.StoreUint32(s.readyPtr(), 0)
	return id, kind, payload
}

func putUint32(b []byte, off int, v uint32) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}
func getUint32(b []byte, off int) uint32 {
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}
func putUint64(b []byte, off int, v uint64) {
	for i := 0; i < 8; i++ {
		b[off+i] = byte(v >> (8 * i))
	}
}
func getUint64(b []byte, off int) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[off+i]) << (8 * i)
	}
	return v
}

// Transceiver is the shared-memory fallback backend. One side is the
// producer on the "out" slot and consumer on the "in" slot; roles are
// mirrored for the peer.
type Transceiver struct {
	asServer   bool
	path       string
	mapping    []byte
	out, in    slot
	enqueue    transport.EnqueueFunc
	nextID     uint32
	exitCh     chan struct{}
	diedCh     chan struct{}
	diedOnce   bool
	lastOutTs  atomic.Int64
	lastInTs   atomic.Int64
	lastFd     int
	lastFdSeen bool
}

// CreateBackingFile is called by the client role: it creates and truncates
// the fixed-size backing file, per spec.md §4.2.2 / §6.
func CreateBackingFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return fmt.Errorf("shmring: create backing file: %w", err)
	}
	defer f.Close()
	if err := f.Truncate(TotalSize); err != nil {
		return fmt.Errorf("shmring: truncate backing file: %w", err)
	}
	log.Printf("shmring: created %s backing file (%s)", path, humanize.Bytes(TotalSize))
	return nil
}

// WaitForBackingFile is called by the server role: it polls for the
// client's backing file to appear and be fully sized, up to 100 * 50ms per
// spec.md §6.
func WaitForBackingFile(path string) error {
	for i := 0; i < 100; i++ {
		if fi, err := os.Stat(path); err == nil && fi.Size() >= TotalSize {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("shmring: backing file %s did not appear in time", path)
}

// New maps path and returns a Transceiver. asServer selects which half of
// the mapping this side produces into; the client produces into slot 0,
// the server into slot 1, and each consumes the other.
func New(path string, asServer bool) (*Transceiver, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o666)
	if err != nil {
		return nil, fmt.Errorf("shmring: open backing file: %w", err)
	}
	defer f.Close()

	mapping, err := unix.Mmap(int(f.Fd()), 0, TotalSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shmring: mmap: %w", err)
	}

	clientToServer := slot{buf: mapping[0:slotSize]}
	serverToClient := slot{buf: mapping[slotSize:TotalSize]}

	t := &Transceiver{
		asServer: asServer,
		path:     path,
		mapping:  mapping,
		exitCh:   make(chan struct{}),
		diedCh:   make(chan struct{}),
		lastFd:   -1,
	}
	now := time.Now().UnixMilli()
	t.lastOutTs.Store(now)
	t.lastInTs.Store(now)
	if asServer {
		t.out, t.in = serverToClient, clientToServer
	} else {
		t.out, t.in = clientToServer, serverToClient
	}
	return t, nil
}

func (t *Transceiver) SetEnqueue(fn transport.EnqueueFunc) { t.enqueue = fn }

// LastFd is always empty for shmring: this backend carries no native
// handle-passing mechanism (spec.md §4.1: "if the transport does not
// support handle passing on this path, the call fails with Internal").
func (t *Transceiver) LastFd() (int, bool) { return -1, false }

func (t *Transceiver) Send(ctx context.Context, kind transport.MessageKind, payload []byte, fd int) error {
	if fd >= 0 {
		return fmt.Errorf("shmring: handle passing unsupported on this transport: %w", errInternal)
	}
	id := atomic.AddUint32(&t.nextID, 1)
	for t.out.isReady() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.diedCh:
			return errConnectionDied
		default:
			time.Sleep(spinSleep)
		}
	}
	if err := t.out.publish(id, kind, payload); err != nil {
		return err
	}
	t.lastOutTs.Store(time.Now().UnixMilli())
	return nil
}

var (
	errInternal        = fmt.Errorf("shmring: internal transport error")
	errConnectionDied  = fmt.Errorf("shmring: connection with uitest_daemon is dead")
)

// Run starts the reader and watchdog loops and blocks until one of exit,
// death, or ctx cancellation.
func (t *Transceiver) Run(ctx context.Context) error {
	readerDone := make(chan error, 1)
	watchdogDone := make(chan struct{})

	go func() { readerDone <- t.readLoop(ctx) }()
	go func() { t.watchdogLoop(ctx); close(watchdogDone) }()

	select {
	case err := <-readerDone:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Transceiver) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.exitCh:
			return nil
		case <-t.diedCh:
			return errConnectionDied
		default:
		}
		if !t.in.isReady() {
			time.Sleep(spinSleep)
			continue
		}
		_, kind, payload := t.in.consume()
		t.lastInTs.Store(time.Now().UnixMilli())
		switch kind {
		case transport.Handshake:
			// Reply with Ack; neither is enqueued to the user-visible
			// queue (spec.md §4.2.2).
			id := atomic.AddUint32(&t.nextID, 1)
			for t.out.isReady() {
				time.Sleep(spinSleep)
			}
			_ = t.out.publish(id, transport.Ack, nil)
			t.lastOutTs.Store(time.Now().UnixMilli())
		case transport.Ack:
			// liveness already recorded above; nothing else to do.
		case transport.Exit:
			close(t.exitCh)
			return nil
		default:
			if t.enqueue != nil {
				t.enqueue(kind, payload)
			}
		}
	}
}

// watchdogLoop implements spec.md §4.2.2's liveness protocol: compare
// "now - last incoming" against WatchDogTimeoutMs, and proactively emit a
// Handshake once the outgoing side has been quiet past 0.9x the timeout.
func (t *Transceiver) watchdogLoop(ctx context.Context) {
	cadence := time.Duration(WatchDogTimeoutMs/watchdogPollDivisor) * time.Millisecond
	if cadence <= 0 {
		cadence = time.Millisecond
	}
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.exitCh:
			return
		case <-ticker.C:
			now := time.Now().UnixMilli()
			if now-t.lastInTs.Load() > WatchDogTimeoutMs {
				t.markDead()
				return
			}
			threshold := int64(WatchDogTimeoutMs) * handshakeThresholdNum / handshakeThresholdDen
			if now-t.lastOutTs.Load() > threshold && !t.out.isReady() {
				id := atomic.AddUint32(&t.nextID, 1)
				if err := t.out.publish(id, transport.Handshake, nil); err == nil {
					t.lastOutTs.Store(now)
				}
			}
		}
	}
}

func (t *Transceiver) markDead() {
	if !t.diedOnce {
		t.diedOnce = true
		close(t.diedCh)
	}
}

func (t *Transceiver) RequestExit() {
	id := atomic.AddUint32(&t.nextID, 1)
	for t.out.isReady() {
		time.Sleep(spinSleep)
	}
	_ = t.out.publish(id, transport.Exit, nil)
	select {
	case <-t.exitCh:
	default:
		close(t.exitCh)
	}
}

// Finalize unmaps the shared region and, on the client side, unlinks the
// backing file. Safe to call more than once. See DESIGN.md's note on the
// spec's acknowledged abnormal-exit leak (spec.md §9 Open Questions).
func (t *Transceiver) Finalize() error {
	if t.mapping == nil {
		return nil
	}
	err := unix.Munmap(t.mapping)
	t.mapping = nil
	if !t.asServer {
		if rmErr := os.Remove(t.path); rmErr != nil && !os.IsNotExist(rmErr) {
			if err == nil {
				err = rmErr
			}
		}
	}
	return err
}
