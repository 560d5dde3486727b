// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package shmring

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.fuchsia.dev/uitest/transport"
)

func newPair(t *testing.T) (client, server *Transceiver, cleanup func()) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "uitest-shmring-test")
	if err := CreateBackingFile(path); err != nil {
		t.Fatalf("CreateBackingFile: %v", err)
	}
	if err := WaitForBackingFile(path); err != nil {
		t.Fatalf("WaitForBackingFile: %v", err)
	}
	c, err := New(path, false)
	if err != nil {
		t.Fatalf("New(client): %v", err)
	}
	s, err := New(path, true)
	if err != nil {
		t.Fatalf("New(server): %v", err)
	}
	return c, s, func() {
		c.Finalize()
		s.Finalize()
		os.Remove(path)
	}
}

func TestSendDelivers(t *testing.T) {
	client, server, cleanup := newPair(t)
	defer cleanup()

	received := make(chan []byte, 1)
	server.SetEnqueue(func(kind transport.MessageKind, payload []byte) {
		if kind == transport.Call {
			received <- payload
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Run(ctx)

	if err := client.Send(ctx, transport.Call, []byte("hello"), -1); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-received:
		if string(got) != "hello" {
			t.Errorf("payload = %q, want %q", got, "hello")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestHandshakeAckNotEnqueued(t *testing.T) {
	client, server, cleanup := newPair(t)
	defer cleanup()

	var gotUserMessage bool
	server.SetEnqueue(func(kind transport.MessageKind, payload []byte) {
		gotUserMessage = true
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Run(ctx)
	go client.Run(ctx)

	id := uint32(1)
	_ = id
	if err := client.out.publish(1, transport.Handshake, nil); err != nil {
		t.Fatalf("publish handshake: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if gotUserMessage {
		t.Errorf("Handshake/Ack must not reach the user-visible queue")
	}
}

func TestFdUnsupported(t *testing.T) {
	client, _, cleanup := newPair(t)
	defer cleanup()
	if err := client.Send(context.Background(), transport.Call, []byte("x"), 3); err == nil {
		t.Error("expected error sending with fd on shmring backend")
	}
}
