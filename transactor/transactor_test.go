// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package transactor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.fuchsia.dev/uitest/apidefs"
	"go.fuchsia.dev/uitest/value"
)

func echoHandler(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
	if len(call.ParamList) == 0 {
		return apidefs.NewApiReplyInfo(value.NewNull())
	}
	return apidefs.NewApiReplyInfo(call.ParamList[0])
}

func newBoundPair(t *testing.T, serverHandler, clientHandler Handler) (client, server *Transactor, teardown func()) {
	t.Helper()
	clientTv, serverTv := newPipePair()
	client = New(false, clientHandler)
	server = New(true, serverHandler)

	ctx := context.Background()
	if err := client.Bind(ctx, clientTv, false); err != nil {
		t.Fatalf("bind client: %v", err)
	}
	if err := server.Bind(ctx, serverTv, false); err != nil {
		t.Fatalf("bind server: %v", err)
	}
	return client, server, func() {
		_ = client.Close()
		_ = server.Close()
	}
}

func TestTransactRoundTrip(t *testing.T) {
	client, _, teardown := newBoundPair(t, echoHandler, nil)
	defer teardown()

	reply := client.Transact(context.Background(), apidefs.NewApiCallInfo("Driver.click", "Driver#0", value.NewString("hi")))
	if !reply.Ok() {
		t.Fatalf("expected success, got %v", reply.Exception)
	}
	got, err := reply.ResultValue.Str()
	if err != nil || got != "hi" {
		t.Fatalf("expected echoed string, got %q err %v", got, err)
	}
}

func TestTransactBeforeConnectPanics(t *testing.T) {
	tr := New(false, nil)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic calling Transact before Connect")
		}
	}()
	tr.Transact(context.Background(), apidefs.NewApiCallInfo("Driver.click", "", value.NewNull()))
}

func TestConcurrentCallRejected(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	blocking := func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
		entered <- struct{}{}
		<-release
		return apidefs.NewApiReplyInfo(value.NewNull())
	}
	client, _, teardown := newBoundPair(t, blocking, nil)
	defer teardown()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		client.Transact(context.Background(), apidefs.NewApiCallInfo("Driver.click", "", value.NewNull()))
	}()

	<-entered // first call now in flight on the server, processingApi set on client

	reply := client.Transact(context.Background(), apidefs.NewApiCallInfo("Driver.longClick", "", value.NewNull()))
	if reply.Exception.Code != apidefs.ApiUsage {
		t.Fatalf("expected ApiUsage, got %v", reply.Exception)
	}
	if !strings.Contains(reply.Exception.Message, "Driver.click") || !strings.Contains(reply.Exception.Message, "Driver.longClick") {
		t.Fatalf("expected message naming both ids, got %q", reply.Exception.Message)
	}

	close(release)
	wg.Wait()
}

func TestPeerDeathTransitionsDisconnected(t *testing.T) {
	clientTv, serverTv := newPipePair()
	client := New(false, nil)
	server := New(true, echoHandler)

	ctx := context.Background()
	if err := client.Bind(ctx, clientTv, false); err != nil {
		t.Fatalf("bind client: %v", err)
	}
	if err := server.Bind(ctx, serverTv, false); err != nil {
		t.Fatalf("bind server: %v", err)
	}

	defer func() {
		_ = client.Close()
		_ = server.Close()
	}()

	died := make(chan struct{})
	client.OnDeath(func() { close(died) })

	clientTv.killPeer()

	select {
	case <-died:
	case <-time.After(2 * time.Second):
		t.Fatal("expected OnDeath to fire")
	}

	if client.State() != Disconnected {
		t.Fatalf("expected Disconnected, got %v", client.State())
	}

	reply := client.Transact(context.Background(), apidefs.NewApiCallInfo("Driver.click", "", value.NewNull()))
	if reply.Exception.Code != apidefs.Internal || !strings.Contains(reply.Exception.Message, "ipc connection is dead") {
		t.Fatalf("expected dead-connection reply, got %v", reply.Exception)
	}
}

func TestPeerDeathMidCallUnblocksTransact(t *testing.T) {
	entered := make(chan struct{}, 1)
	hang := make(chan struct{})
	blocking := func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
		entered <- struct{}{}
		<-hang
		return apidefs.NewApiReplyInfo(value.NewNull())
	}

	clientTv, serverTv := newPipePair()
	client := New(false, nil)
	server := New(true, blocking)

	ctx := context.Background()
	if err := client.Bind(ctx, clientTv, false); err != nil {
		t.Fatalf("bind client: %v", err)
	}
	if err := server.Bind(ctx, serverTv, false); err != nil {
		t.Fatalf("bind server: %v", err)
	}
	defer close(hang)
	defer func() {
		_ = client.Close()
		_ = server.Close()
	}()

	replyCh := make(chan apidefs.ApiReplyInfo, 1)
	go func() {
		replyCh <- client.Transact(context.Background(), apidefs.NewApiCallInfo("Driver.click", "", value.NewNull()))
	}()

	<-entered // call is in flight on the server, client blocked awaiting the reply

	clientTv.killPeer()

	select {
	case reply := <-replyCh:
		if reply.Exception.Code != apidefs.Internal {
			t.Fatalf("expected Internal error, got %v", reply.Exception)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected Transact to return promptly after peer death, but it hung")
	}
}

func TestHandlerPanicBecomesInternal(t *testing.T) {
	panics := func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
		panic("boom")
	}
	client, _, teardown := newBoundPair(t, panics, nil)
	defer teardown()

	reply := client.Transact(context.Background(), apidefs.NewApiCallInfo("Driver.click", "", value.NewNull()))
	if reply.Exception.Code != apidefs.Internal || !strings.Contains(reply.Exception.Message, "Handler failed") {
		t.Fatalf("expected handler-failed Internal error, got %v", reply.Exception)
	}
}
