// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package transactor implements the synchronous Transact(call)→reply
// endpoint of spec.md §4.3: connection setup over the event bus, the
// single-call-in-flight concurrency gate, peer-death propagation, and the
// independent broadcast command channel. Grounded on
// original_source/uitest/connection/ipc_transactors_impl.cpp's
// IpcTransactor, which plays both client and server roles from one type
// parameterized by a role flag.
package transactor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"go.fuchsia.dev/uitest/apidefs"
	"go.fuchsia.dev/uitest/codec"
	"go.fuchsia.dev/uitest/discovery"
	"go.fuchsia.dev/uitest/eventbus"
	"go.fuchsia.dev/uitest/transport"
)

// ConnState mirrors the connection-state machine of spec.md §3: monotonic
// except Uninit→{Connected,Disconnected}; Connected→Disconnected is
// one-way and terminal for the peer link.
type ConnState int32

const (
	Uninit ConnState = iota
	Connected
	Disconnected
)

// Handler answers an incoming call arriving on this link — the forward
// direction for a server transactor, or an observer upcall for a client
// transactor (spec.md §4.2's "may invoke server→client via reverse
// Transactor").
type Handler func(apidefs.ApiCallInfo) apidefs.ApiReplyInfo

// Dialer builds the Transceiver for one side of a link once the peer's
// address has been exchanged over the event bus. Addr is this side's own
// address, published or announced during discovery.
type Dialer interface {
	Addr() []byte
	Dial(ctx context.Context, peerAddr []byte) (transport.Transceiver, error)
}

// Transactor wraps a Transceiver into the synchronous Transact API
// (spec.md §4.3.2), sharing one implementation between the client and
// server roles.
type Transactor struct {
	asServer       bool
	singlenessMode bool
	handler        Handler
	onDeath        func()

	state atomic.Int32

	mu            sync.Mutex
	processingApi string

	transceiver transport.Transceiver
	replyCh     chan apidefs.ApiReplyInfo
	diedCh      chan struct{}

	runGroup *errgroup.Group
}

// New constructs a Transactor in state Uninit. handler answers calls
// arriving from the peer; it may be nil for a side that never receives
// upcalls.
func New(asServer bool, handler Handler) *Transactor {
	if handler == nil {
		handler = func(apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
			return apidefs.NewErrorReply(apidefs.Internal, "No handler found")
		}
	}
	t := &Transactor{
		asServer: asServer,
		handler:  handler,
		replyCh:  make(chan apidefs.ApiReplyInfo, 1),
		diedCh:   make(chan struct{}),
	}
	t.state.Store(int32(Uninit))
	return t
}

// OnDeath registers a callback invoked exactly once when the peer link
// transitions to Disconnected (spec.md §4.3.1).
func (t *Transactor) OnDeath(fn func()) { t.onDeath = fn }

// State returns the current connection state.
func (t *Transactor) State() ConnState { return ConnState(t.state.Load()) }

// Connect performs the token-based handshake of spec.md §4.3.1: a server
// publishes its stub address and waits (with retry) for the client's
// back-caller address; a client subscribes, then publishes its own
// address in reply. singlenessMode skips discovery and peer-death
// tracking entirely — client and server share a process and liveness is
// trivially guaranteed.
func (t *Transactor) Connect(ctx context.Context, bus eventbus.Bus, token string, d Dialer) error {
	if t.State() != Uninit {
		panic("transactor: precondition violated: Connect called more than once")
	}

	var peerAddr []byte
	var err error
	if t.asServer {
		peerAddr, err = discovery.ServerPublish(ctx, bus, token, d.Addr())
	} else {
		peerAddr, err = discovery.ClientDiscover(ctx, bus, token, d.Addr())
	}
	if err != nil {
		return fmt.Errorf("transactor: handshake: %w", err)
	}

	tv, err := d.Dial(ctx, peerAddr)
	if err != nil {
		return fmt.Errorf("transactor: dial: %w", err)
	}
	return t.Bind(ctx, tv, false)
}

// ConnectSingleness wires two in-process Transceivers directly, without
// event-bus discovery, for the case where client and server share a
// process (spec.md §4.3.1's singlenessMode).
func (t *Transactor) ConnectSingleness(ctx context.Context, tv transport.Transceiver) error {
	if t.State() != Uninit {
		panic("transactor: precondition violated: Connect called more than once")
	}
	return t.Bind(ctx, tv, true)
}

// Bind attaches tv to this transactor, starts its background reader, and
// transitions to Connected. singlenessMode suppresses peer-death
// propagation (spec.md §4.3.1).
func (t *Transactor) Bind(ctx context.Context, tv transport.Transceiver, singlenessMode bool) error {
	t.transceiver = tv
	t.singlenessMode = singlenessMode
	tv.SetEnqueue(t.enqueue)

	g, gctx := errgroup.WithContext(ctx)
	t.runGroup = g
	g.Go(func() error {
		runErr := tv.Run(gctx)
		t.markDisconnected()
		return runErr
	})

	t.state.Store(int32(Connected))
	return nil
}

func (t *Transactor) markDisconnected() {
	if t.state.CompareAndSwap(int32(Connected), int32(Disconnected)) {
		close(t.diedCh)
		if !t.singlenessMode && t.onDeath != nil {
			t.onDeath()
		}
	}
}

// enqueue is installed as the Transceiver's EnqueueFunc. It demultiplexes
// Call messages to the local Handler and Reply messages to the single
// outstanding Transact call (spec.md §4.3.2's at-most-one-in-flight
// invariant means no message id matching is required here).
func (t *Transactor) enqueue(kind transport.MessageKind, payload []byte) {
	switch kind {
	case transport.Call:
		call, err := codec.DecodeCall(payload)
		if err != nil {
			log.Printf("transactor: malformed incoming call dropped: %v", err)
			return
		}
		if call.HasFd() {
			if fd, ok := t.transceiver.LastFd(); ok {
				codec.PatchFd(&call, fd)
			}
		}
		go t.serveIncoming(call)
	case transport.Reply:
		reply, err := codec.DecodeReply(payload)
		if err != nil {
			reply = apidefs.NewErrorReply(apidefs.Internal, err.Error())
		}
		select {
		case t.replyCh <- reply:
		default:
			log.Printf("transactor: reply dropped, no Transact awaiting it")
		}
	default:
	}
}

// serveIncoming invokes Handler inside a failure-capturing boundary
// (spec.md §4.5.1 step 4) and sends the reply back across the link.
func (t *Transactor) serveIncoming(call apidefs.ApiCallInfo) {
	reply := t.invokeHandler(call)
	payload, err := codec.EncodeReply(reply)
	if err != nil {
		log.Printf("transactor: encode reply for %s: %v", call.ApiId, err)
		return
	}
	if err := t.transceiver.Send(context.Background(), transport.Reply, payload, -1); err != nil {
		log.Printf("transactor: send reply for %s: %v", call.ApiId, err)
	}
}

func (t *Transactor) invokeHandler(call apidefs.ApiCallInfo) (reply apidefs.ApiReplyInfo) {
	defer func() {
		if r := recover(); r != nil {
			reply = apidefs.NewErrorReply(apidefs.Internal, fmt.Sprintf("Handler failed: %v", r))
		}
	}()
	return t.handler(call)
}

// Transact sends call across the link and blocks for the matching reply,
// enforcing spec.md §4.3.2's preconditions and concurrency gate.
func (t *Transactor) Transact(ctx context.Context, call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
	switch t.State() {
	case Uninit:
		panic("transactor: precondition violated: Transact called before Connect")
	case Disconnected:
		return apidefs.NewErrorReply(apidefs.Internal, "ipc connection is dead")
	}

	t.mu.Lock()
	if t.processingApi != "" {
		current := t.processingApi
		t.mu.Unlock()
		return apidefs.NewErrorReply(apidefs.ApiUsage, fmt.Sprintf(
			"does not allow calling concurrently, current processing: %s, incoming: %s", current, call.ApiId))
	}
	t.processingApi = call.ApiId
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.processingApi = ""
		t.mu.Unlock()
	}()

	payload, err := codec.EncodeCall(call)
	if err != nil {
		if apiErr, ok := err.(*apidefs.ApiCallErr); ok {
			return apidefs.NewErrorReply(apiErr.Code, apiErr.Message)
		}
		return apidefs.NewErrorReply(apidefs.Internal, err.Error())
	}

	fd := -1
	if call.HasFd() {
		if n, ferr := call.ParamList[call.FdParamIndex].Int(); ferr == nil {
			fd = int(n)
		}
	}

	if err := t.transceiver.Send(ctx, transport.Call, payload, fd); err != nil {
		return apidefs.NewErrorReply(apidefs.Internal, fmt.Sprintf("send failed: %v", err))
	}

	select {
	case reply := <-t.replyCh:
		return reply
	case <-ctx.Done():
		return apidefs.NewErrorReply(apidefs.Internal, fmt.Sprintf("transact canceled: %v", ctx.Err()))
	case <-t.diedCh:
		return apidefs.NewErrorReply(apidefs.Internal, "ipc connection died while waiting for reply")
	}
}

// Close requests the transceiver to exit and waits for the background
// reader to finish.
func (t *Transactor) Close() error {
	if t.transceiver == nil {
		return nil
	}
	t.transceiver.RequestExit()
	var runErr error
	if t.runGroup != nil {
		runErr = t.runGroup.Wait()
	}
	if t.State() == Disconnected {
		// A peer-death or clean-exit Run error has already been surfaced
		// via OnDeath; Close only needs to report teardown failures.
		runErr = nil
	}
	finalizeErr := t.transceiver.Finalize()
	return multierr.Append(runErr, finalizeErr)
}

// CommandReply is the {code, message} payload the broadcast channel's
// single global listener answers with (spec.md §4.3.3).
type CommandReply struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	broadcastCommandTopic      = "uitest.broadcast.command"
	broadcastCommandReplyTopic = "uitest.broadcast.command.reply"
)

// BroadcastCommand posts payload on the broadcast-command topic and waits
// up to 2×WaitConnTimeoutMs for an ack from the single global listener
// (spec.md §4.3.3). It is independent of any Transactor's main link.
func BroadcastCommand(ctx context.Context, bus eventbus.Bus, payload []byte) (CommandReply, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*discovery.WaitConnTimeoutMs*time.Millisecond)
	defer cancel()

	sub, unsub, err := bus.Subscribe(ctx, broadcastCommandReplyTopic)
	if err != nil {
		return CommandReply{}, fmt.Errorf("transactor: subscribe command reply: %w", err)
	}
	defer unsub()

	if err := bus.Publish(ctx, broadcastCommandTopic, payload); err != nil {
		return CommandReply{}, fmt.Errorf("transactor: publish command: %w", err)
	}

	select {
	case raw := <-sub:
		return decodeCommandReply(raw), nil
	case <-ctx.Done():
		return CommandReply{}, fmt.Errorf("transactor: broadcast command timed out: %w", ctx.Err())
	}
}

// RegisterCommandListener subscribes the process's single global command
// listener, invoking handler for each broadcast command and publishing
// its CommandReply back on the reply topic. The returned func unsubscribes.
func RegisterCommandListener(ctx context.Context, bus eventbus.Bus, handler func([]byte) CommandReply) (func(), error) {
	sub, unsub, err := bus.Subscribe(ctx, broadcastCommandTopic)
	if err != nil {
		return nil, fmt.Errorf("transactor: subscribe commands: %w", err)
	}
	go func() {
		for payload := range sub {
			reply := handler(payload)
			if err := bus.Publish(ctx, broadcastCommandReplyTopic, encodeCommandReply(reply)); err != nil {
				log.Printf("transactor: publish command reply: %v", err)
			}
		}
	}()
	return unsub, nil
}

func encodeCommandReply(r CommandReply) []byte {
	out, err := json.Marshal(r)
	if err != nil {
		return []byte(`{"code":1,"message":"encode failed"}`)
	}
	return out
}

func decodeCommandReply(raw []byte) CommandReply {
	var r CommandReply
	if err := json.Unmarshal(raw, &r); err != nil {
		return CommandReply{Code: int(apidefs.Internal), Message: err.Error()}
	}
	return r
}
