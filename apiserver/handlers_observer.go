// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apiserver

import (
	"go.fuchsia.dev/uitest/apidefs"
	"go.fuchsia.dev/uitest/observer"
	"go.fuchsia.dev/uitest/uidriver"
	"go.fuchsia.dev/uitest/value"
)

// observerHandle is the registry-allocated object backing a
// "UIEventObserver#n" reference; it carries no state of its own, since
// the actual registrations live in Handlers.Observers.
type observerHandle struct{}

// registerObserverHandlers installs Driver.createUIEventObserver and the
// UIEventObserver.once registration call of spec.md §4.5.3/§4.6. The same
// id names the reverse upcall delivered to the client, but that upcall is
// not dispatched through this catalog — it travels directly over the
// server→client Transactor's Handler, since it originates on the server
// rather than arriving as a client call (spec.md §4.6 step 2), so the
// shared name is not a routing collision.
func (h *Handlers) registerObserverHandlers(s *Server) {
	s.Catalog.DefineObject("EventOptions", map[string]ParamType{
		"timeOut":            {Kind: "int"},
		"windowType":         {Kind: "int"},
		"componentEventType": {Kind: "int"},
		"bundleName":         {Kind: "string"},
	})

	h.register(s, "Driver.createUIEventObserver", "()", false, func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
		ref := h.Reg.StoreAs("UIEventObserver", &observerHandle{}, call.CallerObjRef)
		return apidefs.NewApiReplyInfo(value.NewString(ref))
	})

	h.register(s, "UIEventObserver.once", "(string,string,object:EventOptions?)", false, func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
		event, _ := call.ParamList[0].Str()
		callbackId, _ := call.ParamList[1].Str()
		opts := EventOptions{}
		if len(call.ParamList) > 2 {
			opts = decodeEventOptions(call.ParamList[2])
		}
		h.Observers.Register(uidriver.EventKind(event), call.CallerObjRef, callbackId, opts)
		return apidefs.NewApiReplyInfo(value.NewNull())
	})
}

// EventOptions is an alias of observer.EventOptions, so decodeEventOptions
// fills in the observer package's own type directly.
type EventOptions = observer.EventOptions

func decodeEventOptions(v value.Value) EventOptions {
	m, err := v.Map()
	if err != nil {
		return EventOptions{}
	}
	var opts EventOptions
	if t, ok := m["timeOut"]; ok {
		if n, nerr := t.Int(); nerr == nil {
			opts.TimeoutMs = n
		}
	}
	if wt, ok := m["windowType"]; ok {
		if n, nerr := wt.Int(); nerr == nil {
			opts.HasWindowChange = true
			opts.WindowChangeType = int(n)
		}
	}
	if ct, ok := m["componentEventType"]; ok {
		if n, nerr := ct.Int(); nerr == nil {
			opts.HasComponentEvent = true
			opts.ComponentEventType = int(n)
		}
	}
	if bn, ok := m["bundleName"]; ok {
		if s, serr := bn.Str(); serr == nil {
			opts.BundleName = s
		}
	}
	return opts
}
