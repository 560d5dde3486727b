// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package observer implements the event observer upcall of spec.md §4.6:
// a multimap from event kind to (observerRef, callbackId, eventOptions)
// registrations, a ref-count map, and the dispatch sweep that reaps
// expired registrations, matches firing ones against their filters, and
// delivers a reverse UIEventObserver.once call to the client. Grounded on
// original_source/uitest/core/ui_event_observer.cpp's per-event dispatch
// loop.
package observer

import (
	"context"
	"time"

	"go.fuchsia.dev/uitest/apidefs"
	"go.fuchsia.dev/uitest/uidriver"
	"go.fuchsia.dev/uitest/value"
)

// EventOptions is the registration-time filter and timeout spec.md §4.6
// step 1 evaluates on each dispatch.
type EventOptions struct {
	TimeoutMs          int64 // 0 means no timeout
	WindowChangeType   int
	HasWindowChange    bool
	ComponentEventType int
	HasComponentEvent  bool
	BundleName         string
	Selector           *uidriver.Selector
}

func (o EventOptions) matches(ev uidriver.Event) bool {
	if o.HasWindowChange && ev.WindowChangeType != o.WindowChangeType {
		return false
	}
	if o.HasComponentEvent && ev.ComponentEventType != o.ComponentEventType {
		return false
	}
	if o.BundleName != "" && ev.BundleName != o.BundleName {
		return false
	}
	if o.Selector != nil && !selectorMatchesWidget(*o.Selector, ev.SourceWidget) {
		return false
	}
	return true
}

// selectorMatchesWidget is a minimal, representative matcher: a selector
// with no attribute matchers matches anything; otherwise it requires a
// source widget to be present. Real attribute evaluation lives in the
// widget-discovery collaborator, out of scope here (spec.md §1).
func selectorMatchesWidget(sel uidriver.Selector, w *uidriver.Widget) bool {
	if len(sel.Matchers) == 0 {
		return true
	}
	return w != nil
}

type registration struct {
	event        uidriver.EventKind
	observerRef  string
	callbackId   string
	options      EventOptions
	registeredAt time.Time
}

// UpcallFunc delivers the reverse UIEventObserver.once call to the client
// (spec.md §4.6 step 2), typically transactor.Transactor.Transact on the
// server→client link.
type UpcallFunc func(ctx context.Context, call apidefs.ApiCallInfo) apidefs.ApiReplyInfo

// Registry holds every live registration and the shared observer/callback
// ref-count map.
type Registry struct {
	byEvent   map[uidriver.EventKind][]*registration
	refCounts map[string]int
	upcall    UpcallFunc
	now       func() time.Time
}

func New(upcall UpcallFunc) *Registry {
	return &Registry{
		byEvent:   make(map[uidriver.EventKind][]*registration),
		refCounts: make(map[string]int),
		upcall:    upcall,
		now:       time.Now,
	}
}

// Register adds a (event, observerRef, callbackId, eventOptions) tuple,
// incrementing both refs' counts (spec.md §4.6 "Invariants").
func (r *Registry) Register(event uidriver.EventKind, observerRef, callbackId string, opts EventOptions) {
	r.byEvent[event] = append(r.byEvent[event], &registration{
		event:        event,
		observerRef:  observerRef,
		callbackId:   callbackId,
		options:      opts,
		registeredAt: r.now(),
	})
	r.refCounts[observerRef]++
	r.refCounts[callbackId]++
}

// RefCount reports the live reference count for an observer or callback
// id, for tests asserting that a fired-and-removed tuple reached zero.
func (r *Registry) RefCount(ref string) int { return r.refCounts[ref] }

// OnEvent runs the dispatch sweep of spec.md §4.6 for one driver event:
// reap expired registrations, fire matching ones via the upcall, leave
// the rest untouched.
func (r *Registry) OnEvent(ctx context.Context, ev uidriver.Event) {
	regs := r.byEvent[ev.Kind]
	if len(regs) == 0 {
		return
	}
	kept := regs[:0]
	for _, reg := range regs {
		if reg.options.TimeoutMs > 0 && r.now().After(reg.registeredAt.Add(time.Duration(reg.options.TimeoutMs)*time.Millisecond)) {
			r.decrement(reg)
			continue
		}
		if !reg.options.matches(ev) {
			kept = append(kept, reg)
			continue
		}
		r.fire(ctx, reg, ev)
	}
	r.byEvent[ev.Kind] = kept
}

// decrement drops both refs of a removed registration by one, returning
// whether each reached zero (spec.md §4.6 step 2).
func (r *Registry) decrement(reg *registration) (releaseObserver, releaseCallback bool) {
	r.refCounts[reg.observerRef]--
	r.refCounts[reg.callbackId]--
	return r.refCounts[reg.observerRef] <= 0, r.refCounts[reg.callbackId] <= 0
}

func (r *Registry) fire(ctx context.Context, reg *registration, ev uidriver.Event) {
	releaseObserver, releaseCallback := r.decrement(reg)
	call := apidefs.NewApiCallInfo(
		"UIEventObserver.once", reg.observerRef,
		packElementInfo(ev),
		value.NewString(reg.callbackId),
		value.NewBool(releaseObserver),
		value.NewBool(releaseCallback),
	)
	if r.upcall != nil {
		r.upcall(ctx, call)
	}
}

func packElementInfo(ev uidriver.Event) value.Value {
	m := map[string]value.Value{
		"bundleName":         value.NewString(ev.BundleName),
		"type":               value.NewString(ev.Type),
		"text":               value.NewString(ev.Text),
		"windowChangeType":   value.NewInt(int64(ev.WindowChangeType)),
		"componentEventType": value.NewInt(int64(ev.ComponentEventType)),
		"windowId":           value.NewInt(int64(ev.WindowId)),
		"componentId":        value.NewString(ev.ComponentId),
		"componentRect": value.NewSeq(
			value.NewInt(int64(ev.ComponentRect[0])),
			value.NewInt(int64(ev.ComponentRect[1])),
			value.NewInt(int64(ev.ComponentRect[2])),
			value.NewInt(int64(ev.ComponentRect[3])),
		),
	}
	return value.NewMap(m)
}
