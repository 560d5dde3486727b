// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package uidriver defines the collaborator interfaces spec.md §6 lists as
// externally supplied to the Frontend API Server: a driver capability, a
// clipboard capability, and a widget-selector factory. Concrete widget
// discovery, gesture synthesis and screen capture are explicitly out of
// scope (spec.md §1 Non-goals); this package only fixes the shape the
// apiserver and observer packages program against. Grounded on
// original_source/uitest/core/ui_driver.h's public surface.
package uidriver

import "context"

// Display is the subset of display metadata the touch/key handler family
// needs for bounds checks (spec.md §4.5.3).
type Display struct {
	Id       int
	Width    int
	Height   int
	Density  float64
	Rotation int
}

// TouchAction and KeyAction are opaque action descriptors a handler builds
// from decoded call parameters and hands to the driver; their structure is
// intentionally left to whatever gesture/key synthesis implementation is
// wired in, since that subsystem is out of scope here.
type TouchAction struct {
	Kind   string
	Points [][2]int
}

type KeyAction struct {
	Codes []int
}

// UiOpArgs carries the operator-tunable knobs spec.md §4.5.3 validates
// before invoking the driver: hold duration, velocity, and similar.
type UiOpArgs struct {
	LongClickHoldMs  int
	SwipeVelocityPps int
}

// Widget is an opaque handle to a discovered UI element; apiserver wraps
// it into a registry reference and never inspects its fields directly.
type Widget struct {
	Id   string
	Rect [4]int
}

// EventKind enumerates the driver event categories the observer package
// dispatches (spec.md §4.6).
type EventKind string

const (
	EventWindowChange    EventKind = "windowChange"
	EventComponentChange EventKind = "componentChange"
)

// Event is the data a driver hands to a registered UiEventListener.
type Event struct {
	Kind               EventKind
	BundleName         string
	Type               string
	Text               string
	WindowChangeType   int
	ComponentEventType int
	WindowId           int
	ComponentId        string
	ComponentRect      [4]int
	SourceWidget       *Widget
}

// UiEventListener receives driver events registered via
// Driver.RegisterUiEventListener. observer.Registry.OnEvent also takes a
// context, so the Registry does not satisfy this interface, and nothing in
// this module registers it with a driver.
type UiEventListener interface {
	OnEvent(Event)
}

// Driver is the capability interface spec.md §6 requires: widget lookup,
// gesture/key/text input, screen capture, display queries, and event
// registration.
type Driver interface {
	FindWidgets(ctx context.Context, selector Selector) ([]Widget, error)
	RetrieveWidget(ctx context.Context, w Widget) (Widget, error)
	PerformTouch(ctx context.Context, action TouchAction, args UiOpArgs) error
	PerformKey(ctx context.Context, action KeyAction, args UiOpArgs) error
	InputText(ctx context.Context, text string, displayId int, args UiOpArgs) error
	TakeScreenCap(ctx context.Context, fd int, rect [4]int, displayId int) error
	GetDisplaySize(ctx context.Context, displayId int) (Display, error)
	GetDisplayDensity(ctx context.Context, displayId int) (Display, error)
	GetDisplayRotation(ctx context.Context, displayId int) (Display, error)
	SetDisplayRotation(ctx context.Context, displayId int, rotation int) error
	WaitForUiSteady(ctx context.Context, idleMs, timeoutMs int) error
	RegisterUiEventListener(listener UiEventListener) (unregister func())
	ChangeWindowMode(ctx context.Context, windowId int, mode string) error
}

// Clipboard is the capability interface spec.md §6 requires for
// Driver.setPasteData. Its platform implementation (actual text
// injection) is out of scope; only the interface is modeled.
type Clipboard interface {
	SetPasteData(ctx context.Context, text string) error
}

// Matcher is one attribute test or relative locator appended to a
// selector by the On.* handler family (spec.md §4.5.3).
type Matcher struct {
	Attribute string
	TestValue string
	Pattern   string // "equals", "contains", "startsWith", "regex", ...
}

// Selector is the immutable, copy-on-append value built by chained On.*
// calls; SelectorFactory is the only way to produce or extend one.
type Selector struct {
	Matchers []Matcher
}

// SelectorFactory builds and extends Selector values the way the On.*
// handler family requires (spec.md §6): attribute matchers plus the five
// relative-locator kinds.
type SelectorFactory interface {
	Empty() Selector
	AddMatcher(base Selector, m Matcher) Selector
	AddFrontLocator(base Selector, other Selector) Selector
	AddRearLocator(base Selector, other Selector) Selector
	AddParentLocator(base Selector, other Selector) Selector
	AddAppLocator(base Selector, bundleName string) Selector
	AddDisplayLocator(base Selector, displayId int) Selector
}
