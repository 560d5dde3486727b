// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package fake provides an in-memory uidriver.Driver, uidriver.Clipboard
// and uidriver.SelectorFactory sufficient to exercise apiserver and
// observer in tests, without real widget discovery, gesture synthesis or
// screen capture (spec.md §1 Non-goals). Driver records every method call
// except RegisterUiEventListener in Driver.Calls so tests can assert on
// what reached the driver boundary; Clipboard keeps only the last text.
package fake

import (
	"context"
	"fmt"
	"sync"

	"go.fuchsia.dev/uitest/uidriver"
)

// Call records one invocation against the fake driver, for test
// assertions.
type Call struct {
	Method string
	Args   []any
}

// Driver is a recording, scriptable uidriver.Driver.
type Driver struct {
	mu    sync.Mutex
	Calls []Call

	// Widgets is returned verbatim by FindWidgets regardless of selector,
	// unless FindWidgetsFunc is set.
	Widgets         []uidriver.Widget
	FindWidgetsFunc func(uidriver.Selector) ([]uidriver.Widget, error)

	Displays map[int]uidriver.Display

	listenersMu sync.Mutex
	listeners   []uidriver.UiEventListener
}

func New() *Driver {
	return &Driver{Displays: map[int]uidriver.Display{
		0: {Id: 0, Width: 1080, Height: 2340, Density: 3.0, Rotation: 0},
	}}
}

func (d *Driver) record(method string, args ...any) {
	d.mu.Lock()
	d.Calls = append(d.Calls, Call{Method: method, Args: args})
	d.mu.Unlock()
}

func (d *Driver) FindWidgets(ctx context.Context, selector uidriver.Selector) ([]uidriver.Widget, error) {
	d.record("FindWidgets", selector)
	if d.FindWidgetsFunc != nil {
		return d.FindWidgetsFunc(selector)
	}
	return d.Widgets, nil
}

func (d *Driver) RetrieveWidget(ctx context.Context, w uidriver.Widget) (uidriver.Widget, error) {
	d.record("RetrieveWidget", w)
	return w, nil
}

func (d *Driver) PerformTouch(ctx context.Context, action uidriver.TouchAction, args uidriver.UiOpArgs) error {
	d.record("PerformTouch", action, args)
	return nil
}

func (d *Driver) PerformKey(ctx context.Context, action uidriver.KeyAction, args uidriver.UiOpArgs) error {
	d.record("PerformKey", action, args)
	return nil
}

func (d *Driver) InputText(ctx context.Context, text string, displayId int, args uidriver.UiOpArgs) error {
	d.record("InputText", text, displayId, args)
	return nil
}

func (d *Driver) TakeScreenCap(ctx context.Context, fd int, rect [4]int, displayId int) error {
	d.record("TakeScreenCap", fd, rect, displayId)
	return nil
}

func (d *Driver) display(displayId int) (uidriver.Display, error) {
	disp, ok := d.Displays[displayId]
	if !ok {
		return uidriver.Display{}, fmt.Errorf("fake: unknown display %d", displayId)
	}
	return disp, nil
}

func (d *Driver) GetDisplaySize(ctx context.Context, displayId int) (uidriver.Display, error) {
	d.record("GetDisplaySize", displayId)
	return d.display(displayId)
}

func (d *Driver) GetDisplayDensity(ctx context.Context, displayId int) (uidriver.Display, error) {
	d.record("GetDisplayDensity", displayId)
	return d.display(displayId)
}

func (d *Driver) GetDisplayRotation(ctx context.Context, displayId int) (uidriver.Display, error) {
	d.record("GetDisplayRotation", displayId)
	return d.display(displayId)
}

func (d *Driver) SetDisplayRotation(ctx context.Context, displayId int, rotation int) error {
	d.record("SetDisplayRotation", displayId, rotation)
	disp, err := d.display(displayId)
	if err != nil {
		return err
	}
	disp.Rotation = rotation
	d.Displays[displayId] = disp
	return nil
}

func (d *Driver) WaitForUiSteady(ctx context.Context, idleMs, timeoutMs int) error {
	d.record("WaitForUiSteady", idleMs, timeoutMs)
	return nil
}

func (d *Driver) RegisterUiEventListener(listener uidriver.UiEventListener) func() {
	d.listenersMu.Lock()
	d.listeners = append(d.listeners, listener)
	idx := len(d.listeners) - 1
	d.listenersMu.Unlock()
	return func() {
		d.listenersMu.Lock()
		defer d.listenersMu.Unlock()
		if idx < len(d.listeners) {
			d.listeners[idx] = nil
		}
	}
}

func (d *Driver) ChangeWindowMode(ctx context.Context, windowId int, mode string) error {
	d.record("ChangeWindowMode", windowId, mode)
	return nil
}

// Fire delivers ev to every still-registered listener, the way a real
// driver's event thread would (spec.md §4.6).
func (d *Driver) Fire(ev uidriver.Event) {
	d.listenersMu.Lock()
	listeners := append([]uidriver.UiEventListener(nil), d.listeners...)
	d.listenersMu.Unlock()
	for _, l := range listeners {
		if l != nil {
			l.OnEvent(ev)
		}
	}
}

// Clipboard is a recording uidriver.Clipboard.
type Clipboard struct {
	mu   sync.Mutex
	Last string
}

func (c *Clipboard) SetPasteData(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Last = text
	return nil
}

// SelectorFactory is a plain-struct uidriver.SelectorFactory: each
// Add* call returns a new Selector with the matcher/locator appended,
// matching the copy-on-append semantics spec.md §4.5.3 requires of
// selector builders.
type SelectorFactory struct{}

func (SelectorFactory) Empty() uidriver.Selector { return uidriver.Selector{} }

func (SelectorFactory) AddMatcher(base uidriver.Selector, m uidriver.Matcher) uidriver.Selector {
	out := uidriver.Selector{Matchers: append(append([]uidriver.Matcher(nil), base.Matchers...), m)}
	return out
}

func (f SelectorFactory) AddFrontLocator(base, other uidriver.Selector) uidriver.Selector {
	return f.AddMatcher(base, uidriver.Matcher{Attribute: "isBefore", TestValue: describeSelector(other)})
}

func (f SelectorFactory) AddRearLocator(base, other uidriver.Selector) uidriver.Selector {
	return f.AddMatcher(base, uidriver.Matcher{Attribute: "isAfter", TestValue: describeSelector(other)})
}

func (f SelectorFactory) AddParentLocator(base, other uidriver.Selector) uidriver.Selector {
	return f.AddMatcher(base, uidriver.Matcher{Attribute: "within", TestValue: describeSelector(other)})
}

func (f SelectorFactory) AddAppLocator(base uidriver.Selector, bundleName string) uidriver.Selector {
	return f.AddMatcher(base, uidriver.Matcher{Attribute: "inWindow", TestValue: bundleName})
}

func (f SelectorFactory) AddDisplayLocator(base uidriver.Selector, displayId int) uidriver.Selector {
	return f.AddMatcher(base, uidriver.Matcher{Attribute: "inDisplay", TestValue: fmt.Sprintf("%d", displayId)})
}

func describeSelector(s uidriver.Selector) string {
	return fmt.Sprintf("%v", s.Matchers)
}
