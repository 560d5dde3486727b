// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apiserver

import (
	"strings"

	"go.fuchsia.dev/uitest/apidefs"
)

// classAliasForward maps legacy frontend class names to their current
// names (spec.md §4.5.1). classAliasBackward is its inverse, used to
// rewrite result-value handle refs back for legacy clients.
var classAliasForward = map[string]string{
	"By":         "On",
	"UiDriver":   "Driver",
	"UiComponent": "Component",
}

var classAliasBackward = invert(classAliasForward)

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// methodAliasForward supplements the class-name table with the specific
// method renames original_source/uitest/core/frontend_api_handler.cpp
// carries (spec.md §4.5.1 names one example, By.id→On.accessibilityId;
// the rest is supplemented here per SPEC_FULL.md).
var methodAliasForward = map[string]string{
	"By.id":           "On.accessibilityId",
	"By.key":          "On.key",
	"By.text":         "On.text",
	"By.type":         "On.type",
	"By.enabled":      "On.enabled",
	"By.focused":      "On.focused",
	"By.selected":     "On.selected",
	"By.clickable":    "On.clickable",
	"By.scrollable":   "On.scrollable",
	"By.checked":      "On.checked",
	"By.checkable":    "On.checkable",
	"By.isBefore":     "On.isBefore",
	"By.isAfter":      "On.isAfter",
	"By.within":       "On.within",
	"UiComponent.click":           "Component.click",
	"UiComponent.longClick":       "Component.longClick",
	"UiComponent.doubleClick":     "Component.doubleClick",
	"UiComponent.getText":         "Component.getText",
	"UiComponent.getId":           "Component.getId",
	"UiComponent.getType":         "Component.getType",
	"UiComponent.inputText":       "Component.inputText",
	"UiComponent.scrollToEnd":     "Component.scrollToEnd",
	"UiDriver.findComponent":          "Driver.findComponent",
	"UiDriver.findComponents":         "Driver.findComponents",
	"UiDriver.waitForComponent":       "Driver.waitForComponent",
	"UiDriver.assertComponentExist":   "Driver.assertComponentExist",
	"UiDriver.click":                  "Driver.click",
	"UiDriver.swipe":                  "Driver.swipe",
	"UiDriver.triggerKey":             "Driver.triggerKey",
	"UiDriver.createUIEventObserver":  "Driver.createUIEventObserver",
}

var methodAliasBackward = invert(methodAliasForward)

// errAliasBackward maps new error codes back to the single legacy code a
// pre-rename client expects (spec.md §4.5.1 step 5's
// "ComponentLost/WindowLost → WidgetLost" example). WidgetLost itself is
// not a distinct ErrCode in this implementation's taxonomy — legacy
// clients decode it as ComponentLost's numeric value, so the remap here
// only affects the message text's error-name token, not the wire code.
var errAliasBackward = map[apidefs.ErrCode]string{
	apidefs.ComponentLost: "WidgetLost",
	apidefs.WindowLost:    "WidgetLost",
}

// aliasForwardId tries a specific whole-id rename first and, failing that,
// rewrites a legacy class prefix; unknown ids pass through unchanged.
func aliasForwardId(id string) string {
	if renamed, ok := methodAliasForward[id]; ok {
		return renamed
	}
	class, method, ok := splitId(id)
	if !ok {
		return id
	}
	if newClass, ok := classAliasForward[class]; ok {
		return newClass + "." + method
	}
	return id
}

// aliasBackwardId is aliasForwardId's inverse. Dispatch does not call it:
// it remembers the original incoming id instead of inverting the rename.
func aliasBackwardId(id string) string {
	if renamed, ok := methodAliasBackward[id]; ok {
		return renamed
	}
	class, method, ok := splitId(id)
	if !ok {
		return id
	}
	if oldClass, ok := classAliasBackward[class]; ok {
		return oldClass + "." + method
	}
	return id
}

func splitId(id string) (class, method string, ok bool) {
	idx := strings.IndexByte(id, '.')
	if idx <= 0 {
		return "", "", false
	}
	return id[:idx], id[idx+1:], true
}

// aliasForwardRefType rewrites a handle reference's type prefix using the
// same class-name table (spec.md §4.5.1's "parameter strings that look
// like handle references have their type prefix rewritten the same way").
func aliasForwardRefType(ref string) string {
	return rewriteRefType(ref, classAliasForward)
}

func aliasBackwardRefType(ref string) string {
	return rewriteRefType(ref, classAliasBackward)
}

func rewriteRefType(ref string, table map[string]string) string {
	idx := strings.LastIndexByte(ref, '#')
	if idx <= 0 {
		return ref
	}
	typeName, ordinal := ref[:idx], ref[idx:]
	if renamed, ok := table[typeName]; ok {
		return renamed + ordinal
	}
	return ref
}
