// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apiserver

import (
	"fmt"
	"regexp"

	"go.fuchsia.dev/uitest/apidefs"
	"go.fuchsia.dev/uitest/registry"
	"go.fuchsia.dev/uitest/uidriver"
	"go.fuchsia.dev/uitest/value"
)

// registerOnHandlers installs the selector-builder family of spec.md
// §4.5.3: copy-construct from the caller (the seed produces an empty
// selector), append one attribute matcher or relative locator, store and
// return the new reference. Grounded on
// original_source/uitest/core/widget_selector.cpp's chained by()-style API.
func (h *Handlers) registerOnHandlers(s *Server) {
	attr := func(attribute string) HandlerFunc {
		return func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
			base, err := h.resolveSelector(call.CallerObjRef)
			if err != nil {
				return apidefs.NewErrorReply(err.(*apidefs.ApiCallErr).Code, err.Error())
			}
			testValue, _ := call.ParamList[0].Str()
			pattern := "equals"
			if len(call.ParamList) > 1 {
				if b, berr := call.ParamList[1].Bool(); berr == nil {
					if b {
						pattern = "equals"
					} else {
						pattern = "contains"
					}
				}
			}
			next := h.Selectors.AddMatcher(base, uidriver.Matcher{Attribute: attribute, TestValue: testValue, Pattern: pattern})
			ref := h.Reg.StoreAs("On", &next, "")
			return apidefs.NewApiReplyInfo(value.NewString(ref))
		}
	}

	h.register(s, "On.text", "(string,bool?)", false, attr("text"))
	h.register(s, "On.textMatches", "(string)", false, func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
		base, err := h.resolveSelector(call.CallerObjRef)
		if err != nil {
			return apidefs.NewErrorReply(err.(*apidefs.ApiCallErr).Code, err.Error())
		}
		testValue, _ := call.ParamList[0].Str()
		if _, rerr := regexp.Compile(testValue); rerr != nil {
			return apidefs.NewErrorReply(apidefs.InvalidInput, fmt.Sprintf("bad regex %q: %v", testValue, rerr))
		}
		next := h.Selectors.AddMatcher(base, uidriver.Matcher{Attribute: "text", TestValue: testValue, Pattern: "regex"})
		ref := h.Reg.StoreAs("On", &next, "")
		return apidefs.NewApiReplyInfo(value.NewString(ref))
	})
	h.register(s, "On.accessibilityId", "(string)", false, attr("accessibilityId"))
	h.register(s, "On.id", "(string)", false, attr("id"))
	h.register(s, "On.type", "(string)", false, attr("type"))
	h.register(s, "On.enabled", "(bool)", false, boolAttrHandler(h, "enabled"))
	h.register(s, "On.clickable", "(bool)", false, boolAttrHandler(h, "clickable"))
	h.register(s, "On.scrollable", "(bool)", false, boolAttrHandler(h, "scrollable"))
	h.register(s, "On.checked", "(bool)", false, boolAttrHandler(h, "checked"))

	locator := func(attribute string) HandlerFunc {
		return func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
			base, err := h.resolveSelector(call.CallerObjRef)
			if err != nil {
				return apidefs.NewErrorReply(err.(*apidefs.ApiCallErr).Code, err.Error())
			}
			otherRef, _ := call.ParamList[0].Str()
			other, rerr := h.resolveSelector(otherRef)
			if rerr != nil {
				return apidefs.NewErrorReply(rerr.(*apidefs.ApiCallErr).Code, rerr.Error())
			}
			var next uidriver.Selector
			switch attribute {
			case "isBefore":
				next = h.Selectors.AddFrontLocator(base, other)
			case "isAfter":
				next = h.Selectors.AddRearLocator(base, other)
			case "within":
				next = h.Selectors.AddParentLocator(base, other)
			}
			ref := h.Reg.StoreAs("On", &next, "")
			return apidefs.NewApiReplyInfo(value.NewString(ref))
		}
	}
	h.register(s, "On.isBefore", "(On)", false, locator("isBefore"))
	h.register(s, "On.isAfter", "(On)", false, locator("isAfter"))
	h.register(s, "On.within", "(On)", false, locator("within"))

	h.register(s, "On.inWindow", "(string)", false, func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
		base, err := h.resolveSelector(call.CallerObjRef)
		if err != nil {
			return apidefs.NewErrorReply(err.(*apidefs.ApiCallErr).Code, err.Error())
		}
		bundleName, _ := call.ParamList[0].Str()
		next := h.Selectors.AddAppLocator(base, bundleName)
		ref := h.Reg.StoreAs("On", &next, "")
		return apidefs.NewApiReplyInfo(value.NewString(ref))
	})

	h.register(s, "On.inDisplay", "(int)", false, func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
		base, err := h.resolveSelector(call.CallerObjRef)
		if err != nil {
			return apidefs.NewErrorReply(err.(*apidefs.ApiCallErr).Code, err.Error())
		}
		displayId, _ := call.ParamList[0].Int()
		next := h.Selectors.AddDisplayLocator(base, int(displayId))
		ref := h.Reg.StoreAs("On", &next, "")
		return apidefs.NewApiReplyInfo(value.NewString(ref))
	})
}

func boolAttrHandler(h *Handlers, attribute string) HandlerFunc {
	return func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
		base, err := h.resolveSelector(call.CallerObjRef)
		if err != nil {
			return apidefs.NewErrorReply(err.(*apidefs.ApiCallErr).Code, err.Error())
		}
		want, _ := call.ParamList[0].Bool()
		testValue := "false"
		if want {
			testValue = "true"
		}
		next := h.Selectors.AddMatcher(base, uidriver.Matcher{Attribute: attribute, TestValue: testValue, Pattern: "equals"})
		ref := h.Reg.StoreAs("On", &next, "")
		return apidefs.NewApiReplyInfo(value.NewString(ref))
	}
}

// resolveSelector resolves callerObjRef to its Selector, treating the
// "On#seed" sentinel as an empty selector (spec.md §3's seed-reference
// rule).
func (h *Handlers) resolveSelector(ref string) (uidriver.Selector, error) {
	if typeName, ok := value.LooksLikeRef(value.NewString(ref)); ok && isSeedRef(ref) && typeName == "On" {
		return h.Selectors.Empty(), nil
	}
	sel, err := registry.Resolve[uidriver.Selector](h.Reg, ref)
	if err != nil {
		return uidriver.Selector{}, err
	}
	return *sel, nil
}
