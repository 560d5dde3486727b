// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apiserver

import (
	"context"
	"fmt"

	"go.fuchsia.dev/uitest/apidefs"
	"go.fuchsia.dev/uitest/registry"
	"go.fuchsia.dev/uitest/uidriver"
	"go.fuchsia.dev/uitest/value"
)

// Default input-validation limits (spec.md §4.5.3), overridable per
// Handlers via its InputLimits field (config.Options wires these from the
// environment).
const (
	minLongClickHoldMs  = 1500
	minSwipeVelocityPps = 200
	maxSwipeVelocityPps = 40000
)

// InputLimits holds the bounds registerInputHandlers' handlers enforce.
// The zero value means "use the package defaults" (effectiveInputLimits
// fills in any field left at zero).
type InputLimits struct {
	LongClickHoldMinMs  int
	SwipeVelocityMinPps int
	SwipeVelocityMaxPps int
}

func (h *Handlers) effectiveInputLimits() InputLimits {
	l := h.Limits
	if l.LongClickHoldMinMs == 0 {
		l.LongClickHoldMinMs = minLongClickHoldMs
	}
	if l.SwipeVelocityMinPps == 0 {
		l.SwipeVelocityMinPps = minSwipeVelocityPps
	}
	if l.SwipeVelocityMaxPps == 0 {
		l.SwipeVelocityMaxPps = maxSwipeVelocityPps
	}
	return l
}

// registerInputHandlers installs the touch/key operator family of spec.md
// §4.5.3: click, longClick, swipe and clickAt, with bounds checks against
// the display, the longClick hold floor and the swipe velocity clamp.
// swipe takes positional coordinates only and checks both points against
// display 0. The rest of the family (drag, fling, triggerKey,
// triggerCombineKeys, mouseClick, penClick, touchPadMultiFingerSwipe) is
// not registered here. Grounded on
// original_source/uitest/core/widget_operator.cpp's bounds/clamp logic.
func (h *Handlers) registerInputHandlers(s *Server) {
	s.Catalog.DefineObject("Point", map[string]ParamType{
		"x":         {Kind: "int"},
		"y":         {Kind: "int"},
		"displayId": {Kind: "int"},
	})

	h.register(s, "Driver.click", "(Component)", true, h.click)
	h.register(s, "Driver.longClick", "(Component,int?)", true, h.longClick)
	h.register(s, "Driver.swipe", "(int,int,int,int,int?)", true, h.swipe)
	h.register(s, "Driver.clickAt", "(object:Point)", true, h.clickAt)
}

// clickAt is the {x,y,displayId?} mapping form spec.md §4.5.3 allows
// alongside positional coordinates, exercising the checker's recursive
// object-schema check (§4.5.2).
func (h *Handlers) clickAt(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
	point, perr := call.ParamList[0].Map()
	if perr != nil {
		return apidefs.NewErrorReply(apidefs.InvalidInput, "clickAt expects a {x,y,displayId?} object")
	}
	x, _ := point["x"].Int()
	y, _ := point["y"].Int()
	displayId := 0
	if dv, ok := point["displayId"]; ok {
		if n, nerr := dv.Int(); nerr == nil {
			displayId = int(n)
		}
	}
	disp, derr := h.Driver.GetDisplaySize(context.Background(), displayId)
	if derr != nil {
		return apidefs.NewErrorReply(apidefs.Internal, derr.Error())
	}
	if x < 0 || y < 0 || int(x) > disp.Width || int(y) > disp.Height {
		return apidefs.NewErrorReply(apidefs.InvalidInput, fmt.Sprintf("point (%d,%d) is out of bounds for display %dx%d", x, y, disp.Width, disp.Height))
	}
	action := uidriver.TouchAction{Kind: "click", Points: [][2]int{{int(x), int(y)}}}
	if terr := h.Driver.PerformTouch(context.Background(), action, uidriver.UiOpArgs{}); terr != nil {
		return apidefs.NewErrorReply(apidefs.Internal, terr.Error())
	}
	return apidefs.NewApiReplyInfo(value.NewNull())
}

func (h *Handlers) resolveWidgetAndDisplay(ref string) (*uidriver.Widget, uidriver.Display, *apidefs.ApiCallErr) {
	w, err := registry.Resolve[uidriver.Widget](h.Reg, ref)
	if err != nil {
		return nil, uidriver.Display{}, err.(*apidefs.ApiCallErr)
	}
	disp, derr := h.Driver.GetDisplaySize(context.Background(), 0)
	if derr != nil {
		return nil, uidriver.Display{}, apidefs.NewApiCallErr(apidefs.Internal, derr.Error())
	}
	return w, disp, nil
}

func (h *Handlers) click(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
	ref, rerr := call.ParamList[0].Str()
	if rerr != nil {
		return apidefs.NewErrorReply(apidefs.InvalidInput, "click expects a Component reference")
	}
	w, _, err := h.resolveWidgetAndDisplay(ref)
	if err != nil {
		return apidefs.NewErrorReply(err.Code, err.Error())
	}
	center := [2]int{(w.Rect[0] + w.Rect[2]) / 2, (w.Rect[1] + w.Rect[3]) / 2}
	action := uidriver.TouchAction{Kind: "click", Points: [][2]int{center}}
	if perr := h.Driver.PerformTouch(context.Background(), action, uidriver.UiOpArgs{LongClickHoldMs: 0}); perr != nil {
		return apidefs.NewErrorReply(apidefs.Internal, perr.Error())
	}
	return apidefs.NewApiReplyInfo(value.NewNull())
}

func (h *Handlers) longClick(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
	ref, rerr := call.ParamList[0].Str()
	if rerr != nil {
		return apidefs.NewErrorReply(apidefs.InvalidInput, "longClick expects a Component reference")
	}
	limits := h.effectiveInputLimits()
	holdMs := limits.LongClickHoldMinMs
	if len(call.ParamList) > 1 {
		if n, nerr := call.ParamList[1].Int(); nerr == nil {
			holdMs = int(n)
		}
	}
	if holdMs < limits.LongClickHoldMinMs {
		return apidefs.NewErrorReply(apidefs.InvalidInput, fmt.Sprintf("longClickHoldMs must be >= %d, got %d", limits.LongClickHoldMinMs, holdMs))
	}
	w, _, err := h.resolveWidgetAndDisplay(ref)
	if err != nil {
		return apidefs.NewErrorReply(err.Code, err.Error())
	}
	center := [2]int{(w.Rect[0] + w.Rect[2]) / 2, (w.Rect[1] + w.Rect[3]) / 2}
	action := uidriver.TouchAction{Kind: "longClick", Points: [][2]int{center}}
	if perr := h.Driver.PerformTouch(context.Background(), action, uidriver.UiOpArgs{LongClickHoldMs: holdMs}); perr != nil {
		return apidefs.NewErrorReply(apidefs.Internal, perr.Error())
	}
	return apidefs.NewApiReplyInfo(value.NewNull())
}

func (h *Handlers) swipe(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
	x1, _ := call.ParamList[0].Int()
	y1, _ := call.ParamList[1].Int()
	x2, _ := call.ParamList[2].Int()
	y2, _ := call.ParamList[3].Int()
	limits := h.effectiveInputLimits()
	velocity := limits.SwipeVelocityMaxPps
	if len(call.ParamList) > 4 {
		if n, nerr := call.ParamList[4].Int(); nerr == nil {
			velocity = int(n)
		}
	}
	if velocity < limits.SwipeVelocityMinPps {
		velocity = limits.SwipeVelocityMinPps
	}
	if velocity > limits.SwipeVelocityMaxPps {
		velocity = limits.SwipeVelocityMaxPps
	}

	disp, derr := h.Driver.GetDisplaySize(context.Background(), 0)
	if derr != nil {
		return apidefs.NewErrorReply(apidefs.Internal, derr.Error())
	}
	for _, p := range [][2]int64{{x1, y1}, {x2, y2}} {
		if p[0] < 0 || p[1] < 0 || int(p[0]) > disp.Width || int(p[1]) > disp.Height {
			return apidefs.NewErrorReply(apidefs.InvalidInput, fmt.Sprintf("point (%d,%d) is out of bounds for display %dx%d", p[0], p[1], disp.Width, disp.Height))
		}
	}

	action := uidriver.TouchAction{Kind: "swipe", Points: [][2]int{{int(x1), int(y1)}, {int(x2), int(y2)}}}
	if perr := h.Driver.PerformTouch(context.Background(), action, uidriver.UiOpArgs{SwipeVelocityPps: velocity}); perr != nil {
		return apidefs.NewErrorReply(apidefs.Internal, perr.Error())
	}
	return apidefs.NewApiReplyInfo(value.NewNull())
}
