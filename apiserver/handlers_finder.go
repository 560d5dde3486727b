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

// registerFinderHandlers installs Driver.findComponent(s)/waitForComponent
// /assertComponentExist (spec.md §4.5.3): resolve the driver and selector,
// delegate to the driver capability, wrap results as Component refs bound
// to the driver. Grounded on
// original_source/uitest/core/ui_driver.cpp's FindWidgets wrapper.
func (h *Handlers) registerFinderHandlers(s *Server) {
	h.register(s, "Driver.findComponent", "(On)", false, h.findOne)
	h.register(s, "Driver.findComponents", "(On)", false, h.findMany)
	h.register(s, "Driver.waitForComponent", "(On,int?)", false, h.waitForComponent)
	h.register(s, "Driver.assertComponentExist", "(On)", false, h.assertComponentExist)
}

func (h *Handlers) resolveDriverAndSelector(driverRef string, selectorParam value.Value) (string, uidriver.Selector, *apidefs.ApiCallErr) {
	selRef, err := selectorParam.Str()
	if err != nil {
		return "", uidriver.Selector{}, apidefs.NewApiCallErr(apidefs.InvalidInput, "selector argument must be an On reference")
	}
	sel, rerr := registry.Resolve[uidriver.Selector](h.Reg, selRef)
	if rerr != nil {
		return "", uidriver.Selector{}, rerr.(*apidefs.ApiCallErr)
	}
	return driverRef, *sel, nil
}

func (h *Handlers) findOne(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
	driverRef, sel, err := h.resolveDriverAndSelector(call.CallerObjRef, call.ParamList[0])
	if err != nil {
		return apidefs.NewErrorReply(err.Code, err.Error())
	}
	widgets, werr := h.Driver.FindWidgets(context.Background(), sel)
	if werr != nil {
		return apidefs.NewErrorReply(apidefs.Internal, werr.Error())
	}
	if len(widgets) == 0 {
		return apidefs.NewErrorReply(apidefs.ComponentLost, fmt.Sprintf("no component matches selector %+v", sel.Matchers))
	}
	ref := h.Reg.StoreAs("Component", &widgets[0], driverRef)
	return apidefs.NewApiReplyInfo(value.NewString(ref))
}

func (h *Handlers) findMany(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
	driverRef, sel, err := h.resolveDriverAndSelector(call.CallerObjRef, call.ParamList[0])
	if err != nil {
		return apidefs.NewErrorReply(err.Code, err.Error())
	}
	widgets, werr := h.Driver.FindWidgets(context.Background(), sel)
	if werr != nil {
		return apidefs.NewErrorReply(apidefs.Internal, werr.Error())
	}
	refs := make([]value.Value, len(widgets))
	for i := range widgets {
		refs[i] = value.NewString(h.Reg.StoreAs("Component", &widgets[i], driverRef))
	}
	return apidefs.NewApiReplyInfo(value.NewSeq(refs...))
}

func (h *Handlers) waitForComponent(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
	// A full polling wait belongs to the widget-discovery collaborator
	// (out of scope, spec.md §1); this representative handler performs a
	// single lookup, matching findComponent, since retry/backoff policy
	// is not part of the Frontend API Server's contract.
	return h.findOne(call)
}

func (h *Handlers) assertComponentExist(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
	driverRef, sel, err := h.resolveDriverAndSelector(call.CallerObjRef, call.ParamList[0])
	if err != nil {
		return apidefs.NewErrorReply(err.Code, err.Error())
	}
	widgets, werr := h.Driver.FindWidgets(context.Background(), sel)
	if werr != nil {
		return apidefs.NewErrorReply(apidefs.Internal, werr.Error())
	}
	if len(widgets) == 0 {
		return apidefs.NewErrorReply(apidefs.AssertionFailed, fmt.Sprintf("assertComponentExist failed for selector %+v", sel.Matchers))
	}
	ref := h.Reg.StoreAs("Component", &widgets[0], driverRef)
	return apidefs.NewApiReplyInfo(value.NewString(ref))
}
