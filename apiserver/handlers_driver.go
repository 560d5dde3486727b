// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apiserver

import (
	"go.fuchsia.dev/uitest/apidefs"
	"go.fuchsia.dev/uitest/value"
)

// driverHandle is the registry-allocated object backing a "Driver#n"
// reference, the root of every object graph a client builds (On, Component,
// UIEventObserver refs all chain back to one of these via owner edges).
type driverHandle struct{}

// registerDriverHandlers installs Driver.create/Driver.destroy, the
// session bracket spec.md's distilled operation list omits but
// original_source/uitest/core/ui_driver.cpp's constructor/destructor pair
// requires: a client must obtain a Driver reference before any On/Component
// call can chain off it. Driver.destroy only drops the Driver ref itself —
// objects it owns are reclaimed individually through
// BackendObjectsCleaner.recycle (handlers_cleaner.go), the same path used
// for every other handle.
func (h *Handlers) registerDriverHandlers(s *Server) {
	h.register(s, "Driver.create", "()", false, func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
		ref := h.Reg.StoreAs("Driver", &driverHandle{}, "")
		return apidefs.NewApiReplyInfo(value.NewString(ref))
	})

	h.register(s, "Driver.destroy", "()", false, func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
		h.Reg.Drop([]string{call.CallerObjRef})
		return apidefs.NewApiReplyInfo(value.NewNull())
	})
}
