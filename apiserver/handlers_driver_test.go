// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apiserver

import (
	"strings"
	"testing"

	"go.fuchsia.dev/uitest/apidefs"
	"go.fuchsia.dev/uitest/registry"
)

func TestDriverCreateReturnsDriverClassRef(t *testing.T) {
	_, s := newTestHandlers(nil)
	ref := createTestDriver(t, s)
	if !strings.HasPrefix(ref, "Driver#") {
		t.Fatalf("expected Driver#n ref, got %q", ref)
	}
}

func TestDriverDestroyDropsOnlyTheDriverRef(t *testing.T) {
	h, s := newTestHandlers(nil)
	driverRef := createTestDriver(t, s)

	childRef := h.Reg.StoreAs("Component", &struct{}{}, driverRef)

	reply := s.Dispatch(apidefs.NewApiCallInfo("Driver.destroy", driverRef))
	if !reply.Ok() {
		t.Fatalf("expected destroy to succeed, got %v", reply.Exception)
	}
	if h.Reg.Has(driverRef) {
		t.Fatal("expected driver ref to be dropped")
	}
	if !h.Reg.Has(childRef) {
		t.Fatal("expected child ref to survive destroy, since destroy does not cascade")
	}

	if _, err := registry.Resolve[driverHandle](h.Reg, driverRef); err == nil {
		t.Fatal("expected resolving the dropped driver ref to fail")
	}
}
