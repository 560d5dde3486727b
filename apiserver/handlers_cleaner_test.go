// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apiserver

import (
	"testing"

	"go.fuchsia.dev/uitest/apidefs"
	"go.fuchsia.dev/uitest/value"
)

func TestBackendObjectsCleanerRecycleDropsEveryRef(t *testing.T) {
	h, s := newTestHandlers(nil)
	a := h.Reg.StoreAs("Component", &struct{}{}, "")
	b := h.Reg.StoreAs("Component", &struct{}{}, "")

	reply := s.Dispatch(apidefs.NewApiCallInfo("BackendObjectsCleaner.recycle", "",
		value.NewString(a), value.NewString(b)))
	if !reply.Ok() {
		t.Fatalf("expected recycle to succeed, got %v", reply.Exception)
	}
	if h.Reg.Has(a) || h.Reg.Has(b) {
		t.Fatal("expected both refs dropped")
	}
}

func TestBackendObjectsCleanerRecycleRejectsNonStringParam(t *testing.T) {
	_, s := newTestHandlers(nil)
	reply := s.Dispatch(apidefs.NewApiCallInfo("BackendObjectsCleaner.recycle", "", value.NewInt(5)))
	if reply.Ok() {
		t.Fatal("expected non-string param to fail")
	}
	if reply.Exception.Code != apidefs.InvalidInput {
		t.Fatalf("expected InvalidInput, got %v", reply.Exception.Code)
	}
}

func TestBackendObjectsCleanerRecycleAcceptsEmptyBatch(t *testing.T) {
	_, s := newTestHandlers(nil)
	reply := s.Dispatch(apidefs.NewApiCallInfo("BackendObjectsCleaner.recycle", ""))
	if !reply.Ok() {
		t.Fatalf("expected empty batch to succeed, got %v", reply.Exception)
	}
}
