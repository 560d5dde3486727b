// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apiserver

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"go.fuchsia.dev/uitest/apidefs"
	"go.fuchsia.dev/uitest/registry"
	"go.fuchsia.dev/uitest/value"
)

func newTestServer() (*Server, *registry.Registry) {
	reg := registry.New()
	cat := NewCatalog()
	s := NewServer(cat, reg)
	return s, reg
}

// TestDispatchAliasAndConvertError walks the multi-step return-path
// remapping of spec.md §4.5.1 (alias-forward the incoming legacy id,
// typecheck, invoke, then alias-backward/convertError on the way out) as
// one sequenced scenario, the kind of step-by-step flow goconvey's nested
// Convey blocks fit better than a flat table test.
func TestDispatchAliasAndConvertError(t *testing.T) {
	Convey("Given a server with one convertError-marked legacy-aliased handler", t, func() {
		s, _ := newTestServer()
		s.Catalog.Register("Driver.click", "(Component)", true)
		var gotId string
		s.Handle("Driver.click", func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
			gotId = call.ApiId
			return apidefs.NewErrorReply(apidefs.InvalidInput, "bad component")
		})

		Convey("When a legacy-named call with a legacy-classed ref arrives", func() {
			call := apidefs.NewApiCallInfo("UiDriver.click", "UiDriver#0", value.NewString("UiComponent#seed"))
			reply := s.Dispatch(call)

			Convey("The handler observes the renamed id", func() {
				So(gotId, ShouldEqual, "Driver.click")
			})

			Convey("The reply's InvalidInput is remapped to InvalidParam exactly once", func() {
				So(reply.Exception.Code, ShouldEqual, apidefs.InvalidParam)
			})
		})
	})

	Convey("Given a server with a handler not marked convertError", t, func() {
		s, _ := newTestServer()
		s.Catalog.Register("Driver.swipe", "(int,int,int,int)", false)
		s.Handle("Driver.swipe", func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
			return apidefs.NewErrorReply(apidefs.InvalidInput, "out of bounds")
		})

		Convey("When it fails with InvalidInput", func() {
			call := apidefs.NewApiCallInfo("Driver.swipe", "Driver#0",
				value.NewInt(0), value.NewInt(0), value.NewInt(1), value.NewInt(1))
			reply := s.Dispatch(call)

			Convey("The code is left untouched", func() {
				So(reply.Exception.Code, ShouldEqual, apidefs.InvalidInput)
			})
		})
	})
}

func TestDispatchMissingHandlerIsInternal(t *testing.T) {
	s, _ := newTestServer()
	call := apidefs.NewApiCallInfo("Driver.neverRegistered", "Driver#0")
	reply := s.Dispatch(call)
	if reply.Exception.Code != apidefs.Internal {
		t.Fatalf("expected Internal for missing handler, got %v", reply.Exception.Code)
	}
}

func TestDispatchArityMismatchIsInvalidInput(t *testing.T) {
	s, _ := newTestServer()
	s.Catalog.Register("Driver.click", "(Component)", false)
	s.Handle("Driver.click", func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
		t.Fatal("handler should not run on arity mismatch")
		return apidefs.ApiReplyInfo{}
	})

	reply := s.Dispatch(apidefs.NewApiCallInfo("Driver.click", "Driver#0"))
	if reply.Exception.Code != apidefs.InvalidInput {
		t.Fatalf("expected InvalidInput, got %v", reply.Exception.Code)
	}
	if reply.Exception.Message != "Illegal argument count" {
		t.Fatalf("expected arity error message, got %q", reply.Exception.Message)
	}
}

func TestDispatchHandlerPanicBecomesInternal(t *testing.T) {
	s, _ := newTestServer()
	s.Catalog.Register("Driver.click", "(Component)", false)
	s.Handle("Driver.click", func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
		panic("boom")
	})

	reply := s.Dispatch(apidefs.NewApiCallInfo("Driver.click", "Driver#0", value.NewString("Component#seed")))
	if reply.Exception.Code != apidefs.Internal {
		t.Fatalf("expected Internal, got %v", reply.Exception.Code)
	}
}

func TestDispatchResultRefIsAliasedBackward(t *testing.T) {
	s, _ := newTestServer()
	s.Catalog.Register("Driver.findComponent", "(On)", false)
	s.Handle("Driver.findComponent", func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
		return apidefs.NewApiReplyInfo(value.NewString("Component#0"))
	})

	reply := s.Dispatch(apidefs.NewApiCallInfo("UiDriver.findComponent", "Driver#0", value.NewString("On#seed")))
	got, err := reply.ResultValue.Str()
	if err != nil {
		t.Fatalf("result value: %v", err)
	}
	if got != "UiComponent#0" {
		t.Fatalf("expected result ref aliased back to legacy class, got %q", got)
	}
}
