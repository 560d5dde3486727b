// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package codec

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.fuchsia.dev/uitest/apidefs"
	"go.fuchsia.dev/uitest/value"
)

func TestCallRoundTrip(t *testing.T) {
	call := apidefs.NewApiCallInfo("Driver.click", "Driver#0",
		value.NewInt(10), value.NewInt(20))
	call.FdParamIndex = -1

	data, err := EncodeCall(call)
	if err != nil {
		t.Fatalf("EncodeCall: %v", err)
	}
	got, err := DecodeCall(data)
	if err != nil {
		t.Fatalf("DecodeCall: %v", err)
	}
	if d := cmp.Diff(call, got, cmp.AllowUnexported(value.Value{})); d != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", d)
	}
}

func TestCallWithFdZeroesPlaceholder(t *testing.T) {
	call := apidefs.NewApiCallInfo("writeToken", "", value.NewInt(999))
	call.FdParamIndex = 0

	data, err := EncodeCall(call)
	if err != nil {
		t.Fatalf("EncodeCall: %v", err)
	}
	decoded, err := DecodeCall(data)
	if err != nil {
		t.Fatalf("DecodeCall: %v", err)
	}
	got, err := decoded.ParamList[0].Int()
	if err != nil || got != 0 {
		t.Errorf("serialized fd placeholder = (%v, %v), want (0, nil)", got, err)
	}

	PatchFd(&decoded, 42)
	patched, err := decoded.ParamList[0].Int()
	if err != nil || patched != 42 {
		t.Errorf("PatchFd did not apply: (%v, %v)", patched, err)
	}
}

func TestReplyRoundTrip(t *testing.T) {
	reply := apidefs.NewApiReplyInfo(value.NewString("Component#7"))
	data, err := EncodeReply(reply)
	if err != nil {
		t.Fatalf("EncodeReply: %v", err)
	}
	got, err := DecodeReply(data)
	if err != nil {
		t.Fatalf("DecodeReply: %v", err)
	}
	if d := cmp.Diff(reply, got, cmp.AllowUnexported(value.Value{})); d != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", d)
	}
}

func TestDecodeCallMalformedIsInternal(t *testing.T) {
	_, err := DecodeCall([]byte("not json"))
	if err == nil {
		t.Fatal("expected error decoding malformed call")
	}
	ace, ok := err.(*apidefs.ApiCallErr)
	if !ok {
		t.Fatalf("expected *apidefs.ApiCallErr, got %T", err)
	}
	if ace.Code != apidefs.Internal {
		t.Errorf("code = %v, want Internal", ace.Code)
	}
}
