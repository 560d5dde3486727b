// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apiserver

import (
	"strings"
	"testing"

	"go.fuchsia.dev/uitest/apidefs"
	"go.fuchsia.dev/uitest/value"
)

func TestOnTextMatchesAcceptsValidRegex(t *testing.T) {
	_, s := newTestHandlers(nil)
	reply := s.Dispatch(apidefs.NewApiCallInfo("On.textMatches", "On#seed", value.NewString("^foo.*bar$")))
	if !reply.Ok() {
		t.Fatalf("expected success, got %v", reply.Exception)
	}
	ref, err := reply.ResultValue.Str()
	if err != nil || !strings.HasPrefix(ref, "On#") {
		t.Fatalf("expected On#n ref, got %q err %v", ref, err)
	}
}

func TestOnTextMatchesRejectsInvalidRegex(t *testing.T) {
	_, s := newTestHandlers(nil)
	reply := s.Dispatch(apidefs.NewApiCallInfo("On.textMatches", "On#seed", value.NewString("(unterminated")))
	if reply.Ok() {
		t.Fatal("expected invalid regex to fail")
	}
	if reply.Exception.Code != apidefs.InvalidInput {
		t.Fatalf("expected InvalidInput, got %v", reply.Exception.Code)
	}
}
