// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apiserver

import "testing"

func TestAliasForwardIdWholeIdTableTakesPrecedence(t *testing.T) {
	if got := aliasForwardId("By.id"); got != "On.accessibilityId" {
		t.Fatalf("expected By.id -> On.accessibilityId, got %q", got)
	}
}

func TestAliasForwardIdFallsBackToClassRename(t *testing.T) {
	if got := aliasForwardId("UiDriver.someNewMethod"); got != "Driver.someNewMethod" {
		t.Fatalf("expected class-only rename, got %q", got)
	}
}

func TestAliasForwardIdUnknownPassesThrough(t *testing.T) {
	if got := aliasForwardId("Unrelated.method"); got != "Unrelated.method" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}

func TestRefTypeRewriteRoundTrip(t *testing.T) {
	fwd := aliasForwardRefType("UiComponent#3")
	if fwd != "Component#3" {
		t.Fatalf("expected Component#3, got %q", fwd)
	}
	back := aliasBackwardRefType(fwd)
	if back != "UiComponent#3" {
		t.Fatalf("expected round trip back to UiComponent#3, got %q", back)
	}
}

func TestRefTypeRewriteLeavesUnknownClassAlone(t *testing.T) {
	if got := aliasForwardRefType("Callback#0"); got != "Callback#0" {
		t.Fatalf("expected unrecognized class left alone, got %q", got)
	}
}

func TestSplitId(t *testing.T) {
	class, method, ok := splitId("Driver.click")
	if !ok || class != "Driver" || method != "click" {
		t.Fatalf("unexpected split: class=%q method=%q ok=%v", class, method, ok)
	}
	if _, _, ok := splitId("nodothere"); ok {
		t.Fatal("expected split to fail without a '.'")
	}
}
