// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package registry

import (
	"strings"
	"testing"
)

type widget struct{ label string }

func TestStoreAssignsSequentialRefs(t *testing.T) {
	r := New()
	a := r.Store(&widget{"a"}, "")
	b := r.Store(&widget{"b"}, "")
	if !strings.HasPrefix(a, "widget#") || !strings.HasPrefix(b, "widget#") {
		t.Fatalf("unexpected refs: %s %s", a, b)
	}
	if a == b {
		t.Fatalf("expected distinct refs, got %s twice", a)
	}
}

func TestResolveRoundTrip(t *testing.T) {
	r := New()
	ref := r.Store(&widget{"hello"}, "")
	got, err := Resolve[widget](r, ref)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.label != "hello" {
		t.Fatalf("got label %q", got.label)
	}
}

func TestResolveMissingIsApiCallErr(t *testing.T) {
	r := New()
	_, err := Resolve[widget](r, "widget#999")
	if err == nil {
		t.Fatal("expected error for missing ref")
	}
}

func TestResolveOwnerDriver(t *testing.T) {
	type driver struct{ id int }
	r := New()
	driverRef := r.Store(&driver{1}, "")
	compRef := r.Store(&widget{"child"}, driverRef)

	got, err := ResolveOwnerDriver[driver](r, compRef)
	if err != nil {
		t.Fatalf("resolve owner: %v", err)
	}
	if got.id != 1 {
		t.Fatalf("got driver id %d", got.id)
	}
}

func TestDropRemovesEntriesAndOwnerEdges(t *testing.T) {
	type driver struct{}
	r := New()
	driverRef := r.Store(&driver{}, "")
	compRef := r.Store(&widget{"x"}, driverRef)

	r.Drop([]string{compRef})
	if r.Has(compRef) {
		t.Fatal("expected ref dropped")
	}
	if _, err := ResolveOwnerDriver[driver](r, compRef); err == nil {
		t.Fatal("expected owner edge dropped along with ref")
	}
	// Dropping a ref that is already gone must not panic.
	r.Drop([]string{compRef})
}
