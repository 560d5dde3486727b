// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package value

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRoundTripJSON(t *testing.T) {
	cases := []Value{
		NewNull(),
		NewBool(true),
		NewInt(42),
		NewFloat(3.5),
		NewString("hello"),
		NewSeq(NewInt(1), NewString("x"), NewBool(false)),
		NewMap(map[string]Value{"a": NewInt(1), "b": NewString("y")}),
	}
	for _, v := range cases {
		data, err := ToJSON(v)
		if err != nil {
			t.Fatalf("ToJSON(%v): %v", v, err)
		}
		got, err := FromJSON(data)
		if err != nil {
			t.Fatalf("FromJSON(%s): %v", data, err)
		}
		if d := cmp.Diff(v, got, cmp.AllowUnexported(Value{})); d != "" {
			t.Errorf("round trip mismatch for %q (-want +got):\n%s", data, d)
		}
	}
}

func TestLooksLikeRef(t *testing.T) {
	tests := []struct {
		in       string
		wantType string
		wantOk   bool
	}{
		{"Driver#0", "Driver", true},
		{"Component#42", "Component", true},
		{"On#seed", "On", true},
		{"not-a-ref", "", false},
		{"#0", "", false},
		{"Driver#", "", false},
		{"Driver#abc", "", false},
	}
	for _, tt := range tests {
		typeName, ok := LooksLikeRef(NewString(tt.in))
		if ok != tt.wantOk || typeName != tt.wantType {
			t.Errorf("LooksLikeRef(%q) = (%q, %v), want (%q, %v)", tt.in, typeName, ok, tt.wantType, tt.wantOk)
		}
	}
}

func TestTypedAccessorsFailGracefully(t *testing.T) {
	v := NewString("x")
	if _, err := v.Int(); err == nil {
		t.Errorf("Int() on a string value should fail, not panic")
	}
	if _, err := v.Seq(); err == nil {
		t.Errorf("Seq() on a string value should fail")
	}
}

func TestFloatAcceptsInt(t *testing.T) {
	f, err := NewInt(7).Float()
	if err != nil || f != 7.0 {
		t.Errorf("Float() on an int value = (%v, %v), want (7, nil)", f, err)
	}
}
