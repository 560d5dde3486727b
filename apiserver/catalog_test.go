// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apiserver

import "testing"

func TestParseSigArityAndDefaults(t *testing.T) {
	params, defaultCount := parseSig("(int,string?,bool?):Component")
	if len(params) != 3 {
		t.Fatalf("expected 3 params, got %d", len(params))
	}
	if defaultCount != 2 {
		t.Fatalf("expected 2 defaulted params, got %d", defaultCount)
	}
	if params[0].Kind != "int" || params[1].Kind != "string" || params[2].Kind != "bool" {
		t.Fatalf("unexpected kinds: %+v", params)
	}
}

func TestParseSigEmptyParamList(t *testing.T) {
	params, defaultCount := parseSig("()")
	if len(params) != 0 || defaultCount != 0 {
		t.Fatalf("expected no params, got %+v default=%d", params, defaultCount)
	}
}

func TestParseSigObjectAndClassTokens(t *testing.T) {
	params, _ := parseSig("(object:Point,On,Component?)")
	if params[0].Kind != "object" || params[0].Schema != "Point" {
		t.Fatalf("expected object:Point, got %+v", params[0])
	}
	if params[1].Kind != "class" || params[1].ClassName != "On" {
		t.Fatalf("expected class On, got %+v", params[1])
	}
	if params[2].Kind != "class" || params[2].ClassName != "Component" {
		t.Fatalf("expected class Component, got %+v", params[2])
	}
}

func TestCatalogConvertErrorForAnyOverload(t *testing.T) {
	c := NewCatalog()
	c.Register("Driver.click", "(Component)", false)
	c.Register("Driver.click", "(Component,int)", true)
	if !c.ConvertErrorFor("Driver.click") {
		t.Fatal("expected ConvertErrorFor to be true if any overload declares it")
	}
	if c.ConvertErrorFor("Driver.unknown") {
		t.Fatal("expected ConvertErrorFor false for unregistered id")
	}
}

func TestCatalogObjectSchemaRoundTrip(t *testing.T) {
	c := NewCatalog()
	c.DefineObject("Point", map[string]ParamType{"x": {Kind: "int"}})
	props, ok := c.Object("Point")
	if !ok || props["x"].Kind != "int" {
		t.Fatalf("expected defined schema, got %+v ok=%v", props, ok)
	}
	if _, ok := c.Object("Nonexistent"); ok {
		t.Fatal("expected lookup miss for undefined schema")
	}
}
