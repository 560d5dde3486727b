// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package apiserver implements the Frontend API Server of spec.md §4.5:
// a declarative signature catalog, an arg-typecheck preprocessor, id/error
// aliasing, handler dispatch, and the representative handler families.
// Grounded on original_source/uitest/core/frontend_api_defines.h (the
// signature tables), extern_api_registration.cpp (handler registration
// shape) and frontend_api_handler.cpp (dispatch, ApiCallInfoChecker, the
// alias tables, and the convertError remap).
package apiserver

import (
	"fmt"
	"strings"
)

// ParamType is one compiled parameter slot of a MethodSig (spec.md
// §4.5.2). Kind is one of "int", "signedInt", "float", "bool", "string",
// "class" (a frontend class name, checked against the registry), or
// "object" (a named JSON-object schema, checked recursively).
type ParamType struct {
	Kind      string
	ClassName string
	Schema    string
}

// MethodSig is one compiled overload entry of the signature catalog
// (spec.md §4.5's "Signature catalog").
type MethodSig struct {
	Name         string
	ParamTypes   []ParamType
	ParamCount   int
	DefaultCount int
	ConvertError bool
}

// Catalog holds every registered overload, keyed by fully qualified id
// ("Class.method"), plus named JSON-object schemas used by "object"
// parameter types.
type Catalog struct {
	entries map[string][]MethodSig
	objects map[string]map[string]ParamType
}

func NewCatalog() *Catalog {
	return &Catalog{
		entries: make(map[string][]MethodSig),
		objects: make(map[string]map[string]ParamType),
	}
}

// DefineObject registers a named JSON-object schema usable as an "object"
// parameter type token (spec.md §4.5.2's recursive mapping check).
func (c *Catalog) DefineObject(name string, props map[string]ParamType) {
	c.objects[name] = props
}

// Object looks up a previously defined schema.
func (c *Catalog) Object(name string) (map[string]ParamType, bool) {
	p, ok := c.objects[name]
	return p, ok
}

// Register compiles a declarative signature string of the form
// "(T1,T2?,…):R" and adds it as one overload of id (spec.md §4.5). The
// return-type annotation after ':' is accepted but not type-checked —
// the checker only validates arguments, never results.
func (c *Catalog) Register(id, sig string, convertError bool) {
	params, defaultCount := parseSig(sig)
	c.entries[id] = append(c.entries[id], MethodSig{
		Name:         id,
		ParamTypes:   params,
		ParamCount:   len(params),
		DefaultCount: defaultCount,
		ConvertError: convertError,
	})
}

// Overloads returns every registered signature for id.
func (c *Catalog) Overloads(id string) []MethodSig { return c.entries[id] }

// ConvertErrorFor reports whether any overload of id declares
// convertError, used by dispatch's return-path remap (spec.md §4.5.1
// step 6).
func (c *Catalog) ConvertErrorFor(id string) bool {
	for _, m := range c.entries[id] {
		if m.ConvertError {
			return true
		}
	}
	return false
}

// parseSig compiles "(T1,T2?,…)" or "(T1,T2?,…):R" into ordered
// ParamTypes plus the count of trailing '?'-marked defaulted params.
func parseSig(sig string) ([]ParamType, int) {
	sig = strings.TrimSpace(sig)
	open := strings.Index(sig, "(")
	shut := strings.Index(sig, ")")
	var body string
	if open >= 0 && shut > open {
		body = sig[open+1 : shut]
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, 0
	}
	tokens := strings.Split(body, ",")
	params := make([]ParamType, 0, len(tokens))
	defaultCount := 0
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		optional := strings.HasSuffix(tok, "?")
		tok = strings.TrimSuffix(tok, "?")
		params = append(params, parseParamType(tok))
		if optional {
			defaultCount++
		}
	}
	return params, defaultCount
}

func parseParamType(tok string) ParamType {
	switch tok {
	case "int", "signedInt", "float", "bool", "string":
		return ParamType{Kind: tok}
	}
	if strings.HasPrefix(tok, "object:") {
		return ParamType{Kind: "object", Schema: strings.TrimPrefix(tok, "object:")}
	}
	// Anything else is a frontend class name: On, Driver, Component,
	// UiWindow, PointerMatrix, UIEventObserver, Callback, ...
	return ParamType{Kind: "class", ClassName: tok}
}

func (p ParamType) String() string {
	switch p.Kind {
	case "class":
		return p.ClassName
	case "object":
		return fmt.Sprintf("object:%s", p.Schema)
	default:
		return p.Kind
	}
}
