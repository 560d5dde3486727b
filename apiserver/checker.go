// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apiserver

import (
	"fmt"

	"go.fuchsia.dev/uitest/apidefs"
	"go.fuchsia.dev/uitest/registry"
	"go.fuchsia.dev/uitest/value"
)

// Preprocessor runs before a handler; returning a non-nil error aborts
// dispatch (spec.md §4.5's "Common preprocessors").
type Preprocessor struct {
	Name string
	Run  func(call apidefs.ApiCallInfo) *apidefs.ApiCallErr
}

// NewApiCallInfoChecker builds the built-in preprocessor of spec.md
// §4.5.2: for the incoming id, try every registered overload in order,
// accepting the first whose arity and parameter types match.
//
// The InvalidInput→InvalidParam convertError remap is deliberately NOT
// applied here — spec.md §9 flags the original's double application of
// that remap as a bug; this implementation applies it exactly once, in
// Server.Dispatch's return path.
func NewApiCallInfoChecker(catalog *Catalog, reg *registry.Registry) Preprocessor {
	c := &checker{catalog: catalog, reg: reg}
	return Preprocessor{Name: "ApiCallInfoChecker", Run: c.run}
}

type checker struct {
	catalog *Catalog
	reg     *registry.Registry
}

func (c *checker) run(call apidefs.ApiCallInfo) *apidefs.ApiCallErr {
	overloads := c.catalog.Overloads(call.ApiId)
	if len(overloads) == 0 {
		return nil // no signature registered; let dispatch's "no handler" path handle it
	}

	arityMatched := false
	var firstTypeErr string
	for _, sig := range overloads {
		n := len(call.ParamList)
		min := sig.ParamCount - sig.DefaultCount
		if n < min || n > sig.ParamCount {
			continue
		}
		arityMatched = true
		if msg, ok := c.typecheckParams(sig, call.ParamList); !ok {
			if firstTypeErr == "" {
				firstTypeErr = msg
			}
			continue
		}
		return nil // this overload matches
	}
	if !arityMatched {
		return apidefs.NewApiCallErr(apidefs.InvalidInput, "Illegal argument count")
	}
	return apidefs.NewApiCallErr(apidefs.InvalidInput, firstTypeErr)
}

func (c *checker) typecheckParams(sig MethodSig, params []value.Value) (string, bool) {
	for i, v := range params {
		pt := sig.ParamTypes[i]
		if msg, ok := c.typecheckOne(pt, v); !ok {
			return fmt.Sprintf("argument %d: %s", i, msg), false
		}
	}
	return "", true
}

func (c *checker) typecheckOne(pt ParamType, v value.Value) (string, bool) {
	switch pt.Kind {
	case "int":
		n, err := v.Int()
		if err != nil || n < 0 {
			return fmt.Sprintf("expected non-negative int, got %s", v.Kind()), false
		}
	case "signedInt":
		if _, err := v.Int(); err != nil {
			return fmt.Sprintf("expected int, got %s", v.Kind()), false
		}
	case "float":
		if _, err := v.Float(); err != nil {
			return fmt.Sprintf("expected float, got %s", v.Kind()), false
		}
	case "bool":
		if _, err := v.Bool(); err != nil {
			return fmt.Sprintf("expected bool, got %s", v.Kind()), false
		}
	case "string":
		if _, err := v.Str(); err != nil {
			return fmt.Sprintf("expected string, got %s", v.Kind()), false
		}
	case "class":
		ref, err := v.Str()
		if err != nil {
			return fmt.Sprintf("expected %s reference string, got %s", pt.ClassName, v.Kind()), false
		}
		typeName, ok := value.LooksLikeRef(value.NewString(ref))
		if !ok || typeName != pt.ClassName {
			return fmt.Sprintf("expected %s reference, got %q", pt.ClassName, ref), false
		}
		if !isSeedRef(ref) && !c.reg.Has(ref) {
			return fmt.Sprintf("%s reference %q does not resolve to a live object", pt.ClassName, ref), false
		}
	case "object":
		return c.typecheckObject(pt, v)
	}
	return "", true
}

func isSeedRef(ref string) bool {
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == '#' {
			return ref[i+1:] == "seed"
		}
	}
	return false
}

func (c *checker) typecheckObject(pt ParamType, v value.Value) (string, bool) {
	m, err := v.Map()
	if err != nil {
		return fmt.Sprintf("expected %s object, got %s", pt.Schema, v.Kind()), false
	}
	props, ok := c.catalog.Object(pt.Schema)
	if !ok {
		return "", true // unknown schema name: accept permissively
	}
	for name, propType := range props {
		pv, present := m[name]
		if !present {
			continue // schema properties are optional unless the call supplies them
		}
		if msg, ok := c.typecheckOne(propType, pv); !ok {
			return fmt.Sprintf("%s.%s: %s", pt.Schema, name, msg), false
		}
	}
	return "", true
}
