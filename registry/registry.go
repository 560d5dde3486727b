// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package registry implements the handle reference registry of spec.md
// §4.4: a process-wide mapping from opaque "<TypeName>#<n>" references to
// server-owned objects, an ownership-edge side table binding components
// and windows to the driver that produced them, and client-side batched
// GC. Grounded on original_source/uitest/core/ui_model.h's per-id object
// table.
package registry

import (
	"fmt"
	"reflect"
	"sync"

	"go.fuchsia.dev/uitest/apidefs"
)

// Registry assigns string references to server-owned objects.
type Registry struct {
	mu       sync.Mutex
	counters map[string]uint64
	objects  map[string]any
	owners   map[string]string // ref -> owner ref (driver->component/window/observer)
}

func New() *Registry {
	return &Registry{
		counters: make(map[string]uint64),
		objects:  make(map[string]any),
		owners:   make(map[string]string),
	}
}

// Store generates "<TypeName>#<n>" for obj, where TypeName is obj's dynamic
// Go type name, inserts it, and optionally records an ownership edge to
// owner. It returns the new reference. Use this when the Go type name is
// itself the identity callers should see (internal/test-only objects);
// use StoreAs when the reference must carry a specific frontend class
// name instead (spec.md §3's handle reference grammar), since a package's
// internal struct name and the frontend-facing class name often differ
// (e.g. uidriver.Selector backs the "On" class, uidriver.Widget backs
// "Component").
func (r *Registry) Store(obj any, owner string) string {
	typeName := reflect.TypeOf(obj).Elem().Name()
	if typeName == "" {
		typeName = reflect.TypeOf(obj).Name()
	}
	return r.store(typeName, obj, owner)
}

// StoreAs is Store with an explicit type-name prefix, for objects whose
// frontend class name does not match their backing Go type's name.
func (r *Registry) StoreAs(typeName string, obj any, owner string) string {
	return r.store(typeName, obj, owner)
}

func (r *Registry) store(typeName string, obj any, owner string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.counters[typeName]
	r.counters[typeName] = n + 1
	ref := fmt.Sprintf("%s#%d", typeName, n)
	r.objects[ref] = obj
	if owner != "" {
		r.owners[ref] = owner
	}
	return ref
}

// Resolve looks up ref and down-casts it to *T, failing with a
// BadObjectRef-shaped ApiCallErr rather than panicking on a miss — this is
// a caller-facing lookup failure (spec.md §4.4, §8 property 4), unlike
// Store's programming-error preconditions.
func Resolve[T any](r *Registry, ref string) (*T, error) {
	r.mu.Lock()
	obj, ok := r.objects[ref]
	r.mu.Unlock()
	if !ok {
		return nil, apidefs.NewApiCallErr(apidefs.Internal, fmt.Sprintf("Bad object ref: %s", ref))
	}
	t, ok := obj.(*T)
	if !ok {
		return nil, apidefs.NewApiCallErr(apidefs.Internal, fmt.Sprintf("object ref %s is not a %T", ref, *new(T)))
	}
	return t, nil
}

// ResolveOwnerDriver follows ref's ownership edge and resolves the driver
// that owns it, used by handlers that need to locate the driver behind a
// component or observer reference (spec.md §3, §4.4).
func ResolveOwnerDriver[D any](r *Registry, ref string) (*D, error) {
	r.mu.Lock()
	owner, ok := r.owners[ref]
	r.mu.Unlock()
	if !ok {
		return nil, apidefs.NewApiCallErr(apidefs.Internal, fmt.Sprintf("object ref %s has no owning driver", ref))
	}
	return Resolve[D](r, owner)
}

// Drop removes refs from the registry, ignoring any that are already
// missing, and drops their owner edges if present (spec.md §4.4).
func (r *Registry) Drop(refs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range refs {
		delete(r.objects, ref)
		delete(r.owners, ref)
	}
}

// Has reports whether ref currently resolves to a live entry; used by the
// signature checker (spec.md §4.5.2) to validate frontend-class-typed
// parameters without needing the concrete Go type.
func (r *Registry) Has(ref string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.objects[ref]
	return ok
}
