// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apiserver

import (
	"go.fuchsia.dev/uitest/observer"
	"go.fuchsia.dev/uitest/registry"
	"go.fuchsia.dev/uitest/uidriver"
)

// Handlers bundles the collaborators the representative handler families
// of spec.md §4.5.3 depend on: the registry, the driver/clipboard/selector
// capabilities of spec.md §6, and the observer registry of §4.6.
type Handlers struct {
	Reg       *registry.Registry
	Driver    uidriver.Driver
	Clipboard uidriver.Clipboard
	Selectors uidriver.SelectorFactory
	Observers *observer.Registry
	// Limits overrides the input-validation bounds of handlers_input.go;
	// its zero value falls back to the package defaults (spec.md §4.5.3),
	// wired from config.Options by callers that build a Handlers.
	Limits InputLimits
}

// register compiles sig into the catalog and installs fn as the handler
// for id, the two static-registration steps spec.md §4.5 describes as
// happening once at process init.
func (h *Handlers) register(s *Server, id, sig string, convertError bool, fn HandlerFunc) {
	s.Catalog.Register(id, sig, convertError)
	s.Handle(id, fn)
}

// RegisterAll installs every representative handler family of spec.md
// §4.5.3 onto s.
func (h *Handlers) RegisterAll(s *Server) {
	h.registerOnHandlers(s)
	h.registerFinderHandlers(s)
	h.registerInputHandlers(s)
	h.registerObserverHandlers(s)
	h.registerCleanerHandlers(s)
	h.registerDriverHandlers(s)
}
