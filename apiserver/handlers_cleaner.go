// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apiserver

import (
	"go.fuchsia.dev/uitest/apidefs"
	"go.fuchsia.dev/uitest/value"
)

// registerCleanerHandlers installs BackendObjectsCleaner (spec.md §4.4),
// the batched counterpart to the client-side registry.Collector: every
// argument is a handle ref due for collection, dropped from the registry
// in one call. Its arity varies with batch size, so it is installed
// without a catalog signature — the ApiCallInfoChecker preprocessor
// skips arity/type checking for any id with no registered overload
// (apiserver/checker.go) — and parses ParamList itself. No original_source
// file models this batch-recycle call directly; it is grounded instead on
// this implementation's own registry.Collector/Registry.Drop design (§4.4),
// which this handler is the server-side counterpart to.
func (h *Handlers) registerCleanerHandlers(s *Server) {
	s.Handle("BackendObjectsCleaner.recycle", func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
		refs := make([]string, 0, len(call.ParamList))
		for _, p := range call.ParamList {
			ref, err := p.Str()
			if err != nil {
				return apidefs.NewErrorReply(apidefs.InvalidInput, "BackendObjectsCleaner.recycle expects a list of string refs")
			}
			refs = append(refs, ref)
		}
		h.Reg.Drop(refs)
		return apidefs.NewApiReplyInfo(value.NewNull())
	})
}
