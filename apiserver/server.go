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

// HandlerFunc answers one API call; it is the Go analogue of the C++
// original's "(ApiCallInfo&, ApiReplyInfo&)" handler signature (spec.md
// §4.5's "Handlers map").
type HandlerFunc func(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo

// Server is the Frontend API Server of spec.md §4.5: signature catalog,
// handler table, preprocessor chain, and the aliasing tables, wired
// together by Dispatch.
type Server struct {
	Catalog       *Catalog
	Registry      *registry.Registry
	handlers      map[string]HandlerFunc
	preprocessors []Preprocessor
}

// NewServer constructs a Server with the built-in ApiCallInfoChecker
// installed as its first preprocessor (spec.md §4.5.2).
func NewServer(catalog *Catalog, reg *registry.Registry) *Server {
	s := &Server{
		Catalog:  catalog,
		Registry: reg,
		handlers: make(map[string]HandlerFunc),
	}
	s.AddPreprocessor(NewApiCallInfoChecker(catalog, reg))
	return s
}

// AddPreprocessor appends one more preprocessor to the chain, run in
// insertion order (spec.md §4.5's "Common preprocessors").
func (s *Server) AddPreprocessor(p Preprocessor) { s.preprocessors = append(s.preprocessors, p) }

// Handle registers the handler for apiId. Registration is expected to
// happen once at process init, mirroring the original's static
// initialization (spec.md §4.5 note 2, "Handler dispatch").
func (s *Server) Handle(apiId string, h HandlerFunc) { s.handlers[apiId] = h }

// Dispatch implements the algorithm of spec.md §4.5.1.
func (s *Server) Dispatch(call apidefs.ApiCallInfo) apidefs.ApiReplyInfo {
	originalId := call.ApiId
	call.ApiId = aliasForwardId(call.ApiId)
	call.CallerObjRef = aliasForwardRefType(call.CallerObjRef)
	for i, p := range call.ParamList {
		if str, err := p.Str(); err == nil {
			if _, looksRef := value.LooksLikeRef(p); looksRef {
				call.ParamList[i] = value.NewString(aliasForwardRefType(str))
			}
		}
	}

	for _, pp := range s.preprocessors {
		if err := pp.Run(call); err != nil {
			return s.finishError(originalId, call, *err)
		}
	}

	handler, ok := s.handlers[call.ApiId]
	if !ok {
		return s.finishError(originalId, call, *apidefs.NewApiCallErr(apidefs.Internal, "No handler found"))
	}

	reply := s.invoke(handler, call)
	return s.finish(originalId, call, reply)
}

func (s *Server) invoke(h HandlerFunc, call apidefs.ApiCallInfo) (reply apidefs.ApiReplyInfo) {
	defer func() {
		if r := recover(); r != nil {
			reply = apidefs.NewErrorReply(apidefs.Internal, fmt.Sprintf("Handler failed: %v", r))
		}
	}()
	return h(call)
}

func (s *Server) finishError(originalId string, call apidefs.ApiCallInfo, errReply apidefs.ApiCallErr) apidefs.ApiReplyInfo {
	return s.finish(originalId, call, apidefs.ApiReplyInfo{ResultValue: value.NewNull(), Exception: errReply})
}

// finish applies the return-path remapping of spec.md §4.5.1 steps 5–6:
// for a call that arrived under a legacy id, the legacy error-name remap
// and the handle-ref type-prefix back-mapping; for every call, the single
// convertError InvalidInput→InvalidParam application.
func (s *Server) finish(originalId string, call apidefs.ApiCallInfo, reply apidefs.ApiReplyInfo) apidefs.ApiReplyInfo {
	if originalId != call.ApiId {
		if legacyName, ok := errAliasBackward[reply.Exception.Code]; ok && reply.Exception.Message != "" {
			reply.Exception.Message = fmt.Sprintf("[%s] %s", legacyName, reply.Exception.Message)
		}

		if str, err := reply.ResultValue.Str(); err == nil {
			if _, looksRef := value.LooksLikeRef(reply.ResultValue); looksRef {
				reply.ResultValue = value.NewString(aliasBackwardRefType(str))
			}
		}
	}

	if reply.Exception.Code == apidefs.InvalidInput && (call.ConvertError || s.Catalog.ConvertErrorFor(call.ApiId)) {
		reply.Exception.Code = apidefs.InvalidParam
	}

	return reply
}
