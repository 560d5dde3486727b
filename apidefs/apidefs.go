// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package apidefs holds the core data model shared by every layer of the
// transactor: ApiCallInfo, ApiReplyInfo, and the error taxonomy carried in
// every reply's exception field. See spec.md §3 and §7.
package apidefs

import (
	"fmt"

	"go.fuchsia.dev/uitest/value"
)

// ErrCode enumerates the exception codes a reply can carry. Only NoError
// means success (spec.md §3).
type ErrCode uint8

const (
	NoError ErrCode = iota
	Internal
	ComponentLost
	WindowLost
	AssertionFailed
	UsageError
	InvalidInput
	InvalidParam
	OperationUnsupported
	NoSystemCapability
	ApiUsage
	InitializeFailed
)

func (c ErrCode) String() string {
	switch c {
	case NoError:
		return "NoError"
	case Internal:
		return "Internal"
	case ComponentLost:
		return "ComponentLost"
	case WindowLost:
		return "WindowLost"
	case AssertionFailed:
		return "AssertionFailed"
	case UsageError:
		return "UsageError"
	case InvalidInput:
		return "InvalidInput"
	case InvalidParam:
		return "InvalidParam"
	case OperationUnsupported:
		return "OperationUnsupported"
	case NoSystemCapability:
		return "NoSystemCapability"
	case ApiUsage:
		return "ApiUsage"
	case InitializeFailed:
		return "InitializeFailed"
	default:
		return "Unknown"
	}
}

// InvalidParamCode is the numeric code the legacy client expects when
// convertError remaps InvalidInput on the return path (spec.md §4.5.1).
const InvalidParamCode = 17000007

// ApiCallErr is the Go analogue of OHOS::uitest::ApiCallErr
// (original_source/uitest/core/frontend_api_defines.h): a structured error
// that also satisfies the error interface so handler code can return it
// directly.
type ApiCallErr struct {
	Code    ErrCode
	Message string
}

func NewApiCallErr(code ErrCode, message string) *ApiCallErr {
	return &ApiCallErr{Code: code, Message: message}
}

func (e *ApiCallErr) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NoErr builds the success sentinel used throughout dispatch code.
func NoErr() *ApiCallErr { return &ApiCallErr{Code: NoError} }

// ApiCallInfo wraps one outgoing API call (spec.md §3).
type ApiCallInfo struct {
	ApiId        string
	CallerObjRef string
	ParamList    []value.Value
	// FdParamIndex is -1 when no parameter carries a file descriptor,
	// otherwise the index in ParamList holding the FD integer.
	FdParamIndex int
	// ConvertError, when true, causes dispatch to remap a resulting
	// InvalidInput to InvalidParam on the return path (spec.md §4.5.1).
	ConvertError bool
}

// NewApiCallInfo constructs a call with no FD argument.
func NewApiCallInfo(apiId, callerObjRef string, params ...value.Value) ApiCallInfo {
	return ApiCallInfo{
		ApiId:        apiId,
		CallerObjRef: callerObjRef,
		ParamList:    params,
		FdParamIndex: -1,
	}
}

// HasFd reports whether this call carries a file-descriptor argument.
func (c ApiCallInfo) HasFd() bool { return c.FdParamIndex >= 0 && c.FdParamIndex < len(c.ParamList) }

// ApiReplyInfo wraps one reply (spec.md §3).
type ApiReplyInfo struct {
	ResultValue value.Value
	Exception   ApiCallErr
}

// NewApiReplyInfo builds a successful reply carrying resultValue.
func NewApiReplyInfo(resultValue value.Value) ApiReplyInfo {
	return ApiReplyInfo{ResultValue: resultValue, Exception: *NoErr()}
}

// NewErrorReply builds a failing reply with the given code and message.
func NewErrorReply(code ErrCode, message string) ApiReplyInfo {
	return ApiReplyInfo{ResultValue: value.NewNull(), Exception: ApiCallErr{Code: code, Message: message}}
}

// Ok reports whether this reply represents success.
func (r ApiReplyInfo) Ok() bool { return r.Exception.Code == NoError }
