// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package codec serializes ApiCallInfo and ApiReplyInfo to and from the
// wire document described in spec.md §4.1: a fixed-shape call header with
// paramList carried as a nested, separately-encoded string blob, so the
// transport only ever sees flat string payloads.
package codec

import (
	"encoding/json"
	"fmt"

	"go.fuchsia.dev/uitest/apidefs"
	"go.fuchsia.dev/uitest/value"
)

// wireCall mirrors the keys spec.md §4.1 assigns ApiCallInfo on the wire.
type wireCall struct {
	ApiId        string `json:"apiId"`
	CallerObjRef string `json:"callerObjRef"`
	ParamList    string `json:"paramList"`
	FdParamIndex int    `json:"fdParamIndex"`
}

type wireException struct {
	Code    apidefs.ErrCode `json:"code"`
	Message string          `json:"message"`
}

type wireReply struct {
	ResultValue json.RawMessage `json:"resultValue"`
	Exception   wireException   `json:"exception"`
}

// internalErr builds the local-parse-failure reply spec.md §4.1 requires:
// "a malformed payload (parse error) yields a local Internal error with
// the underlying parser diagnostic as the message; the call is not
// dispatched."
func internalErr(err error) error {
	return apidefs.NewApiCallErr(apidefs.Internal, err.Error())
}

// EncodeCall serializes call to its wire string form. When call.HasFd(),
// the parameter at FdParamIndex is replaced with the integer 0 in the
// encoded blob — the real descriptor travels out of band through the
// transceiver's handle-passing mechanism (spec.md §4.1).
func EncodeCall(call apidefs.ApiCallInfo) ([]byte, error) {
	params := call.ParamList
	if call.HasFd() {
		params = append([]value.Value(nil), call.ParamList...)
		params[call.FdParamIndex] = value.NewInt(0)
	}
	paramBlob, err := value.ToJSON(value.NewSeq(params...))
	if err != nil {
		return nil, internalErr(fmt.Errorf("encode paramList: %w", err))
	}
	w := wireCall{
		ApiId:        call.ApiId,
		CallerObjRef: call.CallerObjRef,
		ParamList:    string(paramBlob),
		FdParamIndex: call.FdParamIndex,
	}
	out, err := json.Marshal(w)
	if err != nil {
		return nil, internalErr(fmt.Errorf("encode call: %w", err))
	}
	return out, nil
}

// DecodeCall parses the wire form produced by EncodeCall. If fd >= 0, the
// caller (the transceiver, which owns the out-of-band handle) must patch
// the returned ApiCallInfo.ParamList[fd] with the received descriptor
// before dispatching; DecodeCall itself never has access to the handle.
func DecodeCall(data []byte) (apidefs.ApiCallInfo, error) {
	var w wireCall
	if err := json.Unmarshal(data, &w); err != nil {
		return apidefs.ApiCallInfo{}, internalErr(fmt.Errorf("decode call: %w", err))
	}
	paramsVal, err := value.FromJSON([]byte(w.ParamList))
	if err != nil {
		return apidefs.ApiCallInfo{}, internalErr(fmt.Errorf("decode paramList: %w", err))
	}
	params, err := paramsVal.Seq()
	if err != nil {
		return apidefs.ApiCallInfo{}, internalErr(fmt.Errorf("paramList is not a sequence: %w", err))
	}
	return apidefs.ApiCallInfo{
		ApiId:        w.ApiId,
		CallerObjRef: w.CallerObjRef,
		ParamList:    params,
		FdParamIndex: w.FdParamIndex,
	}, nil
}

// PatchFd overwrites params[idx] with the integer value of the descriptor
// the receiver obtained out of band, per spec.md §4.1's receive-side rule.
func PatchFd(call *apidefs.ApiCallInfo, fd int) {
	if call.HasFd() {
		call.ParamList[call.FdParamIndex] = value.NewInt(int64(fd))
	}
}

// EncodeReply serializes reply to its wire string form.
func EncodeReply(reply apidefs.ApiReplyInfo) ([]byte, error) {
	resultBlob, err := value.ToJSON(reply.ResultValue)
	if err != nil {
		return nil, internalErr(fmt.Errorf("encode resultValue: %w", err))
	}
	w := wireReply{
		ResultValue: resultBlob,
		Exception: wireException{
			Code:    reply.Exception.Code,
			Message: reply.Exception.Message,
		},
	}
	out, err := json.Marshal(w)
	if err != nil {
		return nil, internalErr(fmt.Errorf("encode reply: %w", err))
	}
	return out, nil
}

// DecodeReply parses the wire form produced by EncodeReply.
func DecodeReply(data []byte) (apidefs.ApiReplyInfo, error) {
	var w wireReply
	if err := json.Unmarshal(data, &w); err != nil {
		return apidefs.ApiReplyInfo{}, internalErr(fmt.Errorf("decode reply: %w", err))
	}
	resultVal, err := value.FromJSON(w.ResultValue)
	if err != nil {
		return apidefs.ApiReplyInfo{}, internalErr(fmt.Errorf("decode resultValue: %w", err))
	}
	return apidefs.ApiReplyInfo{
		ResultValue: resultVal,
		Exception: apidefs.ApiCallErr{
			Code:    w.Exception.Code,
			Message: w.Exception.Message,
		},
	}, nil
}
