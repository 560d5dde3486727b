// Copyright 2024 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package value implements the dynamically typed values that flow through
// an ApiCallInfo's paramList and an ApiReplyInfo's resultValue: null, bool,
// signed integer, float, string, ordered sequence, and key-value mapping.
package value

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which alternative of the Value union is populated.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Int
	Float
	String
	Seq
	Map
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Seq:
		return "seq"
	case Map:
		return "map"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the wire-value kinds the transactor carries.
// Zero value is Null. Values are treated as immutable once constructed;
// accessors that return a Seq or Map hand back a defensive copy.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	seq  []Value
	mp   map[string]Value
}

func NewNull() Value            { return Value{kind: Null} }
func NewBool(b bool) Value      { return Value{kind: Bool, b: b} }
func NewInt(i int64) Value      { return Value{kind: Int, i: i} }
func NewFloat(f float64) Value  { return Value{kind: Float, f: f} }
func NewString(s string) Value  { return Value{kind: String, s: s} }

func NewSeq(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: Seq, seq: cp}
}

func NewMap(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: Map, mp: cp}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == Null }

// typeErr reports an InvalidInput-shaped message without importing apidefs,
// to keep this package a leaf; callers in apidefs/apiserver wrap it with
// the proper ErrCode.
func typeErr(want Kind, got Kind) error {
	return fmt.Errorf("expected %s value, got %s", want, got)
}

func (v Value) Bool() (bool, error) {
	if v.kind != Bool {
		return false, typeErr(Bool, v.kind)
	}
	return v.b, nil
}

func (v Value) Int() (int64, error) {
	if v.kind != Int {
		return 0, typeErr(Int, v.kind)
	}
	return v.i, nil
}

// Float returns the numeric value, accepting an Int value too (the spec's
// "float" parameter type accepts "integer or float", §4.5.2).
func (v Value) Float() (float64, error) {
	switch v.kind {
	case Float:
		return v.f, nil
	case Int:
		return float64(v.i), nil
	default:
		return 0, typeErr(Float, v.kind)
	}
}

func (v Value) Str() (string, error) {
	if v.kind != String {
		return "", typeErr(String, v.kind)
	}
	return v.s, nil
}

func (v Value) Seq() ([]Value, error) {
	if v.kind != Seq {
		return nil, typeErr(Seq, v.kind)
	}
	cp := make([]Value, len(v.seq))
	copy(cp, v.seq)
	return cp, nil
}

func (v Value) Map() (map[string]Value, error) {
	if v.kind != Map {
		return nil, typeErr(Map, v.kind)
	}
	cp := make(map[string]Value, len(v.mp))
	for k, mv := range v.mp {
		cp[k] = mv
	}
	return cp, nil
}

// LooksLikeRef reports whether v is a string of the form "<TypeName>#<n>"
// or "<TypeName>#seed", per spec.md §3's handle reference grammar. Used by
// apiserver's old/new name remapping (§4.5.1) and by the signature checker
// (§4.5.2) to recognize handle-typed parameters.
func LooksLikeRef(v Value) (typeName string, ok bool) {
	if v.kind != String {
		return "", false
	}
	idx := strings.LastIndexByte(v.s, '#')
	if idx <= 0 || idx == len(v.s)-1 {
		return "", false
	}
	typeName = v.s[:idx]
	ordinal := v.s[idx+1:]
	if ordinal == "seed" {
		return typeName, true
	}
	if _, err := strconv.ParseUint(ordinal, 10, 64); err != nil {
		return "", false
	}
	return typeName, true
}

// --- encoding/json interop -------------------------------------------------

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Null:
		return []byte("null"), nil
	case Bool:
		if v.b {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case Int:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case Float:
		return []byte(strconv.FormatFloat(v.f, 'g', -1, 64)), nil
	case String:
		return json.Marshal(v.s)
	case Seq:
		return json.Marshal(v.seq)
	case Map:
		return json.Marshal(v.mp)
	default:
		return nil, fmt.Errorf("value: unknown kind %d", v.kind)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = fromAny(raw)
	return nil
}

func fromAny(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return NewNull()
	case bool:
		return NewBool(t)
	case float64:
		// encoding/json always decodes JSON numbers as float64; preserve
		// integral values as Int so int-typed parameters round-trip.
		if t == float64(int64(t)) {
			return NewInt(int64(t))
		}
		return NewFloat(t)
	case string:
		return NewString(t)
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = fromAny(e)
		}
		return NewSeq(items...)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			m[k] = fromAny(e)
		}
		return NewMap(m)
	default:
		return NewNull()
	}
}

// FromJSON parses a serialized structured document into a Value, the
// counterpart of the codec's string-valued paramList encoding (spec.md §4.1).
func FromJSON(data []byte) (Value, error) {
	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return Value{}, err
	}
	return v, nil
}

// ToJSON serializes v back to its wire string form.
func ToJSON(v Value) ([]byte, error) {
	return json.Marshal(v)
}
