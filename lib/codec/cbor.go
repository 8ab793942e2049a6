// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the single CBOR configuration shared by the agent,
// the actor clients, the replica and the delegation cache.
//
// Encoding is RFC 8949 core deterministic: map keys sorted, shortest
// integer forms, no indefinite lengths. Request ids are hashes of
// encoded content, so both ends must produce identical bytes for the
// same value.
package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	encOptions := cbor.CoreDetEncOptions()
	// Principals implement encoding.TextMarshaler and travel as text.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	var err error
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: building CBOR encoder: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Untyped maps decode as map[string]any, never
		// map[any]any.
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: building CBOR decoder: " + err.Error())
	}
}

// Marshal encodes v deterministically.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes data into v. Unknown fields are ignored.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// RawMessage is an encoded CBOR value whose decoding is deferred.
type RawMessage = cbor.RawMessage

// Diagnose renders data in CBOR diagnostic notation, for debug logs
// and the replica's request tracing.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
