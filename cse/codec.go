/* Copyright 2024 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cse

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Serialization is a primitive content serialization.
type Serialization string

const (
	JSON Serialization = "json"
	CBOR Serialization = "cbor"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}
	if cborEnc, err = encOpts.EncMode(); err != nil {
		panic(fmt.Sprintf("cse: CBOR encoder mode: %v", err))
	}

	// Nested maps must come back as map[string]interface{} so
	// that primitive content looks the same as it does with JSON.
	decOpts := cbor.DecOptions{
		DupMapKey:      cbor.DupMapKeyQuiet,
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
	}
	if cborDec, err = decOpts.DecMode(); err != nil {
		panic(fmt.Sprintf("cse: CBOR decoder mode: %v", err))
	}
}

// ParseSerialization accepts "json" or "cbor".  The empty string is
// JSON.
func ParseSerialization(s string) (Serialization, error) {
	switch Serialization(s) {
	case JSON, "":
		return JSON, nil
	case CBOR:
		return CBOR, nil
	default:
		return "", fmt.Errorf(`unknown serialization "%s"`, s)
	}
}

// ContentType is the media type for HTTP bodies.
func (s Serialization) ContentType() string {
	if s == CBOR {
		return "application/cbor"
	}
	return "application/json"
}

// Subprotocol is the WebSocket subprotocol name.
func (s Serialization) Subprotocol() string {
	if s == CBOR {
		return "oneM2M.cbor"
	}
	return "oneM2M.json"
}

// Marshal encodes v.
func (s Serialization) Marshal(v interface{}) ([]byte, error) {
	if s == CBOR {
		return cborEnc.Marshal(v)
	}
	return json.Marshal(v)
}

// Unmarshal decodes data into v.
func (s Serialization) Unmarshal(data []byte, v interface{}) error {
	if s == CBOR {
		return cborDec.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

// SerializationFor picks a serialization from a media type such as
// "application/json;ty=4".
func SerializationFor(contentType string) Serialization {
	if strings.HasPrefix(contentType, "application/cbor") {
		return CBOR
	}
	return JSON
}
