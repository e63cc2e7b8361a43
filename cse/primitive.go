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

// Package cse is a small client for a oneM2M Common Services Entity.
//
// Requests and responses are primitives (TS-0004) carried by one of
// the protocol bindings: HTTP (TS-0009), MQTT (TS-0010) or WebSocket
// (TS-0020).  Each binding is a Transport, and a Client adds the
// originator and request identifiers.
//
// Memory is an in-process CSE that keeps containers of
// contentInstances.  It's handy for demos and tests.
package cse

import "fmt"

// Operation is a primitive's "op".
type Operation int

const (
	OpCreate   Operation = 1
	OpRetrieve Operation = 2
	OpUpdate   Operation = 3
	OpDelete   Operation = 4
	OpNotify   Operation = 5
)

func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "CREATE"
	case OpRetrieve:
		return "RETRIEVE"
	case OpUpdate:
		return "UPDATE"
	case OpDelete:
		return "DELETE"
	case OpNotify:
		return "NOTIFY"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// ResourceType is a primitive's "ty".
type ResourceType int

const (
	TypeAE              ResourceType = 2
	TypeContainer       ResourceType = 3
	TypeContentInstance ResourceType = 4
	TypeSubscription    ResourceType = 23
)

// RSC is a response status code.
type RSC int

const (
	RSCOK                  RSC = 2000
	RSCCreated             RSC = 2001
	RSCDeleted             RSC = 2002
	RSCUpdated             RSC = 2004
	RSCBadRequest          RSC = 4000
	RSCNotFound            RSC = 4004
	RSCOperationNotAllowed RSC = 4005
	RSCRequestTimeout      RSC = 4008
	RSCConflict            RSC = 4105
	RSCInternalServerError RSC = 5000
	RSCNotImplemented      RSC = 5001
	RSCTargetNotReachable  RSC = 5103
)

// OK is true for any 2xxx code.
func (c RSC) OK() bool {
	return 2000 <= c && c < 3000
}

// HTTPStatus maps the code to the status of an HTTP binding
// response.
func (c RSC) HTTPStatus() int {
	switch {
	case c == RSCCreated:
		return 201
	case c.OK():
		return 200
	case c == RSCNotFound:
		return 404
	case c == RSCOperationNotAllowed:
		return 405
	case c == RSCRequestTimeout:
		return 408
	case c == RSCConflict:
		return 409
	case c == RSCNotImplemented:
		return 501
	case c == RSCTargetNotReachable:
		return 404
	case 4000 <= c && c < 5000:
		return 400
	default:
		return 500
	}
}

// RSCFromHTTP guesses a code from an HTTP status for responses that
// lack an X-M2M-RSC header.
func RSCFromHTTP(status int) RSC {
	switch {
	case status == 201:
		return RSCCreated
	case 200 <= status && status < 300:
		return RSCOK
	case status == 404:
		return RSCNotFound
	case status == 405:
		return RSCOperationNotAllowed
	case status == 408:
		return RSCRequestTimeout
	case status == 409:
		return RSCConflict
	case status == 501:
		return RSCNotImplemented
	case 400 <= status && status < 500:
		return RSCBadRequest
	default:
		return RSCInternalServerError
	}
}

// Request is a request primitive.
type Request struct {
	Op  Operation              `json:"op"`
	To  string                 `json:"to"`
	Fr  string                 `json:"fr,omitempty"`
	RQI string                 `json:"rqi"`
	RVI string                 `json:"rvi,omitempty"`
	Ty  ResourceType           `json:"ty,omitempty"`
	PC  map[string]interface{} `json:"pc,omitempty"`
}

// Response is a response primitive.
type Response struct {
	RSC RSC                    `json:"rsc"`
	RQI string                 `json:"rqi,omitempty"`
	To  string                 `json:"to,omitempty"`
	Fr  string                 `json:"fr,omitempty"`
	RVI string                 `json:"rvi,omitempty"`
	PC  map[string]interface{} `json:"pc,omitempty"`
}

// Content returns the "con" of a contentInstance carried in the
// response.  The second value is false if there isn't one or if it
// isn't a string.
func (r *Response) Content() (string, bool) {
	if r == nil || r.PC == nil {
		return "", false
	}
	cin, is := r.PC["m2m:cin"].(map[string]interface{})
	if !is {
		return "", false
	}
	con, is := cin["con"].(string)
	return con, is
}

// ContentInstance makes the primitive content for a new
// contentInstance.
func ContentInstance(con string) map[string]interface{} {
	return map[string]interface{}{
		"m2m:cin": map[string]interface{}{
			"con": con,
		},
	}
}

// Container makes the primitive content for a new container.
func Container(rn string) map[string]interface{} {
	return map[string]interface{}{
		"m2m:cnt": map[string]interface{}{
			"rn": rn,
		},
	}
}
