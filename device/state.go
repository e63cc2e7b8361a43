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

package device

// State is the state of the switch.  Only On and Off are valid.
type State string

const (
	On  State = "on"
	Off State = "off"

	// Default is the state reported when neither the cache nor
	// the CSE can provide one.  It is never written anywhere by
	// resolution.
	Default = Off
)

// ParseState returns the State named by s.  Anything other than
// exactly "on" or "off" is an *InvalidStateError.
func ParseState(s string) (State, error) {
	switch State(s) {
	case On:
		return On, nil
	case Off:
		return Off, nil
	default:
		return "", &InvalidStateError{Value: s}
	}
}

// Valid reports whether s is On or Off.
func (s State) Valid() bool {
	return s == On || s == Off
}

// Invert maps On to Off and Off to On.
//
// Invert must only be given a valid State.  An invalid State panics
// with an *InvalidStateError since there is no sensible inverse.
func (s State) Invert() State {
	switch s {
	case On:
		return Off
	case Off:
		return On
	default:
		panic(&InvalidStateError{Value: string(s)})
	}
}

func (s State) String() string {
	return string(s)
}

// Source says where a resolved State came from.
type Source string

const (
	FromCache   Source = "cache"
	FromRemote  Source = "remote"
	FromDefault Source = "default"
)
