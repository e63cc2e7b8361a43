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

package script

import (
	"errors"
	"fmt"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Run if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)
)

// UnknownScript is returned when no script has the requested name.
type UnknownScript struct {
	Name string
}

func (e *UnknownScript) Error() string {
	return fmt.Sprintf(`unknown script "%s"`, e.Name)
}

// NotPermitted is returned when a script may not be run the way it
// was requested.
type NotPermitted struct {
	Name   string
	Reason string
}

func (e *NotPermitted) Error() string {
	return fmt.Sprintf(`script "%s" not permitted: %s`, e.Name, e.Reason)
}

// ScriptError reports a failure from within a script.
type ScriptError struct {
	Name string
	Err  error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf(`script "%s": %s`, e.Name, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}
