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

// These errors are returned to callers.  Read-side failures are
// never returned; they only show up in verbose logs.

import (
	"fmt"

	"github.com/Comcast/lightswitch/cse"
)

// InvalidStateError occurs when a value that should name a State is
// neither "on" nor "off".
type InvalidStateError struct {
	Value string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf(`invalid state "%s"`, e.Value)
}

// WriteError occurs when the CSE did not durably record a new
// contentInstance.  Either Err is the transport error or RSC is the
// non-success response status.
type WriteError struct {
	Path string
	RSC  cse.RSC
	Err  error
}

func (e *WriteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(`create at "%s" failed: %s`, e.Path, e.Err)
	}
	return fmt.Sprintf(`create at "%s" failed with rsc %d`, e.Path, e.RSC)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// CacheError occurs when the remote write succeeded but the cache
// could not be updated.
type CacheError struct {
	Namespace string
	Key       string
	Err       error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf(`cache put %s/%s failed: %s`, e.Namespace, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}
