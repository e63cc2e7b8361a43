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

// Package device keeps the state of a simulated two-state actuator
// (the demo lightswitch) synchronized between a local cache and a
// remote oneM2M CSE.
//
// The current state is resolved cache first.  When the cache has no
// entry, the latest contentInstance of the switch's container is
// retrieved from the CSE.  When neither source produces a usable
// value, the state is Off.  Resolution never fails.
//
// Applying a state presents it, creates a new contentInstance
// remotely and then writes the cache.  If the remote write fails, the
// cache is not touched and the failure is returned.
//
// A Toggler ties these together: resolve, then either just present
// the state (autorun) or invert it and apply the result.
package device
