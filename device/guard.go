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

// Interactivity says whether an invocation came from an explicit
// user action.
type Interactivity interface {
	IsInteractive() bool
}

// Interactive is a constant Interactivity.
type Interactive bool

func (i Interactive) IsInteractive() bool {
	return bool(i)
}

// InteractivityFunc adapts a function.
type InteractivityFunc func() bool

func (f InteractivityFunc) IsInteractive() bool {
	return f()
}

// Guard decides whether an invocation should only report the current
// state.  A Guard is made for one invocation and consulted once.
//
// A nil Interactivity counts as interactive.
type Guard struct {
	Interactivity Interactivity
}

// ShouldAutorunOnly is true for passive invocations, which must not
// change the state.
func (g *Guard) ShouldAutorunOnly() bool {
	if g == nil || g.Interactivity == nil {
		return false
	}
	return !g.Interactivity.IsInteractive()
}
