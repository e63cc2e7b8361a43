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

import (
	"context"
	"errors"
	"log"
)

// Setter applies a new State to a switch.
type Setter struct {
	Config

	Cache     Cache
	Remote    Remote
	Presenter Presenter

	Verbose bool
}

func (s *Setter) logf(format string, args ...interface{}) {
	if s.Verbose {
		log.Printf("Setter "+format, args...)
	}
}

// Apply presents the state, records it as a new contentInstance and
// then writes it to the cache.
//
// The cache is only written after the CSE accepted the new record.
// A failed create returns a *WriteError and leaves the cache as it
// was.
func (s *Setter) Apply(ctx context.Context, state State) error {
	if !state.Valid() {
		return &InvalidStateError{Value: string(state)}
	}

	if s.Presenter != nil {
		s.Presenter.Present(ctx, state)
	}

	path := s.Paths.Target()
	if s.Remote == nil {
		return &WriteError{Path: path, Err: errors.New("no remote")}
	}
	resp, err := s.Remote.CreateContentInstance(ctx, path, string(state))
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if resp == nil {
		return &WriteError{Path: path, Err: errors.New("no response")}
	}
	if !resp.RSC.OK() {
		return &WriteError{Path: path, RSC: resp.RSC}
	}
	s.logf("created %s at %s (%d)", state, path, resp.RSC)

	if s.Cache == nil {
		return &CacheError{Namespace: s.Namespace, Key: s.key(), Err: errors.New("no cache")}
	}
	if err = s.Cache.Put(ctx, s.Namespace, s.key(), string(state)); err != nil {
		return &CacheError{Namespace: s.Namespace, Key: s.key(), Err: err}
	}

	return nil
}
