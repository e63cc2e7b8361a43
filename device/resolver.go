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
	"fmt"
	"log"

	"github.com/Comcast/lightswitch/cse"
)

// Resolver determines the current State of a switch.
type Resolver struct {
	Config

	Cache  Cache
	Remote Remote

	// Verbose logs why a source was skipped.
	Verbose bool
}

func (r *Resolver) logf(format string, args ...interface{}) {
	if r.Verbose {
		log.Printf("Resolver "+format, args...)
	}
}

// Resolve returns the current State.  It never fails: when neither
// the cache nor the CSE produce a valid State, the result is Default.
func (r *Resolver) Resolve(ctx context.Context) State {
	s, _ := r.ResolveSource(ctx)
	return s
}

// ResolveSource is Resolve that also reports where the State came
// from.
//
// A cache entry, if present, is authoritative and no remote request
// is made.  An unusable cache entry gives Default, not a remote
// lookup.
func (r *Resolver) ResolveSource(ctx context.Context) (State, Source) {
	have, s, err := r.fromCache(ctx)
	if have {
		if err != nil {
			r.logf("%s/%s unusable: %s", r.Namespace, r.key(), err)
			return Default, FromDefault
		}
		return s, FromCache
	}
	if err != nil {
		r.logf("%s/%s presence check: %s", r.Namespace, r.key(), err)
	}

	if s, err = r.fromRemote(ctx); err != nil {
		r.logf("remote %s: %s", r.Paths.Latest(), err)
		return Default, FromDefault
	}
	return s, FromRemote
}

func (r *Resolver) fromCache(ctx context.Context) (have bool, s State, err error) {
	defer func() {
		if x := recover(); x != nil {
			err = fmt.Errorf("cache panic: %v", x)
		}
	}()

	if r.Cache == nil || !r.Cache.Has(ctx, r.Namespace, r.key()) {
		return false, "", nil
	}
	have = true

	v, err := r.Cache.Get(ctx, r.Namespace, r.key())
	if err != nil {
		return
	}
	s, err = ParseState(v)
	return
}

func (r *Resolver) fromRemote(ctx context.Context) (s State, err error) {
	defer func() {
		if x := recover(); x != nil {
			err = fmt.Errorf("remote panic: %v", x)
		}
	}()

	if r.Remote == nil {
		return "", errors.New("no remote")
	}

	path := r.Paths.Latest()
	resp, err := r.Remote.Retrieve(ctx, path)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("no response")
	}
	if resp.RSC != cse.RSCOK {
		return "", &cse.StatusError{Op: cse.OpRetrieve, To: path, RSC: resp.RSC}
	}
	con, have := resp.Content()
	if !have {
		return "", fmt.Errorf("no content in response for %s", path)
	}
	return ParseState(con)
}
