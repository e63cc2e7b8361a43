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
	"log"
	"sync"
)

// Toggler is the top-level flow for a switch: resolve, check the
// guard, then invert and apply.
type Toggler struct {
	Resolver  *Resolver
	Setter    *Setter
	Presenter Presenter

	// Locks serializes resolve-then-apply per (namespace, key).
	// Togglers that share a Cache should share Locks.
	Locks *KeyedMutex

	Verbose bool
}

// New makes a Toggler whose Resolver and Setter share the given
// configuration and collaborators.
func New(cfg Config, cache Cache, remote Remote, p Presenter) *Toggler {
	return &Toggler{
		Resolver: &Resolver{
			Config: cfg,
			Cache:  cache,
			Remote: remote,
		},
		Setter: &Setter{
			Config:    cfg,
			Cache:     cache,
			Remote:    remote,
			Presenter: p,
		},
		Presenter: p,
		Locks:     NewKeyedMutex(),
	}
}

// SetVerbose turns on logging here and in the Resolver and Setter.
func (t *Toggler) SetVerbose(verbose bool) {
	t.Verbose = verbose
	t.Resolver.Verbose = verbose
	t.Setter.Verbose = verbose
}

func (t *Toggler) logf(format string, args ...interface{}) {
	if t.Verbose {
		log.Printf("Toggler "+format, args...)
	}
}

func (t *Toggler) lock() func() {
	if t.Locks == nil {
		return func() {}
	}
	cfg := t.Resolver.Config
	return t.Locks.Lock(cfg.Namespace + "/" + cfg.key())
}

// Run resolves the current state.  For a passive invocation it
// presents that state and returns it.  Otherwise it applies the
// inverse and returns the new state.
//
// When the apply fails, Run returns the state it resolved along with
// the error.
func (t *Toggler) Run(ctx context.Context, in Interactivity) (State, error) {
	unlock := t.lock()
	defer unlock()

	current, src := t.Resolver.ResolveSource(ctx)
	t.logf("resolved %s from %s", current, src)

	guard := &Guard{Interactivity: in}
	if guard.ShouldAutorunOnly() {
		if t.Presenter != nil {
			t.Presenter.Present(ctx, current)
		}
		return current, nil
	}

	next := current.Invert()
	if err := t.Setter.Apply(ctx, next); err != nil {
		return current, err
	}
	t.logf("toggled %s -> %s", current, next)
	return next, nil
}

// Status resolves the current state without presenting or changing
// it.
func (t *Toggler) Status(ctx context.Context) (State, Source) {
	unlock := t.lock()
	defer unlock()
	return t.Resolver.ResolveSource(ctx)
}

// KeyedMutex is a set of mutexes, one per key.  Mutexes are never
// discarded, which is fine for the small number of switches a
// process handles.
type KeyedMutex struct {
	sync.Mutex
	ms map[string]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		ms: make(map[string]*sync.Mutex, 4),
	}
}

// Lock locks the mutex for the given key and returns its unlock
// function.
func (k *KeyedMutex) Lock(key string) func() {
	k.Mutex.Lock()
	if k.ms == nil {
		k.ms = make(map[string]*sync.Mutex, 4)
	}
	m, have := k.ms[key]
	if !have {
		m = &sync.Mutex{}
		k.ms[key] = m
	}
	k.Mutex.Unlock()

	m.Lock()
	return m.Unlock
}
