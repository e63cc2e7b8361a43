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

// Package storage provides the local key/value facility that caches
// switch states.  Values live in namespaces, one per application.
package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("storage: not found")

// Storage is a persistence interface that's suitable as a
// device.Cache.
type Storage interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error

	// Has reports presence.  It never creates anything.
	Has(ctx context.Context, ns, key string) bool

	Get(ctx context.Context, ns, key string) (string, error)

	Put(ctx context.Context, ns, key, val string) error

	// Keys lists a namespace's keys in order.
	Keys(ctx context.Context, ns string) ([]string, error)
}

// Memory is a Storage that forgets everything when the process
// exits.
type Memory struct {
	sync.RWMutex
	nss map[string]map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		nss: make(map[string]map[string]string),
	}
}

func (s *Memory) Open(ctx context.Context) error {
	return nil
}

func (s *Memory) Close(ctx context.Context) error {
	return nil
}

func (s *Memory) Has(ctx context.Context, ns, key string) bool {
	s.RLock()
	defer s.RUnlock()
	_, have := s.nss[ns][key]
	return have
}

func (s *Memory) Get(ctx context.Context, ns, key string) (string, error) {
	s.RLock()
	defer s.RUnlock()
	val, have := s.nss[ns][key]
	if !have {
		return "", ErrNotFound
	}
	return val, nil
}

func (s *Memory) Put(ctx context.Context, ns, key, val string) error {
	s.Lock()
	defer s.Unlock()
	if s.nss == nil {
		s.nss = make(map[string]map[string]string)
	}
	m, have := s.nss[ns]
	if !have {
		m = make(map[string]string)
		s.nss[ns] = m
	}
	m[key] = val
	return nil
}

func (s *Memory) Keys(ctx context.Context, ns string) ([]string, error) {
	s.RLock()
	defer s.RUnlock()
	acc := make([]string, 0, len(s.nss[ns]))
	for k := range s.nss[ns] {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc, nil
}
