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
	"strings"

	"github.com/Comcast/lightswitch/cse"
)

// DefaultKey is the cache key that holds a switch's state.
const DefaultKey = "status"

// Cache is the local key/value facility.
//
// Has must not create anything and must not fail on absence.  Get is
// only meaningful after Has returned true.
type Cache interface {
	Has(ctx context.Context, ns, key string) bool
	Get(ctx context.Context, ns, key string) (string, error)
	Put(ctx context.Context, ns, key, val string) error
}

// Remote is the part of the CSE that a switch uses.  A *cse.Client
// is a Remote.
type Remote interface {
	Retrieve(ctx context.Context, to string) (*cse.Response, error)
	CreateContentInstance(ctx context.Context, to, con string) (*cse.Response, error)
}

// Paths builds the resource paths for a switch's container.
//
// Root is the configured CSE resource name (for example "cse-in").
// It's an explicit parameter so that nothing here depends on global
// configuration.
type Paths struct {
	Root      string `json:"root" yaml:"root"`
	Resource  string `json:"resource" yaml:"resource"`
	Container string `json:"container" yaml:"container"`
}

// Target is the container path where new contentInstances are
// created.
func (p Paths) Target() string {
	root := strings.TrimRight(p.Root, "/")
	parts := []string{root}
	for _, s := range []string{p.Resource, p.Container} {
		if s = strings.Trim(s, "/"); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// Latest is the path of the <latest> virtual child of the container.
func (p Paths) Latest() string {
	return p.Target() + "/la"
}

// Config says where one switch keeps its state.
type Config struct {
	// Namespace identifies the application in the cache.
	Namespace string `json:"namespace" yaml:"namespace"`

	// Key is the cache key.  Defaults to DefaultKey.
	Key string `json:"key,omitempty" yaml:"key,omitempty"`

	Paths Paths `json:"paths" yaml:"paths"`
}

func (c *Config) key() string {
	if c.Key == "" {
		return DefaultKey
	}
	return c.Key
}
