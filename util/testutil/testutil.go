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

// Package testutil has helpers for tests that need a working switch.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"testing"

	"github.com/Comcast/lightswitch/cse"
	"github.com/Comcast/lightswitch/device"
	"github.com/Comcast/lightswitch/storage"
)

// JS renders its argument as JSON or as a string indicating an error.
func JS(x interface{}) string {
	bs, err := json.Marshal(&x)
	if err != nil {
		log.Printf("warning: testutil.JS error %s for %#v", err, x)
		return fmt.Sprintf("%#v", x)
	}
	return string(bs)
}

// Dwimjs, when given a string or bytes, parses that data as JSON.
// When given anything else, just returns what's given.
//
// See https://en.wikipedia.org/wiki/DWIM.
func Dwimjs(x interface{}) interface{} {
	switch vv := x.(type) {
	case []byte:
		return Dwimjs(string(vv))
	case string:
		var v interface{}
		if err := json.Unmarshal([]byte(vv), &v); err != nil {
			panic(err)
		}
		return v
	default:
		return x
	}
}

// SwitchConfig is the demo switch's configuration.
var SwitchConfig = device.Config{
	Namespace: "lightswitchDemo",
	Key:       device.DefaultKey,
	Paths: device.Paths{
		Root:      "cse-in",
		Resource:  "CDemoLightswitch",
		Container: "switchContainer",
	},
}

// Switch is an in-memory switch: a memory cache, an in-process CSE,
// and a presenter that remembers what it was shown.
type Switch struct {
	Cache   *storage.Memory
	CSE     *cse.Memory
	Client  *cse.Client
	Shown   *device.LastPresented
	Toggler *device.Toggler
}

// NewSwitch makes a Switch using SwitchConfig.
func NewSwitch() *Switch {
	s := &Switch{
		Cache: storage.NewMemory(),
		CSE:   cse.NewMemory(),
		Shown: &device.LastPresented{},
	}
	s.Client = cse.NewClient(s.CSE, "CAdmin")
	s.Toggler = device.New(SwitchConfig, s.Cache, s.Client, s.Shown)
	return s
}

// Cached returns the cached state, if any.
func (s *Switch) Cached(t *testing.T) (string, bool) {
	ctx := context.Background()
	if !s.Cache.Has(ctx, SwitchConfig.Namespace, SwitchConfig.Key) {
		return "", false
	}
	val, err := s.Cache.Get(ctx, SwitchConfig.Namespace, SwitchConfig.Key)
	if err != nil {
		t.Fatal(err)
	}
	return val, true
}

// Remote returns the latest state recorded in the CSE, if any.
func (s *Switch) Remote() (string, bool) {
	return s.CSE.Latest(SwitchConfig.Paths.Target())
}
