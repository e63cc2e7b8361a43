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

package config

import (
	"context"
	"fmt"

	"github.com/Comcast/lightswitch/cse"
	"github.com/Comcast/lightswitch/storage"
	"github.com/Comcast/lightswitch/storage/bolt"
)

// Stopper releases what a builder started.
type Stopper func(ctx context.Context) error

func nothing(ctx context.Context) error {
	return nil
}

// OpenStorage opens the configured cache.
func (c *Config) OpenStorage(ctx context.Context, debug bool) (storage.Storage, error) {
	var s storage.Storage
	switch c.Storage.Driver {
	case "memory":
		s = storage.NewMemory()
	case "json":
		j, err := storage.NewJSONFile(c.Storage.Filename)
		if err != nil {
			return nil, err
		}
		s = j
	case "bolt":
		b, err := bolt.NewStorage(c.Storage.Filename)
		if err != nil {
			return nil, err
		}
		b.Debug = debug
		s = b
	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Transport connects to the CSE using the configured binding.  The
// returned Stopper disconnects.
func (c *Config) Transport(ctx context.Context, verbose bool) (cse.Transport, Stopper, error) {
	ser, err := cse.ParseSerialization(c.CSE.Serialization)
	if err != nil {
		return nil, nil, err
	}
	timeout := millis(c.CSE.Timeout)

	switch c.CSE.Binding {
	case "http":
		t, err := cse.NewHTTPTransport(c.CSE.Address, ser, timeout)
		if err != nil {
			return nil, nil, err
		}
		t.Debug = verbose
		return t, nothing, nil

	case "ws":
		t := cse.NewWSTransport(c.CSE.Address, ser, timeout)
		t.Verbose = verbose
		if err := t.Start(ctx); err != nil {
			return nil, nil, err
		}
		return t, t.Stop, nil

	case "mqtt":
		t := cse.NewMQTTTransport(c.CSE.MQTT, c.CSE.Originator, c.CSE.CSEID, ser, timeout)
		t.Verbose = verbose
		if err := t.Start(ctx); err != nil {
			return nil, nil, err
		}
		return t, t.Stop, nil

	case "memory":
		m := cse.NewMemory()
		m.Verbose = verbose
		return m, nothing, nil

	default:
		return nil, nil, fmt.Errorf("unknown binding %q", c.CSE.Binding)
	}
}

// Client makes a CSE client over the configured binding.
func (c *Config) Client(ctx context.Context, verbose bool) (*cse.Client, Stopper, error) {
	t, stop, err := c.Transport(ctx, verbose)
	if err != nil {
		return nil, nil, err
	}
	client := cse.NewClient(t, c.CSE.Originator)
	client.Verbose = verbose
	return client, stop, nil
}
