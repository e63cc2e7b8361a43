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

// Package config loads the YAML configuration and builds the
// components it describes.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Comcast/lightswitch/cse"
	"github.com/Comcast/lightswitch/device"

	"gopkg.in/yaml.v2"
)

// Config is the whole configuration file.
type Config struct {
	CSE         CSEConfig         `yaml:"cse"`
	Lightswitch LightswitchConfig `yaml:"lightswitch"`
	Storage     StorageConfig     `yaml:"storage"`
	Scripts     ScriptsConfig     `yaml:"scripts"`
	HTTP        HTTPConfig        `yaml:"http"`
	Sync        SyncConfig        `yaml:"sync"`
	Service     ServiceConfig     `yaml:"service"`
}

type CSEConfig struct {
	// Binding is "http", "mqtt", "ws", or "memory".
	Binding       string `yaml:"binding"`
	Address       string `yaml:"address,omitempty"`
	ResourceName  string `yaml:"resourceName"`
	CSEID         string `yaml:"cseID,omitempty"`
	Originator    string `yaml:"originator"`
	Serialization string `yaml:"serialization,omitempty"`
	Timeout       int    `yaml:"timeout,omitempty"` // milliseconds

	MQTT cse.MQTTOptions `yaml:"mqtt,omitempty"`
}

type LightswitchConfig struct {
	Namespace string `yaml:"namespace"`
	Key       string `yaml:"key,omitempty"`
	Resource  string `yaml:"resource"`
	Container string `yaml:"container"`

	// Art shows the ASCII bulb.  Otherwise states are logged.
	Art bool `yaml:"art"`
}

type StorageConfig struct {
	// Driver is "bolt", "json", or "memory".
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename,omitempty"`
}

type ScriptsConfig struct {
	Dir       string `yaml:"dir,omitempty"`
	Libraries string `yaml:"libraries,omitempty"`
	Timeout   int    `yaml:"timeout,omitempty"` // milliseconds
}

type HTTPConfig struct {
	Listen          string  `yaml:"listen"`
	UpperTesterPath string  `yaml:"upperTesterPath,omitempty"`
	RateLimit       float64 `yaml:"rateLimit,omitempty"` // requests per second
	Burst           int     `yaml:"burst,omitempty"`
	ReadTimeout     int     `yaml:"readTimeout,omitempty"`  // milliseconds
	WriteTimeout    int     `yaml:"writeTimeout,omitempty"` // milliseconds
}

type SyncConfig struct {
	Enabled   bool              `yaml:"enabled"`
	Target    string            `yaml:"target,omitempty"`
	Mapping   map[string]string `yaml:"mapping,omitempty"`
	Otherwise string            `yaml:"otherwise,omitempty"`
}

type ServiceConfig struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"displayName,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Default returns the configuration used when there's no file.
// It talks to a local ACME-style CSE over HTTP.
func Default() *Config {
	return &Config{
		CSE: CSEConfig{
			Binding:       "http",
			Address:       "http://127.0.0.1:8080",
			ResourceName:  "cse-in",
			CSEID:         "id-in",
			Originator:    "CAdmin",
			Serialization: "json",
			Timeout:       5000,
		},
		Lightswitch: LightswitchConfig{
			Namespace: "lightswitchDemo",
			Key:       device.DefaultKey,
			Resource:  "CDemoLightswitch",
			Container: "switchContainer",
			Art:       true,
		},
		Storage: StorageConfig{
			Driver:   "bolt",
			Filename: "lightswitch.db",
		},
		Scripts: ScriptsConfig{
			Libraries: ".",
			Timeout:   10000,
		},
		HTTP: HTTPConfig{
			Listen:          "localhost:3001",
			UpperTesterPath: "/__ut__",
			RateLimit:       10,
			Burst:           20,
			ReadTimeout:     10000,
			WriteTimeout:    10000,
		},
		Service: ServiceConfig{
			Name:        "lightswitch",
			DisplayName: "Lightswitch",
			Description: "oneM2M demo lightswitch",
		},
	}
}

// Load reads the file over the defaults and validates the result.
func Load(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("Unable to open configuration file: %v", err)
	}
	defer file.Close()
	return Read(file)
}

// Read is Load for a reader.
func Read(r io.Reader) (*Config, error) {
	c := Default()
	if err := yaml.NewDecoder(r).Decode(c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("Unable to parse configuration file: %v", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	validate := []func() error{
		c.validateCSE,
		c.validateLightswitch,
		c.validateStorage,
		c.validateHTTP,
		c.validateSync,
	}
	for _, v := range validate {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateCSE() error {
	switch c.CSE.Binding {
	case "http", "ws":
		if c.CSE.Address == "" {
			return fmt.Errorf("cse.address is required for the %s binding", c.CSE.Binding)
		}
	case "mqtt":
		if c.CSE.MQTT.Broker == "" {
			return fmt.Errorf("cse.mqtt.broker is required for the mqtt binding")
		}
		if c.CSE.CSEID == "" {
			return fmt.Errorf("cse.cseID is required for the mqtt binding")
		}
	case "memory":
	default:
		return fmt.Errorf("cse.binding must be http, mqtt, ws, or memory, not %q", c.CSE.Binding)
	}
	if _, err := cse.ParseSerialization(c.CSE.Serialization); err != nil {
		return fmt.Errorf("cse.serialization: %v", err)
	}
	if c.CSE.ResourceName == "" {
		return fmt.Errorf("cse.resourceName is required")
	}
	if c.CSE.Originator == "" {
		return fmt.Errorf("cse.originator is required")
	}
	if c.CSE.Timeout < 0 {
		return fmt.Errorf("cse.timeout can't be negative")
	}
	return nil
}

func (c *Config) validateLightswitch() error {
	l := c.Lightswitch
	if l.Namespace == "" || l.Resource == "" || l.Container == "" {
		return fmt.Errorf("lightswitch.namespace, resource, and container are required")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case "bolt", "json":
		if c.Storage.Filename == "" {
			return fmt.Errorf("storage.filename is required for %s", c.Storage.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver must be bolt, json, or memory, not %q", c.Storage.Driver)
	}
	return nil
}

func (c *Config) validateHTTP() error {
	if c.HTTP.Listen == "" {
		return fmt.Errorf("http.listen is required")
	}
	if p := c.HTTP.UpperTesterPath; p != "" && !strings.HasPrefix(p, "/") {
		return fmt.Errorf("http.upperTesterPath must start with /")
	}
	if c.HTTP.RateLimit < 0 || c.HTTP.Burst < 0 {
		return fmt.Errorf("http.rateLimit and http.burst can't be negative")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.Enabled && c.Sync.Target == "" {
		return fmt.Errorf("sync.target is required when sync is enabled")
	}
	return nil
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// Device gives the switch's configuration.
func (c *Config) Device() device.Config {
	return device.Config{
		Namespace: c.Lightswitch.Namespace,
		Key:       c.Lightswitch.Key,
		Paths: device.Paths{
			Root:      c.CSE.ResourceName,
			Resource:  c.Lightswitch.Resource,
			Container: c.Lightswitch.Container,
		},
	}
}

// ScriptValues is what scripts see through config(name).
func (c *Config) ScriptValues() map[string]string {
	key := c.Lightswitch.Key
	if key == "" {
		key = device.DefaultKey
	}
	return map[string]string{
		"cse.address":           c.CSE.Address,
		"cse.binding":           c.CSE.Binding,
		"cse.resourceName":      c.CSE.ResourceName,
		"cse.cseID":             c.CSE.CSEID,
		"cse.originator":        c.CSE.Originator,
		"lightswitch.namespace": c.Lightswitch.Namespace,
		"lightswitch.key":       key,
		"lightswitch.resource":  c.Lightswitch.Resource,
		"lightswitch.container": c.Lightswitch.Container,
		"lightswitch.target":    c.Device().Paths.Target(),
	}
}
