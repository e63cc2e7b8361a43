package config

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Comcast/lightswitch/cse"
	"github.com/Comcast/lightswitch/storage"
)

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if got := c.Device().Paths.Latest(); got != "cse-in/CDemoLightswitch/switchContainer/la" {
		t.Fatal(got)
	}
}

func TestRead(t *testing.T) {
	src := `
cse:
  binding: mqtt
  cseID: id-mn
  serialization: cbor
  mqtt:
    broker: localhost
    port: 1883
    keepAlive: 30s
lightswitch:
  container: otherContainer
storage:
  driver: memory
sync:
  enabled: true
  target: /cse-mn/NoiseCancellationSystem/DeviceStatus
  mapping:
    ON: start
    PAUSE: hold
`
	c, err := Read(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if c.CSE.Binding != "mqtt" || c.CSE.MQTT.Port != 1883 || c.CSE.MQTT.KeepAlive != 30*time.Second {
		t.Fatalf("%#v", c.CSE)
	}
	// Defaults survive.
	if c.CSE.Originator != "CAdmin" || c.Lightswitch.Namespace != "lightswitchDemo" {
		t.Fatalf("%#v", c)
	}
	if c.Lightswitch.Container != "otherContainer" {
		t.Fatal(c.Lightswitch.Container)
	}
	if c.Sync.Mapping["PAUSE"] != "hold" {
		t.Fatalf("%#v", c.Sync)
	}
	if v := c.ScriptValues()["lightswitch.target"]; v != "cse-in/CDemoLightswitch/otherContainer" {
		t.Fatal(v)
	}
}

func TestReadEmpty(t *testing.T) {
	c, err := Read(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if c.CSE.Binding != "http" {
		t.Fatal(c.CSE.Binding)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"binding", "cse:\n  binding: carrier-pigeon\n", "cse.binding"},
		{"mqtt broker", "cse:\n  binding: mqtt\n", "cse.mqtt.broker"},
		{"serialization", "cse:\n  serialization: xml\n", "cse.serialization"},
		{"originator", "cse:\n  originator: \"\"\n", "cse.originator"},
		{"container", "lightswitch:\n  container: \"\"\n", "lightswitch"},
		{"driver", "storage:\n  driver: floppy\n", "storage.driver"},
		{"bolt file", "storage:\n  filename: \"\"\n", "storage.filename"},
		{"ut path", "http:\n  upperTesterPath: ut\n", "upperTesterPath"},
		{"sync", "sync:\n  enabled: true\n", "sync.target"},
		{"syntax", "cse: [", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.src))
			if err == nil {
				t.Fatal("should have complained")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatal(err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("should have complained")
	}
	filename := filepath.Join(t.TempDir(), "c.yaml")
	if err := ioutil.WriteFile(filename, []byte("storage:\n  driver: memory\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(filename)
	if err != nil {
		t.Fatal(err)
	}
	if c.Storage.Driver != "memory" {
		t.Fatal(c.Storage.Driver)
	}
}

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()

	c := Default()
	c.Storage.Filename = filepath.Join(t.TempDir(), "test.db")
	s, err := c.OpenStorage(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if err = s.Put(ctx, "ns", "k", "v"); err != nil {
		t.Fatal(err)
	}
	if err = s.Close(ctx); err != nil {
		t.Fatal(err)
	}

	c.Storage.Driver = "json"
	c.Storage.Filename = filepath.Join(t.TempDir(), "test.json")
	if s, err = c.OpenStorage(ctx, false); err != nil {
		t.Fatal(err)
	}
	if _, is := s.(*storage.JSONFile); !is {
		t.Fatalf("%T", s)
	}

	c.Storage.Driver = "memory"
	if s, err = c.OpenStorage(ctx, false); err != nil {
		t.Fatal(err)
	}
	if _, is := s.(*storage.Memory); !is {
		t.Fatalf("%T", s)
	}
}

func TestTransport(t *testing.T) {
	ctx := context.Background()
	c := Default()

	tr, stop, err := c.Transport(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, is := tr.(*cse.HTTPTransport); !is {
		t.Fatalf("%T", tr)
	}
	if err = stop(ctx); err != nil {
		t.Fatal(err)
	}

	c.CSE.Binding = "memory"
	client, stop, err := c.Client(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	defer stop(ctx)
	resp, err := client.Retrieve(ctx, c.Device().Paths.Latest())
	if err != nil {
		t.Fatal(err)
	}
	if resp.RSC != cse.RSCNotFound {
		t.Fatal(resp.RSC)
	}
}
