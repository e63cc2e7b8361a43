package main

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
)

func testOptions(t *testing.T) options {
	src := `
cse:
  binding: memory
storage:
  driver: memory
lightswitch:
  art: false
`
	filename := filepath.Join(t.TempDir(), "lightswitch.yaml")
	if err := ioutil.WriteFile(filename, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	return options{cfgFile: filename}
}

func TestOptionsConfig(t *testing.T) {
	opts := testOptions(t)
	opts.listen = "localhost:9999"
	cfg, err := opts.config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CSE.Binding != "memory" || cfg.HTTP.Listen != "localhost:9999" {
		t.Fatalf("%#v", cfg)
	}

	opts.binding = "smoke-signals"
	if _, err = opts.config(); err == nil {
		t.Fatal("should have complained")
	}
}

func TestCommands(t *testing.T) {
	ctx := context.Background()
	cfg, err := testOptions(t).config()
	if err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}
	a, err := newApp(ctx, cfg, false, out)
	if err != nil {
		t.Fatal(err)
	}
	defer a.close(ctx)

	lines := []string{
		"status",
		"toggle",
		"status",
		"run lightswitch autorun",
		"run nope",
		"run",
		"scripts",
		"bogus",
		"",
	}
	for _, line := range lines {
		if a.command(ctx, out, strings.Fields(line)) {
			t.Fatalf("%q quit", line)
		}
	}
	if !a.command(ctx, out, []string{"quit"}) {
		t.Fatal("didn't quit")
	}

	got := out.String()
	for _, want := range []string{
		"off (default)\n",
		"on\n",
		"on (cache)\n",
		`unknown script "nope"`,
		"run what?",
		"lightswitch",
		`unknown command "bogus"`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("no %q in\n%s", want, got)
		}
	}
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	opts := testOptions(t)
	if err := dispatch(ctx, opts, "status", nil); err != nil {
		t.Fatal(err)
	}
	if err := dispatch(ctx, opts, "autorun", nil); err != nil {
		t.Fatal(err)
	}
	if err := dispatch(ctx, opts, "run", nil); err == nil {
		t.Fatal("should have complained")
	}
	if err := dispatch(ctx, opts, "frob", nil); err == nil {
		t.Fatal("should have complained")
	}
}

func TestServe(t *testing.T) {
	opts := testOptions(t)
	opts.listen = "127.0.0.1:0"
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- dispatch(ctx, opts, "serve", nil)
	}()
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
