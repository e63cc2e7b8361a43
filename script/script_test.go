package script

import (
	"io/ioutil"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseJS(t *testing.T) {
	src := `// @name Hello
// @description Says **hello**.
// @description Twice.
// A plain comment.
// @uppertester
// @at 0 */5 * * * * *
// @requires file://a.js file://b.js

return "hello";
// @autorun
`
	s, err := ParseJS("hello", src)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "Hello" {
		t.Fatal(s.Name)
	}
	if s.Description != "Says **hello**.\nTwice." {
		t.Fatalf(`"%s"`, s.Description)
	}
	if !s.UpperTester || s.Autorun || s.OnStartup {
		t.Fatalf("%#v", s)
	}
	if s.At != "0 */5 * * * * *" {
		t.Fatal(s.At)
	}
	if !reflect.DeepEqual(s.Requires, []string{"file://a.js", "file://b.js"}) {
		t.Fatal(s.Requires)
	}
	if s.Code != src {
		t.Fatal("code changed")
	}
}

func TestParseJSDefaultName(t *testing.T) {
	s, err := ParseJS("plain", `return 1;`)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "plain" {
		t.Fatal(s.Name)
	}
}

func TestParseJSUnknownMeta(t *testing.T) {
	if _, err := ParseJS("x", "// @frobnicate\nreturn 1;"); err == nil {
		t.Fatal("should have complained")
	}
}

func TestParseYAML(t *testing.T) {
	src := `
description: Reports the state.
onStartup: true
requires: file://lib.js
code: |
  return _.status();
`
	s, err := ParseYAML("report", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "report" || !s.OnStartup || s.Description != "Reports the state." {
		t.Fatalf("%#v", s)
	}
	if !reflect.DeepEqual(s.Requires, []string{"file://lib.js"}) {
		t.Fatal(s.Requires)
	}

	src = `
name: two
requires:
  - file://a.js
  - file://b.js
code: return 2;
`
	if s, err = ParseYAML("x", []byte(src)); err != nil {
		t.Fatal(err)
	}
	if s.Name != "two" || len(s.Requires) != 2 {
		t.Fatalf("%#v", s)
	}

	if _, err = ParseYAML("x", []byte("name: nothing\n")); err == nil {
		t.Fatal("should have complained about no code")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b.js":      "// @autorun\nreturn 'b';",
		"a.yaml":    "code: return 'a';\n",
		"README.md": "# Not a script",
		"c.yml":     "name: see\ncode: return 'c';\n",
	}
	for name, src := range files {
		if err := ioutil.WriteFile(filepath.Join(dir, name), []byte(src), 0644); err != nil {
			t.Fatal(err)
		}
	}
	ss, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, s := range ss {
		names = append(names, s.Name)
		if s.Filename == "" {
			t.Fatalf("%s has no filename", s.Name)
		}
	}
	if !reflect.DeepEqual(names, []string{"a", "b", "see"}) {
		t.Fatal(names)
	}
}

func TestBuiltins(t *testing.T) {
	ss, err := Builtins()
	if err != nil {
		t.Fatal(err)
	}
	if len(ss) != 1 {
		t.Fatal(len(ss))
	}
	s := ss[0]
	if s.Name != "lightswitch" || !s.Autorun || !s.UpperTester {
		t.Fatalf("%#v", s)
	}
	if s.Description == "" {
		t.Fatal("no description")
	}
}
