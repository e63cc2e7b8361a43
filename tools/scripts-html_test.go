package tools

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Comcast/lightswitch/script"
)

func TestRenderScriptsHTML(t *testing.T) {
	ss := []*script.Script{
		{
			Name:        "lightswitch",
			Description: "Toggles the **switch**.",
			Autorun:     true,
			UpperTester: true,
			Code:        "return a < b;",
		},
		{
			Name: "nightly",
			At:   "0 0 22 * * * *",
			Code: "return 1;",
		},
	}

	t.Run("withoutCode", func(t *testing.T) {
		out := &bytes.Buffer{}
		if err := RenderScriptsHTML(ss, out, false); err != nil {
			t.Fatal(err)
		}
		s := out.String()
		for _, want := range []string{
			"<strong>switch</strong>",
			`<span class="tag">autorun</span>`,
			`<span class="tag">uppertester</span>`,
			`<code class="at">0 0 22 * * * *</code>`,
		} {
			if !strings.Contains(s, want) {
				t.Fatalf("no %s in %s", want, s)
			}
		}
		if strings.Contains(s, "return") {
			t.Fatal(s)
		}
	})

	t.Run("withCode", func(t *testing.T) {
		out := &bytes.Buffer{}
		if err := RenderScriptsPage("Scripts", ss, out, []string{"scripts.css"}, true); err != nil {
			t.Fatal(err)
		}
		s := out.String()
		if !strings.Contains(s, "return a &lt; b;") {
			t.Fatal(s)
		}
		if !strings.Contains(s, `href="scripts.css"`) {
			t.Fatal(s)
		}
	})
}

func TestReadAndRenderScriptsPage(t *testing.T) {
	dir := t.TempDir()
	src := "// @description A *local* script.\nreturn 1;"
	if err := ioutil.WriteFile(filepath.Join(dir, "local.js"), []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}
	if err := ReadAndRenderScriptsPage(dir, out, nil); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	for _, want := range []string{`id="lightswitch"`, `id="local"`, "<em>local</em>"} {
		if !strings.Contains(s, want) {
			t.Fatalf("no %s in %s", want, s)
		}
	}
}
