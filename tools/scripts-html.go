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

// Package tools renders documentation for scripts.
package tools

import (
	"fmt"
	"html"
	"io"

	"github.com/Comcast/lightswitch/script"

	md "github.com/russross/blackfriday/v2"
)

// RenderScriptsHTML writes a table with one row per script.
func RenderScriptsHTML(ss []*script.Script, out io.Writer, includeCode bool) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	f(`<div class="scripts"><table>`)
	for _, s := range ss {
		f(`<tr class="script"><td><span id="%s" class="scriptName">%s</span></td><td>`,
			html.EscapeString(s.Name), html.EscapeString(s.Name))

		if s.Description != "" {
			f(`<div class="scriptDoc doc">%s</div>`, md.Run([]byte(s.Description)))
		}

		var tags []string
		if s.Autorun {
			tags = append(tags, "autorun")
		}
		if s.UpperTester {
			tags = append(tags, "uppertester")
		}
		if s.OnStartup {
			tags = append(tags, "onStartup")
		}
		for _, tag := range tags {
			f(`<span class="tag">%s</span>`, tag)
		}
		if s.At != "" {
			f(`<div>at <code class="at">%s</code></div>`, html.EscapeString(s.At))
		}
		for _, lib := range s.Requires {
			f(`<div>requires <code class="requires">%s</code></div>`, html.EscapeString(lib))
		}
		if includeCode {
			f(`<div class="code"><pre>%s</pre></div>`, html.EscapeString(s.Code))
		}
		f(`</td></tr>`)
	}
	f(`</table></div>`)

	return nil
}

// RenderScriptsPage writes a complete HTML page.
func RenderScriptsPage(title string, ss []*script.Script, out io.Writer, cssFiles []string, includeCode bool) error {
	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, html.EscapeString(title))

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, html.EscapeString(title))

	if err := RenderScriptsHTML(ss, out, includeCode); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

// ReadAndRenderScriptsPage loads the scripts in dir, along with the
// built-in scripts, and renders them.
func ReadAndRenderScriptsPage(dir string, out io.Writer, cssFiles []string) error {
	ss, err := script.Builtins()
	if err != nil {
		return err
	}
	if dir != "" {
		more, err := script.Load(dir)
		if err != nil {
			return err
		}
		ss = append(ss, more...)
	}
	return RenderScriptsPage("Scripts", ss, out, cssFiles, true)
}
