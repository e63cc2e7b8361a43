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

// Package script runs automation scripts.
//
// Scripts are ECMAScript 5.1 run by goja.  A script gets the
// device's collaborators, the local cache, the CSE, and the switch's
// toggle controller, through the object at "_".  See Runner.Run.
package script

import (
	"bufio"
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jsccast/yaml"
)

// Script is an automation script and its metadata.
type Script struct {
	Name string `json:"name"`

	// Description is markdown.
	Description string `json:"description,omitempty"`

	// UpperTester scripts can be run by a test harness command.
	UpperTester bool `json:"uppertester,omitempty"`

	// Autorun scripts are run passively, with the argument
	// "autorun", when a tool loads them.
	Autorun bool `json:"autorun,omitempty"`

	// OnStartup scripts run once when the service starts.
	OnStartup bool `json:"onStartup,omitempty"`

	// At is an optional cron expression.
	At string `json:"at,omitempty"`

	// Requires names libraries to load before the code.
	Requires []string `json:"requires,omitempty"`

	Code string `json:"code"`

	// Filename is where the script came from, if anywhere.
	Filename string `json:"filename,omitempty"`
}

// ParseJS reads a script whose metadata is given by leading comment
// lines of the form
//
//    // @key value
//
// Parsing of metadata stops at the first line that isn't a comment.
// Repeated @description lines are joined with newlines.
func ParseJS(name, src string) (*Script, error) {
	s := &Script{
		Name: name,
		Code: src,
	}
	var desc []string

	sc := bufio.NewScanner(strings.NewReader(src))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "//") {
			break
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "//"))
		if !strings.HasPrefix(line, "@") {
			continue
		}
		parts := strings.SplitN(line[1:], " ", 2)
		key := parts[0]
		val := ""
		if len(parts) == 2 {
			val = strings.TrimSpace(parts[1])
		}
		switch strings.ToLower(key) {
		case "name":
			s.Name = val
		case "description":
			desc = append(desc, val)
		case "uppertester":
			s.UpperTester = true
		case "autorun":
			s.Autorun = true
		case "onstartup":
			s.OnStartup = true
		case "at":
			s.At = val
		case "requires":
			for _, lib := range strings.Fields(val) {
				s.Requires = append(s.Requires, lib)
			}
		default:
			return nil, fmt.Errorf(`script "%s": unknown metadata @%s`, name, key)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	s.Description = strings.Join(desc, "\n")

	if s.Name == "" {
		return nil, errors.New("script without a name")
	}
	return s, nil
}

type yamlScript struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	UpperTester bool        `yaml:"uppertester"`
	Autorun     bool        `yaml:"autorun"`
	OnStartup   bool        `yaml:"onStartup"`
	At          string      `yaml:"at"`
	Requires    interface{} `yaml:"requires"`
	Code        string      `yaml:"code"`
}

// ParseYAML reads a script given as YAML with the keys "name",
// "description", "uppertester", "autorun", "onStartup", "at",
// "requires" (a string or a list) and "code".
func ParseYAML(name string, src []byte) (*Script, error) {
	var y yamlScript
	if err := yaml.Unmarshal(src, &y); err != nil {
		return nil, err
	}
	if y.Code == "" {
		return nil, fmt.Errorf(`script "%s" has no code`, name)
	}
	s := &Script{
		Name:        y.Name,
		Description: y.Description,
		UpperTester: y.UpperTester,
		Autorun:     y.Autorun,
		OnStartup:   y.OnStartup,
		At:          y.At,
		Code:        y.Code,
	}
	if s.Name == "" {
		s.Name = name
	}

	switch vv := y.Requires.(type) {
	case nil:
	case string:
		s.Requires = []string{vv}
	case []interface{}:
		for _, x := range vv {
			lib, is := x.(string)
			if !is {
				return nil, fmt.Errorf(`script "%s": bad library %#v`, name, x)
			}
			s.Requires = append(s.Requires, lib)
		}
	default:
		return nil, fmt.Errorf(`script "%s": bad requires (%T)`, name, y.Requires)
	}

	return s, nil
}

// Load reads every .js, .yaml and .yml file in dir.  A script's
// default name is its filename without the extension.
func Load(dir string) ([]*Script, error) {
	files, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	acc := make([]*Script, 0, len(files))
	for _, fi := range files {
		if fi.IsDir() {
			continue
		}
		filename := filepath.Join(dir, fi.Name())
		ext := filepath.Ext(fi.Name())
		name := strings.TrimSuffix(fi.Name(), ext)

		var parse func(string, []byte) (*Script, error)
		switch ext {
		case ".js":
			parse = func(name string, src []byte) (*Script, error) {
				return ParseJS(name, string(src))
			}
		case ".yaml", ".yml":
			parse = ParseYAML
		default:
			continue
		}

		src, err := ioutil.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		s, err := parse(name, src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		s.Filename = filename
		acc = append(acc, s)
	}
	sort.Slice(acc, func(i, j int) bool {
		return acc[i].Name < acc[j].Name
	})
	return acc, nil
}
