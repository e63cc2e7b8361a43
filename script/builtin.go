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

package script

import (
	"embed"
	"path"
)

//go:embed builtin/*.js
var builtins embed.FS

// Builtins returns the scripts that ship with this package.
func Builtins() ([]*Script, error) {
	entries, err := builtins.ReadDir("builtin")
	if err != nil {
		return nil, err
	}
	acc := make([]*Script, 0, len(entries))
	for _, e := range entries {
		src, err := builtins.ReadFile(path.Join("builtin", e.Name()))
		if err != nil {
			return nil, err
		}
		s, err := ParseJS(e.Name(), string(src))
		if err != nil {
			return nil, err
		}
		acc = append(acc, s)
	}
	return acc, nil
}
