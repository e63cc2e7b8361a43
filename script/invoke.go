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
	"context"
	"strings"
)

// RunUpperTester runs a test harness command line of the form
//
//    name arg1 arg2 ...
//
// Only scripts marked "uppertester" can be run this way.  Invocations
// are interactive unless the first argument is "autorun".
func (r *Runner) RunUpperTester(ctx context.Context, cmdline string) (interface{}, error) {
	parts := strings.Fields(cmdline)
	if len(parts) == 0 {
		return nil, &UnknownScript{Name: ""}
	}
	name := parts[0]

	s, have := r.Get(name)
	if !have {
		return nil, &UnknownScript{Name: name}
	}
	if !s.UpperTester {
		return nil, &NotPermitted{
			Name:   s.Name,
			Reason: "not an upper tester script",
		}
	}

	return r.Run(ctx, name, Invocation{
		Args:        parts[1:],
		Interactive: true,
	})
}

// Outcome is the result of one of several runs.
type Outcome struct {
	Name   string
	Result interface{}
	Err    error
}

func (r *Runner) runWhere(ctx context.Context, pred func(*Script) bool, in Invocation) []Outcome {
	var acc []Outcome
	for _, s := range r.Scripts() {
		if !pred(s) {
			continue
		}
		x, err := r.Run(ctx, s.Name, in)
		if err != nil {
			r.logf("%s failed: %s", s.Name, err)
		}
		acc = append(acc, Outcome{
			Name:   s.Name,
			Result: x,
			Err:    err,
		})
	}
	return acc
}

// RunStartup runs every "onStartup" script, passively, in name
// order.  One failure doesn't stop the others.
func (r *Runner) RunStartup(ctx context.Context) []Outcome {
	return r.runWhere(ctx, func(s *Script) bool {
		return s.OnStartup
	}, Invocation{})
}

// RunAutorun runs every "autorun" script with the single argument
// "autorun".
func (r *Runner) RunAutorun(ctx context.Context) []Outcome {
	return r.runWhere(ctx, func(s *Script) bool {
		return s.Autorun
	}, Invocation{
		Args: []string{"autorun"},
	})
}
