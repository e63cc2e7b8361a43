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
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Comcast/lightswitch/device"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"github.com/gorhill/cronexpr"
)

// Invocation describes how a script was started.
type Invocation struct {
	// Args does not include the script's name.
	Args []string

	// Interactive is false for scheduled and startup runs.
	Interactive bool
}

// IsInteractive reports whether the invocation was made by a person
// who expects an effect.  A first argument of "autorun" makes any
// invocation passive.
func (in Invocation) IsInteractive() bool {
	if 0 < len(in.Args) && in.Args[0] == "autorun" {
		return false
	}
	return in.Interactive
}

// Env holds what scripts can reach through "_".  Any field can be
// nil, in which case the corresponding functions throw.
type Env struct {
	Cache     device.Cache
	Remote    device.Remote
	Toggler   *device.Toggler
	Presenter device.Presenter

	// Config is exposed read-only by "_.config(name)".
	Config map[string]string
}

// Runner holds compiled scripts and runs them.
type Runner struct {
	Env *Env

	// Timeout, if positive, bounds each run.
	Timeout time.Duration

	// LibraryProvider resolves a script's Requires.  When nil,
	// DefaultLibraryProvider is used.
	LibraryProvider LibraryProvider

	// Testing exposes "sleep(ms)".
	Testing bool

	Verbose bool

	sync.RWMutex
	scripts  map[string]*Script
	compiled map[string]*goja.Program
}

// NewRunner makes a Runner with no scripts.
func NewRunner(env *Env) *Runner {
	if env == nil {
		env = &Env{}
	}
	return &Runner{
		Env:      env,
		scripts:  make(map[string]*Script),
		compiled: make(map[string]*goja.Program),
	}
}

func (r *Runner) logf(format string, args ...interface{}) {
	if r.Verbose {
		log.Printf("Runner "+format, args...)
	}
}

// key is the lookup key for a script name.  Names are matched
// without regard to case.
func key(name string) string {
	return strings.ToLower(name)
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// Compile resolves the script's libraries and compiles its code.
func (r *Runner) Compile(ctx context.Context, s *Script) (*goja.Program, error) {
	provide := r.LibraryProvider
	if provide == nil {
		provide = DefaultLibraryProvider
	}

	var libsSrc string
	for _, lib := range s.Requires {
		src, err := provide(ctx, lib)
		if err != nil {
			return nil, err
		}
		libsSrc += src + "\n"
	}

	p, err := goja.Compile(s.Name, libsSrc+wrapSrc(s.Code), true)
	if err != nil {
		return nil, &ScriptError{
			Name: s.Name,
			Err:  err,
		}
	}
	return p, nil
}

// Add compiles the given script and makes it available, replacing
// any script with the same name.
func (r *Runner) Add(ctx context.Context, s *Script) error {
	p, err := r.Compile(ctx, s)
	if err != nil {
		return err
	}
	r.Lock()
	r.scripts[key(s.Name)] = s
	r.compiled[key(s.Name)] = p
	r.Unlock()
	r.logf("added %s", s.Name)
	return nil
}

// Remove forgets the named script.
func (r *Runner) Remove(name string) {
	r.Lock()
	delete(r.scripts, key(name))
	delete(r.compiled, key(name))
	r.Unlock()
}

// Get finds a script by name.
func (r *Runner) Get(name string) (*Script, bool) {
	r.RLock()
	s, have := r.scripts[key(name)]
	r.RUnlock()
	return s, have
}

// Scripts returns all scripts sorted by name.
func (r *Runner) Scripts() []*Script {
	r.RLock()
	acc := make([]*Script, 0, len(r.scripts))
	for _, s := range r.scripts {
		acc = append(acc, s)
	}
	r.RUnlock()
	sort.Slice(acc, func(i, j int) bool {
		return acc[i].Name < acc[j].Name
	})
	return acc
}

// Run executes the named script.  The result is the exported value
// of the script's top-level return.
//
// The following are available at "_":
//
//    argv: the script name followed by the invocation's Args.
//    isInteractive(): see Invocation.IsInteractive.
//    cacheHas(ns, key), cacheGet(ns, key), cachePut(ns, key, val):
//      the local cache.
//    retrieve(to): retrieve a resource.  Returns {rsc, con, pc}.
//    createCIN(to, con): create a contentInstance.  Returns {rsc}.
//    present(state): show "on" or "off".
//    status(): the switch's current state.
//    toggle(): toggle the switch (or just show its state when the
//      invocation isn't interactive).  Returns the resulting state.
//    config(name): a configuration value.
//    cronNext(expr): the next time for the cron expression.
//    gensym(): a random string.
//    log(x): log x as JSON.
//
// When Testing is set, "sleep(ms)" is available.
func (r *Runner) Run(ctx context.Context, name string, in Invocation) (interface{}, error) {
	r.RLock()
	s, have := r.scripts[key(name)]
	p := r.compiled[key(name)]
	r.RUnlock()
	if !have {
		return nil, &UnknownScript{Name: name}
	}

	if 0 < r.Timeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	r.logf("running %s %q interactive=%v", s.Name, in.Args, in.IsInteractive())

	o := goja.New()
	o.Set("_", r.env(ctx, o, s, in))

	if r.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// After RunProgram returns, cancel() still gets us
		// here, but the interrupt is then ignored.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		var ie *goja.InterruptedError
		if errors.As(err, &ie) {
			return nil, Interrupted
		}
		return nil, &ScriptError{
			Name: s.Name,
			Err:  err,
		}
	}

	if v == nil {
		return nil, nil
	}
	return v.Export(), nil
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

func export(x interface{}) interface{} {
	if v, is := x.(goja.Value); is {
		return v.Export()
	}
	return x
}

func str(o *goja.Runtime, x interface{}) string {
	s, is := export(x).(string)
	if !is {
		protest(o, fmt.Sprintf("%v is not a string", x))
	}
	return s
}

func (r *Runner) env(ctx context.Context, o *goja.Runtime, s *Script, in Invocation) map[string]interface{} {
	argv := make([]interface{}, 0, len(in.Args)+1)
	argv = append(argv, s.Name)
	for _, arg := range in.Args {
		argv = append(argv, arg)
	}

	e := r.Env

	env := map[string]interface{}{
		"argv": argv,
	}

	env["isInteractive"] = func() bool {
		return in.IsInteractive()
	}

	env["cacheHas"] = func(ns, k interface{}) bool {
		if e.Cache == nil {
			protest(o, "no cache")
		}
		return e.Cache.Has(ctx, str(o, ns), str(o, k))
	}

	env["cacheGet"] = func(ns, k interface{}) interface{} {
		if e.Cache == nil {
			protest(o, "no cache")
		}
		val, err := e.Cache.Get(ctx, str(o, ns), str(o, k))
		if err != nil {
			protest(o, err.Error())
		}
		return val
	}

	env["cachePut"] = func(ns, k, val interface{}) {
		if e.Cache == nil {
			protest(o, "no cache")
		}
		if err := e.Cache.Put(ctx, str(o, ns), str(o, k), str(o, val)); err != nil {
			protest(o, err.Error())
		}
	}

	env["retrieve"] = func(to interface{}) interface{} {
		if e.Remote == nil {
			protest(o, "no CSE")
		}
		resp, err := e.Remote.Retrieve(ctx, str(o, to))
		if err != nil {
			protest(o, err.Error())
		}
		if resp == nil {
			protest(o, "no response")
		}
		acc := map[string]interface{}{
			"rsc": int(resp.RSC),
			"pc":  resp.PC,
		}
		if con, have := resp.Content(); have {
			acc["con"] = con
		}
		return acc
	}

	env["createCIN"] = func(to, con interface{}) interface{} {
		if e.Remote == nil {
			protest(o, "no CSE")
		}
		resp, err := e.Remote.CreateContentInstance(ctx, str(o, to), str(o, con))
		if err != nil {
			protest(o, err.Error())
		}
		if resp == nil {
			protest(o, "no response")
		}
		return map[string]interface{}{
			"rsc": int(resp.RSC),
		}
	}

	env["present"] = func(x interface{}) interface{} {
		state, err := device.ParseState(str(o, x))
		if err != nil {
			protest(o, err.Error())
		}
		if e.Presenter != nil {
			e.Presenter.Present(ctx, state)
		}
		return string(state)
	}

	env["status"] = func() interface{} {
		if e.Toggler == nil {
			protest(o, "no switch")
		}
		state, _ := e.Toggler.Status(ctx)
		return string(state)
	}

	env["toggle"] = func() interface{} {
		if e.Toggler == nil {
			protest(o, "no switch")
		}
		state, err := e.Toggler.Run(ctx, in)
		if err != nil {
			protest(o, err.Error())
		}
		return string(state)
	}

	env["config"] = func(name interface{}) interface{} {
		val, have := e.Config[str(o, name)]
		if !have {
			return nil
		}
		return val
	}

	env["cronNext"] = func(x interface{}) interface{} {
		c, err := cronexpr.Parse(str(o, x))
		if err != nil {
			protest(o, err.Error())
		}
		return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
	}

	env["gensym"] = func() interface{} {
		return uuid.NewString()
	}

	env["log"] = func(x interface{}) interface{} {
		x = export(x)
		js, err := json.Marshal(&x)
		if err != nil {
			log.Printf("script %s log (can't marshal: %s)", s.Name, err)
		} else {
			log.Printf("script %s %s", s.Name, js)
		}
		return x
	}

	return env
}

// FormatResult renders a script's result as a string.  Strings are
// returned as is, nil is empty, lists are joined with commas, and
// everything else is JSON.
func FormatResult(x interface{}) string {
	switch vv := x.(type) {
	case nil:
		return ""
	case string:
		return vv
	case []interface{}:
		acc := make([]string, len(vv))
		for i, y := range vv {
			acc[i] = FormatResult(y)
		}
		return strings.Join(acc, ",")
	}
	js, err := json.Marshal(&x)
	if err != nil {
		return fmt.Sprintf("%v", x)
	}
	return string(js)
}
