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

package main

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/Comcast/lightswitch/config"
	"github.com/Comcast/lightswitch/device"
	"github.com/Comcast/lightswitch/script"
	"github.com/Comcast/lightswitch/storage"
)

// app is everything a command needs.
type app struct {
	cfg     *config.Config
	verbose bool

	store   storage.Storage
	stopCSE config.Stopper
	toggler *device.Toggler
	runner  *script.Runner
}

func presenter(cfg *config.Config, out io.Writer) device.Presenter {
	if cfg.Lightswitch.Art {
		return &device.ArtPresenter{W: out}
	}
	return device.PresenterFunc(func(ctx context.Context, s device.State) {
		log.Printf("lightswitch: %s", s)
	})
}

func newApp(ctx context.Context, cfg *config.Config, verbose bool, out io.Writer) (*app, error) {
	a := &app{
		cfg:     cfg,
		verbose: verbose,
	}

	var err error
	if a.store, err = cfg.OpenStorage(ctx, verbose); err != nil {
		return nil, err
	}

	client, stop, err := cfg.Client(ctx, verbose)
	if err != nil {
		a.store.Close(ctx)
		return nil, err
	}
	a.stopCSE = stop

	p := presenter(cfg, out)
	a.toggler = device.New(cfg.Device(), a.store, client, p)
	a.toggler.SetVerbose(verbose)

	a.runner = script.NewRunner(&script.Env{
		Cache:     a.store,
		Remote:    client,
		Toggler:   a.toggler,
		Presenter: p,
		Config:    cfg.ScriptValues(),
	})
	a.runner.Verbose = verbose
	a.runner.Timeout = time.Duration(cfg.Scripts.Timeout) * time.Millisecond
	if cfg.Scripts.Libraries != "" {
		a.runner.LibraryProvider = script.MakeFileLibraryProvider(cfg.Scripts.Libraries)
	}

	if err = a.loadScripts(ctx); err != nil {
		a.close(ctx)
		return nil, err
	}

	return a, nil
}

func (a *app) scripts() ([]*script.Script, error) {
	ss, err := script.Builtins()
	if err != nil {
		return nil, err
	}
	if dir := a.cfg.Scripts.Dir; dir != "" {
		more, err := script.Load(filepath.Clean(dir))
		if err != nil {
			return nil, err
		}
		ss = append(ss, more...)
	}
	return ss, nil
}

// loadScripts adds the built-in scripts and then the configured
// ones, which can replace built-ins with the same name.
func (a *app) loadScripts(ctx context.Context) error {
	ss, err := a.scripts()
	if err != nil {
		return err
	}
	for _, s := range ss {
		if err := a.runner.Add(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) close(ctx context.Context) {
	if a.stopCSE != nil {
		if err := a.stopCSE(ctx); err != nil {
			log.Printf("warning: CSE stop: %s", err)
		}
	}
	if err := a.store.Close(ctx); err != nil {
		log.Printf("warning: storage close: %s", err)
	}
}
