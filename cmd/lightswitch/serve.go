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
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Comcast/lightswitch/httpd"
	"github.com/Comcast/lightswitch/schedule"
	"github.com/Comcast/lightswitch/synchronizer"

	"github.com/kardianos/service"
)

// serve runs startup scripts, starts the scheduler, and serves HTTP
// until the context is done.
func (a *app) serve(ctx context.Context) error {
	for _, o := range a.runner.RunStartup(ctx) {
		if o.Err != nil {
			log.Printf("warning: startup script %s: %s", o.Name, o.Err)
		}
	}

	sched := schedule.New(a.runner)
	sched.Verbose = a.verbose
	if err := sched.AddScripts(a.runner.Scripts()); err != nil {
		return err
	}
	sched.Start(ctx)
	defer sched.Wait()

	s := httpd.New(a.toggler, a.runner)
	s.Verbose = a.verbose
	s.Scheduler = sched
	s.UpperTesterPath = a.cfg.HTTP.UpperTesterPath
	s.SetRateLimit(a.cfg.HTTP.RateLimit, a.cfg.HTTP.Burst)
	if 0 < a.cfg.HTTP.ReadTimeout {
		s.ReadTimeout = time.Duration(a.cfg.HTTP.ReadTimeout) * time.Millisecond
	}
	if 0 < a.cfg.HTTP.WriteTimeout {
		s.WriteTimeout = time.Duration(a.cfg.HTTP.WriteTimeout) * time.Millisecond
	}

	if sc := a.cfg.Sync; sc.Enabled {
		syn := synchronizer.New(a.toggler.Setter.Remote, sc.Target)
		syn.Verbose = a.verbose
		for k, v := range sc.Mapping {
			syn.Mapping[k] = v
		}
		if sc.Otherwise != "" {
			syn.Otherwise = sc.Otherwise
		}
		s.Sync = syn
	}

	err := s.ListenAndServe(ctx, a.cfg.HTTP.Listen)
	if errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// program runs serve under a service manager.
type program struct {
	opts options

	cancel context.CancelFunc
	done   chan error
	logger service.Logger
}

func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		err := p.run(ctx)
		if err != nil && p.logger != nil {
			p.logger.Error(err)
		}
		p.done <- err
	}()
	return nil
}

func (p *program) run(ctx context.Context) error {
	cfg, err := p.opts.config()
	if err != nil {
		return err
	}
	// No terminal to draw on.
	cfg.Lightswitch.Art = false
	a, err := newApp(ctx, cfg, p.opts.verbose, nil)
	if err != nil {
		return err
	}
	defer a.close(context.Background())
	return a.serve(ctx)
}

func (p *program) Stop(s service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	select {
	case <-p.done:
	case <-time.After(10 * time.Second):
		return fmt.Errorf("service didn't stop")
	}
	return nil
}

// controlService handles "serve -service <action>".
func controlService(opts options, action string) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}

	args := []string{}
	if opts.cfgFile != "" {
		abs, err := filepath.Abs(opts.cfgFile)
		if err != nil {
			return err
		}
		args = append(args, "-c", abs)
	}
	if opts.verbose {
		args = append(args, "-v")
	}
	args = append(args, "serve", "-service", "run")

	svcConfig := &service.Config{
		Name:        cfg.Service.Name,
		DisplayName: cfg.Service.DisplayName,
		Description: cfg.Service.Description,
		Arguments:   args,
	}

	p := &program{
		opts: opts,
	}
	svc, err := service.New(p, svcConfig)
	if err != nil {
		return err
	}
	if p.logger, err = svc.Logger(nil); err != nil {
		return err
	}

	switch action {
	case "install":
		return svc.Install()
	case "uninstall":
		return svc.Uninstall()
	case "start":
		return svc.Start()
	case "stop":
		return svc.Stop()
	case "restart":
		return svc.Restart()
	case "run":
		return svc.Run()
	default:
		return fmt.Errorf("unknown service action %q", action)
	}
}
