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

// Package schedule runs scripts at times given by cron expressions.
package schedule

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Comcast/lightswitch/script"

	"github.com/gorhill/cronexpr"
)

// Runner is what a Scheduler needs to run a script.
type Runner interface {
	Run(ctx context.Context, name string, in script.Invocation) (interface{}, error)
}

// Job is a script that runs on a schedule.
type Job struct {
	Script string `json:"script"`
	Expr   string `json:"at"`

	// Next is when the job will run next.
	Next time.Time `json:"next"`

	// Runs counts completed runs.
	Runs int `json:"runs"`

	// LastErr is the error from the most recent run, if any.
	LastErr string `json:"lastErr,omitempty"`

	cron *cronexpr.Expression
	ctl  chan bool
}

// Scheduler runs Jobs.
type Scheduler struct {
	Runner Runner

	// Now defaults to time.Now.
	Now func() time.Time

	Verbose bool

	sync.Mutex
	jobs map[string]*Job
	wg   sync.WaitGroup
}

// New makes a Scheduler with no jobs.
func New(r Runner) *Scheduler {
	return &Scheduler{
		Runner: r,
		Now:    time.Now,
		jobs:   make(map[string]*Job),
	}
}

func (s *Scheduler) logf(format string, args ...interface{}) {
	if s.Verbose {
		log.Printf("Scheduler "+format, args...)
	}
}

// Next parses the cron expression and returns its next time after
// the given one.  The result is zero if there is no next time.
func Next(expr string, after time.Time) (time.Time, error) {
	c, err := cronexpr.Parse(expr)
	if err != nil {
		return time.Time{}, err
	}
	return c.Next(after), nil
}

// Add schedules the named script.  Adding a script that's already
// scheduled replaces its job.  Jobs added after Start run only after
// a subsequent Start.
func (s *Scheduler) Add(name, expr string) error {
	c, err := cronexpr.Parse(expr)
	if err != nil {
		return fmt.Errorf(`bad schedule "%s" for %s: %w`, expr, name, err)
	}
	s.Lock()
	if old, have := s.jobs[name]; have {
		close(old.ctl)
	}
	s.jobs[name] = &Job{
		Script: name,
		Expr:   expr,
		cron:   c,
		ctl:    make(chan bool),
	}
	s.Unlock()
	s.logf("added %s at %s", name, expr)
	return nil
}

// AddScripts schedules every script that has an "at" expression.
func (s *Scheduler) AddScripts(ss []*script.Script) error {
	for _, sc := range ss {
		if sc.At == "" {
			continue
		}
		if err := s.Add(sc.Name, sc.At); err != nil {
			return err
		}
	}
	return nil
}

// Remove cancels the named job.
func (s *Scheduler) Remove(name string) bool {
	s.Lock()
	defer s.Unlock()
	j, have := s.jobs[name]
	if !have {
		return false
	}
	close(j.ctl)
	delete(s.jobs, name)
	return true
}

// Jobs returns copies of the current jobs sorted by script name.
func (s *Scheduler) Jobs() []Job {
	s.Lock()
	acc := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		acc = append(acc, *j)
	}
	s.Unlock()
	sort.Slice(acc, func(i, j int) bool {
		return acc[i].Script < acc[j].Script
	})
	return acc
}

// Start starts every job.  Jobs stop when the context is done or
// when they are removed.
func (s *Scheduler) Start(ctx context.Context) {
	s.Lock()
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.run(ctx, j)
	}
	s.Unlock()
}

// Wait blocks until all started jobs have stopped.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, j *Job) {
	defer s.wg.Done()
	for {
		now := s.Now()
		next := j.cron.Next(now)
		if next.IsZero() {
			s.logf("%s has no next time", j.Script)
			return
		}
		s.Lock()
		j.Next = next
		s.Unlock()

		t := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-j.ctl:
			t.Stop()
			return
		case <-t.C:
		}

		s.logf("firing %s", j.Script)
		_, err := s.Runner.Run(ctx, j.Script, script.Invocation{})
		s.Lock()
		j.Runs++
		j.LastErr = ""
		if err != nil {
			j.LastErr = err.Error()
		}
		s.Unlock()
		if err != nil {
			log.Printf("scheduled %s failed: %s", j.Script, err)
		}
	}
}
