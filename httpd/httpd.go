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

// Package httpd is the switch's HTTP service.
//
// Routes:
//
//    GET  /ping      "pong"
//    GET  /status    {"state":..,"source":..}
//    POST /toggle    toggle (or with ?autorun=true just report)
//    POST /notify    oneM2M notifications for the synchronizer
//    GET  /scripts   script documentation
//    GET  /jobs      scheduled scripts
//    POST /__ut__    upper tester commands in X-M2M-UTCMD
//
// /toggle and /notify share a rate limiter.
package httpd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/Comcast/lightswitch/device"
	"github.com/Comcast/lightswitch/schedule"
	"github.com/Comcast/lightswitch/script"
	"github.com/Comcast/lightswitch/tools"

	"golang.org/x/time/rate"
)

const (
	HeaderUTCMD = "X-M2M-UTCMD"
	HeaderUTRSP = "X-M2M-UTRSP"
	HeaderRSC   = "X-M2M-RSC"
)

// DefaultUpperTesterPath is used when Server.UpperTesterPath is
// empty.
const DefaultUpperTesterPath = "/__ut__"

// Server serves the routes above.  Any of Runner, Sync, and
// Scheduler can be nil, in which case their routes return 404.
type Server struct {
	Toggler   *device.Toggler
	Runner    *script.Runner
	Sync      http.Handler
	Scheduler *schedule.Scheduler

	// Limiter, if not nil, limits /toggle and /notify.
	Limiter *rate.Limiter

	UpperTesterPath string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Verbose bool
}

// New makes a Server without a rate limit.
func New(t *device.Toggler, r *script.Runner) *Server {
	return &Server{
		Toggler:         t,
		Runner:          r,
		UpperTesterPath: DefaultUpperTesterPath,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
	}
}

// SetRateLimit allows perSecond requests per second with the given
// burst.  A non-positive rate removes the limit.
func (s *Server) SetRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		s.Limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	s.Limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (s *Server) logf(format string, args ...interface{}) {
	if s.Verbose {
		log.Printf("httpd "+format, args...)
	}
}

func writeJSON(w http.ResponseWriter, status int, x interface{}) {
	js, err := json.Marshal(&x)
	if err != nil {
		status = http.StatusInternalServerError
		js = []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, "%s\n", js)
}

func punt(w http.ResponseWriter, status int, err error) {
	log.Printf("httpd %d: %s", status, err)
	writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
	})
}

func method(m string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != m {
			w.Header().Set("Allow", m)
			http.Error(w, m+" only", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func (s *Server) limited(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Limiter != nil && !s.Limiter.Allow() {
			s.logf("rate limited %s", r.URL.Path)
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		h(w, r)
	}
}

// Handler builds the mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "\"pong\"\n")
	})

	mux.HandleFunc("/status", method("GET", s.status))
	mux.HandleFunc("/toggle", method("POST", s.limited(s.toggle)))

	if s.Sync != nil {
		mux.Handle("/notify", s.limited(s.Sync.ServeHTTP))
	}

	if s.Runner != nil {
		mux.HandleFunc("/scripts", method("GET", s.scripts))
		path := s.UpperTesterPath
		if path == "" {
			path = DefaultUpperTesterPath
		}
		mux.HandleFunc(path, s.upperTester)
	}

	if s.Scheduler != nil {
		mux.HandleFunc("/jobs", method("GET", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, s.Scheduler.Jobs())
		}))
	}

	return mux
}

// StatusReply is the body from /status and /toggle.
type StatusReply struct {
	State  device.State  `json:"state"`
	Source device.Source `json:"source,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	state, src := s.Toggler.Status(r.Context())
	writeJSON(w, http.StatusOK, StatusReply{
		State:  state,
		Source: src,
	})
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request) {
	autorun, _ := strconv.ParseBool(r.FormValue("autorun"))
	state, err := s.Toggler.Run(r.Context(), device.Interactive(!autorun))
	if err == nil {
		writeJSON(w, http.StatusOK, StatusReply{
			State: state,
		})
		return
	}

	status := http.StatusInternalServerError
	var we *device.WriteError
	if errors.As(err, &we) {
		status = http.StatusBadGateway
	}
	err = NewWrappedError(fmt.Errorf("toggle from %s failed", state), err)
	log.Printf("httpd %d: %s", status, err)
	writeJSON(w, status, StatusReply{
		State: state,
		Error: err.Error(),
	})
}

func (s *Server) scripts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	code, _ := strconv.ParseBool(r.FormValue("code"))
	if err := tools.RenderScriptsPage("Scripts", s.Runner.Scripts(), w, nil, code); err != nil {
		log.Printf("httpd scripts page: %s", err)
	}
}

func (s *Server) upperTester(w http.ResponseWriter, r *http.Request) {
	reply := func(rsc int, result string) {
		w.Header().Set(HeaderRSC, strconv.Itoa(rsc))
		if result != "" {
			w.Header().Set(HeaderUTRSP, result)
		}
		status := http.StatusOK
		if rsc != 2000 {
			status = http.StatusBadRequest
		}
		w.WriteHeader(status)
	}

	cmd := r.Header.Get(HeaderUTCMD)
	if cmd == "" {
		s.logf("upper tester request without %s", HeaderUTCMD)
		reply(4000, "")
		return
	}
	s.logf("upper tester %q", cmd)

	x, err := s.Runner.RunUpperTester(r.Context(), cmd)
	if err != nil {
		log.Printf("httpd upper tester %q: %s", cmd, err)
		reply(4000, err.Error())
		return
	}
	reply(2000, script.FormatResult(x))
}

// ListenAndServe serves until the context is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:           addr,
		Handler:        s.Handler(),
		ReadTimeout:    s.ReadTimeout,
		WriteTimeout:   s.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	errs := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP service on %s", addr)
		errs <- hs.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(sctx); err != nil {
			return err
		}
		return ctx.Err()
	}
}
