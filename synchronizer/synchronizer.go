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

// Package synchronizer mirrors content notifications into another
// container.
//
// A subscription on one container delivers m2m:sgn notifications
// here.  The content of each new contentInstance is mapped to a
// command (by default "ON" becomes "start" and anything else
// becomes "stop"), and that command is written as a contentInstance
// of the target container.
package synchronizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"

	"github.com/Comcast/lightswitch/cse"
)

// ErrNoContent is returned for a notification without
// nev.rep.m2m:cin.con.
var ErrNoContent = errors.New("notification has no contentInstance content")

// Creator writes contentInstances.
type Creator interface {
	CreateContentInstance(ctx context.Context, to, con string) (*cse.Response, error)
}

// Notification is an m2m:sgn.
type Notification struct {
	SGN *struct {
		VRQ bool   `json:"vrq,omitempty" cbor:"vrq,omitempty"`
		SUR string `json:"sur,omitempty" cbor:"sur,omitempty"`
		NEV *struct {
			NET int                    `json:"net,omitempty" cbor:"net,omitempty"`
			Rep map[string]interface{} `json:"rep,omitempty" cbor:"rep,omitempty"`
		} `json:"nev,omitempty" cbor:"nev,omitempty"`
	} `json:"m2m:sgn" cbor:"m2m:sgn"`
}

// Verification reports whether the notification is a subscription
// verification request.
func (n *Notification) Verification() bool {
	return n.SGN != nil && n.SGN.VRQ
}

// Content finds nev.rep.m2m:cin.con.
func (n *Notification) Content() (string, bool) {
	if n.SGN == nil || n.SGN.NEV == nil {
		return "", false
	}
	cin, is := n.SGN.NEV.Rep["m2m:cin"].(map[string]interface{})
	if !is {
		return "", false
	}
	con, is := cin["con"].(string)
	return con, is
}

// DefaultMapping is used by New.
var DefaultMapping = map[string]string{
	"ON": "start",
}

// DefaultOtherwise is used by New.
const DefaultOtherwise = "stop"

// Synchronizer handles notifications.
type Synchronizer struct {
	Remote Creator

	// Target is the container to write to.
	Target string

	// Mapping maps notified content to the content to write.
	// Content not in the map is written as Otherwise.
	Mapping   map[string]string
	Otherwise string

	Verbose bool
}

// New makes a Synchronizer with the default mapping.
func New(remote Creator, target string) *Synchronizer {
	m := make(map[string]string, len(DefaultMapping))
	for k, v := range DefaultMapping {
		m[k] = v
	}
	return &Synchronizer{
		Remote:    remote,
		Target:    target,
		Mapping:   m,
		Otherwise: DefaultOtherwise,
	}
}

func (s *Synchronizer) logf(format string, args ...interface{}) {
	if s.Verbose {
		log.Printf("Synchronizer "+format, args...)
	}
}

// Map gives the content to write for the notified content.
func (s *Synchronizer) Map(con string) string {
	if to, have := s.Mapping[con]; have {
		return to
	}
	return s.Otherwise
}

// Handle processes a notification.  It returns the content written,
// which is empty for a verification request.
func (s *Synchronizer) Handle(ctx context.Context, n *Notification) (string, error) {
	if n.Verification() {
		s.logf("verification for %s", n.SGN.SUR)
		return "", nil
	}
	con, have := n.Content()
	if !have {
		return "", ErrNoContent
	}
	state := s.Map(con)
	s.logf("received %q, writing %q to %s", con, state, s.Target)

	resp, err := s.Remote.CreateContentInstance(ctx, s.Target, state)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", fmt.Errorf("no response creating %s", s.Target)
	}
	if !resp.RSC.OK() {
		return "", &cse.StatusError{
			Op:  cse.OpCreate,
			To:  s.Target,
			RSC: resp.RSC,
		}
	}
	return state, nil
}

// Reply is the body of every HTTP response.
type Reply struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Wrote   string `json:"wrote,omitempty"`
}

// ServeHTTP accepts a notification in the request body, serialized
// as given by the request's Content-Type.
func (s *Synchronizer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reply := func(status int, rep Reply) {
		js, err := json.Marshal(&rep)
		if err != nil {
			js = []byte(fmt.Sprintf(`{"status":"error","message":%q}`, err.Error()))
			status = http.StatusInternalServerError
		}
		w.Header().Set("Content-Type", "application/json")
		if ri := r.Header.Get("X-M2M-RI"); ri != "" {
			w.Header().Set("X-M2M-RI", ri)
		}
		w.WriteHeader(status)
		fmt.Fprintf(w, "%s\n", js)
	}
	punt := func(err error) {
		log.Printf("Synchronizer error: %s", err)
		reply(http.StatusInternalServerError, Reply{
			Status:  "error",
			Message: err.Error(),
		})
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	bs, err := ioutil.ReadAll(r.Body)
	if err != nil {
		punt(err)
		return
	}

	var n Notification
	ser := cse.SerializationFor(r.Header.Get("Content-Type"))
	if err = ser.Unmarshal(bs, &n); err != nil {
		punt(err)
		return
	}
	if n.SGN == nil {
		punt(errors.New("not a notification"))
		return
	}

	wrote, err := s.Handle(r.Context(), &n)
	if err != nil {
		punt(err)
		return
	}
	reply(http.StatusOK, Reply{
		Status: "success",
		Wrote:  wrote,
	})
}
