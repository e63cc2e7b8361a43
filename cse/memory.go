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

package cse

import (
	"context"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Memory is an in-process CSE.  It keeps containers of
// contentInstances, which are append-only.  Retrieving
// "<container>/la" gives the latest instance and "<container>/ol"
// the oldest.
//
// Creating a contentInstance under an unknown container creates the
// container.
//
// Memory implements Transport, and it is an http.Handler for the HTTP
// binding.  ServeWS serves the WebSocket binding.
type Memory struct {
	sync.Mutex

	// RetrieveRSC, when not zero, is returned for every retrieve.
	RetrieveRSC RSC

	// CreateRSC, when not zero, is returned for every create.
	CreateRSC RSC

	// Err, when not nil, is returned by Send for every request.
	Err error

	Verbose bool

	// Retrieves and Creates count requests.
	Retrieves int
	Creates   int

	containers map[string]*memContainer
	seq        int
}

type memContainer struct {
	rn        string
	instances []*memInstance
}

type memInstance struct {
	RN  string `json:"rn"`
	RI  string `json:"ri"`
	PI  string `json:"pi"`
	CT  string `json:"ct"`
	Con string `json:"con"`
}

func NewMemory() *Memory {
	return &Memory{
		containers: make(map[string]*memContainer, 8),
	}
}

func (m *Memory) logf(format string, args ...interface{}) {
	if m.Verbose {
		log.Printf("cse.Memory "+format, args...)
	}
}

func memKey(to string) string {
	return strings.Trim(to, "/")
}

// Send implements Transport.
func (m *Memory) Send(ctx context.Context, req *Request) (*Response, error) {
	m.Lock()
	defer m.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	var resp *Response
	switch req.Op {
	case OpRetrieve:
		m.Retrieves++
		resp = m.retrieve(req)
	case OpCreate:
		m.Creates++
		resp = m.create(req)
	default:
		resp = debug(RSCNotImplemented, "operation %s not supported", req.Op)
	}
	resp.RQI = req.RQI
	resp.To = req.Fr
	resp.RVI = req.RVI
	m.logf("%s %s -> %d", req.Op, req.To, resp.RSC)
	return resp, nil
}

func debug(rsc RSC, format string, args ...interface{}) *Response {
	return &Response{
		RSC: rsc,
		PC: map[string]interface{}{
			"m2m:dbg": fmt.Sprintf(format, args...),
		},
	}
}

func (m *Memory) retrieve(req *Request) *Response {
	if m.RetrieveRSC != 0 {
		return debug(m.RetrieveRSC, "injected")
	}

	key := memKey(req.To)
	if c, have := m.containers[key]; have {
		return &Response{
			RSC: RSCOK,
			PC: map[string]interface{}{
				"m2m:cnt": map[string]interface{}{
					"rn":  c.rn,
					"cni": len(c.instances),
				},
			},
		}
	}

	i := strings.LastIndex(key, "/")
	if i < 0 {
		return debug(RSCNotFound, "resource %s not found", req.To)
	}
	parent, child := key[:i], key[i+1:]
	c, have := m.containers[parent]
	if !have {
		return debug(RSCNotFound, "resource %s not found", req.To)
	}

	var found *memInstance
	switch child {
	case "la":
		if n := len(c.instances); 0 < n {
			found = c.instances[n-1]
		}
	case "ol":
		if 0 < len(c.instances) {
			found = c.instances[0]
		}
	default:
		for _, in := range c.instances {
			if in.RN == child {
				found = in
				break
			}
		}
	}
	if found == nil {
		return debug(RSCNotFound, "no instance for %s", req.To)
	}

	return &Response{
		RSC: RSCOK,
		PC: map[string]interface{}{
			"m2m:cin": map[string]interface{}{
				"rn":  found.RN,
				"ri":  found.RI,
				"pi":  found.PI,
				"ct":  found.CT,
				"con": found.Con,
			},
		},
	}
}

func (m *Memory) create(req *Request) *Response {
	if m.CreateRSC != 0 {
		return debug(m.CreateRSC, "injected")
	}

	key := memKey(req.To)
	if strings.HasSuffix(key, "/la") || strings.HasSuffix(key, "/ol") {
		return debug(RSCOperationNotAllowed, "operation not allowed for virtual resource")
	}

	switch req.Ty {
	case TypeContainer:
		cnt, is := req.PC["m2m:cnt"].(map[string]interface{})
		if !is {
			return debug(RSCBadRequest, "missing m2m:cnt")
		}
		rn, _ := cnt["rn"].(string)
		if rn == "" {
			m.seq++
			rn = fmt.Sprintf("cnt%d", m.seq)
		}
		path := key + "/" + rn
		if _, have := m.containers[path]; have {
			return debug(RSCConflict, "resource %s exists", path)
		}
		m.containers[path] = &memContainer{rn: rn}
		return &Response{
			RSC: RSCCreated,
			PC: map[string]interface{}{
				"m2m:cnt": map[string]interface{}{
					"rn": rn,
				},
			},
		}

	case TypeContentInstance:
		cin, is := req.PC["m2m:cin"].(map[string]interface{})
		if !is {
			return debug(RSCBadRequest, "missing m2m:cin")
		}
		con, is := cin["con"].(string)
		if !is {
			return debug(RSCBadRequest, "con must be a string")
		}
		c, have := m.containers[key]
		if !have {
			rn := key
			if i := strings.LastIndex(key, "/"); 0 <= i {
				rn = key[i+1:]
			}
			c = &memContainer{rn: rn}
			m.containers[key] = c
		}
		m.seq++
		in := &memInstance{
			RN:  fmt.Sprintf("cin_%d", m.seq),
			RI:  fmt.Sprintf("ri%d", m.seq),
			PI:  key,
			CT:  time.Now().UTC().Format("20060102T150405,000000"),
			Con: con,
		}
		c.instances = append(c.instances, in)
		return &Response{
			RSC: RSCCreated,
			PC: map[string]interface{}{
				"m2m:cin": map[string]interface{}{
					"rn":  in.RN,
					"ri":  in.RI,
					"pi":  in.PI,
					"ct":  in.CT,
					"con": in.Con,
				},
			},
		}

	default:
		return debug(RSCNotImplemented, "resource type %d not supported", req.Ty)
	}
}

// Latest returns the content of the container's latest instance.
func (m *Memory) Latest(container string) (string, bool) {
	m.Lock()
	defer m.Unlock()
	c, have := m.containers[memKey(container)]
	if !have || len(c.instances) == 0 {
		return "", false
	}
	return c.instances[len(c.instances)-1].Con, true
}

// Count returns the number of instances in the container.
func (m *Memory) Count(container string) int {
	m.Lock()
	defer m.Unlock()
	c, have := m.containers[memKey(container)]
	if !have {
		return 0
	}
	return len(c.instances)
}

// ServeHTTP serves the HTTP binding.
func (m *Memory) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := &Request{
		To:  PrimitiveTo(r.URL.Path),
		Fr:  r.Header.Get(HeaderOrigin),
		RQI: r.Header.Get(HeaderRI),
		RVI: r.Header.Get(HeaderRVI),
	}

	ct := r.Header.Get("Content-Type")
	switch r.Method {
	case http.MethodGet:
		req.Op = OpRetrieve
	case http.MethodPost:
		req.Op = OpCreate
		for _, param := range strings.Split(ct, ";")[1:] {
			param = strings.TrimSpace(param)
			if strings.HasPrefix(param, "ty=") {
				n, err := strconv.Atoi(param[3:])
				if err != nil {
					http.Error(w, "bad ty", http.StatusBadRequest)
					return
				}
				req.Ty = ResourceType(n)
			}
		}
		if req.Ty == 0 {
			req.Op = OpNotify
		}
	case http.MethodPut:
		req.Op = OpUpdate
	case http.MethodDelete:
		req.Op = OpDelete
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ser := SerializationFor(ct)
	if bs, err := ioutil.ReadAll(r.Body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	} else if 0 < len(bs) {
		if err = ser.Unmarshal(bs, &req.PC); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	resp, err := m.Send(r.Context(), req)
	if err != nil {
		resp = debug(RSCTargetNotReachable, "%s", err)
		resp.RQI = req.RQI
	}

	out := SerializationFor(r.Header.Get("Accept"))
	w.Header().Set(HeaderRSC, strconv.Itoa(int(resp.RSC)))
	w.Header().Set(HeaderRI, resp.RQI)
	if resp.RVI != "" {
		w.Header().Set(HeaderRVI, resp.RVI)
	}
	var body []byte
	if resp.PC != nil {
		if body, err = out.Marshal(resp.PC); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", out.ContentType())
	}
	w.WriteHeader(resp.RSC.HTTPStatus())
	w.Write(body)
}

// ServeWS serves the WebSocket binding.
func (m *Memory) ServeWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		Subprotocols: []string{JSON.Subprotocol(), CBOR.Subprotocol()},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("cse.Memory upgrade: %s", err)
		return
	}
	defer conn.Close()

	ser := JSON
	if conn.Subprotocol() == CBOR.Subprotocol() {
		ser = CBOR
	}

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			m.logf("ws reader: %s", err)
			return
		}
		var req Request
		if err = ser.Unmarshal(message, &req); err != nil {
			m.logf("ws can't parse request: %s", err)
			continue
		}
		resp, err := m.Send(r.Context(), &req)
		if err != nil {
			resp = debug(RSCTargetNotReachable, "%s", err)
			resp.RQI = req.RQI
		}
		bs, err := ser.Marshal(resp)
		if err != nil {
			m.logf("ws marshal: %s", err)
			continue
		}
		if err = conn.WriteMessage(mt, bs); err != nil {
			m.logf("ws writer: %s", err)
			return
		}
	}
}
