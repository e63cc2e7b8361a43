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
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// HTTP binding header names.
const (
	HeaderOrigin = "X-M2M-Origin"
	HeaderRI     = "X-M2M-RI"
	HeaderRVI    = "X-M2M-RVI"
	HeaderRSC    = "X-M2M-RSC"
)

// HTTPTransport is the HTTP binding.
type HTTPTransport struct {
	// BaseURL is the CSE's HTTP root, like
	// "http://localhost:8080".
	BaseURL string

	Serialization Serialization

	Client *http.Client

	Debug bool
}

// NewHTTPTransport makes an HTTPTransport with its own cookie jar,
// which some CSE deployments behind gateways want.
func NewHTTPTransport(baseURL string, ser Serialization, timeout time.Duration) (*HTTPTransport, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &HTTPTransport{
		BaseURL:       baseURL,
		Serialization: ser,
		Client: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
	}, nil
}

func (t *HTTPTransport) logf(format string, args ...interface{}) {
	if t.Debug {
		log.Printf("HTTPTransport "+format, args...)
	}
}

var methods = map[Operation]string{
	OpCreate:   http.MethodPost,
	OpRetrieve: http.MethodGet,
	OpUpdate:   http.MethodPut,
	OpDelete:   http.MethodDelete,
	OpNotify:   http.MethodPost,
}

// HTTPPath maps a primitive "to" to an HTTP request path:
// CSE-relative "cse-in/x" is "/cse-in/x", SP-relative "/id-in/x" is
// "/~/id-in/x" and absolute "//sp/id-in/x" is "/_/sp/id-in/x".
func HTTPPath(to string) string {
	switch {
	case strings.HasPrefix(to, "//"):
		return "/_/" + to[2:]
	case strings.HasPrefix(to, "/"):
		return "/~" + to
	default:
		return "/" + to
	}
}

// PrimitiveTo is the inverse of HTTPPath.
func PrimitiveTo(path string) string {
	switch {
	case strings.HasPrefix(path, "/_/"):
		return "//" + path[3:]
	case strings.HasPrefix(path, "/~/"):
		return path[2:]
	default:
		return strings.TrimPrefix(path, "/")
	}
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	method, have := methods[req.Op]
	if !have {
		return nil, fmt.Errorf("unsupported operation %s", req.Op)
	}

	ser := t.Serialization
	var body []byte
	if req.PC != nil {
		var err error
		if body, err = ser.Marshal(req.PC); err != nil {
			return nil, err
		}
	}

	url := strings.TrimRight(t.BaseURL, "/") + HTTPPath(req.To)
	hreq, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq = hreq.WithContext(ctx)

	hreq.Header.Set(HeaderOrigin, req.Fr)
	hreq.Header.Set(HeaderRI, req.RQI)
	if req.RVI != "" {
		hreq.Header.Set(HeaderRVI, req.RVI)
	}
	hreq.Header.Set("Accept", ser.ContentType())
	if body != nil {
		ct := ser.ContentType()
		if req.Op == OpCreate && req.Ty != 0 {
			ct += ";ty=" + strconv.Itoa(int(req.Ty))
		}
		hreq.Header.Set("Content-Type", ct)
	}

	t.logf("%s %s", method, url)

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	hresp, err := client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer hresp.Body.Close()

	bs, err := ioutil.ReadAll(hresp.Body)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		RQI: hresp.Header.Get(HeaderRI),
		RVI: hresp.Header.Get(HeaderRVI),
		To:  req.Fr,
	}
	if h := hresp.Header.Get(HeaderRSC); h != "" {
		n, err := strconv.Atoi(h)
		if err != nil {
			return nil, fmt.Errorf("bad %s header %q", HeaderRSC, h)
		}
		resp.RSC = RSC(n)
	} else {
		resp.RSC = RSCFromHTTP(hresp.StatusCode)
	}

	t.logf("%s %s status %d rsc %d", method, url, hresp.StatusCode, resp.RSC)

	ct := hresp.Header.Get("Content-Type")
	if 0 < len(bs) && (strings.Contains(ct, "json") || strings.Contains(ct, "cbor")) {
		rser := SerializationFor(ct)
		if err = rser.Unmarshal(bs, &resp.PC); err != nil {
			return nil, fmt.Errorf("%s %s: can't parse response body: %s", method, url, err)
		}
	}

	return resp, nil
}
