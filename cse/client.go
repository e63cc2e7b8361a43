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
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrClosed is returned for requests that were pending when
	// a transport shut down.
	ErrClosed = errors.New("cse: transport closed")

	// ErrTimeout is returned when no response arrived in time.
	ErrTimeout = errors.New("cse: response timeout")
)

// StatusError reports a response with an unwanted status.
type StatusError struct {
	Op  Operation
	To  string
	RSC RSC
}

func (e *StatusError) Error() string {
	return fmt.Sprintf(`%s "%s" rsc %d`, e.Op, e.To, e.RSC)
}

// Transport sends a request primitive and returns its response.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function.
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

func (f TransportFunc) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// DefaultRVI is the release version indicator sent with requests.
var DefaultRVI = "3"

// NewRequestID makes a fresh "rqi".
func NewRequestID() string {
	return uuid.NewString()
}

// Client sends requests on behalf of an originator.
type Client struct {
	Transport  Transport
	Originator string

	// RVI defaults to DefaultRVI.
	RVI string

	Verbose bool
}

// NewClient makes a Client.
func NewClient(t Transport, originator string) *Client {
	return &Client{
		Transport:  t,
		Originator: originator,
	}
}

func (c *Client) logf(format string, args ...interface{}) {
	if c.Verbose {
		log.Printf("cse.Client "+format, args...)
	}
}

// Do fills in the originator, request id and version (when missing)
// and sends the request.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.Fr == "" {
		req.Fr = c.Originator
	}
	if req.RQI == "" {
		req.RQI = NewRequestID()
	}
	if req.RVI == "" {
		req.RVI = c.RVI
		if req.RVI == "" {
			req.RVI = DefaultRVI
		}
	}
	c.logf("%s %s rqi=%s", req.Op, req.To, req.RQI)
	resp, err := c.Transport.Send(ctx, req)
	if err != nil {
		c.logf("%s %s error %s", req.Op, req.To, err)
		return nil, err
	}
	c.logf("%s %s rsc=%d", req.Op, req.To, resp.RSC)
	return resp, nil
}

// Retrieve gets the resource at the given path.
func (c *Client) Retrieve(ctx context.Context, to string) (*Response, error) {
	return c.Do(ctx, &Request{
		Op: OpRetrieve,
		To: to,
	})
}

// CreateContentInstance adds a contentInstance with the given
// content to the container at the given path.
func (c *Client) CreateContentInstance(ctx context.Context, to, con string) (*Response, error) {
	return c.Do(ctx, &Request{
		Op: OpCreate,
		To: to,
		Ty: TypeContentInstance,
		PC: ContentInstance(con),
	})
}

// CreateContainer adds a container named rn under the given parent.
func (c *Client) CreateContainer(ctx context.Context, parent, rn string) (*Response, error) {
	return c.Do(ctx, &Request{
		Op: OpCreate,
		To: parent,
		Ty: TypeContainer,
		PC: Container(rn),
	})
}

// waiters correlates responses with pending requests by "rqi" for
// transports that are not request/response at the protocol level.
type waiters struct {
	sync.Mutex
	m      map[string]chan *Response
	closed bool
}

func newWaiters() *waiters {
	return &waiters{
		m: make(map[string]chan *Response, 8),
	}
}

func (w *waiters) add(rqi string) (chan *Response, error) {
	w.Lock()
	defer w.Unlock()
	if w.closed {
		return nil, ErrClosed
	}
	if _, have := w.m[rqi]; have {
		return nil, fmt.Errorf(`duplicate rqi "%s"`, rqi)
	}
	c := make(chan *Response, 1)
	w.m[rqi] = c
	return c, nil
}

func (w *waiters) remove(rqi string) {
	w.Lock()
	delete(w.m, rqi)
	w.Unlock()
}

// deliver hands the response to its waiter, if any.
func (w *waiters) deliver(r *Response) bool {
	w.Lock()
	c, have := w.m[r.RQI]
	if have {
		delete(w.m, r.RQI)
	}
	w.Unlock()
	if !have {
		return false
	}
	c <- r
	return true
}

// closeAll wakes every waiter with a nil response.
func (w *waiters) closeAll() {
	w.Lock()
	w.closed = true
	for rqi, c := range w.m {
		close(c)
		delete(w.m, rqi)
	}
	w.Unlock()
}

// wait blocks until the response arrives, ctx is done, or the
// timeout (if positive) passes.
func (w *waiters) wait(ctx context.Context, rqi string, c chan *Response, timeout time.Duration) (*Response, error) {
	var expired <-chan time.Time
	if 0 < timeout {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case r, ok := <-c:
		if !ok {
			return nil, ErrClosed
		}
		return r, nil
	case <-ctx.Done():
		w.remove(rqi)
		return nil, ctx.Err()
	case <-expired:
		w.remove(rqi)
		return nil, ErrTimeout
	}
}
