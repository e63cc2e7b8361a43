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
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSTransport is the WebSocket binding.  One connection carries all
// requests; a reader goroutine matches responses by "rqi".
type WSTransport struct {
	URL           string
	Serialization Serialization
	Dialer        *websocket.Dialer

	// Timeout, if positive, bounds how long Send waits for a response.
	// It applies in addition to any ctx deadline.
	Timeout time.Duration

	Verbose bool

	conn    *websocket.Conn
	wmu     sync.Mutex
	pending *waiters
	done    chan struct{}
}

// NewWSTransport makes a transport.  Call Start before use.
func NewWSTransport(url string, ser Serialization, timeout time.Duration) *WSTransport {
	return &WSTransport{
		URL:           url,
		Serialization: ser,
		Timeout:       timeout,
		pending:       newWaiters(),
	}
}

func (t *WSTransport) logf(format string, args ...interface{}) {
	if t.Verbose {
		log.Printf("WSTransport "+format, args...)
	}
}

// Start dials the CSE and starts reading responses.
func (t *WSTransport) Start(ctx context.Context) error {
	if t.pending == nil {
		t.pending = newWaiters()
	}
	d := t.Dialer
	if d == nil {
		d = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		}
	}
	d.Subprotocols = []string{t.Serialization.Subprotocol()}

	c, _, err := d.DialContext(ctx, t.URL, nil)
	if err != nil {
		return err
	}
	if got := c.Subprotocol(); got != t.Serialization.Subprotocol() {
		c.Close()
		return errors.New("CSE did not accept subprotocol " + t.Serialization.Subprotocol() + ", got " + got)
	}
	t.conn = c
	t.done = make(chan struct{})

	t.logf("connected to %s", t.URL)

	go t.readLoop()

	return nil
}

func (t *WSTransport) readLoop() {
	defer close(t.done)
	defer t.pending.closeAll()
	for {
		_, message, err := t.conn.ReadMessage()
		if err != nil {
			t.logf("reader stopping: %s", err)
			return
		}
		var r Response
		if err = t.Serialization.Unmarshal(message, &r); err != nil {
			log.Printf("warning: WSTransport can't parse %d bytes: %s", len(message), err)
			continue
		}
		if !t.pending.deliver(&r) {
			log.Printf("warning: WSTransport no request waiting for rqi %s", r.RQI)
		}
	}
}

// Send implements Transport.
func (t *WSTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	if t.conn == nil {
		return nil, ErrClosed
	}
	bs, err := t.Serialization.Marshal(req)
	if err != nil {
		return nil, err
	}

	c, err := t.pending.add(req.RQI)
	if err != nil {
		return nil, err
	}

	mt := websocket.TextMessage
	if t.Serialization == CBOR {
		mt = websocket.BinaryMessage
	}

	t.wmu.Lock()
	err = t.conn.WriteMessage(mt, bs)
	t.wmu.Unlock()
	if err != nil {
		t.pending.remove(req.RQI)
		return nil, err
	}

	return t.pending.wait(ctx, req.RQI, c, t.Timeout)
}

// Stop closes the connection and waits for the reader.
func (t *WSTransport) Stop(ctx context.Context) error {
	if t.conn == nil {
		return nil
	}
	t.wmu.Lock()
	t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	t.wmu.Unlock()
	err := t.conn.Close()
	select {
	case <-t.done:
	case <-ctx.Done():
	}
	return err
}
