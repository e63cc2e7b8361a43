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
	"crypto/tls"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTOptions configures the broker connection.
type MQTTOptions struct {
	Broker    string        `yaml:"broker"`
	Port      int           `yaml:"port"`
	ClientID  string        `yaml:"clientId,omitempty"`
	Username  string        `yaml:"username,omitempty"`
	Password  string        `yaml:"password,omitempty"`
	KeepAlive time.Duration `yaml:"keepAlive,omitempty"`
	Reconnect bool          `yaml:"reconnect,omitempty"`
	Insecure  bool          `yaml:"insecure,omitempty"`
	QoS       byte          `yaml:"qos,omitempty"`

	// Quiesce is the disconnection quiescence in milliseconds.
	Quiesce uint `yaml:"quiesce,omitempty"`
}

// MQTTTransport is the MQTT binding.  Requests are published on the
// CSE's request topic and responses are read from our response topic
// and matched by "rqi".
type MQTTTransport struct {
	Client        mqtt.Client
	Originator    string
	CSEID         string
	Serialization Serialization
	QoS           byte
	Quiesce       uint

	// Timeout, if positive, bounds how long Send waits for a response.
	// It applies in addition to any ctx deadline.
	Timeout time.Duration

	Verbose bool

	pending *waiters
}

// TopicID renders an entity id for use in a topic: the leading "/"
// is dropped and the others become ":".
func TopicID(id string) string {
	return strings.ReplaceAll(strings.TrimPrefix(id, "/"), "/", ":")
}

// RequestTopic is where an originator publishes requests for a CSE.
func RequestTopic(originator, cseID string, ser Serialization) string {
	return "/oneM2M/req/" + TopicID(originator) + "/" + TopicID(cseID) + "/" + string(ser)
}

// ResponseTopic is where a CSE publishes responses for an
// originator.
func ResponseTopic(originator, cseID string, ser Serialization) string {
	return "/oneM2M/resp/" + TopicID(originator) + "/" + TopicID(cseID) + "/" + string(ser)
}

// NewMQTTTransport makes a transport.  Call Start before use.
func NewMQTTTransport(o MQTTOptions, originator, cseID string, ser Serialization, timeout time.Duration) *MQTTTransport {
	mqtt.ERROR = log.New(log.Writer(), "mqtt.error ", log.Flags())

	opts := mqtt.NewClientOptions()

	broker := o.Broker
	if broker == "" {
		broker = "tcp://localhost"
	}
	port := o.Port
	if port == 0 {
		port = 1883
	}
	opts.AddBroker(fmt.Sprintf("%s:%d", broker, port))

	clientID := o.ClientID
	if clientID == "" {
		clientID = TopicID(originator)
	}
	opts.SetClientID(clientID)
	if 0 < o.KeepAlive {
		opts.SetKeepAlive(o.KeepAlive)
	}
	opts.SetUsername(o.Username)
	opts.SetPassword(o.Password)
	opts.SetAutoReconnect(o.Reconnect)
	opts.SetCleanSession(true)
	opts.SetTLSConfig(&tls.Config{
		InsecureSkipVerify: o.Insecure,
	})

	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %s", err)
	}

	quiesce := o.Quiesce
	if quiesce == 0 {
		quiesce = 100
	}

	return &MQTTTransport{
		Client:        mqtt.NewClient(opts),
		Originator:    originator,
		CSEID:         cseID,
		Serialization: ser,
		QoS:           o.QoS,
		Quiesce:       quiesce,
		Timeout:       timeout,
		pending:       newWaiters(),
	}
}

func (t *MQTTTransport) logf(format string, args ...interface{}) {
	if t.Verbose {
		log.Printf("MQTTTransport "+format, args...)
	}
}

// Start connects to the broker and subscribes to the response topic.
func (t *MQTTTransport) Start(ctx context.Context) error {
	if t.pending == nil {
		t.pending = newWaiters()
	}
	t.logf("connecting")
	if token := t.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	topic := ResponseTopic(t.Originator, t.CSEID, t.Serialization)
	t.logf("subscribing to %s", topic)
	if token := t.Client.Subscribe(topic, t.QoS, t.inHandler); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// inHandler is the Paho handler for the response topic.
func (t *MQTTTransport) inHandler(client mqtt.Client, msg mqtt.Message) {
	t.logf("incoming %s (%d bytes)", msg.Topic(), len(msg.Payload()))
	var r Response
	if err := t.Serialization.Unmarshal(msg.Payload(), &r); err != nil {
		log.Printf("warning: MQTTTransport can't parse response on %s: %s", msg.Topic(), err)
		return
	}
	if !t.pending.deliver(&r) {
		log.Printf("warning: MQTTTransport no request waiting for rqi %s", r.RQI)
	}
}

// Send implements Transport.
func (t *MQTTTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	js, err := t.Serialization.Marshal(req)
	if err != nil {
		return nil, err
	}

	c, err := t.pending.add(req.RQI)
	if err != nil {
		return nil, err
	}

	topic := RequestTopic(t.Originator, t.CSEID, t.Serialization)
	t.logf("publishing %s rqi %s to %s", req.Op, req.RQI, topic)
	token := t.Client.Publish(topic, t.QoS, false, js)
	token.Wait()
	if err = token.Error(); err != nil {
		t.pending.remove(req.RQI)
		return nil, err
	}

	return t.pending.wait(ctx, req.RQI, c, t.Timeout)
}

// Stop disconnects.  Pending requests fail with ErrClosed.
func (t *MQTTTransport) Stop(ctx context.Context) error {
	t.logf("disconnecting")
	t.Client.Disconnect(t.Quiesce)
	t.pending.closeAll()
	return nil
}
