package cse

import (
	"context"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

func TestTopics(t *testing.T) {
	if got, want := RequestTopic("CAdmin", "/id-in", JSON), "/oneM2M/req/CAdmin/id-in/json"; got != want {
		t.Fatalf("%s != %s", got, want)
	}
	if got, want := ResponseTopic("/id-mn/CAE1", "id-in", CBOR), "/oneM2M/resp/id-mn:CAE1/id-in/cbor"; got != want {
		t.Fatalf("%s != %s", got, want)
	}
}

type doneToken struct {
	err error
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Error() error                   { return t.err }

func (t *doneToken) Done() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

type brokerMessage struct {
	topic   string
	payload []byte
}

func (m *brokerMessage) Duplicate() bool   { return false }
func (m *brokerMessage) Qos() byte         { return 0 }
func (m *brokerMessage) Retained() bool    { return false }
func (m *brokerMessage) Topic() string     { return m.topic }
func (m *brokerMessage) MessageID() uint16 { return 0 }
func (m *brokerMessage) Payload() []byte   { return m.payload }
func (m *brokerMessage) Ack()              {}

// broker is an mqtt.Client that answers requests from a Memory CSE
// on the subscribed topic.  With no CSE, requests go unanswered.
type broker struct {
	mqtt.Client

	cse *Memory
	ser Serialization

	sync.Mutex
	subscribed   string
	handler      mqtt.MessageHandler
	published    []string
	disconnected bool

	sent chan string
}

func newBroker(m *Memory, ser Serialization) *broker {
	return &broker{
		cse:  m,
		ser:  ser,
		sent: make(chan string, 8),
	}
}

func (b *broker) Connect() mqtt.Token {
	return &doneToken{}
}

func (b *broker) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	b.Lock()
	b.subscribed = topic
	b.handler = callback
	b.Unlock()
	return &doneToken{}
}

func (b *broker) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	b.Lock()
	b.published = append(b.published, topic)
	respTopic, handler := b.subscribed, b.handler
	b.Unlock()

	var req Request
	if err := b.ser.Unmarshal(payload.([]byte), &req); err != nil {
		return &doneToken{err: err}
	}
	b.sent <- req.RQI

	if b.cse == nil {
		return &doneToken{}
	}
	resp, err := b.cse.Send(context.Background(), &req)
	if err != nil {
		return &doneToken{err: err}
	}
	bs, err := b.ser.Marshal(resp)
	if err != nil {
		return &doneToken{err: err}
	}
	go handler(b, &brokerMessage{
		topic:   respTopic,
		payload: bs,
	})
	return &doneToken{}
}

func (b *broker) Disconnect(quiesce uint) {
	b.Lock()
	b.disconnected = true
	b.Unlock()
}

func testMQTT(t *testing.T, ser Serialization) {
	b := newBroker(NewMemory(), ser)
	tr := &MQTTTransport{
		Client:        b,
		Originator:    "CAdmin",
		CSEID:         "/id-in",
		Serialization: ser,
		Timeout:       time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := tr.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer tr.Stop(ctx)

	if got, want := b.subscribed, ResponseTopic("CAdmin", "/id-in", ser); got != want {
		t.Fatalf("subscribed to %s, not %s", got, want)
	}

	c := NewClient(tr, "CAdmin")

	container := "cse-in/CDemoLightswitch/switchContainer"
	if resp, err := c.CreateContentInstance(ctx, container, "on"); err != nil {
		t.Fatal(err)
	} else if resp.RSC != RSCCreated {
		t.Fatalf("create rsc %d", resp.RSC)
	}

	resp, err := c.Retrieve(ctx, container+"/la")
	if err != nil {
		t.Fatal(err)
	}
	if con, _ := resp.Content(); con != "on" {
		t.Fatalf(`got "%s" (%#v)`, con, resp.PC)
	}

	b.Lock()
	defer b.Unlock()
	if len(b.published) != 2 {
		t.Fatal(b.published)
	}
	for _, topic := range b.published {
		if want := RequestTopic("CAdmin", "/id-in", ser); topic != want {
			t.Fatalf("published to %s, not %s", topic, want)
		}
	}
}

func TestMQTTJSON(t *testing.T) {
	testMQTT(t, JSON)
}

func TestMQTTCBOR(t *testing.T) {
	testMQTT(t, CBOR)
}

func TestMQTTTimeout(t *testing.T) {
	tr := &MQTTTransport{
		Client:        newBroker(nil, JSON),
		Originator:    "CAdmin",
		CSEID:         "id-in",
		Serialization: JSON,
		Timeout:       10 * time.Millisecond,
	}
	ctx := context.Background()
	if err := tr.Start(ctx); err != nil {
		t.Fatal(err)
	}
	_, err := tr.Send(ctx, &Request{Op: OpRetrieve, To: "cse-in", RQI: "1"})
	if err != ErrTimeout {
		t.Fatalf("got %v", err)
	}

	// The rqi is free again.
	_, err = tr.Send(ctx, &Request{Op: OpRetrieve, To: "cse-in", RQI: "1"})
	if err != ErrTimeout {
		t.Fatalf("got %v", err)
	}
}

func TestMQTTStop(t *testing.T) {
	b := newBroker(nil, JSON)
	tr := &MQTTTransport{
		Client:        b,
		Originator:    "CAdmin",
		CSEID:         "id-in",
		Serialization: JSON,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Start(ctx); err != nil {
		t.Fatal(err)
	}

	errs := make(chan error, 1)
	go func() {
		_, err := tr.Send(ctx, &Request{Op: OpRetrieve, To: "cse-in", RQI: "pending"})
		errs <- err
	}()

	select {
	case <-b.sent:
	case <-ctx.Done():
		t.Fatal("nothing published")
	}

	if err := tr.Stop(ctx); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errs:
		if err != ErrClosed {
			t.Fatalf("got %v", err)
		}
	case <-ctx.Done():
		t.Fatal("pending request not released")
	}

	b.Lock()
	disconnected := b.disconnected
	b.Unlock()
	if !disconnected {
		t.Fatal("not disconnected")
	}

	if _, err := tr.Send(ctx, &Request{Op: OpRetrieve, To: "cse-in", RQI: "late"}); err != ErrClosed {
		t.Fatalf("got %v", err)
	}
}

func TestMQTTUnmatched(t *testing.T) {
	tr := &MQTTTransport{
		Serialization: JSON,
		pending:       newWaiters(),
	}
	// Neither should panic.
	tr.inHandler(nil, &brokerMessage{topic: "x", payload: []byte(`{`)})
	tr.inHandler(nil, &brokerMessage{topic: "x", payload: []byte(`{"rsc":2000,"rqi":"nobody"}`)})
}
