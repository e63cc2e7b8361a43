package cse

import (
	"context"
	"testing"
	"time"
)

func TestClientFillsRequest(t *testing.T) {
	var seen *Request
	tr := TransportFunc(func(ctx context.Context, req *Request) (*Response, error) {
		seen = req
		return &Response{RSC: RSCOK, RQI: req.RQI}, nil
	})
	c := NewClient(tr, "CAdmin")
	if _, err := c.Retrieve(context.Background(), "cse-in/a/la"); err != nil {
		t.Fatal(err)
	}
	if seen.Fr != "CAdmin" || seen.RQI == "" || seen.RVI != DefaultRVI || seen.Op != OpRetrieve {
		t.Fatalf("request %#v", seen)
	}
}

func TestWaiters(t *testing.T) {
	w := newWaiters()

	c, err := w.add("a")
	if err != nil {
		t.Fatal(err)
	}
	if _, err = w.add("a"); err == nil {
		t.Fatal("duplicate rqi accepted")
	}
	go w.deliver(&Response{RQI: "a", RSC: RSCOK})
	r, err := w.wait(context.Background(), "a", c, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if r.RSC != RSCOK {
		t.Fatalf("rsc %d", r.RSC)
	}

	c, _ = w.add("b")
	if _, err = w.wait(context.Background(), "b", c, 10*time.Millisecond); err != ErrTimeout {
		t.Fatalf("got %v", err)
	}
	if w.deliver(&Response{RQI: "b"}) {
		t.Fatal("delivered to a timed-out waiter")
	}

	c, _ = w.add("c")
	w.closeAll()
	if _, err = w.wait(context.Background(), "c", c, time.Second); err != ErrClosed {
		t.Fatalf("got %v", err)
	}
}

func TestContent(t *testing.T) {
	tests := []struct {
		name string
		pc   map[string]interface{}
		want string
		ok   bool
	}{
		{"cin", ContentInstance("on"), "on", true},
		{"nil", nil, "", false},
		{"cnt", Container("x"), "", false},
		{"number", map[string]interface{}{"m2m:cin": map[string]interface{}{"con": 1.0}}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := (&Response{PC: tt.pc}).Content()
			if got != tt.want || ok != tt.ok {
				t.Fatalf("got %q %v", got, ok)
			}
		})
	}
}
