package cse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPPath(t *testing.T) {
	tests := []struct {
		to, path string
	}{
		{"cse-in/a/b", "/cse-in/a/b"},
		{"/id-in/cse-in/a", "/~/id-in/cse-in/a"},
		{"//sp.example/id-in/a", "/_/sp.example/id-in/a"},
	}
	for _, tt := range tests {
		t.Run(tt.to, func(t *testing.T) {
			if got := HTTPPath(tt.to); got != tt.path {
				t.Fatalf(`HTTPPath "%s" != "%s"`, got, tt.path)
			}
			if got := PrimitiveTo(tt.path); got != tt.to {
				t.Fatalf(`PrimitiveTo "%s" != "%s"`, got, tt.to)
			}
		})
	}
}

func testHTTP(t *testing.T, ser Serialization) {
	m := NewMemory()
	server := httptest.NewServer(m)
	defer server.Close()

	tr, err := NewHTTPTransport(server.URL, ser, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient(tr, "CAdmin")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	container := "cse-in/CDemoLightswitch/switchContainer"

	resp, err := c.CreateContentInstance(ctx, container, "on")
	if err != nil {
		t.Fatal(err)
	}
	if resp.RSC != RSCCreated {
		t.Fatalf("create rsc %d", resp.RSC)
	}
	if resp.RQI == "" {
		t.Fatal("no rqi echoed")
	}

	resp, err = c.Retrieve(ctx, container+"/la")
	if err != nil {
		t.Fatal(err)
	}
	if resp.RSC != RSCOK {
		t.Fatalf("retrieve rsc %d", resp.RSC)
	}
	if con, _ := resp.Content(); con != "on" {
		t.Fatalf(`got "%s"`, con)
	}

	resp, err = c.Retrieve(ctx, "cse-in/nothing/la")
	if err != nil {
		t.Fatal(err)
	}
	if resp.RSC != RSCNotFound {
		t.Fatalf("missing rsc %d", resp.RSC)
	}
}

func TestHTTPJSON(t *testing.T) {
	testHTTP(t, JSON)
}

func TestHTTPCBOR(t *testing.T) {
	testHTTP(t, CBOR)
}

func TestHTTPHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	tr, err := NewHTTPTransport(server.URL, JSON, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient(tr, "CAdmin")

	resp, err := c.CreateContentInstance(context.Background(), "cse-in/x", "on")
	if err != nil {
		t.Fatal(err)
	}
	if resp.RSC != RSCCreated {
		t.Fatalf("rsc from status %d", resp.RSC)
	}
	if ct := got.Get("Content-Type"); ct != "application/json;ty=4" {
		t.Fatalf("content type %s", ct)
	}
	if o := got.Get(HeaderOrigin); o != "CAdmin" {
		t.Fatalf("origin %s", o)
	}
	if got.Get(HeaderRI) == "" || got.Get(HeaderRVI) != DefaultRVI {
		t.Fatalf("headers %v", got)
	}
}

func TestRSCHTTPStatus(t *testing.T) {
	for _, rsc := range []RSC{RSCOK, RSCCreated, RSCNotFound, RSCBadRequest, RSCConflict, RSCInternalServerError} {
		if back := RSCFromHTTP(rsc.HTTPStatus()); back != rsc {
			t.Fatalf("%d -> %d -> %d", rsc, rsc.HTTPStatus(), back)
		}
	}
}
