package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Comcast/lightswitch/script"
)

type runs struct {
	sync.Mutex
	names []string
	ins   []script.Invocation
	err   error
}

func (r *runs) Run(ctx context.Context, name string, in script.Invocation) (interface{}, error) {
	r.Lock()
	defer r.Unlock()
	r.names = append(r.names, name)
	r.ins = append(r.ins, in)
	return nil, r.err
}

func (r *runs) count() int {
	r.Lock()
	defer r.Unlock()
	return len(r.names)
}

func TestNext(t *testing.T) {
	after := time.Date(2024, 3, 1, 10, 7, 30, 0, time.UTC)
	got, err := Next("0 */15 * * * * *", after)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatal(got)
	}
	if _, err = Next("not cron", after); err == nil {
		t.Fatal("should have complained")
	}
}

func TestAddBad(t *testing.T) {
	s := New(&runs{})
	if err := s.Add("x", "bogus"); err == nil {
		t.Fatal("should have complained")
	}
	if len(s.Jobs()) != 0 {
		t.Fatal(s.Jobs())
	}
}

func TestAddScripts(t *testing.T) {
	s := New(&runs{})
	err := s.AddScripts([]*script.Script{
		{Name: "b", At: "@hourly"},
		{Name: "never"},
		{Name: "a", At: "0 0 * * *"},
	})
	if err != nil {
		t.Fatal(err)
	}
	jobs := s.Jobs()
	if len(jobs) != 2 || jobs[0].Script != "a" || jobs[1].Script != "b" {
		t.Fatalf("%#v", jobs)
	}
	if !s.Remove("a") || s.Remove("a") {
		t.Fatal("remove")
	}
}

func TestFires(t *testing.T) {
	r := &runs{err: errors.New("oops")}
	s := New(r)
	if err := s.Add("tick", "* * * * * * *"); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for r.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("didn't fire")
		}
		time.Sleep(50 * time.Millisecond)
	}
	cancel()
	s.Wait()

	r.Lock()
	defer r.Unlock()
	for i, in := range r.ins {
		if r.names[i] != "tick" || in.IsInteractive() {
			t.Fatalf("%s %#v", r.names[i], in)
		}
	}
	j := s.Jobs()[0]
	if j.Runs < 2 || j.LastErr != "oops" {
		t.Fatalf("%#v", j)
	}
}

func TestRemoveStops(t *testing.T) {
	r := &runs{}
	s := New(r)
	if err := s.Add("later", "@yearly"); err != nil {
		t.Fatal(err)
	}
	s.Start(context.Background())
	s.Remove("later")

	done := make(chan bool)
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job still running")
	}
	if r.count() != 0 {
		t.Fatal(r.count())
	}
}
