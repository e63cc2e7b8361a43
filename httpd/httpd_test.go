package httpd

import (
	"context"
	"errors"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Comcast/lightswitch/cse"
	"github.com/Comcast/lightswitch/schedule"
	"github.com/Comcast/lightswitch/script"
	"github.com/Comcast/lightswitch/synchronizer"
	. "github.com/Comcast/lightswitch/util/testutil"
)

func newServer(t *testing.T) (*Server, *Switch, *httptest.Server) {
	sw := NewSwitch()
	r := script.NewRunner(&script.Env{
		Cache:     sw.Cache,
		Remote:    sw.Client,
		Toggler:   sw.Toggler,
		Presenter: sw.Shown,
	})
	ss, err := script.Builtins()
	if err != nil {
		t.Fatal(err)
	}
	ss = append(ss, &script.Script{Name: "hidden", Code: "return 1;"})
	for _, s := range ss {
		if err := r.Add(context.Background(), s); err != nil {
			t.Fatal(err)
		}
	}
	s := New(sw.Toggler, r)
	s.Sync = synchronizer.New(sw.Client, "cse-mn/NoiseCancellationSystem/DeviceStatus")
	s.Scheduler = schedule.New(r)
	if err := s.Scheduler.AddScripts([]*script.Script{{Name: "lightswitch", At: "@daily"}}); err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, sw, ts
}

func do(t *testing.T, method, url string, hdrs map[string]string) (*http.Response, string) {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range hdrs {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	bs, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, strings.TrimSpace(string(bs))
}

func TestPing(t *testing.T) {
	_, _, ts := newServer(t)
	if _, body := do(t, "GET", ts.URL+"/ping", nil); body != `"pong"` {
		t.Fatal(body)
	}
}

func TestStatusAndToggle(t *testing.T) {
	_, sw, ts := newServer(t)

	_, body := do(t, "GET", ts.URL+"/status", nil)
	if body != `{"state":"off","source":"default"}` {
		t.Fatal(body)
	}

	resp, body := do(t, "POST", ts.URL+"/toggle", nil)
	if resp.StatusCode != http.StatusOK || body != `{"state":"on"}` {
		t.Fatal(resp.StatusCode, body)
	}
	if val, _ := sw.Remote(); val != "on" {
		t.Fatal(val)
	}

	_, body = do(t, "GET", ts.URL+"/status", nil)
	if body != `{"state":"on","source":"cache"}` {
		t.Fatal(body)
	}

	resp, body = do(t, "POST", ts.URL+"/toggle?autorun=true", nil)
	if resp.StatusCode != http.StatusOK || body != `{"state":"on"}` {
		t.Fatal(resp.StatusCode, body)
	}
	if n := sw.CSE.Count(SwitchConfig.Paths.Target()); n != 1 {
		t.Fatal(n)
	}

	if resp, _ = do(t, "GET", ts.URL+"/toggle", nil); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatal(resp.StatusCode)
	}
}

func TestToggleWriteFailure(t *testing.T) {
	_, sw, ts := newServer(t)
	sw.CSE.CreateRSC = cse.RSCInternalServerError

	resp, body := do(t, "POST", ts.URL+"/toggle", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatal(resp.StatusCode, body)
	}
	reply := Dwimjs(body).(map[string]interface{})
	if reply["state"] != "off" || reply["error"] == nil {
		t.Fatal(body)
	}
	if _, have := sw.Cached(t); have {
		t.Fatal("cache written after failed write")
	}
}

func TestRateLimit(t *testing.T) {
	s, _, ts := newServer(t)
	s.SetRateLimit(0.001, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, _ := do(t, "POST", ts.URL+"/toggle", nil)
		codes = append(codes, resp.StatusCode)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatal(codes)
	}

	s.SetRateLimit(0, 0)
	if resp, _ := do(t, "POST", ts.URL+"/toggle", nil); resp.StatusCode != 200 {
		t.Fatal(resp.StatusCode)
	}
}

func TestNotify(t *testing.T) {
	_, sw, ts := newServer(t)
	body := `{"m2m:sgn":{"nev":{"rep":{"m2m:cin":{"con":"ON"}}}}}`
	resp, err := http.Post(ts.URL+"/notify", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatal(resp.StatusCode)
	}
	if con, _ := sw.CSE.Latest("cse-mn/NoiseCancellationSystem/DeviceStatus"); con != "start" {
		t.Fatal(con)
	}
}

func TestUpperTester(t *testing.T) {
	_, sw, ts := newServer(t)
	url := ts.URL + DefaultUpperTesterPath

	tests := []struct {
		name   string
		cmd    string
		status int
		rsc    string
		rsp    string
	}{
		{"toggle", "lightswitch", 200, "2000", "on"},
		{"passive", "LIGHTSWITCH autorun", 200, "2000", "on"},
		{"toggle again", "lightswitch", 200, "2000", "off"},
		{"not permitted", "hidden", 400, "4000", `script "hidden" not permitted: not an upper tester script`},
		{"unknown", "nope", 400, "4000", `unknown script "nope"`},
		{"no command", "", 400, "4000", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hdrs := map[string]string{}
			if tt.cmd != "" {
				hdrs[HeaderUTCMD] = tt.cmd
			}
			resp, _ := do(t, "POST", url, hdrs)
			if resp.StatusCode != tt.status {
				t.Fatal(resp.StatusCode)
			}
			if got := resp.Header.Get(HeaderRSC); got != tt.rsc {
				t.Fatal(got)
			}
			if got := resp.Header.Get(HeaderUTRSP); got != tt.rsp {
				t.Fatal(got)
			}
		})
	}
	if n := sw.CSE.Count(SwitchConfig.Paths.Target()); n != 2 {
		t.Fatal(n)
	}
}

func TestScriptsAndJobs(t *testing.T) {
	_, _, ts := newServer(t)

	resp, body := do(t, "GET", ts.URL+"/scripts", nil)
	if resp.StatusCode != 200 || !strings.Contains(body, `id="lightswitch"`) {
		t.Fatal(resp.StatusCode, body)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatal(resp.Header.Get("Content-Type"))
	}

	_, body = do(t, "GET", ts.URL+"/jobs", nil)
	jobs, is := Dwimjs(body).([]interface{})
	if !is || len(jobs) != 1 {
		t.Fatal(body)
	}
}

func TestWrappedError(t *testing.T) {
	inner := errors.New("inner")
	if err := NewWrappedError(errors.New("outer"), nil); err.Error() != "outer" {
		t.Fatal(err)
	}
	err := NewWrappedError(errors.New("outer"), inner)
	if err.Error() != "outer after inner" {
		t.Fatal(err)
	}
	if !errors.Is(err, inner) {
		t.Fatal("not unwrapped")
	}
}

func TestListenAndServe(t *testing.T) {
	s, _, _ := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.ListenAndServe(ctx, "127.0.0.1:0")
	}()
	cancel()
	if err := <-done; err != context.Canceled && err != nil {
		t.Fatal(err)
	}
}
