package scanner

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maxvaer/dirgraph/internal/analyzer"
)

func newTestRequester(t *testing.T, target string, follow bool) *Requester {
	t.Helper()
	req, err := NewRequester(RequesterConfig{
		Target:          target,
		Timeout:         5 * time.Second,
		FollowRedirects: follow,
		MaxConns:        4,
	})
	if err != nil {
		t.Fatalf("creating requester: %v", err)
	}
	return req
}

func TestRequesterDoSnippetAndSize(t *testing.T) {
	big := strings.Repeat("a", 5000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusFound)
			return
		}
		fmt.Fprint(w, big)
	}))
	defer srv.Close()

	req := newTestRequester(t, srv.URL+"/", false)

	resp, err := req.Do(context.Background(), "/page")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Size != 5000 {
		t.Errorf("Size = %d, want 5000", resp.Size)
	}
	if len(resp.Body) != SnippetSize {
		t.Errorf("snippet length = %d, want %d", len(resp.Body), SnippetSize)
	}
	if resp.URL != srv.URL+"/page" {
		t.Errorf("URL = %q", resp.URL)
	}

	resp, err = req.Do(context.Background(), "old")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want 302 with redirects disabled", resp.StatusCode)
	}
	if resp.RedirectURL != "/new" {
		t.Errorf("RedirectURL = %q, want /new", resp.RedirectURL)
	}
}

func TestRequesterFetchFollowsWhenAsked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/home", http.StatusMovedPermanently)
			return
		}
		w.Header().Set("X-Powered-By", "PHP/8.2")
		fmt.Fprint(w, "welcome home")
	}))
	defer srv.Close()

	req := newTestRequester(t, srv.URL, false)

	resp, err := req.Fetch(context.Background(), "", true)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 || string(resp.Body) != "welcome home" {
		t.Errorf("Fetch(follow) = %d %q", resp.StatusCode, resp.Body)
	}
	if resp.Header.Get("X-Powered-By") != "PHP/8.2" {
		t.Errorf("missing header from followed response")
	}

	resp, err = req.Fetch(context.Background(), "", false)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusMovedPermanently {
		t.Errorf("Fetch(no follow) status = %d, want 301", resp.StatusCode)
	}
}

func TestRequesterSendsHeaders(t *testing.T) {
	var gotUA, gotCustom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCustom = r.Header.Get("X-Test")
	}))
	defer srv.Close()

	req := newTestRequester(t, srv.URL, false)
	req.headers = map[string]string{"X-Test": "yes"}
	if _, err := req.Do(context.Background(), "/"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(gotUA, "dirgraph/") {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotCustom != "yes" {
		t.Errorf("X-Test = %q", gotCustom)
	}
}

func TestRequesterHostOverride(t *testing.T) {
	var gotHost string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Host
	}))
	defer srv.Close()

	req := newTestRequester(t, srv.URL, false)
	req.headers = map[string]string{"host": "vhost.test"}
	if _, err := req.Do(context.Background(), "/"); err != nil {
		t.Fatal(err)
	}
	if gotHost != "vhost.test" {
		t.Errorf("Host = %q, want vhost.test", gotHost)
	}
}

func TestRequesterCountsLargeChunkedBody(t *testing.T) {
	const total = 20 << 20
	chunk := []byte(strings.Repeat("z", 64<<10))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Flushing before the end forces chunked encoding.
		flusher := w.(http.Flusher)
		for sent := 0; sent < total; sent += len(chunk) {
			if _, err := w.Write(chunk); err != nil {
				return
			}
			flusher.Flush()
		}
	}))
	defer srv.Close()

	req := newTestRequester(t, srv.URL, false)
	resp, err := req.Do(context.Background(), "/big")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Size != total {
		t.Errorf("Size = %d, want %d", resp.Size, total)
	}
	if len(resp.Body) != SnippetSize {
		t.Errorf("snippet length = %d, want %d", len(resp.Body), SnippetSize)
	}
}

func TestRunWorkerPoolBoundsConcurrency(t *testing.T) {
	const threads = 3
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		if r.URL.Path == "/.git" {
			fmt.Fprint(w, "ref: refs/heads/main")
			return
		}
		w.WriteHeader(404)
	}))
	defer srv.Close()

	req := newTestRequester(t, srv.URL, false)
	items := make([]WorkItem, 30)
	for i := range items {
		items[i] = WorkItem{Path: fmt.Sprintf("/p%d", i)}
	}
	items[7] = WorkItem{Path: "/.git"}

	var count int
	var gitSeen bool
	for res := range RunWorkerPool(context.Background(), req, items, WorkerConfig{Threads: threads}) {
		count++
		if res.Error != nil {
			t.Fatalf("unexpected error for %s: %v", res.Item.Path, res.Error)
		}
		if res.Item.Path == "/.git" {
			gitSeen = true
			if len(res.Result.Issues) != 1 || res.Result.Issues[0] != analyzer.SensitivePath {
				t.Errorf("issues = %v", res.Result.Issues)
			}
			if res.Result.Size == nil || *res.Result.Size != int64(len("ref: refs/heads/main")) {
				t.Errorf("size = %v", res.Result.Size)
			}
		} else if res.Result.Size != nil {
			t.Errorf("empty body should leave size unset, got %d", *res.Result.Size)
		}
	}

	if count != len(items) {
		t.Errorf("got %d results, want %d", count, len(items))
	}
	if !gitSeen {
		t.Error("missing /.git result")
	}
	if peak.Load() > threads {
		t.Errorf("peak in-flight = %d, exceeds %d workers", peak.Load(), threads)
	}
}

func TestPoolSize(t *testing.T) {
	tests := []struct {
		threads, items, want int
	}{
		{64, 1000, 64},
		{200000, 2, 2},
		{0, 10, 1},
		{8, 0, 1},
	}
	for _, tt := range tests {
		if got := poolSize(tt.threads, tt.items); got != tt.want {
			t.Errorf("poolSize(%d, %d) = %d, want %d", tt.threads, tt.items, got, tt.want)
		}
	}
}

func TestRunWorkerPoolReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	req, err := NewRequester(RequesterConfig{Target: srv.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	items := []WorkItem{{Path: "/a"}, {Path: "/b"}}
	var failures int
	for res := range RunWorkerPool(context.Background(), req, items, WorkerConfig{Threads: 2}) {
		if res.Error == nil {
			t.Errorf("expected timeout for %s", res.Item.Path)
		}
		if res.Result != nil {
			t.Errorf("failed unit carried a result")
		}
		failures++
	}
	if failures != 2 {
		t.Errorf("failures = %d, want 2", failures)
	}
}

func TestRunWorkerPoolStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
	}))
	defer srv.Close()

	req := newTestRequester(t, srv.URL, false)
	items := make([]WorkItem, 500)
	for i := range items {
		items[i] = WorkItem{Path: fmt.Sprintf("/x%d", i)}
	}

	ctx, cancel := context.WithCancel(context.Background())
	results := RunWorkerPool(ctx, req, items, WorkerConfig{Threads: 2})
	<-results
	cancel()

	count := 1
	timeout := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-results:
			if !ok {
				if count >= len(items) {
					t.Errorf("pool processed every item despite cancel")
				}
				return
			}
			count++
		case <-timeout:
			t.Fatal("results channel not closed after cancel")
		}
	}
}
