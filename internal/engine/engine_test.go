package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/maxvaer/dirgraph/internal/events"
	"github.com/maxvaer/dirgraph/internal/filter"
	"github.com/maxvaer/dirgraph/internal/metrics"
	"github.com/maxvaer/dirgraph/internal/scanner"
)

// recorder is a thread-safe sink that can stop accepting after n events.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
	limit  int
}

func (r *recorder) Emit(ev events.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.limit > 0 && len(r.events) >= r.limit {
		return false
	}
	r.events = append(r.events, ev)
	return true
}

func (r *recorder) ofType(t events.Type) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func newEngine(t *testing.T, target string, exts []string, opts ...Option) *Engine {
	t.Helper()
	e, err := New(Config{
		Target:      target,
		Concurrency: 4,
		Timeout:     2 * time.Second,
		Extensions:  exts,
	}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestExpandPaths(t *testing.T) {
	got := ExpandPaths([]string{"/login", "/index.php", "/admin/"}, []string{".php"})
	want := []string{"/login", "/login.php", "/index.php", "/admin/", "/admin.php"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandPaths = %v, want %v", got, want)
	}

	got = ExpandPaths([]string{"/a", "/b.asp"}, []string{".aspx", ".asp"})
	want = []string{"/a", "/a.aspx", "/a.asp", "/b.asp", "/b.asp.aspx"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandPaths = %v, want %v", got, want)
	}

	got = ExpandPaths([]string{"/", "/admin/"}, []string{".php"})
	want = []string{"/", "/admin/", "/admin.php"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandPaths(root) = %v, want %v", got, want)
	}

	if got := ExpandPaths(nil, []string{".php"}); len(got) != 0 {
		t.Errorf("ExpandPaths(nil) = %v", got)
	}
}

func TestRunUnitCountAndFinalProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	candidates := make([]string, 25)
	for i := range candidates {
		candidates[i] = fmt.Sprintf("/c%d", i)
	}
	e := newEngine(t, srv.URL, []string{".aspx", ".asp"})
	rec := &recorder{}

	retained, err := e.Run(context.Background(), candidates, filter.UnreachableBaseline, rec)
	if err != nil {
		t.Fatal(err)
	}

	progress := rec.ofType(events.TypeProgress)
	if len(progress) != 25*3 {
		t.Fatalf("progress events = %d, want %d", len(progress), 25*3)
	}
	last := *progress[len(progress)-1].Value
	if last != 1.0 {
		t.Errorf("final progress = %v, want exactly 1.0", last)
	}
	prev := 0.0
	for _, p := range progress {
		if *p.Value <= prev {
			t.Fatalf("progress not increasing: %v after %v", *p.Value, prev)
		}
		prev = *p.Value
	}
	if n := len(rec.ofType(events.TypeFound)); n != 0 {
		t.Errorf("404s reported as found: %d", n)
	}
	if len(retained) != 75 {
		t.Errorf("retained = %d, want every completed 404", len(retained))
	}
}

func TestRunSoft404EndToEnd(t *testing.T) {
	generic := strings.Repeat("n", 5000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin":
			fmt.Fprint(w, strings.Repeat("a", 12000))
		case "/secret":
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, generic)
		case "/moved":
			http.Redirect(w, r, "/elsewhere", http.StatusMovedPermanently)
		default:
			fmt.Fprint(w, generic)
		}
	}))
	defer srv.Close()

	baseline := filter.Baseline{Status: 200, Size: 5000}
	m := metrics.New()
	e := newEngine(t, srv.URL, nil, WithMetrics(m))
	rec := &recorder{}

	retained, err := e.Run(context.Background(), []string{"/realpage", "/admin", "/secret", "/moved"}, baseline, rec)
	if err != nil {
		t.Fatal(err)
	}

	found := map[string]*scanner.ProbeResult{}
	for _, ev := range rec.ofType(events.TypeFound) {
		found[ev.Item.Path] = ev.Item
	}
	if _, ok := found["/realpage"]; ok {
		t.Error("/realpage matches the baseline and must be suppressed")
	}
	admin, ok := found["/admin"]
	if !ok {
		t.Fatal("/admin missing from found events")
	}
	if admin.Status != 200 || admin.SizeOr(0) != 12000 {
		t.Errorf("/admin = %+v", admin)
	}
	if admin.Issues == nil {
		t.Error("issues should be a non-nil slice")
	}
	if _, ok := found["/secret"]; !ok {
		t.Error("403 with baseline size must not be suppressed")
	}
	if moved := found["/moved"]; moved == nil || moved.RedirectedTo != "/elsewhere" {
		t.Errorf("/moved = %+v", moved)
	}

	for _, r := range retained {
		if r.Path == "/realpage" {
			t.Error("/realpage in retained set")
		}
	}
	if len(retained) != 3 {
		t.Errorf("retained = %d, want 3", len(retained))
	}
}

func TestRunFoundPrecedesProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	e := newEngine(t, srv.URL, nil)
	rec := &recorder{}
	if _, err := e.Run(context.Background(), []string{"/only"}, filter.UnreachableBaseline, rec); err != nil {
		t.Fatal(err)
	}
	if len(rec.events) != 2 || rec.events[0].Type != events.TypeFound || rec.events[1].Type != events.TypeProgress {
		t.Errorf("events = %+v", rec.events)
	}
}

func TestRunFailuresDoNotAbort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			time.Sleep(500 * time.Millisecond)
		}
		fmt.Fprint(w, "fine")
	}))
	defer srv.Close()

	e, err := New(Config{Target: srv.URL, Concurrency: 2, Timeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	retained, err := e.Run(context.Background(), []string{"/slow", "/ok1", "/ok2"}, filter.UnreachableBaseline, rec)
	if err != nil {
		t.Fatal(err)
	}
	if len(retained) != 2 {
		t.Errorf("retained = %d, want 2", len(retained))
	}
	if n := len(rec.ofType(events.TypeProgress)); n != 3 {
		t.Errorf("progress = %d, failed unit must still count", n)
	}
}

func TestRunReportFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "1234")
	}))
	defer srv.Close()

	e := newEngine(t, srv.URL, nil, WithReportFilters(filter.NewSizeFilter([]int{4})))
	rec := &recorder{}
	retained, err := e.Run(context.Background(), []string{"/a", "/b"}, filter.UnreachableBaseline, rec)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(rec.ofType(events.TypeFound)); n != 0 {
		t.Errorf("size-filtered results were reported: %d", n)
	}
	if len(retained) != 2 {
		t.Errorf("retained = %d, want 2", len(retained))
	}
}

func TestRunCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		fmt.Fprint(w, "page")
	}))
	defer srv.Close()

	candidates := make([]string, 2000)
	for i := range candidates {
		candidates[i] = fmt.Sprintf("/p%d", i)
	}
	e := newEngine(t, srv.URL, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var seen int
	var afterCancel bool
	sink := events.SinkFunc(func(ev events.Event) bool {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			afterCancel = true
		}
		seen++
		if seen == 20 {
			cancel()
		}
		return true
	})

	done := make(chan error, 1)
	go func() {
		_, err := e.Run(ctx, candidates, filter.UnreachableBaseline, sink)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected context error after cancel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if afterCancel {
		t.Error("events emitted after cancellation")
	}
	if seen >= 2*len(candidates) {
		t.Error("run completed every unit despite cancel")
	}
}

func TestRunStopsWhenSinkCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Millisecond)
	}))
	defer srv.Close()

	candidates := make([]string, 1000)
	for i := range candidates {
		candidates[i] = fmt.Sprintf("/q%d", i)
	}
	e := newEngine(t, srv.URL, nil)
	rec := &recorder{limit: 5}

	if _, err := e.Run(context.Background(), candidates, filter.UnreachableBaseline, rec); err == nil {
		t.Error("expected run to stop once the sink refused events")
	}
	if len(rec.events) != 5 {
		t.Errorf("recorded %d events, want 5", len(rec.events))
	}
}
