package fingerprint

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/maxvaer/dirgraph/internal/filter"
	"github.com/maxvaer/dirgraph/internal/scanner"
)

func TestNewLowercasesAndScansHead(t *testing.T) {
	body := `<html><head><TITLE> Acme Portal </TITLE>
<meta name="Generator" content="WordPress 6.4"></head><body>Hello</body></html>`
	h := http.Header{"X-Powered-By": {"PHP/8.1"}, "Server": {"nginx"}}

	fp := New("http://t", []byte(body), h)
	if fp.Title != "Acme Portal" {
		t.Errorf("Title = %q", fp.Title)
	}
	if fp.Generator != "wordpress 6.4" {
		t.Errorf("Generator = %q", fp.Generator)
	}
	if fp.Headers["x-powered-by"] != "php/8.1" {
		t.Errorf("headers not normalized: %v", fp.Headers)
	}
	if strings.Contains(fp.Body, "Hello") {
		t.Error("body should be lower-cased")
	}
}

func TestScanHeadIgnoresBodyMeta(t *testing.T) {
	gen, title := scanHead(`<html><body><meta name="generator" content="Joomla"><title>x</title></body></html>`)
	if gen != "" || title != "" {
		t.Errorf("scanHead = %q, %q, want empty", gen, title)
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		headers http.Header
		want    []string
	}{
		{"empty", "", nil, []string{}},
		{"wordpress body", `<link href="/wp-content/themes/x.css">`, nil, []string{"wordpress"}},
		{"wordpress generator", `<head><meta name="generator" content="WordPress 6"></head>`, nil, []string{"wordpress"}},
		{"drupal", `jQuery.extend(Drupal.settings, {})`, nil, []string{"drupal"}},
		{"joomla", `powered by Joomla!`, nil, []string{"joomla"}},
		{"json api", `{}`, http.Header{"Content-Type": {"application/json; charset=utf-8"}}, []string{"api"}},
		{"swagger body", `<div id="swagger-ui">`, nil, []string{"api"}},
		{"iis", ``, http.Header{"Server": {"Microsoft-IIS/10.0"}}, []string{"iis"}},
		{"asp.net", ``, http.Header{"X-Powered-By": {"ASP.NET"}}, []string{"iis"}},
		{"php header", ``, http.Header{"X-Powered-By": {"PHP/7.4"}}, []string{"php"}},
		{"php body", `<a href="index.php">`, nil, []string{"php"}},
		{"wordpress and php", `<script src="/wp-includes/js/a.js"></script><a href="/index.php">`, nil, []string{"wordpress", "php"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(New("http://t", []byte(tt.body), tt.headers)).Names()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Names() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtensionHints(t *testing.T) {
	if got := ExtensionHints(Signals{IIS: true, PHP: true}); !reflect.DeepEqual(got, []string{".aspx", ".asp"}) {
		t.Errorf("IIS hints = %v", got)
	}
	if got := ExtensionHints(Signals{PHP: true}); !reflect.DeepEqual(got, []string{".php"}) {
		t.Errorf("PHP hints = %v", got)
	}
	if got := ExtensionHints(Signals{WordPress: true}); len(got) != 0 {
		t.Errorf("no-hint case = %v", got)
	}
}

func TestBaselinePath(t *testing.T) {
	re := regexp.MustCompile(`^/[a-z]{18}/$`)
	a, b := BaselinePath(), BaselinePath()
	if !re.MatchString(a) {
		t.Errorf("BaselinePath() = %q", a)
	}
	if a == b {
		t.Errorf("two baseline paths collided: %q", a)
	}
}

func newRequester(t *testing.T, target string) *scanner.Requester {
	t.Helper()
	req, err := scanner.NewRequester(scanner.RequesterConfig{Target: target, Timeout: 200 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestProberProbeAndBaseline(t *testing.T) {
	var baselinePath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			http.Redirect(w, r, "/start", http.StatusFound)
		case "/start":
			w.Header().Set("X-Powered-By", "PHP/8.2")
			fmt.Fprint(w, "<title>Start</title>")
		default:
			baselinePath = r.URL.Path
			http.Redirect(w, r, "/login", http.StatusFound)
		}
	}))
	defer srv.Close()

	p := NewProber(newRequester(t, srv.URL), nil)

	fp := p.Probe(context.Background())
	if fp.Title != "Start" {
		t.Errorf("Probe did not follow redirect: title %q", fp.Title)
	}
	if !Detect(fp).PHP {
		t.Error("expected PHP signal")
	}

	bl := p.Baseline(context.Background())
	if bl.Status != http.StatusFound {
		t.Errorf("baseline followed redirect: %+v", bl)
	}
	if !regexp.MustCompile(`^/[a-z]{18}/$`).MatchString(baselinePath) {
		t.Errorf("baseline requested %q", baselinePath)
	}
}

func TestProberFailuresAreSoft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	p := NewProber(newRequester(t, srv.URL), nil)

	fp := p.Probe(context.Background())
	if !fp.Empty() {
		t.Errorf("expected empty fingerprint, got %+v", fp)
	}
	if got := Detect(fp).Names(); len(got) != 0 {
		t.Errorf("empty fingerprint produced signals %v", got)
	}
	if bl := p.Baseline(context.Background()); bl != filter.UnreachableBaseline {
		t.Errorf("Baseline = %+v, want %+v", bl, filter.UnreachableBaseline)
	}
}
