// Package fingerprint derives technology signals from the target's landing
// page and measures the soft-404 baseline.
package fingerprint

import (
	"net/http"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Fingerprint is the landing page captured before enumeration. Body and
// header values are lower-cased for matching; Title keeps its original case.
type Fingerprint struct {
	URL       string            `json:"url"`
	Body      string            `json:"-"`
	Headers   map[string]string `json:"headers"`
	Generator string            `json:"generator,omitempty"`
	Title     string            `json:"title,omitempty"`
}

// New builds a Fingerprint from a raw response.
func New(url string, body []byte, header http.Header) Fingerprint {
	fp := Fingerprint{
		URL:     url,
		Headers: make(map[string]string, len(header)),
	}
	for k, vs := range header {
		fp.Headers[strings.ToLower(k)] = strings.ToLower(strings.Join(vs, ", "))
	}
	raw := string(body)
	fp.Generator, fp.Title = scanHead(raw)
	fp.Generator = strings.ToLower(fp.Generator)
	fp.Body = strings.ToLower(raw)
	return fp
}

// Empty reports whether nothing was captured.
func (f Fingerprint) Empty() bool {
	return f.Body == "" && len(f.Headers) == 0
}

// header returns a lower-cased header value, or "" when absent.
func (f Fingerprint) header(name string) string {
	return f.Headers[name]
}

// scanHead extracts the <meta name="generator"> content and the <title> text.
// It stops at </head> or the first <body>.
func scanHead(doc string) (generator, title string) {
	if doc == "" {
		return "", ""
	}
	z := html.NewTokenizer(strings.NewReader(doc))
	var inTitle bool
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return generator, title
		case html.StartTagToken, html.SelfClosingTagToken:
			t := z.Token()
			switch t.DataAtom {
			case atom.Title:
				inTitle = tt == html.StartTagToken
			case atom.Meta:
				var name, content string
				for _, a := range t.Attr {
					switch strings.ToLower(a.Key) {
					case "name":
						name = strings.ToLower(a.Val)
					case "content":
						content = a.Val
					}
				}
				if name == "generator" && generator == "" {
					generator = strings.TrimSpace(content)
				}
			case atom.Body:
				return generator, title
			}
		case html.EndTagToken:
			t := z.Token()
			switch t.DataAtom {
			case atom.Title:
				inTitle = false
			case atom.Head:
				return generator, title
			}
		case html.TextToken:
			if inTitle && title == "" {
				title = strings.TrimSpace(string(z.Text()))
			}
		}
	}
}
