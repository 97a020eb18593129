package wordlist

import (
	"bufio"
	"os"
	"strings"
)

// maxLine bounds a single corpus line.
const maxLine = 1 << 20

// Normalize trims a corpus line and forces a leading slash. ok is false for
// blank and comment lines.
func Normalize(line string) (path string, ok bool) {
	s := strings.TrimSpace(line)
	if s == "" || strings.HasPrefix(s, "#") {
		return "", false
	}
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	return s, true
}

// Generate reads the selected files in order and returns at most limit
// unique candidates. Generation stops as soon as the limit is reached.
// Unreadable files are skipped. A limit <= 0 means no limit.
func Generate(picks []Pick, limit int) []string {
	g := newGenerator(limit)
	for _, p := range picks {
		if g.full() {
			break
		}
		g.readFile(p.Path)
	}
	return g.out
}

// FromLines applies the same normalization and dedupe to in-memory lines.
func FromLines(lines []string, limit int) []string {
	g := newGenerator(limit)
	for _, l := range lines {
		if g.full() {
			break
		}
		g.add(l)
	}
	return g.out
}

type generator struct {
	limit int
	seen  map[string]struct{}
	out   []string
}

func newGenerator(limit int) *generator {
	return &generator{limit: limit, seen: make(map[string]struct{}), out: []string{}}
}

func (g *generator) full() bool {
	return g.limit > 0 && len(g.out) >= g.limit
}

func (g *generator) add(line string) {
	s, ok := Normalize(line)
	if !ok {
		return
	}
	if _, dup := g.seen[s]; dup {
		return
	}
	g.seen[s] = struct{}{}
	g.out = append(g.out, s)
}

func (g *generator) readFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	for sc.Scan() {
		if g.full() {
			return
		}
		g.add(sc.Text())
	}
}
