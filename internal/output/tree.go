package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/maxvaer/dirgraph/internal/scanner"
)

// treeNode is one path segment. status is 0 for segments that were only
// implied by a deeper finding.
type treeNode struct {
	name     string
	status   int
	children map[string]*treeNode
}

func (n *treeNode) child(name string) *treeNode {
	if n.children == nil {
		n.children = make(map[string]*treeNode)
	}
	c, ok := n.children[name]
	if !ok {
		c = &treeNode{name: name}
		n.children[name] = c
	}
	return c
}

// PrintTree renders findings as a path hierarchy under the target root.
// Intermediate segments without a finding of their own are still shown.
func PrintTree(w io.Writer, root string, findings []*scanner.ProbeResult) {
	if len(findings) == 0 {
		return
	}

	top := &treeNode{name: root}
	for _, f := range findings {
		p := strings.Trim(f.Path, "/")
		if p == "" {
			continue
		}
		node := top
		for _, part := range strings.Split(p, "/") {
			node = node.child(part)
		}
		if node.status == 0 {
			node.status = f.Status
		}
	}

	fmt.Fprintf(w, "\n  %s\n", top.name)
	printChildren(w, top, "  ")
}

func printChildren(w io.Writer, node *treeNode, prefix string) {
	names := make([]string, 0, len(node.children))
	for name := range node.children {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		child := node.children[name]
		isLast := i == len(names)-1
		connector := "├── "
		nextPrefix := prefix + "│   "
		if isLast {
			connector = "└── "
			nextPrefix = prefix + "    "
		}
		label := child.name
		if child.status != 0 {
			label = fmt.Sprintf("%s (%d)", child.name, child.status)
		}
		fmt.Fprintf(w, "%s%s%s\n", prefix, connector, label)
		printChildren(w, child, nextPrefix)
	}
}
