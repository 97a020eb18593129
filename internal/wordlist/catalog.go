// Package wordlist indexes the on-disk corpus, picks the lists that suit a
// fingerprinted target and turns them into candidate paths.
package wordlist

import (
	"path/filepath"
	"sort"
)

// Category groups corpus files of the same kind.
type Category string

const (
	Base   Category = "base"
	Raft   Category = "raft"
	CMS    Category = "cms"
	SVN    Category = "svn"
	Custom Category = "custom"
)

// Categories lists the indexed categories in catalog order.
var Categories = []Category{Base, Raft, CMS, SVN}

// patterns maps glob patterns, relative to the corpus root, to categories.
var patterns = []struct {
	glob     string
	category Category
}{
	{"directory-list-2.3-*.txt", Base},
	{"raft-*-directories.txt", Raft},
	{filepath.Join("CMS", "*.txt"), CMS},
	{filepath.Join("SVNDigger", "cat", "*", "*.txt"), SVN},
}

// Catalog maps each category to its sorted corpus files. Every indexed
// category is present, possibly empty.
type Catalog map[Category][]string

// Empty reports whether no corpus file was found.
func (c Catalog) Empty() bool {
	for _, files := range c {
		if len(files) > 0 {
			return false
		}
	}
	return true
}

// Len returns the total number of indexed files.
func (c Catalog) Len() int {
	n := 0
	for _, files := range c {
		n += len(files)
	}
	return n
}

// Index scans root for corpus files. A missing root gives an empty catalog.
func Index(root string) Catalog {
	cat := make(Catalog, len(Categories))
	for _, c := range Categories {
		cat[c] = []string{}
	}
	if root == "" {
		return cat
	}
	for _, p := range patterns {
		// Glob only fails on a malformed pattern.
		matches, _ := filepath.Glob(filepath.Join(root, p.glob))
		cat[p.category] = append(cat[p.category], matches...)
	}
	for _, c := range Categories {
		sort.Strings(cat[c])
	}
	return cat
}
