// Package search decides which fully qualified type names a scan or a filter
// should consider.
//
// A Search holds include and exclude prefix rules. The longest matching rule
// wins; when no rule matches, the search falls back to its default. Prefixes
// match on package or type boundaries, so "app/feat" matches "app/feat.Foo" and
// "app/feat/sub.Bar" but not "app/features.Baz".
package search

import (
	"sort"
	"strings"
	"sync"
)

// Search is a set of prefix rules with a default verdict.
type Search struct {
	mu       sync.RWMutex
	rules    map[string]bool
	fallback bool
}

// Wide includes everything not explicitly excluded.
func Wide() *Search {
	return &Search{rules: make(map[string]bool), fallback: true}
}

// Empty excludes everything not explicitly included.
func Empty() *Search {
	return &Search{rules: make(map[string]bool), fallback: false}
}

// DefaultExclusions are the namespaces a Narrow search skips. They hold test
// plumbing that never declares plugins.
var DefaultExclusions = []string{
	"testing",
	"runtime",
	"featurert/internal/testutil",
}

// Narrow is a Wide search with DefaultExclusions applied.
func Narrow() *Search {
	s := Wide()
	for _, prefix := range DefaultExclusions {
		s.Exclude(prefix)
	}
	return s
}

// Include adds an include rule and returns the search for chaining.
func (s *Search) Include(prefix string) *Search {
	s.set(prefix, true)
	return s
}

// Exclude adds an exclude rule and returns the search for chaining.
func (s *Search) Exclude(prefix string) *Search {
	s.set(prefix, false)
	return s
}

func (s *Search) set(prefix string, include bool) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[prefix] = include
}

// Matches reports whether name is included.
func (s *Search) Matches(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := -1
	verdict := s.fallback
	for prefix, include := range s.rules {
		if len(prefix) <= best || !hasBoundaryPrefix(name, prefix) {
			continue
		}
		best = len(prefix)
		verdict = include
	}
	return verdict
}

// Rules returns the rules in prefix order, mostly for diagnostics.
func (s *Search) Rules() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Rule, 0, len(s.rules))
	for prefix, include := range s.rules {
		out = append(out, Rule{Prefix: prefix, Include: include})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prefix < out[j].Prefix })
	return out
}

// Rule is one include or exclude prefix.
type Rule struct {
	Prefix  string
	Include bool
}

func hasBoundaryPrefix(name, prefix string) bool {
	if !strings.HasPrefix(name, prefix) {
		return false
	}
	if len(name) == len(prefix) {
		return true
	}
	switch prefix[len(prefix)-1] {
	case '/', '.':
		return true
	}
	switch name[len(prefix)] {
	case '/', '.':
		return true
	}
	return false
}
