package watcher

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	DefaultHost        = "meet.google.com"
	DefaultPathPattern = `^/[a-z]{3}-[a-z]{4}-[a-z]{3}`
)

// Rule qualifies a URL by exact host and a path pattern.
type Rule struct {
	Host string
	Path *regexp.Regexp
}

// Matcher reports whether a tab URL is a meeting that should be recorded.
type Matcher struct {
	rules []Rule
}

// NewMatcher returns a matcher with no rules; it matches nothing until
// rules are added.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// DefaultMatcher qualifies meeting-room URLs on the default host.
func DefaultMatcher() *Matcher {
	return &Matcher{rules: []Rule{{Host: DefaultHost, Path: regexp.MustCompile(DefaultPathPattern)}}}
}

// Add compiles a host/pattern pair. An empty pattern matches any path.
func (m *Matcher) Add(host, pattern string) error {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return fmt.Errorf("watch rule: host is required")
	}
	if pattern == "" {
		pattern = ".*"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("watch rule %s: %w", host, err)
	}
	m.rules = append(m.rules, Rule{Host: host, Path: re})
	return nil
}

func (m *Matcher) Matches(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, r := range m.rules {
		if host == r.Host && r.Path.MatchString(u.Path) {
			return true
		}
	}
	return false
}

func (m *Matcher) Len() int { return len(m.rules) }
