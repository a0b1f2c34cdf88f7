// Package featureflags evaluates switches such as "reply_counts=on,poster_thumbnails=25%".
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Flags read by the board.
const (
	// ReplyCounts enables the aggregated reply-count query on the list view.
	ReplyCounts = "reply_counts"
	// PosterThumbnails enables webp thumbnail generation on poster upload.
	PosterThumbnails = "poster_thumbnails"
)

// rule is a parsed flag value: a rollout percentage where on is 100 and off
// is 0.
type rule struct {
	percent int
	literal string
}

type Manager struct {
	rules map[string]rule
}

// NewManager parses a comma-separated list of name=value pairs. Values are
// on/true/1, off/false/0 or N%. Malformed pairs are dropped.
func NewManager(raw string) *Manager {
	m := &Manager{rules: make(map[string]rule)}
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name, value = canonical(name), canonical(value)
		if name == "" {
			continue
		}
		if r, ok := parseRule(value); ok {
			m.rules[name] = r
		}
	}
	return m
}

func parseRule(value string) (rule, bool) {
	switch value {
	case "on", "true", "1":
		return rule{percent: 100, literal: value}, true
	case "off", "false", "0":
		return rule{percent: 0, literal: value}, true
	}
	digits, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return rule{}, false
	}
	pct, err := strconv.Atoi(digits)
	if err != nil {
		return rule{}, false
	}
	return rule{percent: min(max(pct, 0), 100), literal: value}, true
}

// On reports whether a flag is on for everyone. Partial rollouts are off here.
func (m *Manager) On(name string) bool {
	return m.Enabled(name, "")
}

// Enabled reports whether name is on for subject, typically a client IP.
// Partial rollouts bucket subjects deterministically.
func (m *Manager) Enabled(name, subject string) bool {
	if m == nil {
		return false
	}
	r, ok := m.rules[canonical(name)]
	switch {
	case !ok || r.percent == 0:
		return false
	case r.percent == 100:
		return true
	case subject == "":
		return false
	}
	return bucket(canonical(name), subject) < r.percent
}

// String renders the configured flags sorted by name, for startup logs.
func (m *Manager) String() string {
	if m == nil {
		return ""
	}
	names := make([]string, 0, len(m.rules))
	for name := range m.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%s", name, m.rules[name].literal)
	}
	return strings.Join(parts, ",")
}

func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name, subject string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name + ":" + subject))
	return int(h.Sum32() % 100)
}
