// Package featureflags evaluates rollout flags from configuration, e.g.
// gating report sharing or image replies to a percentage of members.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

type flagMode int

const (
	modeOff flagMode = iota
	modeOn
	modePercent
)

type flagValue struct {
	mode    flagMode
	raw     string
	percent int
}

// Manager holds parsed flags from a comma-separated config list, e.g.
// "report_sharing=on,image_replies=25%,legacy_feed=off".
type Manager struct {
	flags map[string]flagValue
}

// NewManager parses the config string. Malformed pairs are skipped rather
// than failing startup.
func NewManager(raw string) *Manager {
	flags := make(map[string]flagValue)

	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name = normalize(name)
		value = normalize(value)
		if name == "" || value == "" {
			continue
		}
		flags[name] = parseValue(value)
	}

	return &Manager{flags: flags}
}

func parseValue(value string) flagValue {
	switch value {
	case "on", "true", "1":
		return flagValue{mode: modeOn, raw: value}
	case "off", "false", "0":
		return flagValue{mode: modeOff, raw: value}
	}
	if pctRaw, ok := strings.CutSuffix(value, "%"); ok {
		if pct, err := strconv.Atoi(pctRaw); err == nil {
			return flagValue{mode: modePercent, raw: value, percent: pct}
		}
	}
	// Unknown values behave as off so a typo never opens a gate.
	return flagValue{mode: modeOff, raw: value}
}

// Enabled evaluates a flag for one member. Percentage flags bucket
// deterministically by flag name and user ID, so a member stays in or out
// of a rollout across requests.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	flag, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch flag.mode {
	case modeOn:
		return true
	case modePercent:
		if flag.percent <= 0 {
			return false
		}
		if flag.percent >= 100 {
			return true
		}
		// Anonymous browsers have no stable bucket; keep them out.
		if userID == 0 {
			return false
		}
		return rolloutBucket(name, userID) < flag.percent
	default:
		return false
	}
}

// Raw returns the configured flag values as written.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for name, flag := range m.flags {
		out[name] = flag.raw
	}
	return out
}

// Snapshot evaluates every flag for one member, for the admin dashboard.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(name), userID)))
	return int(h.Sum32() % 100)
}
