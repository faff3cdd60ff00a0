// Package featureflags evaluates runtime toggles read from FEATURE_FLAGS.
package featureflags

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Flags consulted by the services.
const (
	// NotifySelfEngagement sends like/comment notifications for a user's own posts.
	NotifySelfEngagement = "notify_self_engagement"
	// RenderMarkdown fills content_html on posts and comments.
	RenderMarkdown = "render_markdown"
	// RealtimeNotifications publishes new notifications to websocket subscribers.
	RealtimeNotifications = "realtime_notifications"
)

// defaults apply when FEATURE_FLAGS does not mention a known flag.
var defaults = map[string]string{
	NotifySelfEngagement:  "off",
	RenderMarkdown:        "on",
	RealtimeNotifications: "on",
}

// Manager holds flag values in the form "name=on", "name=off" or "name=25%".
// Example: "notify_self_engagement=on,render_markdown=off".
type Manager struct {
	flags map[string]string
}

func NewManager(raw string) *Manager {
	flags := make(map[string]string, len(defaults))
	for k, v := range defaults {
		flags[k] = v
	}

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		flags[key] = value
	}
	return &Manager{flags: flags}
}

// Enabled evaluates a flag for one user. Percentage rollouts hash the
// flag name with the user id, so anonymous callers never fall in a bucket.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	switch {
	case err != nil || pct <= 0:
		return false
	case pct >= 100:
		return true
	case userID == 0:
		return false
	}
	return bucket(name, userID) < pct
}

// Raw returns a copy of the configured values, defaults included.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Names lists every known flag in alphabetical order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.flags))
	for name := range m.flags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot evaluates every flag for one user.
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

func bucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
