package settings

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"socket/internal/errs"
)

// DebugSuffix is appended to the identity keys when debug mode is active.
const DebugSuffix = "-dev"

var debugSuffixKeys = []string{"name", "title", "executable"}

// Settings is the ordered key/value mapping loaded from settings.config. The
// pipeline mutates it in place: the debug suffix is applied once before any
// path derivation, and the layout resolver writes derived keys back so later
// manifest rendering can read them.
type Settings struct {
	keys   []string
	values map[string]string
	raw    string

	debugApplied bool
}

// New returns an empty mapping.
func New() *Settings {
	return &Settings{values: map[string]string{}}
}

// Parse decodes newline-delimited "key: value" records. Lines starting with
// '#' and blank lines are ignored; the first ':' splits key from value and
// both sides are trimmed. A duplicate key overwrites the value but keeps the
// key's original position.
func Parse(text string) (*Settings, error) {
	s := New()
	s.raw = text

	scanner := bufio.NewScanner(strings.NewReader(text))
	line := 0
	for scanner.Scan() {
		line++
		record := strings.TrimSpace(scanner.Text())
		if record == "" || strings.HasPrefix(record, "#") {
			continue
		}
		key, value, found := strings.Cut(record, ":")
		if !found {
			return nil, errs.Wrap(errs.ErrConfiguration, "settings", "parse",
				fmt.Sprintf("line %d is not a 'key: value' record: %q", line, record), nil)
		}
		s.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan settings: %w", err)
	}
	return s, nil
}

// Load reads and parses the settings file at path.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrConfiguration, "settings", "load",
			fmt.Sprintf("read %s", path), err)
	}
	return Parse(string(data))
}

// Get returns the value for key, or "" when absent.
func (s *Settings) Get(key string) string {
	return s.values[key]
}

// Has reports whether key is present.
func (s *Settings) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Set writes a value, preserving insertion order for new keys.
func (s *Settings) Set(key, value string) {
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Keys returns the keys in insertion order.
func (s *Settings) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of keys.
func (s *Settings) Len() int {
	return len(s.keys)
}

// Raw returns the original settings file text, as read before parsing. This is
// the text that gets serialized into the compiled binary.
func (s *Settings) Raw() string {
	return s.raw
}

// ApplyDebugSuffix appends "-dev" to name, title, and executable. The mutation
// is guarded so a second call is a no-op: it must happen exactly once, before
// any path is derived from those keys.
func (s *Settings) ApplyDebugSuffix() {
	if s.debugApplied {
		return
	}
	s.debugApplied = true
	for _, key := range debugSuffixKeys {
		if s.Has(key) {
			s.values[key] += DebugSuffix
		}
	}
}

// Render writes the mapping back to "key: value" lines in insertion order.
func (s *Settings) Render() string {
	var b strings.Builder
	for _, key := range s.keys {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(s.values[key])
		b.WriteByte('\n')
	}
	return b.String()
}
