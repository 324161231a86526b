package policy

import (
	"strings"
)

// IgnoreList is an ordered set of application-name substrings exempted from
// repositioning. Order only matters for display.
type IgnoreList struct {
	entries []string
}

// NewIgnoreList builds a list, dropping blanks and duplicates.
func NewIgnoreList(entries ...string) IgnoreList {
	var l IgnoreList
	for _, e := range entries {
		l.add(e)
	}
	return l
}

// ParseIgnoreList reads the comma-separated form used by the preference store.
func ParseIgnoreList(raw string) IgnoreList {
	if strings.TrimSpace(raw) == "" {
		return IgnoreList{}
	}
	return NewIgnoreList(strings.Split(raw, ",")...)
}

// String returns the comma-separated form used by the preference store.
func (l IgnoreList) String() string {
	return strings.Join(l.entries, ",")
}

// Entries returns a copy of the entries in insertion order.
func (l IgnoreList) Entries() []string {
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l IgnoreList) Len() int {
	return len(l.entries)
}

// Contains reports whether entry is in the list (exact).
func (l IgnoreList) Contains(entry string) bool {
	entry = strings.TrimSpace(entry)
	for _, e := range l.entries {
		if e == entry {
			return true
		}
	}
	return false
}

// With returns a copy with entry appended. The bool is false if entry was
// blank or already present.
func (l IgnoreList) With(entry string) (IgnoreList, bool) {
	out := NewIgnoreList(l.entries...)
	return out, out.add(entry)
}

// Without returns a copy with entry removed. The bool is false if absent.
func (l IgnoreList) Without(entry string) (IgnoreList, bool) {
	entry = strings.TrimSpace(entry)
	out := IgnoreList{}
	removed := false
	for _, e := range l.entries {
		if e == entry {
			removed = true
			continue
		}
		out.entries = append(out.entries, e)
	}
	return out, removed
}

// Match returns the first entry that appName contains.
// Matching is case-sensitive substring containment.
func (l IgnoreList) Match(appName string) (string, bool) {
	for _, e := range l.entries {
		if strings.Contains(appName, e) {
			return e, true
		}
	}
	return "", false
}

func (l *IgnoreList) add(entry string) bool {
	entry = strings.TrimSpace(entry)
	if entry == "" || l.Contains(entry) {
		return false
	}
	l.entries = append(l.entries, entry)
	return true
}
