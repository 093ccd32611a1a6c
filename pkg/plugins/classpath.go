package plugins

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SplitClasspath splits a list of paths joined with os.PathListSeparator.
// Entries are trimmed; blank and non-existent entries are dropped and
// duplicates keep their first position.
func SplitClasspath(extra string) []string {
	var out []string
	for _, entry := range strings.Split(extra, string(os.PathListSeparator)) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, err := os.Stat(entry); err != nil {
			continue
		}
		out = appendUnique(out, filepath.Clean(entry))
	}
	return out
}

// JoinClasspath is the inverse of SplitClasspath, minus the filtering
func JoinClasspath(entries []string) string {
	return strings.Join(entries, string(os.PathListSeparator))
}

// mergeClasspath concatenates stages, keeping the first occurrence of a path
func mergeClasspath(stages ...[]string) []string {
	var out []string
	for _, stage := range stages {
		for _, entry := range stage {
			out = appendUnique(out, entry)
		}
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
