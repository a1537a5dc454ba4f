package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ResolveAPKPaths returns the local APK files to upload: apk followed by the
// expansion of every apk_paths entry. Glob patterns (including **) expand
// in sorted order; literal paths must exist. Duplicates keep their first
// position.
func (c *Upload) ResolveAPKPaths() ([]string, error) {
	var entries []string
	if c.APK != "" {
		entries = append(entries, c.APK)
	}
	entries = append(entries, c.APKPaths...)

	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, entry := range entries {
		if !isPattern(entry) {
			if _, err := os.Stat(entry); err != nil {
				return nil, fmt.Errorf("apk %s: %w", entry, err)
			}
			add(entry)
			continue
		}

		matches, err := doublestar.FilepathGlob(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid apk pattern %q: %w", entry, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no apk files match %q", entry)
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(m)
		}
	}

	return out, nil
}

func isPattern(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}
