// Package listing writes changelog text into the per-language store listings of an edit.
package listing

import (
	"github.com/footprintai/amzappstore/internal/appstore"
	"github.com/footprintai/amzappstore/internal/metadata"
)

// Placeholder is written when changelog upload is skipped. An edit cannot be
// submitted for review with an empty recentChanges field.
const Placeholder = "-"

// Outcome describes what happened to one language's changelog
type Outcome int

const (
	// Updated means a local changelog file was written
	Updated Outcome = iota

	// Skipped means changelogs are skipped and the placeholder was written
	Skipped

	// Unchanged means no local changelog was found and the current value was resubmitted
	Unchanged
)

func (o Outcome) String() string {
	switch o {
	case Updated:
		return "updated"
	case Skipped:
		return "placeholder"
	default:
		return "unchanged"
	}
}

// ChangelogSource looks up local changelog text. ok is false when the file
// is absent or empty.
type ChangelogSource interface {
	Changelog(lang, version string) (text string, ok bool)
}

// Selection is the changelog chosen for one language
type Selection struct {
	Text    string
	Outcome Outcome
	// Source is the file name the text came from, if any
	Source string
}

// SelectChangelog applies the changelog precedence: placeholder when skipped,
// then <version>.txt, then default.txt, else leave the current value.
func SelectChangelog(src ChangelogSource, lang string, version appstore.VersionCode, skip bool) Selection {
	if skip {
		return Selection{Text: Placeholder, Outcome: Skipped}
	}
	if src == nil {
		return Selection{Outcome: Unchanged}
	}

	for _, name := range []string{string(version), metadata.DefaultChangelog} {
		if text, ok := src.Changelog(lang, name); ok {
			return Selection{Text: text, Outcome: Updated, Source: name + ".txt"}
		}
	}
	return Selection{Outcome: Unchanged}
}

// MaxVersionCode returns the highest version code, or "" for none
func MaxVersionCode(codes []appstore.VersionCode) appstore.VersionCode {
	var highest appstore.VersionCode
	for i, c := range codes {
		if i == 0 || highest.Less(c) {
			highest = c
		}
	}
	return highest
}
