// Package apk reconciles local APK files against the APKs attached to an edit.
package apk

import (
	"fmt"

	"github.com/footprintai/amzappstore/internal/appstore"
)

// ActionKind is the kind of change applied to one APK position
type ActionKind int

const (
	// Replace uploads a local file in place of an attached APK
	Replace ActionKind = iota

	// Create attaches a local file as a new APK
	Create

	// Delete detaches an APK that has no local counterpart
	Delete
)

func (k ActionKind) String() string {
	switch k {
	case Replace:
		return "replace"
	case Create:
		return "create"
	case Delete:
		return "delete"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// Action is one planned change. Index is the position of the local file for
// Replace and Create, and of the attached APK for Delete.
type Action struct {
	Kind  ActionKind
	Index int
	APKID string
	Path  string
}

// Plan pairs local files with attached APKs by position. Replace and Create
// actions come first in local order, followed by Delete actions for excess
// attached APKs in the order they were listed.
func Plan(existing []appstore.APK, local []string) []Action {
	var actions, deletes []Action

	n := len(local)
	if len(existing) > n {
		n = len(existing)
	}

	for i := 0; i < n; i++ {
		switch {
		case i < len(existing) && i < len(local):
			actions = append(actions, Action{Kind: Replace, Index: i, APKID: existing[i].ID, Path: local[i]})
		case i < len(local):
			actions = append(actions, Action{Kind: Create, Index: i, Path: local[i]})
		default:
			deletes = append(deletes, Action{Kind: Delete, Index: i, APKID: existing[i].ID})
		}
	}

	return append(actions, deletes...)
}
