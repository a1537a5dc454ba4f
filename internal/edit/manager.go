// Package edit manages the lifecycle of the Appstore edit (draft) resource.
package edit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/footprintai/amzappstore/internal/appstore"
	"github.com/footprintai/amzappstore/internal/ui"
)

// Policy selects how an edit is obtained when one may already be open
type Policy int

const (
	// CreateOnly creates a new edit and lets the API reject it if one is open
	CreateOnly Policy = iota

	// CreateFresh deletes any open edit before creating a new one
	CreateFresh

	// ReuseIfPresent continues with the open edit, creating one only if none exists
	ReuseIfPresent
)

func (p Policy) String() string {
	switch p {
	case CreateFresh:
		return "create-fresh"
	case ReuseIfPresent:
		return "reuse-if-present"
	default:
		return "create-only"
	}
}

// Overwrite modes accepted by ParsePolicy
const (
	ModeNew   = "new"
	ModeReuse = "reuse"
)

// ParsePolicy maps the overwrite_upload settings to a policy. Without
// overwrite the mode is ignored.
func ParsePolicy(overwrite bool, mode string) (Policy, error) {
	if !overwrite {
		return CreateOnly, nil
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeNew:
		return CreateFresh, nil
	case ModeReuse:
		return ReuseIfPresent, nil
	default:
		return CreateOnly, fmt.Errorf("unknown overwrite upload mode %q (supported: %s, %s)", mode, ModeNew, ModeReuse)
	}
}

// ErrNoEditID is returned when edit creation succeeds without an id
var ErrNoEditID = errors.New("edit_id is nil")

// API is the subset of the Appstore client used to manage edits
type API interface {
	GetOpenEdit(ctx context.Context, app string) (appstore.Tagged[*appstore.Edit], error)
	GetEdit(ctx context.Context, app, editID string) (appstore.Tagged[appstore.Edit], error)
	CreateEdit(ctx context.Context, app string) (*appstore.Edit, error)
	DeleteEdit(ctx context.Context, app, editID, etag string) error
	CommitEdit(ctx context.Context, app, editID, etag string) (*appstore.Edit, error)
}

// Manager resolves, deletes and commits edits
type Manager struct {
	api    API
	logger ui.Logger
}

// NewManager creates an edit manager
func NewManager(api API, logger ui.Logger) *Manager {
	if logger == nil {
		logger = ui.Nop{}
	}
	return &Manager{api: api, logger: logger}
}

// Resolve returns the id of the edit the run should work on, according to policy
func (m *Manager) Resolve(ctx context.Context, app string, policy Policy) (string, error) {
	var editID string

	switch policy {
	case CreateFresh:
		if _, err := m.DeleteIfExists(ctx, app); err != nil {
			return "", err
		}
	case ReuseIfPresent:
		open, err := m.api.GetOpenEdit(ctx, app)
		if err != nil {
			return "", err
		}
		if open.Value != nil {
			editID = open.Value.ID
			m.logger.Message("Reusing existing edit %s", editID)
		} else {
			m.logger.Verbose("No open edit to reuse")
		}
	}

	if editID != "" {
		return editID, nil
	}
	return m.Create(ctx, app)
}

// Create opens a new edit
func (m *Manager) Create(ctx context.Context, app string) (string, error) {
	created, err := m.api.CreateEdit(ctx, app)
	if err != nil {
		return "", err
	}
	if created == nil || created.ID == "" {
		return "", ErrNoEditID
	}
	m.logger.Verbose("Created edit %s", created.ID)
	return created.ID, nil
}

// DeleteIfExists deletes the open edit, if any. Finding no edit is not an error.
func (m *Manager) DeleteIfExists(ctx context.Context, app string) (bool, error) {
	open, err := m.api.GetOpenEdit(ctx, app)
	if err != nil {
		return false, err
	}
	if open.Value == nil {
		m.logger.Verbose("No open edit to delete")
		return false, nil
	}

	if err := m.api.DeleteEdit(ctx, app, open.Value.ID, open.ETag); err != nil {
		return false, err
	}
	m.logger.Message("Deleted existing edit %s", open.Value.ID)
	return true, nil
}

// Commit submits the edit for review under the edit's current ETag
func (m *Manager) Commit(ctx context.Context, app, editID string) error {
	current, err := m.api.GetEdit(ctx, app, editID)
	if err != nil {
		return err
	}

	if _, err := m.api.CommitEdit(ctx, app, editID, current.ETag); err != nil {
		return err
	}
	return nil
}
