package workflow

import "errors"

// Stage labels reported when a run aborts
const (
	LabelNoAPKs         = "No apk files provided"
	LabelToken          = "Failed to get token"
	LabelCreateEdits    = "Failed to create edits"
	LabelEditID         = "Failed to get edit_id"
	LabelReplaceAPK     = "Failed to replace apk"
	LabelVersionCode    = "Failed to get version_code"
	LabelUpdateListings = "Failed to update listings"
	LabelCommitEdits    = "Failed to commit edits"
)

var (
	// ErrNoToken is returned when authentication succeeds without a token
	ErrNoToken = errors.New("token is nil")

	// ErrNoVersionCode is returned when an uploaded APK has no version code
	ErrNoVersionCode = errors.New("version_code is nil")
)

// StageError is the terminal error of a run. Its message is the fixed stage
// label; the underlying cause is available through errors.Unwrap.
type StageError struct {
	Label string
	Err   error
}

func (e *StageError) Error() string {
	return e.Label
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Label returns the stage label of err, or "" when err is not a StageError
func Label(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Label
	}
	return ""
}
