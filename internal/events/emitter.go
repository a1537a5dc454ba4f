package events

import (
	"time"

	"github.com/google/uuid"
)

// Emitter publishes the events of one workflow run
type Emitter struct {
	bus   *Bus
	runID string
	now   func() time.Time
}

// NewEmitter creates an emitter with a fresh run id. A nil bus is allowed and
// turns every emit into a no-op.
func NewEmitter(bus *Bus) *Emitter {
	return &Emitter{
		bus:   bus,
		runID: uuid.New().String(),
		now:   time.Now,
	}
}

// RunID returns the id shared by every event of this run
func (e *Emitter) RunID() string {
	return e.runID
}

func (e *Emitter) emit(t Type, stage, message string) {
	e.bus.Publish(Event{
		ID:        uuid.New().String(),
		RunID:     e.runID,
		Type:      t,
		Stage:     stage,
		Message:   message,
		Timestamp: e.now().UTC(),
	})
}

// RunStarted emits the start of a run for a package
func (e *Emitter) RunStarted(packageName string) {
	e.emit(TypeRunStarted, "", packageName)
}

// StageStarted emits the start of a stage
func (e *Emitter) StageStarted(stage string) {
	e.emit(TypeStageStarted, stage, "")
}

// StageCompleted emits the successful end of a stage
func (e *Emitter) StageCompleted(stage, message string) {
	e.emit(TypeStageCompleted, stage, message)
}

// StageSkipped emits a stage that was skipped by configuration
func (e *Emitter) StageSkipped(stage string) {
	e.emit(TypeStageSkipped, stage, "")
}

// StageFailed emits a failed stage
func (e *Emitter) StageFailed(stage string, err error) {
	e.emit(TypeStageFailed, stage, err.Error())
}

// RunSucceeded emits the successful end of a run
func (e *Emitter) RunSucceeded(message string) {
	e.emit(TypeRunSucceeded, "", message)
}

// RunFailed emits the failed end of a run
func (e *Emitter) RunFailed(err error) {
	e.emit(TypeRunFailed, "", err.Error())
}
