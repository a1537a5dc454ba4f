package events

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Report is the JSON summary of a run written by --report-file
type Report struct {
	RunID  string  `json:"run_id"`
	Status string  `json:"status"`
	Events []Event `json:"events"`
}

// Recorder collects every event published on a bus
type Recorder struct {
	bus *Bus
	sub *Subscriber
}

// NewRecorder subscribes to all events on bus
func NewRecorder(bus *Bus) *Recorder {
	return &Recorder{bus: bus, sub: bus.Subscribe()}
}

// Stop unsubscribes and returns the collected events in publish order
func (r *Recorder) Stop() []Event {
	r.bus.Unsubscribe(r.sub.ID)

	var out []Event
	for ev := range r.sub.Events {
		out = append(out, ev)
	}
	return out
}

// NewReport builds a report from the events of one run
func NewReport(evs []Event) Report {
	report := Report{Status: "unknown", Events: evs}
	for _, ev := range evs {
		if report.RunID == "" {
			report.RunID = ev.RunID
		}
		switch ev.Type {
		case TypeRunSucceeded:
			report.Status = "succeeded"
		case TypeRunFailed:
			report.Status = "failed"
		}
	}
	if report.Events == nil {
		report.Events = []Event{}
	}
	return report
}

// WriteReport writes the report as indented JSON to path
func WriteReport(path string, report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
