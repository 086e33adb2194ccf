package model

import "fmt"

// JobState is a redaction job's position in the document lifecycle
// (spec.md §4.11). Only the Detected → Reviewed → Redacted edges are
// driven by this module; Uploaded and Parsed are the caller's
// responsibility, and Delivered is reached once the caller ships the
// writer's output.
type JobState string

const (
	JobUploaded JobState = "uploaded"
	JobParsed   JobState = "parsed"
	JobDetected JobState = "detected"
	JobReviewed JobState = "reviewed"
	JobRedacted JobState = "redacted"
	JobDelivered JobState = "delivered"
)

// validTransitions enumerates the only state machine edges this module
// is allowed to drive.
var validTransitions = map[JobState][]JobState{
	JobDetected: {JobReviewed},
	JobReviewed: {JobRedacted},
}

// CanTransition reports whether moving a job from `from` to `to` is a
// valid core-owned edge.
func CanTransition(from, to JobState) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Job tracks one document's state plus the warnings accumulated along
// the way (spec.md §7: a request with zero entities but non-empty
// warnings still succeeds).
type Job struct {
	ID       string   `json:"id"`
	State    JobState `json:"state"`
	Warnings []string `json:"warnings,omitempty"`
}

// Warn appends a warning without failing the job, mirroring §7's
// propagation policy for detector-stage errors.
func (j *Job) Warn(format string, args ...any) {
	j.Warnings = append(j.Warnings, fmt.Sprintf(format, args...))
}

// Advance transitions the job, returning an *AppError if the edge is not
// one of the core's allowed transitions.
func (j *Job) Advance(to JobState) error {
	if !CanTransition(j.State, to) {
		return NewInvalidInputError("illegal job transition %s -> %s", j.State, to)
	}
	j.State = to
	return nil
}
