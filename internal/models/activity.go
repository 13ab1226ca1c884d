package models

import (
	"time"
)

// ActivityType enumerates the activity-log entries the core writes.
type ActivityType string

const (
	ActivityApplyStarted         ActivityType = "apply_started"
	ActivityApplyCompleted       ActivityType = "apply_completed"
	ActivityApplyFailed          ActivityType = "apply_failed"
	ActivityResumeTailored       ActivityType = "resume_tailored"
	ActivityCoverLetterGenerated ActivityType = "cover_letter_generated"
)

// Activity is one audit entry against a job key.
type Activity struct {
	ID        uint64       `json:"id" badgerhold:"key"`
	JobKey    string       `json:"job_key" badgerhold:"index"`
	EventType ActivityType `json:"event_type"`
	Detail    string       `json:"detail,omitempty"`
	At        time.Time    `json:"at"`
}
