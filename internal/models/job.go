package models

import (
	"time"
)

// JobStatus is the persisted lifecycle status of a job posting.
type JobStatus string

const (
	JobStatusDiscovered     JobStatus = "discovered"
	JobStatusSaved          JobStatus = "saved"
	JobStatusApplied        JobStatus = "applied"
	JobStatusPhoneScreen    JobStatus = "phone_screen"
	JobStatusTechnical      JobStatus = "technical"
	JobStatusFinalInterview JobStatus = "final_interview"
	JobStatusOffer          JobStatus = "offer"
	JobStatusRejected       JobStatus = "rejected"
	JobStatusWithdrawn      JobStatus = "withdrawn"
)

// appliedStatuses is the set the dedup check treats as "already applied".
var appliedStatuses = map[JobStatus]struct{}{
	JobStatusApplied:        {},
	JobStatusPhoneScreen:    {},
	JobStatusTechnical:      {},
	JobStatusFinalInterview: {},
	JobStatusOffer:          {},
}

// IsApplied reports whether the status means an application already went out.
func (s JobStatus) IsApplied() bool {
	_, ok := appliedStatuses[s]
	return ok
}

// Job is the posting snapshot consumed by apply workers. Rows are written by
// external scrapers; the core treats their content as read-only. Status moves
// through dashboard updates, plus the transition to applied when a browser
// apply confirms submission.
type Job struct {
	Key          string    `json:"key" badgerhold:"key"`
	Platform     string    `json:"platform"`
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	URL          string    `json:"url"`
	ApplyURL     string    `json:"apply_url,omitempty"`
	Description  string    `json:"description,omitempty"`
	Location     string    `json:"location,omitempty"`
	Salary       string    `json:"salary,omitempty"`
	EasyApply    bool      `json:"easy_apply"`
	Status       JobStatus `json:"status" badgerhold:"index"`
	DiscoveredAt time.Time `json:"discovered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ApplyMode selects how much of the apply flow runs unattended.
type ApplyMode string

const (
	// ModeFullAuto submits without a confirmation gate when policy allows.
	ModeFullAuto ApplyMode = "full_auto"
	// ModeSemiAuto fills forms, then waits for a human confirm before submit.
	ModeSemiAuto ApplyMode = "semi_auto"
	// ModeEasyApplyOnly applies only to postings flagged easy-apply.
	ModeEasyApplyOnly ApplyMode = "easy_apply_only"
)

// ParseApplyMode maps a form value to an ApplyMode, defaulting to semi_auto.
func ParseApplyMode(s string) ApplyMode {
	switch ApplyMode(s) {
	case ModeFullAuto, ModeSemiAuto, ModeEasyApplyOnly:
		return ApplyMode(s)
	default:
		return ModeSemiAuto
	}
}
