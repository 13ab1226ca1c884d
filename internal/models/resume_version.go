package models

import (
	"time"
)

// VersionKind distinguishes the two generated artifact families.
type VersionKind string

const (
	VersionKindResume      VersionKind = "resume"
	VersionKindCoverLetter VersionKind = "cover_letter"
)

// ResumeVersion records one generated artifact. Rows are append-only: the
// pipelines write them, the resume resolver reads the most recent one, and
// nothing mutates them afterwards.
type ResumeVersion struct {
	ID         string      `json:"id" badgerhold:"key"`
	JobKey     string      `json:"job_key" badgerhold:"index"`
	Kind       VersionKind `json:"kind"`
	FilePath   string      `json:"file_path"`
	SourcePath string      `json:"source_path"`
	Model      string      `json:"model"`
	Warnings   []string    `json:"warnings,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}
