package common

import (
	"github.com/google/uuid"
)

// NewSessionID generates a unique apply-session ID with the "ses_" prefix
func NewSessionID() string {
	return "ses_" + uuid.New().String()
}

// NewVersionID generates a unique resume-version ID with the "ver_" prefix
func NewVersionID() string {
	return "ver_" + uuid.New().String()
}
