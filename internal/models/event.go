package models

import (
	"time"
)

// ApplyEventType is the type tag carried on the SSE "event:" line.
type ApplyEventType string

const (
	EventProgress        ApplyEventType = "progress"
	EventAwaitingConfirm ApplyEventType = "awaiting_confirm"
	EventConfirmed       ApplyEventType = "confirmed"
	EventCaptcha         ApplyEventType = "captcha"
	EventError           ApplyEventType = "error"
	EventDone            ApplyEventType = "done"
	// EventPing never enters a session queue; the stream adapter emits it
	// directly as a keepalive.
	EventPing ApplyEventType = "ping"
)

// ApplyEvent is the unit published by a worker onto its session queue and
// drained by the SSE stream adapter. HTML bodies are treated as opaque by
// the transport.
type ApplyEvent struct {
	Type           ApplyEventType    `json:"type"`
	JobKey         string            `json:"job_key"`
	Message        string            `json:"message,omitempty"`
	HTML           string            `json:"html,omitempty"`
	ScreenshotPath string            `json:"screenshot_path,omitempty"`
	FieldsFilled   map[string]string `json:"fields_filled,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
}

// Terminal reports whether the event closes its session's stream.
func (e ApplyEvent) Terminal() bool {
	return e.Type == EventDone
}

// ProgressEvent builds a progress event for the given job key.
func ProgressEvent(jobKey, message string) ApplyEvent {
	return ApplyEvent{Type: EventProgress, JobKey: jobKey, Message: message, Timestamp: time.Now()}
}

// ErrorEvent builds an error event for the given job key.
func ErrorEvent(jobKey, message string) ApplyEvent {
	return ApplyEvent{Type: EventError, JobKey: jobKey, Message: message, Timestamp: time.Now()}
}

// DoneEvent builds the terminal event for the given job key.
func DoneEvent(jobKey, message string) ApplyEvent {
	return ApplyEvent{Type: EventDone, JobKey: jobKey, Message: message, Timestamp: time.Now()}
}
