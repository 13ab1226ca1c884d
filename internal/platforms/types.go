package platforms

import (
	"context"
	"errors"

	"github.com/ternarybob/pursuit/internal/models"
)

// Kind classifies how a platform adapter reaches its job board.
type Kind string

const (
	// KindBrowser drives a logged-in persistent browser session.
	KindBrowser Kind = "browser"
	// KindAPI opens a fresh automation context against an external ATS URL.
	KindAPI Kind = "api"
)

// Typed adapter failures. The apply worker classifies these into events
// rather than letting them unwind past the worker boundary.
var (
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrLoginRequired   = errors.New("login required")
	ErrCaptchaDetected = errors.New("captcha detected")
	ErrNavigation      = errors.New("navigation failed")
)

// Platform is the common surface of every adapter.
type Platform interface {
	Key() string
	DisplayName() string
	Kind() Kind
}

// BrowserPlatform is the capability set a browser-kind adapter must expose.
// Acquire/Release bracket use of the platform's persistent browser context;
// the apply lease guarantees one worker per platform at a time.
type BrowserPlatform interface {
	Platform

	Acquire(ctx context.Context) (context.Context, error)
	Release() error

	IsLoggedIn(ctx context.Context) (bool, error)
	// Login may require human input (solving a challenge in the visible
	// browser window); it blocks until logged in or ctx is done.
	Login(ctx context.Context) error

	Search(ctx context.Context, query string) ([]*models.Job, error)
	GetJobDetails(ctx context.Context, job *models.Job) (*models.Job, error)

	// OpenJob navigates the persistent context to the job page.
	OpenJob(ctx context.Context, job *models.Job) error
	// Apply submits the application for an opened job and returns once the
	// platform reports success.
	Apply(ctx context.Context, job *models.Job, resumePath string) error
}

// APIPlatform is the capability set an api-kind (external ATS) adapter must
// expose. Its automation context is throwaway per apply.
type APIPlatform interface {
	Platform

	Acquire(ctx context.Context) (context.Context, error)
	Release() error

	Init(ctx context.Context) error
	Search(ctx context.Context, query string) ([]*models.Job, error)
	GetJobDetails(ctx context.Context, job *models.Job) (*models.Job, error)

	// FillApplication navigates to the job's apply URL and fills the form
	// without submitting. Returns the audit map of field kind to value.
	FillApplication(ctx context.Context, job *models.Job, profile *models.Profile, resumePath, coverLetterPath string) (map[string]string, error)
}

// Screenshotter is implemented by adapters that can capture the current page.
type Screenshotter interface {
	Screenshot(ctx context.Context, outPath string) error
}
