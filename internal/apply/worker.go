package apply

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/common"
	"github.com/ternarybob/pursuit/internal/interfaces"
	"github.com/ternarybob/pursuit/internal/models"
	"github.com/ternarybob/pursuit/internal/platforms"
)

// Worker flow-control sentinels. Cancellation ends the flow with a done-only
// message; everything else becomes an error event first.
var (
	errCancelled      = errors.New("application cancelled by user")
	errConfirmExpired = errors.New("confirmation timed out")
)

// applyWorker runs one application flow off the request path. It emits
// staged progress through the session queue and always closes the stream
// with exactly one done.
type applyWorker struct {
	session    *Session
	job        *models.Job
	mode       models.ApplyMode
	profile    *models.Profile
	resumePath string
	coverPath  string
	registry   *platforms.Registry
	config     *common.ApplyConfig
	activities interfaces.ActivityStorage
	jobs       interfaces.JobStorage
	logger     arbor.ILogger
}

// Run executes the flow. Panics, adapter failures and cancellation all
// collapse into events; nothing unwinds past this boundary.
func (w *applyWorker) Run() {
	ctx := context.Background()
	doneMsg := "Apply flow complete"

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().Str("job_key", w.job.Key).Msgf("Apply worker panic: %v", r)
			w.session.Emit(models.ErrorEvent(w.job.Key, fmt.Sprintf("Internal error: %v", r)))
			w.recordActivity(ctx, models.ActivityApplyFailed, fmt.Sprintf("panic: %v", r))
		}
		w.session.Emit(models.DoneEvent(w.job.Key, doneMsg))
	}()

	w.recordActivity(ctx, models.ActivityApplyStarted, string(w.mode))

	err := w.run(ctx)
	switch {
	case err == nil:
		w.recordActivity(ctx, models.ActivityApplyCompleted, "")
	case errors.Is(err, errCancelled):
		doneMsg = "Application cancelled by user"
	default:
		w.session.Emit(models.ErrorEvent(w.job.Key, errorMessage(err)))
		w.recordActivity(ctx, models.ActivityApplyFailed, err.Error())
	}
}

func (w *applyWorker) run(ctx context.Context) error {
	w.emitProgress(fmt.Sprintf("Starting apply for %s at %s", w.job.Title, w.job.Company))
	w.emitProgress(fmt.Sprintf("Using resume: %s", filepath.Base(w.resumePath)))

	if err := w.checkpoint(); err != nil {
		return err
	}

	platform, err := w.registry.Lookup(w.job.Platform)
	if err != nil {
		return fmt.Errorf("unknown platform %q", w.job.Platform)
	}

	switch platform.Kind() {
	case platforms.KindAPI:
		return w.runExternal(ctx, platform.(platforms.APIPlatform))
	case platforms.KindBrowser:
		return w.runBrowser(ctx, platform.(platforms.BrowserPlatform))
	default:
		return fmt.Errorf("platform %q has unsupported kind %q", platform.Key(), platform.Kind())
	}
}

// runExternal fills an external ATS form in a throwaway visible browser and
// leaves the final submit to the human after confirmation.
func (w *applyWorker) runExternal(ctx context.Context, platform platforms.APIPlatform) error {
	w.emitProgress("External ATS application flow...")

	browserCtx, err := platform.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to open automation context: %w", err)
	}
	defer func() {
		if err := platform.Release(); err != nil {
			w.logger.Warn().Err(err).Str("platform", platform.Key()).Msg("Platform release failed")
		}
	}()

	applyURL := w.job.ApplyURL
	if applyURL == "" {
		applyURL = w.job.URL
	}
	w.emitProgress(fmt.Sprintf("Opening external ATS: %s", applyURL))

	filled, err := platform.FillApplication(browserCtx, w.job, w.profile, w.resumePath, w.coverPath)
	if err != nil {
		return fmt.Errorf("form fill failed: %w", err)
	}

	w.session.Emit(models.ApplyEvent{
		Type:         models.EventProgress,
		JobKey:       w.job.Key,
		Message:      fmt.Sprintf("Filled %d form fields", len(filled)),
		FieldsFilled: filled,
		Timestamp:    time.Now(),
	})

	if err := w.awaitConfirmation(fmt.Sprintf("Form filled for %s at %s. Confirm submit?", w.job.Title, w.job.Company)); err != nil {
		return err
	}

	w.captureScreenshot(browserCtx, platform, "post-fill")
	return nil
}

// runBrowser drives a logged-in platform session end to end, submitting via
// the adapter after the confirmation gate.
func (w *applyWorker) runBrowser(ctx context.Context, platform platforms.BrowserPlatform) error {
	if w.mode == models.ModeEasyApplyOnly && !w.job.EasyApply {
		return fmt.Errorf("job is not flagged easy-apply; refusing in %s mode", w.mode)
	}

	w.emitProgress(fmt.Sprintf("Opening %s session...", platform.DisplayName()))

	browserCtx, err := platform.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire browser session: %w", err)
	}
	defer func() {
		if err := platform.Release(); err != nil {
			w.logger.Warn().Err(err).Str("platform", platform.Key()).Msg("Platform release failed")
		}
	}()

	loggedIn, err := platform.IsLoggedIn(browserCtx)
	if err != nil {
		return fmt.Errorf("login check failed: %w", err)
	}
	if !loggedIn {
		w.emitProgress(fmt.Sprintf("Waiting for %s login...", platform.DisplayName()))
		if err := platform.Login(browserCtx); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
	}

	if err := w.checkpoint(); err != nil {
		return err
	}

	w.emitProgress("Opening job page...")
	if err := platform.OpenJob(browserCtx, w.job); err != nil {
		return fmt.Errorf("failed to open job page: %w", err)
	}

	w.captureScreenshot(browserCtx, platform, "pre-submit")

	if err := w.awaitConfirmation(fmt.Sprintf("Ready to submit to %s at %s. Confirm submit?", w.job.Title, w.job.Company)); err != nil {
		return err
	}

	if err := w.checkpoint(); err != nil {
		return err
	}

	w.emitProgress("Submitting application...")
	if err := platform.Apply(browserCtx, w.job, w.resumePath); err != nil {
		if errors.Is(err, platforms.ErrCaptchaDetected) {
			w.session.Emit(models.ApplyEvent{
				Type:      models.EventCaptcha,
				JobKey:    w.job.Key,
				Message:   "Captcha detected; complete it in the browser and retry",
				Timestamp: time.Now(),
			})
		}
		return fmt.Errorf("submission failed: %w", err)
	}

	// Submission went out through the platform itself, so the lifecycle
	// status moves here rather than waiting on a dashboard edit.
	if err := w.jobs.UpdateStatus(ctx, w.job.Key, models.JobStatusApplied); err != nil {
		w.logger.Warn().Err(err).Str("job_key", w.job.Key).Msg("Failed to update job status")
	}

	return nil
}

// awaitConfirmation emits awaiting_confirm and blocks on the gate. full_auto
// mode skips the gate when policy allows.
func (w *applyWorker) awaitConfirmation(prompt string) error {
	if w.mode == models.ModeFullAuto && !w.config.RequireConfirmation {
		return nil
	}

	w.session.Emit(models.ApplyEvent{
		Type:      models.EventAwaitingConfirm,
		JobKey:    w.job.Key,
		Message:   prompt,
		Timestamp: time.Now(),
	})

	switch w.session.Gate().Wait(w.config.ConfirmTimeout, w.session.Cancelled()) {
	case GateConfirmed:
		w.session.Emit(models.ApplyEvent{
			Type:      models.EventConfirmed,
			JobKey:    w.job.Key,
			Message:   "Confirmed, proceeding",
			Timestamp: time.Now(),
		})
		return nil
	case GateCancelled:
		return errCancelled
	default:
		return errConfirmExpired
	}
}

// checkpoint observes cancellation between stages.
func (w *applyWorker) checkpoint() error {
	if w.session.IsCancelled() {
		return errCancelled
	}
	return nil
}

func (w *applyWorker) emitProgress(message string) {
	w.session.Emit(models.ProgressEvent(w.job.Key, message))
}

// captureScreenshot writes a timestamped debug screenshot when the platform
// supports it. Failures only log; they never fail the flow.
func (w *applyWorker) captureScreenshot(ctx context.Context, platform platforms.Platform, label string) {
	shooter, ok := platform.(platforms.Screenshotter)
	if !ok || w.config.ScreenshotDir == "" {
		return
	}

	name := fmt.Sprintf("%s-%s-%s.png", w.job.Key, label, time.Now().Format("20060102-150405"))
	path := filepath.Join(w.config.ScreenshotDir, name)

	if err := os.MkdirAll(w.config.ScreenshotDir, 0755); err != nil {
		w.logger.Warn().Err(err).Msg("Screenshot directory unavailable")
		return
	}
	if err := shooter.Screenshot(ctx, path); err != nil {
		w.logger.Warn().Err(err).Str("job_key", w.job.Key).Msg("Screenshot capture failed")
		return
	}

	w.session.Emit(models.ApplyEvent{
		Type:           models.EventProgress,
		JobKey:         w.job.Key,
		Message:        "Screenshot captured",
		ScreenshotPath: path,
		Timestamp:      time.Now(),
	})
}

func (w *applyWorker) recordActivity(ctx context.Context, eventType models.ActivityType, detail string) {
	if err := w.activities.Record(ctx, w.job.Key, eventType, detail); err != nil {
		w.logger.Warn().Err(err).Str("job_key", w.job.Key).Msg("Failed to record activity")
	}
}

func errorMessage(err error) string {
	if errors.Is(err, errConfirmExpired) {
		return "Confirmation timed out"
	}
	return err.Error()
}
