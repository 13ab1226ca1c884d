package apply

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/common"
	"github.com/ternarybob/pursuit/internal/interfaces"
	"github.com/ternarybob/pursuit/internal/models"
	"github.com/ternarybob/pursuit/internal/platforms"
)

// Structured start failures. Handlers map these to dashboard fragments
// rather than letting them surface as stream errors.
var (
	// ErrApplyInProgress means a live session already exists for the job key.
	ErrApplyInProgress = errors.New("apply already in progress")
	// ErrBusy means the apply lease could not be acquired immediately.
	ErrBusy = errors.New("another apply is running")
)

// finishedSessionTTL bounds how long a terminal session lingers for late
// stream subscribers before the registry reclaims it.
const finishedSessionTTL = 2 * time.Minute

// Orchestrator serializes apply starts, allocates sessions, launches workers
// and records outcomes. It is instantiated once at startup; all shared state
// (lease, registries) lives on it.
type Orchestrator struct {
	config    *common.ApplyConfig
	resume    *common.ResumeConfig
	platforms *platforms.Registry
	storage   interfaces.StorageManager
	sessions  *SessionRegistry
	deduper   *Deduper
	resolver  *ResumeResolver
	lease     chan struct{}
	logger    arbor.ILogger
}

// NewOrchestrator creates the apply orchestrator
func NewOrchestrator(
	config *common.ApplyConfig,
	resume *common.ResumeConfig,
	registry *platforms.Registry,
	storage interfaces.StorageManager,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		config:    config,
		resume:    resume,
		platforms: registry,
		storage:   storage,
		sessions:  NewSessionRegistry(),
		deduper:   NewDeduper(storage.JobStorage()),
		resolver:  NewResumeResolver(storage.ResumeVersionStorage(), resume.DefaultPath, logger),
		lease:     make(chan struct{}, config.LeaseCapacity()),
		logger:    logger,
	}
}

// StartApply begins the apply flow for a job key. It returns immediately;
// progress flows through the session queue. Already-applied jobs get a
// synthesized error+done session without launching a worker.
func (o *Orchestrator) StartApply(ctx context.Context, jobKey string, mode models.ApplyMode) (*Session, error) {
	if jobKey == "" {
		return nil, fmt.Errorf("job key is required")
	}

	if existing, ok := o.sessions.Get(jobKey); ok && !existing.Finished() {
		return nil, fmt.Errorf("%w: %s", ErrApplyInProgress, jobKey)
	}

	applied, err := o.deduper.IsAlreadyApplied(ctx, jobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check application status: %w", err)
	}
	if applied != nil {
		return o.synthesizeFailure(jobKey, mode,
			fmt.Sprintf("Already applied to %s at %s (status: %s)", applied.Title, applied.Company, applied.Status))
	}

	job, err := o.storage.JobStorage().GetJob(ctx, jobKey)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			return o.synthesizeFailure(jobKey, mode, fmt.Sprintf("No job found for %s", jobKey))
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}

	// Immediate acquire or busy; a queued start must never silently drop.
	select {
	case o.lease <- struct{}{}:
	default:
		return nil, ErrBusy
	}

	session := NewSession(jobKey, mode, o.config.QueueSize, o.logger)
	if err := o.sessions.Add(session); err != nil {
		<-o.lease
		return nil, fmt.Errorf("%w: %s", ErrApplyInProgress, jobKey)
	}

	profile, err := LoadProfile(ctx, o.storage.KVStorage())
	if err != nil {
		o.logger.Warn().Err(err).Msg("Profile unavailable; form fill will be sparse")
		profile = &models.Profile{}
	}

	worker := &applyWorker{
		session:    session,
		job:        job,
		mode:       mode,
		profile:    profile,
		resumePath: o.resolver.Resolve(ctx, jobKey),
		coverPath:  o.resolver.ResolveCoverLetter(ctx, jobKey),
		registry:   o.platforms,
		config:     o.config,
		activities: o.storage.ActivityStorage(),
		jobs:       o.storage.JobStorage(),
		logger:     o.logger,
	}

	common.SafeGo(o.logger, "apply-worker-"+jobKey, func() {
		defer func() {
			<-o.lease
			o.scheduleCleanup(session)
		}()
		worker.Run()
	})

	o.logger.Info().
		Str("job_key", jobKey).
		Str("mode", string(mode)).
		Msg("Apply worker launched")
	return session, nil
}

// Confirm resolves the session's confirmation gate. Idempotent; reports
// whether a session existed for the key.
func (o *Orchestrator) Confirm(jobKey string) bool {
	session, ok := o.sessions.Get(jobKey)
	if !ok {
		return false
	}
	session.Gate().Confirm()
	return true
}

// Cancel resolves the gate to cancelled and raises the broadcast signal so a
// worker mid-I/O observes it at its next checkpoint. Idempotent.
func (o *Orchestrator) Cancel(jobKey string) bool {
	session, ok := o.sessions.Get(jobKey)
	if !ok {
		return false
	}
	session.Gate().Cancel()
	session.Cancel()
	return true
}

// Subscribe returns the session drain handle for the stream adapter.
func (o *Orchestrator) Subscribe(jobKey string) (*Session, bool) {
	return o.sessions.Get(jobKey)
}

// Release removes a finished session once its stream has drained. The
// registry cleanup stays the orchestrator's responsibility; stream adapters
// call this instead of touching the registry.
func (o *Orchestrator) Release(session *Session) {
	if session.Finished() {
		o.sessions.Remove(session)
	}
}

// InProgress reports whether a live session exists for the key.
func (o *Orchestrator) InProgress(jobKey string) bool {
	session, ok := o.sessions.Get(jobKey)
	return ok && !session.Finished()
}

// StartSession registers a bare session for a pipeline worker that shares the
// apply event protocol but manages its own staging. Pipelines are exempt from
// the apply lease.
func (o *Orchestrator) StartSession(jobKey string, mode models.ApplyMode) (*Session, error) {
	if existing, ok := o.sessions.Get(jobKey); ok && !existing.Finished() {
		return nil, fmt.Errorf("%w: %s", ErrApplyInProgress, jobKey)
	}
	session := NewSession(jobKey, mode, o.config.QueueSize, o.logger)
	if err := o.sessions.Add(session); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrApplyInProgress, jobKey)
	}
	return session, nil
}

// FinishSession schedules registry cleanup for a pipeline session. Callers
// must have already enqueued the terminal done.
func (o *Orchestrator) FinishSession(session *Session) {
	o.scheduleCleanup(session)
}

// synthesizeFailure registers a session whose entire stream is one error
// followed by done. No worker, no lease, no activity entry.
func (o *Orchestrator) synthesizeFailure(jobKey string, mode models.ApplyMode, message string) (*Session, error) {
	session := NewSession(jobKey, mode, o.config.QueueSize, o.logger)
	if err := o.sessions.Add(session); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrApplyInProgress, jobKey)
	}

	session.Emit(models.ErrorEvent(jobKey, message))
	session.Emit(models.DoneEvent(jobKey, "Apply flow complete"))
	o.scheduleCleanup(session)

	o.logger.Info().Str("job_key", jobKey).Str("reason", message).Msg("Apply refused")
	return session, nil
}

// scheduleCleanup reclaims the session after the stream has had a chance to
// drain. Release removes it sooner when a subscriber finishes first.
func (o *Orchestrator) scheduleCleanup(session *Session) {
	time.AfterFunc(finishedSessionTTL, func() {
		o.sessions.Remove(session)
	})
}
