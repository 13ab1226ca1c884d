package pipelines

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/pursuit/internal/apply"
	"github.com/ternarybob/pursuit/internal/common"
	"github.com/ternarybob/pursuit/internal/interfaces"
	"github.com/ternarybob/pursuit/internal/models"
)

const tailorSystemPrompt = `You are a resume editor. Rewrite the resume below so it emphasizes ` +
	`the experience most relevant to the given job description. You must only reorder, ` +
	`rephrase and reweight content that already exists in the original resume. Never invent ` +
	`employers, skills, tools, dates or metrics that are not present in the original. ` +
	`Return the tailored resume as clean markdown with the same top-level structure.`

// TailorResume starts the resume-tailoring pipeline for a job key and
// returns its session immediately. A second start while one is in flight is
// rejected with ErrApplyInProgress.
func (s *Service) TailorResume(ctx context.Context, jobKey string) (*apply.Session, error) {
	job, err := s.storage.JobStorage().GetJob(ctx, jobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}

	session, err := s.orch.StartSession(jobKey, models.ModeSemiAuto)
	if err != nil {
		return nil, err
	}

	common.SafeGo(s.logger, "tailor-resume-"+jobKey, func() {
		defer s.orch.FinishSession(session)
		s.runTailor(session, job)
	})
	return session, nil
}

func (s *Service) runTailor(session *apply.Session, job *models.Job) {
	ctx := context.Background()
	doneMsg := "Resume tailoring complete"
	doneHTML := ""

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("job_key", job.Key).Msgf("Tailor pipeline panic: %v", r)
			session.Emit(models.ErrorEvent(job.Key, fmt.Sprintf("Internal error: %v", r)))
		}
		session.Emit(models.ApplyEvent{
			Type:      models.EventDone,
			JobKey:    job.Key,
			Message:   doneMsg,
			HTML:      doneHTML,
			Timestamp: time.Now(),
		})
	}()

	s.emitProgress(session, "Extracting resume text...")
	original, err := s.extractor.ExtractText(ctx, s.config.DefaultPath)
	if err != nil {
		session.Emit(models.ErrorEvent(job.Key, fmt.Sprintf("Resume extraction failed: %v", err)))
		return
	}

	s.emitProgress(session, fmt.Sprintf("Generating tailored resume for %s at %s...", job.Title, job.Company))
	tailored, err := s.llm.GenerateContent(ctx, []interfaces.Message{
		{Role: "system", Content: tailorSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Job description:\n\n%s\n\nOriginal resume:\n\n%s",
			s.jobDescriptionMarkdown(job), original)},
	})
	if err != nil {
		session.Emit(models.ErrorEvent(job.Key, fmt.Sprintf("Content generation failed: %v", err)))
		return
	}

	// Fabrication findings are warnings, not failures: the artifact is still
	// produced and the reviewer decides.
	s.emitProgress(session, "Validating tailored content...")
	validation := Validate(original, tailored)
	if !validation.IsValid {
		s.logger.Warn().
			Str("job_key", job.Key).
			Int("warnings", len(validation.Warnings)).
			Msg("Tailored resume introduces unverified content")
	}

	s.emitProgress(session, "Rendering PDF...")
	outPath := s.artifactPath(job.Key, models.VersionKindResume)
	title := fmt.Sprintf("Resume - %s at %s", job.Title, job.Company)
	if err := s.renderer.RenderMarkdown(tailored, title, outPath); err != nil {
		session.Emit(models.ErrorEvent(job.Key, fmt.Sprintf("PDF rendering failed: %v", err)))
		return
	}

	version := &models.ResumeVersion{
		ID:         common.NewVersionID(),
		JobKey:     job.Key,
		Kind:       models.VersionKindResume,
		FilePath:   outPath,
		SourcePath: s.config.DefaultPath,
		Model:      s.llm.ModelName(),
		Warnings:   validation.Warnings,
		CreatedAt:  time.Now(),
	}
	if err := s.persistVersion(ctx, version, models.ActivityResumeTailored); err != nil {
		session.Emit(models.ErrorEvent(job.Key, err.Error()))
		return
	}

	doneHTML = doneFragment(version, tailored, diffFragment(original, tailored), validation.Warnings)
	if !validation.IsValid {
		doneMsg = fmt.Sprintf("Resume tailored with %d validation warnings", len(validation.Warnings))
	}
}
