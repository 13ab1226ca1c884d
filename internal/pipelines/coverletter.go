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

const coverLetterSystemPrompt = `You write concise, specific cover letters. Using only the ` +
	`experience present in the resume below, write a one-page cover letter for the given ` +
	`job. Three to four short paragraphs, no placeholders, no invented experience. ` +
	`Return clean markdown.`

// GenerateCoverLetter starts the cover-letter pipeline for a job key and
// returns its session immediately.
func (s *Service) GenerateCoverLetter(ctx context.Context, jobKey string) (*apply.Session, error) {
	job, err := s.storage.JobStorage().GetJob(ctx, jobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}

	session, err := s.orch.StartSession(jobKey, models.ModeSemiAuto)
	if err != nil {
		return nil, err
	}

	common.SafeGo(s.logger, "cover-letter-"+jobKey, func() {
		defer s.orch.FinishSession(session)
		s.runCoverLetter(session, job)
	})
	return session, nil
}

func (s *Service) runCoverLetter(session *apply.Session, job *models.Job) {
	ctx := context.Background()
	doneMsg := "Cover letter complete"
	doneHTML := ""

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("job_key", job.Key).Msgf("Cover letter pipeline panic: %v", r)
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
	resumeText, err := s.extractor.ExtractText(ctx, s.config.DefaultPath)
	if err != nil {
		session.Emit(models.ErrorEvent(job.Key, fmt.Sprintf("Resume extraction failed: %v", err)))
		return
	}

	s.emitProgress(session, fmt.Sprintf("Generating cover letter for %s at %s...", job.Title, job.Company))
	letter, err := s.llm.GenerateContent(ctx, []interfaces.Message{
		{Role: "system", Content: coverLetterSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Job description:\n\n%s\n\nResume:\n\n%s",
			s.jobDescriptionMarkdown(job), resumeText)},
	})
	if err != nil {
		session.Emit(models.ErrorEvent(job.Key, fmt.Sprintf("Content generation failed: %v", err)))
		return
	}

	s.emitProgress(session, "Rendering PDF...")
	outPath := s.artifactPath(job.Key, models.VersionKindCoverLetter)
	title := fmt.Sprintf("Cover Letter - %s at %s", job.Title, job.Company)
	if err := s.renderer.RenderMarkdown(letter, title, outPath); err != nil {
		session.Emit(models.ErrorEvent(job.Key, fmt.Sprintf("PDF rendering failed: %v", err)))
		return
	}

	version := &models.ResumeVersion{
		ID:         common.NewVersionID(),
		JobKey:     job.Key,
		Kind:       models.VersionKindCoverLetter,
		FilePath:   outPath,
		SourcePath: s.config.DefaultPath,
		Model:      s.llm.ModelName(),
		CreatedAt:  time.Now(),
	}
	if err := s.persistVersion(ctx, version, models.ActivityCoverLetterGenerated); err != nil {
		session.Emit(models.ErrorEvent(job.Key, err.Error()))
		return
	}

	doneHTML = doneFragment(version, letter, "", nil)
}
