package pipelines

import (
	"context"
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/apply"
	"github.com/ternarybob/pursuit/internal/common"
	"github.com/ternarybob/pursuit/internal/interfaces"
	"github.com/ternarybob/pursuit/internal/models"
)

// Service runs the resume-tailoring and cover-letter pipelines. Both share
// the apply event protocol: a session is registered, staged progress flows
// through its queue, and exactly one done closes the stream.
type Service struct {
	orch      *apply.Orchestrator
	storage   interfaces.StorageManager
	extractor interfaces.PDFExtractor
	renderer  interfaces.PDFRenderer
	llm       interfaces.LLMService
	config    *common.ResumeConfig
	logger    arbor.ILogger
}

// NewService creates the pipelines service
func NewService(
	orch *apply.Orchestrator,
	storage interfaces.StorageManager,
	extractor interfaces.PDFExtractor,
	renderer interfaces.PDFRenderer,
	llm interfaces.LLMService,
	config *common.ResumeConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		orch:      orch,
		storage:   storage,
		extractor: extractor,
		renderer:  renderer,
		llm:       llm,
		config:    config,
		logger:    logger,
	}
}

// jobDescriptionMarkdown normalizes a job description for LLM prompts. HTML
// descriptions are converted to markdown; plain text passes through.
func (s *Service) jobDescriptionMarkdown(job *models.Job) string {
	description := strings.TrimSpace(job.Description)
	if description == "" {
		return fmt.Sprintf("%s at %s", job.Title, job.Company)
	}
	if !strings.Contains(description, "<") {
		return description
	}

	converter := md.NewConverter(job.URL, true, nil)
	converted, err := converter.ConvertString(description)
	if err != nil || strings.TrimSpace(converted) == "" {
		s.logger.Warn().Err(err).Str("job_key", job.Key).Msg("Description conversion failed; using raw text")
		return description
	}
	return converted
}

// artifactPath builds a timestamped output path under the artifacts dir.
func (s *Service) artifactPath(jobKey string, kind models.VersionKind) string {
	name := fmt.Sprintf("%s-%s-%s.pdf", jobKey, kind, time.Now().Format("20060102-150405"))
	return filepath.Join(s.config.ArtifactsDir, name)
}

// persistVersion writes the version row and its activity entry.
func (s *Service) persistVersion(ctx context.Context, version *models.ResumeVersion, activity models.ActivityType) error {
	if err := s.storage.ResumeVersionStorage().SaveVersion(ctx, version); err != nil {
		return fmt.Errorf("failed to save version record: %w", err)
	}
	if err := s.storage.ActivityStorage().Record(ctx, version.JobKey, activity, version.FilePath); err != nil {
		s.logger.Warn().Err(err).Str("job_key", version.JobKey).Msg("Failed to record activity")
	}
	return nil
}

// doneFragment builds the terminal HTML fragment with a download link, the
// validation warnings (if any), the rendered diff against the source text
// and a collapsible preview of the new content.
func doneFragment(version *models.ResumeVersion, preview, diffHTML string, warnings []string) string {
	var b strings.Builder
	b.WriteString(`<div class="pipeline-result">`)
	fmt.Fprintf(&b, `<a class="download" href="/artifacts/%s" download>Download %s</a>`,
		html.EscapeString(filepath.Base(version.FilePath)), html.EscapeString(string(version.Kind)))

	if len(warnings) > 0 {
		b.WriteString(`<ul class="validation-warnings">`)
		for _, w := range warnings {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(w))
		}
		b.WriteString(`</ul>`)
	}

	b.WriteString(diffHTML)

	if preview != "" {
		fmt.Fprintf(&b, `<details><summary>Preview</summary><pre>%s</pre></details>`,
			html.EscapeString(preview))
	}
	b.WriteString(`</div>`)
	return b.String()
}

func (s *Service) emitProgress(session *apply.Session, message string) {
	session.Emit(models.ProgressEvent(session.JobKey, message))
}
