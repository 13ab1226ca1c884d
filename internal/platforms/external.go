package platforms

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/common"
	"github.com/ternarybob/pursuit/internal/models"
)

// ExternalATS is the api-kind adapter for jobs hosted on company career
// pages (Greenhouse, Lever, Ashby, BambooHR, Workday embeds). Every apply
// gets a fresh visible browser context; the generic form filler populates
// the application and the human submits after reviewing.
type ExternalATS struct {
	pool   *BrowserPool
	config *common.ApplyConfig
	filler *Filler
	logger arbor.ILogger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewExternalATS creates the external ATS adapter
func NewExternalATS(pool *BrowserPool, config *common.ApplyConfig, logger arbor.ILogger) *ExternalATS {
	return &ExternalATS{
		pool:   pool,
		config: config,
		filler: NewFiller(logger),
		logger: logger,
	}
}

func (e *ExternalATS) Key() string         { return "external_ats" }
func (e *ExternalATS) DisplayName() string { return "External ATS" }
func (e *ExternalATS) Kind() Kind          { return KindAPI }

// Acquire opens a throwaway browser context for one apply.
func (e *ExternalATS) Acquire(ctx context.Context) (context.Context, error) {
	browserCtx, cancel, err := e.pool.NewThrowawayContext()
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	return browserCtx, nil
}

// Release tears down the throwaway context.
func (e *ExternalATS) Release() error {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

func (e *ExternalATS) Init(ctx context.Context) error { return nil }

// Search is not supported: external ATS jobs arrive by URL, not discovery.
func (e *ExternalATS) Search(ctx context.Context, query string) ([]*models.Job, error) {
	return nil, fmt.Errorf("external_ats does not support search")
}

func (e *ExternalATS) GetJobDetails(ctx context.Context, job *models.Job) (*models.Job, error) {
	if err := e.pool.Navigate(ctx, job.URL, e.config.PageLoadTimeout); err != nil {
		return nil, err
	}

	html, err := e.pool.OuterHTML(ctx)
	if err != nil {
		return nil, err
	}

	detailed := *job
	detailed.Description = html
	return &detailed, nil
}

// FillApplication navigates to the job's apply URL, analyzes the form
// (following one ATS iframe hop if present) and fills it. It never submits.
func (e *ExternalATS) FillApplication(ctx context.Context, job *models.Job, profile *models.Profile, resumePath, coverLetterPath string) (map[string]string, error) {
	applyURL := job.ApplyURL
	if applyURL == "" {
		applyURL = job.URL
	}
	if applyURL == "" {
		return nil, fmt.Errorf("job %s has no apply URL", job.Key)
	}

	if err := e.pool.Navigate(ctx, applyURL, e.config.PageLoadTimeout); err != nil {
		return nil, err
	}

	html, err := e.pool.OuterHTML(ctx)
	if err != nil {
		return nil, err
	}

	analysis, err := AnalyzeForm(html, profile, resumePath, coverLetterPath)
	if err != nil {
		return nil, err
	}

	// The form lives inside an embedded ATS frame: navigate straight to the
	// frame URL and analyze the bare form page instead.
	if analysis.FrameURL != "" {
		e.logger.Info().
			Str("job_key", job.Key).
			Str("frame_url", analysis.FrameURL).
			Msg("Following embedded ATS frame")

		if err := e.pool.Navigate(ctx, analysis.FrameURL, e.config.PageLoadTimeout); err != nil {
			return nil, err
		}
		if html, err = e.pool.OuterHTML(ctx); err != nil {
			return nil, err
		}
		if analysis, err = AnalyzeForm(html, profile, resumePath, coverLetterPath); err != nil {
			return nil, err
		}
	}

	if len(analysis.Actions) == 0 {
		return nil, fmt.Errorf("no fillable form fields found at %s", applyURL)
	}

	filled, err := e.filler.Fill(ctx, analysis.Actions)
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("job_key", job.Key).
		Int("fields_filled", len(filled)).
		Msg("Application form filled")
	return filled, nil
}

// Screenshot implements Screenshotter.
func (e *ExternalATS) Screenshot(ctx context.Context, outPath string) error {
	return e.pool.Screenshot(ctx, outPath)
}
