package platforms

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/common"
	"github.com/ternarybob/pursuit/internal/models"
)

// Seek is the browser-kind adapter for seek.com.au.
type Seek struct {
	pool   *BrowserPool
	config *common.ApplyConfig
	logger arbor.ILogger
}

// NewSeek creates the Seek adapter
func NewSeek(pool *BrowserPool, config *common.ApplyConfig, logger arbor.ILogger) *Seek {
	return &Seek{pool: pool, config: config, logger: logger}
}

func (s *Seek) Key() string         { return "seek" }
func (s *Seek) DisplayName() string { return "Seek" }
func (s *Seek) Kind() Kind          { return KindBrowser }

func (s *Seek) Acquire(ctx context.Context) (context.Context, error) {
	return s.pool.Acquire(s.Key())
}

func (s *Seek) Release() error { return nil }

func (s *Seek) IsLoggedIn(ctx context.Context) (bool, error) {
	if err := s.pool.Navigate(ctx, "https://www.seek.com.au/", s.config.PageLoadTimeout); err != nil {
		return false, err
	}

	var loggedIn bool
	err := chromedp.Run(ctx, chromedp.Evaluate(
		`document.querySelector('[data-automation="profile menu"], [data-automation="account name"]') !== null`, &loggedIn))
	if err != nil {
		return false, fmt.Errorf("failed to check login state: %w", err)
	}
	return loggedIn, nil
}

func (s *Seek) Login(ctx context.Context) error {
	if err := s.pool.Navigate(ctx, "https://www.seek.com.au/oauth/login/", s.config.PageLoadTimeout); err != nil {
		return err
	}

	s.logger.Info().Msg("Waiting for Seek login in browser window")
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: seek: %v", ErrLoginRequired, ctx.Err())
		case <-ticker.C:
			var loggedIn bool
			if err := chromedp.Run(ctx, chromedp.Evaluate(
				`document.querySelector('[data-automation="profile menu"], [data-automation="account name"]') !== null`, &loggedIn)); err != nil {
				continue
			}
			if loggedIn {
				s.logger.Info().Msg("Seek login detected")
				return nil
			}
		}
	}
}

func (s *Seek) Search(ctx context.Context, query string) ([]*models.Job, error) {
	slug := strings.ReplaceAll(strings.TrimSpace(query), " ", "-")
	searchURL := "https://www.seek.com.au/" + url.PathEscape(slug) + "-jobs"
	if err := s.pool.Navigate(ctx, searchURL, s.config.PageLoadTimeout); err != nil {
		return nil, err
	}

	html, err := s.pool.OuterHTML(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	var jobs []*models.Job
	doc.Find(`article[data-automation="normalJob"], article[data-automation="premiumJob"]`).Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find(`a[data-automation="jobTitle"]`).Text())
		company := strings.TrimSpace(sel.Find(`a[data-automation="jobCompany"]`).Text())
		href := sel.Find(`a[data-automation="jobTitle"]`).AttrOr("href", "")
		if title == "" || company == "" {
			return
		}
		jobs = append(jobs, &models.Job{
			Key:      common.JobKey(company, title),
			Platform: s.Key(),
			Title:    title,
			Company:  company,
			URL:      absoluteURL("https://www.seek.com.au", href),
			Location: strings.TrimSpace(sel.Find(`span[data-automation="jobLocation"]`).First().Text()),
			Salary:   strings.TrimSpace(sel.Find(`span[data-automation="jobSalary"]`).First().Text()),
			Status:   models.JobStatusDiscovered,
		})
	})

	return jobs, nil
}

func (s *Seek) GetJobDetails(ctx context.Context, job *models.Job) (*models.Job, error) {
	if err := s.OpenJob(ctx, job); err != nil {
		return nil, err
	}

	html, err := s.pool.OuterHTML(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse job page: %w", err)
	}

	detailed := *job
	if desc := strings.TrimSpace(doc.Find(`[data-automation="jobAdDetails"]`).Text()); desc != "" {
		detailed.Description = desc
	}
	if loc := strings.TrimSpace(doc.Find(`[data-automation="job-detail-location"]`).Text()); loc != "" {
		detailed.Location = loc
	}
	// Quick Apply keeps the flow on Seek; anything else redirects to an
	// external ATS and belongs to the external adapter.
	detailed.EasyApply = doc.Find(`a[data-automation="job-detail-apply"]`).FilterFunction(func(_ int, a *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(a.Text()), "quick apply")
	}).Length() > 0

	return &detailed, nil
}

func (s *Seek) OpenJob(ctx context.Context, job *models.Job) error {
	return s.pool.Navigate(ctx, job.URL, s.config.PageLoadTimeout)
}

// Apply drives Seek's Quick Apply flow for an opened job.
func (s *Seek) Apply(ctx context.Context, job *models.Job, resumePath string) error {
	if err := chromedp.Run(ctx,
		chromedp.WaitVisible(`a[data-automation="job-detail-apply"]`, chromedp.ByQuery),
		chromedp.Click(`a[data-automation="job-detail-apply"]`, chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
	); err != nil {
		return fmt.Errorf("failed to open apply flow: %w", err)
	}

	// Quick Apply defaults to the resume already on the Seek profile; an
	// upload control appears only when "upload a resume" is selected.
	var hasUpload bool
	_ = chromedp.Run(ctx, chromedp.Evaluate(
		`document.querySelector('input[type=file]') !== null`, &hasUpload))
	if hasUpload && resumePath != "" {
		if err := chromedp.Run(ctx, chromedp.SetUploadFiles(
			"input[type=file]", []string{resumePath}, chromedp.ByQuery)); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to attach resume in Quick Apply")
		}
	}

	for step := 0; step < 6; step++ {
		var submitted bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(`(() => {
			const submit = document.querySelector('button[data-testid="review-submit-application"]');
			if (submit) { submit.click(); return true; }
			const next = document.querySelector('button[data-testid="continue-button"]');
			if (next) { next.click(); }
			return false;
		})()`, &submitted)); err != nil {
			return fmt.Errorf("quick apply step failed: %w", err)
		}

		if submitted {
			s.logger.Info().Str("job_key", job.Key).Msg("Quick Apply submitted")
			return nil
		}

		if err := chromedp.Run(ctx, chromedp.Sleep(1500*time.Millisecond)); err != nil {
			return err
		}
	}

	return fmt.Errorf("quick apply flow did not reach submission")
}

// Screenshot implements Screenshotter.
func (s *Seek) Screenshot(ctx context.Context, outPath string) error {
	return s.pool.Screenshot(ctx, outPath)
}
