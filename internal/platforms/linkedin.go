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

// LinkedIn is the browser-kind adapter for linkedin.com. It rides the
// platform's persistent browser profile so a manual login survives restarts.
type LinkedIn struct {
	pool   *BrowserPool
	config *common.ApplyConfig
	logger arbor.ILogger
}

// NewLinkedIn creates the LinkedIn adapter
func NewLinkedIn(pool *BrowserPool, config *common.ApplyConfig, logger arbor.ILogger) *LinkedIn {
	return &LinkedIn{pool: pool, config: config, logger: logger}
}

func (l *LinkedIn) Key() string         { return "linkedin" }
func (l *LinkedIn) DisplayName() string { return "LinkedIn" }
func (l *LinkedIn) Kind() Kind          { return KindBrowser }

func (l *LinkedIn) Acquire(ctx context.Context) (context.Context, error) {
	return l.pool.Acquire(l.Key())
}

// Release keeps the persistent context warm for the next apply.
func (l *LinkedIn) Release() error { return nil }

func (l *LinkedIn) IsLoggedIn(ctx context.Context) (bool, error) {
	if err := l.pool.Navigate(ctx, "https://www.linkedin.com/feed/", l.config.PageLoadTimeout); err != nil {
		return false, err
	}

	var loggedIn bool
	err := chromedp.Run(ctx, chromedp.Evaluate(
		`document.querySelector('.global-nav__me') !== null`, &loggedIn))
	if err != nil {
		return false, fmt.Errorf("failed to check login state: %w", err)
	}
	return loggedIn, nil
}

// Login opens the login page in the visible browser and waits for the human
// to complete it (including any challenge). Polls until logged in or ctx ends.
func (l *LinkedIn) Login(ctx context.Context) error {
	if err := l.pool.Navigate(ctx, "https://www.linkedin.com/login", l.config.PageLoadTimeout); err != nil {
		return err
	}

	l.logger.Info().Msg("Waiting for LinkedIn login in browser window")
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: linkedin: %v", ErrLoginRequired, ctx.Err())
		case <-ticker.C:
			var loggedIn bool
			if err := chromedp.Run(ctx, chromedp.Evaluate(
				`document.querySelector('.global-nav__me') !== null`, &loggedIn)); err != nil {
				continue
			}
			if loggedIn {
				l.logger.Info().Msg("LinkedIn login detected")
				return nil
			}
		}
	}
}

func (l *LinkedIn) Search(ctx context.Context, query string) ([]*models.Job, error) {
	searchURL := "https://www.linkedin.com/jobs/search/?keywords=" + url.QueryEscape(query)
	if err := l.pool.Navigate(ctx, searchURL, l.config.PageLoadTimeout); err != nil {
		return nil, err
	}

	html, err := l.pool.OuterHTML(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	var jobs []*models.Job
	doc.Find("li.jobs-search-results__list-item, div.job-card-container").Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find(".job-card-list__title, .job-card-container__link").First().Text())
		company := strings.TrimSpace(sel.Find(".job-card-container__primary-description, .job-card-container__company-name").First().Text())
		href := sel.Find("a").First().AttrOr("href", "")
		if title == "" || company == "" {
			return
		}
		jobs = append(jobs, &models.Job{
			Key:       common.JobKey(company, title),
			Platform:  l.Key(),
			Title:     title,
			Company:   company,
			URL:       absoluteURL("https://www.linkedin.com", href),
			EasyApply: sel.Find(".job-card-container__apply-method").Length() > 0,
			Status:    models.JobStatusDiscovered,
		})
	})

	return jobs, nil
}

func (l *LinkedIn) GetJobDetails(ctx context.Context, job *models.Job) (*models.Job, error) {
	if err := l.OpenJob(ctx, job); err != nil {
		return nil, err
	}

	html, err := l.pool.OuterHTML(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse job page: %w", err)
	}

	detailed := *job
	if desc := strings.TrimSpace(doc.Find(".jobs-description__content").Text()); desc != "" {
		detailed.Description = desc
	}
	if loc := strings.TrimSpace(doc.Find(".jobs-unified-top-card__bullet").First().Text()); loc != "" {
		detailed.Location = loc
	}
	detailed.EasyApply = doc.Find("button.jobs-apply-button").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(s.Text()), "easy apply")
	}).Length() > 0

	return &detailed, nil
}

func (l *LinkedIn) OpenJob(ctx context.Context, job *models.Job) error {
	return l.pool.Navigate(ctx, job.URL, l.config.PageLoadTimeout)
}

// Apply drives the Easy Apply modal: open, step through, submit. The caller
// has already passed the confirmation gate.
func (l *LinkedIn) Apply(ctx context.Context, job *models.Job, resumePath string) error {
	if err := chromedp.Run(ctx,
		chromedp.WaitVisible("button.jobs-apply-button", chromedp.ByQuery),
		chromedp.Click("button.jobs-apply-button", chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
	); err != nil {
		return fmt.Errorf("failed to open apply dialog: %w", err)
	}

	// Attach the resume if the modal asks for one
	var hasUpload bool
	_ = chromedp.Run(ctx, chromedp.Evaluate(
		`document.querySelector('.jobs-easy-apply-modal input[type=file]') !== null`, &hasUpload))
	if hasUpload && resumePath != "" {
		if err := chromedp.Run(ctx, chromedp.SetUploadFiles(
			".jobs-easy-apply-modal input[type=file]", []string{resumePath}, chromedp.ByQuery)); err != nil {
			l.logger.Warn().Err(err).Msg("Failed to attach resume in Easy Apply modal")
		}
	}

	// Step through the modal pages. LinkedIn caps Easy Apply flows at a
	// handful of screens; bail out if we loop without reaching submit.
	for step := 0; step < 8; step++ {
		if captcha, _ := l.captchaPresent(ctx); captcha {
			return fmt.Errorf("%w: linkedin easy apply", ErrCaptchaDetected)
		}

		var submitted bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(`(() => {
			const submit = document.querySelector('.jobs-easy-apply-modal button[aria-label*="Submit application"]');
			if (submit) { submit.click(); return true; }
			const next = document.querySelector('.jobs-easy-apply-modal button[aria-label*="Continue"], .jobs-easy-apply-modal button[aria-label*="Review"]');
			if (next) { next.click(); }
			return false;
		})()`, &submitted)); err != nil {
			return fmt.Errorf("easy apply step failed: %w", err)
		}

		if submitted {
			l.logger.Info().Str("job_key", job.Key).Msg("Easy Apply submitted")
			return nil
		}

		if err := chromedp.Run(ctx, chromedp.Sleep(1500*time.Millisecond)); err != nil {
			return err
		}
	}

	return fmt.Errorf("easy apply flow did not reach submission")
}

// Screenshot implements Screenshotter.
func (l *LinkedIn) Screenshot(ctx context.Context, outPath string) error {
	return l.pool.Screenshot(ctx, outPath)
}

func (l *LinkedIn) captchaPresent(ctx context.Context) (bool, error) {
	var present bool
	err := chromedp.Run(ctx, chromedp.Evaluate(
		`document.querySelector('#captcha-internal, .challenge-dialog') !== null`, &present))
	return present, err
}

func absoluteURL(base, href string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	return base + href
}
