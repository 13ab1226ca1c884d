package platforms

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/common"
	"golang.org/x/time/rate"
)

// BrowserPool manages persistent chromedp contexts, one per platform key.
// Profile state (cookies, logins) survives across applies because each
// platform gets its own user-data directory. Navigations are rate-limited
// pool-wide to keep outbound automation polite.
type BrowserPool struct {
	config  *common.BrowserConfig
	logger  arbor.ILogger
	limiter *rate.Limiter

	mu       sync.Mutex
	sessions map[string]*browserSession
}

type browserSession struct {
	ctx           context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

// NewBrowserPool creates a browser pool
func NewBrowserPool(config *common.BrowserConfig, logger arbor.ILogger) *BrowserPool {
	perMinute := config.NavPerMinute
	if perMinute <= 0 {
		perMinute = 20
	}
	return &BrowserPool{
		config:   config,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 2),
		sessions: make(map[string]*browserSession),
	}
}

// Acquire returns the persistent browser context for a platform, creating it
// on first use. The apply lease guarantees one worker per platform, so the
// returned context is not shared concurrently.
func (p *BrowserPool) Acquire(platformKey string) (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if session, ok := p.sessions[platformKey]; ok {
		return session.ctx, nil
	}

	userDataDir := filepath.Join(p.config.UserDataDir, platformKey)
	if err := os.MkdirAll(userDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create browser profile directory: %w", err)
	}

	opts := p.allocatorOptions(userDataDir)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so login state is inspectable right away
	if err := chromedp.Run(browserCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser for %s: %w", platformKey, err)
	}
	if err := EmulateDesktop(browserCtx); err != nil {
		p.logger.Warn().Err(err).Str("platform", platformKey).Msg("Viewport emulation failed")
	}

	p.sessions[platformKey] = &browserSession{
		ctx:           browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}

	p.logger.Info().
		Str("platform", platformKey).
		Str("user_data_dir", userDataDir).
		Bool("headless", p.config.Headless).
		Msg("Browser context created")

	return browserCtx, nil
}

// NewThrowawayContext creates a short-lived visible browser context for
// external ATS applies. The caller must invoke the returned cancel func.
func (p *BrowserPool) NewThrowawayContext() (context.Context, context.CancelFunc, error) {
	opts := p.allocatorOptions("")
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return nil, nil, fmt.Errorf("failed to start browser: %w", err)
	}
	if err := EmulateDesktop(browserCtx); err != nil {
		p.logger.Warn().Err(err).Msg("Viewport emulation failed")
	}

	cancel := func() {
		browserCancel()
		allocCancel()
	}
	return browserCtx, cancel, nil
}

// Navigate drives the context to a URL, honouring the pool rate limit and
// the page-load timeout.
func (p *BrowserPool) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	}

	navCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	actions := []chromedp.Action{chromedp.Navigate(url)}
	if p.config.WaitTime > 0 {
		actions = append(actions, chromedp.Sleep(p.config.WaitTime))
	}

	if err := chromedp.Run(navCtx, actions...); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
	}
	return nil
}

// Screenshot captures the viewport to a PNG on disk.
func (p *BrowserPool) Screenshot(ctx context.Context, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	var buf []byte
	capture := chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			Do(ctx)
		return err
	})
	if err := chromedp.Run(ctx, capture); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}

	if err := os.WriteFile(outPath, buf, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	return nil
}

// OuterHTML returns the serialized document of the current page.
func (p *BrowserPool) OuterHTML(ctx context.Context) (string, error) {
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}
	return html, nil
}

// Close tears down all browser contexts.
func (p *BrowserPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, session := range p.sessions {
		session.browserCancel()
		session.allocCancel()
		delete(p.sessions, key)
		p.logger.Debug().Str("platform", key).Msg("Browser context closed")
	}
}

func (p *BrowserPool) allocatorOptions(userDataDir string) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.WindowSize(1920, 1080),
	}
	if p.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(p.config.UserAgent))
	}
	if userDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(userDataDir))
	}
	if p.config.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	return opts
}

// EmulateDesktop normalizes the viewport for consistent form layouts.
func EmulateDesktop(ctx context.Context) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return emulation.SetDeviceMetricsOverride(1920, 1080, 1.0, false).Do(ctx)
	}))
}
