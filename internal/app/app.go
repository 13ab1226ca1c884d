package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/apply"
	"github.com/ternarybob/pursuit/internal/common"
	"github.com/ternarybob/pursuit/internal/handlers"
	"github.com/ternarybob/pursuit/internal/interfaces"
	"github.com/ternarybob/pursuit/internal/pipelines"
	"github.com/ternarybob/pursuit/internal/platforms"
	"github.com/ternarybob/pursuit/internal/services/llm"
	"github.com/ternarybob/pursuit/internal/services/maintenance"
	"github.com/ternarybob/pursuit/internal/services/pdf"
	badgerstorage "github.com/ternarybob/pursuit/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Browser automation
	BrowserPool      *platforms.BrowserPool
	PlatformRegistry *platforms.Registry

	// Content generation
	LLMService interfaces.LLMService
	Extractor  interfaces.PDFExtractor
	Renderer   interfaces.PDFRenderer

	// Core services
	Orchestrator       *apply.Orchestrator
	PipelineService    *pipelines.Service
	MaintenanceService *maintenance.Service

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	JobHandler      *handlers.JobHandler
	ApplyHandler    *handlers.ApplyHandler
	PipelineHandler *handlers.PipelineHandler
	StreamHandler   *handlers.StreamHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if err := app.MaintenanceService.Start(); err != nil {
		return nil, fmt.Errorf("failed to start maintenance scheduler: %w", err)
	}

	logger.Info().
		Str("llm_model", app.LLMService.ModelName()).
		Int("platforms", len(app.PlatformRegistry.Entries())).
		Int("apply_concurrency", cfg.Apply.LeaseCapacity()).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badgerstorage.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")
	return nil
}

// initServices initializes business services in dependency order: browser
// pool, platform registry, content generation, then the orchestrator and
// pipelines built on top of them.
func (a *App) initServices() error {
	a.BrowserPool = platforms.NewBrowserPool(&a.Config.Browser, a.Logger)

	registry := platforms.NewRegistry(a.Logger)
	registrations := []struct {
		key, name string
		kind      platforms.Kind
		factory   platforms.Factory
	}{
		{"linkedin", "LinkedIn", platforms.KindBrowser, func() (platforms.Platform, error) {
			return platforms.NewLinkedIn(a.BrowserPool, &a.Config.Apply, a.Logger), nil
		}},
		{"seek", "Seek", platforms.KindBrowser, func() (platforms.Platform, error) {
			return platforms.NewSeek(a.BrowserPool, &a.Config.Apply, a.Logger), nil
		}},
		{"external_ats", "External ATS", platforms.KindAPI, func() (platforms.Platform, error) {
			return platforms.NewExternalATS(a.BrowserPool, &a.Config.Apply, a.Logger), nil
		}},
	}
	for _, reg := range registrations {
		if err := registry.Register(reg.key, reg.name, reg.kind, reg.factory); err != nil {
			return err
		}
	}
	registry.Seal()
	a.PlatformRegistry = registry

	llmService, err := llm.NewService(&a.Config.LLM, a.Logger)
	if err != nil {
		// Apply flows work without a provider; only the pipelines need one,
		// and they surface the problem as a stream error.
		a.Logger.Warn().Err(err).Msg("LLM provider unavailable; content generation disabled")
		llmService = llm.NewDisabled()
	}
	a.LLMService = llmService

	a.Extractor = pdf.NewExtractor(a.Logger)
	a.Renderer = pdf.NewRenderer(a.Logger)

	a.Orchestrator = apply.NewOrchestrator(
		&a.Config.Apply,
		&a.Config.Resume,
		a.PlatformRegistry,
		a.StorageManager,
		a.Logger,
	)

	a.PipelineService = pipelines.NewService(
		a.Orchestrator,
		a.StorageManager,
		a.Extractor,
		a.Renderer,
		a.LLMService,
		&a.Config.Resume,
		a.Logger,
	)

	a.MaintenanceService = maintenance.NewService(
		&a.Config.Maintenance,
		[]string{a.Config.Apply.ScreenshotDir, a.Config.Resume.ArtifactsDir},
		a.Logger,
	)

	return nil
}

// initHandlers initializes the HTTP handlers
func (a *App) initHandlers() {
	a.StreamHandler = handlers.NewStreamHandler(a.Orchestrator, a.Config.Apply.KeepaliveInterval, a.Logger)
	a.ApplyHandler = handlers.NewApplyHandler(a.Orchestrator, a.StreamHandler, a.Logger)
	a.PipelineHandler = handlers.NewPipelineHandler(a.PipelineService, a.StreamHandler, a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.StorageManager, a.Logger)
	a.APIHandler = handlers.NewAPIHandler(a.Config, a.StorageManager, a.Logger)
}

// Close shuts down application components in reverse dependency order.
func (a *App) Close() error {
	if a.MaintenanceService != nil {
		a.MaintenanceService.Stop()
	}
	if a.BrowserPool != nil {
		a.BrowserPool.Close()
	}
	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}
	a.Logger.Info().Msg("Application shut down")
	return nil
}
